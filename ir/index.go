// Package ir defines the in-memory representation of a lowered model graph: operands,
// operations, the whole Graph, and the LoweredGraph sidecar maps that record which backend
// and layout was chosen for each operand and operation.
//
// This is the data the compiler package consumes to build an executable schedule -- it is
// produced upstream by an importer and a graph optimizer, neither of which is part of this
// module.
package ir

import "fmt"

// OperandIndex is a stable handle into a Graph's operand table. Indices are issued once by
// the graph that first creates the operand and are never reallocated: copying an operand into
// a partial graph reuses the same index.
type OperandIndex int

// Undefined marks the absence of an operand or operation reference (e.g. a control-flow op
// with a variable number of inputs may pad with Undefined).
const Undefined = -1

func (i OperandIndex) Valid() bool { return int(i) >= 0 }

func (i OperandIndex) String() string { return fmt.Sprintf("Operand#%d", int(i)) }

// OperationIndex is a stable handle into a Graph's operation table, with the same
// no-reallocation guarantee as OperandIndex.
type OperationIndex int

func (i OperationIndex) Valid() bool { return int(i) >= 0 }

func (i OperationIndex) String() string { return fmt.Sprintf("Operation#%d", int(i)) }

// IndexSequence is an ordered, possibly-duplicated list of operand indices, used for an
// operation's input/output lists and a graph's input/output lists.
type IndexSequence []OperandIndex

// Dedup returns a copy of the sequence with duplicates and Undefined entries removed,
// preserving the first occurrence's order.
func (s IndexSequence) Dedup() IndexSequence {
	out := make(IndexSequence, 0, len(s))
	seen := make(map[OperandIndex]bool, len(s))
	for _, idx := range s {
		if !idx.Valid() || seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, idx)
	}
	return out
}

// Contains reports whether idx is present in the sequence.
func (s IndexSequence) Contains(idx OperandIndex) bool {
	for _, e := range s {
		if e == idx {
			return true
		}
	}
	return false
}
