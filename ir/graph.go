package ir

import (
	"sort"

	"github.com/gomlx/exceptions"
)

// Graph is an indexed collection of operands and operations, plus the whole-graph input and
// output operand sequences, a preferred layout, and a handle for a custom-op kernel builder.
//
// A partial Graph (one per backend, see the compiler package) is a Graph too: it just contains
// a subset of the whole graph's operands and operations, at the same indices.
type Graph struct {
	operands   map[OperandIndex]*Operand
	operations map[OperationIndex]*Operation

	inputs  IndexSequence
	outputs IndexSequence

	layout Layout

	// kernelBuilder is an opaque handle a backend can use to materialize custom-op kernels.
	// The core never dereferences it.
	kernelBuilder any
}

func NewGraph() *Graph {
	return &Graph{
		operands:   make(map[OperandIndex]*Operand),
		operations: make(map[OperationIndex]*Operation),
	}
}

func (g *Graph) Layout() Layout        { return g.layout }
func (g *Graph) SetLayout(l Layout)    { g.layout = l }
func (g *Graph) KernelBuilder() any    { return g.kernelBuilder }
func (g *Graph) SetKernelBuilder(k any) { g.kernelBuilder = k }

func (g *Graph) Inputs() IndexSequence  { return g.inputs }
func (g *Graph) Outputs() IndexSequence { return g.outputs }

func (g *Graph) AddInput(idx OperandIndex) {
	if !g.inputs.Contains(idx) {
		g.inputs = append(g.inputs, idx)
	}
}

func (g *Graph) AddOutput(idx OperandIndex) {
	if !g.outputs.Contains(idx) {
		g.outputs = append(g.outputs, idx)
	}
}

// HasOperand reports whether idx already exists in this graph.
func (g *Graph) HasOperand(idx OperandIndex) bool {
	_, ok := g.operands[idx]
	return ok
}

// Operand returns the operand at idx, or nil if it doesn't exist in this graph.
func (g *Graph) Operand(idx OperandIndex) *Operand {
	return g.operands[idx]
}

// AddOperand inserts operand at its own index. It never reallocates the index: the caller
// (usually the partitioner) is responsible for keeping operand.Index() consistent with idx.
func (g *Graph) AddOperand(idx OperandIndex, operand *Operand) OperandIndex {
	if g.HasOperand(idx) {
		exceptions.Panicf("ir.Graph.AddOperand: operand %s already exists", idx)
	}
	g.operands[idx] = operand
	return idx
}

func (g *Graph) HasOperation(idx OperationIndex) bool {
	_, ok := g.operations[idx]
	return ok
}

func (g *Graph) Operation(idx OperationIndex) *Operation {
	return g.operations[idx]
}

// AddOperation inserts operation at its own index, same no-reallocation contract as
// AddOperand.
func (g *Graph) AddOperation(idx OperationIndex, op *Operation) OperationIndex {
	if g.HasOperation(idx) {
		exceptions.Panicf("ir.Graph.AddOperation: operation %s already exists", idx)
	}
	g.operations[idx] = op
	return idx
}

// SortedOperandIndices returns every operand index present in the graph, in ascending order.
// Ascending order is arbitrary but deterministic, which is all the partitioner and dumper
// need it for.
func (g *Graph) SortedOperandIndices() []OperandIndex {
	out := make([]OperandIndex, 0, len(g.operands))
	for idx := range g.operands {
		out = append(out, idx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SortedOperationIndices returns every operation index present in the graph, in ascending
// order.
func (g *Graph) SortedOperationIndices() []OperationIndex {
	out := make([]OperationIndex, 0, len(g.operations))
	for idx := range g.operations {
		out = append(out, idx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IterOperands calls fn for every operand, in ascending index order.
func (g *Graph) IterOperands(fn func(OperandIndex, *Operand)) {
	for _, idx := range g.SortedOperandIndices() {
		fn(idx, g.operands[idx])
	}
}

// IterOperations calls fn for every operation, in ascending index order.
func (g *Graph) IterOperations(fn func(OperationIndex, *Operation)) {
	for _, idx := range g.SortedOperationIndices() {
		fn(idx, g.operations[idx])
	}
}

// TopologicalOrder returns a topological sort of the graph's operations: every operation
// appears after all operations that produce one of its inputs. Ties (independent operations)
// are broken by ascending operation index, which is what makes P6 (deterministic linear run)
// hold trivially once the order is fixed.
func (g *Graph) TopologicalOrder() []OperationIndex {
	inDegree := make(map[OperationIndex]int, len(g.operations))
	dependents := make(map[OperationIndex][]OperationIndex, len(g.operations))

	for opIdx, op := range g.operations {
		degree := 0
		for _, inIdx := range op.Inputs().Dedup() {
			operand := g.operands[inIdx]
			if operand == nil {
				continue
			}
			defOp := operand.Def()
			if !defOp.Valid() || !g.HasOperation(defOp) {
				continue
			}
			degree++
			dependents[defOp] = append(dependents[defOp], opIdx)
		}
		inDegree[opIdx] = degree
	}

	ready := make([]OperationIndex, 0, len(g.operations))
	for _, opIdx := range g.SortedOperationIndices() {
		if inDegree[opIdx] == 0 {
			ready = append(ready, opIdx)
		}
	}

	order := make([]OperationIndex, 0, len(g.operations))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, dep := range dependents[next] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(order) != len(g.operations) {
		exceptions.Panicf("ir.Graph.TopologicalOrder: graph has a cycle (ordered %d of %d operations)", len(order), len(g.operations))
	}
	return order
}
