package exec

import (
	"maps"

	"github.com/onegoml/onego/backend"
	"github.com/onegoml/onego/ir"
	"github.com/onegoml/onego/tensor"
)

// DataflowExecutor maintains, per operation, a counter of unresolved input operands. Ops with
// zero unresolved inputs start in the ready queue; popping and running an op decrements every
// consumer's counter, enqueueing any that reach zero. Single-threaded cooperative, FIFO
// readiness discipline -- no reordering across dependencies.
type DataflowExecutor struct {
	base
	codeMap    CodeMap
	inDegree   map[ir.OperationIndex]int
	dependents map[ir.OperationIndex][]ir.OperationIndex
}

// NewDataflowExecutor derives the readiness graph directly from lg, ignoring any precomputed
// linear order.
func NewDataflowExecutor(lg *ir.LoweredGraph, contexts map[ir.BackendID]backend.BackendContext, registries map[ir.BackendID]*tensor.Registry, builtinBackend ir.BackendID, codeMap CodeMap) *DataflowExecutor {
	g := lg.Graph()
	inDegree := make(map[ir.OperationIndex]int)
	dependents := make(map[ir.OperationIndex][]ir.OperationIndex)
	for _, opIdx := range g.SortedOperationIndices() {
		op := g.Operation(opIdx)
		degree := 0
		for _, inIdx := range op.Inputs().Dedup() {
			operand := g.Operand(inIdx)
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
	return &DataflowExecutor{
		base:       newBase(lg, contexts, registries, builtinBackend),
		codeMap:    codeMap,
		inDegree:   inDegree,
		dependents: dependents,
	}
}

func (e *DataflowExecutor) Run() error {
	g := e.Graph()
	degree := maps.Clone(e.inDegree)

	var ready []ir.OperationIndex
	for _, opIdx := range g.SortedOperationIndices() {
		if degree[opIdx] == 0 {
			ready = append(ready, opIdx)
		}
	}

	var runErr error
	for len(ready) > 0 {
		opIdx := ready[0]
		ready = ready[1:]
		if err := e.runOp(g, e.codeMap, opIdx); err != nil {
			runErr = err
			break
		}
		for _, dep := range e.dependents[opIdx] {
			degree[dep]--
			if degree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}
	return e.finish(runErr)
}

var _ IExecutor = (*DataflowExecutor)(nil)
