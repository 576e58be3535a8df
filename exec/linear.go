package exec

import (
	"github.com/onegoml/onego/backend"
	"github.com/onegoml/onego/ir"
	"github.com/onegoml/onego/tensor"
)

// LinearExecutor runs a precomputed topological order strictly in sequence, single-threaded.
// Correctness follows directly from the order being a topological sort: migrant tensors are
// read-only aliases of already-computed native tensors, so in-order execution respects every
// data dependency by construction.
type LinearExecutor struct {
	base
	codeMap CodeMap
	order   []ir.OperationIndex
}

// NewLinearExecutor builds a LinearExecutor from C6's assembled state.
func NewLinearExecutor(lg *ir.LoweredGraph, contexts map[ir.BackendID]backend.BackendContext, registries map[ir.BackendID]*tensor.Registry, builtinBackend ir.BackendID, codeMap CodeMap, order []ir.OperationIndex) *LinearExecutor {
	return &LinearExecutor{
		base:    newBase(lg, contexts, registries, builtinBackend),
		codeMap: codeMap,
		order:   order,
	}
}

func (e *LinearExecutor) Run() error {
	g := e.Graph()
	var runErr error
	for _, opIdx := range e.order {
		if err := e.runOp(g, e.codeMap, opIdx); err != nil {
			runErr = err
			break
		}
	}
	return e.finish(runErr)
}

var _ IExecutor = (*LinearExecutor)(nil)
