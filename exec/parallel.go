package exec

import (
	"maps"
	"sync"

	"github.com/onegoml/onego/backend"
	"github.com/onegoml/onego/internal/workerspool"
	"github.com/onegoml/onego/ir"
	"github.com/onegoml/onego/tensor"
)

// ParallelExecutor is a DataflowExecutor whose ready operations are dispatched onto a worker
// pool instead of run inline. Concurrency invariant: two ops may only run simultaneously if
// neither writes an operand the other reads or writes -- guaranteed by partitioning (each
// operand has exactly one producer) and the readiness discipline (a consumer only becomes
// ready once every producer it depends on has finished).
type ParallelExecutor struct {
	base
	codeMap    CodeMap
	inDegree   map[ir.OperationIndex]int
	dependents map[ir.OperationIndex][]ir.OperationIndex
	pool       *workerspool.Pool
}

// NewParallelExecutor mirrors NewDataflowExecutor's readiness graph, adding a worker pool
// sized by maxWorkers (0 = runtime default, negative = unlimited, matching
// workerspool.Pool.SetMaxParallelism).
func NewParallelExecutor(lg *ir.LoweredGraph, contexts map[ir.BackendID]backend.BackendContext, registries map[ir.BackendID]*tensor.Registry, builtinBackend ir.BackendID, codeMap CodeMap, maxWorkers int) *ParallelExecutor {
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

	pool := workerspool.New()
	if maxWorkers != 0 {
		pool.SetMaxParallelism(maxWorkers)
	}

	return &ParallelExecutor{
		base:       newBase(lg, contexts, registries, builtinBackend),
		codeMap:    codeMap,
		inDegree:   inDegree,
		dependents: dependents,
		pool:       pool,
	}
}

func (e *ParallelExecutor) Run() error {
	g := e.Graph()
	degree := maps.Clone(e.inDegree)

	var mu sync.Mutex
	var wg sync.WaitGroup
	var firstErr error

	var dispatch func(ir.OperationIndex)
	dispatch = func(opIdx ir.OperationIndex) {
		wg.Add(1)
		e.pool.WaitToStart(func() {
			defer wg.Done()

			mu.Lock()
			aborted := firstErr != nil
			mu.Unlock()
			if aborted {
				return
			}

			err := e.runOp(g, e.codeMap, opIdx)

			mu.Lock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			var newlyReady []ir.OperationIndex
			for _, dep := range e.dependents[opIdx] {
				degree[dep]--
				if degree[dep] == 0 {
					newlyReady = append(newlyReady, dep)
				}
			}
			mu.Unlock()

			if len(newlyReady) > 0 {
				// dispatch(dep) below calls pool.WaitToStart, which blocks this goroutine
				// until a slot opens up -- but this goroutine is itself occupying a slot.
				// Under bounded parallelism (e.g. two independent ops finishing at once
				// with only enough slots for the two of them) every worker could end up
				// blocked here waiting for a slot only another blocked worker could free.
				// WorkerIsAsleep tells the pool this worker isn't doing real work right
				// now, temporarily admitting one more task in its place.
				e.pool.WorkerIsAsleep()
				for _, dep := range newlyReady {
					dispatch(dep)
				}
				e.pool.WorkerRestarted()
			}
		})
	}

	var initialReady []ir.OperationIndex
	for _, opIdx := range g.SortedOperationIndices() {
		if degree[opIdx] == 0 {
			initialReady = append(initialReady, opIdx)
		}
	}
	for _, opIdx := range initialReady {
		dispatch(opIdx)
	}

	wg.Wait()
	return e.finish(firstErr)
}

var _ IExecutor = (*ParallelExecutor)(nil)
