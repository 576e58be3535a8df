package exec

import (
	"sync"
	"time"

	"github.com/onegoml/onego/ir"
)

// ExecTime accumulates wall-clock time spent per backend across a run. It is the Go
// realization of the original scheduler's per-backend timing table; nothing downstream of
// this scope consumes it for scheduling decisions, but it is cheap to keep and directly
// observable through ProfileObserver.
type ExecTime struct {
	mu    sync.Mutex
	total map[ir.BackendID]time.Duration
	count map[ir.BackendID]int
}

// NewExecTime returns an empty table.
func NewExecTime() *ExecTime {
	return &ExecTime{
		total: make(map[ir.BackendID]time.Duration),
		count: make(map[ir.BackendID]int),
	}
}

func (e *ExecTime) record(backend ir.BackendID, d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.total[backend] += d
	e.count[backend]++
}

// Total returns the accumulated duration spent in backend across every recorded operation.
func (e *ExecTime) Total(backend ir.BackendID) time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.total[backend]
}

// Count returns how many operations were recorded for backend.
func (e *ExecTime) Count(backend ir.BackendID) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count[backend]
}

// Backends returns every backend identity with at least one recorded sample.
func (e *ExecTime) Backends() []ir.BackendID {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]ir.BackendID, 0, len(e.total))
	for b := range e.total {
		out = append(out, b)
	}
	return out
}

// ProfileObserver times every operation and records the duration into an ExecTime table keyed
// by backend identity, attached by compiler.NewExecutor when CompilerOptions.HeProfilingMode
// is set and the executor is not Linear.
type ProfileObserver struct {
	table *ExecTime

	mu     sync.Mutex
	begins map[ir.OperationIndex]time.Time
}

// NewProfileObserver returns an observer backed by table (create one with NewExecTime if the
// caller doesn't already have one to share across executors).
func NewProfileObserver(table *ExecTime) *ProfileObserver {
	return &ProfileObserver{table: table, begins: make(map[ir.OperationIndex]time.Time)}
}

// Table returns the ExecTime backing this observer.
func (p *ProfileObserver) Table() *ExecTime { return p.table }

func (p *ProfileObserver) OnBegin(op ir.OperationIndex, backendID ir.BackendID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.begins[op] = time.Now()
}

func (p *ProfileObserver) OnEnd(op ir.OperationIndex, backendID ir.BackendID) {
	p.mu.Lock()
	begin, ok := p.begins[op]
	delete(p.begins, op)
	p.mu.Unlock()
	if !ok {
		return
	}
	p.table.record(backendID, time.Since(begin))
}

func (p *ProfileObserver) OnError(op ir.OperationIndex, backendID ir.BackendID, err error) {
	p.mu.Lock()
	delete(p.begins, op)
	p.mu.Unlock()
}
