package exec

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/onegoml/onego/ir"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// traceEvent is one Chrome Trace Event Format entry (the "ph": "X" complete-event variant),
// the format Chrome's trace viewer and Perfetto both consume directly.
type traceEvent struct {
	Name string  `json:"name"`
	Cat  string  `json:"cat"`
	Ph   string  `json:"ph"`
	Ts   float64 `json:"ts"`
	Dur  float64 `json:"dur"`
	Pid  int     `json:"pid"`
	Tid  string  `json:"tid"`
}

// TracingObserver records a begin/end timestamp pair for every operation and writes the
// accumulated events as a Chrome-style JSON trace file when Close is called. Each run is
// tagged with a fresh uuid, returned by RunID and logged at V(1) on Close; it is not part of
// the file path, which is used as given.
type TracingObserver struct {
	filepath string
	ctx      any
	runID    uuid.UUID
	start    time.Time

	mu      sync.Mutex
	begins  map[ir.OperationIndex]time.Time
	events  []traceEvent
}

// NewTracingObserver returns an observer that will write to filepath once Close is called.
// ctx is an opaque caller-supplied handle (CompilerOptions.TracingCtx), carried through
// unexamined and reported alongside the run id when the trace is closed, for correlating a
// trace file with whatever request or session it came from.
func NewTracingObserver(filepath string, ctx any) *TracingObserver {
	return &TracingObserver{
		filepath: filepath,
		ctx:      ctx,
		runID:    uuid.New(),
		start:    time.Now(),
		begins:   make(map[ir.OperationIndex]time.Time),
	}
}

// RunID identifies this tracing session, useful for correlating with other logs.
func (t *TracingObserver) RunID() uuid.UUID { return t.runID }

// Ctx returns the opaque handle passed to NewTracingObserver, or nil if none was given.
func (t *TracingObserver) Ctx() any { return t.ctx }

func (t *TracingObserver) OnBegin(op ir.OperationIndex, backendID ir.BackendID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.begins[op] = time.Now()
}

func (t *TracingObserver) OnEnd(op ir.OperationIndex, backendID ir.BackendID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	begin, ok := t.begins[op]
	if !ok {
		return
	}
	delete(t.begins, op)
	t.events = append(t.events, traceEvent{
		Name: op.String(),
		Cat:  string(backendID),
		Ph:   "X",
		Ts:   float64(begin.Sub(t.start).Microseconds()),
		Dur:  float64(time.Since(begin).Microseconds()),
		Pid:  1,
		Tid:  string(backendID),
	})
}

func (t *TracingObserver) OnError(op ir.OperationIndex, backendID ir.BackendID, err error) {
	klog.Warningf("tracing: op %s on backend %q failed: %v", op, backendID, err)
}

// Close writes the accumulated events to filepath as a JSON array, the format the Chrome trace
// viewer (chrome://tracing) and Perfetto both accept.
func (t *TracingObserver) Close() error {
	t.mu.Lock()
	events := t.events
	t.mu.Unlock()

	f, err := os.Create(t.filepath)
	if err != nil {
		return errors.Wrapf(err, "tracing: failed to create trace file %q", t.filepath)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	if err := enc.Encode(events); err != nil {
		return errors.Wrapf(err, "tracing: failed to write trace file %q", t.filepath)
	}
	klog.V(1).InfoS("trace written", "path", t.filepath, "runID", t.runID, "ctx", t.ctx, "events", len(events))
	return nil
}
