package compiler

import (
	"sync"
	"testing"

	"github.com/onegoml/onego/backend"
	"github.com/onegoml/onego/ir"
	"github.com/onegoml/onego/tensor"
	"github.com/onegoml/onego/types/shapes"
)

// testShape is the shape used throughout compiler tests: a small float32 vector, big enough to
// exercise buffer allocation and comparison without any test needing to care about its values.
func testShape() shapes.Shape { return shapes.Make(shapes.Float32, 4) }

// traceRecorder is a thread-safe append-only log of operation indices, used across compiler
// package tests to assert execution order without depending on the exec package's internals.
type traceRecorder struct {
	mu    sync.Mutex
	trace []ir.OperationIndex
}

func (r *traceRecorder) record(op ir.OperationIndex) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trace = append(r.trace, op)
}

func (r *traceRecorder) snapshot() []ir.OperationIndex {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ir.OperationIndex, len(r.trace))
	copy(out, r.trace)
	return out
}

// fakeFn is a minimal backend.Function used in place of a real kernel: it records that it ran.
type fakeFn struct {
	op  ir.OperationIndex
	rec *traceRecorder
	err error
}

func (f *fakeFn) Run() error {
	if f.err != nil {
		return f.err
	}
	if f.rec != nil {
		f.rec.record(f.op)
	}
	return nil
}

type fakeConfig struct {
	id        ir.BackendID
	syncCount int
}

func (c *fakeConfig) ID() string { return string(c.id) }
func (c *fakeConfig) Sync()      { c.syncCount++ }

// fakeContext is a minimal backend.BackendContext: it allocates a NativeTensor for every
// operand its partial graph produces (i.e. every operand not in ExternalOperands) and returns
// one no-op-but-recording kernel per operation in its OpOrder.
type fakeContext struct {
	id   ir.BackendID
	cfg  *fakeConfig
	data backend.ContextData
	reg  *tensor.Registry
	rec  *traceRecorder

	kernelFail map[ir.OperationIndex]error
}

func (c *fakeContext) Config() backend.Config              { return c.cfg }
func (c *fakeContext) TensorRegistry() *tensor.Registry    { return c.reg }

func (c *fakeContext) GenTensors() error {
	external := make(map[ir.OperandIndex]bool, len(c.data.ExternalOperands))
	for _, idx := range c.data.ExternalOperands {
		external[idx] = true
	}
	for _, idx := range c.data.Graph.SortedOperandIndices() {
		if external[idx] {
			continue
		}
		if _, found := c.reg.GetITensor(idx); found {
			continue // already an IOTensor compiler.WireTensors aliased in
		}
		operand := c.data.Graph.Operand(idx)
		nt := tensor.NewNativeTensor(idx, operand.Shape(), c.id, !operand.IsConstant(), true)
		c.reg.SetNativeTensor(idx, nt)
	}
	return nil
}

func (c *fakeContext) GenKernels() ([]backend.KernelEntry, error) {
	order := c.data.OpOrder
	if len(order) == 0 {
		order = c.data.Graph.SortedOperationIndices()
	}
	entries := make([]backend.KernelEntry, 0, len(order))
	for _, opIdx := range order {
		entries = append(entries, backend.KernelEntry{
			OpIndex:  opIdx,
			Sequence: backend.FunctionSequence{&fakeFn{op: opIdx, rec: c.rec, err: c.kernelFail[opIdx]}},
		})
	}
	return entries, nil
}

type fakeBackend struct {
	cfg        *fakeConfig
	rec        *traceRecorder
	kernelFail map[ir.OperationIndex]error
}

func (b *fakeBackend) ID() string { return b.cfg.ID() }
func (b *fakeBackend) Sync()      { b.cfg.Sync() }

func (b *fakeBackend) NewContext(data backend.ContextData) backend.BackendContext {
	return &fakeContext{
		id:         b.cfg.id,
		cfg:        b.cfg,
		data:       data,
		reg:        tensor.NewRegistry(b.cfg.id),
		rec:        b.rec,
		kernelFail: b.kernelFail,
	}
}

func newFakeBackend(id ir.BackendID, rec *traceRecorder) *fakeBackend {
	return &fakeBackend{cfg: &fakeConfig{id: id}, rec: rec}
}

// buildCrossBackendGraph builds In(a, builtin) -> Add(a,a)=b (refcpu) -> Out(b), with a's
// def_factor assigned to the builtin backend (matching the boundary-tensor convention: an
// operand with no producing op is owned by whichever backend materializes its IOTensor) and
// b's def_factor assigned to refcpu (its actual producer).
func buildCrossBackendGraph(t *testing.T) (*ir.LoweredGraph, ir.OperandIndex, ir.OperandIndex, ir.OperationIndex) {
	t.Helper()
	g := ir.NewGraph()
	a := ir.OperandIndex(0)
	b := ir.OperandIndex(1)
	addOp := ir.OperationIndex(0)

	g.AddOperand(a, ir.NewOperand(a, testShape()))
	g.AddOperand(b, ir.NewOperand(b, testShape()))
	op := ir.NewOperation(addOp, ir.OpAdd, ir.IndexSequence{a, a}, ir.IndexSequence{b})
	g.AddOperation(addOp, op)
	g.Operand(a).AddUse(addOp)
	g.Operand(b).SetDef(addOp)
	g.AddInput(a)
	g.AddOutput(b)

	lg := ir.NewLoweredGraph(g)
	lg.SetOperandBackend(a, ir.DefFactor{Backend: ir.BuiltinBackendID, Layout: ir.LayoutNHWC})
	lg.SetOperandBackend(b, ir.DefFactor{Backend: "refcpu", Layout: ir.LayoutNHWC})
	lg.SetOperationBackend(addOp, "refcpu")

	return lg, a, b, addOp
}
