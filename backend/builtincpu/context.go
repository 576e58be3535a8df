package builtincpu

import (
	"github.com/onegoml/onego/backend"
	"github.com/onegoml/onego/exec"
	"github.com/onegoml/onego/ir"
	"github.com/onegoml/onego/tensor"
)

// Context is the builtin backend's per-graph BackendContext. Its TensorRegistry is the one
// compiler.WireTensors installs every whole-graph boundary IOTensor into, before this
// context's own GenTensors ever runs.
type Context struct {
	data     backend.ContextData
	registry *tensor.Registry

	// execMap resolves control-flow subgraph identifiers to their compiled executors. It is
	// non-nil only when data.CustomKernelBuilder is an *exec.ExecutorMap, which the caller
	// supplies exactly when this graph has If/While ops; a graph with neither leaves it nil
	// and GenKernels never needs to consult it.
	execMap *exec.ExecutorMap
}

func newContext(data backend.ContextData) *Context {
	ctx := &Context{
		data:     data,
		registry: tensor.NewRegistry(ir.BuiltinBackendID),
	}
	if em, ok := data.CustomKernelBuilder.(*exec.ExecutorMap); ok {
		ctx.execMap = em
	}
	return ctx
}

func (c *Context) Config() backend.Config           { return Config{} }
func (c *Context) TensorRegistry() *tensor.Registry { return c.registry }

// GenTensors allocates a NativeTensor for every operand this partial graph produces that
// isn't already an IOTensor (compiler.WireTensors installs those ahead of this call for every
// whole-graph boundary index). Permute and If/While outputs land here.
func (c *Context) GenTensors() error {
	external := make(map[ir.OperandIndex]bool, len(c.data.ExternalOperands))
	for _, idx := range c.data.ExternalOperands {
		external[idx] = true
	}
	for _, idx := range c.data.Graph.SortedOperandIndices() {
		if external[idx] {
			continue
		}
		if _, found := c.registry.GetITensor(idx); found {
			continue // already an IOTensor
		}
		operand := c.data.Graph.Operand(idx)
		nt := tensor.NewNativeTensor(idx, operand.Shape(), ir.BuiltinBackendID, !operand.IsConstant(), true)
		c.registry.SetNativeTensor(idx, nt)
	}
	return nil
}

// GenKernels dispatches each of this partial graph's operations to the kernel builder for its
// OpKind. Only OpPermute, OpIf and OpWhile are legal here; any other kind assigned to the
// builtin backend is a misconfigured LoweredGraph.
func (c *Context) GenKernels() ([]backend.KernelEntry, error) {
	order := c.data.OpOrder
	if len(order) == 0 {
		order = sortedOps(c.data.Graph)
	}
	entries := make([]backend.KernelEntry, 0, len(order))
	for _, opIdx := range order {
		op := c.data.Graph.Operation(opIdx)
		var fn backend.Function
		var err error
		switch op.Kind() {
		case ir.OpPermute:
			fn, err = c.buildPermute(op)
		case ir.OpIf:
			fn, err = c.buildIf(op)
		case ir.OpWhile:
			fn, err = c.buildWhile(op)
		default:
			err = newBuiltinError(opIdx, "builtin backend cannot generate a kernel for op kind %s", op.Kind())
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, backend.KernelEntry{OpIndex: opIdx, Sequence: backend.FunctionSequence{fn}})
	}
	return entries, nil
}

func sortedOps(g *ir.Graph) []ir.OperationIndex {
	return g.SortedOperationIndices()
}

// writableTensor is satisfied by both NativeTensor and IOTensor. A kernel's output operand is
// a NativeTensor for an ordinary intermediate, or an IOTensor when the operand is itself one of
// the whole graph's own boundary inputs/outputs.
type writableTensor interface {
	tensor.ITensor
	SetBuffer([]byte)
}

var _ backend.BackendContext = (*Context)(nil)
