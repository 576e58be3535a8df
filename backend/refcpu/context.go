package refcpu

import (
	"github.com/onegoml/onego/backend"
	"github.com/onegoml/onego/ir"
	"github.com/onegoml/onego/tensor"
)

// Context is refcpu's per-graph BackendContext.
type Context struct {
	data     backend.ContextData
	registry *tensor.Registry
}

func newContext(data backend.ContextData) *Context {
	return &Context{
		data:     data,
		registry: tensor.NewRegistry(BackendID),
	}
}

func (c *Context) Config() backend.Config           { return Config{} }
func (c *Context) TensorRegistry() *tensor.Registry { return c.registry }

// GenTensors allocates a NativeTensor for every operand this partial graph produces (every
// operand present in the graph that isn't external), skipping any index already installed --
// compiler.WireTensors pre-installs an IOTensor here when this backend produces one of the
// whole graph's own boundary operands, and that IOTensor is what a caller's GetOutput reads.
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
			continue
		}
		operand := c.data.Graph.Operand(idx)
		nt := tensor.NewNativeTensor(idx, operand.Shape(), BackendID, !operand.IsConstant(), true)
		c.registry.SetNativeTensor(idx, nt)
	}
	return nil
}

// GenKernels dispatches each operation in this partial graph to the arithmetic kernel builder
// for its OpKind.
func (c *Context) GenKernels() ([]backend.KernelEntry, error) {
	order := c.data.OpOrder
	if len(order) == 0 {
		order = c.data.Graph.SortedOperationIndices()
	}
	entries := make([]backend.KernelEntry, 0, len(order))
	for _, opIdx := range order {
		op := c.data.Graph.Operation(opIdx)
		fn, err := c.buildKernel(op)
		if err != nil {
			return nil, err
		}
		entries = append(entries, backend.KernelEntry{OpIndex: opIdx, Sequence: backend.FunctionSequence{fn}})
	}
	return entries, nil
}

func (c *Context) buildKernel(op *ir.Operation) (backend.Function, error) {
	switch op.Kind() {
	case ir.OpAdd:
		return c.buildBinary(op, func(x, y float32) float32 { return x + y })
	case ir.OpMul:
		return c.buildBinary(op, func(x, y float32) float32 { return x * y })
	case ir.OpRelu:
		return c.buildRelu(op)
	case ir.OpConcat:
		return c.buildConcat(op)
	case ir.OpConv2D:
		return c.buildConv2D(op)
	default:
		return nil, newRefError(op.Index(), "refcpu has no kernel for op kind %s", op.Kind())
	}
}

func (c *Context) tensorFor(op *ir.Operation, idx ir.OperandIndex) (tensor.ITensor, error) {
	t, found := c.registry.GetITensor(idx)
	if !found {
		return nil, newRefError(op.Index(), "no tensor for operand %s", idx)
	}
	return t, nil
}

// bufferSetter is satisfied by both NativeTensor and IOTensor. An op's output is a
// NativeTensor for an ordinary intermediate, or an IOTensor when the operand is itself one of
// the whole graph's own boundary outputs and compiler.WireTensors aliased it into this
// backend's registry.
type bufferSetter interface {
	SetBuffer([]byte)
}

func (c *Context) nativeOutput(op *ir.Operation, idx ir.OperandIndex) (bufferSetter, error) {
	t, err := c.tensorFor(op, idx)
	if err != nil {
		return nil, err
	}
	bs, ok := t.(bufferSetter)
	if !ok {
		return nil, newRefError(op.Index(), "output operand %s does not support direct buffer writes", idx)
	}
	return bs, nil
}

var _ backend.BackendContext = (*Context)(nil)
