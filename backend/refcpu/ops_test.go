package refcpu

import (
	"testing"

	"github.com/onegoml/onego/backend"
	"github.com/onegoml/onego/ir"
	"github.com/onegoml/onego/tensor"
	"github.com/onegoml/onego/types/shapes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vecShape(n int) shapes.Shape { return shapes.Make(shapes.Float32, n) }

func newTestContext(t *testing.T, g *ir.Graph) *Context {
	t.Helper()
	be := New("")
	ctx := be.NewContext(backend.ContextData{Graph: g})
	c, ok := ctx.(*Context)
	require.True(t, ok)
	require.NoError(t, c.GenTensors())
	return c
}

func setBuffer(t *testing.T, c *Context, idx ir.OperandIndex, vals []float32) {
	t.Helper()
	it, found := c.registry.GetITensor(idx)
	require.True(t, found)
	nt, ok := it.(*tensor.NativeTensor)
	require.True(t, ok)
	nt.SetBuffer(float32ToBytes(vals))
}

func TestBuildBinary_Add(t *testing.T) {
	g := ir.NewGraph()
	a, b, out := ir.OperandIndex(0), ir.OperandIndex(1), ir.OperandIndex(2)
	addOp := ir.OperationIndex(0)
	g.AddOperand(a, ir.NewOperand(a, vecShape(3)))
	g.AddOperand(b, ir.NewOperand(b, vecShape(3)))
	g.AddOperand(out, ir.NewOperand(out, vecShape(3)))
	g.AddOperation(addOp, ir.NewOperation(addOp, ir.OpAdd, ir.IndexSequence{a, b}, ir.IndexSequence{out}))
	g.Operand(a).AddUse(addOp)
	g.Operand(b).AddUse(addOp)
	g.Operand(out).SetDef(addOp)

	c := newTestContext(t, g)
	setBuffer(t, c, a, []float32{1, 2, 3})
	setBuffer(t, c, b, []float32{10, 20, 30})

	kernels, err := c.GenKernels()
	require.NoError(t, err)
	require.Len(t, kernels, 1)
	require.NoError(t, kernels[0].Sequence[0].Run())

	outTensor, _ := c.registry.GetITensor(out)
	assert.Equal(t, []float32{11, 22, 33}, bytesToFloat32(outTensor.Buffer()))
}

func TestBuildRelu(t *testing.T) {
	g := ir.NewGraph()
	in, out := ir.OperandIndex(0), ir.OperandIndex(1)
	reluOp := ir.OperationIndex(0)
	g.AddOperand(in, ir.NewOperand(in, vecShape(4)))
	g.AddOperand(out, ir.NewOperand(out, vecShape(4)))
	g.AddOperation(reluOp, ir.NewOperation(reluOp, ir.OpRelu, ir.IndexSequence{in}, ir.IndexSequence{out}))
	g.Operand(in).AddUse(reluOp)
	g.Operand(out).SetDef(reluOp)

	c := newTestContext(t, g)
	setBuffer(t, c, in, []float32{-1, 0, 1, 2})

	kernels, err := c.GenKernels()
	require.NoError(t, err)
	require.NoError(t, kernels[0].Sequence[0].Run())

	outTensor, _ := c.registry.GetITensor(out)
	assert.Equal(t, []float32{0, 0, 1, 2}, bytesToFloat32(outTensor.Buffer()))
}

func TestBuildConcat(t *testing.T) {
	g := ir.NewGraph()
	a, b, out := ir.OperandIndex(0), ir.OperandIndex(1), ir.OperandIndex(2)
	concatOp := ir.OperationIndex(0)
	g.AddOperand(a, ir.NewOperand(a, vecShape(2)))
	g.AddOperand(b, ir.NewOperand(b, vecShape(2)))
	g.AddOperand(out, ir.NewOperand(out, vecShape(4)))
	g.AddOperation(concatOp, ir.NewOperation(concatOp, ir.OpConcat, ir.IndexSequence{a, b}, ir.IndexSequence{out}))
	g.Operand(a).AddUse(concatOp)
	g.Operand(b).AddUse(concatOp)
	g.Operand(out).SetDef(concatOp)

	c := newTestContext(t, g)
	setBuffer(t, c, a, []float32{1, 2})
	setBuffer(t, c, b, []float32{3, 4})

	kernels, err := c.GenKernels()
	require.NoError(t, err)
	require.NoError(t, kernels[0].Sequence[0].Run())

	outTensor, _ := c.registry.GetITensor(out)
	assert.Equal(t, []float32{1, 2, 3, 4}, bytesToFloat32(outTensor.Buffer()))
}

func TestBuildConv2D_ValidPadding(t *testing.T) {
	g := ir.NewGraph()
	input, kernel, out := ir.OperandIndex(0), ir.OperandIndex(1), ir.OperandIndex(2)
	convOp := ir.OperationIndex(0)
	inShape := shapes.Make(shapes.Float32, 1, 3, 3, 1)
	kerShape := shapes.Make(shapes.Float32, 2, 2, 1, 1)
	outShape := shapes.Make(shapes.Float32, 1, 2, 2, 1)
	g.AddOperand(input, ir.NewOperand(input, inShape))
	g.AddOperand(kernel, ir.NewOperand(kernel, kerShape))
	g.AddOperand(out, ir.NewOperand(out, outShape))
	g.AddOperation(convOp, ir.NewOperation(convOp, ir.OpConv2D, ir.IndexSequence{input, kernel}, ir.IndexSequence{out}))
	g.Operand(input).AddUse(convOp)
	g.Operand(kernel).AddUse(convOp)
	g.Operand(out).SetDef(convOp)

	c := newTestContext(t, g)
	setBuffer(t, c, input, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9})
	setBuffer(t, c, kernel, []float32{1, 0, 0, 1})

	kernels, err := c.GenKernels()
	require.NoError(t, err)
	require.NoError(t, kernels[0].Sequence[0].Run())

	outTensor, _ := c.registry.GetITensor(out)
	// identity-like kernel [[1,0],[0,1]] over a 3x3 input sums the two diagonal taps.
	assert.Equal(t, []float32{6, 8, 12, 14}, bytesToFloat32(outTensor.Buffer()))
}

func TestBuildKernel_UnsupportedOpKind(t *testing.T) {
	g := ir.NewGraph()
	a := ir.OperandIndex(0)
	permOp := ir.OperationIndex(0)
	g.AddOperand(a, ir.NewOperand(a, vecShape(2)))
	g.AddOperation(permOp, ir.NewOperation(permOp, ir.OpPermute, ir.IndexSequence{a}, ir.IndexSequence{a}))

	c := newTestContext(t, g)
	_, err := c.GenKernels()
	assert.Error(t, err)
}
