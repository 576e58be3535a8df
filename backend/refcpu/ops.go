package refcpu

import (
	"github.com/onegoml/onego/backend"
	"github.com/onegoml/onego/ir"
	"github.com/onegoml/onego/tensor"
)

// binaryFunction applies op elementwise to two equally-shaped float32 tensors.
type binaryFunction struct {
	opIndex ir.OperationIndex
	a, b    tensor.ITensor
	out     bufferSetter
	apply   func(x, y float32) float32
}

func (f *binaryFunction) Run() error {
	av := bytesToFloat32(f.a.Buffer())
	bv := bytesToFloat32(f.b.Buffer())
	if len(av) != len(bv) {
		return newRefError(f.opIndex, "operand element count mismatch: %d vs %d", len(av), len(bv))
	}
	res := make([]float32, len(av))
	for i := range res {
		res[i] = f.apply(av[i], bv[i])
	}
	f.out.SetBuffer(float32ToBytes(res))
	return nil
}

func (c *Context) buildBinary(op *ir.Operation, apply func(x, y float32) float32) (backend.Function, error) {
	if len(op.Inputs()) != 2 || len(op.Outputs()) != 1 {
		return nil, newRefError(op.Index(), "binary op expects 2 inputs and 1 output, got %d/%d", len(op.Inputs()), len(op.Outputs()))
	}
	a, err := c.tensorFor(op, op.Inputs()[0])
	if err != nil {
		return nil, err
	}
	b, err := c.tensorFor(op, op.Inputs()[1])
	if err != nil {
		return nil, err
	}
	out, err := c.nativeOutput(op, op.Outputs()[0])
	if err != nil {
		return nil, err
	}
	return &binaryFunction{opIndex: op.Index(), a: a, b: b, out: out, apply: apply}, nil
}

// reluFunction clamps every element of a float32 tensor to [0, +inf).
type reluFunction struct {
	opIndex ir.OperationIndex
	in      tensor.ITensor
	out     bufferSetter
}

func (f *reluFunction) Run() error {
	vals := bytesToFloat32(f.in.Buffer())
	res := make([]float32, len(vals))
	for i, v := range vals {
		if v > 0 {
			res[i] = v
		}
	}
	f.out.SetBuffer(float32ToBytes(res))
	return nil
}

func (c *Context) buildRelu(op *ir.Operation) (backend.Function, error) {
	if len(op.Inputs()) != 1 || len(op.Outputs()) != 1 {
		return nil, newRefError(op.Index(), "relu expects 1 input and 1 output, got %d/%d", len(op.Inputs()), len(op.Outputs()))
	}
	in, err := c.tensorFor(op, op.Inputs()[0])
	if err != nil {
		return nil, err
	}
	out, err := c.nativeOutput(op, op.Outputs()[0])
	if err != nil {
		return nil, err
	}
	return &reluFunction{opIndex: op.Index(), in: in, out: out}, nil
}

// concatFunction concatenates its inputs' raw buffers along axis 0, which is a valid
// byte-level concatenation for any row-major tensor whose leading axis is the one being
// joined.
type concatFunction struct {
	opIndex ir.OperationIndex
	ins     []tensor.ITensor
	out     bufferSetter
}

func (f *concatFunction) Run() error {
	var total int
	for _, in := range f.ins {
		total += len(in.Buffer())
	}
	out := make([]byte, 0, total)
	for _, in := range f.ins {
		out = append(out, in.Buffer()...)
	}
	f.out.SetBuffer(out)
	return nil
}

func (c *Context) buildConcat(op *ir.Operation) (backend.Function, error) {
	if len(op.Inputs()) < 1 || len(op.Outputs()) != 1 {
		return nil, newRefError(op.Index(), "concat expects at least 1 input and 1 output, got %d/%d", len(op.Inputs()), len(op.Outputs()))
	}
	ins := make([]tensor.ITensor, 0, len(op.Inputs()))
	for _, idx := range op.Inputs() {
		t, err := c.tensorFor(op, idx)
		if err != nil {
			return nil, err
		}
		ins = append(ins, t)
	}
	out, err := c.nativeOutput(op, op.Outputs()[0])
	if err != nil {
		return nil, err
	}
	return &concatFunction{opIndex: op.Index(), ins: ins, out: out}, nil
}

// conv2DFunction implements a naive valid-padding, stride-1, NHWC convolution: input
// [N,H,W,Cin], kernel [KH,KW,Cin,Cout], output [N,H-KH+1,W-KW+1,Cout]. There is no bias term
// and no padding/stride configuration -- good enough to exercise the executor pipeline with a
// real multi-input, shape-changing kernel, not a production convolution.
type conv2DFunction struct {
	opIndex       ir.OperationIndex
	input, kernel tensor.ITensor
	out           bufferSetter
	n, h, w, cin  int
	kh, kw, cout  int
}

func (f *conv2DFunction) Run() error {
	in := bytesToFloat32(f.input.Buffer())
	ker := bytesToFloat32(f.kernel.Buffer())
	oh, ow := f.h-f.kh+1, f.w-f.kw+1
	if oh <= 0 || ow <= 0 {
		return newRefError(f.opIndex, "kernel %dx%d too large for input %dx%d", f.kh, f.kw, f.h, f.w)
	}
	res := make([]float32, f.n*oh*ow*f.cout)
	for n := 0; n < f.n; n++ {
		for oy := 0; oy < oh; oy++ {
			for ox := 0; ox < ow; ox++ {
				for co := 0; co < f.cout; co++ {
					var sum float32
					for ky := 0; ky < f.kh; ky++ {
						for kx := 0; kx < f.kw; kx++ {
							for ci := 0; ci < f.cin; ci++ {
								inIdx := ((n*f.h+oy+ky)*f.w+ox+kx)*f.cin + ci
								kerIdx := ((ky*f.kw+kx)*f.cin+ci)*f.cout + co
								sum += in[inIdx] * ker[kerIdx]
							}
						}
					}
					outIdx := ((n*oh+oy)*ow+ox)*f.cout + co
					res[outIdx] = sum
				}
			}
		}
	}
	f.out.SetBuffer(float32ToBytes(res))
	return nil
}

func (c *Context) buildConv2D(op *ir.Operation) (backend.Function, error) {
	if len(op.Inputs()) != 2 || len(op.Outputs()) != 1 {
		return nil, newRefError(op.Index(), "conv2d expects 2 inputs (input, kernel) and 1 output, got %d/%d", len(op.Inputs()), len(op.Outputs()))
	}
	input, err := c.tensorFor(op, op.Inputs()[0])
	if err != nil {
		return nil, err
	}
	kernel, err := c.tensorFor(op, op.Inputs()[1])
	if err != nil {
		return nil, err
	}
	out, err := c.nativeOutput(op, op.Outputs()[0])
	if err != nil {
		return nil, err
	}
	inShape, kerShape := input.Shape(), kernel.Shape()
	if inShape.Rank() != 4 || kerShape.Rank() != 4 {
		return nil, newRefError(op.Index(), "conv2d requires rank-4 input and kernel, got ranks %d/%d", inShape.Rank(), kerShape.Rank())
	}
	return &conv2DFunction{
		opIndex: op.Index(),
		input:   input,
		kernel:  kernel,
		out:     out,
		n:       inShape.Dim(0),
		h:       inShape.Dim(1),
		w:       inShape.Dim(2),
		cin:     inShape.Dim(3),
		kh:      kerShape.Dim(0),
		kw:      kerShape.Dim(1),
		cout:    kerShape.Dim(3),
	}, nil
}
