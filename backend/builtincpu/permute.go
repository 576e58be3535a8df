package builtincpu

import (
	"github.com/onegoml/onego/backend"
	"github.com/onegoml/onego/ir"
	"github.com/onegoml/onego/tensor"
)

// permuteFunction converts a rank-4 tensor between the two layouts this module knows about
// (NHWC, NCHW), or copies the buffer verbatim when no conversion is needed or possible.
type permuteFunction struct {
	op                   ir.OperationIndex
	src                  tensor.ITensor
	dst                  writableTensor
	srcLayout, dstLayout ir.Layout
}

func (f *permuteFunction) Run() error {
	data := f.src.Buffer()
	if f.srcLayout == f.dstLayout || f.srcLayout == ir.LayoutUnknown || f.dstLayout == ir.LayoutUnknown || f.dst.Shape().Rank() != 4 {
		out := make([]byte, len(data))
		copy(out, data)
		f.dst.SetBuffer(out)
		return nil
	}

	dims := f.dst.Shape().Dimensions // destination's own dimensions are already in dstLayout order
	elemSize := int(f.dst.Shape().DType.Memory())
	out := make([]byte, len(data))

	// dstDims describes the output axis order; srcDims is the same four sizes reordered back
	// to what the source buffer is laid out as.
	var srcDims [4]int
	if f.srcLayout == ir.LayoutNHWC && f.dstLayout == ir.LayoutNCHW {
		// dst is [N, C, H, W]; src is [N, H, W, C].
		srcDims = [4]int{dims[0], dims[2], dims[3], dims[1]}
	} else if f.srcLayout == ir.LayoutNCHW && f.dstLayout == ir.LayoutNHWC {
		// dst is [N, H, W, C]; src is [N, C, H, W].
		srcDims = [4]int{dims[0], dims[3], dims[1], dims[2]}
	} else {
		out = append(out[:0], data...)
		f.dst.SetBuffer(out)
		return nil
	}

	srcStrides := elementStrides(srcDims)
	for n := 0; n < dims[0]; n++ {
		for i := 0; i < dims[1]; i++ {
			for j := 0; j < dims[2]; j++ {
				for k := 0; k < dims[3]; k++ {
					dstIdx := ((n*dims[1]+i)*dims[2]+j)*dims[3] + k
					var srcIdx int
					if f.srcLayout == ir.LayoutNHWC {
						// dst axes are (n, c=i, h=j, w=k); src axes are (n, h, w, c).
						srcIdx = n*srcStrides[0] + j*srcStrides[1] + k*srcStrides[2] + i*srcStrides[3]
					} else {
						// dst axes are (n, h=i, w=j, c=k); src axes are (n, c, h, w).
						srcIdx = n*srcStrides[0] + k*srcStrides[1] + i*srcStrides[2] + j*srcStrides[3]
					}
					copy(out[dstIdx*elemSize:(dstIdx+1)*elemSize], data[srcIdx*elemSize:(srcIdx+1)*elemSize])
				}
			}
		}
	}
	f.dst.SetBuffer(out)
	return nil
}

func elementStrides(dims [4]int) [4]int {
	return [4]int{
		dims[1] * dims[2] * dims[3],
		dims[2] * dims[3],
		dims[3],
		1,
	}
}

func (c *Context) buildPermute(op *ir.Operation) (backend.Function, error) {
	if len(op.Inputs()) != 1 || len(op.Outputs()) != 1 {
		return nil, newBuiltinError(op.Index(), "permute expects exactly one input and one output, got %d/%d", len(op.Inputs()), len(op.Outputs()))
	}
	srcIdx, dstIdx := op.Inputs()[0], op.Outputs()[0]

	src, found := c.registry.GetITensor(srcIdx)
	if !found {
		return nil, newBuiltinError(op.Index(), "no source tensor for permute input %s", srcIdx)
	}
	dstAny, found := c.registry.GetITensor(dstIdx)
	if !found {
		return nil, newBuiltinError(op.Index(), "no destination tensor for permute output %s", dstIdx)
	}
	dst, ok := dstAny.(writableTensor)
	if !ok {
		return nil, newBuiltinError(op.Index(), "permute output %s does not support direct buffer writes", dstIdx)
	}

	return &permuteFunction{
		op:        op.Index(),
		src:       src,
		dst:       dst,
		srcLayout: c.data.OperandLayouts[srcIdx],
		dstLayout: c.data.OperandLayouts[dstIdx],
	}, nil
}
