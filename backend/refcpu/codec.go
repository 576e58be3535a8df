package refcpu

import (
	"encoding/binary"
	"math"
)

// bytesToFloat32 reinterprets buf as a little-endian float32 slice. Every refcpu kernel
// assumes Float32 operands; a real backend would dispatch per DType the way the teacher's
// simplego execution kernels do (backends/simplego/dtypes_generics.go), which is out of scope
// for a reference backend whose only job is to exercise the executor pipeline.
func bytesToFloat32(buf []byte) []float32 {
	out := make([]float32, len(buf)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out
}

func float32ToBytes(vals []float32) []byte {
	out := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}
