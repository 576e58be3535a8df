package tensor

import (
	"testing"

	"github.com/onegoml/onego/ir"
	"github.com/onegoml/onego/types/shapes"
	"github.com/stretchr/testify/require"
)

func TestRegistry_SetAndGet(t *testing.T) {
	reg := NewRegistry("refcpu")
	nt := NewNativeTensor(ir.OperandIndex(0), shapes.Make(shapes.Float32, 3), "refcpu", false, true)
	reg.SetNativeTensor(nt.OperandIndex(), nt)

	got, found := reg.GetITensor(ir.OperandIndex(0))
	require.True(t, found)
	require.Same(t, ITensor(nt), got)

	_, found = reg.GetITensor(ir.OperandIndex(99))
	require.False(t, found)
}

func TestRegistry_SetNativeIOTensor(t *testing.T) {
	reg := NewRegistry("builtin")
	require.Equal(t, 0, reg.Len())
	iot := NewIOTensor(ir.OperandIndex(0), shapes.Make(shapes.Float32, 2), ir.LayoutNHWC)
	reg.SetNativeIOTensor(iot.OperandIndex(), iot)
	require.Equal(t, 1, reg.Len())
	require.Contains(t, reg.Indices(), ir.OperandIndex(0))
}
