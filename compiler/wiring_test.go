package compiler

import (
	"testing"

	"github.com/onegoml/onego/backend"
	"github.com/onegoml/onego/ir"
	"github.com/onegoml/onego/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWireTensors_InstallsBoundaryAndMigrants(t *testing.T) {
	lg, a, b, _ := buildCrossBackendGraph(t)

	partials, err := Partition(lg)
	require.NoError(t, err)

	backends := map[ir.BackendID]backend.Backend{
		ir.BuiltinBackendID: newFakeBackend(ir.BuiltinBackendID, nil),
		"refcpu":            newFakeBackend("refcpu", nil),
	}
	contexts, err := NewBackendContexts(partials, backends, true, nil)
	require.NoError(t, err)

	err = WireTensors(lg, contexts)
	require.NoError(t, err)

	builtinReg := contexts[ir.BuiltinBackendID].TensorRegistry()
	refReg := contexts["refcpu"].TensorRegistry()

	// T2: every whole-graph boundary index has an IOTensor in the builtin registry.
	aTensor, found := builtinReg.GetITensor(a)
	require.True(t, found)
	assert.IsType(t, &tensor.IOTensor{}, aTensor)

	bTensor, found := builtinReg.GetITensor(b)
	require.True(t, found)

	// refcpu references a but doesn't produce it, so it should have a migrant alias.
	migrated, found := refReg.GetITensor(a)
	require.True(t, found, "refcpu must have a migrant tensor for the external operand a")
	assert.Equal(t, a, migrated.OperandIndex())

	// b is a whole-graph output that refcpu itself produces: WireTensors aliases the same
	// IOTensor the builtin registry holds into refcpu's registry too, rather than leaving
	// refcpu to allocate a disconnected NativeTensor a caller's GetOutput would never see.
	native, found := refReg.GetITensor(b)
	require.True(t, found)
	assert.Equal(t, b, native.OperandIndex())
	assert.Same(t, bTensor, native)
}

func TestWireTensors_MissingBuiltinContext(t *testing.T) {
	lg, _, _, _ := buildCrossBackendGraph(t)
	partials, err := Partition(lg)
	require.NoError(t, err)

	backends := map[ir.BackendID]backend.Backend{
		"refcpu": newFakeBackend("refcpu", nil),
	}
	// Drop the builtin partial entirely so NewBackendContexts only builds one context.
	delete(partials, ir.BuiltinBackendID)
	contexts, err := NewBackendContexts(partials, backends, true, nil)
	require.NoError(t, err)

	err = WireTensors(lg, contexts)
	assert.Error(t, err)
}
