package exec

import (
	"testing"

	"github.com/onegoml/onego/backend"
	"github.com/onegoml/onego/ir"
	"github.com/onegoml/onego/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataflowExecutor_RespectsDependencies(t *testing.T) {
	lg, codeMap, trace, _ := buildDiamond(t)

	registries := map[ir.BackendID]*tensor.Registry{"cpu": tensor.NewRegistry("cpu")}
	e := NewDataflowExecutor(lg, map[ir.BackendID]backend.BackendContext{}, registries, "cpu", codeMap)
	require.NoError(t, e.Run())

	require.Len(t, *trace, 3)
	position := make(map[ir.OperationIndex]int)
	for i, op := range *trace {
		position[op] = i
	}
	require.Less(t, position[ir.OperationIndex(0)], position[ir.OperationIndex(2)])
	require.Less(t, position[ir.OperationIndex(1)], position[ir.OperationIndex(2)])
}

func TestDataflowExecutor_PropagatesFailure(t *testing.T) {
	lg, codeMap, _, mu := buildDiamond(t)
	codeMap[ir.OperationIndex(0)] = FunctionSequence{&recordingFn{opIndex: 0, mu: mu, trace: &[]ir.OperationIndex{}, failure: assert.AnError}}

	registries := map[ir.BackendID]*tensor.Registry{"cpu": tensor.NewRegistry("cpu")}
	e := NewDataflowExecutor(lg, map[ir.BackendID]backend.BackendContext{}, registries, "cpu", codeMap)
	require.Error(t, e.Run())
}
