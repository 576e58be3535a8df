package compiler

import (
	"testing"

	"github.com/onegoml/onego/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartition_SplitsByBackend(t *testing.T) {
	lg, a, b, addOp := buildCrossBackendGraph(t)

	partials, err := Partition(lg)
	require.NoError(t, err)
	require.Len(t, partials, 2)

	builtin, ok := partials[ir.BuiltinBackendID]
	require.True(t, ok, "builtin backend should own a's producing partial")
	refcpu, ok := partials["refcpu"]
	require.True(t, ok, "refcpu backend should own the Add operation")

	// P1: index preservation. Operand a keeps index 0 wherever it's copied.
	assert.True(t, builtin.Graph.HasOperand(a))
	assert.True(t, refcpu.Graph.HasOperand(a), "a is external to refcpu but must still be present")
	assert.True(t, refcpu.Graph.HasOperand(b))
	assert.True(t, refcpu.Graph.HasOperation(addOp))
	assert.False(t, builtin.Graph.HasOperation(addOp), "builtin owns no operations here")

	// a is external to refcpu's partial since refcpu doesn't produce it.
	assert.Contains(t, refcpu.ExternalOperands, a)
	assert.NotContains(t, refcpu.ExternalOperands, b)

	// P2: topological restriction. refcpu's OpOrder contains exactly its own operation.
	assert.Equal(t, []ir.OperationIndex{addOp}, refcpu.OpOrder)
	assert.Empty(t, builtin.OpOrder)

	// Layouts: refcpu's OperandLayouts covers both the external a and its own b.
	assert.Contains(t, refcpu.OperandLayouts, a)
	assert.Contains(t, refcpu.OperandLayouts, b)
}

func TestPartition_ViolatesL1(t *testing.T) {
	g := ir.NewGraph()
	a := ir.OperandIndex(0)
	g.AddOperand(a, ir.NewOperand(a, testShape()))
	g.AddInput(a)
	g.AddOutput(a)
	lg := ir.NewLoweredGraph(g)
	// Never call SetOperandBackend for a: L1 is violated.

	_, err := Partition(lg)
	require.Error(t, err)
}

func TestPartition_SingleBackendWholeGraph(t *testing.T) {
	g := ir.NewGraph()
	a := ir.OperandIndex(0)
	b := ir.OperandIndex(1)
	reluOp := ir.OperationIndex(0)
	g.AddOperand(a, ir.NewOperand(a, testShape()))
	g.AddOperand(b, ir.NewOperand(b, testShape()))
	op := ir.NewOperation(reluOp, ir.OpRelu, ir.IndexSequence{a}, ir.IndexSequence{b})
	g.AddOperation(reluOp, op)
	g.Operand(a).AddUse(reluOp)
	g.Operand(b).SetDef(reluOp)
	g.AddInput(a)
	g.AddOutput(b)

	lg := ir.NewLoweredGraph(g)
	lg.SetOperandBackend(a, ir.DefFactor{Backend: "refcpu", Layout: ir.LayoutNHWC})
	lg.SetOperandBackend(b, ir.DefFactor{Backend: "refcpu", Layout: ir.LayoutNHWC})
	lg.SetOperationBackend(reluOp, "refcpu")

	partials, err := Partition(lg)
	require.NoError(t, err)
	require.Len(t, partials, 1)

	refcpu := partials["refcpu"]
	assert.Empty(t, refcpu.ExternalOperands, "single-backend graph has no external operands at all")
	assert.Equal(t, ir.IndexSequence{a}, refcpu.Graph.Inputs())
	assert.Equal(t, ir.IndexSequence{b}, refcpu.Graph.Outputs())
}
