package ir

import (
	"testing"

	"github.com/onegoml/onego/types/shapes"
	"github.com/stretchr/testify/require"
)

// buildChain builds In(A) -> Add(A,A) -> Out(B), returning the graph and the indices.
func buildChain(t *testing.T) (g *Graph, a, b OperandIndex, addOp OperationIndex) {
	t.Helper()
	g = NewGraph()
	a = OperandIndex(0)
	b = OperandIndex(1)
	addOp = OperationIndex(0)

	opA := NewOperand(a, shapes.Make(shapes.Float32, 4))
	opB := NewOperand(b, shapes.Make(shapes.Float32, 4))
	g.AddOperand(a, opA)
	g.AddOperand(b, opB)

	op := NewOperation(addOp, OpAdd, IndexSequence{a, a}, IndexSequence{b})
	g.AddOperation(addOp, op)
	opA.AddUse(addOp)
	opB.SetDef(addOp)

	g.AddInput(a)
	g.AddOutput(b)
	return
}

func TestGraph_TopologicalOrder(t *testing.T) {
	g, _, _, addOp := buildChain(t)
	order := g.TopologicalOrder()
	require.Equal(t, []OperationIndex{addOp}, order)
}

func TestGraph_TopologicalOrder_Diamond(t *testing.T) {
	g := NewGraph()
	in := OperandIndex(0)
	left := OperandIndex(1)
	right := OperandIndex(2)
	out := OperandIndex(3)

	g.AddOperand(in, NewOperand(in, shapes.Make(shapes.Float32, 2)))
	g.AddOperand(left, NewOperand(left, shapes.Make(shapes.Float32, 2)))
	g.AddOperand(right, NewOperand(right, shapes.Make(shapes.Float32, 2)))
	g.AddOperand(out, NewOperand(out, shapes.Make(shapes.Float32, 2)))

	branch1 := OperationIndex(0)
	branch2 := OperationIndex(1)
	concat := OperationIndex(2)

	g.AddOperation(branch1, NewOperation(branch1, OpRelu, IndexSequence{in}, IndexSequence{left}))
	g.AddOperation(branch2, NewOperation(branch2, OpRelu, IndexSequence{in}, IndexSequence{right}))
	g.AddOperation(concat, NewOperation(concat, OpConcat, IndexSequence{left, right}, IndexSequence{out}))
	g.Operand(left).SetDef(branch1)
	g.Operand(right).SetDef(branch2)

	g.AddInput(in)
	g.AddOutput(out)

	order := g.TopologicalOrder()
	require.Len(t, order, 3)
	require.Equal(t, concat, order[2])
	require.ElementsMatch(t, []OperationIndex{branch1, branch2}, order[:2])
}

func TestOperand_CloneClearsDefUse(t *testing.T) {
	g, a, _, addOp := buildChain(t)
	clone := g.Operand(a).Clone()
	require.Equal(t, a, clone.Index())
	require.False(t, clone.Def().Valid())
	require.Empty(t, clone.Uses())
	require.NotContains(t, clone.Uses(), addOp)
}
