package builtincpu

import (
	"github.com/onegoml/onego/backend"
	"github.com/onegoml/onego/exec"
	"github.com/onegoml/onego/ir"
	"github.com/onegoml/onego/tensor"
)

// maxWhileIterations bounds an OpWhile kernel's loop so a graph with a condition that never
// clears can't hang an executor forever; a real lowering stage is expected to have already
// proven termination, but this backend has no way to check that itself.
const maxWhileIterations = 10000

// truthy interprets a condition tensor's buffer as a boolean: any nonzero byte is true. This
// mirrors how a lowered graph's cond operand is expected to be a single Bool or Int32 scalar.
func truthy(buf []byte) bool {
	for _, b := range buf {
		if b != 0 {
			return true
		}
	}
	return false
}

// copySubgraphOutputs reads sub's declared outputs, in order, and writes each one into the
// corresponding entry of dsts (the parent op's own output tensors, in the same order). A
// parent output can be either a NativeTensor (an ordinary intermediate the builtin backend
// allocated) or an IOTensor (the op's output is itself one of the whole graph's own outputs).
func copySubgraphOutputs(op ir.OperationIndex, sub exec.IExecutor, dsts []tensor.ITensor) error {
	subOutputs := sub.Graph().Outputs()
	for i, dst := range dsts {
		if i >= len(subOutputs) {
			break
		}
		data, err := sub.GetOutput(subOutputs[i])
		if err != nil {
			return err
		}
		bs, ok := dst.(writableTensor)
		if !ok {
			return newBuiltinError(op, "subgraph output destination does not support direct buffer writes")
		}
		bs.SetBuffer(data)
	}
	return nil
}

// ifFunction implements OpIf: read cond, dispatch into whichever of the two subgraph
// executors the lowering stage compiled for the taken branch, then copy its outputs back into
// this op's own output tensors.
type ifFunction struct {
	op                ir.OperationIndex
	cond              tensor.ITensor
	thenID, elseID    string
	execMap           *exec.ExecutorMap
	outputs           []tensor.ITensor
}

func (f *ifFunction) Run() error {
	branch := f.thenID
	if !truthy(f.cond.Buffer()) {
		branch = f.elseID
	}
	sub := f.execMap.Get(branch)
	if sub == nil {
		return newBuiltinError(f.op, "no executor installed for subgraph %q", branch)
	}
	if err := sub.Run(); err != nil {
		return err
	}
	return copySubgraphOutputs(f.op, sub, f.outputs)
}

func (c *Context) buildIf(op *ir.Operation) (backend.Function, error) {
	if c.execMap == nil {
		return nil, newBuiltinError(op.Index(), "op requires an ExecutorMap but none was supplied as CustomKernelBuilder")
	}
	if len(op.Subgraphs()) != 2 {
		return nil, newBuiltinError(op.Index(), "if expects exactly two subgraphs (then, else), got %d", len(op.Subgraphs()))
	}
	if len(op.Inputs()) < 1 {
		return nil, newBuiltinError(op.Index(), "if expects a condition input")
	}
	cond, found := c.registry.GetITensor(op.Inputs()[0])
	if !found {
		return nil, newBuiltinError(op.Index(), "no condition tensor for operand %s", op.Inputs()[0])
	}
	outputs := make([]tensor.ITensor, 0, len(op.Outputs()))
	for _, idx := range op.Outputs() {
		t, found := c.registry.GetITensor(idx)
		if !found {
			return nil, newBuiltinError(op.Index(), "no output tensor for operand %s", idx)
		}
		outputs = append(outputs, t)
	}
	return &ifFunction{
		op:      op.Index(),
		cond:    cond,
		thenID:  op.Subgraphs()[0],
		elseID:  op.Subgraphs()[1],
		execMap: c.execMap,
		outputs: outputs,
	}, nil
}

// whileFunction implements OpWhile: repeatedly run the body subgraph, re-reading its own
// declared cond output (assumed to be the body's first output) to decide whether to loop
// again, then copying every output of the body, in order and cond output included, into this
// op's own output tensors after the final iteration.
type whileFunction struct {
	op      ir.OperationIndex
	bodyID  string
	execMap *exec.ExecutorMap
	outputs []tensor.ITensor
}

func (f *whileFunction) Run() error {
	sub := f.execMap.Get(f.bodyID)
	if sub == nil {
		return newBuiltinError(f.op, "no executor installed for subgraph %q", f.bodyID)
	}
	bodyOutputs := sub.Graph().Outputs()
	if len(bodyOutputs) == 0 {
		return newBuiltinError(f.op, "while body %q declares no outputs to read a condition from", f.bodyID)
	}
	for iter := 0; iter < maxWhileIterations; iter++ {
		if err := sub.Run(); err != nil {
			return err
		}
		condData, err := sub.GetOutput(bodyOutputs[0])
		if err != nil {
			return err
		}
		if !truthy(condData) {
			break
		}
	}
	return copySubgraphOutputs(f.op, sub, f.outputs)
}

func (c *Context) buildWhile(op *ir.Operation) (backend.Function, error) {
	if c.execMap == nil {
		return nil, newBuiltinError(op.Index(), "op requires an ExecutorMap but none was supplied as CustomKernelBuilder")
	}
	if len(op.Subgraphs()) != 1 {
		return nil, newBuiltinError(op.Index(), "while expects exactly one subgraph (body), got %d", len(op.Subgraphs()))
	}
	outputs := make([]tensor.ITensor, 0, len(op.Outputs()))
	for _, idx := range op.Outputs() {
		t, found := c.registry.GetITensor(idx)
		if !found {
			return nil, newBuiltinError(op.Index(), "no output tensor for operand %s", idx)
		}
		outputs = append(outputs, t)
	}
	return &whileFunction{
		op:      op.Index(),
		bodyID:  op.Subgraphs()[0],
		execMap: c.execMap,
		outputs: outputs,
	}, nil
}
