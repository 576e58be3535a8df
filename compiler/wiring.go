package compiler

import (
	"github.com/onegoml/onego/backend"
	"github.com/onegoml/onego/ir"
	"github.com/onegoml/onego/tensor"
)

// WireTensors implements C3 in its two ordered sub-phases: install IOTensors for the whole
// graph's boundary into the builtin registry, then -- strictly after every backend's
// GenTensors has run and strictly before any GenKernels call, because kernel generators may
// capture tensor pointers by identity -- register migrant entries for operands a backend
// references but does not produce.
func WireTensors(lg *ir.LoweredGraph, contexts map[ir.BackendID]backend.BackendContext) error {
	builtinCtx, ok := contexts[ir.BuiltinBackendID]
	if !ok {
		return newConfigError("no builtin backend context present; IOTensors have nowhere to live")
	}
	builtinRegistry := builtinCtx.TensorRegistry()

	g := lg.Graph()
	boundary := ir.IndexSequence{}
	boundary = append(boundary, g.Inputs()...)
	boundary = append(boundary, g.Outputs()...)
	for _, idx := range boundary.Dedup() {
		operand := g.Operand(idx)
		io := tensor.NewIOTensor(idx, operand.Shape(), ioLayout(operand))
		builtinRegistry.SetNativeIOTensor(idx, io)

		// A boundary operand produced by a non-builtin backend has no consuming operation of
		// its own to route through the migrant-registration loop below (it's a whole-graph
		// output, nothing downstream reads it inside this graph). Alias the very same IOTensor
		// into the producing backend's own registry so its GenTensors skips allocating a second,
		// disconnected buffer and its kernel writes straight into what SetInput/GetOutput reads.
		if producer := operand.DefFactor().Backend; producer != ir.BuiltinBackendID && producer != "" {
			if producerCtx, ok := contexts[producer]; ok {
				producerCtx.TensorRegistry().SetNativeIOTensor(idx, io)
			}
		}
	}

	for id, ctx := range contexts {
		if err := ctx.GenTensors(); err != nil {
			return newConfigError("backend %q genTensors failed: %v", id, err)
		}
	}

	for _, opIdx := range g.SortedOperationIndices() {
		op := g.Operation(opIdx)
		opBackend := op.Backend()
		consumerCtx, ok := contexts[opBackend]
		if !ok {
			return newConfigError("operation %s assigned unregistered backend %q", opIdx, opBackend)
		}
		consumerRegistry := consumerCtx.TensorRegistry()
		for _, idx := range op.IOOperands() {
			if _, found := consumerRegistry.GetITensor(idx); found {
				continue
			}
			located, err := findTensor(contexts, opBackend, idx)
			if err != nil {
				return err
			}
			if !located.Portable() && op.Kind() != ir.OpPermute {
				// Non-portable tensors are handled by explicit Permute ops the lowering
				// stage inserts; a Permute op is exactly the consumer allowed to read one
				// directly, everyone else waits for the lowering stage to have inserted one.
				continue
			}
			consumerRegistry.SetMigrantTensor(idx, tensor.NewMigrantTensor(idx, located))
		}
	}
	return nil
}

// ioLayout resolves the presumed layout for a whole-graph boundary operand: the layout its
// producing operation was assigned, or ir.LayoutNHWC for an operand with no producer (a
// genuine graph input).
func ioLayout(operand *ir.Operand) ir.Layout {
	if operand.Def().Valid() {
		return operand.DefFactor().Layout
	}
	return ir.LayoutNHWC
}

// findTensor searches every backend context's registry except exclude for a tensor at idx.
// The search must succeed per spec; a miss is a TensorError.
func findTensor(contexts map[ir.BackendID]backend.BackendContext, exclude ir.BackendID, idx ir.OperandIndex) (tensor.ITensor, error) {
	for id, ctx := range contexts {
		if id == exclude {
			continue
		}
		if t, found := ctx.TensorRegistry().GetITensor(idx); found {
			return t, nil
		}
	}
	return nil, tensor.NewTensorError(idx, exclude, "operand not found in own or any other backend registry")
}
