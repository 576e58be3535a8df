package compiler

import (
	"github.com/onegoml/onego/backend"
	"github.com/onegoml/onego/ir"
)

// NewBackendContexts implements C2: for each partial graph, package it into a ContextData
// (plus the is_linear_executor flag and the custom-kernel-builder handle) and ask the
// corresponding registered backend to build a BackendContext. The builder itself knows
// nothing about what's inside a BackendContext beyond the tensor_registry/kernel_gen contract
// backend.BackendContext exposes.
func NewBackendContexts(partials map[ir.BackendID]*PartialGraph, backends map[ir.BackendID]backend.Backend, isLinear bool, kernelBuilder any) (map[ir.BackendID]backend.BackendContext, error) {
	contexts := make(map[ir.BackendID]backend.BackendContext, len(partials))
	for id, pg := range partials {
		be, ok := backends[id]
		if !ok {
			return nil, newConfigError("no backend registered for id %q referenced by the lowered graph", id)
		}
		data := backend.ContextData{
			Graph:               pg.Graph,
			ExternalOperands:    pg.ExternalOperands,
			OperandLayouts:      pg.OperandLayouts,
			OpOrder:             pg.OpOrder,
			IsLinearExecutor:    isLinear,
			CustomKernelBuilder: kernelBuilder,
		}
		contexts[id] = be.NewContext(data)
	}
	return contexts, nil
}
