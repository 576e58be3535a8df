package compiler

import (
	"github.com/onegoml/onego/ir"
	"k8s.io/klog/v2"
)

// PartialGraph is one backend's slice of the whole lowered graph, as produced by Partition
// (C1): the backend's own operations plus copies of every operand it references, whether it
// produces them or not.
type PartialGraph struct {
	Backend ir.BackendID
	Graph   *ir.Graph

	// ExternalOperands are operand indices this backend references but does not produce.
	ExternalOperands ir.IndexSequence

	// OperandLayouts maps every operand this partial touches to its assigned layout.
	OperandLayouts map[ir.OperandIndex]ir.Layout

	// OpOrder is the whole graph's topological order restricted to this backend's ops.
	OpOrder []ir.OperationIndex
}

func newPartialGraph(backend ir.BackendID) *PartialGraph {
	pg := &PartialGraph{
		Backend:        backend,
		Graph:          ir.NewGraph(),
		OperandLayouts: make(map[ir.OperandIndex]ir.Layout),
	}
	return pg
}

// Partition splits lg into one PartialGraph per backend present, implementing C1. It first
// checks invariant L1 across the whole graph; a violation is a ConfigError, not a panic,
// because a LoweredGraph handed in by an external Compiler is untrusted input.
func Partition(lg *ir.LoweredGraph) (map[ir.BackendID]*PartialGraph, error) {
	if violating, ok := lg.ValidateL1(); !ok {
		return nil, newConfigError("invariant L1 violated at operand %s: expected exactly one def_factor", violating)
	}

	g := lg.Graph()
	partials := make(map[ir.BackendID]*PartialGraph)
	ensure := func(backend ir.BackendID) *PartialGraph {
		pg, ok := partials[backend]
		if !ok {
			pg = newPartialGraph(backend)
			partials[backend] = pg
		}
		return pg
	}

	// Step 1: copy every used operand into its producing backend's partial graph, def/use
	// links cleared (they get rebuilt per-partial as operations are copied in step 2).
	for _, idx := range g.SortedOperandIndices() {
		info := lg.OperandLowerInfo(idx)
		if len(info.DefFactors()) == 0 {
			continue // dead operand, not referenced anywhere.
		}
		factor := info.OnlyDefFactor()
		pg := ensure(factor.Backend)
		if pg.Graph.HasOperand(idx) {
			return nil, newPartitionError(factor.Backend, "operand index %s already present in partial graph", idx)
		}
		clone := g.Operand(idx).Clone()
		clone.SetDefFactor(factor)
		pg.Graph.AddOperand(idx, clone)
		pg.OperandLayouts[idx] = factor.Layout
	}

	// Step 2: copy every operation into its assigned backend's partial graph, pulling in any
	// referenced operand not yet present (external) and recording it.
	externalSeen := make(map[ir.BackendID]map[ir.OperandIndex]bool)
	for _, opIdx := range g.SortedOperationIndices() {
		op := g.Operation(opIdx)
		opInfo := lg.OperationLowerInfo(opIdx)
		if opInfo == nil {
			return nil, newConfigError("operation %s has no backend assignment", opIdx)
		}
		backend := opInfo.Backend()
		pg := ensure(backend)

		if pg.Graph.HasOperation(opIdx) {
			return nil, newPartitionError(backend, "operation index %s already present in partial graph", opIdx)
		}
		clone := op.Clone()
		pg.Graph.AddOperation(opIdx, clone)

		if externalSeen[backend] == nil {
			externalSeen[backend] = make(map[ir.OperandIndex]bool)
		}
		for _, idx := range op.IOOperands() {
			if !pg.Graph.HasOperand(idx) {
				operand := g.Operand(idx).Clone()
				pg.Graph.AddOperand(idx, operand)
				info := lg.OperandLowerInfo(idx)
				layout := ir.LayoutUnknown
				if len(info.DefFactors()) == 1 {
					layout = info.OnlyDefFactor().Layout
				}
				pg.OperandLayouts[idx] = layout
				if !externalSeen[backend][idx] {
					externalSeen[backend][idx] = true
					pg.ExternalOperands = append(pg.ExternalOperands, idx)
				}
			}
		}
		for _, idx := range op.Inputs() {
			pg.Graph.Operand(idx).AddUse(opIdx)
		}
		for _, idx := range op.Outputs() {
			pg.Graph.Operand(idx).SetDef(opIdx)
		}
	}

	// Step 3: derive each partial's own Inputs/Outputs boundary.
	wholeInputs := g.Inputs()
	wholeOutputs := g.Outputs()
	topoOrder := g.TopologicalOrder()

	for backend, pg := range partials {
		for _, idx := range wholeInputs {
			if pg.Graph.HasOperand(idx) {
				pg.Graph.AddInput(idx)
			}
		}
		for _, idx := range wholeOutputs {
			if pg.Graph.HasOperand(idx) {
				pg.Graph.AddOutput(idx)
			}
		}
		for _, idx := range pg.Graph.SortedOperandIndices() {
			operand := pg.Graph.Operand(idx)
			if !operand.Def().Valid() && !operand.IsConstant() {
				pg.Graph.AddInput(idx)
			}
			if len(operand.Uses()) == 0 {
				pg.Graph.AddOutput(idx)
			}
		}

		for _, opIdx := range topoOrder {
			if pg.Graph.HasOperation(opIdx) {
				pg.OpOrder = append(pg.OpOrder, opIdx)
			}
		}

		klog.V(2).InfoS("built partial graph", "backend", backend,
			"operands", len(pg.Graph.SortedOperandIndices()),
			"operations", len(pg.Graph.SortedOperationIndices()),
			"external", len(pg.ExternalOperands))
	}

	return partials, nil
}
