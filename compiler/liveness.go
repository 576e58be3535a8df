package compiler

import (
	"github.com/gomlx/exceptions"
	"github.com/onegoml/onego/ir"
)

// DeallocPlan maps an operation index to the operand indices whose tensors should be released
// once that operation has run. Only LinearExecutor consumes it; Dataflow and Parallel executors
// ignore deallocation planning entirely.
type DeallocPlan map[ir.OperationIndex]ir.IndexSequence

// PlanDeallocs implements C4: walking order (a topological sort), decrement each input
// operand's remaining-use counter and record it for release the moment the counter reaches
// zero, skipping Variables and whole-graph boundary operands (whose tensors must survive the
// whole executor's lifetime).
func PlanDeallocs(g *ir.Graph, order []ir.OperationIndex) DeallocPlan {
	remaining := make(map[ir.OperandIndex]int)
	pinned := make(map[ir.OperandIndex]bool)
	g.IterOperands(func(idx ir.OperandIndex, operand *ir.Operand) {
		remaining[idx] = len(operand.Uses())
		if operand.IsConstant() {
			// Constants are pinned: they're never deallocated by this walk, only ever by the
			// executor's own teardown, but they must not trip the zero-use assertion below.
			remaining[idx]++
			pinned[idx] = true
		}
	})

	boundary := make(map[ir.OperandIndex]bool)
	for _, idx := range g.Inputs() {
		boundary[idx] = true
	}
	for _, idx := range g.Outputs() {
		boundary[idx] = true
	}

	plan := make(DeallocPlan)
	for _, opIdx := range order {
		op := g.Operation(opIdx)
		for _, idx := range op.Inputs().Dedup() {
			remaining[idx]--
			if remaining[idx] != 0 {
				continue
			}
			operand := g.Operand(idx)
			if operand.IsVariable() || boundary[idx] {
				continue
			}
			plan[opIdx] = append(plan[opIdx], idx)
		}
	}

	for idx := range pinned {
		remaining[idx]--
	}
	for idx, count := range remaining {
		if count != 0 {
			exceptions.Panicf("compiler.PlanDeallocs: operand %s ended with %d remaining uses, expected 0 -- broken use-count invariant", idx, count)
		}
	}
	return plan
}
