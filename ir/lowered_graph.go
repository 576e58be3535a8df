package ir

// OperandLowerInfo carries the def_factors set for one operand. Invariant L1 requires this
// set to have exactly one element for every operand that is actually used (referenced by some
// operation, a graph input, or a graph output); it is empty for dead operands the optimizer left behind.
type OperandLowerInfo struct {
	defFactors []DefFactor
}

func (i *OperandLowerInfo) DefFactors() []DefFactor { return i.defFactors }

func (i *OperandLowerInfo) AddDefFactor(f DefFactor) {
	i.defFactors = append(i.defFactors, f)
}

// OnlyDefFactor returns the single def factor, panicking if invariant L1 doesn't hold for
// this operand. Callers that must enforce L1 as a recoverable ConfigError (rather than a
// panic) should check len(DefFactors()) == 1 themselves; this accessor is for code paths that
// already validated it.
func (i *OperandLowerInfo) OnlyDefFactor() DefFactor {
	if len(i.defFactors) != 1 {
		panic("ir.OperandLowerInfo.OnlyDefFactor: invariant L1 violated")
	}
	return i.defFactors[0]
}

// OperationLowerInfo carries the backend chosen for one operation.
type OperationLowerInfo struct {
	backend BackendID
}

func (i *OperationLowerInfo) Backend() BackendID { return i.backend }

// LoweredGraph pairs a Graph with the sidecar maps that record backend/layout assignment for
// every operand and operation. It is what an external Compiler hands to the executor
// construction pipeline.
type LoweredGraph struct {
	graph *Graph

	operandLowerInfo   map[OperandIndex]*OperandLowerInfo
	operationLowerInfo map[OperationIndex]*OperationLowerInfo
}

func NewLoweredGraph(g *Graph) *LoweredGraph {
	return &LoweredGraph{
		graph:              g,
		operandLowerInfo:   make(map[OperandIndex]*OperandLowerInfo),
		operationLowerInfo: make(map[OperationIndex]*OperationLowerInfo),
	}
}

func (lg *LoweredGraph) Graph() *Graph { return lg.graph }

// OperandLowerInfo returns the lower-info entry for idx, creating an empty one if absent.
func (lg *LoweredGraph) OperandLowerInfo(idx OperandIndex) *OperandLowerInfo {
	info, ok := lg.operandLowerInfo[idx]
	if !ok {
		info = &OperandLowerInfo{}
		lg.operandLowerInfo[idx] = info
	}
	return info
}

// SetOperandBackend is a convenience that records the single def factor for idx and mirrors
// it onto the operand descriptor itself (Operand.DefFactor), matching how the lowering stage
// (out of scope) is expected to have already annotated the graph before handing it to the
// core.
func (lg *LoweredGraph) SetOperandBackend(idx OperandIndex, factor DefFactor) {
	info := lg.OperandLowerInfo(idx)
	info.defFactors = []DefFactor{factor}
	if operand := lg.graph.Operand(idx); operand != nil {
		operand.SetDefFactor(factor)
	}
}

// OperationLowerInfo returns the lower-info entry for idx, or nil if the operation has no
// backend assignment yet.
func (lg *LoweredGraph) OperationLowerInfo(idx OperationIndex) *OperationLowerInfo {
	return lg.operationLowerInfo[idx]
}

// SetOperationBackend records the backend chosen for op idx, mirroring it onto the operation
// descriptor.
func (lg *LoweredGraph) SetOperationBackend(idx OperationIndex, backend BackendID) {
	lg.operationLowerInfo[idx] = &OperationLowerInfo{backend: backend}
	if op := lg.graph.Operation(idx); op != nil {
		op.SetBackend(backend)
	}
}

// ValidateL1 checks invariant L1 for every operand referenced by an operation, a graph input,
// or a graph output: its def_factors set must be a single element. It returns a violating
// operand index and false (which one is unspecified when several violate), or
// (Undefined, true) if the invariant holds.
func (lg *LoweredGraph) ValidateL1() (violating OperandIndex, ok bool) {
	touched := make(map[OperandIndex]bool)
	for _, idx := range lg.graph.Inputs() {
		touched[idx] = true
	}
	for _, idx := range lg.graph.Outputs() {
		touched[idx] = true
	}
	lg.graph.IterOperations(func(_ OperationIndex, op *Operation) {
		for _, idx := range op.IOOperands() {
			touched[idx] = true
		}
	})
	for idx := range touched {
		info := lg.operandLowerInfo[idx]
		if info == nil || len(info.defFactors) != 1 {
			return idx, false
		}
	}
	return OperandIndex(Undefined), true
}
