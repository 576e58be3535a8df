package ir

import "github.com/onegoml/onego/types/shapes"

// OpKind is a tagged variant over the closed family of operation kinds this system knows how
// to schedule. New kinds require touching the dispatch tables in the kernel-generation
// backends; there is no open registration of op kinds.
type OpKind int

const (
	OpUnknown OpKind = iota
	OpAdd
	OpMul
	OpConv2D
	OpRelu
	OpConcat
	OpPermute
	OpIf
	OpWhile
	OpCustom
)

func (k OpKind) String() string {
	switch k {
	case OpAdd:
		return "Add"
	case OpMul:
		return "Mul"
	case OpConv2D:
		return "Conv2D"
	case OpRelu:
		return "Relu"
	case OpConcat:
		return "Concat"
	case OpPermute:
		return "Permute"
	case OpIf:
		return "If"
	case OpWhile:
		return "While"
	case OpCustom:
		return "Custom"
	default:
		return "Unknown"
	}
}

// Operand is a typed, shaped tensor descriptor. It may be a graph input, a constant, an
// intermediate value produced by exactly one operation (once lowered), or a Variable that
// persists state across executions.
type Operand struct {
	index      OperandIndex
	shape      shapes.Shape
	isVariable bool
	isConstant bool
	constant   any // payload, only set when isConstant

	def  OperationIndex // producing operation, Undefined if none (graph input or constant)
	uses map[OperationIndex]bool

	defFactor DefFactor // valid once lowered (invariant L1)
}

// NewOperand creates an operand with the given index and shape. The index is caller-supplied
// because operand indices are issued by the owning Graph and must never be reallocated when
// an operand is copied into a partial graph.
func NewOperand(index OperandIndex, shape shapes.Shape) *Operand {
	return &Operand{
		index: index,
		shape: shape,
		def:   OperationIndex(Undefined),
		uses:  make(map[OperationIndex]bool),
	}
}

func (o *Operand) Index() OperandIndex { return o.index }
func (o *Operand) Shape() shapes.Shape { return o.shape }

func (o *Operand) IsVariable() bool { return o.isVariable }
func (o *Operand) SetVariable(v bool) { o.isVariable = v }

func (o *Operand) IsConstant() bool     { return o.isConstant }
func (o *Operand) ConstantValue() any   { return o.constant }
func (o *Operand) SetConstant(value any) {
	o.isConstant = true
	o.constant = value
}

// Def returns the operation that produces this operand, or an invalid index if it has none
// (a graph input, or a constant).
func (o *Operand) Def() OperationIndex { return o.def }

func (o *Operand) SetDef(op OperationIndex) { o.def = op }

// Uses returns the set of operations that read this operand.
func (o *Operand) Uses() map[OperationIndex]bool { return o.uses }

func (o *Operand) AddUse(op OperationIndex) { o.uses[op] = true }

// ClearDefUse drops def/use links, keeping only the shape/constant payload. Used when copying
// an operand into a partial graph: the partial graph rebuilds its own def/use edges from its
// own operations.
func (o *Operand) ClearDefUse() {
	o.def = OperationIndex(Undefined)
	o.uses = make(map[OperationIndex]bool)
}

// DefFactor returns the (backend, layout) pair that produced this operand. Only meaningful
// after lowering (invariant L1): a single factor per used operand.
func (o *Operand) DefFactor() DefFactor { return o.defFactor }

func (o *Operand) SetDefFactor(f DefFactor) { o.defFactor = f }

// Clone makes a shallow copy of the operand descriptor (shape and constant payload shared,
// def/use links dropped). This is exactly what the partitioner needs when copying an operand
// into a backend's partial graph: same index, fresh def/use bookkeeping.
func (o *Operand) Clone() *Operand {
	c := &Operand{
		index:      o.index,
		shape:      o.shape,
		isVariable: o.isVariable,
		isConstant: o.isConstant,
		constant:   o.constant,
		def:        OperationIndex(Undefined),
		uses:       make(map[OperationIndex]bool),
		defFactor:  o.defFactor,
	}
	return c
}
