package ir

// Operation is a node in the graph: a kind tag, ordered input/output operand references, and
// (once lowered) the backend chosen to execute it.
type Operation struct {
	index   OperationIndex
	kind    OpKind
	inputs  IndexSequence
	outputs IndexSequence
	backend BackendID

	// subgraphs holds, for control-flow ops (If/While), the identifiers of the nested
	// subgraphs to dispatch into. Empty for ordinary ops.
	subgraphs []string
}

func NewOperation(index OperationIndex, kind OpKind, inputs, outputs IndexSequence) *Operation {
	return &Operation{index: index, kind: kind, inputs: inputs, outputs: outputs}
}

func (op *Operation) Index() OperationIndex { return op.index }
func (op *Operation) Kind() OpKind          { return op.kind }
func (op *Operation) Inputs() IndexSequence  { return op.inputs }
func (op *Operation) Outputs() IndexSequence { return op.outputs }

func (op *Operation) Backend() BackendID     { return op.backend }
func (op *Operation) SetBackend(b BackendID) { op.backend = b }

func (op *Operation) Subgraphs() []string        { return op.subgraphs }
func (op *Operation) SetSubgraphs(ids ...string) { op.subgraphs = ids }

// IOOperands returns the deduplicated union of the op's inputs and outputs, dropping
// Undefined entries. This is the set the partitioner and the migrant-tensor wiring both need
// to walk.
func (op *Operation) IOOperands() IndexSequence {
	all := make(IndexSequence, 0, len(op.inputs)+len(op.outputs))
	all = append(all, op.inputs...)
	all = append(all, op.outputs...)
	return all.Dedup()
}

// Clone makes a copy of the operation with the same index and IO lists, suitable for
// inserting into a backend's partial graph.
func (op *Operation) Clone() *Operation {
	c := &Operation{
		index:   op.index,
		kind:    op.kind,
		inputs:  append(IndexSequence{}, op.inputs...),
		outputs: append(IndexSequence{}, op.outputs...),
		backend: op.backend,
	}
	if len(op.subgraphs) > 0 {
		c.subgraphs = append([]string{}, op.subgraphs...)
	}
	return c
}
