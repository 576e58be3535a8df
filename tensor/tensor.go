// Package tensor implements the runtime tensor variants exchanged between backends during
// executor construction and execution: native tensors (owned by the backend that produces
// them), migrant tensors (read-only aliases installed into a consumer backend's registry),
// and IOTensors (boundary tensors for the whole graph's inputs and outputs, owned by the
// builtin backend).
//
// NewNativeTensor and NewIOTensor allocate the buffer on construction, sized from
// shape.Memory(); there is no separate Allocate step.
package tensor

import (
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/onegoml/onego/ir"
	"github.com/onegoml/onego/types/shapes"
)

// ITensor is the common interface every tensor variant implements. It is deliberately small:
// the compiler and executors only ever need to know an operand's shape, whether its buffer is
// dynamically allocated (and therefore subject to deallocation planning), whether it may be
// read by a backend other than the one that produced it, and its current buffer.
type ITensor interface {
	// OperandIndex this tensor materializes.
	OperandIndex() ir.OperandIndex

	// Shape of the tensor, including its DType.
	Shape() shapes.Shape

	// IsDynamic reports whether this tensor's buffer is heap-allocated per run and therefore
	// a candidate for the deallocation plan. Static (e.g. constant, IO) buffers return false.
	IsDynamic() bool

	// Portable reports whether this tensor's buffer may be read directly by a backend other
	// than the one that produced it, without an explicit Permute.
	Portable() bool

	// Buffer returns the current backing storage, or nil if unallocated or released.
	Buffer() []byte

	// ReleaseBuffer frees the buffer if IsDynamic, otherwise it is a no-op. Safe to call more
	// than once.
	ReleaseBuffer()
}

// base holds the fields shared by every tensor variant. It is not itself an ITensor; each
// variant embeds it and adds ownership-specific behavior.
type base struct {
	mu       sync.Mutex
	index    ir.OperandIndex
	shape    shapes.Shape
	dynamic  bool
	portable bool
	buffer   []byte
}

func (b *base) OperandIndex() ir.OperandIndex { return b.index }
func (b *base) Shape() shapes.Shape           { return b.shape }
func (b *base) IsDynamic() bool               { return b.dynamic }
func (b *base) Portable() bool                { return b.portable }

func (b *base) Buffer() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffer
}

func (b *base) setBuffer(buf []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buffer = buf
}

func (b *base) ReleaseBuffer() {
	if !b.dynamic {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buffer = nil
}

// NativeTensor is owned by the backend that produces it: only that backend's kernels may
// write to it. Owner records the producing backend for diagnostics and migrant lookups.
type NativeTensor struct {
	base
	owner ir.BackendID
}

// NewNativeTensor allocates the tensor's buffer immediately (sized from shape.Memory()) and
// returns it owned by owner. dynamic controls whether it participates in dealloc planning;
// portable controls whether other backends may migrate it read-only.
func NewNativeTensor(index ir.OperandIndex, shape shapes.Shape, owner ir.BackendID, dynamic, portable bool) *NativeTensor {
	if !shape.Ok() {
		exceptions.Panicf("tensor.NewNativeTensor(%s): invalid shape", index)
	}
	return &NativeTensor{
		base: base{
			index:    index,
			shape:    shape,
			dynamic:  dynamic,
			portable: portable,
			buffer:   make([]byte, shape.Memory()),
		},
		owner: owner,
	}
}

// Owner returns the backend that produced this tensor.
func (t *NativeTensor) Owner() ir.BackendID { return t.owner }

// SetBuffer replaces the backing buffer, e.g. after a kernel reallocates for a dynamic shape.
func (t *NativeTensor) SetBuffer(buf []byte) { t.setBuffer(buf) }

// MigrantTensor is a read-only alias of a portable tensor owned elsewhere (a NativeTensor
// produced by another backend, or an IOTensor owned by the builtin backend), installed into a
// consumer backend's registry at the same operand index. It never owns or releases the
// buffer; that remains the source tensor's responsibility.
type MigrantTensor struct {
	index  ir.OperandIndex
	source ITensor
}

// NewMigrantTensor wraps source for installation into a foreign registry. It does not check
// Portable(); compiler.WireTensors only wraps portable sources, except for an operand
// consumed by a Permute op, which it wraps regardless.
func NewMigrantTensor(index ir.OperandIndex, source ITensor) *MigrantTensor {
	return &MigrantTensor{index: index, source: source}
}

func (t *MigrantTensor) OperandIndex() ir.OperandIndex { return t.index }
func (t *MigrantTensor) Shape() shapes.Shape           { return t.source.Shape() }
func (t *MigrantTensor) IsDynamic() bool               { return false }
func (t *MigrantTensor) Portable() bool                { return true }
func (t *MigrantTensor) Buffer() []byte                { return t.source.Buffer() }
func (t *MigrantTensor) ReleaseBuffer()                {} // owned by source; migrants never release.

// Source returns the underlying tensor this migrant aliases.
func (t *MigrantTensor) Source() ITensor { return t.source }

// IOTensor is the boundary tensor for a whole-graph input or output. It is always installed
// into the builtin backend's registry and additionally records the layout presumed for it,
// since the whole-graph IO boundary is where callers hand in/read out raw buffers.
type IOTensor struct {
	base
	layout ir.Layout
}

// NewIOTensor allocates an IOTensor sized from shape.Memory() with the given presumed layout.
func NewIOTensor(index ir.OperandIndex, shape shapes.Shape, layout ir.Layout) *IOTensor {
	if !shape.Ok() {
		exceptions.Panicf("tensor.NewIOTensor(%s): invalid shape", index)
	}
	return &IOTensor{
		base: base{
			index:    index,
			shape:    shape,
			dynamic:  false,
			portable: true,
			buffer:   make([]byte, shape.Memory()),
		},
		layout: layout,
	}
}

// Layout presumed for this boundary tensor.
func (t *IOTensor) Layout() ir.Layout { return t.layout }

// SetBuffer replaces the backing buffer directly, with no length check. Used internally by a
// producing backend when this IOTensor is also aliased into that backend's own registry (a
// whole-graph output produced by a non-builtin backend): the backend's own kernel writes its
// result straight into the same IOTensor a caller will later read via GetOutput, rather than
// into a disconnected NativeTensor of its own. SetInput remains the caller-facing entry point,
// which additionally enforces the length invariant against untrusted external input.
func (t *IOTensor) SetBuffer(buf []byte) { t.setBuffer(buf) }

// SetInput copies data into the tensor's buffer, e.g. from a caller-supplied host buffer.
func (t *IOTensor) SetInput(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(data) != len(t.buffer) {
		exceptions.Panicf("tensor.IOTensor(%s).SetInput: got %d bytes, want %d", t.index, len(data), len(t.buffer))
	}
	copy(t.buffer, data)
}

// GetOutput returns a copy of the tensor's current buffer.
func (t *IOTensor) GetOutput() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]byte, len(t.buffer))
	copy(out, t.buffer)
	return out
}

var (
	_ ITensor = (*NativeTensor)(nil)
	_ ITensor = (*MigrantTensor)(nil)
	_ ITensor = (*IOTensor)(nil)
)
