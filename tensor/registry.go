package tensor

import (
	"sync"

	"github.com/onegoml/onego/ir"
)

// Registry holds every tensor a single backend context owns or has migrated in, keyed by
// operand index. It is the backend-facing half of invariant T1: within one Registry an
// operand index resolves to at most one tensor, but T1's "exactly one across the union of
// registries" is enforced by compiler.WireTensors, not by Registry itself.
//
// A Registry is safe for concurrent read access once construction (C1-C5) has completed;
// writes are expected only during construction, matching the same "build once, read many"
// discipline the executors rely on for ExecutorMap.
type Registry struct {
	mu      sync.RWMutex
	backend ir.BackendID
	tensors map[ir.OperandIndex]ITensor
}

// NewRegistry returns an empty registry owned by backend (used only for diagnostics).
func NewRegistry(backend ir.BackendID) *Registry {
	return &Registry{
		backend: backend,
		tensors: make(map[ir.OperandIndex]ITensor),
	}
}

// Backend this registry belongs to.
func (r *Registry) Backend() ir.BackendID { return r.backend }

// GetITensor returns the tensor installed at index, if any.
func (r *Registry) GetITensor(index ir.OperandIndex) (ITensor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, found := r.tensors[index]
	return t, found
}

// SetNativeTensor installs a tensor this backend produces and owns.
func (r *Registry) SetNativeTensor(index ir.OperandIndex, t *NativeTensor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tensors[index] = t
}

// SetMigrantTensor installs a read-only alias of a tensor owned by another backend.
func (r *Registry) SetMigrantTensor(index ir.OperandIndex, t *MigrantTensor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tensors[index] = t
}

// SetNativeIOTensor installs a boundary tensor. The builtin backend's registry always receives
// one for every whole-graph input and output; compiler.WireTensors additionally aliases the
// same IOTensor into a non-builtin producing backend's own registry, so that backend's kernel
// writes straight into the tensor a caller's GetOutput reads, instead of a disconnected copy.
func (r *Registry) SetNativeIOTensor(index ir.OperandIndex, t *IOTensor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tensors[index] = t
}

// Len returns the number of tensors currently installed.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tensors)
}

// Indices returns every operand index installed in this registry, order unspecified.
func (r *Registry) Indices() []ir.OperandIndex {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ir.OperandIndex, 0, len(r.tensors))
	for idx := range r.tensors {
		out = append(out, idx)
	}
	return out
}
