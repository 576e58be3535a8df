package compiler

import (
	"sort"

	"github.com/onegoml/onego/backend"
	"github.com/onegoml/onego/exec"
	"github.com/onegoml/onego/ir"
	"github.com/onegoml/onego/tensor"
)

// SyncFunction wraps a backend's FunctionSequence with a device barrier that runs after it,
// installed only in profiling mode so timing observers bracket real device work rather than
// just queuing time.
type SyncFunction struct {
	inner  backend.FunctionSequence
	config backend.Config
}

func (f *SyncFunction) Run() error {
	for _, fn := range f.inner {
		if err := fn.Run(); err != nil {
			return err
		}
	}
	f.config.Sync()
	return nil
}

// DeallocFunction releases the buffer of every tensor in its list. Static (non-dynamic)
// buffers are left untouched by tensor.ITensor.ReleaseBuffer itself, so this never needs to
// re-check IsDynamic.
type DeallocFunction struct {
	tensors []tensor.ITensor
}

func (f *DeallocFunction) Run() error {
	for _, t := range f.tensors {
		t.ReleaseBuffer()
	}
	return nil
}

// GenerateKernels implements C5: ask each backend to genKernels(), non-builtin backends first
// in arbitrary (here: sorted, for determinism) order, builtin backend last -- it owns Permute
// kernels that bridge backends and must see every other backend's finalized tensors.
func GenerateKernels(g *ir.Graph, contexts map[ir.BackendID]backend.BackendContext, registries map[ir.BackendID]*tensor.Registry, plan DeallocPlan, isLinear, profiling bool) (exec.CodeMap, error) {
	codeMap := make(exec.CodeMap)

	for _, id := range orderBackendContexts(contexts) {
		ctx := contexts[id]
		entries, err := ctx.GenKernels()
		if err != nil {
			return nil, newKernelGenError(id, ir.OperationIndex(ir.Undefined), "genKernels failed: %v", err)
		}
		for _, entry := range entries {
			seq := entry.Sequence
			if len(seq) == 0 {
				return nil, newKernelGenError(id, entry.OpIndex, "backend produced an empty function sequence")
			}
			if profiling {
				seq = backend.FunctionSequence{&SyncFunction{inner: seq, config: ctx.Config()}}
			}
			if isLinear {
				if list := plan[entry.OpIndex]; len(list) > 0 {
					tensors := make([]tensor.ITensor, 0, len(list))
					for _, idx := range list {
						if t := resolveTensor(g, registries, idx); t != nil {
							tensors = append(tensors, t)
						}
					}
					withDealloc := make(backend.FunctionSequence, 0, len(seq)+1)
					withDealloc = append(withDealloc, seq...)
					withDealloc = append(withDealloc, &DeallocFunction{tensors: tensors})
					seq = withDealloc
				}
			}
			codeMap[entry.OpIndex] = seq
		}
	}
	return codeMap, nil
}

// orderBackendContexts returns every backend id present in contexts with the builtin backend
// (if any) forced last. Non-builtin ordering is sorted purely for deterministic test output;
// the spec only requires "any order" among them.
func orderBackendContexts(contexts map[ir.BackendID]backend.BackendContext) []ir.BackendID {
	others := make([]ir.BackendID, 0, len(contexts))
	hasBuiltin := false
	for id := range contexts {
		if id == ir.BuiltinBackendID {
			hasBuiltin = true
			continue
		}
		others = append(others, id)
	}
	sort.Slice(others, func(i, j int) bool { return others[i] < others[j] })
	if hasBuiltin {
		others = append(others, ir.BuiltinBackendID)
	}
	return others
}

// resolveTensor returns the tensor a DeallocFunction should release for idx: the one owned by
// the operand's producing backend, per its DefFactor. Looking this up in map[BackendID]*Registry
// iteration order instead (as any backend that merely reads idx also has an entry for it) could
// return a MigrantTensor from a consumer's registry rather than the owning NativeTensor/IOTensor;
// MigrantTensor.ReleaseBuffer is a no-op, so the dealloc plan would silently fail to free a
// cross-backend dynamic operand's buffer. The registries-wide fallback below only exists for a
// producing backend whose context.TensorRegistry() isn't in registries at all (shouldn't happen
// once WireTensors has run, but resolveTensor stays defensive rather than panicking on it), and
// it still refuses to hand back a MigrantTensor.
func resolveTensor(g *ir.Graph, registries map[ir.BackendID]*tensor.Registry, idx ir.OperandIndex) tensor.ITensor {
	if operand := g.Operand(idx); operand != nil {
		if reg, ok := registries[operand.DefFactor().Backend]; ok {
			if t, found := reg.GetITensor(idx); found {
				if _, migrant := t.(*tensor.MigrantTensor); !migrant {
					return t
				}
			}
		}
	}
	for _, reg := range registries {
		t, found := reg.GetITensor(idx)
		if !found {
			continue
		}
		if _, migrant := t.(*tensor.MigrantTensor); migrant {
			continue
		}
		return t
	}
	return nil
}
