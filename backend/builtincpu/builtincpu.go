// Package builtincpu implements the builtin backend: the one every LoweredGraph must assign
// its whole-graph IO boundary and control-flow ops to. It owns no domain compute kernels of
// its own (Add, Relu, Conv2D, ...) -- that's what backend/refcpu and any real device backend
// are for -- only the three op kinds that exist to bridge between backends: Permute, If, While.
package builtincpu

import (
	"github.com/onegoml/onego/backend"
	"github.com/onegoml/onego/ir"
)

// Config identifies the builtin backend. It carries no device handle of its own; Sync is a
// no-op since builtincpu never queues asynchronous work.
type Config struct{}

func (Config) ID() string { return string(ir.BuiltinBackendID) }
func (Config) Sync()      {}

// Backend is the builtin backend.Backend implementation, registered under its own name so a
// caller can select it through backend.New the same way any other backend is selected, even
// though most callers construct it directly (see cmd/onegoc) to hand its BackendContext into
// compiler.NewExecutor.
type Backend struct {
	cfg Config
}

func New(_ string) backend.Backend { return &Backend{} }

func init() {
	backend.Register(string(ir.BuiltinBackendID), New)
}

func (b *Backend) ID() string { return b.cfg.ID() }
func (b *Backend) Sync()      { b.cfg.Sync() }

func (b *Backend) NewContext(data backend.ContextData) backend.BackendContext {
	return newContext(data)
}

var _ backend.Backend = (*Backend)(nil)
