// Package refcpu implements a second, non-builtin reference backend: plain Go arithmetic over
// float32 buffers for Add, Mul, Relu, Concat and a naive valid-padding Conv2D. It exists to
// give the compiler package's cross-backend migrant-tensor wiring, and the demonstration CLI,
// something real to compile alongside backend/builtincpu.
package refcpu

import (
	"github.com/onegoml/onego/backend"
	"github.com/onegoml/onego/ir"
)

// BackendID is the identity every LoweredGraph must use in its DefFactor/operation backend
// assignments to route work here.
const BackendID ir.BackendID = "refcpu"

// Config identifies the refcpu backend. Sync is a no-op: every kernel here runs synchronously
// on the calling goroutine, so there is never asynchronous work to wait on.
type Config struct{}

func (Config) ID() string { return string(BackendID) }
func (Config) Sync()      {}

// Backend is the refcpu backend.Backend implementation.
type Backend struct{}

func New(_ string) backend.Backend { return &Backend{} }

func init() {
	backend.Register(string(BackendID), New)
}

func (b *Backend) ID() string { return Config{}.ID() }
func (b *Backend) Sync()      {}

func (b *Backend) NewContext(data backend.ContextData) backend.BackendContext {
	return newContext(data)
}

var _ backend.Backend = (*Backend)(nil)
