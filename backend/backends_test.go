package backend

import (
	"testing"

	"github.com/onegoml/onego/ir"
	"github.com/onegoml/onego/tensor"
	"github.com/stretchr/testify/require"
)

type fakeConfig struct{ id string }

func (c *fakeConfig) ID() string { return c.id }
func (c *fakeConfig) Sync()      {}

type fakeContext struct {
	cfg *fakeConfig
	reg *tensor.Registry
}

func (c *fakeContext) Config() Config                     { return c.cfg }
func (c *fakeContext) TensorRegistry() *tensor.Registry   { return c.reg }
func (c *fakeContext) GenTensors() error                  { return nil }
func (c *fakeContext) GenKernels() ([]KernelEntry, error) { return nil, nil }

type fakeBackend struct{ *fakeConfig }

func (b *fakeBackend) NewContext(data ContextData) BackendContext {
	return &fakeContext{cfg: b.fakeConfig, reg: tensor.NewRegistry(ir.BackendID(b.ID()))}
}

func TestRegisterAndNew(t *testing.T) {
	registeredConstructors = make(map[string]Constructor)
	firstRegistered = ""
	DefaultConfig = ""

	Register("fake-a", func(config string) Backend { return &fakeBackend{&fakeConfig{id: "fake-a"}} })
	Register("fake-b", func(config string) Backend { return &fakeBackend{&fakeConfig{id: "fake-b"}} })

	b := New()
	require.Equal(t, "fake-a", b.ID())

	b2 := NewWithConfig("fake-b")
	require.Equal(t, "fake-b", b2.ID())

	require.ElementsMatch(t, []string{"fake-a", "fake-b"}, Registered())
}

func TestNewWithConfig_UnknownBackendPanics(t *testing.T) {
	registeredConstructors = make(map[string]Constructor)
	firstRegistered = ""
	Register("fake-a", func(config string) Backend { return &fakeBackend{&fakeConfig{id: "fake-a"}} })
	require.Panics(t, func() { NewWithConfig("nope") })
}

func TestNew_NoneRegisteredPanics(t *testing.T) {
	registeredConstructors = make(map[string]Constructor)
	firstRegistered = ""
	require.Panics(t, func() { New() })
}
