// Package backend defines the ABI a compute backend must implement to participate in an
// onego executor: a pluggable Config/Backend pair, discovered the same way the teacher
// (gomlx/gomlx) discovers its computation backends, plus the narrower BackendContext
// contract the executor construction pipeline (C1-C6) actually drives.
//
// A backend that cannot generate a kernel for some op kind is expected to fail loudly
// (KernelGenError) rather than silently no-op; there is no "not implemented, skip" path in
// this pipeline the way there is in the teacher's op-builder API, since every op present in a
// lowered graph is assumed already assigned to a backend that can handle it.
package backend

import (
	"os"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/onegoml/onego/ir"
	"github.com/onegoml/onego/tensor"
)

// Config identifies and synchronizes with a backend instance. Every backend's newContext
// implementation is reached through a Config, mirroring the way the teacher's Backend
// interface bundles identity (Name/Description) with the data-transfer contract.
type Config interface {
	// ID returns the backend's identity, used as its ir.BackendID and for registry lookups.
	ID() string

	// Sync blocks until all work this backend has been asked to perform has completed. Used
	// by SyncFunction to bracket profiling timestamps around device work.
	Sync()
}

// PermutationSupporter is an optional Config capability: backends that can natively execute
// a Permute kernel (rather than relying on the builtin backend's) implement it.
type PermutationSupporter interface {
	SupportPermutation() bool
}

// DynamicTensorSupporter is an optional Config capability: backends that can allocate tensors
// whose shape is not known until run time implement it.
type DynamicTensorSupporter interface {
	SupportDynamicTensor() bool
}

// ContextData is everything C2 (Backend Context Builder) hands to a backend's newContext: the
// backend's partial graph plus the bookkeeping C1 produced for it and the flags/handles C6
// needs communicated down before kernel generation.
type ContextData struct {
	// Graph is this backend's partial graph, indices preserved from the whole lowered graph.
	Graph *ir.Graph

	// ExternalOperands are operand indices this backend references but does not produce.
	ExternalOperands ir.IndexSequence

	// OperandLayouts maps operand index to its assigned layout, restricted to operands this
	// backend's partial graph touches.
	OperandLayouts map[ir.OperandIndex]ir.Layout

	// OpOrder is the whole graph's topological order, filtered to this backend's operations.
	OpOrder []ir.OperationIndex

	// IsLinearExecutor is true when C6 will build a LinearExecutor, letting the backend
	// decide whether it needs to track anything dataflow-specific.
	IsLinearExecutor bool

	// CustomKernelBuilder is an opaque handle threaded through from the whole graph's
	// KernelBuilder, for backends that support custom op kinds (OpCustom).
	CustomKernelBuilder any
}

// FunctionSequence is an ordered list of runnable steps a backend produces for one operation.
// exec.IFunction is the interface each step implements; compiler.GenerateKernels wraps
// sequences with SyncFunction/DeallocFunction without needing to know what a backend's own
// steps do.
type FunctionSequence []Function

// Function is one runnable step of a FunctionSequence.
type Function interface {
	Run() error
}

// KernelEntry pairs an operation index with the function sequence a backend generated for it.
type KernelEntry struct {
	OpIndex  ir.OperationIndex
	Sequence FunctionSequence
}

// BackendContext is what newContext returns: the live, per-backend state the compiler
// construction pipeline drives through genTensors then genKernels.
type BackendContext interface {
	// Config this context was built from.
	Config() Config

	// TensorRegistry this backend produces native tensors into and migrants get installed
	// into by compiler.WireTensors.
	TensorRegistry() *tensor.Registry

	// GenTensors allocates native tensors for every operand this backend's partial graph
	// produces (i.e. every operand whose def is one of this backend's own operations, plus
	// any external operand this backend is itself responsible for materializing, such as the
	// builtin backend's IOTensors -- though C3 installs those directly).
	GenTensors() error

	// GenKernels returns one entry per operation in this backend's partial graph, in
	// ContextData.OpOrder order (or, for non-linear construction, in the backend's own
	// deterministic op ordering).
	GenKernels() ([]KernelEntry, error)
}

// Constructor builds a Backend for a given (optional) configuration string, mirroring the
// teacher's backends.Constructor.
type Constructor func(config string) Backend

// Backend is the pluggable execution target discovered through Register/New. NewContext is
// the entry point the compiler calls once per backend during C2.
type Backend interface {
	Config
	NewContext(data ContextData) BackendContext
}

var (
	registeredConstructors = make(map[string]Constructor)
	firstRegistered        string
)

// Register a backend constructor under name. Call during package initialization, the same
// convention the teacher documents for backends.Register.
func Register(name string, constructor Constructor) {
	if len(registeredConstructors) == 0 {
		firstRegistered = name
	}
	registeredConstructors[name] = constructor
}

// DefaultConfig is used if ONEGO_BACKEND is not set in the environment.
var DefaultConfig string

// ONEGO_BACKEND is the environment variable naming the default backend configuration, in the
// form "<backend_name>:<backend_configuration>". Renamed from the teacher's GOMLX_BACKEND to
// match this module's own backend registry.
const ONEGO_BACKEND = "ONEGO_BACKEND"

// New returns a new Backend chosen by (in order): ONEGO_BACKEND, DefaultConfig, or the first
// backend registered. Panics via exceptions.Panicf if none has been registered -- a broken
// build configuration, not a caller-input error, so this stays a panic rather than a
// ConfigError, matching the teacher's own NewWithConfig.
func New() Backend {
	config, found := os.LookupEnv(ONEGO_BACKEND)
	if found {
		return NewWithConfig(config)
	}
	if DefaultConfig != "" {
		return NewWithConfig(DefaultConfig)
	}
	return NewWithConfig("")
}

// NewWithConfig parses "<backend_name>:<backend_configuration>" and constructs that backend.
// A config without ":" is a bare backend name; an empty config selects the first backend
// registered.
func NewWithConfig(config string) Backend {
	if len(registeredConstructors) == 0 {
		exceptions.Panicf(`no registered backends for onego -- import a backend package, e.g. _ "github.com/onegoml/onego/backend/builtincpu"`)
	}
	backendName := firstRegistered
	var backendConfig string
	if config != "" {
		backendName = config
		if idx := strings.Index(config, ":"); idx != -1 {
			backendName = config[:idx]
			backendConfig = config[idx+1:]
		}
	}
	constructor, found := registeredConstructors[backendName]
	if !found {
		exceptions.Panicf("can't find backend %q for configuration %q given", backendName, config)
	}
	return constructor(backendConfig)
}

// Registered returns the names of every backend currently registered, for diagnostics.
func Registered() []string {
	names := make([]string, 0, len(registeredConstructors))
	for name := range registeredConstructors {
		names = append(names, name)
	}
	return names
}
