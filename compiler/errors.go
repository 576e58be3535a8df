package compiler

import (
	"fmt"

	"github.com/onegoml/onego/ir"
	"github.com/pkg/errors"
)

// ConfigError reports a malformed LoweredGraph or CompilerOptions: a missing builtin backend,
// an unsupported executor kind, a backend chosen for an op that was never registered, or an
// L1/T3 invariant violated after wiring. Construction errors are always fatal; no partial
// executor is ever returned alongside one.
type ConfigError struct {
	Reason string
	inner  error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("compiler: config error: %s: %v", e.Reason, e.inner) }
func (e *ConfigError) Unwrap() error  { return e.inner }

func newConfigError(format string, args ...any) *ConfigError {
	msg := fmt.Sprintf(format, args...)
	return &ConfigError{Reason: msg, inner: errors.New(msg)}
}

// PartitionError reports an operand or operation index collision while copying into a
// partial graph -- a broken index-preservation guarantee from C1.
type PartitionError struct {
	Backend ir.BackendID
	inner   error
}

func (e *PartitionError) Error() string {
	return fmt.Sprintf("compiler: partition error for backend %q: %v", e.Backend, e.inner)
}
func (e *PartitionError) Unwrap() error { return e.inner }

func newPartitionError(backend ir.BackendID, format string, args ...any) *PartitionError {
	return &PartitionError{Backend: backend, inner: errors.Errorf(format, args...)}
}

// KernelGenError reports that a backend returned no kernel for an operation in its own
// partial graph.
type KernelGenError struct {
	Backend ir.BackendID
	OpIndex ir.OperationIndex
	inner   error
}

func (e *KernelGenError) Error() string {
	return fmt.Sprintf("compiler: backend %q produced no kernel for op %s: %v", e.Backend, e.OpIndex, e.inner)
}
func (e *KernelGenError) Unwrap() error { return e.inner }

func newKernelGenError(backend ir.BackendID, op ir.OperationIndex, format string, args ...any) *KernelGenError {
	return &KernelGenError{Backend: backend, OpIndex: op, inner: errors.Errorf(format, args...)}
}
