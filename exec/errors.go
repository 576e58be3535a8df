package exec

import (
	"fmt"

	"github.com/onegoml/onego/ir"
)

// ExecutionError reports a kernel failure at run time, carrying the operation index and
// backend identity as spec.md requires. Once raised the executor is left unusable and must be
// discarded; there is no retry or partial recovery.
type ExecutionError struct {
	OpIndex ir.OperationIndex
	Backend ir.BackendID
	Reason  string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("exec: op %s on backend %q failed: %s", e.OpIndex, e.Backend, e.Reason)
}

// NewExecutionError builds an ExecutionError. opIndex may be an invalid index for failures not
// attributable to a single operation (e.g. a missing IOTensor at SetInput time).
func NewExecutionError(opIndex ir.OperationIndex, backendID ir.BackendID, reason string) *ExecutionError {
	return &ExecutionError{OpIndex: opIndex, Backend: backendID, Reason: reason}
}
