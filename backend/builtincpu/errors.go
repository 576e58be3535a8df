package builtincpu

import (
	"fmt"

	"github.com/onegoml/onego/ir"
	"github.com/pkg/errors"
)

// Error reports a builtin-backend kernel failure: an op kind the builtin backend was never
// meant to receive, a missing subgraph in the ExecutorMap, or a layout the permute kernel
// doesn't know how to convert.
type Error struct {
	OpIndex ir.OperationIndex
	inner   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("builtincpu: op %s: %v", e.OpIndex, e.inner)
}
func (e *Error) Unwrap() error { return e.inner }

func newBuiltinError(op ir.OperationIndex, format string, args ...any) *Error {
	return &Error{OpIndex: op, inner: errors.Errorf(format, args...)}
}
