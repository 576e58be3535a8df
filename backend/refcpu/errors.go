package refcpu

import (
	"fmt"

	"github.com/onegoml/onego/ir"
	"github.com/pkg/errors"
)

// Error reports a refcpu kernel-generation failure: an op kind refcpu doesn't implement, or an
// operand missing from its own tensor registry.
type Error struct {
	OpIndex ir.OperationIndex
	inner   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("refcpu: op %s: %v", e.OpIndex, e.inner)
}
func (e *Error) Unwrap() error { return e.inner }

func newRefError(op ir.OperationIndex, format string, args ...any) *Error {
	return &Error{OpIndex: op, inner: errors.Errorf(format, args...)}
}
