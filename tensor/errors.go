package tensor

import (
	"fmt"

	"github.com/onegoml/onego/ir"
	"github.com/pkg/errors"
)

// TensorError reports that a kernel generator requested a tensor that is present in neither
// its own registry nor any other backend's registry.
type TensorError struct {
	Index   ir.OperandIndex
	Backend ir.BackendID
	inner   error
}

func (e *TensorError) Error() string {
	return fmt.Sprintf("tensor: operand %s not found in backend %q registry or any other: %v", e.Index, e.Backend, e.inner)
}

func (e *TensorError) Unwrap() error { return e.inner }

// NewTensorError wraps msg with a stack via github.com/pkg/errors, the same wrapping style
// the teacher uses throughout its lower layers.
func NewTensorError(index ir.OperandIndex, backend ir.BackendID, msg string) *TensorError {
	return &TensorError{Index: index, Backend: backend, inner: errors.New(msg)}
}
