package exec

import "github.com/onegoml/onego/ir"

// Observer is notified as each operation begins, ends, or fails. Implementations must be
// internally thread-safe: ParallelExecutor invokes them from whichever worker ran the op.
type Observer interface {
	OnBegin(op ir.OperationIndex, backend ir.BackendID)
	OnEnd(op ir.OperationIndex, backend ir.BackendID)
	OnError(op ir.OperationIndex, backend ir.BackendID, err error)
}
