package exec

import (
	"testing"
	"time"

	"github.com/onegoml/onego/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileObserver_RecordsDuration(t *testing.T) {
	table := NewExecTime()
	obs := NewProfileObserver(table)
	obs.OnBegin(ir.OperationIndex(0), "cpu")
	time.Sleep(time.Millisecond)
	obs.OnEnd(ir.OperationIndex(0), "cpu")

	require.Equal(t, 1, table.Count("cpu"))
	require.Greater(t, table.Total("cpu"), time.Duration(0))
}

func TestProfileObserver_ErrorClearsPendingBegin(t *testing.T) {
	table := NewExecTime()
	obs := NewProfileObserver(table)
	obs.OnBegin(ir.OperationIndex(0), "cpu")
	obs.OnError(ir.OperationIndex(0), "cpu", assert.AnError)
	obs.OnEnd(ir.OperationIndex(0), "cpu")
	require.Equal(t, 0, table.Count("cpu"))
}
