// Package exec implements C7: the three executor flavors (Linear, Dataflow, Parallel) that
// run the function sequences compiler.GenerateKernels produced, honoring the data
// dependencies recorded in a LoweredGraph.
package exec

import (
	"io"
	"sync"

	"github.com/onegoml/onego/backend"
	"github.com/onegoml/onego/ir"
	"github.com/onegoml/onego/tensor"
)

// IFunction is one runnable step of a kernel's function sequence.
type IFunction = backend.Function

// FunctionSequence is the ordered list of steps a backend produced for one operation.
type FunctionSequence = backend.FunctionSequence

// CodeMap is C5's output: every operation's function sequence, ready to run, keyed by
// operation index.
type CodeMap map[ir.OperationIndex]FunctionSequence

// IExecutor is the contract every C7 executor variant implements.
type IExecutor interface {
	// Run blocks until every operation has executed, or a kernel fails.
	Run() error

	// Graph returns the original whole graph, for observer attribution.
	Graph() *ir.Graph

	// AddObserver registers obs to be notified as operations begin, end, or fail.
	AddObserver(obs Observer)

	// SetInput copies data into the IOTensor at index. index must name a whole-graph boundary
	// operand (input or output) whose IOTensor is in the builtin registry.
	SetInput(index ir.OperandIndex, data []byte) error

	// GetOutput returns a copy of the IOTensor's buffer at index. index must be one of the
	// whole graph's declared outputs.
	GetOutput(index ir.OperandIndex) ([]byte, error)
}

// base holds the state and boundary-tensor plumbing common to every executor variant.
type base struct {
	loweredGraph     *ir.LoweredGraph
	backendContexts  map[ir.BackendID]backend.BackendContext
	tensorRegistries map[ir.BackendID]*tensor.Registry
	builtinBackend   ir.BackendID

	mu        sync.Mutex
	observers []Observer
}

func newBase(lg *ir.LoweredGraph, contexts map[ir.BackendID]backend.BackendContext, registries map[ir.BackendID]*tensor.Registry, builtinBackend ir.BackendID) base {
	return base{
		loweredGraph:     lg,
		backendContexts:  contexts,
		tensorRegistries: registries,
		builtinBackend:   builtinBackend,
	}
}

func (b *base) Graph() *ir.Graph { return b.loweredGraph.Graph() }

func (b *base) AddObserver(obs Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = append(b.observers, obs)
}

func (b *base) notifyBegin(op ir.OperationIndex, backendID ir.BackendID) {
	b.mu.Lock()
	observers := append([]Observer(nil), b.observers...)
	b.mu.Unlock()
	for _, obs := range observers {
		obs.OnBegin(op, backendID)
	}
}

func (b *base) notifyEnd(op ir.OperationIndex, backendID ir.BackendID) {
	b.mu.Lock()
	observers := append([]Observer(nil), b.observers...)
	b.mu.Unlock()
	for _, obs := range observers {
		obs.OnEnd(op, backendID)
	}
}

func (b *base) notifyError(op ir.OperationIndex, backendID ir.BackendID, err error) {
	b.mu.Lock()
	observers := append([]Observer(nil), b.observers...)
	b.mu.Unlock()
	for _, obs := range observers {
		obs.OnError(op, backendID, err)
	}
}

// closeObservers flushes every attached observer that implements io.Closer -- notably
// TracingObserver, which only writes its accumulated events to disk when Close runs.
func (b *base) closeObservers() error {
	b.mu.Lock()
	observers := append([]Observer(nil), b.observers...)
	b.mu.Unlock()
	var firstErr error
	for _, obs := range observers {
		closer, ok := obs.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// finish closes every observer once Run has produced its result, in success or failure.
// runErr takes precedence: a Close failure only surfaces when the run itself succeeded.
func (b *base) finish(runErr error) error {
	if err := b.closeObservers(); err != nil && runErr == nil {
		return err
	}
	return runErr
}

func (b *base) ioTensor(index ir.OperandIndex) (*tensor.IOTensor, error) {
	registry, ok := b.tensorRegistries[b.builtinBackend]
	if !ok {
		return nil, NewExecutionError(ir.OperationIndex(ir.Undefined), b.builtinBackend, "no builtin tensor registry installed")
	}
	it, found := registry.GetITensor(index)
	if !found {
		return nil, NewExecutionError(ir.OperationIndex(ir.Undefined), b.builtinBackend, "no IOTensor at operand "+index.String())
	}
	iot, ok := it.(*tensor.IOTensor)
	if !ok {
		return nil, NewExecutionError(ir.OperationIndex(ir.Undefined), b.builtinBackend, "operand "+index.String()+" is not an IOTensor")
	}
	return iot, nil
}

// runOp runs opIdx's function sequence from codeMap, notifying observers around it. It is
// shared by every executor variant; only the scheduling discipline around it differs.
func (b *base) runOp(g *ir.Graph, codeMap CodeMap, opIdx ir.OperationIndex) error {
	op := g.Operation(opIdx)
	backendID := op.Backend()
	seq := codeMap[opIdx]
	b.notifyBegin(opIdx, backendID)
	for _, fn := range seq {
		if err := fn.Run(); err != nil {
			b.notifyError(opIdx, backendID, err)
			return NewExecutionError(opIdx, backendID, err.Error())
		}
	}
	b.notifyEnd(opIdx, backendID)
	return nil
}

func (b *base) SetInput(index ir.OperandIndex, data []byte) error {
	iot, err := b.ioTensor(index)
	if err != nil {
		return err
	}
	iot.SetInput(data)
	return nil
}

func (b *base) GetOutput(index ir.OperandIndex) ([]byte, error) {
	iot, err := b.ioTensor(index)
	if err != nil {
		return nil, err
	}
	return iot.GetOutput(), nil
}
