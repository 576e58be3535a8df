package compiler

import (
	"github.com/onegoml/onego/backend"
	"github.com/onegoml/onego/exec"
	"github.com/onegoml/onego/ir"
	"github.com/onegoml/onego/tensor"
	"k8s.io/klog/v2"
)

// NewExecutor implements C6: run C1 through C5 (C4 only for a Linear build), then instantiate
// and return the executor flavor opts.Executor selects, with tracing/profiling observers
// attached per opts.
func NewExecutor(lg *ir.LoweredGraph, backends map[ir.BackendID]backend.Backend, opts CompilerOptions, kernelBuilder any) (exec.IExecutor, error) {
	isLinear := opts.Executor == Linear

	partials, err := Partition(lg)
	if err != nil {
		return nil, err
	}

	contexts, err := NewBackendContexts(partials, backends, isLinear, kernelBuilder)
	if err != nil {
		return nil, err
	}

	if err := WireTensors(lg, contexts); err != nil {
		return nil, err
	}

	registries := make(map[ir.BackendID]*tensor.Registry, len(contexts))
	for id, ctx := range contexts {
		registries[id] = ctx.TensorRegistry()
	}

	var order []ir.OperationIndex
	var plan DeallocPlan
	if isLinear {
		order = lg.Graph().TopologicalOrder()
		plan = PlanDeallocs(lg.Graph(), order)
	}

	codeMap, err := GenerateKernels(lg.Graph(), contexts, registries, plan, isLinear, opts.HeProfilingMode)
	if err != nil {
		return nil, err
	}

	var executor exec.IExecutor
	switch opts.Executor {
	case Linear:
		executor = exec.NewLinearExecutor(lg, contexts, registries, ir.BuiltinBackendID, codeMap, order)
	case Dataflow:
		executor = exec.NewDataflowExecutor(lg, contexts, registries, ir.BuiltinBackendID, codeMap)
	case Parallel:
		executor = exec.NewParallelExecutor(lg, contexts, registries, ir.BuiltinBackendID, codeMap, opts.ParallelWorkers)
	default:
		return nil, newConfigError("unsupported executor kind %v", opts.Executor)
	}

	if opts.TraceFilepath != "" {
		executor.AddObserver(exec.NewTracingObserver(opts.TraceFilepath, opts.TracingCtx))
	}
	if opts.HeProfilingMode && opts.Executor != Linear {
		executor.AddObserver(exec.NewProfileObserver(exec.NewExecTime()))
	}

	klog.V(1).InfoS("executor constructed", "kind", opts.Executor, "backends", len(contexts), "profiling", opts.HeProfilingMode)
	return executor, nil
}
