package compiler

// ExecutorKind selects which of the three C7 executor flavors C6 instantiates.
type ExecutorKind int

const (
	// Linear runs the precomputed topological order, single-threaded, with a dealloc plan.
	Linear ExecutorKind = iota
	// Dataflow runs a readiness-queue schedule, single-threaded cooperative.
	Dataflow
	// Parallel is a Dataflow executor that dispatches ready ops onto a worker pool.
	Parallel
)

func (k ExecutorKind) String() string {
	switch k {
	case Linear:
		return "linear"
	case Dataflow:
		return "dataflow"
	case Parallel:
		return "parallel"
	default:
		return "unknown"
	}
}

// CompilerOptions configures C6's executor construction, mirroring spec.md section 6's
// "Core inputs" list.
type CompilerOptions struct {
	// Executor selects Linear, Dataflow, or Parallel.
	Executor ExecutorKind

	// HeProfilingMode wraps every kernel with a SyncFunction and, for non-linear executors,
	// attaches a ProfileObserver backed by an ExecTime table.
	HeProfilingMode bool

	// TraceFilepath, if non-empty, attaches a TracingObserver that writes a Chrome-style JSON
	// trace to this path.
	TraceFilepath string

	// TracingCtx is an opaque handle threaded through to the TracingObserver, e.g. a run
	// identifier. May be nil.
	TracingCtx any

	// ParallelWorkers configures the worker pool behind a Parallel executor: 0 selects the
	// runtime's default parallelism (NumCPU), a positive value is an explicit cap, and a
	// negative value removes the cap (unlimited concurrent dispatch).
	ParallelWorkers int
}
