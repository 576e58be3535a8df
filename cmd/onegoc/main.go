// Command onegoc builds a small hand-written LoweredGraph and runs it through the whole
// executor construction pipeline (C1-C7), runs it once, and prints the graph's two outputs
// (plus the trace file path when -trace is set). It exists to exercise compiler.NewExecutor end to end the way a real caller
// (an importer + optimizer this module doesn't implement) eventually would.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/janpfeifer/must"
	"github.com/onegoml/onego/backend"
	"github.com/onegoml/onego/backend/builtincpu"
	"github.com/onegoml/onego/backend/refcpu"
	"github.com/onegoml/onego/compiler"
	"github.com/onegoml/onego/ir"
	"github.com/onegoml/onego/types/shapes"
	"k8s.io/klog/v2"
)

var (
	flagExecutor = flag.String("executor", "linear", "Executor flavor to build: linear, dataflow, or parallel.")
	flagWorkers  = flag.Int("workers", 0, "Worker pool size for -executor=parallel. 0 selects NumCPU, negative is unlimited.")
	flagProfile  = flag.Bool("profile", false, "Build with profiling mode on (sync-wrapped kernels, plus a ProfileObserver for non-linear executors). No timing is printed.")
	flagTrace    = flag.String("trace", "", "If set, write a Chrome-trace JSON file of the run to this path.")
	flagA        = flag.Float64("a", 1, "Value fed into the graph's first input.")
	flagB        = flag.Float64("b", 2, "Value fed into the graph's second input.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	kind, err := parseExecutorKind(*flagExecutor)
	if err != nil {
		klog.Errorf("%v", err)
		os.Exit(1)
	}

	lg, a, b, sum, result := buildDemoGraph()

	backends := map[ir.BackendID]backend.Backend{
		ir.BuiltinBackendID: builtincpu.New(""),
		refcpu.BackendID:    refcpu.New(""),
	}
	opts := compiler.CompilerOptions{
		Executor:        kind,
		HeProfilingMode: *flagProfile,
		TraceFilepath:   *flagTrace,
		ParallelWorkers: *flagWorkers,
	}
	executor := must.M1(compiler.NewExecutor(lg, backends, opts, nil))

	must.M(executor.SetInput(a, floatBytes(*flagA)))
	must.M(executor.SetInput(b, floatBytes(*flagB)))
	must.M(executor.Run())

	sumOut := must.M1(executor.GetOutput(sum))
	resultOut := must.M1(executor.GetOutput(result))
	fmt.Printf("sum    = %v (%s)\n", bytesToFloats(sumOut), humanize.Bytes(uint64(len(sumOut))))
	fmt.Printf("result = %v (%s)\n", bytesToFloats(resultOut), humanize.Bytes(uint64(len(resultOut))))

	if *flagTrace != "" {
		fmt.Printf("trace written to %s\n", *flagTrace)
	}
}

func parseExecutorKind(name string) (compiler.ExecutorKind, error) {
	switch name {
	case "linear":
		return compiler.Linear, nil
	case "dataflow":
		return compiler.Dataflow, nil
	case "parallel":
		return compiler.Parallel, nil
	default:
		return 0, fmt.Errorf("unknown -executor %q, want linear, dataflow, or parallel", name)
	}
}

// buildDemoGraph wires In(a), In(b) -> Add(a,b)=sum -> Relu(sum)=result, both ops on refcpu.
// a and b are graph inputs, so their IOTensors live in the builtin registry and refcpu reads
// them through migrant aliases; sum and result are refcpu-produced graph outputs, so their
// IOTensors are aliased back into refcpu's own registry. Small enough to read in full, big
// enough to exercise both directions of the builtin/refcpu boundary in the same run.
func buildDemoGraph() (lg *ir.LoweredGraph, a, b, sum, result ir.OperandIndex) {
	g := ir.NewGraph()
	a, b, sum, result = ir.OperandIndex(0), ir.OperandIndex(1), ir.OperandIndex(2), ir.OperandIndex(3)
	addOp, reluOp := ir.OperationIndex(0), ir.OperationIndex(1)

	shape := shapes.Make(shapes.Float32, 1)
	g.AddOperand(a, ir.NewOperand(a, shape))
	g.AddOperand(b, ir.NewOperand(b, shape))
	g.AddOperand(sum, ir.NewOperand(sum, shape))
	g.AddOperand(result, ir.NewOperand(result, shape))

	g.AddOperation(addOp, ir.NewOperation(addOp, ir.OpAdd, ir.IndexSequence{a, b}, ir.IndexSequence{sum}))
	g.AddOperation(reluOp, ir.NewOperation(reluOp, ir.OpRelu, ir.IndexSequence{sum}, ir.IndexSequence{result}))

	g.Operand(a).AddUse(addOp)
	g.Operand(b).AddUse(addOp)
	g.Operand(sum).SetDef(addOp)
	g.Operand(sum).AddUse(reluOp)
	g.Operand(result).SetDef(reluOp)

	g.AddInput(a)
	g.AddInput(b)
	g.AddOutput(sum)
	g.AddOutput(result)

	lg = ir.NewLoweredGraph(g)
	lg.SetOperandBackend(a, ir.DefFactor{Backend: ir.BuiltinBackendID, Layout: ir.LayoutNHWC})
	lg.SetOperandBackend(b, ir.DefFactor{Backend: ir.BuiltinBackendID, Layout: ir.LayoutNHWC})
	lg.SetOperandBackend(sum, ir.DefFactor{Backend: refcpu.BackendID, Layout: ir.LayoutNHWC})
	lg.SetOperandBackend(result, ir.DefFactor{Backend: refcpu.BackendID, Layout: ir.LayoutNHWC})
	lg.SetOperationBackend(addOp, refcpu.BackendID)
	lg.SetOperationBackend(reluOp, refcpu.BackendID)
	return lg, a, b, sum, result
}

// floatBytes encodes a single float32 scalar the way every operand in the demo graph is
// shaped, matching refcpu's own little-endian float32 codec.
func floatBytes(v float64) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(v)))
	return buf
}

func bytesToFloats(buf []byte) []float32 {
	out := make([]float32, len(buf)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out
}
