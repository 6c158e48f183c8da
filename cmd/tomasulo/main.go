// Command tomasulo runs a cycle-accurate simulation of a superscalar,
// out-of-order pipeline over a decoded instruction trace.
//
// Usage:
//
//	tomasulo <N> <S> <trace_file>
//
// N is the superscalar width, S is the scheduling-queue capacity, and
// trace_file is a path to a line-oriented instruction trace (see
// internal/trace for the format).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/archlab/tomasulo-sim/internal/engine"
	"github.com/archlab/tomasulo-sim/internal/report"
	"github.com/archlab/tomasulo-sim/internal/trace"
)

var (
	latencyConfigPath = flag.String("latency-config", "", "Path to a JSON op_type latency table override")
	verbose           = flag.Bool("v", false, "Print the parsed configuration before running")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 3 {
		usage()
		os.Exit(1)
	}

	os.Exit(run(flag.Arg(0), flag.Arg(1), flag.Arg(2)))
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: tomasulo [options] <N> <S> <trace_file>\n\nOptions:\n")
	flag.PrintDefaults()
}

func run(nArg, sArg, tracePath string) int {
	n, err := strconv.Atoi(nArg)
	if err != nil || n <= 0 {
		fmt.Fprintf(os.Stderr, "tomasulo: N must be a positive integer, got %q\n", nArg)
		return 1
	}

	s, err := strconv.Atoi(sArg)
	if err != nil || s <= 0 {
		fmt.Fprintf(os.Stderr, "tomasulo: S must be a positive integer, got %q\n", sArg)
		return 1
	}

	records, err := trace.Read(tracePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tomasulo: %v\n", err)
		return 1
	}

	latencyTable := engine.DefaultLatencyTable()
	if *latencyConfigPath != "" {
		latencyTable, err = engine.LoadLatencyTable(*latencyConfigPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "tomasulo: %v\n", err)
			return 1
		}
	}

	if *verbose {
		fmt.Printf("N=%d S=%d trace=%s instructions=%d\n", n, s, tracePath, len(records))
	}

	eng := engine.New(n, s,
		engine.WithRetireCallback(report.InstructionWriter(os.Stdout)),
		engine.WithLatencyTable(latencyTable),
	)

	source := make([]engine.Record, len(records))
	for i, r := range records {
		source[i] = engine.Record{
			PC:      r.PC,
			OpType:  r.OpType,
			DestReg: r.DestReg,
			Src1Reg: r.Src1Reg,
			Src2Reg: r.Src2Reg,
		}
	}

	stats, err := eng.Run(context.Background(), source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tomasulo: %v\n", err)
		return 1
	}

	report.Summary(os.Stdout, n, s, stats)
	return 0
}
