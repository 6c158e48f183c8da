// Package report formats engine output: the per-instruction retirement
// line and the trailing configuration/results summary. This is kept
// separate from internal/engine so the engine stays a pure state machine
// that only ever produces structured data; formatting it is a separate
// collaborator's concern.
package report

import (
	"fmt"
	"io"

	"github.com/archlab/tomasulo-sim/internal/engine"
)

// InstructionWriter returns a callback suitable for
// engine.WithRetireCallback that writes one formatted line per retired
// instruction to w, in the exact field order and spacing the original
// reference implementation used.
func InstructionWriter(w io.Writer) func(engine.RetiredInstruction) {
	return func(ri engine.RetiredInstruction) {
		fmt.Fprintf(w,
			"%d  fu{%d} src{%d,%d} dst{%d} IF{%d,%d} ID{%d,%d} IS{%d,%d} EX{%d,%d} WB{%d,%d}\n",
			ri.Tag, ri.OpType, ri.Src1Reg, ri.Src2Reg, ri.DestReg,
			ri.IF.Start, ri.IF.Duration,
			ri.ID.Start, ri.ID.Duration,
			ri.IS.Start, ri.IS.Duration,
			ri.EX.Start, ri.EX.Duration,
			ri.WB.Start, ri.WB.Duration,
		)
	}
}

// Summary writes the trailing CONFIGURATION/RESULTS block.
func Summary(w io.Writer, n, s int, stats engine.Stats) {
	fmt.Fprintln(w, "CONFIGURATION")
	fmt.Fprintf(w, " superscalar bandwidth (N)      = %d\n", n)
	fmt.Fprintf(w, " dispatch queue size (2*N)      = %d\n", 2*n)
	fmt.Fprintf(w, " schedule queue size (S)        = %d\n", s)
	fmt.Fprintln(w, "RESULTS")
	fmt.Fprintf(w, " number of instructions = %d\n", stats.Instructions)
	fmt.Fprintf(w, " number of cycles       = %d\n", stats.Cycles)
	fmt.Fprintf(w, " IPC                    = %.2f\n", stats.IPC())
}
