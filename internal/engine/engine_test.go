package engine_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archlab/tomasulo-sim/internal/engine"
)

// collect runs src through a freshly constructed Engine and returns the
// retired instructions in retirement (tag) order, alongside the final Stats.
func collect(n, s int, src []engine.Record, opts ...engine.EngineOption) ([]engine.RetiredInstruction, engine.Stats) {
	var retired []engine.RetiredInstruction
	allOpts := append([]engine.EngineOption{
		engine.WithRetireCallback(func(ri engine.RetiredInstruction) {
			retired = append(retired, ri)
		}),
	}, opts...)

	e := engine.New(n, s, allOpts...)
	stats, err := e.Run(context.Background(), src)
	Expect(err).NotTo(HaveOccurred())
	return retired, stats
}

var _ = Describe("Engine", func() {
	Describe("Scenario A: a single independent instruction", func() {
		It("stamps every stage one cycle apart, starting at cycle 1", func() {
			src := []engine.Record{
				{PC: 0x1000, OpType: 0, DestReg: 1, Src1Reg: 2, Src2Reg: 3},
			}
			retired, stats := collect(1, 1, src)

			Expect(retired).To(HaveLen(1))
			inst := retired[0]
			Expect(inst.IF).To(Equal(engine.Timing{Start: 1, Duration: 1}))
			Expect(inst.ID).To(Equal(engine.Timing{Start: 2, Duration: 1}))
			Expect(inst.IS).To(Equal(engine.Timing{Start: 3, Duration: 1}))
			Expect(inst.EX).To(Equal(engine.Timing{Start: 4, Duration: 1}))
			Expect(inst.WB).To(Equal(engine.Timing{Start: 5, Duration: 1}))

			Expect(stats.Instructions).To(Equal(1))
			Expect(stats.Cycles).To(Equal(6))
			Expect(stats.IPC()).To(BeNumerically("~", 1.0/6.0, 0.005))
		})
	})

	Describe("Scenario B: a pure RAW dependency chain", func() {
		// Each instruction's sole source operand is the previous
		// instruction's destination, so every issue after the first is
		// gated on its producer's tag entering the completed set.
		It("delays each dependent instruction's issue until its producer completes", func() {
			src := []engine.Record{
				{PC: 0x1000, OpType: 0, DestReg: 1, Src1Reg: engine.NoReg, Src2Reg: engine.NoReg},
				{PC: 0x1004, OpType: 0, DestReg: 2, Src1Reg: 1, Src2Reg: engine.NoReg},
				{PC: 0x1008, OpType: 0, DestReg: 3, Src1Reg: 2, Src2Reg: engine.NoReg},
			}
			retired, stats := collect(1, 4, src)
			Expect(retired).To(HaveLen(3))

			// The producer-less head of the chain behaves exactly like
			// Scenario A.
			Expect(retired[0].EX.Start).To(Equal(4))

			// Each dependent instruction can only enter EX once its
			// producer's tag is visible in the completed set, which
			// Execute populates one cycle after the producer's own EX
			// stage (its ExecuteCyclesLeft only reaches zero on the next
			// cycle Execute runs). Execute runs before Issue, so the
			// dependent can issue on that same cycle: EX.Start strictly
			// increases down the chain, one cycle per link here.
			Expect(retired[1].EX.Start).To(BeNumerically(">", retired[0].EX.Start))
			Expect(retired[2].EX.Start).To(BeNumerically(">", retired[1].EX.Start))

			// Retirement order always matches program (tag) order.
			Expect(retired[0].DestReg).To(Equal(1))
			Expect(retired[1].DestReg).To(Equal(2))
			Expect(retired[2].DestReg).To(Equal(3))

			Expect(stats.Instructions).To(Equal(3))
		})
	})

	Describe("Scenario C: structural stall at a saturated execute list", func() {
		It("stalls the third instruction in ID for at least the second instruction's EX latency", func() {
			// N=1 bounds the execute list itself to one entry: the single
			// functional unit is occupied by the first instruction's full
			// 10-cycle execution, so the second instruction cannot even
			// issue until it completes, and the third instruction backs up
			// behind the already-saturated (cap 1) scheduling queue for
			// most of that same span.
			src := []engine.Record{
				{PC: 0x1000, OpType: 2, DestReg: 1, Src1Reg: engine.NoReg, Src2Reg: engine.NoReg},
				{PC: 0x1004, OpType: 2, DestReg: 2, Src1Reg: engine.NoReg, Src2Reg: engine.NoReg},
				{PC: 0x1008, OpType: 2, DestReg: 3, Src1Reg: engine.NoReg, Src2Reg: engine.NoReg},
				{PC: 0x100C, OpType: 2, DestReg: 4, Src1Reg: engine.NoReg, Src2Reg: engine.NoReg},
			}
			retired, _ := collect(1, 1, src)
			Expect(retired).To(HaveLen(4))

			Expect(retired[2].ID.Duration).To(BeNumerically(">=", 10))
		})
	})

	Describe("Scenario D: a WAW hazard masked by renaming", func() {
		It("lets both instructions issue in the same cycle despite sharing a destination", func() {
			src := []engine.Record{
				{PC: 0x1000, OpType: 1, DestReg: 5, Src1Reg: engine.NoReg, Src2Reg: engine.NoReg},
				{PC: 0x1004, OpType: 1, DestReg: 5, Src1Reg: engine.NoReg, Src2Reg: engine.NoReg},
			}
			retired, _ := collect(2, 2, src)
			Expect(retired).To(HaveLen(2))

			Expect(retired[1].EX.Start).To(Equal(retired[0].EX.Start))
		})
	})

	Describe("Scenario E: an operand already retired by the time its consumer dispatches", func() {
		It("treats a stale rename-map entry as already available", func() {
			src := []engine.Record{
				{PC: 0x1000, OpType: 0, DestReg: 1, Src1Reg: engine.NoReg, Src2Reg: engine.NoReg},
				{PC: 0x1004, OpType: 0, DestReg: 2, Src1Reg: engine.NoReg, Src2Reg: engine.NoReg},
				{PC: 0x1008, OpType: 0, DestReg: 3, Src1Reg: engine.NoReg, Src2Reg: engine.NoReg},
				{PC: 0x100C, OpType: 0, DestReg: 4, Src1Reg: engine.NoReg, Src2Reg: engine.NoReg},
				{PC: 0x1010, OpType: 0, DestReg: 6, Src1Reg: 1, Src2Reg: engine.NoReg},
			}
			retired, _ := collect(1, 4, src)
			Expect(retired).To(HaveLen(5))

			// By the time tag 4 dispatches, tag 0 (its producer for
			// register 1) has already retired; the engine must still
			// resolve the dependency correctly rather than stalling
			// forever or treating the operand as unready.
			last := retired[4]
			Expect(last.DestReg).To(Equal(6))
			Expect(last.WB.Start).To(BeNumerically(">", 0))
		})
	})

	Describe("Scenario F: throughput saturation with independent instructions", func() {
		It("approaches the superscalar width's IPC with enough independent work", func() {
			const count = 100
			src := make([]engine.Record, count)
			for i := range src {
				src[i] = engine.Record{
					PC:      0x1000 + uint64(i*4),
					OpType:  0,
					DestReg: engine.NoReg,
					Src1Reg: engine.NoReg,
					Src2Reg: engine.NoReg,
				}
			}
			retired, stats := collect(4, 16, src)
			Expect(retired).To(HaveLen(count))

			Expect(stats.Cycles).To(BeNumerically("<", 40))
			Expect(stats.IPC()).To(BeNumerically(">", 2.5))
		})
	})

	Describe("universal invariants", func() {
		It("never exceeds N transitions into EX on a single cycle", func() {
			const n = 2
			src := make([]engine.Record, 10)
			for i := range src {
				src[i] = engine.Record{PC: 0x1000, OpType: 0, DestReg: engine.NoReg, Src1Reg: engine.NoReg, Src2Reg: engine.NoReg}
			}

			exStartCounts := map[int]int{}
			retired, _ := collect(n, 16, src)
			for _, inst := range retired {
				exStartCounts[inst.EX.Start]++
			}
			for cycle, count := range exStartCounts {
				Expect(count).To(BeNumerically("<=", n), "cycle %d issued more than N instructions", cycle)
			}
		})

		It("retires instructions strictly in tag (program) order", func() {
			src := []engine.Record{
				{PC: 0x1000, OpType: 2, DestReg: 1, Src1Reg: engine.NoReg, Src2Reg: engine.NoReg},
				{PC: 0x1004, OpType: 0, DestReg: 2, Src1Reg: engine.NoReg, Src2Reg: engine.NoReg},
				{PC: 0x1008, OpType: 0, DestReg: 3, Src1Reg: engine.NoReg, Src2Reg: engine.NoReg},
			}
			retired, _ := collect(1, 4, src)
			Expect(retired).To(HaveLen(3))
			Expect(retired[0].DestReg).To(Equal(1))
			Expect(retired[1].DestReg).To(Equal(2))
			Expect(retired[2].DestReg).To(Equal(3))
		})

		It("is deterministic across repeated runs of the same trace", func() {
			src := []engine.Record{
				{PC: 0x1000, OpType: 1, DestReg: 1, Src1Reg: engine.NoReg, Src2Reg: engine.NoReg},
				{PC: 0x1004, OpType: 0, DestReg: 2, Src1Reg: 1, Src2Reg: engine.NoReg},
				{PC: 0x1008, OpType: 2, DestReg: 3, Src1Reg: engine.NoReg, Src2Reg: 2},
			}
			first, firstStats := collect(2, 4, src)
			second, secondStats := collect(2, 4, src)

			Expect(second).To(Equal(first))
			Expect(secondStats).To(Equal(firstStats))
		})
	})

	Describe("configuration", func() {
		It("uses an overridden latency table for execute duration", func() {
			table := engine.DefaultLatencyTable()
			table.Op0Latency = 7
			src := []engine.Record{
				{PC: 0x1000, OpType: 0, DestReg: 1, Src1Reg: engine.NoReg, Src2Reg: engine.NoReg},
			}
			retired, _ := collect(1, 1, src, engine.WithLatencyTable(table))
			Expect(retired).To(HaveLen(1))
			Expect(retired[0].EX.Duration).To(Equal(7))
		})
	})

	Describe("New", func() {
		It("panics on a non-positive superscalar width", func() {
			Expect(func() { engine.New(0, 1) }).To(Panic())
		})

		It("panics on a non-positive scheduling-queue capacity", func() {
			Expect(func() { engine.New(1, 0) }).To(Panic())
		})
	})
})
