package engine

import (
	"context"
)

// Record is one decoded instruction as produced by the trace reader: the
// engine's only input contract. Record is deliberately decoupled from
// internal/trace's file-parsing type so the engine package has no
// dependency on how records are read.
type Record struct {
	PC      uint64
	OpType  int
	DestReg int
	Src1Reg int
	Src2Reg int
}

// RetiredInstruction is everything about a retired instruction that
// internal/report needs to format its output line. The engine never
// formats strings itself; output formatting is a separate collaborator's
// concern.
type RetiredInstruction struct {
	Tag     int
	OpType  int
	DestReg int
	Src1Reg int
	Src2Reg int
	IF      Timing
	ID      Timing
	IS      Timing
	EX      Timing
	WB      Timing
}

// Stats holds the aggregate statistics reported after the last retirement.
type Stats struct {
	Instructions int
	Cycles       int
}

// IPC returns instructions retired per cycle.
func (s Stats) IPC() float64 {
	if s.Cycles == 0 {
		return 0
	}
	return float64(s.Instructions) / float64(s.Cycles)
}

// Engine is the Tomasulo pipeline state machine: superscalar width N,
// scheduling-queue capacity S, and the shared mutable state (rename map,
// ROB, bounded queues, completed set, cycle counter) the five stage
// handlers operate on once per cycle. An Engine is not safe for concurrent
// use; it is driven by a single serial cycle loop.
type Engine struct {
	n int
	s int

	cycle int

	rob           *reorderBuffer
	dispatchQueue []*Instruction
	scheduleQueue []*Instruction
	executeList   []*Instruction

	renameMap *RenameMap
	completed map[int]struct{}
	latency   *LatencyTable

	source   []Record
	sourceAt int
	nextTag  int

	totalInstructions int

	onRetire func(RetiredInstruction)
}

// EngineOption configures an Engine at construction time using the
// functional-options pattern.
type EngineOption func(*Engine)

// WithRetireCallback sets the function invoked once per retired
// instruction, in retirement (= tag) order. The engine never formats
// output itself; internal/report supplies a callback that renders the
// per-instruction line format to an io.Writer.
func WithRetireCallback(fn func(RetiredInstruction)) EngineOption {
	return func(e *Engine) {
		e.onRetire = fn
	}
}

// WithLatencyTable overrides the default {1,2,10} op_type latency table.
func WithLatencyTable(table *LatencyTable) EngineOption {
	return func(e *Engine) {
		e.latency = table
	}
}

// New creates an Engine with superscalar width n and scheduling-queue
// capacity s. Both must be positive.
func New(n, s int, opts ...EngineOption) *Engine {
	if n <= 0 {
		panic("engine: N must be positive")
	}
	if s <= 0 {
		panic("engine: S must be positive")
	}

	e := &Engine{
		n:         n,
		s:         s,
		rob:       newReorderBuffer(),
		renameMap: newRenameMap(),
		completed: make(map[int]struct{}),
		latency:   DefaultLatencyTable(),
		onRetire:  func(RetiredInstruction) {},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run drains source through the pipeline to completion: every record is
// fetched, every fetched instruction retires, and the configured retire
// callback fires once per retirement in tag order. ctx is checked once per
// cycle as a cooperative cancellation guard; nothing else in the engine
// depends on it.
//
// The cycle counter advances at the top of each iteration, before the five
// handlers run, so the first instruction's IF stage is stamped at cycle 1
// rather than cycle 0. Stats.Cycles is simply the counter's value when the
// loop ends — the cycle the last retirement happened on.
func (e *Engine) Run(ctx context.Context, source []Record) (Stats, error) {
	e.source = source
	e.sourceAt = 0

	for {
		if err := ctx.Err(); err != nil {
			return Stats{}, err
		}

		e.cycle++

		e.retire()
		e.execute()
		e.issue()
		e.dispatch()
		e.fetch()

		if e.rob.empty() && e.sourceAt >= len(e.source) {
			break
		}
	}

	return Stats{
		Instructions: e.totalInstructions,
		Cycles:       e.cycle,
	}, nil
}

// emit hands one retired instruction's data to the configured callback, in
// retirement order.
func (e *Engine) emit(inst *Instruction) {
	e.onRetire(RetiredInstruction{
		Tag:     inst.Tag,
		OpType:  inst.OpType,
		DestReg: inst.DestReg,
		Src1Reg: inst.Src1Reg,
		Src2Reg: inst.Src2Reg,
		IF:      inst.IF,
		ID:      inst.ID,
		IS:      inst.IS,
		EX:      inst.EX,
		WB:      inst.WB,
	})
}
