// Package engine implements the Tomasulo-style out-of-order pipeline core:
// register renaming, a bounded scheduling queue, wake-up/issue logic, and
// in-order retirement through a reorder buffer.
package engine

// NoReg is the sentinel used for "no register" in a destination or source
// field, and for "no in-flight producer" in a source tag.
const NoReg = -1

// Stage is the pipeline stage an instruction currently occupies. The set is
// closed and ordered; an instruction only ever moves forward through it.
type Stage int

const (
	StageIF Stage = iota
	StageID
	StageIS
	StageEX
	StageWB
)

// Timing records the start cycle and duration an instruction spent in one
// pipeline stage. Start is 0 until the instruction first enters the stage.
type Timing struct {
	Start    int
	Duration int
}

// stamped reports whether this Timing has been assigned a start cycle yet.
func (t Timing) stamped() bool {
	return t.Start != 0
}

// Instruction is a single in-flight instruction record. The reorder buffer
// owns it from Fetch until Retire; the dispatch queue, scheduling queue,
// and execute list hold non-owning references into the same record for as
// long as it occupies their stage.
type Instruction struct {
	Tag     int
	PC      uint64
	OpType  int
	DestReg int
	Src1Reg int
	Src2Reg int

	// Src1Tag/Src2Tag are the producer tags captured at Dispatch, or NoReg
	// if the operand was already available in the architectural register
	// file at rename time.
	Src1Tag int
	Src2Tag int

	// Src1Ready/Src2Ready are set by Execute's wake-up broadcast when the
	// producing instruction's tag enters the completed set.
	Src1Ready bool
	Src2Ready bool

	State Stage

	IF Timing
	ID Timing
	IS Timing
	EX Timing
	WB Timing

	// ExecuteCyclesLeft counts down from opLatency[OpType] while in EX.
	ExecuteCyclesLeft int
}

// newInstruction builds an Instruction at the point it is fetched; tag is
// the instruction's program-order index.
func newInstruction(tag int, pc uint64, opType, dest, src1, src2 int) *Instruction {
	return &Instruction{
		Tag:     tag,
		PC:      pc,
		OpType:  opType,
		DestReg: dest,
		Src1Reg: src1,
		Src2Reg: src2,
		Src1Tag: NoReg,
		Src2Tag: NoReg,
		State:   StageIF,
	}
}

// src1Ready reports whether source 1 is ready to be read: either the
// operand was never renamed to an in-flight producer, or that producer's
// tag is in the completed set.
func (i *Instruction) src1Ready(completed map[int]struct{}) bool {
	if i.Src1Tag == NoReg {
		return true
	}
	_, done := completed[i.Src1Tag]
	return done
}

// src2Ready mirrors src1Ready for source 2.
func (i *Instruction) src2Ready(completed map[int]struct{}) bool {
	if i.Src2Tag == NoReg {
		return true
	}
	_, done := completed[i.Src2Tag]
	return done
}

// ready reports whether both operands (that need a producer at all) are
// ready. An instruction cannot enter EX until this holds.
func (i *Instruction) ready(completed map[int]struct{}) bool {
	return i.src1Ready(completed) && i.src2Ready(completed)
}
