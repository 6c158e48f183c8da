package engine

import "sort"

// fetch admits new instructions in program order. While fewer than N
// instructions have been fetched this cycle, the dispatch queue has room
// (< 2N entries), and the source isn't exhausted, the next record is
// admitted as a new instruction in state IF. Afterward, any dispatch-queue
// entry that has spent one full cycle in IF moves to ID.
func (e *Engine) fetch() {
	fetched := 0
	for fetched < e.n && len(e.dispatchQueue) < 2*e.n && e.sourceAt < len(e.source) {
		rec := e.source[e.sourceAt]
		e.sourceAt++

		inst := newInstruction(e.nextTag, rec.PC, rec.OpType, rec.DestReg, rec.Src1Reg, rec.Src2Reg)
		e.nextTag++
		inst.IF = Timing{e.cycle, 1}

		e.rob.push(inst)
		if len(e.dispatchQueue) >= 2*e.n {
			panic("engine: dispatch queue overflow")
		}
		e.dispatchQueue = append(e.dispatchQueue, inst)
		e.totalInstructions++
		fetched++
	}

	for _, inst := range e.dispatchQueue {
		if inst.State == StageIF && e.cycle > inst.IF.Start {
			inst.State = StageID
		}
	}
}

// dispatch performs register renaming plus admission from the dispatch
// queue into the scheduling queue, up to N per cycle and bounded by the
// scheduling queue's capacity S. Candidates are processed in ascending tag
// (program) order.
func (e *Engine) dispatch() {
	var candidates []*Instruction
	for _, inst := range e.dispatchQueue {
		if inst.State != StageID {
			continue
		}
		if inst.ID.stamped() {
			inst.ID.Duration++
		}
		candidates = append(candidates, inst)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Tag < candidates[j].Tag })

	dispatched := 0
	for _, inst := range candidates {
		if dispatched >= e.n || len(e.scheduleQueue) >= e.s {
			if !inst.ID.stamped() {
				inst.ID = Timing{inst.IF.Start + inst.IF.Duration, 1}
			}
			continue
		}

		if !inst.ID.stamped() {
			inst.ID = Timing{inst.IF.Start + inst.IF.Duration, 1}
		}

		renameSource(inst.Src1Reg, &inst.Src1Tag, e.renameMap)
		renameSource(inst.Src2Reg, &inst.Src2Tag, e.renameMap)
		if inst.DestReg != NoReg {
			e.renameMap.Set(inst.DestReg, inst.Tag)
		}

		inst.State = StageIS
		e.dispatchQueue = removeInstruction(e.dispatchQueue, inst)
		if len(e.scheduleQueue) >= e.s {
			panic("engine: scheduling queue overflow")
		}
		e.scheduleQueue = append(e.scheduleQueue, inst)
		inst.IS = Timing{inst.ID.Start + inst.ID.Duration, 1}
		dispatched++
	}
}

// renameSource resolves one source register at Dispatch: if it maps to an
// in-flight producer, the producer's tag is captured; otherwise the
// operand is already available and the tag is NoReg.
func renameSource(reg int, tag *int, m *RenameMap) {
	if reg == NoReg {
		*tag = NoReg
		return
	}
	if producer, ok := m.Lookup(reg); ok {
		*tag = producer
		return
	}
	*tag = NoReg
}

// issue selects up to N operand-ready entries from the scheduling queue,
// sorted by tag, and moves them to Execute. Renaming at Dispatch already
// eliminates WAW hazards, so Issue performs no WAW check of its own.
func (e *Engine) issue() {
	var ready []*Instruction
	for _, inst := range e.scheduleQueue {
		if inst.State != StageIS || e.cycle < inst.IS.Start {
			continue
		}
		if inst.ready(e.completed) {
			ready = append(ready, inst)
		} else {
			inst.IS.Duration++
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i].Tag < ready[j].Tag })

	// The execute list holds at most N entries at any time: N models a
	// fixed count of functional units, so a long-latency instruction
	// occupies one for its whole execution, not just the cycle it issues
	// on. issued therefore has to respect both the per-cycle issue-width
	// cap and whatever headroom len(executeList) leaves.
	issued := 0
	var couldNotIssue []*Instruction
	for _, inst := range ready {
		if issued >= e.n || len(e.executeList) >= e.n {
			couldNotIssue = append(couldNotIssue, inst)
			continue
		}

		e.scheduleQueue = removeInstruction(e.scheduleQueue, inst)

		latency := e.latency.Latency(inst.OpType)
		inst.EX = Timing{inst.IS.Start + inst.IS.Duration, latency}
		inst.ExecuteCyclesLeft = latency
		inst.State = StageEX
		if len(e.executeList) >= e.n {
			panic("engine: execute list overflow")
		}
		e.executeList = append(e.executeList, inst)
		issued++
	}

	for _, inst := range couldNotIssue {
		inst.IS.Duration++
	}
}

// execute counts down ExecuteCyclesLeft for every in-flight execution; when
// it reaches zero the tag joins the completed set (the broadcast a
// dependent's wake-up check looks at) and dependents waiting on it wake up.
func (e *Engine) execute() {
	remaining := e.executeList[:0]
	for _, inst := range e.executeList {
		if e.cycle < inst.EX.Start {
			remaining = append(remaining, inst)
			continue
		}

		inst.ExecuteCyclesLeft--
		if inst.ExecuteCyclesLeft > 0 {
			remaining = append(remaining, inst)
			continue
		}

		e.completed[inst.Tag] = struct{}{}
		inst.State = StageWB
		inst.WB = Timing{inst.EX.Start + inst.EX.Duration, 1}

		for _, dep := range e.scheduleQueue {
			if dep.Src1Tag == inst.Tag {
				dep.Src1Ready = true
			}
			if dep.Src2Tag == inst.Tag {
				dep.Src2Ready = true
			}
		}
	}
	e.executeList = remaining
}

// retire pops the ROB head, in tag order, once it has spent its WB cycle.
func (e *Engine) retire() {
	for {
		inst := e.rob.front()
		if inst == nil || inst.State != StageWB || e.cycle < inst.WB.Start+inst.WB.Duration {
			break
		}
		e.emit(inst)
		e.rob.popFront()
	}
}

// removeInstruction deletes inst from queue, preserving the order of the
// remaining entries (dispatch and issue both require tag-ascending order
// to be stable across removals).
func removeInstruction(queue []*Instruction, inst *Instruction) []*Instruction {
	for i, candidate := range queue {
		if candidate == inst {
			return append(queue[:i], queue[i+1:]...)
		}
	}
	return queue
}
