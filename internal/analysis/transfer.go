package analysis

import (
	"retcheck/internal/cfg"
)

// emitFunc receives one candidate finding: flag is still unchecked when at executes
type emitFunc func(flag cfg.ValueRef, at *cfg.Instruction, severity Severity)

// transfer applies the effect of one instruction to state, in place
func (c *Classifier) transfer(state *AbstractState, instr *cfg.Instruction, emit emitFunc) {
	if ref, ok := c.ClassifyCall(instr); ok {
		// A value-bearing call is itself an effect guarded by earlier flags.
		// Its own previous flag is overwritten here, so it is not reported against itself.
		if c.IsMutatingEffect(instr) {
			c.reportLive(state, instr, SeverityHigh, ref, emit)
		}
		state.set(ref, Unchecked)
		return
	}

	checked := false
	for _, ref := range state.Unchecked() {
		if c.IsCheck(instr, ref) {
			state.set(ref, Checked)
			checked = true
		}
	}
	if checked {
		return
	}

	switch {
	case c.IsMutatingEffect(instr):
		c.reportLive(state, instr, SeverityHigh, cfg.NoValue, emit)
	case c.isExit(instr):
		c.reportLive(state, instr, SeverityMedium, cfg.NoValue, emit)
	}
}

func (c *Classifier) reportLive(state *AbstractState, at *cfg.Instruction, severity Severity, skip cfg.ValueRef, emit emitFunc) {
	if emit == nil {
		return
	}
	for _, ref := range state.Unchecked() {
		if ref != skip {
			emit(ref, at, severity)
		}
	}
}

// transferBlock runs every instruction of a block, terminator included, over state
func (c *Classifier) transferBlock(state *AbstractState, block *cfg.BasicBlock, emit emitFunc) {
	for _, instr := range block.All() {
		c.transfer(state, instr, emit)
	}
}
