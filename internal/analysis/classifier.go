package analysis

import (
	"fmt"

	"github.com/tliron/commonlog"

	"retcheck/internal/cfg"
)

var log = commonlog.GetLogger("retcheck.analysis")

// Warning records an instruction the classifier could not interpret
type Warning struct {
	Loc     cfg.Location
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Loc, w.Message)
}

type instrKey struct {
	block, index int
}

func keyOf(instr *cfg.Instruction) instrKey {
	return instrKey{instr.Loc.Block, instr.Loc.Index}
}

// Classifier answers the three questions the transfer functions ask about an
// instruction: does it produce a success flag, does it consult one, does it
// mutate state. It is built once per function and never fails.
type Classifier struct {
	graph     *cfg.ControlFlowGraph
	policy    Policy
	defs      map[cfg.ValueRef]*cfg.Instruction
	redefined map[cfg.ValueRef]bool
	calls     map[cfg.ValueRef]*cfg.Instruction
	malformed map[instrKey]bool
	warnings  []Warning
}

// NewClassifier indexes value definitions of a graph and flags malformed instructions
func NewClassifier(g *cfg.ControlFlowGraph, policy Policy) *Classifier {
	if policy.MaxCheckDepth < 0 {
		policy.MaxCheckDepth = 0
	}
	c := &Classifier{
		graph:     g,
		policy:    policy,
		defs:      make(map[cfg.ValueRef]*cfg.Instruction),
		redefined: make(map[cfg.ValueRef]bool),
		calls:     make(map[cfg.ValueRef]*cfg.Instruction),
		malformed: make(map[instrKey]bool),
	}
	for block := range g.Blocks() {
		for _, instr := range block.All() {
			c.annotate(instr)
		}
	}
	return c
}

func (c *Classifier) annotate(instr *cfg.Instruction) {
	if reason := shapeProblem(instr); reason != "" {
		c.malformed[keyOf(instr)] = true
		c.warn(instr, reason)
		return
	}
	for _, out := range instr.Outputs {
		if _, dup := c.defs[out]; dup {
			c.redefined[out] = true
			c.warn(instr, fmt.Sprintf("value %s defined more than once", c.graph.ValueName(out)))
			continue
		}
		c.defs[out] = instr
	}
	if ref, ok := c.ClassifyCall(instr); ok {
		c.calls[ref] = instr
	}
}

func shapeProblem(instr *cfg.Instruction) string {
	switch {
	case !instr.Op.Known():
		return fmt.Sprintf("unrecognized operation %s", instr.Op)
	case instr.Op == cfg.OpBranch && len(instr.Inputs) == 0:
		return "branch without a condition"
	case instr.Op == cfg.OpRequire && len(instr.Inputs) == 0:
		return "require without a condition"
	case instr.Op.IsBoolean() && len(instr.Inputs) == 0:
		return fmt.Sprintf("%s without operands", instr.Op)
	case instr.Op.IsBoolean() && len(instr.Outputs) == 0:
		return fmt.Sprintf("%s result is discarded", instr.Op)
	case instr.Op == cfg.OpStaticCall && instr.Value == cfg.ValueNonZero:
		return "STATICCALL cannot transfer value"
	case instr.Op == cfg.OpInvoke && instr.Callee == "":
		return "internal call without a callee"
	}
	return ""
}

func (c *Classifier) warn(instr *cfg.Instruction, message string) {
	w := Warning{Loc: instr.Loc, Message: message}
	log.Warningf("%s: %s", c.graph.Name(), w)
	c.warnings = append(c.warnings, w)
}

// Warnings returns the classification warnings collected for the function
func (c *Classifier) Warnings() []Warning {
	return c.warnings
}

// CallSites returns the number of distinct success flags produced in the function
func (c *Classifier) CallSites() int {
	return len(c.calls)
}

// CallSite returns the instruction that produced a success flag
func (c *Classifier) CallSite(ref cfg.ValueRef) (*cfg.Instruction, bool) {
	instr, ok := c.calls[ref]
	return instr, ok
}

// ClassifyCall returns the success flag of a low-level call, if instr is one
func (c *Classifier) ClassifyCall(instr *cfg.Instruction) (cfg.ValueRef, bool) {
	if !instr.Op.IsExternalCall() || c.malformed[keyOf(instr)] {
		return cfg.NoValue, false
	}
	return instr.SuccessFlag()
}

// IsCheck reports whether instr consults ref: a branch or require whose
// condition is ref or is derived from it through at most MaxCheckDepth pure
// boolean operations. Deeper or opaque derivations do not count.
func (c *Classifier) IsCheck(instr *cfg.Instruction, ref cfg.ValueRef) bool {
	if c.malformed[keyOf(instr)] {
		return false
	}
	switch instr.Op {
	case cfg.OpBranch, cfg.OpRequire:
		for _, in := range instr.Inputs {
			if c.derivesFrom(in, ref, 0) {
				return true
			}
		}
	case cfg.OpInvoke:
		if c.policy.Summaries == nil {
			return false
		}
		for idx, in := range instr.Inputs {
			if c.policy.Summaries.ChecksArgument(instr.Callee, idx) && c.derivesFrom(in, ref, 0) {
				return true
			}
		}
	}
	return false
}

func (c *Classifier) derivesFrom(v, ref cfg.ValueRef, depth int) bool {
	if v == ref {
		return true
	}
	if depth >= c.policy.MaxCheckDepth || c.redefined[v] {
		return false
	}
	def, ok := c.defs[v]
	if !ok || !def.Op.IsBoolean() || c.malformed[keyOf(def)] {
		return false
	}
	for _, in := range def.Inputs {
		if c.derivesFrom(in, ref, depth+1) {
			return true
		}
	}
	return false
}

// IsMutatingEffect reports whether instr changes state that an unchecked failure could corrupt
func (c *Classifier) IsMutatingEffect(instr *cfg.Instruction) bool {
	if c.malformed[keyOf(instr)] {
		return false
	}
	switch instr.Op {
	case cfg.OpStore, cfg.OpSelfDestruct, cfg.OpDelegateCall:
		return true
	case cfg.OpCall, cfg.OpCallCode, cfg.OpSend:
		return instr.Value != cfg.ValueZero
	case cfg.OpLog:
		return c.policy.LogsAreEffects
	}
	return false
}

func (c *Classifier) isExit(instr *cfg.Instruction) bool {
	return c.policy.ExitIsEffect && (instr.Op == cfg.OpReturn || instr.Op == cfg.OpStop)
}
