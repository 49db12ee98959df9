package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retcheck/internal/cfg"
)

func instrAt(t *testing.T, g *cfg.ControlFlowGraph, block, index int) *cfg.Instruction {
	t.Helper()
	b, err := g.Block(block)
	require.NoError(t, err)
	for i, instr := range b.All() {
		if i == index {
			return instr
		}
	}
	t.Fatalf("no instruction at b%d:i%d", block, index)
	return nil
}

func TestClassifyCall(t *testing.T) {
	gb := newGraph(t, "calls", 1)
	gb.call(0, "%ok").
		add(0, cfg.Instruction{Op: cfg.OpStaticCall, Outputs: gb.refs("%s")}).
		add(0, cfg.Instruction{Op: cfg.OpDelegateCall}).
		add(0, cfg.Instruction{Op: cfg.OpInvoke, Callee: "helper", Outputs: gb.refs("%r")}).
		store(0)
	g := gb.build()
	c := NewClassifier(g, DefaultPolicy())

	ref, ok := c.ClassifyCall(instrAt(t, g, 0, 0))
	assert.True(t, ok)
	assert.Equal(t, gb.v("%ok"), ref)

	_, ok = c.ClassifyCall(instrAt(t, g, 0, 1))
	assert.True(t, ok)

	// the builder gives a discarded flag a fresh value
	ref, ok = c.ClassifyCall(instrAt(t, g, 0, 2))
	assert.True(t, ok)
	assert.NotEqual(t, cfg.NoValue, ref)

	_, ok = c.ClassifyCall(instrAt(t, g, 0, 3))
	assert.False(t, ok, "internal calls do not produce success flags")

	_, ok = c.ClassifyCall(instrAt(t, g, 0, 4))
	assert.False(t, ok)

	assert.Equal(t, 3, c.CallSites())
}

func TestIsMutatingEffect(t *testing.T) {
	tests := []struct {
		name  string
		instr cfg.Instruction
		want  bool
	}{
		{"store", cfg.Instruction{Op: cfg.OpStore}, true},
		{"selfdestruct", cfg.Instruction{Op: cfg.OpSelfDestruct}, true},
		{"delegatecall", cfg.Instruction{Op: cfg.OpDelegateCall}, true},
		{"call with value", cfg.Instruction{Op: cfg.OpCall, Value: cfg.ValueNonZero}, true},
		{"call with unknown value", cfg.Instruction{Op: cfg.OpCall, Value: cfg.ValueUnknown}, true},
		{"call without value", cfg.Instruction{Op: cfg.OpCall, Value: cfg.ValueZero}, false},
		{"send without value", cfg.Instruction{Op: cfg.OpSend, Value: cfg.ValueZero}, false},
		{"staticcall", cfg.Instruction{Op: cfg.OpStaticCall}, false},
		{"log", cfg.Instruction{Op: cfg.OpLog}, false},
		{"other", cfg.Instruction{Op: cfg.OpOther}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gb := newGraph(t, "effects", 1)
			g := gb.add(0, tt.instr).build()
			c := NewClassifier(g, DefaultPolicy())
			assert.Equal(t, tt.want, c.IsMutatingEffect(instrAt(t, g, 0, 0)))
		})
	}
}

func TestIsCheckThroughBooleans(t *testing.T) {
	gb := newGraph(t, "checks", 1)
	gb.call(0, "%ok").
		boolean(0, cfg.OpEq, "%iszero", "%ok", "%zero").
		boolean(0, cfg.OpAnd, "%both", "%iszero", "%other").
		boolean(0, cfg.OpOr, "%either", "%unrelated", "%both").
		add(0, cfg.Instruction{Op: cfg.OpOther, Outputs: gb.refs("%opaque"), Inputs: gb.refs("%ok")}).
		requireFlag(0, "%either").
		requireFlag(0, "%opaque").
		requireFlag(0, "%unrelated")
	g := gb.build()
	c := NewClassifier(g, DefaultPolicy())
	ok := gb.v("%ok")

	assert.True(t, c.IsCheck(instrAt(t, g, 0, 5), ok), "OR(AND(EQ(ok)))")
	assert.False(t, c.IsCheck(instrAt(t, g, 0, 6), ok), "opaque operations break the chain")
	assert.False(t, c.IsCheck(instrAt(t, g, 0, 7), ok))
	assert.False(t, c.IsCheck(instrAt(t, g, 0, 1), ok), "boolean operations are not checks themselves")
}

func TestMaxCheckDepthPolicy(t *testing.T) {
	gb := newGraph(t, "depth", 1)
	gb.call(0, "%ok").
		boolean(0, cfg.OpNot, "%n1", "%ok").
		boolean(0, cfg.OpNot, "%n2", "%n1").
		requireFlag(0, "%n2")
	g := gb.build()

	policy := DefaultPolicy()
	policy.MaxCheckDepth = 1
	c := NewClassifier(g, policy)
	assert.False(t, c.IsCheck(instrAt(t, g, 0, 3), gb.v("%ok")))

	policy.MaxCheckDepth = 2
	c = NewClassifier(g, policy)
	assert.True(t, c.IsCheck(instrAt(t, g, 0, 3), gb.v("%ok")))
}

func TestHelperSummaries(t *testing.T) {
	build := func(t *testing.T) (*cfg.ControlFlowGraph, cfg.ValueRef) {
		gb := newGraph(t, "summaries", 1)
		gb.call(0, "%ok").
			add(0, cfg.Instruction{Op: cfg.OpInvoke, Callee: "_verifyCallResult", Inputs: gb.refs("%ok", "%data")}).
			store(0)
		return gb.build(), gb.v("%ok")
	}

	g, ok := build(t)
	c := NewClassifier(g, DefaultPolicy())
	assert.False(t, c.IsCheck(instrAt(t, g, 0, 1), ok))
	assert.Len(t, analyze(t, g, DefaultPolicy()).Findings, 1)

	policy := DefaultPolicy()
	policy.Summaries = SummaryTable{"_verifyCallResult": {0}}
	c = NewClassifier(g, policy)
	assert.True(t, c.IsCheck(instrAt(t, g, 0, 1), ok))
	assert.Empty(t, analyze(t, g, policy).Findings)

	policy.Summaries = SummaryTable{"_verifyCallResult": {1}}
	assert.Len(t, analyze(t, g, policy).Findings, 1)
}

func TestMalformedInstructionsWarn(t *testing.T) {
	gb := newGraph(t, "malformed", 1)
	gb.call(0, "%ok").
		add(0, cfg.Instruction{Op: cfg.Op(200)}).
		add(0, cfg.Instruction{Op: cfg.OpRequire}).
		add(0, cfg.Instruction{Op: cfg.OpNot, Inputs: gb.refs("%ok")}).
		add(0, cfg.Instruction{Op: cfg.OpStaticCall, Value: cfg.ValueNonZero}).
		add(0, cfg.Instruction{Op: cfg.OpInvoke})
	g := gb.build()
	c := NewClassifier(g, DefaultPolicy())

	warnings := c.Warnings()
	require.Len(t, warnings, 5)
	assert.Contains(t, warnings[0].Message, "unrecognized operation")
	assert.Equal(t, 1, warnings[0].Loc.Index)
	assert.Contains(t, warnings[1].Message, "require without a condition")
	assert.Contains(t, warnings[2].Message, "result is discarded")
	assert.Contains(t, warnings[3].Message, "STATICCALL")
	assert.Contains(t, warnings[4].Message, "callee")

	// a malformed instruction never produces, consults or mutates anything
	for i := 1; i <= 5; i++ {
		instr := instrAt(t, g, 0, i)
		_, isCall := c.ClassifyCall(instr)
		assert.False(t, isCall)
		assert.False(t, c.IsMutatingEffect(instr))
		assert.False(t, c.IsCheck(instr, gb.v("%ok")))
	}

	res := analyze(t, g, DefaultPolicy())
	assert.Empty(t, res.Findings)
	assert.Len(t, res.Warnings, 5)
}

func TestRedefinedValueIsNotTrusted(t *testing.T) {
	gb := newGraph(t, "redefined", 1)
	gb.call(0, "%ok").
		boolean(0, cfg.OpNot, "%x", "%ok").
		boolean(0, cfg.OpNot, "%x", "%other").
		requireFlag(0, "%x").
		store(0)
	g := gb.build()

	res := analyze(t, g, DefaultPolicy())
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0].Message, "defined more than once")
	assert.Len(t, res.Findings, 1)
}
