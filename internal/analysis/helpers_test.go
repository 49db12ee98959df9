package analysis

import (
	"testing"

	"github.com/stretchr/testify/require"

	"retcheck/internal/cfg"
)

// graphBuilder wraps cfg.Builder with terse helpers for hand-written test graphs
type graphBuilder struct {
	t *testing.T
	b *cfg.Builder
}

func newGraph(t *testing.T, name string, blocks int) *graphBuilder {
	t.Helper()
	gb := &graphBuilder{t: t, b: cfg.NewBuilder(name)}
	for range blocks {
		gb.b.NewBlock("")
	}
	return gb
}

func (gb *graphBuilder) v(name string) cfg.ValueRef {
	return gb.b.Value(name)
}

func (gb *graphBuilder) refs(names ...string) []cfg.ValueRef {
	out := make([]cfg.ValueRef, len(names))
	for i, n := range names {
		out[i] = gb.v(n)
	}
	return out
}

func (gb *graphBuilder) add(block int, instr cfg.Instruction) *graphBuilder {
	gb.t.Helper()
	require.NoError(gb.t, gb.b.Append(block, instr))
	return gb
}

func (gb *graphBuilder) call(block int, flag string) *graphBuilder {
	return gb.add(block, cfg.Instruction{Op: cfg.OpCall, Outputs: gb.refs(flag)})
}

func (gb *graphBuilder) store(block int) *graphBuilder {
	return gb.add(block, cfg.Instruction{Op: cfg.OpStore, Inputs: gb.refs("%slot", "%val")})
}

func (gb *graphBuilder) requireFlag(block int, cond string) *graphBuilder {
	return gb.add(block, cfg.Instruction{Op: cfg.OpRequire, Inputs: gb.refs(cond)})
}

func (gb *graphBuilder) boolean(block int, op cfg.Op, out string, ins ...string) *graphBuilder {
	return gb.add(block, cfg.Instruction{Op: op, Outputs: gb.refs(out), Inputs: gb.refs(ins...)})
}

func (gb *graphBuilder) branch(block int, cond string, targets ...int) *graphBuilder {
	gb.t.Helper()
	require.NoError(gb.t, gb.b.Terminate(block, cfg.Instruction{Op: cfg.OpBranch, Inputs: gb.refs(cond)}, targets...))
	return gb
}

func (gb *graphBuilder) jump(block, target int) *graphBuilder {
	gb.t.Helper()
	require.NoError(gb.t, gb.b.Terminate(block, cfg.Instruction{Op: cfg.OpJump}, target))
	return gb
}

func (gb *graphBuilder) ret(block int) *graphBuilder {
	gb.t.Helper()
	require.NoError(gb.t, gb.b.Terminate(block, cfg.Instruction{Op: cfg.OpReturn}))
	return gb
}

func (gb *graphBuilder) revert(block int) *graphBuilder {
	gb.t.Helper()
	require.NoError(gb.t, gb.b.Terminate(block, cfg.Instruction{Op: cfg.OpRevert}))
	return gb
}

func (gb *graphBuilder) build() *cfg.ControlFlowGraph {
	gb.t.Helper()
	g, err := gb.b.Build()
	require.NoError(gb.t, err)
	return g
}

func analyze(t *testing.T, g *cfg.ControlFlowGraph, policy Policy) *FunctionResult {
	t.Helper()
	res, err := NewAnalyzer(policy).AnalyzeFunction(g)
	require.NoError(t, err)
	return res
}

type sites struct {
	call, mutation [2]int
}

func siteList(findings []Finding) []sites {
	out := make([]sites, len(findings))
	for i, f := range findings {
		out[i] = sites{
			call:     [2]int{f.CallSite.Block, f.CallSite.Index},
			mutation: [2]int{f.MutationSite.Block, f.MutationSite.Index},
		}
	}
	return out
}

func at(block, index int) [2]int { return [2]int{block, index} }
