package cfg

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func diamond(t *testing.T) *ControlFlowGraph {
	t.Helper()
	b := NewBuilder("diamond")
	b0 := b.NewBlock("entry")
	b1 := b.NewBlock("then")
	b2 := b.NewBlock("else")
	b3 := b.NewBlock("join")

	ok := b.Value("%ok")
	require.NoError(t, b.Append(b0, Instruction{Op: OpCall, Outputs: []ValueRef{ok}}))
	require.NoError(t, b.Terminate(b0, Instruction{Op: OpBranch, Inputs: []ValueRef{ok}}, b1, b2))
	require.NoError(t, b.Terminate(b1, Instruction{Op: OpJump}, b3))
	require.NoError(t, b.Terminate(b2, Instruction{Op: OpJump}, b3))
	require.NoError(t, b.Append(b3, Instruction{Op: OpStore}))
	require.NoError(t, b.Terminate(b3, Instruction{Op: OpReturn}))

	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func TestBuildDiamond(t *testing.T) {
	g := diamond(t)

	assert.Equal(t, "diamond", g.Name())
	assert.Equal(t, 4, g.Len())
	assert.Equal(t, 0, g.Entry())

	succs, err := g.Successors(0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, succs)

	preds, err := g.Predecessors(3)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, preds)

	preds, err = g.Predecessors(0)
	require.NoError(t, err)
	assert.Empty(t, preds)
}

func TestBuildEmptyFunction(t *testing.T) {
	g, err := NewBuilder("nothing").Build()
	assert.Nil(t, g)

	var empty *EmptyFunctionError
	require.True(t, errors.As(err, &empty))
	assert.Equal(t, "nothing", empty.Function)
}

func TestQueriesRejectInvalidBlockID(t *testing.T) {
	g := diamond(t)

	for _, id := range []int{-1, 4, 100} {
		_, err := g.Successors(id)
		var invalid *InvalidBlockIDError
		require.True(t, errors.As(err, &invalid), "successors(%d)", id)
		assert.Equal(t, id, invalid.ID)

		_, err = g.Predecessors(id)
		assert.True(t, errors.As(err, &invalid), "predecessors(%d)", id)

		_, err = g.Block(id)
		assert.True(t, errors.As(err, &invalid), "block(%d)", id)
	}
}

func TestBuildRejectsEdgeToMissingBlock(t *testing.T) {
	b := NewBuilder("bad")
	b0 := b.NewBlock("")
	require.NoError(t, b.Terminate(b0, Instruction{Op: OpJump}, 7))

	_, err := b.Build()
	var invalid *InvalidBlockIDError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, 7, invalid.ID)
}

func TestBuildRejectsBadEntry(t *testing.T) {
	b := NewBuilder("bad")
	b.NewBlock("")
	b.SetEntry(3)

	_, err := b.Build()
	var invalid *InvalidBlockIDError
	assert.True(t, errors.As(err, &invalid))
}

func TestUnterminatedBlocksFallThrough(t *testing.T) {
	b := NewBuilder("fall")
	b0 := b.NewBlock("")
	b.NewBlock("")
	require.NoError(t, b.Append(b0, Instruction{Op: OpOther}))

	g, err := b.Build()
	require.NoError(t, err)

	first, _ := g.Block(0)
	assert.Equal(t, OpFallthrough, first.Terminator.Op)
	succs, _ := g.Successors(0)
	assert.Equal(t, []int{1}, succs)

	last, _ := g.Block(1)
	assert.Equal(t, OpStop, last.Terminator.Op)
	succs, _ = g.Successors(1)
	assert.Empty(t, succs)
}

func TestDiscardedCallFlagGetsFreshValue(t *testing.T) {
	b := NewBuilder("discard")
	b0 := b.NewBlock("")
	require.NoError(t, b.Append(b0, Instruction{Op: OpSend}))
	require.NoError(t, b.Append(b0, Instruction{Op: OpStore}))

	g, err := b.Build()
	require.NoError(t, err)

	block, _ := g.Block(0)
	flag, ok := block.Instructions[0].SuccessFlag()
	require.True(t, ok)
	assert.Equal(t, ValueRef(0), flag)
	assert.Equal(t, 1, g.ValueCount())

	_, ok = block.Instructions[1].SuccessFlag()
	assert.False(t, ok)
}

func TestRebindAllocatesNewValue(t *testing.T) {
	b := NewBuilder("rebind")
	first := b.Value("%ok")
	second := b.Rebind("%ok")

	assert.NotEqual(t, first, second)
	assert.Equal(t, second, b.Value("%ok"))

	b.NewBlock("")
	g, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, 2, g.ValueCount())
	assert.Equal(t, "%ok", g.ValueName(first))
	assert.Equal(t, "%ok", g.ValueName(second))
}

func TestLocationsAreAssigned(t *testing.T) {
	g := diamond(t)

	join, _ := g.Block(3)
	assert.Equal(t, Location{Block: 3, Index: 0}, join.Instructions[0].Loc)
	assert.Equal(t, Location{Block: 3, Index: 1}, join.Terminator.Loc)
	assert.Equal(t, "b3:i0", join.Instructions[0].Loc.String())
}

func TestTerminatorValidation(t *testing.T) {
	b := NewBuilder("v")
	b0 := b.NewBlock("")
	b1 := b.NewBlock("")

	assert.Error(t, b.Append(b0, Instruction{Op: OpReturn}))
	assert.Error(t, b.Terminate(b0, Instruction{Op: OpStore}))
	assert.Error(t, b.Terminate(b0, Instruction{Op: OpReturn}, b1))
	assert.Error(t, b.Terminate(b0, Instruction{Op: OpJump}))
	assert.Error(t, b.Terminate(b0, Instruction{Op: OpBranch}))

	require.NoError(t, b.Terminate(b0, Instruction{Op: OpJump}, b1))
	assert.Error(t, b.Terminate(b0, Instruction{Op: OpJump}, b1))
	assert.Error(t, b.Append(b0, Instruction{Op: OpStore}))
	assert.Error(t, b.Append(9, Instruction{Op: OpStore}))
}

func TestBlocksIsRestartable(t *testing.T) {
	g := diamond(t)

	collect := func() []int {
		var ids []int
		for block := range g.Blocks() {
			ids = append(ids, block.ID)
		}
		return ids
	}
	assert.Equal(t, []int{0, 1, 2, 3}, collect())
	assert.Equal(t, collect(), collect())

	// early exit
	count := 0
	for range g.Blocks() {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestGraphIsImmutableAfterBuild(t *testing.T) {
	b := NewBuilder("imm")
	b0 := b.NewBlock("")
	inputs := []ValueRef{b.Value("%a")}
	require.NoError(t, b.Append(b0, Instruction{Op: OpStore, Inputs: inputs}))
	g, err := b.Build()
	require.NoError(t, err)

	inputs[0] = 42
	block, _ := g.Block(0)
	assert.Equal(t, ValueRef(0), block.Instructions[0].Inputs[0])
}

func TestPrint(t *testing.T) {
	out := Print(diamond(t))

	assert.True(t, strings.HasPrefix(out, "FUNCTION diamond (entry b0, 4 blocks, 1 values)"))
	assert.Contains(t, out, "b0 (entry):")
	assert.Contains(t, out, "%ok = CALL() value=?")
	assert.Contains(t, out, "BRANCH(%ok)")
	assert.Contains(t, out, "preds=[b1 b2] succs=[]")
}

func TestOpPredicates(t *testing.T) {
	assert.True(t, OpCall.IsExternalCall())
	assert.True(t, OpSend.IsExternalCall())
	assert.False(t, OpInvoke.IsExternalCall())
	assert.True(t, OpBranch.IsTerminator())
	assert.False(t, OpRequire.IsTerminator())
	assert.True(t, OpEq.IsBoolean())
	assert.False(t, OpOther.IsBoolean())
	assert.Equal(t, "REQUIRE_LIKE", OpRequire.String())
	assert.Equal(t, "Op(99)", Op(99).String())
	assert.False(t, Op(99).Known())
}

func TestLocationCompare(t *testing.T) {
	a := Location{Block: 0, Index: 3}
	b := Location{Block: 1, Index: 0}
	c := Location{Block: 1, Index: 2, Tag: "x.sol:4"}

	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, c.Compare(b))
	assert.Equal(t, 0, a.Compare(a))
	assert.Equal(t, "x.sol:4", c.String())
}
