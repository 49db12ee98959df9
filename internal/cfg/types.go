package cfg

import (
	"fmt"
	"iter"
)

// Control flow graph types consumed by the return value checker.
// Blocks reference each other by index so that loops do not create ownership cycles.

// Op tags the operation performed by an instruction
type Op int

const (
	OpOther Op = iota
	OpCall
	OpStaticCall
	OpDelegateCall
	OpCallCode
	OpSend
	OpBranch
	OpStore
	OpLog
	OpRequire
	OpNot
	OpAnd
	OpOr
	OpEq
	OpSelfDestruct
	OpInvoke

	// Terminators
	OpJump
	OpReturn
	OpRevert
	OpStop
	OpFallthrough
)

var opNames = map[Op]string{
	OpOther:        "OTHER",
	OpCall:         "CALL",
	OpStaticCall:   "STATICCALL",
	OpDelegateCall: "DELEGATECALL",
	OpCallCode:     "CALLCODE",
	OpSend:         "SEND",
	OpBranch:       "BRANCH",
	OpStore:        "STORE",
	OpLog:          "LOG",
	OpRequire:      "REQUIRE_LIKE",
	OpNot:          "NOT",
	OpAnd:          "AND",
	OpOr:           "OR",
	OpEq:           "EQ",
	OpSelfDestruct: "SELFDESTRUCT",
	OpInvoke:       "INVOKE",
	OpJump:         "JUMP",
	OpReturn:       "RETURN",
	OpRevert:       "REVERT",
	OpStop:         "STOP",
	OpFallthrough:  "FALLTHROUGH",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Known reports whether the op is one of the declared tags
func (o Op) Known() bool {
	_, ok := opNames[o]
	return ok
}

// IsTerminator reports whether the op may end a basic block
func (o Op) IsTerminator() bool {
	switch o {
	case OpBranch, OpJump, OpReturn, OpRevert, OpStop, OpFallthrough:
		return true
	}
	return false
}

// IsExternalCall reports whether the op is a low-level call that yields a success flag
func (o Op) IsExternalCall() bool {
	switch o {
	case OpCall, OpStaticCall, OpDelegateCall, OpCallCode, OpSend:
		return true
	}
	return false
}

// IsBoolean reports whether the op is a pure boolean derivation of its inputs
func (o Op) IsBoolean() bool {
	switch o {
	case OpNot, OpAnd, OpOr, OpEq:
		return true
	}
	return false
}

// ValueRef identifies a dataflow value. Equality is by identifier only.
type ValueRef int

// NoValue is the zero-information reference
const NoValue ValueRef = -1

func (v ValueRef) String() string {
	if v == NoValue {
		return "%_"
	}
	return fmt.Sprintf("%%v%d", int(v))
}

// Position is a 1-based line/column in the listing the instruction came from
type Position struct {
	Filename string
	Line     int
	Column   int
}

func (p Position) IsValid() bool { return p.Line > 0 }

func (p Position) String() string {
	if !p.IsValid() {
		return "-"
	}
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

// Location identifies an instruction for reporting. Tag is whatever the
// front-end attached and is passed through unchanged.
type Location struct {
	Block int
	Index int
	Tag   string
	Pos   Position
}

// String returns the front-end tag, or block/index coordinates if none was attached
func (l Location) String() string {
	if l.Tag != "" {
		return l.Tag
	}
	return fmt.Sprintf("b%d:i%d", l.Block, l.Index)
}

// Compare orders locations by block, then index within the block
func (l Location) Compare(other Location) int {
	switch {
	case l.Block < other.Block:
		return -1
	case l.Block > other.Block:
		return 1
	case l.Index < other.Index:
		return -1
	case l.Index > other.Index:
		return 1
	}
	return 0
}

// ValueKind records what the front-end knows about the wei attached to a call
type ValueKind int

const (
	ValueUnknown ValueKind = iota
	ValueZero
	ValueNonZero
)

func (k ValueKind) String() string {
	switch k {
	case ValueZero:
		return "0"
	case ValueNonZero:
		return "nonzero"
	default:
		return "?"
	}
}

// Instruction is the content of one CFG node. It is never mutated after Build.
type Instruction struct {
	Op       Op
	Inputs   []ValueRef
	Outputs  []ValueRef
	Loc      Location
	Value    ValueKind // wei attached to CALL/CALLCODE/SEND
	Callee   string    // target of OpInvoke
	Mnemonic string    // opcode as written by the front-end
}

// SuccessFlag returns the boolean output of a call-like instruction
func (i *Instruction) SuccessFlag() (ValueRef, bool) {
	if len(i.Outputs) == 0 {
		return NoValue, false
	}
	return i.Outputs[0], true
}

// BasicBlock is a run of instructions closed by exactly one terminator
type BasicBlock struct {
	ID           int
	Label        string
	Instructions []Instruction
	Terminator   Instruction
}

// All returns the block's instructions followed by its terminator
func (b *BasicBlock) All() iter.Seq2[int, *Instruction] {
	return func(yield func(int, *Instruction) bool) {
		for i := range b.Instructions {
			if !yield(i, &b.Instructions[i]) {
				return
			}
		}
		yield(len(b.Instructions), &b.Terminator)
	}
}

// Len is the number of instructions including the terminator
func (b *BasicBlock) Len() int { return len(b.Instructions) + 1 }

// ControlFlowGraph is the read-only graph of one function
type ControlFlowGraph struct {
	name   string
	blocks []*BasicBlock
	succs  [][]int
	preds  [][]int
	entry  int
	values []string // value names indexed by ValueRef
}

// Name returns the function name
func (g *ControlFlowGraph) Name() string { return g.name }

// Len returns the number of blocks
func (g *ControlFlowGraph) Len() int { return len(g.blocks) }

// Entry returns the designated entry block id
func (g *ControlFlowGraph) Entry() int { return g.entry }

// ValueCount returns the number of distinct value references
func (g *ControlFlowGraph) ValueCount() int { return len(g.values) }

// ValueName returns the front-end name of a value
func (g *ControlFlowGraph) ValueName(v ValueRef) string {
	if v >= 0 && int(v) < len(g.values) {
		return g.values[v]
	}
	return v.String()
}

// Blocks yields every block in construction order. The sequence can be ranged over repeatedly.
func (g *ControlFlowGraph) Blocks() iter.Seq[*BasicBlock] {
	return func(yield func(*BasicBlock) bool) {
		for _, b := range g.blocks {
			if !yield(b) {
				return
			}
		}
	}
}

// Block returns the block with the given id
func (g *ControlFlowGraph) Block(id int) (*BasicBlock, error) {
	if err := g.checkID(id); err != nil {
		return nil, err
	}
	return g.blocks[id], nil
}

// Successors returns the ids of the blocks control can flow to from id
func (g *ControlFlowGraph) Successors(id int) ([]int, error) {
	if err := g.checkID(id); err != nil {
		return nil, err
	}
	return g.succs[id], nil
}

// Predecessors returns the ids of the blocks that can flow into id
func (g *ControlFlowGraph) Predecessors(id int) ([]int, error) {
	if err := g.checkID(id); err != nil {
		return nil, err
	}
	return g.preds[id], nil
}

func (g *ControlFlowGraph) checkID(id int) error {
	if id < 0 || id >= len(g.blocks) {
		return &InvalidBlockIDError{Function: g.name, ID: id, Len: len(g.blocks)}
	}
	return nil
}
