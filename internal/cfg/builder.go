package cfg

import (
	"fmt"
	"slices"
)

// Builder assembles a ControlFlowGraph. It is not safe for concurrent use;
// the graph it produces is.
type Builder struct {
	name       string
	blocks     []*pendingBlock
	entry      int
	values     []string
	valueIndex map[string]ValueRef
}

type pendingBlock struct {
	label      string
	instrs     []Instruction
	term       *Instruction
	targets    []int
	terminated bool
}

// NewBuilder creates a builder for the named function
func NewBuilder(name string) *Builder {
	return &Builder{
		name:       name,
		valueIndex: make(map[string]ValueRef),
	}
}

// NewBlock appends an empty block and returns its id
func (b *Builder) NewBlock(label string) int {
	b.blocks = append(b.blocks, &pendingBlock{label: label})
	return len(b.blocks) - 1
}

// SetEntry designates the entry block. Defaults to block 0.
func (b *Builder) SetEntry(id int) {
	b.entry = id
}

// Value returns the reference for a named value, allocating it on first use
func (b *Builder) Value(name string) ValueRef {
	if ref, ok := b.valueIndex[name]; ok {
		return ref
	}
	ref := ValueRef(len(b.values))
	b.values = append(b.values, name)
	b.valueIndex[name] = ref
	return ref
}

// Rebind allocates a new reference under an existing name. Later Value calls
// for name return the new reference; earlier instructions keep the old one.
func (b *Builder) Rebind(name string) ValueRef {
	ref := ValueRef(len(b.values))
	b.values = append(b.values, name)
	b.valueIndex[name] = ref
	return ref
}

// Fresh allocates an anonymous value
func (b *Builder) Fresh() ValueRef {
	ref := ValueRef(len(b.values))
	b.values = append(b.values, fmt.Sprintf("%%tmp%d", int(ref)))
	return ref
}

// Append adds a non-terminator instruction to a block
func (b *Builder) Append(block int, instr Instruction) error {
	pb, err := b.pending(block)
	if err != nil {
		return err
	}
	if instr.Op.IsTerminator() {
		return fmt.Errorf("block %d: %s must be added with Terminate", block, instr.Op)
	}
	if pb.terminated {
		return fmt.Errorf("block %d: instruction after terminator", block)
	}
	pb.instrs = append(pb.instrs, instr)
	return nil
}

// Terminate closes a block with a terminator and its successor ids
func (b *Builder) Terminate(block int, term Instruction, targets ...int) error {
	pb, err := b.pending(block)
	if err != nil {
		return err
	}
	if !term.Op.IsTerminator() {
		return fmt.Errorf("block %d: %s is not a terminator", block, term.Op)
	}
	if pb.terminated {
		return fmt.Errorf("block %d: already terminated", block)
	}
	switch term.Op {
	case OpReturn, OpRevert, OpStop:
		if len(targets) > 0 {
			return fmt.Errorf("block %d: %s cannot have successors", block, term.Op)
		}
	case OpJump, OpFallthrough:
		if len(targets) != 1 {
			return fmt.Errorf("block %d: %s needs exactly one successor, got %d", block, term.Op, len(targets))
		}
	case OpBranch:
		if len(targets) == 0 {
			return fmt.Errorf("block %d: branch without successors", block)
		}
	}
	pb.term = &term
	pb.targets = slices.Clone(targets)
	pb.terminated = true
	return nil
}

func (b *Builder) pending(block int) (*pendingBlock, error) {
	if block < 0 || block >= len(b.blocks) {
		return nil, &InvalidBlockIDError{Function: b.name, ID: block, Len: len(b.blocks)}
	}
	return b.blocks[block], nil
}

// Build freezes the graph. Unterminated blocks fall through to the next block,
// or stop if they are last. Calls whose success flag is discarded receive a
// fresh value so the flag is still tracked.
func (b *Builder) Build() (*ControlFlowGraph, error) {
	if len(b.blocks) == 0 {
		return nil, &EmptyFunctionError{Function: b.name}
	}
	n := len(b.blocks)
	if b.entry < 0 || b.entry >= n {
		return nil, &InvalidBlockIDError{Function: b.name, ID: b.entry, Len: n}
	}

	g := &ControlFlowGraph{
		name:   b.name,
		blocks: make([]*BasicBlock, n),
		succs:  make([][]int, n),
		preds:  make([][]int, n),
		entry:  b.entry,
	}

	for id, pb := range b.blocks {
		block := &BasicBlock{
			ID:           id,
			Label:        pb.label,
			Instructions: make([]Instruction, len(pb.instrs)),
		}
		for i, instr := range pb.instrs {
			block.Instructions[i] = b.freeze(instr, id, i)
		}

		term, targets := pb.term, pb.targets
		if !pb.terminated {
			if id+1 < n {
				term, targets = &Instruction{Op: OpFallthrough}, []int{id + 1}
			} else {
				term, targets = &Instruction{Op: OpStop}, nil
			}
		}
		block.Terminator = b.freeze(*term, id, len(pb.instrs))

		for _, t := range targets {
			if t < 0 || t >= n {
				return nil, &InvalidBlockIDError{Function: b.name, ID: t, Len: n}
			}
			if !slices.Contains(g.succs[id], t) {
				g.succs[id] = append(g.succs[id], t)
				g.preds[t] = append(g.preds[t], id)
			}
		}
		g.blocks[id] = block
	}

	for i := range g.preds {
		slices.Sort(g.preds[i])
	}
	g.values = slices.Clone(b.values)
	return g, nil
}

func (b *Builder) freeze(instr Instruction, block, index int) Instruction {
	instr.Inputs = slices.Clone(instr.Inputs)
	instr.Outputs = slices.Clone(instr.Outputs)
	if instr.Op.IsExternalCall() && len(instr.Outputs) == 0 {
		instr.Outputs = []ValueRef{b.Fresh()}
	}
	instr.Loc.Block = block
	instr.Loc.Index = index
	if instr.Mnemonic == "" {
		instr.Mnemonic = instr.Op.String()
	}
	return instr
}
