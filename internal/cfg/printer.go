package cfg

import (
	"fmt"
	"strings"
)

// Printer provides pretty-printing for control flow graphs
type Printer struct {
	indent int
	output strings.Builder
}

// NewPrinter creates a new CFG printer
func NewPrinter() *Printer {
	return &Printer{indent: 0}
}

// Print returns the string representation of a graph
func Print(g *ControlFlowGraph) string {
	p := NewPrinter()
	p.printGraph(g)
	return p.output.String()
}

func (p *Printer) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.output.WriteString("  ")
	}
}

func (p *Printer) writeLine(format string, args ...interface{}) {
	p.writeIndent()
	p.output.WriteString(fmt.Sprintf(format, args...))
	p.output.WriteString("\n")
}

func (p *Printer) printGraph(g *ControlFlowGraph) {
	p.writeLine("FUNCTION %s (entry b%d, %d blocks, %d values)", g.Name(), g.Entry(), g.Len(), g.ValueCount())
	p.indent++
	for block := range g.Blocks() {
		preds, _ := g.Predecessors(block.ID)
		succs, _ := g.Successors(block.ID)
		header := fmt.Sprintf("b%d:", block.ID)
		if block.Label != "" {
			header = fmt.Sprintf("b%d (%s):", block.ID, block.Label)
		}
		p.writeLine("%-24s ; preds=%s succs=%s", header, p.ids(preds), p.ids(succs))
		p.indent++
		for _, instr := range block.All() {
			p.writeLine("%s", p.instructionString(g, instr))
		}
		p.indent--
	}
	p.indent--
}

func (p *Printer) instructionString(g *ControlFlowGraph, instr *Instruction) string {
	var sb strings.Builder
	if len(instr.Outputs) > 0 {
		sb.WriteString(p.values(g, instr.Outputs))
		sb.WriteString(" = ")
	}
	sb.WriteString(instr.Op.String())
	if instr.Mnemonic != "" && instr.Mnemonic != instr.Op.String() {
		sb.WriteString("[" + instr.Mnemonic + "]")
	}
	if instr.Callee != "" {
		sb.WriteString(" " + instr.Callee)
	}
	sb.WriteString("(" + p.values(g, instr.Inputs) + ")")
	if instr.Op == OpCall || instr.Op == OpCallCode || instr.Op == OpSend {
		sb.WriteString(" value=" + instr.Value.String())
	}
	if instr.Loc.Tag != "" {
		sb.WriteString(fmt.Sprintf(" @%q", instr.Loc.Tag))
	}
	return sb.String()
}

func (p *Printer) values(g *ControlFlowGraph, refs []ValueRef) string {
	names := make([]string, len(refs))
	for i, r := range refs {
		names[i] = g.ValueName(r)
	}
	return strings.Join(names, ", ")
}

func (p *Printer) ids(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("b%d", id)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
