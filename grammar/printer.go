package grammar

import (
	"fmt"
	"strconv"
	"strings"
)

func indent(level int) string {
	return strings.Repeat("  ", level)
}

// Print renders a parsed listing back to source form
func Print(f *File) string {
	return f.String()
}

func (f *File) String() string {
	var b strings.Builder
	for i, fn := range f.Functions {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fn.String())
	}
	return b.String()
}

func (f *Function) String() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("function %s {\n", f.Name))
	if f.Entry != nil {
		b.WriteString(fmt.Sprintf("%sentry %d\n", indent(1), *f.Entry))
	}
	for _, block := range f.Blocks {
		b.WriteString(block.StringWithIndent(1))
	}
	b.WriteString("}\n")
	return b.String()
}

func (bl *Block) StringWithIndent(level int) string {
	var b strings.Builder
	if bl.Label != "" {
		b.WriteString(fmt.Sprintf("%sblock %d (%s):\n", indent(level), bl.ID, bl.Label))
	} else {
		b.WriteString(fmt.Sprintf("%sblock %d:\n", indent(level), bl.ID))
	}
	for _, s := range bl.Stmts {
		b.WriteString(indent(level+1) + s.String() + "\n")
	}
	return b.String()
}

func (s *Stmt) String() string {
	if s.Term != nil {
		return s.Term.String()
	}
	if s.Instr != nil {
		return s.Instr.String()
	}
	return ""
}

func (t *Terminator) String() string {
	var b strings.Builder
	b.WriteString(t.Op)
	if len(t.Cond) > 0 {
		b.WriteString("(" + strings.Join(t.Cond, ", ") + ")")
	}
	if len(t.Targets) > 0 {
		targets := make([]string, len(t.Targets))
		for i, target := range t.Targets {
			targets[i] = strconv.Itoa(target)
		}
		b.WriteString(" -> " + strings.Join(targets, ", "))
	}
	writeTag(&b, t.Tag)
	return b.String()
}

func (i *Instruction) String() string {
	var b strings.Builder
	if len(i.Outputs) > 0 {
		b.WriteString(strings.Join(i.Outputs, ", ") + " = ")
	}
	b.WriteString(i.Mnemonic)
	if i.Callee != "" {
		b.WriteString(" " + strconv.Quote(i.Callee))
	}
	b.WriteString("(" + strings.Join(i.Inputs, ", ") + ")")
	if i.Value != nil {
		b.WriteString(" value=" + *i.Value)
	}
	writeTag(&b, i.Tag)
	return b.String()
}

func writeTag(b *strings.Builder, tag *string) {
	if tag != nil {
		b.WriteString(" @" + strconv.Quote(*tag))
	}
}
