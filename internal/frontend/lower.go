package frontend

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/tliron/commonlog"

	"retcheck/grammar"
	"retcheck/internal/analysis"
	"retcheck/internal/cfg"
)

var log = commonlog.GetLogger("retcheck.frontend")

// Function is one lowered function of a listing. Err is set when the
// function could not be turned into a graph; its siblings are unaffected.
type Function struct {
	Name     string
	Pos      cfg.Position
	Graph    *cfg.ControlFlowGraph
	Warnings []Warning
	Err      error
}

// Unit hands the function to the batch driver
func (f *Function) Unit() analysis.Unit {
	return analysis.Unit{Name: f.Name, Graph: f.Graph, Err: f.Err}
}

// Load parses a listing file and lowers every function in it. A syntax error
// fails the whole file and is returned as a *ParseError.
func Load(path string) (string, []Function, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read file: %w", err)
	}
	funcs, err := LoadString(path, string(source))
	return string(source), funcs, err
}

// LoadString is Load for in-memory source
func LoadString(filename, source string) ([]Function, error) {
	file, err := grammar.ParseString(filename, source)
	if err != nil {
		return nil, syntaxError(err)
	}
	return LowerFile(file), nil
}

func syntaxError(err error) error {
	var pe participle.Error
	if errors.As(err, &pe) {
		return &ParseError{Pos: position(pe.Position()), Message: pe.Message(), Err: err}
	}
	return &ParseError{Message: err.Error(), Err: err}
}

// LowerFile lowers each function of a parsed listing independently
func LowerFile(file *grammar.File) []Function {
	funcs := make([]Function, 0, len(file.Functions))
	for _, fn := range file.Functions {
		g, warnings, err := Lower(fn)
		if err != nil {
			log.Warningf("%s: %s", fn.Name, err)
		}
		funcs = append(funcs, Function{
			Name:     fn.Name,
			Pos:      position(fn.Pos),
			Graph:    g,
			Warnings: warnings,
			Err:      err,
		})
	}
	return funcs
}

// Lower builds the control flow graph of one listed function. Blocks keep
// their listing order, so a block without a terminator falls through to the
// block listed after it.
func Lower(fn *grammar.Function) (*cfg.ControlFlowGraph, []Warning, error) {
	l := &lowerer{
		fn:      fn,
		b:       cfg.NewBuilder(fn.Name),
		ids:     make(map[int]int, len(fn.Blocks)),
		defined: make(map[string]bool),
	}
	if len(fn.Blocks) == 0 {
		return nil, nil, &cfg.EmptyFunctionError{Function: fn.Name}
	}

	for _, block := range fn.Blocks {
		if _, dup := l.ids[block.ID]; dup {
			return nil, l.warnings, l.errorf(block.Pos, nil, "block %d is defined more than once", block.ID)
		}
		l.ids[block.ID] = l.b.NewBlock(block.Label)
	}

	if fn.Entry != nil {
		id, err := l.target(fn.Pos, *fn.Entry)
		if err != nil {
			return nil, l.warnings, err
		}
		l.b.SetEntry(id)
	}

	for _, block := range fn.Blocks {
		if err := l.lowerBlock(block); err != nil {
			return nil, l.warnings, err
		}
	}

	g, err := l.b.Build()
	if err != nil {
		return nil, l.warnings, err
	}
	return g, l.warnings, nil
}

type lowerer struct {
	fn       *grammar.Function
	b        *cfg.Builder
	ids      map[int]int
	defined  map[string]bool // names that already appeared as an output
	warnings []Warning
}

func (l *lowerer) lowerBlock(block *grammar.Block) error {
	id := l.ids[block.ID]
	terminated := false

	for _, stmt := range block.Stmts {
		if terminated {
			return l.errorf(stmtPos(stmt), nil, "block %d continues after its terminator", block.ID)
		}
		switch {
		case stmt.Term != nil:
			if err := l.lowerTerminator(id, stmt.Term); err != nil {
				return err
			}
			terminated = true
		case stmt.Instr != nil:
			instr, err := l.lowerInstruction(stmt.Instr)
			if err != nil {
				return err
			}
			if err := l.b.Append(id, instr); err != nil {
				return l.errorf(stmt.Instr.Pos, err, "%s", err)
			}
		}
	}
	return nil
}

func (l *lowerer) lowerInstruction(in *grammar.Instruction) (cfg.Instruction, error) {
	op, kind := resolveMnemonic(in.Mnemonic)
	switch kind {
	case mnemonicTerminator:
		return cfg.Instruction{}, l.errorf(in.Pos, nil, "%s ends a block and must be written as a terminator", in.Mnemonic)
	case mnemonicUnknown:
		l.warn(in.Pos, fmt.Sprintf("unrecognized instruction %q treated as opaque", in.Mnemonic))
	}

	value, err := l.valueKind(in)
	if err != nil {
		return cfg.Instruction{}, err
	}

	// inputs resolve before the outputs rebind, so %ok = not(%ok) reads the old %ok
	inputs := l.refs(in.Inputs)
	outputs := l.defs(in.Outputs)

	return cfg.Instruction{
		Op:       op,
		Inputs:   inputs,
		Outputs:  outputs,
		Loc:      location(in.Pos, in.Tag),
		Value:    value,
		Callee:   in.Callee,
		Mnemonic: in.Mnemonic,
	}, nil
}

func (l *lowerer) valueKind(in *grammar.Instruction) (cfg.ValueKind, error) {
	if in.Value == nil || *in.Value == "?" {
		return cfg.ValueUnknown, nil
	}
	amount, err := strconv.ParseUint(*in.Value, 10, 64)
	if err != nil {
		// too large for uint64 is still nonzero
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return cfg.ValueNonZero, nil
		}
		return cfg.ValueUnknown, l.errorf(in.Pos, err, "invalid value %q", *in.Value)
	}
	if amount == 0 {
		return cfg.ValueZero, nil
	}
	return cfg.ValueNonZero, nil
}

func (l *lowerer) lowerTerminator(block int, term *grammar.Terminator) error {
	var op cfg.Op
	switch term.Op {
	case "br":
		op = cfg.OpBranch
	case "jump":
		op = cfg.OpJump
	case "return":
		op = cfg.OpReturn
	case "revert":
		op = cfg.OpRevert
	case "stop":
		op = cfg.OpStop
	default:
		return l.errorf(term.Pos, nil, "unknown terminator %q", term.Op)
	}
	if op != cfg.OpBranch && len(term.Cond) > 0 {
		return l.errorf(term.Pos, nil, "%s does not take a condition", term.Op)
	}

	targets := make([]int, len(term.Targets))
	for i, t := range term.Targets {
		id, err := l.target(term.Pos, t)
		if err != nil {
			return err
		}
		targets[i] = id
	}

	instr := cfg.Instruction{
		Op:       op,
		Inputs:   l.refs(term.Cond),
		Loc:      location(term.Pos, term.Tag),
		Mnemonic: term.Op,
	}
	if err := l.b.Terminate(block, instr, targets...); err != nil {
		return l.errorf(term.Pos, err, "%s", err)
	}
	return nil
}

func (l *lowerer) target(pos lexer.Position, listed int) (int, error) {
	id, ok := l.ids[listed]
	if !ok {
		err := &cfg.InvalidBlockIDError{Function: l.fn.Name, ID: listed, Len: len(l.ids)}
		return 0, l.errorf(pos, err, "block %d does not exist", listed)
	}
	return id, nil
}

func (l *lowerer) refs(names []string) []cfg.ValueRef {
	if len(names) == 0 {
		return nil
	}
	out := make([]cfg.ValueRef, len(names))
	for i, name := range names {
		out[i] = l.b.Value(name)
	}
	return out
}

// defs binds output names. A name that is assigned again gets a new value, so
// each call keeps its own success flag and later uses see the newest one.
func (l *lowerer) defs(names []string) []cfg.ValueRef {
	if len(names) == 0 {
		return nil
	}
	out := make([]cfg.ValueRef, len(names))
	for i, name := range names {
		if l.defined[name] {
			out[i] = l.b.Rebind(name)
		} else {
			out[i] = l.b.Value(name)
			l.defined[name] = true
		}
	}
	return out
}

func (l *lowerer) warn(pos lexer.Position, message string) {
	w := Warning{Pos: position(pos), Message: message}
	log.Warningf("%s: %s", l.fn.Name, w)
	l.warnings = append(l.warnings, w)
}

func (l *lowerer) errorf(pos lexer.Position, cause error, format string, args ...any) error {
	return &ParseError{Pos: position(pos), Message: fmt.Sprintf(format, args...), Err: cause}
}

func stmtPos(stmt *grammar.Stmt) lexer.Position {
	if stmt.Term != nil {
		return stmt.Term.Pos
	}
	return stmt.Instr.Pos
}

func position(pos lexer.Position) cfg.Position {
	return cfg.Position{Filename: pos.Filename, Line: pos.Line, Column: pos.Column}
}

func location(pos lexer.Position, tag *string) cfg.Location {
	loc := cfg.Location{Pos: position(pos)}
	if tag != nil {
		loc.Tag = *tag
	}
	return loc
}
