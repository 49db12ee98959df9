package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// File is a listing with any number of functions
type File struct {
	Pos       lexer.Position
	Functions []*Function `@@*`
}

type Function struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Name   string   `"function" @Ident "{"`
	Entry  *int     `[ "entry" @Int ]`
	Blocks []*Block `@@* "}"`
}

type Block struct {
	Pos   lexer.Position
	ID    int     `"block" @Int`
	Label string  `[ "(" @Ident ")" ] ":"`
	Stmts []*Stmt `@@*`
}

type Stmt struct {
	Term  *Terminator  `  @@`
	Instr *Instruction `| @@`
}

// Terminator ends a block. Only br carries a condition.
type Terminator struct {
	Pos     lexer.Position
	Op      string   `@("br" | "jump" | "return" | "revert" | "stop")`
	Cond    []string `[ "(" [ @Value { "," @Value } ] ")" ]`
	Targets []int    `[ "->" @Int { "," @Int } ]`
	Tag     *string  `[ "@" @String ]`
}

type Instruction struct {
	Pos      lexer.Position
	Outputs  []string `[ @Value { "," @Value } "=" ]`
	Mnemonic string   `@Ident`
	Callee   string   `[ @String ]`
	Inputs   []string `"(" [ @Value { "," @Value } ] ")"`
	Value    *string  `[ "value" "=" @(Int | "?") ]`
	Tag      *string  `[ "@" @String ]`
}
