package lsp

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"retcheck/grammar"
)

// SemanticToken is one LSP semantic token entry. Line and StartChar are 0-based.
type SemanticToken struct {
	Line           uint32
	StartChar      uint32
	Length         uint32
	TokenType      int // index into SemanticTokenTypes
	TokenModifiers int // bitmask over SemanticTokenModifiers
}

var tokenKinds = func() map[lexer.TokenType]string {
	symbols := grammar.ListingLexer.Symbols()
	return map[lexer.TokenType]string{
		symbols["Keyword"]: "keyword",
		symbols["Ident"]:   "function",
		symbols["Value"]:   "variable",
		symbols["Int"]:     "number",
		symbols["String"]:  "string",
		symbols["Comment"]: "comment",
	}
}()

// collectSemanticTokens lexes a listing and classifies its tokens. Lexing
// stops at the first invalid character; the tokens before it are kept.
func collectSemanticTokens(path, source string) []SemanticToken {
	lex, err := grammar.ListingLexer.Lex(path, strings.NewReader(source))
	if err != nil {
		return nil
	}

	var tokens []SemanticToken
	declaration := false
	for {
		tok, err := lex.Next()
		if err != nil || tok.EOF() {
			return tokens
		}
		kind, ok := tokenKinds[tok.Type]
		if !ok {
			if tok.Value == "->" || tok.Value == "=" {
				kind = "operator"
			} else {
				continue
			}
		}

		modifiers := 0
		// the identifier right after "function" declares it
		if declaration && kind == "function" {
			modifiers = 1 << indexOf("declaration", SemanticTokenModifiers)
		}
		declaration = tok.Value == "function"

		tokens = append(tokens, SemanticToken{
			Line:           uint32(tok.Pos.Line - 1),
			StartChar:      uint32(tok.Pos.Column - 1),
			Length:         uint32(len(tok.Value)),
			TokenType:      indexOf(kind, SemanticTokenTypes),
			TokenModifiers: modifiers,
		})
	}
}

// encodeTokens packs tokens into the LSP wire format of relative positions
func encodeTokens(tokens []SemanticToken) []uint32 {
	var data []uint32
	var prevLine, prevStart uint32

	for _, token := range tokens {
		deltaLine := token.Line - prevLine
		deltaStart := token.StartChar
		if deltaLine == 0 {
			deltaStart = token.StartChar - prevStart
		}
		data = append(data, deltaLine, deltaStart, token.Length, uint32(token.TokenType), uint32(token.TokenModifiers))

		prevLine = token.Line
		prevStart = token.StartChar
	}
	return data
}

// indexOf returns the index of a string in a slice, or 0 if not found
func indexOf(target string, list []string) int {
	for i, v := range list {
		if v == target {
			return i
		}
	}
	return 0
}
