package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

var ListingLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Comment", `//[^\n]*`, nil},

		// Keywords come before identifiers so that a mnemonic can never be a keyword
		{"Keyword", `\b(function|block|entry|br|jump|return|revert|stop|value)\b`, nil},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_.]*`, nil},
		{"Value", `%[a-zA-Z0-9_.$]+`, nil},
		{"String", `"(\\.|[^"\\])*"`, nil},
		{"Int", `[0-9]+`, nil},

		{"Punctuation", `->|[{}():,=@?]`, nil},

		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
