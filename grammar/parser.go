package grammar

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/fatih/color"
)

var parser = participle.MustBuild[File](
	participle.Lexer(ListingLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.Unquote("String"),
	participle.UseLookahead(3),
)

// ParseFile reads and parses a listing file
func ParseFile(path string) (*File, string, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file: %w", err)
	}
	file, err := ParseString(path, string(source))
	return file, string(source), err
}

// ParseString parses listing source. filename only labels positions.
func ParseString(filename, source string) (*File, error) {
	return parser.ParseString(filename, source)
}

// ReportParseError prints a caret-style parse error message to w
func ReportParseError(w io.Writer, src string, err error) {
	red := color.New(color.FgRed)
	hiRed := color.New(color.FgHiRed)

	var pe participle.Error
	if !errors.As(err, &pe) {
		red.Fprintf(w, "Unexpected error: %s\n", err)
		return
	}

	pos := pe.Position()
	lines := strings.Split(src, "\n")
	if pos.Line <= 0 || pos.Line > len(lines) {
		red.Fprintf(w, "Syntax error at unknown location: %s\n", err)
		return
	}

	line := lines[pos.Line-1]
	caret := strings.Repeat(" ", max(pos.Column-1, 0)) + "^"

	red.Fprintf(w, "❌ Syntax error in %s at line %d, column %d:\n", pos.Filename, pos.Line, pos.Column)
	fmt.Fprintln(w, line)
	hiRed.Fprintln(w, caret)
	fmt.Fprintf(w, "→ %s\n", pe.Message())
}
