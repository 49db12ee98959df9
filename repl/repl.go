// Package repl analyzes listings typed at an interactive prompt. Each
// function is analyzed as soon as its closing brace arrives.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"retcheck/grammar"
	"retcheck/internal/analysis"
	"retcheck/internal/report"
)

const (
	PROMPT       = ">> "
	CONTINUATION = ".. "
)

var symbols = grammar.ListingLexer.Symbols()

// Start reads from in until it is exhausted, writing diagnostics for every
// complete input to out
func Start(ctx context.Context, in io.Reader, out io.Writer, opts analysis.BatchOptions, threshold analysis.Severity) error {
	scanner := bufio.NewScanner(in)

	var pending strings.Builder
	depth := 0
	inputs := 0

	for {
		if depth > 0 {
			fmt.Fprint(out, CONTINUATION)
		} else {
			fmt.Fprint(out, PROMPT)
		}
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := scanner.Text()
		delta, code := scanLine(line)
		if pending.Len() == 0 && !code {
			continue
		}
		pending.WriteString(line)
		pending.WriteByte('\n')
		depth += delta
		if depth > 0 {
			continue
		}

		inputs++
		file, err := report.AnalyzeSource(ctx, fmt.Sprintf("<input%d>", inputs), pending.String(), opts)
		pending.Reset()
		depth = 0
		if err != nil {
			return err
		}
		if err := report.Text(out, []report.File{file}, threshold); err != nil {
			return err
		}
	}
}

// scanLine returns the change in brace depth on a line and whether it holds
// anything besides whitespace and comments. A lexing error counts as code
// so the parser gets to report it.
func scanLine(line string) (delta int, code bool) {
	lex, err := grammar.ListingLexer.Lex("", strings.NewReader(line))
	if err != nil {
		return 0, true
	}
	for {
		tok, err := lex.Next()
		if err != nil {
			return delta, true
		}
		if tok.EOF() {
			return delta, code
		}
		switch tok.Type {
		case symbols["Whitespace"], symbols["Comment"]:
			continue
		}
		code = true
		switch tok.Value {
		case "{":
			delta++
		case "}":
			delta--
		}
	}
}
