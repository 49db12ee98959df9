package lsp

import (
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	diag "retcheck/internal/errors"
)

const source = "retcheck"

// ConvertDiagnostics transforms diagnostics into LSP form. Notes and help
// text are appended to the message since editors show no caret context.
func ConvertDiagnostics(diagnostics []diag.Diagnostic) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(diagnostics))
	for _, d := range diagnostics {
		out = append(out, convert(d))
	}
	return out
}

func convert(d diag.Diagnostic) protocol.Diagnostic {
	line := uint32(max(d.Position.Line-1, 0))
	start := uint32(max(d.Position.Column-1, 0))
	length := uint32(max(d.Length, 1))

	message := []string{d.Message}
	for _, s := range d.Suggestions {
		if s.Replacement != "" {
			message = append(message, "try: "+s.Replacement)
		} else {
			message = append(message, "try: "+s.Message)
		}
	}
	message = append(message, d.Notes...)

	severity := protocol.DiagnosticSeverityError
	switch d.Level {
	case diag.Warning:
		severity = protocol.DiagnosticSeverityWarning
	case diag.Note, diag.Help:
		severity = protocol.DiagnosticSeverityInformation
	}

	out := protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: line, Character: start},
			End:   protocol.Position{Line: line, Character: start + length},
		},
		Severity: &severity,
		Source:   ptrString(source),
		Message:  strings.Join(message, "\n"),
	}
	if d.Code != "" {
		out.Code = &protocol.IntegerOrString{Value: d.Code}
	}
	return out
}

func ptrString(s string) *string {
	return &s
}
