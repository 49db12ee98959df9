package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"retcheck/internal/cfg"
)

// Level represents the severity of a diagnostic
type Level string

const (
	Error   Level = "error"
	Warning Level = "warning"
	Note    Level = "note"
	Help    Level = "help"
)

// Diagnostic is a structured message anchored in a listing
type Diagnostic struct {
	Level       Level
	Code        string       // code like W0104
	Message     string       // primary message
	Position    cfg.Position // location in source
	Length      int          // length of the highlighted region
	Suggestions []Suggestion // suggested fixes
	Notes       []string     // additional context
	HelpText    string
}

// Suggestion represents a suggested fix
type Suggestion struct {
	Message     string
	Replacement string // optional replacement text
}

// Reporter renders diagnostics against the source they refer to
type Reporter struct {
	filename string
	lines    []string
}

// NewReporter creates a reporter for one listing
func NewReporter(filename, source string) *Reporter {
	return &Reporter{
		filename: filename,
		lines:    strings.Split(source, "\n"),
	}
}

// Format renders a diagnostic with source context, caret marker and suggestions
func (r *Reporter) Format(d Diagnostic) string {
	var out strings.Builder

	levelColor := levelColor(d.Level)
	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	// Header: warning[W0104]: message
	if d.Code != "" {
		fmt.Fprintf(&out, "%s[%s]: %s\n", levelColor(string(d.Level)), d.Code, d.Message)
	} else {
		fmt.Fprintf(&out, "%s: %s\n", levelColor(string(d.Level)), d.Message)
	}

	line := d.Position.Line
	width := lineNumberWidth(line)
	indent := strings.Repeat(" ", width)

	if !d.Position.IsValid() {
		fmt.Fprintf(&out, "%s %s %s\n", indent, dim("-->"), r.filename)
	} else {
		fmt.Fprintf(&out, "%s %s %s:%d:%d\n", indent, dim("-->"), r.filename, line, d.Position.Column)
		fmt.Fprintf(&out, "%s %s\n", indent, dim("│"))

		if line > 1 && line-1 <= len(r.lines) {
			fmt.Fprintf(&out, "%s %s %s\n", dim(fmt.Sprintf("%*d", width, line-1)), dim("│"), r.lines[line-2])
		}
		if line <= len(r.lines) {
			fmt.Fprintf(&out, "%s %s %s\n", bold(fmt.Sprintf("%*d", width, line)), dim("│"), r.lines[line-1])
			fmt.Fprintf(&out, "%s %s %s\n", indent, dim("│"), marker(d.Position.Column, d.Length, d.Level))
		}
		if line < len(r.lines) {
			fmt.Fprintf(&out, "%s %s %s\n", dim(fmt.Sprintf("%*d", width, line+1)), dim("│"), r.lines[line])
		}
	}

	if len(d.Suggestions) > 0 {
		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Fprintf(&out, "%s %s\n", indent, dim("│"))
		for i, s := range d.Suggestions {
			if i == 0 {
				fmt.Fprintf(&out, "%s %s %s: %s\n", indent, cyan("help"), cyan("try"), s.Message)
			} else {
				fmt.Fprintf(&out, "%s %s %s\n", indent, cyan("    "), s.Message)
			}
			if s.Replacement != "" {
				replacement := strings.ReplaceAll(s.Replacement, "\n", fmt.Sprintf("\n%s %s ", indent, dim("│")))
				fmt.Fprintf(&out, "%s %s\n", indent, dim("│"))
				fmt.Fprintf(&out, "%s %s %s\n", indent, cyan("│"), cyan(replacement))
			}
		}
	}

	blue := color.New(color.FgBlue).SprintFunc()
	for _, note := range d.Notes {
		fmt.Fprintf(&out, "%s %s %s %s\n", indent, dim("│"), blue("note:"), note)
	}

	if d.HelpText != "" {
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Fprintf(&out, "%s %s %s %s\n", indent, dim("│"), green("help:"), d.HelpText)
	}

	out.WriteString("\n")
	return out.String()
}

func levelColor(level Level) func(...any) string {
	switch level {
	case Warning:
		return color.New(color.FgYellow, color.Bold).SprintFunc()
	case Note:
		return color.New(color.FgBlue, color.Bold).SprintFunc()
	case Help:
		return color.New(color.FgGreen, color.Bold).SprintFunc()
	default:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	}
}

func marker(column, length int, level Level) string {
	if length <= 0 {
		length = 1
	}
	markerColor := color.New(color.FgRed, color.Bold).SprintFunc()
	if level == Warning {
		markerColor = color.New(color.FgYellow, color.Bold).SprintFunc()
	}
	return strings.Repeat(" ", max(0, column-1)) + markerColor(strings.Repeat("^", length))
}

// lineNumberWidth is at least 3 so short files still line up
func lineNumberWidth(line int) int {
	return max(3, len(fmt.Sprintf("%d", line)))
}
