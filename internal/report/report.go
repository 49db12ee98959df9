package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"retcheck/internal/analysis"
	"retcheck/internal/cfg"
	diag "retcheck/internal/errors"
	"retcheck/internal/frontend"
)

// File groups the outcome of one listing. Err is set when the listing could
// not be parsed at all, in which case Functions is empty.
type File struct {
	Path      string
	Source    string
	Err       error
	Functions []Function
}

type Function struct {
	Name     string
	Pos      cfg.Position
	Warnings []frontend.Warning
	Result   analysis.FunctionResult
}

// Summary counts what a run produced
type Summary struct {
	Files     int
	Functions int
	Findings  int
	Failures  int
}

// Failed reports whether the run should exit unsuccessfully
func (s Summary) Failed() bool {
	return s.Findings > 0 || s.Failures > 0
}

// Summarize counts findings at or above threshold and failed functions
func Summarize(files []File, threshold analysis.Severity) Summary {
	var s Summary
	for _, f := range files {
		s.Files++
		if f.Err != nil {
			s.Failures++
			continue
		}
		for _, fn := range f.Functions {
			s.Functions++
			if fn.Result.Failed() {
				s.Failures++
			}
			s.Findings += len(analysis.FilterBySeverity(fn.Result.Findings, threshold))
		}
	}
	return s
}

// Diagnostics flattens a file into diagnostics, in listing order per function
func Diagnostics(f File, threshold analysis.Severity) []diag.Diagnostic {
	if f.Err != nil {
		return []diag.Diagnostic{diag.FromError(f.Path, cfg.Position{}, f.Err)}
	}

	var out []diag.Diagnostic
	for _, fn := range f.Functions {
		for _, w := range fn.Warnings {
			out = append(out, diag.UnrecognizedInstruction(w))
		}
		if fn.Result.Failed() {
			out = append(out, diag.FromError(fn.Name, fn.Pos, fn.Result.Err))
			continue
		}
		for _, w := range fn.Result.Warnings {
			out = append(out, diag.ClassifierWarning(w))
		}
		for _, finding := range analysis.FilterBySeverity(fn.Result.Findings, threshold) {
			out = append(out, diag.UncheckedReturn(finding))
		}
	}
	return out
}

// Text writes caret diagnostics for every file followed by a summary line
func Text(w io.Writer, files []File, threshold analysis.Severity) error {
	for _, f := range files {
		reporter := diag.NewReporter(f.Path, f.Source)
		for _, d := range Diagnostics(f, threshold) {
			if _, err := io.WriteString(w, reporter.Format(d)); err != nil {
				return err
			}
		}
	}

	s := Summarize(files, threshold)
	line := fmt.Sprintf("%d finding(s) in %d function(s) across %d file(s), %d failure(s)\n",
		s.Findings, s.Functions, s.Files, s.Failures)
	c := color.New(color.FgGreen, color.Bold)
	if s.Failed() {
		c = color.New(color.FgYellow, color.Bold)
	}
	_, err := c.Fprint(w, line)
	return err
}

type fileJSON struct {
	Path      string         `json:"path"`
	Error     string         `json:"error,omitempty"`
	Functions []functionJSON `json:"functions"`
}

type functionJSON struct {
	Function string             `json:"function"`
	Findings []analysis.Finding `json:"findings"`
	Warnings []string           `json:"warnings,omitempty"`
	Error    string             `json:"error,omitempty"`
	Skipped  bool               `json:"skipped,omitempty"`
}

// JSON writes one document describing every file
func JSON(w io.Writer, files []File, threshold analysis.Severity) error {
	out := make([]fileJSON, 0, len(files))
	for _, f := range files {
		fj := fileJSON{Path: f.Path, Functions: []functionJSON{}}
		if f.Err != nil {
			fj.Error = f.Err.Error()
		}
		for _, fn := range f.Functions {
			entry := functionJSON{
				Function: fn.Name,
				Findings: analysis.FilterBySeverity(fn.Result.Findings, threshold),
				Skipped:  fn.Result.Skipped,
			}
			if entry.Findings == nil {
				entry.Findings = []analysis.Finding{}
			}
			if fn.Result.Err != nil {
				entry.Error = fn.Result.Err.Error()
			}
			for _, warning := range fn.Warnings {
				entry.Warnings = append(entry.Warnings, warning.String())
			}
			for _, warning := range fn.Result.Warnings {
				entry.Warnings = append(entry.Warnings, warning.String())
			}
			fj.Functions = append(fj.Functions, entry)
		}
		out = append(out, fj)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}
