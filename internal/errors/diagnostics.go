package errors

import (
	"context"
	goerrors "errors"
	"fmt"
	"strings"

	"retcheck/internal/analysis"
	"retcheck/internal/cfg"
	"retcheck/internal/frontend"
)

// Builder provides a fluent interface for creating diagnostics with suggestions
type Builder struct {
	d Diagnostic
}

// NewError creates an error diagnostic builder
func NewError(code, message string, pos cfg.Position) *Builder {
	return &Builder{d: Diagnostic{Level: Error, Code: code, Message: message, Position: pos, Length: 1}}
}

// NewWarning creates a warning diagnostic builder
func NewWarning(code, message string, pos cfg.Position) *Builder {
	return &Builder{d: Diagnostic{Level: Warning, Code: code, Message: message, Position: pos, Length: 1}}
}

// WithLength sets the length of the highlighted span
func (b *Builder) WithLength(length int) *Builder {
	b.d.Length = length
	return b
}

// WithSuggestion adds a suggestion
func (b *Builder) WithSuggestion(message string) *Builder {
	b.d.Suggestions = append(b.d.Suggestions, Suggestion{Message: message})
	return b
}

// WithReplacement adds a suggestion with replacement text
func (b *Builder) WithReplacement(message, replacement string) *Builder {
	b.d.Suggestions = append(b.d.Suggestions, Suggestion{Message: message, Replacement: replacement})
	return b
}

// WithNote adds a note
func (b *Builder) WithNote(note string) *Builder {
	b.d.Notes = append(b.d.Notes, note)
	return b
}

// WithHelp sets the help text
func (b *Builder) WithHelp(help string) *Builder {
	b.d.HelpText = help
	return b
}

// Build returns the completed diagnostic
func (b *Builder) Build() Diagnostic {
	return b.d
}

// UncheckedReturn describes a finding, anchored at the call whose result is ignored
func UncheckedReturn(f analysis.Finding) Diagnostic {
	builder := NewWarning(WarningUncheckedReturn, f.Message(), f.CallSite.Pos)

	if f.Flag == "" || strings.HasPrefix(f.Flag, "%tmp") {
		builder = builder.WithReplacement("bind the result of the call and check it",
			fmt.Sprintf("%%ok = %s(...)\nrequire(%%ok)", strings.ToLower(f.CallOp.String())))
	} else {
		builder = builder.WithReplacement(fmt.Sprintf("check %s before modifying state", f.Flag),
			fmt.Sprintf("require(%s)", f.Flag))
	}

	switch f.EffectOp {
	case cfg.OpReturn, cfg.OpStop:
		builder = builder.WithNote(fmt.Sprintf("the function exits successfully at %s even if the call failed", site(f.MutationSite)))
	default:
		builder = builder.WithNote(fmt.Sprintf("%s at %s runs whether or not the call succeeded", f.EffectOp, site(f.MutationSite)))
	}

	return builder.
		WithNote(fmt.Sprintf("severity: %s", f.Severity)).
		WithHelp("low-level calls report failure through their return value instead of reverting").
		Build()
}

// UnrecognizedInstruction reports a mnemonic the front-end could not map
func UnrecognizedInstruction(w frontend.Warning) Diagnostic {
	return NewWarning(WarningUnrecognizedInstruction, w.Message, w.Pos).
		WithNote("the instruction is assumed to neither check a call result nor modify state").
		Build()
}

// ClassifierWarning reports an instruction the analysis ignored
func ClassifierWarning(w analysis.Warning) Diagnostic {
	return NewWarning(WarningUnrecognizedInstruction, w.Message, w.Loc.Pos).
		WithNote(fmt.Sprintf("at %s", w.Loc)).
		Build()
}

// FromError turns a per-function failure into a diagnostic. pos is used when
// the error carries no position of its own.
func FromError(function string, pos cfg.Position, err error) Diagnostic {
	var (
		parseErr *frontend.ParseError
		empty    *cfg.EmptyFunctionError
		invalid  *cfg.InvalidBlockIDError
		internal *analysis.InternalError
	)
	if goerrors.As(err, &parseErr) && parseErr.Pos.IsValid() {
		pos = parseErr.Pos
	}

	switch {
	case goerrors.As(err, &empty):
		return NewError(ErrorEmptyFunction, fmt.Sprintf("function %s has no basic blocks", function), pos).
			WithSuggestion("add at least one block, or remove the function from the listing").
			Build()
	case goerrors.As(err, &invalid):
		return NewError(ErrorInvalidBlockID, err.Error(), pos).
			WithNote(fmt.Sprintf("%s has %d blocks", function, invalid.Len)).
			Build()
	case goerrors.As(err, &internal), goerrors.Is(err, analysis.ErrNonConvergence):
		return NewError(ErrorInvariantViolation, err.Error(), pos).
			WithHelp(GetErrorDescription(ErrorInvariantViolation)).
			Build()
	case parseErr != nil:
		return NewError(ErrorListingSyntax, parseErr.Message, pos).Build()
	case goerrors.Is(err, context.Canceled), goerrors.Is(err, context.DeadlineExceeded):
		return NewError("", fmt.Sprintf("function %s was not analyzed: %s", function, err), pos).Build()
	default:
		return NewError(ErrorInvariantViolation, err.Error(), pos).Build()
	}
}

func site(loc cfg.Location) string {
	if loc.Tag == "" && loc.Pos.IsValid() {
		return loc.Pos.String()
	}
	return loc.String()
}
