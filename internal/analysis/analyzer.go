package analysis

import (
	"errors"
	"fmt"

	"retcheck/internal/cfg"
)

// InternalError wraps failures that indicate a bug in the graph builder or in
// the analysis itself, as opposed to a property of the analyzed code
type InternalError struct {
	Function string
	Err      error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error analyzing %s: %v", e.Function, e.Err)
}

func (e *InternalError) Unwrap() error { return e.Err }

// FunctionResult is the outcome for one function. A failed analysis has Err
// set and no findings; a clean function has neither.
type FunctionResult struct {
	Function string
	Findings []Finding
	Warnings []Warning
	Stats    Stats
	Err      error
	Skipped  bool // never scheduled because the batch was cancelled
}

// Failed reports whether the function could not be analyzed
func (r *FunctionResult) Failed() bool { return r.Err != nil }

// Analyzer runs the checker over single functions. It holds no mutable state
// and can be shared between goroutines.
type Analyzer struct {
	policy Policy
}

// NewAnalyzer creates an analyzer with the given policy
func NewAnalyzer(policy Policy) *Analyzer {
	return &Analyzer{policy: policy}
}

// Policy returns the analyzer's policy
func (a *Analyzer) Policy() Policy { return a.policy }

// AnalyzeFunction classifies, solves and reports one function
func (a *Analyzer) AnalyzeFunction(g *cfg.ControlFlowGraph) (*FunctionResult, error) {
	if g == nil || g.Len() == 0 {
		name := ""
		if g != nil {
			name = g.Name()
		}
		return nil, &cfg.EmptyFunctionError{Function: name}
	}

	classifier := NewClassifier(g, a.policy)
	result, err := Solve(g, classifier)
	if err != nil {
		var invalid *cfg.InvalidBlockIDError
		if errors.As(err, &invalid) || errors.Is(err, ErrNonConvergence) {
			return nil, &InternalError{Function: g.Name(), Err: err}
		}
		return nil, err
	}

	return &FunctionResult{
		Function: g.Name(),
		Findings: Report(g, result, classifier),
		Warnings: classifier.Warnings(),
		Stats:    result.Stats(),
	}, nil
}
