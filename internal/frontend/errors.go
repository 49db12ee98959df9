package frontend

import (
	"fmt"

	"retcheck/internal/cfg"
)

// ParseError reports a listing that is syntactically or structurally invalid
type ParseError struct {
	Pos     cfg.Position
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Warning is a lowering problem that does not stop analysis
type Warning struct {
	Pos     cfg.Position
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Pos, w.Message)
}
