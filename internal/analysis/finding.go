package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"retcheck/internal/cfg"
)

// Severity ranks findings
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// ParseSeverity accepts low, medium or high in any case
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	}
	return SeverityLow, fmt.Errorf("unknown severity %q (expected low, medium or high)", s)
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Finding reports a mutating instruction that can execute while the success
// flag of an earlier call is still unconsulted. Findings are never modified
// after the reporter creates them.
type Finding struct {
	Function     string
	Flag         string // name of the unchecked success flag
	CallSite     cfg.Location
	MutationSite cfg.Location
	CallOp       cfg.Op
	EffectOp     cfg.Op
	Severity     Severity
}

// Message is a one-line description of the finding
func (f Finding) Message() string {
	if f.EffectOp == cfg.OpReturn || f.EffectOp == cfg.OpStop {
		return fmt.Sprintf("return value of %s at %s is never checked before the function exits",
			f.CallOp, f.CallSite)
	}
	return fmt.Sprintf("return value of %s at %s is not checked before %s at %s",
		f.CallOp, f.CallSite, f.EffectOp, f.MutationSite)
}

type findingJSON struct {
	CallSite     string   `json:"call_site"`
	MutationSite string   `json:"mutation_site"`
	Severity     Severity `json:"severity"`
}

func (f Finding) MarshalJSON() ([]byte, error) {
	return json.Marshal(findingJSON{
		CallSite:     f.CallSite.String(),
		MutationSite: f.MutationSite.String(),
		Severity:     f.Severity,
	})
}

// compareFindings orders by call site, then mutation site
func compareFindings(a, b Finding) int {
	if c := a.CallSite.Compare(b.CallSite); c != 0 {
		return c
	}
	return a.MutationSite.Compare(b.MutationSite)
}

// FilterBySeverity keeps findings at or above min
func FilterBySeverity(findings []Finding, min Severity) []Finding {
	var kept []Finding
	for _, f := range findings {
		if f.Severity >= min {
			kept = append(kept, f)
		}
	}
	return kept
}
