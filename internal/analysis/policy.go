package analysis

// DefaultMaxCheckDepth bounds how many boolean derivations separate a check from the flag it consults
const DefaultMaxCheckDepth = 4

// HelperSummaries describes internal helpers that consult their arguments,
// e.g. a helper that reverts when its boolean argument is false.
type HelperSummaries interface {
	ChecksArgument(callee string, argIndex int) bool
}

// SummaryTable is a HelperSummaries backed by a map of callee to checked argument indexes
type SummaryTable map[string][]int

func (t SummaryTable) ChecksArgument(callee string, argIndex int) bool {
	for _, idx := range t[callee] {
		if idx == argIndex {
			return true
		}
	}
	return false
}

// Policy tunes the checker
type Policy struct {
	// MaxCheckDepth is the longest chain of NOT/AND/OR/EQ between a check and the flag.
	MaxCheckDepth int
	// StrictJoin treats a flag checked on one incoming path and absent on another as unchecked.
	StrictJoin bool
	// LogsAreEffects makes LOG instructions guarded effects.
	LogsAreEffects bool
	// ExitIsEffect reports flags still unchecked at RETURN/STOP.
	ExitIsEffect bool
	// Summaries is consulted for INVOKE instructions. Nil means no helper counts as a check.
	Summaries HelperSummaries
}

// DefaultPolicy returns the policy used when nothing is configured
func DefaultPolicy() Policy {
	return Policy{MaxCheckDepth: DefaultMaxCheckDepth}
}
