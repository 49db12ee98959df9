package errors

// Diagnostic codes reported by retcheck. They are stable across releases so
// that suppressions and CI filters can refer to them.
//
// Code ranges:
// E0001-E0099: Graph construction and analysis failures
// E0100-E0199: Listing errors
// W0001-W0099: Front-end and classification warnings
// W0100-W0199: Findings

const (
	// E0001: Function has no basic blocks
	ErrorEmptyFunction = "E0001"

	// E0002: Edge or query names a block that does not exist
	ErrorInvalidBlockID = "E0002"

	// E0003: Analysis violated one of its own invariants
	ErrorInvariantViolation = "E0003"

	// E0100: Listing does not parse or is structurally invalid
	ErrorListingSyntax = "E0100"

	// W0001: Instruction could not be interpreted and was treated as opaque
	WarningUnrecognizedInstruction = "W0001"

	// W0104: Low-level call result reaches a state change unchecked
	WarningUncheckedReturn = "W0104"
)

// GetErrorDescription returns a human-readable description of the code
func GetErrorDescription(code string) string {
	switch code {
	case ErrorEmptyFunction:
		return "Function has no basic blocks and cannot be analyzed"
	case ErrorInvalidBlockID:
		return "Control flow edge refers to a block that does not exist"
	case ErrorInvariantViolation:
		return "Internal analysis error; please report it with the listing"
	case ErrorListingSyntax:
		return "Listing is not valid"
	case WarningUnrecognizedInstruction:
		return "Instruction is not recognized and is treated as having no effect"
	case WarningUncheckedReturn:
		return "Return value of a low-level call is not checked before state is modified"
	default:
		return "Unknown error code"
	}
}

// IsWarning returns true if the code represents a warning rather than an error
func IsWarning(code string) bool {
	return len(code) > 0 && code[0] == 'W'
}

// GetErrorCategory returns the category of the code
func GetErrorCategory(code string) string {
	switch {
	case code >= "E0001" && code < "E0100":
		return "Analysis"
	case code >= "E0100" && code < "E0200":
		return "Listing"
	case code >= "W0001" && code < "W0100":
		return "Warning"
	case code >= "W0100" && code < "W0200":
		return "Finding"
	default:
		return "Unknown"
	}
}
