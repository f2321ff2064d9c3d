package validate

import (
	"fmt"
	"strings"

	coreerrors "sapling/internal/core/errors"
)

// ValidationError rejects a grammar. It is produced for the first undefined
// symbol reference found, or for a grammar without rules.
type ValidationError struct {
	// Rule is the referencing rule. For references from the auxiliary lists
	// it names the list instead ("extras", "externals", "reserved.<context>").
	Rule        string
	Symbol      string
	Suggestions []string

	reason string
}

var ErrNoRules = &ValidationError{reason: "grammar has no rules"}

func (e *ValidationError) Error() string {
	if e.reason != "" {
		return e.reason
	}
	var b strings.Builder
	fmt.Fprintf(&b, "undefined symbol '%s' referenced in rule '%s'", e.Symbol, e.Rule)
	if len(e.Suggestions) > 0 {
		quoted := make([]string, len(e.Suggestions))
		for i, s := range e.Suggestions {
			quoted[i] = "'" + s + "'"
		}
		fmt.Fprintf(&b, " (did you mean %s?)", strings.Join(quoted, " or "))
	}
	return b.String()
}

func (e *ValidationError) ErrorCode() coreerrors.ErrorCode {
	return coreerrors.CodeValidationError
}
