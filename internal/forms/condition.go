// Package forms implements the dynamic form computation rules: field
// visibility, per-tab ordering, and repeatable group reconciliation.
// Everything here is pure — no I/O, no shared state — and is invoked on
// every render cycle, so it must stay cheap.
package forms

import (
	"strings"

	"github.com/fbastos/demandboard/internal/types"
)

// Values is the working draft of a form: field id (or legacy
// "<childID>__<index>" replica key) to raw string value.
type Values map[string]string

// Clone returns a shallow copy of the value map. A nil receiver clones
// to an empty, writable map.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Evaluate decides whether a field guarded by cond should be shown
// given the current values. A nil condition is always visible.
//
// notEquals has one deliberate asymmetry: an unset source value never
// satisfies "different from X", so the result is false when the source
// is empty or whitespace-only.
func Evaluate(cond *types.VisibilityCondition, values Values) bool {
	if cond == nil {
		return true
	}
	raw := values[cond.SourceFieldID]
	trimmed := strings.TrimSpace(raw)

	switch cond.Operator {
	case types.OpIsFilled:
		return trimmed != ""
	case types.OpIsEmpty:
		return trimmed == ""
	case types.OpEquals:
		return raw == cond.ComparisonValue
	case types.OpNotEquals:
		if trimmed == "" {
			return false
		}
		return raw != cond.ComparisonValue
	default:
		// Unknown operator: never hide a field over a malformed condition.
		return true
	}
}
