package rules

import (
	"fmt"
	"strings"
)

// Severity decides how a rule behaves when its forced value contradicts a
// value the caller set explicitly.
type Severity string

const (
	// SeverityErrorIfConflict aborts resolution in strict mode and
	// overrides with a warning in auto-correct mode.
	SeverityErrorIfConflict Severity = "error-if-conflict"

	// SeverityAutoCorrect always overrides with a warning, even in strict
	// mode.
	SeverityAutoCorrect Severity = "auto-correct"
)

// AllSeverities returns all valid severities.
func AllSeverities() []Severity {
	return []Severity{SeverityErrorIfConflict, SeverityAutoCorrect}
}

// IsValid checks if the severity is known.
func (s Severity) IsValid() bool {
	for _, valid := range AllSeverities() {
		if s == valid {
			return true
		}
	}
	return false
}

// ParseSeverity parses a severity name. The empty string yields
// SeverityErrorIfConflict.
func ParseSeverity(s string) (Severity, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return SeverityErrorIfConflict, nil
	}
	sev := Severity(s)
	if !sev.IsValid() {
		return "", fmt.Errorf("invalid severity: %s (valid: %v)", s, AllSeverities())
	}
	return sev, nil
}

// Form names the declaration shape a rule was generated from.
type Form string

const (
	FormImplies     Form = "implies"
	FormRequiresAll Form = "requires-all"
	FormRequiresAny Form = "requires-any"
	FormEnsureAny   Form = "ensure-any"
)

// Rule forces Target to Value whenever Condition holds.
//
// Rules generated from one declaration share a Group. A rule whose
// condition reads a flag targeted by its own group is a guard (the
// "#if !wxUSE_X / #define wxUSE_X 1" idiom); the engine evaluates such reads
// as if the group had not acted.
type Rule struct {
	ID          string
	Group       string
	Condition   Expr
	Target      string
	Value       bool
	Severity    Severity
	Form        Form
	Platforms   []string
	Description string
}

// String renders the rule as "id: cond => target=v".
func (r Rule) String() string {
	v := "0"
	if r.Value {
		v = "1"
	}
	return fmt.Sprintf("%s: %s => %s=%s", r.ID, r.Condition, r.Target, v)
}

// Refs returns the flags read by the rule's condition.
func (r Rule) Refs() []string {
	return Refs(r.Condition)
}

// AppliesTo reports whether the rule is active on platform. Rules without a
// platform list apply everywhere.
func (r Rule) AppliesTo(platform string) bool {
	if len(r.Platforms) == 0 {
		return true
	}
	for _, p := range r.Platforms {
		if p == platform {
			return true
		}
	}
	return false
}

func (r Rule) group() string {
	if r.Group != "" {
		return r.Group
	}
	return r.ID
}
