package engine

import (
	"fmt"
	"strings"

	"github.com/canonica-labs/chkconf/internal/errors"
	"github.com/canonica-labs/chkconf/internal/rules"
)

// Mode selects how origin conflicts are handled.
type Mode string

const (
	// ModeAutoCorrect lets the derived value win and records a warning.
	ModeAutoCorrect Mode = "auto-correct"

	// ModeStrict aborts on the first origin conflict raised by an
	// error-if-conflict rule.
	ModeStrict Mode = "strict"
)

// AllModes returns all valid modes.
func AllModes() []Mode {
	return []Mode{ModeAutoCorrect, ModeStrict}
}

// IsValid checks if the mode is known.
func (m Mode) IsValid() bool {
	for _, valid := range AllModes() {
		if m == valid {
			return true
		}
	}
	return false
}

// ParseMode parses a mode name. The empty string yields ModeAutoCorrect.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ModeAutoCorrect, nil
	}
	m := Mode(s)
	if !m.IsValid() {
		return "", fmt.Errorf("invalid mode: %s (valid: %v)", s, AllModes())
	}
	return m, nil
}

// Action is the outcome of a policy decision.
type Action int

const (
	// ActionOverride replaces the user value with the derived one.
	ActionOverride Action = iota
	// ActionAbort fails the resolution with ErrConfigConflict.
	ActionAbort
)

// Conflict is a rule forcing a value that contradicts an explicit user
// setting.
type Conflict struct {
	Flag      string
	UserValue bool
	Forced    bool
	Rule      rules.Rule
}

// Policy arbitrates origin conflicts.
type Policy struct {
	Mode Mode
}

// Decide returns what to do about c. Rules declared auto-correct always
// override; error-if-conflict rules abort only in strict mode.
func (p Policy) Decide(c Conflict) Action {
	if p.Mode == ModeStrict && c.Rule.Severity != rules.SeverityAutoCorrect {
		return ActionAbort
	}
	return ActionOverride
}

// Error builds the error returned for an aborted conflict.
func (p Policy) Error(c Conflict) error {
	return errors.NewConfigConflict(c.Flag, c.UserValue, c.Rule.ID, c.Forced)
}

// Warning builds the diagnostic recorded for an overridden conflict.
func (p Policy) Warning(c Conflict) Diagnostic {
	return Diagnostic{
		Kind:     KindOriginConflict,
		Severity: SeverityWarning,
		Message: fmt.Sprintf("%s=%s was set explicitly; rule %q forced %s=%s",
			c.Flag, digit(c.UserValue), c.Rule.ID, c.Flag, digit(c.Forced)),
		Flags: []string{c.Flag},
		Rules: []string{c.Rule.ID},
	}
}

func digit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
