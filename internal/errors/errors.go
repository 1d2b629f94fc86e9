// Package errors provides explicit, human-readable error types for chkconf.
// Every error carries a Reason and a Suggestion so that a failed resolution
// can be reproduced and fixed without reading the source.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ChkconfError is the base error type for all chkconf errors.
type ChkconfError struct {
	Code       ErrorCode
	Message    string
	Reason     string
	Suggestion string
	Cause      error
}

// ErrorCode represents the category of error for exit code mapping.
type ErrorCode int

const (
	CodeValidation ErrorCode = 1
	CodeConflict   ErrorCode = 2
	CodeDivergence ErrorCode = 3
	CodeInternal   ErrorCode = 4
)

func (e *ChkconfError) Error() string {
	msg := e.Message
	if e.Reason != "" {
		msg = fmt.Sprintf("%s\nReason: %s", msg, e.Reason)
	}
	if e.Suggestion != "" {
		msg = fmt.Sprintf("%s\nSuggestion: %s", msg, e.Suggestion)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s\nCaused by: %v", msg, e.Cause)
	}
	return msg
}

func (e *ChkconfError) Unwrap() error {
	return e.Cause
}

// ErrorCode returns the category of the error.
func (e *ChkconfError) ErrorCode() ErrorCode {
	return e.Code
}

// Details returns the embedded ChkconfError of a typed error.
func Details(err error) (*ChkconfError, bool) {
	var d interface{ details() *ChkconfError }
	if stderrors.As(err, &d) {
		return d.details(), true
	}
	return nil, false
}

func (e *ChkconfError) details() *ChkconfError {
	return e
}

// coder is implemented by every typed error through the embedded ChkconfError.
type coder interface {
	ErrorCode() ErrorCode
}

// CodeOf returns the error category of err, or CodeInternal for errors
// that did not originate in chkconf.
func CodeOf(err error) ErrorCode {
	var c coder
	if stderrors.As(err, &c) {
		return c.ErrorCode()
	}
	return CodeInternal
}

// ErrUnknownFlag is returned when a flag name was never declared.
// It always indicates a programming error in the rule data or the consumer.
type ErrUnknownFlag struct {
	ChkconfError
	Flag    string
	Context string
}

// NewUnknownFlag creates a new ErrUnknownFlag. context names the place the
// flag was referenced from (a rule id, "override", "lookup").
func NewUnknownFlag(flag, context string) *ErrUnknownFlag {
	reason := "no flag registered with this name"
	if context != "" {
		reason = fmt.Sprintf("referenced by %s but no flag registered with this name", context)
	}
	return &ErrUnknownFlag{
		ChkconfError: ChkconfError{
			Code:       CodeValidation,
			Message:    fmt.Sprintf("unknown flag: %s", flag),
			Reason:     reason,
			Suggestion: "declare the flag in the rule set or fix the spelling (names are case-sensitive)",
		},
		Flag:    flag,
		Context: context,
	}
}

// ErrConfigConflict is returned in strict mode when a rule would overwrite
// a value the caller set explicitly.
type ErrConfigConflict struct {
	ChkconfError
	Flag      string
	UserValue bool
	RuleID    string
	Forced    bool
}

// NewConfigConflict creates a new ErrConfigConflict.
func NewConfigConflict(flag string, userValue bool, ruleID string, forced bool) *ErrConfigConflict {
	return &ErrConfigConflict{
		ChkconfError: ChkconfError{
			Code:    CodeConflict,
			Message: fmt.Sprintf("configuration conflict on %s", flag),
			Reason: fmt.Sprintf("%s=%s was set explicitly but rule %q forces %s=%s",
				flag, boolDigit(userValue), ruleID, flag, boolDigit(forced)),
			Suggestion: fmt.Sprintf("set %s=%s, change the flags rule %q depends on, or resolve in auto-correct mode",
				flag, boolDigit(forced), ruleID),
		},
		Flag:      flag,
		UserValue: userValue,
		RuleID:    ruleID,
		Forced:    forced,
	}
}

// DivergenceKind distinguishes the two ways propagation can fail to converge.
type DivergenceKind string

const (
	// DivergenceBound means the pass bound was exceeded.
	DivergenceBound DivergenceKind = "pass-bound-exceeded"

	// DivergenceSamePass means two rules forced one flag to opposite values
	// within a single pass.
	DivergenceSamePass DivergenceKind = "same-pass-conflict"
)

// ErrPropagationDivergence is returned when the rule set cannot be driven to
// a fixed point. It indicates ill-formed rule data and is never retried.
type ErrPropagationDivergence struct {
	ChkconfError
	Kind   DivergenceKind
	Passes int
	Bound  int
	Flags  []string
	Rules  []string
}

// NewPropagationDivergence creates an error for an exceeded pass bound.
// flags are the flags still changing in the last pass, rules the rules that
// changed them.
func NewPropagationDivergence(passes, bound int, flags, rules []string) *ErrPropagationDivergence {
	return &ErrPropagationDivergence{
		ChkconfError: ChkconfError{
			Code:    CodeDivergence,
			Message: fmt.Sprintf("propagation did not converge after %d passes", passes),
			Reason: fmt.Sprintf("flags [%s] still changing under rules [%s] (bound %d)",
				strings.Join(flags, ", "), strings.Join(rules, ", "), bound),
			Suggestion: "the rule set contains a cycle that forces flags to alternating values; run 'chkconf explain' on the flags listed",
		},
		Kind:   DivergenceBound,
		Passes: passes,
		Bound:  bound,
		Flags:  flags,
		Rules:  rules,
	}
}

// NewSamePassConflict creates an error for two rules forcing one flag to
// opposite values in the same pass.
func NewSamePassConflict(pass int, flag, ruleA string, valueA bool, ruleB string, valueB bool) *ErrPropagationDivergence {
	return &ErrPropagationDivergence{
		ChkconfError: ChkconfError{
			Code:    CodeDivergence,
			Message: fmt.Sprintf("rules disagree on %s", flag),
			Reason: fmt.Sprintf("in pass %d rule %q forces %s=%s while rule %q forces %s=%s",
				pass, ruleA, flag, boolDigit(valueA), ruleB, flag, boolDigit(valueB)),
			Suggestion: "make the conditions of the two rules mutually exclusive or drop one of them",
		},
		Kind:   DivergenceSamePass,
		Passes: pass,
		Flags:  []string{flag},
		Rules:  []string{ruleA, ruleB},
	}
}

// ErrInvalidRule is returned when a rule declaration is malformed.
type ErrInvalidRule struct {
	ChkconfError
	RuleID string
	Field  string
}

// NewInvalidRule creates a new ErrInvalidRule.
func NewInvalidRule(ruleID, field, reason string) *ErrInvalidRule {
	return &ErrInvalidRule{
		ChkconfError: ChkconfError{
			Code:       CodeValidation,
			Message:    fmt.Sprintf("invalid rule %q", ruleID),
			Reason:     fmt.Sprintf("field '%s': %s", field, reason),
			Suggestion: "check the rule syntax with 'chkconf check'",
		},
		RuleID: ruleID,
		Field:  field,
	}
}

// ErrDuplicateFlag is returned when a flag is declared twice.
type ErrDuplicateFlag struct {
	ChkconfError
	Flag string
}

// NewDuplicateFlag creates a new ErrDuplicateFlag.
func NewDuplicateFlag(flag string) *ErrDuplicateFlag {
	return &ErrDuplicateFlag{
		ChkconfError: ChkconfError{
			Code:       CodeValidation,
			Message:    fmt.Sprintf("duplicate flag: %s", flag),
			Reason:     "flag names must be unique",
			Suggestion: "remove the second declaration",
		},
		Flag: flag,
	}
}

// ErrInvalidDefinition is returned when a rule-set definition file cannot be
// loaded.
type ErrInvalidDefinition struct {
	ChkconfError
	Path string
}

// NewInvalidDefinition creates a new ErrInvalidDefinition.
func NewInvalidDefinition(path, reason string, cause error) *ErrInvalidDefinition {
	return &ErrInvalidDefinition{
		ChkconfError: ChkconfError{
			Code:       CodeValidation,
			Message:    "invalid rule-set definition",
			Reason:     reason,
			Suggestion: "run 'chkconf init' for an annotated example definition",
			Cause:      cause,
		},
		Path: path,
	}
}

// ErrUnknownPlatform is returned for an unrecognised platform name.
type ErrUnknownPlatform struct {
	ChkconfError
	Platform string
}

// NewUnknownPlatform creates a new ErrUnknownPlatform.
func NewUnknownPlatform(platform string, valid []string) *ErrUnknownPlatform {
	return &ErrUnknownPlatform{
		ChkconfError: ChkconfError{
			Code:       CodeValidation,
			Message:    fmt.Sprintf("unknown platform: %s", platform),
			Reason:     fmt.Sprintf("valid platforms: %s", strings.Join(valid, ", ")),
			Suggestion: "pass one of the listed platforms with --platform",
		},
		Platform: platform,
	}
}

// ErrInvalidOverride is returned when a caller override cannot be parsed.
type ErrInvalidOverride struct {
	ChkconfError
	Input string
}

// NewInvalidOverride creates a new ErrInvalidOverride.
func NewInvalidOverride(input, reason string) *ErrInvalidOverride {
	return &ErrInvalidOverride{
		ChkconfError: ChkconfError{
			Code:       CodeValidation,
			Message:    fmt.Sprintf("invalid override: %s", input),
			Reason:     reason,
			Suggestion: "use NAME=1 or NAME=0 (true/false/on/off are accepted)",
		},
		Input: input,
	}
}

// ErrFrozen is returned when a frozen registry is mutated.
type ErrFrozen struct {
	ChkconfError
	Flag string
}

// NewFrozen creates a new ErrFrozen.
func NewFrozen(flag string) *ErrFrozen {
	return &ErrFrozen{
		ChkconfError: ChkconfError{
			Code:       CodeInternal,
			Message:    fmt.Sprintf("cannot modify %s: registry is frozen", flag),
			Reason:     "resolved flag sets are immutable",
			Suggestion: "clone the registry before starting a new configuration pass",
		},
		Flag: flag,
	}
}

// ErrStorage wraps failures of the report store.
type ErrStorage struct {
	ChkconfError
	Operation string
}

// NewStorage creates a new ErrStorage.
func NewStorage(operation string, cause error) *ErrStorage {
	return &ErrStorage{
		ChkconfError: ChkconfError{
			Code:       CodeInternal,
			Message:    fmt.Sprintf("report store: %s failed", operation),
			Reason:     "the report database rejected the operation",
			Suggestion: "check store.driver and store.dsn with 'chkconf doctor'",
			Cause:      cause,
		},
		Operation: operation,
	}
}

// ErrReportNotFound is returned when a stored report does not exist.
type ErrReportNotFound struct {
	ChkconfError
	ID string
}

// NewReportNotFound creates a new ErrReportNotFound.
func NewReportNotFound(id string) *ErrReportNotFound {
	return &ErrReportNotFound{
		ChkconfError: ChkconfError{
			Code:       CodeValidation,
			Message:    fmt.Sprintf("report not found: %s", id),
			Reason:     "no resolution report stored with this id",
			Suggestion: "list stored reports with 'chkconf history'",
		},
		ID: id,
	}
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
