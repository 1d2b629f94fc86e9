package engine

import (
	stderrors "errors"

	"github.com/canonica-labs/chkconf/internal/errors"
	"github.com/canonica-labs/chkconf/internal/flags"
)

// Change is one entry of the resolution change log.
type Change struct {
	// Pass is the 1-based propagation pass that made the change.
	Pass int

	Flag string
	Old  flags.Value
	New  flags.Value

	// Origin is the flag's origin after the change.
	Origin flags.Origin

	// RuleID is the rule that forced the new value. It is empty when the
	// flag fell back to its seed value because no rule forced it any more.
	RuleID string
}

// DiagnosticKind classifies a diagnostic.
type DiagnosticKind string

const (
	KindOriginConflict DiagnosticKind = "origin-conflict"
	KindConfigConflict DiagnosticKind = "config-conflict"
	KindDivergence     DiagnosticKind = "propagation-divergence"
	KindUnknownFlag    DiagnosticKind = "unknown-flag"
	KindInternal       DiagnosticKind = "internal"
)

// DiagnosticSeverity is warning or error.
type DiagnosticSeverity string

const (
	SeverityWarning DiagnosticSeverity = "warning"
	SeverityError   DiagnosticSeverity = "error"
)

// Diagnostic explains something the caller should know about a resolution.
type Diagnostic struct {
	Kind     DiagnosticKind
	Severity DiagnosticSeverity
	Message  string
	Flags    []string
	Rules    []string
}

// ErrorDiagnostic converts a fatal resolution error into a diagnostic, so a
// failed run can be reported in the same shape as warnings.
func ErrorDiagnostic(err error) Diagnostic {
	d := Diagnostic{
		Kind:     KindInternal,
		Severity: SeverityError,
		Message:  err.Error(),
	}

	var conflict *errors.ErrConfigConflict
	var divergence *errors.ErrPropagationDivergence
	var unknown *errors.ErrUnknownFlag
	switch {
	case stderrors.As(err, &conflict):
		d.Kind = KindConfigConflict
		d.Message = conflict.Message + ": " + conflict.Reason
		d.Flags = []string{conflict.Flag}
		d.Rules = []string{conflict.RuleID}
	case stderrors.As(err, &divergence):
		d.Kind = KindDivergence
		d.Message = divergence.Message + ": " + divergence.Reason
		d.Flags = divergence.Flags
		d.Rules = divergence.Rules
	case stderrors.As(err, &unknown):
		d.Kind = KindUnknownFlag
		d.Message = unknown.Message + ": " + unknown.Reason
		d.Flags = []string{unknown.Flag}
	}
	return d
}

// firing is a rule whose condition held during a pass.
type firing struct {
	ruleIdx int
	value   bool
}

// resolution is the mutable working set of one Resolve call.
type resolution struct {
	seed  *flags.Registry
	state *flags.Registry

	// contrib holds, per flag, the groups whose rules forced it in the
	// previous pass.
	contrib map[string]map[string]bool

	// fired holds, per flag, the rules that forced it in the previous pass.
	fired map[string][]firing

	changes     []Change
	diagnostics []Diagnostic
	warned      map[string]bool
}

func newResolution(seed *flags.Registry) *resolution {
	return &resolution{
		seed:    seed.Clone(),
		state:   seed.Clone(),
		contrib: make(map[string]map[string]bool),
		fired:   make(map[string][]firing),
		warned:  make(map[string]bool),
	}
}

// warn records d once per flag/rule pair.
func (rc *resolution) warn(d Diagnostic) bool {
	key := d.Flags[0] + "\x00" + d.Rules[0]
	if rc.warned[key] {
		return false
	}
	rc.warned[key] = true
	rc.diagnostics = append(rc.diagnostics, d)
	return true
}
