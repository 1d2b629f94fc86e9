// Package engine drives a flag registry to a fixed point under a rule set.
//
// Each pass evaluates every rule against the state at the start of the pass
// and rebuilds the next state as the seed plus the values forced by the
// rules that fired. Passes repeat until nothing changes. Because a pass
// never reads its own writes, the result does not depend on rule order.
package engine

import (
	"log/slog"
	"sort"

	"github.com/canonica-labs/chkconf/internal/errors"
	"github.com/canonica-labs/chkconf/internal/flags"
	"github.com/canonica-labs/chkconf/internal/rules"
)

// Engine resolves flag registries against one rule set.
// An Engine holds no per-resolution state and may be shared between
// goroutines.
type Engine struct {
	rules     []rules.Rule
	groups    map[string]map[string]bool
	policy    Policy
	maxPasses int
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMode sets the conflict mode. The default is ModeAutoCorrect.
func WithMode(m Mode) Option {
	return func(e *Engine) {
		e.policy.Mode = m
	}
}

// WithMaxPasses sets the pass bound. Zero or less keeps the default of
// len(rules) + len(flags).
func WithMaxPasses(n int) Option {
	return func(e *Engine) {
		e.maxPasses = n
	}
}

// WithLogger sets the logger used for pass and conflict messages.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an engine for rs.
func New(rs *rules.RuleSet, opts ...Option) *Engine {
	e := &Engine{
		rules:  rs.Canonical(),
		groups: make(map[string]map[string]bool),
		policy: Policy{Mode: ModeAutoCorrect},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, r := range e.rules {
		if e.groups[r.Group] == nil {
			e.groups[r.Group] = make(map[string]bool)
		}
		e.groups[r.Group][r.Target] = true
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Mode returns the engine's conflict mode.
func (e *Engine) Mode() Mode {
	return e.policy.Mode
}

// Result is the outcome of a successful resolution.
type Result struct {
	// Snapshot is the frozen, total flag assignment.
	Snapshot *flags.Snapshot

	// Changes is the change log ordered by pass and flag name.
	Changes []Change

	// Diagnostics holds the warnings recorded by the conflict policy.
	Diagnostics []Diagnostic

	// Sources maps each derived flag to the rules forcing it at the fixed
	// point, in canonical order.
	Sources map[string][]string

	// Passes is the number of passes run, including the final pass that
	// confirmed the fixed point.
	Passes int

	// Bound is the pass bound that applied.
	Bound int

	Mode Mode
}

// Warnings returns the number of warning diagnostics.
func (r *Result) Warnings() int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityWarning {
			n++
		}
	}
	return n
}

// ChangesFor returns the change log entries for one flag.
func (r *Result) ChangesFor(flag string) []Change {
	var out []Change
	for _, c := range r.Changes {
		if c.Flag == flag {
			out = append(out, c)
		}
	}
	return out
}

// Resolve runs propagation on a copy of seed and returns the frozen result.
// seed itself is never modified.
//
// Resolve fails with ErrUnknownFlag when a rule names an undeclared flag,
// ErrConfigConflict when strict mode rejects an origin conflict and
// ErrPropagationDivergence when no fixed point is reached.
func (e *Engine) Resolve(seed *flags.Registry) (*Result, error) {
	for _, r := range e.rules {
		if !seed.Has(r.Target) {
			return nil, errors.NewUnknownFlag(r.Target, "rule "+r.ID)
		}
		for _, ref := range r.Refs() {
			if !seed.Has(ref) {
				return nil, errors.NewUnknownFlag(ref, "rule "+r.ID)
			}
		}
	}

	bound := e.maxPasses
	if bound <= 0 {
		bound = len(e.rules) + seed.Len()
	}
	if bound < 1 {
		bound = 1
	}

	rc := newResolution(seed)
	var lastChanged []string
	var lastFired map[string][]firing

	for pass := 1; ; pass++ {
		if pass > bound {
			return nil, errors.NewPropagationDivergence(pass-1, bound, lastChanged,
				e.implicated(lastChanged, lastFired, rc.fired))
		}

		// Evaluate every rule against the pass-start state.
		fired, err := e.evaluate(rc, pass)
		if err != nil {
			return nil, err
		}

		// Rebuild from the seed with the forced values applied.
		next, conflicts, err := e.apply(rc, fired)
		if err != nil {
			return nil, err
		}

		changed := e.diff(rc, pass, next, fired)
		e.logger.Debug("propagation pass",
			slog.Int("pass", pass),
			slog.Int("fired", len(fired)),
			slog.Int("changed", len(changed)),
		)

		lastFired = rc.fired
		rc.state = next
		rc.fired = fired
		rc.contrib = e.contributors(fired)

		if len(changed) > 0 {
			lastChanged = changed
			continue
		}

		// Fixed point. Only conflicts that survive to here count.
		for _, c := range conflicts {
			if e.policy.Decide(c) == ActionAbort {
				return nil, e.policy.Error(c)
			}
			if rc.warn(e.policy.Warning(c)) {
				e.logger.Warn("rule overrides explicit setting",
					slog.String("flag", c.Flag),
					slog.String("rule", c.Rule.ID),
					slog.Bool("user_value", c.UserValue),
					slog.Bool("forced", c.Forced),
				)
			}
		}

		return e.finish(rc, pass, bound)
	}
}

// evaluate returns, per target flag, the rules that fired in this pass.
// Two rules forcing one flag to opposite values is a same-pass conflict.
func (e *Engine) evaluate(rc *resolution, pass int) (map[string][]firing, error) {
	fired := make(map[string][]firing)
	for i, r := range e.rules {
		env := e.env(rc, r.Group)
		if !r.Condition.Eval(env) {
			continue
		}
		prior := fired[r.Target]
		if len(prior) > 0 && prior[0].value != r.Value {
			first := e.rules[prior[0].ruleIdx]
			return nil, errors.NewSamePassConflict(pass, r.Target,
				first.ID, first.Value, r.ID, r.Value)
		}
		fired[r.Target] = append(prior, firing{ruleIdx: i, value: r.Value})
	}
	return fired, nil
}

// env returns the flag reader for rules of group. A flag the group itself
// targets, and that only this group forced in the previous pass, reads as
// its seed value.
func (e *Engine) env(rc *resolution, group string) rules.Env {
	targets := e.groups[group]
	return func(name string) bool {
		if targets[name] && onlyGroup(rc.contrib[name], group) {
			v, _ := rc.seed.Get(name)
			return v.Bool()
		}
		v, _ := rc.state.Get(name)
		return v.Bool()
	}
}

func onlyGroup(contrib map[string]bool, group string) bool {
	for g := range contrib {
		if g != group {
			return false
		}
	}
	return true
}

// apply builds the next state from the seed and the forced values. A forced
// value that loses to a user setting is an origin conflict; it is applied
// tentatively and judged by the policy once the fixed point is known.
func (e *Engine) apply(rc *resolution, fired map[string][]firing) (*flags.Registry, []Conflict, error) {
	next := rc.seed.Clone()
	var conflicts []Conflict

	for _, name := range sortedKeys(fired) {
		fs := fired[name]
		v := flags.FromBool(fs[0].value)

		status, err := next.Set(name, v, flags.OriginDerived)
		if err != nil {
			return nil, nil, err
		}
		if status != flags.SetIgnored {
			continue
		}

		user, err := rc.seed.Get(name)
		if err != nil {
			return nil, nil, err
		}
		if user == v {
			continue
		}
		for _, f := range fs {
			conflicts = append(conflicts, Conflict{
				Flag:      name,
				UserValue: user.Bool(),
				Forced:    f.value,
				Rule:      e.rules[f.ruleIdx],
			})
		}
		if err := next.Override(name, v); err != nil {
			return nil, nil, err
		}
	}
	return next, conflicts, nil
}

// diff appends the differences between the current state and next to the
// change log and returns the names of the changed flags.
func (e *Engine) diff(rc *resolution, pass int, next *flags.Registry, fired map[string][]firing) []string {
	var changed []string
	for _, f := range next.All() {
		old, err := rc.state.Lookup(f.Name)
		if err != nil {
			continue
		}
		if old.Value == f.Value && old.Origin == f.Origin {
			continue
		}
		changed = append(changed, f.Name)

		var ruleID string
		if fs := fired[f.Name]; len(fs) > 0 {
			ruleID = e.rules[fs[0].ruleIdx].ID
		}
		rc.changes = append(rc.changes, Change{
			Pass:   pass,
			Flag:   f.Name,
			Old:    old.Value,
			New:    f.Value,
			Origin: f.Origin,
			RuleID: ruleID,
		})
	}
	return changed
}

func (e *Engine) contributors(fired map[string][]firing) map[string]map[string]bool {
	out := make(map[string]map[string]bool, len(fired))
	for name, fs := range fired {
		groups := make(map[string]bool, len(fs))
		for _, f := range fs {
			groups[e.rules[f.ruleIdx].Group] = true
		}
		out[name] = groups
	}
	return out
}

// implicated returns the rules that forced any of the named flags in the
// last two passes.
func (e *Engine) implicated(names []string, passes ...map[string][]firing) []string {
	set := make(map[string]bool)
	for _, fired := range passes {
		for _, name := range names {
			for _, f := range fired[name] {
				set[e.rules[f.ruleIdx].ID] = true
			}
		}
	}
	return sortedKeys(set)
}

// finish finalizes unset flags to false and freezes the state.
func (e *Engine) finish(rc *resolution, passes, bound int) (*Result, error) {
	for _, f := range rc.state.All() {
		if f.Value.IsSet() {
			continue
		}
		if _, err := rc.state.Set(f.Name, flags.False, f.Origin); err != nil {
			return nil, err
		}
	}

	sources := make(map[string][]string, len(rc.fired))
	for name, fs := range rc.fired {
		ids := make([]string, len(fs))
		for i, f := range fs {
			ids[i] = e.rules[f.ruleIdx].ID
		}
		sources[name] = ids
	}

	return &Result{
		Snapshot:    rc.state.Freeze(),
		Changes:     rc.changes,
		Diagnostics: rc.diagnostics,
		Sources:     sources,
		Passes:      passes,
		Bound:       bound,
		Mode:        e.policy.Mode,
	}, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
