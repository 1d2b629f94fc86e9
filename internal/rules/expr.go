// Package rules defines the declarative rule model: boolean conditions over
// flag names and the single-target actions they force.
//
// Rules are data. The textual conditional nesting of a setup header becomes
// a list of (condition, action) pairs that can be inspected, filtered per
// platform and evaluated by the propagation engine in isolation.
package rules

import (
	"sort"
	"strings"
)

// Env resolves a flag name to its truth value during evaluation.
type Env func(name string) bool

// Expr is a boolean expression over flag names.
type Expr interface {
	// Eval evaluates the expression against env.
	Eval(env Env) bool

	// String renders the expression in the condition syntax accepted by
	// ParseCondition.
	String() string

	refs(dst map[string]struct{})
}

// Refs returns the sorted, de-duplicated flag names read by e.
func Refs(e Expr) []string {
	set := make(map[string]struct{})
	e.refs(set)
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Ref tests whether a flag is on.
type Ref string

func (r Ref) Eval(env Env) bool { return env(string(r)) }
func (r Ref) String() string    { return string(r) }
func (r Ref) refs(dst map[string]struct{}) {
	dst[string(r)] = struct{}{}
}

// Const is a literal truth value.
type Const bool

func (c Const) Eval(Env) bool { return bool(c) }
func (c Const) String() string {
	if c {
		return "true"
	}
	return "false"
}
func (c Const) refs(map[string]struct{}) {}

// Not negates its operand.
type Not struct {
	X Expr
}

func (n Not) Eval(env Env) bool { return !n.X.Eval(env) }
func (n Not) String() string {
	switch n.X.(type) {
	case Ref, Const, Not:
		return "!" + n.X.String()
	default:
		return "!(" + n.X.String() + ")"
	}
}
func (n Not) refs(dst map[string]struct{}) { n.X.refs(dst) }

// And holds when every operand holds. An empty And is true.
type And []Expr

func (a And) Eval(env Env) bool {
	for _, x := range a {
		if !x.Eval(env) {
			return false
		}
	}
	return true
}

func (a And) String() string {
	if len(a) == 0 {
		return "true"
	}
	parts := make([]string, len(a))
	for i, x := range a {
		if o, ok := x.(Or); ok && len(o) > 1 {
			parts[i] = "(" + x.String() + ")"
			continue
		}
		parts[i] = x.String()
	}
	return strings.Join(parts, " && ")
}

func (a And) refs(dst map[string]struct{}) {
	for _, x := range a {
		x.refs(dst)
	}
}

// Or holds when any operand holds. An empty Or is false.
type Or []Expr

func (o Or) Eval(env Env) bool {
	for _, x := range o {
		if x.Eval(env) {
			return true
		}
	}
	return false
}

func (o Or) String() string {
	if len(o) == 0 {
		return "false"
	}
	parts := make([]string, len(o))
	for i, x := range o {
		parts[i] = x.String()
	}
	return strings.Join(parts, " || ")
}

func (o Or) refs(dst map[string]struct{}) {
	for _, x := range o {
		x.refs(dst)
	}
}

// AllOf builds the conjunction of flag tests.
func AllOf(names ...string) Expr {
	if len(names) == 1 {
		return Ref(names[0])
	}
	a := make(And, len(names))
	for i, n := range names {
		a[i] = Ref(n)
	}
	return a
}

// AnyOf builds the disjunction of flag tests.
func AnyOf(names ...string) Expr {
	if len(names) == 1 {
		return Ref(names[0])
	}
	o := make(Or, len(names))
	for i, n := range names {
		o[i] = Ref(n)
	}
	return o
}

// NoneOf holds when every named flag is off.
func NoneOf(names ...string) Expr {
	a := make(And, len(names))
	for i, n := range names {
		a[i] = Not{X: Ref(n)}
	}
	return a
}
