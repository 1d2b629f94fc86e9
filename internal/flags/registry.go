package flags

import (
	"sort"

	"github.com/canonica-labs/chkconf/internal/errors"
)

// Flag is one named boolean capability switch.
type Flag struct {
	Name        string
	Value       Value
	Origin      Origin
	Default     Value
	Description string
}

// SetStatus is the outcome of Registry.Set.
type SetStatus int

const (
	// SetApplied means the value or origin changed.
	SetApplied SetStatus = iota
	// SetUnchanged means the flag already had this value and origin.
	SetUnchanged
	// SetIgnored means the new origin has lower precedence than the current one.
	SetIgnored
)

// String returns the status name.
func (s SetStatus) String() string {
	switch s {
	case SetApplied:
		return "applied"
	case SetUnchanged:
		return "unchanged"
	case SetIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// Registry maps flag names to their current value and origin.
// It is not safe for concurrent mutation; every configuration pass owns its
// own Registry.
type Registry struct {
	flags  map[string]*Flag
	frozen bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		flags: make(map[string]*Flag),
	}
}

// Declare registers a flag with its default value. The flag starts with the
// default value and OriginDefault.
func (r *Registry) Declare(name string, def Value, description string) error {
	if r.frozen {
		return errors.NewFrozen(name)
	}
	if _, ok := r.flags[name]; ok {
		return errors.NewDuplicateFlag(name)
	}
	r.flags[name] = &Flag{
		Name:        name,
		Value:       def,
		Origin:      OriginDefault,
		Default:     def,
		Description: description,
	}
	return nil
}

// Has reports whether the flag is declared.
func (r *Registry) Has(name string) bool {
	_, ok := r.flags[name]
	return ok
}

// Get returns the current value of a flag.
func (r *Registry) Get(name string) (Value, error) {
	f, ok := r.flags[name]
	if !ok {
		return Unset, errors.NewUnknownFlag(name, "lookup")
	}
	return f.Value, nil
}

// Lookup returns a copy of the flag record.
func (r *Registry) Lookup(name string) (Flag, error) {
	f, ok := r.flags[name]
	if !ok {
		return Flag{}, errors.NewUnknownFlag(name, "lookup")
	}
	return *f, nil
}

// Set overwrites a flag only if origin has equal or higher precedence than
// the flag's current origin. A lower-precedence write is not an error; it
// returns SetIgnored and leaves the flag untouched.
func (r *Registry) Set(name string, v Value, origin Origin) (SetStatus, error) {
	f, ok := r.flags[name]
	if !ok {
		return SetIgnored, errors.NewUnknownFlag(name, "set")
	}
	if r.frozen {
		return SetIgnored, errors.NewFrozen(name)
	}
	if !origin.Outranks(f.Origin) {
		return SetIgnored, nil
	}
	if f.Value == v && f.Origin == origin {
		return SetUnchanged, nil
	}
	f.Value = v
	f.Origin = origin
	return SetApplied, nil
}

// Override replaces a value regardless of precedence and marks it derived.
// Only the conflict policy uses it, when auto-correct mode lets a rule win
// over an explicit user setting.
func (r *Registry) Override(name string, v Value) error {
	f, ok := r.flags[name]
	if !ok {
		return errors.NewUnknownFlag(name, "override")
	}
	if r.frozen {
		return errors.NewFrozen(name)
	}
	f.Value = v
	f.Origin = OriginDerived
	return nil
}

// Len returns the number of declared flags.
func (r *Registry) Len() int {
	return len(r.flags)
}

// Names returns all flag names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.flags))
	for name := range r.flags {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns copies of every flag, sorted by name.
func (r *Registry) All() []Flag {
	out := make([]Flag, 0, len(r.flags))
	for _, name := range r.Names() {
		out = append(out, *r.flags[name])
	}
	return out
}

// Clone returns an independent, unfrozen copy of the registry.
func (r *Registry) Clone() *Registry {
	c := &Registry{flags: make(map[string]*Flag, len(r.flags))}
	for name, f := range r.flags {
		cp := *f
		c.flags[name] = &cp
	}
	return c
}

// Freeze marks the registry immutable and returns a read-only snapshot of
// it. Any later mutation of r fails with ErrFrozen.
func (r *Registry) Freeze() *Snapshot {
	r.frozen = true
	return newSnapshot(r.All())
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	return r.frozen
}
