package flags

import (
	"github.com/canonica-labs/chkconf/internal/errors"
)

// Snapshot is the frozen result of a configuration pass. It has no mutating
// methods, so any number of goroutines may read it without synchronization.
type Snapshot struct {
	flags []Flag
	index map[string]int
}

func newSnapshot(sorted []Flag) *Snapshot {
	s := &Snapshot{
		flags: sorted,
		index: make(map[string]int, len(sorted)),
	}
	for i, f := range sorted {
		s.index[f.Name] = i
	}
	return s
}

// Get returns the value of a flag.
func (s *Snapshot) Get(name string) (Value, error) {
	i, ok := s.index[name]
	if !ok {
		return Unset, errors.NewUnknownFlag(name, "lookup")
	}
	return s.flags[i].Value, nil
}

// IsEnabled reports whether a flag resolved to true.
func (s *Snapshot) IsEnabled(name string) (bool, error) {
	v, err := s.Get(name)
	if err != nil {
		return false, err
	}
	return v.Bool(), nil
}

// Lookup returns the full flag record.
func (s *Snapshot) Lookup(name string) (Flag, error) {
	i, ok := s.index[name]
	if !ok {
		return Flag{}, errors.NewUnknownFlag(name, "lookup")
	}
	return s.flags[i], nil
}

// All returns a copy of every flag, sorted by name.
func (s *Snapshot) All() []Flag {
	out := make([]Flag, len(s.flags))
	copy(out, s.flags)
	return out
}

// Map returns the flag mapping as name → bool.
func (s *Snapshot) Map() map[string]bool {
	m := make(map[string]bool, len(s.flags))
	for _, f := range s.flags {
		m[f.Name] = f.Value.Bool()
	}
	return m
}

// Len returns the number of flags.
func (s *Snapshot) Len() int {
	return len(s.flags)
}

// Thaw returns a new unfrozen Registry holding the snapshot's values and
// origins. It is used to re-run propagation on a resolved flag set.
func (s *Snapshot) Thaw() *Registry {
	r := NewRegistry()
	for _, f := range s.flags {
		cp := f
		r.flags[f.Name] = &cp
	}
	return r
}
