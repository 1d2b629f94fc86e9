package platform

import (
	"fmt"

	"github.com/canonica-labs/chkconf/internal/flags"
)

// Selector is the read-only view of a resolved flag set handed to consumers.
type Selector struct {
	snap *flags.Snapshot
}

// NewSelector wraps a frozen snapshot.
func NewSelector(snap *flags.Snapshot) *Selector {
	return &Selector{snap: snap}
}

// IsEnabled reports whether name resolved to true. An unknown name fails
// with ErrUnknownFlag; callers should treat that as a misdeclared
// dependency.
func (s *Selector) IsEnabled(name string) (bool, error) {
	return s.snap.IsEnabled(name)
}

// MustEnabled is like IsEnabled but panics on an unknown flag.
func (s *Selector) MustEnabled(name string) bool {
	on, err := s.snap.IsEnabled(name)
	if err != nil {
		panic(fmt.Sprintf("platform: %v", err))
	}
	return on
}

// Snapshot returns the underlying snapshot.
func (s *Selector) Snapshot() *flags.Snapshot {
	return s.snap
}
