// Package capabilities defines the runtime capabilities a resolved flag set
// grants to trait objects.
//
// A capability is never configured directly. It is gated by a condition over
// flags and computed once from the frozen snapshot.
package capabilities

import (
	"fmt"
	"sort"
	"strings"
)

// Capability represents a facility a trait object can provide.
type Capability string

const (
	// CapabilityConfig allows creating a configuration store.
	CapabilityConfig Capability = "CONFIG"

	// CapabilityEventLoop allows creating an event loop.
	CapabilityEventLoop Capability = "EVENT_LOOP"

	// CapabilityRenderer allows creating a native renderer.
	CapabilityRenderer Capability = "RENDERER"

	// CapabilityMessageOutput allows emitting user-visible messages.
	CapabilityMessageOutput Capability = "MESSAGE_OUTPUT"

	// CapabilityTimer allows creating timer implementations.
	CapabilityTimer Capability = "TIMER"

	// CapabilityThreads allows the GUI mutex and worker threads.
	CapabilityThreads Capability = "THREADS"

	// CapabilitySockets allows creating a socket manager.
	CapabilitySockets Capability = "SOCKETS"

	// CapabilityStdPaths allows standard path lookup.
	CapabilityStdPaths Capability = "STD_PATHS"
)

// AllCapabilities returns all valid capabilities.
func AllCapabilities() []Capability {
	return []Capability{
		CapabilityConfig,
		CapabilityEventLoop,
		CapabilityRenderer,
		CapabilityMessageOutput,
		CapabilityTimer,
		CapabilityThreads,
		CapabilitySockets,
		CapabilityStdPaths,
	}
}

// IsValid checks if the capability is a known valid capability.
func (c Capability) IsValid() bool {
	for _, valid := range AllCapabilities() {
		if c == valid {
			return true
		}
	}
	return false
}

// String returns the string representation of the capability.
func (c Capability) String() string {
	return string(c)
}

// ParseCapability parses a string into a Capability.
// Returns an error if the string is not a valid capability.
func ParseCapability(s string) (Capability, error) {
	c := Capability(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("invalid capability: %s (valid: %v)", s, AllCapabilities())
	}
	return c, nil
}

// CapabilitySet is a set of capabilities for efficient lookup.
type CapabilitySet map[Capability]struct{}

// NewCapabilitySet creates a new CapabilitySet from a slice of capabilities.
func NewCapabilitySet(caps []Capability) CapabilitySet {
	set := make(CapabilitySet, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

// Has checks if the set contains the given capability.
func (cs CapabilitySet) Has(c Capability) bool {
	_, ok := cs[c]
	return ok
}

// Add adds a capability to the set.
func (cs CapabilitySet) Add(c Capability) {
	cs[c] = struct{}{}
}

// Slice returns the capabilities sorted by name.
func (cs CapabilitySet) Slice() []Capability {
	result := make([]Capability, 0, len(cs))
	for c := range cs {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// Strings returns the sorted capability names.
func (cs CapabilitySet) Strings() []string {
	caps := cs.Slice()
	out := make([]string, len(caps))
	for i, c := range caps {
		out[i] = string(c)
	}
	return out
}
