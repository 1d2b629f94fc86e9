// Package flags holds the flag registry: the mapping from flag name to its
// current tri-state value and the origin of that value.
//
// A Registry is the mutable working set of one configuration pass. Freezing
// it yields a Snapshot, which is immutable and safe for concurrent readers.
package flags

import (
	"fmt"
	"strings"
)

// Value is the tri-state value of a flag.
type Value int8

const (
	// Unset means no default was declared and no rule has derived a value yet.
	Unset Value = iota
	False
	True
)

// FromBool converts a boolean into a set Value.
func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Bool reports whether the value is True. Unset reads as false, the way an
// undefined macro does in a preprocessor #if.
func (v Value) Bool() bool {
	return v == True
}

// IsSet reports whether the value is True or False.
func (v Value) IsSet() bool {
	return v == True || v == False
}

// String returns "1", "0" or "unset".
func (v Value) String() string {
	switch v {
	case True:
		return "1"
	case False:
		return "0"
	default:
		return "unset"
	}
}

// ParseValue parses the usual spellings of a boolean switch.
func ParseValue(s string) (Value, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "on", "yes", "y":
		return True, nil
	case "0", "false", "off", "no", "n":
		return False, nil
	case "", "unset":
		return Unset, nil
	default:
		return Unset, fmt.Errorf("invalid flag value %q (valid: 1, 0, true, false, on, off)", s)
	}
}

// Origin records where a flag's current value came from. Origins are
// ordered by precedence: OriginUser > OriginDerived > OriginDefault.
type Origin int8

const (
	OriginDefault Origin = iota
	OriginDerived
	OriginUser
)

// String returns the origin name used in diagnostics and reports.
func (o Origin) String() string {
	switch o {
	case OriginDefault:
		return "default"
	case OriginDerived:
		return "derived"
	case OriginUser:
		return "user-override"
	default:
		return fmt.Sprintf("origin(%d)", int8(o))
	}
}

// Outranks reports whether o has equal or higher precedence than other.
func (o Origin) Outranks(other Origin) bool {
	return o >= other
}

// ParseOrigin parses an origin name as produced by String.
func ParseOrigin(s string) (Origin, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "default":
		return OriginDefault, nil
	case "derived":
		return OriginDerived, nil
	case "user-override", "user":
		return OriginUser, nil
	default:
		return OriginDefault, fmt.Errorf("invalid origin %q", s)
	}
}
