package flags

import (
	"strings"

	"github.com/canonica-labs/chkconf/internal/errors"
)

// ParseAssignment parses an explicit setting of the form NAME=VALUE. A bare
// NAME means NAME=1. Overrides must decide the flag, so "unset" is rejected.
func ParseAssignment(s string) (string, Value, error) {
	name, raw, found := strings.Cut(strings.TrimSpace(s), "=")
	name = strings.TrimSpace(name)
	if name == "" {
		return "", Unset, errors.NewInvalidOverride(s, "missing flag name")
	}
	if !found {
		return name, True, nil
	}
	v, err := ParseValue(raw)
	if err != nil {
		return "", Unset, errors.NewInvalidOverride(s, err.Error())
	}
	if !v.IsSet() {
		return "", Unset, errors.NewInvalidOverride(s, "an explicit setting must be 0 or 1")
	}
	return name, v, nil
}
