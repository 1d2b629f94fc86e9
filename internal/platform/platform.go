// Package platform selects the rule subset that applies to a target port and
// exposes the frozen flag set to downstream consumers.
package platform

import (
	"strings"

	"github.com/canonica-labs/chkconf/internal/errors"
	"github.com/canonica-labs/chkconf/internal/rules"
)

// Platform identifies a target port.
type Platform string

const (
	Base    Platform = "base"
	MSW     Platform = "msw"
	GTK     Platform = "gtk"
	OSX     Platform = "osx"
	Unix    Platform = "unix"
	Univ    Platform = "univ"
	X11     Platform = "x11"
	Motif   Platform = "motif"
	DFB     Platform = "dfb"
	Android Platform = "android"
	OS2     Platform = "os2"
)

// AllPlatforms returns all valid platforms.
func AllPlatforms() []Platform {
	return []Platform{Base, MSW, GTK, OSX, Unix, Univ, X11, Motif, DFB, Android, OS2}
}

// Names returns the platform names as strings.
func Names() []string {
	all := AllPlatforms()
	out := make([]string, len(all))
	for i, p := range all {
		out[i] = string(p)
	}
	return out
}

// IsValid checks if the platform is known.
func (p Platform) IsValid() bool {
	for _, valid := range AllPlatforms() {
		if p == valid {
			return true
		}
	}
	return false
}

// String returns the platform name.
func (p Platform) String() string {
	return string(p)
}

// Parse parses a platform name. Unknown names fail with ErrUnknownPlatform.
func Parse(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", errors.NewUnknownPlatform(s, Names())
	}
	return p, nil
}

// IsUnixLike reports whether the port builds on the unix base.
func (p Platform) IsUnixLike() bool {
	switch p {
	case Unix, GTK, X11, Motif, DFB, OSX, Android, Univ:
		return true
	default:
		return false
	}
}

// IsGUI reports whether the port has a GUI toolkit.
func (p Platform) IsGUI() bool {
	switch p {
	case Base, Unix:
		return false
	default:
		return true
	}
}

// Lineage returns the platform names whose rules apply to p: p itself and,
// for unix-derived ports, unix.
func (p Platform) Lineage() []string {
	if p != Unix && p.IsUnixLike() {
		return []string{string(p), string(Unix)}
	}
	return []string{string(p)}
}

// RulesFor returns the rules that apply on p: those without a platform list
// and those naming p or a platform in its lineage.
func RulesFor(p Platform, rs *rules.RuleSet) *rules.RuleSet {
	return rs.Filter(func(r rules.Rule) bool { return appliesOn(p, r) })
}

// ActivePlatforms returns the names of the platforms r is active on once
// lineage is taken into account, or nil when r applies everywhere.
func ActivePlatforms(r rules.Rule) []string {
	if len(r.Platforms) == 0 {
		return nil
	}
	var out []string
	for _, p := range AllPlatforms() {
		if appliesOn(p, r) {
			out = append(out, string(p))
		}
	}
	if len(out) == 0 {
		return r.Platforms
	}
	return out
}

func appliesOn(p Platform, r rules.Rule) bool {
	if len(r.Platforms) == 0 {
		return true
	}
	for _, name := range p.Lineage() {
		if r.AppliesTo(name) {
			return true
		}
	}
	return false
}
