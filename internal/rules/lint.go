package rules

import (
	"fmt"
	"sort"
)

// maxLintVars bounds the truth-table search used by Lint.
const maxLintVars = 16

// FindingLevel grades a lint finding.
type FindingLevel string

const (
	LevelInfo    FindingLevel = "info"
	LevelWarning FindingLevel = "warning"
)

// Finding is one result of Lint.
type Finding struct {
	Level   FindingLevel
	Rules   []string
	Flag    string
	Message string
}

// LintOption tunes Lint.
type LintOption func(*lintConfig)

type lintConfig struct {
	active func(Rule) []string
}

// WithActivePlatforms makes Lint compare the platforms a rule is active on,
// as computed by f, instead of the platforms it names. A nil or empty result
// means every platform.
func WithActivePlatforms(f func(Rule) []string) LintOption {
	return func(c *lintConfig) { c.active = f }
}

// Lint reports suspicious rule-set structure:
// - declared flags no rule reads or forces
// - rules whose condition can never hold
// - rule pairs that can force one flag to opposite values in the same pass
//
// Conditions with more than maxLintVars distinct flags are not analyzed.
func Lint(rs *RuleSet, declared []string, opts ...LintOption) []Finding {
	cfg := lintConfig{active: func(r Rule) []string { return r.Platforms }}
	for _, opt := range opts {
		opt(&cfg)
	}

	var out []Finding
	canon := rs.Canonical()

	used := make(map[string]bool)
	for _, r := range canon {
		used[r.Target] = true
		for _, ref := range r.Refs() {
			used[ref] = true
		}
	}
	names := append([]string(nil), declared...)
	sort.Strings(names)
	for _, name := range names {
		if !used[name] {
			out = append(out, Finding{
				Level:   LevelInfo,
				Flag:    name,
				Message: fmt.Sprintf("flag %s is not used by any rule", name),
			})
		}
	}

	for _, r := range canon {
		if sat, ok := satisfiable(r.Condition); ok && !sat {
			out = append(out, Finding{
				Level:   LevelWarning,
				Rules:   []string{r.ID},
				Flag:    r.Target,
				Message: fmt.Sprintf("condition of rule %s can never hold", r.ID),
			})
		}
	}

	for i, a := range canon {
		for _, b := range canon[i+1:] {
			if a.Target != b.Target || a.Value == b.Value || a.Group == b.Group {
				continue
			}
			if !platformsOverlap(cfg.active(a), cfg.active(b)) {
				continue
			}
			if sat, ok := satisfiable(And{a.Condition, b.Condition}); ok && sat {
				out = append(out, Finding{
					Level: LevelWarning,
					Rules: []string{a.ID, b.ID},
					Flag:  a.Target,
					Message: fmt.Sprintf("rules %s and %s can force %s to opposite values in the same pass",
						a.ID, b.ID, a.Target),
				})
			}
		}
	}
	return out
}

// satisfiable reports whether some assignment makes e true. ok is false when
// e reads too many flags to check.
func satisfiable(e Expr) (sat, ok bool) {
	refs := Refs(e)
	if len(refs) > maxLintVars {
		return false, false
	}
	pos := make(map[string]int, len(refs))
	for i, name := range refs {
		pos[name] = i
	}
	for bits := 0; bits < 1<<len(refs); bits++ {
		env := func(name string) bool { return bits&(1<<pos[name]) != 0 }
		if e.Eval(env) {
			return true, true
		}
	}
	return false, true
}

func platformsOverlap(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return true
	}
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
