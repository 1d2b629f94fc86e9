// Package bootstrap loads rule-set definitions and initializes projects.
//
// A definition is a single YAML document declaring flags and the rules
// between them. Definitions must be:
// - human-readable
// - versionable
// - strict: unknown keys fail
package bootstrap

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/canonica-labs/chkconf/internal/errors"
	"github.com/canonica-labs/chkconf/internal/flags"
	"github.com/canonica-labs/chkconf/internal/platform"
	"github.com/canonica-labs/chkconf/internal/rules"
)

// CurrentVersion is the only supported definition format version.
const CurrentVersion = 1

// Definition is a parsed rule-set definition file.
type Definition struct {
	Version     int                `yaml:"version"`
	Name        string             `yaml:"name"`
	Description string             `yaml:"description,omitempty"`
	Flags       map[string]FlagDef `yaml:"flags"`
	Rules       []RuleDef          `yaml:"rules"`

	// path is the source file path, empty for embedded definitions
	path string

	// validated tracks if Validate() has been called
	validated bool
}

// FlagDef declares one flag. A missing default leaves the flag unset until
// a rule derives it.
type FlagDef struct {
	Default     *Bit   `yaml:"default,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// RuleDef declares one rule. Exactly one of Implies, Requires and
// EnsureAny must be set.
type RuleDef struct {
	ID          string        `yaml:"id"`
	Description string        `yaml:"description,omitempty"`
	Implies     *ImpliesDef   `yaml:"implies,omitempty"`
	Requires    *RequiresDef  `yaml:"requires,omitempty"`
	EnsureAny   *EnsureAnyDef `yaml:"ensure_any,omitempty"`
	Severity    string        `yaml:"severity,omitempty"`
	Platforms   []string      `yaml:"platforms,omitempty"`
}

// ImpliesDef forces every flag in Set when When holds.
type ImpliesDef struct {
	When string         `yaml:"when"`
	Set  map[string]Bit `yaml:"set"`
}

// RequiresDef turns Flag off unless all (or any) of its dependencies are on.
type RequiresDef struct {
	Flag string   `yaml:"flag"`
	All  []string `yaml:"all,omitempty"`
	Any  []string `yaml:"any,omitempty"`
}

// EnsureAnyDef turns all of Flags on when When holds and none is on.
type EnsureAnyDef struct {
	When  string   `yaml:"when"`
	Flags []string `yaml:"flags"`
}

// Bit is a boolean accepting the flag spellings 0/1, true/false, on/off.
type Bit bool

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *Bit) UnmarshalYAML(node *yaml.Node) error {
	v, err := flags.ParseValue(node.Value)
	if err != nil || !v.IsSet() {
		return fmt.Errorf("line %d: %q is not a flag value (use 0, 1, true or false)", node.Line, node.Value)
	}
	*b = Bit(v.Bool())
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (b Bit) MarshalYAML() (interface{}, error) {
	return bool(b), nil
}

// Known keys per section. Anything else fails.
var (
	topLevelKeys  = keySet("version", "name", "description", "flags", "rules")
	flagKeys      = keySet("default", "description")
	ruleKeys      = keySet("id", "description", "implies", "requires", "ensure_any", "severity", "platforms")
	impliesKeys   = keySet("when", "set")
	requiresKeys  = keySet("flag", "all", "any")
	ensureAnyKeys = keySet("when", "flags")
)

func keySet(keys ...string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

// LoadDefinition reads and parses a definition file.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewInvalidDefinition(path, "cannot read definition file", err)
	}
	def, err := parseDefinition(path, data)
	if err != nil {
		return nil, err
	}
	return def, nil
}

// ParseDefinition parses a definition from YAML.
func ParseDefinition(data []byte) (*Definition, error) {
	return parseDefinition("", data)
}

func parseDefinition(path string, data []byte) (*Definition, error) {
	// First pass: check for unknown keys on the raw document
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.NewInvalidDefinition(path, "invalid YAML", err)
	}
	if raw == nil {
		return nil, errors.NewInvalidDefinition(path, "empty definition", nil)
	}
	if err := checkKeys(raw); err != nil {
		return nil, errors.NewInvalidDefinition(path, err.Error(), nil)
	}

	// Second pass: unmarshal into typed definition
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, errors.NewInvalidDefinition(path, "cannot decode definition", err)
	}
	def.path = path

	if def.Version != CurrentVersion {
		return nil, errors.NewInvalidDefinition(path,
			fmt.Sprintf("unsupported version %d (supported: %d)", def.Version, CurrentVersion), nil)
	}
	if len(def.Flags) == 0 {
		return nil, errors.NewInvalidDefinition(path, "missing required section: flags", nil)
	}

	return &def, nil
}

func checkKeys(raw map[string]interface{}) error {
	if err := unknownKey(raw, topLevelKeys, ""); err != nil {
		return err
	}

	if fs, ok := raw["flags"].(map[string]interface{}); ok {
		for name, v := range fs {
			if m, ok := v.(map[string]interface{}); ok {
				if err := unknownKey(m, flagKeys, "flag "+name); err != nil {
					return err
				}
			}
		}
	}

	rs, _ := raw["rules"].([]interface{})
	for i, v := range rs {
		m, ok := v.(map[string]interface{})
		if !ok {
			return fmt.Errorf("rule #%d is not a mapping", i+1)
		}
		where := fmt.Sprintf("rule #%d", i+1)
		if id, ok := m["id"].(string); ok {
			where = "rule " + id
		}
		if err := unknownKey(m, ruleKeys, where); err != nil {
			return err
		}
		for key, known := range map[string]map[string]bool{
			"implies":    impliesKeys,
			"requires":   requiresKeys,
			"ensure_any": ensureAnyKeys,
		} {
			if sub, ok := m[key].(map[string]interface{}); ok {
				if err := unknownKey(sub, known, where+" "+key); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func unknownKey(m map[string]interface{}, known map[string]bool, where string) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if known[k] {
			continue
		}
		if where == "" {
			return fmt.Errorf("unknown key: %s", k)
		}
		return fmt.Errorf("unknown key in %s: %s", where, k)
	}
	return nil
}

// Path returns the file the definition was loaded from.
func (d *Definition) Path() string {
	return d.path
}

// FlagNames returns the declared flag names, sorted.
func (d *Definition) FlagNames() []string {
	names := make([]string, 0, len(d.Flags))
	for name := range d.Flags {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the rules for structural errors: ids, forms, severities,
// platforms and condition syntax. References to undeclared flags are
// reported by Build.
func (d *Definition) Validate() error {
	seen := make(map[string]bool, len(d.Rules))
	for i, r := range d.Rules {
		if r.ID == "" {
			return errors.NewInvalidRule(fmt.Sprintf("#%d", i+1), "id", "rule id is required")
		}
		if seen[r.ID] {
			return errors.NewInvalidRule(r.ID, "id", "duplicate rule id")
		}
		seen[r.ID] = true

		if _, err := d.compile(r); err != nil {
			return err
		}
	}
	d.validated = true
	return nil
}

// IsValidated returns true if Validate() has been called successfully.
func (d *Definition) IsValidated() bool {
	return d.validated
}

// Build creates the seed registry and the rule set. Every flag starts at its
// default with origin default.
func (d *Definition) Build() (*flags.Registry, *rules.RuleSet, error) {
	if !d.validated {
		if err := d.Validate(); err != nil {
			return nil, nil, err
		}
	}

	reg := flags.NewRegistry()
	for _, name := range d.FlagNames() {
		fd := d.Flags[name]
		def := flags.Unset
		if fd.Default != nil {
			def = flags.FromBool(bool(*fd.Default))
		}
		if err := reg.Declare(name, def, fd.Description); err != nil {
			return nil, nil, err
		}
	}

	var all []rules.Rule
	for _, r := range d.Rules {
		compiled, err := d.compile(r)
		if err != nil {
			return nil, nil, err
		}
		all = append(all, compiled...)
	}

	rs, err := rules.NewRuleSet(all...)
	if err != nil {
		return nil, nil, err
	}
	if err := rs.Validate(reg); err != nil {
		return nil, nil, err
	}
	return reg, rs, nil
}

// compile turns one declaration into engine rules.
func (d *Definition) compile(r RuleDef) ([]rules.Rule, error) {
	forms := 0
	for _, set := range []bool{r.Implies != nil, r.Requires != nil, r.EnsureAny != nil} {
		if set {
			forms++
		}
	}
	if forms != 1 {
		return nil, errors.NewInvalidRule(r.ID, "form", "exactly one of implies, requires, ensure_any is required")
	}

	severity, err := rules.ParseSeverity(r.Severity)
	if err != nil {
		return nil, errors.NewInvalidRule(r.ID, "severity", err.Error())
	}

	var platforms []string
	for _, p := range r.Platforms {
		parsed, err := platform.Parse(p)
		if err != nil {
			return nil, errors.NewInvalidRule(r.ID, "platforms", "unknown platform "+p)
		}
		platforms = append(platforms, string(parsed))
	}

	var out []rules.Rule
	switch {
	case r.Implies != nil:
		if len(r.Implies.Set) == 0 {
			return nil, errors.NewInvalidRule(r.ID, "implies.set", "at least one flag is required")
		}
		cond, err := condition(r.ID, "implies.when", r.Implies.When)
		if err != nil {
			return nil, err
		}
		targets := make([]string, 0, len(r.Implies.Set))
		for name := range r.Implies.Set {
			targets = append(targets, name)
		}
		sort.Strings(targets)
		assigns := make([]rules.Assignment, len(targets))
		for i, name := range targets {
			assigns[i] = rules.Assignment{Flag: name, Value: bool(r.Implies.Set[name])}
		}
		out = rules.Implies(r.ID, cond, assigns...)

	case r.Requires != nil:
		req := r.Requires
		if req.Flag == "" {
			return nil, errors.NewInvalidRule(r.ID, "requires.flag", "flag is required")
		}
		switch {
		case len(req.All) > 0 && len(req.Any) > 0:
			return nil, errors.NewInvalidRule(r.ID, "requires", "use either all or any, not both")
		case len(req.All) > 0:
			out = []rules.Rule{rules.RequiresAll(r.ID, req.Flag, req.All...)}
		case len(req.Any) > 0:
			out = []rules.Rule{rules.RequiresAny(r.ID, req.Flag, req.Any...)}
		default:
			return nil, errors.NewInvalidRule(r.ID, "requires", "all or any must list at least one flag")
		}

	case r.EnsureAny != nil:
		if len(r.EnsureAny.Flags) == 0 {
			return nil, errors.NewInvalidRule(r.ID, "ensure_any.flags", "at least one flag is required")
		}
		cond, err := condition(r.ID, "ensure_any.when", r.EnsureAny.When)
		if err != nil {
			return nil, err
		}
		out = rules.EnsureAny(r.ID, cond, r.EnsureAny.Flags...)
	}

	for i := range out {
		out[i].Severity = severity
		out[i].Platforms = platforms
		out[i].Description = r.Description
	}
	return out, nil
}

func condition(ruleID, field, s string) (rules.Expr, error) {
	if strings.TrimSpace(s) == "" {
		return nil, errors.NewInvalidRule(ruleID, field, "condition is required")
	}
	e, err := rules.ParseCondition(s)
	if err != nil {
		return nil, errors.NewInvalidRule(ruleID, field, err.Error())
	}
	return e, nil
}

// Save writes the definition as YAML.
func (d *Definition) Save(path string) error {
	data, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal definition: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write definition file: %w", err)
	}

	return nil
}
