package rules

import (
	"sort"

	"github.com/canonica-labs/chkconf/internal/errors"
)

// FlagSet is anything that can answer whether a flag is declared.
type FlagSet interface {
	Has(name string) bool
}

// RuleSet is an ordered, validated collection of rules. Declaration order is
// kept for display only; evaluation uses Canonical so that results never
// depend on the order rules were written in.
type RuleSet struct {
	rules     []Rule
	byID      map[string]int
	canonical []Rule
	groups    map[string][]string
}

// NewRuleSet builds a rule set. Rules must have unique, non-empty IDs, a
// condition, a target and a valid severity.
func NewRuleSet(rs ...Rule) (*RuleSet, error) {
	s := &RuleSet{
		rules:  make([]Rule, 0, len(rs)),
		byID:   make(map[string]int, len(rs)),
		groups: make(map[string][]string),
	}
	for _, r := range rs {
		if err := s.add(r); err != nil {
			return nil, err
		}
	}
	s.index()
	return s, nil
}

func (s *RuleSet) add(r Rule) error {
	if r.ID == "" {
		return errors.NewInvalidRule("", "id", "rule id is required")
	}
	if _, dup := s.byID[r.ID]; dup {
		return errors.NewInvalidRule(r.ID, "id", "duplicate rule id")
	}
	if r.Condition == nil {
		return errors.NewInvalidRule(r.ID, "condition", "condition is required")
	}
	if r.Target == "" {
		return errors.NewInvalidRule(r.ID, "target", "target flag is required")
	}
	if r.Severity == "" {
		r.Severity = SeverityErrorIfConflict
	}
	if !r.Severity.IsValid() {
		return errors.NewInvalidRule(r.ID, "severity", "unknown severity "+string(r.Severity))
	}
	if r.Form == "" {
		r.Form = FormImplies
	}
	r.Group = r.group()
	s.byID[r.ID] = len(s.rules)
	s.rules = append(s.rules, r)
	return nil
}

func (s *RuleSet) index() {
	s.canonical = make([]Rule, len(s.rules))
	copy(s.canonical, s.rules)
	sort.Slice(s.canonical, func(i, j int) bool {
		return s.canonical[i].ID < s.canonical[j].ID
	})

	seen := make(map[string]map[string]bool)
	for _, r := range s.canonical {
		if seen[r.Group] == nil {
			seen[r.Group] = make(map[string]bool)
		}
		if !seen[r.Group][r.Target] {
			seen[r.Group][r.Target] = true
			s.groups[r.Group] = append(s.groups[r.Group], r.Target)
		}
	}
	for g := range s.groups {
		sort.Strings(s.groups[g])
	}
}

// Rules returns the rules in declaration order.
func (s *RuleSet) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Canonical returns the rules sorted by ID.
func (s *RuleSet) Canonical() []Rule {
	out := make([]Rule, len(s.canonical))
	copy(out, s.canonical)
	return out
}

// Len returns the number of rules.
func (s *RuleSet) Len() int {
	return len(s.rules)
}

// Get returns the rule with the given ID.
func (s *RuleSet) Get(id string) (Rule, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Rule{}, false
	}
	return s.rules[i], true
}

// GroupTargets returns the sorted flags targeted by any rule of group.
func (s *RuleSet) GroupTargets(group string) []string {
	return append([]string(nil), s.groups[group]...)
}

// Targeting returns the IDs of rules that force flag, in canonical order.
func (s *RuleSet) Targeting(flag string) []string {
	var ids []string
	for _, r := range s.canonical {
		if r.Target == flag {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

// Reading returns the IDs of rules whose condition reads flag, in canonical
// order.
func (s *RuleSet) Reading(flag string) []string {
	var ids []string
	for _, r := range s.canonical {
		for _, ref := range r.Refs() {
			if ref == flag {
				ids = append(ids, r.ID)
				break
			}
		}
	}
	return ids
}

// Validate checks that every flag named by a rule is declared in flags.
// Unknown names are reported with the offending rule ID as context.
func (s *RuleSet) Validate(flags FlagSet) error {
	for _, r := range s.canonical {
		if !flags.Has(r.Target) {
			return errors.NewUnknownFlag(r.Target, "rule "+r.ID)
		}
		for _, ref := range r.Refs() {
			if !flags.Has(ref) {
				return errors.NewUnknownFlag(ref, "rule "+r.ID)
			}
		}
	}
	return nil
}

// ForPlatform returns the subset of rules active on platform. An empty
// platform keeps only the rules that carry no platform list.
func (s *RuleSet) ForPlatform(platform string) *RuleSet {
	return s.Filter(func(r Rule) bool {
		if platform == "" {
			return len(r.Platforms) == 0
		}
		return r.AppliesTo(platform)
	})
}

// Filter returns a new rule set holding the rules keep accepts.
func (s *RuleSet) Filter(keep func(Rule) bool) *RuleSet {
	out := &RuleSet{
		byID:   make(map[string]int),
		groups: make(map[string][]string),
	}
	for _, r := range s.rules {
		if keep(r) {
			out.byID[r.ID] = len(out.rules)
			out.rules = append(out.rules, r)
		}
	}
	out.index()
	return out
}

// Merge returns a rule set holding the rules of s followed by those of
// other. IDs must not collide.
func (s *RuleSet) Merge(other *RuleSet) (*RuleSet, error) {
	all := append(s.Rules(), other.Rules()...)
	return NewRuleSet(all...)
}
