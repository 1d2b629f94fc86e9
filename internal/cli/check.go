package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/canonica-labs/chkconf/internal/engine"
	"github.com/canonica-labs/chkconf/internal/platform"
	"github.com/canonica-labs/chkconf/internal/rules"
	"github.com/canonica-labs/chkconf/pkg/api"
)

func (c *CLI) newCheckCmd() *cobra.Command {
	var source sourceFlags
	var strict bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a rule set",
		Long: `Validate a rule-set definition without overrides.

Checks:
  - definition syntax and rule forms
  - references to undeclared flags
  - flags no rule reads or forces
  - rules whose condition can never hold
  - rules that can force one flag to opposite values
  - convergence of the defaults on every platform`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCheck(source, strict)
		},
	}
	source.register(cmd)
	cmd.Flags().BoolVar(&strict, "strict", false, "resolve in strict mode")

	return cmd
}

// LintFinding is the JSON form of a lint finding.
type LintFinding struct {
	Level   string   `json:"level"`
	Flag    string   `json:"flag,omitempty"`
	Rules   []string `json:"rules,omitempty"`
	Message string   `json:"message"`
}

// PlatformCheck is the outcome of resolving defaults on one platform.
type PlatformCheck struct {
	Platform string `json:"platform"`
	Passed   bool   `json:"passed"`
	Passes   int    `json:"passes,omitempty"`
	Warnings int    `json:"warnings,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (c *CLI) runCheck(source sourceFlags, strict bool) error {
	def, err := c.loadDefinition(source)
	if err != nil {
		return err
	}
	_, rs, err := def.Build()
	if err != nil {
		return err
	}
	c.debugf("Definition %s: %d flags, %d rules\n", ruleSetName(def), len(def.Flags), rs.Len())

	findings := make([]LintFinding, 0)
	for _, f := range rules.Lint(rs, def.FlagNames(), rules.WithActivePlatforms(platform.ActivePlatforms)) {
		findings = append(findings, LintFinding{
			Level:   string(f.Level),
			Flag:    f.Flag,
			Rules:   f.Rules,
			Message: f.Message,
		})
	}

	mode := string(engine.ModeAutoCorrect)
	if strict {
		mode = string(engine.ModeStrict)
	}

	// Resolve the defaults on every platform; report each failure.
	var firstErr error
	checks := make([]PlatformCheck, 0, len(platform.AllPlatforms()))
	for _, p := range platform.AllPlatforms() {
		check := PlatformCheck{Platform: string(p)}
		res, err := api.Resolve(def, api.Options{Platform: string(p), Mode: mode, Logger: c.logger})
		if err != nil {
			check.Error = err.Error()
			if firstErr == nil {
				firstErr = err
			}
		} else {
			check.Passed = true
			check.Passes = res.Passes
			check.Warnings = res.Warnings()
		}
		checks = append(checks, check)
	}

	if c.jsonOutput {
		if err := c.outputJSON(map[string]interface{}{
			"ruleset":   ruleSetName(def),
			"findings":  findings,
			"platforms": checks,
			"passed":    firstErr == nil,
		}); err != nil {
			return err
		}
		return firstErr
	}

	c.printf("Rule set %s: %d flags, %d rules\n", ruleSetName(def), len(def.Flags), rs.Len())
	for _, f := range findings {
		subject := f.Flag
		if len(f.Rules) > 0 {
			subject = strings.Join(f.Rules, ", ")
		}
		c.printf("%s: %s: %s\n", f.Level, subject, f.Message)
	}
	c.println("")
	for _, check := range checks {
		if check.Passed {
			c.printf("✓ %s: converged in %d passes", check.Platform, check.Passes)
			if check.Warnings > 0 {
				c.printf(" (%d warnings)", check.Warnings)
			}
			c.println("")
			continue
		}
		c.printf("✗ %s: %s\n", check.Platform, firstLine(check.Error))
	}

	if firstErr != nil {
		return firstErr
	}
	c.println("")
	c.println("✓ Rule set is consistent")
	return nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
