package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/canonica-labs/chkconf/internal/config"
)

func (c *CLI) newDoctorCmd() *cobra.Command {
	var source sourceFlags

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run environment diagnostics",
		Long: `Run diagnostics on the local setup.

Checks:
  - configuration file and settings
  - the configured rule set loads and compiles
  - the report store is reachable and migrated`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDoctor(cmd.Context(), source)
		},
	}
	source.register(cmd)

	return cmd
}

func (c *CLI) runDoctor(ctx context.Context, source sourceFlags) error {
	checks := []DiagnosticCheck{
		c.checkConfig(),
		c.checkRuleSet(source),
		c.checkStore(ctx),
	}

	allPassed := true
	for _, check := range checks {
		if !check.Passed {
			allPassed = false
		}
	}

	if c.jsonOutput {
		return c.outputJSON(map[string]interface{}{
			"checks":     checks,
			"all_passed": allPassed,
		})
	}

	c.println("chkconf diagnostics")
	c.println("===================")
	c.println("")
	for _, check := range checks {
		c.printCheck(check)
	}
	c.println("")

	if allPassed {
		c.println("✓ All checks passed")
	} else {
		c.println("✗ Some checks failed - see above for details")
	}

	return nil
}

// DiagnosticCheck represents a single diagnostic check result.
type DiagnosticCheck struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (c *CLI) printCheck(check DiagnosticCheck) {
	status := "✗"
	if check.Passed {
		status = "✓"
	}
	c.printf("%s %s: %s\n", status, check.Name, check.Message)
	if check.Details != "" && !check.Passed {
		c.printf("  → %s\n", check.Details)
	}
}

func (c *CLI) checkConfig() DiagnosticCheck {
	check := DiagnosticCheck{Name: "Configuration", Passed: true}

	if used := config.ConfigFileUsed(c.configPath); used != "" {
		check.Message = fmt.Sprintf("Loaded %s (mode %s, platforms %v)", used, c.cfg.Mode, c.cfg.Platforms)
	} else {
		check.Message = fmt.Sprintf("Using defaults (mode %s, platforms %v)", c.cfg.Mode, c.cfg.Platforms)
	}
	return check
}

func (c *CLI) checkRuleSet(source sourceFlags) DiagnosticCheck {
	check := DiagnosticCheck{Name: "Rule Set"}

	def, err := c.loadDefinition(source)
	if err != nil {
		check.Message = "Cannot load rule set"
		check.Details = err.Error()
		return check
	}
	reg, rs, err := def.Build()
	if err != nil {
		check.Message = "Rule set does not compile"
		check.Details = err.Error()
		return check
	}

	check.Passed = true
	check.Message = fmt.Sprintf("%s: %d flags, %d rules", ruleSetName(def), reg.Len(), rs.Len())
	return check
}

func (c *CLI) checkStore(ctx context.Context) DiagnosticCheck {
	check := DiagnosticCheck{Name: "Report Store"}

	store, err := c.openStore(ctx)
	if err != nil {
		check.Message = fmt.Sprintf("Cannot open %s store", c.cfg.Store.Driver)
		check.Details = err.Error()
		return check
	}
	defer store.Close()

	check.Passed = true
	check.Message = fmt.Sprintf("%s store ready", c.cfg.Store.Driver)
	if !c.cfg.Store.Enabled {
		check.Message += " (recording only with --record)"
	}
	return check
}
