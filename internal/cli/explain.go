package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/canonica-labs/chkconf/internal/errors"
	"github.com/canonica-labs/chkconf/internal/platform"
	"github.com/canonica-labs/chkconf/internal/rules"
	"github.com/canonica-labs/chkconf/pkg/models"
)

func (c *CLI) newExplainCmd() *cobra.Command {
	var f resolveFlags

	cmd := &cobra.Command{
		Use:   "explain <FLAG>",
		Short: "Explain how a flag got its value",
		Long: `Resolve the rule set and show, for one flag:
  - its final value, origin and default
  - the rules forcing it at the fixed point
  - every change made to it, pass by pass
  - the rules that can force it and the rules that read it

Examples:
  chkconf explain wxUSE_STREAMS --builtin wxwidgets --set wxUSE_FS_ARCHIVE=1`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExplain(args[0], f)
		},
	}
	f.register(cmd)

	return cmd
}

// Explanation is the JSON form of explain.
type Explanation struct {
	Flag      string           `json:"flag"`
	Platform  string           `json:"platform"`
	State     models.FlagState `json:"state"`
	Changes   []models.Change  `json:"changes"`
	ForcedBy  []string         `json:"forced_by"`
	ReadBy    []string         `json:"read_by"`
	Conflicts []string         `json:"conflicts,omitempty"`
}

func (c *CLI) runExplain(flag string, f resolveFlags) error {
	def, err := c.loadDefinition(f.source)
	if err != nil {
		return err
	}
	if _, ok := def.Flags[flag]; !ok {
		return errors.NewUnknownFlag(flag, "explain")
	}

	res, err := c.resolveOne(def, f)
	if err != nil {
		return err
	}
	report := res.Report()

	_, rs, err := def.Build()
	if err != nil {
		return err
	}
	scoped := platform.RulesFor(res.Platform, rs)

	ex := Explanation{
		Flag:     flag,
		Platform: string(res.Platform),
		Changes:  make([]models.Change, 0),
		ForcedBy: scoped.Targeting(flag),
		ReadBy:   scoped.Reading(flag),
	}
	ex.State, _ = report.Flag(flag)
	for _, ch := range report.Changes {
		if ch.Flag == flag {
			ex.Changes = append(ex.Changes, ch)
		}
	}
	for _, d := range report.Diagnostics {
		for _, name := range d.Flags {
			if name == flag {
				ex.Conflicts = append(ex.Conflicts, d.Message)
			}
		}
	}

	if c.jsonOutput {
		return c.outputJSON(ex)
	}

	c.printf("%s = %s on %s\n", flag, digit(ex.State.Value), ex.Platform)
	c.printf("  Origin:  %s\n", ex.State.Origin)
	c.printf("  Default: %s\n", ex.State.Default)
	if len(ex.State.Sources) > 0 {
		c.printf("  Forced by (at fixed point):\n")
		for _, id := range ex.State.Sources {
			c.printf("    - %s\n", describeRule(scoped, id))
		}
	}

	c.println("")
	if len(ex.Changes) == 0 {
		c.println("No changes: the flag kept its seed value.")
	} else {
		c.println("Changes:")
		for _, ch := range ex.Changes {
			rule := ch.Rule
			if rule == "" {
				rule = "(no rule: back to seed value)"
			}
			c.printf("  pass %d: %s -> %s [%s] %s\n", ch.Pass, ch.Old, ch.New, ch.Origin, rule)
		}
	}

	for _, msg := range ex.Conflicts {
		c.printf("\nwarning: %s\n", msg)
	}

	c.println("")
	c.printf("Rules that can force %s: %s\n", flag, listOrNone(ex.ForcedBy))
	c.printf("Rules that read %s: %s\n", flag, listOrNone(ex.ReadBy))
	return nil
}

// describeRule renders a rule id with its condition and target.
func describeRule(rs *rules.RuleSet, id string) string {
	r, ok := rs.Get(id)
	if !ok {
		return id
	}
	return r.String()
}

func listOrNone(ids []string) string {
	if len(ids) == 0 {
		return "(none)"
	}
	return strings.Join(ids, ", ")
}
