package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/canonica-labs/chkconf/internal/platform"
	"github.com/canonica-labs/chkconf/internal/rules"
)

func (c *CLI) newFlagsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flags",
		Short: "Inspect the flags of a rule set",
	}
	cmd.AddCommand(c.newFlagsListCmd())
	return cmd
}

// FlagInfo is the JSON form of one declared flag.
type FlagInfo struct {
	Name        string `json:"name"`
	Default     string `json:"default"`
	Description string `json:"description,omitempty"`
}

func (c *CLI) newFlagsListCmd() *cobra.Command {
	var source sourceFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List declared flags and their defaults",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runFlagsList(source)
		},
	}
	source.register(cmd)

	return cmd
}

func (c *CLI) runFlagsList(source sourceFlags) error {
	def, err := c.loadDefinition(source)
	if err != nil {
		return err
	}

	infos := make([]FlagInfo, 0, len(def.Flags))
	for _, name := range def.FlagNames() {
		fd := def.Flags[name]
		info := FlagInfo{Name: name, Default: "unset", Description: fd.Description}
		if fd.Default != nil {
			info.Default = digit(bool(*fd.Default))
		}
		infos = append(infos, info)
	}

	if c.jsonOutput {
		return c.outputJSON(infos)
	}

	w := tabwriter.NewWriter(c.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FLAG\tDEFAULT\tDESCRIPTION")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s\n", info.Name, info.Default, info.Description)
	}
	return w.Flush()
}

func (c *CLI) newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect the rules of a rule set",
	}
	cmd.AddCommand(c.newRulesListCmd())
	return cmd
}

// RuleInfo is the JSON form of one compiled rule.
type RuleInfo struct {
	ID          string   `json:"id"`
	Group       string   `json:"group"`
	Rule        string   `json:"rule"`
	Severity    string   `json:"severity"`
	Form        string   `json:"form"`
	Platforms   []string `json:"platforms,omitempty"`
	Description string   `json:"description,omitempty"`
}

func (c *CLI) newRulesListCmd() *cobra.Command {
	var source sourceFlags
	var platformName string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List compiled rules",
		Long: `List the rules of a rule set after compilation. Each declared
implies rule yields one compiled rule per flag it sets.

With --platform only the rules active on that platform are listed.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRulesList(source, platformName)
		},
	}
	source.register(cmd)
	cmd.Flags().StringVar(&platformName, "platform", "", "only rules active on this platform")

	return cmd
}

func (c *CLI) runRulesList(source sourceFlags, platformName string) error {
	def, err := c.loadDefinition(source)
	if err != nil {
		return err
	}
	_, rs, err := def.Build()
	if err != nil {
		return err
	}
	if platformName != "" {
		p, err := platform.Parse(platformName)
		if err != nil {
			return err
		}
		rs = platform.RulesFor(p, rs)
	}

	infos := ruleInfos(rs)
	if c.jsonOutput {
		return c.outputJSON(infos)
	}

	w := tabwriter.NewWriter(c.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSEVERITY\tPLATFORMS\tRULE")
	for _, info := range infos {
		platforms := "all"
		if len(info.Platforms) > 0 {
			platforms = strings.Join(info.Platforms, ",")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", info.ID, info.Severity, platforms, info.Rule)
	}
	return w.Flush()
}

func ruleInfos(rs *rules.RuleSet) []RuleInfo {
	all := rs.Canonical()
	infos := make([]RuleInfo, 0, len(all))
	for _, r := range all {
		infos = append(infos, RuleInfo{
			ID:          r.ID,
			Group:       r.Group,
			Rule:        r.String(),
			Severity:    string(r.Severity),
			Form:        string(r.Form),
			Platforms:   r.Platforms,
			Description: r.Description,
		})
	}
	return infos
}
