package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func (c *CLI) newTraitsCmd() *cobra.Command {
	var f resolveFlags

	cmd := &cobra.Command{
		Use:   "traits",
		Short: "Show the platform traits selected by the resolved flags",
		Long: `Resolve the rule set for one platform and show the traits an
application built with those flags would get: console or GUI, renderer,
event loop, toolkit version and capabilities.

Examples:
  chkconf traits --builtin wxwidgets --platform msw
  chkconf traits --builtin wxwidgets --platform base --set wxUSE_CONSOLE_EVENTLOOP=0`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTraits(f)
		},
	}
	f.register(cmd)

	return cmd
}

// TraitsInfo is the JSON form of the selected traits.
type TraitsInfo struct {
	Platform     string   `json:"platform"`
	Kind         string   `json:"kind"`
	Toolkit      string   `json:"toolkit"`
	Renderer     string   `json:"renderer,omitempty"`
	EventLoop    string   `json:"event_loop,omitempty"`
	Universal    bool     `json:"universal"`
	HasStderr    bool     `json:"has_stderr"`
	Desktop      string   `json:"desktop,omitempty"`
	Capabilities []string `json:"capabilities"`
}

func (c *CLI) runTraits(f resolveFlags) error {
	def, err := c.loadDefinition(f.source)
	if err != nil {
		return err
	}
	res, err := c.resolveOne(def, f)
	if err != nil {
		return err
	}
	traits, err := res.Traits()
	if err != nil {
		return err
	}

	info := TraitsInfo{
		Platform:     string(res.Platform),
		Kind:         "console",
		Toolkit:      traits.ToolkitVersion().String(),
		Universal:    traits.IsUsingUniversalWidgets(),
		HasStderr:    traits.HasStderr(),
		Desktop:      traits.DesktopEnvironment(),
		Capabilities: traits.Capabilities().Strings(),
	}
	if r := traits.CreateRenderer(); r != nil {
		info.Kind = "gui"
		info.Renderer = r.Name()
	}
	if l := traits.CreateEventLoop(); l != nil {
		info.EventLoop = l.Kind()
	}

	if c.jsonOutput {
		return c.outputJSON(info)
	}

	c.printf("Platform:     %s (%s)\n", info.Platform, info.Kind)
	c.printf("Toolkit:      %s\n", info.Toolkit)
	c.printf("Renderer:     %s\n", orNone(info.Renderer))
	c.printf("Event loop:   %s\n", orNone(info.EventLoop))
	c.printf("Universal:    %t\n", info.Universal)
	c.printf("Stderr:       %t\n", info.HasStderr)
	if info.Desktop != "" {
		c.printf("Desktop:      %s\n", info.Desktop)
	}
	c.printf("Capabilities: %s\n", strings.Join(info.Capabilities, ", "))
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
