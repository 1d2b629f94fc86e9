package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/canonica-labs/chkconf/internal/bootstrap"
)

func (c *CLI) newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [DIR]",
		Short: "Write an example rule-set definition",
		Long: `Write an example rule-set definition (chkconf.yaml) into DIR, or the
current directory. The file is a starting point to edit: it declares a few
flags and one rule of each form.

An existing file is kept unless --force is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return c.runInit(dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing definition")

	return cmd
}

func (c *CLI) runInit(dir string, force bool) error {
	bootstrapper := bootstrap.NewBootstrapper()
	bootstrapper.Force = force

	defPath, err := bootstrapper.Init(dir)
	if err != nil {
		return &usageError{err: err}
	}

	absPath, _ := filepath.Abs(defPath)
	if c.jsonOutput {
		return c.outputJSON(map[string]interface{}{
			"status": "created",
			"path":   absPath,
		})
	}

	c.printf("✓ Definition created: %s\n", absPath)
	c.println("\nNext steps:")
	c.println("  1. Edit the flags and rules to match your project")
	c.printf("  2. Run 'chkconf check --rules %s' to lint it\n", defPath)
	c.printf("  3. Run 'chkconf resolve --rules %s' to resolve it\n", defPath)
	return nil
}
