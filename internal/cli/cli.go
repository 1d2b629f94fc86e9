// Package cli provides the command-line interface for chkconf.
// The CLI resolves rule-set definitions, explains the outcome and keeps a
// history of resolution reports.
package cli

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/canonica-labs/chkconf/internal/config"
	"github.com/canonica-labs/chkconf/internal/errors"
	"github.com/canonica-labs/chkconf/internal/observability"
	"github.com/canonica-labs/chkconf/pkg/models"
)

// Exit codes, one per error category.
const (
	ExitSuccess    = 0
	ExitValidation = 1
	ExitConflict   = 2
	ExitDivergence = 3
	ExitInternal   = 4
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// CLI holds the command-line interface state.
type CLI struct {
	rootCmd *cobra.Command
	cfg     *config.Config
	logger  *slog.Logger

	stdout io.Writer
	stderr io.Writer

	// Global flags
	configPath string
	jsonOutput bool
	quiet      bool
	debug      bool
}

// New creates a new CLI instance writing to the process streams.
func New() *CLI {
	cli := &CLI{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	cli.rootCmd = cli.newRootCmd()
	return cli
}

// SetOutput redirects standard output and error.
func (c *CLI) SetOutput(stdout, stderr io.Writer) {
	c.stdout = stdout
	c.stderr = stderr
	c.rootCmd.SetOut(stdout)
	c.rootCmd.SetErr(stderr)
}

// SetArgs sets the arguments Execute parses instead of os.Args.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// Execute runs the CLI and returns the process exit code.
func (c *CLI) Execute() int {
	return c.ExecuteContext(context.Background())
}

// ExecuteContext is Execute with a context that cancels running resolutions
// and store operations.
func (c *CLI) ExecuteContext(ctx context.Context) int {
	if err := c.rootCmd.ExecuteContext(ctx); err != nil {
		c.reportError(err)
		return ExitCode(err)
	}
	return ExitSuccess
}

// ExitCode maps an error to the exit code of its category.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var usage *usageError
	if stderrors.As(err, &usage) {
		return ExitValidation
	}
	switch errors.CodeOf(err) {
	case errors.CodeValidation:
		return ExitValidation
	case errors.CodeConflict:
		return ExitConflict
	case errors.CodeDivergence:
		return ExitDivergence
	default:
		return ExitInternal
	}
}

func (c *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chkconf",
		Short: "chkconf - feature-flag consistency resolver",
		Long: `chkconf drives a set of build-time feature flags to a consistent state.

It provides:
  • Declarative dependency rules (implies, requires, ensure_any)
  • Deterministic, order-independent propagation to a fixed point
  • Strict or auto-correcting handling of explicit settings
  • Per-platform rule subsets and trait selection

Resolved flags can be emitted as a table, JSON, YAML, a C header or env lines.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.initConfig()
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	// Global flags
	cmd.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: ~/.chkconf/config.yaml)")
	cmd.PersistentFlags().BoolVar(&c.jsonOutput, "json", false, "machine-readable JSON output")
	cmd.PersistentFlags().BoolVar(&c.quiet, "quiet", false, "suppress non-essential output")
	cmd.PersistentFlags().BoolVar(&c.debug, "debug", false, "verbose debug logs")

	cmd.AddCommand(c.newResolveCmd())
	cmd.AddCommand(c.newCheckCmd())
	cmd.AddCommand(c.newExplainCmd())
	cmd.AddCommand(c.newFlagsCmd())
	cmd.AddCommand(c.newRulesCmd())
	cmd.AddCommand(c.newTraitsCmd())
	cmd.AddCommand(c.newInitCmd())
	cmd.AddCommand(c.newHistoryCmd())
	cmd.AddCommand(c.newDoctorCmd())
	cmd.AddCommand(c.newVersionCmd())

	return cmd
}

func (c *CLI) initConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return &usageError{err: err}
	}
	if err := cfg.Validate(); err != nil {
		return &usageError{err: fmt.Errorf("invalid config: %w", err)}
	}
	c.cfg = cfg

	// Override with flags
	level, err := observability.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return &usageError{err: err}
	}
	if c.debug {
		level = slog.LevelDebug
	}
	format, err := observability.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return &usageError{err: err}
	}
	c.logger = observability.NewLogger(
		observability.WithLevel(level),
		observability.WithFormat(format),
		observability.WithOutput(c.stderr),
	)

	return nil
}

// usageError marks command-line and config mistakes.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// exactArgs is cobra.ExactArgs with a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

// reportError prints err on stderr: the multi-line Reason/Suggestion form,
// or an ErrorResponse object with --json.
func (c *CLI) reportError(err error) {
	if !c.jsonOutput {
		c.errorf("Error: %v\n", err)
		return
	}

	resp := models.ErrorResponse{Error: err.Error(), Code: ExitCode(err)}
	if d, ok := errors.Details(err); ok {
		resp.Error = d.Message
		resp.Reason = d.Reason
		resp.Suggestion = d.Suggestion
	}
	_ = writeJSON(c.stderr, resp)
}

// Helper functions for output

func (c *CLI) printf(format string, args ...interface{}) {
	if !c.quiet {
		fmt.Fprintf(c.stdout, format, args...)
	}
}

func (c *CLI) println(args ...interface{}) {
	if !c.quiet {
		fmt.Fprintln(c.stdout, args...)
	}
}

func (c *CLI) errorf(format string, args ...interface{}) {
	fmt.Fprintf(c.stderr, format, args...)
}

func (c *CLI) debugf(format string, args ...interface{}) {
	if c.debug {
		fmt.Fprintf(c.stderr, "[DEBUG] "+format, args...)
	}
}

func (c *CLI) outputJSON(v interface{}) error {
	return writeJSON(c.stdout, v)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
