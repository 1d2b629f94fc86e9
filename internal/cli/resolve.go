package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/canonica-labs/chkconf/internal/bootstrap"
	"github.com/canonica-labs/chkconf/internal/config"
	"github.com/canonica-labs/chkconf/internal/engine"
	"github.com/canonica-labs/chkconf/internal/observability"
	"github.com/canonica-labs/chkconf/pkg/api"
	"github.com/canonica-labs/chkconf/pkg/models"
)

// resolveFlags are the options shared by resolve and explain.
type resolveFlags struct {
	source    sourceFlags
	platforms []string
	sets      []string
	strict    bool
	maxPasses int
}

func (f *resolveFlags) register(cmd *cobra.Command) {
	f.source.register(cmd)
	cmd.Flags().StringArrayVar(&f.platforms, "platform", nil, "target platform (repeatable)")
	cmd.Flags().StringArrayVar(&f.sets, "set", nil, "explicit setting NAME=VALUE (repeatable)")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "fail when a rule would override an explicit setting")
	cmd.Flags().IntVar(&f.maxPasses, "max-passes", 0, "pass bound (default: rules + flags)")
}

// options merges the flags with the configuration.
func (c *CLI) options(f resolveFlags) (api.Options, []string) {
	opts := api.Options{
		Mode:      c.cfg.Mode,
		Overrides: append(append([]string{}, c.cfg.Overrides...), f.sets...),
		MaxPasses: c.cfg.MaxPasses,
		Logger:    c.logger,
	}
	if f.strict {
		opts.Mode = string(engine.ModeStrict)
	}
	if f.maxPasses > 0 {
		opts.MaxPasses = f.maxPasses
	}

	platforms := f.platforms
	if len(platforms) == 0 {
		platforms = c.cfg.Platforms
	}
	return opts, platforms
}

func (c *CLI) newResolveCmd() *cobra.Command {
	var f resolveFlags
	var format string
	var record bool

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve flags to a consistent state",
		Long: `Resolve a rule set for one or more platforms and print the flags.

Explicit settings given with --set win over defaults. A rule that would
change an explicit setting either overrides it with a warning (default) or
fails the run (--strict, or a rule declared error-if-conflict in strict mode).

Several --platform values are resolved concurrently.

Examples:
  chkconf resolve --builtin wxwidgets --platform gtk --set wxUSE_FS_ARCHIVE=1
  chkconf resolve --rules chkconf.yaml --format header > setup.h`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runResolve(cmd.Context(), f, format, record)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&format, "format", "", "output format: "+strings.Join(config.Formats(), ", "))
	cmd.Flags().BoolVar(&record, "record", false, "store the resolution report")

	return cmd
}

func (c *CLI) runResolve(ctx context.Context, f resolveFlags, format string, record bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	def, err := c.loadDefinition(f.source)
	if err != nil {
		return err
	}
	opts, platforms := c.options(f)

	if format == "" {
		format = c.cfg.Output.Format
	}
	if c.jsonOutput {
		format = config.FormatJSON
	}

	start := time.Now()
	results, err := api.ResolvePlatforms(ctx, def, platforms, opts)
	elapsed := time.Since(start)

	runLog := c.runLogger()
	if err != nil {
		platformList := strings.Join(platforms, ",")
		report := api.FailureReport(ruleSetName(def), platformList, opts.Mode, err)
		c.logRun(ctx, runLog, report, elapsed)
		if record || c.cfg.Store.Enabled {
			c.record(ctx, []*models.Report{report})
		}
		return err
	}

	reports := make([]*models.Report, len(results))
	for i, res := range results {
		reports[i] = res.Report()
		c.logRun(ctx, runLog, reports[i], elapsed)
		c.printDiagnostics(reports[i])
	}
	if record || c.cfg.Store.Enabled {
		c.record(ctx, reports)
	}

	return render(c.stdout, format, reports)
}

// printDiagnostics writes warnings to stderr.
func (c *CLI) printDiagnostics(r *models.Report) {
	if c.quiet {
		return
	}
	for _, d := range r.Diagnostics {
		c.errorf("%s [%s] %s: %s\n", d.Severity, r.Platform, d.Kind, d.Message)
	}
}

// runLogger returns the per-run logger. Runs are logged only at debug level,
// in the configured log format.
func (c *CLI) runLogger() observability.ResolutionLogger {
	if !c.debug && !strings.EqualFold(c.cfg.Logging.Level, "debug") {
		return observability.NewNoopLogger()
	}
	if strings.EqualFold(c.cfg.Logging.Format, string(observability.FormatJSON)) {
		return observability.NewJSONLogger(c.stderr)
	}
	return observability.NewLogfmtLogger(c.stderr)
}

func (c *CLI) logRun(ctx context.Context, l observability.ResolutionLogger, r *models.Report, elapsed time.Duration) {
	entry := observability.ResolutionEntry{
		RunID:    r.ID,
		Platform: r.Platform,
		Mode:     r.Mode,
		Passes:   r.Passes,
		Changes:  len(r.Changes),
		Warnings: r.Warnings(),
		Outcome:  r.Outcome,
		Error:    r.Error,
		Duration: elapsed,
	}
	if err := l.LogResolution(ctx, entry); err != nil {
		c.logger.Warn("run log failed", observability.RunID(r.ID), observability.Error(err))
	}
}

// record stores reports. A store failure is reported but does not fail the
// resolution.
func (c *CLI) record(ctx context.Context, reports []*models.Report) {
	store, err := c.openStore(ctx)
	if err != nil {
		c.logger.Warn("report store unavailable", observability.Component("storage"), observability.Error(err))
		return
	}
	defer store.Close()

	for _, r := range reports {
		if err := store.Save(ctx, r); err != nil {
			c.logger.Warn("report not recorded", observability.RunID(r.ID), observability.Error(err))
			continue
		}
		c.debugf("Recorded report %s\n", r.ID)
	}
}

// resolveOne resolves a single platform for commands that inspect one result.
func (c *CLI) resolveOne(def *bootstrap.Definition, f resolveFlags) (*api.Result, error) {
	opts, platforms := c.options(f)
	if len(platforms) > 1 {
		return nil, &usageError{err: fmt.Errorf("this command takes a single --platform")}
	}
	if len(platforms) == 1 {
		opts.Platform = platforms[0]
	}
	return api.Resolve(def, opts)
}
