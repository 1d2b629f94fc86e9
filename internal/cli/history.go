package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/canonica-labs/chkconf/internal/config"
	"github.com/canonica-labs/chkconf/pkg/models"
)

func (c *CLI) newHistoryCmd() *cobra.Command {
	var filter models.ReportFilter

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded resolution reports",
		Long: `List the reports recorded by 'resolve --record', newest first.

Examples:
  chkconf history --limit 10
  chkconf history --platform gtk --outcome conflict
  chkconf history show <ID> --format header`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runHistoryList(cmd.Context(), filter)
		},
	}

	cmd.Flags().IntVar(&filter.Limit, "limit", 20, "maximum number of reports (0 for all)")
	cmd.Flags().StringVar(&filter.Platform, "platform", "", "only reports for this platform")
	cmd.Flags().StringVar(&filter.Outcome, "outcome", "", "only reports with this outcome (resolved, conflict, divergence, invalid, error)")

	cmd.AddCommand(c.newHistoryShowCmd())

	return cmd
}

func (c *CLI) runHistoryList(ctx context.Context, filter models.ReportFilter) error {
	if filter.Limit < 0 {
		return &usageError{err: fmt.Errorf("--limit must not be negative")}
	}

	store, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	reports, err := store.List(ctx, filter)
	if err != nil {
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(reports)
	}
	if len(reports) == 0 {
		c.println("No reports recorded.")
		return nil
	}

	w := tabwriter.NewWriter(c.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tPLATFORM\tMODE\tOUTCOME\tPASSES\tWARNINGS\tRULESET")
	for _, r := range reports {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ID, r.CreatedAt.Local().Format(time.DateTime), r.Platform, r.Mode,
			r.Outcome, r.Passes, r.Warnings(), r.RuleSet)
	}
	return w.Flush()
}

func (c *CLI) newHistoryShowCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <ID>",
		Short: "Show one recorded report",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runHistoryShow(cmd.Context(), args[0], format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "output format: "+strings.Join(config.Formats(), ", "))

	return cmd
}

func (c *CLI) runHistoryShow(ctx context.Context, id, format string) error {
	if format == "" {
		format = c.cfg.Output.Format
	}
	if c.jsonOutput {
		format = config.FormatJSON
	}

	store, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	report, err := store.Get(ctx, id)
	if err != nil {
		return err
	}

	if format != config.FormatJSON && format != config.FormatYAML {
		c.printf("Report %s: %s on %s (%s), %s\n", report.ID, report.Outcome,
			report.Platform, report.Mode, report.CreatedAt.Local().Format(time.DateTime))
		if report.Error != "" {
			c.printf("Error: %s\n\n", report.Error)
			return nil
		}
	}
	return render(c.stdout, format, []*models.Report{report})
}
