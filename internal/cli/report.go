package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/coppertill/till/internal/ledger"
	"github.com/coppertill/till/internal/report"
)

// ReportOptions holds flags for the report subcommands.
type ReportOptions struct {
	*RootOptions
	Date string
	Net  bool
}

// NewReportCommand creates the report command group.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Daily and per-shift sales reports",
	}

	day := &cobra.Command{
		Use:   "day",
		Short: "Show the day's sales report",
		Example: `  till report day
  till report day --date 2026-08-28 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReportDay(cmd, opts)
		},
	}
	day.Flags().StringVar(&opts.Date, "date", "", "ISO date (default: today)")
	day.Flags().BoolVar(&opts.Net, "net", false, "deduct cancellation reversals from net sales")

	shiftCmd := &cobra.Command{
		Use:           "shift <shift-id>",
		Short:         "Show one shift's Z-report",
		Example:       `  till report shift 2026-08-29-S1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReportShift(cmd, opts, args[0])
		},
	}

	rebuild := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild a day's summary row from the order table",
		Long: `Rebuild a day's summary row from the order table.

The daily summary is derived data. If it ever disagrees with the orders
(after a restore, for instance), this recomputes it from scratch.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReportRebuild(cmd, opts)
		},
	}
	rebuild.Flags().StringVar(&opts.Date, "date", "", "ISO date (default: today)")

	cmd.AddCommand(day, shiftCmd, rebuild)
	return cmd
}

func reportDate(opts *ReportOptions) (string, error) {
	if opts.Date == "" {
		return ledger.DateKey(time.Now()), nil
	}
	if _, err := time.Parse("2006-01-02", opts.Date); err != nil {
		return "", WrapExitError(ExitCommandError, fmt.Sprintf("invalid --date %q", opts.Date), err)
	}
	return opts.Date, nil
}

func runReportDay(cmd *cobra.Command, opts *ReportOptions) error {
	ctx := cmd.Context()
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout())

	date, err := reportDate(opts)
	if err != nil {
		return err
	}

	env, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer env.Close()

	reporter := env.Reporter
	if opts.Net {
		reporter = report.New(env.Store, report.WithNetCancellations(true))
	}

	rep, err := reporter.BuildDay(ctx, date)
	if err != nil {
		return f.Fail(err)
	}

	if f.JSON() {
		return f.Success(rep)
	}
	report.RenderDay(cmd.OutOrStdout(), rep)
	return nil
}

func runReportShift(cmd *cobra.Command, opts *ReportOptions, shiftID string) error {
	ctx := cmd.Context()
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout())

	env, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer env.Close()

	rep, err := env.Reporter.BuildShift(ctx, shiftID)
	if err != nil {
		return f.Fail(err)
	}

	if f.JSON() {
		return f.Success(rep)
	}
	report.RenderShift(cmd.OutOrStdout(), rep)
	return nil
}

func runReportRebuild(cmd *cobra.Command, opts *ReportOptions) error {
	ctx := cmd.Context()
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout())

	date, err := reportDate(opts)
	if err != nil {
		return err
	}

	env, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer env.Close()

	sum, err := env.Reporter.RecomputeDay(ctx, date)
	if err != nil {
		return f.Fail(err)
	}

	if f.JSON() {
		return f.Success(sum)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Summary for %s rebuilt: %s across %d transaction(s)\n",
		sum.Date, sum.TotalSales, sum.TransactionCount)
	return nil
}
