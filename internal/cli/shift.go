package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/coppertill/till/internal/report"
)

// ShiftOptions holds flags for the shift subcommands.
type ShiftOptions struct {
	*RootOptions
	Float     string
	Counted   string
	NextFloat string
}

// NewShiftCommand creates the shift command group.
func NewShiftCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShiftOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "shift",
		Short: "Open, close and inspect work shifts",
	}

	openCmd := &cobra.Command{
		Use:   "open",
		Short: "Open a new shift with an opening cash float",
		Example: `  till shift open --float 100
  till shift open --float 100 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShiftOpen(cmd, opts)
		},
	}
	openCmd.Flags().StringVar(&opts.Float, "float", "0", "opening cash float")

	closeCmd := &cobra.Command{
		Use:   "close",
		Short: "Close the open shift and reconcile the drawer",
		Example: `  till shift close --counted 665 --next-float 100`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShiftClose(cmd, opts)
		},
	}
	closeCmd.Flags().StringVar(&opts.Counted, "counted", "", "physically counted closing cash (required)")
	closeCmd.Flags().StringVar(&opts.NextFloat, "next-float", "0", "cash carried over as the next shift's float")
	closeCmd.MarkFlagRequired("counted")

	statusCmd := &cobra.Command{
		Use:           "status",
		Short:         "Show the current shift and live drawer figures",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShiftStatus(cmd, opts)
		},
	}

	cmd.AddCommand(openCmd, closeCmd, statusCmd)
	return cmd
}

func parseAmount(name, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, WrapExitError(ExitCommandError, fmt.Sprintf("invalid --%s %q", name, s), err)
	}
	return d, nil
}

func runShiftOpen(cmd *cobra.Command, opts *ShiftOptions) error {
	ctx := cmd.Context()
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout())

	openingFloat, err := parseAmount("float", opts.Float)
	if err != nil {
		return err
	}

	env, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer env.Close()

	s, err := env.Shifts.StartShift(ctx, openingFloat)
	if err != nil {
		return f.Fail(err)
	}

	if f.JSON() {
		return f.Success(s)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Shift %s opened with float %s\n", s.ID, s.OpeningFloat)
	return nil
}

func runShiftClose(cmd *cobra.Command, opts *ShiftOptions) error {
	ctx := cmd.Context()
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout())

	counted, err := parseAmount("counted", opts.Counted)
	if err != nil {
		return err
	}
	nextFloat, err := parseAmount("next-float", opts.NextFloat)
	if err != nil {
		return err
	}

	env, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer env.Close()

	s, err := env.Shifts.EndShift(ctx, counted, nextFloat)
	if err != nil {
		return f.Fail(err)
	}

	if f.JSON() {
		return f.Success(s)
	}
	rep, err := env.Reporter.BuildShift(ctx, s.ID)
	if err != nil {
		return f.Fail(err)
	}
	report.RenderShift(cmd.OutOrStdout(), rep)
	return nil
}

func runShiftStatus(cmd *cobra.Command, opts *ShiftOptions) error {
	ctx := cmd.Context()
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout())

	env, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer env.Close()

	current := env.Shifts.Current()
	if current == nil {
		if f.JSON() {
			return f.Success(nil)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No open shift")
		return nil
	}

	rep, err := env.Reporter.BuildShift(ctx, current.ID)
	if err != nil {
		return f.Fail(err)
	}
	if f.JSON() {
		return f.Success(rep)
	}
	report.RenderShift(cmd.OutOrStdout(), rep)
	return nil
}
