package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coppertill/till/internal/ledger"
)

// DrawerOptions holds flags for the drawer subcommands.
type DrawerOptions struct {
	*RootOptions
	Amount string
	Reason string
}

// NewDrawerCommand creates the cash drawer command group.
func NewDrawerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DrawerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "drawer",
		Short: "Record cash drawer movements outside of sales",
	}

	paidIn := &cobra.Command{
		Use:           "paid-in",
		Short:         "Record cash added to the drawer",
		Example:       `  till drawer paid-in --amount 50 --reason "change from safe"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDrawerMove(cmd, opts, ledger.ActPaidIn)
		},
	}

	paidOut := &cobra.Command{
		Use:           "paid-out",
		Short:         "Record cash removed from the drawer",
		Example:       `  till drawer paid-out --amount 30 --reason "courier fee"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDrawerMove(cmd, opts, ledger.ActPaidOut)
		},
	}
	for _, c := range []*cobra.Command{paidIn, paidOut} {
		c.Flags().StringVar(&opts.Amount, "amount", "", "cash amount (required)")
		c.Flags().StringVar(&opts.Reason, "reason", "", "reason for the movement (required)")
		c.MarkFlagRequired("amount")
		c.MarkFlagRequired("reason")
	}

	openCmd := &cobra.Command{
		Use:           "open",
		Short:         "Open the drawer with no transaction, leaving an audit entry",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDrawerOpen(cmd, opts)
		},
	}
	openCmd.Flags().StringVar(&opts.Reason, "reason", "", "reason for opening the drawer")

	cmd.AddCommand(paidIn, paidOut, openCmd)
	return cmd
}

func runDrawerMove(cmd *cobra.Command, opts *DrawerOptions, typ ledger.ActivityType) error {
	ctx := cmd.Context()
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout())

	amount, err := parseAmount("amount", opts.Amount)
	if err != nil {
		return err
	}

	env, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer env.Close()

	act, err := env.Shifts.PaidInOut(ctx, typ, amount, opts.Reason)
	if err != nil {
		return f.Fail(err)
	}
	env.FlushSync(ctx)

	if f.JSON() {
		return f.Success(act)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s of %s recorded on shift %s (#%d)\n",
		act.Type, act.Amount, act.ShiftID, act.Seq)
	return nil
}

func runDrawerOpen(cmd *cobra.Command, opts *DrawerOptions) error {
	ctx := cmd.Context()
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout())

	env, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer env.Close()

	act, err := env.Shifts.ManualOpen(ctx, opts.Reason)
	if err != nil {
		return f.Fail(err)
	}

	if f.JSON() {
		return f.Success(act)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Drawer opened on shift %s (#%d)\n", act.ShiftID, act.Seq)
	return nil
}
