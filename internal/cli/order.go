package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coppertill/till/internal/ledger"
)

// NewOrderCommand creates the order lifecycle command group.
func NewOrderCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Advance, complete or cancel orders",
	}

	ready := &cobra.Command{
		Use:           "ready <order-id>",
		Short:         "Mark an order ready for pickup",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrderAdvance(cmd, rootOpts, args[0], ledger.StatusReady)
		},
	}

	complete := &cobra.Command{
		Use:           "complete <order-id>",
		Short:         "Complete an order and record it in the day's sales",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrderAdvance(cmd, rootOpts, args[0], ledger.StatusCompleted)
		},
	}

	cancel := &cobra.Command{
		Use:           "cancel <order-id>",
		Short:         "Cancel an order, writing a reversal and a refund",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrderCancel(cmd, rootOpts, args[0])
		},
	}

	show := &cobra.Command{
		Use:           "show <order-id>",
		Short:         "Show one order",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrderShow(cmd, rootOpts, args[0])
		},
	}

	cmd.AddCommand(ready, complete, cancel, show)
	return cmd
}

func runOrderAdvance(cmd *cobra.Command, rootOpts *RootOptions, orderID string, target ledger.OrderStatus) error {
	ctx := cmd.Context()
	f := newFormatter(rootOpts, cmd.OutOrStdout())

	env, err := openEnv(ctx, rootOpts)
	if err != nil {
		return err
	}
	defer env.Close()

	order, err := env.Orders.Advance(ctx, orderID, target)
	if err != nil {
		return f.Fail(err)
	}

	if f.JSON() {
		return f.Success(order)
	}
	if order.Status == ledger.StatusCompleted && order.PrepSeconds != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Order %s completed (prepared in %ds)\n", order.ID, *order.PrepSeconds)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Order %s is now %s\n", order.ID, order.Status)
	return nil
}

func runOrderCancel(cmd *cobra.Command, rootOpts *RootOptions, orderID string) error {
	ctx := cmd.Context()
	f := newFormatter(rootOpts, cmd.OutOrStdout())

	env, err := openEnv(ctx, rootOpts)
	if err != nil {
		return err
	}
	defer env.Close()

	original, reversal, err := env.Orders.Cancel(ctx, orderID)
	if err != nil {
		return f.Fail(err)
	}
	env.FlushSync(ctx)

	if f.JSON() {
		return f.Success(map[string]any{"order": original, "reversal": reversal})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Order %s cancelled; reversal %s for %s recorded\n",
		original.ID, reversal.ID, reversal.Total)
	return nil
}

func runOrderShow(cmd *cobra.Command, rootOpts *RootOptions, orderID string) error {
	ctx := cmd.Context()
	f := newFormatter(rootOpts, cmd.OutOrStdout())

	env, err := openEnv(ctx, rootOpts)
	if err != nil {
		return err
	}
	defer env.Close()

	order, err := env.Store.GetOrder(ctx, orderID)
	if err != nil {
		return f.Fail(ledger.WrapStorage("orders.show", err))
	}
	if order == nil {
		return f.Fail(ledger.NewValidation("orders.show", "order %q not found", orderID))
	}

	if f.JSON() {
		return f.Success(order)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Order %s  [%s, sync %s]\n", order.ID, order.Status, order.SyncStatus)
	for _, item := range order.Items {
		fmt.Fprintf(out, "  %dx %-20s %10s\n", item.Quantity, item.Name, item.LineTotal())
	}
	fmt.Fprintf(out, "  Total: %s (%s)\n", order.Total, order.PaymentMethod)
	if order.ReversalOf != "" {
		fmt.Fprintf(out, "  Reversal of %s\n", order.ReversalOf)
	}
	return nil
}
