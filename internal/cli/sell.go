package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/coppertill/till/internal/ledger"
)

// SellOptions holds flags for the sell command.
type SellOptions struct {
	*RootOptions
	Items        []string
	Method       string
	CashReceived string
	Discount     string
}

// NewSellCommand creates the sell command.
func NewSellCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SellOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sell",
		Short: "Place a sale order",
		Long: `Place a sale order against the open shift.

Each --item takes "name:unit-price:quantity". The discount accepts either
a percentage ("10%") or a fixed amount ("50"); either form is capped so
the total never goes below zero.`,
		Example: `  till sell --item "Set A:200:1" --method cash --cash-received 250
  till sell --item "Latte:80:2" --item "Croissant:60:1" --method qr
  till sell --item "Set A:200:1" --discount 10% --method cash --cash-received 200`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSell(cmd, opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Items, "item", nil, `cart line as "name:price:qty" (repeatable)`)
	cmd.Flags().StringVar(&opts.Method, "method", "", "payment method: cash or qr (required)")
	cmd.Flags().StringVar(&opts.CashReceived, "cash-received", "", "cash tendered by the customer")
	cmd.Flags().StringVar(&opts.Discount, "discount", "", `discount: "10%" or a fixed amount`)
	cmd.MarkFlagRequired("method")

	return cmd
}

// parseItem parses one "name:price:qty" cart line. The name may itself
// contain colons; price and qty are the last two segments.
func parseItem(s string) (ledger.OrderItem, error) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return ledger.OrderItem{}, fmt.Errorf("item %q: want \"name:price:qty\"", s)
	}
	qty, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return ledger.OrderItem{}, fmt.Errorf("item %q: bad quantity: %w", s, err)
	}

	rest := s[:i]
	j := strings.LastIndex(rest, ":")
	if j < 0 {
		return ledger.OrderItem{}, fmt.Errorf("item %q: want \"name:price:qty\"", s)
	}
	price, err := decimal.NewFromString(rest[j+1:])
	if err != nil {
		return ledger.OrderItem{}, fmt.Errorf("item %q: bad price: %w", s, err)
	}

	name := strings.TrimSpace(rest[:j])
	if name == "" {
		return ledger.OrderItem{}, fmt.Errorf("item %q: empty name", s)
	}
	return ledger.OrderItem{Name: name, Price: price, Quantity: qty}, nil
}

func runSell(cmd *cobra.Command, opts *SellOptions) error {
	ctx := cmd.Context()
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout())

	cart := make([]ledger.OrderItem, 0, len(opts.Items))
	for _, raw := range opts.Items {
		item, err := parseItem(raw)
		if err != nil {
			return WrapExitError(ExitCommandError, "parse cart", err)
		}
		cart = append(cart, item)
	}

	method := ledger.PaymentMethod(opts.Method)
	var cashReceived *decimal.Decimal
	if opts.CashReceived != "" {
		d, err := parseAmount("cash-received", opts.CashReceived)
		if err != nil {
			return err
		}
		cashReceived = &d
	}

	disc, err := ledger.ParseDiscount(opts.Discount)
	if err != nil {
		return WrapExitError(ExitCommandError, "parse discount", err)
	}

	env, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer env.Close()

	order, err := env.Orders.PlaceOrder(ctx, cart, method, cashReceived, disc)
	if err != nil {
		return f.Fail(err)
	}
	env.FlushSync(ctx)

	if f.JSON() {
		return f.Success(order)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Order %s placed\n", order.ID)
	fmt.Fprintf(out, "  Subtotal:  %s\n", order.Subtotal)
	if !order.DiscountValue.IsZero() {
		fmt.Fprintf(out, "  Discount:  -%s\n", order.DiscountValue)
	}
	if !order.ServiceChargeValue.IsZero() {
		fmt.Fprintf(out, "  Service:   %s\n", order.ServiceChargeValue)
	}
	if !order.Tax.IsZero() {
		fmt.Fprintf(out, "  VAT:       %s\n", order.Tax)
	}
	fmt.Fprintf(out, "  Total:     %s (%s)\n", order.Total, order.PaymentMethod)
	if order.CashReceived != nil {
		change := order.CashReceived.Sub(order.Total)
		fmt.Fprintf(out, "  Tendered:  %s, change %s\n", order.CashReceived, change)
	}
	return nil
}
