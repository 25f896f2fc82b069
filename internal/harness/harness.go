// Package harness executes acceptance scenarios against a fully wired
// terminal: real store, shift manager, order ledger and outbox over a
// throwaway database, with a deterministic clock so traces and golden
// files are stable.
package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coppertill/till/internal/ledger"
	"github.com/coppertill/till/internal/orders"
	"github.com/coppertill/till/internal/outbox"
	"github.com/coppertill/till/internal/shift"
	"github.com/coppertill/till/internal/store"
	"github.com/coppertill/till/internal/testutil"
)

// scenarioStart anchors the deterministic clock. Every scenario begins
// here; step i runs i minutes later.
var scenarioStart = time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)

// TraceEvent records one executed step and its outcome.
type TraceEvent struct {
	Seq    int            `json:"seq"`
	Op     string         `json:"op"`
	Status string         `json:"status"` // "ok" or the ledger error code
	Result map[string]any `json:"result,omitempty"`
}

// Result holds the outcome of a scenario run.
type Result struct {
	Trace []TraceEvent
}

// capturingRemote acknowledges every batch so sync steps complete
// deterministically offline.
type capturingRemote struct {
	batches [][]ledger.Order
}

func (r *capturingRemote) LogBatch(_ context.Context, batch []ledger.Order) error {
	r.batches = append(r.batches, batch)
	return nil
}

// runner is one scenario execution's wired environment.
type runner struct {
	clock  *testutil.FixedClock
	shifts *shift.Manager
	orders *orders.Ledger
	sync   *outbox.Queue
}

// Run executes a scenario against a fresh database and returns the trace.
// A step whose outcome contradicts its Expect clause fails the run.
func Run(scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "till-harness-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	st, err := store.Open(filepath.Join(dir, "till.db"))
	if err != nil {
		return nil, err
	}
	defer st.Close()

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := testutil.NewFixedClock(scenarioStart)

	shifts := shift.NewManager(st,
		shift.WithClock(clock),
		shift.WithIDGenerator(testutil.NewSeqIDs("act")),
		shift.WithLogger(quiet),
	)
	ord := orders.New(st, shifts, ledger.Pricing{
		ServiceChargeEnabled: true,
		ServiceChargePercent: decimal.NewFromInt(10),
		TaxEnabled:           true,
		TaxPercent:           decimal.NewFromInt(7),
	}, orders.WithClock(clock), orders.WithLogger(quiet))
	sync := outbox.New(st, &capturingRemote{}, outbox.WithLogger(quiet))

	r := &runner{clock: clock, shifts: shifts, orders: ord, sync: sync}

	result := &Result{}
	for i, step := range scenario.Steps {
		clock.Set(scenarioStart.Add(time.Duration(i) * time.Minute))

		ev := TraceEvent{Seq: i + 1, Op: step.Op}
		res, err := r.execute(step)
		if err != nil {
			code := string(ledger.CodeOf(err))
			if code == "" {
				return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
			}
			if step.Expect == nil || step.Expect.Error != code {
				return nil, fmt.Errorf("step %d (%s): unexpected %s: %w", i+1, step.Op, code, err)
			}
			ev.Status = code
			result.Trace = append(result.Trace, ev)
			continue
		}

		if step.Expect != nil && step.Expect.Error != "" {
			return nil, fmt.Errorf("step %d (%s): expected %s, got success", i+1, step.Op, step.Expect.Error)
		}
		if step.Expect != nil {
			if err := matchResult(step.Expect.Result, res); err != nil {
				return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
			}
		}
		ev.Status = "ok"
		ev.Result = res
		result.Trace = append(result.Trace, ev)
	}
	return result, nil
}

// matchResult checks expected fields as a subset of the actual result.
func matchResult(expect, actual map[string]any) error {
	for key, want := range expect {
		got, ok := actual[key]
		if !ok {
			return fmt.Errorf("result field %q missing, have %v", key, actual)
		}
		if fmt.Sprint(want) != fmt.Sprint(got) {
			return fmt.Errorf("result field %q: want %v, got %v", key, want, got)
		}
	}
	return nil
}

func (r *runner) execute(step Step) (map[string]any, error) {
	ctx := context.Background()

	switch step.Op {
	case "shift_open":
		f, err := argDecimal(step.Args, "float")
		if err != nil {
			return nil, err
		}
		s, err := r.shifts.StartShift(ctx, f)
		if err != nil {
			return nil, err
		}
		return map[string]any{"id": s.ID, "openingFloat": s.OpeningFloat.String()}, nil

	case "shift_close":
		counted, err := argDecimal(step.Args, "counted")
		if err != nil {
			return nil, err
		}
		nextFloat, err := argDecimal(step.Args, "next_float")
		if err != nil {
			return nil, err
		}
		s, err := r.shifts.EndShift(ctx, counted, nextFloat)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"expectedCash": s.ExpectedCash.String(),
			"overShort":    s.CashOverShort.String(),
			"toDeposit":    s.CashToDeposit.String(),
		}, nil

	case "sell":
		return r.sell(ctx, step.Args)

	case "order_ready", "order_complete":
		target := ledger.StatusReady
		if step.Op == "order_complete" {
			target = ledger.StatusCompleted
		}
		o, err := r.orders.Advance(ctx, argString(step.Args, "order"), target)
		if err != nil {
			return nil, err
		}
		res := map[string]any{"id": o.ID, "status": string(o.Status)}
		if o.PrepSeconds != nil {
			res["prepSeconds"] = *o.PrepSeconds
		}
		return res, nil

	case "order_cancel":
		o, rev, err := r.orders.Cancel(ctx, argString(step.Args, "order"))
		if err != nil {
			return nil, err
		}
		return map[string]any{"id": o.ID, "reversal": rev.ID}, nil

	case "paid_in", "paid_out":
		typ := ledger.ActPaidIn
		if step.Op == "paid_out" {
			typ = ledger.ActPaidOut
		}
		amount, err := argDecimal(step.Args, "amount")
		if err != nil {
			return nil, err
		}
		act, err := r.shifts.PaidInOut(ctx, typ, amount, argString(step.Args, "reason"))
		if err != nil {
			return nil, err
		}
		return map[string]any{"seq": act.Seq, "type": string(act.Type)}, nil

	case "drawer_open":
		act, err := r.shifts.ManualOpen(ctx, argString(step.Args, "reason"))
		if err != nil {
			return nil, err
		}
		return map[string]any{"seq": act.Seq, "type": string(act.Type)}, nil

	case "sync":
		n, err := r.sync.SyncNow(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"synced": n}, nil
	}
	return nil, fmt.Errorf("unknown op %q", step.Op)
}

func (r *runner) sell(ctx context.Context, args map[string]any) (map[string]any, error) {
	rawItems, _ := args["items"].([]any)
	cart := make([]ledger.OrderItem, 0, len(rawItems))
	for _, raw := range rawItems {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("sell: item must be a mapping, got %T", raw)
		}
		price, err := decimal.NewFromString(fmt.Sprint(m["price"]))
		if err != nil {
			return nil, fmt.Errorf("sell: item price: %w", err)
		}
		qty, ok := m["qty"].(int)
		if !ok {
			return nil, fmt.Errorf("sell: item qty must be an integer, got %v", m["qty"])
		}
		cart = append(cart, ledger.OrderItem{
			Name:     fmt.Sprint(m["name"]),
			Price:    price,
			Quantity: qty,
		})
	}

	var cashReceived *decimal.Decimal
	if s := argString(args, "cash_received"); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("sell: cash_received: %w", err)
		}
		cashReceived = &d
	}

	disc, err := ledger.ParseDiscount(argString(args, "discount"))
	if err != nil {
		return nil, err
	}

	o, err := r.orders.PlaceOrder(ctx, cart, ledger.PaymentMethod(argString(args, "method")), cashReceived, disc)
	if err != nil {
		return nil, err
	}

	res := map[string]any{"id": o.ID, "total": o.Total.String()}
	if o.CashReceived != nil {
		res["change"] = o.CashReceived.Sub(o.Total).String()
	}
	return res, nil
}

func argString(args map[string]any, key string) string {
	if args == nil || args[key] == nil {
		return ""
	}
	return fmt.Sprint(args[key])
}

func argDecimal(args map[string]any, key string) (decimal.Decimal, error) {
	s := argString(args, key)
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("%s is required", key)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
