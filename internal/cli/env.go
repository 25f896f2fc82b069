package cli

import (
	"context"
	"errors"
	"time"

	"github.com/coppertill/till/internal/config"
	"github.com/coppertill/till/internal/ledger"
	"github.com/coppertill/till/internal/orders"
	"github.com/coppertill/till/internal/outbox"
	"github.com/coppertill/till/internal/report"
	"github.com/coppertill/till/internal/shift"
	"github.com/coppertill/till/internal/store"
)

// Env is the wired terminal: one store with the domain components built
// over it. Commands open an Env, perform one operation and close it.
type Env struct {
	Cfg      *config.Config
	Store    *store.Store
	Shifts   *shift.Manager
	Orders   *orders.Ledger
	Reporter *report.Reporter
	Sync     *outbox.Queue

	hasRemote bool
}

// openEnv loads configuration, opens the database and wires the
// components. The current open shift, if any, is resumed so commands see
// it.
func openEnv(ctx context.Context, opts *RootOptions) (*Env, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}
	if opts.DBPath != "" {
		cfg.DBPath = opts.DBPath
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open database", err)
	}

	shifts := shift.NewManager(st, shift.WithMaxPerDay(cfg.Shifts.MaxPerDay))
	if err := shifts.Resume(ctx); err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "resume shift", err)
	}

	ord := orders.New(st, shifts, cfg.Pricing.Ledger())

	remote := outbox.Remote(noRemote{})
	if cfg.Sync.Endpoint != "" {
		remote = outbox.NewClient(cfg.Sync.Endpoint, 30*time.Second)
	}
	sync := outbox.New(st, remote,
		outbox.WithInterval(cfg.Sync.Interval.Std()),
		outbox.WithBatchLimit(cfg.Sync.BatchLimit),
	)
	sync.SetAutoSync(cfg.Sync.Auto)
	ord.SetNotifier(sync.Notify)
	shifts.SetNotifier(sync.Notify)

	rep := report.New(st, report.WithNetCancellations(cfg.Reports.NetCancellations))

	return &Env{
		Cfg:       cfg,
		Store:     st,
		Shifts:    shifts,
		Orders:    ord,
		Reporter:  rep,
		Sync:      sync,
		hasRemote: cfg.Sync.Endpoint != "",
	}, nil
}

// FlushSync runs one best-effort sync pass before the process exits. The
// binary is one-shot, so a queued nudge would otherwise die with it;
// commands that produce sync work call this after their write commits.
// Failures are logged by the queue and swallowed: delivery is retried on
// the next pass and must not fail the command that queued the work.
func (e *Env) FlushSync(ctx context.Context) {
	if !e.hasRemote || !e.Cfg.Sync.Auto {
		return
	}
	_, _ = e.Sync.SyncNow(ctx)
}

// Close releases the environment's database handle.
func (e *Env) Close() error {
	return e.Store.Close()
}

// noRemote stands in when no sync endpoint is configured. Orders still
// queue locally; any delivery attempt reports the missing endpoint.
type noRemote struct{}

func (noRemote) LogBatch(context.Context, []ledger.Order) error {
	return errors.New("no sync endpoint configured")
}
