// Package outbox drains locally-committed orders to the remote ledger
// backend.
//
// Delivery is offline-first and at-least-once: a batch is marked synced
// only after the remote acknowledges it, the whole batch moves together or
// not at all, and failures simply leave orders queued for the next pass.
// There is no retry counter and no backoff; the next scheduled or
// triggered pass is the retry.
package outbox

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/coppertill/till/internal/ledger"
	"github.com/coppertill/till/internal/store"
)

const (
	// DefaultInterval is the recurring sync cadence.
	DefaultInterval = 15 * time.Minute
	// DefaultBatchLimit bounds how many orders one pass delivers.
	DefaultBatchLimit = 100
)

// Queue is the offline-first outbox.
//
// Thread-safety model:
//   - SyncNow and Notify are safe from any goroutine
//   - a single atomic in-flight flag guarantees at most one pass runs at a
//     time; a trigger arriving mid-pass is dropped, not queued
//   - Run must be called from exactly one goroutine
type Queue struct {
	store  *store.Store
	remote Remote
	log    *slog.Logger

	interval   time.Duration
	batchLimit int

	auto     atomic.Bool
	inFlight atomic.Bool
	nudge    chan struct{} // buffered size 1, coalesces triggers
}

// Option configures a Queue.
type Option func(*Queue)

// WithInterval overrides the recurring sync interval.
func WithInterval(d time.Duration) Option {
	return func(q *Queue) { q.interval = d }
}

// WithBatchLimit overrides the per-pass batch bound.
func WithBatchLimit(n int) Option {
	return func(q *Queue) { q.batchLimit = n }
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) { q.log = l }
}

// New creates an outbox over the given store and remote. Auto-sync starts
// enabled.
func New(st *store.Store, remote Remote, opts ...Option) *Queue {
	q := &Queue{
		store:      st,
		remote:     remote,
		log:        slog.Default(),
		interval:   DefaultInterval,
		batchLimit: DefaultBatchLimit,
		nudge:      make(chan struct{}, 1),
	}
	q.auto.Store(true)
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// SetAutoSync enables or disables the timer and event triggers. Manual
// SyncNow calls work regardless.
func (q *Queue) SetAutoSync(enabled bool) {
	q.auto.Store(enabled)
}

// AutoSync reports whether automatic triggers are enabled.
func (q *Queue) AutoSync() bool {
	return q.auto.Load()
}

// Notify requests a best-effort immediate pass after a ledger write. It
// never blocks: if a nudge is already queued the new one coalesces into
// it, and with auto-sync disabled it is a no-op.
func (q *Queue) Notify() {
	if !q.auto.Load() {
		return
	}
	select {
	case q.nudge <- struct{}{}:
	default:
	}
}

// Run processes timer ticks and nudges until ctx is cancelled.
// Pass failures are logged and swallowed; sync never takes the terminal
// down.
func (q *Queue) Run(ctx context.Context) {
	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !q.auto.Load() {
				continue
			}
			q.runPass(ctx)
		case <-q.nudge:
			q.runPass(ctx)
		}
	}
}

// SyncNow runs one manual pass and reports how many orders were synced.
// If a pass is already in flight this call is a no-op returning (0, nil).
// A NETWORK error means the batch stayed queued.
func (q *Queue) SyncNow(ctx context.Context) (int, error) {
	return q.pass(ctx)
}

func (q *Queue) runPass(ctx context.Context) {
	if _, err := q.pass(ctx); err != nil {
		q.log.Warn("sync pass failed, orders remain queued", "error", err)
	}
}

// pass is one single-flight sync pass: select the queued batch, deliver
// it, and mark the whole batch together.
func (q *Queue) pass(ctx context.Context) (int, error) {
	const op = "outbox.sync"

	if !q.inFlight.CompareAndSwap(false, true) {
		// A pass is already running; this trigger is dropped.
		return 0, nil
	}
	defer q.inFlight.Store(false)

	pending, err := q.store.UnsyncedOrders(ctx, q.batchLimit)
	if err != nil {
		return 0, q.fail(ledger.WrapStorage(op, err))
	}
	if len(pending) == 0 {
		// Nothing owed: no network call at all.
		return 0, nil
	}

	ids := make([]string, len(pending))
	for i, o := range pending {
		ids[i] = o.ID
	}

	if err := q.remote.LogBatch(ctx, pending); err != nil {
		if errors.Is(err, ErrRejected) {
			// The remote answered and refused. Tag the batch failed so
			// operators can tell rejection from never-delivered; it is
			// still retried on later passes.
			if markErr := q.markAll(ctx, ids, ledger.SyncFailed); markErr != nil {
				return 0, q.fail(ledger.WrapStorage(op, markErr))
			}
		}
		return 0, q.fail(ledger.WrapNetwork(op, err))
	}

	if err := q.markAll(ctx, ids, ledger.SyncSynced); err != nil {
		// The remote has the batch but the local mark failed; the next
		// pass redelivers and the remote's dedupe absorbs it.
		return 0, q.fail(ledger.WrapStorage(op, err))
	}

	q.log.Info("sync pass delivered batch", "orders", len(ids))
	return len(ids), nil
}

// markAll moves the whole batch to one sync status, all-or-nothing.
func (q *Queue) markAll(ctx context.Context, ids []string, status ledger.SyncStatus) error {
	return q.store.WithTx(ctx, func(tx *store.Tx) error {
		return tx.SetSyncStatus(ids, status)
	})
}

// fail logs an error to the audit trail before surfacing it.
func (q *Queue) fail(err error) error {
	q.log.Error("sync operation failed", "error", err)
	return err
}
