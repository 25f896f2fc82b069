package outbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coppertill/till/internal/ledger"
	"github.com/coppertill/till/internal/store"
)

var testDay = time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)

// fakeRemote records delivered batches and fails on demand.
type fakeRemote struct {
	mu      sync.Mutex
	batches [][]string // order IDs per call
	err     error
	block   chan struct{} // if set, LogBatch waits until closed
}

func (f *fakeRemote) LogBatch(_ context.Context, orders []ledger.Order) error {
	f.mu.Lock()
	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	f.batches = append(f.batches, ids)
	err := f.err
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	return err
}

func (f *fakeRemote) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func newTestQueue(t *testing.T, remote Remote, opts ...Option) (*Queue, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "till.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	base := []Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}
	return New(st, remote, append(base, opts...)...), st
}

func seedOrders(t *testing.T, st *store.Store, n int) []string {
	t.Helper()
	ids := make([]string, n)
	err := st.WithTx(context.Background(), func(tx *store.Tx) error {
		for i := 0; i < n; i++ {
			ids[i] = fmt.Sprintf("2026-08-29-%04d", i+1)
			o := &ledger.Order{
				ID:            ids[i],
				Items:         []ledger.OrderItem{{Name: "Latte", Price: decimal.NewFromInt(5), Quantity: 1}},
				Subtotal:      decimal.NewFromInt(5),
				Total:         decimal.NewFromInt(5),
				Timestamp:     testDay.Add(time.Duration(i) * time.Minute),
				PaymentMethod: ledger.PayCash,
				Status:        ledger.StatusCompleted,
				SyncStatus:    ledger.SyncPending,
			}
			if err := tx.InsertOrder(o); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	return ids
}

func syncStatuses(t *testing.T, st *store.Store, ids []string) []ledger.SyncStatus {
	t.Helper()
	out := make([]ledger.SyncStatus, len(ids))
	for i, id := range ids {
		o, err := st.GetOrder(context.Background(), id)
		require.NoError(t, err)
		require.NotNil(t, o)
		out[i] = o.SyncStatus
	}
	return out
}

func TestSyncNow_DrainsAndMarksSynced(t *testing.T) {
	remote := &fakeRemote{}
	q, st := newTestQueue(t, remote)
	ids := seedOrders(t, st, 3)

	n, err := q.SyncNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, remote.calls(), "one batch for the whole pass")
	assert.Equal(t, ids, remote.batches[0], "oldest first")

	for _, s := range syncStatuses(t, st, ids) {
		assert.Equal(t, ledger.SyncSynced, s)
	}
}

func TestSyncNow_SecondCallIssuesNoBatch(t *testing.T) {
	remote := &fakeRemote{}
	q, st := newTestQueue(t, remote)
	ids := seedOrders(t, st, 2)

	_, err := q.SyncNow(context.Background())
	require.NoError(t, err)

	// Nothing new pending: at most one network batch across both calls,
	// statuses untouched by the second call.
	n, err := q.SyncNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, remote.calls())
	for _, s := range syncStatuses(t, st, ids) {
		assert.Equal(t, ledger.SyncSynced, s)
	}
}

func TestSyncNow_TransportFailureLeavesBatchPending(t *testing.T) {
	remote := &fakeRemote{err: errors.New("connection refused")}
	q, st := newTestQueue(t, remote)
	ids := seedOrders(t, st, 3)

	_, err := q.SyncNow(context.Background())
	require.Error(t, err)
	assert.True(t, ledger.IsNetwork(err), "got %v", err)

	// All-or-nothing: no partial per-order marking.
	for _, s := range syncStatuses(t, st, ids) {
		assert.Equal(t, ledger.SyncPending, s)
	}

	// Recovery: the next pass redelivers the same batch.
	remote.mu.Lock()
	remote.err = nil
	remote.mu.Unlock()
	n, err := q.SyncNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSyncNow_RejectionMarksFailedButRetries(t *testing.T) {
	remote := &fakeRemote{err: fmt.Errorf("post batch: %w: status %q", ErrRejected, "error")}
	q, st := newTestQueue(t, remote)
	ids := seedOrders(t, st, 2)

	_, err := q.SyncNow(context.Background())
	require.Error(t, err)
	assert.True(t, ledger.IsNetwork(err), "got %v", err)
	for _, s := range syncStatuses(t, st, ids) {
		assert.Equal(t, ledger.SyncFailed, s)
	}

	// Failed orders are still owed to the remote.
	remote.mu.Lock()
	remote.err = nil
	remote.mu.Unlock()
	n, err := q.SyncNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	for _, s := range syncStatuses(t, st, ids) {
		assert.Equal(t, ledger.SyncSynced, s)
	}
}

func TestSyncNow_RespectsBatchLimit(t *testing.T) {
	remote := &fakeRemote{}
	q, st := newTestQueue(t, remote, WithBatchLimit(2))
	seedOrders(t, st, 5)

	n, err := q.SyncNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Equal(t, 1, remote.calls())
	assert.Len(t, remote.batches[0], 2)
}

func TestPass_SingleFlight(t *testing.T) {
	block := make(chan struct{})
	remote := &fakeRemote{block: block}
	q, st := newTestQueue(t, remote)
	seedOrders(t, st, 1)

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_, _ = q.SyncNow(context.Background())
	}()

	// Wait until the first pass is inside the remote call.
	require.Eventually(t, func() bool { return remote.calls() == 1 }, time.Second, time.Millisecond)

	// A trigger while one pass is in flight is a no-op, not queued.
	n, err := q.SyncNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, remote.calls())

	close(block)
	<-firstDone
}

func TestNotify_CoalescesAndHonorsAutoSync(t *testing.T) {
	remote := &fakeRemote{}
	q, _ := newTestQueue(t, remote)

	q.Notify()
	q.Notify()
	q.Notify()
	assert.Len(t, q.nudge, 1, "nudges coalesce into one")

	// Drain, disable auto-sync, and verify Notify becomes a no-op.
	<-q.nudge
	q.SetAutoSync(false)
	q.Notify()
	assert.Len(t, q.nudge, 0)
	assert.False(t, q.AutoSync())
}

func TestRun_NudgeTriggersPass(t *testing.T) {
	remote := &fakeRemote{}
	q, st := newTestQueue(t, remote, WithInterval(time.Hour))
	ids := seedOrders(t, st, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		q.Run(ctx)
	}()

	q.Notify()
	require.Eventually(t, func() bool {
		return syncStatuses(t, st, ids)[0] == ledger.SyncSynced
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestRun_TimerSkippedWhenAutoSyncDisabled(t *testing.T) {
	remote := &fakeRemote{}
	q, st := newTestQueue(t, remote, WithInterval(10*time.Millisecond))
	seedOrders(t, st, 1)
	q.SetAutoSync(false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		q.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, 0, remote.calls(), "disabled auto-sync must not issue batches")
}
