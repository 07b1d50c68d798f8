package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"govportal/internal/models"
	"govportal/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

// countingStore records which tallies were reconciled.
type countingStore struct {
	store.Store
	mu  sync.Mutex
	ids []string
}

func (s *countingStore) ReconcileTally(_ context.Context, id string) (int64, int64, error) {
	s.mu.Lock()
	s.ids = append(s.ids, id)
	s.mu.Unlock()
	return 0, 0, nil
}

func (s *countingStore) reconciled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ids...)
}

func TestReconcilerRunDrainsQueueAndStops(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)

	primary := &countingStore{Store: newFallback(t)}
	r := NewReconciler(selectorWith(primary, newFallback(t)), 0, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	r.Schedule("static-1")
	r.Schedule("static-2")

	assert.Eventually(t, func() bool {
		return len(primary.reconciled()) == 2
	}, 3*time.Second, 20*time.Millisecond)
	assert.ElementsMatch(t, []string{"static-1", "static-2"}, primary.reconciled())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop after cancel")
	}
}

func TestReconcilerScheduleSkipsPendingIDs(t *testing.T) {
	r := NewReconciler(selectorWith(nil, newFallback(t)), 0, zap.NewNop())
	r.Schedule("static-1")
	r.Schedule("static-1")
	assert.Len(t, r.queue, 1)

	r.release(<-r.queue)
	r.Schedule("static-1")
	assert.Len(t, r.queue, 1, "dequeued ids may be scheduled again")
}

// blockingStore holds the first reconcile until released.
type blockingStore struct {
	countingStore
	entered chan struct{}
	proceed chan struct{}
	once    sync.Once
}

func (s *blockingStore) ReconcileTally(ctx context.Context, id string) (int64, int64, error) {
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.entered)
		<-s.proceed
	}
	return s.countingStore.ReconcileTally(ctx, id)
}

func TestReconcilerRechecksCandidateScheduledDuringReconcile(t *testing.T) {
	primary := &blockingStore{
		countingStore: countingStore{Store: newFallback(t)},
		entered:       make(chan struct{}),
		proceed:       make(chan struct{}),
	}
	r := NewReconciler(selectorWith(primary, newFallback(t)), 0, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	r.Schedule("static-1")
	select {
	case <-primary.entered:
	case <-time.After(3 * time.Second):
		t.Fatal("reconcile never started")
	}
	r.Schedule("static-1")
	close(primary.proceed)

	assert.Eventually(t, func() bool {
		return len(primary.reconciled()) == 2
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{"static-1", "static-1"}, primary.reconciled())
}

func TestReconcilerScheduleDropsWhenFull(t *testing.T) {
	r := NewReconciler(selectorWith(nil, newFallback(t)), 0, zap.NewNop())
	for i := 0; i < reconcileQueueSize; i++ {
		r.queue <- "filler"
	}
	r.Schedule("static-1")
	r.mu.Lock()
	defer r.mu.Unlock()
	assert.False(t, r.pending["static-1"])
}

func TestReconcileAllCorrectsDrift(t *testing.T) {
	live := newLive(t)
	stores := selectorWith(live, newFallback(t))
	ctx := context.Background()

	x := registerCandidate(t, live, "owner-x", 1)
	y := registerCandidate(t, live, "owner-y", 2)
	ledger := NewVoteLedger(stores, nil, false, zap.NewNop())
	_, err := ledger.Cast(ctx, voterA, x.ID)
	require.NoError(t, err)

	// A crash between insert and increment, and a stray manual edit.
	require.NoError(t, live.DB().Model(&models.Candidate{}).Where("id = ?", x.ID).UpdateColumn("votes", 0).Error)
	require.NoError(t, live.DB().Model(&models.Candidate{}).Where("id = ?", y.ID).UpdateColumn("votes", 7).Error)

	r := NewReconciler(stores, 0, zap.NewNop())
	fixed, err := r.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, fixed)

	got, err := live.FindCandidate(ctx, x.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Votes)
	got, err = live.FindCandidate(ctx, y.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Votes)

	fixed, err = r.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, fixed)
}

func TestReconcileAllWithoutLiveStore(t *testing.T) {
	r := NewReconciler(selectorWith(downStore{}, newFallback(t)), 0, zap.NewNop())
	_, err := r.ReconcileAll(context.Background())
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
