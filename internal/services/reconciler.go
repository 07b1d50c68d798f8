package services

import (
	"context"
	"sync"
	"time"

	"govportal/internal/store"

	"go.uber.org/zap"
)

const (
	reconcileQueueSize  = 1000
	reconcileBatchSize  = 50
	reconcileFlushEvery = 500 * time.Millisecond
)

// Reconciler keeps candidate tallies equal to their vote counts. Casts
// schedule the voted candidate; a periodic full pass catches anything a
// crash between insert and increment left behind.
type Reconciler struct {
	stores   *store.Selector
	interval time.Duration
	log      *zap.Logger

	queue   chan string
	pending map[string]bool
	mu      sync.Mutex
}

func NewReconciler(stores *store.Selector, interval time.Duration, log *zap.Logger) *Reconciler {
	return &Reconciler{
		stores:   stores,
		interval: interval,
		log:      log,
		queue:    make(chan string, reconcileQueueSize),
		pending:  make(map[string]bool),
	}
}

// Schedule queues candidateID without blocking. Ids already queued are
// skipped; a full queue drops the id and leaves it to the periodic pass.
func (r *Reconciler) Schedule(candidateID string) {
	r.mu.Lock()
	if r.pending[candidateID] {
		r.mu.Unlock()
		return
	}
	r.pending[candidateID] = true
	r.mu.Unlock()

	select {
	case r.queue <- candidateID:
	default:
		r.mu.Lock()
		delete(r.pending, candidateID)
		r.mu.Unlock()
		r.log.Warn("reconcile queue full, skipping candidate", zap.String("candidate_id", candidateID))
	}
}

// Run processes the queue until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	batch := make([]string, 0, reconcileBatchSize)
	flush := time.NewTicker(reconcileFlushEvery)
	defer flush.Stop()

	var full <-chan time.Time
	if r.interval > 0 {
		t := time.NewTicker(r.interval)
		defer t.Stop()
		full = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case id := <-r.queue:
			r.release(id)
			batch = append(batch, id)
			if len(batch) >= reconcileBatchSize {
				r.processBatch(ctx, batch)
				batch = batch[:0]
			}
		case <-flush.C:
			if len(batch) > 0 {
				r.processBatch(ctx, batch)
				batch = batch[:0]
			}
		case <-full:
			if _, err := r.ReconcileAll(ctx); err != nil {
				r.log.Warn("scheduled reconcile pass failed", zap.Error(err))
			}
		}
	}
}

// release lets id be scheduled again once it has left the queue, so a cast
// landing while its candidate is being reconciled gets a fresh check.
func (r *Reconciler) release(id string) {
	r.mu.Lock()
	delete(r.pending, id)
	r.mu.Unlock()
}

func (r *Reconciler) processBatch(ctx context.Context, ids []string) {
	primary := r.stores.Primary(ctx)
	if primary == nil {
		return
	}
	for _, id := range ids {
		r.reconcile(ctx, primary, id)
	}
}

func (r *Reconciler) reconcile(ctx context.Context, st store.Store, id string) bool {
	before, after, err := st.ReconcileTally(ctx, id)
	if err != nil {
		r.log.Warn("reconcile tally failed", zap.String("candidate_id", id), zap.Error(err))
		return false
	}
	if before != after {
		r.log.Warn("tally drift corrected",
			zap.String("candidate_id", id),
			zap.Int64("before", before),
			zap.Int64("after", after))
		return true
	}
	return false
}

// ReconcileAll reconciles every live candidate and returns how many tallies
// were corrected.
func (r *Reconciler) ReconcileAll(ctx context.Context) (int, error) {
	primary := r.stores.Primary(ctx)
	if primary == nil {
		return 0, ErrStoreUnavailable
	}
	cands, err := primary.ListCandidates(ctx, false)
	if err != nil {
		return 0, unavailable(r.log, "list candidates", err)
	}
	fixed := 0
	for _, c := range cands {
		if ctx.Err() != nil {
			return fixed, ctx.Err()
		}
		if r.reconcile(ctx, primary, c.ID) {
			fixed++
		}
	}
	r.log.Info("reconcile pass finished", zap.Int("candidates", len(cands)), zap.Int("corrected", fixed))
	return fixed, nil
}
