package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"govportal/internal/store"
	"govportal/internal/store/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// pingStore counts pings and fails them while down is set.
type pingStore struct {
	store.Store
	pings atomic.Int32
	down  atomic.Bool
	delay time.Duration
}

func (p *pingStore) Ping(ctx context.Context) error {
	p.pings.Add(1)
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if p.down.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func newFallback(t *testing.T) store.Store {
	t.Helper()
	fb, err := memstore.New()
	require.NoError(t, err)
	return fb
}

func TestSelectWithoutPrimaryUsesFallback(t *testing.T) {
	fb := newFallback(t)
	sel := store.NewSelector(nil, fb, zap.NewNop())

	got, src := sel.Select(context.Background())
	assert.Equal(t, store.SourceFallback, src)
	assert.Same(t, fb, got)
	assert.False(t, sel.HasPrimary())
}

func TestSelectCachesPingResult(t *testing.T) {
	now := time.Unix(0, 0)
	primary := &pingStore{Store: memstore.Empty()}
	sel := store.NewSelector(primary, newFallback(t), zap.NewNop(),
		store.WithHealthTTL(2*time.Second),
		store.WithClock(func() time.Time { return now }),
	)
	ctx := context.Background()

	_, src := sel.Select(ctx)
	assert.Equal(t, store.SourceLive, src)
	_, src = sel.Select(ctx)
	assert.Equal(t, store.SourceLive, src)
	assert.Equal(t, int32(1), primary.pings.Load())

	primary.down.Store(true)
	now = now.Add(3 * time.Second)
	_, src = sel.Select(ctx)
	assert.Equal(t, store.SourceFallback, src)
	assert.Equal(t, int32(2), primary.pings.Load())

	// Unhealthy results are cached too.
	primary.down.Store(false)
	_, src = sel.Select(ctx)
	assert.Equal(t, store.SourceFallback, src)

	sel.SetPrimary(primary)
	_, src = sel.Select(ctx)
	assert.Equal(t, store.SourceLive, src)
}

func TestConcurrentPingsAreCoalesced(t *testing.T) {
	primary := &pingStore{Store: memstore.Empty(), delay: 50 * time.Millisecond}
	sel := store.NewSelector(primary, newFallback(t), zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, src := sel.Select(context.Background())
			assert.Equal(t, store.SourceLive, src)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, primary.pings.Load(), int32(2))
}
