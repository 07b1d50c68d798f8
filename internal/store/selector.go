package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type Source string

const (
	SourceLive     Source = "live"
	SourceFallback Source = "fallback"
)

// Selector chooses, once per request, between the live store and the
// fallback dataset. The two are never merged.
type Selector struct {
	fallback Store
	ttl      time.Duration
	timeout  time.Duration
	log      *zap.Logger
	now      func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	primary   Store
	healthy   bool
	checkedAt time.Time
}

type SelectorOption func(*Selector)

// WithHealthTTL sets how long a ping result is reused.
func WithHealthTTL(d time.Duration) SelectorOption {
	return func(s *Selector) { s.ttl = d }
}

// WithPingTimeout bounds each health ping.
func WithPingTimeout(d time.Duration) SelectorOption {
	return func(s *Selector) { s.timeout = d }
}

func WithClock(now func() time.Time) SelectorOption {
	return func(s *Selector) { s.now = now }
}

// NewSelector builds a selector. primary may be nil when the live store
// could not be reached at startup.
func NewSelector(primary, fallback Store, log *zap.Logger, opts ...SelectorOption) *Selector {
	s := &Selector{
		primary:  primary,
		fallback: fallback,
		ttl:      2 * time.Second,
		timeout:  10 * time.Second,
		log:      log,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetPrimary installs a (re)connected live store and forces the next
// selection to ping it.
func (s *Selector) SetPrimary(p Store) {
	s.mu.Lock()
	s.primary = p
	s.checkedAt = time.Time{}
	s.mu.Unlock()
}

// HasPrimary reports whether a live store is configured at all.
func (s *Selector) HasPrimary() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.primary != nil
}

func (s *Selector) Fallback() Store {
	return s.fallback
}

// Primary returns the live store when it answered its last health ping,
// nil otherwise.
func (s *Selector) Primary(ctx context.Context) Store {
	s.mu.RLock()
	p := s.primary
	fresh := !s.checkedAt.IsZero() && s.now().Sub(s.checkedAt) < s.ttl
	healthy := s.healthy
	s.mu.RUnlock()

	if p == nil {
		return nil
	}
	if fresh {
		if healthy {
			return p
		}
		return nil
	}

	v, _, _ := s.group.Do("ping", func() (interface{}, error) {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		err := p.Ping(pctx)
		s.mu.Lock()
		s.healthy = err == nil
		s.checkedAt = s.now()
		s.mu.Unlock()
		if err != nil {
			s.log.Warn("live store ping failed", zap.Error(err))
		}
		return err == nil, nil
	})
	if ok, _ := v.(bool); ok {
		return p
	}
	return nil
}

// Select returns the store a request should use and where it came from.
func (s *Selector) Select(ctx context.Context) (Store, Source) {
	if p := s.Primary(ctx); p != nil {
		s.log.Debug("store selected", zap.String("source", string(SourceLive)))
		return p, SourceLive
	}
	s.log.Warn("store selected", zap.String("source", string(SourceFallback)))
	return s.fallback, SourceFallback
}
