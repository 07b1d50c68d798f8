package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Limiter counts requests per key in fixed windows.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int) (bool, error)
}

// RedisLimiter shares window counters between instances.
type RedisLimiter struct {
	client *redis.Client
	window time.Duration
	now    func() time.Time
}

func NewRedisLimiter(client *redis.Client, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, window: window, now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int) (bool, error) {
	slot := l.now().UnixNano() / int64(l.window)
	k := fmt.Sprintf("ratelimit:%s:%d", key, slot)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, err
	}
	return incr.Val() <= int64(limit), nil
}

type memoryWindow struct {
	slot  int64
	count int
}

// MemoryLimiter keeps counters in process; used when Redis is not set up.
type MemoryLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	now     func() time.Time
	windows map[string]*memoryWindow
}

func NewMemoryLimiter(window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{window: window, now: time.Now, windows: make(map[string]*memoryWindow)}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int) (bool, error) {
	slot := l.now().UnixNano() / int64(l.window)

	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.windows[key]
	if !ok || w.slot != slot {
		if len(l.windows) > 10000 {
			l.sweep(slot)
		}
		w = &memoryWindow{slot: slot}
		l.windows[key] = w
	}
	w.count++
	return w.count <= limit, nil
}

func (l *MemoryLimiter) sweep(slot int64) {
	for k, w := range l.windows {
		if w.slot != slot {
			delete(l.windows, k)
		}
	}
}

// RateLimit allows limit requests per client ip per window. Limiter
// failures let the request through.
func RateLimit(l Limiter, limit int, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil || limit <= 0 {
			c.Next()
			return
		}
		ok, err := l.Allow(c.Request.Context(), c.ClientIP(), limit)
		if err != nil {
			log.Warn("rate limiter unavailable", zap.Error(err))
		}
		if !ok {
			c.Header("Retry-After", "60")
			Abort(c, http.StatusTooManyRequests, "RateLimited", "Too many requests, please slow down")
			return
		}
		c.Next()
	}
}
