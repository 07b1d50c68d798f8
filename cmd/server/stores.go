package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"govportal/internal/config"
	"govportal/internal/db"
	"govportal/internal/services"
	"govportal/internal/store"
	"govportal/internal/store/mongostore"
	"govportal/internal/store/sqlstore"

	"go.uber.org/zap"
)

func retryPolicy(cfg *config.Config) db.RetryPolicy {
	return db.RetryPolicy{Attempts: cfg.ConnectAttempts, BaseDelay: cfg.ConnectBaseDelay}
}

// openPrimary connects to the configured live store and prepares its
// schema or indexes.
func openPrimary(ctx context.Context, cfg *config.Config, log *zap.Logger) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		return db.ConnectWithRetry(ctx, retryPolicy(cfg), log, func(ctx context.Context) (store.Store, error) {
			s, err := mongostore.Connect(ctx, mongostore.Options{
				URI:            cfg.MongoURI,
				Database:       cfg.MongoDatabase,
				ConnectTimeout: cfg.ConnectTimeout,
				SocketTimeout:  cfg.SocketTimeout,
			}, log)
			if err != nil {
				return nil, err
			}
			return s, nil
		})
	case config.DriverPostgres:
		gdb, err := db.OpenPostgres(ctx, cfg.DatabaseURL, cfg.ConnectTimeout, retryPolicy(cfg), log)
		if err != nil {
			return nil, err
		}
		return sqlstore.New(gdb, cfg.SocketTimeout), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// liveStore remembers the connected primary so it can be closed on exit,
// whichever goroutine connected it.
type liveStore struct {
	mu sync.Mutex
	s  store.Store
}

func (l *liveStore) set(s store.Store) {
	l.mu.Lock()
	l.s = s
	l.mu.Unlock()
}

func (l *liveStore) close(ctx context.Context, log *zap.Logger) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.s == nil {
		return
	}
	if err := l.s.Close(ctx); err != nil {
		log.Warn("close live store", zap.Error(err))
	}
}

// reconnect retries the live store every interval until it connects or ctx
// ends, then installs it in the selector.
func reconnect(ctx context.Context, cfg *config.Config, stores *store.Selector, live *liveStore, accounts *services.AccountService, log *zap.Logger) {
	ticker := time.NewTicker(cfg.ReconnectEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		primary, err := openPrimary(ctx, cfg, log)
		if err != nil {
			log.Warn("live store still unavailable", zap.Error(err))
			continue
		}
		live.set(primary)
		stores.SetPrimary(primary)
		log.Info("live store reconnected, leaving fallback mode")
		if err := accounts.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Warn("ensure bootstrap admin", zap.Error(err))
		}
		return
	}
}
