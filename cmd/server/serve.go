package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"govportal/internal/auth"
	"govportal/internal/config"
	"govportal/internal/handlers"
	"govportal/internal/middleware"
	"govportal/internal/router"
	"govportal/internal/services"
	"govportal/internal/store"
	"govportal/internal/store/memstore"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := config.Load(envFile, log)
	if err != nil {
		return err
	}
	if err := cfg.CheckSecrets(!verbose); err != nil {
		return err
	}
	if cfg.DevSecret {
		log.Warn("using the development secret for sessions and tokens")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fallback, err := memstore.New()
	if err != nil {
		return err
	}
	stores := store.NewSelector(nil, fallback, log, store.WithHealthTTL(cfg.HealthCacheTTL))
	accounts := services.NewAccountService(stores, log)

	live := &liveStore{}
	defer live.close(context.Background(), log)
	if !cfg.HasPrimaryStore() {
		log.Warn("no live store configured, serving the fallback dataset only")
	} else if primary, err := openPrimary(ctx, cfg, log); err != nil {
		log.Error("live store unavailable, serving the fallback dataset", zap.Error(err))
		go reconnect(ctx, cfg, stores, live, accounts, log)
	} else {
		live.set(primary)
		stores.SetPrimary(primary)
		if err := accounts.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Warn("ensure bootstrap admin", zap.Error(err))
		}
	}
	if cfg.FallbackWrites {
		log.Warn("FALLBACK_WRITES enabled: votes cast while the live store is down are kept in memory only")
	}

	reconciler := services.NewReconciler(stores, cfg.ReconcileEvery, log)
	go reconciler.Run(ctx)

	mail := services.NewMailService(cfg.SMTP, log)
	defer mail.Wait()

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	var google *oauth2.Config
	if cfg.GoogleEnabled() {
		google = handlers.GoogleConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.SiteURL)
	}

	candidates := services.NewCandidateRegistry(stores, cfg.CandidateCacheTTL, log)
	h := router.Handlers{
		Auth:      handlers.NewAuthHandler(accounts, tokens, google, cfg.SiteURL, log),
		Vote:      handlers.NewVoteHandler(services.NewVoteLedger(stores, reconciler, cfg.FallbackWrites, log)),
		Candidate: handlers.NewCandidateHandler(candidates),
		Complaint: handlers.NewComplaintHandler(services.NewComplaintRegister(stores, mail, log)),
		Document:  handlers.NewDocumentHandler(services.NewDocumentRegister(stores, cfg.IPFSGateway, log)),
		Admin:     handlers.NewAdminHandler(services.NewStatsService(stores, log)),
		Assistant: handlers.NewAssistantHandler(services.NewAssistant(services.AssistantConfig{
			BaseURL: cfg.LLMBaseURL,
			Token:   cfg.LLMToken,
			Model:   cfg.LLMModel,
		}, candidates, log)),
		Health: handlers.NewHealthHandler(stores),
	}

	limiter, closeLimiter := newLimiter(ctx, cfg, log)
	defer closeLimiter()

	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	r := router.New(cfg.SessionSecret, tokens, log)
	router.RegisterRoutes(r, h, middleware.RateLimit(limiter, cfg.RateLimitPerMinute, log))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newLimiter uses Redis when REDIS_URL is set and reachable, otherwise a
// per-process limiter.
func newLimiter(ctx context.Context, cfg *config.Config, log *zap.Logger) (middleware.Limiter, func()) {
	memory := middleware.NewMemoryLimiter(time.Minute)
	if cfg.RedisURL == "" {
		return memory, func() {}
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Warn("invalid REDIS_URL, using in-memory rate limits", zap.Error(err))
		return memory, func() {}
	}
	client := redis.NewClient(opts)
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		log.Warn("redis unavailable, using in-memory rate limits", zap.Error(err))
		client.Close()
		return memory, func() {}
	}
	return middleware.NewRedisLimiter(client, time.Minute), func() { client.Close() }
}
