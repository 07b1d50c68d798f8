package main

import (
	"context"
	"fmt"

	"govportal/internal/config"
	"govportal/internal/services"
	"govportal/internal/store"
	"govportal/internal/store/memstore"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create tables or indexes and the bootstrap admin",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLiveStore(cmd.Context(), func(ctx context.Context, cfg *config.Config, stores *store.Selector, log *zap.Logger) error {
			if err := services.NewAccountService(stores, log).EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migration complete")
			return nil
		})
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Rewrite every candidate tally to its vote count",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLiveStore(cmd.Context(), func(ctx context.Context, cfg *config.Config, stores *store.Selector, log *zap.Logger) error {
			fixed, err := services.NewReconciler(stores, 0, log).ReconcileAll(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "corrected %d candidate tallies\n", fixed)
			return nil
		})
	},
}

// withLiveStore runs fn against the live store; these tasks never touch
// the fallback dataset.
func withLiveStore(ctx context.Context, fn func(context.Context, *config.Config, *store.Selector, *zap.Logger) error) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := config.Load(envFile, log)
	if err != nil {
		return err
	}
	if !cfg.HasPrimaryStore() {
		return fmt.Errorf("no connection string set for store driver %q", cfg.StoreDriver)
	}
	primary, err := openPrimary(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer primary.Close(context.Background())

	fallback, err := memstore.New()
	if err != nil {
		return err
	}
	return fn(ctx, cfg, store.NewSelector(primary, fallback, log), log)
}
