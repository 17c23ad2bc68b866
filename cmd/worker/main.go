// Command worker periodically sweeps subscriptions flagged
// cancel_at_period_end whose period has elapsed and transitions them to
// canceled. The teacher's equivalent binary janitored expired
// refresh-token/invitation/verification rows, which C2's revocation.Store
// now expires natively via TTL (Redis EXPIRE / in-memory deadline), so
// there is nothing left for that sweep to do; this is the one remaining
// recurring job C7 needs a driver for.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meridianhq/authcore/internal/audit"
	"github.com/meridianhq/authcore/internal/billing"
	"github.com/meridianhq/authcore/internal/identity"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger.Info("billing_sweep_worker_starting")

	ctx := context.Background()

	var store identity.Store
	var pool *pgxpool.Pool
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		var err error
		pool, err = pgxpool.New(ctx, dbURL)
		if err != nil {
			logger.Error("database_pool_create_failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		store = identity.NewPgStore(pool)
	} else {
		logger.Warn("database_url_missing", "details", "using_in_memory_identity_store")
		store = identity.NewMemoryStore()
	}

	idempotencyStore := identity.NewMemoryIdempotencyStore()
	auditLogger := audit.NewStoreLogger(store, logger)
	billingService := billing.NewService(store, idempotencyStore, billing.NewFakeGateway(), auditLogger)

	interval := 1 * time.Hour
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	sweep(ctx, store, billingService, logger)

	for {
		select {
		case <-ticker.C:
			sweep(ctx, store, billingService, logger)
		case <-quit:
			logger.Info("billing_sweep_worker_shutting_down")
			return
		}
	}
}

func sweep(ctx context.Context, store identity.Store, billingService *billing.Service, logger *slog.Logger) {
	due, err := store.ListSubscriptionsDueForCancel(ctx)
	if err != nil {
		logger.Error("list_subscriptions_due_for_cancel_failed", "error", err)
		return
	}

	canceled := billingService.SweepPeriodEndCancels(ctx, due)
	if len(canceled) > 0 {
		logger.Info("subscriptions_canceled", "count", len(canceled))
	}
}
