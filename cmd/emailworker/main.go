// Command emailworker drains C8's email outbox (spec.md section 4.8.1):
// it loops calling delivery.Worker.ProcessOne against a real SMTP
// delivery.Mailer, one row at a time, relying on the store's
// ClaimPendingEmail to provide the FOR UPDATE SKIP LOCKED-style atomic
// claim so multiple replicas of this binary never double-send a row.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/meridianhq/authcore/internal/delivery"
	"github.com/meridianhq/authcore/internal/identity"
	"github.com/meridianhq/authcore/internal/mailer"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger.Info("email_worker_starting")

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

	smtpMailer, err := mailer.NewSMTPMailer(mailer.SMTPConfig{
		Host:    os.Getenv("SMTP_HOST"),
		Port:    getEnvInt("SMTP_PORT", 587),
		User:    os.Getenv("SMTP_USER"),
		Pass:    os.Getenv("SMTP_PASS"),
		From:    os.Getenv("SMTP_FROM"),
		TLSMode: os.Getenv("SMTP_TLS_MODE"),
	}, logger)
	if err != nil {
		logger.Error("smtp_mailer_init_failed", "error", err)
		os.Exit(1)
	}

	worker := delivery.NewWorker(store, smtpMailer)

	pollInterval := getEnvDuration("EMAIL_WORKER_INTERVAL", 5*time.Second)
	logger.Info("email_worker_configured", "poll_interval", pollInterval)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info("email_worker_shutdown_signal_received")
		cancel()
	}()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("email_worker_stopped")
			return
		case <-ticker.C:
			drain(ctx, worker, logger)
		}
	}
}

// drain processes every currently due row before waiting for the next
// tick, so a burst of enqueued emails doesn't pile up across ticks.
func drain(ctx context.Context, worker *delivery.Worker, logger *slog.Logger) {
	for {
		err := worker.ProcessOne(ctx)
		if err == nil {
			continue
		}
		if errors.Is(err, identity.ErrNotFound) {
			return
		}
		logger.Error("email_processing_failed", "error", err)
		return
	}
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	dur, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return dur
}

func getEnvInt(key string, def int) int {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return i
}
