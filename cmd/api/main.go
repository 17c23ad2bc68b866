package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/meridianhq/authcore/internal/api"
	customMiddleware "github.com/meridianhq/authcore/internal/api/middleware"
	"github.com/meridianhq/authcore/internal/audit"
	"github.com/meridianhq/authcore/internal/auth"
	"github.com/meridianhq/authcore/internal/authcrypto"
	"github.com/meridianhq/authcore/internal/billing"
	"github.com/meridianhq/authcore/internal/delivery"
	"github.com/meridianhq/authcore/internal/identity"
	"github.com/meridianhq/authcore/internal/revocation"
	"github.com/meridianhq/authcore/internal/token"
	"github.com/meridianhq/authcore/pkg/logger"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	log := logger.Setup(env)
	log.Info("application_startup", "env", env)

	sentryDSN := os.Getenv("SENTRY_DSN")
	if sentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              sentryDSN,
			TracesSampleRate: 1.0,
			Environment:      env,
		}); err != nil {
			log.Error("sentry_init_failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
			log.Info("sentry_initialized")
		}
	} else {
		log.Warn("sentry_dsn_missing", "details", "skipping_init")
	}

	ctx := context.Background()

	// Signing keys: production requires JWT_PRIVATE_KEY; ParsePrivateKeyPEM
	// itself rejects anything under 4096 bits (spec.md section 4.4.1).
	privateKeyPEM := os.Getenv("JWT_PRIVATE_KEY")
	if privateKeyPEM == "" {
		log.Error("jwt_private_key_missing", "details", "generate one with cmd/tokensmith")
		os.Exit(1)
	}
	kid := os.Getenv("JWT_KEY_ID")
	if kid == "" {
		kid = "sig-1"
	}
	currentKey, err := token.ParsePrivateKeyPEM(kid, privateKeyPEM)
	if err != nil {
		log.Error("jwt_private_key_invalid", "error", err)
		os.Exit(1)
	}
	keys := &token.KeySet{Current: currentKey}

	if prevPEM := os.Getenv("JWT_PREVIOUS_PRIVATE_KEY"); prevPEM != "" {
		prevKid := os.Getenv("JWT_PREVIOUS_KEY_ID")
		if prevKid == "" {
			prevKid = "sig-0"
		}
		previousKey, err := token.ParsePrivateKeyPEM(prevKid, prevPEM)
		if err != nil {
			log.Error("jwt_previous_private_key_invalid", "error", err)
			os.Exit(1)
		}
		keys.Previous = previousKey
		log.Info("jwt_rotation_grace_window_active", "previous_kid", prevKid)
	}

	issuer := os.Getenv("JWT_ISSUER")
	if issuer == "" {
		issuer = "authcore"
	}
	audience := os.Getenv("JWT_AUDIENCE")
	if audience == "" {
		audience = "authcore-clients"
	}

	// C2: revocation / refresh-token index. Redis when REDIS_URL is set,
	// an in-memory store otherwise (single-instance dev/test only, since
	// the refresh-reuse-detection invariant needs a shared store across
	// replicas -- see internal/revocation/redis_store.go).
	var revocationStore revocation.Store
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Error("redis_url_parse_failed", "error", err)
			os.Exit(1)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			log.Error("redis_ping_failed", "error", err)
			os.Exit(1)
		}
		revocationStore = revocation.NewRedisStore(client)
		log.Info("revocation_store_connected", "backend", "redis")
	} else {
		log.Warn("redis_url_missing", "details", "using_in_memory_revocation_store")
		revocationStore = revocation.NewMemoryStore()
	}

	// C3: identity store. Postgres when DATABASE_URL is set, in-memory
	// otherwise.
	var store identity.Store
	var pool *pgxpool.Pool
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		poolConfig, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			log.Error("database_url_parse_failed", "error", err)
			os.Exit(1)
		}
		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			log.Error("database_pool_create_failed", "error", err)
			os.Exit(1)
		}
		if err := pool.Ping(ctx); err != nil {
			log.Error("database_ping_failed", "error", err)
			os.Exit(1)
		}
		store = identity.NewPgStore(pool)
		log.Info("identity_store_connected", "backend", "postgres")
	} else {
		log.Warn("database_url_missing", "details", "using_in_memory_identity_store")
		store = identity.NewMemoryStore()
	}

	// Idempotency cache for C7's Idempotency-Key enforcement (spec.md
	// section 4.7.3). No Postgres-backed implementation exists yet; see
	// DESIGN.md.
	idempotencyStore := identity.NewMemoryIdempotencyStore()

	hasher := authcrypto.NewArgon2idHasher()

	// OAuth provider token encryption key (spec.md section 4.6.4).
	var providerCipher *authcrypto.ProviderTokenCipher
	if rawKey := os.Getenv("PROVIDER_TOKEN_KEY"); rawKey != "" {
		keyBytes, err := base64.StdEncoding.DecodeString(rawKey)
		if err != nil {
			log.Error("provider_token_key_invalid", "error", err)
			os.Exit(1)
		}
		providerCipher, err = authcrypto.NewProviderTokenCipher(keyBytes)
		if err != nil {
			log.Error("provider_token_cipher_init_failed", "error", err)
			os.Exit(1)
		}
	} else {
		log.Warn("provider_token_key_missing", "details", "oauth linking disabled")
	}

	oauthProviders := auth.NewProviderSet(map[identity.OAuthProvider]auth.ProviderConfig{
		identity.OAuthProviderGoogle: {
			ClientID:     os.Getenv("GOOGLE_OAUTH_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_OAUTH_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("GOOGLE_OAUTH_REDIRECT_URL"),
		},
		identity.OAuthProviderGithub: {
			ClientID:     os.Getenv("GITHUB_OAUTH_CLIENT_ID"),
			ClientSecret: os.Getenv("GITHUB_OAUTH_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("GITHUB_OAUTH_REDIRECT_URL"),
		},
		identity.OAuthProviderMicrosoft: {
			ClientID:     os.Getenv("MICROSOFT_OAUTH_CLIENT_ID"),
			ClientSecret: os.Getenv("MICROSOFT_OAUTH_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("MICROSOFT_OAUTH_REDIRECT_URL"),
		},
	})

	auditLogger := audit.NewStoreLogger(store, log)

	tokenEngine := token.NewEngine(keys, revocationStore, issuer, audience)

	appURL := os.Getenv("APP_URL")
	if appURL == "" {
		appURL = "https://auth.meridianhq.dev"
	}

	authService := auth.NewService(
		auth.Config{DefaultAppURL: appURL},
		store,
		tokenEngine,
		revocationStore,
		hasher,
		&emailQueueMailer{store: store},
		auditLogger,
		oauthProviders,
		providerCipher,
		log,
	)

	billingService := billing.NewService(store, idempotencyStore, billing.NewFakeGateway(), auditLogger)

	webhookTransport := &httpWebhookTransport{client: &http.Client{Timeout: 10 * time.Second}}
	dispatcher := delivery.NewWebhookDispatcher(store, webhookTransport, auditLogger)

	allowedOrigins := splitAndTrim(os.Getenv("ALLOWED_ORIGINS"))
	if err := customMiddleware.ValidateOrigins(allowedOrigins); err != nil {
		log.Error("allowed_origins_invalid", "error", err)
		os.Exit(1)
	}

	server := api.NewServer(api.Deps{
		Store:          store,
		Idempotency:    idempotencyStore,
		AuthService:    authService,
		TokenEngine:    tokenEngine,
		BillingService: billingService,
		Dispatcher:     dispatcher,
		PasswordHasher: hasher,
		Logger:         log,
		AllowedOrigins: allowedOrigins,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      server.Router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		log.Info("server_listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Error("server_startup_failed", "error", err)
		os.Exit(1)

	case sig := <-shutdown:
		log.Info("shutdown_signal_received", "signal", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful_shutdown_failed", "error", err)
			if err := srv.Close(); err != nil {
				log.Error("server_force_close_failed", "error", err)
			}
		}

		if pool != nil {
			pool.Close()
			log.Info("database_pool_closed")
		}

		log.Info("server_shutdown_complete")
	}
}

// emailQueueMailer adapts delivery.Enqueue to the narrow auth.Mailer shape
// so internal/auth never imports internal/delivery directly.
type emailQueueMailer struct {
	store identity.Store
}

func (m *emailQueueMailer) Enqueue(ctx context.Context, tenantID uuid.UUID, recipient, templateID string, payload map[string]string) error {
	return delivery.Enqueue(ctx, m.store, tenantID, recipient, templateID, payload)
}

// httpWebhookTransport is the production delivery.Transport: a plain
// net/http client bounded by the 10s outbound timeout spec.md section 5
// requires.
type httpWebhookTransport struct {
	client *http.Client
}

func (t *httpWebhookTransport) Deliver(ctx context.Context, url string, payload []byte, signature string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", signature)
	resp, err := t.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
