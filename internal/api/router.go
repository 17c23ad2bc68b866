// Package api implements the thin chi edge layer described in spec.md
// section 6: HTTP decode/encode and auth/tenant enforcement only, with
// every real decision delegated to C5-C8 (authz, auth, billing,
// delivery).
package api

import (
	"log/slog"

	customMiddleware "github.com/meridianhq/authcore/internal/api/middleware"
	"github.com/meridianhq/authcore/internal/auth"
	"github.com/meridianhq/authcore/internal/authcrypto"
	"github.com/meridianhq/authcore/internal/billing"
	"github.com/meridianhq/authcore/internal/delivery"
	"github.com/meridianhq/authcore/internal/identity"
	"github.com/meridianhq/authcore/internal/token"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// Server bundles the chi router with the collaborators handlers need.
type Server struct {
	Router *chi.Mux
	Logger *slog.Logger
}

// Deps is everything NewServer needs to wire the edge layer to C4-C8.
type Deps struct {
	Store          identity.Store
	Idempotency    identity.IdempotencyStore
	AuthService    *auth.Service
	TokenEngine    *token.Engine
	BillingService *billing.Service
	Dispatcher     *delivery.WebhookDispatcher
	PasswordHasher *authcrypto.Argon2idHasher
	Logger         *slog.Logger
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	sentryHandler := sentryhttp.New(sentryhttp.Options{Repanic: true})
	r.Use(sentryHandler.Handle)

	r.Use(customMiddleware.RequestLogger)
	r.Use(customMiddleware.PanicRecovery)

	limiter := customMiddleware.NewIPRateLimiter(rate.Limit(rateOr(deps.RateLimitRPS, 10)), rateBurstOr(deps.RateLimitBurst, 20))
	r.Use(limiter.Middleware)

	r.Use(customMiddleware.CORSMiddleware(deps.AllowedOrigins))
	r.Use(customMiddleware.TenantContext)

	requireAuth := customMiddleware.AuthMiddleware(deps.TokenEngine)
	requireAdmin := customMiddleware.RequireRole(customMiddleware.RoleAdmin)

	authHandler := NewAuthHandler(deps.AuthService, deps.Logger)
	jwksHandler := NewJWKSHandler(deps.TokenEngine)
	adminHandler := NewAdminHandler(deps.AuthService, deps.Store, deps.PasswordHasher)
	billingHandler := NewBillingHandler(deps.BillingService, deps.Idempotency)
	webhookHandler := NewWebhookHandler(deps.Dispatcher)

	r.Get("/health", HealthHandler)
	r.Get("/.well-known/jwks.json", jwksHandler.GetJWKS)

	r.Route("/api/v1", func(r chi.Router) {
		// Public, unauthenticated surface (spec.md section 4.6).
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/otp/send", authHandler.SendOtp)
		r.Post("/auth/otp/verify", authHandler.VerifyOtp)
		r.Post("/auth/password/reset", authHandler.RequestPasswordReset)
		r.Post("/auth/password/reset/confirm", authHandler.ConfirmPasswordReset)
		r.Get("/auth/oauth/{provider}/start", authHandler.InitiateOAuth)
		r.Post("/auth/oauth/{provider}/callback", authHandler.OAuthCallback)

		// Authenticated surface: every handler re-validates the bearer
		// token itself (AuthMiddleware), never trusting X-Tenant-ID alone.
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/me", authHandler.Me)
			r.Post("/auth/logout", authHandler.Logout)
			r.Post("/auth/refresh", authHandler.Refresh)
			r.Put("/auth/password", authHandler.ChangePassword)

			r.Post("/auth/mfa/enroll", authHandler.EnrollTotp)
			r.Post("/auth/mfa/verify", authHandler.VerifyTotp)
			r.Delete("/auth/mfa", authHandler.DisableTotp)
			r.Post("/auth/mfa/backup-codes", authHandler.RegenerateBackupCodes)

			r.Route("/billing", func(r chi.Router) {
				r.Post("/subscriptions", billingHandler.CreateSubscription)
				r.Post("/subscriptions/{id}/cancel", billingHandler.CancelSubscription)
				r.Patch("/subscriptions/{id}/cancel-at-period-end", billingHandler.SetCancelAtPeriodEnd)
				r.Post("/subscriptions/{id}/pause", billingHandler.PauseSubscription)
				r.Post("/subscriptions/{id}/resume", billingHandler.ResumeSubscription)
				r.Post("/subscriptions/{id}/payments/success", billingHandler.RecordPaymentSuccess)
				r.Post("/subscriptions/{id}/payments/failure", billingHandler.RecordPaymentFailure)
				r.Post("/payment-methods", billingHandler.AddPaymentMethod)
				r.Delete("/payment-methods/{processorID}", billingHandler.DetachPaymentMethod)
				r.Get("/invoices", billingHandler.ListInvoices)
			})

			r.Route("/webhooks", func(r chi.Router) {
				r.Post("/endpoints", webhookHandler.CreateWebhookEndpoint)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(requireAdmin)
				r.Post("/tenants", adminHandler.CreateTenant)
				r.Post("/api-keys", adminHandler.IssueApiKey)
				r.Delete("/api-keys/{id}", adminHandler.RevokeApiKey)
			})
		})
	})

	return &Server{Router: r, Logger: deps.Logger}
}

func rateOr(v float64, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}

func rateBurstOr(v int, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
