// Package auth implements C6: login, out-of-band OTP delivery, TOTP 2FA
// enrollment, OAuth linking, and password reset orchestration on top of
// C1-C5. Session and rate-limit state lives in the C2 revocation store
// rather than in Postgres, per spec.md section 9 ("this is what makes
// instant revocation cheap and avoids a lifecycle tangle").
package auth

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/meridianhq/authcore/internal/audit"
	"github.com/meridianhq/authcore/internal/authcrypto"
	"github.com/meridianhq/authcore/internal/identity"
	"github.com/meridianhq/authcore/internal/revocation"
	"github.com/meridianhq/authcore/internal/token"
)

// Mailer is the out-of-band delivery collaborator this service hands OTP
// codes, password-reset links, and verification links to. cmd/api adapts
// C8's delivery.Enqueue to this shape; auth does not import delivery
// directly, keeping the two packages independently testable through a
// narrow interface rather than a concrete SMTP client.
type Mailer interface {
	Enqueue(ctx context.Context, tenantID uuid.UUID, recipient, templateID string, payload map[string]string) error
}

// Config holds behavior knobs that don't belong to any single flow.
type Config struct {
	// DefaultAppURL is the fallback base URL used in reset/verification
	// links when a tenant has no custom app URL configured.
	DefaultAppURL string
}

const (
	// loginFailThreshold/loginFailWindow/loginLockDuration implement
	// spec.md section 4.6.1's account lockout.
	loginFailThreshold = 20
	loginFailWindow    = 2 * time.Minute
	loginLockDuration  = 15 * time.Minute

	otpLength          = 6
	otpTTL             = 10 * time.Minute
	otpRateLimit       = 3
	otpRateWindow      = time.Hour
	otpMaxFailedChecks = 5

	oauthStateTTL  = 10 * time.Minute
	resetTokenTTL  = time.Hour
	verifyTokenTTL = 24 * time.Hour

	backupCodeCount = 10
)

// Service implements C6 over C1 (authcrypto), C2 (revocation), C3
// (identity), C4 (token), and the Mailer/Provider collaborators.
type Service struct {
	config Config
	store  identity.Store
	tokens *token.Engine
	otp    revocation.Store
	hasher authcrypto.PasswordHasher
	mailer Mailer
	audit  audit.Logger
	oauth  map[identity.OAuthProvider]Provider
	cipher *authcrypto.ProviderTokenCipher
	log    *slog.Logger
	clock  func() time.Time
}

// NewService wires C6. oauth may be nil or partial; providers absent from
// the map fail HandleOAuthCallback with errs.KindInvalidClaim.
func NewService(
	config Config,
	store identity.Store,
	tokens *token.Engine,
	otpStore revocation.Store,
	hasher authcrypto.PasswordHasher,
	mailer Mailer,
	auditLogger audit.Logger,
	oauth map[identity.OAuthProvider]Provider,
	cipher *authcrypto.ProviderTokenCipher,
	log *slog.Logger,
) *Service {
	if auditLogger == nil {
		auditLogger = audit.NoopLogger{}
	}
	if oauth == nil {
		oauth = map[identity.OAuthProvider]Provider{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		config: config,
		store:  store,
		tokens: tokens,
		otp:    otpStore,
		hasher: hasher,
		mailer: mailer,
		audit:  auditLogger,
		oauth:  oauth,
		cipher: cipher,
		log:    log,
		clock:  time.Now,
	}
}

// appURLFor resolves the base URL used in emailed links: a tenant-specific
// slug-scoped subdomain if the tenant has one, falling back to
// config.DefaultAppURL.
func (s *Service) appURLFor(tenant identity.Tenant) string {
	base := s.config.DefaultAppURL
	if tenant.Slug == "" || base == "" {
		return base
	}
	if u, err := url.Parse(base); err == nil && u.Host != "" {
		u.Host = tenant.Slug + "." + u.Host
		return u.String()
	}
	return "https://" + tenant.Slug + "." + base
}
