package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/meridianhq/authcore/internal/audit"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("identity: not found")

// ErrConflict is returned on a unique-constraint violation (duplicate
// email within a tenant, duplicate OAuth provider link, etc).
var ErrConflict = errors.New("identity: conflict")

// Store is the C3 contract: every statement is parameterized, financial
// mutations run SERIALIZABLE, everything else READ COMMITTED (spec.md
// section 4.3). Method names follow sqlc-generated-query naming
// conventions (GetUserByEmail, CreateRefreshToken-style) for idiomatic
// continuity even though this is a hand-written implementation.
type Store interface {
	CreateTenant(ctx context.Context, t Tenant) error
	GetTenantByID(ctx context.Context, id uuid.UUID) (Tenant, error)

	CreateUser(ctx context.Context, u User) error
	GetUserByEmail(ctx context.Context, tenantID uuid.UUID, email string) (User, error)
	GetUserByID(ctx context.Context, tenantID, userID uuid.UUID) (User, error)
	UpdatePasswordHash(ctx context.Context, userID uuid.UUID, hash string) error
	SetTotpSecret(ctx context.Context, userID uuid.UUID, secret string) error
	EnableTotp(ctx context.Context, userID uuid.UUID) error
	DisableTotp(ctx context.Context, userID uuid.UUID) error
	SoftDeleteUser(ctx context.Context, userID uuid.UUID) error

	CreateOAuthAccount(ctx context.Context, a OAuthAccount) error
	GetOAuthAccount(ctx context.Context, provider OAuthProvider, providerUserID string) (OAuthAccount, error)
	GetUserByVerifiedEmail(ctx context.Context, tenantID uuid.UUID, email string) (User, error)

	ReplaceBackupCodes(ctx context.Context, userID uuid.UUID, hashes []string) error
	GetBackupCode(ctx context.Context, userID uuid.UUID, hash string) (BackupCode, error)
	ConsumeBackupCode(ctx context.Context, id uuid.UUID) error

	CreateApiKey(ctx context.Context, k ApiKey) error
	GetApiKeyByPrefix(ctx context.Context, prefix string) (ApiKey, error)
	RevokeApiKey(ctx context.Context, id uuid.UUID) error

	CreateSubscription(ctx context.Context, s Subscription) error
	GetSubscription(ctx context.Context, id uuid.UUID) (Subscription, error)
	// UpdateSubscriptionStatus performs a SERIALIZABLE-isolation
	// compare-and-set: it only applies if the row's current status still
	// equals expectedStatus, returning ErrConflict otherwise so callers
	// can detect a lost race against a concurrent transition.
	UpdateSubscriptionStatus(ctx context.Context, id uuid.UUID, expectedStatus, newStatus SubscriptionStatus, retryCount int) error
	// ListSubscriptionsDueForCancel returns every subscription with
	// cancel_at_period_end set and a non-canceled status, for cmd/worker's
	// periodic sweep to evaluate against the current time.
	ListSubscriptionsDueForCancel(ctx context.Context) ([]Subscription, error)

	CreateInvoice(ctx context.Context, inv Invoice) error
	GetInvoice(ctx context.Context, id uuid.UUID) (Invoice, error)
	UpdateInvoiceStatus(ctx context.Context, id uuid.UUID, status InvoiceStatus, amountPaidCents int64) error

	UpsertPaymentMethod(ctx context.Context, pm PaymentMethod) error
	GetPaymentMethod(ctx context.Context, customerID string) (PaymentMethod, error)

	EnqueueEmail(ctx context.Context, row EmailQueueRow) error
	// ClaimPendingEmail atomically transitions one pending/retry-due row
	// to sending and returns it, or ErrNotFound if none are due.
	ClaimPendingEmail(ctx context.Context) (EmailQueueRow, error)
	MarkEmailSent(ctx context.Context, id uuid.UUID) error
	MarkEmailRetry(ctx context.Context, id uuid.UUID, retryCount int, scheduledAt int64) error
	MarkEmailExhausted(ctx context.Context, id uuid.UUID) error
	MarkEmailBounced(ctx context.Context, id uuid.UUID, bounceType string) error

	CreateWebhookEndpoint(ctx context.Context, w WebhookEndpoint) error
	GetWebhookEndpoint(ctx context.Context, id uuid.UUID) (WebhookEndpoint, error)
	RecordWebhookFailure(ctx context.Context, id uuid.UUID) (consecutiveFailures int, err error)
	RecordWebhookSuccess(ctx context.Context, id uuid.UUID) error

	// RecordAuditEntry implements audit.Recorder so the audit trail can
	// be persisted through the same connection pool as every other
	// entity.
	audit.Recorder
}

// IdempotencyRecord is a cached response keyed by (tenant_id, user_id,
// idempotency_key), replayed byte-for-byte within a 24-hour window
// (spec.md section 4.7.3).
type IdempotencyRecord struct {
	ResponseBody []byte
	StatusCode   int
}

// IdempotencyStore is kept separate from Store since it is a narrow,
// billing-specific concern with its own TTL semantics.
type IdempotencyStore interface {
	Get(ctx context.Context, tenantID, userID uuid.UUID, key string) (IdempotencyRecord, error)
	Put(ctx context.Context, tenantID, userID uuid.UUID, key string, record IdempotencyRecord) error
}
