// Package identity implements C3: the durable, tenant-scoped store for
// tenants, users, OAuth accounts, API keys, subscriptions, invoices, the
// email queue, webhook endpoints, and the audit trail. Follows the
// standard pgxpool wiring and query method naming convention used
// throughout internal/auth/*.go, since no sqlc-generated db package was
// available to carry over verbatim -- this package is a
// hand-written pgx/v5 equivalent behind the Store interface below.
package identity

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is the top-level isolation boundary; every other entity hangs
// off a tenant_id (spec.md section 3).
type Tenant struct {
	ID        uuid.UUID
	Name      string
	Slug      string
	CreatedAt time.Time
}

// User belongs to exactly one Tenant. PasswordHash may be null iff the
// user has at least one linked OAuthAccount; if TotpEnabled is true,
// TotpSecret must be non-null.
type User struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	Email        string
	PasswordHash *string
	TotpSecret   *string
	TotpEnabled  bool
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// OAuthProvider enumerates the supported OAuth identity providers.
// Dispatch on this enum is explicit (a switch, not a runtime registry)
// per spec.md's design notes.
type OAuthProvider string

const (
	OAuthProviderGoogle    OAuthProvider = "google"
	OAuthProviderGithub    OAuthProvider = "github"
	OAuthProviderMicrosoft OAuthProvider = "microsoft"
)

// OAuthAccount links a User to an external identity. Provider tokens are
// stored encrypted via authcrypto.ProviderTokenCipher before reaching
// this layer -- the store itself is encryption-agnostic.
type OAuthAccount struct {
	ID                    uuid.UUID
	UserID                uuid.UUID
	Provider              OAuthProvider
	ProviderUserID        string
	EncryptedAccessToken  string
	EncryptedRefreshToken string
	CreatedAt             time.Time
}

// BackupCode is a one-time 2FA fallback code; UsedAt transitions from
// nil to non-nil exactly once.
type BackupCode struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Hash   string
	UsedAt *time.Time
}

// ApiKey is a tenant/user-scoped credential for machine clients.
type ApiKey struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	UserID    uuid.UUID
	Prefix    string
	Hash      string
	Scopes    []string
	CreatedAt time.Time
	ExpiresAt *time.Time
	RevokedAt *time.Time
}

// SubscriptionStatus enumerates the states of the billing state machine
// (spec.md section 4.7.1).
type SubscriptionStatus string

const (
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionUnpaid   SubscriptionStatus = "unpaid"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionPaused   SubscriptionStatus = "paused"
)

// Subscription tracks the billing state for one tenant customer.
type Subscription struct {
	ID                 uuid.UUID
	TenantID           uuid.UUID
	CustomerID         string
	PlanID             string
	Status             SubscriptionStatus
	AmountCents         int64
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	TrialEnd           *time.Time
	CancelAtPeriodEnd  bool
	RetryCount         int
}

// InvoiceStatus enumerates the monotonic invoice lifecycle.
type InvoiceStatus string

const (
	InvoiceDraft    InvoiceStatus = "draft"
	InvoiceOpen     InvoiceStatus = "open"
	InvoicePaid     InvoiceStatus = "paid"
	InvoiceVoid     InvoiceStatus = "void"
	InvoiceRefunded InvoiceStatus = "refunded"
)

// Invoice is generated per billing cycle off a Subscription.
type Invoice struct {
	ID             uuid.UUID
	SubscriptionID uuid.UUID
	AmountDueCents int64
	AmountPaidCents int64
	Status         InvoiceStatus
	CreatedAt      time.Time
	DueAt          time.Time
}

// PaymentMethod is the tokenized, PCI-out-of-scope payment instrument on
// file for a subscription's customer (added by the expanded spec since
// the distilled spec names retries/invoices but not the instrument
// itself).
type PaymentMethod struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	CustomerID  string
	ProcessorID string // opaque token from the Gateway, never raw card data
	Brand       string
	Last4       string
	ExpiresAt   time.Time
}

// EmailQueueStatus enumerates the outbox lifecycle (spec.md section
// 4.8.1).
type EmailQueueStatus string

const (
	EmailPending  EmailQueueStatus = "pending"
	EmailSending  EmailQueueStatus = "sending"
	EmailSent     EmailQueueStatus = "sent"
	EmailFailed   EmailQueueStatus = "failed"
	EmailRetry    EmailQueueStatus = "retry"
	EmailExhausted EmailQueueStatus = "exhausted"
	EmailBounced  EmailQueueStatus = "bounced"
)

// EmailQueueRow is one outbox entry, claimed atomically by a worker.
type EmailQueueRow struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Recipient   string
	TemplateID  string
	Priority    int
	Status      EmailQueueStatus
	RetryCount  int
	ScheduledAt time.Time
	BounceType  *string
	Payload     map[string]string
}

// WebhookEndpoint is a tenant-registered delivery target for event
// notifications, re-validated against SSRF rules at every delivery.
type WebhookEndpoint struct {
	ID                  uuid.UUID
	TenantID            uuid.UUID
	URL                 string
	Events              []string
	Secret              string
	ConsecutiveFailures int
	DisabledAt          *time.Time
}
