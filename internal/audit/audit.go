// Package audit implements the structured, tenant-scoped audit trail
// consumed by C6 (auth), C7 (billing) and C8 (delivery). A JSON handler
// plus a synchronous-write-with-stdout-fallback persistence logger,
// generalized from a single global event taxonomy to one spanning every
// component and from a sqlc-generated queries dependency to the
// Recorder interface this package owns, so internal/identity can
// implement persistence without audit importing identity.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
)

// EventType categorizes an audit entry. New components keep adding
// events; these are the ones this core itself emits.
type EventType string

const (
	EventTenantCreated   EventType = "auth.tenant.created"
	EventUserRegistered  EventType = "auth.user.registered"
	EventLoginSuccess    EventType = "auth.login.success"
	EventLoginFailed     EventType = "auth.login.failed"
	EventAuthRateLimit   EventType = "auth.rate_limit"
	EventLogout          EventType = "auth.logout"
	EventRefreshReuse    EventType = "auth.refresh_reuse_detected"
	EventMfaEnrolled     EventType = "auth.mfa.enrolled"
	EventMfaDisabled     EventType = "auth.mfa.disabled"
	EventPasswordReset   EventType = "auth.password_reset"
	EventOAuthLinked     EventType = "auth.oauth.linked"
	EventSubscriptionMut EventType = "billing.subscription.transition"
	EventPaymentFailed   EventType = "billing.payment.failed"
	EventWebhookRejected EventType = "delivery.webhook.url_rejected"
)

// LogParams carries the structured fields for a single audit entry:
// ActorID/TargetID/TenantID plus free-form Metadata.
type LogParams struct {
	ActorID   uuid.UUID
	TargetID  uuid.UUID
	TenantID  uuid.UUID
	SessionID uuid.UUID
	Metadata  map[string]string
}

// Logger is the contract every component logs audit entries through.
type Logger interface {
	Log(ctx context.Context, action EventType, params LogParams)
}

// JSONLogger writes one structured JSON line per event to stdout, tagged
// so log aggregators can route it to a separate, append-only index.
type JSONLogger struct {
	logger *slog.Logger
}

func NewJSONLogger() *JSONLogger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	return &JSONLogger{logger: slog.New(handler)}
}

func (l *JSONLogger) Log(ctx context.Context, action EventType, params LogParams) {
	fields := []interface{}{
		slog.String("log_type", "AUDIT_TRAIL"),
		slog.String("action", string(action)),
		slog.String("actor_id", params.ActorID.String()),
		slog.String("target_id", params.TargetID.String()),
		slog.String("tenant_id", params.TenantID.String()),
		slog.Time("timestamp_utc", time.Now().UTC()),
	}
	for k, v := range params.Metadata {
		fields = append(fields, slog.String("meta_"+k, v))
	}
	l.logger.InfoContext(ctx, "audit_event", fields...)
}

// metadataJSON marshals Metadata for persistence backends, falling back
// to an empty object rather than failing the audit write entirely.
func metadataJSON(m map[string]string) []byte {
	b, err := json.Marshal(m)
	if err != nil {
		return []byte("{}")
	}
	return b
}

// NoopLogger discards every event; used in unit tests that don't care
// about the audit trail.
type NoopLogger struct{}

func (NoopLogger) Log(ctx context.Context, action EventType, params LogParams) {}
