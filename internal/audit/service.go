package audit

import (
	"context"
	"log/slog"
)

// Entry is the durable representation of one audit event, passed to a
// Recorder for persistence.
type Entry struct {
	Action       EventType
	ActorID      string
	TargetID     string
	TenantID     string
	SessionID    string
	MetadataJSON []byte
}

// Recorder persists audit entries. internal/identity's Store implements
// this without audit importing identity, avoiding a dependency cycle
// between the durable store and the cross-cutting audit trail.
type Recorder interface {
	RecordAuditEntry(ctx context.Context, entry Entry) error
}

// StoreLogger persists to a Recorder, falling back to stdout logging on
// failure so an audit write never silently disappears: it executes
// synchronously for critical events and logs to stdout if the insert
// fails.
type StoreLogger struct {
	recorder Recorder
	fallback *slog.Logger
}

func NewStoreLogger(recorder Recorder, fallback *slog.Logger) *StoreLogger {
	return &StoreLogger{recorder: recorder, fallback: fallback}
}

func (s *StoreLogger) Log(ctx context.Context, action EventType, params LogParams) {
	entry := Entry{
		Action:       action,
		ActorID:      params.ActorID.String(),
		TargetID:     params.TargetID.String(),
		TenantID:     params.TenantID.String(),
		SessionID:    params.SessionID.String(),
		MetadataJSON: metadataJSON(params.Metadata),
	}

	if err := s.recorder.RecordAuditEntry(ctx, entry); err != nil {
		s.fallback.Error("audit_store_insert_failed",
			"action", string(action),
			"error", err,
			"actor_id", entry.ActorID,
		)
	}
}
