package audit_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/meridianhq/authcore/internal/audit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	entries []audit.Entry
	failNth int
	calls   int
}

func (f *fakeRecorder) RecordAuditEntry(ctx context.Context, entry audit.Entry) error {
	f.calls++
	if f.failNth != 0 && f.calls == f.failNth {
		return errors.New("simulated store failure")
	}
	f.entries = append(f.entries, entry)
	return nil
}

func TestStoreLogger_PersistsEntry(t *testing.T) {
	rec := &fakeRecorder{}
	logger := audit.NewStoreLogger(rec, slog.Default())

	actor := uuid.New()
	tenant := uuid.New()
	logger.Log(context.Background(), audit.EventLoginSuccess, audit.LogParams{
		ActorID:  actor,
		TargetID: actor,
		TenantID: tenant,
		Metadata: map[string]string{"method": "password"},
	})

	require.Len(t, rec.entries, 1)
	assert.Equal(t, audit.EventLoginSuccess, rec.entries[0].Action)
	assert.Equal(t, actor.String(), rec.entries[0].ActorID)
	assert.Equal(t, tenant.String(), rec.entries[0].TenantID)
}

func TestStoreLogger_SurvivesRecorderFailure(t *testing.T) {
	rec := &fakeRecorder{failNth: 1}
	logger := audit.NewStoreLogger(rec, slog.Default())

	// Must not panic even though the underlying recorder errors; the
	// fallback path only logs to stdout.
	assert.NotPanics(t, func() {
		logger.Log(context.Background(), audit.EventAuthRateLimit, audit.LogParams{
			ActorID:  uuid.New(),
			TenantID: uuid.New(),
		})
	})
}
