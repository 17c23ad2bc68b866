package delivery_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/meridianhq/authcore/internal/delivery"
	"github.com/meridianhq/authcore/internal/identity"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	mu     sync.Mutex
	sent   []identity.EmailQueueRow
	bounce bool
}

func (m *fakeMailer) Send(ctx context.Context, row identity.EmailQueueRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bounce {
		return &delivery.HardBounceError{Reason: "mailbox does not exist"}
	}
	m.sent = append(m.sent, row)
	return nil
}

func TestWorker_ProcessOne_DeliversPendingRow(t *testing.T) {
	store := identity.NewMemoryStore()
	tenantID := uuid.New()
	require.NoError(t, delivery.Enqueue(context.Background(), store, tenantID, "user@example.com", "otp_code", map[string]string{"code": "123456"}))

	mailer := &fakeMailer{}
	worker := delivery.NewWorker(store, mailer)
	require.NoError(t, worker.ProcessOne(context.Background()))
	require.Len(t, mailer.sent, 1)
	require.Equal(t, "user@example.com", mailer.sent[0].Recipient)
}

func TestWorker_ProcessOne_NoRowsReturnsNotFound(t *testing.T) {
	store := identity.NewMemoryStore()
	worker := delivery.NewWorker(store, &fakeMailer{})
	err := worker.ProcessOne(context.Background())
	require.ErrorIs(t, err, identity.ErrNotFound)
}

func TestWorker_ProcessOne_HardBounceSuppressesFutureSends(t *testing.T) {
	store := identity.NewMemoryStore()
	tenantID := uuid.New()
	require.NoError(t, delivery.Enqueue(context.Background(), store, tenantID, "bounced@example.com", "otp_code", nil))

	mailer := &fakeMailer{bounce: true}
	worker := delivery.NewWorker(store, mailer)
	require.NoError(t, worker.ProcessOne(context.Background()))

	require.NoError(t, delivery.Enqueue(context.Background(), store, tenantID, "bounced@example.com", "otp_code", nil))
	require.NoError(t, worker.ProcessOne(context.Background()))
	require.Empty(t, mailer.sent)
}

func TestEmailRetryDelayFor_CapsAtThirtySeconds(t *testing.T) {
	require.Equal(t, delivery.EmailRetryDelays[2], delivery.EmailRetryDelayFor(3))
	require.Equal(t, delivery.EmailRetryDelays[2], delivery.EmailRetryDelayFor(99))
}
