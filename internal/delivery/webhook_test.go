package delivery_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/meridianhq/authcore/internal/audit"
	"github.com/meridianhq/authcore/internal/delivery"
	"github.com/meridianhq/authcore/internal/identity"
	"github.com/stretchr/testify/require"
)

func TestCreateWebhookEndpoint_RejectsSsrfUrl(t *testing.T) {
	store := identity.NewMemoryStore()
	d := delivery.NewWebhookDispatcher(store, &delivery.LoggingTransport{}, audit.NoopLogger{})

	_, err := d.CreateWebhookEndpoint(context.Background(), uuid.New(), "http://169.254.169.254/latest/meta-data", []string{"subscription.created"})
	require.Error(t, err)
}

func TestCreateWebhookEndpoint_AcceptsPublicUrlAndReturnsSecret(t *testing.T) {
	store := identity.NewMemoryStore()
	d := delivery.NewWebhookDispatcher(store, &delivery.LoggingTransport{}, audit.NoopLogger{})

	endpoint, err := d.CreateWebhookEndpoint(context.Background(), uuid.New(), "https://api.github.com/repos/x/y/dispatches", []string{"subscription.created"})
	require.NoError(t, err)
	require.NotEmpty(t, endpoint.Secret)
	require.NotEqual(t, uuid.Nil, endpoint.ID)
}

func TestDeliver_SignsPayloadAndRecordsSuccess(t *testing.T) {
	store := identity.NewMemoryStore()
	transport := &delivery.LoggingTransport{}
	d := delivery.NewWebhookDispatcher(store, transport, audit.NoopLogger{})

	endpoint, err := d.CreateWebhookEndpoint(context.Background(), uuid.New(), "https://api.github.com/hook", []string{"subscription.created"})
	require.NoError(t, err)

	payload := []byte(`{"event":"subscription.created"}`)
	require.NoError(t, d.Deliver(context.Background(), endpoint.ID, payload))
	require.Len(t, transport.Delivered, 1)
	require.True(t, delivery.VerifyWebhookSignature(payload, endpoint.Secret, transport.Delivered[0].Signature))
}

type failingTransport struct{ calls int }

func (f *failingTransport) Deliver(ctx context.Context, url string, payload []byte, signature string) (int, error) {
	f.calls++
	return 500, nil
}

func TestDeliver_AutoDisablesAfterTenConsecutiveFailures(t *testing.T) {
	store := identity.NewMemoryStore()
	transport := &failingTransport{}
	d := delivery.NewWebhookDispatcher(store, transport, audit.NoopLogger{})

	endpoint, err := d.CreateWebhookEndpoint(context.Background(), uuid.New(), "https://api.github.com/hook", []string{"subscription.created"})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		_ = d.Deliver(context.Background(), endpoint.ID, []byte("{}"))
	}

	got, err := store.GetWebhookEndpoint(context.Background(), endpoint.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DisabledAt)

	err = d.Deliver(context.Background(), endpoint.ID, []byte("{}"))
	require.Error(t, err)
}
