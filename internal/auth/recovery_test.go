package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/meridianhq/authcore/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestReset_UnknownEmailSilentlySucceeds(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	tenant := mustCreateTenant(t, h)

	err := h.svc.RequestReset(ctx, tenant.ID, "nobody@example.com")
	require.NoError(t, err)
	_, sent := h.mailer.last()
	assert.False(t, sent, "no email should be enqueued for a nonexistent account")
}

func TestRequestReset_KnownEmailEnqueuesResetLink(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	tenant := mustCreateTenant(t, h)
	mustRegister(t, h, tenant.ID, "dana@example.com", "Correct horse battery staple 9")

	require.NoError(t, h.svc.RequestReset(ctx, tenant.ID, "dana@example.com"))
	call, sent := h.mailer.last()
	require.True(t, sent)
	assert.Equal(t, "dana@example.com", call.Recipient)
	assert.Equal(t, "password_reset", call.TemplateID)
	assert.NotEmpty(t, call.Payload["token"])
}

func TestConfirmReset_RoundTrip(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	tenant := mustCreateTenant(t, h)
	mustRegister(t, h, tenant.ID, "dana@example.com", "Correct horse battery staple 9")

	require.NoError(t, h.svc.RequestReset(ctx, tenant.ID, "dana@example.com"))
	call, _ := h.mailer.last()
	token := call.Payload["token"]

	require.NoError(t, h.svc.ConfirmReset(ctx, tenant.ID, token, "A brand new password 2"))

	_, err := h.svc.Login(ctx, tenant.ID, "dana@example.com", "Correct horse battery staple 9", "")
	require.Error(t, err)

	pair, err := h.svc.Login(ctx, tenant.ID, "dana@example.com", "A brand new password 2", "")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
}

func TestConfirmReset_TokenIsOneTimeUse(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	tenant := mustCreateTenant(t, h)
	mustRegister(t, h, tenant.ID, "dana@example.com", "Correct horse battery staple 9")

	require.NoError(t, h.svc.RequestReset(ctx, tenant.ID, "dana@example.com"))
	call, _ := h.mailer.last()
	token := call.Payload["token"]

	require.NoError(t, h.svc.ConfirmReset(ctx, tenant.ID, token, "A brand new password 2"))

	err := h.svc.ConfirmReset(ctx, tenant.ID, token, "yet another password")
	require.Error(t, err)
	var de *errs.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, errs.KindInvalidClaim, de.Kind)
}

func TestConfirmReset_BadTokenRejected(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	tenant := mustCreateTenant(t, h)

	err := h.svc.ConfirmReset(ctx, tenant.ID, "not-a-real-token", "whatever new password")
	require.Error(t, err)
	var de *errs.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, errs.KindInvalidClaim, de.Kind)
}
