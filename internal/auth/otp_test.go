package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/meridianhq/authcore/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendOtpAndVerify_RoundTrip(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	tenant := mustCreateTenant(t, h)
	mustRegister(t, h, tenant.ID, "dana@example.com", "Correct horse battery staple 9")

	require.NoError(t, h.svc.SendOtp(ctx, tenant.ID, "dana@example.com", "login"))
	call, sent := h.mailer.last()
	require.True(t, sent)
	code := call.Payload["code"]
	assert.Len(t, code, 6)

	require.NoError(t, h.svc.VerifyOtp(ctx, tenant.ID, "dana@example.com", "login", code))
}

func TestVerifyOtp_CodeIsOneTimeUse(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	tenant := mustCreateTenant(t, h)
	mustRegister(t, h, tenant.ID, "dana@example.com", "Correct horse battery staple 9")

	require.NoError(t, h.svc.SendOtp(ctx, tenant.ID, "dana@example.com", "login"))
	call, _ := h.mailer.last()
	code := call.Payload["code"]

	require.NoError(t, h.svc.VerifyOtp(ctx, tenant.ID, "dana@example.com", "login", code))

	err := h.svc.VerifyOtp(ctx, tenant.ID, "dana@example.com", "login", code)
	require.Error(t, err)
	var de *errs.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, errs.KindOtpInvalidOrExpired, de.Kind)
}

func TestVerifyOtp_WrongCodeRejected(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	tenant := mustCreateTenant(t, h)
	mustRegister(t, h, tenant.ID, "dana@example.com", "Correct horse battery staple 9")

	require.NoError(t, h.svc.SendOtp(ctx, tenant.ID, "dana@example.com", "login"))

	err := h.svc.VerifyOtp(ctx, tenant.ID, "dana@example.com", "login", "000000")
	require.Error(t, err)
}

func TestSendOtp_RateLimitedAfterThreeSends(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	tenant := mustCreateTenant(t, h)
	mustRegister(t, h, tenant.ID, "dana@example.com", "Correct horse battery staple 9")

	for i := 0; i < 3; i++ {
		require.NoError(t, h.svc.SendOtp(ctx, tenant.ID, "dana@example.com", "login"))
	}

	err := h.svc.SendOtp(ctx, tenant.ID, "dana@example.com", "login")
	require.Error(t, err)
	var de *errs.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, errs.KindOtpInvalidOrExpired, de.Kind)
}
