package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/meridianhq/authcore/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin_Success(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	tenant := mustCreateTenant(t, h)
	mustRegister(t, h, tenant.ID, "dana@example.com", "Correct horse battery staple 9")

	pair, err := h.svc.Login(ctx, tenant.ID, "dana@example.com", "Correct horse battery staple 9", "")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
}

func TestLogin_WrongPassword(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	tenant := mustCreateTenant(t, h)
	mustRegister(t, h, tenant.ID, "dana@example.com", "Correct horse battery staple 9")

	_, err := h.svc.Login(ctx, tenant.ID, "dana@example.com", "wrong password", "")
	require.Error(t, err)
	var de *errs.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, errs.KindInvalidCredentials, de.Kind)
}

func TestLogin_UnknownEmail_SameErrorAsWrongPassword(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	tenant := mustCreateTenant(t, h)

	_, err := h.svc.Login(ctx, tenant.ID, "nobody@example.com", "whatever", "")
	require.Error(t, err)
	var de *errs.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, errs.KindInvalidCredentials, de.Kind)
}

func TestLogin_TotpEnabled_RequiresCode(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	tenant := mustCreateTenant(t, h)
	user := mustRegister(t, h, tenant.ID, "dana@example.com", "Correct horse battery staple 9")

	enrollment, err := h.svc.EnrollTotp(ctx, tenant.ID, user.ID, user.Email, "authcore")
	require.NoError(t, err)
	code, err := totpCodeNow(enrollment.Secret)
	require.NoError(t, err)
	require.NoError(t, h.svc.VerifyTotp(ctx, tenant.ID, user.ID, enrollment.Secret, code, enrollment.BackupCodes))

	_, err = h.svc.Login(ctx, tenant.ID, "dana@example.com", "Correct horse battery staple 9", "")
	require.Error(t, err)
	var de *errs.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, errs.KindMfaRequired, de.Kind)

	code, err = totpCodeNow(enrollment.Secret)
	require.NoError(t, err)
	pair, err := h.svc.Login(ctx, tenant.ID, "dana@example.com", "Correct horse battery staple 9", code)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
}

func TestLogin_AccountLockoutAfterRepeatedFailures(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	tenant := mustCreateTenant(t, h)
	mustRegister(t, h, tenant.ID, "dana@example.com", "Correct horse battery staple 9")

	for i := 0; i < 20; i++ {
		_, _ = h.svc.Login(ctx, tenant.ID, "dana@example.com", "wrong password", "")
	}

	_, err := h.svc.Login(ctx, tenant.ID, "dana@example.com", "Correct horse battery staple 9", "")
	require.Error(t, err)
	var de *errs.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, errs.KindInvalidCredentials, de.Kind)
}
