package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/meridianhq/authcore/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrollTotp_DoesNotPersistUntilVerified(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	tenant := mustCreateTenant(t, h)
	user := mustRegister(t, h, tenant.ID, "dana@example.com", "Correct horse battery staple 9")

	enrollment, err := h.svc.EnrollTotp(ctx, tenant.ID, user.ID, user.Email, "authcore")
	require.NoError(t, err)
	assert.NotEmpty(t, enrollment.Secret)
	assert.NotEmpty(t, enrollment.QrPng)
	assert.Len(t, enrollment.BackupCodes, 10)

	stored, err := h.store.GetUserByID(ctx, tenant.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, stored.TotpEnabled, "enrollment must not flip totp_enabled before verification")
	assert.Nil(t, stored.TotpSecret)
}

func TestVerifyTotp_WrongCodeDoesNotCommit(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	tenant := mustCreateTenant(t, h)
	user := mustRegister(t, h, tenant.ID, "dana@example.com", "Correct horse battery staple 9")

	enrollment, err := h.svc.EnrollTotp(ctx, tenant.ID, user.ID, user.Email, "authcore")
	require.NoError(t, err)

	err = h.svc.VerifyTotp(ctx, tenant.ID, user.ID, enrollment.Secret, "000000", enrollment.BackupCodes)
	require.Error(t, err)
	var de *errs.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, errs.KindOtpInvalidOrExpired, de.Kind)

	stored, err := h.store.GetUserByID(ctx, tenant.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, stored.TotpEnabled)
}

func TestVerifyTotp_CorrectCodeCommitsSecretAndBackupCodes(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	tenant := mustCreateTenant(t, h)
	user := mustRegister(t, h, tenant.ID, "dana@example.com", "Correct horse battery staple 9")

	enrollment, err := h.svc.EnrollTotp(ctx, tenant.ID, user.ID, user.Email, "authcore")
	require.NoError(t, err)
	code, err := totpCodeNow(enrollment.Secret)
	require.NoError(t, err)

	require.NoError(t, h.svc.VerifyTotp(ctx, tenant.ID, user.ID, enrollment.Secret, code, enrollment.BackupCodes))

	stored, err := h.store.GetUserByID(ctx, tenant.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.TotpEnabled)
	require.NotNil(t, stored.TotpSecret)
	assert.Equal(t, enrollment.Secret, *stored.TotpSecret)

	bc, err := h.store.GetBackupCode(ctx, user.ID, hashOf(enrollment.BackupCodes[0]))
	require.NoError(t, err)
	assert.Nil(t, bc.UsedAt)
}

func TestDisableTotp(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	tenant := mustCreateTenant(t, h)
	user := mustRegister(t, h, tenant.ID, "dana@example.com", "Correct horse battery staple 9")

	enrollment, err := h.svc.EnrollTotp(ctx, tenant.ID, user.ID, user.Email, "authcore")
	require.NoError(t, err)
	code, err := totpCodeNow(enrollment.Secret)
	require.NoError(t, err)
	require.NoError(t, h.svc.VerifyTotp(ctx, tenant.ID, user.ID, enrollment.Secret, code, enrollment.BackupCodes))

	require.NoError(t, h.svc.DisableTotp(ctx, tenant.ID, user.ID))

	stored, err := h.store.GetUserByID(ctx, tenant.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, stored.TotpEnabled)
}
