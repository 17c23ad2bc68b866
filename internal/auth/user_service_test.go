package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/meridianhq/authcore/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangePassword_RoundTripAndSessionInvalidation(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	tenant := mustCreateTenant(t, h)
	user := mustRegister(t, h, tenant.ID, "dana@example.com", "Correct horse battery staple 9")

	pair, err := h.svc.Login(ctx, tenant.ID, "dana@example.com", "Correct horse battery staple 9", "")
	require.NoError(t, err)

	require.NoError(t, h.svc.ChangePassword(ctx, tenant.ID, user.ID, "Correct horse battery staple 9", "A brand new password 2"))

	_, err = h.svc.Login(ctx, tenant.ID, "dana@example.com", "Correct horse battery staple 9", "")
	require.Error(t, err, "old password must no longer authenticate")

	newPair, err := h.svc.Login(ctx, tenant.ID, "dana@example.com", "A brand new password 2", "")
	require.NoError(t, err)
	assert.NotEmpty(t, newPair.AccessToken)

	_, err = h.svc.RefreshSession(ctx, user.ID, pair.RefreshToken, tenant.ID, user.Email, user.Roles)
	require.Error(t, err, "the pre-change refresh token must be invalidated")
}

func TestChangePassword_WrongOldPasswordRejected(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	tenant := mustCreateTenant(t, h)
	user := mustRegister(t, h, tenant.ID, "dana@example.com", "Correct horse battery staple 9")

	err := h.svc.ChangePassword(ctx, tenant.ID, user.ID, "not the right password", "A brand new password 2")
	require.Error(t, err)
	var de *errs.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, errs.KindInvalidCredentials, de.Kind)
}
