package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshSession_RotatesTokens(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	tenant := mustCreateTenant(t, h)
	user := mustRegister(t, h, tenant.ID, "dana@example.com", "Correct horse battery staple 9")

	pair, err := h.svc.Login(ctx, tenant.ID, "dana@example.com", "Correct horse battery staple 9", "")
	require.NoError(t, err)

	rotated, err := h.svc.RefreshSession(ctx, user.ID, pair.RefreshToken, tenant.ID, user.Email, user.Roles)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, rotated.AccessToken)
}

func TestRefreshSession_ReuseOfRotatedTokenIsRejected(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	tenant := mustCreateTenant(t, h)
	user := mustRegister(t, h, tenant.ID, "dana@example.com", "Correct horse battery staple 9")

	pair, err := h.svc.Login(ctx, tenant.ID, "dana@example.com", "Correct horse battery staple 9", "")
	require.NoError(t, err)

	_, err = h.svc.RefreshSession(ctx, user.ID, pair.RefreshToken, tenant.ID, user.Email, user.Roles)
	require.NoError(t, err)

	_, err = h.svc.RefreshSession(ctx, user.ID, pair.RefreshToken, tenant.ID, user.Email, user.Roles)
	require.Error(t, err, "replaying an already-rotated refresh token must fail")
}

func TestLogout_BlacklistsAccessToken(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	tenant := mustCreateTenant(t, h)
	user := mustRegister(t, h, tenant.ID, "dana@example.com", "Correct horse battery staple 9")

	pair, err := h.svc.Login(ctx, tenant.ID, "dana@example.com", "Correct horse battery staple 9", "")
	require.NoError(t, err)

	claims, err := h.tokens.Validate(ctx, pair.AccessToken)
	require.NoError(t, err)

	require.NoError(t, h.svc.Logout(ctx, user.ID, claims))

	_, err = h.tokens.Validate(ctx, pair.AccessToken)
	require.Error(t, err, "a blacklisted access token must fail validation")
}
