package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_CreatesLoginableUser(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	tenant := mustCreateTenant(t, h)

	user, err := h.svc.Register(ctx, tenant.ID, "dana@example.com", "Correct horse battery staple 9")
	require.NoError(t, err)
	assert.Equal(t, "dana@example.com", user.Email)
	assert.Equal(t, []string{"user"}, user.Roles)

	pair, err := h.svc.Login(ctx, tenant.ID, "dana@example.com", "Correct horse battery staple 9", "")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
}

func TestCreateTenant_IsolatesUsersByTenant(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	tenantA, err := h.svc.CreateTenant(ctx, "Acme", "acme")
	require.NoError(t, err)
	tenantB, err := h.svc.CreateTenant(ctx, "Globex", "globex")
	require.NoError(t, err)

	mustRegister(t, h, tenantA.ID, "dana@example.com", "Correct horse battery staple 9")

	_, err = h.svc.Login(ctx, tenantB.ID, "dana@example.com", "Correct horse battery staple 9", "")
	require.Error(t, err, "same email in a different tenant must not authenticate")
}
