package auth_test

import (
	"context"
	"testing"

	"github.com/meridianhq/authcore/internal/audit"
	"github.com/meridianhq/authcore/internal/auth"
	"github.com/meridianhq/authcore/internal/authcrypto"
	"github.com/meridianhq/authcore/internal/identity"
	"github.com/meridianhq/authcore/internal/revocation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider is the test double HandleOAuthCallback exchanges a code
// through, standing in for a real googleProvider/githubProvider/
// microsoftProvider so these tests never touch the network.
type fakeProvider struct {
	identity auth.ProviderIdentity
	err      error
}

func (p *fakeProvider) ExchangeCode(ctx context.Context, code string) (auth.ProviderIdentity, error) {
	if p.err != nil {
		return auth.ProviderIdentity{}, p.err
	}
	return p.identity, nil
}

func (p *fakeProvider) AuthorizationURL(state string) string {
	return "https://provider.example/authorize?state=" + state
}

func newHarnessWithProvider(t *testing.T, provider auth.Provider) testHarness {
	t.Helper()
	store := identity.NewMemoryStore()
	otpStore := revocation.NewMemoryStore()
	mailer := &fakeMailer{}
	cipher, err := authcrypto.NewProviderTokenCipher(make([]byte, 32))
	require.NoError(t, err)
	eng := testEngine(t, otpStore)

	svc := auth.NewService(
		auth.Config{DefaultAppURL: "authcore.example"},
		store,
		eng,
		otpStore,
		authcrypto.NewArgon2idHasher(),
		mailer,
		audit.NoopLogger{},
		map[identity.OAuthProvider]auth.Provider{identity.OAuthProviderGoogle: provider},
		cipher,
		nil,
	)
	return testHarness{svc: svc, store: store, otp: otpStore, tokens: eng, mailer: mailer}
}

func TestOAuthCallback_CreatesNewUserOnFirstLogin(t *testing.T) {
	provider := &fakeProvider{identity: auth.ProviderIdentity{
		ProviderUserID: "google-123",
		Email:          "dana@example.com",
		EmailVerified:  true,
		AccessToken:    "upstream-access",
		RefreshToken:   "upstream-refresh",
	}}
	h := newHarnessWithProvider(t, provider)
	ctx := context.Background()
	tenant := mustCreateTenant(t, h)

	authURL, err := h.svc.InitiateOAuth(ctx, tenant.ID, identity.OAuthProviderGoogle)
	require.NoError(t, err)
	assert.Contains(t, authURL, "state=")

	pair, err := h.svc.HandleOAuthCallback(ctx, identity.OAuthProviderGoogle, "auth-code", extractState(authURL))
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
}

func TestOAuthCallback_LinksExistingUserByVerifiedEmail(t *testing.T) {
	provider := &fakeProvider{identity: auth.ProviderIdentity{
		ProviderUserID: "google-456",
		Email:          "dana@example.com",
		EmailVerified:  true,
	}}
	h := newHarnessWithProvider(t, provider)
	ctx := context.Background()
	tenant := mustCreateTenant(t, h)
	existing := mustRegister(t, h, tenant.ID, "dana@example.com", "Correct horse battery staple 9")

	authURL, err := h.svc.InitiateOAuth(ctx, tenant.ID, identity.OAuthProviderGoogle)
	require.NoError(t, err)

	pair, err := h.svc.HandleOAuthCallback(ctx, identity.OAuthProviderGoogle, "auth-code", extractState(authURL))
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	linked, err := h.store.GetOAuthAccount(ctx, identity.OAuthProviderGoogle, "google-456")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, linked.UserID)
}

func TestOAuthCallback_RejectsUnknownState(t *testing.T) {
	provider := &fakeProvider{}
	h := newHarnessWithProvider(t, provider)
	ctx := context.Background()

	_, err := h.svc.HandleOAuthCallback(ctx, identity.OAuthProviderGoogle, "auth-code", "not-a-real-state")
	require.Error(t, err)
}

func TestOAuthCallback_UnconfiguredProviderRejected(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	tenant := mustCreateTenant(t, h)

	_, err := h.svc.InitiateOAuth(ctx, tenant.ID, identity.OAuthProviderGithub)
	require.Error(t, err)
}

// extractState pulls the state query parameter back out of a fakeProvider
// authorization URL, mirroring what a callback handler's router would do.
func extractState(authURL string) string {
	const marker = "state="
	idx := lastIndex(authURL, marker)
	if idx < 0 {
		return ""
	}
	return authURL[idx+len(marker):]
}

func lastIndex(s, sub string) int {
	for i := len(s) - len(sub); i >= 0; i-- {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
