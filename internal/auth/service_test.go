package auth_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/meridianhq/authcore/internal/audit"
	"github.com/meridianhq/authcore/internal/auth"
	"github.com/meridianhq/authcore/internal/authcrypto"
	"github.com/meridianhq/authcore/internal/identity"
	"github.com/meridianhq/authcore/internal/revocation"
	"github.com/meridianhq/authcore/internal/token"
	"github.com/stretchr/testify/require"
)

// totpCodeNow computes the current TOTP code for secret, used by tests
// that need to drive a real login/verify round trip without a live
// authenticator app.
func totpCodeNow(secret string) (string, error) {
	return authcrypto.GenerateTotpCode(secret, time.Now().Unix())
}

func hashOf(code string) string {
	return authcrypto.HashBackupCode(code)
}

// fakeMailer records every Enqueue call instead of sending anything.
type fakeMailer struct {
	mu    sync.Mutex
	calls []fakeMailerCall
}

type fakeMailerCall struct {
	TenantID   uuid.UUID
	Recipient  string
	TemplateID string
	Payload    map[string]string
}

func (m *fakeMailer) Enqueue(ctx context.Context, tenantID uuid.UUID, recipient, templateID string, payload map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, fakeMailerCall{TenantID: tenantID, Recipient: recipient, TemplateID: templateID, Payload: payload})
	return nil
}

func (m *fakeMailer) last() (fakeMailerCall, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return fakeMailerCall{}, false
	}
	return m.calls[len(m.calls)-1], true
}

func testEngine(t *testing.T, otp *revocation.MemoryStore) *token.Engine {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keys := &token.KeySet{Current: &token.KeyPair{Kid: "test-1", PrivateKey: priv, PublicKey: &priv.PublicKey}}
	return token.NewEngine(keys, otp, "authcore-test", "authcore-test-aud")
}

type testHarness struct {
	svc    *auth.Service
	store  *identity.MemoryStore
	otp    *revocation.MemoryStore
	tokens *token.Engine
	mailer *fakeMailer
}

func newTestHarness(t *testing.T) testHarness {
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
		nil,
		cipher,
		nil,
	)
	return testHarness{svc: svc, store: store, otp: otpStore, tokens: eng, mailer: mailer}
}

func mustCreateTenant(t *testing.T, h testHarness) identity.Tenant {
	t.Helper()
	tenant, err := h.svc.CreateTenant(context.Background(), "Acme", "acme")
	require.NoError(t, err)
	return tenant
}

func mustRegister(t *testing.T, h testHarness, tenantID uuid.UUID, email, password string) identity.User {
	t.Helper()
	user, err := h.svc.Register(context.Background(), tenantID, email, password)
	require.NoError(t, err)
	return user
}
