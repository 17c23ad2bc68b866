package token

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/meridianhq/authcore/internal/errs"
	"github.com/meridianhq/authcore/internal/revocation"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeySet(t *testing.T) *KeySet {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 4096)
	require.NoError(t, err)
	return &KeySet{Current: &KeyPair{Kid: "test-1", PrivateKey: priv, PublicKey: &priv.PublicKey}}
}

func testEngine(t *testing.T) (*Engine, *revocation.MemoryStore) {
	t.Helper()
	store := revocation.NewMemoryStore()
	eng := NewEngine(testKeySet(t), store, "authcore-test", "authcore-test-aud")
	return eng, store
}

func TestEngine_IssueAndValidate_RoundTrip(t *testing.T) {
	ctx := context.Background()
	eng, _ := testEngine(t)
	userID := uuid.New()
	tenantID := uuid.New()

	pair, err := eng.Issue(ctx, userID, tenantID, "user@example.com", []string{"member"})
	require.NoError(t, err)

	claims, err := eng.Validate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, tenantID, claims.TenantID)
	uid, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, uid)
}

func TestEngine_Revoke_BlacklistsAccessToken(t *testing.T) {
	ctx := context.Background()
	eng, _ := testEngine(t)
	userID := uuid.New()
	tenantID := uuid.New()

	pair, err := eng.Issue(ctx, userID, tenantID, "user@example.com", []string{"member"})
	require.NoError(t, err)

	claims, err := eng.Validate(ctx, pair.AccessToken)
	require.NoError(t, err)

	require.NoError(t, eng.Revoke(ctx, userID, claims))

	_, err = eng.Validate(ctx, pair.AccessToken)
	require.Error(t, err)
	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errs.KindTokenRevoked, e.Kind)
}

func TestEngine_Rotate_DetectsReuseAndCascadesSessionRevoked(t *testing.T) {
	ctx := context.Background()
	eng, _ := testEngine(t)
	userID := uuid.New()
	tenantID := uuid.New()

	pair, err := eng.Issue(ctx, userID, tenantID, "user@example.com", []string{"member"})
	require.NoError(t, err)

	before := testutil.ToFloat64(RefreshReuseDetectedTotal)

	rotated, err := eng.Rotate(ctx, userID, pair.RefreshToken, tenantID, "user@example.com", []string{"member"})
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// Presenting the now-stale first refresh token again must be treated
	// as theft: the whole chain is revoked, not just this one rotation.
	_, err = eng.Rotate(ctx, userID, pair.RefreshToken, tenantID, "user@example.com", []string{"member"})
	require.Error(t, err)
	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errs.KindSessionRevoked, e.Kind)

	after := testutil.ToFloat64(RefreshReuseDetectedTotal)
	assert.Equal(t, before+1, after)

	// The second (legitimate) rotated token is also dead now, since the
	// whole family was revoked by deleting the index key.
	_, err = eng.Rotate(ctx, userID, rotated.RefreshToken, tenantID, "user@example.com", []string{"member"})
	require.Error(t, err)
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errs.KindRefreshExpired, e.Kind)
}

func TestEngine_Validate_RejectsAlgNoneBeforeSignatureCheck(t *testing.T) {
	ctx := context.Background()
	eng, _ := testEngine(t)

	unsignedClaims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: uuid.NewString(),
			ID:      uuid.NewString(),
			Issuer:  "authcore-test",
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, unsignedClaims)
	none, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = eng.Validate(ctx, none)
	require.Error(t, err)
	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errs.KindAlgorithmDisallowed, e.Kind)
}

func TestEngine_Validate_RejectsForeignSigningKey(t *testing.T) {
	ctx := context.Background()
	eng, _ := testEngine(t)

	otherPriv, err := rsa.GenerateKey(rand.Reader, 4096)
	require.NoError(t, err)

	claims := &Claims{
		TenantID: uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: uuid.NewString(),
			ID:      uuid.NewString(),
			Issuer:  "authcore-test",
			Audience: jwt.ClaimStrings{"authcore-test-aud"},
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = "not-a-known-kid"
	signed, err := tok.SignedString(otherPriv)
	require.NoError(t, err)

	_, err = eng.Validate(ctx, signed)
	require.Error(t, err)
	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errs.KindInvalidSignature, e.Kind)
}

func TestKeySet_Lookup_HonorsRotationGraceWindow(t *testing.T) {
	current := testKeySet(t).Current
	previous := testKeySet(t).Current
	ks := &KeySet{Current: current, Previous: previous}

	assert.Equal(t, current.PublicKey, ks.Lookup(current.Kid))
	assert.Equal(t, previous.PublicKey, ks.Lookup(previous.Kid))
	assert.Nil(t, ks.Lookup("unknown"))
}

