package authz

import (
	"testing"

	"github.com/meridianhq/authcore/internal/authcrypto"
	"github.com/meridianhq/authcore/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueApiKey_SplitAndVerifyRoundTrip(t *testing.T) {
	hasher := authcrypto.NewArgon2idHasher()

	issued, err := IssueApiKey(hasher)
	require.NoError(t, err)
	assert.Contains(t, issued.Plaintext, issued.Prefix+"_")

	prefix, secret, err := SplitApiKey(issued.Plaintext)
	require.NoError(t, err)
	assert.Equal(t, issued.Prefix, prefix)

	require.NoError(t, VerifyApiKey(hasher, issued.HashedKey, secret))
	require.Error(t, VerifyApiKey(hasher, issued.HashedKey, secret+"x"))
}

func TestSplitApiKey_RejectsMalformedInput(t *testing.T) {
	for _, bad := range []string{"", "noSeparator", "_onlysecret", "prefixonly_"} {
		_, _, err := SplitApiKey(bad)
		require.Error(t, err)
		var e *errs.Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, errs.KindApiKeyInvalid, e.Kind)
	}
}

func TestFingerprint_IsDeterministicAndDistinct(t *testing.T) {
	a := Fingerprint("secret-one")
	b := Fingerprint("secret-one")
	c := Fingerprint("secret-two")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
