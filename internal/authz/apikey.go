// Package authz implements C5: API key issuance/verification and the
// scope grammar that governs what an authenticated principal may do
// within its tenant. Generalizes an RBAC role-weight middleware pattern
// from roles to scopes, and leans on C1 for the underlying secret
// hashing.
package authz

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"github.com/meridianhq/authcore/internal/authcrypto"
	"github.com/meridianhq/authcore/internal/errs"
)

const (
	keyPrefixLen = 8  // characters of the public, lookup-friendly prefix
	keySecretLen = 24 // bytes of secret entropy, base64-encoded
)

// IssuedKey is the plaintext API key returned exactly once at creation
// time, alongside the record that is safe to persist.
type IssuedKey struct {
	Plaintext string // "{prefix}_{secret}", shown to the caller once
	Prefix    string // stored in cleartext, used as a DB lookup index
	HashedKey string // Argon2id hash of the secret half, persisted
}

// IssueApiKey mints a new API key. The prefix is a non-secret lookup
// index (spec.md section 4.5.1: "keys are looked up by prefix, then the
// secret half is verified"); the secret half is hashed with the same
// Argon2id hasher used for passwords.
func IssueApiKey(hasher *authcrypto.Argon2idHasher) (*IssuedKey, error) {
	prefixRaw, err := authcrypto.GenerateSecureToken(keyPrefixLen)
	if err != nil {
		return nil, err
	}
	prefix := sanitizePrefix(prefixRaw)

	secretRaw, err := authcrypto.GenerateSecureToken(keySecretLen)
	if err != nil {
		return nil, err
	}

	hashed, err := hasher.HashSecret(secretRaw)
	if err != nil {
		return nil, err
	}

	return &IssuedKey{
		Plaintext: prefix + "_" + secretRaw,
		Prefix:    prefix,
		HashedKey: hashed,
	}, nil
}

// sanitizePrefix trims a base64url-encoded random prefix down to a fixed,
// alphanumeric-looking lookup key.
func sanitizePrefix(raw string) string {
	raw = strings.TrimRight(raw, "=")
	raw = strings.NewReplacer("-", "a", "_", "b").Replace(raw)
	if len(raw) > keyPrefixLen {
		raw = raw[:keyPrefixLen]
	}
	return raw
}

// SplitApiKey separates a presented plaintext key into its prefix and
// secret halves for the prefix-lookup-then-verify flow.
func SplitApiKey(plaintext string) (prefix, secret string, err error) {
	idx := strings.IndexByte(plaintext, '_')
	if idx <= 0 || idx == len(plaintext)-1 {
		return "", "", errs.New(errs.KindApiKeyInvalid, "malformed api key")
	}
	return plaintext[:idx], plaintext[idx+1:], nil
}

// VerifyApiKey compares a presented secret against the stored Argon2id
// hash for the prefix that was looked up. Compare's constant-time
// comparison applies identically to secrets as to passwords, so the
// shared PasswordHasher.Compare is reused directly.
func VerifyApiKey(hasher authcrypto.PasswordHasher, storedHash, presentedSecret string) error {
	if err := hasher.Compare(storedHash, presentedSecret); err != nil {
		return errs.New(errs.KindApiKeyInvalid, "api key secret mismatch")
	}
	return nil
}

// fingerprint returns a non-secret, deterministic identifier for an API
// key's secret half, suitable for audit logs where the secret itself
// must never appear.
func fingerprint(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return base64.RawURLEncoding.EncodeToString(sum[:])[:16]
}

// Fingerprint exposes fingerprint for audit-trail callers.
func Fingerprint(secret string) string {
	return fingerprint(secret)
}
