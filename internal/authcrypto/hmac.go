package authcrypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HmacSha256Hex returns the lowercase hex HMAC-SHA256 digest of payload
// under secret, used for webhook signing (spec.md section 4.8.3).
func HmacSha256Hex(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHmacSha256Hex performs a constant-time comparison of a received hex
// signature against the expected HMAC of payload under secret.
func VerifyHmacSha256Hex(payload []byte, secret, signature string) bool {
	expected := HmacSha256Hex(payload, secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// SecureCompare performs a constant-time string comparison, guarding
// against timing attacks when comparing tokens, signatures, or any other
// secret-derived value.
func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
