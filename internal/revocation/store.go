// Package revocation implements C2: a key/value store with per-key TTL
// backing the access-token blacklist, the refresh-token index, OTP codes,
// OAuth state, and rate-limit counters (spec.md section 4.2).
package revocation

import (
	"context"
	"time"
)

// Store is the contract every backend (Redis in production, an in-memory
// map in tests) must satisfy. Operations that must be atomic per spec
// (increment-and-check) complete in a single round-trip.
type Store interface {
	// Get returns the value for key, or ErrNotFound if absent or expired.
	Get(ctx context.Context, key string) (string, error)
	// SetEx stores value under key with the given TTL, replacing any prior
	// value and TTL unconditionally.
	SetEx(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Exists reports whether key is present and unexpired.
	Exists(ctx context.Context, key string) (bool, error)
	// IncrBy atomically adds delta to the integer stored at key, creating
	// it with ttlOnCreate if absent, and returns the resulting value. Used
	// for rate-limit counters where the increment and the read that drives
	// the allow/deny decision must happen on the same round-trip.
	IncrBy(ctx context.Context, key string, delta int64, ttlOnCreate time.Duration) (int64, error)
}

// Key namespace builders, spec.md section 4.2.
func BlacklistKey(jti string) string        { return "blacklist:" + jti }
func RefreshKey(userID string) string       { return "refresh:" + userID }
func OtpKey(userID, purpose string) string  { return "otp:" + userID + ":" + purpose }
func OtpRateKey(email string) string        { return "otp_rate:" + email }
func OAuthStateKey(state string) string     { return "oauth_state:" + state }
func LoginFailKey(accountID string) string  { return "login_fail:" + accountID }
func ResetTokenKey(token string) string     { return "reset:" + token }
