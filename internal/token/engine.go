package token

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/meridianhq/authcore/internal/authcrypto"
	"github.com/meridianhq/authcore/internal/errs"
	"github.com/meridianhq/authcore/internal/revocation"
)

const (
	// AccessTokenLifetime is the signed-envelope lifetime (spec.md 4.4.1).
	AccessTokenLifetime = 15 * time.Minute
	// RefreshTokenLifetime is the opaque-token lifetime (spec.md 4.4.1).
	RefreshTokenLifetime = 30 * 24 * time.Hour
	// refreshTokenBytes gives >=160 bits of entropy for the opaque refresh
	// token (spec.md 4.4.1: ">= 160 bits").
	refreshTokenBytes = 32

	// allowedAlg is the single algorithm this core accepts. alg is
	// validated against this explicit allowlist of exactly one value
	// before any signature verification is attempted (spec.md 4.4.1).
	allowedAlg = "RS256"
)

// Pair is an issued access+refresh token pair.
type Pair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // seconds, for the access token
	TokenType    string
}

// Engine implements C4 over a KeySet (signing) and a revocation.Store (C2)
// for the blacklist and refresh-token index.
type Engine struct {
	keys     *KeySet
	store    revocation.Store
	issuer   string
	audience string
	clock    func() time.Time
}

// NewEngine builds a token Engine. issuer/audience are matched exactly
// against incoming tokens' iss/aud claims (spec.md 4.4.3).
func NewEngine(keys *KeySet, store revocation.Store, issuer, audience string) *Engine {
	return &Engine{keys: keys, store: store, issuer: issuer, audience: audience, clock: time.Now}
}

// Issue mints a fresh access+refresh pair for userID/tenantID and stores
// the refresh token under refresh:{user_id} with the full 30-day TTL
// (spec.md 4.4.2). The access token's jti is NOT pre-registered; it is
// only ever written to the blacklist on revocation.
func (e *Engine) Issue(ctx context.Context, userID, tenantID uuid.UUID, email string, roles []string) (*Pair, error) {
	access, err := e.signAccessToken(userID, tenantID, email, roles)
	if err != nil {
		return nil, err
	}

	refresh, err := authcrypto.GenerateSecureToken(refreshTokenBytes)
	if err != nil {
		return nil, err
	}

	if err := e.store.SetEx(ctx, revocation.RefreshKey(userID.String()), refresh, RefreshTokenLifetime); err != nil {
		return nil, errs.New(errs.KindStoreUnavailable, "failed to persist refresh token")
	}

	return &Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(AccessTokenLifetime.Seconds()),
		TokenType:    "Bearer",
	}, nil
}

func (e *Engine) signAccessToken(userID, tenantID uuid.UUID, email string, roles []string) (string, error) {
	now := e.clock()
	claims := &Claims{
		TenantID: tenantID,
		Email:    email,
		Roles:    roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        uuid.NewString(),
			Issuer:    e.issuer,
			Audience:  jwt.ClaimStrings{e.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenLifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	jtoken := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	jtoken.Header["kid"] = e.keys.Current.Kid
	signed, err := jtoken.SignedString(e.keys.Current.PrivateKey)
	if err != nil {
		return "", errs.New(errs.KindCryptoError, "failed to sign access token")
	}
	return signed, nil
}

// Validate runs the five steps of spec.md section 4.4.3 in order: parse
// header and reject disallowed algorithms BEFORE any signature or key
// lookup happens, verify signature against the kid-selected key, check
// exp/nbf/iss/aud, consult the blacklist, and only then return claims.
func (e *Engine) Validate(ctx context.Context, tokenString string) (*Claims, error) {
	// Step 1: parse header only, reject alg before touching keys/signature.
	unverified, _, err := jwt.NewParser().ParseUnverified(tokenString, &Claims{})
	if err != nil {
		return nil, errs.New(errs.KindInvalidClaim, "malformed token")
	}
	alg, _ := unverified.Header["alg"].(string)
	if alg != allowedAlg {
		return nil, errs.New(errs.KindAlgorithmDisallowed, fmt.Sprintf("algorithm %q is not allowed", alg))
	}

	// Step 2: verify signature against the kid-selected public key. The
	// previous kid is accepted for as long as KeySet.Previous is set; no
	// time limit is applied here.
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != allowedAlg {
			return nil, errs.New(errs.KindAlgorithmDisallowed, "algorithm mismatch at verification")
		}
		kid, _ := t.Header["kid"].(string)
		pub := e.keys.Lookup(kid)
		if pub == nil {
			return nil, errs.New(errs.KindInvalidSignature, "unknown signing key")
		}
		return pub, nil
	}, jwt.WithValidMethods([]string{allowedAlg}))

	if err != nil {
		if jwtErrIsExpired(err) {
			return nil, errs.New(errs.KindTokenExpired, "access token expired")
		}
		return nil, errs.New(errs.KindInvalidSignature, "signature verification failed")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errs.New(errs.KindInvalidClaim, "invalid claims")
	}

	// Step 3: exp/nbf already enforced by jwt.ParseWithClaims; check iss/aud
	// explicitly since this is a security-sensitive boundary we don't want
	// delegated silently to library defaults.
	if claims.Issuer != e.issuer {
		return nil, errs.New(errs.KindInvalidClaim, "unexpected issuer")
	}
	if !claims.Audience.Contains(e.audience) {
		return nil, errs.New(errs.KindInvalidClaim, "unexpected audience")
	}

	// Step 4: blacklist lookup.
	_, err = e.store.Get(ctx, revocation.BlacklistKey(claims.ID))
	if err == nil {
		return nil, errs.New(errs.KindTokenRevoked, "token has been revoked")
	}
	if err != revocation.ErrNotFound {
		// Store unreachable: fail closed per spec.md section 4.2/7.
		return nil, errs.New(errs.KindTokenRevoked, "revocation status unknown")
	}

	// Step 5: expose claims.
	return claims, nil
}

func jwtErrIsExpired(err error) bool {
	return err != nil && (err == jwt.ErrTokenExpired || isWrapped(err, jwt.ErrTokenExpired))
}

func isWrapped(err, target error) bool {
	for err != nil {
		if err == target {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Rotate implements spec.md section 4.4.4: reuse-detected rotation.
func (e *Engine) Rotate(ctx context.Context, userID uuid.UUID, presented string, tenantID uuid.UUID, email string, roles []string) (*Pair, error) {
	key := revocation.RefreshKey(userID.String())

	stored, err := e.store.Get(ctx, key)
	if err == revocation.ErrNotFound {
		return nil, errs.New(errs.KindRefreshExpired, "refresh token not found")
	}
	if err != nil {
		return nil, errs.New(errs.KindStoreUnavailable, "refresh lookup failed")
	}

	if !authcrypto.SecureCompare(stored, presented) {
		// Reuse: the presented value does not match the current one.
		// Delete the key, revoking every token descended from it, and
		// count the dedicated security metric.
		_ = e.store.Delete(ctx, key)
		RefreshReuseDetectedTotal.Inc()
		return nil, errs.New(errs.KindSessionRevoked, "refresh token reuse detected")
	}

	access, err := e.signAccessToken(userID, tenantID, email, roles)
	if err != nil {
		return nil, err
	}
	newRefresh, err := authcrypto.GenerateSecureToken(refreshTokenBytes)
	if err != nil {
		return nil, err
	}

	// Delete-then-set on the same key: a concurrent refresh that observes
	// the deleted key before the new SetEx must fail, not silently
	// succeed (spec.md section 5).
	if err := e.store.Delete(ctx, key); err != nil {
		return nil, errs.New(errs.KindStoreUnavailable, "refresh rotation delete failed")
	}
	if err := e.store.SetEx(ctx, key, newRefresh, RefreshTokenLifetime); err != nil {
		return nil, errs.New(errs.KindStoreUnavailable, "refresh rotation set failed")
	}

	return &Pair{
		AccessToken:  access,
		RefreshToken: newRefresh,
		ExpiresIn:    int64(AccessTokenLifetime.Seconds()),
		TokenType:    "Bearer",
	}, nil
}

// Revoke implements spec.md section 4.4.5: logout deletes the refresh
// index and blacklists the access token's jti with a TTL equal to its
// remaining lifetime. Both steps are required; neither alone suffices.
func (e *Engine) Revoke(ctx context.Context, userID uuid.UUID, accessClaims *Claims) error {
	if err := e.store.Delete(ctx, revocation.RefreshKey(userID.String())); err != nil {
		return errs.New(errs.KindStoreUnavailable, "failed to delete refresh index")
	}

	if accessClaims != nil {
		remaining := time.Until(accessClaims.ExpiresAt.Time)
		if remaining <= 0 {
			return nil // already expired, nothing to blacklist
		}
		if err := e.store.SetEx(ctx, revocation.BlacklistKey(accessClaims.ID), "revoked", remaining); err != nil {
			return errs.New(errs.KindStoreUnavailable, "failed to blacklist access token")
		}
	}
	return nil
}

// GetJWKS exposes the current (and, during rotation, previous) public key.
func (e *Engine) GetJWKS() JWKS {
	return e.keys.JWKS()
}
