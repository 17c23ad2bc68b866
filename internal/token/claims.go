// Package token implements C4: issuance, validation, rotation and
// revocation of bearer credentials, including refresh-token reuse
// detection. Generalizes a JWT-provider/refresh-session rotation pattern
// to back the refresh-token index with the revocation store (C2) instead of
// Postgres, per spec.md section 9's "this is what makes instant revocation
// cheap and avoids a lifecycle tangle."
package token

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the access-token claim set (spec.md section 4.4.1): iss, sub,
// aud, exp, iat, nbf, jti, tenant_id, email, roles[].
type Claims struct {
	TenantID uuid.UUID `json:"tenant_id"`
	Email    string    `json:"email"`
	Roles    []string  `json:"roles"`
	jwt.RegisteredClaims
}

// UserID extracts the subject as a UUID.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// JWK represents a JSON Web Key (RSA public key) for the JWKS endpoint.
type JWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
	Alg string `json:"alg"`
}

// JWKS is a JSON Web Key Set.
type JWKS struct {
	Keys []JWK `json:"keys"`
}
