package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/meridianhq/authcore/internal/token"
)

// TokenValidator is the narrow slice of *token.Engine this middleware
// depends on, so handler tests can inject a double instead of a real
// RSA-backed engine.
type TokenValidator interface {
	Validate(ctx context.Context, tokenString string) (*token.Claims, error)
}

// AuthMiddleware validates the bearer access token on every request and
// injects the re-validated (user_id, tenant_id, email, roles) into the
// request context. If an X-Tenant-ID header was already resolved by
// TenantContext, it must match the token's tenant_id claim exactly --
// the header alone is never trusted for identity (spec.md section 4.9).
func AuthMiddleware(engine TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
				http.Error(w, "authorization header required", http.StatusUnauthorized)
				return
			}

			claims, err := engine.Validate(r.Context(), parts[1])
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			userID, err := claims.UserID()
			if err != nil {
				http.Error(w, "invalid token subject", http.StatusUnauthorized)
				return
			}

			if ctxTenantID, tErr := GetTenantID(r.Context()); tErr == nil && ctxTenantID != claims.TenantID {
				http.Error(w, "token does not match requested tenant context", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), TenantIDKey, claims.TenantID)
			ctx = context.WithValue(ctx, UserIDKey, userID)
			ctx = context.WithValue(ctx, RolesKey, claims.Roles)
			ctx = context.WithValue(ctx, EmailKey, claims.Email)
			SetSentryTenant(ctx, claims.TenantID.String(), "token-derived")
			SetSentryUser(ctx, userID.String(), claims.Email, r.RemoteAddr)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
