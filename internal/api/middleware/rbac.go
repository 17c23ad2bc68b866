package middleware

import (
	"log/slog"
	"net/http"
)

// RoleAdmin is the tenant-scoped administrative role (spec.md 4.6: user
// roles live in the token's roles[] claim, which this middleware reads
// straight out of the re-validated context -- never off raw metadata).
const RoleAdmin = "admin"

// RequireRole builds a middleware that rejects requests whose re-validated
// roles claim does not contain requiredRole. Must run after AuthMiddleware.
func RequireRole(requiredRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := GetUserID(r.Context()); err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			roles, err := GetRoles(r.Context())
			if err != nil || !HasRole(roles, requiredRole) {
				slog.Warn("rbac: insufficient permissions", "ip", r.RemoteAddr, "need", requiredRole)
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
