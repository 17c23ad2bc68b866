package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// TenantContext resolves the X-Tenant-ID header, validates its syntax, and
// injects it into the request context. It does not look the tenant up in
// the store -- that is left to handlers and AuthMiddleware, which also
// cross-checks it against the token's tenant_id claim (spec.md section
// 4.9: identity is read from the validated token, never trusted off a
// header alone). The header is optional so public endpoints (health,
// login, register) keep working without it.
func TenantContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantIDStr := r.Header.Get("X-Tenant-ID")
		if tenantIDStr == "" {
			next.ServeHTTP(w, r)
			return
		}

		tenantID, err := uuid.Parse(tenantIDStr)
		if err != nil {
			slog.Warn("invalid X-Tenant-ID header", "value", tenantIDStr, "ip", r.RemoteAddr)
			http.Error(w, "invalid tenant id", http.StatusBadRequest)
			return
		}

		ctx := context.WithValue(r.Context(), TenantIDKey, tenantID)
		SetSentryTenant(ctx, tenantID.String(), "header-provided")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
