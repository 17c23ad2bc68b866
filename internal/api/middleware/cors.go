package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"
)

// ValidateOrigins rejects a wildcard entry and any non-HTTPS origin other
// than http://localhost, so a misconfigured ALLOWED_ORIGINS env var fails
// at startup instead of silently opening CORS to every site.
func ValidateOrigins(origins []string) error {
	for _, origin := range origins {
		if origin == "*" {
			return errors.New("wildcard CORS origin not allowed")
		}
		if !strings.HasPrefix(origin, "https://") && !strings.HasPrefix(origin, "http://localhost") {
			return errors.New("only HTTPS origins allowed (except http://localhost for development)")
		}
		if origin == "" || strings.Contains(origin, " ") {
			return errors.New("invalid origin format")
		}
	}
	return nil
}

// CORSMiddleware reflects Origin for browser clients whose origin appears
// in allowedOrigins, and answers preflight requests directly. Kept
// independent of any per-tenant store lookup (the teacher's version
// queried a tenant's DB row per request); tenant-specific origin policy is
// out of scope here, so origins come from static configuration instead,
// validated once at startup via ValidateOrigins.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			allowed := slices.Contains(allowedOrigins, origin)
			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Tenant-ID, Idempotency-Key")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if !allowed {
				http.Error(w, "cors policy violation", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
