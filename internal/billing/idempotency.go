package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/meridianhq/authcore/internal/identity"
)

// Execute enforces spec.md section 4.7.3: the first request under
// (tenantID, userID, key) runs fn and its response is cached for 24 hours;
// any subsequent request with the same triple replays the cached response
// byte-for-byte without calling fn again.
func Execute(ctx context.Context, store identity.IdempotencyStore, tenantID, userID uuid.UUID, key string, fn func() ([]byte, int, error)) ([]byte, int, error) {
	if cached, err := store.Get(ctx, tenantID, userID, key); err == nil {
		return cached.ResponseBody, cached.StatusCode, nil
	}

	body, status, err := fn()
	if err != nil {
		return body, status, err
	}
	_ = store.Put(ctx, tenantID, userID, key, identity.IdempotencyRecord{ResponseBody: body, StatusCode: status})
	return body, status, nil
}
