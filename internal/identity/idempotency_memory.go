package identity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const idempotencyWindow = 24 * time.Hour

type idempotencyEntry struct {
	record    IdempotencyRecord
	expiresAt time.Time
}

// MemoryIdempotencyStore backs C7's idempotency-key cache (spec.md
// section 4.7.3) for tests; production wiring targets the same
// key/value store as C2 since both are TTL-only data.
type MemoryIdempotencyStore struct {
	mu   sync.Mutex
	data map[string]idempotencyEntry
	now  func() time.Time
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{data: map[string]idempotencyEntry{}, now: time.Now}
}

func idempotencyKey(tenantID, userID uuid.UUID, key string) string {
	return tenantID.String() + ":" + userID.String() + ":" + key
}

func (s *MemoryIdempotencyStore) Get(ctx context.Context, tenantID, userID uuid.UUID, key string) (IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[idempotencyKey(tenantID, userID, key)]
	if !ok || s.now().After(e.expiresAt) {
		return IdempotencyRecord{}, ErrNotFound
	}
	return e.record, nil
}

func (s *MemoryIdempotencyStore) Put(ctx context.Context, tenantID, userID uuid.UUID, key string, record IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[idempotencyKey(tenantID, userID, key)] = idempotencyEntry{
		record:    record,
		expiresAt: s.now().Add(idempotencyWindow),
	}
	return nil
}
