package identity

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_ConsumeBackupCode_AtMostOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	userID := uuid.New()

	require.NoError(t, s.ReplaceBackupCodes(ctx, userID, []string{"hash-a", "hash-b"}))

	bc, err := s.GetBackupCode(ctx, userID, "hash-a")
	require.NoError(t, err)

	require.NoError(t, s.ConsumeBackupCode(ctx, bc.ID))
	require.ErrorIs(t, s.ConsumeBackupCode(ctx, bc.ID), ErrConflict)

	_, err = s.GetBackupCode(ctx, userID, "hash-a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_CreateUser_RejectsDuplicateEmailInTenant(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	tenant := uuid.New()

	require.NoError(t, s.CreateUser(ctx, User{ID: uuid.New(), TenantID: tenant, Email: "a@example.com"}))
	err := s.CreateUser(ctx, User{ID: uuid.New(), TenantID: tenant, Email: "a@example.com"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestMemoryStore_UpdateSubscriptionStatus_CompareAndSet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	subID := uuid.New()
	require.NoError(t, s.CreateSubscription(ctx, Subscription{ID: subID, Status: SubscriptionActive}))

	require.NoError(t, s.UpdateSubscriptionStatus(ctx, subID, SubscriptionActive, SubscriptionPastDue, 1))

	err := s.UpdateSubscriptionStatus(ctx, subID, SubscriptionActive, SubscriptionUnpaid, 3)
	assert.ErrorIs(t, err, ErrConflict, "stale expected-status must lose the race")

	sub, err := s.GetSubscription(ctx, subID)
	require.NoError(t, err)
	assert.Equal(t, SubscriptionPastDue, sub.Status)
}
