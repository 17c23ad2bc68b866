package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/meridianhq/authcore/internal/audit"
	"github.com/meridianhq/authcore/internal/identity"
)

// Register creates a new user within tenantID. Not a named spec.md
// section 4.6 operation, but the natural precondition for Login: a tenant
// cannot authenticate a user that was never created. Deliberately a
// single public-registration flow: invitation-based registration belongs
// to tenant membership management, which is out of this core's scope
// (see DESIGN.md).
func (s *Service) Register(ctx context.Context, tenantID uuid.UUID, email, password string) (identity.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return identity.User{}, err
	}

	user := identity.User{
		ID:           uuid.New(),
		TenantID:     tenantID,
		Email:        email,
		PasswordHash: &hash,
		Roles:        []string{"user"},
		CreatedAt:    s.clock(),
		UpdatedAt:    s.clock(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return identity.User{}, err
	}

	s.audit.Log(ctx, audit.EventUserRegistered, audit.LogParams{
		ActorID:  user.ID,
		TargetID: user.ID,
		TenantID: tenantID,
	})

	return user, nil
}
