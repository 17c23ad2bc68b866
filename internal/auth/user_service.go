package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/meridianhq/authcore/internal/audit"
	"github.com/meridianhq/authcore/internal/errs"
	"github.com/meridianhq/authcore/internal/revocation"
)

// ChangePassword implements the self-service half of spec.md section 4.6.6:
// verifies the current password, hashes and stores the new one, and
// invalidates every outstanding session by deleting the refresh-token
// index, same as ConfirmReset -- changing a password revokes every
// outstanding session, not just the one making the request. Dropping the
// tenant-membership and profile-field operations that would otherwise
// live alongside this: those belong to tenant membership management, out
// of this core's scope (see DESIGN.md).
func (s *Service) ChangePassword(ctx context.Context, tenantID, userID uuid.UUID, oldPassword, newPassword string) error {
	user, err := s.store.GetUserByID(ctx, tenantID, userID)
	if err != nil {
		return err
	}
	if user.PasswordHash == nil {
		return errs.New(errs.KindInvalidCredentials, "user has no password set")
	}
	if err := s.hasher.Compare(*user.PasswordHash, oldPassword); err != nil {
		return errs.New(errs.KindInvalidCredentials, "invalid password")
	}

	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePasswordHash(ctx, user.ID, newHash); err != nil {
		return err
	}

	_ = s.otp.Delete(ctx, revocation.RefreshKey(user.ID.String()))

	s.audit.Log(ctx, audit.EventPasswordReset, audit.LogParams{
		ActorID:  userID,
		TargetID: userID,
		TenantID: tenantID,
		Metadata: map[string]string{"revoked_all_sessions": "true"},
	})
	return nil
}
