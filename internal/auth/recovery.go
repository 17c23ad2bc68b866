package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/meridianhq/authcore/internal/audit"
	"github.com/meridianhq/authcore/internal/authcrypto"
	"github.com/meridianhq/authcore/internal/errs"
	"github.com/meridianhq/authcore/internal/revocation"
)

// RequestReset implements spec.md section 4.6.5: generates a 32-byte
// random token, stores reset:{token} -> email in C2 with a 1-hour TTL, and
// hands off to C8 for delivery. The response is identical whether or not
// the email exists -- silence is the enumeration defense.
func (s *Service) RequestReset(ctx context.Context, tenantID uuid.UUID, email string) error {
	user, err := s.store.GetUserByEmail(ctx, tenantID, email)
	if err != nil {
		return nil
	}

	rawToken, err := authcrypto.GenerateSecureToken(32)
	if err != nil {
		return err
	}
	if err := s.otp.SetEx(ctx, revocation.ResetTokenKey(rawToken), email, resetTokenTTL); err != nil {
		return err
	}

	tenant, _ := s.store.GetTenantByID(ctx, tenantID)
	return s.mailer.Enqueue(ctx, tenantID, user.Email, "password_reset", map[string]string{
		"token":   rawToken,
		"app_url": s.appURLFor(tenant),
	})
}

// ConfirmReset implements the second half of spec.md section 4.6.5: looks
// up the token, deletes it (one-time use), validates newPassword against
// policy, updates password_hash, and invalidates all outstanding sessions
// by deleting the user's refresh-token index -- blacklisting tracked
// access tokens is the caller's job for any jti it still holds (this
// service does not maintain a side index of live access tokens by design,
// see spec.md section 9 on avoiding a session lifecycle tangle).
func (s *Service) ConfirmReset(ctx context.Context, tenantID uuid.UUID, rawToken, newPassword string) error {
	key := revocation.ResetTokenKey(rawToken)
	email, err := s.otp.Get(ctx, key)
	if err != nil {
		return errs.New(errs.KindInvalidClaim, "invalid or expired reset token")
	}
	_ = s.otp.Delete(ctx, key)

	user, err := s.store.GetUserByEmail(ctx, tenantID, email)
	if err != nil {
		return errs.New(errs.KindInvalidClaim, "invalid or expired reset token")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return err
	}

	_ = s.otp.Delete(ctx, revocation.RefreshKey(user.ID.String()))

	s.audit.Log(ctx, audit.EventPasswordReset, audit.LogParams{
		ActorID:  user.ID,
		TargetID: user.ID,
		TenantID: tenantID,
	})
	return nil
}
