package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/meridianhq/authcore/internal/audit"
	"github.com/meridianhq/authcore/internal/authcrypto"
	"github.com/meridianhq/authcore/internal/errs"
	"github.com/meridianhq/authcore/internal/identity"
	"github.com/meridianhq/authcore/internal/revocation"
	"github.com/meridianhq/authcore/internal/token"
)

// Login implements spec.md section 4.6.1: tenant-scoped lookup, password
// verify, and (if totp_enabled) a mandatory 2FA code that may be either a
// TOTP code or a one-time backup code. totpCode is empty on the first
// attempt; a user with totp_enabled gets errs.KindMfaRequired back and is
// expected to resubmit with the code in the same call, avoiding a second
// short-lived pre-auth token type just to bridge the two steps.
func (s *Service) Login(ctx context.Context, tenantID uuid.UUID, email, password, totpCode string) (*token.Pair, error) {
	accountID := tenantID.String() + ":" + email

	locked, err := s.otp.Exists(ctx, loginLockKey(accountID))
	if err == nil && locked {
		return nil, errs.New(errs.KindInvalidCredentials, "account temporarily locked")
	}

	user, err := s.store.GetUserByEmail(ctx, tenantID, email)
	if err != nil {
		s.recordLoginFailure(ctx, accountID, tenantID, uuid.Nil)
		return nil, errs.New(errs.KindInvalidCredentials, "invalid email or password")
	}

	if user.PasswordHash == nil {
		s.recordLoginFailure(ctx, accountID, tenantID, user.ID)
		return nil, errs.New(errs.KindInvalidCredentials, "invalid email or password")
	}

	if err := s.hasher.Compare(*user.PasswordHash, password); err != nil {
		s.recordLoginFailure(ctx, accountID, tenantID, user.ID)
		return nil, errs.New(errs.KindInvalidCredentials, "invalid email or password")
	}

	if user.TotpEnabled {
		if totpCode == "" {
			return nil, errs.New(errs.KindMfaRequired, "a 2fa code is required for this account")
		}
		if !s.verifyLoginMfaCode(ctx, &user, totpCode) {
			s.recordLoginFailure(ctx, accountID, tenantID, user.ID)
			return nil, errs.New(errs.KindInvalidCredentials, "invalid 2fa code")
		}
	}

	_ = s.otp.Delete(ctx, revocation.LoginFailKey(accountID))

	pair, err := s.tokens.Issue(ctx, user.ID, tenantID, user.Email, user.Roles)
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, audit.EventLoginSuccess, audit.LogParams{
		ActorID:  user.ID,
		TargetID: user.ID,
		TenantID: tenantID,
	})
	return pair, nil
}

// verifyLoginMfaCode accepts either a live TOTP code or a backup code,
// consuming the backup code at most once on success (spec.md 4.6.1).
func (s *Service) verifyLoginMfaCode(ctx context.Context, user *identity.User, code string) bool {
	if user.TotpSecret != nil && authcrypto.ValidateTotpCode(*user.TotpSecret, code, 1, s.clock()) {
		return true
	}

	hash := authcrypto.HashBackupCode(code)
	bc, err := s.store.GetBackupCode(ctx, user.ID, hash)
	if err != nil {
		return false
	}
	if bc.UsedAt != nil {
		return false
	}
	return s.store.ConsumeBackupCode(ctx, bc.ID) == nil
}

func loginLockKey(accountID string) string {
	return "lock:" + accountID
}

// recordLoginFailure increments the rolling failure counter and, past
// loginFailThreshold within loginFailWindow, locks the account for
// loginLockDuration and emits an AuthRateLimit audit event on the same
// call (spec.md 4.6.1: "within 200ms").
func (s *Service) recordLoginFailure(ctx context.Context, accountID string, tenantID, userID uuid.UUID) {
	count, err := s.otp.IncrBy(ctx, revocation.LoginFailKey(accountID), 1, loginFailWindow)
	if err != nil {
		s.log.Warn("login_fail_counter_unavailable", "error", err)
		return
	}
	if count < loginFailThreshold {
		return
	}
	if err := s.otp.SetEx(ctx, loginLockKey(accountID), "1", loginLockDuration); err != nil {
		s.log.Warn("login_lock_set_failed", "error", err)
	}
	s.audit.Log(ctx, audit.EventAuthRateLimit, audit.LogParams{
		ActorID:  userID,
		TenantID: tenantID,
		Metadata: map[string]string{"account": accountID},
	})
}
