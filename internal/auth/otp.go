package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/meridianhq/authcore/internal/authcrypto"
	"github.com/meridianhq/authcore/internal/errs"
	"github.com/meridianhq/authcore/internal/revocation"
)

// SendOtp implements spec.md section 4.6.2: generates a 6-digit numeric
// code, stores otp:{userID}:{purpose} -> code in C2 with a 10-minute TTL,
// and hands delivery to the Mailer. Rate-limited to 3 sends per hour per
// email via C2's atomic IncrBy, the same building block the login lockout
// uses. Silent success when the email doesn't resolve, matching
// RequestReset's enumeration defense.
func (s *Service) SendOtp(ctx context.Context, tenantID uuid.UUID, email, purpose string) error {
	count, err := s.otp.IncrBy(ctx, revocation.OtpRateKey(email), 1, otpRateWindow)
	if err != nil {
		return err
	}
	if count > otpRateLimit {
		return errs.New(errs.KindOtpInvalidOrExpired, "too many codes requested, try again later")
	}

	user, err := s.store.GetUserByEmail(ctx, tenantID, email)
	if err != nil {
		return nil
	}

	code, err := authcrypto.GenerateNumericCode(otpLength)
	if err != nil {
		return err
	}
	if err := s.otp.SetEx(ctx, revocation.OtpKey(user.ID.String(), purpose), code, otpTTL); err != nil {
		return err
	}

	tenant, _ := s.store.GetTenantByID(ctx, tenantID)
	return s.mailer.Enqueue(ctx, tenantID, user.Email, "otp_code", map[string]string{
		"code":    code,
		"app_url": s.appURLFor(tenant),
	})
}

// VerifyOtp implements the second half of spec.md section 4.6.2: a
// constant-time comparison against the stored code, deleted on success
// (one-time use) and on otpMaxFailedChecks consecutive mismatches
// (prevents unbounded guessing against a single issued code).
func (s *Service) VerifyOtp(ctx context.Context, tenantID uuid.UUID, email, purpose, code string) error {
	user, err := s.store.GetUserByEmail(ctx, tenantID, email)
	if err != nil {
		return errs.New(errs.KindOtpInvalidOrExpired, "invalid or expired code")
	}

	key := revocation.OtpKey(user.ID.String(), purpose)
	stored, err := s.otp.Get(ctx, key)
	if err != nil {
		return errs.New(errs.KindOtpInvalidOrExpired, "invalid or expired code")
	}

	if !authcrypto.SecureCompare(stored, code) {
		failKey := revocation.OtpKey(user.ID.String(), purpose+":fails")
		fails, incrErr := s.otp.IncrBy(ctx, failKey, 1, otpTTL)
		if incrErr == nil && fails >= otpMaxFailedChecks {
			_ = s.otp.Delete(ctx, key)
		}
		return errs.New(errs.KindOtpInvalidOrExpired, "invalid or expired code")
	}

	_ = s.otp.Delete(ctx, key)
	return nil
}
