package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/meridianhq/authcore/internal/audit"
	"github.com/meridianhq/authcore/internal/authcrypto"
	"github.com/meridianhq/authcore/internal/errs"
)

// EnrollmentResult carries everything a client needs to finish 2FA
// enrollment: the secret (shown once, for manual entry), a scannable QR
// code, the otpauth:// URL, and the one-time backup codes in the clear.
type EnrollmentResult struct {
	Secret      string
	OtpAuthURL  string
	QrPng       []byte
	BackupCodes []string
}

// EnrollTotp implements spec.md section 4.6.3's first step: generates a
// secret via C1 but does NOT persist it or flip totp_enabled yet -- that
// only happens once VerifyTotp confirms the user actually has the secret
// loaded in an authenticator app.
func (s *Service) EnrollTotp(ctx context.Context, tenantID, userID uuid.UUID, accountEmail, issuer string) (*EnrollmentResult, error) {
	secret, err := authcrypto.GenerateTotpSecret()
	if err != nil {
		return nil, err
	}
	otpauthURL := authcrypto.BuildOtpAuthUrl(secret, accountEmail, issuer)
	qrPng, err := authcrypto.BuildTotpQrPng(otpauthURL, 256)
	if err != nil {
		return nil, err
	}
	codes, err := authcrypto.GenerateBackupCodes(backupCodeCount)
	if err != nil {
		return nil, err
	}

	return &EnrollmentResult{
		Secret:      secret,
		OtpAuthURL:  otpauthURL,
		QrPng:       qrPng,
		BackupCodes: codes,
	}, nil
}

// VerifyTotp implements spec.md section 4.6.3's second step: the first
// successful validation against the pending secret commits it to the User
// row, sets totp_enabled, and persists the backup-code hashes (never the
// plaintext codes -- those were already shown once by EnrollTotp).
func (s *Service) VerifyTotp(ctx context.Context, tenantID, userID uuid.UUID, secret, code string, backupCodes []string) error {
	if !authcrypto.ValidateTotpCode(secret, code, 1, s.clock()) {
		return errs.New(errs.KindOtpInvalidOrExpired, "invalid totp code")
	}

	hashes := make([]string, len(backupCodes))
	for i, c := range backupCodes {
		hashes[i] = authcrypto.HashBackupCode(c)
	}
	if err := s.store.ReplaceBackupCodes(ctx, userID, hashes); err != nil {
		return err
	}
	if err := s.store.SetTotpSecret(ctx, userID, secret); err != nil {
		return err
	}
	if err := s.store.EnableTotp(ctx, userID); err != nil {
		return err
	}

	s.audit.Log(ctx, audit.EventMfaEnrolled, audit.LogParams{
		ActorID:  userID,
		TargetID: userID,
		TenantID: tenantID,
	})
	return nil
}

// DisableTotp turns off 2FA for a user, e.g. after a password-authenticated
// account-settings request. Not named explicitly as a spec.md subsection but
// is the natural inverse of EnrollTotp/VerifyTotp and is exercised by the
// account-settings surface in internal/api.
func (s *Service) DisableTotp(ctx context.Context, tenantID, userID uuid.UUID) error {
	if err := s.store.DisableTotp(ctx, userID); err != nil {
		return err
	}
	s.audit.Log(ctx, audit.EventMfaDisabled, audit.LogParams{
		ActorID:  userID,
		TargetID: userID,
		TenantID: tenantID,
	})
	return nil
}

// RegenerateBackupCodes replaces the outstanding set of backup codes,
// invalidating any the user has not yet used. It does not check whether
// 2FA is enabled for the user.
func (s *Service) RegenerateBackupCodes(ctx context.Context, tenantID, userID uuid.UUID) ([]string, error) {
	codes, err := authcrypto.GenerateBackupCodes(backupCodeCount)
	if err != nil {
		return nil, err
	}
	hashes := make([]string, len(codes))
	for i, c := range codes {
		hashes[i] = authcrypto.HashBackupCode(c)
	}
	if err := s.store.ReplaceBackupCodes(ctx, userID, hashes); err != nil {
		return nil, err
	}
	return codes, nil
}
