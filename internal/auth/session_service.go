package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/meridianhq/authcore/internal/audit"
	"github.com/meridianhq/authcore/internal/token"
)

// Logout implements the logout half of spec.md section 4.4.5 at the C6
// surface: deletes the refresh index and blacklists the presented access
// token's jti via C4, then records the audit event. Session/refresh-token
// persistence itself lives in C2 (internal/revocation), not Postgres --
// see DESIGN.md for why a Postgres-backed session family model was not
// used.
func (s *Service) Logout(ctx context.Context, userID uuid.UUID, accessClaims *token.Claims) error {
	if err := s.tokens.Revoke(ctx, userID, accessClaims); err != nil {
		return err
	}
	s.audit.Log(ctx, audit.EventLogout, audit.LogParams{
		ActorID:  userID,
		TargetID: userID,
	})
	return nil
}

// RefreshSession rotates a refresh token via C4, surfacing
// errs.KindSessionRevoked when reuse is detected (spec.md section 4.4.4).
func (s *Service) RefreshSession(ctx context.Context, userID uuid.UUID, presented string, tenantID uuid.UUID, email string, roles []string) (*token.Pair, error) {
	return s.tokens.Rotate(ctx, userID, presented, tenantID, email, roles)
}
