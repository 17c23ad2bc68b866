package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/meridianhq/authcore/internal/audit"
	"github.com/meridianhq/authcore/internal/authcrypto"
	"github.com/meridianhq/authcore/internal/errs"
	"github.com/meridianhq/authcore/internal/identity"
	"github.com/meridianhq/authcore/internal/revocation"
	"github.com/meridianhq/authcore/internal/token"
)

// InitiateOAuth implements the first half of spec.md section 4.6.4: mints a
// random CSRF state token, stores oauth_state:{state} -> tenantID in C2 with
// a 10-minute TTL, and returns the provider's authorization URL with that
// state embedded.
func (s *Service) InitiateOAuth(ctx context.Context, tenantID uuid.UUID, providerName identity.OAuthProvider) (string, error) {
	provider, ok := s.oauth[providerName]
	if !ok {
		return "", errs.New(errs.KindInvalidClaim, "oauth provider not configured")
	}

	state, err := authcrypto.GenerateSecureToken(24)
	if err != nil {
		return "", err
	}
	if err := s.otp.SetEx(ctx, revocation.OAuthStateKey(state), tenantID.String(), oauthStateTTL); err != nil {
		return "", err
	}

	return provider.AuthorizationURL(state), nil
}

// HandleOAuthCallback implements the second half of spec.md section 4.6.4:
// verifies state was issued and is unused, exchanges code through the
// provider, then either logs into an already-linked OAuthAccount, links the
// provider to an existing user found by verified email, or provisions a
// fresh user -- auto-linking on a verified email match, the Open Question
// decision recorded in DESIGN.md. Provider tokens are encrypted via C1's
// ProviderTokenCipher before they ever reach the store.
func (s *Service) HandleOAuthCallback(ctx context.Context, providerName identity.OAuthProvider, code, state string) (*token.Pair, error) {
	provider, ok := s.oauth[providerName]
	if !ok {
		return nil, errs.New(errs.KindInvalidClaim, "oauth provider not configured")
	}

	stateKey := revocation.OAuthStateKey(state)
	tenantIDStr, err := s.otp.Get(ctx, stateKey)
	if err != nil {
		return nil, errs.New(errs.KindInvalidClaim, "invalid or expired oauth state")
	}
	_ = s.otp.Delete(ctx, stateKey)

	tenantID, err := uuid.Parse(tenantIDStr)
	if err != nil {
		return nil, errs.New(errs.KindInvalidClaim, "invalid oauth state")
	}

	remoteIdentity, err := provider.ExchangeCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrProviderUnconfigured) {
			return nil, errs.New(errs.KindInvalidClaim, "oauth provider not configured")
		}
		return nil, errs.New(errs.KindInvalidClaim, "oauth code exchange failed")
	}

	user, err := s.resolveOAuthUser(ctx, tenantID, providerName, remoteIdentity)
	if err != nil {
		return nil, err
	}

	pair, err := s.tokens.Issue(ctx, user.ID, tenantID, user.Email, user.Roles)
	if err != nil {
		return nil, err
	}
	s.audit.Log(ctx, audit.EventOAuthLinked, audit.LogParams{
		ActorID:  user.ID,
		TargetID: user.ID,
		TenantID: tenantID,
		Metadata: map[string]string{"provider": string(providerName)},
	})
	return pair, nil
}

// resolveOAuthUser implements the link-or-create decision tree: an
// existing OAuthAccount wins outright; otherwise a verified-email match
// links the provider to that user; otherwise a new user is provisioned
// with no password (PasswordHash nil, per identity.User's invariant that
// a password-less user must carry at least one OAuthAccount).
func (s *Service) resolveOAuthUser(ctx context.Context, tenantID uuid.UUID, providerName identity.OAuthProvider, remote ProviderIdentity) (identity.User, error) {
	if existing, err := s.store.GetOAuthAccount(ctx, providerName, remote.ProviderUserID); err == nil {
		return s.store.GetUserByID(ctx, tenantID, existing.UserID)
	}

	encAccess, err := s.encryptProviderToken(remote.AccessToken)
	if err != nil {
		return identity.User{}, err
	}
	encRefresh, err := s.encryptProviderToken(remote.RefreshToken)
	if err != nil {
		return identity.User{}, err
	}

	if remote.EmailVerified && remote.Email != "" {
		if user, err := s.store.GetUserByVerifiedEmail(ctx, tenantID, remote.Email); err == nil {
			if linkErr := s.store.CreateOAuthAccount(ctx, identity.OAuthAccount{
				ID:                    uuid.New(),
				UserID:                user.ID,
				Provider:              providerName,
				ProviderUserID:        remote.ProviderUserID,
				EncryptedAccessToken:  encAccess,
				EncryptedRefreshToken: encRefresh,
				CreatedAt:             s.clock(),
			}); linkErr != nil {
				return identity.User{}, linkErr
			}
			return user, nil
		}
	}

	user := identity.User{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Email:     remote.Email,
		Roles:     []string{"user"},
		CreatedAt: s.clock(),
		UpdatedAt: s.clock(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return identity.User{}, err
	}
	if err := s.store.CreateOAuthAccount(ctx, identity.OAuthAccount{
		ID:                    uuid.New(),
		UserID:                user.ID,
		Provider:              providerName,
		ProviderUserID:        remote.ProviderUserID,
		EncryptedAccessToken:  encAccess,
		EncryptedRefreshToken: encRefresh,
		CreatedAt:             s.clock(),
	}); err != nil {
		return identity.User{}, err
	}
	return user, nil
}

func (s *Service) encryptProviderToken(plaintext string) (string, error) {
	if plaintext == "" || s.cipher == nil {
		return "", nil
	}
	return s.cipher.Encrypt(plaintext)
}
