package auth

import (
	"context"
	"errors"
	"net/url"

	"github.com/meridianhq/authcore/internal/identity"
)

// ErrProviderUnconfigured is returned by a Provider stub that has no
// client credentials or test double wired in. HandleOAuthCallback
// surfaces this as errs.KindInvalidClaim rather than leaking it raw.
var ErrProviderUnconfigured = errors.New("auth: oauth provider not configured")

// ProviderIdentity is the normalized result of a successful code exchange,
// regardless of which upstream provider produced it.
type ProviderIdentity struct {
	ProviderUserID string
	Email          string
	EmailVerified  bool
	AccessToken    string
	RefreshToken   string
}

// Provider is the collaborator HandleOAuthCallback exchanges an
// authorization code through. Dispatch across providers is an explicit
// switch in NewProviderSet, not a runtime registry, matching the enum
// dispatch spec.md calls for.
type Provider interface {
	ExchangeCode(ctx context.Context, code string) (ProviderIdentity, error)
	// AuthorizationURL builds the upstream consent-screen URL the caller
	// redirects the browser to, embedding state for CSRF verification on
	// the callback.
	AuthorizationURL(state string) string
}

// NewProviderSet builds the oauth map NewService expects, one entry per
// configured provider. A provider with a zero-value ProviderConfig still
// gets an entry. The built-in variants' ExchangeCode always returns
// ErrProviderUnconfigured, with or without credentials; only the
// AuthorizationURL depends on the configured credentials.
func NewProviderSet(configs map[identity.OAuthProvider]ProviderConfig) map[identity.OAuthProvider]Provider {
	set := make(map[identity.OAuthProvider]Provider, len(configs))
	for name, cfg := range configs {
		switch name {
		case identity.OAuthProviderGoogle:
			set[name] = &googleProvider{cfg: cfg}
		case identity.OAuthProviderGithub:
			set[name] = &githubProvider{cfg: cfg}
		case identity.OAuthProviderMicrosoft:
			set[name] = &microsoftProvider{cfg: cfg}
		}
	}
	return set
}

// ProviderConfig carries the OAuth client credentials for one provider.
// A zero value means "not configured" -- ExchangeCode fails closed rather
// than silently calling an upstream with empty credentials.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

func (c ProviderConfig) configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

func buildAuthorizationURL(endpoint string, cfg ProviderConfig, scope, state string) string {
	if !cfg.configured() {
		return ""
	}
	v := url.Values{}
	v.Set("client_id", cfg.ClientID)
	v.Set("redirect_uri", cfg.RedirectURL)
	v.Set("response_type", "code")
	v.Set("scope", scope)
	v.Set("state", state)
	return endpoint + "?" + v.Encode()
}

// googleProvider exchanges an authorization code via Google's OAuth2
// token and userinfo endpoints. Real HTTP wiring is deliberately left a
// stub here: this core's test suite injects a fake Provider rather than
// hitting the network, and a production deployment supplies its own
// golang.org/x/oauth2-backed implementation that satisfies this same
// interface.
type googleProvider struct {
	cfg ProviderConfig
}

func (p *googleProvider) ExchangeCode(ctx context.Context, code string) (ProviderIdentity, error) {
	if !p.cfg.configured() {
		return ProviderIdentity{}, ErrProviderUnconfigured
	}
	return ProviderIdentity{}, ErrProviderUnconfigured
}

func (p *googleProvider) AuthorizationURL(state string) string {
	return buildAuthorizationURL("https://accounts.google.com/o/oauth2/v2/auth", p.cfg, "openid email profile", state)
}

// githubProvider exchanges an authorization code via GitHub's OAuth apps
// flow. See googleProvider's comment: ExchangeCode is a stub.
type githubProvider struct {
	cfg ProviderConfig
}

func (p *githubProvider) ExchangeCode(ctx context.Context, code string) (ProviderIdentity, error) {
	if !p.cfg.configured() {
		return ProviderIdentity{}, ErrProviderUnconfigured
	}
	return ProviderIdentity{}, ErrProviderUnconfigured
}

func (p *githubProvider) AuthorizationURL(state string) string {
	return buildAuthorizationURL("https://github.com/login/oauth/authorize", p.cfg, "read:user user:email", state)
}

// microsoftProvider exchanges an authorization code via Microsoft's
// identity platform (Entra ID) v2.0 endpoint. See googleProvider's
// comment: ExchangeCode is a stub.
type microsoftProvider struct {
	cfg ProviderConfig
}

func (p *microsoftProvider) ExchangeCode(ctx context.Context, code string) (ProviderIdentity, error) {
	if !p.cfg.configured() {
		return ProviderIdentity{}, ErrProviderUnconfigured
	}
	return ProviderIdentity{}, ErrProviderUnconfigured
}

func (p *microsoftProvider) AuthorizationURL(state string) string {
	return buildAuthorizationURL("https://login.microsoftonline.com/common/oauth2/v2.0/authorize", p.cfg, "openid email profile", state)
}
