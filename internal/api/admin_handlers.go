package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/meridianhq/authcore/internal/api/helpers"
	customMiddleware "github.com/meridianhq/authcore/internal/api/middleware"
	"github.com/meridianhq/authcore/internal/auth"
	"github.com/meridianhq/authcore/internal/authcrypto"
	"github.com/meridianhq/authcore/internal/authz"
	"github.com/meridianhq/authcore/internal/identity"
)

// AdminHandler exposes tenant provisioning and C5 API key issuance, gated
// behind AuthMiddleware + RequireRole(RoleAdmin).
type AdminHandler struct {
	service *auth.Service
	store   identity.Store
	hasher  *authcrypto.Argon2idHasher
}

func NewAdminHandler(service *auth.Service, store identity.Store, hasher *authcrypto.Argon2idHasher) *AdminHandler {
	return &AdminHandler{service: service, store: store, hasher: hasher}
}

type createTenantRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (h *AdminHandler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tenant, err := h.service.CreateTenant(r.Context(), req.Name, req.Slug)
	if err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	helpers.RespondJSON(w, http.StatusCreated, tenant)
}

type issueApiKeyRequest struct {
	Scopes    []string   `json:"scopes"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// IssueApiKey implements C5: mints a prefix+secret key pair, hashes the
// secret half with the same Argon2id hasher used for passwords, and
// returns the plaintext exactly once (spec.md section 4.5.1).
func (h *AdminHandler) IssueApiKey(w http.ResponseWriter, r *http.Request) {
	userID, err := customMiddleware.GetUserID(r.Context())
	if err != nil {
		helpers.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	tenantID, _ := customMiddleware.GetTenantID(r.Context())

	var req issueApiKeyRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	issued, err := authz.IssueApiKey(h.hasher)
	if err != nil {
		helpers.WriteError(w, r, err)
		return
	}

	key := identity.ApiKey{
		ID:        uuid.New(),
		TenantID:  tenantID,
		UserID:    userID,
		Prefix:    issued.Prefix,
		Hash:      issued.HashedKey,
		Scopes:    req.Scopes,
		CreatedAt: time.Now(),
		ExpiresAt: req.ExpiresAt,
	}
	if err := h.store.CreateApiKey(r.Context(), key); err != nil {
		helpers.WriteError(w, r, err)
		return
	}

	helpers.RespondJSON(w, http.StatusCreated, map[string]any{
		"api_key": issued.Plaintext,
		"prefix":  issued.Prefix,
		"scopes":  req.Scopes,
	})
}

func (h *AdminHandler) RevokeApiKey(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "invalid api key id")
		return
	}
	if err := h.store.RevokeApiKey(r.Context(), id); err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
