package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/meridianhq/authcore/internal/api/helpers"
	customMiddleware "github.com/meridianhq/authcore/internal/api/middleware"
	"github.com/meridianhq/authcore/internal/auth"
	"github.com/meridianhq/authcore/internal/identity"
	"github.com/meridianhq/authcore/internal/token"
)

// AuthHandler exposes C6 (registration, login, MFA, OAuth, password
// recovery) as chi routes. Every mutation decodes with DisallowUnknownFields
// (helpers.DecodeJSON) per the teacher's "input is toxic" convention, and
// every domain error funnels through helpers.WriteError so the wire
// envelope is always errs.Wire, never a raw message.
type AuthHandler struct {
	service *auth.Service
	log     *slog.Logger
}

func NewAuthHandler(service *auth.Service, log *slog.Logger) *AuthHandler {
	return &AuthHandler{service: service, log: log}
}

type registerRequest struct {
	TenantID uuid.UUID `json:"tenant_id"`
	Email    string    `json:"email"`
	Password string    `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.service.Register(r.Context(), req.TenantID, req.Email, req.Password)
	if err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	helpers.RespondJSON(w, http.StatusCreated, map[string]any{"user_id": user.ID, "email": user.Email})
}

type loginRequest struct {
	TenantID uuid.UUID `json:"tenant_id"`
	Email    string    `json:"email"`
	Password string    `json:"password"`
	TotpCode string    `json:"totp_code,omitempty"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := h.service.Login(r.Context(), req.TenantID, req.Email, req.Password, req.TotpCode)
	if err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, pair)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, tenantID, email, ok := h.callerIdentity(r)
	if !ok {
		helpers.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	roles, _ := customMiddleware.GetRoles(r.Context())
	claims := &token.Claims{
		TenantID:         tenantID,
		Email:            email,
		Roles:            roles,
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID.String()},
	}
	if err := h.service.Logout(r.Context(), userID, claims); err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	userID, tenantID, email, ok := h.callerIdentity(r)
	if !ok {
		helpers.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	roles, _ := customMiddleware.GetRoles(r.Context())

	var req refreshRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := h.service.RefreshSession(r.Context(), userID, req.RefreshToken, tenantID, email, roles)
	if err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, pair)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, tenantID, email, ok := h.callerIdentity(r)
	if !ok {
		helpers.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	roles, _ := customMiddleware.GetRoles(r.Context())
	helpers.RespondJSON(w, http.StatusOK, map[string]any{
		"user_id": userID, "tenant_id": tenantID, "email": email, "roles": roles,
	})
}

type enrollTotpRequest struct {
	Issuer string `json:"issuer"`
}

func (h *AuthHandler) EnrollTotp(w http.ResponseWriter, r *http.Request) {
	userID, tenantID, email, ok := h.callerIdentity(r)
	if !ok {
		helpers.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req enrollTotpRequest
	_ = helpers.DecodeJSON(r, &req)
	if req.Issuer == "" {
		req.Issuer = "authcore"
	}

	result, err := h.service.EnrollTotp(r.Context(), tenantID, userID, email, req.Issuer)
	if err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, result)
}

type verifyTotpRequest struct {
	Secret      string   `json:"secret"`
	Code        string   `json:"code"`
	BackupCodes []string `json:"backup_codes"`
}

func (h *AuthHandler) VerifyTotp(w http.ResponseWriter, r *http.Request) {
	userID, tenantID, _, ok := h.callerIdentity(r)
	if !ok {
		helpers.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req verifyTotpRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.service.VerifyTotp(r.Context(), tenantID, userID, req.Secret, req.Code, req.BackupCodes); err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) DisableTotp(w http.ResponseWriter, r *http.Request) {
	userID, tenantID, _, ok := h.callerIdentity(r)
	if !ok {
		helpers.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.service.DisableTotp(r.Context(), tenantID, userID); err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) RegenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	userID, tenantID, _, ok := h.callerIdentity(r)
	if !ok {
		helpers.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	codes, err := h.service.RegenerateBackupCodes(r.Context(), tenantID, userID)
	if err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, map[string]any{"backup_codes": codes})
}

type otpRequest struct {
	TenantID uuid.UUID `json:"tenant_id"`
	Email    string    `json:"email"`
	Purpose  string    `json:"purpose"`
	Code     string    `json:"code,omitempty"`
}

func (h *AuthHandler) SendOtp(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.service.SendOtp(r.Context(), req.TenantID, req.Email, req.Purpose); err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *AuthHandler) VerifyOtp(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.service.VerifyOtp(r.Context(), req.TenantID, req.Email, req.Purpose, req.Code); err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type requestResetRequest struct {
	TenantID uuid.UUID `json:"tenant_id"`
	Email    string    `json:"email"`
}

func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req requestResetRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.service.RequestReset(r.Context(), req.TenantID, req.Email); err != nil {
		h.log.Warn("password_reset_request_failed", "error", err)
	}
	w.WriteHeader(http.StatusAccepted)
}

type confirmResetRequest struct {
	TenantID    uuid.UUID `json:"tenant_id"`
	Token       string    `json:"token"`
	NewPassword string    `json:"new_password"`
}

func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req confirmResetRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.service.ConfirmReset(r.Context(), req.TenantID, req.Token, req.NewPassword); err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, tenantID, _, ok := h.callerIdentity(r)
	if !ok {
		helpers.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req changePasswordRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.service.ChangePassword(r.Context(), tenantID, userID, req.OldPassword, req.NewPassword); err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) InitiateOAuth(w http.ResponseWriter, r *http.Request) {
	tenantID, err := customMiddleware.GetTenantID(r.Context())
	if err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "missing tenant context")
		return
	}
	provider := identity.OAuthProvider(chi.URLParam(r, "provider"))
	url, err := h.service.InitiateOAuth(r.Context(), tenantID, provider)
	if err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, map[string]string{"authorization_url": url})
}

type oauthCallbackRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	provider := identity.OAuthProvider(chi.URLParam(r, "provider"))
	var req oauthCallbackRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	pair, err := h.service.HandleOAuthCallback(r.Context(), provider, req.Code, req.State)
	if err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, pair)
}

// callerIdentity reads (user_id, tenant_id, email) re-validated by
// AuthMiddleware out of the request context.
func (h *AuthHandler) callerIdentity(r *http.Request) (uuid.UUID, uuid.UUID, string, bool) {
	userID, err := customMiddleware.GetUserID(r.Context())
	if err != nil {
		return uuid.Nil, uuid.Nil, "", false
	}
	tenantID, _ := customMiddleware.GetTenantID(r.Context())
	email, _ := customMiddleware.GetEmail(r.Context())
	return userID, tenantID, email, true
}
