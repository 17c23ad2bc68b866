package api

import (
	"net/http"

	"github.com/meridianhq/authcore/internal/api/helpers"
	customMiddleware "github.com/meridianhq/authcore/internal/api/middleware"
	"github.com/meridianhq/authcore/internal/delivery"
)

// WebhookHandler exposes C8's tenant-facing webhook endpoint registration.
// It does not deliver webhooks; delivery is internal/delivery's
// WebhookDispatcher.Deliver, which no route or cmd/ binary calls.
type WebhookHandler struct {
	dispatcher *delivery.WebhookDispatcher
}

func NewWebhookHandler(dispatcher *delivery.WebhookDispatcher) *WebhookHandler {
	return &WebhookHandler{dispatcher: dispatcher}
}

type createWebhookEndpointRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

// CreateWebhookEndpoint validates the target URL against the SSRF
// blocklist (spec.md section 4.8.2) before persisting, returning the
// signing secret exactly once.
func (h *WebhookHandler) CreateWebhookEndpoint(w http.ResponseWriter, r *http.Request) {
	tenantID, err := customMiddleware.GetTenantID(r.Context())
	if err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "missing tenant context")
		return
	}
	var req createWebhookEndpointRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	endpoint, err := h.dispatcher.CreateWebhookEndpoint(r.Context(), tenantID, req.URL, req.Events)
	if err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	helpers.RespondJSON(w, http.StatusCreated, map[string]any{
		"id":     endpoint.ID,
		"url":    endpoint.URL,
		"secret": endpoint.Secret,
		"events": endpoint.Events,
	})
}
