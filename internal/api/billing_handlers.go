package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/meridianhq/authcore/internal/api/helpers"
	customMiddleware "github.com/meridianhq/authcore/internal/api/middleware"
	"github.com/meridianhq/authcore/internal/billing"
	"github.com/meridianhq/authcore/internal/identity"
)

// BillingHandler exposes C7: subscription lifecycle, payment recording,
// and invoice/payment-method management. Every mutation here requires an
// Idempotency-Key header (spec.md section 4.7.3: "payment and subscription
// endpoints REQUIRE the header").
type BillingHandler struct {
	service     *billing.Service
	idempotency identity.IdempotencyStore
}

func NewBillingHandler(service *billing.Service, idempotency identity.IdempotencyStore) *BillingHandler {
	return &BillingHandler{service: service, idempotency: idempotency}
}

// idempotent runs fn exactly once per (tenant, user, Idempotency-Key)
// within the 24-hour window and writes whatever JSON body/status fn
// produces, replaying a cached response byte-for-byte on a repeated key.
func (h *BillingHandler) idempotent(w http.ResponseWriter, r *http.Request, fn func() (any, int, error)) {
	tenantID, err := customMiddleware.GetTenantID(r.Context())
	if err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "missing tenant context")
		return
	}
	userID, err := customMiddleware.GetUserID(r.Context())
	if err != nil {
		helpers.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	key := r.Header.Get("Idempotency-Key")
	if key == "" {
		helpers.RespondError(w, http.StatusBadRequest, "Idempotency-Key header is required")
		return
	}

	body, status, err := billing.Execute(r.Context(), h.idempotency, tenantID, userID, key, func() ([]byte, int, error) {
		result, status, err := fn()
		if err != nil {
			return nil, 0, err
		}
		raw, encErr := json.Marshal(result)
		if encErr != nil {
			return nil, 0, encErr
		}
		return raw, status, nil
	})
	if err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

type createSubscriptionRequest struct {
	PlanID      string `json:"plan_id"`
	AmountCents int64  `json:"amount_cents"`
	TrialDays   int    `json:"trial_days"`
}

func (h *BillingHandler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req createSubscriptionRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tenantID, _ := customMiddleware.GetTenantID(r.Context())

	h.idempotent(w, r, func() (any, int, error) {
		sub, err := h.service.CreateSubscription(r.Context(), tenantID, req.PlanID, req.AmountCents, req.TrialDays)
		return sub, http.StatusCreated, err
	})
}

func (h *BillingHandler) subscriptionID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

func (h *BillingHandler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := h.subscriptionID(r)
	if err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "invalid subscription id")
		return
	}
	h.idempotent(w, r, func() (any, int, error) {
		sub, err := h.service.CancelSubscription(r.Context(), id)
		return sub, http.StatusOK, err
	})
}

type cancelAtPeriodEndRequest struct {
	Cancel bool `json:"cancel"`
}

func (h *BillingHandler) SetCancelAtPeriodEnd(w http.ResponseWriter, r *http.Request) {
	id, err := h.subscriptionID(r)
	if err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "invalid subscription id")
		return
	}
	var req cancelAtPeriodEndRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.idempotent(w, r, func() (any, int, error) {
		sub, err := h.service.SetCancelAtPeriodEnd(r.Context(), id, req.Cancel)
		return sub, http.StatusOK, err
	})
}

func (h *BillingHandler) PauseSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := h.subscriptionID(r)
	if err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "invalid subscription id")
		return
	}
	h.idempotent(w, r, func() (any, int, error) {
		sub, err := h.service.Pause(r.Context(), id)
		return sub, http.StatusOK, err
	})
}

func (h *BillingHandler) ResumeSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := h.subscriptionID(r)
	if err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "invalid subscription id")
		return
	}
	h.idempotent(w, r, func() (any, int, error) {
		sub, err := h.service.Resume(r.Context(), id)
		return sub, http.StatusOK, err
	})
}

func (h *BillingHandler) RecordPaymentSuccess(w http.ResponseWriter, r *http.Request) {
	id, err := h.subscriptionID(r)
	if err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "invalid subscription id")
		return
	}
	h.idempotent(w, r, func() (any, int, error) {
		sub, err := h.service.RecordPaymentSuccess(r.Context(), id)
		return sub, http.StatusOK, err
	})
}

func (h *BillingHandler) RecordPaymentFailure(w http.ResponseWriter, r *http.Request) {
	id, err := h.subscriptionID(r)
	if err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "invalid subscription id")
		return
	}
	h.idempotent(w, r, func() (any, int, error) {
		sub, err := h.service.RecordPaymentFailure(r.Context(), id)
		return sub, http.StatusOK, err
	})
}

type addPaymentMethodRequest struct {
	CustomerID string `json:"customer_id"`
}

func (h *BillingHandler) AddPaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req addPaymentMethodRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tenantID, _ := customMiddleware.GetTenantID(r.Context())
	h.idempotent(w, r, func() (any, int, error) {
		pm, err := h.service.AddPaymentMethod(r.Context(), tenantID, req.CustomerID)
		return pm, http.StatusCreated, err
	})
}

func (h *BillingHandler) DetachPaymentMethod(w http.ResponseWriter, r *http.Request) {
	processorID := chi.URLParam(r, "processorID")
	h.idempotent(w, r, func() (any, int, error) {
		if err := h.service.DetachPaymentMethod(r.Context(), processorID); err != nil {
			return nil, 0, err
		}
		return map[string]string{"status": "detached"}, http.StatusOK, nil
	})
}

func (h *BillingHandler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	var ids []uuid.UUID
	for _, raw := range r.URL.Query()["invoice_id"] {
		id, err := uuid.Parse(raw)
		if err != nil {
			helpers.RespondError(w, http.StatusBadRequest, "invalid invoice_id")
			return
		}
		ids = append(ids, id)
	}
	invoices, err := h.service.ListInvoices(r.Context(), ids)
	if err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, invoices)
}
