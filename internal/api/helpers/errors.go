package helpers

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/meridianhq/authcore/internal/errs"
)

// statusFor maps a domain error Kind to the HTTP status the edge layer
// exposes it as. Every handler funnels domain errors through WriteError
// rather than inventing its own status code per call site.
func statusFor(kind errs.Kind) int {
	if errs.IsAuthentication(kind) {
		return http.StatusUnauthorized
	}
	switch kind {
	case errs.KindApiKeyInvalid, errs.KindApiKeyRevoked, errs.KindScopeDenied,
		errs.KindTenantMismatch, errs.KindPermissionDenied:
		return http.StatusForbidden
	case errs.KindSubscriptionNotFound:
		return http.StatusNotFound
	case errs.KindInvalidPlanTransition, errs.KindInvoiceAlreadyPaid,
		errs.KindWebhookUrlRejected, errs.KindWebhookSignatureBad:
		return http.StatusConflict
	case errs.KindPaymentMethodDeclined, errs.KindInsufficientFunds,
		errs.KindCardExpired, errs.KindProcessorError, errs.KindRefundFailed:
		return http.StatusPaymentRequired
	case errs.KindTemplateNotFound:
		return http.StatusNotFound
	case errs.KindDeliveryExhausted, errs.KindEmailRateLimited, errs.KindHardBounce:
		return http.StatusUnprocessableEntity
	case errs.KindStoreTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// WriteError translates err to the uniform wire envelope (spec.md section
// 6/7) and writes it with the matching HTTP status. The correlation id is
// chi's per-request id, so a client error report and a server log line
// can always be joined on it.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	correlationID := middleware.GetReqID(r.Context())
	wire := errs.Translate(err, correlationID)
	status := http.StatusInternalServerError
	if de, ok := err.(*errs.Error); ok {
		status = statusFor(de.Kind)
	}
	RespondJSON(w, status, wire)
}
