package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/meridianhq/authcore/internal/audit"
	"github.com/meridianhq/authcore/internal/authcrypto"
	"github.com/meridianhq/authcore/internal/errs"
	"github.com/meridianhq/authcore/internal/identity"
)

// webhookFailureThreshold is the number of consecutive delivery failures
// after which an endpoint is auto-disabled (spec.md section 4.8.3/§3).
const webhookFailureThreshold = 10

// WebhookRetryDelays is the delivery retry schedule: 1s, 5s, 30s, 5min,
// 30min; the 6th attempt and beyond reuse the final (30min) delay
// (spec.md section 4.8.3).
var WebhookRetryDelays = []time.Duration{
	time.Second, 5 * time.Second, 30 * time.Second, 5 * time.Minute, 30 * time.Minute,
}

// RetryDelayFor returns the delay before attempt N (1-indexed), capping at
// the final entry in WebhookRetryDelays for any attempt beyond its length.
func RetryDelayFor(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	idx := attempt - 1
	if idx >= len(WebhookRetryDelays) {
		idx = len(WebhookRetryDelays) - 1
	}
	return WebhookRetryDelays[idx]
}

// SignWebhookPayload returns the lowercase hex HMAC-SHA256 digest of
// payload under the endpoint's secret (spec.md section 4.8.3).
func SignWebhookPayload(payload []byte, secret string) string {
	return authcrypto.HmacSha256Hex(payload, secret)
}

// VerifyWebhookSignature performs a constant-time check that signature is
// the correct HMAC of payload under secret.
func VerifyWebhookSignature(payload []byte, secret, signature string) bool {
	return authcrypto.VerifyHmacSha256Hex(payload, secret, signature)
}

// Transport delivers a signed webhook request. Production wiring would use
// net/http with the 10s outbound timeout from spec.md section 5; tests and
// local development use LoggingTransport.
type Transport interface {
	Deliver(ctx context.Context, url string, payload []byte, signature string) (statusCode int, err error)
}

// LoggingTransport records every delivery without making a network call,
// standing in for the teacher's notify.DevMailer pattern of "write what
// would have been sent" for environments with no real outbound transport.
type LoggingTransport struct {
	Delivered []LoggedDelivery
}

// LoggedDelivery captures a single Deliver invocation for test assertions.
type LoggedDelivery struct {
	URL       string
	Payload   []byte
	Signature string
}

func (t *LoggingTransport) Deliver(ctx context.Context, url string, payload []byte, signature string) (int, error) {
	t.Delivered = append(t.Delivered, LoggedDelivery{URL: url, Payload: payload, Signature: signature})
	return 200, nil
}

// WebhookDispatcher sends signed webhook deliveries, tracks consecutive
// failures, and auto-disables an endpoint after webhookFailureThreshold
// (spec.md section 4.8.3).
type WebhookDispatcher struct {
	store     identity.Store
	transport Transport
	audit     audit.Logger
}

func NewWebhookDispatcher(store identity.Store, transport Transport, auditLogger audit.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{store: store, transport: transport, audit: auditLogger}
}

// CreateWebhookEndpoint validates the URL (spec.md section 4.8.2) before
// persisting, returning the secret once (it is never retrievable again).
func (d *WebhookDispatcher) CreateWebhookEndpoint(ctx context.Context, tenantID uuid.UUID, url string, events []string) (identity.WebhookEndpoint, error) {
	if err := ValidateWebhookUrl(url); err != nil {
		d.audit.Log(ctx, audit.EventWebhookRejected, audit.LogParams{
			TenantID: tenantID,
			Metadata: map[string]string{"url": url},
		})
		return identity.WebhookEndpoint{}, err
	}

	secret, err := authcrypto.GenerateSecureToken(32)
	if err != nil {
		return identity.WebhookEndpoint{}, err
	}
	endpoint := identity.WebhookEndpoint{
		ID:       uuid.New(),
		TenantID: tenantID,
		URL:      url,
		Events:   events,
		Secret:   secret,
	}
	if err := d.store.CreateWebhookEndpoint(ctx, endpoint); err != nil {
		return identity.WebhookEndpoint{}, err
	}
	return endpoint, nil
}

// Deliver re-validates the endpoint's URL (SSRF rules can change between
// creation and delivery time -- spec.md section 4.8.2: "URL passes SSRF
// validation at creation and each delivery"), signs payload, and sends it.
// On failure it increments the endpoint's consecutive-failure counter and
// disables it once the threshold is reached; on success the counter resets.
func (d *WebhookDispatcher) Deliver(ctx context.Context, endpointID uuid.UUID, payload []byte) error {
	endpoint, err := d.store.GetWebhookEndpoint(ctx, endpointID)
	if err != nil {
		return err
	}
	if endpoint.DisabledAt != nil {
		return errs.New(errs.KindWebhookUrlRejected, "webhook endpoint is disabled")
	}
	if err := ValidateWebhookUrl(endpoint.URL); err != nil {
		_, _ = d.store.RecordWebhookFailure(ctx, endpointID)
		return err
	}

	signature := SignWebhookPayload(payload, endpoint.Secret)
	status, err := d.transport.Deliver(ctx, endpoint.URL, payload, signature)
	if err != nil || status >= 300 {
		failures, recErr := d.store.RecordWebhookFailure(ctx, endpointID)
		if recErr == nil && failures >= webhookFailureThreshold {
			d.audit.Log(ctx, audit.EventWebhookRejected, audit.LogParams{
				TenantID: endpoint.TenantID,
				Metadata: map[string]string{"endpoint_id": endpointID.String(), "reason": "auto_disabled"},
			})
		}
		if err != nil {
			return err
		}
		return errs.New(errs.KindDeliveryExhausted, "webhook delivery returned non-2xx status")
	}

	return d.store.RecordWebhookSuccess(ctx, endpointID)
}
