package delivery_test

import (
	"testing"

	"github.com/meridianhq/authcore/internal/delivery"
	"github.com/stretchr/testify/assert"
)

func TestValidateWebhookUrl_RejectsPrivateAndLocalTargets(t *testing.T) {
	rejected := []string{
		"http://localhost/hook",
		"http://127.0.0.1/hook",
		"http://10.1.2.3/hook",
		"http://192.168.1.1/hook",
		"http://172.16.0.5/hook",
		"http://172.31.255.255/hook",
		"http://169.254.169.254/latest/meta-data",
		"https://api.github.com:9999/hook",
		"ftp://example.com/hook",
		"gopher://example.com/hook",
		"file:///etc/passwd",
		"://missing-scheme",
	}
	for _, u := range rejected {
		assert.Error(t, delivery.ValidateWebhookUrl(u), "expected rejection for %s", u)
	}
}

func TestValidateWebhookUrl_AcceptsPublicHostsOnAllowedPorts(t *testing.T) {
	accepted := []string{
		"https://api.github.com/repos/x/y/dispatches",
		"http://example.com:8080/hook",
		"https://example.com:8443/hook",
		"https://example.com/hook",
	}
	for _, u := range accepted {
		assert.NoError(t, delivery.ValidateWebhookUrl(u), "expected accept for %s", u)
	}
}

func TestValidateWebhookUrl_TrailingDotLocalhostIsNotRejected(t *testing.T) {
	// Pinned per DESIGN.md: string-based check does not strip a trailing
	// dot, so "localhost." is a distinct string from the blocklist entry.
	assert.NoError(t, delivery.ValidateWebhookUrl("http://localhost./hook"))
}

func TestWebhookSignature_RoundTripAndTamperDetection(t *testing.T) {
	payload := []byte(`{"event":"subscription.created"}`)
	sig := delivery.SignWebhookPayload(payload, "s")
	assert.Len(t, sig, 64)
	assert.True(t, delivery.VerifyWebhookSignature(payload, "s", sig))

	tampered := []byte(`{"event":"subscription.created!"}`)
	assert.False(t, delivery.VerifyWebhookSignature(tampered, "s", sig))
}
