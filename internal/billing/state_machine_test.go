package billing_test

import (
	"testing"

	"github.com/meridianhq/authcore/internal/billing"
	"github.com/meridianhq/authcore/internal/identity"
	"github.com/stretchr/testify/assert"
)

func TestValidateTransition_AllowedEdges(t *testing.T) {
	cases := []struct {
		from, to identity.SubscriptionStatus
	}{
		{identity.SubscriptionTrialing, identity.SubscriptionActive},
		{identity.SubscriptionTrialing, identity.SubscriptionCanceled},
		{identity.SubscriptionActive, identity.SubscriptionPastDue},
		{identity.SubscriptionPastDue, identity.SubscriptionActive},
		{identity.SubscriptionPastDue, identity.SubscriptionUnpaid},
		{identity.SubscriptionActive, identity.SubscriptionCanceled},
		{identity.SubscriptionActive, identity.SubscriptionPaused},
		{identity.SubscriptionPastDue, identity.SubscriptionPaused},
		{identity.SubscriptionPaused, identity.SubscriptionActive},
	}
	for _, c := range cases {
		assert.NoError(t, billing.ValidateTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestValidateTransition_CanceledIsTerminal(t *testing.T) {
	for _, to := range []identity.SubscriptionStatus{
		identity.SubscriptionTrialing, identity.SubscriptionActive, identity.SubscriptionPastDue,
		identity.SubscriptionUnpaid, identity.SubscriptionPaused,
	} {
		assert.Error(t, billing.ValidateTransition(identity.SubscriptionCanceled, to))
	}
}

func TestValidateTransition_RejectsUnknownEdges(t *testing.T) {
	assert.Error(t, billing.ValidateTransition(identity.SubscriptionUnpaid, identity.SubscriptionActive))
	assert.Error(t, billing.ValidateTransition(identity.SubscriptionTrialing, identity.SubscriptionPastDue))
}

func TestNextRetryState_ThreeFailuresReachUnpaid(t *testing.T) {
	status, count := billing.NextRetryState(identity.SubscriptionActive, 0)
	assert.Equal(t, identity.SubscriptionPastDue, status)
	assert.Equal(t, 1, count)
	assert.True(t, billing.ShouldRetryPayment(status, count))

	status, count = billing.NextRetryState(status, count)
	assert.Equal(t, identity.SubscriptionPastDue, status)
	assert.Equal(t, 2, count)
	assert.True(t, billing.ShouldRetryPayment(status, count))

	status, count = billing.NextRetryState(status, count)
	assert.Equal(t, identity.SubscriptionUnpaid, status)
	assert.Equal(t, 3, count)
	assert.False(t, billing.ShouldRetryPayment(status, count))
}
