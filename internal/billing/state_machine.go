// Package billing implements C7: the subscription lifecycle state machine,
// payment retry scheduling, a deterministic payment-gateway double, and the
// idempotency-key cache mutating endpoints are required to honor.
package billing

import (
	"github.com/meridianhq/authcore/internal/errs"
	"github.com/meridianhq/authcore/internal/identity"
)

// retryThreshold is the retry_count at which a past_due subscription is
// pushed to unpaid and no further retries are scheduled (spec.md 4.7.1/4.7.2).
const retryThreshold = 3

// RetryDelays is the payment-retry schedule: day 1, day 3, day 7 after the
// original failure (spec.md 4.7.2). Index 0 is the first retry.
var RetryDelays = []int{1, 3, 7} // days

// transitions enumerates every allowed (from, to) edge of the subscription
// state machine (spec.md 4.7.1). Anything not listed here is rejected.
var transitions = map[identity.SubscriptionStatus]map[identity.SubscriptionStatus]bool{
	identity.SubscriptionTrialing: {
		identity.SubscriptionActive:   true,
		identity.SubscriptionCanceled: true,
	},
	identity.SubscriptionActive: {
		identity.SubscriptionPastDue:  true,
		identity.SubscriptionCanceled: true,
		identity.SubscriptionPaused:   true,
		// active -> active covers the soft-cancel (cancel_at_period_end=true)
		// case: status itself doesn't change, only the flag does.
		identity.SubscriptionActive: true,
	},
	identity.SubscriptionPastDue: {
		identity.SubscriptionActive: true,
		identity.SubscriptionUnpaid: true,
		identity.SubscriptionPaused: true,
		// past_due -> past_due covers a further failed payment below the
		// retry threshold: only retry_count changes (NextRetryState).
		identity.SubscriptionPastDue: true,
	},
	identity.SubscriptionPaused: {
		identity.SubscriptionActive: true,
	},
	identity.SubscriptionUnpaid:   {},
	identity.SubscriptionCanceled: {}, // terminal
}

// ValidateTransition reports whether from -> to is an allowed edge. canceled
// is terminal: no edge leaves it, matching the universally-quantified
// property in spec.md section 8.
func ValidateTransition(from, to identity.SubscriptionStatus) error {
	edges, known := transitions[from]
	if !known {
		return errs.New(errs.KindInvalidPlanTransition, "unknown subscription status")
	}
	if !edges[to] {
		return errs.New(errs.KindInvalidPlanTransition, "disallowed subscription transition")
	}
	return nil
}

// NextRetryState computes the post-failure status and retry_count given the
// current status and retry_count (spec.md 4.7.2): the first failure moves
// active -> past_due; the third failure (retryCount reaches 3) moves
// past_due -> unpaid and retries stop.
func NextRetryState(current identity.SubscriptionStatus, retryCount int) (identity.SubscriptionStatus, int) {
	newCount := retryCount + 1
	if newCount >= retryThreshold {
		return identity.SubscriptionUnpaid, newCount
	}
	return identity.SubscriptionPastDue, newCount
}

// ShouldRetryPayment reports whether another retry attempt should be
// scheduled for a subscription at the given status/retry_count.
func ShouldRetryPayment(status identity.SubscriptionStatus, retryCount int) bool {
	return status == identity.SubscriptionPastDue && retryCount < retryThreshold
}
