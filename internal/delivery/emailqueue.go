package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/meridianhq/authcore/internal/identity"
)

// emailMaxRetries is the number of retries consumed before a row is
// marked exhausted (spec.md section 4.8.1).
const emailMaxRetries = 3

// EmailRetryDelays: 1s, 5s, 30s, capped at 30s for any higher retry count
// (spec.md section 4.8.1).
var EmailRetryDelays = []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}

// EmailRetryDelayFor returns the delay before the given retry attempt
// (1-indexed), capping at the last entry in EmailRetryDelays.
func EmailRetryDelayFor(retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	idx := retryCount - 1
	if idx >= len(EmailRetryDelays) {
		idx = len(EmailRetryDelays) - 1
	}
	return EmailRetryDelays[idx]
}

// Mailer is the out-of-band send collaborator: a real implementation
// would be an SMTP client; tests substitute a double.
type Mailer interface {
	Send(ctx context.Context, row identity.EmailQueueRow) error
}

// HardBounceError, when returned by Mailer.Send, marks the row (and the
// recipient going forward, via suppressed) as bounced rather than
// retried, per spec.md section 4.8.1's "on a hard bounce... future sends
// to that address are skipped."
type HardBounceError struct {
	Reason string
}

func (e *HardBounceError) Error() string { return "hard bounce: " + e.Reason }

// Worker claims and attempts delivery of pending/retry-due rows one at a
// time, exactly mirroring the claim-attempt-transition loop spec.md
// section 4.8.1 describes; the store's ClaimPendingEmail implements the
// atomic pending->sending guard so two workers never double-send a row.
type Worker struct {
	store    identity.Store
	mailer   Mailer
	suppress map[string]bool
	clock    func() time.Time
}

func NewWorker(store identity.Store, mailer Mailer) *Worker {
	return &Worker{store: store, mailer: mailer, suppress: map[string]bool{}, clock: time.Now}
}

// ProcessOne claims a single due row and attempts delivery, returning
// identity.ErrNotFound if no row is currently due. It is intended to be
// called in a loop from cmd/emailworker.
func (w *Worker) ProcessOne(ctx context.Context) error {
	row, err := w.store.ClaimPendingEmail(ctx)
	if err != nil {
		return err
	}

	if w.suppress[row.Recipient] {
		return w.store.MarkEmailBounced(ctx, row.ID, "suppressed_recipient")
	}

	sendErr := w.mailer.Send(ctx, row)
	if sendErr == nil {
		return w.store.MarkEmailSent(ctx, row.ID)
	}

	if bounce, ok := sendErr.(*HardBounceError); ok {
		w.suppress[row.Recipient] = true
		return w.store.MarkEmailBounced(ctx, row.ID, bounce.Reason)
	}

	newRetryCount := row.RetryCount + 1
	if newRetryCount > emailMaxRetries {
		return w.store.MarkEmailExhausted(ctx, row.ID)
	}
	nextAt := w.clock().Add(EmailRetryDelayFor(newRetryCount)).Unix()
	return w.store.MarkEmailRetry(ctx, row.ID, newRetryCount, nextAt)
}

// Enqueue inserts a pending outbox row. It takes the store as an extra
// argument, so it does not itself satisfy internal/auth.Mailer;
// cmd/api's emailQueueMailer adapts it to that interface.
func Enqueue(ctx context.Context, store identity.Store, tenantID uuid.UUID, recipient, templateID string, payload map[string]string) error {
	return store.EnqueueEmail(ctx, identity.EmailQueueRow{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Recipient:   recipient,
		TemplateID:  templateID,
		Priority:    5,
		Status:      identity.EmailPending,
		ScheduledAt: time.Now(),
		Payload:     payload,
	})
}
