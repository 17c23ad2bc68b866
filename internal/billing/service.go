package billing

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/meridianhq/authcore/internal/audit"
	"github.com/meridianhq/authcore/internal/errs"
	"github.com/meridianhq/authcore/internal/identity"
)

// storeTimeout bounds every identity-store call this service makes
// (spec.md section 5: "5s C3").
const storeTimeout = 5 * time.Second

// gatewayTimeout bounds every outbound gateway call (spec.md section 5:
// "10s outbound").
const gatewayTimeout = 10 * time.Second

// Service implements C7 over the identity store (C3), a Gateway
// collaborator, and the idempotency cache.
type Service struct {
	store       identity.Store
	idempotency identity.IdempotencyStore
	gateway     Gateway
	audit       audit.Logger
	clock       func() time.Time
}

// NewService wires C7.
func NewService(store identity.Store, idempotency identity.IdempotencyStore, gateway Gateway, auditLogger audit.Logger) *Service {
	return &Service{store: store, idempotency: idempotency, gateway: gateway, audit: auditLogger, clock: time.Now}
}

// CreateSubscription provisions a gateway customer+subscription and
// persists the local Subscription row in trialing (trialDays>0) or active
// (trialDays==0) state.
func (s *Service) CreateSubscription(ctx context.Context, tenantID uuid.UUID, planID string, amountCents int64, trialDays int) (identity.Subscription, error) {
	gctx, cancel := context.WithTimeout(ctx, gatewayTimeout)
	defer cancel()
	customerID, err := s.gateway.CreateCustomer(gctx, tenantID.String())
	if err != nil {
		return identity.Subscription{}, errs.New(errs.KindProcessorError, "gateway customer creation failed")
	}
	gatewaySubID, err := s.gateway.CreateSubscription(gctx, customerID, planID, trialDays)
	if err != nil {
		return identity.Subscription{}, errs.New(errs.KindProcessorError, "gateway subscription creation failed")
	}

	now := s.clock()
	status := identity.SubscriptionActive
	var trialEnd *time.Time
	if trialDays > 0 {
		status = identity.SubscriptionTrialing
		t := now.AddDate(0, 0, trialDays)
		trialEnd = &t
	}

	sub := identity.Subscription{
		ID:                 uuid.New(),
		TenantID:           tenantID,
		CustomerID:         customerID,
		PlanID:             planID,
		Status:             status,
		AmountCents:        amountCents,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.AddDate(0, 1, 0),
		TrialEnd:           trialEnd,
	}

	sctx, scancel := context.WithTimeout(ctx, storeTimeout)
	defer scancel()
	if err := s.store.CreateSubscription(sctx, sub); err != nil {
		return identity.Subscription{}, err
	}

	s.audit.Log(ctx, audit.EventSubscriptionMut, audit.LogParams{
		TenantID: tenantID,
		Metadata: map[string]string{"gateway_subscription_id": gatewaySubID, "status": string(status)},
	})
	return sub, nil
}

// transition loads the subscription, validates from->to against the state
// machine, and applies the compare-and-set store update under SERIALIZABLE
// isolation (enforced by the store implementation; spec.md section 4.7.1).
func (s *Service) transition(ctx context.Context, subscriptionID uuid.UUID, to identity.SubscriptionStatus, retryCount int) (identity.Subscription, error) {
	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	sub, err := s.store.GetSubscription(sctx, subscriptionID)
	if err != nil {
		return identity.Subscription{}, errs.New(errs.KindSubscriptionNotFound, "subscription not found")
	}
	if err := ValidateTransition(sub.Status, to); err != nil {
		return identity.Subscription{}, err
	}
	if err := s.store.UpdateSubscriptionStatus(sctx, subscriptionID, sub.Status, to, retryCount); err != nil {
		return identity.Subscription{}, err
	}
	sub.Status = to
	sub.RetryCount = retryCount

	s.audit.Log(ctx, audit.EventSubscriptionMut, audit.LogParams{
		TenantID: sub.TenantID,
		Metadata: map[string]string{"subscription_id": subscriptionID.String(), "status": string(to)},
	})
	return sub, nil
}

// CancelSubscription immediately cancels a subscription (the "hard cancel"
// edge of spec.md section 4.7.1), regardless of cancel_at_period_end.
func (s *Service) CancelSubscription(ctx context.Context, subscriptionID uuid.UUID) (identity.Subscription, error) {
	return s.transition(ctx, subscriptionID, identity.SubscriptionCanceled, 0)
}

// SetCancelAtPeriodEnd implements the soft-cancel edge: status stays
// active, only the flag is set; a background sweep (SweepPeriodEndCancels)
// later transitions the subscription to canceled once its period ends.
func (s *Service) SetCancelAtPeriodEnd(ctx context.Context, subscriptionID uuid.UUID, cancel bool) (identity.Subscription, error) {
	sctx, scancel := context.WithTimeout(ctx, storeTimeout)
	defer scancel()
	sub, err := s.store.GetSubscription(sctx, subscriptionID)
	if err != nil {
		return identity.Subscription{}, errs.New(errs.KindSubscriptionNotFound, "subscription not found")
	}
	if sub.Status == identity.SubscriptionCanceled {
		return identity.Subscription{}, errs.New(errs.KindInvalidPlanTransition, "subscription already canceled")
	}
	if err := ValidateTransition(sub.Status, sub.Status); err != nil {
		return identity.Subscription{}, err
	}
	if err := s.store.UpdateSubscriptionStatus(sctx, subscriptionID, sub.Status, sub.Status, sub.RetryCount); err != nil {
		return identity.Subscription{}, err
	}
	sub.CancelAtPeriodEnd = cancel
	return sub, nil
}

// SweepPeriodEndCancels transitions every subscription with
// cancel_at_period_end=true whose CurrentPeriodEnd has passed to canceled.
// Intended to be invoked periodically (e.g. from cmd/worker).
func (s *Service) SweepPeriodEndCancels(ctx context.Context, subs []identity.Subscription) []uuid.UUID {
	now := s.clock()
	var canceled []uuid.UUID
	for _, sub := range subs {
		if !sub.CancelAtPeriodEnd || sub.Status == identity.SubscriptionCanceled {
			continue
		}
		if now.Before(sub.CurrentPeriodEnd) {
			continue
		}
		if _, err := s.transition(ctx, sub.ID, identity.SubscriptionCanceled, sub.RetryCount); err == nil {
			canceled = append(canceled, sub.ID)
		}
	}
	return canceled
}

// Pause transitions an active or past_due subscription to paused.
func (s *Service) Pause(ctx context.Context, subscriptionID uuid.UUID) (identity.Subscription, error) {
	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	sub, err := s.store.GetSubscription(sctx, subscriptionID)
	if err != nil {
		return identity.Subscription{}, errs.New(errs.KindSubscriptionNotFound, "subscription not found")
	}
	return s.transition(ctx, subscriptionID, identity.SubscriptionPaused, sub.RetryCount)
}

// Resume transitions a paused subscription back to active.
func (s *Service) Resume(ctx context.Context, subscriptionID uuid.UUID) (identity.Subscription, error) {
	return s.transition(ctx, subscriptionID, identity.SubscriptionActive, 0)
}

// RecordPaymentSuccess moves a past_due (or active, trivially) subscription
// to active and resets retry_count, per a successful gateway collection.
func (s *Service) RecordPaymentSuccess(ctx context.Context, subscriptionID uuid.UUID) (identity.Subscription, error) {
	return s.transition(ctx, subscriptionID, identity.SubscriptionActive, 0)
}

// RecordPaymentFailure implements spec.md section 4.7.2: the first failure
// moves active -> past_due with retry_count=1; the third failure
// (retry_count reaching 3) moves past_due -> unpaid and stops retrying.
func (s *Service) RecordPaymentFailure(ctx context.Context, subscriptionID uuid.UUID) (identity.Subscription, error) {
	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	sub, err := s.store.GetSubscription(sctx, subscriptionID)
	if err != nil {
		return identity.Subscription{}, errs.New(errs.KindSubscriptionNotFound, "subscription not found")
	}

	gctx, gcancel := context.WithTimeout(ctx, gatewayTimeout)
	defer gcancel()
	_ = s.gateway.RecordPaymentFailure(gctx, sub.CustomerID)

	newStatus, newCount := NextRetryState(sub.Status, sub.RetryCount)
	result, err := s.transition(ctx, subscriptionID, newStatus, newCount)
	if err != nil {
		return identity.Subscription{}, err
	}

	s.audit.Log(ctx, audit.EventPaymentFailed, audit.LogParams{
		TenantID: sub.TenantID,
		Metadata: map[string]string{
			"subscription_id": subscriptionID.String(),
			"retry_count":     strconv.Itoa(newCount),
			"status":          string(newStatus),
		},
	})
	return result, nil
}

// AddPaymentMethod tokenizes and attaches a new payment method via the
// gateway, then records it as the customer's default on file.
func (s *Service) AddPaymentMethod(ctx context.Context, tenantID uuid.UUID, customerID string) (identity.PaymentMethod, error) {
	gctx, cancel := context.WithTimeout(ctx, gatewayTimeout)
	defer cancel()
	pmID, err := s.gateway.CreatePaymentMethod(gctx, customerID)
	if err != nil {
		return identity.PaymentMethod{}, errs.New(errs.KindPaymentMethodDeclined, "payment method creation failed")
	}
	if err := s.gateway.AttachPaymentMethod(gctx, customerID, pmID); err != nil {
		return identity.PaymentMethod{}, errs.New(errs.KindPaymentMethodDeclined, "payment method attach failed")
	}

	pm := identity.PaymentMethod{
		ID:          uuid.New(),
		TenantID:    tenantID,
		CustomerID:  customerID,
		ProcessorID: pmID,
	}
	sctx, scancel := context.WithTimeout(ctx, storeTimeout)
	defer scancel()
	if err := s.store.UpsertPaymentMethod(sctx, pm); err != nil {
		return identity.PaymentMethod{}, err
	}
	return pm, nil
}

// DetachPaymentMethod detaches a payment method at the gateway. The local
// record is left in place for historical invoices to reference; callers
// that need hard deletion should also clear it from the store.
func (s *Service) DetachPaymentMethod(ctx context.Context, processorID string) error {
	gctx, cancel := context.WithTimeout(ctx, gatewayTimeout)
	defer cancel()
	if err := s.gateway.DetachPaymentMethod(gctx, processorID); err != nil {
		return errs.New(errs.KindPaymentMethodDeclined, "payment method detach failed")
	}
	return nil
}

// ListInvoices returns every invoice for a subscription. The store
// interface exposes single-invoice lookups; callers supply the id list
// (typically drawn from an index maintained alongside CreateInvoice).
func (s *Service) ListInvoices(ctx context.Context, invoiceIDs []uuid.UUID) ([]identity.Invoice, error) {
	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	invoices := make([]identity.Invoice, 0, len(invoiceIDs))
	for _, id := range invoiceIDs {
		inv, err := s.store.GetInvoice(sctx, id)
		if err != nil {
			continue
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}

// GetUsage is a placeholder metering hook: this core has no usage-metered
// plans, so it reports zero. Kept as a named operation since spec.md
// section 6 lists it among the exposed billing surface.
func (s *Service) GetUsage(ctx context.Context, subscriptionID uuid.UUID) (int64, error) {
	return 0, nil
}

