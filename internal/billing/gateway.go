package billing

import (
	"context"
	"fmt"
	"sync"

	"github.com/meridianhq/authcore/internal/authcrypto"
	"github.com/meridianhq/authcore/internal/errs"
)

// InvoiceResult is the outcome of attempting to collect an invoice.
type InvoiceResult struct {
	InvoiceID string
	Succeeded bool
}

// Gateway is the payment-processor collaborator contract (spec.md section
// 6): every method a real processor (Stripe-shaped) would expose, kept
// narrow to what the billing state machine actually drives.
type Gateway interface {
	CreateCustomer(ctx context.Context, tenantID string) (customerID string, err error)
	CreateSubscription(ctx context.Context, customerID, planID string, trialDays int) (subscriptionID string, err error)
	CreatePaymentMethod(ctx context.Context, customerID string) (paymentMethodID string, err error)
	AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error
	DetachPaymentMethod(ctx context.Context, paymentMethodID string) error
	CreateInvoice(ctx context.Context, subscriptionID string, amountCents int64) (invoiceID string, err error)
	FinalizeInvoice(ctx context.Context, invoiceID string) error
	PayInvoice(ctx context.Context, invoiceID string) (InvoiceResult, error)
	RecordPaymentFailure(ctx context.Context, subscriptionID string) error
	ShouldRetryPayment(ctx context.Context, subscriptionID string) (bool, error)
}

// FakeGateway is a deterministic in-memory double standing in for a real
// processor: no network calls, a tunable SuccessProbability, and an
// injectable RNG so tests can pin the exact sequence of outcomes (spec.md
// section 6: "a tunable success probability for testing"). Its state
// machine and retry contract mirror the invariants a real gateway must
// also satisfy, so it is core, not a mock.
type FakeGateway struct {
	// SuccessProbability in [0,1]; PayInvoice succeeds with this
	// probability. NewFakeGateway sets it to 1 (always succeeds).
	SuccessProbability float64
	Rand               authcrypto.Rand

	mu        sync.Mutex
	customers map[string]bool
	paymentMs map[string]string // paymentMethodID -> customerID
	invoices  map[string]int64  // invoiceID -> amountCents
	retries   map[string]int    // subscriptionID -> failure count this billing cycle
	seq       int
}

// NewFakeGateway constructs a FakeGateway that always succeeds unless
// overridden via SuccessProbability/Rand after construction.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		SuccessProbability: 1,
		Rand:               authcrypto.SystemRand,
		customers:          map[string]bool{},
		paymentMs:          map[string]string{},
		invoices:           map[string]int64{},
		retries:            map[string]int{},
	}
}

func (g *FakeGateway) nextID(prefix string) string {
	g.seq++
	return fmt.Sprintf("%s_%d", prefix, g.seq)
}

func (g *FakeGateway) CreateCustomer(ctx context.Context, tenantID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextID("cus")
	g.customers[id] = true
	return id, nil
}

func (g *FakeGateway) CreateSubscription(ctx context.Context, customerID, planID string, trialDays int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.customers[customerID] {
		return "", errs.New(errs.KindSubscriptionNotFound, "unknown customer")
	}
	return g.nextID("sub"), nil
}

func (g *FakeGateway) CreatePaymentMethod(ctx context.Context, customerID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nextID("pm"), nil
}

func (g *FakeGateway) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.customers[customerID] {
		return errs.New(errs.KindSubscriptionNotFound, "unknown customer")
	}
	g.paymentMs[paymentMethodID] = customerID
	return nil
}

func (g *FakeGateway) DetachPaymentMethod(ctx context.Context, paymentMethodID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.paymentMs[paymentMethodID]; !ok {
		return errs.New(errs.KindPaymentMethodDeclined, "unknown payment method")
	}
	delete(g.paymentMs, paymentMethodID)
	return nil
}

func (g *FakeGateway) CreateInvoice(ctx context.Context, subscriptionID string, amountCents int64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextID("in")
	g.invoices[id] = amountCents
	return id, nil
}

func (g *FakeGateway) FinalizeInvoice(ctx context.Context, invoiceID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.invoices[invoiceID]; !ok {
		return errs.New(errs.KindInvoiceAlreadyPaid, "unknown invoice")
	}
	return nil
}

// PayInvoice succeeds with probability SuccessProbability, sampled from a
// single byte read off Rand so callers can inject a fixed RNG stream to pin
// an exact outcome sequence deterministically.
func (g *FakeGateway) PayInvoice(ctx context.Context, invoiceID string) (InvoiceResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.invoices[invoiceID]; !ok {
		return InvoiceResult{}, errs.New(errs.KindInvoiceAlreadyPaid, "unknown invoice")
	}

	prob := g.SuccessProbability
	if prob < 0 {
		prob = 0
	} else if prob > 1 {
		prob = 1
	}
	rng := g.Rand
	if rng == nil {
		rng = authcrypto.SystemRand
	}
	var b [1]byte
	if _, err := rng.Read(b[:]); err != nil {
		return InvoiceResult{}, errs.New(errs.KindProcessorError, "rng failure")
	}
	roll := float64(b[0]) / 256.0
	succeeded := roll < prob

	return InvoiceResult{InvoiceID: invoiceID, Succeeded: succeeded}, nil
}

func (g *FakeGateway) RecordPaymentFailure(ctx context.Context, subscriptionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.retries[subscriptionID]++
	return nil
}

func (g *FakeGateway) ShouldRetryPayment(ctx context.Context, subscriptionID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.retries[subscriptionID] < retryThreshold, nil
}
