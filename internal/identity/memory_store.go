package identity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meridianhq/authcore/internal/audit"
)

// MemoryStore is an in-process Store used by C6/C7/C8 unit tests so they
// don't require a live Postgres instance. It enforces the same
// uniqueness and at-most-once invariants as PgStore, just without SQL.
type MemoryStore struct {
	mu sync.Mutex

	tenants   map[uuid.UUID]Tenant
	users     map[uuid.UUID]User
	oauth     map[string]OAuthAccount // keyed by provider+":"+providerUserID
	backups   map[uuid.UUID][]BackupCode
	apiKeys   map[string]ApiKey // keyed by prefix
	subs      map[uuid.UUID]Subscription
	invoices  map[uuid.UUID]Invoice
	payments  map[string]PaymentMethod // keyed by customer id
	emails    map[uuid.UUID]EmailQueueRow
	webhooks  map[uuid.UUID]WebhookEndpoint
	auditLog  []audit.Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants:  map[uuid.UUID]Tenant{},
		users:    map[uuid.UUID]User{},
		oauth:    map[string]OAuthAccount{},
		backups:  map[uuid.UUID][]BackupCode{},
		apiKeys:  map[string]ApiKey{},
		subs:     map[uuid.UUID]Subscription{},
		invoices: map[uuid.UUID]Invoice{},
		payments: map[string]PaymentMethod{},
		emails:   map[uuid.UUID]EmailQueueRow{},
		webhooks: map[uuid.UUID]WebhookEndpoint{},
	}
}

func (m *MemoryStore) CreateTenant(ctx context.Context, t Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenants[t.ID] = t
	return nil
}

func (m *MemoryStore) GetTenantByID(ctx context.Context, id uuid.UUID) (Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[id]
	if !ok {
		return Tenant{}, ErrNotFound
	}
	return t, nil
}

func (m *MemoryStore) CreateUser(ctx context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.TenantID == u.TenantID && existing.Email == u.Email && existing.DeletedAt == nil {
			return ErrConflict
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, tenantID uuid.UUID, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.TenantID == tenantID && u.Email == email && u.DeletedAt == nil {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *MemoryStore) GetUserByID(ctx context.Context, tenantID, userID uuid.UUID) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok || u.TenantID != tenantID || u.DeletedAt != nil {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *MemoryStore) GetUserByVerifiedEmail(ctx context.Context, tenantID uuid.UUID, email string) (User, error) {
	return m.GetUserByEmail(ctx, tenantID, email)
}

func (m *MemoryStore) UpdatePasswordHash(ctx context.Context, userID uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = &hash
	m.users[userID] = u
	return nil
}

func (m *MemoryStore) SetTotpSecret(ctx context.Context, userID uuid.UUID, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.TotpSecret = &secret
	m.users[userID] = u
	return nil
}

func (m *MemoryStore) EnableTotp(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.TotpEnabled = true
	m.users[userID] = u
	return nil
}

func (m *MemoryStore) DisableTotp(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.TotpEnabled = false
	u.TotpSecret = nil
	m.users[userID] = u
	return nil
}

func (m *MemoryStore) SoftDeleteUser(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	now := u.UpdatedAt
	u.DeletedAt = &now
	m.users[userID] = u
	return nil
}

func oauthKey(provider OAuthProvider, providerUserID string) string {
	return string(provider) + ":" + providerUserID
}

func (m *MemoryStore) CreateOAuthAccount(ctx context.Context, a OAuthAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := oauthKey(a.Provider, a.ProviderUserID)
	if _, exists := m.oauth[key]; exists {
		return ErrConflict
	}
	m.oauth[key] = a
	return nil
}

func (m *MemoryStore) GetOAuthAccount(ctx context.Context, provider OAuthProvider, providerUserID string) (OAuthAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.oauth[oauthKey(provider, providerUserID)]
	if !ok {
		return OAuthAccount{}, ErrNotFound
	}
	return a, nil
}

func (m *MemoryStore) ReplaceBackupCodes(ctx context.Context, userID uuid.UUID, hashes []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	codes := make([]BackupCode, 0, len(hashes))
	for _, h := range hashes {
		codes = append(codes, BackupCode{ID: uuid.New(), UserID: userID, Hash: h})
	}
	m.backups[userID] = codes
	return nil
}

func (m *MemoryStore) GetBackupCode(ctx context.Context, userID uuid.UUID, hash string) (BackupCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.backups[userID] {
		if c.Hash == hash && c.UsedAt == nil {
			return c, nil
		}
	}
	return BackupCode{}, ErrNotFound
}

func (m *MemoryStore) ConsumeBackupCode(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for userID, codes := range m.backups {
		for i, c := range codes {
			if c.ID == id {
				if c.UsedAt != nil {
					return ErrConflict
				}
				t := time.Now()
				codes[i].UsedAt = &t
				m.backups[userID] = codes
				return nil
			}
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) CreateApiKey(ctx context.Context, k ApiKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.apiKeys[k.Prefix]; exists {
		return ErrConflict
	}
	m.apiKeys[k.Prefix] = k
	return nil
}

func (m *MemoryStore) GetApiKeyByPrefix(ctx context.Context, prefix string) (ApiKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.apiKeys[prefix]
	if !ok {
		return ApiKey{}, ErrNotFound
	}
	return k, nil
}

func (m *MemoryStore) RevokeApiKey(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for prefix, k := range m.apiKeys {
		if k.ID == id {
			t := time.Now()
			k.RevokedAt = &t
			m.apiKeys[prefix] = k
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) CreateSubscription(ctx context.Context, s Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[s.ID] = s
	return nil
}

func (m *MemoryStore) GetSubscription(ctx context.Context, id uuid.UUID) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return Subscription{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) UpdateSubscriptionStatus(ctx context.Context, id uuid.UUID, expectedStatus, newStatus SubscriptionStatus, retryCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return ErrNotFound
	}
	if s.Status != expectedStatus {
		return ErrConflict
	}
	s.Status = newStatus
	s.RetryCount = retryCount
	m.subs[id] = s
	return nil
}

func (m *MemoryStore) ListSubscriptionsDueForCancel(ctx context.Context) ([]Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []Subscription
	for _, s := range m.subs {
		if s.CancelAtPeriodEnd && s.Status != SubscriptionCanceled {
			due = append(due, s)
		}
	}
	return due, nil
}

func (m *MemoryStore) CreateInvoice(ctx context.Context, inv Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoices[inv.ID] = inv
	return nil
}

func (m *MemoryStore) GetInvoice(ctx context.Context, id uuid.UUID) (Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return Invoice{}, ErrNotFound
	}
	return inv, nil
}

func (m *MemoryStore) UpdateInvoiceStatus(ctx context.Context, id uuid.UUID, status InvoiceStatus, amountPaidCents int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return ErrNotFound
	}
	inv.Status = status
	inv.AmountPaidCents = amountPaidCents
	m.invoices[id] = inv
	return nil
}

func (m *MemoryStore) UpsertPaymentMethod(ctx context.Context, pm PaymentMethod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[pm.CustomerID] = pm
	return nil
}

func (m *MemoryStore) GetPaymentMethod(ctx context.Context, customerID string) (PaymentMethod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pm, ok := m.payments[customerID]
	if !ok {
		return PaymentMethod{}, ErrNotFound
	}
	return pm, nil
}

func (m *MemoryStore) EnqueueEmail(ctx context.Context, row EmailQueueRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emails[row.ID] = row
	return nil
}

func (m *MemoryStore) ClaimPendingEmail(ctx context.Context) (EmailQueueRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for id, row := range m.emails {
		if (row.Status == EmailPending || row.Status == EmailRetry) && !row.ScheduledAt.After(now) {
			row.Status = EmailSending
			m.emails[id] = row
			return row, nil
		}
	}
	return EmailQueueRow{}, ErrNotFound
}

func (m *MemoryStore) MarkEmailSent(ctx context.Context, id uuid.UUID) error {
	return m.setEmailStatus(id, EmailSent)
}

func (m *MemoryStore) MarkEmailRetry(ctx context.Context, id uuid.UUID, retryCount int, scheduledAtUnix int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.emails[id]
	if !ok {
		return ErrNotFound
	}
	row.Status = EmailRetry
	row.RetryCount = retryCount
	m.emails[id] = row
	return nil
}

func (m *MemoryStore) MarkEmailExhausted(ctx context.Context, id uuid.UUID) error {
	return m.setEmailStatus(id, EmailExhausted)
}

func (m *MemoryStore) MarkEmailBounced(ctx context.Context, id uuid.UUID, bounceType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.emails[id]
	if !ok {
		return ErrNotFound
	}
	row.Status = EmailBounced
	row.BounceType = &bounceType
	m.emails[id] = row
	return nil
}

func (m *MemoryStore) setEmailStatus(id uuid.UUID, status EmailQueueStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.emails[id]
	if !ok {
		return ErrNotFound
	}
	row.Status = status
	m.emails[id] = row
	return nil
}

func (m *MemoryStore) CreateWebhookEndpoint(ctx context.Context, w WebhookEndpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.webhooks[w.ID] = w
	return nil
}

func (m *MemoryStore) GetWebhookEndpoint(ctx context.Context, id uuid.UUID) (WebhookEndpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.webhooks[id]
	if !ok {
		return WebhookEndpoint{}, ErrNotFound
	}
	return w, nil
}

func (m *MemoryStore) RecordWebhookFailure(ctx context.Context, id uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.webhooks[id]
	if !ok {
		return 0, ErrNotFound
	}
	w.ConsecutiveFailures++
	if w.ConsecutiveFailures >= 10 && w.DisabledAt == nil {
		t := time.Now()
		w.DisabledAt = &t
	}
	m.webhooks[id] = w
	return w.ConsecutiveFailures, nil
}

func (m *MemoryStore) RecordWebhookSuccess(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.webhooks[id]
	if !ok {
		return ErrNotFound
	}
	w.ConsecutiveFailures = 0
	m.webhooks[id] = w
	return nil
}

func (m *MemoryStore) RecordAuditEntry(ctx context.Context, entry audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auditLog = append(m.auditLog, entry)
	return nil
}

// AuditEntries exposes recorded entries for test assertions.
func (m *MemoryStore) AuditEntries() []audit.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]audit.Entry, len(m.auditLog))
	copy(out, m.auditLog)
	return out
}
