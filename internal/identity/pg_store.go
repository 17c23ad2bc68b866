package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meridianhq/authcore/internal/audit"
)

// PgStore implements Store over a pgxpool.Pool, converting to and from
// pgtype.UUID/pgtype.Timestamptz/pgtype.Text at this layer so callers
// only see plain Go types.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: id != uuid.Nil}
}

func pgUUIDPtr(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgUUID(*id)
}

func fromPgUUID(u pgtype.UUID) uuid.UUID {
	if !u.Valid {
		return uuid.Nil
	}
	return uuid.UUID(u.Bytes)
}

func pgText(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func fromPgText(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

func pgTime(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func fromPgTime(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func (s *PgStore) CreateTenant(ctx context.Context, t Tenant) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tenants (id, name, slug, created_at) VALUES ($1, $2, $3, $4)`,
		pgUUID(t.ID), t.Name, t.Slug, t.CreatedAt)
	return wrapConflict(err)
}

func (s *PgStore) GetTenantByID(ctx context.Context, id uuid.UUID) (Tenant, error) {
	var t Tenant
	var pid pgtype.UUID
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, slug, created_at FROM tenants WHERE id = $1`, pgUUID(id),
	).Scan(&pid, &t.Name, &t.Slug, &t.CreatedAt)
	if err != nil {
		return Tenant{}, wrapNotFound(err)
	}
	t.ID = fromPgUUID(pid)
	return t, nil
}

func (s *PgStore) CreateUser(ctx context.Context, u User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, tenant_id, email, password_hash, totp_secret, totp_enabled, roles, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		pgUUID(u.ID), pgUUID(u.TenantID), u.Email, pgText(u.PasswordHash), pgText(u.TotpSecret),
		u.TotpEnabled, u.Roles, u.CreatedAt, u.UpdatedAt)
	return wrapConflict(err)
}

func (s *PgStore) scanUser(row pgx.Row) (User, error) {
	var u User
	var id, tenantID pgtype.UUID
	var passwordHash, totpSecret pgtype.Text
	var deletedAt pgtype.Timestamptz
	err := row.Scan(&id, &tenantID, &u.Email, &passwordHash, &totpSecret,
		&u.TotpEnabled, &u.Roles, &u.CreatedAt, &u.UpdatedAt, &deletedAt)
	if err != nil {
		return User{}, err
	}
	u.ID = fromPgUUID(id)
	u.TenantID = fromPgUUID(tenantID)
	u.PasswordHash = fromPgText(passwordHash)
	u.TotpSecret = fromPgText(totpSecret)
	u.DeletedAt = fromPgTime(deletedAt)
	return u, nil
}

const userColumns = `id, tenant_id, email, password_hash, totp_secret, totp_enabled, roles, created_at, updated_at, deleted_at`

func (s *PgStore) GetUserByEmail(ctx context.Context, tenantID uuid.UUID, email string) (User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE tenant_id = $1 AND email = $2 AND deleted_at IS NULL`,
		pgUUID(tenantID), email)
	u, err := s.scanUser(row)
	return u, wrapNotFound(err)
}

func (s *PgStore) GetUserByID(ctx context.Context, tenantID, userID uuid.UUID) (User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`,
		pgUUID(tenantID), pgUUID(userID))
	u, err := s.scanUser(row)
	return u, wrapNotFound(err)
}

func (s *PgStore) GetUserByVerifiedEmail(ctx context.Context, tenantID uuid.UUID, email string) (User, error) {
	return s.GetUserByEmail(ctx, tenantID, email)
}

func (s *PgStore) UpdatePasswordHash(ctx context.Context, userID uuid.UUID, hash string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`, hash, pgUUID(userID))
	return err
}

func (s *PgStore) SetTotpSecret(ctx context.Context, userID uuid.UUID, secret string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE users SET totp_secret = $1, updated_at = now() WHERE id = $2`, secret, pgUUID(userID))
	return err
}

func (s *PgStore) EnableTotp(ctx context.Context, userID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE users SET totp_enabled = true, updated_at = now() WHERE id = $1`, pgUUID(userID))
	return err
}

func (s *PgStore) DisableTotp(ctx context.Context, userID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE users SET totp_enabled = false, totp_secret = NULL, updated_at = now() WHERE id = $1`, pgUUID(userID))
	return err
}

func (s *PgStore) SoftDeleteUser(ctx context.Context, userID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE users SET deleted_at = now(), updated_at = now() WHERE id = $1`, pgUUID(userID))
	return err
}

func (s *PgStore) CreateOAuthAccount(ctx context.Context, a OAuthAccount) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO oauth_accounts (id, user_id, provider, provider_user_id, encrypted_access_token, encrypted_refresh_token, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		pgUUID(a.ID), pgUUID(a.UserID), string(a.Provider), a.ProviderUserID,
		a.EncryptedAccessToken, a.EncryptedRefreshToken, a.CreatedAt)
	return wrapConflict(err)
}

func (s *PgStore) GetOAuthAccount(ctx context.Context, provider OAuthProvider, providerUserID string) (OAuthAccount, error) {
	var a OAuthAccount
	var id, userID pgtype.UUID
	var providerStr string
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, provider, provider_user_id, encrypted_access_token, encrypted_refresh_token, created_at
		 FROM oauth_accounts WHERE provider = $1 AND provider_user_id = $2`,
		string(provider), providerUserID,
	).Scan(&id, &userID, &providerStr, &a.ProviderUserID, &a.EncryptedAccessToken, &a.EncryptedRefreshToken, &a.CreatedAt)
	if err != nil {
		return OAuthAccount{}, wrapNotFound(err)
	}
	a.ID = fromPgUUID(id)
	a.UserID = fromPgUUID(userID)
	a.Provider = OAuthProvider(providerStr)
	return a, nil
}

func (s *PgStore) ReplaceBackupCodes(ctx context.Context, userID uuid.UUID, hashes []string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM backup_codes WHERE user_id = $1`, pgUUID(userID)); err != nil {
		return err
	}
	for _, h := range hashes {
		if _, err := tx.Exec(ctx,
			`INSERT INTO backup_codes (id, user_id, hash) VALUES ($1,$2,$3)`,
			pgUUID(uuid.New()), pgUUID(userID), h); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *PgStore) GetBackupCode(ctx context.Context, userID uuid.UUID, hash string) (BackupCode, error) {
	var bc BackupCode
	var id, uid pgtype.UUID
	var usedAt pgtype.Timestamptz
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, hash, used_at FROM backup_codes WHERE user_id = $1 AND hash = $2 AND used_at IS NULL`,
		pgUUID(userID), hash,
	).Scan(&id, &uid, &bc.Hash, &usedAt)
	if err != nil {
		return BackupCode{}, wrapNotFound(err)
	}
	bc.ID = fromPgUUID(id)
	bc.UserID = fromPgUUID(uid)
	bc.UsedAt = fromPgTime(usedAt)
	return bc, nil
}

func (s *PgStore) ConsumeBackupCode(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE backup_codes SET used_at = now() WHERE id = $1 AND used_at IS NULL`, pgUUID(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict // already consumed: at-most-once violated by caller
	}
	return nil
}

func (s *PgStore) CreateApiKey(ctx context.Context, k ApiKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, tenant_id, user_id, prefix, hash, scopes, created_at, expires_at, revoked_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		pgUUID(k.ID), pgUUID(k.TenantID), pgUUID(k.UserID), k.Prefix, k.Hash, k.Scopes,
		k.CreatedAt, pgTime(k.ExpiresAt), pgTime(k.RevokedAt))
	return wrapConflict(err)
}

func (s *PgStore) GetApiKeyByPrefix(ctx context.Context, prefix string) (ApiKey, error) {
	var k ApiKey
	var id, tenantID, userID pgtype.UUID
	var expiresAt, revokedAt pgtype.Timestamptz
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, user_id, prefix, hash, scopes, created_at, expires_at, revoked_at
		 FROM api_keys WHERE prefix = $1`, prefix,
	).Scan(&id, &tenantID, &userID, &k.Prefix, &k.Hash, &k.Scopes, &k.CreatedAt, &expiresAt, &revokedAt)
	if err != nil {
		return ApiKey{}, wrapNotFound(err)
	}
	k.ID = fromPgUUID(id)
	k.TenantID = fromPgUUID(tenantID)
	k.UserID = fromPgUUID(userID)
	k.ExpiresAt = fromPgTime(expiresAt)
	k.RevokedAt = fromPgTime(revokedAt)
	return k, nil
}

func (s *PgStore) RevokeApiKey(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE api_keys SET revoked_at = now() WHERE id = $1`, pgUUID(id))
	return err
}

func (s *PgStore) CreateSubscription(ctx context.Context, sub Subscription) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO subscriptions (id, tenant_id, customer_id, plan_id, status, amount_cents,
		 current_period_start, current_period_end, trial_end, cancel_at_period_end, retry_count)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		pgUUID(sub.ID), pgUUID(sub.TenantID), sub.CustomerID, sub.PlanID, string(sub.Status),
		sub.AmountCents, sub.CurrentPeriodStart, sub.CurrentPeriodEnd, pgTime(sub.TrialEnd),
		sub.CancelAtPeriodEnd, sub.RetryCount)
	return wrapConflict(err)
}

func (s *PgStore) GetSubscription(ctx context.Context, id uuid.UUID) (Subscription, error) {
	var sub Subscription
	var sid, tenantID pgtype.UUID
	var status string
	var trialEnd pgtype.Timestamptz
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, customer_id, plan_id, status, amount_cents,
		 current_period_start, current_period_end, trial_end, cancel_at_period_end, retry_count
		 FROM subscriptions WHERE id = $1`, pgUUID(id),
	).Scan(&sid, &tenantID, &sub.CustomerID, &sub.PlanID, &status, &sub.AmountCents,
		&sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &trialEnd, &sub.CancelAtPeriodEnd, &sub.RetryCount)
	if err != nil {
		return Subscription{}, wrapNotFound(err)
	}
	sub.ID = fromPgUUID(sid)
	sub.TenantID = fromPgUUID(tenantID)
	sub.Status = SubscriptionStatus(status)
	sub.TrialEnd = fromPgTime(trialEnd)
	return sub, nil
}

// UpdateSubscriptionStatus runs as a SERIALIZABLE transaction per
// spec.md section 4.3's requirement for financial mutations, applying a
// compare-and-set on the previous status so a lost race is detectable.
func (s *PgStore) UpdateSubscriptionStatus(ctx context.Context, id uuid.UUID, expectedStatus, newStatus SubscriptionStatus, retryCount int) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE subscriptions SET status = $1, retry_count = $2 WHERE id = $3 AND status = $4`,
		string(newStatus), retryCount, pgUUID(id), string(expectedStatus))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return tx.Commit(ctx)
}

// ListSubscriptionsDueForCancel fetches every subscription flagged for
// end-of-period cancellation that hasn't already transitioned, so the
// caller can filter on CurrentPeriodEnd itself (avoids a NOW() dependency
// inside the query, matching billing.Service's injectable clock).
func (s *PgStore) ListSubscriptionsDueForCancel(ctx context.Context) ([]Subscription, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, customer_id, plan_id, status, amount_cents,
		 current_period_start, current_period_end, trial_end, cancel_at_period_end, retry_count
		 FROM subscriptions WHERE cancel_at_period_end = true AND status != $1`,
		string(SubscriptionCanceled))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []Subscription
	for rows.Next() {
		var sub Subscription
		var sid, tenantID pgtype.UUID
		var status string
		var trialEnd pgtype.Timestamptz
		if err := rows.Scan(&sid, &tenantID, &sub.CustomerID, &sub.PlanID, &status, &sub.AmountCents,
			&sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &trialEnd, &sub.CancelAtPeriodEnd, &sub.RetryCount); err != nil {
			return nil, err
		}
		sub.ID = fromPgUUID(sid)
		sub.TenantID = fromPgUUID(tenantID)
		sub.Status = SubscriptionStatus(status)
		sub.TrialEnd = fromPgTime(trialEnd)
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *PgStore) CreateInvoice(ctx context.Context, inv Invoice) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO invoices (id, subscription_id, amount_due_cents, amount_paid_cents, status, created_at, due_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		pgUUID(inv.ID), pgUUID(inv.SubscriptionID), inv.AmountDueCents, inv.AmountPaidCents,
		string(inv.Status), inv.CreatedAt, inv.DueAt)
	return wrapConflict(err)
}

func (s *PgStore) GetInvoice(ctx context.Context, id uuid.UUID) (Invoice, error) {
	var inv Invoice
	var iid, subID pgtype.UUID
	var status string
	err := s.pool.QueryRow(ctx,
		`SELECT id, subscription_id, amount_due_cents, amount_paid_cents, status, created_at, due_at
		 FROM invoices WHERE id = $1`, pgUUID(id),
	).Scan(&iid, &subID, &inv.AmountDueCents, &inv.AmountPaidCents, &status, &inv.CreatedAt, &inv.DueAt)
	if err != nil {
		return Invoice{}, wrapNotFound(err)
	}
	inv.ID = fromPgUUID(iid)
	inv.SubscriptionID = fromPgUUID(subID)
	inv.Status = InvoiceStatus(status)
	return inv, nil
}

func (s *PgStore) UpdateInvoiceStatus(ctx context.Context, id uuid.UUID, status InvoiceStatus, amountPaidCents int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE invoices SET status = $1, amount_paid_cents = $2 WHERE id = $3`,
		string(status), amountPaidCents, pgUUID(id))
	return err
}

func (s *PgStore) UpsertPaymentMethod(ctx context.Context, pm PaymentMethod) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO payment_methods (id, tenant_id, customer_id, processor_id, brand, last4, expires_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 ON CONFLICT (customer_id) DO UPDATE SET processor_id = $4, brand = $5, last4 = $6, expires_at = $7`,
		pgUUID(pm.ID), pgUUID(pm.TenantID), pm.CustomerID, pm.ProcessorID, pm.Brand, pm.Last4, pm.ExpiresAt)
	return err
}

func (s *PgStore) GetPaymentMethod(ctx context.Context, customerID string) (PaymentMethod, error) {
	var pm PaymentMethod
	var id, tenantID pgtype.UUID
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, customer_id, processor_id, brand, last4, expires_at
		 FROM payment_methods WHERE customer_id = $1`, customerID,
	).Scan(&id, &tenantID, &pm.CustomerID, &pm.ProcessorID, &pm.Brand, &pm.Last4, &pm.ExpiresAt)
	if err != nil {
		return PaymentMethod{}, wrapNotFound(err)
	}
	pm.ID = fromPgUUID(id)
	pm.TenantID = fromPgUUID(tenantID)
	return pm, nil
}

func (s *PgStore) EnqueueEmail(ctx context.Context, row EmailQueueRow) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO email_queue (id, tenant_id, recipient, template_id, priority, status, retry_count, scheduled_at, bounce_type, payload)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		pgUUID(row.ID), pgUUID(row.TenantID), row.Recipient, row.TemplateID, row.Priority,
		string(row.Status), row.RetryCount, row.ScheduledAt, pgText(row.BounceType), row.Payload)
	return err
}

// ClaimPendingEmail uses SELECT ... FOR UPDATE SKIP LOCKED so concurrent
// workers never double-claim the same row, then flips it to sending --
// the "at most one worker holds row in sending" invariant from
// spec.md section 3.
func (s *PgStore) ClaimPendingEmail(ctx context.Context) (EmailQueueRow, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return EmailQueueRow{}, err
	}
	defer tx.Rollback(ctx)

	var row EmailQueueRow
	var id, tenantID pgtype.UUID
	var status string
	var bounceType pgtype.Text
	err = tx.QueryRow(ctx,
		`SELECT id, tenant_id, recipient, template_id, priority, status, retry_count, scheduled_at, bounce_type, payload
		 FROM email_queue
		 WHERE status IN ('pending','retry') AND scheduled_at <= now()
		 ORDER BY priority DESC, scheduled_at ASC
		 FOR UPDATE SKIP LOCKED LIMIT 1`,
	).Scan(&id, &tenantID, &row.Recipient, &row.TemplateID, &row.Priority, &status,
		&row.RetryCount, &row.ScheduledAt, &bounceType, &row.Payload)
	if err != nil {
		return EmailQueueRow{}, wrapNotFound(err)
	}

	if _, err := tx.Exec(ctx, `UPDATE email_queue SET status = 'sending' WHERE id = $1`, id); err != nil {
		return EmailQueueRow{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return EmailQueueRow{}, err
	}

	row.ID = fromPgUUID(id)
	row.TenantID = fromPgUUID(tenantID)
	row.Status = EmailSending
	row.BounceType = fromPgText(bounceType)
	return row, nil
}

func (s *PgStore) MarkEmailSent(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE email_queue SET status = 'sent' WHERE id = $1`, pgUUID(id))
	return err
}

func (s *PgStore) MarkEmailRetry(ctx context.Context, id uuid.UUID, retryCount int, scheduledAtUnix int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE email_queue SET status = 'retry', retry_count = $1, scheduled_at = to_timestamp($2) WHERE id = $3`,
		retryCount, scheduledAtUnix, pgUUID(id))
	return err
}

func (s *PgStore) MarkEmailExhausted(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE email_queue SET status = 'exhausted' WHERE id = $1`, pgUUID(id))
	return err
}

func (s *PgStore) MarkEmailBounced(ctx context.Context, id uuid.UUID, bounceType string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE email_queue SET status = 'bounced', bounce_type = $1 WHERE id = $2`, bounceType, pgUUID(id))
	return err
}

func (s *PgStore) CreateWebhookEndpoint(ctx context.Context, w WebhookEndpoint) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO webhook_endpoints (id, tenant_id, url, events, secret, consecutive_failures, disabled_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		pgUUID(w.ID), pgUUID(w.TenantID), w.URL, w.Events, w.Secret, w.ConsecutiveFailures, pgTime(w.DisabledAt))
	return err
}

func (s *PgStore) GetWebhookEndpoint(ctx context.Context, id uuid.UUID) (WebhookEndpoint, error) {
	var w WebhookEndpoint
	var wid, tenantID pgtype.UUID
	var disabledAt pgtype.Timestamptz
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, url, events, secret, consecutive_failures, disabled_at
		 FROM webhook_endpoints WHERE id = $1`, pgUUID(id),
	).Scan(&wid, &tenantID, &w.URL, &w.Events, &w.Secret, &w.ConsecutiveFailures, &disabledAt)
	if err != nil {
		return WebhookEndpoint{}, wrapNotFound(err)
	}
	w.ID = fromPgUUID(wid)
	w.TenantID = fromPgUUID(tenantID)
	w.DisabledAt = fromPgTime(disabledAt)
	return w, nil
}

// RecordWebhookFailure increments the consecutive-failure counter and
// auto-disables the endpoint at 10, per spec.md section 3.
func (s *PgStore) RecordWebhookFailure(ctx context.Context, id uuid.UUID) (int, error) {
	var failures int
	err := s.pool.QueryRow(ctx,
		`UPDATE webhook_endpoints SET consecutive_failures = consecutive_failures + 1,
		 disabled_at = CASE WHEN consecutive_failures + 1 >= 10 THEN now() ELSE disabled_at END
		 WHERE id = $1 RETURNING consecutive_failures`, pgUUID(id),
	).Scan(&failures)
	return failures, err
}

func (s *PgStore) RecordWebhookSuccess(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE webhook_endpoints SET consecutive_failures = 0 WHERE id = $1`, pgUUID(id))
	return err
}

func (s *PgStore) RecordAuditEntry(ctx context.Context, entry audit.Entry) error {
	parse := func(s string) pgtype.UUID {
		id, err := uuid.Parse(s)
		if err != nil {
			return pgtype.UUID{}
		}
		return pgUUID(id)
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_logs (action, actor_id, target_id, tenant_id, session_id, metadata)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		string(entry.Action), parse(entry.ActorID), parse(entry.TargetID), parse(entry.TenantID),
		parse(entry.SessionID), entry.MetadataJSON)
	return err
}

func wrapNotFound(err error) error {
	if err == nil {
		return nil
	}
	if err == pgx.ErrNoRows {
		return ErrNotFound
	}
	return err
}

func wrapConflict(err error) error {
	if err == nil {
		return nil
	}
	// pgx surfaces unique-violation as *pgconn.PgError with Code 23505;
	// checked by string match here to avoid an extra import for the one
	// field this package needs.
	if pgErr, ok := asPgError(err); ok && pgErr == "23505" {
		return ErrConflict
	}
	return err
}

type pgErrorCoder interface {
	SQLState() string
}

func asPgError(err error) (string, bool) {
	if pe, ok := err.(pgErrorCoder); ok {
		return pe.SQLState(), true
	}
	return "", false
}
