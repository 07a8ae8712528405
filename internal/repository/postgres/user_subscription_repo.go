// internal/repository/postgres/user_subscription_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bundl-service/internal/domain/subscription"
	xerrors "bundl-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
)

// UserSubscriptionRepository is the single writer of subscription state. Every
// transition is a guarded compare-and-set: the WHERE clause restates the
// expected prior state, and zero affected rows means a concurrent writer won.
type UserSubscriptionRepository struct {
	db *pgxpool.Pool
}

func NewUserSubscriptionRepository(db *pgxpool.Pool) *UserSubscriptionRepository {
	return &UserSubscriptionRepository{db: db}
}

// UpsertIntended creates the (user, bundle) ledger row in the intended state,
// or revives a terminal one. An existing row in any non-revivable state keeps
// its document untouched and the call fails with ErrConflict.
func (r *UserSubscriptionRepository) UpsertIntended(ctx context.Context, userID, bundleID string) (*subscription.UserSubscription, error) {
	query := `
		INSERT INTO user_subscriptions (
			id, user_id, bundle_id, status, subscribe_date, next_payment_date,
			invoices, claimed_packages
		) VALUES ($1, $2, $3, 'intended', NOW(), NOW(), '[]'::jsonb, '[]'::jsonb)
		ON CONFLICT (user_id, bundle_id) DO UPDATE
		SET status = 'intended', subscribe_date = NOW(), next_payment_date = NOW(),
		    updated_at = NOW()
		WHERE user_subscriptions.status = ANY($4)
		RETURNING ` + subscriptionColumns
	sub, err := scanSubscription(r.db.QueryRow(ctx, query,
		ulid.Make().String(), userID, bundleID, statusStrings(subscription.RevivableStatuses())))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("subscription for bundle %s already exists: %w", bundleID, xerrors.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return sub, nil
}

// AppendPendingInvoice is the atomic claim of a billing attempt. The guard
// requires a pull-eligible status and no pending invoice anywhere in the
// ledger, so of N concurrent pulls exactly one appends; losers get
// ErrInvalidState before anything reaches the network.
func (r *UserSubscriptionRepository) AppendPendingInvoice(ctx context.Context, subscriptionID string, invoice subscription.Invoice) error {
	invoiceJSON, err := json.Marshal(invoice)
	if err != nil {
		return fmt.Errorf("failed to marshal invoice: %w", err)
	}

	query := `
		UPDATE user_subscriptions
		SET invoices = invoices || $2::jsonb, updated_at = NOW()
		WHERE id = $1
		  AND status = ANY($3)
		  AND NOT (invoices @> $4::jsonb)
	`
	tag, err := r.db.Exec(ctx, query, subscriptionID, invoiceJSON,
		statusStrings(subscription.PullEligibleStatuses()), pendingInvoiceGuard())
	if err != nil {
		return fmt.Errorf("failed to append pending invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("subscription %s has a payment in flight or is not billable: %w",
			subscriptionID, xerrors.ErrInvalidState)
	}
	return nil
}

// CompleteLastInvoice marks the trailing pending invoice paid, appends the
// successful attempt to its history, and advances status and next payment
// date in the same statement.
func (r *UserSubscriptionRepository) CompleteLastInvoice(
	ctx context.Context,
	subscriptionID string,
	entry subscription.PaymentHistoryEntry,
	newStatus subscription.Status,
	nextPaymentDate time.Time,
) error {
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal payment history entry: %w", err)
	}

	query := `
		UPDATE user_subscriptions
		SET invoices = jsonb_set(
		        jsonb_set(invoices,
		            ARRAY[(jsonb_array_length(invoices) - 1)::text, 'status'],
		            '"paid"'),
		        ARRAY[(jsonb_array_length(invoices) - 1)::text, 'paymentHistory'],
		        COALESCE(invoices -> -1 -> 'paymentHistory', '[]'::jsonb) || $2::jsonb),
		    status = $3,
		    next_payment_date = $4,
		    updated_at = NOW()
		WHERE id = $1 AND invoices -> -1 ->> 'status' = 'pending'
	`
	tag, err := r.db.Exec(ctx, query, subscriptionID, entryJSON, newStatus, nextPaymentDate)
	if err != nil {
		return fmt.Errorf("failed to complete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("subscription %s has no pending invoice to complete: %w",
			subscriptionID, xerrors.ErrInvalidState)
	}
	return nil
}

// FailLastInvoice marks the trailing pending invoice failed and records the
// attempt. Subscription status and next payment date are left untouched.
func (r *UserSubscriptionRepository) FailLastInvoice(ctx context.Context, subscriptionID string, entry subscription.PaymentHistoryEntry) error {
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal payment history entry: %w", err)
	}

	query := `
		UPDATE user_subscriptions
		SET invoices = jsonb_set(
		        jsonb_set(invoices,
		            ARRAY[(jsonb_array_length(invoices) - 1)::text, 'status'],
		            '"failed"'),
		        ARRAY[(jsonb_array_length(invoices) - 1)::text, 'paymentHistory'],
		        COALESCE(invoices -> -1 -> 'paymentHistory', '[]'::jsonb) || $2::jsonb),
		    updated_at = NOW()
		WHERE id = $1 AND invoices -> -1 ->> 'status' = 'pending'
	`
	tag, err := r.db.Exec(ctx, query, subscriptionID, entryJSON)
	if err != nil {
		return fmt.Errorf("failed to fail invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("subscription %s has no pending invoice to fail: %w",
			subscriptionID, xerrors.ErrInvalidState)
	}
	return nil
}

// RecordPendingAttempt appends an outcome-unknown attempt to the trailing
// pending invoice without resolving it. The invoice stays pending, so the
// billing claim keeps blocking further pulls; reconciliation works from the
// recorded signature.
func (r *UserSubscriptionRepository) RecordPendingAttempt(ctx context.Context, subscriptionID string, entry subscription.PaymentHistoryEntry) error {
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal payment history entry: %w", err)
	}

	query := `
		UPDATE user_subscriptions
		SET invoices = jsonb_set(invoices,
		        ARRAY[(jsonb_array_length(invoices) - 1)::text, 'paymentHistory'],
		        COALESCE(invoices -> -1 -> 'paymentHistory', '[]'::jsonb) || $2::jsonb),
		    updated_at = NOW()
		WHERE id = $1 AND invoices -> -1 ->> 'status' = 'pending'
	`
	tag, err := r.db.Exec(ctx, query, subscriptionID, entryJSON)
	if err != nil {
		return fmt.Errorf("failed to record pending attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("subscription %s has no pending invoice: %w",
			subscriptionID, xerrors.ErrInvalidState)
	}
	return nil
}

// AppendClaimedPackage records a redemption, guarded against claiming the same
// package id twice on one subscription.
func (r *UserSubscriptionRepository) AppendClaimedPackage(ctx context.Context, subscriptionID string, claimed subscription.ClaimedPackage) error {
	claimedJSON, err := json.Marshal(claimed)
	if err != nil {
		return fmt.Errorf("failed to marshal claimed package: %w", err)
	}
	guardJSON, err := claimGuard(claimed.Package.ID)
	if err != nil {
		return fmt.Errorf("failed to marshal claim guard: %w", err)
	}

	query := `
		UPDATE user_subscriptions
		SET claimed_packages = claimed_packages || $2::jsonb, updated_at = NOW()
		WHERE id = $1
		  AND status = 'active'
		  AND NOT (claimed_packages @> $3::jsonb)
	`
	tag, err := r.db.Exec(ctx, query, subscriptionID, claimedJSON, guardJSON)
	if err != nil {
		return fmt.Errorf("failed to append claimed package: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("package %s: %w", claimed.Package.ID, xerrors.ErrAlreadyClaimed)
	}
	return nil
}

// UpdateStatus moves the subscription to newStatus only when the current
// status is one of the allowed prior states.
func (r *UserSubscriptionRepository) UpdateStatus(ctx context.Context, subscriptionID string, newStatus subscription.Status, allowedFrom []subscription.Status) error {
	from := statusStrings(allowedFrom)

	query := `
		UPDATE user_subscriptions
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = ANY($3)
	`
	tag, err := r.db.Exec(ctx, query, subscriptionID, newStatus, from)
	if err != nil {
		return fmt.Errorf("failed to update subscription status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("subscription %s cannot move to %s: %w", subscriptionID, newStatus, xerrors.ErrInvalidState)
	}
	return nil
}

func (r *UserSubscriptionRepository) FindByID(ctx context.Context, id string) (*subscription.UserSubscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM user_subscriptions WHERE id = $1`
	sub, err := scanSubscription(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("subscription %s: %w", id, xerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find subscription: %w", err)
	}
	return sub, nil
}

func (r *UserSubscriptionRepository) FindByUserAndBundle(ctx context.Context, userID, bundleID string) (*subscription.UserSubscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM user_subscriptions WHERE user_id = $1 AND bundle_id = $2`
	sub, err := scanSubscription(r.db.QueryRow(ctx, query, userID, bundleID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("subscription for bundle %s: %w", bundleID, xerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find subscription: %w", err)
	}
	return sub, nil
}

func (r *UserSubscriptionRepository) FindByUser(ctx context.Context, userID string) ([]subscription.UserSubscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM user_subscriptions WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	subs := []subscription.UserSubscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// FindDueForBilling returns subscriptions whose next payment date has passed
// and that are in a billable state. Used by the billing sweep.
func (r *UserSubscriptionRepository) FindDueForBilling(ctx context.Context, now time.Time, limit int) ([]subscription.UserSubscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM user_subscriptions
		WHERE status = ANY($3) AND next_payment_date <= $1
		ORDER BY next_payment_date
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, now, limit, statusStrings(subscription.BillableDueStatuses()))
	if err != nil {
		return nil, fmt.Errorf("failed to list due subscriptions: %w", err)
	}
	defer rows.Close()

	subs := []subscription.UserSubscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

func statusStrings(statuses []subscription.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// pendingInvoiceGuard is the containment pattern that matches a ledger document
// holding any pending invoice. Shape must track the Invoice JSON encoding.
func pendingInvoiceGuard() []byte {
	guard, _ := json.Marshal([]map[string]subscription.InvoiceStatus{
		{"status": subscription.InvoicePending},
	})
	return guard
}

// claimGuard is the containment pattern that matches an already-claimed package
// id. Shape must track the ClaimedPackage JSON encoding.
func claimGuard(packageID string) ([]byte, error) {
	return json.Marshal([]map[string]any{
		{"package": map[string]any{"id": packageID}},
	})
}

const subscriptionColumns = `
	id, user_id, bundle_id, status, subscribe_date, next_payment_date,
	invoices, claimed_packages, created_at, updated_at
`

func scanSubscription(row rowScanner) (*subscription.UserSubscription, error) {
	var sub subscription.UserSubscription
	var invoicesJSON, claimedJSON []byte

	err := row.Scan(
		&sub.ID, &sub.UserID, &sub.BundleID, &sub.Status,
		&sub.SubscribeDate, &sub.NextPaymentDate,
		&invoicesJSON, &claimedJSON, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sub.Invoices = []subscription.Invoice{}
	if len(invoicesJSON) > 0 {
		if err := json.Unmarshal(invoicesJSON, &sub.Invoices); err != nil {
			return nil, fmt.Errorf("failed to unmarshal invoices: %w", err)
		}
	}
	sub.ClaimedPackages = []subscription.ClaimedPackage{}
	if len(claimedJSON) > 0 {
		if err := json.Unmarshal(claimedJSON, &sub.ClaimedPackages); err != nil {
			return nil, fmt.Errorf("failed to unmarshal claimed packages: %w", err)
		}
	}
	return &sub, nil
}
