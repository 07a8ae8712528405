package payment

import (
	"context"
	"testing"
	"time"

	"bundl-service/internal/chain"
	bundledomain "bundl-service/internal/domain/bundle"
	"bundl-service/internal/domain/catalog"
	"bundl-service/internal/domain/subscription"
	userdomain "bundl-service/internal/domain/user"
	xerrors "bundl-service/internal/pkg/errors"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLedger struct {
	sub *subscription.UserSubscription
	due []subscription.UserSubscription

	appendErr error

	pendingAppended int
	completed       []subscription.PaymentHistoryEntry
	completedStatus subscription.Status
	nextPaymentDate time.Time
	failed          []subscription.PaymentHistoryEntry
	unresolved      []subscription.PaymentHistoryEntry
}

func (f *fakeLedger) FindByID(ctx context.Context, id string) (*subscription.UserSubscription, error) {
	return f.sub, nil
}

func (f *fakeLedger) AppendPendingInvoice(ctx context.Context, subscriptionID string, invoice subscription.Invoice) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.pendingAppended++
	return nil
}

func (f *fakeLedger) CompleteLastInvoice(ctx context.Context, subscriptionID string, entry subscription.PaymentHistoryEntry, newStatus subscription.Status, nextPaymentDate time.Time) error {
	f.completed = append(f.completed, entry)
	f.completedStatus = newStatus
	f.nextPaymentDate = nextPaymentDate
	return nil
}

func (f *fakeLedger) FailLastInvoice(ctx context.Context, subscriptionID string, entry subscription.PaymentHistoryEntry) error {
	f.failed = append(f.failed, entry)
	return nil
}

func (f *fakeLedger) RecordPendingAttempt(ctx context.Context, subscriptionID string, entry subscription.PaymentHistoryEntry) error {
	f.unresolved = append(f.unresolved, entry)
	return nil
}

func (f *fakeLedger) FindDueForBilling(ctx context.Context, now time.Time, limit int) ([]subscription.UserSubscription, error) {
	return f.due, nil
}

type fakeBundles struct{ b *bundledomain.Bundle }

func (f *fakeBundles) FindByID(ctx context.Context, id string) (*bundledomain.Bundle, error) {
	return f.b, nil
}

type fakeUsers struct{ u *userdomain.User }

func (f *fakeUsers) FindByID(ctx context.Context, id string) (*userdomain.User, error) {
	return f.u, nil
}

type fakeVerifier struct {
	err   error
	calls int
}

func (f *fakeVerifier) EnsureReady(ctx context.Context, userWallet, userTokenAccount solana.PublicKey, required decimal.Decimal, bundleID string) error {
	f.calls++
	return f.err
}

type fakeWriter struct {
	confirmErr  error
	submissions int
}

func (f *fakeWriter) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	return solana.Hash{}, nil
}

func (f *fakeWriter) SubmitTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	f.submissions++
	return solana.Signature{1}, nil
}

func (f *fakeWriter) ConfirmTransaction(ctx context.Context, sig solana.Signature) error {
	return f.confirmErr
}

type fixture struct {
	ledger   *fakeLedger
	verifier *fakeVerifier
	writer   *fakeWriter
	orch     *Orchestrator
}

func newFixture(t *testing.T, status subscription.Status) *fixture {
	t.Helper()

	programID := solana.MustPublicKeyFromBase58("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
	mint := solana.MustPublicKeyFromBase58("4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU")
	deriver := chain.NewDeriver(programID, mint)
	authority := solana.NewWallet().PrivateKey

	payerWallet := solana.NewWallet().PublicKey()
	serviceWallet := solana.NewWallet().PublicKey()

	b := &bundledomain.Bundle{
		ID:        "bundle-1",
		Frequency: catalog.FrequencyMonthly,
		IsActive:  true,
		SelectedPackages: []bundledomain.SelectedPackage{{
			ServiceID: "svc-music",
			Service:   catalog.Service{ID: "svc-music", WalletAddress: serviceWallet.String()},
			Package: catalog.Package{
				ID:     "pkg-music",
				Amount: decimal.NewFromInt(100),
			},
			ApplicableOffers: []catalog.Offer{{
				Type:   catalog.OfferPercentage,
				Amount: decimal.NewFromInt(50),
				Period: "90 days",
			}},
		}},
		TotalOriginalPrice: decimal.NewFromInt(100),
	}

	ledger := &fakeLedger{sub: &subscription.UserSubscription{
		ID:       "sub-1",
		UserID:   "user-1",
		BundleID: "bundle-1",
		Status:   status,
	}}
	verifier := &fakeVerifier{}
	writer := &fakeWriter{}

	orch := NewOrchestrator(
		ledger,
		&fakeBundles{b: b},
		&fakeUsers{u: &userdomain.User{ID: "user-1", WalletAddress: payerWallet.String()}},
		verifier,
		writer,
		deriver,
		chain.NewInstructionBuilder(deriver),
		authority,
		zap.NewNop(),
	)
	return &fixture{ledger: ledger, verifier: verifier, writer: writer, orch: orch}
}

func TestTriggerPayment_SuccessActivatesIntended(t *testing.T) {
	f := newFixture(t, subscription.StatusIntended)

	res, err := f.orch.TriggerPayment(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.TxHash)

	assert.Equal(t, 1, f.ledger.pendingAppended)
	assert.Equal(t, 1, f.writer.submissions)
	require.Len(t, f.ledger.completed, 1, "exactly one success entry")
	assert.Equal(t, "success", f.ledger.completed[0].Status)
	assert.Equal(t, res.TxHash, f.ledger.completed[0].TxHash)
	assert.Equal(t, subscription.StatusActive, f.ledger.completedStatus)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, 30), f.ledger.nextPaymentDate, time.Minute,
		"next payment advances one monthly interval")
	assert.Empty(t, f.ledger.failed)
}

func TestTriggerPayment_GracePeriodRecovers(t *testing.T) {
	f := newFixture(t, subscription.StatusGracePeriod)

	_, err := f.orch.TriggerPayment(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusActive, f.ledger.completedStatus)
}

func TestTriggerPayment_ActiveStaysActive(t *testing.T) {
	f := newFixture(t, subscription.StatusActive)

	_, err := f.orch.TriggerPayment(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusActive, f.ledger.completedStatus)
}

func TestTriggerPayment_IneligibleStatus(t *testing.T) {
	for _, status := range []subscription.Status{
		subscription.StatusPaused,
		subscription.StatusCancelled,
		subscription.StatusSuspended,
	} {
		f := newFixture(t, status)

		_, err := f.orch.TriggerPayment(context.Background(), "sub-1")
		assert.ErrorIs(t, err, xerrors.ErrInvalidState, "status %s", status)
		assert.Zero(t, f.verifier.calls, "nothing touches the chain for %s", status)
		assert.Zero(t, f.writer.submissions)
	}
}

func TestTriggerPayment_LoserOfClaimRaceNeverSubmits(t *testing.T) {
	f := newFixture(t, subscription.StatusActive)
	f.ledger.appendErr = xerrors.ErrInvalidState

	_, err := f.orch.TriggerPayment(context.Background(), "sub-1")
	assert.ErrorIs(t, err, xerrors.ErrInvalidState)
	assert.Zero(t, f.writer.submissions, "the losing pull must abort before submission")
	assert.Empty(t, f.ledger.failed)
	assert.Empty(t, f.ledger.completed)
}

func TestTriggerPayment_PreflightFailureLeavesLedgerUntouched(t *testing.T) {
	f := newFixture(t, subscription.StatusActive)
	f.verifier.err = xerrors.ErrInsufficientBalance

	_, err := f.orch.TriggerPayment(context.Background(), "sub-1")
	assert.ErrorIs(t, err, xerrors.ErrInsufficientBalance)
	assert.Zero(t, f.ledger.pendingAppended)
	assert.Zero(t, f.writer.submissions)
}

func TestTriggerPayment_ConfirmationFailureRecordsFailedAttempt(t *testing.T) {
	f := newFixture(t, subscription.StatusIntended)
	f.writer.confirmErr = xerrors.ErrTransactionFailed

	_, err := f.orch.TriggerPayment(context.Background(), "sub-1")
	assert.ErrorIs(t, err, xerrors.ErrTransactionFailed)

	require.Len(t, f.ledger.failed, 1)
	assert.Equal(t, "failed", f.ledger.failed[0].Status)
	assert.Empty(t, f.ledger.completed, "status and schedule stay untouched on failure")
}

func TestIntervalAmounts_UsesSnapshotPricing(t *testing.T) {
	f := newFixture(t, subscription.StatusIntended)
	b, err := f.orch.bundles.FindByID(context.Background(), "bundle-1")
	require.NoError(t, err)

	amounts, total, err := IntervalAmounts(b, 0)
	require.NoError(t, err)
	require.Len(t, amounts, 1)
	assert.True(t, amounts[0].Equal(decimal.NewFromInt(50)), "got %s", amounts[0])
	assert.True(t, total.Equal(decimal.NewFromInt(50)))

	_, total, err = IntervalAmounts(b, 3)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(100)), "offer lapsed by interval 3, got %s", total)
}

func TestTriggerPayment_ConfirmationTimeoutLeavesInvoicePending(t *testing.T) {
	f := newFixture(t, subscription.StatusActive)
	f.writer.confirmErr = xerrors.ErrConfirmationTimeout

	_, err := f.orch.TriggerPayment(context.Background(), "sub-1")
	assert.ErrorIs(t, err, xerrors.ErrConfirmationTimeout)

	// Outcome unknown: the invoice must not be resolved either way, or a
	// retry could double-debit the interval while the first pull still lands.
	assert.Empty(t, f.ledger.failed)
	assert.Empty(t, f.ledger.completed)
	require.Len(t, f.ledger.unresolved, 1, "the attempt is recorded for reconciliation")
	assert.Equal(t, "pending", f.ledger.unresolved[0].Status)
	assert.NotEmpty(t, f.ledger.unresolved[0].TxHash, "reconciliation needs the signature")
}

func TestTriggerDuePayments_ReportsEveryOutcome(t *testing.T) {
	f := newFixture(t, subscription.StatusActive)
	f.ledger.due = []subscription.UserSubscription{*f.ledger.sub}

	results, err := f.orch.TriggerDuePayments(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, "sub-1", results[0].SubscriptionID)
	assert.NotEmpty(t, results[0].TxHash)

	// A second sweep with a now-failing confirmation still reports the entry.
	f.writer.confirmErr = xerrors.ErrTransactionFailed
	results, err = f.orch.TriggerDuePayments(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.NotEmpty(t, results[0].Error)
}

func TestPaidIntervals(t *testing.T) {
	sub := &subscription.UserSubscription{Invoices: []subscription.Invoice{
		{Status: subscription.InvoicePaid},
		{Status: subscription.InvoiceFailed},
		{Status: subscription.InvoicePaid},
		{Status: subscription.InvoicePending},
	}}
	assert.Equal(t, 2, PaidIntervals(sub))
}
