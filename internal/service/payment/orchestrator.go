// internal/service/payment/orchestrator.go
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bundl-service/internal/chain"
	bundledomain "bundl-service/internal/domain/bundle"
	"bundl-service/internal/domain/subscription"
	userdomain "bundl-service/internal/domain/user"
	xerrors "bundl-service/internal/pkg/errors"
	"bundl-service/internal/pricing"

	"github.com/gagliardetto/solana-go"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Ledger is the slice of subscription persistence the orchestrator writes.
type Ledger interface {
	FindByID(ctx context.Context, id string) (*subscription.UserSubscription, error)
	AppendPendingInvoice(ctx context.Context, subscriptionID string, invoice subscription.Invoice) error
	CompleteLastInvoice(ctx context.Context, subscriptionID string, entry subscription.PaymentHistoryEntry, newStatus subscription.Status, nextPaymentDate time.Time) error
	FailLastInvoice(ctx context.Context, subscriptionID string, entry subscription.PaymentHistoryEntry) error
	RecordPendingAttempt(ctx context.Context, subscriptionID string, entry subscription.PaymentHistoryEntry) error
	FindDueForBilling(ctx context.Context, now time.Time, limit int) ([]subscription.UserSubscription, error)
}

// BundleReader loads the priced snapshot a subscription bills against.
type BundleReader interface {
	FindByID(ctx context.Context, id string) (*bundledomain.Bundle, error)
}

// UserReader resolves the paying wallet.
type UserReader interface {
	FindByID(ctx context.Context, id string) (*userdomain.User, error)
}

// PreflightVerifier checks chain-side readiness before anything is submitted.
type PreflightVerifier interface {
	EnsureReady(ctx context.Context, userWallet, userTokenAccount solana.PublicKey, required decimal.Decimal, bundleID string) error
}

// Orchestrator drives a single pull payment end to end: price the interval,
// verify chain state, claim the billing attempt in the ledger, then submit
// and confirm. The ledger claim happens before any network submission, so at
// most one attempt per subscription can be in flight.
type Orchestrator struct {
	subs      Ledger
	bundles   BundleReader
	users     UserReader
	verifier  PreflightVerifier
	writer    chain.Writer
	deriver   *chain.Deriver
	builder   *chain.InstructionBuilder
	authority solana.PrivateKey
	logger    *zap.Logger
}

func NewOrchestrator(
	subs Ledger,
	bundles BundleReader,
	users UserReader,
	verifier PreflightVerifier,
	writer chain.Writer,
	deriver *chain.Deriver,
	builder *chain.InstructionBuilder,
	authority solana.PrivateKey,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		subs:      subs,
		bundles:   bundles,
		users:     users,
		verifier:  verifier,
		writer:    writer,
		deriver:   deriver,
		builder:   builder,
		authority: authority,
		logger:    logger,
	}
}

// IntervalAmounts prices each selected package at the given interval.
func IntervalAmounts(b *bundledomain.Bundle, intervalIndex int) ([]decimal.Decimal, decimal.Decimal, error) {
	amounts := make([]decimal.Decimal, 0, len(b.SelectedPackages))
	total := decimal.Zero
	for _, sp := range b.SelectedPackages {
		price, err := pricing.DiscountedPrice(sp.Package.Amount, sp.ApplicableOffers, intervalIndex, b.Frequency)
		if err != nil {
			return nil, decimal.Zero, err
		}
		amounts = append(amounts, price)
		total = total.Add(price)
	}
	return amounts, total, nil
}

// PaidIntervals counts completed billing cycles; it indexes the next charge
// into the price schedule.
func PaidIntervals(sub *subscription.UserSubscription) int {
	paid := 0
	for _, inv := range sub.Invoices {
		if inv.Status == subscription.InvoicePaid {
			paid++
		}
	}
	return paid
}

// TriggerPayment attempts one pull for the subscription. On success the
// trailing invoice is marked paid, an intended or grace-period subscription
// becomes active, and the next payment date advances one frequency interval.
// On failure the invoice is marked failed and the status is left untouched.
func (o *Orchestrator) TriggerPayment(ctx context.Context, subscriptionID string) (*subscription.TriggerResponse, error) {
	sub, err := o.subs.FindByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if !sub.Status.PullEligible() {
		return nil, fmt.Errorf("%w: status %s is not billable", xerrors.ErrInvalidState, sub.Status)
	}

	b, err := o.bundles.FindByID(ctx, sub.BundleID)
	if err != nil {
		return nil, err
	}
	payer, err := o.users.FindByID(ctx, sub.UserID)
	if err != nil {
		return nil, err
	}
	userWallet, err := solana.PublicKeyFromBase58(payer.WalletAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: user wallet %q", xerrors.ErrInternal, payer.WalletAddress)
	}
	userTokenAccount, err := o.deriver.TokenAccountAddress(userWallet)
	if err != nil {
		return nil, err
	}

	intervalIndex := PaidIntervals(sub)
	amounts, total, err := IntervalAmounts(b, intervalIndex)
	if err != nil {
		return nil, err
	}

	if err := o.verifier.EnsureReady(ctx, userWallet, userTokenAccount, total, b.ID); err != nil {
		return nil, err
	}

	// Ledger claim before any submission: losers of a concurrent race stop
	// here with ErrInvalidState and nothing reaches the network twice.
	invoice := subscription.Invoice{
		ID:             ulid.Make().String(),
		Date:           time.Now().UTC(),
		Status:         subscription.InvoicePending,
		Amount:         total,
		PaymentHistory: []subscription.PaymentHistoryEntry{},
	}
	if err := o.subs.AppendPendingInvoice(ctx, subscriptionID, invoice); err != nil {
		return nil, err
	}

	sig, err := o.submitAndConfirm(ctx, b, userWallet, userTokenAccount, amounts)
	if err != nil {
		o.recordFailure(ctx, subscriptionID, sig, err)
		return nil, err
	}

	newStatus := sub.Status
	if sub.Status == subscription.StatusIntended || sub.Status == subscription.StatusGracePeriod {
		newStatus = subscription.StatusActive
	}
	nextPaymentDate := time.Now().UTC().AddDate(0, 0, pricing.FrequencyDays(b.Frequency))

	entry := subscription.PaymentHistoryEntry{
		Time:   time.Now().UTC(),
		Status: "success",
		TxHash: sig.String(),
	}
	if err := o.subs.CompleteLastInvoice(ctx, subscriptionID, entry, newStatus, nextPaymentDate); err != nil {
		// The pull landed on chain; surface the bookkeeping failure loudly.
		o.logger.Error("payment confirmed but ledger completion failed",
			zap.String("subscription_id", subscriptionID),
			zap.String("tx", sig.String()),
			zap.Error(err))
		return nil, err
	}

	o.logger.Info("payment pulled",
		zap.String("subscription_id", subscriptionID),
		zap.String("bundle_id", b.ID),
		zap.Int("interval", intervalIndex),
		zap.String("amount", total.String()),
		zap.String("tx", sig.String()))

	return &subscription.TriggerResponse{Success: true, TxHash: sig.String()}, nil
}

// TriggerDuePayments sweeps subscriptions whose next payment date has passed
// and attempts one pull each, up to limit. A failing subscription does not
// stop the sweep; every outcome is reported.
func (o *Orchestrator) TriggerDuePayments(ctx context.Context, limit int) ([]subscription.DueRunResult, error) {
	due, err := o.subs.FindDueForBilling(ctx, time.Now().UTC(), limit)
	if err != nil {
		return nil, err
	}

	results := make([]subscription.DueRunResult, 0, len(due))
	for _, sub := range due {
		result := subscription.DueRunResult{SubscriptionID: sub.ID}
		res, err := o.TriggerPayment(ctx, sub.ID)
		if err != nil {
			result.Error = err.Error()
		} else {
			result.Success = true
			result.TxHash = res.TxHash
		}
		results = append(results, result)
	}

	o.logger.Info("due billing sweep finished",
		zap.Int("due", len(due)),
		zap.Int("attempted", len(results)))
	return results, nil
}

func (o *Orchestrator) submitAndConfirm(
	ctx context.Context,
	b *bundledomain.Bundle,
	userWallet solana.PublicKey,
	userTokenAccount solana.PublicKey,
	amounts []decimal.Decimal,
) (solana.Signature, error) {
	recipients := make([]solana.PublicKey, 0, len(b.SelectedPackages))
	for _, wallet := range b.RecipientWallets() {
		pk, err := solana.PublicKeyFromBase58(wallet)
		if err != nil {
			return solana.Signature{}, fmt.Errorf("%w: service payout wallet %q", xerrors.ErrInternal, wallet)
		}
		ata, err := o.deriver.TokenAccountAddress(pk)
		if err != nil {
			return solana.Signature{}, err
		}
		recipients = append(recipients, ata)
	}

	trigger, err := o.builder.Trigger(b.ID, userWallet, userTokenAccount, o.authority.PublicKey(), amounts, recipients)
	if err != nil {
		return solana.Signature{}, err
	}

	blockhash, err := o.writer.LatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%w: %v", xerrors.ErrSubmissionFailed, err)
	}
	tx, err := solana.NewTransaction(
		[]solana.Instruction{trigger},
		blockhash,
		solana.TransactionPayer(o.authority.PublicKey()),
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to build pull transaction: %w", err)
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(o.authority.PublicKey()) {
			return &o.authority
		}
		return nil
	}); err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign pull transaction: %w", err)
	}

	sig, err := o.writer.SubmitTransaction(ctx, tx)
	if err != nil {
		return solana.Signature{}, err
	}
	if err := o.writer.ConfirmTransaction(ctx, sig); err != nil {
		return sig, err
	}
	return sig, nil
}

func (o *Orchestrator) recordFailure(ctx context.Context, subscriptionID string, sig solana.Signature, cause error) {
	entry := subscription.PaymentHistoryEntry{Time: time.Now().UTC()}
	if !sig.IsZero() {
		entry.TxHash = sig.String()
	}

	// A confirmation timeout is not a failure: the transaction was submitted
	// and may still land. The invoice stays pending, which keeps the billing
	// claim blocking further pulls until reconciliation resolves the signature.
	if errors.Is(cause, xerrors.ErrConfirmationTimeout) {
		entry.Status = "pending"
		if err := o.subs.RecordPendingAttempt(ctx, subscriptionID, entry); err != nil {
			o.logger.Error("failed to record outcome-unknown attempt",
				zap.String("subscription_id", subscriptionID),
				zap.Error(err))
		}
		o.logger.Warn("payment confirmation timed out, invoice left pending for reconciliation",
			zap.String("subscription_id", subscriptionID),
			zap.String("tx", entry.TxHash),
			zap.Error(cause))
		return
	}

	entry.Status = "failed"
	if err := o.subs.FailLastInvoice(ctx, subscriptionID, entry); err != nil {
		o.logger.Error("failed to record payment failure",
			zap.String("subscription_id", subscriptionID),
			zap.Error(err))
	}
	o.logger.Warn("payment pull failed",
		zap.String("subscription_id", subscriptionID),
		zap.Error(cause))
}
