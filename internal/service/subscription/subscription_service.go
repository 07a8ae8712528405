// internal/service/subscription/subscription_service.go
package subscription

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"bundl-service/internal/chain"
	bundledomain "bundl-service/internal/domain/bundle"
	"bundl-service/internal/domain/catalog"
	domain "bundl-service/internal/domain/subscription"
	xerrors "bundl-service/internal/pkg/errors"
	"bundl-service/internal/pricing"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BundleReader is the bundle lookup the service needs.
type BundleReader interface {
	FindByID(ctx context.Context, id string) (*bundledomain.Bundle, error)
}

// Ledger is the subscription persistence contract. Transitions are guarded
// compare-and-sets; see the postgres implementation.
type Ledger interface {
	UpsertIntended(ctx context.Context, userID, bundleID string) (*domain.UserSubscription, error)
	FindByID(ctx context.Context, id string) (*domain.UserSubscription, error)
	FindByUser(ctx context.Context, userID string) ([]domain.UserSubscription, error)
	FindByUserAndBundle(ctx context.Context, userID, bundleID string) (*domain.UserSubscription, error)
	AppendClaimedPackage(ctx context.Context, subscriptionID string, claimed domain.ClaimedPackage) error
	UpdateStatus(ctx context.Context, subscriptionID string, newStatus domain.Status, allowedFrom []domain.Status) error
}

// SubscriptionService runs the subscriber-facing lifecycle: wallet setup
// instructions, intent creation, claims, and the pause/resume/cancel moves.
type SubscriptionService struct {
	subs      Ledger
	bundles   BundleReader
	reader    chain.Reader
	writer    chain.Writer
	deriver   *chain.Deriver
	builder   *chain.InstructionBuilder
	authority solana.PrivateKey
	logger    *zap.Logger
}

func NewSubscriptionService(
	subs Ledger,
	bundles BundleReader,
	reader chain.Reader,
	writer chain.Writer,
	deriver *chain.Deriver,
	builder *chain.InstructionBuilder,
	authority solana.PrivateKey,
	logger *zap.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		subs:      subs,
		bundles:   bundles,
		reader:    reader,
		writer:    writer,
		deriver:   deriver,
		builder:   builder,
		authority: authority,
		logger:    logger,
	}
}

// Prepare returns the unsigned wallet-setup instructions for a bundle: the
// controller initialization when the wallet has none yet, then the spending
// approval sized to cover the requested number of intervals.
func (s *SubscriptionService) Prepare(ctx context.Context, walletAddress string, req *domain.PrepareRequest) (*domain.PrepareResponse, error) {
	userWallet, err := solana.PublicKeyFromBase58(walletAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid wallet address", xerrors.ErrInvalidInput)
	}

	b, err := s.bundles.FindByID(ctx, req.BundleID)
	if err != nil {
		return nil, err
	}
	if !b.IsActive {
		return nil, fmt.Errorf("%w: bundle %s is not active", xerrors.ErrInvalidInput, b.ID)
	}

	allowance, err := AllowanceForIntervals(b.PriceEveryInterval, req.NumberOfIntervals)
	if err != nil {
		return nil, err
	}

	instructions := []domain.PreparedInstruction{}

	controller, err := s.deriver.ControllerAddress(userWallet)
	if err != nil {
		return nil, err
	}
	exists, err := s.reader.AccountExists(ctx, controller)
	if err != nil {
		return nil, err
	}
	if !exists {
		init, err := s.builder.InitializeController(userWallet)
		if err != nil {
			return nil, err
		}
		rendered, err := renderInstruction(init, "initialize-controller",
			"One-time setup of your subscription controller account")
		if err != nil {
			return nil, err
		}
		instructions = append(instructions, *rendered)
	}

	approve, err := s.builder.Approve(userWallet, allowance)
	if err != nil {
		return nil, err
	}
	rendered, err := renderInstruction(approve, "approve-spending",
		fmt.Sprintf("Allow the controller to pull up to %d payment intervals", req.NumberOfIntervals))
	if err != nil {
		return nil, err
	}
	instructions = append(instructions, *rendered)

	return &domain.PrepareResponse{Transactions: instructions}, nil
}

// AllowanceForIntervals sums the first n scheduled prices in base units. When
// n exceeds the schedule horizon the final (fully recovered) price carries
// forward, which the non-decreasing check makes safe.
func AllowanceForIntervals(schedule []decimal.Decimal, n int) (uint64, error) {
	if len(schedule) == 0 || n < 1 {
		return 0, fmt.Errorf("%w: empty price schedule", xerrors.ErrInvalidInput)
	}
	if err := pricing.AssertNonDecreasing(schedule); err != nil {
		return 0, err
	}

	total := decimal.Zero
	for i := 0; i < n; i++ {
		idx := i
		if idx >= len(schedule) {
			idx = len(schedule) - 1
		}
		total = total.Add(schedule[idx])
	}
	return chain.ToBaseUnits(total), nil
}

// Initiate records the subscription intent and returns the partially signed
// bundle-registration transaction awaiting the user's co-signature. The
// intent is written first: a lost transaction leaves a harmless intended row.
func (s *SubscriptionService) Initiate(ctx context.Context, userID, walletAddress string, req *domain.InitiateRequest) (*domain.InitiateResponse, error) {
	userWallet, err := solana.PublicKeyFromBase58(walletAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid wallet address", xerrors.ErrInvalidInput)
	}

	b, err := s.bundles.FindByID(ctx, req.BundleID)
	if err != nil {
		return nil, err
	}
	if !b.IsActive {
		return nil, fmt.Errorf("%w: bundle %s is not active", xerrors.ErrInvalidInput, b.ID)
	}

	sub, err := s.subs.UpsertIntended(ctx, userID, req.BundleID)
	if err != nil {
		return nil, err
	}
	sub.Bundle = b

	recipients, err := s.recipientTokenAccounts(b)
	if err != nil {
		return nil, err
	}

	intervalSeconds := uint64(pricing.FrequencyDays(b.Frequency)) * chain.SecondsPerDay
	addBundle, err := s.builder.AddBundle(
		b.ID,
		userWallet,
		s.authority.PublicKey(),
		chain.ToBaseUnits(b.TotalOriginalPrice),
		intervalSeconds,
		recipients,
	)
	if err != nil {
		return nil, err
	}

	blockhash, err := s.writer.LatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := solana.NewTransaction(
		[]solana.Instruction{addBundle},
		blockhash,
		solana.TransactionPayer(userWallet),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build registration transaction: %w", err)
	}
	if _, err := tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.authority.PublicKey()) {
			return &s.authority
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to co-sign registration transaction: %w", err)
	}

	serialized, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize registration transaction: %w", err)
	}

	s.logger.Info("subscription initiated",
		zap.String("subscription_id", sub.ID),
		zap.String("user_id", userID),
		zap.String("bundle_id", b.ID))

	return &domain.InitiateResponse{
		Subscription: sub,
		Transactions: []domain.SignableTransaction{{
			Name:        "register-bundle",
			Description: "Register this bundle with your subscription controller",
			Transaction: base64.StdEncoding.EncodeToString(serialized),
		}},
	}, nil
}

func (s *SubscriptionService) recipientTokenAccounts(b *bundledomain.Bundle) ([]solana.PublicKey, error) {
	recipients := make([]solana.PublicKey, 0, len(b.SelectedPackages))
	for _, wallet := range b.RecipientWallets() {
		pk, err := solana.PublicKeyFromBase58(wallet)
		if err != nil {
			return nil, fmt.Errorf("%w: service payout wallet %q", xerrors.ErrInternal, wallet)
		}
		ata, err := s.deriver.TokenAccountAddress(pk)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, ata)
	}
	return recipients, nil
}

// Get returns one subscription with its bundle attached. Owner only.
func (s *SubscriptionService) Get(ctx context.Context, userID, subscriptionID string) (*domain.UserSubscription, error) {
	sub, err := s.subs.FindByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, fmt.Errorf("subscription %s: %w", subscriptionID, xerrors.ErrNotFound)
	}
	b, err := s.bundles.FindByID(ctx, sub.BundleID)
	if err == nil {
		sub.Bundle = b
	}
	return sub, nil
}

// GetByBundle returns the caller's subscription for one bundle, letting the
// frontend tell "subscribe" from "already subscribed" before rendering.
func (s *SubscriptionService) GetByBundle(ctx context.Context, userID, bundleID string) (*domain.UserSubscription, error) {
	sub, err := s.subs.FindByUserAndBundle(ctx, userID, bundleID)
	if err != nil {
		return nil, err
	}
	if b, err := s.bundles.FindByID(ctx, sub.BundleID); err == nil {
		sub.Bundle = b
	}
	return sub, nil
}

// List returns the caller's subscriptions with bundles attached.
func (s *SubscriptionService) List(ctx context.Context, userID string) ([]domain.UserSubscription, error) {
	subs, err := s.subs.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range subs {
		if b, err := s.bundles.FindByID(ctx, subs[i].BundleID); err == nil {
			subs[i].Bundle = b
		}
	}
	return subs, nil
}

// Claim redeems one package of an active subscription after validating the
// provided form fields against the snapshot's requirements.
func (s *SubscriptionService) Claim(ctx context.Context, userID, subscriptionID string, req *domain.ClaimRequest) (*domain.UserSubscription, error) {
	sub, err := s.subs.FindByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, fmt.Errorf("subscription %s: %w", subscriptionID, xerrors.ErrNotFound)
	}
	if sub.Status != domain.StatusActive {
		return nil, fmt.Errorf("%w: claims need an active subscription, status is %s",
			xerrors.ErrInvalidState, sub.Status)
	}

	b, err := s.bundles.FindByID(ctx, sub.BundleID)
	if err != nil {
		return nil, err
	}
	selected := b.FindSelectedPackage(req.PackageID)
	if selected == nil {
		return nil, fmt.Errorf("%w: package %s is not part of this bundle", xerrors.ErrInvalidInput, req.PackageID)
	}
	if sub.HasClaimed(req.PackageID) {
		return nil, fmt.Errorf("package %s: %w", req.PackageID, xerrors.ErrAlreadyClaimed)
	}
	if err := ValidateFormFields(selected.Package.RequiredFormFields, req.ProvidedFormFields); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	claimed := domain.ClaimedPackage{
		ServiceID:          selected.ServiceID,
		Service:            selected.Service,
		Package:            selected.Package,
		ProvidedFormFields: req.ProvidedFormFields,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.subs.AppendClaimedPackage(ctx, subscriptionID, claimed); err != nil {
		return nil, err
	}

	s.logger.Info("package claimed",
		zap.String("subscription_id", subscriptionID),
		zap.String("package_id", req.PackageID))
	return s.Get(ctx, userID, subscriptionID)
}

// ValidateFormFields checks every required field is provided, non-empty unless
// optional, and numeric where declared so.
func ValidateFormFields(required []catalog.RequiredFormField, provided []domain.ProvidedFormField) error {
	values := make(map[string]string, len(provided))
	for _, f := range provided {
		values[f.FieldName] = f.FieldValue
	}

	for _, f := range required {
		value, ok := values[f.FieldName]
		if !ok || value == "" {
			if f.Optional {
				continue
			}
			return fmt.Errorf("%w: missing required field %q", xerrors.ErrInvalidInput, f.FieldName)
		}
		if f.FieldType == "number" {
			if _, err := strconv.ParseFloat(value, 64); err != nil {
				return fmt.Errorf("%w: field %q must be numeric", xerrors.ErrInvalidInput, f.FieldName)
			}
		}
	}
	return nil
}

// Cancel ends the subscription. Allowed from any non-terminal state.
func (s *SubscriptionService) Cancel(ctx context.Context, userID, subscriptionID string) error {
	return s.transition(ctx, userID, subscriptionID, domain.StatusCancelled,
		[]domain.Status{domain.StatusIntended, domain.StatusActive, domain.StatusPaused, domain.StatusGracePeriod})
}

// Pause suspends billing without ending the subscription.
func (s *SubscriptionService) Pause(ctx context.Context, userID, subscriptionID string) error {
	return s.transition(ctx, userID, subscriptionID, domain.StatusPaused,
		[]domain.Status{domain.StatusActive})
}

// Resume reinstates billing of a paused subscription.
func (s *SubscriptionService) Resume(ctx context.Context, userID, subscriptionID string) error {
	return s.transition(ctx, userID, subscriptionID, domain.StatusActive,
		[]domain.Status{domain.StatusPaused})
}

func (s *SubscriptionService) transition(ctx context.Context, userID, subscriptionID string, to domain.Status, from []domain.Status) error {
	sub, err := s.subs.FindByID(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if sub.UserID != userID {
		return fmt.Errorf("subscription %s: %w", subscriptionID, xerrors.ErrNotFound)
	}
	if err := s.subs.UpdateStatus(ctx, subscriptionID, to, from); err != nil {
		return err
	}
	s.logger.Info("subscription transitioned",
		zap.String("subscription_id", subscriptionID),
		zap.String("from", string(sub.Status)),
		zap.String("to", string(to)))
	return nil
}

func renderInstruction(inst solana.Instruction, name, description string) (*domain.PreparedInstruction, error) {
	data, err := inst.Data()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize instruction data: %w", err)
	}
	accounts := make([]domain.PreparedAccount, len(inst.Accounts()))
	for i, acc := range inst.Accounts() {
		accounts[i] = domain.PreparedAccount{
			Address:    acc.PublicKey.String(),
			IsSigner:   acc.IsSigner,
			IsWritable: acc.IsWritable,
		}
	}
	return &domain.PreparedInstruction{
		Name:        name,
		Description: description,
		ProgramID:   inst.ProgramID().String(),
		Accounts:    accounts,
		Data:        base64.StdEncoding.EncodeToString(data),
	}, nil
}
