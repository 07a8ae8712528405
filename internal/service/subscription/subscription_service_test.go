package subscription

import (
	"context"
	"fmt"
	"testing"

	"bundl-service/internal/chain"
	bundledomain "bundl-service/internal/domain/bundle"
	"bundl-service/internal/domain/catalog"
	domain "bundl-service/internal/domain/subscription"
	xerrors "bundl-service/internal/pkg/errors"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLedger struct {
	subs    map[string]*domain.UserSubscription
	claimed []domain.ClaimedPackage
}

func (f *fakeLedger) UpsertIntended(ctx context.Context, userID, bundleID string) (*domain.UserSubscription, error) {
	for _, sub := range f.subs {
		if sub.UserID == userID && sub.BundleID == bundleID {
			if !sub.Status.Terminal() && sub.Status != domain.StatusIntended {
				return nil, fmt.Errorf("subscription exists: %w", xerrors.ErrConflict)
			}
			sub.Status = domain.StatusIntended
			return sub, nil
		}
	}
	sub := &domain.UserSubscription{ID: "sub-new", UserID: userID, BundleID: bundleID, Status: domain.StatusIntended}
	f.subs[sub.ID] = sub
	return sub, nil
}

func (f *fakeLedger) FindByID(ctx context.Context, id string) (*domain.UserSubscription, error) {
	sub, ok := f.subs[id]
	if !ok {
		return nil, fmt.Errorf("subscription %s: %w", id, xerrors.ErrNotFound)
	}
	return sub, nil
}

func (f *fakeLedger) FindByUserAndBundle(ctx context.Context, userID, bundleID string) (*domain.UserSubscription, error) {
	for _, sub := range f.subs {
		if sub.UserID == userID && sub.BundleID == bundleID {
			return sub, nil
		}
	}
	return nil, fmt.Errorf("bundle %s: %w", bundleID, xerrors.ErrNotFound)
}

func (f *fakeLedger) FindByUser(ctx context.Context, userID string) ([]domain.UserSubscription, error) {
	out := []domain.UserSubscription{}
	for _, sub := range f.subs {
		if sub.UserID == userID {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (f *fakeLedger) AppendClaimedPackage(ctx context.Context, subscriptionID string, claimed domain.ClaimedPackage) error {
	sub := f.subs[subscriptionID]
	for _, cp := range sub.ClaimedPackages {
		if cp.Package.ID == claimed.Package.ID {
			return fmt.Errorf("package %s: %w", claimed.Package.ID, xerrors.ErrAlreadyClaimed)
		}
	}
	sub.ClaimedPackages = append(sub.ClaimedPackages, claimed)
	f.claimed = append(f.claimed, claimed)
	return nil
}

func (f *fakeLedger) UpdateStatus(ctx context.Context, subscriptionID string, newStatus domain.Status, allowedFrom []domain.Status) error {
	sub := f.subs[subscriptionID]
	for _, from := range allowedFrom {
		if sub.Status == from {
			sub.Status = newStatus
			return nil
		}
	}
	return fmt.Errorf("cannot move to %s: %w", newStatus, xerrors.ErrInvalidState)
}

type fakeBundles struct{ b *bundledomain.Bundle }

func (f *fakeBundles) FindByID(ctx context.Context, id string) (*bundledomain.Bundle, error) {
	if f.b == nil || f.b.ID != id {
		return nil, fmt.Errorf("bundle %s: %w", id, xerrors.ErrNotFound)
	}
	return f.b, nil
}

type fakeChain struct {
	controllerExists bool
}

func (f *fakeChain) GetTokenBalance(ctx context.Context, tokenAccount solana.PublicKey) (uint64, error) {
	return 0, nil
}

func (f *fakeChain) AccountExists(ctx context.Context, address solana.PublicKey) (bool, error) {
	return f.controllerExists, nil
}

func (f *fakeChain) GetTokenAccount(ctx context.Context, tokenAccount solana.PublicKey) (*chain.TokenAccountInfo, error) {
	return nil, nil
}

func (f *fakeChain) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	return solana.Hash{}, nil
}

func (f *fakeChain) SubmitTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	return solana.Signature{}, nil
}

func (f *fakeChain) ConfirmTransaction(ctx context.Context, sig solana.Signature) error {
	return nil
}

func testBundle() *bundledomain.Bundle {
	serviceWallet := solana.NewWallet().PublicKey()
	return &bundledomain.Bundle{
		ID:        "bundle-1",
		Frequency: catalog.FrequencyMonthly,
		IsActive:  true,
		SelectedPackages: []bundledomain.SelectedPackage{{
			ServiceID: "svc-music",
			Service:   catalog.Service{ID: "svc-music", WalletAddress: serviceWallet.String()},
			Package: catalog.Package{
				ID:     "pkg-music",
				Amount: decimal.NewFromInt(100),
				RequiredFormFields: []catalog.RequiredFormField{
					{FieldName: "accountEmail", FieldType: "text"},
					{FieldName: "seats", FieldType: "number", Optional: true},
				},
			},
		}},
		TotalOriginalPrice: decimal.NewFromInt(100),
		PriceEveryInterval: []decimal.Decimal{
			decimal.NewFromInt(50), decimal.NewFromInt(50), decimal.NewFromInt(100),
		},
	}
}

func newService(ledger *fakeLedger, bundles *fakeBundles, onchain *fakeChain) *SubscriptionService {
	programID := solana.MustPublicKeyFromBase58("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
	mint := solana.MustPublicKeyFromBase58("4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU")
	deriver := chain.NewDeriver(programID, mint)
	return NewSubscriptionService(
		ledger, bundles, onchain, onchain,
		deriver, chain.NewInstructionBuilder(deriver),
		solana.NewWallet().PrivateKey, zap.NewNop(),
	)
}

func TestAllowanceForIntervals(t *testing.T) {
	schedule := []decimal.Decimal{
		decimal.NewFromInt(50), decimal.NewFromInt(50), decimal.NewFromInt(100),
	}

	// 2 intervals: 100 tokens
	allowance, err := AllowanceForIntervals(schedule, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000_000), allowance)

	// Past the horizon the final price carries forward: 50+50+100+100+100
	allowance, err = AllowanceForIntervals(schedule, 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(400_000_000), allowance)
}

func TestAllowanceForIntervals_RejectsShrinkingSchedule(t *testing.T) {
	schedule := []decimal.Decimal{decimal.NewFromInt(100), decimal.NewFromInt(50)}
	_, err := AllowanceForIntervals(schedule, 2)
	assert.ErrorIs(t, err, xerrors.ErrInternal)
}

func TestPrepare_IncludesSetupOnlyWhenControllerMissing(t *testing.T) {
	ledger := &fakeLedger{subs: map[string]*domain.UserSubscription{}}
	bundles := &fakeBundles{b: testBundle()}
	wallet := solana.NewWallet().PublicKey().String()

	svc := newService(ledger, bundles, &fakeChain{controllerExists: false})
	res, err := svc.Prepare(context.Background(), wallet, &domain.PrepareRequest{BundleID: "bundle-1", NumberOfIntervals: 2})
	require.NoError(t, err)
	require.Len(t, res.Transactions, 2)
	assert.Equal(t, "initialize-controller", res.Transactions[0].Name)
	assert.Equal(t, "approve-spending", res.Transactions[1].Name)
	assert.NotEmpty(t, res.Transactions[1].Data)

	svc = newService(ledger, bundles, &fakeChain{controllerExists: true})
	res, err = svc.Prepare(context.Background(), wallet, &domain.PrepareRequest{BundleID: "bundle-1", NumberOfIntervals: 2})
	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, "approve-spending", res.Transactions[0].Name)
}

func TestValidateFormFields(t *testing.T) {
	required := []catalog.RequiredFormField{
		{FieldName: "accountEmail", FieldType: "text"},
		{FieldName: "seats", FieldType: "number", Optional: true},
	}

	err := ValidateFormFields(required, []domain.ProvidedFormField{
		{FieldName: "accountEmail", FieldValue: "me@example.com"},
	})
	assert.NoError(t, err, "optional fields may be omitted")

	err = ValidateFormFields(required, []domain.ProvidedFormField{
		{FieldName: "seats", FieldValue: "4"},
	})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput, "required field missing")

	err = ValidateFormFields(required, []domain.ProvidedFormField{
		{FieldName: "accountEmail", FieldValue: "me@example.com"},
		{FieldName: "seats", FieldValue: "four"},
	})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput, "numeric field must parse")

	err = ValidateFormFields(required, []domain.ProvidedFormField{
		{FieldName: "accountEmail", FieldValue: ""},
	})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput, "empty value on a required field")
}

func TestClaim_HappyPathAndDuplicate(t *testing.T) {
	ledger := &fakeLedger{subs: map[string]*domain.UserSubscription{
		"sub-1": {ID: "sub-1", UserID: "user-1", BundleID: "bundle-1", Status: domain.StatusActive},
	}}
	svc := newService(ledger, &fakeBundles{b: testBundle()}, &fakeChain{})

	req := &domain.ClaimRequest{
		PackageID: "pkg-music",
		ProvidedFormFields: []domain.ProvidedFormField{
			{FieldName: "accountEmail", FieldValue: "me@example.com"},
		},
	}

	sub, err := svc.Claim(context.Background(), "user-1", "sub-1", req)
	require.NoError(t, err)
	require.Len(t, sub.ClaimedPackages, 1)
	assert.Equal(t, "pkg-music", sub.ClaimedPackages[0].Package.ID)

	_, err = svc.Claim(context.Background(), "user-1", "sub-1", req)
	assert.ErrorIs(t, err, xerrors.ErrAlreadyClaimed)
}

func TestClaim_RequiresActiveSubscription(t *testing.T) {
	ledger := &fakeLedger{subs: map[string]*domain.UserSubscription{
		"sub-1": {ID: "sub-1", UserID: "user-1", BundleID: "bundle-1", Status: domain.StatusIntended},
	}}
	svc := newService(ledger, &fakeBundles{b: testBundle()}, &fakeChain{})

	_, err := svc.Claim(context.Background(), "user-1", "sub-1", &domain.ClaimRequest{PackageID: "pkg-music"})
	assert.ErrorIs(t, err, xerrors.ErrInvalidState)
}

func TestClaim_ForeignPackage(t *testing.T) {
	ledger := &fakeLedger{subs: map[string]*domain.UserSubscription{
		"sub-1": {ID: "sub-1", UserID: "user-1", BundleID: "bundle-1", Status: domain.StatusActive},
	}}
	svc := newService(ledger, &fakeBundles{b: testBundle()}, &fakeChain{})

	_, err := svc.Claim(context.Background(), "user-1", "sub-1", &domain.ClaimRequest{PackageID: "pkg-ghost"})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestLifecycleTransitions(t *testing.T) {
	ledger := &fakeLedger{subs: map[string]*domain.UserSubscription{
		"sub-1": {ID: "sub-1", UserID: "user-1", BundleID: "bundle-1", Status: domain.StatusActive},
	}}
	svc := newService(ledger, &fakeBundles{b: testBundle()}, &fakeChain{})
	ctx := context.Background()

	require.NoError(t, svc.Pause(ctx, "user-1", "sub-1"))
	assert.Equal(t, domain.StatusPaused, ledger.subs["sub-1"].Status)

	// A paused subscription cannot be paused again.
	assert.ErrorIs(t, svc.Pause(ctx, "user-1", "sub-1"), xerrors.ErrInvalidState)

	require.NoError(t, svc.Resume(ctx, "user-1", "sub-1"))
	assert.Equal(t, domain.StatusActive, ledger.subs["sub-1"].Status)

	require.NoError(t, svc.Cancel(ctx, "user-1", "sub-1"))
	assert.Equal(t, domain.StatusCancelled, ledger.subs["sub-1"].Status)

	// Terminal means terminal.
	assert.ErrorIs(t, svc.Cancel(ctx, "user-1", "sub-1"), xerrors.ErrInvalidState)
	assert.ErrorIs(t, svc.Resume(ctx, "user-1", "sub-1"), xerrors.ErrInvalidState)
}

func TestTransitions_OwnerOnly(t *testing.T) {
	ledger := &fakeLedger{subs: map[string]*domain.UserSubscription{
		"sub-1": {ID: "sub-1", UserID: "user-1", BundleID: "bundle-1", Status: domain.StatusActive},
	}}
	svc := newService(ledger, &fakeBundles{b: testBundle()}, &fakeChain{})

	err := svc.Cancel(context.Background(), "user-2", "sub-1")
	assert.ErrorIs(t, err, xerrors.ErrNotFound, "foreign subscriptions look like 404s")
}
