package chain

import (
	"context"
	"fmt"

	xerrors "bundl-service/internal/pkg/errors"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Verifier checks that everything a pull payment needs is in place before any
// transaction is built. Checks run in a fixed order and short-circuit on the
// first failure, so callers always get the most actionable error.
type Verifier struct {
	reader  Reader
	deriver *Deriver
	logger  *zap.Logger
}

func NewVerifier(reader Reader, deriver *Deriver, logger *zap.Logger) *Verifier {
	return &Verifier{reader: reader, deriver: deriver, logger: logger}
}

// EnsureReady verifies, in order: token balance covers the charge, the
// controller account exists, the delegation points at the controller, the
// remaining delegated allowance covers the charge (equality passes), and the
// bundle is registered on chain. Read-only.
func (v *Verifier) EnsureReady(
	ctx context.Context,
	userWallet solana.PublicKey,
	userTokenAccount solana.PublicKey,
	required decimal.Decimal,
	bundleID string,
) error {
	requiredUnits := ToBaseUnits(required)

	balance, err := v.reader.GetTokenBalance(ctx, userTokenAccount)
	if err != nil {
		return err
	}
	if balance < requiredUnits {
		return fmt.Errorf("%w: balance %d, required %d", xerrors.ErrInsufficientBalance, balance, requiredUnits)
	}

	controller, err := v.deriver.ControllerAddress(userWallet)
	if err != nil {
		return err
	}
	exists, err := v.reader.AccountExists(ctx, controller)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: wallet %s", xerrors.ErrControllerNotFound, userWallet)
	}

	tokenAccount, err := v.reader.GetTokenAccount(ctx, userTokenAccount)
	if err != nil {
		return err
	}
	if tokenAccount.Delegate == nil || !tokenAccount.Delegate.Equals(controller) {
		return fmt.Errorf("%w: wallet %s", xerrors.ErrDelegationMissing, userWallet)
	}
	if tokenAccount.DelegatedAmount < requiredUnits {
		return fmt.Errorf("%w: delegated %d, required %d",
			xerrors.ErrInsufficientDelegation, tokenAccount.DelegatedAmount, requiredUnits)
	}

	bundlePDA, err := v.deriver.BundleAddress(bundleID, controller)
	if err != nil {
		return err
	}
	registered, err := v.reader.AccountExists(ctx, bundlePDA)
	if err != nil {
		return err
	}
	if !registered {
		return fmt.Errorf("%w: bundle %s", xerrors.ErrBundleNotRegistered, bundleID)
	}

	v.logger.Debug("payment preconditions verified",
		zap.String("wallet", userWallet.String()),
		zap.String("bundle_id", bundleID),
		zap.Uint64("required_units", requiredUnits))
	return nil
}
