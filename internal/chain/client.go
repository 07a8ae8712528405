package chain

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	xerrors "bundl-service/internal/pkg/errors"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// TokenAccountInfo is the decoded delegation view of an SPL token account.
type TokenAccountInfo struct {
	Amount          uint64
	Delegate        *solana.PublicKey
	DelegatedAmount uint64
}

// Reader is the chain read contract. All amounts are in base units.
type Reader interface {
	GetTokenBalance(ctx context.Context, tokenAccount solana.PublicKey) (uint64, error)
	AccountExists(ctx context.Context, address solana.PublicKey) (bool, error)
	GetTokenAccount(ctx context.Context, tokenAccount solana.PublicKey) (*TokenAccountInfo, error)
}

// Writer is the chain write contract.
type Writer interface {
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	SubmitTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	ConfirmTransaction(ctx context.Context, sig solana.Signature) error
}

// Client talks to a Solana RPC node. Every call is bounded by requestTimeout;
// confirmation polling is additionally capped by confirmTimeout so a pull
// never blocks indefinitely.
type Client struct {
	rpc            *rpc.Client
	logger         *zap.Logger
	requestTimeout time.Duration
	confirmTimeout time.Duration
	pollInterval   time.Duration
}

func NewClient(rpcURL string, logger *zap.Logger) *Client {
	return &Client{
		rpc:            rpc.New(rpcURL),
		logger:         logger,
		requestTimeout: 15 * time.Second,
		confirmTimeout: 90 * time.Second,
		pollInterval:   3 * time.Second,
	}
}

func (c *Client) GetTokenBalance(ctx context.Context, tokenAccount solana.PublicKey) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	res, err := c.rpc.GetTokenAccountBalance(ctx, tokenAccount, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("failed to read token balance: %w", err)
	}
	var balance uint64
	if _, err := fmt.Sscan(res.Value.Amount, &balance); err != nil {
		return 0, fmt.Errorf("failed to parse token balance %q: %w", res.Value.Amount, err)
	}
	return balance, nil
}

func (c *Client) AccountExists(ctx context.Context, address solana.PublicKey) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	_, err := c.rpc.GetAccountInfo(ctx, address)
	if errors.Is(err, rpc.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read account %s: %w", address, err)
	}
	return true, nil
}

func (c *Client) GetTokenAccount(ctx context.Context, tokenAccount solana.PublicKey) (*TokenAccountInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	res, err := c.rpc.GetAccountInfo(ctx, tokenAccount)
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, fmt.Errorf("token account %s: %w", tokenAccount, xerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token account %s: %w", tokenAccount, err)
	}
	return parseTokenAccount(res.Value.Data.GetBinary())
}

// parseTokenAccount decodes the fixed SPL token account layout: mint(32),
// owner(32), amount(8), delegate COption(4+32), state(1), isNative
// COption(4+8), delegatedAmount(8), closeAuthority COption(4+32).
func parseTokenAccount(data []byte) (*TokenAccountInfo, error) {
	const tokenAccountSize = 165
	if len(data) < tokenAccountSize {
		return nil, fmt.Errorf("%w: token account data is %d bytes", xerrors.ErrInvalidInput, len(data))
	}

	info := &TokenAccountInfo{}
	info.Amount = binary.LittleEndian.Uint64(data[64:72])

	if binary.LittleEndian.Uint32(data[72:76]) == 1 {
		delegate := solana.PublicKeyFromBytes(data[76:108])
		info.Delegate = &delegate
	}
	info.DelegatedAmount = binary.LittleEndian.Uint64(data[121:129])
	return info, nil
}

func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	res, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("failed to fetch latest blockhash: %w", err)
	}
	return res.Value.Blockhash, nil
}

func (c *Client) SubmitTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	sig, err := c.rpc.SendTransaction(ctx, tx)
	if err != nil {
		c.logger.Error("transaction submission failed", zap.Error(err))
		return solana.Signature{}, fmt.Errorf("%w: %v", xerrors.ErrSubmissionFailed, err)
	}
	return sig, nil
}

// ConfirmTransaction polls signature status until the transaction is
// confirmed, fails, or the confirmation window elapses. A timeout is reported
// as ErrConfirmationTimeout, distinct from ErrTransactionFailed: the
// transaction may still land and must be reconciled, never blindly resent.
func (c *Client) ConfirmTransaction(ctx context.Context, sig solana.Signature) error {
	deadline := time.Now().Add(c.confirmTimeout)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", xerrors.ErrConfirmationTimeout, ctx.Err())
		case <-ticker.C:
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: no confirmation after %s", xerrors.ErrConfirmationTimeout, c.confirmTimeout)
		}

		res, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			c.logger.Warn("signature status poll failed", zap.String("signature", sig.String()), zap.Error(err))
			continue
		}
		if len(res.Value) == 0 || res.Value[0] == nil {
			continue
		}
		status := res.Value[0]
		if status.Err != nil {
			return fmt.Errorf("%w: %v", xerrors.ErrTransactionFailed, status.Err)
		}
		if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
			status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
			return nil
		}
	}
}
