package chain

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	xerrors "bundl-service/internal/pkg/errors"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/shopspring/decimal"
)

// UnitScale converts a human-readable token amount to the token's smallest
// unit (6-decimal token).
const UnitScale = 1_000_000

// SecondsPerDay converts frequency days to the on-chain interval argument.
const SecondsPerDay = 86_400

// MaxRecipients is the hard cap on per-bundle recipients; the instruction
// carries a fixed-size amount array of this length.
const MaxRecipients = 5

// Operation names of the on-chain program.
const (
	OpInitializeController = "initialize_controller"
	OpAddBundle            = "add_bundle"
	OpTrigger              = "trigger"
)

// OperationTag is the fixed 8-byte discriminator identifying an operation:
// sha256("global:<name>")[0:8].
func OperationTag(name string) []byte {
	h := sha256.Sum256([]byte("global:" + name))
	return h[:8]
}

// ToBaseUnits scales a price to base units, rounding up so the pull never
// undercollects a fractional unit.
func ToBaseUnits(amount decimal.Decimal) uint64 {
	return uint64(amount.Mul(decimal.NewFromInt(UnitScale)).Ceil().IntPart())
}

// InstructionBuilder serializes the program's instructions. Account ordering
// is part of the wire contract: the program indexes accounts positionally.
type InstructionBuilder struct {
	deriver *Deriver
}

func NewInstructionBuilder(deriver *Deriver) *InstructionBuilder {
	return &InstructionBuilder{deriver: deriver}
}

// InitializeController builds the one-time controller setup instruction.
// Data is the operation tag alone.
func (b *InstructionBuilder) InitializeController(userWallet solana.PublicKey) (solana.Instruction, error) {
	controller, err := b.deriver.ControllerAddress(userWallet)
	if err != nil {
		return nil, err
	}
	tokenAccount, err := b.deriver.TokenAccountAddress(userWallet)
	if err != nil {
		return nil, err
	}

	accounts := solana.AccountMetaSlice{
		solana.Meta(controller).WRITE(),
		solana.Meta(b.deriver.Mint()),
		solana.Meta(userWallet).SIGNER(),
		solana.Meta(tokenAccount).WRITE(),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(solana.SystemProgramID),
	}
	return solana.NewInstruction(b.deriver.ProgramID(), accounts, OperationTag(OpInitializeController)), nil
}

// Approve builds the SPL token delegation letting the controller pull up to
// amount base units from the user's token account.
func (b *InstructionBuilder) Approve(userWallet solana.PublicKey, amount uint64) (solana.Instruction, error) {
	controller, err := b.deriver.ControllerAddress(userWallet)
	if err != nil {
		return nil, err
	}
	tokenAccount, err := b.deriver.TokenAccountAddress(userWallet)
	if err != nil {
		return nil, err
	}
	return token.NewApproveInstruction(amount, tokenAccount, controller, userWallet, nil).Build(), nil
}

// AddBundle registers a bundle under the controller: tag ‖ seed ‖ max amount
// per interval (u64 LE) ‖ interval seconds (u64 LE) ‖ 5 recipient token
// accounts (zero-key padded) ‖ recipient count (u8).
func (b *InstructionBuilder) AddBundle(
	bundleID string,
	userWallet solana.PublicKey,
	authority solana.PublicKey,
	maxAmountPerInterval uint64,
	intervalSeconds uint64,
	recipientTokenAccounts []solana.PublicKey,
) (solana.Instruction, error) {
	if len(recipientTokenAccounts) > MaxRecipients {
		return nil, fmt.Errorf("%w: bundle has %d recipients, maximum is %d",
			xerrors.ErrInvalidInput, len(recipientTokenAccounts), MaxRecipients)
	}

	controller, err := b.deriver.ControllerAddress(userWallet)
	if err != nil {
		return nil, err
	}
	bundlePDA, err := b.deriver.BundleAddress(bundleID, controller)
	if err != nil {
		return nil, err
	}

	seed := BundleSeed(bundleID)
	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)
	buf.Write(OperationTag(OpAddBundle))
	buf.Write(seed[:])
	if err := enc.WriteUint64(maxAmountPerInterval, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("failed to encode amount: %w", err)
	}
	if err := enc.WriteUint64(intervalSeconds, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("failed to encode interval: %w", err)
	}
	for i := 0; i < MaxRecipients; i++ {
		var key solana.PublicKey
		if i < len(recipientTokenAccounts) {
			key = recipientTokenAccounts[i]
		}
		buf.Write(key.Bytes())
	}
	buf.WriteByte(byte(len(recipientTokenAccounts)))

	accounts := solana.AccountMetaSlice{
		solana.Meta(controller).WRITE(),
		solana.Meta(bundlePDA).WRITE(),
		solana.Meta(authority).SIGNER().WRITE(),
		solana.Meta(userWallet).SIGNER().WRITE(),
		solana.Meta(solana.SystemProgramID),
	}
	return solana.NewInstruction(b.deriver.ProgramID(), accounts, buf.Bytes()), nil
}

// Trigger builds the pull-payment instruction: tag ‖ seed ‖ fixed array of 5
// u64 LE per-recipient amounts in base units. Accounts: controller, bundle,
// user token account, user wallet, mint, authority, token program, system
// program, then one recipient token account per selection in order.
func (b *InstructionBuilder) Trigger(
	bundleID string,
	userWallet solana.PublicKey,
	userTokenAccount solana.PublicKey,
	authority solana.PublicKey,
	amounts []decimal.Decimal,
	recipientTokenAccounts []solana.PublicKey,
) (solana.Instruction, error) {
	if len(amounts) != len(recipientTokenAccounts) {
		return nil, fmt.Errorf("%w: %d amounts for %d recipients",
			xerrors.ErrInvalidInput, len(amounts), len(recipientTokenAccounts))
	}
	if len(amounts) > MaxRecipients {
		return nil, fmt.Errorf("%w: bundle has %d recipients, maximum is %d",
			xerrors.ErrInvalidInput, len(amounts), MaxRecipients)
	}

	controller, err := b.deriver.ControllerAddress(userWallet)
	if err != nil {
		return nil, err
	}
	bundlePDA, err := b.deriver.BundleAddress(bundleID, controller)
	if err != nil {
		return nil, err
	}

	seed := BundleSeed(bundleID)
	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)
	buf.Write(OperationTag(OpTrigger))
	buf.Write(seed[:])
	for i := 0; i < MaxRecipients; i++ {
		var amount uint64
		if i < len(amounts) {
			amount = ToBaseUnits(amounts[i])
		}
		if err := enc.WriteUint64(amount, binary.LittleEndian); err != nil {
			return nil, fmt.Errorf("failed to encode amount: %w", err)
		}
	}

	accounts := solana.AccountMetaSlice{
		solana.Meta(controller).WRITE(),
		solana.Meta(bundlePDA).WRITE(),
		solana.Meta(userTokenAccount).WRITE(),
		solana.Meta(userWallet).WRITE(),
		solana.Meta(b.deriver.Mint()),
		solana.Meta(authority).SIGNER().WRITE(),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(solana.SystemProgramID),
	}
	for _, recipient := range recipientTokenAccounts {
		accounts = append(accounts, solana.Meta(recipient).WRITE())
	}
	return solana.NewInstruction(b.deriver.ProgramID(), accounts, buf.Bytes()), nil
}
