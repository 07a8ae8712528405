package chain

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"

	xerrors "bundl-service/internal/pkg/errors"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationTag(t *testing.T) {
	want := sha256.Sum256([]byte("global:trigger"))
	assert.Equal(t, want[:8], OperationTag(OpTrigger))
	assert.Len(t, OperationTag(OpAddBundle), 8)
	assert.NotEqual(t, OperationTag(OpAddBundle), OperationTag(OpInitializeController))
}

func TestToBaseUnits_RoundsUp(t *testing.T) {
	assert.Equal(t, uint64(1_000_000), ToBaseUnits(decimal.NewFromInt(1)))
	assert.Equal(t, uint64(12_500_000), ToBaseUnits(decimal.NewFromFloat(12.5)))
	// A fractional base unit must never be undercollected.
	assert.Equal(t, uint64(2), ToBaseUnits(decimal.NewFromFloat(0.0000011)))
	assert.Equal(t, uint64(0), ToBaseUnits(decimal.Zero))
}

func TestInitializeController_Layout(t *testing.T) {
	b := NewInstructionBuilder(testDeriver())
	wallet := solana.NewWallet().PublicKey()

	inst, err := b.InitializeController(wallet)
	require.NoError(t, err)

	data, err := inst.Data()
	require.NoError(t, err)
	assert.Equal(t, OperationTag(OpInitializeController), data, "data is the bare operation tag")

	accounts := inst.Accounts()
	require.Len(t, accounts, 6)
	controller, _ := testDeriver().ControllerAddress(wallet)
	tokenAccount, _ := testDeriver().TokenAccountAddress(wallet)
	assert.Equal(t, controller, accounts[0].PublicKey)
	assert.Equal(t, testDeriver().Mint(), accounts[1].PublicKey)
	assert.Equal(t, wallet, accounts[2].PublicKey)
	assert.True(t, accounts[2].IsSigner)
	assert.Equal(t, tokenAccount, accounts[3].PublicKey)
	assert.Equal(t, solana.TokenProgramID, accounts[4].PublicKey)
	assert.Equal(t, solana.SystemProgramID, accounts[5].PublicKey)
}

func TestAddBundle_DataLayout(t *testing.T) {
	b := NewInstructionBuilder(testDeriver())
	wallet := solana.NewWallet().PublicKey()
	authority := solana.NewWallet().PublicKey()
	recipients := []solana.PublicKey{
		solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(),
	}

	inst, err := b.AddBundle("bundle-1", wallet, authority, 42_000_000, 30*SecondsPerDay, recipients)
	require.NoError(t, err)

	data, err := inst.Data()
	require.NoError(t, err)
	// tag(8) + seed(16) + max amount(8) + interval(8) + 5 keys(160) + count(1)
	require.Len(t, data, 201)

	assert.Equal(t, OperationTag(OpAddBundle), data[:8])
	seed := BundleSeed("bundle-1")
	assert.Equal(t, seed[:], data[8:24])
	assert.Equal(t, uint64(42_000_000), binary.LittleEndian.Uint64(data[24:32]))
	assert.Equal(t, uint64(30*SecondsPerDay), binary.LittleEndian.Uint64(data[32:40]))
	assert.Equal(t, recipients[0].Bytes(), data[40:72])
	assert.Equal(t, recipients[1].Bytes(), data[72:104])
	var zero solana.PublicKey
	assert.Equal(t, zero.Bytes(), data[104:136], "unused recipient slots are zero-key padded")
	assert.Equal(t, byte(2), data[200])

	accounts := inst.Accounts()
	require.Len(t, accounts, 5)
	assert.True(t, accounts[2].IsSigner, "authority signs")
	assert.True(t, accounts[3].IsSigner, "user wallet signs")
	assert.Equal(t, solana.SystemProgramID, accounts[4].PublicKey)
}

func TestAddBundle_TooManyRecipients(t *testing.T) {
	b := NewInstructionBuilder(testDeriver())
	recipients := make([]solana.PublicKey, MaxRecipients+1)
	for i := range recipients {
		recipients[i] = solana.NewWallet().PublicKey()
	}

	_, err := b.AddBundle("bundle-1", solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(),
		1, 1, recipients)
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestTrigger_DataAndAccountOrder(t *testing.T) {
	d := testDeriver()
	b := NewInstructionBuilder(d)
	wallet := solana.NewWallet().PublicKey()
	tokenAccount, _ := d.TokenAccountAddress(wallet)
	authority := solana.NewWallet().PublicKey()
	recipients := []solana.PublicKey{solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()}
	amounts := []decimal.Decimal{decimal.NewFromFloat(9.99), decimal.NewFromInt(5)}

	inst, err := b.Trigger("bundle-1", wallet, tokenAccount, authority, amounts, recipients)
	require.NoError(t, err)

	data, err := inst.Data()
	require.NoError(t, err)
	// tag(8) + seed(16) + fixed amounts array(40)
	require.Len(t, data, 64)
	assert.Equal(t, OperationTag(OpTrigger), data[:8])
	seed := BundleSeed("bundle-1")
	assert.Equal(t, seed[:], data[8:24])
	assert.Equal(t, uint64(9_990_000), binary.LittleEndian.Uint64(data[24:32]))
	assert.Equal(t, uint64(5_000_000), binary.LittleEndian.Uint64(data[32:40]))
	assert.Equal(t, uint64(0), binary.LittleEndian.Uint64(data[40:48]), "unused slots carry zero")

	controller, _ := d.ControllerAddress(wallet)
	bundlePDA, _ := d.BundleAddress("bundle-1", controller)
	accounts := inst.Accounts()
	require.Len(t, accounts, 8+len(recipients))
	assert.Equal(t, controller, accounts[0].PublicKey)
	assert.Equal(t, bundlePDA, accounts[1].PublicKey)
	assert.Equal(t, tokenAccount, accounts[2].PublicKey)
	assert.Equal(t, wallet, accounts[3].PublicKey)
	assert.Equal(t, d.Mint(), accounts[4].PublicKey)
	assert.Equal(t, authority, accounts[5].PublicKey)
	assert.True(t, accounts[5].IsSigner, "only the authority signs a pull")
	assert.Equal(t, solana.TokenProgramID, accounts[6].PublicKey)
	assert.Equal(t, solana.SystemProgramID, accounts[7].PublicKey)
	assert.Equal(t, recipients[0], accounts[8].PublicKey)
	assert.Equal(t, recipients[1], accounts[9].PublicKey)
}

func TestTrigger_AmountRecipientMismatch(t *testing.T) {
	b := NewInstructionBuilder(testDeriver())
	_, err := b.Trigger("bundle-1",
		solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(),
		[]decimal.Decimal{decimal.NewFromInt(1)},
		[]solana.PublicKey{solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}
