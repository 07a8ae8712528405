package chain

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDeriver() *Deriver {
	programID := solana.MustPublicKeyFromBase58("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
	mint := solana.MustPublicKeyFromBase58("4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU")
	return NewDeriver(programID, mint)
}

func TestBundleSeed_Deterministic(t *testing.T) {
	a := BundleSeed("bundle-123")
	b := BundleSeed("bundle-123")
	c := BundleSeed("bundle-124")

	assert.Equal(t, a, b, "identical ids must hash to identical seeds")
	assert.NotEqual(t, a, c)
	assert.Len(t, a[:], 16)
}

func TestControllerAddress_Deterministic(t *testing.T) {
	d := testDeriver()
	wallet := solana.NewWallet().PublicKey()

	first, err := d.ControllerAddress(wallet)
	require.NoError(t, err)
	second, err := d.ControllerAddress(wallet)
	require.NoError(t, err)

	assert.Equal(t, first, second, "derivation must be byte-identical across calls")

	other, err := d.ControllerAddress(solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.NotEqual(t, first, other, "different wallets must get different controllers")
}

func TestBundleAddress_VariesByBundleAndController(t *testing.T) {
	d := testDeriver()
	wallet := solana.NewWallet().PublicKey()
	controller, err := d.ControllerAddress(wallet)
	require.NoError(t, err)

	a, err := d.BundleAddress("bundle-1", controller)
	require.NoError(t, err)
	b, err := d.BundleAddress("bundle-1", controller)
	require.NoError(t, err)
	c, err := d.BundleAddress("bundle-2", controller)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	otherController, err := d.ControllerAddress(solana.NewWallet().PublicKey())
	require.NoError(t, err)
	e, err := d.BundleAddress("bundle-1", otherController)
	require.NoError(t, err)
	assert.NotEqual(t, a, e, "same bundle under another controller must differ")
}

func TestTokenAccountAddress_MatchesAssociatedDerivation(t *testing.T) {
	d := testDeriver()
	wallet := solana.NewWallet().PublicKey()

	got, err := d.TokenAccountAddress(wallet)
	require.NoError(t, err)

	want, _, err := solana.FindAssociatedTokenAddress(wallet, d.Mint())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
