package chain

import (
	"crypto/md5"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Deriver computes the deterministic delegation addresses the on-chain program
// derives on its side. Pure, no I/O: identical inputs always yield identical
// addresses.
type Deriver struct {
	programID solana.PublicKey
	mint      solana.PublicKey
}

func NewDeriver(programID, mint solana.PublicKey) *Deriver {
	return &Deriver{programID: programID, mint: mint}
}

func (d *Deriver) ProgramID() solana.PublicKey { return d.programID }
func (d *Deriver) Mint() solana.PublicKey      { return d.mint }

// BundleSeed hashes the bundle's string id into a fixed-width 16-byte seed.
// Content addressing only, not a security boundary.
func BundleSeed(bundleID string) [16]byte {
	return md5.Sum([]byte(bundleID))
}

// ControllerAddress derives the spending-controller account for a wallet:
// seeds ["controller", wallet].
func (d *Deriver) ControllerAddress(userWallet solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("controller"), userWallet.Bytes()},
		d.programID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive controller address: %w", err)
	}
	return addr, nil
}

// BundleAddress derives the per-bundle account: seeds [md5(bundleId), controller].
func (d *Deriver) BundleAddress(bundleID string, controller solana.PublicKey) (solana.PublicKey, error) {
	seed := BundleSeed(bundleID)
	addr, _, err := solana.FindProgramAddress(
		[][]byte{seed[:], controller.Bytes()},
		d.programID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive bundle address: %w", err)
	}
	return addr, nil
}

// TokenAccountAddress derives the associated token account holding the
// payment token for a wallet.
func (d *Deriver) TokenAccountAddress(wallet solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(wallet, d.mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive token account address: %w", err)
	}
	return addr, nil
}
