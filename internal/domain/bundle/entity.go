package bundle

import (
	"time"

	"bundl-service/internal/domain/catalog"

	"github.com/shopspring/decimal"
)

// SelectedPackage is a frozen snapshot taken at bundle creation time: the
// originating service root document, the chosen package, and the offers judged
// applicable against the whole selection. Later catalog edits never alter it.
type SelectedPackage struct {
	ServiceID        string          `json:"serviceId"`
	Service          catalog.Service `json:"service"`
	Package          catalog.Package `json:"package"`
	ApplicableOffers []catalog.Offer `json:"applicableOffers"`
}

// Bundle is a user-assembled set of service packages billed together.
type Bundle struct {
	ID                        string            `json:"id"`
	Name                      string            `json:"name,omitempty"`
	Description               string            `json:"description,omitempty"`
	Color                     string            `json:"color"`
	IsPreset                  bool              `json:"isPreset"`
	SelectedPackages          []SelectedPackage `json:"selectedPackages"`
	Frequency                 catalog.Frequency `json:"frequency"`
	TotalOriginalPrice        decimal.Decimal   `json:"totalOriginalPrice"`
	TotalFirstDiscountedPrice decimal.Decimal   `json:"totalFirstDiscountedPrice"`
	PriceEveryInterval        []decimal.Decimal `json:"priceEveryInterval"`
	IsActive                  bool              `json:"isActive"`
	CreatedBy                 string            `json:"createdBy,omitempty"`
	CreatedAt                 time.Time         `json:"createdAt"`
	UpdatedAt                 time.Time         `json:"updatedAt"`
}

// RecipientWallets returns the payout wallet of each selected package's
// service, in selection order. Ordering is part of the pull-instruction
// account contract.
func (b *Bundle) RecipientWallets() []string {
	wallets := make([]string, 0, len(b.SelectedPackages))
	for _, sp := range b.SelectedPackages {
		wallets = append(wallets, sp.Service.WalletAddress)
	}
	return wallets
}

// FindSelectedPackage returns the snapshot holding the given package id, or nil.
func (b *Bundle) FindSelectedPackage(packageID string) *SelectedPackage {
	for i := range b.SelectedPackages {
		if b.SelectedPackages[i].Package.ID == packageID {
			return &b.SelectedPackages[i]
		}
	}
	return nil
}
