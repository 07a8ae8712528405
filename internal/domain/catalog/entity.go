package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Frequency is the billing cadence of a package.
type Frequency string

const (
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyMonthly  Frequency = "monthly"
	FrequencyAnnually Frequency = "annually"
)

// OfferType discriminates how an offer discounts a package price.
type OfferType string

const (
	OfferFree          OfferType = "free"
	OfferPercentage    OfferType = "%discount"
	OfferFixedDiscount OfferType = "fixed discount"
)

// PeriodUnlimited marks an offer that never decays.
const PeriodUnlimited = "unlimited"

// BundleRestrictions limit when an offer applies to a bundle composition.
type BundleRestrictions struct {
	MinimumBundleItems      int      `json:"minimumBundleItems"`
	MandatoryListOfServices []string `json:"mandatoryListOfServices"`
}

// Offer is a promotional discount attached to a package.
// Period is either "unlimited" or "<N> <unit>" with unit in day/week/month/year.
type Offer struct {
	Type                 OfferType          `json:"type"`
	Amount               decimal.Decimal    `json:"amount"`
	Period               string             `json:"period"`
	BundleRestrictions   BundleRestrictions `json:"bundlRestrictions"`
	AllowedCustomerTypes []string           `json:"allowedCustomerTypes"`
	TermsAndConditions   string             `json:"termsAndConditions"`
}

// RequiredFormField describes data a subscriber must provide when claiming a package.
type RequiredFormField struct {
	FieldName string `json:"fieldName"`
	FieldType string `json:"fieldType"`
	Optional  bool   `json:"optional"`
}

// Package is a subscribable unit embedded in a service document.
type Package struct {
	ID                 string              `json:"id"`
	Name               string              `json:"name"`
	Amount             decimal.Decimal     `json:"amount"`
	Frequency          Frequency           `json:"frequency"`
	IsActive           bool                `json:"isActive"`
	RequiredFormFields []RequiredFormField `json:"requiredFormFields"`
	Offers             []Offer             `json:"offers"`
}

// Service is a provider of packages. WalletAddress is the payout wallet and is
// stripped from normal reads.
type Service struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Logo                 string    `json:"logo"`
	Category             string    `json:"category"`
	Description          string    `json:"description"`
	AllowedCustomerTypes []string  `json:"allowedCustomerTypes"`
	IsActive             bool      `json:"isActive"`
	WalletAddress        string    `json:"walletAddress,omitempty"`
	EmailAddress         string    `json:"emailAddress,omitempty"`
	WebhookURL           string    `json:"webhookUrl,omitempty"`
	Packages             []Package `json:"packages"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// FindPackage returns the embedded package with the given id, or nil.
func (s *Service) FindPackage(packageID string) *Package {
	for i := range s.Packages {
		if s.Packages[i].ID == packageID {
			return &s.Packages[i]
		}
	}
	return nil
}

// RootDocument returns a copy without the package payloads and without the
// hidden payout fields, matching the narrow catalog read contract.
func (s *Service) RootDocument() Service {
	root := *s
	root.Packages = nil
	root.WalletAddress = ""
	root.EmailAddress = ""
	root.WebhookURL = ""
	return root
}
