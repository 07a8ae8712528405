package subscription

import (
	"time"

	"bundl-service/internal/domain/bundle"
	"bundl-service/internal/domain/catalog"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a user subscription.
type Status string

const (
	StatusIntended    Status = "intended"
	StatusActive      Status = "active"
	StatusPaused      Status = "paused"
	StatusGracePeriod Status = "grace-period"
	StatusCancelled   Status = "cancelled"
	StatusSuspended   Status = "suspended"
)

// Terminal reports whether the status permits re-subscribing the same bundle.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusSuspended
}

// PullEligible reports whether a payment pull may be attempted in this state.
func (s Status) PullEligible() bool {
	return s == StatusIntended || s == StatusActive || s == StatusGracePeriod
}

// PullEligibleStatuses lists the states PullEligible accepts, for SQL guards.
func PullEligibleStatuses() []Status {
	return []Status{StatusIntended, StatusActive, StatusGracePeriod}
}

// RevivableStatuses lists the states a new intent may replace: the terminal
// ones plus an intent that never activated.
func RevivableStatuses() []Status {
	return []Status{StatusCancelled, StatusSuspended, StatusIntended}
}

// BillableDueStatuses lists the states the due sweep considers; an intended
// subscription has no schedule yet and is pulled explicitly instead.
func BillableDueStatuses() []Status {
	return []Status{StatusActive, StatusGracePeriod}
}

// InvoiceStatus tracks a single billing attempt window.
type InvoiceStatus string

const (
	InvoicePending InvoiceStatus = "pending"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceFailed  InvoiceStatus = "failed"
)

// PaymentHistoryEntry is one submit/confirm attempt inside an invoice.
type PaymentHistoryEntry struct {
	Time   time.Time `json:"time"`
	Status string    `json:"status"` // success | failed | pending
	TxHash string    `json:"txHash,omitempty"`
}

// Invoice is appended before any network submission so a crash mid-flight
// leaves an auditable pending trail.
type Invoice struct {
	ID             string                `json:"id"`
	Date           time.Time             `json:"date"`
	Status         InvoiceStatus         `json:"status"`
	Amount         decimal.Decimal       `json:"amount"`
	PaymentHistory []PaymentHistoryEntry `json:"paymentHistory"`
}

// ProvidedFormField is a subscriber-supplied value for a required form field.
type ProvidedFormField struct {
	FieldName  string `json:"fieldName"`
	FieldValue string `json:"fieldValue"`
}

// ClaimedPackage records a package redeemed under a subscription. A package id
// can be claimed at most once per subscription.
type ClaimedPackage struct {
	ServiceID          string              `json:"serviceId"`
	Service            catalog.Service     `json:"service"`
	Package            catalog.Package     `json:"package"`
	ProvidedFormFields []ProvidedFormField `json:"providedFormFields"`
	ClaimInstructions  string              `json:"claimInstructions,omitempty"`
	CreatedAt          time.Time           `json:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt"`
}

// UserSubscription is the persisted ledger record per (user, bundle). The pair
// is unique; the repository is the only writer of status transitions.
type UserSubscription struct {
	ID              string           `json:"id"`
	UserID          string           `json:"userId"`
	BundleID        string           `json:"bundleId"`
	Bundle          *bundle.Bundle   `json:"bundle,omitempty"`
	Status          Status           `json:"status"`
	SubscribeDate   time.Time        `json:"subscribeDate"`
	NextPaymentDate time.Time        `json:"nextPaymentDate"`
	Invoices        []Invoice        `json:"invoices"`
	ClaimedPackages []ClaimedPackage `json:"claimedPackages"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// HasClaimed reports whether the package id was already claimed.
func (s *UserSubscription) HasClaimed(packageID string) bool {
	for _, cp := range s.ClaimedPackages {
		if cp.Package.ID == packageID {
			return true
		}
	}
	return false
}

// HasPendingInvoice reports whether a billing attempt is currently in flight.
func (s *UserSubscription) HasPendingInvoice() bool {
	for _, inv := range s.Invoices {
		if inv.Status == InvoicePending {
			return true
		}
	}
	return false
}

// LastInvoice returns the most recently appended invoice, or nil.
func (s *UserSubscription) LastInvoice() *Invoice {
	if len(s.Invoices) == 0 {
		return nil
	}
	return &s.Invoices[len(s.Invoices)-1]
}
