package catalog

// CreateOfferRequest mirrors Offer for catalog writes.
type CreateOfferRequest struct {
	Type                 OfferType `json:"type" binding:"required,oneof=free '%discount' 'fixed discount'"`
	Amount               float64   `json:"amount" binding:"min=0"`
	Period               string    `json:"period" binding:"required"`
	MinimumBundleItems   int       `json:"minimumBundleItems" binding:"min=0"`
	MandatoryServices    []string  `json:"mandatoryListOfServices"`
	AllowedCustomerTypes []string  `json:"allowedCustomerTypes"`
	TermsAndConditions   string    `json:"termsAndConditions"`
}

// CreatePackageRequest describes one package in a create-service payload.
type CreatePackageRequest struct {
	Name               string               `json:"name" binding:"required"`
	Amount             float64              `json:"amount" binding:"required,gt=0"`
	Frequency          Frequency            `json:"frequency" binding:"required,oneof=daily weekly monthly annually"`
	RequiredFormFields []RequiredFormField  `json:"requiredFormFields"`
	Offers             []CreateOfferRequest `json:"offers"`
}

// CreateServiceRequest is the admin payload to register a service.
type CreateServiceRequest struct {
	Name                 string                 `json:"name" binding:"required"`
	Logo                 string                 `json:"logo"`
	Category             string                 `json:"category" binding:"required"`
	Description          string                 `json:"description"`
	AllowedCustomerTypes []string               `json:"allowedCustomerTypes"`
	WalletAddress        string                 `json:"walletAddress" binding:"required"`
	EmailAddress         string                 `json:"emailAddress"`
	WebhookURL           string                 `json:"webhookUrl"`
	Packages             []CreatePackageRequest `json:"packages"`
}

// UpdateServiceRequest carries partial catalog updates.
type UpdateServiceRequest struct {
	Name          *string `json:"name"`
	Logo          *string `json:"logo"`
	Category      *string `json:"category"`
	Description   *string `json:"description"`
	WalletAddress *string `json:"walletAddress"`
	EmailAddress  *string `json:"emailAddress"`
	WebhookURL    *string `json:"webhookUrl"`
	IsActive      *bool   `json:"isActive"`
}
