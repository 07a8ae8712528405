package bundle

import (
	"bundl-service/internal/domain/catalog"

	"github.com/shopspring/decimal"
)

// SelectedPackageRequest is one (service, package) pair in a preview or create request.
type SelectedPackageRequest struct {
	ServiceID string `json:"service" binding:"required"`
	PackageID string `json:"package" binding:"required"`
}

// PreviewRequest asks for the forward-looking price curve of a selection.
type PreviewRequest struct {
	SelectedPackages []SelectedPackageRequest `json:"selectedPackages" binding:"required,min=1,dive"`
}

// PackageDetail is the per-package breakdown of a preview.
type PackageDetail struct {
	ServiceID        string          `json:"serviceId"`
	PackageID        string          `json:"packageId"`
	ServiceName      string          `json:"serviceName"`
	PackageName      string          `json:"packageName"`
	Amount           float64         `json:"amount"`
	ApplicableOffers []catalog.Offer `json:"applicableOffers"`
}

// PreviewResponse is the pricing oracle output. Prices are rendered as plain
// numbers only here, at the API boundary; internal math stays in decimals.
type PreviewResponse struct {
	Packages                  []PackageDetail   `json:"packages"`
	Frequency                 catalog.Frequency `json:"frequency"`
	TotalOriginalPrice        float64           `json:"totalOriginalPrice"`
	TotalFirstDiscountedPrice float64           `json:"totalFirstDiscountedPrice"`
	PriceEveryInterval        []float64         `json:"priceEveryInterval"`
}

// CreateBundleRequest commits a previewed selection as a bundle.
type CreateBundleRequest struct {
	Name             string                   `json:"name"`
	Description      string                   `json:"description"`
	Color            string                   `json:"color" binding:"required"`
	IsPreset         bool                     `json:"isPreset"`
	SelectedPackages []SelectedPackageRequest `json:"selectedPackages" binding:"required,min=1,dive"`
}

// RenderPrices converts a decimal schedule for the response payload.
func RenderPrices(schedule []decimal.Decimal) []float64 {
	out := make([]float64, len(schedule))
	for i, p := range schedule {
		out[i] = p.InexactFloat64()
	}
	return out
}
