package pricing

import (
	"context"
	"fmt"

	"bundl-service/internal/domain/bundle"
	"bundl-service/internal/domain/catalog"
	xerrors "bundl-service/internal/pkg/errors"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CatalogReader is the narrow catalog read contract the engine depends on.
type CatalogReader interface {
	FindActiveServices(ctx context.Context) ([]catalog.Service, error)
	FindServiceRootDocumentsByIDs(ctx context.Context, ids []string) ([]catalog.Service, error)
}

// Engine computes discounted bundle prices. It is stateless and side-effect
// free; PreviewBundle is the pricing oracle used for the public preview, for
// committing a bundle, and before building a payment instruction.
type Engine struct {
	services CatalogReader
}

func NewEngine(services CatalogReader) *Engine {
	return &Engine{services: services}
}

// PreviewPackage is one selected package with its creation-time snapshots.
type PreviewPackage struct {
	Service          catalog.Service // root document, no package payloads
	Package          catalog.Package
	ApplicableOffers []catalog.Offer
}

// Preview is the engine's output: the full forward-looking price curve a
// subscriber will pay, index 0 being the first charge.
type Preview struct {
	Packages                  []PreviewPackage
	Frequency                 catalog.Frequency
	TotalOriginalPrice        decimal.Decimal
	TotalFirstDiscountedPrice decimal.Decimal
	PriceEveryInterval        []decimal.Decimal
}

// Response renders the preview for the API boundary.
func (p *Preview) Response() *bundle.PreviewResponse {
	details := make([]bundle.PackageDetail, len(p.Packages))
	for i, pkg := range p.Packages {
		details[i] = bundle.PackageDetail{
			ServiceID:        pkg.Service.ID,
			PackageID:        pkg.Package.ID,
			ServiceName:      pkg.Service.Name,
			PackageName:      pkg.Package.Name,
			Amount:           pkg.Package.Amount.InexactFloat64(),
			ApplicableOffers: pkg.ApplicableOffers,
		}
	}
	return &bundle.PreviewResponse{
		Packages:                  details,
		Frequency:                 p.Frequency,
		TotalOriginalPrice:        p.TotalOriginalPrice.InexactFloat64(),
		TotalFirstDiscountedPrice: p.TotalFirstDiscountedPrice.InexactFloat64(),
		PriceEveryInterval:        bundle.RenderPrices(p.PriceEveryInterval),
	}
}

// DiscountedPrice applies the best single offer (discounts are not stacked)
// still valid at the interval and rounds the aggregate to two decimals. The
// result never exceeds base and is never negative.
func DiscountedPrice(base decimal.Decimal, offers []catalog.Offer, intervalIndex int, frequency catalog.Frequency) (decimal.Decimal, error) {
	maxDiscount := decimal.Zero
	for _, offer := range offers {
		percent, excluded, err := ValidityForInterval(offer, intervalIndex, frequency)
		if err != nil {
			return decimal.Zero, err
		}
		if excluded {
			continue
		}
		percentValid := decimal.NewFromInt(percent)

		var candidate decimal.Decimal
		switch offer.Type {
		case catalog.OfferFree:
			candidate = percentValid
		case catalog.OfferPercentage:
			candidate = offer.Amount.Mul(percentValid).Div(hundred)
		case catalog.OfferFixedDiscount:
			if base.IsZero() {
				continue
			}
			candidate = offer.Amount.Div(base).Mul(hundred).Mul(percentValid).Div(hundred)
		default:
			continue
		}
		if candidate.GreaterThan(maxDiscount) {
			maxDiscount = candidate
		}
	}
	if maxDiscount.GreaterThan(hundred) {
		maxDiscount = hundred
	}

	// round(base * (100 - discount%)) / 100: two-decimal rounding at the
	// aggregate step, not per offer.
	return base.Mul(hundred.Sub(maxDiscount)).Round(0).Div(hundred), nil
}

// MaxIntervals is the schedule horizon per frequency.
func MaxIntervals(frequency catalog.Frequency) int {
	switch frequency {
	case catalog.FrequencyMonthly:
		return 12
	case catalog.FrequencyWeekly:
		return 52
	default:
		return 5
	}
}

// PriceSchedule sums DiscountedPrice across all packages for every interval of
// the schedule horizon.
func PriceSchedule(packages []PreviewPackage, frequency catalog.Frequency) ([]decimal.Decimal, error) {
	maxIntervals := MaxIntervals(frequency)
	prices := make([]decimal.Decimal, 0, maxIntervals)
	for i := 0; i < maxIntervals; i++ {
		total := decimal.Zero
		for _, pkg := range packages {
			price, err := DiscountedPrice(pkg.Package.Amount, pkg.ApplicableOffers, i, frequency)
			if err != nil {
				return nil, err
			}
			total = total.Add(price)
		}
		prices = append(prices, total)
	}
	return prices, nil
}

// AssertNonDecreasing rejects a schedule that shrinks over time. The delegated
// allowance is sized from the schedule under the assumption that prices only
// recover toward the original as offers lapse.
func AssertNonDecreasing(schedule []decimal.Decimal) error {
	for i := 1; i < len(schedule); i++ {
		if schedule[i].LessThan(schedule[i-1]) {
			return fmt.Errorf("%w: price schedule decreases at interval %d", xerrors.ErrInternal, i)
		}
	}
	return nil
}

// PreviewBundle validates the selection, snapshots catalog data, filters
// applicable offers against the whole selection, and computes the price
// schedule. Idempotent and side-effect free.
func (e *Engine) PreviewBundle(ctx context.Context, req *bundle.PreviewRequest) (*Preview, error) {
	serviceIDs := make([]string, len(req.SelectedPackages))
	for i, sp := range req.SelectedPackages {
		serviceIDs[i] = sp.ServiceID
	}

	activeServices, err := e.services.FindActiveServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active services: %w", err)
	}
	rootDocuments, err := e.services.FindServiceRootDocumentsByIDs(ctx, serviceIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load service root documents: %w", err)
	}

	serviceMap := make(map[string]catalog.Service, len(activeServices))
	for _, svc := range activeServices {
		serviceMap[svc.ID] = svc
	}
	rootMap := make(map[string]catalog.Service, len(rootDocuments))
	for _, svc := range rootDocuments {
		rootMap[svc.ID] = svc
	}

	var frequency catalog.Frequency
	packages := make([]PreviewPackage, 0, len(req.SelectedPackages))
	totalOriginal := decimal.Zero

	for i, sp := range req.SelectedPackages {
		svc, ok := serviceMap[sp.ServiceID]
		if !ok {
			return nil, fmt.Errorf("%w: service not found with id: %s", xerrors.ErrInvalidInput, sp.ServiceID)
		}
		pkg := svc.FindPackage(sp.PackageID)
		if pkg == nil {
			return nil, fmt.Errorf("%w: package not found with id: %s in service with id: %s",
				xerrors.ErrInvalidInput, sp.PackageID, sp.ServiceID)
		}

		if i == 0 {
			frequency = pkg.Frequency
		} else if pkg.Frequency != frequency {
			return nil, xerrors.ErrMixedFrequency
		}

		packages = append(packages, PreviewPackage{
			Service:          rootMap[sp.ServiceID],
			Package:          *pkg,
			ApplicableOffers: ApplicableOffers(pkg.Offers, serviceIDs, len(req.SelectedPackages)),
		})
		totalOriginal = totalOriginal.Add(pkg.Amount)
	}

	schedule, err := PriceSchedule(packages, frequency)
	if err != nil {
		return nil, err
	}

	return &Preview{
		Packages:                  packages,
		Frequency:                 frequency,
		TotalOriginalPrice:        totalOriginal,
		TotalFirstDiscountedPrice: schedule[0],
		PriceEveryInterval:        schedule,
	}, nil
}
