package pricing

import (
	"fmt"
	"strconv"
	"strings"

	"bundl-service/internal/domain/catalog"
	xerrors "bundl-service/internal/pkg/errors"
)

// FrequencyDays converts a billing frequency to its day length.
func FrequencyDays(frequency catalog.Frequency) int {
	switch frequency {
	case catalog.FrequencyAnnually:
		return 365
	case catalog.FrequencyMonthly:
		return 30
	case catalog.FrequencyWeekly:
		return 7
	case catalog.FrequencyDaily:
		return 1
	default:
		return 0
	}
}

// periodDays converts an offer period count+unit to days. Unknown units are a
// hard error, never silently defaulted.
func periodDays(count int, unit string) (int, error) {
	switch unit {
	case "day", "days":
		return count, nil
	case "week", "weeks":
		return count * 7, nil
	case "month", "months":
		return count * 30, nil
	case "year", "years":
		return count * 365, nil
	default:
		return 0, fmt.Errorf("%w: %q", xerrors.ErrInvalidPeriodUnit, unit)
	}
}

// ApplicableOffers keeps an offer iff the bundle is large enough and every
// mandatory service is part of the selection. Pure function, no side effects.
func ApplicableOffers(offers []catalog.Offer, selectedServiceIDs []string, bundleItemCount int) []catalog.Offer {
	selected := make(map[string]bool, len(selectedServiceIDs))
	for _, id := range selectedServiceIDs {
		selected[id] = true
	}

	applicable := []catalog.Offer{}
	for _, offer := range offers {
		restrictions := offer.BundleRestrictions
		if bundleItemCount < restrictions.MinimumBundleItems {
			continue
		}
		hasAllMandatory := true
		for _, serviceID := range restrictions.MandatoryListOfServices {
			if !selected[serviceID] {
				hasAllMandatory = false
				break
			}
		}
		if hasAllMandatory {
			applicable = append(applicable, offer)
		}
	}
	return applicable
}

// ValidityForInterval computes how much of an offer is still valid at the
// given billing interval, as a percentage in [0,100]. excluded=true means the
// offer has fully lapsed by this interval. Monotonically non-increasing in
// intervalIndex.
func ValidityForInterval(offer catalog.Offer, intervalIndex int, frequency catalog.Frequency) (percent int64, excluded bool, err error) {
	if offer.Period == catalog.PeriodUnlimited {
		return 100, false, nil
	}

	parts := strings.Fields(offer.Period)
	if len(parts) != 2 {
		return 0, false, fmt.Errorf("%w: malformed offer period %q", xerrors.ErrInvalidInput, offer.Period)
	}
	count, convErr := strconv.Atoi(parts[0])
	if convErr != nil {
		return 0, false, fmt.Errorf("%w: malformed offer period %q", xerrors.ErrInvalidInput, offer.Period)
	}
	days, err := periodDays(count, parts[1])
	if err != nil {
		return 0, false, err
	}

	frequencyDays := FrequencyDays(frequency)
	intervalDays := frequencyDays * intervalIndex
	if days <= intervalDays {
		return 0, true, nil
	}
	if frequencyDays <= 0 {
		return 100, false, nil
	}

	percent = int64((days - intervalDays) * 100 / frequencyDays)
	if percent > 100 {
		percent = 100
	}
	if percent < 0 {
		percent = 0
	}
	return percent, false, nil
}
