package pricing

import (
	"testing"

	"bundl-service/internal/domain/catalog"
	xerrors "bundl-service/internal/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidityForInterval_Unlimited(t *testing.T) {
	offer := catalog.Offer{Type: catalog.OfferPercentage, Period: catalog.PeriodUnlimited}

	for _, interval := range []int{0, 1, 5, 50} {
		percent, excluded, err := ValidityForInterval(offer, interval, catalog.FrequencyMonthly)
		require.NoError(t, err)
		assert.False(t, excluded)
		assert.Equal(t, int64(100), percent)
	}
}

func TestValidityForInterval_DecaysMonotonically(t *testing.T) {
	offer := catalog.Offer{Type: catalog.OfferPercentage, Period: "45 days"}

	prev := int64(101)
	for interval := 0; interval < 12; interval++ {
		percent, excluded, err := ValidityForInterval(offer, interval, catalog.FrequencyMonthly)
		require.NoError(t, err)
		if excluded {
			percent = 0
		}
		assert.LessOrEqual(t, percent, prev, "validity must never grow between intervals")
		prev = percent
	}
}

func TestValidityForInterval_ExclusionBoundary(t *testing.T) {
	// 30-day offer on a monthly cadence: fully valid at interval 0, lapsed
	// exactly when the covered days no longer exceed the elapsed days.
	offer := catalog.Offer{Type: catalog.OfferPercentage, Period: "30 days"}

	percent, excluded, err := ValidityForInterval(offer, 0, catalog.FrequencyMonthly)
	require.NoError(t, err)
	assert.False(t, excluded)
	assert.Equal(t, int64(100), percent)

	_, excluded, err = ValidityForInterval(offer, 1, catalog.FrequencyMonthly)
	require.NoError(t, err)
	assert.True(t, excluded)
}

func TestValidityForInterval_PartialCoverage(t *testing.T) {
	// 90 days on a monthly cadence: intervals 0..2 fully covered, interval 3 lapsed.
	offer := catalog.Offer{Type: catalog.OfferPercentage, Period: "90 days"}

	for interval := 0; interval < 3; interval++ {
		percent, excluded, err := ValidityForInterval(offer, interval, catalog.FrequencyMonthly)
		require.NoError(t, err)
		require.False(t, excluded)
		assert.Equal(t, int64(100), percent)
	}

	_, excluded, err := ValidityForInterval(offer, 3, catalog.FrequencyMonthly)
	require.NoError(t, err)
	assert.True(t, excluded)
}

func TestValidityForInterval_InvalidUnit(t *testing.T) {
	offer := catalog.Offer{Type: catalog.OfferPercentage, Period: "3 fortnights"}

	_, _, err := ValidityForInterval(offer, 0, catalog.FrequencyMonthly)
	require.Error(t, err)
	assert.ErrorIs(t, err, xerrors.ErrInvalidPeriodUnit)
}

func TestValidityForInterval_MalformedPeriod(t *testing.T) {
	for _, period := range []string{"", "days", "many days", "3days"} {
		offer := catalog.Offer{Type: catalog.OfferPercentage, Period: period}
		_, _, err := ValidityForInterval(offer, 0, catalog.FrequencyMonthly)
		assert.Error(t, err, "period %q must be rejected", period)
	}
}

func TestApplicableOffers_MinimumBundleItems(t *testing.T) {
	offers := []catalog.Offer{
		{Type: catalog.OfferPercentage, Amount: decimal.NewFromInt(10), Period: catalog.PeriodUnlimited,
			BundleRestrictions: catalog.BundleRestrictions{MinimumBundleItems: 3}},
		{Type: catalog.OfferPercentage, Amount: decimal.NewFromInt(5), Period: catalog.PeriodUnlimited},
	}

	applicable := ApplicableOffers(offers, []string{"svc-1", "svc-2"}, 2)
	require.Len(t, applicable, 1)
	assert.True(t, applicable[0].Amount.Equal(decimal.NewFromInt(5)))

	applicable = ApplicableOffers(offers, []string{"svc-1", "svc-2", "svc-3"}, 3)
	assert.Len(t, applicable, 2)
}

func TestApplicableOffers_MandatoryServices(t *testing.T) {
	offers := []catalog.Offer{
		{Type: catalog.OfferFree, Period: catalog.PeriodUnlimited,
			BundleRestrictions: catalog.BundleRestrictions{MandatoryListOfServices: []string{"svc-music"}}},
	}

	assert.Empty(t, ApplicableOffers(offers, []string{"svc-video"}, 1))
	assert.Len(t, ApplicableOffers(offers, []string{"svc-video", "svc-music"}, 2), 1)
}

func TestFrequencyDays(t *testing.T) {
	assert.Equal(t, 1, FrequencyDays(catalog.FrequencyDaily))
	assert.Equal(t, 7, FrequencyDays(catalog.FrequencyWeekly))
	assert.Equal(t, 30, FrequencyDays(catalog.FrequencyMonthly))
	assert.Equal(t, 365, FrequencyDays(catalog.FrequencyAnnually))
	assert.Equal(t, 0, FrequencyDays(catalog.Frequency("fortnightly")))
}
