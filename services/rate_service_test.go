package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/jheiberg/17peppertree/models"
)

func newRateService(t *testing.T) *RateService {
	t.Helper()
	return NewRateService(newTestDB(t))
}

func seedRate(t *testing.T, db *gorm.DB, rateType string, guests int, amount float64, start, end string) *models.Rate {
	t.Helper()
	r := &models.Rate{
		RateType: rateType,
		Guests:   guests,
		Amount:   amount,
		IsActive: true,
	}
	if start != "" {
		s := day(t, start)
		e := day(t, end)
		r.StartDate = &s
		r.EndDate = &e
	}
	require.NoError(t, db.Create(r).Error)
	return r
}

func TestCalculateMixedBaseAndSpecialNights(t *testing.T) {
	svc := newRateService(t)

	seedRate(t, svc.DB, models.RateBase, 2, 1000, "", "")
	special := seedRate(t, svc.DB, models.RateSpecial, 2, 1500, "2024-12-20", "2024-12-26")
	special.Description = "Festive season"
	require.NoError(t, svc.DB.Save(special).Error)

	quote, err := svc.Calculate("2024-12-24", "2024-12-27", 2)
	require.NoError(t, err)

	assert.Equal(t, 3, quote.Nights)
	assert.Equal(t, 2, quote.Guests)
	assert.Equal(t, 1000.0, quote.BaseRate)
	assert.Equal(t, 4000.0, quote.TotalAmount)
	assert.Equal(t, "ZAR", quote.Currency)

	require.Len(t, quote.NightlyRates, 3)
	assert.Equal(t, "2024-12-24", quote.NightlyRates[0].Date)
	assert.Equal(t, 1500.0, quote.NightlyRates[0].Rate)
	assert.Equal(t, models.RateSpecial, quote.NightlyRates[0].RateType)
	assert.Equal(t, "Festive season", quote.NightlyRates[0].Description)

	assert.Equal(t, 1500.0, quote.NightlyRates[1].Rate)

	assert.Equal(t, "2024-12-26", quote.NightlyRates[2].Date)
	assert.Equal(t, 1000.0, quote.NightlyRates[2].Rate)
	assert.Equal(t, models.RateBase, quote.NightlyRates[2].RateType)
	assert.Equal(t, "Base rate for 2 guest(s)", quote.NightlyRates[2].Description)
}

func TestCalculateValidation(t *testing.T) {
	svc := newRateService(t)
	seedRate(t, svc.DB, models.RateBase, 2, 1000, "", "")

	_, err := svc.Calculate("2024-12-24", "2024-12-27", 3)
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Guests must be 1 or 2", verr.Error())

	_, err = svc.Calculate("2024-12-27", "2024-12-27", 2)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Checkout date must be after checkin date", verr.Error())

	_, err = svc.Calculate("24/12/2024", "2024-12-27", 2)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Invalid date format. Please use YYYY-MM-DD", verr.Error())
}

func TestCalculateWithoutBaseRate(t *testing.T) {
	svc := newRateService(t)

	_, err := svc.Calculate("2024-12-24", "2024-12-27", 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCalculateTieBreakPrefersShortestRange(t *testing.T) {
	svc := newRateService(t)

	seedRate(t, svc.DB, models.RateBase, 2, 1000, "", "")
	// Overlapping specials can only exist as legacy data; the narrower
	// range must win.
	seedRate(t, svc.DB, models.RateSpecial, 2, 1200, "2024-12-01", "2024-12-31")
	seedRate(t, svc.DB, models.RateSpecial, 2, 1800, "2024-12-24", "2024-12-26")

	quote, err := svc.Calculate("2024-12-25", "2024-12-26", 2)
	require.NoError(t, err)
	require.Len(t, quote.NightlyRates, 1)
	assert.Equal(t, 1800.0, quote.NightlyRates[0].Rate)
}

func TestCreateBaseRateDeactivatesPrevious(t *testing.T) {
	svc := newRateService(t)
	old := seedRate(t, svc.DB, models.RateBase, 2, 1000, "", "")

	created, err := svc.Create(RateInput{
		RateType: models.RateBase,
		Guests:   2,
		Amount:   1100,
	}, "admin@17peppertree.co.za")
	require.NoError(t, err)
	assert.True(t, created.IsActive)
	assert.Equal(t, "admin@17peppertree.co.za", created.CreatedBy)

	var stored models.Rate
	require.NoError(t, svc.DB.First(&stored, old.ID).Error)
	assert.False(t, stored.IsActive)
	assert.Equal(t, "admin@17peppertree.co.za", stored.UpdatedBy)

	var activeCount int64
	require.NoError(t, svc.DB.Model(&models.Rate{}).
		Where("rate_type = ? AND guests = ? AND is_active = ?", models.RateBase, 2, true).
		Count(&activeCount).Error)
	assert.EqualValues(t, 1, activeCount)
}

func TestCreateSpecialRateRejectsOverlap(t *testing.T) {
	svc := newRateService(t)
	seedRate(t, svc.DB, models.RateSpecial, 2, 1500, "2024-12-20", "2024-12-26")

	_, err := svc.Create(RateInput{
		RateType:  models.RateSpecial,
		Guests:    2,
		Amount:    1600,
		StartDate: "2024-12-25",
		EndDate:   "2024-12-30",
	}, "admin@17peppertree.co.za")
	var cerr ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "This date range overlaps with an existing special rate", cerr.Error())

	// An adjacent range does not overlap.
	_, err = svc.Create(RateInput{
		RateType:  models.RateSpecial,
		Guests:    2,
		Amount:    1600,
		StartDate: "2024-12-27",
		EndDate:   "2024-12-30",
	}, "admin@17peppertree.co.za")
	require.NoError(t, err)

	// Same range for the other guest count is fine too.
	_, err = svc.Create(RateInput{
		RateType:  models.RateSpecial,
		Guests:    1,
		Amount:    1300,
		StartDate: "2024-12-20",
		EndDate:   "2024-12-26",
	}, "admin@17peppertree.co.za")
	require.NoError(t, err)
}

func TestCreateSpecialRateRequiresDates(t *testing.T) {
	svc := newRateService(t)

	_, err := svc.Create(RateInput{
		RateType: models.RateSpecial,
		Guests:   2,
		Amount:   1500,
	}, "admin@17peppertree.co.za")
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Special rates require start_date and end_date", verr.Error())

	_, err = svc.Create(RateInput{
		RateType:  models.RateSpecial,
		Guests:    2,
		Amount:    1500,
		StartDate: "2024-12-26",
		EndDate:   "2024-12-20",
	}, "admin@17peppertree.co.za")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "end_date must be after or equal to start_date", verr.Error())
}

func TestCreateRateFieldValidation(t *testing.T) {
	svc := newRateService(t)

	_, err := svc.Create(RateInput{RateType: "seasonal", Guests: 2, Amount: 900}, "")
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, `rate_type must be "base" or "special"`, verr.Error())

	_, err = svc.Create(RateInput{RateType: models.RateBase, Guests: 4, Amount: 900}, "")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "guests must be 1 or 2", verr.Error())

	_, err = svc.Create(RateInput{RateType: models.RateBase, Guests: 2, Amount: -5}, "")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "amount must be greater than 0", verr.Error())
}

func TestUpdateRate(t *testing.T) {
	svc := newRateService(t)
	rate := seedRate(t, svc.DB, models.RateSpecial, 2, 1500, "2024-12-20", "2024-12-26")

	amount := 1750.0
	desc := "Peak season"
	updated, err := svc.Update(rate.ID, UpdateInput{
		Amount:      &amount,
		Description: &desc,
	}, "admin@17peppertree.co.za")
	require.NoError(t, err)
	assert.Equal(t, 1750.0, updated.Amount)
	assert.Equal(t, "Peak season", updated.Description)
	assert.Equal(t, "admin@17peppertree.co.za", updated.UpdatedBy)
}

func TestUpdateRateRejectsOverlap(t *testing.T) {
	svc := newRateService(t)
	seedRate(t, svc.DB, models.RateSpecial, 2, 1500, "2024-12-20", "2024-12-26")
	other := seedRate(t, svc.DB, models.RateSpecial, 2, 1600, "2024-12-27", "2024-12-31")

	start := "2024-12-25"
	_, err := svc.Update(other.ID, UpdateInput{StartDate: &start}, "admin@17peppertree.co.za")
	var cerr ConflictError
	require.ErrorAs(t, err, &cerr)
}

func TestUpdateRateNotFound(t *testing.T) {
	svc := newRateService(t)

	amount := 900.0
	_, err := svc.Update(42, UpdateInput{Amount: &amount}, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRate(t *testing.T) {
	svc := newRateService(t)
	special := seedRate(t, svc.DB, models.RateSpecial, 2, 1500, "2024-12-20", "2024-12-26")

	require.NoError(t, svc.Delete(special.ID, "admin@17peppertree.co.za"))

	var stored models.Rate
	require.NoError(t, svc.DB.First(&stored, special.ID).Error)
	assert.False(t, stored.IsActive)
}

func TestDeleteSoleBaseRateRejected(t *testing.T) {
	svc := newRateService(t)
	base := seedRate(t, svc.DB, models.RateBase, 2, 1000, "", "")

	err := svc.Delete(base.ID, "admin@17peppertree.co.za")
	var cerr ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "Cannot delete the only active base rate for this guest count", cerr.Error())

	// With a second active base rate, deletion goes through.
	seedRate(t, svc.DB, models.RateBase, 2, 1200, "", "")
	require.NoError(t, svc.Delete(base.ID, "admin@17peppertree.co.za"))
}

func TestListRates(t *testing.T) {
	svc := newRateService(t)

	seedRate(t, svc.DB, models.RateBase, 1, 800, "", "")
	seedRate(t, svc.DB, models.RateBase, 2, 1000, "", "")
	special := seedRate(t, svc.DB, models.RateSpecial, 2, 1500, "2024-12-20", "2024-12-26")
	special.IsActive = false
	require.NoError(t, svc.DB.Save(special).Error)

	rates, err := svc.List(RateFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, rates, 2)

	rates, err = svc.List(RateFilter{})
	require.NoError(t, err)
	assert.Len(t, rates, 3)

	rates, err = svc.List(RateFilter{Type: models.RateBase, Guests: 2})
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.Equal(t, 1000.0, rates[0].Amount)
}

func TestListRatesDateFilterKeepsBaseRates(t *testing.T) {
	svc := newRateService(t)

	seedRate(t, svc.DB, models.RateBase, 2, 1000, "", "")
	seedRate(t, svc.DB, models.RateSpecial, 2, 1500, "2024-12-20", "2024-12-26")

	rates, err := svc.List(RateFilter{ActiveOnly: true, Date: "2024-12-24"})
	require.NoError(t, err)
	assert.Len(t, rates, 2)

	rates, err = svc.List(RateFilter{ActiveOnly: true, Date: "2024-11-01"})
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.Equal(t, models.RateBase, rates[0].RateType)
}

func TestBaseRates(t *testing.T) {
	svc := newRateService(t)

	_, err := svc.BaseRates()
	assert.ErrorIs(t, err, ErrNotFound)

	seedRate(t, svc.DB, models.RateBase, 2, 1000, "", "")
	seedRate(t, svc.DB, models.RateBase, 1, 800, "", "")

	rates, err := svc.BaseRates()
	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.Equal(t, 1, rates[0].Guests)
	assert.Equal(t, 2, rates[1].Guests)
}
