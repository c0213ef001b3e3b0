package services

import (
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"github.com/jheiberg/17peppertree/logger"
	"github.com/jheiberg/17peppertree/models"
	"github.com/jheiberg/17peppertree/utils"
)

// Currency is fixed for the property.
const Currency = "ZAR"

// RateService owns rate administration and the nightly rate engine.
type RateService struct {
	DB *gorm.DB
}

func NewRateService(db *gorm.DB) *RateService {
	return &RateService{DB: db}
}

// RateFilter narrows the rate listing.
type RateFilter struct {
	Type       string
	Guests     int
	ActiveOnly bool
	Date       string
}

// List returns rates ordered base-first, then guests, then start date.
// When a date filter is given, specials not covering that date drop out.
func (s *RateService) List(f RateFilter) ([]models.Rate, error) {
	query := s.DB.Model(&models.Rate{})
	if f.Type != "" {
		query = query.Where("rate_type = ?", f.Type)
	}
	if f.Guests != 0 {
		query = query.Where("guests = ?", f.Guests)
	}
	if f.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	var rates []models.Rate
	if err := query.
		Order("rate_type DESC").
		Order("guests ASC").
		Order("start_date ASC").
		Find(&rates).Error; err != nil {
		return nil, fmt.Errorf("list rates: %w", err)
	}

	if f.Date != "" {
		day, err := utils.ParseDate(f.Date)
		if err != nil {
			return rates, nil
		}
		filtered := rates[:0]
		for i := range rates {
			if rates[i].Covers(day) {
				filtered = append(filtered, rates[i])
			}
		}
		rates = filtered
	}

	return rates, nil
}

// BaseRates returns the active base rates, ordered by guest count.
func (s *RateService) BaseRates() ([]models.Rate, error) {
	var rates []models.Rate
	if err := s.DB.
		Where("rate_type = ? AND is_active = ?", models.RateBase, true).
		Order("guests ASC").
		Find(&rates).Error; err != nil {
		return nil, fmt.Errorf("list base rates: %w", err)
	}
	if len(rates) == 0 {
		return nil, ErrNotFound
	}
	return rates, nil
}

// Get fetches one rate by id.
func (s *RateService) Get(id uint) (*models.Rate, error) {
	var rate models.Rate
	if err := s.DB.First(&rate, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get rate %d: %w", id, err)
	}
	return &rate, nil
}

// NightlyRate is one priced night of a quote.
type NightlyRate struct {
	Date        string  `json:"date"`
	Rate        float64 `json:"rate"`
	RateType    string  `json:"rate_type"`
	Description string  `json:"description"`
}

// RateQuote is the full price breakdown for a stay.
type RateQuote struct {
	Nights       int           `json:"nights"`
	Guests       int           `json:"guests"`
	BaseRate     float64       `json:"base_rate"`
	NightlyRates []NightlyRate `json:"nightly_rates"`
	TotalAmount  float64       `json:"total_amount"`
	Currency     string        `json:"currency"`
}

// Calculate prices a stay night by night: each night in the half-open
// [checkin, checkout) window takes the covering active special rate, or
// the base rate otherwise. When two specials cover the same night (an
// invariant violation the write path rejects, but data can predate the
// check) the shortest range wins, ties broken by lowest id.
func (s *RateService) Calculate(checkinStr, checkoutStr string, guests int) (*RateQuote, error) {
	checkin, err := utils.ParseDate(checkinStr)
	if err != nil {
		return nil, ValidationError("Invalid date format. Please use YYYY-MM-DD")
	}
	checkout, err := utils.ParseDate(checkoutStr)
	if err != nil {
		return nil, ValidationError("Invalid date format. Please use YYYY-MM-DD")
	}
	if guests < 1 || guests > 2 {
		return nil, ValidationError("Guests must be 1 or 2")
	}
	if !checkout.After(checkin) {
		return nil, ValidationError("Checkout date must be after checkin date")
	}

	var base models.Rate
	if err := s.DB.
		Where("rate_type = ? AND guests = ? AND is_active = ?", models.RateBase, guests, true).
		First(&base).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get base rate: %w", err)
	}

	var specials []models.Rate
	if err := s.DB.
		Where("rate_type = ? AND guests = ? AND is_active = ?", models.RateSpecial, guests, true).
		Where("start_date <= ? AND end_date >= ?", checkout, checkin).
		Find(&specials).Error; err != nil {
		return nil, fmt.Errorf("get special rates: %w", err)
	}

	// Most specific special first.
	sort.Slice(specials, func(i, j int) bool {
		di, dj := specials[i].RangeDays(), specials[j].RangeDays()
		if di != dj {
			return di < dj
		}
		return specials[i].ID < specials[j].ID
	})

	quote := &RateQuote{
		Guests:   guests,
		BaseRate: base.Amount,
		Currency: Currency,
	}

	for day := checkin; day.Before(checkout); day = day.AddDate(0, 0, 1) {
		night := NightlyRate{
			Date:        day.Format(utils.DateLayout),
			Rate:        base.Amount,
			RateType:    models.RateBase,
			Description: fmt.Sprintf("Base rate for %d guest(s)", guests),
		}
		for i := range specials {
			if specials[i].Covers(day) {
				night.Rate = specials[i].Amount
				night.RateType = models.RateSpecial
				night.Description = specials[i].Description
				break
			}
		}
		quote.NightlyRates = append(quote.NightlyRates, night)
		quote.TotalAmount += night.Rate
	}

	quote.Nights = len(quote.NightlyRates)
	return quote, nil
}

// RateInput carries rate create/update fields.
type RateInput struct {
	RateType    string   `validate:"required,oneof=base special"`
	Guests      int      `validate:"required,oneof=1 2"`
	Amount      float64  `validate:"required,gt=0"`
	StartDate   string
	EndDate     string
	Description string
	IsActive    *bool
}

// Create stores a new rate. Activating a base rate deactivates the
// previous active base row for the same guest count in the same
// transaction; special rates must not overlap another active special of
// the same guest count.
func (s *RateService) Create(in RateInput, actor string) (*models.Rate, error) {
	if err := utils.Validate.Struct(in); err != nil {
		switch {
		case in.RateType != models.RateBase && in.RateType != models.RateSpecial:
			return nil, ValidationError(`rate_type must be "base" or "special"`)
		case in.Guests != 1 && in.Guests != 2:
			return nil, ValidationError("guests must be 1 or 2")
		default:
			return nil, ValidationError("amount must be greater than 0")
		}
	}

	rate := &models.Rate{
		RateType:    in.RateType,
		Guests:      in.Guests,
		Amount:      in.Amount,
		Description: in.Description,
		IsActive:    true,
		CreatedBy:   actor,
	}
	if in.IsActive != nil {
		rate.IsActive = *in.IsActive
	}

	if in.RateType == models.RateSpecial {
		if in.StartDate == "" || in.EndDate == "" {
			return nil, ValidationError("Special rates require start_date and end_date")
		}
		start, err := utils.ParseDate(in.StartDate)
		if err != nil {
			return nil, ValidationError("Invalid date format. Please use YYYY-MM-DD")
		}
		end, err := utils.ParseDate(in.EndDate)
		if err != nil {
			return nil, ValidationError("Invalid date format. Please use YYYY-MM-DD")
		}
		if end.Before(start) {
			return nil, ValidationError("end_date must be after or equal to start_date")
		}
		rate.StartDate = &start
		rate.EndDate = &end
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if rate.RateType == models.RateSpecial {
			if err := s.checkSpecialOverlap(tx, rate, 0); err != nil {
				return err
			}
		}

		if rate.RateType == models.RateBase && rate.IsActive {
			// Never two simultaneously active base rows per guest count.
			if err := tx.Model(&models.Rate{}).
				Where("rate_type = ? AND guests = ? AND is_active = ?", models.RateBase, rate.Guests, true).
				Updates(map[string]any{"is_active": false, "updated_by": actor}).Error; err != nil {
				return fmt.Errorf("deactivate previous base rate: %w", err)
			}
		}

		return tx.Create(rate).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("rate created", "id", rate.ID, "by", actor)
	return rate, nil
}

// UpdateInput carries partial rate updates; nil fields stay untouched.
type UpdateInput struct {
	Amount      *float64
	Description *string
	IsActive    *bool
	StartDate   *string
	EndDate     *string
}

// Update applies a partial rate edit, re-validating the special overlap
// invariant when the range or active flag changes.
func (s *RateService) Update(id uint, in UpdateInput, actor string) (*models.Rate, error) {
	if in.Amount != nil && *in.Amount <= 0 {
		return nil, ValidationError("amount must be greater than 0")
	}

	var rate models.Rate

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rate, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if in.Amount != nil {
			rate.Amount = *in.Amount
		}
		if in.Description != nil {
			rate.Description = *in.Description
		}
		if in.IsActive != nil {
			rate.IsActive = *in.IsActive
		}

		if rate.RateType == models.RateSpecial {
			if in.StartDate != nil {
				start, err := utils.ParseDate(*in.StartDate)
				if err != nil {
					return ValidationError("Invalid date format. Please use YYYY-MM-DD")
				}
				rate.StartDate = &start
			}
			if in.EndDate != nil {
				end, err := utils.ParseDate(*in.EndDate)
				if err != nil {
					return ValidationError("Invalid date format. Please use YYYY-MM-DD")
				}
				rate.EndDate = &end
			}
			if rate.StartDate != nil && rate.EndDate != nil && rate.EndDate.Before(*rate.StartDate) {
				return ValidationError("end_date must be after or equal to start_date")
			}
			if rate.IsActive {
				if err := s.checkSpecialOverlap(tx, &rate, rate.ID); err != nil {
					return err
				}
			}
		}

		rate.UpdatedBy = actor
		return tx.Save(&rate).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("rate updated", "id", rate.ID, "by", actor)
	return &rate, nil
}

// Delete soft-deletes a rate by deactivating it. The only active base
// rate for a guest count cannot be deleted; that tier would lose its
// pricing entirely.
func (s *RateService) Delete(id uint, actor string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var rate models.Rate
		if err := tx.First(&rate, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if rate.RateType == models.RateBase {
			var others int64
			if err := tx.Model(&models.Rate{}).
				Where("rate_type = ? AND guests = ? AND is_active = ? AND id <> ?",
					models.RateBase, rate.Guests, true, rate.ID).
				Count(&others).Error; err != nil {
				return err
			}
			if others == 0 {
				return ConflictError("Cannot delete the only active base rate for this guest count")
			}
		}

		if err := tx.Model(&rate).
			Updates(map[string]any{"is_active": false, "updated_by": actor}).Error; err != nil {
			return err
		}

		logger.Log.Info("rate deleted (soft)", "id", rate.ID, "by", actor)
		return nil
	})
}

// checkSpecialOverlap rejects a special whose inclusive range intersects
// another active special of the same guest count.
func (s *RateService) checkSpecialOverlap(tx *gorm.DB, rate *models.Rate, excludeID uint) error {
	if rate.StartDate == nil || rate.EndDate == nil {
		return ValidationError("Special rates require start_date and end_date")
	}

	var overlapping int64
	if err := tx.Model(&models.Rate{}).
		Where("rate_type = ? AND guests = ? AND is_active = ?", models.RateSpecial, rate.Guests, true).
		Where("id <> ?", excludeID).
		Where("start_date <= ? AND end_date >= ?", rate.EndDate, rate.StartDate).
		Count(&overlapping).Error; err != nil {
		return fmt.Errorf("check overlap: %w", err)
	}
	if overlapping > 0 {
		return ConflictError("This date range overlaps with an existing special rate")
	}
	return nil
}
