package models

import "time"

// Rate kinds.
const (
	RateBase    = "base"
	RateSpecial = "special"
)

// Rate is a nightly price rule: either the always-applicable base rate
// for a guest count, or a date-ranged special override. Special date
// ranges are inclusive on both ends.
type Rate struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	RateType string  `gorm:"size:50;not null;index" json:"rate_type"`
	Guests   int     `gorm:"not null;index" json:"guests"`
	Amount   float64 `gorm:"not null" json:"amount"`

	StartDate *time.Time `gorm:"type:date" json:"-"`
	EndDate   *time.Time `gorm:"type:date" json:"-"`

	Description string `gorm:"size:255" json:"description"`
	IsActive    bool   `gorm:"default:true;index" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `gorm:"size:120" json:"created_by"`
	UpdatedBy string    `gorm:"size:120" json:"updated_by"`
}

func (Rate) TableName() string { return "rates" }

// Covers reports whether the rate's date range contains day. Base rates
// cover every day.
func (r *Rate) Covers(day time.Time) bool {
	if r.RateType == RateBase {
		return true
	}
	if r.StartDate == nil || r.EndDate == nil {
		return false
	}
	return !day.Before(*r.StartDate) && !day.After(*r.EndDate)
}

// RangeDays returns the length of the special's range in days, used as
// the specificity measure when two specials cover the same night.
func (r *Rate) RangeDays() int {
	if r.StartDate == nil || r.EndDate == nil {
		return 0
	}
	return int(r.EndDate.Sub(*r.StartDate).Hours()/24) + 1
}

// Map renders the rate for JSON responses with date-only range fields.
func (r *Rate) Map() map[string]any {
	var start, end any
	if r.StartDate != nil {
		start = r.StartDate.Format("2006-01-02")
	}
	if r.EndDate != nil {
		end = r.EndDate.Format("2006-01-02")
	}
	var updatedAt any
	if !r.UpdatedAt.IsZero() {
		updatedAt = r.UpdatedAt.Format(time.RFC3339)
	}
	return map[string]any{
		"id":          r.ID,
		"rate_type":   r.RateType,
		"guests":      r.Guests,
		"amount":      r.Amount,
		"start_date":  start,
		"end_date":    end,
		"description": r.Description,
		"is_active":   r.IsActive,
		"created_at":  r.CreatedAt.Format(time.RFC3339),
		"updated_at":  updatedAt,
		"created_by":  r.CreatedBy,
		"updated_by":  r.UpdatedBy,
	}
}
