package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Booking lifecycle statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
	StatusDeleted   = "deleted"
)

// Payment statuses.
const (
	PaymentPending   = "pending"
	PaymentPaid      = "paid"
	PaymentPartial   = "partial"
	PaymentRefunded  = "refunded"
	PaymentCancelled = "cancelled"
)

// BlockingStatuses are the booking statuses that make dates unavailable
// on the calendar. A checked-out guest or a pending request never blocks.
var BlockingStatuses = []string{StatusConfirmed, StatusApproved}

type BookingRequest struct {
	ID uint `gorm:"primaryKey" json:"id"`

	CheckinDate  time.Time `gorm:"column:checkin_date;type:date;not null;index" json:"-"`
	CheckoutDate time.Time `gorm:"column:checkout_date;type:date;not null;index" json:"-"`

	Guests          int    `gorm:"not null" json:"guests"`
	GuestName       string `gorm:"size:100;not null" json:"guest_name"`
	Email           string `gorm:"size:120;not null" json:"email"`
	Phone           string `gorm:"size:20;not null" json:"phone"`
	SpecialRequests string `gorm:"type:text" json:"special_requests"`

	Status string `gorm:"size:20;default:pending;index" json:"status"`

	PaymentStatus    string     `gorm:"size:20;default:pending;index" json:"payment_status"`
	PaymentAmount    *float64   `gorm:"column:payment_amount" json:"payment_amount"`
	PaymentDate      *time.Time `json:"payment_date"`
	PaymentReference string     `gorm:"size:100" json:"payment_reference"`
	PaymentMethod    string     `gorm:"size:50" json:"payment_method"`

	AdminNotes    string         `gorm:"type:text" json:"admin_notes"`
	StatusHistory datatypes.JSON `gorm:"column:status_history" json:"-"`

	DeletedAt *time.Time `json:"-"`
	DeletedBy string     `gorm:"size:120" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (BookingRequest) TableName() string { return "booking_requests" }

// StatusChange is one append-only audit entry in a booking's history.
// Status transitions fill Status; payment updates fill Type and the
// payment fields instead.
type StatusChange struct {
	Type          string   `json:"type,omitempty"`
	Status        string   `json:"status,omitempty"`
	PaymentStatus string   `json:"payment_status,omitempty"`
	PaymentAmount *float64 `json:"payment_amount,omitempty"`
	ChangedBy     string   `json:"changed_by"`
	ChangedAt     string   `json:"changed_at"`
	Notes         string   `json:"notes,omitempty"`
}

// History decodes the audit trail. A missing or corrupt column yields an
// empty list rather than an error; the trail is advisory.
func (b *BookingRequest) History() []StatusChange {
	if len(b.StatusHistory) == 0 {
		return nil
	}
	var entries []StatusChange
	if err := json.Unmarshal(b.StatusHistory, &entries); err != nil {
		return nil
	}
	return entries
}

// AppendHistory adds an entry to the audit trail.
func (b *BookingRequest) AppendHistory(entry StatusChange) error {
	entries := append(b.History(), entry)
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	b.StatusHistory = datatypes.JSON(raw)
	return nil
}

// Map renders the booking for JSON responses with date-only stay fields,
// matching the public API contract.
func (b *BookingRequest) Map() map[string]any {
	var amount any
	if b.PaymentAmount != nil {
		amount = *b.PaymentAmount
	}
	var paymentDate any
	if b.PaymentDate != nil {
		paymentDate = b.PaymentDate.Format(time.RFC3339)
	}
	var updatedAt any
	if !b.UpdatedAt.IsZero() {
		updatedAt = b.UpdatedAt.Format(time.RFC3339)
	}
	return map[string]any{
		"id":                b.ID,
		"guest_name":        b.GuestName,
		"email":             b.Email,
		"phone":             b.Phone,
		"checkin_date":      b.CheckinDate.Format("2006-01-02"),
		"checkout_date":     b.CheckoutDate.Format("2006-01-02"),
		"guests":            b.Guests,
		"special_requests":  b.SpecialRequests,
		"status":            b.Status,
		"payment_status":    b.PaymentStatus,
		"payment_amount":    amount,
		"payment_date":      paymentDate,
		"payment_reference": b.PaymentReference,
		"admin_notes":       b.AdminNotes,
		"created_at":        b.CreatedAt.Format(time.RFC3339),
		"updated_at":        updatedAt,
	}
}
