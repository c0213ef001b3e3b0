package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/jheiberg/17peppertree/logger"
	"github.com/jheiberg/17peppertree/models"
	"github.com/jheiberg/17peppertree/utils"
)

// Mailer is the notification side effect of booking transitions. Send
// failures are never fatal to the owning operation.
type Mailer interface {
	SendBookingConfirmation(b *models.BookingRequest) error
	SendOwnerNotification(b *models.BookingRequest) error
	SendStatusUpdate(b *models.BookingRequest) error
}

// BookingService owns the booking lifecycle and the calendar
// availability computation.
type BookingService struct {
	DB   *gorm.DB
	Mail Mailer
}

func NewBookingService(db *gorm.DB, mail Mailer) *BookingService {
	return &BookingService{DB: db, Mail: mail}
}

// CreateBookingInput is the guest-submitted stay request.
type CreateBookingInput struct {
	Checkin  string
	Checkout string
	Guests   int
	Name     string
	Email    string
	Phone    string
	Message  string
}

// Create validates and stores a new booking request, then sends the
// guest confirmation and owner notification best-effort.
func (s *BookingService) Create(in CreateBookingInput) (*models.BookingRequest, error) {
	checkin, err := utils.ParseDate(in.Checkin)
	if err != nil {
		return nil, ValidationError("Invalid date format. Please use YYYY-MM-DD")
	}
	checkout, err := utils.ParseDate(in.Checkout)
	if err != nil {
		return nil, ValidationError("Invalid date format. Please use YYYY-MM-DD")
	}
	if !checkout.After(checkin) {
		return nil, ValidationError("Check-out date must be after check-in date")
	}
	if checkin.Before(utils.Date(time.Now())) {
		return nil, ValidationError("Check-in date cannot be in the past")
	}
	if in.Guests < 1 || in.Guests > 2 {
		return nil, ValidationError("Number of guests must be between 1 and 2")
	}

	booking := &models.BookingRequest{
		CheckinDate:     checkin,
		CheckoutDate:    checkout,
		Guests:          in.Guests,
		GuestName:       in.Name,
		Email:           in.Email,
		Phone:           in.Phone,
		SpecialRequests: in.Message,
		Status:          models.StatusPending,
		PaymentStatus:   models.PaymentPending,
	}

	if err := s.DB.Create(booking).Error; err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.notify(func() error { return s.Mail.SendBookingConfirmation(booking) }, booking.ID, "confirmation")
	s.notify(func() error { return s.Mail.SendOwnerNotification(booking) }, booking.ID, "owner notification")

	return booking, nil
}

// List returns every booking request, newest first.
func (s *BookingService) List() ([]models.BookingRequest, error) {
	var bookings []models.BookingRequest
	if err := s.DB.Order("created_at DESC").Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

// Get fetches one booking by id.
func (s *BookingService) Get(id uint) (*models.BookingRequest, error) {
	var booking models.BookingRequest
	if err := s.DB.First(&booking, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking %d: %w", id, err)
	}
	return &booking, nil
}

// UpdateStatusPublic serves the legacy unauthenticated status endpoint,
// restricted to the pending/confirmed/rejected vocabulary.
func (s *BookingService) UpdateStatusPublic(id uint, status string) (*models.BookingRequest, error) {
	switch status {
	case models.StatusPending, models.StatusConfirmed, models.StatusRejected:
	default:
		return nil, ValidationError("Invalid status. Must be pending, confirmed, or rejected")
	}

	booking, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if err := s.DB.Model(booking).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("update booking status: %w", err)
	}
	booking.Status = status

	s.notify(func() error { return s.Mail.SendStatusUpdate(booking) }, booking.ID, "status update")
	return booking, nil
}

// BookingFilter narrows the admin listing.
type BookingFilter struct {
	Status        string
	PaymentStatus string
	StartDate     string
	EndDate       string
	Page          int
	PerPage       int
}

// BookingPage is one page of admin listing results.
type BookingPage struct {
	Bookings []models.BookingRequest
	Total    int64
	Pages    int
	Page     int
	PerPage  int
}

// AdminList returns filtered, paginated bookings, newest first.
func (s *BookingService) AdminList(f BookingFilter) (*BookingPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = 20
	}

	query := s.DB.Model(&models.BookingRequest{})
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.PaymentStatus != "" {
		query = query.Where("payment_status = ?", f.PaymentStatus)
	}
	if f.StartDate != "" {
		start, err := utils.ParseDate(f.StartDate)
		if err != nil {
			return nil, ValidationError("Invalid date format. Please use YYYY-MM-DD")
		}
		query = query.Where("checkin_date >= ?", start)
	}
	if f.EndDate != "" {
		end, err := utils.ParseDate(f.EndDate)
		if err != nil {
			return nil, ValidationError("Invalid date format. Please use YYYY-MM-DD")
		}
		query = query.Where("checkout_date <= ?", end)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count bookings: %w", err)
	}

	var bookings []models.BookingRequest
	if err := query.
		Order("created_at DESC").
		Offset((f.Page - 1) * f.PerPage).
		Limit(f.PerPage).
		Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	pages := int((total + int64(f.PerPage) - 1) / int64(f.PerPage))
	return &BookingPage{
		Bookings: bookings,
		Total:    total,
		Pages:    pages,
		Page:     f.Page,
		PerPage:  f.PerPage,
	}, nil
}

// Admin status vocabulary; the public endpoint keeps its own.
var adminStatuses = []string{
	models.StatusPending,
	models.StatusApproved,
	models.StatusRejected,
	models.StatusCancelled,
	models.StatusCompleted,
}

// UpdateStatus applies an admin status transition with an audit entry,
// inside one transaction. The guest notification is sent only when the
// status actually changed and notify is set; a mail failure does not
// roll anything back.
func (s *BookingService) UpdateStatus(id uint, status, notes, actor string, notify bool) (*models.BookingRequest, error) {
	valid := false
	for _, st := range adminStatuses {
		if st == status {
			valid = true
			break
		}
	}
	if !valid {
		return nil, ValidationError(fmt.Sprintf("Invalid status. Must be one of: %s", strings.Join(adminStatuses, ", ")))
	}

	var booking models.BookingRequest
	var oldStatus string

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&booking, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		oldStatus = booking.Status
		if err := booking.AppendHistory(models.StatusChange{
			Status:    status,
			ChangedBy: actor,
			ChangedAt: time.Now().UTC().Format(time.RFC3339),
			Notes:     notes,
		}); err != nil {
			return err
		}

		booking.Status = status
		if notes != "" {
			booking.AdminNotes = notes
		}

		return tx.Model(&booking).Updates(map[string]any{
			"status":         booking.Status,
			"admin_notes":    booking.AdminNotes,
			"status_history": booking.StatusHistory,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	if notify && oldStatus != status {
		s.notify(func() error { return s.Mail.SendStatusUpdate(&booking) }, booking.ID, "status update")
	}

	return &booking, nil
}

// PaymentInput carries a partial payment update; nil/empty fields are
// left untouched.
type PaymentInput struct {
	Status    string
	Amount    *float64
	Reference string
	Method    string
}

var paymentStatuses = []string{
	models.PaymentPending,
	models.PaymentPaid,
	models.PaymentPartial,
	models.PaymentRefunded,
	models.PaymentCancelled,
}

// UpdatePayment records payment information and an audit entry. Marking
// a booking paid stamps the payment date once.
func (s *BookingService) UpdatePayment(id uint, in PaymentInput, actor string) (*models.BookingRequest, error) {
	if in.Status != "" {
		valid := false
		for _, st := range paymentStatuses {
			if st == in.Status {
				valid = true
				break
			}
		}
		if !valid {
			return nil, ValidationError(fmt.Sprintf("Invalid payment status. Must be one of: %s", strings.Join(paymentStatuses, ", ")))
		}
	}

	var booking models.BookingRequest

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&booking, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if in.Status != "" {
			booking.PaymentStatus = in.Status
		}
		if in.Amount != nil {
			booking.PaymentAmount = in.Amount
		}
		if in.Reference != "" {
			booking.PaymentReference = in.Reference
		}
		if in.Method != "" {
			booking.PaymentMethod = in.Method
		}
		if in.Status == models.PaymentPaid && booking.PaymentDate == nil {
			now := time.Now().UTC()
			booking.PaymentDate = &now
		}

		if err := booking.AppendHistory(models.StatusChange{
			Type:          "payment_update",
			PaymentStatus: in.Status,
			PaymentAmount: in.Amount,
			ChangedBy:     actor,
			ChangedAt:     time.Now().UTC().Format(time.RFC3339),
		}); err != nil {
			return err
		}

		return tx.Model(&booking).Updates(map[string]any{
			"payment_status":    booking.PaymentStatus,
			"payment_amount":    booking.PaymentAmount,
			"payment_date":      booking.PaymentDate,
			"payment_reference": booking.PaymentReference,
			"payment_method":    booking.PaymentMethod,
			"status_history":    booking.StatusHistory,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// SoftDelete marks a booking deleted without removing the row.
func (s *BookingService) SoftDelete(id uint, actor string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var booking models.BookingRequest
		if err := tx.First(&booking, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		now := time.Now().UTC()
		return tx.Model(&booking).Updates(map[string]any{
			"status":     models.StatusDeleted,
			"deleted_at": now,
			"deleted_by": actor,
		}).Error
	})
}

// DashboardStats aggregates booking and payment counters for the admin
// dashboard.
type DashboardStats struct {
	TotalBookings    int64                    `json:"total_bookings"`
	PendingBookings  int64                    `json:"pending_bookings"`
	ApprovedBookings int64                    `json:"approved_bookings"`
	PendingPayments  int64                    `json:"pending_payments"`
	PaidBookings     int64                    `json:"paid_bookings"`
	TotalRevenue     float64                  `json:"total_revenue"`
	Recent           []models.BookingRequest `json:"-"`
}

func (s *BookingService) Stats() (*DashboardStats, error) {
	stats := &DashboardStats{}

	counts := []struct {
		dest  *int64
		where []any
	}{
		{&stats.TotalBookings, nil},
		{&stats.PendingBookings, []any{"status = ?", models.StatusPending}},
		{&stats.ApprovedBookings, []any{"status = ?", models.StatusApproved}},
		{&stats.PendingPayments, []any{"payment_status = ?", models.PaymentPending}},
		{&stats.PaidBookings, []any{"payment_status = ?", models.PaymentPaid}},
	}
	for _, c := range counts {
		q := s.DB.Model(&models.BookingRequest{})
		if c.where != nil {
			q = q.Where(c.where[0], c.where[1:]...)
		}
		if err := q.Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("dashboard counts: %w", err)
		}
	}

	var revenue *float64
	if err := s.DB.Model(&models.BookingRequest{}).
		Where("payment_status = ?", models.PaymentPaid).
		Select("SUM(payment_amount)").
		Scan(&revenue).Error; err != nil {
		return nil, fmt.Errorf("dashboard revenue: %w", err)
	}
	if revenue != nil {
		stats.TotalRevenue = *revenue
	}

	if err := s.DB.Order("created_at DESC").Limit(5).Find(&stats.Recent).Error; err != nil {
		return nil, fmt.Errorf("recent bookings: %w", err)
	}

	return stats, nil
}

// UnavailableDates computes the set of blocked ISO dates in the given
// calendar month. A booking blocks every night of its stay; the checkout
// morning itself stays free. Only calendar-blocking statuses count.
func (s *BookingService) UnavailableDates(year, month int) ([]string, error) {
	if month < 1 || month > 12 {
		return nil, ValidationError("Month must be between 1 and 12")
	}

	monthStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	// First day of the next month minus one day; AddDate normalizes the
	// December rollover.
	monthEnd := monthStart.AddDate(0, 1, 0).AddDate(0, 0, -1)

	var bookings []models.BookingRequest
	if err := s.DB.
		Where("status IN ?", models.BlockingStatuses).
		Where("checkin_date <= ? AND checkout_date >= ?", monthEnd, monthStart).
		Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("query blocking bookings: %w", err)
	}

	blocked := make(map[string]struct{})
	for _, b := range bookings {
		day := utils.Date(b.CheckinDate)
		if day.Before(monthStart) {
			day = monthStart
		}
		// Checkout is exclusive; clip to the day after month end.
		stop := utils.Date(b.CheckoutDate)
		if limit := monthEnd.AddDate(0, 0, 1); stop.After(limit) {
			stop = limit
		}
		for ; day.Before(stop); day = day.AddDate(0, 0, 1) {
			blocked[day.Format(utils.DateLayout)] = struct{}{}
		}
	}

	dates := make([]string, 0, len(blocked))
	for d := range blocked {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates, nil
}

func (s *BookingService) notify(send func() error, bookingID uint, kind string) {
	if s.Mail == nil {
		return
	}
	if err := send(); err != nil {
		logger.Log.Error("failed to send email", "kind", kind, "booking_id", bookingID, "err", err)
	}
}
