package services

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"gorm.io/gorm"

	"github.com/jheiberg/17peppertree/logger"
	"github.com/jheiberg/17peppertree/models"
	"github.com/jheiberg/17peppertree/utils"
)

const (
	calendarProdID = "-//17 @ Peppertree//Booking Calendar//EN"
	calendarName   = "17 @ Peppertree Bookings"
	calendarDomain = "17peppertree.co.za"

	importFetchTimeout = 30 * time.Second
)

// ICalService exports the booking calendar and imports feeds published
// by external platforms (Airbnb, Booking.com).
type ICalService struct {
	DB *gorm.DB
	// Client fetches remote feeds; tests inject their own.
	Client *http.Client
}

func NewICalService(db *gorm.DB) *ICalService {
	return &ICalService{
		DB:     db,
		Client: &http.Client{Timeout: importFetchTimeout},
	}
}

// Export renders all calendar-blocking bookings as an iCalendar feed.
func (s *ICalService) Export() (string, error) {
	var bookings []models.BookingRequest
	if err := s.DB.
		Where("status IN ?", models.BlockingStatuses).
		Order("checkin_date ASC").
		Find(&bookings).Error; err != nil {
		return "", fmt.Errorf("list bookings for export: %w", err)
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProdID)
	cal.SetXWRCalName(calendarName)
	cal.SetXWRCalDesc("Confirmed and approved bookings for " + utils.PropertyName)
	cal.SetXWRTimezone("Africa/Johannesburg")

	now := time.Now().UTC()
	for i := range bookings {
		b := &bookings[i]

		event := cal.AddEvent(fmt.Sprintf("booking-%d@%s", b.ID, calendarDomain))
		event.SetCreatedTime(b.CreatedAt)
		event.SetDtStampTime(now)
		event.SetSummary("Booking: " + b.GuestName)
		requests := b.SpecialRequests
		if requests == "" {
			requests = "None"
		}
		event.SetDescription(fmt.Sprintf(
			"Guest: %s\nEmail: %s\nPhone: %s\nGuests: %d\nStatus: %s\nBooking ID: %d\nSpecial Requests: %s",
			b.GuestName, b.Email, b.Phone, b.Guests, b.Status, b.ID, requests,
		))
		event.SetAllDayStartAt(b.CheckinDate)
		// DTEND is exclusive; checkout day itself is open for arrivals.
		event.SetAllDayEndAt(b.CheckoutDate)
		event.SetStatus(ics.ObjectStatusConfirmed)
		event.SetClass(ics.ClassificationPrivate)
		event.SetOrganizer("mailto:bookings@" + calendarDomain)
	}

	return cal.Serialize(), nil
}

// ImportResult reports the outcome of one feed import.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Import fetches an external iCalendar feed and creates a confirmed
// booking per event not already known. An event is a duplicate when a
// booking carries its UID, or when a booking from the same platform
// spans the same dates.
func (s *ICalService) Import(feedURL, platform string) (*ImportResult, error) {
	if feedURL == "" {
		return nil, ValidationError("ical_url is required")
	}
	if platform == "" {
		platform = "external"
	}

	resp, err := s.Client.Get(feedURL)
	if err != nil {
		return nil, fmt.Errorf("fetch calendar feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch calendar feed: unexpected status %d", resp.StatusCode)
	}

	cal, err := ics.ParseCalendar(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse calendar feed: %w", err)
	}

	result := &ImportResult{}
	for _, event := range cal.Events() {
		start, err := event.GetAllDayStartAt()
		if err != nil {
			if start, err = event.GetStartAt(); err != nil {
				result.Skipped++
				continue
			}
		}
		end, err := event.GetAllDayEndAt()
		if err != nil {
			if end, err = event.GetEndAt(); err != nil {
				result.Skipped++
				continue
			}
		}
		checkin := utils.Date(start)
		checkout := utils.Date(end)
		if !checkout.After(checkin) {
			result.Skipped++
			continue
		}

		uid := event.Id()
		summary := ""
		if p := event.GetProperty(ics.ComponentPropertySummary); p != nil {
			summary = p.Value
		}
		if summary == "" {
			summary = "Reserved"
		}

		dup, err := s.isDuplicate(uid, platform, checkin, checkout)
		if err != nil {
			return nil, err
		}
		if dup {
			result.Skipped++
			continue
		}

		name := platform + ": " + summary
		if len(name) > 50 {
			name = name[:50]
		}

		booking := &models.BookingRequest{
			CheckinDate:     checkin,
			CheckoutDate:    checkout,
			Guests:          2,
			GuestName:       name,
			Email:           fmt.Sprintf("imported@%s.com", strings.ToLower(platform)),
			Phone:           "N/A",
			SpecialRequests: fmt.Sprintf("Imported from %s. UID: %s", platform, uid),
			Status:          models.StatusConfirmed,
			PaymentStatus:   models.PaymentPaid,
		}
		if err := s.DB.Create(booking).Error; err != nil {
			return nil, fmt.Errorf("create imported booking: %w", err)
		}
		result.Imported++
	}

	logger.Log.Info("calendar feed imported",
		"platform", platform, "imported", result.Imported, "skipped", result.Skipped)
	return result, nil
}

func (s *ICalService) isDuplicate(uid, platform string, checkin, checkout time.Time) (bool, error) {
	var count int64

	if uid != "" {
		if err := s.DB.Model(&models.BookingRequest{}).
			Where("special_requests LIKE ?", "%UID: "+uid+"%").
			Count(&count).Error; err != nil {
			return false, fmt.Errorf("check duplicate: %w", err)
		}
		if count > 0 {
			return true, nil
		}
	}

	if err := s.DB.Model(&models.BookingRequest{}).
		Where("checkin_date = ? AND checkout_date = ?", checkin, checkout).
		Where("guest_name LIKE ?", platform+"%").
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check duplicate: %w", err)
	}
	return count > 0, nil
}
