package services

import (
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/jheiberg/17peppertree/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.BookingRequest{}, &models.Rate{}))
	return db
}

// mailerStub records sends and optionally fails them.
type mailerStub struct {
	confirmations int
	notifications int
	statusUpdates int
	fail          bool
}

func (m *mailerStub) SendBookingConfirmation(*models.BookingRequest) error {
	m.confirmations++
	if m.fail {
		return errFailMail
	}
	return nil
}

func (m *mailerStub) SendOwnerNotification(*models.BookingRequest) error {
	m.notifications++
	if m.fail {
		return errFailMail
	}
	return nil
}

func (m *mailerStub) SendStatusUpdate(*models.BookingRequest) error {
	m.statusUpdates++
	if m.fail {
		return errFailMail
	}
	return nil
}

var errFailMail = errors.New("smtp unavailable")

func day(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", value)
	require.NoError(t, err)
	return d
}

func seedBooking(t *testing.T, db *gorm.DB, checkin, checkout, status string) *models.BookingRequest {
	t.Helper()
	b := &models.BookingRequest{
		CheckinDate:   day(t, checkin),
		CheckoutDate:  day(t, checkout),
		Guests:        2,
		GuestName:     "Thandi Nkosi",
		Email:         "thandi@example.com",
		Phone:         "+27821234567",
		Status:        status,
		PaymentStatus: models.PaymentPending,
	}
	require.NoError(t, db.Create(b).Error)
	return b
}
