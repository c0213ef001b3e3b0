package services

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jheiberg/17peppertree/models"
)

func newICalService(t *testing.T) *ICalService {
	t.Helper()
	return NewICalService(newTestDB(t))
}

func TestExportIncludesBlockingBookingsOnly(t *testing.T) {
	svc := newICalService(t)

	confirmed := seedBooking(t, svc.DB, "2030-06-15", "2030-06-18", models.StatusConfirmed)
	seedBooking(t, svc.DB, "2030-07-01", "2030-07-03", models.StatusApproved)
	pending := seedBooking(t, svc.DB, "2030-08-01", "2030-08-03", models.StatusPending)

	feed, err := svc.Export()
	require.NoError(t, err)

	assert.Contains(t, feed, "BEGIN:VCALENDAR")
	assert.Contains(t, feed, "-//17 @ Peppertree//Booking Calendar//EN")
	assert.Contains(t, feed, "X-WR-CALNAME:17 @ Peppertree Bookings")
	assert.Contains(t, feed, "SUMMARY:Booking: Thandi Nkosi")
	assert.Contains(t, feed, fmt.Sprintf("booking-%d@17peppertree.co.za", confirmed.ID))
	assert.NotContains(t, feed, fmt.Sprintf("booking-%d@17peppertree.co.za", pending.ID))
	assert.Equal(t, 2, strings.Count(feed, "BEGIN:VEVENT"))
}

const airbnbFeed = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//Airbnb Inc//Hosting Calendar 1.0//EN
CALSCALE:GREGORIAN
BEGIN:VEVENT
DTSTAMP:20300101T000000Z
DTSTART;VALUE=DATE:20301210
DTEND;VALUE=DATE:20301213
UID:abc123@airbnb.com
SUMMARY:Reserved
END:VEVENT
END:VCALENDAR
`

func serveFeed(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestImportCreatesConfirmedBookings(t *testing.T) {
	svc := newICalService(t)
	server := serveFeed(t, airbnbFeed)
	svc.Client = server.Client()

	result, err := svc.Import(server.URL, "airbnb")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 0, result.Skipped)

	var booking models.BookingRequest
	require.NoError(t, svc.DB.First(&booking).Error)
	assert.Equal(t, "airbnb: Reserved", booking.GuestName)
	assert.Equal(t, "imported@airbnb.com", booking.Email)
	assert.Equal(t, "N/A", booking.Phone)
	assert.Equal(t, 2, booking.Guests)
	assert.Equal(t, models.StatusConfirmed, booking.Status)
	assert.Equal(t, models.PaymentPaid, booking.PaymentStatus)
	assert.Contains(t, booking.SpecialRequests, "UID: abc123@airbnb.com")
	assert.Equal(t, "2030-12-10", booking.CheckinDate.Format("2006-01-02"))
	assert.Equal(t, "2030-12-13", booking.CheckoutDate.Format("2006-01-02"))
}

func TestImportSkipsDuplicates(t *testing.T) {
	svc := newICalService(t)
	server := serveFeed(t, airbnbFeed)
	svc.Client = server.Client()

	result, err := svc.Import(server.URL, "airbnb")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)

	result, err = svc.Import(server.URL, "airbnb")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Imported)
	assert.Equal(t, 1, result.Skipped)

	var count int64
	require.NoError(t, svc.DB.Model(&models.BookingRequest{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestImportRequiresURL(t *testing.T) {
	svc := newICalService(t)

	_, err := svc.Import("", "airbnb")
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "ical_url is required", verr.Error())
}

func TestImportFeedErrors(t *testing.T) {
	svc := newICalService(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(server.Close)
	svc.Client = server.Client()

	_, err := svc.Import(server.URL, "airbnb")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 403")
}
