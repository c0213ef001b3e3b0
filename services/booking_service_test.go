package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jheiberg/17peppertree/models"
)

func newBookingService(t *testing.T) (*BookingService, *mailerStub) {
	t.Helper()
	mail := &mailerStub{}
	return NewBookingService(newTestDB(t), mail), mail
}

func futureDate(days int) string {
	return time.Now().UTC().AddDate(0, 0, days).Format("2006-01-02")
}

func TestCreateBooking(t *testing.T) {
	svc, mail := newBookingService(t)

	booking, err := svc.Create(CreateBookingInput{
		Checkin:  futureDate(10),
		Checkout: futureDate(13),
		Guests:   2,
		Name:     "Thandi Nkosi",
		Email:    "thandi@example.com",
		Phone:    "+27821234567",
		Message:  "Late arrival",
	})
	require.NoError(t, err)

	assert.NotZero(t, booking.ID)
	assert.Equal(t, models.StatusPending, booking.Status)
	assert.Equal(t, models.PaymentPending, booking.PaymentStatus)
	assert.Equal(t, "Late arrival", booking.SpecialRequests)
	assert.Equal(t, 1, mail.confirmations)
	assert.Equal(t, 1, mail.notifications)
}

func TestCreateBookingValidation(t *testing.T) {
	svc, _ := newBookingService(t)

	base := CreateBookingInput{
		Checkin:  futureDate(10),
		Checkout: futureDate(12),
		Guests:   2,
		Name:     "Thandi Nkosi",
		Email:    "thandi@example.com",
		Phone:    "+27821234567",
	}

	tests := []struct {
		name    string
		mutate  func(*CreateBookingInput)
		wantMsg string
	}{
		{
			name:    "bad date format",
			mutate:  func(in *CreateBookingInput) { in.Checkin = "10-06-2030" },
			wantMsg: "Invalid date format. Please use YYYY-MM-DD",
		},
		{
			name:    "checkout before checkin",
			mutate:  func(in *CreateBookingInput) { in.Checkout = base.Checkin },
			wantMsg: "Check-out date must be after check-in date",
		},
		{
			name: "checkin in the past",
			mutate: func(in *CreateBookingInput) {
				in.Checkin = "2020-01-01"
				in.Checkout = "2020-01-03"
			},
			wantMsg: "Check-in date cannot be in the past",
		},
		{
			name:    "too many guests",
			mutate:  func(in *CreateBookingInput) { in.Guests = 3 },
			wantMsg: "Number of guests must be between 1 and 2",
		},
		{
			name:    "zero guests",
			mutate:  func(in *CreateBookingInput) { in.Guests = 0 },
			wantMsg: "Number of guests must be between 1 and 2",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := base
			tc.mutate(&in)

			_, err := svc.Create(in)
			var verr ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.wantMsg, verr.Error())
		})
	}
}

func TestCreateBookingMailFailureIsNonFatal(t *testing.T) {
	svc, mail := newBookingService(t)
	mail.fail = true

	booking, err := svc.Create(CreateBookingInput{
		Checkin:  futureDate(5),
		Checkout: futureDate(7),
		Guests:   1,
		Name:     "Pieter van Wyk",
		Email:    "pieter@example.com",
		Phone:    "+27831112222",
	})
	require.NoError(t, err)
	assert.NotZero(t, booking.ID)
}

func TestGetBookingNotFound(t *testing.T) {
	svc, _ := newBookingService(t)

	_, err := svc.Get(999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStatusPublic(t *testing.T) {
	svc, mail := newBookingService(t)
	b := seedBooking(t, svc.DB, "2030-06-10", "2030-06-12", models.StatusPending)

	updated, err := svc.UpdateStatusPublic(b.ID, models.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, updated.Status)
	assert.Equal(t, 1, mail.statusUpdates)

	_, err = svc.UpdateStatusPublic(b.ID, "approved")
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Invalid status. Must be pending, confirmed, or rejected", verr.Error())
}

func TestUnavailableDates(t *testing.T) {
	svc, _ := newBookingService(t)

	// Blocks the 15th through 17th; checkout morning stays free.
	seedBooking(t, svc.DB, "2024-06-15", "2024-06-18", models.StatusConfirmed)

	dates, err := svc.UnavailableDates(2024, 6)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-15", "2024-06-16", "2024-06-17"}, dates)
}

func TestUnavailableDatesIgnoresNonBlockingStatuses(t *testing.T) {
	svc, _ := newBookingService(t)

	seedBooking(t, svc.DB, "2024-06-05", "2024-06-08", models.StatusPending)
	seedBooking(t, svc.DB, "2024-06-10", "2024-06-12", models.StatusRejected)
	seedBooking(t, svc.DB, "2024-06-20", "2024-06-22", models.StatusApproved)

	dates, err := svc.UnavailableDates(2024, 6)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-20", "2024-06-21"}, dates)
}

func TestUnavailableDatesClipsToMonth(t *testing.T) {
	svc, _ := newBookingService(t)

	// Stay spans the May/June boundary.
	seedBooking(t, svc.DB, "2024-05-30", "2024-06-02", models.StatusConfirmed)

	june, err := svc.UnavailableDates(2024, 6)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-01"}, june)

	may, err := svc.UnavailableDates(2024, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-05-30", "2024-05-31"}, may)
}

func TestUnavailableDatesDecemberRollover(t *testing.T) {
	svc, _ := newBookingService(t)

	seedBooking(t, svc.DB, "2024-12-30", "2025-01-02", models.StatusConfirmed)

	dec, err := svc.UnavailableDates(2024, 12)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-12-30", "2024-12-31"}, dec)

	jan, err := svc.UnavailableDates(2025, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-01"}, jan)
}

func TestUnavailableDatesOverlappingBookingsDeduplicated(t *testing.T) {
	svc, _ := newBookingService(t)

	seedBooking(t, svc.DB, "2024-06-10", "2024-06-13", models.StatusConfirmed)
	seedBooking(t, svc.DB, "2024-06-12", "2024-06-14", models.StatusApproved)

	dates, err := svc.UnavailableDates(2024, 6)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-10", "2024-06-11", "2024-06-12", "2024-06-13"}, dates)
}

func TestUnavailableDatesInvalidMonth(t *testing.T) {
	svc, _ := newBookingService(t)

	_, err := svc.UnavailableDates(2024, 13)
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Month must be between 1 and 12", verr.Error())
}

func TestAdminListFiltersAndPaginates(t *testing.T) {
	svc, _ := newBookingService(t)

	seedBooking(t, svc.DB, "2030-03-01", "2030-03-05", models.StatusPending)
	seedBooking(t, svc.DB, "2030-04-01", "2030-04-05", models.StatusApproved)
	seedBooking(t, svc.DB, "2030-05-01", "2030-05-05", models.StatusApproved)

	page, err := svc.AdminList(BookingFilter{Status: models.StatusApproved})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
	assert.Len(t, page.Bookings, 2)

	page, err = svc.AdminList(BookingFilter{PerPage: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	assert.Equal(t, 2, page.Pages)
	assert.Len(t, page.Bookings, 2)

	page, err = svc.AdminList(BookingFilter{Page: 2, PerPage: 2})
	require.NoError(t, err)
	assert.Len(t, page.Bookings, 1)

	page, err = svc.AdminList(BookingFilter{StartDate: "2030-04-15"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
}

func TestAdminUpdateStatus(t *testing.T) {
	svc, mail := newBookingService(t)
	b := seedBooking(t, svc.DB, "2030-06-10", "2030-06-12", models.StatusPending)

	updated, err := svc.UpdateStatus(b.ID, models.StatusApproved, "Deposit received", "admin@17peppertree.co.za", true)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, updated.Status)
	assert.Equal(t, "Deposit received", updated.AdminNotes)
	assert.Equal(t, 1, mail.statusUpdates)

	history := updated.History()
	require.Len(t, history, 1)
	assert.Equal(t, models.StatusApproved, history[0].Status)
	assert.Equal(t, "admin@17peppertree.co.za", history[0].ChangedBy)
	assert.Equal(t, "Deposit received", history[0].Notes)
}

func TestAdminUpdateStatusNoNotifyOnSameStatus(t *testing.T) {
	svc, mail := newBookingService(t)
	b := seedBooking(t, svc.DB, "2030-06-10", "2030-06-12", models.StatusApproved)

	_, err := svc.UpdateStatus(b.ID, models.StatusApproved, "", "admin@17peppertree.co.za", true)
	require.NoError(t, err)
	assert.Zero(t, mail.statusUpdates)
}

func TestAdminUpdateStatusRejectsUnknownStatus(t *testing.T) {
	svc, _ := newBookingService(t)
	b := seedBooking(t, svc.DB, "2030-06-10", "2030-06-12", models.StatusPending)

	_, err := svc.UpdateStatus(b.ID, "archived", "", "admin@17peppertree.co.za", false)
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), "Invalid status. Must be one of:")
}

func TestUpdatePayment(t *testing.T) {
	svc, _ := newBookingService(t)
	b := seedBooking(t, svc.DB, "2030-06-10", "2030-06-12", models.StatusApproved)

	amount := 2000.0
	updated, err := svc.UpdatePayment(b.ID, PaymentInput{
		Status:    models.PaymentPaid,
		Amount:    &amount,
		Reference: "EFT-1042",
		Method:    "eft",
	}, "admin@17peppertree.co.za")
	require.NoError(t, err)

	assert.Equal(t, models.PaymentPaid, updated.PaymentStatus)
	require.NotNil(t, updated.PaymentAmount)
	assert.Equal(t, 2000.0, *updated.PaymentAmount)
	require.NotNil(t, updated.PaymentDate)
	firstPaymentDate := *updated.PaymentDate

	history := updated.History()
	require.Len(t, history, 1)
	assert.Equal(t, "payment_update", history[0].Type)
	assert.Equal(t, models.PaymentPaid, history[0].PaymentStatus)

	// Marking paid again must not move the original payment date.
	updated, err = svc.UpdatePayment(b.ID, PaymentInput{Status: models.PaymentPaid}, "admin@17peppertree.co.za")
	require.NoError(t, err)
	require.NotNil(t, updated.PaymentDate)
	assert.Equal(t, firstPaymentDate.Unix(), updated.PaymentDate.Unix())
}

func TestUpdatePaymentRejectsUnknownStatus(t *testing.T) {
	svc, _ := newBookingService(t)
	b := seedBooking(t, svc.DB, "2030-06-10", "2030-06-12", models.StatusApproved)

	_, err := svc.UpdatePayment(b.ID, PaymentInput{Status: "invoiced"}, "admin@17peppertree.co.za")
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), "Invalid payment status. Must be one of:")
}

func TestSoftDelete(t *testing.T) {
	svc, _ := newBookingService(t)
	b := seedBooking(t, svc.DB, "2030-06-10", "2030-06-12", models.StatusPending)

	require.NoError(t, svc.SoftDelete(b.ID, "admin@17peppertree.co.za"))

	var stored models.BookingRequest
	require.NoError(t, svc.DB.First(&stored, b.ID).Error)
	assert.Equal(t, models.StatusDeleted, stored.Status)
	assert.NotNil(t, stored.DeletedAt)
	assert.Equal(t, "admin@17peppertree.co.za", stored.DeletedBy)

	err := svc.SoftDelete(999, "admin@17peppertree.co.za")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStats(t *testing.T) {
	svc, _ := newBookingService(t)

	seedBooking(t, svc.DB, "2030-03-01", "2030-03-05", models.StatusPending)
	approved := seedBooking(t, svc.DB, "2030-04-01", "2030-04-05", models.StatusApproved)
	seedBooking(t, svc.DB, "2030-05-01", "2030-05-05", models.StatusApproved)

	amount := 3200.0
	_, err := svc.UpdatePayment(approved.ID, PaymentInput{
		Status: models.PaymentPaid,
		Amount: &amount,
	}, "admin@17peppertree.co.za")
	require.NoError(t, err)

	stats, err := svc.Stats()
	require.NoError(t, err)

	assert.EqualValues(t, 3, stats.TotalBookings)
	assert.EqualValues(t, 1, stats.PendingBookings)
	assert.EqualValues(t, 2, stats.ApprovedBookings)
	assert.EqualValues(t, 2, stats.PendingPayments)
	assert.EqualValues(t, 1, stats.PaidBookings)
	assert.Equal(t, 3200.0, stats.TotalRevenue)
	assert.Len(t, stats.Recent, 3)
}
