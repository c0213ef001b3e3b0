package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jheiberg/17peppertree/middleware"
	"github.com/jheiberg/17peppertree/services"
	"github.com/jheiberg/17peppertree/utils"
)

// AdminStatusPayload is the admin status transition body.
type AdminStatusPayload struct {
	Status      string `json:"status"`
	AdminNotes  string `json:"admin_notes"`
	NotifyGuest *bool  `json:"notify_guest"`
}

// PaymentPayload carries a partial payment update.
type PaymentPayload struct {
	PaymentStatus    string   `json:"payment_status"`
	PaymentAmount    *float64 `json:"payment_amount"`
	PaymentReference string   `json:"payment_reference"`
	PaymentMethod    string   `json:"payment_method"`
}

// AdminController serves the authenticated booking management endpoints.
type AdminController struct {
	Bookings *services.BookingService
}

func NewAdminController(svc *services.BookingService) *AdminController {
	return &AdminController{Bookings: svc}
}

func (ctrl *AdminController) ListBookings(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	result, err := ctrl.Bookings.AdminList(services.BookingFilter{
		Status:        c.Query("status"),
		PaymentStatus: c.Query("payment_status"),
		StartDate:     c.Query("start_date"),
		EndDate:       c.Query("end_date"),
		Page:          page,
		PerPage:       perPage,
	})
	if err != nil {
		respondServiceError(c, err, "Booking not found", "Failed to fetch bookings")
		return
	}

	bookings := make([]gin.H, 0, len(result.Bookings))
	for i := range result.Bookings {
		bookings = append(bookings, result.Bookings[i].Map())
	}

	c.JSON(http.StatusOK, gin.H{
		"bookings":     bookings,
		"total":        result.Total,
		"pages":        result.Pages,
		"current_page": result.Page,
		"per_page":     result.PerPage,
	})
}

func (ctrl *AdminController) GetBooking(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	booking, err := ctrl.Bookings.Get(id)
	if err != nil {
		respondServiceError(c, err, "Booking not found", "Failed to fetch booking details")
		return
	}
	c.JSON(http.StatusOK, booking.Map())
}

func (ctrl *AdminController) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var payload AdminStatusPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	notify := true
	if payload.NotifyGuest != nil {
		notify = *payload.NotifyGuest
	}

	booking, err := ctrl.Bookings.UpdateStatus(id, payload.Status, payload.AdminNotes, middleware.ActorEmail(c), notify)
	if err != nil {
		respondServiceError(c, err, "Booking not found", "Failed to update booking status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Booking status updated successfully",
		"booking_id": booking.ID,
		"status":     booking.Status,
	})
}

func (ctrl *AdminController) UpdatePayment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var payload PaymentPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	booking, err := ctrl.Bookings.UpdatePayment(id, services.PaymentInput{
		Status:    payload.PaymentStatus,
		Amount:    payload.PaymentAmount,
		Reference: payload.PaymentReference,
		Method:    payload.PaymentMethod,
	}, middleware.ActorEmail(c))
	if err != nil {
		respondServiceError(c, err, "Booking not found", "Failed to update payment information")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        "Payment information updated successfully",
		"booking_id":     booking.ID,
		"payment_status": booking.PaymentStatus,
		"payment_amount": booking.PaymentAmount,
	})
}

func (ctrl *AdminController) DeleteBooking(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := ctrl.Bookings.SoftDelete(id, middleware.ActorEmail(c)); err != nil {
		respondServiceError(c, err, "Booking not found", "Failed to delete booking")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Booking deleted successfully",
		"booking_id": id,
	})
}

func (ctrl *AdminController) DashboardStats(c *gin.Context) {
	stats, err := ctrl.Bookings.Stats()
	if err != nil {
		respondServiceError(c, err, "Not found", "Failed to fetch dashboard statistics")
		return
	}

	recent := make([]gin.H, 0, len(stats.Recent))
	for i := range stats.Recent {
		b := &stats.Recent[i]
		recent = append(recent, gin.H{
			"id":             b.ID,
			"guest_name":     b.GuestName,
			"checkin_date":   b.CheckinDate.Format(utils.DateLayout),
			"status":         b.Status,
			"payment_status": b.PaymentStatus,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":           stats,
		"recent_bookings": recent,
	})
}
