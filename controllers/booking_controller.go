package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jheiberg/17peppertree/services"
	"github.com/jheiberg/17peppertree/utils"
)

// CreateBookingPayload is the guest-facing booking request body.
type CreateBookingPayload struct {
	Checkin  string `json:"checkin"`
	Checkout string `json:"checkout"`
	Guests   int    `json:"guests"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Message  string `json:"message"`
}

type UpdateStatusPayload struct {
	Status string `json:"status"`
}

// BookingController serves the public booking endpoints.
type BookingController struct {
	Bookings *services.BookingService
}

func NewBookingController(svc *services.BookingService) *BookingController {
	return &BookingController{Bookings: svc}
}

func (ctrl *BookingController) CreateBooking(c *gin.Context) {
	var payload CreateBookingPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	required := []struct {
		name  string
		empty bool
	}{
		{"checkin", payload.Checkin == ""},
		{"checkout", payload.Checkout == ""},
		{"guests", payload.Guests == 0},
		{"name", payload.Name == ""},
		{"email", payload.Email == ""},
		{"phone", payload.Phone == ""},
	}
	for _, f := range required {
		if f.empty {
			utils.JSONError(c, http.StatusBadRequest, "Missing required field: "+f.name)
			return
		}
	}

	booking, err := ctrl.Bookings.Create(services.CreateBookingInput{
		Checkin:  payload.Checkin,
		Checkout: payload.Checkout,
		Guests:   payload.Guests,
		Name:     payload.Name,
		Email:    payload.Email,
		Phone:    payload.Phone,
		Message:  payload.Message,
	})
	if err != nil {
		respondServiceError(c, err, "Booking not found", "An error occurred while processing your request")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Booking request submitted successfully",
		"booking_id": booking.ID,
	})
}

func (ctrl *BookingController) GetBookings(c *gin.Context) {
	bookings, err := ctrl.Bookings.List()
	if err != nil {
		respondServiceError(c, err, "Booking not found", "An error occurred while fetching bookings")
		return
	}

	out := make([]gin.H, 0, len(bookings))
	for i := range bookings {
		out = append(out, bookings[i].Map())
	}
	c.JSON(http.StatusOK, out)
}

func (ctrl *BookingController) GetBooking(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	booking, err := ctrl.Bookings.Get(id)
	if err != nil {
		respondServiceError(c, err, "Booking not found", "An error occurred while fetching the booking")
		return
	}
	c.JSON(http.StatusOK, booking.Map())
}

func (ctrl *BookingController) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var payload UpdateStatusPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	booking, err := ctrl.Bookings.UpdateStatusPublic(id, payload.Status)
	if err != nil {
		respondServiceError(c, err, "Booking not found", "An error occurred while updating booking status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Booking status updated successfully",
		"booking": booking.Map(),
	})
}

func (ctrl *BookingController) GetAvailability(c *gin.Context) {
	year, yerr := strconv.Atoi(c.Query("year"))
	month, merr := strconv.Atoi(c.Query("month"))
	if yerr != nil || merr != nil || year == 0 || month == 0 {
		utils.JSONError(c, http.StatusBadRequest, "Year and month parameters are required")
		return
	}

	dates, err := ctrl.Bookings.UnavailableDates(year, month)
	if err != nil {
		respondServiceError(c, err, "Not found", "An error occurred while fetching availability")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"year":              year,
		"month":             month,
		"unavailable_dates": dates,
	})
}

func (ctrl *BookingController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "Peppertree API is running",
	})
}
