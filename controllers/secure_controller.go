package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jheiberg/17peppertree/auth"
	"github.com/jheiberg/17peppertree/middleware"
	"github.com/jheiberg/17peppertree/services"
	"github.com/jheiberg/17peppertree/utils"
)

// SecureController serves the service-to-service API surface. Endpoints
// echo the authenticated identity so callers can confirm which path
// admitted them.
type SecureController struct {
	Bookings *services.BookingService
	Client   *auth.ServiceClient
}

func NewSecureController(bookings *services.BookingService, client *auth.ServiceClient) *SecureController {
	return &SecureController{Bookings: bookings, Client: client}
}

func clientMap(claims *auth.ClientClaims) gin.H {
	return gin.H{
		"client_id": claims.Azp,
		"username":  claims.PreferredUsername,
		"realm":     claims.Realm(),
		"scopes":    claims.Scopes(),
	}
}

// identity returns the auth_type/client_id/user_id triple echoed on
// mixed-access endpoints.
func identity(c *gin.Context) (authType string, clientID, userID any) {
	authType = middleware.AuthType(c)
	if claims, ok := middleware.ClientClaims(c); ok {
		clientID = claims.Azp
	}
	if claims, ok := middleware.UserClaims(c); ok {
		userID = claims.Subject
	}
	return authType, clientID, userID
}

func (ctrl *SecureController) Health(c *gin.Context) {
	claims, _ := middleware.ClientClaims(c)
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"message":   "Secure Peppertree API is running",
		"client_id": claims.Azp,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (ctrl *SecureController) ListBookings(c *gin.Context) {
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

	authType, clientID, userID := identity(c)
	c.JSON(http.StatusOK, gin.H{
		"bookings":     bookings,
		"total":        result.Total,
		"pages":        result.Pages,
		"current_page": result.Page,
		"per_page":     result.PerPage,
		"auth_type":    authType,
		"client_id":    clientID,
		"user_id":      userID,
	})
}

func (ctrl *SecureController) CreateBooking(c *gin.Context) {
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

	claims, _ := middleware.ClientClaims(c)
	c.JSON(http.StatusCreated, gin.H{
		"message":    "Booking request submitted successfully via secure API",
		"booking_id": booking.ID,
		"booking": gin.H{
			"id":            booking.ID,
			"guest_name":    booking.GuestName,
			"email":         booking.Email,
			"checkin_date":  booking.CheckinDate.Format(utils.DateLayout),
			"checkout_date": booking.CheckoutDate.Format(utils.DateLayout),
			"guests":        booking.Guests,
			"status":        booking.Status,
			"created_at":    booking.CreatedAt.Format(time.RFC3339),
		},
		"client_id": claims.Azp,
	})
}

func (ctrl *SecureController) GetBooking(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	booking, err := ctrl.Bookings.Get(id)
	if err != nil {
		respondServiceError(c, err, "Booking not found", "Failed to fetch booking details")
		return
	}

	authType, clientID, userID := identity(c)
	c.JSON(http.StatusOK, gin.H{
		"booking":   booking.Map(),
		"auth_type": authType,
		"client_id": clientID,
		"user_id":   userID,
	})
}

func (ctrl *SecureController) DashboardStats(c *gin.Context) {
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

	authType, clientID, userID := identity(c)
	c.JSON(http.StatusOK, gin.H{
		"stats":           stats,
		"recent_bookings": recent,
		"auth_type":       authType,
		"client_id":       clientID,
		"user_id":         userID,
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	})
}

func (ctrl *SecureController) AuthTest(c *gin.Context) {
	claims, _ := middleware.ClientClaims(c)
	c.JSON(http.StatusOK, gin.H{
		"message":   "Client credentials authentication successful",
		"client":    clientMap(claims),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (ctrl *SecureController) ClientInfo(c *gin.Context) {
	claims, _ := middleware.ClientClaims(c)

	var tokenInfo map[string]any
	if ctrl.Client != nil {
		tokenInfo = ctrl.Client.TokenInfo()
	}

	c.JSON(http.StatusOK, gin.H{
		"client":     clientMap(claims),
		"token_info": tokenInfo,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}
