package routes

import (
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/jheiberg/17peppertree/auth"
	"github.com/jheiberg/17peppertree/controllers"
	"github.com/jheiberg/17peppertree/middleware"
)

func parseCorsOrigins() []string {
	raw := strings.TrimSpace(os.Getenv("CORS_ORIGINS"))
	if raw == "" {
		return []string{"*"}
	}

	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// SetupRouter wires all endpoint groups. The admin and rate-management
// groups require an admin user token; the secure group accepts service
// accounts, with mixed user/client access on its read endpoints.
func SetupRouter(
	bc *controllers.BookingController,
	ac *controllers.AdminController,
	rc *controllers.RateController,
	authc *controllers.AuthController,
	sc *controllers.SecureController,
	ic *controllers.ICalController,
	verifier *auth.Verifier,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())

	origins := parseCorsOrigins()
	allowCredentials := true
	for _, origin := range origins {
		if origin == "*" {
			allowCredentials = false
			break
		}
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: allowCredentials,
		MaxAge:           12 * time.Hour,
	}))

	api := r.Group("/api")
	{
		// Public booking surface
		api.GET("/health", bc.Health)
		api.POST("/booking", bc.CreateBooking)
		api.GET("/bookings", bc.GetBookings)
		api.GET("/booking/:id", bc.GetBooking)
		api.PUT("/booking/:id/status", bc.UpdateStatus)
		api.GET("/availability", bc.GetAvailability)

		// OAuth2 login proxy
		authGroup := api.Group("/auth")
		{
			authGroup.GET("/login", authc.Login)
			authGroup.POST("/callback", authc.Callback)
			authGroup.POST("/refresh", authc.Refresh)
			authGroup.POST("/logout", authc.Logout)
			authGroup.GET("/user", middleware.AdminRequired(verifier), authc.User)
		}

		// Rate listing and quoting are public; management is admin-only.
		rates := api.Group("/admin/rates")
		{
			rates.GET("/", rc.GetRates)
			rates.GET("/base", rc.GetBaseRates)
			rates.POST("/calculate", rc.Calculate)

			rates.GET("/:id", middleware.AdminRequired(verifier), rc.GetRate)
			rates.POST("/", middleware.AdminRequired(verifier), rc.CreateRate)
			rates.PUT("/:id", middleware.AdminRequired(verifier), rc.UpdateRate)
			rates.DELETE("/:id", middleware.AdminRequired(verifier), rc.DeleteRate)
		}

		// Booking management
		admin := api.Group("/admin", middleware.AdminRequired(verifier))
		{
			admin.GET("/bookings", ac.ListBookings)
			admin.GET("/booking/:id", ac.GetBooking)
			admin.PUT("/booking/:id/status", ac.UpdateStatus)
			admin.PUT("/booking/:id/payment", ac.UpdatePayment)
			admin.DELETE("/booking/:id", ac.DeleteBooking)
			admin.GET("/dashboard/stats", ac.DashboardStats)
		}

		// Service-to-service surface
		secure := api.Group("/secure")
		{
			secure.GET("/health", middleware.ClientCredentialsRequired(verifier), sc.Health)
			secure.POST("/booking", middleware.ClientCredentialsRequired(verifier), sc.CreateBooking)
			secure.GET("/auth/test", middleware.ClientCredentialsRequired(verifier), sc.AuthTest)
			secure.GET("/client/info", middleware.ClientCredentialsRequired(verifier), sc.ClientInfo)

			secure.GET("/bookings", middleware.UserOrClientRequired(verifier), sc.ListBookings)
			secure.GET("/booking/:id", middleware.UserOrClientRequired(verifier), sc.GetBooking)
			secure.GET("/dashboard/stats", middleware.UserOrClientRequired(verifier), sc.DashboardStats)
		}

		// Calendar sync feeds
		ical := api.Group("/ical")
		{
			ical.GET("/bookings.ics", ic.Export)
			ical.POST("/import", ic.Import)
			ical.GET("/info", ic.Info)
		}
	}

	return r
}
