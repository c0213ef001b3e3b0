package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jheiberg/17peppertree/auth"
	"github.com/jheiberg/17peppertree/config"
	"github.com/jheiberg/17peppertree/controllers"
	"github.com/jheiberg/17peppertree/logger"
	"github.com/jheiberg/17peppertree/routes"
	"github.com/jheiberg/17peppertree/services"
	"github.com/jheiberg/17peppertree/utils"
)

func main() {
	// Load .env (optional)
	if err := godotenv.Load(); err != nil {
		logger.Log.Info(".env not found; continuing with environment variables")
	}

	if err := config.ConnectDatabase(); err != nil {
		logger.Log.Error("database connect failed", "err", err)
		os.Exit(1)
	}
	db := config.DB
	logger.Log.Info("database connection established, migrations applied")

	// Identity provider wiring
	authCfg := auth.ConfigFromEnv()
	keys := auth.NewKeyCache(authCfg.JWKSURL(), nil)
	verifier := auth.NewVerifier(authCfg, keys)
	keycloak := auth.NewKeycloak(authCfg)
	serviceClient := auth.NewServiceClient(authCfg)
	if serviceClient == nil {
		logger.Log.Info("backend client credentials not configured; outbound service calls disabled")
	}

	mailer := utils.NewMailerFromEnv()

	// Services
	bookingService := services.NewBookingService(db, mailer)
	rateService := services.NewRateService(db)
	icalService := services.NewICalService(db)

	// Controllers
	bookingController := controllers.NewBookingController(bookingService)
	adminController := controllers.NewAdminController(bookingService)
	rateController := controllers.NewRateController(rateService)
	authController := controllers.NewAuthController(keycloak)
	secureController := controllers.NewSecureController(bookingService, serviceClient)
	icalController := controllers.NewICalController(icalService)

	router := routes.SetupRouter(
		bookingController,
		adminController,
		rateController,
		authController,
		secureController,
		icalController,
		verifier,
	)

	port := utils.EnvOrDefault("PORT", "5000")
	addr := ":" + port

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Log.Info("server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("server stopped unexpectedly", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Log.Info("shutdown signal received, shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("server forced to shutdown", "err", err)
		os.Exit(1)
	}

	logger.Log.Info("server stopped gracefully")
}
