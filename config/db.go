package config

import (
	"fmt"
	"strconv"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/jheiberg/17peppertree/logger"
	"github.com/jheiberg/17peppertree/models"
	"github.com/jheiberg/17peppertree/utils"
)

var DB *gorm.DB

func resolvePostgresDSN() string {
	if raw := strings.TrimSpace(utils.EnvOrDefault("DATABASE_URL", "")); raw != "" {
		return raw
	}

	host := utils.EnvOrDefault("DB_HOST", "127.0.0.1")
	port := utils.EnvOrDefault("DB_PORT", "5432")
	user := utils.EnvOrDefault("DB_USER", "postgres")
	pass := utils.EnvOrDefault("DB_PASSWORD", "password")
	name := utils.EnvOrDefault("DB_NAME", "peppertree")
	ssl := utils.EnvOrDefault("DB_SSLMODE", "disable")

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		host, port, user, pass, name, ssl)
}

// ConnectDatabase opens the Postgres connection, migrates the schema and
// seeds default base rates. Sets config.DB on success.
func ConnectDatabase() error {
	db, err := gorm.Open(postgres.Open(resolvePostgresDSN()), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.BookingRequest{},
		&models.Rate{},
	); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}

	DB = db
	SeedDatabase(db)
	return nil
}

// SeedDatabase makes sure each guest-count tier has an active base rate,
// so rate calculation never starts from an empty table. Amounts come from
// BASE_RATE_1 / BASE_RATE_2 when set.
func SeedDatabase(db *gorm.DB) {
	defaults := map[int]float64{1: 800, 2: 1000}

	for guests, amount := range defaults {
		if raw := utils.EnvOrDefault(fmt.Sprintf("BASE_RATE_%d", guests), ""); raw != "" {
			if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
				amount = v
			}
		}

		var count int64
		db.Model(&models.Rate{}).
			Where("rate_type = ? AND guests = ? AND is_active = ?", models.RateBase, guests, true).
			Count(&count)
		if count > 0 {
			continue
		}

		rate := models.Rate{
			RateType:    models.RateBase,
			Guests:      guests,
			Amount:      amount,
			Description: fmt.Sprintf("Base rate for %d guest(s)", guests),
			IsActive:    true,
			CreatedBy:   "system",
		}
		if err := db.Create(&rate).Error; err != nil {
			logger.Log.Warn("failed to seed base rate", "guests", guests, "err", err)
			continue
		}
		logger.Log.Info("seeded base rate", "guests", guests, "amount", amount)
	}
}
