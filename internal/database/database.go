package database

import (
	"fmt"

	"bitstamp-trade-bot-go/internal/config"
	"bitstamp-trade-bot-go/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDatabase opens the database and migrates the schema. The ledger tables
// are append-only, so migration never drops anything.
func NewDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := AutoMigrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// AutoMigrate creates or updates the schema for all domain models.
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Account{},
		&models.Ticker{},
		&models.Balance{},
		&models.StrategyProfile{},
		&models.TradingSession{},
		&models.Order{},
		&models.Transaction{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return nil
}

// EnsureAccount loads or creates the single account the process trades with,
// refreshing its credentials from configuration.
func EnsureAccount(db *gorm.DB, cfg *config.Bitstamp) (*models.Account, error) {
	account := models.Account{Username: cfg.Username}
	if err := db.FirstOrCreate(&account, models.Account{Username: cfg.Username}).Error; err != nil {
		return nil, fmt.Errorf("failed to ensure account: %w", err)
	}

	account.APIKey = cfg.APIKey
	account.APISecret = cfg.APISecret
	if err := db.Save(&account).Error; err != nil {
		return nil, fmt.Errorf("failed to update account credentials: %w", err)
	}
	return &account, nil
}
