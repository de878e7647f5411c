package database

import (
	"fmt"
	"log"

	"flight-markets/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect establishes a connection to the PostgreSQL database
func Connect(dsn string) error {
	var err error

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Error),
		DisableForeignKeyConstraintWhenMigrating: true,
	})

	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Database connection established successfully")
	return nil
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate() error {
	return Migrate(DB)
}

// Migrate runs automatic migrations against the given handle. Tests use it
// with an in-memory database.
func Migrate(db *gorm.DB) error {
	// Core ledger models first
	ledgerModels := []interface{}{
		&models.Account{},
		&models.FundsTransfer{},
		&models.RegistryEntry{},
		&models.ClaimToken{},
		&models.TokenBalance{},
	}

	for _, model := range ledgerModels {
		if err := db.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	// Market models
	marketModels := []interface{}{
		&models.Market{},
		&models.MarketContribution{},
		&models.MarketEvent{},
		&models.OracleRequest{},
	}

	for _, model := range marketModels {
		if err := db.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	// Gateway and auth models
	gatewayModels := []interface{}{
		&models.TrustedSigner{},
		&models.SponsoredBet{},
		&models.User{},
	}

	for _, model := range gatewayModels {
		if err := db.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
