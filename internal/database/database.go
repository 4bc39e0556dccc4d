package database

import (
	"fmt"
	"log"

	"fxchange/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect establishes a connection to the PostgreSQL database
func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Error),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Database connection established successfully")
	return db, nil
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate(db *gorm.DB) error {
	allModels := []interface{}{
		&models.User{},
		&models.PointHistory{},
		&models.Stuff{},
		&models.Auction{},
		&models.BiddingHistory{},
		&models.Transaction{},
		&models.TransactionIssue{},
		&models.TransactionEvidence{},
		&models.Feedback{},
		&models.Notification{},
	}

	for _, model := range allModels {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("migration failed for %T: %w", model, err)
		}
	}

	log.Println("Database migrations completed successfully")
	return nil
}
