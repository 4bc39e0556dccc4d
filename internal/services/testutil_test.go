package services

import (
	"context"
	"testing"

	"fxchange/internal/apperrors"
	"fxchange/internal/models"
	"fxchange/internal/repository"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(
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
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	// The shared in-memory DB survives across tests, clean all tables
	for _, table := range []string{
		"point_histories", "bidding_histories", "transaction_issues",
		"transaction_evidences", "feedbacks", "notifications",
		"transactions", "auctions", "stuffs", "users",
	} {
		db.Exec("DELETE FROM " + table)
	}

	return db
}

func newTestRepo(t *testing.T) *repository.Repository {
	t.Helper()
	return repository.NewRepository(setupTestDB(t))
}

func createTestUser(t *testing.T, repo *repository.Repository, role models.UserRole, point int64) *models.User {
	t.Helper()
	user := &models.User{
		ID:         uuid.New(),
		FullName:   "Test User",
		Email:      uuid.NewString() + "@test.local",
		Phone:      "0123456789",
		Role:       role,
		Status:     models.UserStatusActive,
		Point:      point,
		Reputation: 100,
	}
	if err := repo.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func createTestStuff(t *testing.T, repo *repository.Repository, ownerID uuid.UUID, stuffType models.StuffType, price int64) *models.Stuff {
	t.Helper()
	stuff := &models.Stuff{
		ID:       uuid.New(),
		AuthorID: ownerID,
		Name:     "Test Stuff",
		Type:     stuffType,
		Status:   models.StuffStatusActive,
		Price:    price,
	}
	if err := repo.CreateStuff(context.Background(), stuff); err != nil {
		t.Fatalf("failed to create stuff: %v", err)
	}
	return stuff
}

func setReputation(t *testing.T, repo *repository.Repository, userID uuid.UUID, score int64) {
	t.Helper()
	user, err := repo.GetUserByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("failed to load user: %v", err)
	}
	current := user.Reputation
	if _, _, err := repo.AdjustUserReputation(context.Background(), userID, score-current); err != nil {
		t.Fatalf("failed to set reputation: %v", err)
	}
}

func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %s, got nil", code)
	}
	appErr := apperrors.From(err, nil)
	if appErr == nil {
		t.Fatalf("expected application error %s, got %v", code, err)
	}
	if appErr.Code != code {
		t.Fatalf("expected error code %s, got %s (%s)", code, appErr.Code, appErr.Message)
	}
}

func userPoint(t *testing.T, repo *repository.Repository, userID uuid.UUID) int64 {
	t.Helper()
	user, err := repo.GetUserByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("failed to load user: %v", err)
	}
	return user.Point
}
