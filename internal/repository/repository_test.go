package repository

import (
	"context"
	"testing"
	"time"

	"fxchange/internal/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	db.Exec("DELETE FROM users")
	return NewRepository(db)
}

func TestInTxScopesContext(t *testing.T) {
	repo := setupTestRepo(t)

	err := repo.InTx(context.Background(), time.Second, func(ctx context.Context, txRepo *Repository) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("expected a deadline on the transaction context")
		}
		return txRepo.CreateUser(ctx, &models.User{
			ID:       uuid.New(),
			FullName: "Tx User",
			Email:    uuid.NewString() + "@test.local",
		})
	})
	if err != nil {
		t.Fatalf("InTx failed: %v", err)
	}
}

func TestInTxHonorsCanceledContext(t *testing.T) {
	repo := setupTestRepo(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.InTx(ctx, time.Second, func(ctx context.Context, txRepo *Repository) error {
		return txRepo.CreateUser(ctx, &models.User{
			ID:       uuid.New(),
			FullName: "Should Not Exist",
			Email:    uuid.NewString() + "@test.local",
		})
	})
	if err == nil {
		t.Fatal("expected an error from the canceled context")
	}

	var count int64
	repo.DB().Model(&models.User{}).Where("full_name = ?", "Should Not Exist").Count(&count)
	if count != 0 {
		t.Errorf("expected no rows persisted, got %d", count)
	}
}
