package services

import (
	"context"
	"fmt"
	"net/http"

	"fxchange/internal/apperrors"
	"fxchange/internal/models"
	"fxchange/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	reputationAward   = 3
	reputationPenalty = 5
)

type UserService struct {
	repo *repository.Repository
}

func NewUserService(repo *repository.Repository) *UserService {
	return &UserService{repo: repo}
}

// GetByID retrieves a user by ID
func (us *UserService) GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := us.repo.GetUserByID(ctx, userID)
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.NotFound("USER_NOT_EXIST", "User not exists")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetPointHistory retrieves a user's point audit trail
func (us *UserService) GetPointHistory(ctx context.Context, userID uuid.UUID) ([]*models.PointHistory, error) {
	return us.repo.GetPointHistoryByUserID(ctx, userID)
}

// requireMod fails unless the caller is a moderator or admin.
func requireMod(ctx context.Context, repo *repository.Repository, uid uuid.UUID) (*models.User, error) {
	user, err := repo.GetUserByID(ctx, uid)
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.NotFound("USER_NOT_EXIST", "User not exists")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !user.IsMod() {
		return nil, apperrors.New(http.StatusForbidden, "INVALID_ACTION", "Invalid action")
	}
	return user, nil
}

// adjustPoints applies a balance delta (clamped at zero) and appends the
// paired audit record. Must run on a transaction-scoped repository when part
// of a settlement.
func adjustPoints(ctx context.Context, repo *repository.Repository, userID uuid.UUID, delta int64, note string) (int64, error) {
	balance, err := repo.AdjustUserPoint(ctx, userID, delta)
	if err != nil {
		return 0, fmt.Errorf("failed to adjust points: %w", err)
	}
	history := &models.PointHistory{
		UserID:  userID,
		Change:  balance,
		Content: note,
	}
	if err := repo.CreatePointHistory(ctx, history); err != nil {
		return 0, fmt.Errorf("failed to append point history: %w", err)
	}
	return balance, nil
}

// plusReputation awards fulfillment reputation, capped at 100.
func plusReputation(ctx context.Context, repo *repository.Repository, userID uuid.UUID) error {
	_, _, err := repo.AdjustUserReputation(ctx, userID, reputationAward)
	return err
}

// reduceReputation applies the cancellation reputation penalty. The score
// floors at 40; crossing below it blocks the account.
func reduceReputation(ctx context.Context, repo *repository.Repository, userID uuid.UUID) error {
	_, _, err := repo.AdjustUserReputation(ctx, userID, -reputationPenalty)
	return err
}
