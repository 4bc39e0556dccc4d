package repository

import (
	"context"

	"fxchange/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GetUserByID retrieves a user by ID
func (r *Repository) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser creates a new user
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// AdjustUserPoint applies delta to the user's point balance atomically and
// clamps the result at zero. Returns the persisted balance. The clamp runs
// as a second statement so a concurrent adjustment between read and write
// cannot drive the column negative.
func (r *Repository) AdjustUserPoint(ctx context.Context, userID uuid.UUID, delta int64) (int64, error) {
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("point", gorm.Expr("point + ?", delta)).Error
	if err != nil {
		return 0, err
	}

	err = r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND point < 0", userID).
		UpdateColumn("point", 0).Error
	if err != nil {
		return 0, err
	}

	var balance int64
	err = r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Pluck("point", &balance).Error
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// AdjustUserReputation applies delta to the reputation score, clamps it to
// [40, 100], and blocks the account when the raw result fell below 40.
// Returns the persisted score and whether the user got blocked.
func (r *Repository) AdjustUserReputation(ctx context.Context, userID uuid.UUID, delta int64) (int64, bool, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		return 0, false, err
	}

	raw := user.Reputation + delta
	newScore := raw
	blocked := false
	if newScore > 100 {
		newScore = 100
	}
	if raw < 40 {
		newScore = 40
		blocked = true
	}

	updates := map[string]interface{}{"reputation": newScore}
	if blocked {
		updates["status"] = models.UserStatusBlocked
	}

	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumns(updates).Error
	if err != nil {
		return 0, false, err
	}
	return newScore, blocked, nil
}

// CreatePointHistory appends a point audit record
func (r *Repository) CreatePointHistory(ctx context.Context, h *models.PointHistory) error {
	return r.db.WithContext(ctx).Create(h).Error
}

// GetPointHistoryByUserID retrieves a user's point audit trail, newest first
func (r *Repository) GetPointHistoryByUserID(ctx context.Context, userID uuid.UUID) ([]*models.PointHistory, error) {
	var histories []*models.PointHistory
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&histories).Error
	if err != nil {
		return nil, err
	}
	return histories, nil
}
