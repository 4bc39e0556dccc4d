package repository

import (
	"context"

	"fxchange/internal/models"

	"github.com/google/uuid"
)

// GetStuffByID retrieves a stuff by ID
func (r *Repository) GetStuffByID(ctx context.Context, stuffID uuid.UUID) (*models.Stuff, error) {
	var stuff models.Stuff
	err := r.db.WithContext(ctx).Where("id = ?", stuffID).First(&stuff).Error
	if err != nil {
		return nil, err
	}
	return &stuff, nil
}

// CreateStuff creates a new stuff
func (r *Repository) CreateStuff(ctx context.Context, stuff *models.Stuff) error {
	return r.db.WithContext(ctx).Create(stuff).Error
}

// UpdateStuffStatus flips a stuff's lifecycle status
func (r *Repository) UpdateStuffStatus(ctx context.Context, stuffID uuid.UUID, status models.StuffStatus) error {
	return r.db.WithContext(ctx).Model(&models.Stuff{}).
		Where("id = ?", stuffID).
		UpdateColumn("status", status).Error
}

// UpdateStuffSold marks a stuff sold and records the closing price
func (r *Repository) UpdateStuffSold(ctx context.Context, stuffID uuid.UUID, price int64) error {
	return r.db.WithContext(ctx).Model(&models.Stuff{}).
		Where("id = ?", stuffID).
		UpdateColumns(map[string]interface{}{
			"status": models.StuffStatusSold,
			"price":  price,
		}).Error
}
