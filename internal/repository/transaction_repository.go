package repository

import (
	"context"
	"time"

	"fxchange/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateTransaction creates a new transaction
func (r *Repository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

// GetTransactionByID retrieves a transaction by ID
func (r *Repository) GetTransactionByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&tx).Error
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetTransactionByStuffID retrieves the latest transaction claiming a stuff
func (r *Repository) GetTransactionByStuffID(ctx context.Context, stuffID uuid.UUID) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.WithContext(ctx).
		Where("stuff_id = ?", stuffID).
		Order("created_at DESC").
		First(&tx).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetTransactionsByUserID retrieves all transactions a user participates in,
// most recently updated first
func (r *Repository) GetTransactionsByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error) {
	var txs []*models.Transaction
	err := r.db.WithContext(ctx).
		Where("stuff_owner_id = ? OR customer_id = ?", userID, userID).
		Order("updated_at DESC").
		Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return txs, nil
}

// GetTransactionsByPickup retrieves transactions filtered on the pickup
// flag; a nil filter returns everything
func (r *Repository) GetTransactionsByPickup(ctx context.Context, isPickup *bool) ([]*models.Transaction, error) {
	q := r.db.WithContext(ctx).Order("updated_at DESC")
	if isPickup != nil {
		q = q.Where("is_pickup = ?", *isPickup)
	}

	var txs []*models.Transaction
	if err := q.Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

// UpdateTransaction updates a transaction
func (r *Repository) UpdateTransaction(ctx context.Context, tx *models.Transaction) error {
	return r.db.WithContext(ctx).Save(tx).Error
}

// GetTransactionsExpiringBetween retrieves unsettled transactions whose
// deadline falls inside (from, to)
func (r *Repository) GetTransactionsExpiringBetween(ctx context.Context, from, to time.Time) ([]*models.Transaction, error) {
	var txs []*models.Transaction
	err := r.db.WithContext(ctx).
		Where("expire_at > ? AND expire_at < ? AND status IN ?", from, to,
			[]models.TransactionStatus{
				models.TransactionStatusPending,
				models.TransactionStatusOngoing,
				models.TransactionStatusWait,
			}).
		Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return txs, nil
}

// CompleteExpiredNonPickup bulk-transitions expired non-pickup ONGOING
// transactions to COMPLETED and returns the affected count
func (r *Repository) CompleteExpiredNonPickup(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("expire_at < ? AND status = ? AND is_pickup = ?", now, models.TransactionStatusOngoing, false).
		UpdateColumn("status", models.TransactionStatusCompleted)
	return res.RowsAffected, res.Error
}

// CreateTransactionIssue creates a transaction issue
func (r *Repository) CreateTransactionIssue(ctx context.Context, issue *models.TransactionIssue) error {
	return r.db.WithContext(ctx).Create(issue).Error
}

// GetTransactionIssueByID retrieves an issue by ID
func (r *Repository) GetTransactionIssueByID(ctx context.Context, id uuid.UUID) (*models.TransactionIssue, error) {
	var issue models.TransactionIssue
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&issue).Error
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

// GetIssuesByTransactionID retrieves all issues raised against a transaction
func (r *Repository) GetIssuesByTransactionID(ctx context.Context, transactionID uuid.UUID) ([]*models.TransactionIssue, error) {
	var issues []*models.TransactionIssue
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Find(&issues).Error
	if err != nil {
		return nil, err
	}
	return issues, nil
}

// HasTransactionIssue reports whether any issue exists for a transaction
func (r *Repository) HasTransactionIssue(ctx context.Context, transactionID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.TransactionIssue{}).
		Where("transaction_id = ?", transactionID).
		Count(&count).Error
	return count > 0, err
}

// UpdateTransactionIssue updates an issue
func (r *Repository) UpdateTransactionIssue(ctx context.Context, issue *models.TransactionIssue) error {
	return r.db.WithContext(ctx).Save(issue).Error
}

// CreateTransactionEvidence stores a moderator evidence record
func (r *Repository) CreateTransactionEvidence(ctx context.Context, ev *models.TransactionEvidence) error {
	return r.db.WithContext(ctx).Create(ev).Error
}

// HasTransactionEvidence reports whether evidence exists for a transaction
func (r *Repository) HasTransactionEvidence(ctx context.Context, transactionID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.TransactionEvidence{}).
		Where("transaction_id = ?", transactionID).
		Count(&count).Error
	return count > 0, err
}

// CreateFeedback creates a post-completion feedback placeholder
func (r *Repository) CreateFeedback(ctx context.Context, fb *models.Feedback) error {
	return r.db.WithContext(ctx).Create(fb).Error
}

// CreateNotification persists a notification record
func (r *Repository) CreateNotification(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}
