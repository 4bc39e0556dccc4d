package repository

import (
	"context"
	"time"

	"fxchange/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateAuction creates a new auction
func (r *Repository) CreateAuction(ctx context.Context, auction *models.Auction) error {
	return r.db.WithContext(ctx).Create(auction).Error
}

// GetAuctionByStuffID retrieves an auction by its stuff ID
func (r *Repository) GetAuctionByStuffID(ctx context.Context, stuffID uuid.UUID) (*models.Auction, error) {
	var auction models.Auction
	err := r.db.WithContext(ctx).Where("stuff_id = ?", stuffID).First(&auction).Error
	if err != nil {
		return nil, err
	}
	return &auction, nil
}

// UpdateAuction updates an auction
func (r *Repository) UpdateAuction(ctx context.Context, auction *models.Auction) error {
	return r.db.WithContext(ctx).Save(auction).Error
}

// GetAuctions retrieves auctions, optionally filtered by approval state,
// newest first
func (r *Repository) GetAuctions(ctx context.Context, isApproved *bool) ([]*models.Auction, error) {
	q := r.db.WithContext(ctx).Order("updated_at DESC")
	if isApproved != nil {
		q = q.Where("is_approved = ?", *isApproved)
	}

	var auctions []*models.Auction
	if err := q.Find(&auctions).Error; err != nil {
		return nil, err
	}
	return auctions, nil
}

// GetAvailableAuctions retrieves approved READY/STARTED auctions whose stuff
// is still active
func (r *Repository) GetAvailableAuctions(ctx context.Context) ([]*models.Auction, error) {
	var auctions []*models.Auction
	err := r.db.WithContext(ctx).
		Joins("JOIN stuffs ON stuffs.id = auctions.stuff_id").
		Where("auctions.is_approved = ? AND auctions.status IN ? AND stuffs.status = ?",
			true,
			[]models.AuctionStatus{models.AuctionStatusReady, models.AuctionStatusStarted},
			models.StuffStatusActive).
		Order("auctions.updated_at DESC").
		Find(&auctions).Error
	if err != nil {
		return nil, err
	}
	return auctions, nil
}

// GetExpiredStartedAuctions retrieves STARTED auctions whose expiry has
// passed, oldest first
func (r *Repository) GetExpiredStartedAuctions(ctx context.Context, now time.Time, limit int) ([]*models.Auction, error) {
	var auctions []*models.Auction
	err := r.db.WithContext(ctx).
		Where("status = ? AND expire_at IS NOT NULL AND expire_at < ?", models.AuctionStatusStarted, now).
		Order("expire_at ASC").
		Limit(limit).
		Find(&auctions).Error
	if err != nil {
		return nil, err
	}
	return auctions, nil
}

// CreateBid appends a bidding history row
func (r *Repository) CreateBid(ctx context.Context, bid *models.BiddingHistory) error {
	return r.db.WithContext(ctx).Create(bid).Error
}

// GetLastBid retrieves the most recent bid on an auction, or nil when the
// auction has no bids yet
func (r *Repository) GetLastBid(ctx context.Context, auctionID uuid.UUID) (*models.BiddingHistory, error) {
	var bid models.BiddingHistory
	err := r.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Order("created_at DESC").
		First(&bid).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

// GetBiddingHistory retrieves all bids on an auction, newest first
func (r *Repository) GetBiddingHistory(ctx context.Context, auctionID uuid.UUID) ([]*models.BiddingHistory, error) {
	var bids []*models.BiddingHistory
	err := r.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Order("created_at DESC").
		Find(&bids).Error
	if err != nil {
		return nil, err
	}
	return bids, nil
}
