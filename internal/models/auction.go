package models

import (
	"time"

	"github.com/google/uuid"
)

type AuctionStatus string

const (
	AuctionStatusReady     AuctionStatus = "READY"
	AuctionStatusStarted   AuctionStatus = "STARTED"
	AuctionStatusCompleted AuctionStatus = "COMPLETED"
	AuctionStatusCanceled  AuctionStatus = "CANCELED"
	AuctionStatusBlocked   AuctionStatus = "BLOCKED"
)

// Auction is 1:1 with a Stuff of type auction, keyed by the stuff id.
type Auction struct {
	StuffID      uuid.UUID     `gorm:"type:uuid;primaryKey" json:"stuff_id"`
	Status       AuctionStatus `gorm:"size:20;index" json:"status"`
	IsApproved   bool          `gorm:"not null;default:false" json:"is_approved"`
	ApprovedByID *uuid.UUID    `gorm:"type:uuid" json:"approved_by_id"`
	InitialPrice int64         `gorm:"not null" json:"initial_price"`
	StepPrice    int64         `gorm:"not null" json:"step_price"`
	Duration     int           `gorm:"not null" json:"duration"` // minutes
	StartAt      *time.Time    `json:"start_at"`
	ExpireAt     *time.Time    `gorm:"index" json:"expire_at"`
	FinalPrice   *int64        `json:"final_price"`
	WinnerID     *uuid.UUID    `gorm:"type:uuid" json:"winner_id"`
	CreatedAt    time.Time     `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Auction) TableName() string {
	return "auctions"
}

// BiddingHistory is an append-only bid log entry. Rows are never mutated.
type BiddingHistory struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AuctionID uuid.UUID `gorm:"type:uuid;not null;index" json:"auction_id"` // = stuff id
	AuthorID  uuid.UUID `gorm:"type:uuid;not null;index" json:"author_id"`
	BidPrice  int64     `gorm:"not null" json:"bid_price"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

func (BiddingHistory) TableName() string {
	return "bidding_histories"
}
