package models

import (
	"time"

	"github.com/google/uuid"
)

// StuffType classifies how an item is listed. It is a closed set; code
// branching on it must switch exhaustively over these constants.
type StuffType string

const (
	StuffTypeMarket   StuffType = "market"
	StuffTypeExchange StuffType = "exchange"
	StuffTypeAuction  StuffType = "auction"
	StuffTypeArchived StuffType = "archived"
)

type StuffStatus int16

const (
	StuffStatusInactive StuffStatus = 0
	StuffStatusActive   StuffStatus = 1
	StuffStatusSold     StuffStatus = 2
)

// Stuff is a listed item: a market sale, a barter exchange, or an auction lot.
type Stuff struct {
	ID             uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	AuthorID       uuid.UUID   `gorm:"type:uuid;not null;index" json:"author_id"`
	Name           string      `gorm:"size:255;not null" json:"name"`
	Description    string      `gorm:"type:text" json:"description"`
	Type           StuffType   `gorm:"size:20;not null;index" json:"type"`
	Status         StuffStatus `gorm:"not null;default:1;index" json:"status"`
	Price          int64       `gorm:"not null;default:0" json:"price"`
	ConditionScore int16       `gorm:"not null;default:0" json:"condition_score"` // 0-100
	Media          string      `gorm:"type:text" json:"media"`                    // comma-joined refs
	Tags           string      `gorm:"type:text" json:"tags"`
	CreatedAt      time.Time   `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time   `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Stuff) TableName() string {
	return "stuffs"
}
