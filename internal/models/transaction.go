package models

import (
	"time"

	"github.com/google/uuid"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusOngoing   TransactionStatus = "ONGOING"
	TransactionStatusWait      TransactionStatus = "WAIT"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusCanceled  TransactionStatus = "CANCELED"
)

// IsTerminal reports whether no further lifecycle transition is allowed.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusCanceled
}

// Transaction settles a sale or exchange of a stuff. Exactly one
// non-canceled transaction exists per stuff at a time.
type Transaction struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	StuffID         uuid.UUID         `gorm:"type:uuid;not null;index" json:"stuff_id"`
	ExchangeStuffID *uuid.UUID        `gorm:"type:uuid;index" json:"exchange_stuff_id"`
	CustomerID      uuid.UUID         `gorm:"type:uuid;not null;index" json:"customer_id"`
	StuffOwnerID    uuid.UUID         `gorm:"type:uuid;not null;index" json:"stuff_owner_id"`
	Amount          int64             `gorm:"not null;default:0" json:"amount"`
	IsPickup        bool              `gorm:"not null;default:false" json:"is_pickup"`
	Status          TransactionStatus `gorm:"size:20;not null;index" json:"status"`
	ExpireAt        *time.Time        `gorm:"index" json:"expire_at"`
	CreatedAt       time.Time         `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"default:CURRENT_TIMESTAMP;index" json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// TransactionIssue records a dispute or missed deadline raised against a
// transaction, either by a party requesting cancellation or by a moderator.
type TransactionIssue struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TransactionID uuid.UUID  `gorm:"type:uuid;not null;index" json:"transaction_id"`
	ModID         *uuid.UUID `gorm:"type:uuid" json:"mod_id"`
	IssueOwnerID  *uuid.UUID `gorm:"type:uuid" json:"issue_owner_id"`
	Issue         string     `gorm:"type:text" json:"issue"`
	IssueTagUser  *uuid.UUID `gorm:"type:uuid" json:"issue_tag_user"` // party at fault
	IsSolved      bool       `gorm:"not null;default:false" json:"is_solved"`
	IssueSolved   bool       `gorm:"not null;default:false" json:"issue_solved"` // outcome flag
	CreatedAt     time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (TransactionIssue) TableName() string {
	return "transaction_issues"
}

// TransactionEvidence stores moderator-uploaded media refs proving a deposit
// or pickup step.
type TransactionEvidence struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TransactionID uuid.UUID `gorm:"type:uuid;not null;index" json:"transaction_id"`
	AuthorID      uuid.UUID `gorm:"type:uuid;not null" json:"author_id"`
	Media         string    `gorm:"type:text" json:"media"`
	CreatedAt     time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (TransactionEvidence) TableName() string {
	return "transaction_evidences"
}

// Feedback is a post-completion rating placeholder created when a
// transaction completes.
type Feedback struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TransactionID uuid.UUID `gorm:"type:uuid;not null;index" json:"transaction_id"`
	AuthorID      uuid.UUID `gorm:"type:uuid;not null;index" json:"author_id"`
	Rating        *int16    `json:"rating"`
	Content       string    `gorm:"type:text" json:"content"`
	CreatedAt     time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Feedback) TableName() string {
	return "feedbacks"
}

// Notification is the persisted copy of a realtime notification.
type Notification struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	ActorID   uuid.UUID `gorm:"type:uuid;not null" json:"actor_id"`
	TargetID  string    `gorm:"size:64" json:"target_id"`
	Type      string    `gorm:"size:30;not null" json:"type"`
	Receivers string    `gorm:"type:text" json:"receivers"` // comma-joined user ids
	ForMod    bool      `gorm:"not null;default:false" json:"for_moderator"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
