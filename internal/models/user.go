package models

import (
	"time"

	"github.com/google/uuid"
)

type UserRole int16

const (
	RoleMember    UserRole = 0
	RoleModerator UserRole = 1
	RoleAdmin     UserRole = 2
)

type UserStatus int16

const (
	UserStatusBlocked UserStatus = 0
	UserStatusActive  UserStatus = 1
)

// User represents a platform member together with their point balance and
// reputation score. Point and Reputation are mutated only through the
// settlement paths; every point change is paired with a PointHistory row.
type User struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	FullName   string     `gorm:"size:255;not null" json:"full_name"`
	Email      string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Phone      string     `gorm:"size:30" json:"phone"`
	Role       UserRole   `gorm:"not null;default:0" json:"role"`
	Status     UserStatus `gorm:"not null;default:1" json:"status"`
	Point      int64      `gorm:"not null;default:0" json:"point"`
	Reputation int64      `gorm:"not null;default:100" json:"reputation"`
	CreatedAt  time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// IsMod reports whether the user holds moderator or admin privileges.
func (u *User) IsMod() bool {
	return u.Role == RoleModerator || u.Role == RoleAdmin
}

// PointHistory is an append-only audit record of a user's balance after a
// settlement-driven change.
type PointHistory struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Change    int64     `gorm:"not null" json:"change"`
	Content   string    `gorm:"type:text" json:"content"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

func (PointHistory) TableName() string {
	return "point_histories"
}
