package models

import (
	"time"

	"gorm.io/gorm"
)

// UserRole determines which side of the marketplace a user acts on
type UserRole string

const (
	RoleCreator      UserRole = "creator"
	RoleBountyPoster UserRole = "bounty_poster"
	RoleBoth         UserRole = "both"
)

// CanApply reports whether the role may submit applications to bounties.
func (r UserRole) CanApply() bool {
	return r == RoleCreator || r == RoleBoth
}

// CanPost reports whether the role may own bounties (and review applications).
func (r UserRole) CanPost() bool {
	return r == RoleBountyPoster || r == RoleBoth
}

// MarketUser is a local snapshot of user data needed by the marketplace.
// Owned and managed solely by this service; populated via sync worker from
// the Profile Service's user table. Points is the source of truth for the
// leaderboard — LeaderboardEntry is only a derived projection of it.
type MarketUser struct {
	ID                string   `gorm:"primaryKey" json:"id"`
	ExternalUserID    string   `gorm:"uniqueIndex;not null" json:"external_user_id"` // The profile service's UUID
	Username          string   `gorm:"index;not null" json:"username"`
	Email             string   `json:"email,omitempty"`
	Role              UserRole `gorm:"type:varchar(16);not null;default:'creator'" json:"role"`
	ProfilePictureURL *string  `json:"profile_picture_url,omitempty"`
	Bio               *string  `json:"bio,omitempty"`

	// Reward ledger balance (mutated only inside LedgerService transactions)
	Points int64 `json:"points" gorm:"default:0;index"`

	// Date granularity — gates the daily login award
	LastLoginDate *time.Time `json:"last_login_date,omitempty"`

	ProfileCompleted bool `json:"profile_completed" gorm:"default:false"`
	IsBanned         bool `json:"is_banned" gorm:"default:false"` // local marketplace ban

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
