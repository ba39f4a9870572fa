package models

import (
	"time"

	"github.com/gosimple/slug"
)

// BountyStatus is the publishing/assignment state of a bounty
type BountyStatus string

const (
	BountyStatusOpen       BountyStatus = "open"
	BountyStatusInProgress BountyStatus = "in_progress"
	BountyStatusCompleted  BountyStatus = "completed"
	BountyStatusCancelled  BountyStatus = "cancelled"
	BountyStatusExpired    BountyStatus = "expired"
)

// Terminal reports whether no further status transitions are possible.
func (s BountyStatus) Terminal() bool {
	return s == BountyStatusCompleted || s == BountyStatusCancelled || s == BountyStatusExpired
}

// Bounty represents a funded task posted by a bounty poster.
//
// Status never changes through direct field assignment outside the
// BountyGuardService — assignment, completion, cancellation and expiry all go
// through the guard so the AssignedTo/Status invariant holds:
// AssignedTo is non-nil iff Status is in_progress or completed.
type Bounty struct {
	ID          string       `gorm:"primaryKey" json:"id"`
	Title       string       `gorm:"not null" json:"title"`
	Slug        string       `gorm:"index" json:"slug"`
	Description string       `gorm:"type:text" json:"description"`
	PostedBy    string       `gorm:"index;not null" json:"posted_by"` // ExternalUserID, immutable
	AssignedTo  *string      `gorm:"index" json:"assigned_to,omitempty"`
	Status      BountyStatus `gorm:"type:varchar(16);not null;default:'open';index" json:"status"`

	RewardAmount float64    `json:"reward_amount" gorm:"default:0"`
	Deadline     *time.Time `json:"deadline,omitempty" gorm:"index"`

	// Denormalized for listing pages, maintained by ApplicationService
	ApplicationCount int64 `json:"application_count" gorm:"default:0"`

	Timestamps
}

// MakeSlug derives the URL slug from the title.
func (b *Bounty) MakeSlug() {
	b.Slug = slug.Make(b.Title)
}
