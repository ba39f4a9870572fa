package models

import "time"

// EventKind classifies what earned the points
type EventKind string

const (
	EventKindDailyLogin           EventKind = "daily_login"
	EventKindApplicationSubmitted EventKind = "application_submitted"
	EventKindBountyCompleted      EventKind = "bounty_completed"
	EventKindProfileCompleted     EventKind = "profile_completed"
)

// PointValues maps event kinds to the points they award (tunable via config/env later)
var PointValues = map[EventKind]int64{
	EventKindDailyLogin:           1,
	EventKindApplicationSubmitted: 5,
	EventKindBountyCompleted:      100,
	EventKindProfileCompleted:     10,
}

// PointEvent is an immutable, append-only ledger record. CorrelationID
// uniquely identifies the business event that earned the points
// (e.g. "application:<id>:completed"); the unique index is what makes award
// operations idempotent under retry — a duplicate append is rejected by the
// store, never by caller-side checks.
type PointEvent struct {
	ID             string    `gorm:"primaryKey" json:"id"`
	ExternalUserID string    `gorm:"index;not null" json:"external_user_id"`
	Points         int64     `gorm:"not null" json:"points"`
	EventKind      EventKind `gorm:"type:varchar(32);not null;index" json:"event_kind"`
	CorrelationID  string    `gorm:"uniqueIndex;not null" json:"correlation_id"`
	Metadata       string    `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
}
