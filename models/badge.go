package models

import "time"

// BadgeType is a badge definition; triggers are evaluated after ledger updates
type BadgeType struct {
	ID          string `gorm:"primaryKey" json:"id"` // stable code, e.g. "first_bounty"
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	IconURL     string `json:"icon_url"`
	Rarity      string `gorm:"default:'common'" json:"rarity"`
}

// UserBadge links a user to an earned badge
type UserBadge struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ExternalUserID string    `gorm:"index;not null;uniqueIndex:idx_user_badge" json:"external_user_id"`
	BadgeTypeID    string    `gorm:"not null;uniqueIndex:idx_user_badge" json:"badge_type_id"`
	AwardedAt      time.Time `json:"awarded_at" gorm:"autoCreateTime"`
}

// BadgeTrigger defines when a badge is auto-awarded
type BadgeTrigger struct {
	ID        string
	Name      string
	Threshold map[string]int64 // metric → required value
}

// BadgeTriggers are evaluated in order after every points award
var BadgeTriggers = []BadgeTrigger{
	{ID: "first_points", Name: "Getting Started", Threshold: map[string]int64{"points": 1}},
	{ID: "point_collector", Name: "Point Collector", Threshold: map[string]int64{"points": 500}},
	{ID: "first_bounty", Name: "Bounty Hunter", Threshold: map[string]int64{"bounties_completed": 1}},
	{ID: "serial_finisher", Name: "Serial Finisher", Threshold: map[string]int64{"bounties_completed": 5}},
	{ID: "regular", Name: "Regular", Threshold: map[string]int64{"login_days": 7}},
}
