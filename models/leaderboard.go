package models

import "time"

// LeaderboardEntry is a derived snapshot of MarketUser.Points in rank order.
// Recomputed by the snapshot refresh job — never the source of truth.
type LeaderboardEntry struct {
	ID             string    `gorm:"primaryKey" json:"id"`
	ExternalUserID string    `gorm:"uniqueIndex;not null" json:"external_user_id"`
	Username       string    `json:"username"`
	Rank           int       `gorm:"index;not null" json:"rank"`
	Points         int64     `gorm:"not null" json:"points"`
	RefreshedAt    time.Time `json:"refreshed_at"`
}
