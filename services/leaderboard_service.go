package services

import (
	"errors"
	"log"
	"time"

	"bounty-market-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LeaderboardService derives rank order from MarketUser.Points. Everything
// here is a projection — points never flow back from the leaderboard.
type LeaderboardService struct {
	DB *gorm.DB
}

func NewLeaderboardService(db *gorm.DB) *LeaderboardService {
	return &LeaderboardService{DB: db}
}

// eligible scopes leaderboard queries: creators with a positive balance.
// Ordering is points desc, account age asc, id asc — fully deterministic, so
// no two users can report the same rank for one snapshot.
func (s *LeaderboardService) eligible(db *gorm.DB) *gorm.DB {
	return db.Model(&models.MarketUser{}).
		Where("points > 0 AND is_banned = ? AND role IN ?", false,
			[]models.UserRole{models.RoleCreator, models.RoleBoth})
}

// Rank returns the 1-based leaderboard position of a user, or ErrNotFound if
// the user is absent or not ranked (zero points, wrong role, banned).
func (s *LeaderboardService) Rank(externalUserID string) (int, error) {
	var user models.MarketUser
	err := s.DB.Where("external_user_id = ?", externalUserID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	if user.Points <= 0 || user.IsBanned || !user.Role.CanApply() {
		return 0, ErrNotFound
	}

	var ahead int64
	err = s.eligible(s.DB).
		Where("points > ? OR (points = ? AND created_at < ?) OR (points = ? AND created_at = ? AND id < ?)",
			user.Points, user.Points, user.CreatedAt, user.Points, user.CreatedAt, user.ID).
		Count(&ahead).Error
	if err != nil {
		return 0, err
	}
	return int(ahead) + 1, nil
}

// Top returns the first n ranked users.
func (s *LeaderboardService) Top(n int) ([]models.MarketUser, error) {
	if n < 1 || n > 100 {
		n = 10
	}
	var users []models.MarketUser
	err := s.eligible(s.DB).
		Order("points DESC, created_at ASC, id ASC").
		Limit(n).
		Find(&users).Error
	return users, err
}

// RefreshSnapshot rebuilds the persisted LeaderboardEntry projection for the
// public board. Replaces the whole table in one transaction so readers never
// see a half-written ranking.
func (s *LeaderboardService) RefreshSnapshot() (int, error) {
	var users []models.MarketUser
	if err := s.eligible(s.DB).
		Order("points DESC, created_at ASC, id ASC").
		Find(&users).Error; err != nil {
		return 0, err
	}

	now := time.Now()
	entries := make([]models.LeaderboardEntry, len(users))
	for i, u := range users {
		entries[i] = models.LeaderboardEntry{
			ID:             uuid.NewString(),
			ExternalUserID: u.ExternalUserID,
			Username:       u.Username,
			Rank:           i + 1,
			Points:         u.Points,
			RefreshedAt:    now,
		}
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.LeaderboardEntry{}).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		return tx.Create(&entries).Error
	})
	if err != nil {
		return 0, err
	}

	log.Printf("[Leaderboard] Snapshot refreshed: %d ranked users", len(entries))
	return len(entries), nil
}

// GetSnapshot pages through the persisted projection.
func (s *LeaderboardService) GetSnapshot(limit, offset int) ([]models.LeaderboardEntry, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	var entries []models.LeaderboardEntry
	err := s.DB.Order("rank ASC").
		Limit(limit).Offset(offset).
		Find(&entries).Error
	return entries, err
}
