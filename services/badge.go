package services

import (
	"fmt"

	"bounty-market-system/models"

	"gorm.io/gorm"
)

type BadgeService struct {
	DB *gorm.DB
}

func NewBadgeService(db *gorm.DB) *BadgeService {
	return &BadgeService{DB: db}
}

// AutoAwardBadges checks all badge triggers for a user after a ledger update
func (s *BadgeService) AutoAwardBadges(externalUserID string) error {
	var user models.MarketUser
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&user).Error; err != nil {
		return err
	}

	var bountiesCompleted, loginDays int64
	s.DB.Model(&models.PointEvent{}).
		Where("external_user_id = ? AND event_kind = ?", externalUserID, models.EventKindBountyCompleted).
		Count(&bountiesCompleted)
	s.DB.Model(&models.PointEvent{}).
		Where("external_user_id = ? AND event_kind = ?", externalUserID, models.EventKindDailyLogin).
		Count(&loginDays)

	metrics := map[string]int64{
		"points":             user.Points,
		"bounties_completed": bountiesCompleted,
		"login_days":         loginDays,
	}

	for _, trigger := range models.BadgeTriggers {
		if !meetsThreshold(metrics, trigger.Threshold) {
			continue
		}
		// Check if already awarded
		var count int64
		s.DB.Model(&models.UserBadge{}).
			Where("external_user_id = ? AND badge_type_id = ?", externalUserID, trigger.ID).
			Count(&count)
		if count == 0 {
			userBadge := models.UserBadge{
				ExternalUserID: externalUserID,
				BadgeTypeID:    trigger.ID,
			}
			if err := s.DB.Create(&userBadge).Error; err != nil {
				return err
			}
			fmt.Printf("🎖️ Badge awarded: %s → %s\n", trigger.Name, externalUserID)
		}
	}
	return nil
}

func meetsThreshold(metrics, req map[string]int64) bool {
	for key, required := range req {
		if metrics[key] < required {
			return false
		}
	}
	return true
}

// GetUserBadges lists the badges a user has earned.
func (s *BadgeService) GetUserBadges(externalUserID string) ([]models.UserBadge, error) {
	var badges []models.UserBadge
	err := s.DB.Where("external_user_id = ?", externalUserID).
		Order("awarded_at ASC").
		Find(&badges).Error
	return badges, err
}
