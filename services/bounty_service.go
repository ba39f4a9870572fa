package services

import (
	"errors"
	"time"

	"bounty-market-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BountyService covers bounty CRUD around the guarded lifecycle. Creation and
// deletion live here; every status mutation goes through BountyGuardService.
type BountyService struct {
	DB    *gorm.DB
	Users *UserService
}

func NewBountyService(db *gorm.DB, users *UserService) *BountyService {
	return &BountyService{DB: db, Users: users}
}

// CreateBounty posts a new open bounty.
func (s *BountyService) CreateBounty(posterID, title, description string, rewardAmount float64, deadline *time.Time) (*models.Bounty, error) {
	if _, err := s.Users.RequireRole(posterID, models.UserRole.CanPost, "post bounties"); err != nil {
		return nil, err
	}
	if title == "" {
		return nil, validationErr("title is required")
	}
	if rewardAmount < 0 {
		return nil, validationErr("reward amount must not be negative")
	}
	if deadline != nil && deadline.Before(time.Now()) {
		return nil, validationErr("deadline must be in the future")
	}

	bounty := models.Bounty{
		ID:           uuid.NewString(),
		Title:        title,
		Description:  description,
		PostedBy:     posterID,
		Status:       models.BountyStatusOpen,
		RewardAmount: rewardAmount,
		Deadline:     deadline,
	}
	bounty.MakeSlug()

	if err := s.DB.Create(&bounty).Error; err != nil {
		return nil, err
	}
	return &bounty, nil
}

// ListOpenBounties returns open bounties for the public listing, newest first.
func (s *BountyService) ListOpenBounties(limit, offset int) ([]models.Bounty, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	var bounties []models.Bounty
	err := s.DB.Where("status = ?", models.BountyStatusOpen).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&bounties).Error
	return bounties, err
}

// ListByPoster returns every bounty a user owns.
func (s *BountyService) ListByPoster(posterID string) ([]models.Bounty, error) {
	var bounties []models.Bounty
	err := s.DB.Where("posted_by = ?", posterID).
		Order("created_at DESC").
		Find(&bounties).Error
	return bounties, err
}

// DeleteBounty removes a bounty. Assigned or finished bounties are retained
// for audit — delete is permitted only while open or cancelled.
func (s *BountyService) DeleteBounty(bountyID, actorID string) error {
	var bounty models.Bounty
	err := s.DB.Where("id = ?", bountyID).First(&bounty).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if bounty.PostedBy != actorID {
		return validationErr("only the bounty owner may delete it")
	}

	res := s.DB.Where("id = ? AND status IN ?", bountyID,
		[]models.BountyStatus{models.BountyStatusOpen, models.BountyStatusCancelled}).
		Delete(&models.Bounty{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return conflictErr("bounty %s can no longer be deleted", bountyID)
	}
	return nil
}
