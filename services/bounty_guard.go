package services

import (
	"errors"
	"log"
	"time"

	"bounty-market-system/models"

	"gorm.io/gorm"
)

// BountyGuardService owns every Bounty status mutation. All writes are
// conditional on the read-time status (WHERE id = ? AND status = ?), so two
// concurrent actors racing for the same transition see exactly one winner —
// the loser gets a ConflictError, never a silent double-apply.
type BountyGuardService struct {
	DB  *gorm.DB
	Bus *EventBus
}

func NewBountyGuardService(db *gorm.DB, bus *EventBus) *BountyGuardService {
	return &BountyGuardService{DB: db, Bus: bus}
}

// GetBounty loads a bounty by id.
func (s *BountyGuardService) GetBounty(bountyID string) (*models.Bounty, error) {
	var bounty models.Bounty
	err := s.DB.Where("id = ?", bountyID).First(&bounty).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &bounty, nil
}

// AssignWithinTx moves a bounty open → in_progress and records the worker.
// The status condition in the UPDATE is the accept race's arbiter: if another
// accept (or a cancel/sweep) got there first, zero rows match and the whole
// surrounding transaction rolls back with Conflict.
func (s *BountyGuardService) AssignWithinTx(tx *gorm.DB, bountyID, applicantID string) error {
	res := tx.Model(&models.Bounty{}).
		Where("id = ? AND status = ?", bountyID, models.BountyStatusOpen).
		Updates(map[string]interface{}{
			"assigned_to": applicantID,
			"status":      models.BountyStatusInProgress,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return conflictErr("bounty %s is no longer open", bountyID)
	}
	return nil
}

// CompleteWithinTx moves a bounty in_progress → completed. AssignedTo stays
// set: completed bounties keep their worker for audit.
func (s *BountyGuardService) CompleteWithinTx(tx *gorm.DB, bountyID string) error {
	res := tx.Model(&models.Bounty{}).
		Where("id = ? AND status = ?", bountyID, models.BountyStatusInProgress).
		Update("status", models.BountyStatusCompleted)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return conflictErr("bounty %s is not in progress", bountyID)
	}
	return nil
}

// CancelWithinTx moves a bounty in_progress → cancelled and clears the
// assignment (a cancelled bounty has no active worker).
func (s *BountyGuardService) CancelWithinTx(tx *gorm.DB, bountyID string) error {
	res := tx.Model(&models.Bounty{}).
		Where("id = ? AND status = ?", bountyID, models.BountyStatusInProgress).
		Updates(map[string]interface{}{
			"assigned_to": nil,
			"status":      models.BountyStatusCancelled,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return conflictErr("bounty %s is not in progress", bountyID)
	}
	return nil
}

// ReopenWithinTx returns a bounty to the open pool after its accepted worker
// withdraws.
func (s *BountyGuardService) ReopenWithinTx(tx *gorm.DB, bountyID string) error {
	res := tx.Model(&models.Bounty{}).
		Where("id = ? AND status = ?", bountyID, models.BountyStatusInProgress).
		Updates(map[string]interface{}{
			"assigned_to": nil,
			"status":      models.BountyStatusOpen,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return conflictErr("bounty %s is not in progress", bountyID)
	}
	return nil
}

// CancelOpenBounty lets the owner cancel a bounty that was never assigned.
func (s *BountyGuardService) CancelOpenBounty(bountyID, actorID string) (*models.Bounty, error) {
	bounty, err := s.GetBounty(bountyID)
	if err != nil {
		return nil, err
	}
	if bounty.PostedBy != actorID {
		return nil, validationErr("only the bounty owner may cancel it")
	}

	res := s.DB.Model(&models.Bounty{}).
		Where("id = ? AND status = ?", bountyID, models.BountyStatusOpen).
		Update("status", models.BountyStatusCancelled)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, conflictErr("bounty %s is no longer open", bountyID)
	}
	return s.GetBounty(bountyID)
}

// SweepExpiredBounties expires every open bounty whose deadline has passed.
// One idempotent UPDATE: re-running the sweep matches nothing, and bounties
// already in_progress/completed/cancelled are never touched even past
// deadline. Returns how many bounties were expired in this pass.
func (s *BountyGuardService) SweepExpiredBounties(now time.Time) (int64, error) {
	res := s.DB.Model(&models.Bounty{}).
		Where("status = ? AND deadline IS NOT NULL AND deadline < ?", models.BountyStatusOpen, now).
		Update("status", models.BountyStatusExpired)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		log.Printf("[Sweep] Expired %d overdue bounties", res.RowsAffected)
	}
	return res.RowsAffected, nil
}
