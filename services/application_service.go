package services

import (
	"errors"
	"time"

	"bounty-market-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// transitionTable is the single source of truth for legal state machine
// moves: event → states it may be fired from. Everything else is an
// InvalidTransitionError.
var transitionTable = map[models.ApplicationEvent][]models.ApplicationStatus{
	models.EventShortlist: {models.ApplicationStatusPending},
	models.EventAccept:    {models.ApplicationStatusPending, models.ApplicationStatusShortlisted},
	models.EventReject:    {models.ApplicationStatusPending, models.ApplicationStatusShortlisted},
	models.EventWithdraw:  {models.ApplicationStatusPending, models.ApplicationStatusShortlisted, models.ApplicationStatusAccepted},
	models.EventSubmit:    {models.ApplicationStatusAccepted},
	models.EventApprove:   {models.ApplicationStatusSubmitted},
	models.EventDeny:      {models.ApplicationStatusSubmitted},
}

func eventAllowedFrom(event models.ApplicationEvent, status models.ApplicationStatus) bool {
	for _, s := range transitionTable[event] {
		if s == status {
			return true
		}
	}
	return false
}

// RejectedFeedbackOnAccept is written to sibling applications when one is accepted.
const RejectedFeedbackOnAccept = "another applicant was selected"

// TransitionPayload carries the optional data a transition event can attach.
type TransitionPayload struct {
	Feedback       string  `json:"feedback"`
	SubmissionData string  `json:"submission_data"`
	SubmissionURL  *string `json:"submission_url"`
}

// ApplicationService is the application state machine. It owns every legal
// Application transition and the side effects each one has on the parent
// Bounty (through the guard) and on the reward ledger.
type ApplicationService struct {
	DB     *gorm.DB
	Guard  *BountyGuardService
	Ledger *LedgerService
	Users  *UserService
	Bus    *EventBus
}

func NewApplicationService(db *gorm.DB, guard *BountyGuardService, ledger *LedgerService, users *UserService, bus *EventBus) *ApplicationService {
	return &ApplicationService{DB: db, Guard: guard, Ledger: ledger, Users: users, Bus: bus}
}

// SubmitApplication files a new bid for an open bounty. One application per
// (bounty, applicant); the submission award (5 points) commits atomically
// with the application row.
func (s *ApplicationService) SubmitApplication(bountyID, applicantID, proposal string) (*models.Application, error) {
	if _, err := s.Users.RequireRole(applicantID, models.UserRole.CanApply, "apply to bounties"); err != nil {
		return nil, err
	}

	app := models.Application{
		ID:          uuid.NewString(),
		BountyID:    bountyID,
		ApplicantID: applicantID,
		Status:      models.ApplicationStatusPending,
		Proposal:    proposal,
	}

	var awardEvent *models.PointEvent
	freshAward := false

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var bounty models.Bounty
		if err := tx.Where("id = ?", bountyID).First(&bounty).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if bounty.Status != models.BountyStatusOpen {
			return conflictErr("bounty %s is not open for applications", bountyID)
		}

		var count int64
		tx.Model(&models.Application{}).
			Where("bounty_id = ? AND applicant_id = ?", bountyID, applicantID).
			Count(&count)
		if count > 0 {
			return conflictErr("user %s already applied to bounty %s", applicantID, bountyID)
		}

		if err := tx.Create(&app).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return conflictErr("user %s already applied to bounty %s", applicantID, bountyID)
			}
			return err
		}

		if err := tx.Model(&models.Bounty{}).
			Where("id = ?", bountyID).
			UpdateColumn("application_count", gorm.Expr("application_count + 1")).Error; err != nil {
			return err
		}

		ev, created, err := s.Ledger.awardInTx(tx, applicantID,
			models.EventKindApplicationSubmitted,
			ApplicationSubmittedCorrelationID(app.ID), bountyID)
		if err != nil {
			return err
		}
		awardEvent = ev
		freshAward = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	if freshAward {
		s.Ledger.afterAward(awardEvent)
	}
	return &app, nil
}

// Transition fires one state machine event against an application. Every
// multi-record effect (accept's sibling cascade, approve's completion bonus)
// commits in a single transaction; a concurrent actor losing a race gets a
// ConflictError with nothing persisted.
func (s *ApplicationService) Transition(applicationID string, event models.ApplicationEvent, actorID string, payload TransitionPayload) (*models.Application, error) {
	if _, ok := transitionTable[event]; !ok {
		return nil, validationErr("unknown event %q", event)
	}

	var app models.Application
	var completionEvent *models.PointEvent
	freshAward := false

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", applicationID).First(&app).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		var bounty models.Bounty
		if err := tx.Where("id = ?", app.BountyID).First(&bounty).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		// Accept against an already-assigned/cancelled/expired bounty is a
		// Conflict, even when the application itself was cascade-rejected —
		// the caller should refresh, not treat it as a bad request.
		if event == models.EventAccept && bounty.Status != models.BountyStatusOpen {
			return conflictErr("bounty %s is no longer open", bounty.ID)
		}

		if !eventAllowedFrom(event, app.Status) {
			return &InvalidTransitionError{From: app.Status, Event: event}
		}

		if err := s.authorize(event, actorID, &app, &bounty); err != nil {
			return err
		}

		now := time.Now()
		updates := map[string]interface{}{}

		switch event {
		case models.EventShortlist:
			updates["status"] = models.ApplicationStatusShortlisted
			updates["reviewed_at"] = now

		case models.EventAccept:
			// The guard's conditional write on Bounty.status is the arbiter:
			// exactly one accept per bounty ever reaches the cascade below.
			if err := s.Guard.AssignWithinTx(tx, bounty.ID, app.ApplicantID); err != nil {
				return err
			}
			if err := tx.Model(&models.Application{}).
				Where("bounty_id = ? AND id <> ? AND status IN ?", bounty.ID, app.ID,
					[]models.ApplicationStatus{models.ApplicationStatusPending, models.ApplicationStatusShortlisted}).
				Updates(map[string]interface{}{
					"status":       models.ApplicationStatusRejected,
					"feedback":     RejectedFeedbackOnAccept,
					"responded_at": now,
				}).Error; err != nil {
				return err
			}
			updates["status"] = models.ApplicationStatusAccepted
			updates["reviewed_at"] = now

		case models.EventReject:
			updates["status"] = models.ApplicationStatusRejected
			updates["responded_at"] = now
			updates["feedback"] = payload.Feedback

		case models.EventWithdraw:
			if app.Status == models.ApplicationStatusAccepted {
				// The active worker backed out — return the bounty to the pool.
				if err := s.Guard.ReopenWithinTx(tx, bounty.ID); err != nil {
					return err
				}
			}
			updates["status"] = models.ApplicationStatusWithdrawn
			updates["responded_at"] = now

		case models.EventSubmit:
			if payload.SubmissionData == "" {
				return validationErr("submission data is required")
			}
			updates["status"] = models.ApplicationStatusSubmitted
			updates["submitted_at"] = now
			updates["submission_data"] = payload.SubmissionData
			if payload.SubmissionURL != nil {
				updates["submission_url"] = *payload.SubmissionURL
			}

		case models.EventApprove:
			if err := s.Guard.CompleteWithinTx(tx, bounty.ID); err != nil {
				return err
			}
			ev, created, err := s.Ledger.awardInTx(tx, app.ApplicantID,
				models.EventKindBountyCompleted,
				BountyCompletedCorrelationID(app.ID), bounty.ID)
			if err != nil {
				return err
			}
			completionEvent = ev
			freshAward = created
			updates["status"] = models.ApplicationStatusCompleted
			updates["completed_at"] = now

		case models.EventDeny:
			// Denied work cancels the bounty rather than reopening it.
			if err := s.Guard.CancelWithinTx(tx, bounty.ID); err != nil {
				return err
			}
			updates["status"] = models.ApplicationStatusRejected
			updates["responded_at"] = now
			updates["feedback"] = payload.Feedback
		}

		// Conditional on the status read above — if a concurrent transition
		// landed first, nothing here (guard writes included) survives.
		res := tx.Model(&models.Application{}).
			Where("id = ? AND status = ?", app.ID, app.Status).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return conflictErr("application %s was modified concurrently", app.ID)
		}

		return tx.Where("id = ?", app.ID).First(&app).Error
	})
	if errors.Is(err, errDuplicateAward) {
		err = conflictErr("application %s was approved concurrently", applicationID)
	}
	if err != nil {
		return nil, err
	}

	switch event {
	case models.EventAccept:
		s.Bus.Publish(EventApplicationAccepted, map[string]interface{}{
			"application_id": app.ID,
			"bounty_id":      app.BountyID,
			"applicant_id":   app.ApplicantID,
		})
	case models.EventApprove:
		if freshAward {
			s.Ledger.afterAward(completionEvent)
		}
		s.Bus.Publish(EventBountyCompleted, map[string]interface{}{
			"application_id": app.ID,
			"bounty_id":      app.BountyID,
			"applicant_id":   app.ApplicantID,
		})
	}

	return &app, nil
}

// authorize enforces who may fire which event: reviewer events belong to the
// bounty owner (poster role), applicant events to the applicant (creator role).
func (s *ApplicationService) authorize(event models.ApplicationEvent, actorID string, app *models.Application, bounty *models.Bounty) error {
	if actorID == "" {
		return validationErr("acting user is required")
	}

	switch event {
	case models.EventShortlist, models.EventAccept, models.EventReject, models.EventApprove, models.EventDeny:
		if bounty.PostedBy != actorID {
			return validationErr("only the bounty owner may review applications")
		}
		_, err := s.Users.RequireRole(actorID, models.UserRole.CanPost, "review applications")
		return err
	case models.EventWithdraw, models.EventSubmit:
		if app.ApplicantID != actorID {
			return validationErr("only the applicant may modify this application")
		}
		_, err := s.Users.RequireRole(actorID, models.UserRole.CanApply, "work on applications")
		return err
	}
	return nil
}

// GetApplication loads one application.
func (s *ApplicationService) GetApplication(applicationID string) (*models.Application, error) {
	var app models.Application
	err := s.DB.Where("id = ?", applicationID).First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// ListByApplicant returns a user's applications, newest first.
func (s *ApplicationService) ListByApplicant(applicantID string) ([]models.Application, error) {
	var apps []models.Application
	err := s.DB.Where("applicant_id = ?", applicantID).
		Order("created_at DESC").
		Find(&apps).Error
	return apps, err
}

// ListByBounty returns every application for a bounty (owner review list).
func (s *ApplicationService) ListByBounty(bountyID string) ([]models.Application, error) {
	var apps []models.Application
	err := s.DB.Where("bounty_id = ?", bountyID).
		Order("created_at ASC").
		Find(&apps).Error
	return apps, err
}

// DeleteApplication removes an application. Records under review or beyond
// are retained for audit — delete is permitted only while pending or withdrawn.
func (s *ApplicationService) DeleteApplication(applicationID, actorID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var app models.Application
		if err := tx.Where("id = ?", applicationID).First(&app).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if app.ApplicantID != actorID {
			return validationErr("only the applicant may delete this application")
		}

		res := tx.Where("id = ? AND status IN ?", applicationID,
			[]models.ApplicationStatus{models.ApplicationStatusPending, models.ApplicationStatusWithdrawn}).
			Delete(&models.Application{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return conflictErr("application %s can no longer be deleted", applicationID)
		}

		return tx.Model(&models.Bounty{}).
			Where("id = ?", app.BountyID).
			UpdateColumn("application_count", gorm.Expr("application_count - 1")).Error
	})
}
