package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"bounty-market-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Correlation id builders. A correlation id deterministically names the one
// business event that earned the points, so retried awards collapse onto the
// same ledger row.
func LoginCorrelationID(externalUserID string, day time.Time) string {
	return fmt.Sprintf("login:%s:%s", externalUserID, day.Format("2006-01-02"))
}

func ApplicationSubmittedCorrelationID(applicationID string) string {
	return fmt.Sprintf("application:%s:submitted", applicationID)
}

func BountyCompletedCorrelationID(applicationID string) string {
	return fmt.Sprintf("application:%s:completed", applicationID)
}

func ProfileCompletedCorrelationID(externalUserID string) string {
	return fmt.Sprintf("profile:%s:completed", externalUserID)
}

type LedgerService struct {
	DB     *gorm.DB
	Bus    *EventBus
	Badges *BadgeService
}

func NewLedgerService(db *gorm.DB, bus *EventBus) *LedgerService {
	return &LedgerService{DB: db, Bus: bus, Badges: NewBadgeService(db)}
}

// errDuplicateAward aborts the insert transaction when the unique index on
// correlation_id fires; the caller then returns the already-persisted event.
var errDuplicateAward = errors.New("duplicate award")

// Award appends a PointEvent and credits the user's balance in one
// transaction. If correlationID was already awarded, the existing event is
// returned unchanged — calling Award twice with the same correlation id
// credits the points exactly once, no matter how the calls interleave.
func (s *LedgerService) Award(externalUserID string, kind models.EventKind, correlationID, metadata string) (*models.PointEvent, error) {
	var event *models.PointEvent
	fresh := false

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		ev, created, err := s.awardInTx(tx, externalUserID, kind, correlationID, metadata)
		if err != nil {
			return err
		}
		event = ev
		fresh = created
		return nil
	})
	if errors.Is(err, errDuplicateAward) {
		// Lost a race on the unique index — the winner's event is the answer.
		var existing models.PointEvent
		if ferr := s.DB.Where("correlation_id = ?", correlationID).First(&existing).Error; ferr != nil {
			return nil, err
		}
		return &existing, nil
	}
	if err != nil {
		return nil, err
	}

	if fresh {
		s.afterAward(event)
	}
	return event, nil
}

// awardInTx is the transactional core of Award. It is also called from the
// approve flow so the completion bonus commits or rolls back together with
// the application/bounty writes. Returns created=false when the correlation
// id was already present.
func (s *LedgerService) awardInTx(tx *gorm.DB, externalUserID string, kind models.EventKind, correlationID, metadata string) (*models.PointEvent, bool, error) {
	points, ok := models.PointValues[kind]
	if !ok {
		return nil, false, validationErr("unknown event kind %q", kind)
	}
	if externalUserID == "" || correlationID == "" {
		return nil, false, validationErr("user id and correlation id are required")
	}

	var existing models.PointEvent
	err := tx.Where("correlation_id = ?", correlationID).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	ev := models.PointEvent{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		Points:         points,
		EventKind:      kind,
		CorrelationID:  correlationID,
		Metadata:       metadata,
	}
	if err := tx.Create(&ev).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, false, errDuplicateAward
		}
		return nil, false, err
	}

	// Balance moves in the same transaction as the append — no ledger entry
	// without a matching balance change, and vice versa.
	res := tx.Model(&models.MarketUser{}).
		Where("external_user_id = ?", externalUserID).
		UpdateColumn("points", gorm.Expr("points + ?", points))
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, false, ErrNotFound
	}

	return &ev, true, nil
}

// afterAward runs the fire-and-forget side effects of a fresh award.
func (s *LedgerService) afterAward(ev *models.PointEvent) {
	log.Printf("🏅 Points awarded: %s +%d (%s)", ev.ExternalUserID, ev.Points, ev.EventKind)

	if s.Bus != nil {
		s.Bus.Publish(EventPointsAwarded, map[string]interface{}{
			"user_id":        ev.ExternalUserID,
			"points":         ev.Points,
			"event_kind":     string(ev.EventKind),
			"correlation_id": ev.CorrelationID,
		})
	}
	_ = s.Badges.AutoAwardBadges(ev.ExternalUserID)
}

// AwardDailyLogin credits the daily login point, at most once per calendar
// day, and advances LastLoginDate. Safe to call on every authenticated
// request.
func (s *LedgerService) AwardDailyLogin(externalUserID string, now time.Time) (*models.PointEvent, error) {
	var event *models.PointEvent
	fresh := false
	correlationID := LoginCorrelationID(externalUserID, now)

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		ev, created, err := s.awardInTx(tx, externalUserID, models.EventKindDailyLogin, correlationID, "")
		if err != nil {
			return err
		}
		event = ev
		fresh = created

		day := now.Truncate(24 * time.Hour)
		return tx.Model(&models.MarketUser{}).
			Where("external_user_id = ?", externalUserID).
			UpdateColumn("last_login_date", day).Error
	})
	if errors.Is(err, errDuplicateAward) {
		var existing models.PointEvent
		if ferr := s.DB.Where("correlation_id = ?", correlationID).First(&existing).Error; ferr != nil {
			return nil, err
		}
		return &existing, nil
	}
	if err != nil {
		return nil, err
	}
	if fresh {
		s.afterAward(event)
	}
	return event, nil
}

// AwardProfileCompletion credits the one-time profile completion bonus.
func (s *LedgerService) AwardProfileCompletion(externalUserID string) (*models.PointEvent, error) {
	return s.Award(externalUserID, models.EventKindProfileCompleted,
		ProfileCompletedCorrelationID(externalUserID), "")
}

// GetUserEvents returns a user's ledger history, newest first.
func (s *LedgerService) GetUserEvents(externalUserID string, limit int) ([]models.PointEvent, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	var events []models.PointEvent
	err := s.DB.Where("external_user_id = ?", externalUserID).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}
