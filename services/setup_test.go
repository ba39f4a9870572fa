package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"bounty-market-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB opens a per-test in-memory database to avoid cross-test
// interference. TranslateError is on so unique-index violations surface as
// gorm.ErrDuplicatedKey, same as the postgres deployment.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.MarketUser{},
		&models.Bounty{},
		&models.Application{},
		&models.PointEvent{},
		&models.LeaderboardEntry{},
		&models.BadgeType{},
		&models.UserBadge{},
	))
	return db
}

type testStack struct {
	DB          *gorm.DB
	Bus         *EventBus
	Users       *UserService
	Guard       *BountyGuardService
	Ledger      *LedgerService
	Bounties    *BountyService
	Apps        *ApplicationService
	Leaderboard *LeaderboardService
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	db := setupTestDB(t)
	bus := NewEventBus()
	users := NewUserService(db)
	guard := NewBountyGuardService(db, bus)
	ledger := NewLedgerService(db, bus)
	return &testStack{
		DB:          db,
		Bus:         bus,
		Users:       users,
		Guard:       guard,
		Ledger:      ledger,
		Bounties:    NewBountyService(db, users),
		Apps:        NewApplicationService(db, guard, ledger, users, bus),
		Leaderboard: NewLeaderboardService(db),
	}
}

func seedUser(t *testing.T, db *gorm.DB, externalID string, role models.UserRole) *models.MarketUser {
	t.Helper()
	user := &models.MarketUser{
		ID:             uuid.NewString(),
		ExternalUserID: externalID,
		Username:       externalID,
		Role:           role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedBounty(t *testing.T, db *gorm.DB, posterID string, status models.BountyStatus, deadline *time.Time) *models.Bounty {
	t.Helper()
	bounty := &models.Bounty{
		ID:       uuid.NewString(),
		Title:    "Test bounty",
		PostedBy: posterID,
		Status:   status,
		Deadline: deadline,
	}
	bounty.MakeSlug()
	if status == models.BountyStatusInProgress || status == models.BountyStatusCompleted {
		worker := "assigned-worker"
		bounty.AssignedTo = &worker
	}
	require.NoError(t, db.Create(bounty).Error)
	return bounty
}

func seedApplication(t *testing.T, db *gorm.DB, bountyID, applicantID string, status models.ApplicationStatus) *models.Application {
	t.Helper()
	app := &models.Application{
		ID:          uuid.NewString(),
		BountyID:    bountyID,
		ApplicantID: applicantID,
		Status:      status,
		Proposal:    "I can do this",
	}
	require.NoError(t, db.Create(app).Error)
	return app
}

func userPoints(t *testing.T, db *gorm.DB, externalID string) int64 {
	t.Helper()
	var user models.MarketUser
	require.NoError(t, db.Where("external_user_id = ?", externalID).First(&user).Error)
	return user.Points
}

func reloadApplication(t *testing.T, db *gorm.DB, id string) *models.Application {
	t.Helper()
	var app models.Application
	require.NoError(t, db.Where("id = ?", id).First(&app).Error)
	return &app
}

func reloadBounty(t *testing.T, db *gorm.DB, id string) *models.Bounty {
	t.Helper()
	var bounty models.Bounty
	require.NoError(t, db.Where("id = ?", id).First(&bounty).Error)
	return &bounty
}
