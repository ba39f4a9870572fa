package services

import (
	"testing"
	"time"

	"bounty-market-system/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setPoints(t *testing.T, db *gorm.DB, externalID string, points int64) {
	t.Helper()
	res := db.Model(&models.MarketUser{}).
		Where("external_user_id = ?", externalID).
		UpdateColumn("points", points)
	require.NoError(t, res.Error)
	require.Equal(t, int64(1), res.RowsAffected)
}

func setCreatedAt(t *testing.T, db *gorm.DB, externalID string, at time.Time) {
	t.Helper()
	require.NoError(t, db.Model(&models.MarketUser{}).
		Where("external_user_id = ?", externalID).
		UpdateColumn("created_at", at).Error)
}

func TestRankOrdersByPoints(t *testing.T) {
	s := newTestStack(t)
	seedUser(t, s.DB, "alice", models.RoleCreator)
	seedUser(t, s.DB, "bob", models.RoleCreator)
	seedUser(t, s.DB, "carol", models.RoleBoth)
	setPoints(t, s.DB, "alice", 300)
	setPoints(t, s.DB, "bob", 100)
	setPoints(t, s.DB, "carol", 200)

	rank, err := s.Leaderboard.Rank("alice")
	require.NoError(t, err)
	require.Equal(t, 1, rank)

	rank, err = s.Leaderboard.Rank("carol")
	require.NoError(t, err)
	require.Equal(t, 2, rank)

	rank, err = s.Leaderboard.Rank("bob")
	require.NoError(t, err)
	require.Equal(t, 3, rank)
}

func TestRankBreaksTiesByAccountAge(t *testing.T) {
	s := newTestStack(t)
	seedUser(t, s.DB, "older", models.RoleCreator)
	seedUser(t, s.DB, "newer", models.RoleCreator)
	setPoints(t, s.DB, "older", 100)
	setPoints(t, s.DB, "newer", 100)
	setCreatedAt(t, s.DB, "older", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	setCreatedAt(t, s.DB, "newer", time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))

	rank, err := s.Leaderboard.Rank("older")
	require.NoError(t, err)
	require.Equal(t, 1, rank)

	rank, err = s.Leaderboard.Rank("newer")
	require.NoError(t, err)
	require.Equal(t, 2, rank)
}

func TestRankExcludesIneligibleUsers(t *testing.T) {
	s := newTestStack(t)
	seedUser(t, s.DB, "alice", models.RoleCreator)
	setPoints(t, s.DB, "alice", 100)

	// Zero points means unranked.
	seedUser(t, s.DB, "zero", models.RoleCreator)
	_, err := s.Leaderboard.Rank("zero")
	require.ErrorIs(t, err, ErrNotFound)

	// Posters never rank, even with points.
	seedUser(t, s.DB, "poster", models.RoleBountyPoster)
	setPoints(t, s.DB, "poster", 500)
	_, err = s.Leaderboard.Rank("poster")
	require.ErrorIs(t, err, ErrNotFound)

	// Banned users drop off the board.
	seedUser(t, s.DB, "banned", models.RoleCreator)
	setPoints(t, s.DB, "banned", 500)
	require.NoError(t, s.DB.Model(&models.MarketUser{}).
		Where("external_user_id = ?", "banned").
		UpdateColumn("is_banned", true).Error)
	_, err = s.Leaderboard.Rank("banned")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = s.Leaderboard.Rank("missing")
	require.ErrorIs(t, err, ErrNotFound)

	// None of them crowd out alice.
	rank, err := s.Leaderboard.Rank("alice")
	require.NoError(t, err)
	require.Equal(t, 1, rank)
}

func TestZeroingPointsRemovesRank(t *testing.T) {
	s := newTestStack(t)
	seedUser(t, s.DB, "alice", models.RoleCreator)
	setPoints(t, s.DB, "alice", 50)

	_, err := s.Leaderboard.Rank("alice")
	require.NoError(t, err)

	setPoints(t, s.DB, "alice", 0)
	_, err = s.Leaderboard.Rank("alice")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTopReturnsRankedPrefix(t *testing.T) {
	s := newTestStack(t)
	seedUser(t, s.DB, "alice", models.RoleCreator)
	seedUser(t, s.DB, "bob", models.RoleCreator)
	seedUser(t, s.DB, "carol", models.RoleCreator)
	setPoints(t, s.DB, "alice", 300)
	setPoints(t, s.DB, "bob", 100)
	setPoints(t, s.DB, "carol", 200)

	top, err := s.Leaderboard.Top(2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	require.Equal(t, "alice", top[0].ExternalUserID)
	require.Equal(t, "carol", top[1].ExternalUserID)
}

func TestRefreshSnapshot(t *testing.T) {
	s := newTestStack(t)
	seedUser(t, s.DB, "alice", models.RoleCreator)
	seedUser(t, s.DB, "bob", models.RoleCreator)
	setPoints(t, s.DB, "alice", 200)
	setPoints(t, s.DB, "bob", 100)

	n, err := s.Leaderboard.RefreshSnapshot()
	require.NoError(t, err)
	require.Equal(t, 2, n)

	entries, err := s.Leaderboard.GetSnapshot(10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, 1, entries[0].Rank)
	require.Equal(t, "alice", entries[0].ExternalUserID)
	require.Equal(t, int64(200), entries[0].Points)

	// A refresh after the scores move replaces the projection wholesale.
	setPoints(t, s.DB, "bob", 500)
	n, err = s.Leaderboard.RefreshSnapshot()
	require.NoError(t, err)
	require.Equal(t, 2, n)

	entries, err = s.Leaderboard.GetSnapshot(10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "bob", entries[0].ExternalUserID)
}
