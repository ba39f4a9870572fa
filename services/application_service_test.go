package services

import (
	"testing"
	"time"

	"bounty-market-system/models"

	"github.com/stretchr/testify/require"
)

func TestSubmitApplication(t *testing.T) {
	s := newTestStack(t)
	seedUser(t, s.DB, "poster", models.RoleBountyPoster)
	seedUser(t, s.DB, "alice", models.RoleCreator)
	bounty := seedBounty(t, s.DB, "poster", models.BountyStatusOpen, nil)

	app, err := s.Apps.SubmitApplication(bounty.ID, "alice", "pick me")
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusPending, app.Status)

	require.Equal(t, int64(1), reloadBounty(t, s.DB, bounty.ID).ApplicationCount)

	// Filing an application earns the submission award.
	require.Equal(t, int64(5), userPoints(t, s.DB, "alice"))

	// One application per (bounty, applicant).
	_, err = s.Apps.SubmitApplication(bounty.ID, "alice", "pick me again")
	require.True(t, IsConflict(err))

	// Posters cannot apply.
	_, err = s.Apps.SubmitApplication(bounty.ID, "poster", "my own bounty")
	require.True(t, IsValidation(err))

	// Unknown bounty.
	_, err = s.Apps.SubmitApplication("missing", "alice", "hello")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitApplicationRequiresOpenBounty(t *testing.T) {
	s := newTestStack(t)
	seedUser(t, s.DB, "poster", models.RoleBountyPoster)
	seedUser(t, s.DB, "alice", models.RoleCreator)
	bounty := seedBounty(t, s.DB, "poster", models.BountyStatusCancelled, nil)

	_, err := s.Apps.SubmitApplication(bounty.ID, "alice", "too late")
	require.True(t, IsConflict(err))
}

func TestAcceptSelectsOneWorkerAndRejectsSiblings(t *testing.T) {
	s := newTestStack(t)
	seedUser(t, s.DB, "poster", models.RoleBountyPoster)
	seedUser(t, s.DB, "alice", models.RoleCreator)
	seedUser(t, s.DB, "bob", models.RoleCreator)
	bounty := seedBounty(t, s.DB, "poster", models.BountyStatusOpen, nil)
	a1 := seedApplication(t, s.DB, bounty.ID, "alice", models.ApplicationStatusPending)
	a2 := seedApplication(t, s.DB, bounty.ID, "bob", models.ApplicationStatusPending)

	accepted, err := s.Apps.Transition(a1.ID, models.EventAccept, "poster", TransitionPayload{})
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusAccepted, accepted.Status)
	require.NotNil(t, accepted.ReviewedAt)

	rejected := reloadApplication(t, s.DB, a2.ID)
	require.Equal(t, models.ApplicationStatusRejected, rejected.Status)
	require.Equal(t, RejectedFeedbackOnAccept, rejected.Feedback)

	b := reloadBounty(t, s.DB, bounty.ID)
	require.Equal(t, models.BountyStatusInProgress, b.Status)
	require.NotNil(t, b.AssignedTo)
	require.Equal(t, "alice", *b.AssignedTo)

	// A subsequent accept on the sibling is a conflict, not a bad request.
	_, err = s.Apps.Transition(a2.ID, models.EventAccept, "poster", TransitionPayload{})
	require.True(t, IsConflict(err))
}

func TestAcceptConflictLeavesStateUnchanged(t *testing.T) {
	s := newTestStack(t)
	seedUser(t, s.DB, "poster", models.RoleBountyPoster)
	seedUser(t, s.DB, "alice", models.RoleCreator)
	bounty := seedBounty(t, s.DB, "poster", models.BountyStatusInProgress, nil)
	app := seedApplication(t, s.DB, bounty.ID, "alice", models.ApplicationStatusPending)

	_, err := s.Apps.Transition(app.ID, models.EventAccept, "poster", TransitionPayload{})
	require.True(t, IsConflict(err))

	require.Equal(t, models.ApplicationStatusPending, reloadApplication(t, s.DB, app.ID).Status)
	require.Equal(t, models.BountyStatusInProgress, reloadBounty(t, s.DB, bounty.ID).Status)
}

func TestFullLifecycleToCompletion(t *testing.T) {
	s := newTestStack(t)
	seedUser(t, s.DB, "poster", models.RoleBountyPoster)
	seedUser(t, s.DB, "alice", models.RoleCreator)
	bounty := seedBounty(t, s.DB, "poster", models.BountyStatusOpen, nil)

	app, err := s.Apps.SubmitApplication(bounty.ID, "alice", "pick me")
	require.NoError(t, err)

	_, err = s.Apps.Transition(app.ID, models.EventShortlist, "poster", TransitionPayload{})
	require.NoError(t, err)

	_, err = s.Apps.Transition(app.ID, models.EventAccept, "poster", TransitionPayload{})
	require.NoError(t, err)

	_, err = s.Apps.Transition(app.ID, models.EventSubmit, "alice", TransitionPayload{
		SubmissionData: "here is the work",
	})
	require.NoError(t, err)

	done, err := s.Apps.Transition(app.ID, models.EventApprove, "poster", TransitionPayload{})
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)

	b := reloadBounty(t, s.DB, bounty.ID)
	require.Equal(t, models.BountyStatusCompleted, b.Status)
	require.NotNil(t, b.AssignedTo)

	// 5 for applying + 100 for completion.
	require.Equal(t, int64(105), userPoints(t, s.DB, "alice"))

	// Re-approving is an invalid transition and must not double-credit.
	_, err = s.Apps.Transition(app.ID, models.EventApprove, "poster", TransitionPayload{})
	require.True(t, IsInvalidTransition(err))
	require.Equal(t, int64(105), userPoints(t, s.DB, "alice"))

	var count int64
	s.DB.Model(&models.PointEvent{}).
		Where("correlation_id = ?", BountyCompletedCorrelationID(app.ID)).
		Count(&count)
	require.Equal(t, int64(1), count)
}

func TestSubmitRequiresData(t *testing.T) {
	s := newTestStack(t)
	seedUser(t, s.DB, "poster", models.RoleBountyPoster)
	seedUser(t, s.DB, "alice", models.RoleCreator)
	bounty := seedBounty(t, s.DB, "poster", models.BountyStatusOpen, nil)
	app := seedApplication(t, s.DB, bounty.ID, "alice", models.ApplicationStatusPending)

	_, err := s.Apps.Transition(app.ID, models.EventAccept, "poster", TransitionPayload{})
	require.NoError(t, err)

	_, err = s.Apps.Transition(app.ID, models.EventSubmit, "alice", TransitionPayload{})
	require.True(t, IsValidation(err))
}

func TestWithdrawAcceptedReopensBounty(t *testing.T) {
	s := newTestStack(t)
	seedUser(t, s.DB, "poster", models.RoleBountyPoster)
	seedUser(t, s.DB, "alice", models.RoleCreator)
	bounty := seedBounty(t, s.DB, "poster", models.BountyStatusOpen, nil)
	app := seedApplication(t, s.DB, bounty.ID, "alice", models.ApplicationStatusPending)

	_, err := s.Apps.Transition(app.ID, models.EventAccept, "poster", TransitionPayload{})
	require.NoError(t, err)

	withdrawn, err := s.Apps.Transition(app.ID, models.EventWithdraw, "alice", TransitionPayload{})
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusWithdrawn, withdrawn.Status)

	b := reloadBounty(t, s.DB, bounty.ID)
	require.Equal(t, models.BountyStatusOpen, b.Status)
	require.Nil(t, b.AssignedTo)
}

func TestDenyCancelsBounty(t *testing.T) {
	s := newTestStack(t)
	seedUser(t, s.DB, "poster", models.RoleBountyPoster)
	seedUser(t, s.DB, "alice", models.RoleCreator)
	bounty := seedBounty(t, s.DB, "poster", models.BountyStatusOpen, nil)
	app := seedApplication(t, s.DB, bounty.ID, "alice", models.ApplicationStatusPending)

	_, err := s.Apps.Transition(app.ID, models.EventAccept, "poster", TransitionPayload{})
	require.NoError(t, err)
	_, err = s.Apps.Transition(app.ID, models.EventSubmit, "alice", TransitionPayload{SubmissionData: "wip"})
	require.NoError(t, err)

	denied, err := s.Apps.Transition(app.ID, models.EventDeny, "poster", TransitionPayload{Feedback: "not what was asked"})
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusRejected, denied.Status)
	require.Equal(t, "not what was asked", denied.Feedback)

	b := reloadBounty(t, s.DB, bounty.ID)
	require.Equal(t, models.BountyStatusCancelled, b.Status)
	require.Nil(t, b.AssignedTo)

	// No completion award on denial.
	require.Equal(t, int64(0), userPoints(t, s.DB, "alice"))
}

func TestIllegalTransitionsAreRejected(t *testing.T) {
	s := newTestStack(t)
	seedUser(t, s.DB, "poster", models.RoleBountyPoster)
	seedUser(t, s.DB, "alice", models.RoleCreator)
	bounty := seedBounty(t, s.DB, "poster", models.BountyStatusOpen, nil)

	cases := []struct {
		from  models.ApplicationStatus
		event models.ApplicationEvent
		actor string
	}{
		{models.ApplicationStatusRejected, models.EventShortlist, "poster"},
		{models.ApplicationStatusPending, models.EventApprove, "poster"},
		{models.ApplicationStatusPending, models.EventSubmit, "alice"},
		{models.ApplicationStatusSubmitted, models.EventWithdraw, "alice"},
		{models.ApplicationStatusCompleted, models.EventDeny, "poster"},
	}

	for _, tc := range cases {
		app := seedApplication(t, s.DB, bounty.ID, "alice", tc.from)
		_, err := s.Apps.Transition(app.ID, tc.event, tc.actor, TransitionPayload{})
		require.Truef(t, IsInvalidTransition(err), "%s from %s: got %v", tc.event, tc.from, err)
		require.Equal(t, tc.from, reloadApplication(t, s.DB, app.ID).Status)
		require.NoError(t, s.DB.Unscoped().Delete(app).Error)
	}
}

func TestTransitionAuthorization(t *testing.T) {
	s := newTestStack(t)
	seedUser(t, s.DB, "poster", models.RoleBountyPoster)
	seedUser(t, s.DB, "alice", models.RoleCreator)
	seedUser(t, s.DB, "mallory", models.RoleBountyPoster)
	bounty := seedBounty(t, s.DB, "poster", models.BountyStatusOpen, nil)
	app := seedApplication(t, s.DB, bounty.ID, "alice", models.ApplicationStatusPending)

	// Only the bounty owner reviews.
	_, err := s.Apps.Transition(app.ID, models.EventAccept, "mallory", TransitionPayload{})
	require.True(t, IsValidation(err))

	// Only the applicant withdraws.
	_, err = s.Apps.Transition(app.ID, models.EventWithdraw, "poster", TransitionPayload{})
	require.True(t, IsValidation(err))

	// Unknown application.
	_, err = s.Apps.Transition("missing", models.EventAccept, "poster", TransitionPayload{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteApplicationOnlyWhilePendingOrWithdrawn(t *testing.T) {
	s := newTestStack(t)
	seedUser(t, s.DB, "poster", models.RoleBountyPoster)
	seedUser(t, s.DB, "alice", models.RoleCreator)
	bounty := seedBounty(t, s.DB, "poster", models.BountyStatusOpen, nil)

	app, err := s.Apps.SubmitApplication(bounty.ID, "alice", "pick me")
	require.NoError(t, err)

	require.True(t, IsValidation(s.Apps.DeleteApplication(app.ID, "poster")))

	require.NoError(t, s.Apps.DeleteApplication(app.ID, "alice"))
	require.Equal(t, int64(0), reloadBounty(t, s.DB, bounty.ID).ApplicationCount)

	seedUser(t, s.DB, "bob", models.RoleCreator)
	accepted := seedApplication(t, s.DB, bounty.ID, "bob", models.ApplicationStatusAccepted)
	require.True(t, IsConflict(s.Apps.DeleteApplication(accepted.ID, "bob")))
}

func TestSingleActiveWorkerInvariant(t *testing.T) {
	s := newTestStack(t)
	seedUser(t, s.DB, "poster", models.RoleBountyPoster)
	seedUser(t, s.DB, "alice", models.RoleCreator)
	seedUser(t, s.DB, "bob", models.RoleCreator)
	seedUser(t, s.DB, "carol", models.RoleCreator)
	bounty := seedBounty(t, s.DB, "poster", models.BountyStatusOpen, nil)
	a1 := seedApplication(t, s.DB, bounty.ID, "alice", models.ApplicationStatusPending)
	seedApplication(t, s.DB, bounty.ID, "bob", models.ApplicationStatusShortlisted)
	seedApplication(t, s.DB, bounty.ID, "carol", models.ApplicationStatusPending)

	_, err := s.Apps.Transition(a1.ID, models.EventAccept, "poster", TransitionPayload{})
	require.NoError(t, err)

	var active int64
	s.DB.Model(&models.Application{}).
		Where("bounty_id = ? AND status IN ?", bounty.ID,
			[]models.ApplicationStatus{
				models.ApplicationStatusAccepted,
				models.ApplicationStatusSubmitted,
				models.ApplicationStatusCompleted,
			}).
		Count(&active)
	require.Equal(t, int64(1), active)
}

func TestDeadlinePassedStillAllowsReviewOfAssignedWork(t *testing.T) {
	s := newTestStack(t)
	seedUser(t, s.DB, "poster", models.RoleBountyPoster)
	seedUser(t, s.DB, "alice", models.RoleCreator)

	past := time.Now().Add(-time.Hour)
	bounty := seedBounty(t, s.DB, "poster", models.BountyStatusOpen, &past)
	app := seedApplication(t, s.DB, bounty.ID, "alice", models.ApplicationStatusPending)

	_, err := s.Apps.Transition(app.ID, models.EventAccept, "poster", TransitionPayload{})
	require.NoError(t, err)

	// The sweep must leave the now in_progress bounty alone.
	count, err := s.Guard.SweepExpiredBounties(time.Now())
	require.NoError(t, err)
	require.Equal(t, int64(0), count)
	require.Equal(t, models.BountyStatusInProgress, reloadBounty(t, s.DB, bounty.ID).Status)
}
