// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartMaintenanceScheduler runs the periodic reconciliation jobs: the
// deadline sweep every minute and the leaderboard snapshot refresh every
// five. Both jobs are idempotent, so overlapping or repeated runs are safe.
func StartMaintenanceScheduler(guard *BountyGuardService, board *LeaderboardService) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every minute: expire open bounties past their deadline
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			if _, err := guard.SweepExpiredBounties(time.Now()); err != nil {
				log.Printf("[Scheduler] Sweep failed: %v", err)
			}
		}),
	)

	// Every 5 minutes: refresh the leaderboard projection
	_, _ = sched.NewJob(
		gocron.DurationJob(5*time.Minute),
		gocron.NewTask(func() {
			if _, err := board.RefreshSnapshot(); err != nil {
				log.Printf("[Scheduler] Leaderboard refresh failed: %v", err)
			}
		}),
	)
}
