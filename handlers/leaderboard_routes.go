// handlers/leaderboard_routes.go
package handlers

import (
	"errors"
	"strconv"
	"time"

	"bounty-market-system/middleware"
	"bounty-market-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupLeaderboardRoutes(app *fiber.App, leaderboardService *services.LeaderboardService, ledgerService *services.LedgerService, badgeService *services.BadgeService, userService *services.UserService) {
	// Public: top N, computed live from user balances
	app.Get("/leaderboard", func(c *fiber.Ctx) error {
		n, _ := strconv.Atoi(c.Query("limit", "10"))
		users, err := leaderboardService.Top(n)
		if err != nil {
			return errJSON(c, err)
		}

		type entry struct {
			Rank           int    `json:"rank"`
			ExternalUserID string `json:"external_user_id"`
			Username       string `json:"username"`
			Points         int64  `json:"points"`
		}
		res := make([]entry, len(users))
		for i, u := range users {
			res[i] = entry{Rank: i + 1, ExternalUserID: u.ExternalUserID, Username: u.Username, Points: u.Points}
		}
		return c.JSON(res)
	})

	// Public: paged snapshot projection for the full board
	app.Get("/leaderboard/snapshot", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "20"))
		offset, _ := strconv.Atoi(c.Query("offset", "0"))
		entries, err := leaderboardService.GetSnapshot(limit, offset)
		if err != nil {
			return errJSON(c, err)
		}
		return c.JSON(entries)
	})

	// SSE stream of the user's point events (token via query — EventSource
	// cannot set headers)
	app.Get("/user/points/stream", middleware.SSEAuthMiddleware(), ledgerService.StreamUserPointsSSE)

	// 🔐 Secured routes
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Get("/user/rank", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		rank, err := leaderboardService.Rank(userID)
		if errors.Is(err, services.ErrNotFound) {
			return c.JSON(fiber.Map{"rank": nil})
		}
		if err != nil {
			return errJSON(c, err)
		}
		return c.JSON(fiber.Map{"rank": rank})
	})

	secured.Get("/user/points/history", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		events, err := ledgerService.GetUserEvents(userID, limit)
		if err != nil {
			return errJSON(c, err)
		}
		return c.JSON(events)
	})

	secured.Get("/user/badges", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		badges, err := badgeService.GetUserBadges(userID)
		if err != nil {
			return errJSON(c, err)
		}
		return c.JSON(badges)
	})

	// Called by the auth collaborator after a successful login; the
	// correlation id makes repeat calls on the same day a no-op.
	secured.Post("/user/daily-login", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		event, err := ledgerService.AwardDailyLogin(userID, time.Now())
		if err != nil {
			return errJSON(c, err)
		}
		return c.JSON(event)
	})

	secured.Get("/users/search", userService.SearchUsers)
}
