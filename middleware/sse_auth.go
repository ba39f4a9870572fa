// bounty-market-system/middleware/sse_auth.go
package middleware

import (
	"log"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// SSEAuthMiddleware authenticates EventSource connections. Browsers cannot
// set headers on SSE requests, so the Gateway appends the service token and
// user id as query params instead:
//
//	app.Get("/user/points/stream", middleware.SSEAuthMiddleware(), ledgerService.StreamUserPointsSSE)
func SSEAuthMiddleware() func(*fiber.Ctx) error {
	expectedToken := os.Getenv("MARKET_SERVICE_TOKEN")
	if expectedToken == "" {
		log.Fatal("❌ MARKET_SERVICE_TOKEN is not set — service cannot authenticate SSE clients")
	}

	return func(c *fiber.Ctx) error {
		token := strings.TrimSpace(string(c.Request().URI().QueryArgs().Peek("token")))
		userID := strings.TrimSpace(string(c.Request().URI().QueryArgs().Peek("user_id")))

		if token == "" || userID == "" {
			log.Printf("[SSEAuth] ❌ Missing query params on %s", c.Path())
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing token or user_id in query",
			})
		}

		if token != expectedToken {
			log.Printf("[SSEAuth] ❌ Invalid token for user %s on %s", userID, c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		// Attach to Fiber context (like UserContextMiddleware, but from query)
		c.Locals("user_id", userID)

		return c.Next()
	}
}
