// handlers/bounty_routes.go
package handlers

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"bounty-market-system/middleware"
	"bounty-market-system/models"
	"bounty-market-system/services"
	"bounty-market-system/utils"

	"github.com/gofiber/fiber/v2"
)

// statusForError maps the core's error taxonomy onto HTTP statuses so the
// excluded UI layer can render an appropriate message.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound
	case services.IsConflict(err):
		return fiber.StatusConflict
	case services.IsInvalidTransition(err):
		return fiber.StatusUnprocessableEntity
	case services.IsValidation(err):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func errJSON(c *fiber.Ctx, err error) error {
	return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
}

func SetupBountyRoutes(app *fiber.App, bountyService *services.BountyService, applicationService *services.ApplicationService, guard *services.BountyGuardService) {
	// Public listing
	app.Get("/bounties", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "20"))
		offset, _ := strconv.Atoi(c.Query("offset", "0"))
		bounties, err := bountyService.ListOpenBounties(limit, offset)
		if err != nil {
			return errJSON(c, err)
		}
		return c.JSON(bounties)
	})

	app.Get("/bounties/:id", func(c *fiber.Ctx) error {
		bounty, err := guard.GetBounty(c.Params("id"))
		if err != nil {
			return errJSON(c, err)
		}
		return c.JSON(bounty)
	})

	// 🔐 Secured routes — require user context from Gateway
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Post("/bounties", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			Title        string     `json:"title"`
			Description  string     `json:"description"`
			RewardAmount float64    `json:"reward_amount"`
			Deadline     *time.Time `json:"deadline"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		bounty, err := bountyService.CreateBounty(userID, req.Title, req.Description, req.RewardAmount, req.Deadline)
		if err != nil {
			return errJSON(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(bounty)
	})

	secured.Get("/bounties/mine", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		bounties, err := bountyService.ListByPoster(userID)
		if err != nil {
			return errJSON(c, err)
		}
		return c.JSON(bounties)
	})

	secured.Post("/bounties/:id/cancel", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		bounty, err := guard.CancelOpenBounty(c.Params("id"), userID)
		if err != nil {
			return errJSON(c, err)
		}
		return c.JSON(bounty)
	})

	secured.Delete("/bounties/:id", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		if err := bountyService.DeleteBounty(c.Params("id"), userID); err != nil {
			return errJSON(c, err)
		}
		return c.JSON(fiber.Map{"message": "Bounty deleted successfully"})
	})

	// Applications
	secured.Post("/bounties/:id/apply", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			Proposal string `json:"proposal"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		app2, err := applicationService.SubmitApplication(c.Params("id"), userID, req.Proposal)
		if err != nil {
			return errJSON(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(app2)
	})

	secured.Get("/bounties/:id/applications", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		bounty, err := guard.GetBounty(c.Params("id"))
		if err != nil {
			return errJSON(c, err)
		}
		if bounty.PostedBy != userID {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "only the bounty owner may list applications"})
		}
		apps, err := applicationService.ListByBounty(bounty.ID)
		if err != nil {
			return errJSON(c, err)
		}
		return c.JSON(apps)
	})

	secured.Get("/user/applications", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		apps, err := applicationService.ListByApplicant(userID)
		if err != nil {
			return errJSON(c, err)
		}
		return c.JSON(apps)
	})

	// Work submission — multipart so a deliverable file can ride along.
	// The attachment goes to R2 when configured, local uploads/ otherwise.
	secured.Post("/applications/:id/submit", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		appID := c.Params("id")

		payload := services.TransitionPayload{
			SubmissionData: c.FormValue("submission_data"),
		}

		if fileHeader, err := c.FormFile("attachment"); err == nil && fileHeader.Size > 0 {
			key := fmt.Sprintf("submissions/%s/%s", appID, filepath.Base(fileHeader.Filename))
			var url string
			if utils.R2Enabled() {
				url, err = utils.UploadFileToR2(fileHeader, key)
			} else {
				dest := utils.GetUploadPath(key)
				if err = utils.SaveFile(fileHeader, dest); err == nil {
					url = "/" + dest
				}
			}
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to store attachment"})
			}
			payload.SubmissionURL = &url
		}

		app2, err := applicationService.Transition(appID, models.EventSubmit, userID, payload)
		if err != nil {
			return errJSON(c, err)
		}
		return c.JSON(app2)
	})

	// Review transitions, all the same shape: POST /s/applications/:id/<event>
	for _, event := range []models.ApplicationEvent{
		models.EventShortlist,
		models.EventAccept,
		models.EventReject,
		models.EventWithdraw,
		models.EventApprove,
		models.EventDeny,
	} {
		event := event
		secured.Post("/applications/:id/"+string(event), func(c *fiber.Ctx) error {
			userID := c.Locals("user_id").(string)

			var payload services.TransitionPayload
			if len(c.Body()) > 0 {
				if err := c.BodyParser(&payload); err != nil {
					return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
				}
			}

			app2, err := applicationService.Transition(c.Params("id"), event, userID, payload)
			if err != nil {
				return errJSON(c, err)
			}
			return c.JSON(app2)
		})
	}

	secured.Delete("/applications/:id", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		if err := applicationService.DeleteApplication(c.Params("id"), userID); err != nil {
			return errJSON(c, err)
		}
		return c.JSON(fiber.Map{"message": "Application deleted successfully"})
	})

	// Admin endpoints
	admin := app.Group("/s/admin", middleware.UserContextMiddleware())

	admin.Post("/sweep", func(c *fiber.Ctx) error {
		count, err := guard.SweepExpiredBounties(time.Now())
		if err != nil {
			return errJSON(c, err)
		}
		return c.JSON(fiber.Map{"expired": count})
	})
}
