// handlers/admin_routes.go
package handlers

import (
	"fmt"
	"strconv"

	"learning-progress-system/middleware"
	"learning-progress-system/models"
	"learning-progress-system/services"
	"learning-progress-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

func SetupAdminRoutes(app *fiber.App, badgeService *services.BadgeService, ledger *services.ActivityLedger) {
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware())

	// Create a badge rule definition. Multipart: fields + optional icon file
	// pushed to R2. The code is slugified from the name.
	adminGroup.Post("/badges", func(c *fiber.Ctx) error {
		name := c.FormValue("name")
		triggerType := c.FormValue("trigger_type")
		if name == "" || triggerType == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "name and trigger_type are required",
			})
		}
		switch triggerType {
		case models.TriggerFirstLesson, models.TriggerXPMilestone, models.TriggerCourseCompleted,
			models.TriggerAllBasicCourses, models.TriggerStreak:
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("unknown trigger_type %q", triggerType),
			})
		}

		badge := models.Badge{
			ID:           uuid.NewString(),
			Code:         slug.Make(name),
			Name:         name,
			Description:  c.FormValue("description"),
			TriggerType:  triggerType,
			TriggerValue: c.FormValue("trigger_value"),
		}
		if seq := c.FormValue("sequence_order"); seq != "" {
			badge.SequenceOrder, _ = strconv.Atoi(seq)
		}

		if icon, err := c.FormFile("icon"); err == nil {
			key := fmt.Sprintf("badges/%s%s", badge.Code, utils.FileExt(icon.Filename))
			url, err := utils.UploadFileToR2(icon, key)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "icon upload failed",
					"cause": err.Error(),
				})
			}
			badge.IconURL = url
		}

		if err := badgeService.DB.Create(&badge).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to create badge",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(badge)
	})

	adminGroup.Get("/badges", func(c *fiber.Ctx) error {
		var badges []models.Badge
		if err := badgeService.DB.Order("sequence_order ASC, created_at ASC").Find(&badges).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list badges",
				"cause": err.Error(),
			})
		}
		return c.JSON(badges)
	})

	// On-demand ledger/counter consistency sweep.
	adminGroup.Get("/reconcile", func(c *fiber.Ctx) error {
		violations, err := ledger.Reconcile()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "reconciliation sweep failed",
				"cause": err.Error(),
			})
		}
		drifted := make([]fiber.Map, 0, len(violations))
		for _, v := range violations {
			drifted = append(drifted, fiber.Map{
				"learner_id": v.LearnerID,
				"ledger_sum": v.LedgerSum,
				"total_xp":   v.TotalXP,
			})
		}
		return c.JSON(fiber.Map{
			"consistent": len(drifted) == 0,
			"drifted":    drifted,
		})
	})
}
