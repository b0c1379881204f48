// handlers/gamification_routes.go
package handlers

import (
	"strconv"

	"learning-progress-system/middleware"
	"learning-progress-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupGamificationRoutes(app *fiber.App, gamification *services.GamificationService) {
	// 🔐 Secured routes — require user context (userID) forwarded by Gateway
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Post("/lessons/:lessonID/complete", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		lessonID := c.Params("lessonID")

		result, err := gamification.OnLessonCompleted(userID, lessonID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(result)
	})

	secured.Post("/daily-term", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		earned, err := gamification.RecordDailyTerm(userID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{
			"xp_earned":    earned,
			"already_seen": earned == 0,
		})
	})

	secured.Get("/progress", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		learner, err := gamification.ResolveLearner(userID)
		if err != nil {
			return serviceError(c, err)
		}
		streak, err := gamification.GetCurrentStreak(userID)
		if err != nil {
			return serviceError(c, err)
		}
		courses, err := gamification.GetCourseProgress(userID, "")
		if err != nil {
			return serviceError(c, err)
		}

		return c.JSON(fiber.Map{
			"id":               learner.ID,
			"external_user_id": learner.ExternalUserID,
			"total_xp":         learner.TotalXP,
			"level":            learner.Level,
			"current_streak":   streak,
			"courses":          courses,
			"last_level_up_at": learner.LastLevelUpAt,
		})
	})

	secured.Get("/progress/courses/:courseID", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		courseID := c.Params("courseID")

		rollups, err := gamification.GetCourseProgress(userID, courseID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(rollups[0])
	})

	secured.Get("/badges", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		badges, err := gamification.GetBadges(userID)
		if err != nil {
			return serviceError(c, err)
		}
		if badges == nil {
			badges = []services.GrantedBadge{}
		}
		return c.JSON(badges)
	})

	secured.Get("/streak", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		streak, err := gamification.GetCurrentStreak(userID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{
			"current_streak": streak,
			"bonus_xp":       services.StreakBonusXP(streak),
		})
	})

	secured.Get("/activity", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		limit, _ := strconv.Atoi(c.Query("limit", "20"))

		entries, err := gamification.GetRecentActivity(userID, limit)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(entries)
	})
}

// serviceError maps the engine's error taxonomy onto HTTP statuses: missing
// entities are the client's problem, transient storage failures invite a
// retry, anything else is a plain 500.
func serviceError(c *fiber.Ctx, err error) error {
	if services.IsNotFound(err) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if services.IsRetryable(err) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error":     "temporary storage failure, please retry",
			"retryable": true,
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal error",
		"cause": err.Error(),
	})
}
