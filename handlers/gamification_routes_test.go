package handlers

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"learning-progress-system/models"
	"learning-progress-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type routeFixture struct {
	app     *fiber.App
	db      *gorm.DB
	learner *models.Learner
	lessons []models.Lesson
}

func newRouteFixture(t *testing.T) *routeFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Learner{},
		&models.Course{},
		&models.Lesson{},
		&models.LessonProgress{},
		&models.CourseProgress{},
		&models.ActivityEntry{},
		&models.Badge{},
		&models.BadgeGrant{},
	))

	learner := models.Learner{
		ID:             uuid.NewString(),
		ExternalUserID: "ext-route-user",
		Username:       "route-user",
		Level:          1,
	}
	require.NoError(t, db.Create(&learner).Error)

	course := models.Course{
		ID:          uuid.NewString(),
		Title:       "Route Course",
		Slug:        "route-course",
		Track:       "basic",
		LessonCount: 2,
	}
	require.NoError(t, db.Create(&course).Error)

	lessons := make([]models.Lesson, 2)
	for i := range lessons {
		lessons[i] = models.Lesson{
			ID:            uuid.NewString(),
			CourseID:      course.ID,
			Title:         fmt.Sprintf("Lesson %d", i+1),
			SequenceOrder: i + 1,
			XPReward:      50,
		}
		require.NoError(t, db.Create(&lessons[i]).Error)
	}

	gamification := services.NewGamificationService(db, 20, 5, false)
	badgeService := services.NewBadgeService(db)
	ledger := services.NewActivityLedger(db)

	app := fiber.New()
	SetupGamificationRoutes(app, gamification)
	SetupAdminRoutes(app, badgeService, ledger)

	return &routeFixture{app: app, db: db, learner: &learner, lessons: lessons}
}

func (f *routeFixture) request(t *testing.T, method, path string) map[string]interface{} {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("X-User-ID", f.learner.ExternalUserID)

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestCompleteLessonRoute(t *testing.T) {
	f := newRouteFixture(t)

	body := f.request(t, "POST", "/s/lessons/"+f.lessons[0].ID+"/complete")
	assert.Equal(t, float64(50), body["xp_earned"])
	progress := body["course_progress"].(map[string]interface{})
	assert.Equal(t, float64(50), progress["percentage"])

	// Replay: normal success with zero rewards, per the idempotent contract.
	body = f.request(t, "POST", "/s/lessons/"+f.lessons[0].ID+"/complete")
	assert.Equal(t, float64(0), body["xp_earned"])
	assert.Equal(t, true, body["duplicate"])
}

func TestCompleteLessonRouteNotFound(t *testing.T) {
	f := newRouteFixture(t)

	req := httptest.NewRequest("POST", "/s/lessons/no-such-lesson/complete", nil)
	req.Header.Set("X-User-ID", f.learner.ExternalUserID)

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestSecuredRoutesRequireUserContext(t *testing.T) {
	f := newRouteFixture(t)

	req := httptest.NewRequest("GET", "/s/progress", nil) // no X-User-ID
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestProgressAndStreakRoutes(t *testing.T) {
	f := newRouteFixture(t)

	f.request(t, "POST", "/s/lessons/"+f.lessons[0].ID+"/complete")

	body := f.request(t, "GET", "/s/progress")
	assert.Equal(t, float64(50), body["total_xp"])
	assert.Equal(t, float64(1), body["current_streak"])

	body = f.request(t, "GET", "/s/streak")
	assert.Equal(t, float64(1), body["current_streak"])
	assert.Equal(t, float64(0), body["bonus_xp"])
}

func TestDailyTermRoute(t *testing.T) {
	f := newRouteFixture(t)

	body := f.request(t, "POST", "/s/daily-term")
	assert.Equal(t, float64(5), body["xp_earned"])
	assert.Equal(t, false, body["already_seen"])

	body = f.request(t, "POST", "/s/daily-term")
	assert.Equal(t, float64(0), body["xp_earned"])
	assert.Equal(t, true, body["already_seen"])
}

func TestReconcileRoute(t *testing.T) {
	f := newRouteFixture(t)

	f.request(t, "POST", "/s/lessons/"+f.lessons[0].ID+"/complete")

	body := f.request(t, "GET", "/s/admin/reconcile")
	assert.Equal(t, true, body["consistent"])
}
