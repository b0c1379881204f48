package services

import (
	"fmt"
	"strings"
	"testing"

	"learning-progress-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a per-test in-memory database with the production schema.
func newTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func seedLearner(t *testing.T, db *gorm.DB, externalID string) *models.Learner {
	t.Helper()
	learner := models.Learner{
		ID:             uuid.NewString(),
		ExternalUserID: externalID,
		Username:       externalID,
		Level:          1,
	}
	require.NoError(t, db.Create(&learner).Error)
	return &learner
}

// seedCourse creates a course with one lesson per entry of xpRewards.
func seedCourse(t *testing.T, db *gorm.DB, title, track string, xpRewards ...int64) (*models.Course, []models.Lesson) {
	t.Helper()
	course := models.Course{
		ID:          uuid.NewString(),
		Title:       title,
		Slug:        strings.ToLower(strings.ReplaceAll(title, " ", "-")),
		Track:       track,
		LessonCount: len(xpRewards),
	}
	require.NoError(t, db.Create(&course).Error)

	lessons := make([]models.Lesson, len(xpRewards))
	for i, xp := range xpRewards {
		lessons[i] = models.Lesson{
			ID:            uuid.NewString(),
			CourseID:      course.ID,
			Title:         fmt.Sprintf("%s — lesson %d", title, i+1),
			SequenceOrder: i + 1,
			XPReward:      xp,
		}
		require.NoError(t, db.Create(&lessons[i]).Error)
	}
	return &course, lessons
}

func newGamification(db *gorm.DB) *GamificationService {
	return NewGamificationService(db, 20, 5, false)
}

func reloadLearner(t *testing.T, db *gorm.DB, id string) *models.Learner {
	t.Helper()
	var learner models.Learner
	require.NoError(t, db.Where("id = ?", id).First(&learner).Error)
	return &learner
}
