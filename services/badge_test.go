package services

import (
	"testing"

	"learning-progress-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedBadge(t *testing.T, db *BadgeService, code, triggerType, triggerValue string, order int) *models.Badge {
	t.Helper()
	badge := models.Badge{
		ID:            uuid.NewString(),
		Code:          code,
		Name:          code,
		TriggerType:   triggerType,
		TriggerValue:  triggerValue,
		SequenceOrder: order,
	}
	require.NoError(t, db.DB.Create(&badge).Error)
	return &badge
}

func TestEvaluateGrantsQualifyingRules(t *testing.T) {
	db := newTestDB(t)
	learner := seedLearner(t, db, "badge-1")
	svc := NewBadgeService(db)

	seedBadge(t, svc, "first-steps", models.TriggerFirstLesson, "", 1)
	seedBadge(t, svc, "xp-100", models.TriggerXPMilestone, "100", 2)
	seedBadge(t, svc, "xp-1000", models.TriggerXPMilestone, "1000", 3)
	seedBadge(t, svc, "week-streak", models.TriggerStreak, "7", 4)

	snap := &ProgressSnapshot{
		TotalXP:          150,
		LessonsCompleted: 3,
		CurrentStreak:    2,
	}
	awarded, err := svc.Evaluate(learner.ID, snap)
	require.NoError(t, err)
	// All rules evaluated independently; returned in definition order.
	assert.Equal(t, []string{"first-steps", "xp-100"}, awarded)
}

func TestEvaluateIsMonotonic(t *testing.T) {
	db := newTestDB(t)
	learner := seedLearner(t, db, "badge-2")
	svc := NewBadgeService(db)
	badge := seedBadge(t, svc, "xp-100", models.TriggerXPMilestone, "100", 1)

	snap := &ProgressSnapshot{TotalXP: 250}
	first, err := svc.Evaluate(learner.ID, snap)
	require.NoError(t, err)
	assert.Equal(t, []string{"xp-100"}, first)

	// Re-evaluating the same qualifying condition grants nothing new and
	// leaves exactly one row behind.
	second, err := svc.Evaluate(learner.ID, snap)
	require.NoError(t, err)
	assert.Empty(t, second)

	var grants int64
	require.NoError(t, db.Model(&models.BadgeGrant{}).
		Where("learner_id = ? AND badge_id = ?", learner.ID, badge.ID).
		Count(&grants).Error)
	assert.Equal(t, int64(1), grants)
}

func TestEvaluateCourseCompletedTrigger(t *testing.T) {
	db := newTestDB(t)
	learner := seedLearner(t, db, "badge-3")
	svc := NewBadgeService(db)
	seedBadge(t, svc, "ethics-master", models.TriggerCourseCompleted, "course-ethics", 1)

	snap := &ProgressSnapshot{CoursePercent: map[string]int{"course-ethics": 92}}
	awarded, err := svc.Evaluate(learner.ID, snap)
	require.NoError(t, err)
	assert.Empty(t, awarded)

	snap.CoursePercent["course-ethics"] = 100
	awarded, err = svc.Evaluate(learner.ID, snap)
	require.NoError(t, err)
	assert.Equal(t, []string{"ethics-master"}, awarded)
}

func TestEvaluateAllBasicCoursesTrigger(t *testing.T) {
	db := newTestDB(t)
	learner := seedLearner(t, db, "badge-4")
	svc := NewBadgeService(db)
	seedBadge(t, svc, "well-grounded", models.TriggerAllBasicCourses, "3", 1)

	awarded, err := svc.Evaluate(learner.ID, &ProgressSnapshot{CoursesCompleted: 2})
	require.NoError(t, err)
	assert.Empty(t, awarded)

	awarded, err = svc.Evaluate(learner.ID, &ProgressSnapshot{CoursesCompleted: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"well-grounded"}, awarded)
}

func TestEvaluateSkipsUnknownTrigger(t *testing.T) {
	db := newTestDB(t)
	learner := seedLearner(t, db, "badge-5")
	svc := NewBadgeService(db)
	seedBadge(t, svc, "mystery", "lunar_phase", "full", 1)

	awarded, err := svc.Evaluate(learner.ID, &ProgressSnapshot{TotalXP: 9999})
	require.NoError(t, err)
	assert.Empty(t, awarded)
}

func TestCompletionGrantsCourseBadge(t *testing.T) {
	db := newTestDB(t)
	learner := seedLearner(t, db, "badge-6")
	course, lessons := seedCourse(t, db, "Badged Course", "basic", 50, 50)
	badgeSvc := NewBadgeService(db)
	seedBadge(t, badgeSvc, "first-steps", models.TriggerFirstLesson, "", 1)
	seedBadge(t, badgeSvc, "course-done", models.TriggerCourseCompleted, course.ID, 2)
	svc := newGamification(db)

	res, err := svc.OnLessonCompleted(learner.ExternalUserID, lessons[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"first-steps"}, res.NewBadges)

	res, err = svc.OnLessonCompleted(learner.ExternalUserID, lessons[1].ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"course-done"}, res.NewBadges)
}

func TestSeedDefaultBadgesIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewBadgeService(db)

	require.NoError(t, svc.SeedDefaultBadges())
	require.NoError(t, svc.SeedDefaultBadges())

	var count int64
	require.NoError(t, db.Model(&models.Badge{}).Count(&count).Error)
	assert.Equal(t, int64(len(models.DefaultBadges)), count)
}

func TestListGrantsJoinsDefinitions(t *testing.T) {
	db := newTestDB(t)
	learner := seedLearner(t, db, "badge-7")
	svc := NewBadgeService(db)
	seedBadge(t, svc, "xp-100", models.TriggerXPMilestone, "100", 1)

	_, err := svc.Evaluate(learner.ID, &ProgressSnapshot{TotalXP: 120})
	require.NoError(t, err)

	grants, err := svc.ListGrants(learner.ID)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, "xp-100", grants[0].Code)
	assert.False(t, grants[0].GrantedAt.IsZero())
}
