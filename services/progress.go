package services

import (
	"log"
	"time"

	"learning-progress-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CompletionResult is the consolidated outcome of one completion request.
// A duplicate replay returns XPEarned 0 and no badges, with the current
// course snapshot — never an error.
type CompletionResult struct {
	XPEarned       int64                  `json:"xp_earned"`
	NewBadges      []string               `json:"new_badges"`
	CourseProgress *models.CourseProgress `json:"course_progress"`
	Duplicate      bool                   `json:"duplicate,omitempty"`
}

// ProgressTracker owns LessonProgress and CourseProgress mutation. It is
// constructed over the façade's transaction handle — every method here runs
// inside that transaction.
type ProgressTracker struct {
	DB              *gorm.DB
	DefaultLessonXP int64
}

func NewProgressTracker(db *gorm.DB, defaultLessonXP int64) *ProgressTracker {
	return &ProgressTracker{DB: db, DefaultLessonXP: defaultLessonXP}
}

// lockForUpdate acquires a row-level lock where the dialect supports it.
// SQLite (tests) serializes writers on its own.
func lockForUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "postgres" {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

// LockLearner loads the learner row by external id and holds it FOR UPDATE
// for the rest of the transaction. Every completion for the same learner
// serializes on this lock, so no two can both see a lesson as incomplete.
func (t *ProgressTracker) LockLearner(externalUserID string) (*models.Learner, error) {
	var learner models.Learner
	err := lockForUpdate(t.DB).Where("external_user_id = ?", externalUserID).First(&learner).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Entity: "learner", ID: externalUserID}
		}
		return nil, err
	}
	return &learner, nil
}

// CompleteLesson is the mutation core of a completion request. The learner
// row must already be locked (LockLearner). Badge evaluation is the façade's
// next step — NewBadges is left empty here.
func (t *ProgressTracker) CompleteLesson(learner *models.Learner, lessonID string) (*CompletionResult, error) {
	lesson, err := NewContentService(t.DB).GetLesson(lessonID)
	if err != nil {
		return nil, err
	}

	progress, err := t.ensureLessonProgress(learner.ID, lesson)
	if err != nil {
		return nil, err
	}

	if progress.Completed {
		// Idempotent replay: no mutation, zero rewards, current snapshot.
		snapshot, err := t.courseSnapshot(learner.ID, lesson.CourseID)
		if err != nil {
			return nil, err
		}
		return &CompletionResult{XPEarned: 0, NewBadges: []string{}, CourseProgress: snapshot, Duplicate: true}, nil
	}

	now := time.Now().UTC()
	progress.Completed = true
	progress.CompletedAt = &now
	progress.Attempts++
	if err := t.DB.Save(progress).Error; err != nil {
		return nil, err
	}

	xp := lesson.XPReward
	if xp <= 0 {
		xp = t.DefaultLessonXP
	}

	if err := t.awardXP(learner, xp); err != nil {
		return nil, err
	}

	if _, err := NewActivityLedger(t.DB).Append(learner.ID, models.ActivityLessonCompleted, xp, &lesson.ID); err != nil {
		return nil, err
	}

	courseProgress, err := t.recomputeCourseProgress(learner.ID, lesson.CourseID)
	if err != nil {
		return nil, err
	}

	log.Printf("📚 Lesson completed: %s → lesson=%s, XP=%d, course=%d%%",
		learner.ExternalUserID, lesson.ID, xp, courseProgress.Percentage)

	return &CompletionResult{XPEarned: xp, NewBadges: []string{}, CourseProgress: courseProgress}, nil
}

// ensureLessonProgress lazily creates the (learner, lesson) row. A concurrent
// creator winning the unique constraint is re-read, not surfaced — losing
// that race means the row simply already exists.
func (t *ProgressTracker) ensureLessonProgress(learnerID string, lesson *models.Lesson) (*models.LessonProgress, error) {
	var progress models.LessonProgress
	err := t.DB.Where("learner_id = ? AND lesson_id = ?", learnerID, lesson.ID).First(&progress).Error
	if err == nil {
		return &progress, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	progress = models.LessonProgress{
		ID:        uuid.NewString(),
		LearnerID: learnerID,
		LessonID:  lesson.ID,
		CourseID:  lesson.CourseID,
	}
	if err := t.DB.Create(&progress).Error; err != nil {
		if isDuplicateKey(err) {
			if err := t.DB.Where("learner_id = ? AND lesson_id = ?", learnerID, lesson.ID).First(&progress).Error; err != nil {
				return nil, err
			}
			return &progress, nil
		}
		return nil, err
	}
	return &progress, nil
}

// awardXP bumps the cached counter and keeps the derived level in step.
func (t *ProgressTracker) awardXP(learner *models.Learner, xp int64) error {
	learner.TotalXP += xp
	if newLevel := models.LevelForXP(learner.TotalXP); newLevel > learner.Level {
		learner.Level = newLevel
		now := time.Now().UTC()
		learner.LastLevelUpAt = &now
	}
	return t.DB.Save(learner).Error
}

// recomputeCourseProgress re-counts completed lessons for the course and
// rewrites the rollup. CompletedAt is set exactly once, on the first time the
// percentage reaches 100; the transition also gets a zero-point ledger entry.
func (t *ProgressTracker) recomputeCourseProgress(learnerID, courseID string) (*models.CourseProgress, error) {
	total, err := NewContentService(t.DB).GetLessonCount(courseID)
	if err != nil {
		return nil, err
	}

	var completed int64
	err = t.DB.Model(&models.LessonProgress{}).
		Where("learner_id = ? AND course_id = ? AND completed = ?", learnerID, courseID, true).
		Count(&completed).Error
	if err != nil {
		return nil, err
	}

	percentage := 0
	if total > 0 {
		percentage = int(completed) * 100 / total
	}

	var progress models.CourseProgress
	err = t.DB.Where("learner_id = ? AND course_id = ?", learnerID, courseID).First(&progress).Error
	if err == gorm.ErrRecordNotFound {
		progress = models.CourseProgress{
			ID:        uuid.NewString(),
			LearnerID: learnerID,
			CourseID:  courseID,
		}
	} else if err != nil {
		return nil, err
	}

	progress.CompletedLessons = int(completed)
	progress.TotalLessons = total
	progress.Percentage = percentage

	if percentage == 100 && progress.CompletedAt == nil {
		now := time.Now().UTC()
		progress.CompletedAt = &now
		if _, err := NewActivityLedger(t.DB).Append(learnerID, models.ActivityCourseCompleted, 0, nil); err != nil {
			return nil, err
		}
		log.Printf("🏁 Course completed: learner=%s, course=%s", learnerID, courseID)
	}

	if err := t.DB.Save(&progress).Error; err != nil {
		return nil, err
	}
	return &progress, nil
}

// courseSnapshot reads the current rollup without mutating anything, building
// an empty one if the learner never touched the course.
func (t *ProgressTracker) courseSnapshot(learnerID, courseID string) (*models.CourseProgress, error) {
	var progress models.CourseProgress
	err := t.DB.Where("learner_id = ? AND course_id = ?", learnerID, courseID).First(&progress).Error
	if err == gorm.ErrRecordNotFound {
		total, err := NewContentService(t.DB).GetLessonCount(courseID)
		if err != nil {
			return nil, err
		}
		return &models.CourseProgress{LearnerID: learnerID, CourseID: courseID, TotalLessons: total}, nil
	}
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// GetCourseProgress returns one course rollup, or all of the learner's
// rollups when courseID is empty. Read-only.
func (t *ProgressTracker) GetCourseProgress(learnerID, courseID string) ([]models.CourseProgress, error) {
	db := t.DB.Where("learner_id = ?", learnerID)
	if courseID != "" {
		db = db.Where("course_id = ?", courseID)
	}
	var rollups []models.CourseProgress
	if err := db.Order("updated_at DESC").Find(&rollups).Error; err != nil {
		return nil, err
	}
	if courseID != "" && len(rollups) == 0 {
		snapshot, err := t.courseSnapshot(learnerID, courseID)
		if err != nil {
			return nil, err
		}
		rollups = append(rollups, *snapshot)
	}
	return rollups, nil
}
