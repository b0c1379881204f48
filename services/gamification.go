package services

import (
	"log"
	"time"

	"learning-progress-system/models"

	"gorm.io/gorm"
)

// GamificationService is the single entry point external callers use. It owns
// the transaction boundary around one completion request and sequences the
// tracker, the ledger, the streak calculator and the badge engine — no
// business rule lives here beyond that sequencing.
type GamificationService struct {
	DB                 *gorm.DB
	DefaultLessonXP    int64
	DailyTermXP        int64
	StreakBonusEnabled bool
}

func NewGamificationService(db *gorm.DB, defaultLessonXP, dailyTermXP int64, streakBonus bool) *GamificationService {
	return &GamificationService{
		DB:                 db,
		DefaultLessonXP:    defaultLessonXP,
		DailyTermXP:        dailyTermXP,
		StreakBonusEnabled: streakBonus,
	}
}

// OnLessonCompleted records a lesson completion end to end: duplicate check,
// progress mutation, ledger append, course rollup, optional streak bonus,
// badge evaluation. All-or-nothing — any failure rolls the whole thing back,
// and a retry is always safe.
func (s *GamificationService) OnLessonCompleted(externalUserID, lessonID string) (*CompletionResult, error) {
	var result *CompletionResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		tracker := NewProgressTracker(tx, s.DefaultLessonXP)

		learner, err := tracker.LockLearner(externalUserID)
		if err != nil {
			return err
		}

		res, err := tracker.CompleteLesson(learner, lessonID)
		if err != nil {
			return err
		}
		if res.Duplicate {
			// Idempotent replay — nothing was mutated, nothing left to do.
			result = res
			return nil
		}

		if s.StreakBonusEnabled {
			if err := s.applyStreakBonus(tx, tracker, learner); err != nil {
				return err
			}
		}

		snapshot, err := s.buildSnapshot(tx, learner)
		if err != nil {
			return err
		}
		newBadges, err := NewBadgeService(tx).Evaluate(learner.ID, snapshot)
		if err != nil {
			return err
		}
		if newBadges != nil {
			res.NewBadges = newBadges
		}

		result = res
		return nil
	})
	if err != nil {
		return nil, classifyTxError(err)
	}
	return result, nil
}

// applyStreakBonus appends at most one streak_bonus entry per UTC day, worth
// the policy-table amount for the learner's streak after this completion.
func (s *GamificationService) applyStreakBonus(tx *gorm.DB, tracker *ProgressTracker, learner *models.Learner) error {
	streak, err := NewStreakCalculator(tx).CurrentStreak(learner.ID, time.Now())
	if err != nil {
		return err
	}
	bonus := StreakBonusXP(streak)
	if bonus == 0 {
		return nil
	}

	granted, err := s.hasEntryToday(tx, learner.ID, models.ActivityStreakBonus)
	if err != nil || granted {
		return err
	}

	if err := tracker.awardXP(learner, bonus); err != nil {
		return err
	}
	if _, err := NewActivityLedger(tx).Append(learner.ID, models.ActivityStreakBonus, bonus, nil); err != nil {
		return err
	}
	log.Printf("🔥 Streak bonus: %s → %d days, +%d XP", learner.ExternalUserID, streak, bonus)
	return nil
}

// RecordDailyTerm grants the daily-term XP once per UTC day. A second view on
// the same day is a normal zero-reward response, mirroring the completion
// contract.
func (s *GamificationService) RecordDailyTerm(externalUserID string) (int64, error) {
	var earned int64
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		tracker := NewProgressTracker(tx, s.DefaultLessonXP)
		learner, err := tracker.LockLearner(externalUserID)
		if err != nil {
			return err
		}

		seen, err := s.hasEntryToday(tx, learner.ID, models.ActivityDailyTerm)
		if err != nil || seen {
			return err
		}

		if err := tracker.awardXP(learner, s.DailyTermXP); err != nil {
			return err
		}
		if _, err := NewActivityLedger(tx).Append(learner.ID, models.ActivityDailyTerm, s.DailyTermXP, nil); err != nil {
			return err
		}
		earned = s.DailyTermXP
		return nil
	})
	if err != nil {
		return 0, classifyTxError(err)
	}
	return earned, nil
}

func (s *GamificationService) hasEntryToday(tx *gorm.DB, learnerID, entryType string) (bool, error) {
	dayStart := truncateToDay(time.Now())
	var count int64
	err := tx.Model(&models.ActivityEntry{}).
		Where("learner_id = ? AND type = ? AND occurred_at >= ?", learnerID, entryType, dayStart).
		Count(&count).Error
	return count > 0, err
}

// buildSnapshot assembles the post-mutation state the badge engine rules on.
func (s *GamificationService) buildSnapshot(tx *gorm.DB, learner *models.Learner) (*ProgressSnapshot, error) {
	var lessonsCompleted int64
	err := tx.Model(&models.LessonProgress{}).
		Where("learner_id = ? AND completed = ?", learner.ID, true).
		Count(&lessonsCompleted).Error
	if err != nil {
		return nil, err
	}

	var rollups []models.CourseProgress
	if err := tx.Where("learner_id = ?", learner.ID).Find(&rollups).Error; err != nil {
		return nil, err
	}
	coursePercent := make(map[string]int, len(rollups))
	var coursesCompleted int64
	for _, cp := range rollups {
		coursePercent[cp.CourseID] = cp.Percentage
		if cp.Percentage == 100 {
			coursesCompleted++
		}
	}

	streak, err := NewStreakCalculator(tx).CurrentStreak(learner.ID, time.Now())
	if err != nil {
		return nil, err
	}

	return &ProgressSnapshot{
		TotalXP:          learner.TotalXP,
		LessonsCompleted: lessonsCompleted,
		CoursePercent:    coursePercent,
		CoursesCompleted: coursesCompleted,
		CurrentStreak:    streak,
	}, nil
}

// ResolveLearner maps the gateway's external user id to the local mirror row.
// Read paths use this; the mutation path uses LockLearner instead.
func (s *GamificationService) ResolveLearner(externalUserID string) (*models.Learner, error) {
	var learner models.Learner
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&learner).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Entity: "learner", ID: externalUserID}
		}
		return nil, err
	}
	return &learner, nil
}

// GetCurrentStreak derives the learner's streak as of now.
func (s *GamificationService) GetCurrentStreak(externalUserID string) (int, error) {
	learner, err := s.ResolveLearner(externalUserID)
	if err != nil {
		return 0, err
	}
	return NewStreakCalculator(s.DB).CurrentStreak(learner.ID, time.Now())
}

// GetCourseProgress returns the learner's course rollups (all, or one).
func (s *GamificationService) GetCourseProgress(externalUserID, courseID string) ([]models.CourseProgress, error) {
	learner, err := s.ResolveLearner(externalUserID)
	if err != nil {
		return nil, err
	}
	return NewProgressTracker(s.DB, s.DefaultLessonXP).GetCourseProgress(learner.ID, courseID)
}

// GetBadges returns the learner's granted badges with definitions.
func (s *GamificationService) GetBadges(externalUserID string) ([]GrantedBadge, error) {
	learner, err := s.ResolveLearner(externalUserID)
	if err != nil {
		return nil, err
	}
	return NewBadgeService(s.DB).ListGrants(learner.ID)
}

// GetRecentActivity returns the learner's ledger tail.
func (s *GamificationService) GetRecentActivity(externalUserID string, limit int) ([]models.ActivityEntry, error) {
	learner, err := s.ResolveLearner(externalUserID)
	if err != nil {
		return nil, err
	}
	return NewActivityLedger(s.DB).GetRecentEntries(learner.ID, limit)
}
