package services

import (
	"time"

	"learning-progress-system/models"

	"gorm.io/gorm"
)

// Day boundaries are fixed platform-wide to UTC. The streak is always
// re-derived from the ledger — there is no stored streak counter to drift.
type StreakCalculator struct {
	DB *gorm.DB
}

func NewStreakCalculator(db *gorm.DB) *StreakCalculator {
	return &StreakCalculator{DB: db}
}

// CurrentStreak returns the learner's consecutive-day engagement streak as of
// the given time. A streak lapses when more than one full day passed since
// the last qualifying activity.
func (s *StreakCalculator) CurrentStreak(learnerID string, asOf time.Time) (int, error) {
	var stamps []time.Time
	err := s.DB.Model(&models.ActivityEntry{}).
		Where("learner_id = ? AND type = ?", learnerID, models.ActivityLessonCompleted).
		Order("occurred_at DESC").
		Pluck("occurred_at", &stamps).Error
	if err != nil {
		return 0, err
	}
	if len(stamps) == 0 {
		return 0, nil
	}

	days := make(map[string]bool, len(stamps))
	for _, ts := range stamps {
		days[dayKey(ts)] = true
	}

	today := truncateToDay(asOf)
	last := truncateToDay(stamps[0]) // newest first
	if today.Sub(last) > 24*time.Hour {
		return 0, nil // lapsed
	}

	// Walk backward from the most recent active day, stop at the first gap.
	streak := 0
	for d := last; days[dayKey(d)]; d = d.AddDate(0, 0, -1) {
		streak++
	}
	return streak, nil
}

// StreakBonusXP maps a streak length to its daily bonus. Policy table only —
// applying the bonus is the façade's call.
func StreakBonusXP(days int) int64 {
	switch {
	case days >= 7:
		return 25
	case days >= 3:
		return 15
	case days >= 2:
		return 10
	default:
		return 0
	}
}

func truncateToDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
