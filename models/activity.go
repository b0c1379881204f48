package models

import "time"

// Activity entry types. lesson_completed is the only type that qualifies for
// streak calculation.
const (
	ActivityLessonCompleted = "lesson_completed"
	ActivityCourseCompleted = "course_completed"
	ActivityDailyTerm       = "daily_term"
	ActivityStreakBonus     = "streak_bonus"
)

// ActivityEntry is the append-only gamification ledger. Rows are immutable
// once written — no code path updates or deletes them. The sum of Points per
// learner is the audit source of truth for Learner.TotalXP.
type ActivityEntry struct {
	ID        string  `gorm:"primaryKey;type:uuid" json:"id"`
	LearnerID string  `gorm:"index;not null" json:"learner_id"`
	Type      string  `gorm:"type:varchar(32);not null" json:"type"`
	Points    int64   `json:"points" gorm:"default:0"`
	LessonID  *string `gorm:"index" json:"lesson_id,omitempty"` // nil for non-lesson events

	OccurredAt time.Time `gorm:"index;autoCreateTime" json:"occurred_at"`
}
