package models

import (
	"time"
)

// Badge trigger types. Each one maps to a single evaluator in the badge rule
// engine; adding a trigger means adding a constant and an evaluator.
const (
	TriggerFirstLesson     = "first_lesson"
	TriggerXPMilestone     = "xp_milestone"
	TriggerCourseCompleted = "course_completed"
	TriggerAllBasicCourses = "all_basic_courses"
	TriggerStreak          = "streak"
)

// Badge: declarative rule definition (seeded at startup, editable via admin API).
// TriggerValue is a string-encoded threshold: an XP amount, a course id, a
// course count or a streak-day count depending on TriggerType.
type Badge struct {
	ID            string `gorm:"primaryKey;type:uuid" json:"id"`
	Code          string `gorm:"uniqueIndex;not null" json:"code"` // e.g., "first-steps", "xp-500"
	Name          string `gorm:"not null" json:"name"`
	Description   string `json:"description"`
	IconURL       string `gorm:"type:text" json:"icon_url"` // R2 URL to SVG/png
	TriggerType   string `gorm:"type:varchar(32);not null" json:"trigger_type"`
	TriggerValue  string `gorm:"type:varchar(64)" json:"trigger_value"` // unused for first_lesson
	SequenceOrder int    `json:"sequence_order" gorm:"default:0"`       // order in evaluation/response

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// BadgeGrant: awarded instance. The composite unique index on
// (learner_id, badge_id) is the authoritative at-most-once guard — a
// concurrent duplicate insert loses at the constraint, not in app code.
type BadgeGrant struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	LearnerID string    `gorm:"uniqueIndex:idx_learner_badge;not null" json:"learner_id"`
	BadgeID   string    `gorm:"uniqueIndex:idx_learner_badge;not null" json:"badge_id"`
	GrantedAt time.Time `gorm:"autoCreateTime" json:"granted_at"`
}

// DefaultBadges seed the rule set on first boot (skipped for codes that
// already exist, so admin edits survive restarts).
var DefaultBadges = []Badge{
	{
		Code:          "first-steps",
		Name:          "First Steps",
		Description:   "Completed your first lesson",
		TriggerType:   TriggerFirstLesson,
		SequenceOrder: 1,
	},
	{
		Code:          "xp-100",
		Name:          "Getting Warmed Up",
		Description:   "Earned 100 XP",
		TriggerType:   TriggerXPMilestone,
		TriggerValue:  "100",
		SequenceOrder: 2,
	},
	{
		Code:          "xp-500",
		Name:          "Dedicated Learner",
		Description:   "Earned 500 XP",
		TriggerType:   TriggerXPMilestone,
		TriggerValue:  "500",
		SequenceOrder: 3,
	},
	{
		Code:          "week-streak",
		Name:          "Week Streak",
		Description:   "Learned 7 days in a row",
		TriggerType:   TriggerStreak,
		TriggerValue:  "7",
		SequenceOrder: 4,
	},
	{
		Code:          "well-grounded",
		Name:          "Well Grounded",
		Description:   "Finished 3 basic courses",
		TriggerType:   TriggerAllBasicCourses,
		TriggerValue:  "3",
		SequenceOrder: 5,
	},
}
