package models

import "time"

// LessonProgress tracks one learner's state on one lesson. The composite
// unique index is the storage-level guard: at most one row per (learner,
// lesson), and Completed transitions false→true exactly once.
type LessonProgress struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	LearnerID string `gorm:"uniqueIndex:idx_learner_lesson;not null" json:"learner_id"`
	LessonID  string `gorm:"uniqueIndex:idx_learner_lesson;not null" json:"lesson_id"`
	CourseID  string `gorm:"index;not null" json:"course_id"` // denormalized for course recounts

	Completed   bool       `json:"completed" gorm:"default:false"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Attempts    int        `json:"attempts" gorm:"default:0"`

	Timestamps
}

// CourseProgress is the denormalized per-course rollup, recomputed every time
// a lesson of the course transitions to completed. CompletedAt is set once
// when Percentage first reaches 100 and never cleared.
type CourseProgress struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	LearnerID string `gorm:"uniqueIndex:idx_learner_course;not null" json:"learner_id"`
	CourseID  string `gorm:"uniqueIndex:idx_learner_course;not null" json:"course_id"`

	CompletedLessons int        `json:"completed_lessons" gorm:"default:0"`
	TotalLessons     int        `json:"total_lessons" gorm:"default:0"`
	Percentage       int        `json:"percentage" gorm:"default:0"` // floor(completed/total*100)
	CompletedAt      *time.Time `json:"completed_at,omitempty"`

	Timestamps
}
