package models

// Course is read-only content reference data, owned by the content service.
// The engine never creates or mutates courses.
type Course struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Title       string `gorm:"not null" json:"title"`
	Slug        string `gorm:"uniqueIndex" json:"slug"`
	Track       string `gorm:"type:varchar(32);default:'basic'" json:"track"` // basic, advanced, elective
	LessonCount int    `json:"lesson_count" gorm:"default:0"`

	Timestamps
}

// Lesson is read-only content reference data, owned by the content service.
// XPReward of 0 means "not configured" — the tracker applies the platform default.
type Lesson struct {
	ID            string `gorm:"primaryKey;type:uuid" json:"id"`
	CourseID      string `gorm:"index;not null" json:"course_id"`
	Title         string `gorm:"not null" json:"title"`
	SequenceOrder int    `json:"sequence_order" gorm:"default:0"`
	XPReward      int64  `json:"xp_reward" gorm:"default:0"`

	Timestamps
}
