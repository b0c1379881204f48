package models

import (
	"time"

	"gorm.io/gorm"
)

// Learner is a local snapshot of account data needed for gamification.
// Identity fields are populated by the sync worker from the Profile Service;
// XP and level are owned exclusively by the progress tracker.
type Learner struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // the profile service's UUID
	Username       string `gorm:"index;not null" json:"username"`
	Email          string `json:"email,omitempty"`

	// Core progression. TotalXP is a materialized cache of the activity
	// ledger sum; Level = floor(TotalXP/100)+1, maintained on every award.
	TotalXP int64 `json:"total_xp" gorm:"default:0"`
	Level   int   `json:"level" gorm:"default:1"`

	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`

	LastSeen *time.Time `json:"last_seen,omitempty"`

	Timestamps
}

// LevelForXP derives the level for a given XP total.
func LevelForXP(totalXP int64) int {
	return int(totalXP/100) + 1
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
