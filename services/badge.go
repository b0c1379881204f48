package services

import (
	"log"
	"strconv"
	"time"

	"learning-progress-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressSnapshot is the post-mutation state the rule engine evaluates
// against. Built once per completion, inside the same transaction.
type ProgressSnapshot struct {
	TotalXP          int64
	LessonsCompleted int64
	CoursePercent    map[string]int // courseID → percentage
	CoursesCompleted int64          // courses at 100%
	CurrentStreak    int
}

type BadgeService struct {
	DB *gorm.DB
}

func NewBadgeService(db *gorm.DB) *BadgeService {
	return &BadgeService{DB: db}
}

// Evaluate checks every badge rule against the snapshot and grants the ones
// that newly qualify. All rules are evaluated independently — definition
// order only decides the order of the returned codes. Returns codes of new
// grants only.
func (s *BadgeService) Evaluate(learnerID string, snap *ProgressSnapshot) ([]string, error) {
	var badges []models.Badge
	if err := s.DB.Order("sequence_order ASC, created_at ASC").Find(&badges).Error; err != nil {
		return nil, err
	}

	var awarded []string
	for _, badge := range badges {
		if !s.qualifies(&badge, snap) {
			continue
		}
		grant := models.BadgeGrant{
			ID:        uuid.NewString(),
			LearnerID: learnerID,
			BadgeID:   badge.ID,
		}
		// ON CONFLICT DO NOTHING: a concurrent duplicate loses at the unique
		// constraint and is treated as already-granted, never as a failure.
		res := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&grant)
		if res.Error != nil {
			if isDuplicateKey(res.Error) {
				continue
			}
			return awarded, res.Error
		}
		if res.RowsAffected == 0 {
			continue // already granted
		}
		awarded = append(awarded, badge.Code)
		log.Printf("🎖️ Badge awarded: %s → %s", badge.Code, learnerID)
	}
	return awarded, nil
}

// qualifies dispatches on the trigger type — one case per rule variant.
func (s *BadgeService) qualifies(badge *models.Badge, snap *ProgressSnapshot) bool {
	switch badge.TriggerType {
	case models.TriggerFirstLesson:
		return snap.LessonsCompleted >= 1
	case models.TriggerXPMilestone:
		threshold, err := strconv.ParseInt(badge.TriggerValue, 10, 64)
		return err == nil && snap.TotalXP >= threshold
	case models.TriggerCourseCompleted:
		return snap.CoursePercent[badge.TriggerValue] == 100
	case models.TriggerAllBasicCourses:
		required, err := strconv.ParseInt(badge.TriggerValue, 10, 64)
		return err == nil && required > 0 && snap.CoursesCompleted >= required
	case models.TriggerStreak:
		required, err := strconv.Atoi(badge.TriggerValue)
		return err == nil && required > 0 && snap.CurrentStreak >= required
	default:
		log.Printf("⚠️ [BADGE] Unknown trigger type %q on badge %s — skipped", badge.TriggerType, badge.Code)
		return false
	}
}

// GrantedBadge is a grant joined with its definition for API responses.
type GrantedBadge struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IconURL     string    `json:"icon_url"`
	GrantedAt   time.Time `json:"granted_at"`
}

// ListGrants returns the learner's badges, oldest grant first.
func (s *BadgeService) ListGrants(learnerID string) ([]GrantedBadge, error) {
	var rows []GrantedBadge
	err := s.DB.Model(&models.BadgeGrant{}).
		Select("badge_grants.id, badges.code, badges.name, badges.description, badges.icon_url, badge_grants.granted_at").
		Joins("INNER JOIN badges ON badges.id = badge_grants.badge_id").
		Where("badge_grants.learner_id = ?", learnerID).
		Order("badge_grants.granted_at ASC").
		Scan(&rows).Error
	return rows, err
}

// SeedDefaultBadges inserts the default rule set, skipping codes that already
// exist so admin edits survive restarts.
func (s *BadgeService) SeedDefaultBadges() error {
	for _, badge := range models.DefaultBadges {
		var count int64
		if err := s.DB.Model(&models.Badge{}).Where("code = ?", badge.Code).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		badge.ID = uuid.NewString()
		if err := s.DB.Create(&badge).Error; err != nil {
			return err
		}
	}
	return nil
}
