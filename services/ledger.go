package services

import (
	"log"
	"time"

	"learning-progress-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActivityLedger owns the append-only activity ledger. Pure inserts — no
// read-modify-write, no business logic. The ledger is the audit source of
// truth for Learner.TotalXP; Reconcile compares the two and reports drift.
type ActivityLedger struct {
	DB *gorm.DB
}

func NewActivityLedger(db *gorm.DB) *ActivityLedger {
	return &ActivityLedger{DB: db}
}

// Append inserts one immutable ledger entry and returns its id.
// lessonID may be nil for non-lesson events (daily term, streak bonus).
func (s *ActivityLedger) Append(learnerID, entryType string, points int64, lessonID *string) (string, error) {
	entry := models.ActivityEntry{
		ID:         uuid.NewString(),
		LearnerID:  learnerID,
		Type:       entryType,
		Points:     points,
		LessonID:   lessonID,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.DB.Create(&entry).Error; err != nil {
		return "", err
	}
	return entry.ID, nil
}

// SumPoints returns the ledger total for one learner. Audit path only — the
// hot path trusts the learner's cached TotalXP.
func (s *ActivityLedger) SumPoints(learnerID string) (int64, error) {
	var sum int64
	err := s.DB.Model(&models.ActivityEntry{}).
		Where("learner_id = ?", learnerID).
		Select("COALESCE(SUM(points), 0)").
		Scan(&sum).Error
	return sum, err
}

// GetRecentEntries returns the learner's ledger tail, newest first.
func (s *ActivityLedger) GetRecentEntries(learnerID string, limit int) ([]models.ActivityEntry, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	var entries []models.ActivityEntry
	err := s.DB.Where("learner_id = ?", learnerID).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// CheckLearner verifies ledger sum == cached counter for one learner.
// Drift is a data-integrity error — reported, never silently corrected.
func (s *ActivityLedger) CheckLearner(learner *models.Learner) error {
	sum, err := s.SumPoints(learner.ID)
	if err != nil {
		return err
	}
	if sum != learner.TotalXP {
		return &IntegrityViolationError{
			LearnerID: learner.ID,
			LedgerSum: sum,
			TotalXP:   learner.TotalXP,
		}
	}
	return nil
}

// Reconcile sweeps all learners and logs every drifted counter. Returns the
// violations found so on-demand callers (admin endpoint) can report them.
func (s *ActivityLedger) Reconcile() ([]IntegrityViolationError, error) {
	var violations []IntegrityViolationError
	var learners []models.Learner
	if err := s.DB.Find(&learners).Error; err != nil {
		return nil, err
	}
	for i := range learners {
		if err := s.CheckLearner(&learners[i]); err != nil {
			if iv, ok := err.(*IntegrityViolationError); ok {
				log.Printf("🚨 [LEDGER] %v", iv)
				violations = append(violations, *iv)
				continue
			}
			return violations, err
		}
	}
	return violations, nil
}
