package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// NotFoundError: a referenced learner, lesson or course does not exist.
// Not retryable — the request itself is wrong.
type NotFoundError struct {
	Entity string // "learner", "lesson", "course", "badge"
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// IntegrityViolationError: the ledger sum disagrees with the cached XP
// counter. Indicates a bug or data corruption; reported, never auto-fixed.
type IntegrityViolationError struct {
	LearnerID string
	LedgerSum int64
	TotalXP   int64
}

func (e *IntegrityViolationError) Error() string {
	return fmt.Sprintf("ledger drift for learner %s: ledger sum=%d, total_xp=%d",
		e.LearnerID, e.LedgerSum, e.TotalXP)
}

// TransientStorageError: the underlying transaction could not complete
// (deadlock, serialization failure, timeout). Safe to retry — completion is
// idempotent, so a replay of a committed operation takes the duplicate path.
type TransientStorageError struct {
	Err error
}

func (e *TransientStorageError) Error() string {
	return fmt.Sprintf("transient storage failure (retry safe): %v", e.Err)
}

func (e *TransientStorageError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsRetryable reports whether the caller may safely retry the operation.
func IsRetryable(err error) bool {
	var tr *TransientStorageError
	return errors.As(err, &tr)
}

// Postgres SQLSTATEs: 40001 serialization_failure, 40P01 deadlock_detected,
// 55P03 lock_not_available, 57014 query_canceled (statement timeout).
var transientSQLStates = []string{"40001", "40P01", "55P03", "57014"}

// classifyTxError maps transaction failures per the propagation policy:
// NotFound passes through verbatim, storage-level races/timeouts become
// retryable, everything else stays as-is.
func classifyTxError(err error) error {
	if err == nil || IsNotFound(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransientStorageError{Err: err}
	}
	msg := err.Error()
	for _, state := range transientSQLStates {
		if strings.Contains(msg, state) {
			return &TransientStorageError{Err: err}
		}
	}
	return err
}

// isDuplicateKey reports whether err is a unique-constraint violation.
// Requires TranslateError on the gorm config.
func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
