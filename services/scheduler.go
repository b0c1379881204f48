// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartReconciliationScheduler runs the ledger/counter consistency sweep on
// an interval. Drift is logged and counted, never corrected — see Reconcile.
func (s *ActivityLedger) StartReconciliationScheduler(interval time.Duration) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			violations, err := s.Reconcile()
			if err != nil {
				log.Printf("[Reconciler] sweep error: %v", err)
				return
			}
			if len(violations) > 0 {
				log.Printf("🚨 [Reconciler] %d learner(s) with ledger drift — investigate, do not auto-fix", len(violations))
			} else {
				log.Printf("✅ [Reconciler] ledger consistent")
			}
		}),
	)
}
