/*
scheduler.go - Automated recurring transaction scheduler

PURPOSE:
  Periodically scans recurring templates whose NextRunDate has passed
  and materializes them into concrete transactions.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Delegates all semantics to ledger.Materializer; this file owns only
    the cadence
  - One broken template never blocks the others; the materializer
    isolates failures per template
  - Safe across restarts: materialized events carry per-period
    idempotency keys, so a rerun of an already-applied period is skipped

CONFIGURATION:
  - CheckInterval: How often to scan (default: 12 hours)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewRecurringScheduler(handler.Materializer)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - ledger/recurring.go: Materializer (the semantics)
  - handlers.go: RunTemplates endpoint (manual trigger)
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/rizkiyusra/moneymanager/ledger"
)

// RecurringScheduler materializes due recurring templates on a timer.
type RecurringScheduler struct {
	Materializer  *ledger.Materializer
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRecurringScheduler creates a new scheduler.
func NewRecurringScheduler(m *ledger.Materializer) *RecurringScheduler {
	return &RecurringScheduler{
		Materializer:  m,
		CheckInterval: 12 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (rs *RecurringScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	log.Printf("[Scheduler] Started with check interval: %v", rs.CheckInterval)
}

// Stop stops the scheduler.
func (rs *RecurringScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (rs *RecurringScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.scan()

	for {
		select {
		case <-rs.ticker.C:
			rs.scan()
		case <-rs.stop:
			return
		}
	}
}

func (rs *RecurringScheduler) scan() {
	ctx := context.Background()
	now := time.Now().UTC()

	result, err := rs.Materializer.Scan(ctx, now)
	if err != nil {
		log.Printf("[Scheduler] Error scanning templates: %v", err)
		return
	}

	for _, f := range result.Failures {
		log.Printf("[Scheduler] Template %s failed: %v", f.TemplateID, f.Err)
	}
	if result.Materialized > 0 || result.Skipped > 0 || len(result.Failures) > 0 {
		log.Printf("[Scheduler] Completed: %d materialized, %d skipped, %d failed",
			result.Materialized, result.Skipped, len(result.Failures))
	}
}

// RunNow triggers an immediate scan (for testing/admin).
func (rs *RecurringScheduler) RunNow() {
	rs.scan()
}
