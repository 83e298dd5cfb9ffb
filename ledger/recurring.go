/*
recurring.go - Recurring transaction materializer

PURPOSE:
  Turns recurring templates into concrete ledger events, once per due
  period. Invoked on a timer by an external scheduler; the engine never
  manages its own cadence.

PER-TEMPLATE ISOLATION:
  Each due template is processed independently. One template failing
  (say, its asset was deleted) does not stop the others; its
  NextRunDate is left unadvanced so the next scan retries it.

AT-LEAST-ONCE, MADE IDEMPOTENT:
  A crash between applying the event and advancing NextRunDate would
  re-materialize on the next scan. Every materialized event therefore
  carries an idempotency key derived from (template id, period). A
  duplicate-key result on retry means the period was already
  materialized: the scan counts it as skipped and still advances the
  template.

SEE ALSO:
  - service.go: Apply (the single validated write path)
  - api/scheduler.go: The timer that invokes Scan
*/
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Materializer scans due recurring templates and creates the concrete
// transactions they describe.
type Materializer struct {
	Service *Service
}

// NewMaterializer creates a Materializer on top of the service.
func NewMaterializer(svc *Service) *Materializer {
	return &Materializer{Service: svc}
}

// TemplateFailure records one template the scan could not materialize.
type TemplateFailure struct {
	TemplateID TemplateID
	Err        error
}

// ScanResult summarizes one materializer invocation.
type ScanResult struct {
	Materialized int
	Skipped      int // periods already materialized on a previous run
	Failures     []TemplateFailure
}

// Scan materializes every template with NextRunDate <= now. It returns
// an error only when the due-template scan itself cannot run; template
// failures are reported in the result and retried on the next tick.
func (m *Materializer) Scan(ctx context.Context, now time.Time) (ScanResult, error) {
	due, err := m.Service.Store.DueTemplates(ctx, now)
	if err != nil {
		return ScanResult{}, fmt.Errorf("scan due templates: %w", err)
	}

	var result ScanResult
	for _, tmpl := range due {
		materialized, err := m.materialize(ctx, tmpl)
		if err != nil {
			result.Failures = append(result.Failures, TemplateFailure{
				TemplateID: tmpl.ID,
				Err:        err,
			})
			continue
		}
		if materialized {
			result.Materialized++
		} else {
			result.Skipped++
		}
	}
	return result, nil
}

// materialize creates the concrete event for one template and advances
// its NextRunDate by one period. Returns false when the period had
// already been materialized by a previous run.
func (m *Materializer) materialize(ctx context.Context, tmpl RecurringTemplate) (bool, error) {
	eventType := EventExpense
	if tmpl.IsIncome {
		eventType = EventIncome
	}

	created := true
	_, err := m.Service.Apply(ctx, ApplyInput{
		Type:           eventType,
		Amount:         tmpl.Amount,
		Title:          tmpl.Title,
		Date:           tmpl.NextRunDate,
		SourceAssetID:  tmpl.AssetID,
		CategoryID:     tmpl.CategoryID,
		IdempotencyKey: MaterializationKey(tmpl.ID, tmpl.NextRunDate),
	})
	if errors.Is(err, ErrDuplicateIdempotencyKey) {
		// Already materialized on a run that died before advancing
		// the template. Advance now without a second event.
		created = false
	} else if err != nil {
		return false, err
	}

	tmpl.NextRunDate = tmpl.Frequency.Next(tmpl.NextRunDate)
	if err := m.Service.Store.SaveTemplate(ctx, tmpl); err != nil {
		return false, fmt.Errorf("advance template: %w", err)
	}
	return created, nil
}

// MaterializationKey is the idempotency key for one (template, period)
// materialization.
func MaterializationKey(id TemplateID, period time.Time) string {
	return fmt.Sprintf("recurring:%s:%s", id, period.Format("2006-01-02"))
}
