/*
budget.go - Budget projector (read-only)

PURPOSE:
  Derives "amount spent" per category/month by summing expense events
  at read time. Spent is never persisted as authoritative - it is a
  projection over the stores the write path maintains.

SEE ALSO:
  - store.go: EventsByCategory, BudgetStore
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Projector computes budget status from stored events.
type Projector struct {
	Store Store
}

// NewProjector creates a Projector over the store.
func NewProjector(store Store) *Projector {
	return &Projector{Store: store}
}

// BudgetStatus joins a budget row with its derived spent amount.
type BudgetStatus struct {
	Budget Budget
	Spent  decimal.Decimal
}

// Remaining returns limit minus spent (negative when over budget).
func (b BudgetStatus) Remaining() decimal.Decimal {
	return b.Budget.Limit.Sub(b.Spent)
}

// Spent sums expense events for a category in the given month.
func (p *Projector) Spent(ctx context.Context, categoryID CategoryID, month time.Month, year int) (decimal.Decimal, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	events, err := p.Store.EventsByCategory(ctx, categoryID, from, to)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load category events: %w", err)
	}

	spent := decimal.Zero
	for _, ev := range events {
		if ev.Type == EventExpense {
			spent = spent.Add(ev.Amount)
		}
	}
	return spent, nil
}

// Statuses returns every budget for a month joined with derived spend.
func (p *Projector) Statuses(ctx context.Context, month time.Month, year int) ([]BudgetStatus, error) {
	budgets, err := p.Store.BudgetsForPeriod(ctx, month, year)
	if err != nil {
		return nil, fmt.Errorf("load budgets: %w", err)
	}

	statuses := make([]BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		spent, err := p.Spent(ctx, b.CategoryID, b.Month, b.Year)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, BudgetStatus{Budget: b, Spent: spent})
	}
	return statuses, nil
}
