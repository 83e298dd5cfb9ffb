/*
Package ledger provides the core ledger consistency engine.

PURPOSE:
  This package contains the domain types and algorithms that keep each
  asset's cached balance consistent with the history of financial events
  applied to it: applying events, pairing transfers, rolling back edits,
  and materializing recurring templates.

KEY CONCEPTS IN THIS FILE (types.go):
  - Asset: A money container (cash, bank, e-wallet) with a cached balance
  - Transaction: A ledger event affecting exactly one asset's balance
  - TransferLink: Pairs a transfer_out event with its transfer_in twin
  - RecurringTemplate: A rule that periodically generates a transaction

DESIGN PRINCIPLES:
  1. Single writer: asset.Balance is mutated only by the engine (Service,
     transfer coordinator, edit engine) - never by callers directly
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Type Safety: Strong typing for IDs prevents mixing asset/event IDs
  4. Atomicity: Event writes and balance writes commit as one unit

USAGE:
  svc := ledger.NewService(store)
  id, err := svc.Apply(ctx, ledger.ApplyInput{
      Type:          ledger.EventExpense,
      Amount:        decimal.NewFromInt(30000),
      SourceAssetID: "asset-1",
      Date:          time.Now(),
  })

SEE ALSO:
  - effect.go: Signed balance delta per event type
  - service.go: Validated apply/unapply against the store
  - transfer.go: Two-legged atomic transfers
  - edit.go: Rollback-and-reapply edits
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AssetID string
type EventID string
type CategoryID string
type TemplateID string
type LinkID string
type BudgetID string

// =============================================================================
// ASSET - Money container with a cached balance
// =============================================================================

type AssetType string

const (
	AssetCash    AssetType = "cash"
	AssetBank    AssetType = "bank"
	AssetEWallet AssetType = "ewallet"
	AssetOther   AssetType = "other"
)

// Asset holds a cached balance maintained incrementally by the engine.
// Balance is authoritative between operations; Reconcile recomputes it
// from full history to correct drift.
type Asset struct {
	ID        AssetID
	Name      string
	Type      AssetType
	Balance   decimal.Decimal
	Currency  string
	Active    bool
	SortOrder int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// TRANSACTION - Ledger event (immutable identity)
// =============================================================================

type EventType string

const (
	EventIncome      EventType = "income"
	EventExpense     EventType = "expense"
	EventTransferOut EventType = "transfer_out"
	EventTransferIn  EventType = "transfer_in"
)

// IsTransfer reports whether the type is one leg of a transfer pair.
func (t EventType) IsTransfer() bool {
	return t == EventTransferOut || t == EventTransferIn
}

// IsOutflow reports whether the type debits its source asset.
func (t EventType) IsOutflow() bool {
	return t == EventExpense || t == EventTransferOut
}

// Transaction is one financial occurrence affecting exactly one asset.
// CounterAssetID is set only on transfer legs and points at the paired
// asset. Amount is always positive; the sign comes from Effect.
type Transaction struct {
	ID             EventID
	SourceAssetID  AssetID
	CounterAssetID AssetID // empty unless transfer leg
	CategoryID     CategoryID
	Type           EventType
	Amount         decimal.Decimal
	Title          string
	Note           string
	Date           time.Time
	IdempotencyKey string // set by the recurring materializer
	CreatedAt      time.Time
}

// =============================================================================
// TRANSFER LINK - Associates the two legs of a transfer
// =============================================================================

// TransferLink pairs exactly one transfer_out event with exactly one
// transfer_in event. Created atomically with both legs; both legs exist
// or neither does.
type TransferLink struct {
	ID         LinkID
	OutEventID EventID
	InEventID  EventID
}

// =============================================================================
// RECURRING TEMPLATE - Rule that periodically generates a transaction
// =============================================================================

type Frequency string

const (
	FreqDaily   Frequency = "daily"
	FreqWeekly  Frequency = "weekly"
	FreqMonthly Frequency = "monthly"
	FreqYearly  Frequency = "yearly"
)

// Next returns the run date one period after t.
func (f Frequency) Next(t time.Time) time.Time {
	switch f {
	case FreqDaily:
		return t.AddDate(0, 0, 1)
	case FreqWeekly:
		return t.AddDate(0, 0, 7)
	case FreqMonthly:
		return t.AddDate(0, 1, 0)
	case FreqYearly:
		return t.AddDate(1, 0, 0)
	}
	return t
}

// Valid reports whether f is a known frequency tag.
func (f Frequency) Valid() bool {
	switch f {
	case FreqDaily, FreqWeekly, FreqMonthly, FreqYearly:
		return true
	}
	return false
}

// RecurringTemplate generates one concrete transaction per due period.
// NextRunDate is advanced only by the materializer (or reset by the user
// through template CRUD).
type RecurringTemplate struct {
	ID          TemplateID
	Title       string
	Amount      decimal.Decimal
	IsIncome    bool
	CategoryID  CategoryID
	AssetID     AssetID
	Frequency   Frequency
	NextRunDate time.Time
	CreatedAt   time.Time
}

// =============================================================================
// CATEGORY
// =============================================================================

type Category struct {
	ID        CategoryID
	Name      string
	IsIncome  bool
	SortOrder int
	CreatedAt time.Time
}

// =============================================================================
// BUDGET - Limit per category/month; spent is always derived
// =============================================================================

// Budget stores only the limit. The spent figure is computed by the
// Projector from expense events at read time and is never persisted.
type Budget struct {
	ID         BudgetID
	CategoryID CategoryID
	Month      time.Month
	Year       int
	Limit      decimal.Decimal
	CreatedAt  time.Time
}
