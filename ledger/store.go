/*
store.go - Persistence interfaces for the ledger engine

PURPOSE:
  Defines the interface between the engine and the database. The engine
  never talks to SQL directly; it expresses every operation against
  these interfaces, and the store decides how to persist.

KEY INTERFACES:
  AssetStore:    Asset records (the cached balance lives here)
  EventStore:    Ledger events (insert, point update, delete, queries)
  LinkStore:     Transfer pair associations
  TemplateStore: Recurring templates and the due-template scan
  CategoryStore: Category records
  BudgetStore:   Budget limit records
  Store:         All of the above
  TxStore:       Store plus WithTx for atomic units

ATOMIC UNITS:
  Every engine operation that touches both an event and a balance runs
  inside WithTx. Either every write in the unit is visible or none is -
  no reader ever sees an event persisted with a stale balance.

IDEMPOTENCY:
  Events may carry an idempotency key (set by the recurring
  materializer). Inserting a second event with the same key fails with
  ErrDuplicateIdempotencyKey, which makes at-least-once materialization
  safe.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite (sql.Tx atomic units)
  - ledger/store/memory.go: In-memory for testing (snapshot rollback)

SEE ALSO:
  - service.go: The main consumer of these interfaces
*/
package ledger

import (
	"context"
	"time"
)

// =============================================================================
// ASSET STORE
// =============================================================================

// AssetStore persists asset records. GetAsset returns (nil, nil) when the
// asset does not exist; the engine converts that to ErrAssetNotFound.
type AssetStore interface {
	GetAsset(ctx context.Context, id AssetID) (*Asset, error)
	SaveAsset(ctx context.Context, a Asset) error
	DeleteAsset(ctx context.Context, id AssetID) error
	ListAssets(ctx context.Context) ([]Asset, error)
}

// =============================================================================
// EVENT STORE
// =============================================================================

// EventStore persists ledger events.
type EventStore interface {
	// InsertEvent persists a new event. Fails with
	// ErrDuplicateIdempotencyKey if the key already exists.
	InsertEvent(ctx context.Context, tx Transaction) error

	// GetEvent returns (nil, nil) when the event does not exist.
	GetEvent(ctx context.Context, id EventID) (*Transaction, error)

	// UpdateEvent overwrites the mutable fields of an existing event.
	// Identity, source asset, and creation timestamp never change.
	UpdateEvent(ctx context.Context, tx Transaction) error

	DeleteEvent(ctx context.Context, id EventID) error

	// EventsByAsset returns all events whose source is the given asset,
	// ordered by event date then creation time.
	EventsByAsset(ctx context.Context, assetID AssetID) ([]Transaction, error)

	// EventsByCounterAsset returns transfer legs on OTHER assets that
	// reference the given asset as their counter side. Used by the
	// deletion cascade to repair orphaned legs.
	EventsByCounterAsset(ctx context.Context, assetID AssetID) ([]Transaction, error)

	// EventsByCategory returns events for a category in [from, to).
	EventsByCategory(ctx context.Context, categoryID CategoryID, from, to time.Time) ([]Transaction, error)

	// HasIdempotencyKey checks whether an event with the key exists.
	HasIdempotencyKey(ctx context.Context, key string) (bool, error)
}

// =============================================================================
// TRANSFER LINK STORE
// =============================================================================

type LinkStore interface {
	InsertLink(ctx context.Context, link TransferLink) error

	// LinkByEvent finds the link referencing the event as either leg.
	// Returns (nil, nil) when the event is not part of a transfer.
	LinkByEvent(ctx context.Context, eventID EventID) (*TransferLink, error)

	DeleteLink(ctx context.Context, id LinkID) error
}

// =============================================================================
// RECURRING TEMPLATE STORE
// =============================================================================

type TemplateStore interface {
	SaveTemplate(ctx context.Context, t RecurringTemplate) error
	GetTemplate(ctx context.Context, id TemplateID) (*RecurringTemplate, error)
	DeleteTemplate(ctx context.Context, id TemplateID) error
	ListTemplates(ctx context.Context) ([]RecurringTemplate, error)

	// DueTemplates returns templates with NextRunDate <= now.
	DueTemplates(ctx context.Context, now time.Time) ([]RecurringTemplate, error)

	// DeleteTemplatesByAsset removes all templates targeting an asset.
	// Used by the asset deletion cascade.
	DeleteTemplatesByAsset(ctx context.Context, assetID AssetID) error
}

// =============================================================================
// CATEGORY STORE
// =============================================================================

type CategoryStore interface {
	GetCategory(ctx context.Context, id CategoryID) (*Category, error)
	SaveCategory(ctx context.Context, c Category) error
	DeleteCategory(ctx context.Context, id CategoryID) error
	ListCategories(ctx context.Context) ([]Category, error)
}

// =============================================================================
// BUDGET STORE
// =============================================================================

type BudgetStore interface {
	GetBudget(ctx context.Context, id BudgetID) (*Budget, error)
	SaveBudget(ctx context.Context, b Budget) error
	DeleteBudget(ctx context.Context, id BudgetID) error

	// BudgetsForPeriod returns all budgets for a month/year.
	BudgetsForPeriod(ctx context.Context, month time.Month, year int) ([]Budget, error)
}

// =============================================================================
// COMBINED STORE + ATOMIC UNITS
// =============================================================================

// Store combines every persistence capability the engine consumes.
type Store interface {
	AssetStore
	EventStore
	LinkStore
	TemplateStore
	CategoryStore
	BudgetStore
}

// TxStore wraps Store with atomic-unit support.
//
// WithTx executes fn against a transactional view of the store. If fn
// returns an error, every write made through the view is rolled back;
// if fn returns nil, all writes commit together.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
