/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements ledger.TxStore using SQLite. In production the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  assets:              Asset records with the cached balance
  transactions:        Ledger events
  transfer_links:      Out/in event pair associations
  recurring_templates: Recurring rules with next_run_date
  categories:          Category records
  budgets:             Budget limits per category/month

ATOMIC UNITS:
  WithTx wraps every engine operation in a single sql.Tx. The event
  write and the balance write commit together or roll back together -
  no reader ever sees one without the other.

IDEMPOTENCY:
  transactions.idempotency_key carries a UNIQUE index; a duplicate
  insert surfaces as ledger.ErrDuplicateIdempotencyKey. This is what
  makes recurring materialization safe to retry.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better
  concurrency: multiple readers don't block, single writer at a time,
  better crash recovery.

AMOUNT ENCODING:
  Balances and amounts are stored as decimal strings, never floats.
  shopspring/decimal round-trips them exactly.

USAGE:
  store, err := sqlite.New("./data/moneymanager.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
  svc := ledger.NewService(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/rizkiyusra/moneymanager/ledger"
)

// Store implements ledger.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Assets (the cached balance lives here)
	CREATE TABLE IF NOT EXISTS assets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		balance TEXT NOT NULL,
		currency TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		sort_order INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Ledger events
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		source_asset_id TEXT NOT NULL,
		counter_asset_id TEXT,
		category_id TEXT,
		type TEXT NOT NULL,
		amount TEXT NOT NULL,
		title TEXT,
		note TEXT,
		event_date TEXT NOT NULL,
		idempotency_key TEXT UNIQUE,
		created_at TEXT NOT NULL
	);

	-- Balance recomputation and per-asset history (hot path)
	CREATE INDEX IF NOT EXISTS idx_transactions_source_asset
		ON transactions(source_asset_id, event_date, created_at);

	-- Orphan repair on asset deletion
	CREATE INDEX IF NOT EXISTS idx_transactions_counter_asset
		ON transactions(counter_asset_id) WHERE counter_asset_id IS NOT NULL;

	-- Budget projection
	CREATE INDEX IF NOT EXISTS idx_transactions_category_date
		ON transactions(category_id, event_date) WHERE category_id IS NOT NULL;

	CREATE INDEX IF NOT EXISTS idx_transactions_idempotency
		ON transactions(idempotency_key) WHERE idempotency_key IS NOT NULL;

	-- Transfer pair associations
	CREATE TABLE IF NOT EXISTS transfer_links (
		id TEXT PRIMARY KEY,
		out_event_id TEXT NOT NULL UNIQUE,
		in_event_id TEXT NOT NULL UNIQUE
	);

	-- Recurring templates
	CREATE TABLE IF NOT EXISTS recurring_templates (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		amount TEXT NOT NULL,
		is_income BOOLEAN NOT NULL,
		category_id TEXT,
		asset_id TEXT NOT NULL,
		frequency TEXT NOT NULL,
		next_run_date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_templates_next_run
		ON recurring_templates(next_run_date);
	CREATE INDEX IF NOT EXISTS idx_templates_asset
		ON recurring_templates(asset_id);

	-- Categories
	CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		is_income BOOLEAN NOT NULL DEFAULT FALSE,
		sort_order INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	-- Budgets (limit only; spent is always derived)
	CREATE TABLE IF NOT EXISTS budgets (
		id TEXT PRIMARY KEY,
		category_id TEXT NOT NULL,
		month INTEGER NOT NULL,
		year INTEGER NOT NULL,
		limit_amount TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(category_id, month, year)
	);

	CREATE INDEX IF NOT EXISTS idx_budgets_period
		ON budgets(year, month);
	`

	_, err := s.db.Exec(schema)
	return err
}

// executor abstracts *sql.DB and *sql.Tx so every query helper works
// both standalone and inside WithTx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// ATOMIC UNITS (ledger.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txView{ex: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txView exposes the store helpers bound to one sql.Tx.
type txView struct {
	ex executor
}

// =============================================================================
// ASSET STORE
// =============================================================================

func (s *Store) GetAsset(ctx context.Context, id ledger.AssetID) (*ledger.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getAsset(ctx, s.db, id)
}

func (v *txView) GetAsset(ctx context.Context, id ledger.AssetID) (*ledger.Asset, error) {
	return getAsset(ctx, v.ex, id)
}

func getAsset(ctx context.Context, ex executor, id ledger.AssetID) (*ledger.Asset, error) {
	var (
		a                    ledger.Asset
		balance              string
		createdAt, updatedAt string
	)
	err := ex.QueryRowContext(ctx,
		`SELECT id, name, type, balance, currency, active, sort_order, created_at, updated_at
		 FROM assets WHERE id = ?`, id,
	).Scan(&a.ID, &a.Name, &a.Type, &balance, &a.Currency, &a.Active, &a.SortOrder, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	a.Balance = parseDecimal(balance)
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return &a, nil
}

func (s *Store) SaveAsset(ctx context.Context, a ledger.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveAsset(ctx, s.db, a)
}

func (v *txView) SaveAsset(ctx context.Context, a ledger.Asset) error {
	return saveAsset(ctx, v.ex, a)
}

func saveAsset(ctx context.Context, ex executor, a ledger.Asset) error {
	query := `
		INSERT INTO assets (id, name, type, balance, currency, active, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			balance = excluded.balance,
			currency = excluded.currency,
			active = excluded.active,
			sort_order = excluded.sort_order,
			updated_at = excluded.updated_at
	`
	_, err := ex.ExecContext(ctx, query,
		a.ID, a.Name, a.Type, a.Balance.String(), a.Currency, a.Active, a.SortOrder,
		formatTime(a.CreatedAt), formatTime(a.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save asset: %w", err)
	}
	return nil
}

func (s *Store) DeleteAsset(ctx context.Context, id ledger.AssetID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteAsset(ctx, s.db, id)
}

func (v *txView) DeleteAsset(ctx context.Context, id ledger.AssetID) error {
	return deleteAsset(ctx, v.ex, id)
}

func deleteAsset(ctx context.Context, ex executor, id ledger.AssetID) error {
	_, err := ex.ExecContext(ctx, "DELETE FROM assets WHERE id = ?", id)
	return err
}

func (s *Store) ListAssets(ctx context.Context) ([]ledger.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listAssets(ctx, s.db)
}

func (v *txView) ListAssets(ctx context.Context) ([]ledger.Asset, error) {
	return listAssets(ctx, v.ex)
}

func listAssets(ctx context.Context, ex executor) ([]ledger.Asset, error) {
	rows, err := ex.QueryContext(ctx,
		`SELECT id, name, type, balance, currency, active, sort_order, created_at, updated_at
		 FROM assets ORDER BY sort_order ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	var assets []ledger.Asset
	for rows.Next() {
		var (
			a                    ledger.Asset
			balance              string
			createdAt, updatedAt string
		)
		if err := rows.Scan(&a.ID, &a.Name, &a.Type, &balance, &a.Currency, &a.Active,
			&a.SortOrder, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		a.Balance = parseDecimal(balance)
		a.CreatedAt = parseTime(createdAt)
		a.UpdatedAt = parseTime(updatedAt)
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// =============================================================================
// EVENT STORE
// =============================================================================

const eventColumns = `id, source_asset_id, counter_asset_id, category_id, type, amount,
	title, note, event_date, idempotency_key, created_at`

func (s *Store) InsertEvent(ctx context.Context, tx ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertEvent(ctx, s.db, tx)
}

func (v *txView) InsertEvent(ctx context.Context, tx ledger.Transaction) error {
	return insertEvent(ctx, v.ex, tx)
}

func insertEvent(ctx context.Context, ex executor, tx ledger.Transaction) error {
	query := `
		INSERT INTO transactions (` + eventColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := ex.ExecContext(ctx, query,
		tx.ID,
		tx.SourceAssetID,
		nullString(string(tx.CounterAssetID)),
		nullString(string(tx.CategoryID)),
		tx.Type,
		tx.Amount.String(),
		tx.Title,
		tx.Note,
		formatTime(tx.Date),
		nullString(tx.IdempotencyKey),
		formatTime(tx.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (s *Store) GetEvent(ctx context.Context, id ledger.EventID) (*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getEvent(ctx, s.db, id)
}

func (v *txView) GetEvent(ctx context.Context, id ledger.EventID) (*ledger.Transaction, error) {
	return getEvent(ctx, v.ex, id)
}

func getEvent(ctx context.Context, ex executor, id ledger.EventID) (*ledger.Transaction, error) {
	txs, err := queryEvents(ctx, ex,
		`SELECT `+eventColumns+` FROM transactions WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, nil
	}
	return &txs[0], nil
}

func (s *Store) UpdateEvent(ctx context.Context, tx ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateEvent(ctx, s.db, tx)
}

func (v *txView) UpdateEvent(ctx context.Context, tx ledger.Transaction) error {
	return updateEvent(ctx, v.ex, tx)
}

func updateEvent(ctx context.Context, ex executor, tx ledger.Transaction) error {
	query := `
		UPDATE transactions
		SET counter_asset_id = ?, category_id = ?, type = ?, amount = ?,
		    title = ?, note = ?, event_date = ?
		WHERE id = ?
	`
	res, err := ex.ExecContext(ctx, query,
		nullString(string(tx.CounterAssetID)),
		nullString(string(tx.CategoryID)),
		tx.Type,
		tx.Amount.String(),
		tx.Title,
		tx.Note,
		formatTime(tx.Date),
		tx.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrTransactionNotFound
	}
	return nil
}

func (s *Store) DeleteEvent(ctx context.Context, id ledger.EventID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteEvent(ctx, s.db, id)
}

func (v *txView) DeleteEvent(ctx context.Context, id ledger.EventID) error {
	return deleteEvent(ctx, v.ex, id)
}

func deleteEvent(ctx context.Context, ex executor, id ledger.EventID) error {
	_, err := ex.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	return err
}

func (s *Store) EventsByAsset(ctx context.Context, assetID ledger.AssetID) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return eventsByAsset(ctx, s.db, assetID)
}

func (v *txView) EventsByAsset(ctx context.Context, assetID ledger.AssetID) ([]ledger.Transaction, error) {
	return eventsByAsset(ctx, v.ex, assetID)
}

func eventsByAsset(ctx context.Context, ex executor, assetID ledger.AssetID) ([]ledger.Transaction, error) {
	return queryEvents(ctx, ex,
		`SELECT `+eventColumns+` FROM transactions
		 WHERE source_asset_id = ?
		 ORDER BY event_date ASC, created_at ASC`, assetID)
}

func (s *Store) EventsByCounterAsset(ctx context.Context, assetID ledger.AssetID) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return eventsByCounterAsset(ctx, s.db, assetID)
}

func (v *txView) EventsByCounterAsset(ctx context.Context, assetID ledger.AssetID) ([]ledger.Transaction, error) {
	return eventsByCounterAsset(ctx, v.ex, assetID)
}

func eventsByCounterAsset(ctx context.Context, ex executor, assetID ledger.AssetID) ([]ledger.Transaction, error) {
	return queryEvents(ctx, ex,
		`SELECT `+eventColumns+` FROM transactions
		 WHERE counter_asset_id = ?
		 ORDER BY event_date ASC, created_at ASC`, assetID)
}

func (s *Store) EventsByCategory(ctx context.Context, categoryID ledger.CategoryID, from, to time.Time) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return eventsByCategory(ctx, s.db, categoryID, from, to)
}

func (v *txView) EventsByCategory(ctx context.Context, categoryID ledger.CategoryID, from, to time.Time) ([]ledger.Transaction, error) {
	return eventsByCategory(ctx, v.ex, categoryID, from, to)
}

func eventsByCategory(ctx context.Context, ex executor, categoryID ledger.CategoryID, from, to time.Time) ([]ledger.Transaction, error) {
	return queryEvents(ctx, ex,
		`SELECT `+eventColumns+` FROM transactions
		 WHERE category_id = ? AND event_date >= ? AND event_date < ?
		 ORDER BY event_date ASC, created_at ASC`,
		categoryID, formatTime(from), formatTime(to))
}

func (s *Store) HasIdempotencyKey(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return hasIdempotencyKey(ctx, s.db, key)
}

func (v *txView) HasIdempotencyKey(ctx context.Context, key string) (bool, error) {
	return hasIdempotencyKey(ctx, v.ex, key)
}

func hasIdempotencyKey(ctx context.Context, ex executor, key string) (bool, error) {
	var count int
	err := ex.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE idempotency_key = ?", key,
	).Scan(&count)
	return count > 0, err
}

func queryEvents(ctx context.Context, ex executor, query string, args ...any) ([]ledger.Transaction, error) {
	rows, err := ex.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var txs []ledger.Transaction
	for rows.Next() {
		tx, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func scanEvent(rows *sql.Rows) (ledger.Transaction, error) {
	var (
		tx             ledger.Transaction
		counterAsset   sql.NullString
		categoryID     sql.NullString
		amount         string
		title, note    sql.NullString
		eventDate      string
		idempotencyKey sql.NullString
		createdAt      string
	)
	err := rows.Scan(
		&tx.ID, &tx.SourceAssetID, &counterAsset, &categoryID, &tx.Type,
		&amount, &title, &note, &eventDate, &idempotencyKey, &createdAt,
	)
	if err != nil {
		return tx, fmt.Errorf("failed to scan event: %w", err)
	}
	tx.CounterAssetID = ledger.AssetID(counterAsset.String)
	tx.CategoryID = ledger.CategoryID(categoryID.String)
	tx.Amount = parseDecimal(amount)
	tx.Title = title.String
	tx.Note = note.String
	tx.Date = parseTime(eventDate)
	tx.IdempotencyKey = idempotencyKey.String
	tx.CreatedAt = parseTime(createdAt)
	return tx, nil
}

// =============================================================================
// TRANSFER LINK STORE
// =============================================================================

func (s *Store) InsertLink(ctx context.Context, link ledger.TransferLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertLink(ctx, s.db, link)
}

func (v *txView) InsertLink(ctx context.Context, link ledger.TransferLink) error {
	return insertLink(ctx, v.ex, link)
}

func insertLink(ctx context.Context, ex executor, link ledger.TransferLink) error {
	_, err := ex.ExecContext(ctx,
		"INSERT INTO transfer_links (id, out_event_id, in_event_id) VALUES (?, ?, ?)",
		link.ID, link.OutEventID, link.InEventID)
	if err != nil {
		return fmt.Errorf("failed to insert transfer link: %w", err)
	}
	return nil
}

func (s *Store) LinkByEvent(ctx context.Context, eventID ledger.EventID) (*ledger.TransferLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return linkByEvent(ctx, s.db, eventID)
}

func (v *txView) LinkByEvent(ctx context.Context, eventID ledger.EventID) (*ledger.TransferLink, error) {
	return linkByEvent(ctx, v.ex, eventID)
}

func linkByEvent(ctx context.Context, ex executor, eventID ledger.EventID) (*ledger.TransferLink, error) {
	var link ledger.TransferLink
	err := ex.QueryRowContext(ctx,
		`SELECT id, out_event_id, in_event_id FROM transfer_links
		 WHERE out_event_id = ? OR in_event_id = ?`, eventID, eventID,
	).Scan(&link.ID, &link.OutEventID, &link.InEventID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer link: %w", err)
	}
	return &link, nil
}

func (s *Store) DeleteLink(ctx context.Context, id ledger.LinkID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteLink(ctx, s.db, id)
}

func (v *txView) DeleteLink(ctx context.Context, id ledger.LinkID) error {
	return deleteLink(ctx, v.ex, id)
}

func deleteLink(ctx context.Context, ex executor, id ledger.LinkID) error {
	_, err := ex.ExecContext(ctx, "DELETE FROM transfer_links WHERE id = ?", id)
	return err
}

// =============================================================================
// RECURRING TEMPLATE STORE
// =============================================================================

const templateColumns = `id, title, amount, is_income, category_id, asset_id,
	frequency, next_run_date, created_at`

func (s *Store) SaveTemplate(ctx context.Context, t ledger.RecurringTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveTemplate(ctx, s.db, t)
}

func (v *txView) SaveTemplate(ctx context.Context, t ledger.RecurringTemplate) error {
	return saveTemplate(ctx, v.ex, t)
}

func saveTemplate(ctx context.Context, ex executor, t ledger.RecurringTemplate) error {
	query := `
		INSERT INTO recurring_templates (` + templateColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			amount = excluded.amount,
			is_income = excluded.is_income,
			category_id = excluded.category_id,
			asset_id = excluded.asset_id,
			frequency = excluded.frequency,
			next_run_date = excluded.next_run_date
	`
	_, err := ex.ExecContext(ctx, query,
		t.ID, t.Title, t.Amount.String(), t.IsIncome,
		nullString(string(t.CategoryID)), t.AssetID, t.Frequency,
		formatTime(t.NextRunDate), formatTime(t.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save template: %w", err)
	}
	return nil
}

func (s *Store) GetTemplate(ctx context.Context, id ledger.TemplateID) (*ledger.RecurringTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getTemplate(ctx, s.db, id)
}

func (v *txView) GetTemplate(ctx context.Context, id ledger.TemplateID) (*ledger.RecurringTemplate, error) {
	return getTemplate(ctx, v.ex, id)
}

func getTemplate(ctx context.Context, ex executor, id ledger.TemplateID) (*ledger.RecurringTemplate, error) {
	ts, err := queryTemplates(ctx, ex,
		`SELECT `+templateColumns+` FROM recurring_templates WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(ts) == 0 {
		return nil, nil
	}
	return &ts[0], nil
}

func (s *Store) DeleteTemplate(ctx context.Context, id ledger.TemplateID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteTemplate(ctx, s.db, id)
}

func (v *txView) DeleteTemplate(ctx context.Context, id ledger.TemplateID) error {
	return deleteTemplate(ctx, v.ex, id)
}

func deleteTemplate(ctx context.Context, ex executor, id ledger.TemplateID) error {
	_, err := ex.ExecContext(ctx, "DELETE FROM recurring_templates WHERE id = ?", id)
	return err
}

func (s *Store) ListTemplates(ctx context.Context) ([]ledger.RecurringTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryTemplates(ctx, s.db,
		`SELECT `+templateColumns+` FROM recurring_templates ORDER BY next_run_date ASC`)
}

func (v *txView) ListTemplates(ctx context.Context) ([]ledger.RecurringTemplate, error) {
	return queryTemplates(ctx, v.ex,
		`SELECT `+templateColumns+` FROM recurring_templates ORDER BY next_run_date ASC`)
}

func (s *Store) DueTemplates(ctx context.Context, now time.Time) ([]ledger.RecurringTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return dueTemplates(ctx, s.db, now)
}

func (v *txView) DueTemplates(ctx context.Context, now time.Time) ([]ledger.RecurringTemplate, error) {
	return dueTemplates(ctx, v.ex, now)
}

func dueTemplates(ctx context.Context, ex executor, now time.Time) ([]ledger.RecurringTemplate, error) {
	return queryTemplates(ctx, ex,
		`SELECT `+templateColumns+` FROM recurring_templates
		 WHERE next_run_date <= ?
		 ORDER BY next_run_date ASC`, formatTime(now))
}

func (s *Store) DeleteTemplatesByAsset(ctx context.Context, assetID ledger.AssetID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteTemplatesByAsset(ctx, s.db, assetID)
}

func (v *txView) DeleteTemplatesByAsset(ctx context.Context, assetID ledger.AssetID) error {
	return deleteTemplatesByAsset(ctx, v.ex, assetID)
}

func deleteTemplatesByAsset(ctx context.Context, ex executor, assetID ledger.AssetID) error {
	_, err := ex.ExecContext(ctx, "DELETE FROM recurring_templates WHERE asset_id = ?", assetID)
	return err
}

func queryTemplates(ctx context.Context, ex executor, query string, args ...any) ([]ledger.RecurringTemplate, error) {
	rows, err := ex.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer rows.Close()

	var templates []ledger.RecurringTemplate
	for rows.Next() {
		var (
			t                      ledger.RecurringTemplate
			amount                 string
			categoryID             sql.NullString
			nextRunDate, createdAt string
		)
		if err := rows.Scan(&t.ID, &t.Title, &amount, &t.IsIncome, &categoryID,
			&t.AssetID, &t.Frequency, &nextRunDate, &createdAt); err != nil {
			return nil, err
		}
		t.Amount = parseDecimal(amount)
		t.CategoryID = ledger.CategoryID(categoryID.String)
		t.NextRunDate = parseTime(nextRunDate)
		t.CreatedAt = parseTime(createdAt)
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// =============================================================================
// CATEGORY STORE
// =============================================================================

func (s *Store) GetCategory(ctx context.Context, id ledger.CategoryID) (*ledger.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getCategory(ctx, s.db, id)
}

func (v *txView) GetCategory(ctx context.Context, id ledger.CategoryID) (*ledger.Category, error) {
	return getCategory(ctx, v.ex, id)
}

func getCategory(ctx context.Context, ex executor, id ledger.CategoryID) (*ledger.Category, error) {
	var (
		c         ledger.Category
		createdAt string
	)
	err := ex.QueryRowContext(ctx,
		"SELECT id, name, is_income, sort_order, created_at FROM categories WHERE id = ?", id,
	).Scan(&c.ID, &c.Name, &c.IsIncome, &c.SortOrder, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}

func (s *Store) SaveCategory(ctx context.Context, c ledger.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveCategory(ctx, s.db, c)
}

func (v *txView) SaveCategory(ctx context.Context, c ledger.Category) error {
	return saveCategory(ctx, v.ex, c)
}

func saveCategory(ctx context.Context, ex executor, c ledger.Category) error {
	query := `
		INSERT INTO categories (id, name, is_income, sort_order, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			is_income = excluded.is_income,
			sort_order = excluded.sort_order
	`
	_, err := ex.ExecContext(ctx, query,
		c.ID, c.Name, c.IsIncome, c.SortOrder, formatTime(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save category: %w", err)
	}
	return nil
}

func (s *Store) DeleteCategory(ctx context.Context, id ledger.CategoryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteCategory(ctx, s.db, id)
}

func (v *txView) DeleteCategory(ctx context.Context, id ledger.CategoryID) error {
	return deleteCategory(ctx, v.ex, id)
}

func deleteCategory(ctx context.Context, ex executor, id ledger.CategoryID) error {
	_, err := ex.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id)
	return err
}

func (s *Store) ListCategories(ctx context.Context) ([]ledger.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listCategories(ctx, s.db)
}

func (v *txView) ListCategories(ctx context.Context) ([]ledger.Category, error) {
	return listCategories(ctx, v.ex)
}

func listCategories(ctx context.Context, ex executor) ([]ledger.Category, error) {
	rows, err := ex.QueryContext(ctx,
		"SELECT id, name, is_income, sort_order, created_at FROM categories ORDER BY sort_order ASC, name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []ledger.Category
	for rows.Next() {
		var (
			c         ledger.Category
			createdAt string
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.IsIncome, &c.SortOrder, &createdAt); err != nil {
			return nil, err
		}
		c.CreatedAt = parseTime(createdAt)
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// =============================================================================
// BUDGET STORE
// =============================================================================

func (s *Store) GetBudget(ctx context.Context, id ledger.BudgetID) (*ledger.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getBudget(ctx, s.db, id)
}

func (v *txView) GetBudget(ctx context.Context, id ledger.BudgetID) (*ledger.Budget, error) {
	return getBudget(ctx, v.ex, id)
}

func getBudget(ctx context.Context, ex executor, id ledger.BudgetID) (*ledger.Budget, error) {
	var (
		b         ledger.Budget
		month     int
		limit     string
		createdAt string
	)
	err := ex.QueryRowContext(ctx,
		"SELECT id, category_id, month, year, limit_amount, created_at FROM budgets WHERE id = ?", id,
	).Scan(&b.ID, &b.CategoryID, &month, &b.Year, &limit, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get budget: %w", err)
	}
	b.Month = time.Month(month)
	b.Limit = parseDecimal(limit)
	b.CreatedAt = parseTime(createdAt)
	return &b, nil
}

func (s *Store) SaveBudget(ctx context.Context, b ledger.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveBudget(ctx, s.db, b)
}

func (v *txView) SaveBudget(ctx context.Context, b ledger.Budget) error {
	return saveBudget(ctx, v.ex, b)
}

func saveBudget(ctx context.Context, ex executor, b ledger.Budget) error {
	query := `
		INSERT INTO budgets (id, category_id, month, year, limit_amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(category_id, month, year) DO UPDATE SET
			limit_amount = excluded.limit_amount
	`
	_, err := ex.ExecContext(ctx, query,
		b.ID, b.CategoryID, int(b.Month), b.Year, b.Limit.String(), formatTime(b.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save budget: %w", err)
	}
	return nil
}

func (s *Store) DeleteBudget(ctx context.Context, id ledger.BudgetID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteBudget(ctx, s.db, id)
}

func (v *txView) DeleteBudget(ctx context.Context, id ledger.BudgetID) error {
	return deleteBudget(ctx, v.ex, id)
}

func deleteBudget(ctx context.Context, ex executor, id ledger.BudgetID) error {
	_, err := ex.ExecContext(ctx, "DELETE FROM budgets WHERE id = ?", id)
	return err
}

func (s *Store) BudgetsForPeriod(ctx context.Context, month time.Month, year int) ([]ledger.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return budgetsForPeriod(ctx, s.db, month, year)
}

func (v *txView) BudgetsForPeriod(ctx context.Context, month time.Month, year int) ([]ledger.Budget, error) {
	return budgetsForPeriod(ctx, v.ex, month, year)
}

func budgetsForPeriod(ctx context.Context, ex executor, month time.Month, year int) ([]ledger.Budget, error) {
	rows, err := ex.QueryContext(ctx,
		`SELECT id, category_id, month, year, limit_amount, created_at
		 FROM budgets WHERE month = ? AND year = ? ORDER BY category_id ASC`,
		int(month), year)
	if err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []ledger.Budget
	for rows.Next() {
		var (
			b         ledger.Budget
			m         int
			limit     string
			createdAt string
		)
		if err := rows.Scan(&b.ID, &b.CategoryID, &m, &b.Year, &limit, &createdAt); err != nil {
			return nil, err
		}
		b.Month = time.Month(m)
		b.Limit = parseDecimal(limit)
		b.CreatedAt = parseTime(createdAt)
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"transactions", "transfer_links", "recurring_templates", "budgets", "categories", "assets"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
