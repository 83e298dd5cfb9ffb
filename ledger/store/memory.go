// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rizkiyusra/moneymanager/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements ledger.TxStore with plain maps. WithTx is simulated
// with a full snapshot restored on error, which gives the same
// all-or-nothing visibility the SQLite store gets from sql.Tx.
type Memory struct {
	mu sync.RWMutex
	d  *data
}

type data struct {
	assets      map[ledger.AssetID]ledger.Asset
	events      map[ledger.EventID]ledger.Transaction
	links       map[ledger.LinkID]ledger.TransferLink
	templates   map[ledger.TemplateID]ledger.RecurringTemplate
	categories  map[ledger.CategoryID]ledger.Category
	budgets     map[ledger.BudgetID]ledger.Budget
	idempotency map[string]ledger.EventID
}

func newData() *data {
	return &data{
		assets:      make(map[ledger.AssetID]ledger.Asset),
		events:      make(map[ledger.EventID]ledger.Transaction),
		links:       make(map[ledger.LinkID]ledger.TransferLink),
		templates:   make(map[ledger.TemplateID]ledger.RecurringTemplate),
		categories:  make(map[ledger.CategoryID]ledger.Category),
		budgets:     make(map[ledger.BudgetID]ledger.Budget),
		idempotency: make(map[string]ledger.EventID),
	}
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.assets {
		c.assets[k] = v
	}
	for k, v := range d.events {
		c.events[k] = v
	}
	for k, v := range d.links {
		c.links[k] = v
	}
	for k, v := range d.templates {
		c.templates[k] = v
	}
	for k, v := range d.categories {
		c.categories[k] = v
	}
	for k, v := range d.budgets {
		c.budgets[k] = v
	}
	for k, v := range d.idempotency {
		c.idempotency[k] = v
	}
	return c
}

func NewMemory() *Memory {
	return &Memory{d: newData()}
}

// WithTx executes fn against the live data under the write lock. On
// error, the pre-call snapshot is restored.
func (m *Memory) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.d.clone()
	if err := fn(&view{d: m.d}); err != nil {
		m.d = snapshot
		return err
	}
	return nil
}

// =============================================================================
// LOCKED DELEGATION
// =============================================================================

func (m *Memory) read(fn func(*view) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(&view{d: m.d})
}

func (m *Memory) write(fn func(*view) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&view{d: m.d})
}

// Reset clears all data (for testing/demo).
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.d = newData()
	return nil
}

func (m *Memory) GetAsset(ctx context.Context, id ledger.AssetID) (a *ledger.Asset, err error) {
	err = m.read(func(v *view) error { a, err = v.GetAsset(ctx, id); return err })
	return
}

func (m *Memory) SaveAsset(ctx context.Context, a ledger.Asset) error {
	return m.write(func(v *view) error { return v.SaveAsset(ctx, a) })
}

func (m *Memory) DeleteAsset(ctx context.Context, id ledger.AssetID) error {
	return m.write(func(v *view) error { return v.DeleteAsset(ctx, id) })
}

func (m *Memory) ListAssets(ctx context.Context) (out []ledger.Asset, err error) {
	err = m.read(func(v *view) error { out, err = v.ListAssets(ctx); return err })
	return
}

func (m *Memory) InsertEvent(ctx context.Context, tx ledger.Transaction) error {
	return m.write(func(v *view) error { return v.InsertEvent(ctx, tx) })
}

func (m *Memory) GetEvent(ctx context.Context, id ledger.EventID) (t *ledger.Transaction, err error) {
	err = m.read(func(v *view) error { t, err = v.GetEvent(ctx, id); return err })
	return
}

func (m *Memory) UpdateEvent(ctx context.Context, tx ledger.Transaction) error {
	return m.write(func(v *view) error { return v.UpdateEvent(ctx, tx) })
}

func (m *Memory) DeleteEvent(ctx context.Context, id ledger.EventID) error {
	return m.write(func(v *view) error { return v.DeleteEvent(ctx, id) })
}

func (m *Memory) EventsByAsset(ctx context.Context, assetID ledger.AssetID) (out []ledger.Transaction, err error) {
	err = m.read(func(v *view) error { out, err = v.EventsByAsset(ctx, assetID); return err })
	return
}

func (m *Memory) EventsByCounterAsset(ctx context.Context, assetID ledger.AssetID) (out []ledger.Transaction, err error) {
	err = m.read(func(v *view) error { out, err = v.EventsByCounterAsset(ctx, assetID); return err })
	return
}

func (m *Memory) EventsByCategory(ctx context.Context, categoryID ledger.CategoryID, from, to time.Time) (out []ledger.Transaction, err error) {
	err = m.read(func(v *view) error { out, err = v.EventsByCategory(ctx, categoryID, from, to); return err })
	return
}

func (m *Memory) HasIdempotencyKey(ctx context.Context, key string) (ok bool, err error) {
	err = m.read(func(v *view) error { ok, err = v.HasIdempotencyKey(ctx, key); return err })
	return
}

func (m *Memory) InsertLink(ctx context.Context, link ledger.TransferLink) error {
	return m.write(func(v *view) error { return v.InsertLink(ctx, link) })
}

func (m *Memory) LinkByEvent(ctx context.Context, eventID ledger.EventID) (l *ledger.TransferLink, err error) {
	err = m.read(func(v *view) error { l, err = v.LinkByEvent(ctx, eventID); return err })
	return
}

func (m *Memory) DeleteLink(ctx context.Context, id ledger.LinkID) error {
	return m.write(func(v *view) error { return v.DeleteLink(ctx, id) })
}

func (m *Memory) SaveTemplate(ctx context.Context, t ledger.RecurringTemplate) error {
	return m.write(func(v *view) error { return v.SaveTemplate(ctx, t) })
}

func (m *Memory) GetTemplate(ctx context.Context, id ledger.TemplateID) (t *ledger.RecurringTemplate, err error) {
	err = m.read(func(v *view) error { t, err = v.GetTemplate(ctx, id); return err })
	return
}

func (m *Memory) DeleteTemplate(ctx context.Context, id ledger.TemplateID) error {
	return m.write(func(v *view) error { return v.DeleteTemplate(ctx, id) })
}

func (m *Memory) ListTemplates(ctx context.Context) (out []ledger.RecurringTemplate, err error) {
	err = m.read(func(v *view) error { out, err = v.ListTemplates(ctx); return err })
	return
}

func (m *Memory) DueTemplates(ctx context.Context, now time.Time) (out []ledger.RecurringTemplate, err error) {
	err = m.read(func(v *view) error { out, err = v.DueTemplates(ctx, now); return err })
	return
}

func (m *Memory) DeleteTemplatesByAsset(ctx context.Context, assetID ledger.AssetID) error {
	return m.write(func(v *view) error { return v.DeleteTemplatesByAsset(ctx, assetID) })
}

func (m *Memory) GetCategory(ctx context.Context, id ledger.CategoryID) (c *ledger.Category, err error) {
	err = m.read(func(v *view) error { c, err = v.GetCategory(ctx, id); return err })
	return
}

func (m *Memory) SaveCategory(ctx context.Context, c ledger.Category) error {
	return m.write(func(v *view) error { return v.SaveCategory(ctx, c) })
}

func (m *Memory) DeleteCategory(ctx context.Context, id ledger.CategoryID) error {
	return m.write(func(v *view) error { return v.DeleteCategory(ctx, id) })
}

func (m *Memory) ListCategories(ctx context.Context) (out []ledger.Category, err error) {
	err = m.read(func(v *view) error { out, err = v.ListCategories(ctx); return err })
	return
}

func (m *Memory) GetBudget(ctx context.Context, id ledger.BudgetID) (b *ledger.Budget, err error) {
	err = m.read(func(v *view) error { b, err = v.GetBudget(ctx, id); return err })
	return
}

func (m *Memory) SaveBudget(ctx context.Context, b ledger.Budget) error {
	return m.write(func(v *view) error { return v.SaveBudget(ctx, b) })
}

func (m *Memory) DeleteBudget(ctx context.Context, id ledger.BudgetID) error {
	return m.write(func(v *view) error { return v.DeleteBudget(ctx, id) })
}

func (m *Memory) BudgetsForPeriod(ctx context.Context, month time.Month, year int) (out []ledger.Budget, err error) {
	err = m.read(func(v *view) error { out, err = v.BudgetsForPeriod(ctx, month, year); return err })
	return
}

// =============================================================================
// VIEW - Unlocked operations over the data maps
// =============================================================================

// view is the lock-free implementation handed to WithTx callbacks; the
// caller already holds the write lock.
type view struct {
	d *data
}

func (v *view) GetAsset(_ context.Context, id ledger.AssetID) (*ledger.Asset, error) {
	a, ok := v.d.assets[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (v *view) SaveAsset(_ context.Context, a ledger.Asset) error {
	v.d.assets[a.ID] = a
	return nil
}

func (v *view) DeleteAsset(_ context.Context, id ledger.AssetID) error {
	delete(v.d.assets, id)
	return nil
}

func (v *view) ListAssets(_ context.Context) ([]ledger.Asset, error) {
	out := make([]ledger.Asset, 0, len(v.d.assets))
	for _, a := range v.d.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (v *view) InsertEvent(_ context.Context, tx ledger.Transaction) error {
	if tx.IdempotencyKey != "" {
		if _, exists := v.d.idempotency[tx.IdempotencyKey]; exists {
			return ledger.ErrDuplicateIdempotencyKey
		}
		v.d.idempotency[tx.IdempotencyKey] = tx.ID
	}
	v.d.events[tx.ID] = tx
	return nil
}

func (v *view) GetEvent(_ context.Context, id ledger.EventID) (*ledger.Transaction, error) {
	tx, ok := v.d.events[id]
	if !ok {
		return nil, nil
	}
	return &tx, nil
}

func (v *view) UpdateEvent(_ context.Context, tx ledger.Transaction) error {
	if _, ok := v.d.events[tx.ID]; !ok {
		return ledger.ErrTransactionNotFound
	}
	v.d.events[tx.ID] = tx
	return nil
}

func (v *view) DeleteEvent(_ context.Context, id ledger.EventID) error {
	if tx, ok := v.d.events[id]; ok && tx.IdempotencyKey != "" {
		delete(v.d.idempotency, tx.IdempotencyKey)
	}
	delete(v.d.events, id)
	return nil
}

func (v *view) EventsByAsset(_ context.Context, assetID ledger.AssetID) ([]ledger.Transaction, error) {
	var out []ledger.Transaction
	for _, tx := range v.d.events {
		if tx.SourceAssetID == assetID {
			out = append(out, tx)
		}
	}
	sortEvents(out)
	return out, nil
}

func (v *view) EventsByCounterAsset(_ context.Context, assetID ledger.AssetID) ([]ledger.Transaction, error) {
	var out []ledger.Transaction
	for _, tx := range v.d.events {
		if tx.CounterAssetID == assetID {
			out = append(out, tx)
		}
	}
	sortEvents(out)
	return out, nil
}

func (v *view) EventsByCategory(_ context.Context, categoryID ledger.CategoryID, from, to time.Time) ([]ledger.Transaction, error) {
	var out []ledger.Transaction
	for _, tx := range v.d.events {
		if tx.CategoryID != categoryID {
			continue
		}
		if tx.Date.Before(from) || !tx.Date.Before(to) {
			continue
		}
		out = append(out, tx)
	}
	sortEvents(out)
	return out, nil
}

func (v *view) HasIdempotencyKey(_ context.Context, key string) (bool, error) {
	_, ok := v.d.idempotency[key]
	return ok, nil
}

func (v *view) InsertLink(_ context.Context, link ledger.TransferLink) error {
	v.d.links[link.ID] = link
	return nil
}

func (v *view) LinkByEvent(_ context.Context, eventID ledger.EventID) (*ledger.TransferLink, error) {
	for _, l := range v.d.links {
		if l.OutEventID == eventID || l.InEventID == eventID {
			link := l
			return &link, nil
		}
	}
	return nil, nil
}

func (v *view) DeleteLink(_ context.Context, id ledger.LinkID) error {
	delete(v.d.links, id)
	return nil
}

func (v *view) SaveTemplate(_ context.Context, t ledger.RecurringTemplate) error {
	v.d.templates[t.ID] = t
	return nil
}

func (v *view) GetTemplate(_ context.Context, id ledger.TemplateID) (*ledger.RecurringTemplate, error) {
	t, ok := v.d.templates[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (v *view) DeleteTemplate(_ context.Context, id ledger.TemplateID) error {
	delete(v.d.templates, id)
	return nil
}

func (v *view) ListTemplates(_ context.Context) ([]ledger.RecurringTemplate, error) {
	out := make([]ledger.RecurringTemplate, 0, len(v.d.templates))
	for _, t := range v.d.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *view) DueTemplates(_ context.Context, now time.Time) ([]ledger.RecurringTemplate, error) {
	var out []ledger.RecurringTemplate
	for _, t := range v.d.templates {
		if !t.NextRunDate.After(now) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *view) DeleteTemplatesByAsset(_ context.Context, assetID ledger.AssetID) error {
	for id, t := range v.d.templates {
		if t.AssetID == assetID {
			delete(v.d.templates, id)
		}
	}
	return nil
}

func (v *view) GetCategory(_ context.Context, id ledger.CategoryID) (*ledger.Category, error) {
	c, ok := v.d.categories[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (v *view) SaveCategory(_ context.Context, c ledger.Category) error {
	v.d.categories[c.ID] = c
	return nil
}

func (v *view) DeleteCategory(_ context.Context, id ledger.CategoryID) error {
	delete(v.d.categories, id)
	return nil
}

func (v *view) ListCategories(_ context.Context) ([]ledger.Category, error) {
	out := make([]ledger.Category, 0, len(v.d.categories))
	for _, c := range v.d.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (v *view) GetBudget(_ context.Context, id ledger.BudgetID) (*ledger.Budget, error) {
	b, ok := v.d.budgets[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (v *view) SaveBudget(_ context.Context, b ledger.Budget) error {
	// One budget per (category, month, year): saving a new row for an
	// already budgeted period updates the existing row's limit and keeps
	// its id, mirroring the sqlite store's upsert.
	for id, existing := range v.d.budgets {
		if id == b.ID {
			continue
		}
		if existing.CategoryID == b.CategoryID && existing.Month == b.Month && existing.Year == b.Year {
			existing.Limit = b.Limit
			v.d.budgets[id] = existing
			return nil
		}
	}
	v.d.budgets[b.ID] = b
	return nil
}

func (v *view) DeleteBudget(_ context.Context, id ledger.BudgetID) error {
	delete(v.d.budgets, id)
	return nil
}

func (v *view) BudgetsForPeriod(_ context.Context, month time.Month, year int) ([]ledger.Budget, error) {
	var out []ledger.Budget
	for _, b := range v.d.budgets {
		if b.Month == month && b.Year == year {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func sortEvents(txs []ledger.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.Before(txs[j].Date)
		}
		return txs[i].CreatedAt.Before(txs[j].CreatedAt)
	})
}
