package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rizkiyusra/moneymanager/ledger"
	"github.com/rizkiyusra/moneymanager/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testAsset(id string, balance int64) ledger.Asset {
	now := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	return ledger.Asset{
		ID:        ledger.AssetID(id),
		Name:      id,
		Type:      ledger.AssetBank,
		Balance:   decimal.NewFromInt(balance),
		Currency:  "IDR",
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func testEvent(id, asset string, typ ledger.EventType, amount int64, day int) ledger.Transaction {
	return ledger.Transaction{
		ID:            ledger.EventID(id),
		SourceAssetID: ledger.AssetID(asset),
		Type:          typ,
		Amount:        decimal.NewFromInt(amount),
		Title:         id,
		Date:          time.Date(2026, time.March, day, 0, 0, 0, 0, time.UTC),
		CreatedAt:     time.Date(2026, time.March, day, 12, 0, 0, 0, time.UTC),
	}
}

// =============================================================================
// ASSETS
// =============================================================================

func TestAsset_SaveGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := testAsset("bank", 100000)
	a.Balance = decimal.RequireFromString("100000.25")
	require.NoError(t, store.SaveAsset(ctx, a))

	got, err := store.GetAsset(ctx, "bank")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, a.Name, got.Name)
	assert.Equal(t, a.Type, got.Type)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("100000.25")), "decimal string round-trip")
	assert.Equal(t, "IDR", got.Currency)
	assert.True(t, got.Active)
}

func TestAsset_GetMissingReturnsNil(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetAsset(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAsset_SaveIsUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := testAsset("bank", 100)
	require.NoError(t, store.SaveAsset(ctx, a))
	a.Balance = decimal.NewFromInt(250)
	a.Name = "Renamed"
	require.NoError(t, store.SaveAsset(ctx, a))

	got, err := store.GetAsset(ctx, "bank")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(250)))

	assets, err := store.ListAssets(ctx)
	require.NoError(t, err)
	assert.Len(t, assets, 1)
}

// =============================================================================
// EVENTS
// =============================================================================

func TestEvent_InsertGetDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ev := testEvent("ev-1", "bank", ledger.EventExpense, 500, 3)
	ev.CategoryID = "food"
	ev.Note = "lunch"
	require.NoError(t, store.InsertEvent(ctx, ev))

	got, err := store.GetEvent(ctx, "ev-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ledger.EventExpense, got.Type)
	assert.Equal(t, ledger.CategoryID("food"), got.CategoryID)
	assert.Equal(t, "lunch", got.Note)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(500)))

	require.NoError(t, store.DeleteEvent(ctx, "ev-1"))
	got, err = store.GetEvent(ctx, "ev-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEvent_EmptyOptionalFieldsStayEmpty(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertEvent(ctx, testEvent("ev-1", "bank", ledger.EventIncome, 10, 1)))

	got, err := store.GetEvent(ctx, "ev-1")
	require.NoError(t, err)
	assert.Empty(t, got.CounterAssetID)
	assert.Empty(t, got.CategoryID)
	assert.Empty(t, got.IdempotencyKey)
}

func TestEvent_DuplicateIdempotencyKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ev := testEvent("ev-1", "bank", ledger.EventIncome, 10, 1)
	ev.IdempotencyKey = "recurring:tmpl-1:2026-03-01"
	require.NoError(t, store.InsertEvent(ctx, ev))

	dup := testEvent("ev-2", "bank", ledger.EventIncome, 10, 1)
	dup.IdempotencyKey = "recurring:tmpl-1:2026-03-01"
	err := store.InsertEvent(ctx, dup)
	assert.ErrorIs(t, err, ledger.ErrDuplicateIdempotencyKey)

	ok, err := store.HasIdempotencyKey(ctx, "recurring:tmpl-1:2026-03-01")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvent_UpdateMissingReturnsNotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateEvent(context.Background(), testEvent("ghost", "bank", ledger.EventIncome, 1, 1))
	assert.ErrorIs(t, err, ledger.ErrTransactionNotFound)
}

func TestEventsByAsset_ChronologicalOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertEvent(ctx, testEvent("ev-c", "bank", ledger.EventIncome, 1, 20)))
	require.NoError(t, store.InsertEvent(ctx, testEvent("ev-a", "bank", ledger.EventIncome, 1, 5)))
	require.NoError(t, store.InsertEvent(ctx, testEvent("ev-b", "bank", ledger.EventIncome, 1, 12)))
	require.NoError(t, store.InsertEvent(ctx, testEvent("other", "wallet", ledger.EventIncome, 1, 1)))

	events, err := store.EventsByAsset(ctx, "bank")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, ledger.EventID("ev-a"), events[0].ID)
	assert.Equal(t, ledger.EventID("ev-b"), events[1].ID)
	assert.Equal(t, ledger.EventID("ev-c"), events[2].ID)
}

func TestEventsByCounterAsset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	leg := testEvent("leg-in", "wallet", ledger.EventTransferIn, 100, 5)
	leg.CounterAssetID = "bank"
	require.NoError(t, store.InsertEvent(ctx, leg))
	require.NoError(t, store.InsertEvent(ctx, testEvent("plain", "wallet", ledger.EventIncome, 100, 5)))

	legs, err := store.EventsByCounterAsset(ctx, "bank")
	require.NoError(t, err)
	require.Len(t, legs, 1)
	assert.Equal(t, ledger.EventID("leg-in"), legs[0].ID)
}

func TestEventsByCategory_WindowIsHalfOpen(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	insert := func(id string, day int, month time.Month) {
		ev := testEvent(id, "bank", ledger.EventExpense, 10, day)
		ev.Date = time.Date(2026, month, day, 0, 0, 0, 0, time.UTC)
		ev.CategoryID = "food"
		require.NoError(t, store.InsertEvent(ctx, ev))
	}
	insert("in-window", 15, time.March)
	insert("at-start", 1, time.March)
	insert("next-month", 1, time.April)

	from := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	events, err := store.EventsByCategory(ctx, "food", from, from.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

// =============================================================================
// ATOMIC UNITS
// =============================================================================

func TestWithTx_RollbackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveAsset(ctx, testAsset("bank", 100)))

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(s ledger.Store) error {
		a := testAsset("bank", 999)
		if err := s.SaveAsset(ctx, a); err != nil {
			return err
		}
		if err := s.InsertEvent(ctx, testEvent("ev-1", "bank", ledger.EventIncome, 899, 1)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.GetAsset(ctx, "bank")
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(100)))
	ev, err := store.GetEvent(ctx, "ev-1")
	require.NoError(t, err)
	assert.Nil(t, ev)
}

func TestWithTx_CommitOnSuccess(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(s ledger.Store) error {
		if err := s.SaveAsset(ctx, testAsset("bank", 100)); err != nil {
			return err
		}
		return s.InsertEvent(ctx, testEvent("ev-1", "bank", ledger.EventIncome, 100, 1))
	})
	require.NoError(t, err)

	ev, err := store.GetEvent(ctx, "ev-1")
	require.NoError(t, err)
	assert.NotNil(t, ev)
}

func TestWithTx_EngineEndToEnd(t *testing.T) {
	// The full engine running against SQLite, not just the memory store
	store := newTestStore(t)
	ctx := context.Background()
	svc := ledger.NewService(store)

	require.NoError(t, store.SaveAsset(ctx, testAsset("bank", 0)))
	require.NoError(t, store.SaveAsset(ctx, testAsset("wallet", 0)))

	_, err := svc.Apply(ctx, ledger.ApplyInput{
		Type: ledger.EventIncome, Amount: decimal.NewFromInt(100000),
		Title: "Salary", Date: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		SourceAssetID: "bank",
	})
	require.NoError(t, err)

	_, err = svc.Transfer(ctx, ledger.TransferInput{
		Amount: decimal.NewFromInt(20000),
		Date:   time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC),
		SourceAssetID: "bank", DestinationAssetID: "wallet",
	})
	require.NoError(t, err)

	bank, err := store.GetAsset(ctx, "bank")
	require.NoError(t, err)
	assert.True(t, bank.Balance.Equal(decimal.NewFromInt(80000)))
	wallet, err := store.GetAsset(ctx, "wallet")
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(20000)))

	// Rejected operation leaves no trace
	_, err = svc.Transfer(ctx, ledger.TransferInput{
		Amount: decimal.NewFromInt(999999),
		Date:   time.Date(2026, time.March, 6, 0, 0, 0, 0, time.UTC),
		SourceAssetID: "bank", DestinationAssetID: "wallet",
	})
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	events, err := store.EventsByAsset(ctx, "bank")
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

// =============================================================================
// TEMPLATES, CATEGORIES, BUDGETS
// =============================================================================

func TestTemplate_RoundTripAndDue(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	save := func(id string, next time.Time) {
		require.NoError(t, store.SaveTemplate(ctx, ledger.RecurringTemplate{
			ID: ledger.TemplateID(id), Title: id, Amount: decimal.NewFromInt(100),
			IsIncome: true, AssetID: "bank", Frequency: ledger.FreqMonthly,
			NextRunDate: next, CreatedAt: now,
		}))
	}
	save("due", now.AddDate(0, 0, -3))
	save("exact", now)
	save("later", now.AddDate(0, 0, 3))

	due, err := store.DueTemplates(ctx, now)
	require.NoError(t, err)
	assert.Len(t, due, 2)

	all, err := store.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	got, err := store.GetTemplate(ctx, "due")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ledger.FreqMonthly, got.Frequency)
	assert.True(t, got.IsIncome)
}

func TestTemplate_DeleteByAsset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveTemplate(ctx, ledger.RecurringTemplate{
		ID: "t1", Amount: decimal.NewFromInt(1), AssetID: "bank",
		Frequency: ledger.FreqMonthly, NextRunDate: now,
	}))
	require.NoError(t, store.SaveTemplate(ctx, ledger.RecurringTemplate{
		ID: "t2", Amount: decimal.NewFromInt(1), AssetID: "wallet",
		Frequency: ledger.FreqMonthly, NextRunDate: now,
	}))

	require.NoError(t, store.DeleteTemplatesByAsset(ctx, "bank"))

	all, err := store.ListTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, ledger.TemplateID("t2"), all[0].ID)
}

func TestBudget_UpsertOnPeriodKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	b := ledger.Budget{
		ID: "b1", CategoryID: "food", Month: time.March, Year: 2026,
		Limit: decimal.NewFromInt(1000),
	}
	require.NoError(t, store.SaveBudget(ctx, b))

	// Same category/month/year with a new limit replaces, not duplicates
	b.ID = "b2"
	b.Limit = decimal.NewFromInt(1500)
	require.NoError(t, store.SaveBudget(ctx, b))

	budgets, err := store.BudgetsForPeriod(ctx, time.March, 2026)
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	assert.Equal(t, ledger.BudgetID("b1"), budgets[0].ID, "upsert keeps the original row id")
	assert.True(t, budgets[0].Limit.Equal(decimal.NewFromInt(1500)))
}

func TestCategory_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveCategory(ctx, ledger.Category{ID: "food", Name: "Food"}))
	require.NoError(t, store.SaveCategory(ctx, ledger.Category{ID: "salary", Name: "Salary", IsIncome: true}))

	got, err := store.GetCategory(ctx, "salary")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsIncome)

	cats, err := store.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 2)

	require.NoError(t, store.DeleteCategory(ctx, "food"))
	gone, err := store.GetCategory(ctx, "food")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestReset_ClearsEverything(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveAsset(ctx, testAsset("bank", 100)))
	require.NoError(t, store.InsertEvent(ctx, testEvent("ev-1", "bank", ledger.EventIncome, 100, 1)))

	require.NoError(t, store.Reset(ctx))

	assets, err := store.ListAssets(ctx)
	require.NoError(t, err)
	assert.Empty(t, assets)
	ev, err := store.GetEvent(ctx, "ev-1")
	require.NoError(t, err)
	assert.Nil(t, ev)
}
