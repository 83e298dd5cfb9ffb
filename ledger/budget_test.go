package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rizkiyusra/moneymanager/ledger"
	"github.com/rizkiyusra/moneymanager/ledger/store"
)

func seedBudget(t *testing.T, mem *store.Memory, id, category string, month time.Month, year int, limit string) {
	t.Helper()
	err := mem.SaveBudget(context.Background(), ledger.Budget{
		ID:         ledger.BudgetID(id),
		CategoryID: ledger.CategoryID(category),
		Month:      month,
		Year:       year,
		Limit:      dec(limit),
	})
	require.NoError(t, err)
}

func TestSpent_SumsOnlyExpensesInMonth(t *testing.T) {
	svc, mem := newTestService()
	p := ledger.NewProjector(mem)
	seedAsset(t, mem, "wallet", "100000")
	seedCategory(t, mem, "food")

	// Two March expenses, one April expense, one March income -
	// only the March expenses count
	for _, in := range []ledger.ApplyInput{
		{Type: ledger.EventExpense, Amount: dec("100"), Title: "a", Date: march(3), SourceAssetID: "wallet", CategoryID: "food"},
		{Type: ledger.EventExpense, Amount: dec("250"), Title: "b", Date: march(28), SourceAssetID: "wallet", CategoryID: "food"},
		{Type: ledger.EventExpense, Amount: dec("999"), Title: "c", Date: time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC), SourceAssetID: "wallet", CategoryID: "food"},
		{Type: ledger.EventIncome, Amount: dec("5000"), Title: "d", Date: march(10), SourceAssetID: "wallet", CategoryID: "food"},
	} {
		_, err := svc.Apply(context.Background(), in)
		require.NoError(t, err)
	}

	spent, err := p.Spent(context.Background(), "food", time.March, 2026)
	require.NoError(t, err)
	assert.True(t, spent.Equal(dec("350")))
}

func TestSpent_EmptyCategoryIsZero(t *testing.T) {
	_, mem := newTestService()
	p := ledger.NewProjector(mem)

	spent, err := p.Spent(context.Background(), "nothing", time.March, 2026)
	require.NoError(t, err)
	assert.True(t, spent.IsZero())
}

func TestSpent_TracksEditsAndDeletes(t *testing.T) {
	// Spend is derived, never cached: editing or deleting an expense
	// changes the projection immediately.
	svc, mem := newTestService()
	p := ledger.NewProjector(mem)
	seedAsset(t, mem, "wallet", "100000")
	seedCategory(t, mem, "food")

	id, err := svc.Apply(context.Background(), ledger.ApplyInput{
		Type: ledger.EventExpense, Amount: dec("300"), Title: "Dinner",
		Date: march(3), SourceAssetID: "wallet", CategoryID: "food",
	})
	require.NoError(t, err)

	err = svc.Edit(context.Background(), id, ledger.EditInput{
		Type: ledger.EventExpense, Amount: dec("120"), Title: "Dinner",
		CategoryID: "food", Date: march(3),
	})
	require.NoError(t, err)

	spent, err := p.Spent(context.Background(), "food", time.March, 2026)
	require.NoError(t, err)
	assert.True(t, spent.Equal(dec("120")))

	require.NoError(t, svc.DeleteEvent(context.Background(), id))
	spent, err = p.Spent(context.Background(), "food", time.March, 2026)
	require.NoError(t, err)
	assert.True(t, spent.IsZero())
}

func TestStatuses_JoinsBudgetsWithSpend(t *testing.T) {
	svc, mem := newTestService()
	p := ledger.NewProjector(mem)
	seedAsset(t, mem, "wallet", "100000")
	seedCategory(t, mem, "food")
	seedCategory(t, mem, "transport")
	seedBudget(t, mem, "b1", "food", time.March, 2026, "1000")
	seedBudget(t, mem, "b2", "transport", time.March, 2026, "500")

	_, err := svc.Apply(context.Background(), ledger.ApplyInput{
		Type: ledger.EventExpense, Amount: dec("700"), Title: "Groceries",
		Date: march(10), SourceAssetID: "wallet", CategoryID: "food",
	})
	require.NoError(t, err)
	_, err = svc.Apply(context.Background(), ledger.ApplyInput{
		Type: ledger.EventExpense, Amount: dec("650"), Title: "Flights",
		Date: march(11), SourceAssetID: "wallet", CategoryID: "transport",
	})
	require.NoError(t, err)

	statuses, err := p.Statuses(context.Background(), time.March, 2026)
	require.NoError(t, err)
	require.Len(t, statuses, 2)

	byCategory := map[ledger.CategoryID]ledger.BudgetStatus{}
	for _, s := range statuses {
		byCategory[s.Budget.CategoryID] = s
	}

	food := byCategory["food"]
	assert.True(t, food.Spent.Equal(dec("700")))
	assert.True(t, food.Remaining().Equal(dec("300")))

	// Over budget goes negative, it is never clamped
	transport := byCategory["transport"]
	assert.True(t, transport.Spent.Equal(dec("650")))
	assert.True(t, transport.Remaining().Equal(dec("-150")))
}

func TestStatuses_OtherMonthsExcluded(t *testing.T) {
	_, mem := newTestService()
	p := ledger.NewProjector(mem)
	seedCategory(t, mem, "food")
	seedBudget(t, mem, "b1", "food", time.February, 2026, "1000")

	statuses, err := p.Statuses(context.Background(), time.March, 2026)
	require.NoError(t, err)
	assert.Empty(t, statuses)
}
