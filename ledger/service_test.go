package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rizkiyusra/moneymanager/ledger"
	"github.com/rizkiyusra/moneymanager/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestService() (*ledger.Service, *store.Memory) {
	mem := store.NewMemory()
	svc := ledger.NewService(mem)
	svc.Now = func() time.Time {
		return time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	}
	return svc, mem
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seedAsset(t *testing.T, mem *store.Memory, id string, balance string) {
	t.Helper()
	err := mem.SaveAsset(context.Background(), ledger.Asset{
		ID:      ledger.AssetID(id),
		Name:    id,
		Type:    ledger.AssetBank,
		Balance: dec(balance),
		Active:  true,
	})
	require.NoError(t, err)
}

func seedCategory(t *testing.T, mem *store.Memory, id string) {
	t.Helper()
	err := mem.SaveCategory(context.Background(), ledger.Category{
		ID:   ledger.CategoryID(id),
		Name: id,
	})
	require.NoError(t, err)
}

func assetBalance(t *testing.T, mem *store.Memory, id string) decimal.Decimal {
	t.Helper()
	a, err := mem.GetAsset(context.Background(), ledger.AssetID(id))
	require.NoError(t, err)
	require.NotNil(t, a)
	return a.Balance
}

// sumEffects recomputes a balance from stored history, the invariant
// every test checks the cached value against.
func sumEffects(t *testing.T, mem *store.Memory, id string) decimal.Decimal {
	t.Helper()
	events, err := mem.EventsByAsset(context.Background(), ledger.AssetID(id))
	require.NoError(t, err)
	total := decimal.Zero
	for _, ev := range events {
		total = total.Add(ledger.EffectOf(ev))
	}
	return total
}

func requireConsistent(t *testing.T, mem *store.Memory, id string, initial string) {
	t.Helper()
	cached := assetBalance(t, mem, id)
	computed := dec(initial).Add(sumEffects(t, mem, id))
	assert.True(t, cached.Equal(computed),
		"cached balance %s diverged from history %s", cached, computed)
}

func march(day int) time.Time {
	return time.Date(2026, time.March, day, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// APPLY
// =============================================================================

func TestApply_Income_IncreasesBalance(t *testing.T) {
	svc, mem := newTestService()
	seedAsset(t, mem, "wallet", "0")

	id, err := svc.Apply(context.Background(), ledger.ApplyInput{
		Type:          ledger.EventIncome,
		Amount:        dec("100000"),
		Title:         "Salary",
		Date:          march(1),
		SourceAssetID: "wallet",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	assert.True(t, assetBalance(t, mem, "wallet").Equal(dec("100000")))
	requireConsistent(t, mem, "wallet", "0")
}

func TestApply_Expense_DecreasesBalance(t *testing.T) {
	svc, mem := newTestService()
	seedAsset(t, mem, "wallet", "100000")

	_, err := svc.Apply(context.Background(), ledger.ApplyInput{
		Type:          ledger.EventExpense,
		Amount:        dec("30000"),
		Title:         "Groceries",
		Date:          march(2),
		SourceAssetID: "wallet",
	})
	require.NoError(t, err)

	assert.True(t, assetBalance(t, mem, "wallet").Equal(dec("70000")))
}

func TestApply_RejectsNonPositiveAmount(t *testing.T) {
	svc, mem := newTestService()
	seedAsset(t, mem, "wallet", "100")

	for _, amount := range []string{"0", "-5"} {
		_, err := svc.Apply(context.Background(), ledger.ApplyInput{
			Type:          ledger.EventIncome,
			Amount:        dec(amount),
			Date:          march(1),
			SourceAssetID: "wallet",
		})
		assert.ErrorIs(t, err, ledger.ErrInvalidAmount, "amount %s", amount)
	}
	assert.True(t, assetBalance(t, mem, "wallet").Equal(dec("100")))
}

func TestApply_RejectsTransferTypes(t *testing.T) {
	svc, mem := newTestService()
	seedAsset(t, mem, "wallet", "100")

	_, err := svc.Apply(context.Background(), ledger.ApplyInput{
		Type:          ledger.EventTransferOut,
		Amount:        dec("10"),
		Date:          march(1),
		SourceAssetID: "wallet",
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidEventType)
}

func TestApply_UnknownAsset(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Apply(context.Background(), ledger.ApplyInput{
		Type:          ledger.EventIncome,
		Amount:        dec("10"),
		Date:          march(1),
		SourceAssetID: "nope",
	})
	assert.ErrorIs(t, err, ledger.ErrAssetNotFound)
}

func TestApply_UnknownCategory(t *testing.T) {
	svc, mem := newTestService()
	seedAsset(t, mem, "wallet", "100")

	_, err := svc.Apply(context.Background(), ledger.ApplyInput{
		Type:          ledger.EventExpense,
		Amount:        dec("10"),
		Date:          march(1),
		SourceAssetID: "wallet",
		CategoryID:    "missing",
	})
	assert.ErrorIs(t, err, ledger.ErrCategoryNotFound)
	assert.True(t, assetBalance(t, mem, "wallet").Equal(dec("100")))
}

func TestApply_ExpenseExactBalance_Allowed(t *testing.T) {
	// Spending down to exactly zero is allowed; the boundary is below
	// zero, not at it.
	svc, mem := newTestService()
	seedAsset(t, mem, "wallet", "50000")

	_, err := svc.Apply(context.Background(), ledger.ApplyInput{
		Type:          ledger.EventExpense,
		Amount:        dec("50000"),
		Date:          march(3),
		SourceAssetID: "wallet",
	})
	require.NoError(t, err)
	assert.True(t, assetBalance(t, mem, "wallet").IsZero())
}

func TestApply_ExpenseOverBalance_Rejected(t *testing.T) {
	svc, mem := newTestService()
	seedAsset(t, mem, "wallet", "50000")

	_, err := svc.Apply(context.Background(), ledger.ApplyInput{
		Type:          ledger.EventExpense,
		Amount:        dec("50000.01"),
		Date:          march(3),
		SourceAssetID: "wallet",
	})
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	var ibe *ledger.InsufficientBalanceError
	require.ErrorAs(t, err, &ibe)
	assert.True(t, ibe.Shortfall().Equal(dec("0.01")))
	assert.False(t, ibe.AfterEdit)

	// Nothing was recorded
	assert.True(t, assetBalance(t, mem, "wallet").Equal(dec("50000")))
	events, err := mem.EventsByAsset(context.Background(), "wallet")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestApply_IncomeNeverBlockedByBalance(t *testing.T) {
	svc, mem := newTestService()
	seedAsset(t, mem, "wallet", "0")

	_, err := svc.Apply(context.Background(), ledger.ApplyInput{
		Type:          ledger.EventIncome,
		Amount:        dec("0.01"),
		Date:          march(1),
		SourceAssetID: "wallet",
	})
	require.NoError(t, err)
	assert.True(t, assetBalance(t, mem, "wallet").Equal(dec("0.01")))
}

func TestApply_DuplicateIdempotencyKey(t *testing.T) {
	svc, mem := newTestService()
	seedAsset(t, mem, "wallet", "0")

	in := ledger.ApplyInput{
		Type:           ledger.EventIncome,
		Amount:         dec("100"),
		Date:           march(1),
		SourceAssetID:  "wallet",
		IdempotencyKey: "once",
	}
	_, err := svc.Apply(context.Background(), in)
	require.NoError(t, err)

	_, err = svc.Apply(context.Background(), in)
	assert.ErrorIs(t, err, ledger.ErrDuplicateIdempotencyKey)

	// Only the first write counted
	assert.True(t, assetBalance(t, mem, "wallet").Equal(dec("100")))
}

// =============================================================================
// DELETE
// =============================================================================

func TestDeleteEvent_ReversesEffect(t *testing.T) {
	svc, mem := newTestService()
	seedAsset(t, mem, "wallet", "0")

	id, err := svc.Apply(context.Background(), ledger.ApplyInput{
		Type:          ledger.EventIncome,
		Amount:        dec("500"),
		Date:          march(1),
		SourceAssetID: "wallet",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteEvent(context.Background(), id))

	assert.True(t, assetBalance(t, mem, "wallet").IsZero())
	tx, err := mem.GetEvent(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, tx)
}

func TestDeleteEvent_ExpenseRestoresFunds(t *testing.T) {
	// A reversal never fails on balance grounds: deleting an expense
	// puts money back.
	svc, mem := newTestService()
	seedAsset(t, mem, "wallet", "1000")

	id, err := svc.Apply(context.Background(), ledger.ApplyInput{
		Type:          ledger.EventExpense,
		Amount:        dec("1000"),
		Date:          march(1),
		SourceAssetID: "wallet",
	})
	require.NoError(t, err)
	assert.True(t, assetBalance(t, mem, "wallet").IsZero())

	require.NoError(t, svc.DeleteEvent(context.Background(), id))
	assert.True(t, assetBalance(t, mem, "wallet").Equal(dec("1000")))
}

func TestDeleteEvent_NotFound(t *testing.T) {
	svc, _ := newTestService()
	err := svc.DeleteEvent(context.Background(), "missing")
	assert.ErrorIs(t, err, ledger.ErrTransactionNotFound)
}

func TestDeleteEvent_FreesIdempotencyKey(t *testing.T) {
	svc, mem := newTestService()
	seedAsset(t, mem, "wallet", "0")

	in := ledger.ApplyInput{
		Type:           ledger.EventIncome,
		Amount:         dec("100"),
		Date:           march(1),
		SourceAssetID:  "wallet",
		IdempotencyKey: "key-1",
	}
	id, err := svc.Apply(context.Background(), in)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteEvent(context.Background(), id))

	// The key belongs to the deleted event, so a fresh apply may reuse it
	_, err = svc.Apply(context.Background(), in)
	assert.NoError(t, err)
}
