package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rizkiyusra/moneymanager/ledger"
)

func TestEdit_RollbackAndReapply(t *testing.T) {
	// GIVEN: 100,000 income then a 30,000 expense (balance 70,000)
	// WHEN: The expense is edited down to 20,000
	// THEN: Balance is 80,000, as if the expense had always been 20,000
	svc, mem := newTestService()
	seedAsset(t, mem, "wallet", "0")

	_, err := svc.Apply(context.Background(), ledger.ApplyInput{
		Type:          ledger.EventIncome,
		Amount:        dec("100000"),
		Title:         "Salary",
		Date:          march(1),
		SourceAssetID: "wallet",
	})
	require.NoError(t, err)

	id, err := svc.Apply(context.Background(), ledger.ApplyInput{
		Type:          ledger.EventExpense,
		Amount:        dec("30000"),
		Title:         "Groceries",
		Date:          march(2),
		SourceAssetID: "wallet",
	})
	require.NoError(t, err)
	require.True(t, assetBalance(t, mem, "wallet").Equal(dec("70000")))

	err = svc.Edit(context.Background(), id, ledger.EditInput{
		Type:   ledger.EventExpense,
		Amount: dec("20000"),
		Title:  "Groceries",
		Date:   march(2),
	})
	require.NoError(t, err)

	assert.True(t, assetBalance(t, mem, "wallet").Equal(dec("80000")))
	requireConsistent(t, mem, "wallet", "0")

	tx, err := mem.GetEvent(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.True(t, tx.Amount.Equal(dec("20000")))
}

func TestEdit_AfterMixedHistory(t *testing.T) {
	// GIVEN: Asset A at 100,000; a 30,000 expense (A=70,000); a 20,000
	//        transfer A->B (A=50,000, B=20,000)
	// WHEN: The expense is edited down to 10,000
	// THEN: A = 50,000 - (-30,000) + (-10,000) = 70,000; B untouched
	svc, mem := newTestService()
	seedAsset(t, mem, "a", "100000")
	seedAsset(t, mem, "b", "0")

	id, err := svc.Apply(context.Background(), ledger.ApplyInput{
		Type:          ledger.EventExpense,
		Amount:        dec("30000"),
		Title:         "Rent",
		Date:          march(1),
		SourceAssetID: "a",
	})
	require.NoError(t, err)
	require.True(t, assetBalance(t, mem, "a").Equal(dec("70000")))

	_, err = svc.Transfer(context.Background(), ledger.TransferInput{
		Amount:             dec("20000"),
		Title:              "Move to savings",
		Date:               march(3),
		SourceAssetID:      "a",
		DestinationAssetID: "b",
	})
	require.NoError(t, err)
	require.True(t, assetBalance(t, mem, "a").Equal(dec("50000")))
	require.True(t, assetBalance(t, mem, "b").Equal(dec("20000")))

	err = svc.Edit(context.Background(), id, ledger.EditInput{
		Type:   ledger.EventExpense,
		Amount: dec("10000"),
		Title:  "Rent",
		Date:   march(1),
	})
	require.NoError(t, err)

	assert.True(t, assetBalance(t, mem, "a").Equal(dec("70000")))
	assert.True(t, assetBalance(t, mem, "b").Equal(dec("20000")))
	requireConsistent(t, mem, "a", "100000")
	requireConsistent(t, mem, "b", "0")
}

func TestEdit_SameValues_NoDrift(t *testing.T) {
	// Editing with identical values must leave the balance untouched:
	// rollback and reapply cancel exactly.
	svc, mem := newTestService()
	seedAsset(t, mem, "wallet", "0")

	_, err := svc.Apply(context.Background(), ledger.ApplyInput{
		Type:          ledger.EventIncome,
		Amount:        dec("100000"),
		Title:         "Salary",
		Date:          march(1),
		SourceAssetID: "wallet",
	})
	require.NoError(t, err)

	id, err := svc.Apply(context.Background(), ledger.ApplyInput{
		Type:          ledger.EventExpense,
		Amount:        dec("30000"),
		Title:         "Groceries",
		Date:          march(2),
		SourceAssetID: "wallet",
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		err = svc.Edit(context.Background(), id, ledger.EditInput{
			Type:   ledger.EventExpense,
			Amount: dec("30000"),
			Title:  "Groceries",
			Date:   march(2),
		})
		require.NoError(t, err)
	}
	assert.True(t, assetBalance(t, mem, "wallet").Equal(dec("70000")))
}

func TestEdit_FlipExpenseToIncome(t *testing.T) {
	svc, mem := newTestService()
	seedAsset(t, mem, "wallet", "50000")

	id, err := svc.Apply(context.Background(), ledger.ApplyInput{
		Type:          ledger.EventExpense,
		Amount:        dec("10000"),
		Title:         "Mislabeled",
		Date:          march(2),
		SourceAssetID: "wallet",
	})
	require.NoError(t, err)
	require.True(t, assetBalance(t, mem, "wallet").Equal(dec("40000")))

	err = svc.Edit(context.Background(), id, ledger.EditInput{
		Type:   ledger.EventIncome,
		Amount: dec("10000"),
		Title:  "Refund",
		Date:   march(2),
	})
	require.NoError(t, err)

	// -10000 rolled back, +10000 applied: net swing of 20000
	assert.True(t, assetBalance(t, mem, "wallet").Equal(dec("60000")))
}

func TestEdit_InsufficientAfterRollback(t *testing.T) {
	// GIVEN: 50,000 income, a 30,000 expense, then 15,000 spent elsewhere
	//        (balance 5,000; rollback of the expense would give 35,000)
	// WHEN: The expense is edited up to 35,000.01
	// THEN: Rejected with the after-edit flavor, state unchanged
	svc, mem := newTestService()
	seedAsset(t, mem, "wallet", "50000")

	id, err := svc.Apply(context.Background(), ledger.ApplyInput{
		Type:          ledger.EventExpense,
		Amount:        dec("30000"),
		Title:         "Rent",
		Date:          march(1),
		SourceAssetID: "wallet",
	})
	require.NoError(t, err)

	_, err = svc.Apply(context.Background(), ledger.ApplyInput{
		Type:          ledger.EventExpense,
		Amount:        dec("15000"),
		Title:         "Bills",
		Date:          march(2),
		SourceAssetID: "wallet",
	})
	require.NoError(t, err)
	require.True(t, assetBalance(t, mem, "wallet").Equal(dec("5000")))

	err = svc.Edit(context.Background(), id, ledger.EditInput{
		Type:   ledger.EventExpense,
		Amount: dec("35000.01"),
		Title:  "Rent",
		Date:   march(1),
	})
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalanceAfterEdit)
	assert.NotErrorIs(t, err, ledger.ErrInsufficientBalance)

	var ibe *ledger.InsufficientBalanceError
	require.ErrorAs(t, err, &ibe)
	assert.True(t, ibe.AfterEdit)
	assert.True(t, ibe.Balance.Equal(dec("35000")), "reported against the rolled-back balance")

	// Untouched
	assert.True(t, assetBalance(t, mem, "wallet").Equal(dec("5000")))
	tx, err := mem.GetEvent(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, tx.Amount.Equal(dec("30000")))
}

func TestEdit_UpToRolledBackBalance_Allowed(t *testing.T) {
	svc, mem := newTestService()
	seedAsset(t, mem, "wallet", "50000")

	id, err := svc.Apply(context.Background(), ledger.ApplyInput{
		Type:          ledger.EventExpense,
		Amount:        dec("30000"),
		Title:         "Rent",
		Date:          march(1),
		SourceAssetID: "wallet",
	})
	require.NoError(t, err)

	// Rollback gives 50,000; spending exactly that is fine
	err = svc.Edit(context.Background(), id, ledger.EditInput{
		Type:   ledger.EventExpense,
		Amount: dec("50000"),
		Title:  "Rent",
		Date:   march(1),
	})
	require.NoError(t, err)
	assert.True(t, assetBalance(t, mem, "wallet").IsZero())
}

func TestEdit_Validation(t *testing.T) {
	svc, mem := newTestService()
	seedAsset(t, mem, "wallet", "1000")

	id, err := svc.Apply(context.Background(), ledger.ApplyInput{
		Type:          ledger.EventExpense,
		Amount:        dec("100"),
		Title:         "Lunch",
		Date:          march(1),
		SourceAssetID: "wallet",
	})
	require.NoError(t, err)

	cases := []struct {
		name string
		in   ledger.EditInput
		want error
	}{
		{"zero amount", ledger.EditInput{Type: ledger.EventExpense, Amount: dec("0"), Title: "x", Date: march(1)}, ledger.ErrInvalidAmount},
		{"blank title", ledger.EditInput{Type: ledger.EventExpense, Amount: dec("10"), Title: "   ", Date: march(1)}, ledger.ErrBlankTitle},
		{"transfer type", ledger.EditInput{Type: ledger.EventTransferOut, Amount: dec("10"), Title: "x", Date: march(1)}, ledger.ErrTransferNotEditable},
		{"unknown category", ledger.EditInput{Type: ledger.EventExpense, Amount: dec("10"), Title: "x", CategoryID: "nope", Date: march(1)}, ledger.ErrCategoryNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Edit(context.Background(), id, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	// Target must exist
	err = svc.Edit(context.Background(), "missing", ledger.EditInput{
		Type: ledger.EventExpense, Amount: dec("10"), Title: "x", Date: march(1),
	})
	assert.ErrorIs(t, err, ledger.ErrTransactionNotFound)

	// None of the rejected edits moved the balance
	assert.True(t, assetBalance(t, mem, "wallet").Equal(dec("900")))
}

func TestEdit_ChangesCategory(t *testing.T) {
	svc, mem := newTestService()
	seedAsset(t, mem, "wallet", "1000")
	seedCategory(t, mem, "food")
	seedCategory(t, mem, "transport")

	id, err := svc.Apply(context.Background(), ledger.ApplyInput{
		Type:          ledger.EventExpense,
		Amount:        dec("100"),
		Title:         "Taxi",
		Date:          march(1),
		SourceAssetID: "wallet",
		CategoryID:    "food",
	})
	require.NoError(t, err)

	err = svc.Edit(context.Background(), id, ledger.EditInput{
		Type:       ledger.EventExpense,
		Amount:     dec("100"),
		Title:      "Taxi",
		CategoryID: "transport",
		Date:       march(1),
	})
	require.NoError(t, err)

	tx, err := mem.GetEvent(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, ledger.CategoryID("transport"), tx.CategoryID)
	assert.True(t, assetBalance(t, mem, "wallet").Equal(dec("900")))
}
