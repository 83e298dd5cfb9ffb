/*
effect.go - Signed balance delta per event type

PURPOSE:
  Pure mapping from (event type, amount) to the signed delta the event
  contributes to its source asset's balance. Income and transfer_in
  credit the asset; expense and transfer_out debit it.

  Amount is pre-validated to be positive by callers; Effect has no
  error cases and no side effects.

SEE ALSO:
  - service.go: Applies and reverses effects against stored balances
*/
package ledger

import "github.com/shopspring/decimal"

// Effect returns the signed balance delta for an event.
//
//	income, transfer_in  -> +amount
//	expense, transfer_out -> -amount
func Effect(t EventType, amount decimal.Decimal) decimal.Decimal {
	if t.IsOutflow() {
		return amount.Neg()
	}
	return amount
}

// EffectOf is shorthand for the effect of a stored transaction.
func EffectOf(tx Transaction) decimal.Decimal {
	return Effect(tx.Type, tx.Amount)
}
