/*
edit.go - Edit/rollback engine

PURPOSE:
  Editing an event means reversing its old effect and applying its new
  effect against the asset's balance. The engine computes

      rollback = balance - Effect(oldType, oldAmount)
      final    = rollback + Effect(newType, newAmount)

  validates the net result, and commits the mutated event fields and
  the new balance together.

CONSISTENCY:
  The old event, the current balance, and the commit all happen inside
  one atomic unit. Two edits of different events on the same asset
  cannot interleave between read and write; the store's unit is the
  check-and-set boundary.

TRANSFERS:
  Transfer legs are not editable through this path - changing one leg
  independently would break the pairing invariant. Delete the transfer
  and create a new one instead.

SEE ALSO:
  - service.go: Balance primitives
  - effect.go: Signed effects
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EditInput is the proposed replacement for an existing event's mutable
// fields. Identity and source asset never change.
type EditInput struct {
	Type       EventType
	Amount     decimal.Decimal
	CategoryID CategoryID
	Title      string
	Note       string
	Date       time.Time
}

// Edit replaces an event's mutable fields and recomputes the source
// asset's balance from the rolled-back value.
//
// Failure conditions: ErrTransactionNotFound, ErrInvalidAmount,
// ErrBlankTitle, ErrTransferNotEditable, ErrInvalidEventType,
// ErrCategoryNotFound, ErrInsufficientBalanceAfterEdit.
func (s *Service) Edit(ctx context.Context, id EventID, in EditInput) error {
	if !in.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if blank(in.Title) {
		return ErrBlankTitle
	}
	if in.Type.IsTransfer() {
		return ErrTransferNotEditable
	}
	if in.Type != EventIncome && in.Type != EventExpense {
		return ErrInvalidEventType
	}

	return s.Store.WithTx(ctx, func(store Store) error {
		old, err := store.GetEvent(ctx, id)
		if err != nil {
			return fmt.Errorf("load event: %w", err)
		}
		if old == nil {
			return ErrTransactionNotFound
		}
		if old.Type.IsTransfer() {
			return ErrTransferNotEditable
		}
		if err := s.checkCategory(ctx, store, in.CategoryID); err != nil {
			return err
		}

		asset, err := s.loadAsset(ctx, store, old.SourceAssetID)
		if err != nil {
			return err
		}

		rollback := asset.Balance.Sub(EffectOf(*old))
		final := rollback.Add(Effect(in.Type, in.Amount))

		// Reducing an outflow can only raise the balance, so the check
		// bites only when the edit increases the net debit.
		if in.Type.IsOutflow() && final.IsNegative() {
			return &InsufficientBalanceError{
				AssetID:   asset.ID,
				Balance:   rollback,
				Requested: in.Amount,
				AfterEdit: true,
			}
		}

		updated := *old
		updated.Type = in.Type
		updated.Amount = in.Amount
		updated.CategoryID = in.CategoryID
		updated.Title = in.Title
		updated.Note = in.Note
		updated.Date = in.Date

		if err := store.UpdateEvent(ctx, updated); err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		return s.setBalance(ctx, store, asset, final)
	})
}
