/*
assets.go - Asset lifecycle (creation, deletion cascade)

PURPOSE:
  Creation: a new asset's opening balance is recorded as an income
  event in the same atomic unit that persists the asset, so the cached
  balance and the event history agree from the first write and
  Reconcile is safe to run on any engine-created asset.

  Deletion: removing an asset removes its entire event history - the
  balance disappears with the asset, so no reconciliation is needed on
  its own side. What does need care is the OTHER side: transfer legs on
  other assets that reference the deleted asset as their counter party.
  Leaving those pointing at a dead id would be a silent data bug, so
  the cascade converts each orphaned leg into a plain income/expense
  event with the counter reference cleared. The sign of the effect is
  preserved, so no other asset's balance changes.

CASCADE ORDER (one atomic unit):
  1. Delete transfer links touching any of the asset's events
  2. Delete every event sourced at the asset
  3. Convert orphaned counter legs on other assets
  4. Delete recurring templates targeting the asset
  5. Delete the asset record

SEE ALSO:
  - store.go: EventsByCounterAsset, DeleteTemplatesByAsset
*/
package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateAsset persists a new asset. A positive opening balance is
// materialized as an income event alongside the asset record, so the
// balance-consistency invariant holds from the asset's first moment.
//
// Failure conditions: ErrInvalidAmount (negative opening balance).
func (s *Service) CreateAsset(ctx context.Context, a Asset, opening decimal.Decimal) error {
	if opening.IsNegative() {
		return ErrInvalidAmount
	}
	return s.Store.WithTx(ctx, func(store Store) error {
		a.Balance = opening
		if err := store.SaveAsset(ctx, a); err != nil {
			return fmt.Errorf("save asset: %w", err)
		}
		if opening.IsZero() {
			return nil
		}
		now := s.Now().UTC()
		return store.InsertEvent(ctx, Transaction{
			ID:            EventID(uuid.NewString()),
			SourceAssetID: a.ID,
			Type:          EventIncome,
			Amount:        opening,
			Title:         "Opening balance",
			Date:          now,
			CreatedAt:     now,
		})
	})
}

// DeleteAsset removes an asset, its events, and its templates, and
// repairs transfer legs on other assets that referenced it.
//
// Failure conditions: ErrAssetNotFound.
func (s *Service) DeleteAsset(ctx context.Context, id AssetID) error {
	return s.Store.WithTx(ctx, func(store Store) error {
		asset, err := store.GetAsset(ctx, id)
		if err != nil {
			return fmt.Errorf("load asset: %w", err)
		}
		if asset == nil {
			return ErrAssetNotFound
		}

		events, err := store.EventsByAsset(ctx, id)
		if err != nil {
			return fmt.Errorf("load asset events: %w", err)
		}
		for _, ev := range events {
			if ev.Type.IsTransfer() {
				link, err := store.LinkByEvent(ctx, ev.ID)
				if err != nil {
					return fmt.Errorf("load transfer link: %w", err)
				}
				if link != nil {
					if err := store.DeleteLink(ctx, link.ID); err != nil {
						return fmt.Errorf("delete transfer link: %w", err)
					}
				}
			}
			if err := store.DeleteEvent(ctx, ev.ID); err != nil {
				return fmt.Errorf("delete event: %w", err)
			}
		}

		if err := s.convertOrphanedLegs(ctx, store, id); err != nil {
			return err
		}

		if err := store.DeleteTemplatesByAsset(ctx, id); err != nil {
			return fmt.Errorf("delete templates: %w", err)
		}
		if err := store.DeleteAsset(ctx, id); err != nil {
			return fmt.Errorf("delete asset: %w", err)
		}
		return nil
	})
}

// convertOrphanedLegs rewrites transfer legs on other assets whose
// counter party was deleted: transfer_in becomes income, transfer_out
// becomes expense. The signed effect is unchanged, so the owning
// asset's balance stays consistent without adjustment.
func (s *Service) convertOrphanedLegs(ctx context.Context, store Store, deleted AssetID) error {
	legs, err := store.EventsByCounterAsset(ctx, deleted)
	if err != nil {
		return fmt.Errorf("load counter legs: %w", err)
	}
	for _, leg := range legs {
		switch leg.Type {
		case EventTransferIn:
			leg.Type = EventIncome
		case EventTransferOut:
			leg.Type = EventExpense
		default:
			continue
		}
		leg.CounterAssetID = ""
		if err := store.UpdateEvent(ctx, leg); err != nil {
			return fmt.Errorf("convert orphaned leg: %w", err)
		}
	}
	return nil
}
