/*
reconcile.go - Balance reconciliation

PURPOSE:
  The cached balance is maintained incrementally for read performance.
  Reconcile is the escape hatch: it recomputes the balance from the
  full event history and overwrites the cached value, all inside one
  atomic unit. When incremental and recomputed values disagree, the
  recomputed value wins - history is the source of truth.

SEE ALSO:
  - service.go: The incremental write path
*/
package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// ReconcileResult reports the outcome of a reconciliation.
type ReconcileResult struct {
	AssetID    AssetID
	OldBalance decimal.Decimal
	NewBalance decimal.Decimal
}

// Drift returns how far the cached balance had wandered from history.
func (r ReconcileResult) Drift() decimal.Decimal {
	return r.OldBalance.Sub(r.NewBalance)
}

// Reconcile recomputes an asset's balance from its stored events and
// overwrites the cached value.
//
// Failure conditions: ErrAssetNotFound.
func (s *Service) Reconcile(ctx context.Context, id AssetID) (ReconcileResult, error) {
	var result ReconcileResult
	err := s.Store.WithTx(ctx, func(store Store) error {
		asset, err := s.loadAsset(ctx, store, id)
		if err != nil {
			return err
		}

		events, err := store.EventsByAsset(ctx, id)
		if err != nil {
			return fmt.Errorf("load asset events: %w", err)
		}

		computed := decimal.Zero
		for _, ev := range events {
			computed = computed.Add(EffectOf(ev))
		}

		result = ReconcileResult{
			AssetID:    id,
			OldBalance: asset.Balance,
			NewBalance: computed,
		}
		if asset.Balance.Equal(computed) {
			return nil
		}
		return s.setBalance(ctx, store, asset, computed)
	})
	if err != nil {
		return ReconcileResult{}, err
	}
	return result, nil
}
