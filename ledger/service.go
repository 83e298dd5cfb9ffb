/*
service.go - Transaction application service

PURPOSE:
  The validated write path for plain income/expense events. Apply checks
  the input, computes the signed effect, and commits the event insert
  and the balance update as one atomic unit. Unapply reverses a stored
  effect; DeleteEvent is the user-facing removal operation (including
  both legs of a transfer).

INVARIANT (balance consistency):
  Between completed operations, asset.Balance equals the sum of signed
  effects of every stored event whose source is that asset. The service
  maintains this incrementally - one delta per write - rather than
  recomputing history on every read. Reconcile (reconcile.go) recomputes
  from history when drift is suspected.

FAILURE SEMANTICS:
  A failed operation leaves state exactly as before the call. All
  validation happens against data read inside the same atomic unit that
  commits the write, so a concurrent mutation between read and commit
  cannot be observed.

SEE ALSO:
  - transfer.go: Two-legged transfers built on the same primitives
  - edit.go: Rollback-and-reapply for existing events
  - recurring.go: Materializer calling Apply with idempotency keys
*/
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service is the transaction application service. All balance mutation
// flows through it (directly, or via the transfer and edit paths that
// share its primitives).
type Service struct {
	Store TxStore

	// Now is the clock, overridable in tests.
	Now func() time.Time
}

// NewService creates a Service backed by the given store.
func NewService(store TxStore) *Service {
	return &Service{Store: store, Now: time.Now}
}

// =============================================================================
// APPLY
// =============================================================================

// ApplyInput describes a plain income or expense event to record.
type ApplyInput struct {
	Type          EventType
	Amount        decimal.Decimal
	Title         string
	Note          string
	Date          time.Time
	SourceAssetID AssetID
	CategoryID    CategoryID // optional

	// IdempotencyKey deduplicates retried writes. Empty means no
	// deduplication. The recurring materializer always sets it.
	IdempotencyKey string
}

// Apply validates the input and records the event, updating the source
// asset's cached balance in the same atomic unit. Returns the new
// event's identity.
//
// Failure conditions: ErrInvalidAmount, ErrInvalidEventType,
// ErrAssetNotFound, ErrCategoryNotFound, ErrInsufficientBalance,
// ErrDuplicateIdempotencyKey.
func (s *Service) Apply(ctx context.Context, in ApplyInput) (EventID, error) {
	if !in.Amount.IsPositive() {
		return "", ErrInvalidAmount
	}
	if in.Type != EventIncome && in.Type != EventExpense {
		return "", ErrInvalidEventType
	}

	id := EventID(uuid.NewString())
	err := s.Store.WithTx(ctx, func(store Store) error {
		if in.IdempotencyKey != "" {
			exists, err := store.HasIdempotencyKey(ctx, in.IdempotencyKey)
			if err != nil {
				return fmt.Errorf("check idempotency key: %w", err)
			}
			if exists {
				return ErrDuplicateIdempotencyKey
			}
		}

		asset, err := s.loadAsset(ctx, store, in.SourceAssetID)
		if err != nil {
			return err
		}
		if err := s.checkCategory(ctx, store, in.CategoryID); err != nil {
			return err
		}

		if in.Type.IsOutflow() && asset.Balance.Sub(in.Amount).IsNegative() {
			return &InsufficientBalanceError{
				AssetID:   asset.ID,
				Balance:   asset.Balance,
				Requested: in.Amount,
			}
		}

		tx := Transaction{
			ID:             id,
			SourceAssetID:  in.SourceAssetID,
			CategoryID:     in.CategoryID,
			Type:           in.Type,
			Amount:         in.Amount,
			Title:          in.Title,
			Note:           in.Note,
			Date:           in.Date,
			IdempotencyKey: in.IdempotencyKey,
			CreatedAt:      s.Now().UTC(),
		}
		if err := store.InsertEvent(ctx, tx); err != nil {
			return err
		}

		return s.shiftBalance(ctx, store, asset, Effect(in.Type, in.Amount))
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// =============================================================================
// DELETE (unapply)
// =============================================================================

// DeleteEvent removes an event and reverses its stored effect on the
// source asset's balance, as one atomic unit. Deleting one leg of a
// transfer removes both legs, the link, and both balance effects
// together - a half-deleted transfer is never observable.
//
// A reversal never fails on insufficient-balance grounds: it only
// restores funds or removes a credit that was already accounted for.
func (s *Service) DeleteEvent(ctx context.Context, id EventID) error {
	return s.Store.WithTx(ctx, func(store Store) error {
		tx, err := store.GetEvent(ctx, id)
		if err != nil {
			return fmt.Errorf("load event: %w", err)
		}
		if tx == nil {
			return ErrTransactionNotFound
		}

		if tx.Type.IsTransfer() {
			return s.deleteTransferPair(ctx, store, *tx)
		}
		return s.unapply(ctx, store, *tx)
	})
}

// unapply removes a stored event and subtracts its effect from the
// source asset. Caller must hold the atomic unit.
func (s *Service) unapply(ctx context.Context, store Store, tx Transaction) error {
	if err := store.DeleteEvent(ctx, tx.ID); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	asset, err := s.loadAsset(ctx, store, tx.SourceAssetID)
	if err != nil {
		return err
	}
	return s.shiftBalance(ctx, store, asset, EffectOf(tx).Neg())
}

// deleteTransferPair removes both legs of a transfer and their link.
func (s *Service) deleteTransferPair(ctx context.Context, store Store, leg Transaction) error {
	link, err := store.LinkByEvent(ctx, leg.ID)
	if err != nil {
		return fmt.Errorf("load transfer link: %w", err)
	}
	if link == nil {
		// Orphaned leg with no link: treat as a plain event.
		return s.unapply(ctx, store, leg)
	}

	otherID := link.OutEventID
	if otherID == leg.ID {
		otherID = link.InEventID
	}
	other, err := store.GetEvent(ctx, otherID)
	if err != nil {
		return fmt.Errorf("load paired event: %w", err)
	}

	if err := store.DeleteLink(ctx, link.ID); err != nil {
		return fmt.Errorf("delete transfer link: %w", err)
	}
	if err := s.unapply(ctx, store, leg); err != nil {
		return err
	}
	if other != nil {
		if err := s.unapply(ctx, store, *other); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// SHARED PRIMITIVES
// =============================================================================

func (s *Service) loadAsset(ctx context.Context, store Store, id AssetID) (*Asset, error) {
	asset, err := store.GetAsset(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load asset: %w", err)
	}
	if asset == nil {
		return nil, ErrAssetNotFound
	}
	return asset, nil
}

func (s *Service) checkCategory(ctx context.Context, store Store, id CategoryID) error {
	if id == "" {
		return nil
	}
	cat, err := store.GetCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("load category: %w", err)
	}
	if cat == nil {
		return ErrCategoryNotFound
	}
	return nil
}

// shiftBalance applies a signed delta to an asset's cached balance.
func (s *Service) shiftBalance(ctx context.Context, store Store, asset *Asset, delta decimal.Decimal) error {
	asset.Balance = asset.Balance.Add(delta)
	asset.UpdatedAt = s.Now().UTC()
	if err := store.SaveAsset(ctx, *asset); err != nil {
		return fmt.Errorf("save balance: %w", err)
	}
	return nil
}

// setBalance overwrites an asset's cached balance.
func (s *Service) setBalance(ctx context.Context, store Store, asset *Asset, balance decimal.Decimal) error {
	asset.Balance = balance
	asset.UpdatedAt = s.Now().UTC()
	if err := store.SaveAsset(ctx, *asset); err != nil {
		return fmt.Errorf("save balance: %w", err)
	}
	return nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
