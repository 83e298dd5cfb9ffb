/*
transfer.go - Transfer coordinator

PURPOSE:
  Represents money moving between two assets as two linked ledger
  events: a transfer_out at the source and a transfer_in at the
  destination, with swapped source/counter asset ids and equal amounts.
  Both events, the link between them, and both balance updates commit
  as a single atomic unit.

INVARIANT (transfer pairing):
  Every transfer_out has exactly one linked transfer_in with the same
  amount and swapped asset ids. Both are created or neither is; partial
  application is never observable.

SEE ALSO:
  - service.go: Primitives this coordinator shares
  - store.go: LinkStore
*/
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferInput describes a transfer between two assets.
type TransferInput struct {
	Amount             decimal.Decimal
	Title              string
	Note               string
	Date               time.Time
	SourceAssetID      AssetID
	DestinationAssetID AssetID
}

// TransferResult identifies the records created by a transfer.
type TransferResult struct {
	OutEventID EventID
	InEventID  EventID
	LinkID     LinkID
}

// Transfer builds and commits a transfer pair.
//
// Failure conditions: ErrInvalidAmount, ErrSameAssetTransfer,
// ErrAssetNotFound (either side), ErrInsufficientBalance (source).
func (s *Service) Transfer(ctx context.Context, in TransferInput) (TransferResult, error) {
	if !in.Amount.IsPositive() {
		return TransferResult{}, ErrInvalidAmount
	}
	if in.SourceAssetID == in.DestinationAssetID {
		return TransferResult{}, ErrSameAssetTransfer
	}

	result := TransferResult{
		OutEventID: EventID(uuid.NewString()),
		InEventID:  EventID(uuid.NewString()),
		LinkID:     LinkID(uuid.NewString()),
	}

	err := s.Store.WithTx(ctx, func(store Store) error {
		source, err := s.loadAsset(ctx, store, in.SourceAssetID)
		if err != nil {
			return err
		}
		dest, err := s.loadAsset(ctx, store, in.DestinationAssetID)
		if err != nil {
			return err
		}

		if source.Balance.Sub(in.Amount).IsNegative() {
			return &InsufficientBalanceError{
				AssetID:   source.ID,
				Balance:   source.Balance,
				Requested: in.Amount,
			}
		}

		now := s.Now().UTC()
		out := Transaction{
			ID:             result.OutEventID,
			SourceAssetID:  in.SourceAssetID,
			CounterAssetID: in.DestinationAssetID,
			Type:           EventTransferOut,
			Amount:         in.Amount,
			Title:          in.Title,
			Note:           in.Note,
			Date:           in.Date,
			CreatedAt:      now,
		}
		inEvent := Transaction{
			ID:             result.InEventID,
			SourceAssetID:  in.DestinationAssetID,
			CounterAssetID: in.SourceAssetID,
			Type:           EventTransferIn,
			Amount:         in.Amount,
			Title:          in.Title,
			Note:           in.Note,
			Date:           in.Date,
			CreatedAt:      now,
		}

		if err := store.InsertEvent(ctx, out); err != nil {
			return err
		}
		if err := store.InsertEvent(ctx, inEvent); err != nil {
			return err
		}
		if err := store.InsertLink(ctx, TransferLink{
			ID:         result.LinkID,
			OutEventID: result.OutEventID,
			InEventID:  result.InEventID,
		}); err != nil {
			return err
		}

		if err := s.shiftBalance(ctx, store, source, in.Amount.Neg()); err != nil {
			return err
		}
		return s.shiftBalance(ctx, store, dest, in.Amount)
	})
	if err != nil {
		return TransferResult{}, err
	}
	return result, nil
}
