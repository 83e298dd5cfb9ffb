/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Every write operation returns one of these for expected business
  conditions; nothing panics for insufficient funds or missing
  references. Store-level I/O failures are wrapped and surface as
  plain errors the caller retries.

ERROR CATEGORIES:
  1. Validation errors - bad amounts, blank titles, same-asset transfer
  2. Reference errors - missing asset/category/transaction
  3. Balance errors - would drive an asset below zero
  4. Concurrency errors - conflicting edits, duplicate idempotency keys

USAGE:
  if errors.Is(err, ledger.ErrInsufficientBalance) {
      // surface to the user, do not retry
  }

SEE ALSO:
  - service.go, transfer.go, edit.go: Producers of these errors
  - api/handlers.go: Maps these to HTTP status codes
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAmount is returned when an amount <= 0 is supplied to
	// apply/transfer/edit.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInvalidEventType is returned when Apply is given a transfer
	// type. Transfers go through the coordinator so both legs commit
	// together.
	ErrInvalidEventType = errors.New("invalid event type for direct apply")

	// ErrAssetNotFound is returned when a referenced asset id does not exist.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrCategoryNotFound is returned when a referenced category id does
	// not exist.
	ErrCategoryNotFound = errors.New("category not found")

	// ErrInsufficientBalance is returned when an expense or transfer_out
	// would drive the source asset's balance below zero at apply time.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientBalanceAfterEdit is the same condition computed
	// against the rolled-back balance during an edit.
	ErrInsufficientBalanceAfterEdit = errors.New("insufficient balance after edit")

	// ErrSameAssetTransfer is returned when transfer source and
	// destination are identical.
	ErrSameAssetTransfer = errors.New("transfer source and destination are the same asset")

	// ErrTransactionNotFound is returned when an edit/delete target does
	// not exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrBlankTitle is returned when a required title is empty on edit.
	ErrBlankTitle = errors.New("title must not be blank")

	// ErrTransferNotEditable is returned when an edit targets one leg of
	// a transfer pair. Editing a single leg would break pairing.
	ErrTransferNotEditable = errors.New("transfer events cannot be edited")

	// ErrDuplicateIdempotencyKey is returned when an event with the same
	// idempotency key already exists. Expected behavior for retries.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrTemplateNotFound is returned when a referenced recurring
	// template does not exist.
	ErrTemplateNotFound = errors.New("recurring template not found")

	// ErrBudgetNotFound is returned when a referenced budget does not exist.
	ErrBudgetNotFound = errors.New("budget not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError provides details about a balance shortage.
type InsufficientBalanceError struct {
	AssetID   AssetID
	Balance   decimal.Decimal
	Requested decimal.Decimal
	AfterEdit bool
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance in asset %s: available %s, requested %s",
		e.AssetID, e.Balance.String(), e.Requested.String())
}

func (e *InsufficientBalanceError) Unwrap() error {
	if e.AfterEdit {
		return ErrInsufficientBalanceAfterEdit
	}
	return ErrInsufficientBalance
}

// Shortfall returns how much the request exceeded the available balance.
func (e *InsufficientBalanceError) Shortfall() decimal.Decimal {
	return e.Requested.Sub(e.Balance)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidEventType) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInsufficientBalanceAfterEdit) ||
		errors.Is(err, ErrSameAssetTransfer) ||
		errors.Is(err, ErrBlankTitle) ||
		errors.Is(err, ErrTransferNotEditable)
}

// IsNotFound returns true if the error indicates a missing reference.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAssetNotFound) ||
		errors.Is(err, ErrCategoryNotFound) ||
		errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrTemplateNotFound) ||
		errors.Is(err, ErrBudgetNotFound)
}

// IsConflict returns true if the error indicates a duplicate write.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateIdempotencyKey)
}
