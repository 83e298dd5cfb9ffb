/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNTS:
  All money fields travel as decimal strings ("30000", "12.50"), never
  JSON numbers. Float64 cannot represent money exactly.

DATES:
  Event dates use YYYY-MM-DD; record timestamps use RFC3339.

VALIDATION:
  Validation is done in handlers and the engine, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/types.go: The domain model these mirror
*/
package api

import (
	"time"

	"github.com/rizkiyusra/moneymanager/ledger"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// AssetDTO represents an asset in API responses.
type AssetDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Balance   string `json:"balance"`
	Currency  string `json:"currency,omitempty"`
	Active    bool   `json:"active"`
	SortOrder int    `json:"sort_order"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// CreateAssetRequest is the request to create an asset.
type CreateAssetRequest struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	InitialBalance string `json:"initial_balance,omitempty"`
	Currency       string `json:"currency,omitempty"`
	SortOrder      int    `json:"sort_order,omitempty"`
}

// UpdateAssetRequest is the request to rename/reorder an asset. Balance
// is deliberately absent: it moves only through the ledger.
type UpdateAssetRequest struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Currency  string `json:"currency,omitempty"`
	Active    *bool  `json:"active,omitempty"`
	SortOrder int    `json:"sort_order,omitempty"`
}

// TransactionDTO represents a ledger event.
type TransactionDTO struct {
	ID             string `json:"id"`
	SourceAssetID  string `json:"source_asset_id"`
	CounterAssetID string `json:"counter_asset_id,omitempty"`
	CategoryID     string `json:"category_id,omitempty"`
	Type           string `json:"type"`
	Amount         string `json:"amount"`
	Title          string `json:"title,omitempty"`
	Note           string `json:"note,omitempty"`
	Date           string `json:"date"`
	CreatedAt      string `json:"created_at,omitempty"`
}

// CreateTransactionRequest records an income or expense.
type CreateTransactionRequest struct {
	Type          string `json:"type"`
	Amount        string `json:"amount"`
	Title         string `json:"title,omitempty"`
	Note          string `json:"note,omitempty"`
	Date          string `json:"date"`
	SourceAssetID string `json:"source_asset_id"`
	CategoryID    string `json:"category_id,omitempty"`
}

// EditTransactionRequest rewrites an existing event's user-facing fields.
type EditTransactionRequest struct {
	Type       string `json:"type"`
	Amount     string `json:"amount"`
	Title      string `json:"title"`
	Note       string `json:"note,omitempty"`
	Date       string `json:"date"`
	CategoryID string `json:"category_id,omitempty"`
}

// TransferRequest moves funds between two assets.
type TransferRequest struct {
	Amount             string `json:"amount"`
	Title              string `json:"title,omitempty"`
	Note               string `json:"note,omitempty"`
	Date               string `json:"date"`
	SourceAssetID      string `json:"source_asset_id"`
	DestinationAssetID string `json:"destination_asset_id"`
}

// TransferResponse identifies the two legs and their link.
type TransferResponse struct {
	OutEventID string `json:"out_event_id"`
	InEventID  string `json:"in_event_id"`
	LinkID     string `json:"link_id"`
}

// CategoryDTO represents a category in API responses.
type CategoryDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsIncome  bool   `json:"is_income"`
	SortOrder int    `json:"sort_order"`
}

// CreateCategoryRequest is the request to create a category.
type CreateCategoryRequest struct {
	Name      string `json:"name"`
	IsIncome  bool   `json:"is_income"`
	SortOrder int    `json:"sort_order,omitempty"`
}

// TemplateDTO represents a recurring template.
type TemplateDTO struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Amount      string `json:"amount"`
	IsIncome    bool   `json:"is_income"`
	CategoryID  string `json:"category_id,omitempty"`
	AssetID     string `json:"asset_id"`
	Frequency   string `json:"frequency"`
	NextRunDate string `json:"next_run_date"`
}

// CreateTemplateRequest is the request to create a recurring template.
type CreateTemplateRequest struct {
	Title       string `json:"title"`
	Amount      string `json:"amount"`
	IsIncome    bool   `json:"is_income"`
	CategoryID  string `json:"category_id,omitempty"`
	AssetID     string `json:"asset_id"`
	Frequency   string `json:"frequency"`
	NextRunDate string `json:"next_run_date"`
}

// ScanResultDTO summarizes one materializer run.
type ScanResultDTO struct {
	Materialized int                  `json:"materialized"`
	Skipped      int                  `json:"skipped"`
	Failures     []TemplateFailureDTO `json:"failures,omitempty"`
}

// TemplateFailureDTO reports one template the run could not materialize.
type TemplateFailureDTO struct {
	TemplateID string `json:"template_id"`
	Error      string `json:"error"`
}

// BudgetDTO represents a budget limit.
type BudgetDTO struct {
	ID         string `json:"id"`
	CategoryID string `json:"category_id"`
	Month      int    `json:"month"`
	Year       int    `json:"year"`
	Limit      string `json:"limit"`
}

// CreateBudgetRequest sets a category's limit for one month.
type CreateBudgetRequest struct {
	CategoryID string `json:"category_id"`
	Month      int    `json:"month"`
	Year       int    `json:"year"`
	Limit      string `json:"limit"`
}

// BudgetStatusDTO joins a budget with its derived spend.
type BudgetStatusDTO struct {
	BudgetDTO
	Spent     string `json:"spent"`
	Remaining string `json:"remaining"`
}

// ReconcileResultDTO reports a balance reconciliation.
type ReconcileResultDTO struct {
	AssetID    string `json:"asset_id"`
	OldBalance string `json:"old_balance"`
	NewBalance string `json:"new_balance"`
	Drift      string `json:"drift"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toAssetDTO(a ledger.Asset) AssetDTO {
	return AssetDTO{
		ID:        string(a.ID),
		Name:      a.Name,
		Type:      string(a.Type),
		Balance:   a.Balance.String(),
		Currency:  a.Currency,
		Active:    a.Active,
		SortOrder: a.SortOrder,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
		UpdatedAt: a.UpdatedAt.Format(time.RFC3339),
	}
}

func toTransactionDTO(tx ledger.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:             string(tx.ID),
		SourceAssetID:  string(tx.SourceAssetID),
		CounterAssetID: string(tx.CounterAssetID),
		CategoryID:     string(tx.CategoryID),
		Type:           string(tx.Type),
		Amount:         tx.Amount.String(),
		Title:          tx.Title,
		Note:           tx.Note,
		Date:           tx.Date.Format("2006-01-02"),
		CreatedAt:      tx.CreatedAt.Format(time.RFC3339),
	}
}

func toTransactionDTOs(txs []ledger.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	return dtos
}

func toCategoryDTO(c ledger.Category) CategoryDTO {
	return CategoryDTO{
		ID:        string(c.ID),
		Name:      c.Name,
		IsIncome:  c.IsIncome,
		SortOrder: c.SortOrder,
	}
}

func toTemplateDTO(t ledger.RecurringTemplate) TemplateDTO {
	return TemplateDTO{
		ID:          string(t.ID),
		Title:       t.Title,
		Amount:      t.Amount.String(),
		IsIncome:    t.IsIncome,
		CategoryID:  string(t.CategoryID),
		AssetID:     string(t.AssetID),
		Frequency:   string(t.Frequency),
		NextRunDate: t.NextRunDate.Format("2006-01-02"),
	}
}

func toBudgetDTO(b ledger.Budget) BudgetDTO {
	return BudgetDTO{
		ID:         string(b.ID),
		CategoryID: string(b.CategoryID),
		Month:      int(b.Month),
		Year:       b.Year,
		Limit:      b.Limit.String(),
	}
}

func toScanResultDTO(res ledger.ScanResult) ScanResultDTO {
	dto := ScanResultDTO{
		Materialized: res.Materialized,
		Skipped:      res.Skipped,
	}
	for _, f := range res.Failures {
		dto.Failures = append(dto.Failures, TemplateFailureDTO{
			TemplateID: string(f.TemplateID),
			Error:      f.Err.Error(),
		})
	}
	return dto
}
