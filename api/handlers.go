/*
handlers.go - HTTP API handlers for the money manager

PURPOSE:
  Exposes the ledger engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Assets:
    GET    /api/assets                    List all assets
    POST   /api/assets                    Create asset
    GET    /api/assets/{id}               Get asset details
    PUT    /api/assets/{id}               Update asset metadata
    DELETE /api/assets/{id}               Delete asset (cascades)
    POST   /api/assets/{id}/reconcile     Recompute cached balance
    GET    /api/assets/{id}/transactions  Event history for one asset

  Transactions:
    POST   /api/transactions              Record income/expense
    GET    /api/transactions/{id}         Get one event
    PUT    /api/transactions/{id}         Edit (rollback-and-reapply)
    DELETE /api/transactions/{id}         Delete (reverses effect)

  Transfers:
    POST   /api/transfers                 Atomic two-legged transfer

  Categories:
    GET/POST /api/categories, GET/PUT/DELETE /api/categories/{id}

  Recurring:
    GET/POST /api/templates, GET/PUT/DELETE /api/templates/{id}
    POST   /api/templates/run             Materialize due templates now

  Budgets:
    GET/POST /api/budgets, DELETE /api/budgets/{id}
    GET    /api/budgets/status            Budgets joined with spend

ERROR HANDLING:
  Engine errors map to HTTP status by classification:
  - 400: Validation errors (bad amount, blank title, same-asset transfer)
  - 404: Missing asset/category/transaction/template/budget
  - 409: Duplicate idempotency key
  - 422: Insufficient balance (valid request, rejected by state)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - ledger/errors.go: The error taxonomy mapped here
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rizkiyusra/moneymanager/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store        ledger.TxStore
	Service      *ledger.Service
	Materializer *ledger.Materializer
	Projector    *ledger.Projector
}

// NewHandler creates a new handler with the given store.
func NewHandler(store ledger.TxStore) *Handler {
	svc := ledger.NewService(store)
	return &Handler{
		Store:        store,
		Service:      svc,
		Materializer: ledger.NewMaterializer(svc),
		Projector:    ledger.NewProjector(store),
	}
}

// =============================================================================
// ASSET HANDLERS
// =============================================================================

// ListAssets returns all assets.
func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.Store.ListAssets(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list assets", err)
		return
	}

	dtos := make([]AssetDTO, len(assets))
	for i, a := range assets {
		dtos[i] = toAssetDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetAsset returns a single asset.
func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	id := ledger.AssetID(chi.URLParam(r, "id"))

	asset, err := h.Store.GetAsset(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get asset", err)
		return
	}
	if asset == nil {
		writeError(w, http.StatusNotFound, "Asset not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toAssetDTO(*asset))
}

// CreateAsset creates a new asset. A non-zero opening balance is
// recorded as an income event by the engine, so the new asset's
// history and cached balance agree and reconcile is safe to run.
func (h *Handler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	var req CreateAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Asset name is required", nil)
		return
	}

	balance := decimal.Zero
	if req.InitialBalance != "" {
		var err error
		balance, err = decimal.NewFromString(req.InitialBalance)
		if err != nil || balance.IsNegative() {
			writeError(w, http.StatusBadRequest, "Invalid initial_balance", err)
			return
		}
	}

	now := time.Now().UTC()
	asset := ledger.Asset{
		ID:        ledger.AssetID(uuid.NewString()),
		Name:      req.Name,
		Type:      assetTypeOrDefault(req.Type),
		Balance:   balance,
		Currency:  req.Currency,
		Active:    true,
		SortOrder: req.SortOrder,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Service.CreateAsset(r.Context(), asset, balance); err != nil {
		writeEngineError(w, "Failed to create asset", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAssetDTO(asset))
}

// UpdateAsset updates asset metadata. Balance is not accepted here: it
// moves only through ledger operations.
func (h *Handler) UpdateAsset(w http.ResponseWriter, r *http.Request) {
	id := ledger.AssetID(chi.URLParam(r, "id"))

	var req UpdateAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	asset, err := h.Store.GetAsset(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get asset", err)
		return
	}
	if asset == nil {
		writeError(w, http.StatusNotFound, "Asset not found", nil)
		return
	}

	if strings.TrimSpace(req.Name) != "" {
		asset.Name = req.Name
	}
	if req.Type != "" {
		asset.Type = assetTypeOrDefault(req.Type)
	}
	if req.Currency != "" {
		asset.Currency = req.Currency
	}
	if req.Active != nil {
		asset.Active = *req.Active
	}
	asset.SortOrder = req.SortOrder
	asset.UpdatedAt = time.Now().UTC()

	if err := h.Store.SaveAsset(r.Context(), *asset); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update asset", err)
		return
	}
	writeJSON(w, http.StatusOK, toAssetDTO(*asset))
}

// DeleteAsset deletes an asset and cascades: its events are removed,
// transfer legs on other assets are converted to plain events, and its
// recurring templates are deleted.
func (h *Handler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	id := ledger.AssetID(chi.URLParam(r, "id"))

	if err := h.Service.DeleteAsset(r.Context(), id); err != nil {
		writeEngineError(w, "Failed to delete asset", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// ReconcileAsset recomputes an asset's balance from its event history.
func (h *Handler) ReconcileAsset(w http.ResponseWriter, r *http.Request) {
	id := ledger.AssetID(chi.URLParam(r, "id"))

	result, err := h.Service.Reconcile(r.Context(), id)
	if err != nil {
		writeEngineError(w, "Failed to reconcile asset", err)
		return
	}
	writeJSON(w, http.StatusOK, ReconcileResultDTO{
		AssetID:    string(result.AssetID),
		OldBalance: result.OldBalance.String(),
		NewBalance: result.NewBalance.String(),
		Drift:      result.Drift().String(),
	})
}

// GetAssetTransactions returns an asset's event history.
func (h *Handler) GetAssetTransactions(w http.ResponseWriter, r *http.Request) {
	id := ledger.AssetID(chi.URLParam(r, "id"))

	asset, err := h.Store.GetAsset(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get asset", err)
		return
	}
	if asset == nil {
		writeError(w, http.StatusNotFound, "Asset not found", nil)
		return
	}

	txs, err := h.Store.EventsByAsset(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// CreateTransaction records an income or expense event.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	id, err := h.Service.Apply(r.Context(), ledger.ApplyInput{
		Type:          ledger.EventType(req.Type),
		Amount:        amount,
		Title:         req.Title,
		Note:          req.Note,
		Date:          date,
		SourceAssetID: ledger.AssetID(req.SourceAssetID),
		CategoryID:    ledger.CategoryID(req.CategoryID),
	})
	if err != nil {
		writeEngineError(w, "Failed to record transaction", err)
		return
	}

	tx, err := h.Store.GetEvent(r.Context(), id)
	if err != nil || tx == nil {
		writeJSON(w, http.StatusCreated, map[string]any{"id": string(id)})
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(*tx))
}

// GetTransaction returns a single event.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id := ledger.EventID(chi.URLParam(r, "id"))

	tx, err := h.Store.GetEvent(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get transaction", err)
		return
	}
	if tx == nil {
		writeError(w, http.StatusNotFound, "Transaction not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*tx))
}

// EditTransaction rewrites an event and moves its asset's balance from
// the old effect to the new one atomically.
func (h *Handler) EditTransaction(w http.ResponseWriter, r *http.Request) {
	id := ledger.EventID(chi.URLParam(r, "id"))

	var req EditTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	if err := h.Service.Edit(r.Context(), id, ledger.EditInput{
		Type:       ledger.EventType(req.Type),
		Amount:     amount,
		CategoryID: ledger.CategoryID(req.CategoryID),
		Title:      req.Title,
		Note:       req.Note,
		Date:       date,
	}); err != nil {
		writeEngineError(w, "Failed to edit transaction", err)
		return
	}

	tx, err := h.Store.GetEvent(r.Context(), id)
	if err != nil || tx == nil {
		writeJSON(w, http.StatusOK, map[string]any{"id": string(id)})
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*tx))
}

// DeleteTransaction deletes an event and reverses its balance effect.
// Deleting a transfer leg removes the whole pair.
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := ledger.EventID(chi.URLParam(r, "id"))

	if err := h.Service.DeleteEvent(r.Context(), id); err != nil {
		writeEngineError(w, "Failed to delete transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// =============================================================================
// TRANSFER HANDLERS
// =============================================================================

// CreateTransfer moves funds between two assets as one atomic unit.
func (h *Handler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	result, err := h.Service.Transfer(r.Context(), ledger.TransferInput{
		Amount:             amount,
		Title:              req.Title,
		Note:               req.Note,
		Date:               date,
		SourceAssetID:      ledger.AssetID(req.SourceAssetID),
		DestinationAssetID: ledger.AssetID(req.DestinationAssetID),
	})
	if err != nil {
		writeEngineError(w, "Failed to transfer", err)
		return
	}

	writeJSON(w, http.StatusCreated, TransferResponse{
		OutEventID: string(result.OutEventID),
		InEventID:  string(result.InEventID),
		LinkID:     string(result.LinkID),
	})
}

// =============================================================================
// CATEGORY HANDLERS
// =============================================================================

// ListCategories returns all categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.Store.ListCategories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list categories", err)
		return
	}

	dtos := make([]CategoryDTO, len(cats))
	for i, c := range cats {
		dtos[i] = toCategoryDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCategory creates a category.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Category name is required", nil)
		return
	}

	cat := ledger.Category{
		ID:        ledger.CategoryID(uuid.NewString()),
		Name:      req.Name,
		IsIncome:  req.IsIncome,
		SortOrder: req.SortOrder,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.SaveCategory(r.Context(), cat); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create category", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryDTO(cat))
}

// GetCategory returns a single category.
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id := ledger.CategoryID(chi.URLParam(r, "id"))

	cat, err := h.Store.GetCategory(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get category", err)
		return
	}
	if cat == nil {
		writeError(w, http.StatusNotFound, "Category not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryDTO(*cat))
}

// UpdateCategory renames/reorders a category.
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id := ledger.CategoryID(chi.URLParam(r, "id"))

	var req CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	cat, err := h.Store.GetCategory(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get category", err)
		return
	}
	if cat == nil {
		writeError(w, http.StatusNotFound, "Category not found", nil)
		return
	}

	if strings.TrimSpace(req.Name) != "" {
		cat.Name = req.Name
	}
	cat.IsIncome = req.IsIncome
	cat.SortOrder = req.SortOrder

	if err := h.Store.SaveCategory(r.Context(), *cat); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update category", err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryDTO(*cat))
}

// DeleteCategory removes a category. Events keep their category_id;
// spend queries for a deleted category simply return nothing new.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := ledger.CategoryID(chi.URLParam(r, "id"))

	if err := h.Store.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete category", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// =============================================================================
// RECURRING TEMPLATE HANDLERS
// =============================================================================

// ListTemplates returns all recurring templates.
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.Store.ListTemplates(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list templates", err)
		return
	}

	dtos := make([]TemplateDTO, len(templates))
	for i, t := range templates {
		dtos[i] = toTemplateDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTemplate creates a recurring template.
func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req CreateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	tmpl, ok := h.templateFromRequest(w, r.Context(), req)
	if !ok {
		return
	}
	tmpl.ID = ledger.TemplateID(uuid.NewString())
	tmpl.CreatedAt = time.Now().UTC()

	if err := h.Store.SaveTemplate(r.Context(), tmpl); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create template", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTemplateDTO(tmpl))
}

// GetTemplate returns a single template.
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id := ledger.TemplateID(chi.URLParam(r, "id"))

	tmpl, err := h.Store.GetTemplate(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get template", err)
		return
	}
	if tmpl == nil {
		writeError(w, http.StatusNotFound, "Template not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateDTO(*tmpl))
}

// UpdateTemplate rewrites a template, including its NextRunDate.
func (h *Handler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id := ledger.TemplateID(chi.URLParam(r, "id"))

	existing, err := h.Store.GetTemplate(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get template", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "Template not found", nil)
		return
	}

	var req CreateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	tmpl, ok := h.templateFromRequest(w, r.Context(), req)
	if !ok {
		return
	}
	tmpl.ID = existing.ID
	tmpl.CreatedAt = existing.CreatedAt

	if err := h.Store.SaveTemplate(r.Context(), tmpl); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update template", err)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateDTO(tmpl))
}

// DeleteTemplate removes a recurring template. Already-materialized
// transactions stay.
func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id := ledger.TemplateID(chi.URLParam(r, "id"))

	if err := h.Store.DeleteTemplate(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete template", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// RunTemplates materializes every due template immediately.
func (h *Handler) RunTemplates(w http.ResponseWriter, r *http.Request) {
	result, err := h.Materializer.Scan(r.Context(), time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to run templates", err)
		return
	}
	writeJSON(w, http.StatusOK, toScanResultDTO(result))
}

// templateFromRequest validates and converts a template request body.
// Writes the error response itself and returns ok=false on failure.
func (h *Handler) templateFromRequest(w http.ResponseWriter, ctx context.Context, req CreateTemplateRequest) (ledger.RecurringTemplate, bool) {
	var tmpl ledger.RecurringTemplate

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return tmpl, false
	}
	nextRun, err := parseDate(req.NextRunDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid next_run_date format (use YYYY-MM-DD)", err)
		return tmpl, false
	}
	freq := ledger.Frequency(req.Frequency)
	if !freq.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid frequency (daily, weekly, monthly, yearly)", nil)
		return tmpl, false
	}

	asset, err := h.Store.GetAsset(ctx, ledger.AssetID(req.AssetID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check asset", err)
		return tmpl, false
	}
	if asset == nil {
		writeError(w, http.StatusNotFound, "Asset not found", nil)
		return tmpl, false
	}

	return ledger.RecurringTemplate{
		Title:       req.Title,
		Amount:      amount,
		IsIncome:    req.IsIncome,
		CategoryID:  ledger.CategoryID(req.CategoryID),
		AssetID:     ledger.AssetID(req.AssetID),
		Frequency:   freq,
		NextRunDate: nextRun,
	}, true
}

// =============================================================================
// BUDGET HANDLERS
// =============================================================================

// ListBudgets returns budgets for a month (?month=&year=, defaults to
// the current month).
func (h *Handler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	month, year, err := parsePeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month/year", err)
		return
	}

	budgets, err := h.Store.BudgetsForPeriod(r.Context(), month, year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list budgets", err)
		return
	}

	dtos := make([]BudgetDTO, len(budgets))
	for i, b := range budgets {
		dtos[i] = toBudgetDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateBudget sets a category's limit for one month (upsert on the
// category/month/year key).
func (h *Handler) CreateBudget(w http.ResponseWriter, r *http.Request) {
	var req CreateBudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	limit, err := decimal.NewFromString(req.Limit)
	if err != nil || limit.IsNegative() {
		writeError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}
	if req.Month < 1 || req.Month > 12 {
		writeError(w, http.StatusBadRequest, "Invalid month", nil)
		return
	}

	cat, err := h.Store.GetCategory(r.Context(), ledger.CategoryID(req.CategoryID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check category", err)
		return
	}
	if cat == nil {
		writeError(w, http.StatusNotFound, "Category not found", nil)
		return
	}

	budget := ledger.Budget{
		ID:         ledger.BudgetID(uuid.NewString()),
		CategoryID: ledger.CategoryID(req.CategoryID),
		Month:      time.Month(req.Month),
		Year:       req.Year,
		Limit:      limit,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.Store.SaveBudget(r.Context(), budget); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save budget", err)
		return
	}

	// The store upserts on (category, month, year), keeping the original
	// row id when the period was already budgeted. Return the row that
	// was actually persisted so its id is valid for later deletes.
	rows, err := h.Store.BudgetsForPeriod(r.Context(), budget.Month, budget.Year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save budget", err)
		return
	}
	for _, b := range rows {
		if b.CategoryID == budget.CategoryID {
			budget = b
			break
		}
	}
	writeJSON(w, http.StatusCreated, toBudgetDTO(budget))
}

// DeleteBudget removes a budget limit.
func (h *Handler) DeleteBudget(w http.ResponseWriter, r *http.Request) {
	id := ledger.BudgetID(chi.URLParam(r, "id"))

	if err := h.Store.DeleteBudget(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete budget", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// BudgetStatuses returns each budget for a month joined with its spend
// derived from expense events.
func (h *Handler) BudgetStatuses(w http.ResponseWriter, r *http.Request) {
	month, year, err := parsePeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month/year", err)
		return
	}

	statuses, err := h.Projector.Statuses(r.Context(), month, year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute budget statuses", err)
		return
	}

	dtos := make([]BudgetStatusDTO, len(statuses))
	for i, s := range statuses {
		dtos[i] = BudgetStatusDTO{
			BudgetDTO: toBudgetDTO(s.Budget),
			Spent:     s.Spent.String(),
			Remaining: s.Remaining().String(),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// ResetDatabase clears all data (dev/demo only). Available only when
// the store supports it.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	resetter, ok := h.Store.(interface{ Reset(context.Context) error })
	if !ok {
		writeError(w, http.StatusNotImplemented, "Store does not support reset", nil)
		return
	}
	if err := resetter.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "reset"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps engine errors onto HTTP status codes.
func writeEngineError(w http.ResponseWriter, message string, err error) {
	switch {
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errorsIsInsufficient(err):
		writeError(w, http.StatusUnprocessableEntity, message, err)
	case ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case ledger.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func errorsIsInsufficient(err error) bool {
	var ibe *ledger.InsufficientBalanceError
	return errors.As(err, &ibe)
}

var errInvalidPeriod = errors.New("month must be 1-12 and year numeric")

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

func parsePeriod(r *http.Request) (time.Month, int, error) {
	now := time.Now().UTC()
	month, year := now.Month(), now.Year()

	if m := r.URL.Query().Get("month"); m != "" {
		n, err := strconv.Atoi(m)
		if err != nil || n < 1 || n > 12 {
			return 0, 0, errInvalidPeriod
		}
		month = time.Month(n)
	}
	if y := r.URL.Query().Get("year"); y != "" {
		n, err := strconv.Atoi(y)
		if err != nil {
			return 0, 0, errInvalidPeriod
		}
		year = n
	}
	return month, year, nil
}

func assetTypeOrDefault(s string) ledger.AssetType {
	switch t := ledger.AssetType(s); t {
	case ledger.AssetCash, ledger.AssetBank, ledger.AssetEWallet, ledger.AssetOther:
		return t
	}
	return ledger.AssetOther
}
