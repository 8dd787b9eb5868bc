/*
handlers.go - HTTP API handlers for the back-office inventory engine

PURPOSE:
  Exposes the stock ledger and menu catalog via REST. Handles HTTP
  request/response and JSON shaping, and delegates everything else to the
  domain services.

ENDPOINTS:
  Ingredients:
    GET    /api/ingredients                 List ingredients
    POST   /api/ingredients                 Register ingredient
    GET    /api/ingredients/{id}            Get ingredient
    DELETE /api/ingredients/{id}            Delete (protected)

  Stocks:
    GET    /api/stocks                      List, most recent movement first
    POST   /api/stocks                      Initialize stock for ingredient
    GET    /api/stocks/{id}                 Get stock
    DELETE /api/stocks/{id}                 Delete (protected)
    GET    /api/stocks/{id}/transactions    Ledger history
    POST   /api/stocks/{id}/transactions    Record IN/OUT movement
    GET    /api/stocks/{id}/reconciliation  Ledger-vs-projection report
    GET    /api/stocks/by-ingredient/{ingredientID}

  Menu:
    GET    /api/menu                        List menu items
    POST   /api/menu                        Create menu item
    GET    /api/menu/{id}                   Get menu item
    DELETE /api/menu/{id}                   Delete (detaches ingredients)

ERROR HANDLING:
  Every error kind maps to a distinct, stable message and status so the
  front end never has to guess:
  - 400: invalid input (bad quantity, bad type, malformed JSON)
  - 404: ingredient/stock/menu item not found
  - 409: duplicate stock, contention, protected delete, insufficient stock
  - 500: storage failures

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/lacocina/backoffice/inventory"
	"github.com/lacocina/backoffice/menu"
)

// Handler holds the domain services the HTTP layer delegates to.
type Handler struct {
	Inventory *inventory.Service
	Menu      *menu.Service
}

// NewHandler creates a handler with the given services.
func NewHandler(inv *inventory.Service, mnu *menu.Service) *Handler {
	return &Handler{Inventory: inv, Menu: mnu}
}

// =============================================================================
// INGREDIENT HANDLERS
// =============================================================================

// ListIngredients returns all ingredients.
func (h *Handler) ListIngredients(w http.ResponseWriter, r *http.Request) {
	ingredients, err := h.Inventory.ListIngredients(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list ingredients", err)
		return
	}

	dtos := make([]IngredientDTO, len(ingredients))
	for i, ing := range ingredients {
		dtos[i] = toIngredientDTO(ing)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateIngredient registers a new ingredient.
func (h *Handler) CreateIngredient(w http.ResponseWriter, r *http.Request) {
	var req CreateIngredientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ing, err := h.Inventory.CreateIngredient(r.Context(), req.Name, req.Unit, req.MenuItemID)
	if err != nil {
		writeDomainError(w, "Failed to create ingredient", err)
		return
	}
	writeJSON(w, http.StatusCreated, toIngredientDTO(*ing))
}

// GetIngredient returns a single ingredient.
func (h *Handler) GetIngredient(w http.ResponseWriter, r *http.Request) {
	id := inventory.IngredientID(chi.URLParam(r, "id"))
	ing, err := h.Inventory.GetIngredient(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get ingredient", err)
		return
	}
	writeJSON(w, http.StatusOK, toIngredientDTO(*ing))
}

// DeleteIngredient removes an ingredient unless stock references it.
func (h *Handler) DeleteIngredient(w http.ResponseWriter, r *http.Request) {
	id := inventory.IngredientID(chi.URLParam(r, "id"))
	if err := h.Inventory.DeleteIngredient(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete ingredient", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// STOCK HANDLERS
// =============================================================================

// ListStocks returns all stocks ordered by most recent movement.
func (h *Handler) ListStocks(w http.ResponseWriter, r *http.Request) {
	stocks, err := h.Inventory.ListStocks(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list stocks", err)
		return
	}

	dtos := make([]StockDTO, len(stocks))
	for i, s := range stocks {
		dtos[i] = toStockDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// InitStock initializes the stock record for an ingredient.
func (h *Handler) InitStock(w http.ResponseWriter, r *http.Request) {
	var req InitStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	stock, err := h.Inventory.InitStock(r.Context(), inventory.IngredientID(req.IngredientID), req.InitialStock)
	if err != nil {
		writeDomainError(w, "Failed to init stock", err)
		return
	}
	writeJSON(w, http.StatusCreated, toStockDTO(*stock))
}

// GetStock returns a single stock record.
func (h *Handler) GetStock(w http.ResponseWriter, r *http.Request) {
	id := inventory.StockID(chi.URLParam(r, "id"))
	stock, err := h.Inventory.GetStock(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get stock", err)
		return
	}
	writeJSON(w, http.StatusOK, toStockDTO(*stock))
}

// GetStockByIngredient returns the stock for an ingredient.
func (h *Handler) GetStockByIngredient(w http.ResponseWriter, r *http.Request) {
	id := inventory.IngredientID(chi.URLParam(r, "ingredientID"))

	// Distinguish "unknown ingredient" from "known but no stock yet".
	if _, err := h.Inventory.GetIngredient(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to get ingredient", err)
		return
	}

	stock, err := h.Inventory.GetStockByIngredient(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Stock has not been initialized for this ingredient", err)
		return
	}
	writeJSON(w, http.StatusOK, toStockDTO(*stock))
}

// DeleteStock removes a stock record unless transactions reference it.
func (h *Handler) DeleteStock(w http.ResponseWriter, r *http.Request) {
	id := inventory.StockID(chi.URLParam(r, "id"))
	if err := h.Inventory.DeleteStock(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete stock", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddTransaction records a stock movement against a stock.
func (h *Handler) AddTransaction(w http.ResponseWriter, r *http.Request) {
	id := inventory.StockID(chi.URLParam(r, "id"))

	var req AddTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in := inventory.TransactionInput{
		Type:     inventory.TransactionType(req.Type),
		Quantity: req.Quantity,
	}
	if req.OccurredAt != "" {
		at, err := time.Parse(time.RFC3339, req.OccurredAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid occurred_at timestamp", err)
			return
		}
		in.OccurredAt = &at
	}

	stock, err := h.Inventory.AddTransaction(r.Context(), id, in)
	if err != nil {
		writeDomainError(w, "Failed to add transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, toStockDTO(*stock))
}

// ListTransactions returns a stock's ledger history.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	id := inventory.StockID(chi.URLParam(r, "id"))
	txs, err := h.Inventory.Transactions(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to list transactions", err)
		return
	}

	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetReconciliation reports ledger-vs-projection agreement for a stock.
func (h *Handler) GetReconciliation(w http.ResponseWriter, r *http.Request) {
	id := inventory.StockID(chi.URLParam(r, "id"))
	rec, err := h.Inventory.Reconcile(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to reconcile stock", err)
		return
	}
	writeJSON(w, http.StatusOK, toReconciliationDTO(*rec))
}

// =============================================================================
// MENU HANDLERS
// =============================================================================

// ListMenuItems returns the full menu.
func (h *Handler) ListMenuItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.Menu.ListItems(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list menu items", err)
		return
	}

	dtos := make([]MenuItemDTO, len(items))
	for i, item := range items {
		dtos[i] = toMenuItemDTO(item)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateMenuItem adds a menu item.
func (h *Handler) CreateMenuItem(w http.ResponseWriter, r *http.Request) {
	var req CreateMenuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid price", err)
		return
	}

	item, err := h.Menu.CreateItem(r.Context(), req.Name, price, req.Description, menu.Category(req.Category))
	if err != nil {
		writeDomainError(w, "Failed to create menu item", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMenuItemDTO(*item))
}

// GetMenuItem returns a single menu item.
func (h *Handler) GetMenuItem(w http.ResponseWriter, r *http.Request) {
	id := menu.ItemID(chi.URLParam(r, "id"))
	item, err := h.Menu.GetItem(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get menu item", err)
		return
	}
	writeJSON(w, http.StatusOK, toMenuItemDTO(*item))
}

// DeleteMenuItem removes a menu item and detaches its ingredients.
func (h *Handler) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	id := menu.ItemID(chi.URLParam(r, "id"))
	if err := h.Menu.DeleteItem(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete menu item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
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

// writeDomainError maps the service error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	writeError(w, statusFor(err), message, err)
}

func statusFor(err error) int {
	switch {
	case inventory.IsNotFound(err), errors.Is(err, menu.ErrItemNotFound):
		return http.StatusNotFound
	case inventory.IsInvalidInput(err), errors.Is(err, menu.ErrInvalidItem):
		return http.StatusBadRequest
	case inventory.IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
