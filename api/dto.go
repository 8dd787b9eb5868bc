/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Input validation lives in the domain services; handlers only check that
  the JSON parses and that path/body references line up.
*/
package api

import (
	"time"

	"github.com/lacocina/backoffice/inventory"
	"github.com/lacocina/backoffice/menu"
)

// =============================================================================
// INGREDIENTS
// =============================================================================

// IngredientDTO represents an ingredient in API responses.
type IngredientDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Unit       string `json:"unit"`
	MenuItemID string `json:"menu_item_id,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

// CreateIngredientRequest is the request to register an ingredient.
type CreateIngredientRequest struct {
	Name       string `json:"name"`
	Unit       string `json:"unit"`
	MenuItemID string `json:"menu_item_id,omitempty"`
}

// =============================================================================
// STOCKS
// =============================================================================

// StockDTO represents a stock record in API responses.
type StockDTO struct {
	ID           string `json:"id"`
	IngredientID string `json:"ingredient_id"`
	TotalStock   int64  `json:"total_stock"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// InitStockRequest is the request to initialize stock for an ingredient.
type InitStockRequest struct {
	IngredientID string `json:"ingredient_id"`
	InitialStock int64  `json:"initial_stock"`
}

// AddTransactionRequest is the request to record a stock movement.
// OccurredAt is optional RFC3339; omitted means "now".
type AddTransactionRequest struct {
	Type       string `json:"type"`
	Quantity   int64  `json:"quantity"`
	OccurredAt string `json:"occurred_at,omitempty"`
}

// TransactionDTO represents one ledger entry in API responses.
type TransactionDTO struct {
	ID           string `json:"id"`
	StockID      string `json:"stock_id"`
	IngredientID string `json:"ingredient_id"`
	Type         string `json:"type"`
	Quantity     int64  `json:"quantity"`
	OccurredAt   string `json:"occurred_at"`
	CreatedAt    string `json:"created_at"`
}

// ReconciliationDTO reports ledger-vs-projection agreement for one stock.
type ReconciliationDTO struct {
	StockID        string `json:"stock_id"`
	Baseline       int64  `json:"baseline"`
	InSum          int64  `json:"in_sum"`
	OutSum         int64  `json:"out_sum"`
	LedgerTotal    int64  `json:"ledger_total"`
	ProjectedTotal int64  `json:"projected_total"`
	Consistent     bool   `json:"consistent"`
}

// =============================================================================
// MENU
// =============================================================================

// MenuItemDTO represents a menu item in API responses.
type MenuItemDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Price       string `json:"price"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// CreateMenuItemRequest is the request to add a menu item.
type CreateMenuItemRequest struct {
	Name        string `json:"name"`
	Price       string `json:"price"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the JSON shape of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// MAPPERS
// =============================================================================

func toIngredientDTO(ing inventory.Ingredient) IngredientDTO {
	return IngredientDTO{
		ID:         string(ing.ID),
		Name:       ing.Name,
		Unit:       ing.Unit,
		MenuItemID: ing.MenuItemID,
		CreatedAt:  ing.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  ing.UpdatedAt.Format(time.RFC3339),
	}
}

func toStockDTO(s inventory.Stock) StockDTO {
	return StockDTO{
		ID:           string(s.ID),
		IngredientID: string(s.IngredientID),
		TotalStock:   s.Total,
		CreatedAt:    s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    s.UpdatedAt.Format(time.RFC3339),
	}
}

func toTransactionDTO(tx inventory.StockTransaction) TransactionDTO {
	return TransactionDTO{
		ID:           string(tx.ID),
		StockID:      string(tx.StockID),
		IngredientID: string(tx.IngredientID),
		Type:         string(tx.Type),
		Quantity:     tx.Quantity,
		OccurredAt:   tx.OccurredAt.Format(time.RFC3339),
		CreatedAt:    tx.CreatedAt.Format(time.RFC3339),
	}
}

func toReconciliationDTO(r inventory.Reconciliation) ReconciliationDTO {
	return ReconciliationDTO{
		StockID:        string(r.StockID),
		Baseline:       r.Baseline,
		InSum:          r.InSum,
		OutSum:         r.OutSum,
		LedgerTotal:    r.LedgerTotal,
		ProjectedTotal: r.ProjectedTotal,
		Consistent:     r.Consistent,
	}
}

func toMenuItemDTO(item menu.Item) MenuItemDTO {
	return MenuItemDTO{
		ID:          string(item.ID),
		Name:        item.Name,
		Price:       item.Price.String(),
		Description: item.Description,
		Category:    string(item.Category),
		CreatedAt:   item.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   item.UpdatedAt.Format(time.RFC3339),
	}
}
