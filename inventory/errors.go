/*
errors.go - Centralized error types for the stock ledger

PURPOSE:
  All ledger error types in one place for consistency and discoverability.
  Every validation failure is a typed return, never a panic: bad input from
  a kitchen station must not take the process down.

ERROR KINDS:
  1. Not found      - ingredient or stock absent
  2. Conflict       - duplicate stock for an ingredient, lock/version contention
  3. Invalid input  - non-positive quantity, bad transaction type
  4. Insufficient   - OUT would drive the projection negative
  5. Protection     - delete blocked by referencing records

USAGE:
  Callers classify with errors.Is or the kind helpers:

    if errors.Is(err, inventory.ErrInsufficientStock) { ... }
    if inventory.IsConflict(err) { retry or surface 409 }

  Structured errors carry details and unwrap to their sentinel.
*/
package inventory

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrIngredientNotFound is returned when a referenced ingredient doesn't exist.
	ErrIngredientNotFound = errors.New("ingredient not found")

	// ErrStockNotFound is returned when a referenced stock record doesn't exist.
	ErrStockNotFound = errors.New("stock not found")

	// ErrDuplicateStock is returned when initializing stock for an ingredient
	// that already has one. The existing record is left untouched.
	ErrDuplicateStock = errors.New("ingredient already has stock")

	// ErrInvalidQuantity is returned for a non-positive transaction quantity
	// or a negative initial quantity.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrInvalidTransactionType is returned when the type is neither IN nor OUT.
	ErrInvalidTransactionType = errors.New("invalid transaction type")

	// ErrInsufficientStock is returned when an OUT transaction would drive
	// the total below zero.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrStockInUse is returned when deleting a stock that transactions
	// still reference. History is protected, never cascaded.
	ErrStockInUse = errors.New("stock has transactions and cannot be deleted")

	// ErrIngredientInUse is returned when deleting an ingredient that a
	// stock record still references.
	ErrIngredientInUse = errors.New("ingredient has stock and cannot be deleted")

	// ErrConcurrentUpdate is returned when the per-stock lock cannot be
	// acquired in time or the projection version check fails. Retryable.
	ErrConcurrentUpdate = errors.New("concurrent stock update")

	// ErrInvalidIngredient is returned for an ingredient with an empty name
	// or unit.
	ErrInvalidIngredient = errors.New("invalid ingredient")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientStockError reports an OUT transaction that would overdraw a stock.
type InsufficientStockError struct {
	StockID   StockID
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: available %d, requested %d (shortfall %d)",
		e.Available, e.Requested, e.Requested-e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// DuplicateStockError reports an init attempt against an ingredient that
// already has a stock record.
type DuplicateStockError struct {
	IngredientID IngredientID
	ExistingID   StockID
}

func (e *DuplicateStockError) Error() string {
	if e.ExistingID == "" {
		return fmt.Sprintf("ingredient %s already has stock", e.IngredientID)
	}
	return fmt.Sprintf("ingredient %s already has stock %s", e.IngredientID, e.ExistingID)
}

func (e *DuplicateStockError) Unwrap() error {
	return ErrDuplicateStock
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrStockNotFound) ||
		errors.Is(err, ErrIngredientNotFound)
}

// IsConflict returns true for state conflicts: duplicate stock, contention,
// or a delete blocked by referential protection.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateStock) ||
		errors.Is(err, ErrConcurrentUpdate) ||
		errors.Is(err, ErrStockInUse) ||
		errors.Is(err, ErrIngredientInUse) ||
		errors.Is(err, ErrInsufficientStock)
}

// IsInvalidInput returns true if the error is due to invalid caller input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidTransactionType) ||
		errors.Is(err, ErrInvalidIngredient)
}

// IsRetryable returns true if the operation might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentUpdate)
}
