/*
Package inventory provides the stock ledger engine for the back office.

PURPOSE:
  This package contains the entities and service logic for tracking
  ingredient stock. Every stock movement (restock or consumption) is an
  immutable ledger entry; the current quantity on a Stock record is a
  projection derived from that ledger and is never set directly.

KEY CONCEPTS IN THIS FILE (types.go):
  - Ingredient: A stockable thing (name + unit of measure)
  - Stock: The current-quantity projection for one ingredient (1:1)
  - StockTransaction: An immutable IN/OUT ledger entry
  - Typed IDs: Strong typing prevents mixing ingredient/stock/tx IDs

DESIGN PRINCIPLES:
  1. Immutability: Transactions are never edited or deleted. Corrections
     are made by appending a compensating transaction.
  2. Single writer: Only the Service mutates Stock.Total, and only through
     the ledger append path.
  3. Non-negativity: Total never goes below zero; an OUT that would drive
     it negative is rejected before anything is written.
  4. Auditability: Every movement carries its own timestamp and a
     denormalized ingredient reference for join-free audit queries.

SEE ALSO:
  - errors.go: Error taxonomy for all ledger operations
  - store.go: Persistence contract (append-only ledger discipline)
  - service.go: The stock ledger service
*/
package inventory

import "time"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type IngredientID string
type StockID string
type TransactionID string

// =============================================================================
// INGREDIENT - The stockable thing
// =============================================================================

// Ingredient identifies something that can be stocked.
// Unit is a short measure code such as "kg", "l" or "pcs".
type Ingredient struct {
	ID         IngredientID
	Name       string
	Unit       string
	MenuItemID string // optional link to the menu item using this ingredient
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// =============================================================================
// STOCK - Current-quantity projection (one per ingredient)
// =============================================================================

// Stock is the derived current quantity for one ingredient.
//
// INVARIANTS:
//   - Total == initial baseline + sum(IN) - sum(OUT), at all times
//   - Total >= 0
//   - At most one Stock per Ingredient
//
// Total is a projection: it is only ever written together with a ledger
// append, under the service's per-stock serialization. Version is the
// optimistic-locking counter the store checks on every projection update.
type Stock struct {
	ID           StockID
	IngredientID IngredientID
	Total        int64
	Baseline     int64 // initial quantity at init time; set once, never updated
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// =============================================================================
// STOCK TRANSACTION - Atomic, immutable stock movement
// =============================================================================

type TransactionType string

const (
	TxIn  TransactionType = "IN"  // replenishment (delivery, restock)
	TxOut TransactionType = "OUT" // consumption (kitchen usage, waste)
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == TxIn || t == TxOut
}

// StockTransaction is one entry of the append-only ledger.
//
// Quantity is strictly positive; direction is encoded by Type, never by
// sign. OccurredAt defaults to creation time but may be back-dated by the
// caller (late bookkeeping of a delivery). IngredientID duplicates the
// owning stock's ingredient for audit queries without a join.
type StockTransaction struct {
	ID           TransactionID
	StockID      StockID
	IngredientID IngredientID
	Type         TransactionType
	Quantity     int64
	OccurredAt   time.Time
	CreatedAt    time.Time
}

// Delta returns the signed effect of the transaction on the projection.
func (tx StockTransaction) Delta() int64 {
	if tx.Type == TxOut {
		return -tx.Quantity
	}
	return tx.Quantity
}

// =============================================================================
// RECONCILIATION - Ledger vs projection report
// =============================================================================

// Reconciliation compares a stock's projected total against its replayed
// ledger. Baseline is the initial quantity supplied at init time, which is
// deliberately not ledgered (the Stock row's CreatedAt is the baseline
// marker).
type Reconciliation struct {
	StockID        StockID
	Baseline       int64
	InSum          int64
	OutSum         int64
	LedgerTotal    int64 // Baseline + InSum - OutSum
	ProjectedTotal int64
	Consistent     bool
}
