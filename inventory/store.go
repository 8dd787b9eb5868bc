/*
store.go - Persistence contract for ingredients, stocks and the ledger

PURPOSE:
  Defines the interface between the ledger service and the database.
  Different implementations can use SQLite or in-memory storage.

APPEND-ONLY CONTRACT:
  The ledger side of the interface is append-only:
  - ApplyTransaction(): The ONLY ledger write
  - NO update or delete of transactions exists anywhere

  Stock deletion is allowed only while the ledger holds nothing for it;
  implementations must refuse (not cascade) otherwise.

ATOMICITY:
  ApplyTransaction persists the ledger entry AND the new projection total
  as one unit: both land or neither does. Implementations back this with a
  database transaction (SQLite) or a single critical section (memory).
  The expected version makes lost updates impossible even for a writer
  that bypasses the service's per-stock lock: if the projection moved
  since it was read, the write fails with ErrConcurrentUpdate.

IMPLEMENTATIONS:
  - store/sqlite: production path
  - store/memory: tests and dev

SEE ALSO:
  - service.go: The only intended caller of ApplyTransaction
*/
package inventory

import "context"

// Store handles persistence for the inventory subsystem.
//
// Lookup methods return (nil, nil) when the record is absent; the service
// turns that into the typed not-found errors. Constraint violations map to
// the sentinel errors in errors.go.
type Store interface {
	// --- Ingredients ---

	// SaveIngredient inserts an ingredient.
	SaveIngredient(ctx context.Context, ing Ingredient) error

	// GetIngredient returns the ingredient or (nil, nil) if absent.
	GetIngredient(ctx context.Context, id IngredientID) (*Ingredient, error)

	// ListIngredients returns all ingredients, newest first.
	ListIngredients(ctx context.Context) ([]Ingredient, error)

	// DeleteIngredient removes an ingredient.
	// Returns ErrIngredientNotFound if absent, ErrIngredientInUse if a
	// stock record references it.
	DeleteIngredient(ctx context.Context, id IngredientID) error

	// --- Stocks ---

	// CreateStock inserts a stock record.
	// Returns ErrDuplicateStock if the ingredient already has one.
	CreateStock(ctx context.Context, s Stock) error

	// GetStock returns the stock or (nil, nil) if absent.
	GetStock(ctx context.Context, id StockID) (*Stock, error)

	// GetStockByIngredient returns the ingredient's stock or (nil, nil).
	GetStockByIngredient(ctx context.Context, id IngredientID) (*Stock, error)

	// ListStocksByActivity returns all stocks ordered by the timestamp of
	// their most recent transaction, descending. Stocks with no
	// transactions sort last, newest-created first.
	ListStocksByActivity(ctx context.Context) ([]Stock, error)

	// DeleteStock removes a stock record.
	// Returns ErrStockNotFound if absent, ErrStockInUse if any
	// transaction references it.
	DeleteStock(ctx context.Context, id StockID) error

	// --- Ledger ---

	// ApplyTransaction atomically appends tx to the ledger and moves the
	// stock projection to newTotal. The update is version-checked:
	// if the stock's current version differs from expectedVersion nothing
	// is written and ErrConcurrentUpdate is returned.
	// Returns the updated stock on success.
	ApplyTransaction(ctx context.Context, tx StockTransaction, newTotal, expectedVersion int64) (*Stock, error)

	// ListTransactions returns a stock's ledger entries in chronological
	// order (OccurredAt, then CreatedAt).
	ListTransactions(ctx context.Context, id StockID) ([]StockTransaction, error)

	// LedgerSums returns the total IN and OUT quantities recorded for a
	// stock. Used for reconciliation.
	LedgerSums(ctx context.Context, id StockID) (in, out int64, err error)
}
