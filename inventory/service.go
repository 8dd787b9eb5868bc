/*
service.go - The stock ledger service

PURPOSE:
  Sole writer of Stock.Total and sole creator of StockTransaction.
  Orchestrates stock initialization, validates and appends transactions,
  and serves every read path. Nothing reads the ledger tables directly.

CRITICAL SECTION:
  AddTransaction runs read-current-total -> validate -> append+project
  under a per-stock lock with bounded wait (see locks.go). The store's
  version check on the projection update is defense in depth: even a
  writer that bypassed the lock cannot produce a lost update.

INITIALIZATION BASELINE:
  InitStock does NOT write a ledger entry for the starting quantity.
  Initialization is a baseline, not a movement; the record's CreatedAt is
  the baseline marker and Reconcile treats Baseline as an offset outside
  the ledger sum. Deliberate, and kept from the system this replaces.

ERROR CONTRACT:
  Every validation failure comes back as a typed error from errors.go.
  Only storage failures propagate wrapped and unclassified.

SEE ALSO:
  - store.go: Persistence contract
  - locks.go: Per-stock serialization
*/
package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultLockWait bounds how long AddTransaction waits for a contended
// stock before giving up with ErrConcurrentUpdate.
const DefaultLockWait = 2 * time.Second

// Service is the stock ledger service. Construct with NewService and share
// one instance; all methods are safe for concurrent use.
type Service struct {
	store    Store
	locks    *stockLocks
	lockWait time.Duration
	now      func() time.Time
	newID    func() string
}

// Option configures a Service.
type Option func(*Service)

// WithLockWait overrides the bounded wait for the per-stock lock.
func WithLockWait(d time.Duration) Option {
	return func(s *Service) { s.lockWait = d }
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a stock ledger service on top of the given store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		locks:    newStockLocks(),
		lockWait: DefaultLockWait,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// =============================================================================
// INGREDIENTS
// =============================================================================

// CreateIngredient registers a new stockable ingredient.
func (s *Service) CreateIngredient(ctx context.Context, name, unit, menuItemID string) (*Ingredient, error) {
	name = strings.TrimSpace(name)
	unit = strings.TrimSpace(unit)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidIngredient)
	}
	if unit == "" {
		return nil, fmt.Errorf("%w: unit is required", ErrInvalidIngredient)
	}

	now := s.now()
	ing := Ingredient{
		ID:         IngredientID(s.newID()),
		Name:       name,
		Unit:       unit,
		MenuItemID: menuItemID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.SaveIngredient(ctx, ing); err != nil {
		return nil, fmt.Errorf("save ingredient: %w", err)
	}
	return &ing, nil
}

// GetIngredient returns an ingredient by ID.
func (s *Service) GetIngredient(ctx context.Context, id IngredientID) (*Ingredient, error) {
	ing, err := s.store.GetIngredient(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get ingredient: %w", err)
	}
	if ing == nil {
		return nil, ErrIngredientNotFound
	}
	return ing, nil
}

// ListIngredients returns all ingredients.
func (s *Service) ListIngredients(ctx context.Context) ([]Ingredient, error) {
	return s.store.ListIngredients(ctx)
}

// DeleteIngredient removes an ingredient. Protected: fails with
// ErrIngredientInUse while a stock record references it.
func (s *Service) DeleteIngredient(ctx context.Context, id IngredientID) error {
	stock, err := s.store.GetStockByIngredient(ctx, id)
	if err != nil {
		return fmt.Errorf("check ingredient stock: %w", err)
	}
	if stock != nil {
		return ErrIngredientInUse
	}
	return s.store.DeleteIngredient(ctx, id)
}

// =============================================================================
// STOCK LIFECYCLE
// =============================================================================

// InitStock creates the stock record for an ingredient with a starting
// quantity. The baseline is not ledgered; see the package notes above.
//
// Errors: ErrIngredientNotFound, ErrInvalidQuantity (initial < 0),
// DuplicateStockError (the ingredient already has stock; the existing
// record is untouched).
func (s *Service) InitStock(ctx context.Context, ingredientID IngredientID, initial int64) (*Stock, error) {
	if initial < 0 {
		return nil, fmt.Errorf("%w: initial quantity %d is negative", ErrInvalidQuantity, initial)
	}

	ing, err := s.store.GetIngredient(ctx, ingredientID)
	if err != nil {
		return nil, fmt.Errorf("get ingredient: %w", err)
	}
	if ing == nil {
		return nil, ErrIngredientNotFound
	}

	if existing, err := s.store.GetStockByIngredient(ctx, ingredientID); err != nil {
		return nil, fmt.Errorf("check existing stock: %w", err)
	} else if existing != nil {
		return nil, &DuplicateStockError{IngredientID: ingredientID, ExistingID: existing.ID}
	}

	now := s.now()
	stock := Stock{
		ID:           StockID(s.newID()),
		IngredientID: ingredientID,
		Total:        initial,
		Baseline:     initial,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// The unique constraint on ingredient_id closes the race between the
	// pre-check above and this insert.
	if err := s.store.CreateStock(ctx, stock); err != nil {
		return nil, err
	}
	return &stock, nil
}

// StockExists reports whether the ingredient already has a stock record.
// Exposed so callers can pre-check before InitStock instead of driving
// control flow off the duplicate error.
func (s *Service) StockExists(ctx context.Context, ingredientID IngredientID) (bool, error) {
	stock, err := s.store.GetStockByIngredient(ctx, ingredientID)
	if err != nil {
		return false, fmt.Errorf("check stock: %w", err)
	}
	return stock != nil, nil
}

// DeleteStock removes a stock record. Protected: fails with ErrStockInUse
// while any transaction references it. History is never cascaded away.
func (s *Service) DeleteStock(ctx context.Context, id StockID) error {
	return s.store.DeleteStock(ctx, id)
}

// =============================================================================
// LEDGER WRITES
// =============================================================================

// TransactionInput is a proposed stock movement.
type TransactionInput struct {
	Type       TransactionType
	Quantity   int64
	OccurredAt *time.Time // nil means "now"; set to back-date a movement
}

// AddTransaction validates and appends a movement against a stock, then
// moves the projection. The whole step is serialized per stock and atomic
// in the store: a crash can never leave the projection out of step with
// the ledger.
//
// Errors: ErrInvalidTransactionType, ErrInvalidQuantity, ErrStockNotFound,
// ErrIngredientNotFound (defensive integrity check),
// InsufficientStockError (OUT below zero), ErrConcurrentUpdate
// (lock timeout or version race; retryable).
func (s *Service) AddTransaction(ctx context.Context, stockID StockID, in TransactionInput) (*Stock, error) {
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTransactionType, in.Type)
	}
	if in.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidQuantity, in.Quantity)
	}

	if err := s.locks.acquire(ctx, stockID, s.lockWait); err != nil {
		return nil, err
	}
	defer s.locks.release(stockID)

	stock, err := s.store.GetStock(ctx, stockID)
	if err != nil {
		return nil, fmt.Errorf("get stock: %w", err)
	}
	if stock == nil {
		return nil, ErrStockNotFound
	}

	// Defensive integrity check: the stock must point at a real ingredient.
	ing, err := s.store.GetIngredient(ctx, stock.IngredientID)
	if err != nil {
		return nil, fmt.Errorf("get ingredient: %w", err)
	}
	if ing == nil {
		return nil, ErrIngredientNotFound
	}

	newTotal := stock.Total + in.Quantity
	if in.Type == TxOut {
		if stock.Total < in.Quantity {
			return nil, &InsufficientStockError{
				StockID:   stock.ID,
				Available: stock.Total,
				Requested: in.Quantity,
			}
		}
		newTotal = stock.Total - in.Quantity
	}

	now := s.now()
	occurredAt := now
	if in.OccurredAt != nil {
		occurredAt = in.OccurredAt.UTC()
	}

	tx := StockTransaction{
		ID:           TransactionID(s.newID()),
		StockID:      stock.ID,
		IngredientID: stock.IngredientID,
		Type:         in.Type,
		Quantity:     in.Quantity,
		OccurredAt:   occurredAt,
		CreatedAt:    now,
	}

	updated, err := s.store.ApplyTransaction(ctx, tx, newTotal, stock.Version)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// =============================================================================
// LEDGER READS
// =============================================================================

// GetStock returns a stock record by ID.
func (s *Service) GetStock(ctx context.Context, id StockID) (*Stock, error) {
	stock, err := s.store.GetStock(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get stock: %w", err)
	}
	if stock == nil {
		return nil, ErrStockNotFound
	}
	return stock, nil
}

// GetStockByIngredient returns the stock for an ingredient, or
// ErrStockNotFound when the ingredient has no stock yet.
func (s *Service) GetStockByIngredient(ctx context.Context, ingredientID IngredientID) (*Stock, error) {
	stock, err := s.store.GetStockByIngredient(ctx, ingredientID)
	if err != nil {
		return nil, fmt.Errorf("get stock by ingredient: %w", err)
	}
	if stock == nil {
		return nil, ErrStockNotFound
	}
	return stock, nil
}

// ListStocks returns all stocks ordered by most recent movement, so the
// ingredients that moved last surface first.
func (s *Service) ListStocks(ctx context.Context) ([]Stock, error) {
	return s.store.ListStocksByActivity(ctx)
}

// Transactions returns a stock's ledger in chronological order.
func (s *Service) Transactions(ctx context.Context, id StockID) ([]StockTransaction, error) {
	stock, err := s.store.GetStock(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get stock: %w", err)
	}
	if stock == nil {
		return nil, ErrStockNotFound
	}
	return s.store.ListTransactions(ctx, id)
}

// Reconcile replays a stock's ledger and compares it with the projected
// total. A consistent stock satisfies
//
//	Total == Baseline + sum(IN) - sum(OUT)
//
// Inconsistency means storage-level corruption: the write path cannot
// produce it.
func (s *Service) Reconcile(ctx context.Context, id StockID) (*Reconciliation, error) {
	stock, err := s.store.GetStock(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get stock: %w", err)
	}
	if stock == nil {
		return nil, ErrStockNotFound
	}

	in, out, err := s.store.LedgerSums(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("sum ledger: %w", err)
	}

	ledgerTotal := stock.Baseline + in - out
	return &Reconciliation{
		StockID:        stock.ID,
		Baseline:       stock.Baseline,
		InSum:          in,
		OutSum:         out,
		LedgerTotal:    ledgerTotal,
		ProjectedTotal: stock.Total,
		Consistent:     ledgerTotal == stock.Total,
	}, nil
}
