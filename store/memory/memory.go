/*
Package memory provides an in-memory implementation of the storage
interfaces.

PURPOSE:
  Implements inventory.Store and menu.Store with maps behind an RWMutex.
  Used by tests and by the server in dev mode; behavior mirrors the SQLite
  store, including the constraint-violation error mapping.

SEE ALSO:
  - inventory/store.go: Interface definitions and the append-only contract
  - store/sqlite: Production implementation
*/
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/lacocina/backoffice/inventory"
	"github.com/lacocina/backoffice/menu"
)

// Store implements the storage interfaces with in-process maps.
type Store struct {
	mu sync.RWMutex

	ingredients map[inventory.IngredientID]inventory.Ingredient
	stocks      map[inventory.StockID]inventory.Stock
	byIngr      map[inventory.IngredientID]inventory.StockID
	ledger      map[inventory.StockID][]inventory.StockTransaction
	items       map[menu.ItemID]menu.Item
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		ingredients: make(map[inventory.IngredientID]inventory.Ingredient),
		stocks:      make(map[inventory.StockID]inventory.Stock),
		byIngr:      make(map[inventory.IngredientID]inventory.StockID),
		ledger:      make(map[inventory.StockID][]inventory.StockTransaction),
		items:       make(map[menu.ItemID]menu.Item),
	}
}

// =============================================================================
// INGREDIENTS
// =============================================================================

func (s *Store) SaveIngredient(_ context.Context, ing inventory.Ingredient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ingredients[ing.ID] = ing
	return nil
}

func (s *Store) GetIngredient(_ context.Context, id inventory.IngredientID) (*inventory.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ing, ok := s.ingredients[id]
	if !ok {
		return nil, nil
	}
	return &ing, nil
}

func (s *Store) ListIngredients(_ context.Context) ([]inventory.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]inventory.Ingredient, 0, len(s.ingredients))
	for _, ing := range s.ingredients {
		out = append(out, ing)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) DeleteIngredient(_ context.Context, id inventory.IngredientID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ingredients[id]; !ok {
		return inventory.ErrIngredientNotFound
	}
	if _, ok := s.byIngr[id]; ok {
		return inventory.ErrIngredientInUse
	}
	delete(s.ingredients, id)
	return nil
}

// =============================================================================
// STOCKS
// =============================================================================

func (s *Store) CreateStock(_ context.Context, stock inventory.Stock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existingID, ok := s.byIngr[stock.IngredientID]; ok {
		return &inventory.DuplicateStockError{
			IngredientID: stock.IngredientID,
			ExistingID:   existingID,
		}
	}
	s.stocks[stock.ID] = stock
	s.byIngr[stock.IngredientID] = stock.ID
	return nil
}

func (s *Store) GetStock(_ context.Context, id inventory.StockID) (*inventory.Stock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stock, ok := s.stocks[id]
	if !ok {
		return nil, nil
	}
	return &stock, nil
}

func (s *Store) GetStockByIngredient(_ context.Context, id inventory.IngredientID) (*inventory.Stock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stockID, ok := s.byIngr[id]
	if !ok {
		return nil, nil
	}
	stock := s.stocks[stockID]
	return &stock, nil
}

func (s *Store) ListStocksByActivity(_ context.Context) ([]inventory.Stock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type entry struct {
		stock   inventory.Stock
		active  bool
		lastTx  int64 // unix nanos of latest movement
		created int64
	}

	entries := make([]entry, 0, len(s.stocks))
	for id, stock := range s.stocks {
		e := entry{stock: stock, created: stock.CreatedAt.UnixNano()}
		for _, tx := range s.ledger[id] {
			if at := tx.OccurredAt.UnixNano(); !e.active || at > e.lastTx {
				e.active = true
				e.lastTx = at
			}
		}
		entries = append(entries, e)
	}

	// Active stocks first, most recent movement first; idle stocks after,
	// newest-created first.
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.active != b.active {
			return a.active
		}
		if a.active {
			return a.lastTx > b.lastTx
		}
		return a.created > b.created
	})

	out := make([]inventory.Stock, len(entries))
	for i, e := range entries {
		out[i] = e.stock
	}
	return out, nil
}

func (s *Store) DeleteStock(_ context.Context, id inventory.StockID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stock, ok := s.stocks[id]
	if !ok {
		return inventory.ErrStockNotFound
	}
	if len(s.ledger[id]) > 0 {
		return inventory.ErrStockInUse
	}
	delete(s.stocks, id)
	delete(s.byIngr, stock.IngredientID)
	return nil
}

// =============================================================================
// LEDGER
// =============================================================================

func (s *Store) ApplyTransaction(_ context.Context, tx inventory.StockTransaction, newTotal, expectedVersion int64) (*inventory.Stock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stock, ok := s.stocks[tx.StockID]
	if !ok {
		return nil, inventory.ErrStockNotFound
	}
	if stock.Version != expectedVersion {
		return nil, inventory.ErrConcurrentUpdate
	}

	s.ledger[tx.StockID] = append(s.ledger[tx.StockID], tx)
	stock.Total = newTotal
	stock.Version++
	stock.UpdatedAt = tx.CreatedAt
	s.stocks[tx.StockID] = stock
	return &stock, nil
}

func (s *Store) ListTransactions(_ context.Context, id inventory.StockID) ([]inventory.StockTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]inventory.StockTransaction, len(s.ledger[id]))
	copy(out, s.ledger[id])
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.Before(out[j].OccurredAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) LedgerSums(_ context.Context, id inventory.StockID) (in, out int64, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tx := range s.ledger[id] {
		if tx.Type == inventory.TxOut {
			out += tx.Quantity
		} else {
			in += tx.Quantity
		}
	}
	return in, out, nil
}

// =============================================================================
// MENU ITEMS
// =============================================================================

func (s *Store) SaveItem(_ context.Context, item menu.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = item
	return nil
}

func (s *Store) GetItem(_ context.Context, id menu.ItemID) (*menu.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (s *Store) ListItems(_ context.Context) ([]menu.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]menu.Item, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) DeleteItem(_ context.Context, id menu.ItemID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return menu.ErrItemNotFound
	}
	delete(s.items, id)
	// Detach, don't delete: the recipe is gone, the ingredients remain.
	for ingID, ing := range s.ingredients {
		if ing.MenuItemID == string(id) {
			ing.MenuItemID = ""
			s.ingredients[ingID] = ing
		}
	}
	return nil
}
