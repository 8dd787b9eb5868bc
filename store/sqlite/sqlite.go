/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements inventory.Store and menu.Store using SQLite. The same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  - No UPDATE or DELETE statement touches stock_transactions
  - Stock deletion is protected by a RESTRICT foreign key, so history
    survives even a caller that skips the service layer

PROJECTION CONSISTENCY:
  ApplyTransaction inserts the ledger row and moves the projection inside
  one SQL transaction, with a version-checked UPDATE:

      UPDATE stocks SET total_stock = ?, version = version + 1
      WHERE id = ? AND version = ?

  Zero rows affected means another writer got there first; the ledger
  insert is rolled back and ErrConcurrentUpdate is returned. A crash
  between the two writes is impossible by construction.

KEY TABLES:
  ingredients:        Stockable things (name + unit)
  stocks:             Current-quantity projection, UNIQUE per ingredient
  stock_transactions: Immutable IN/OUT ledger
  menu_items:         Menu catalog (decimal prices stored as TEXT)

WAL MODE:
  Opened with WAL (Write-Ahead Logging) and foreign keys on:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/backoffice.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - inventory/store.go: Interface definitions
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/lacocina/backoffice/inventory"
	"github.com/lacocina/backoffice/menu"
)

// Store implements the storage interfaces using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection sidesteps SQLITE_BUSY under concurrent writers;
	// database/sql serializes access to it.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Menu catalog
	CREATE TABLE IF NOT EXISTS menu_items (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		price TEXT NOT NULL,
		description TEXT,
		category TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Stockable ingredients
	CREATE TABLE IF NOT EXISTS ingredients (
		id TEXT PRIMARY KEY,
		menu_item_id TEXT,
		name TEXT NOT NULL,
		unit TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ingredients_menu_item
		ON ingredients(menu_item_id) WHERE menu_item_id IS NOT NULL;

	-- Current-quantity projection: exactly one row per ingredient
	CREATE TABLE IF NOT EXISTS stocks (
		id TEXT PRIMARY KEY,
		ingredient_id TEXT NOT NULL UNIQUE REFERENCES ingredients(id),
		total_stock INTEGER NOT NULL CHECK (total_stock >= 0),
		baseline INTEGER NOT NULL CHECK (baseline >= 0),
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Append-only ledger. RESTRICT keeps history alive if someone tries
	-- to delete a stock underneath it. ingredient_id is denormalized for
	-- audit queries without a join.
	CREATE TABLE IF NOT EXISTS stock_transactions (
		id TEXT PRIMARY KEY,
		stock_id TEXT NOT NULL REFERENCES stocks(id) ON DELETE RESTRICT,
		ingredient_id TEXT NOT NULL,
		tx_type TEXT NOT NULL CHECK (tx_type IN ('IN', 'OUT')),
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		occurred_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_stock_transactions_stock
		ON stock_transactions(stock_id, occurred_at);
	CREATE INDEX IF NOT EXISTS idx_stock_transactions_ingredient
		ON stock_transactions(ingredient_id, occurred_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// INGREDIENTS (inventory.Store)
// =============================================================================

// SaveIngredient inserts an ingredient.
func (s *Store) SaveIngredient(ctx context.Context, ing inventory.Ingredient) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingredients (id, menu_item_id, name, unit, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ing.ID, nullString(ing.MenuItemID), ing.Name, ing.Unit,
		formatTime(ing.CreatedAt), formatTime(ing.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert ingredient: %w", err)
	}
	return nil
}

// GetIngredient returns the ingredient or (nil, nil) if absent.
func (s *Store) GetIngredient(ctx context.Context, id inventory.IngredientID) (*inventory.Ingredient, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, menu_item_id, name, unit, created_at, updated_at
		FROM ingredients WHERE id = ?`, id)
	return scanIngredient(row)
}

// ListIngredients returns all ingredients, newest first.
func (s *Store) ListIngredients(ctx context.Context) ([]inventory.Ingredient, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, menu_item_id, name, unit, created_at, updated_at
		FROM ingredients ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ingredients: %w", err)
	}
	defer rows.Close()

	var out []inventory.Ingredient
	for rows.Next() {
		ing, err := scanIngredient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ing)
	}
	return out, rows.Err()
}

// DeleteIngredient removes an ingredient unless a stock references it.
func (s *Store) DeleteIngredient(ctx context.Context, id inventory.IngredientID) error {
	var refs int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM stocks WHERE ingredient_id = ?", id,
	).Scan(&refs); err != nil {
		return fmt.Errorf("failed to count stock references: %w", err)
	}
	if refs > 0 {
		return inventory.ErrIngredientInUse
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM ingredients WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete ingredient: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return inventory.ErrIngredientNotFound
	}
	return nil
}

// =============================================================================
// STOCKS (inventory.Store)
// =============================================================================

// CreateStock inserts a stock record. The UNIQUE constraint on
// ingredient_id turns a lost init race into ErrDuplicateStock.
func (s *Store) CreateStock(ctx context.Context, stock inventory.Stock) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stocks (id, ingredient_id, total_stock, baseline, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		stock.ID, stock.IngredientID, stock.Total, stock.Baseline, stock.Version,
		formatTime(stock.CreatedAt), formatTime(stock.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &inventory.DuplicateStockError{IngredientID: stock.IngredientID}
		}
		return fmt.Errorf("failed to insert stock: %w", err)
	}
	return nil
}

// GetStock returns the stock or (nil, nil) if absent.
func (s *Store) GetStock(ctx context.Context, id inventory.StockID) (*inventory.Stock, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, ingredient_id, total_stock, baseline, version, created_at, updated_at
		FROM stocks WHERE id = ?`, id)
	return scanStock(row)
}

// GetStockByIngredient returns the ingredient's stock or (nil, nil).
func (s *Store) GetStockByIngredient(ctx context.Context, id inventory.IngredientID) (*inventory.Stock, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, ingredient_id, total_stock, baseline, version, created_at, updated_at
		FROM stocks WHERE ingredient_id = ?`, id)
	return scanStock(row)
}

// ListStocksByActivity returns stocks ordered by latest movement,
// descending. Stocks without movements come last, newest-created first.
func (s *Store) ListStocksByActivity(ctx context.Context) ([]inventory.Stock, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.ingredient_id, s.total_stock, s.baseline, s.version, s.created_at, s.updated_at
		FROM stocks s
		LEFT JOIN (
			SELECT stock_id, MAX(occurred_at) AS last_movement
			FROM stock_transactions
			GROUP BY stock_id
		) t ON t.stock_id = s.id
		ORDER BY (t.last_movement IS NULL) ASC, t.last_movement DESC, s.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stocks: %w", err)
	}
	defer rows.Close()

	var out []inventory.Stock
	for rows.Next() {
		stock, err := scanStock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *stock)
	}
	return out, rows.Err()
}

// DeleteStock removes a stock record unless transactions reference it.
func (s *Store) DeleteStock(ctx context.Context, id inventory.StockID) error {
	var refs int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM stock_transactions WHERE stock_id = ?", id,
	).Scan(&refs); err != nil {
		return fmt.Errorf("failed to count ledger references: %w", err)
	}
	if refs > 0 {
		return inventory.ErrStockInUse
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM stocks WHERE id = ?", id)
	if err != nil {
		// The RESTRICT foreign key is the backstop if a transaction landed
		// between the count and the delete.
		if isForeignKeyError(err) {
			return inventory.ErrStockInUse
		}
		return fmt.Errorf("failed to delete stock: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return inventory.ErrStockNotFound
	}
	return nil
}

// =============================================================================
// LEDGER (inventory.Store)
// =============================================================================

// ApplyTransaction appends the ledger row and moves the projection in one
// SQL transaction. The version check fails the write if another writer
// moved the projection since it was read.
func (s *Store) ApplyTransaction(ctx context.Context, tx inventory.StockTransaction, newTotal, expectedVersion int64) (*inventory.Stock, error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO stock_transactions (id, stock_id, ingredient_id, tx_type, quantity, occurred_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.StockID, tx.IngredientID, tx.Type, tx.Quantity,
		formatTime(tx.OccurredAt), formatTime(tx.CreatedAt),
	)
	if err != nil {
		if isForeignKeyError(err) {
			return nil, inventory.ErrStockNotFound
		}
		return nil, fmt.Errorf("failed to append transaction: %w", err)
	}

	res, err := sqlTx.ExecContext(ctx, `
		UPDATE stocks
		SET total_stock = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		newTotal, formatTime(tx.CreatedAt), tx.StockID, expectedVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update stock projection: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, inventory.ErrConcurrentUpdate
	}

	if err := sqlTx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return s.GetStock(ctx, tx.StockID)
}

// ListTransactions returns a stock's ledger in chronological order.
func (s *Store) ListTransactions(ctx context.Context, id inventory.StockID) ([]inventory.StockTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, stock_id, ingredient_id, tx_type, quantity, occurred_at, created_at
		FROM stock_transactions
		WHERE stock_id = ?
		ORDER BY occurred_at ASC, created_at ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []inventory.StockTransaction
	for rows.Next() {
		var tx inventory.StockTransaction
		var occurredAt, createdAt string
		if err := rows.Scan(&tx.ID, &tx.StockID, &tx.IngredientID, &tx.Type,
			&tx.Quantity, &occurredAt, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx.OccurredAt = parseTime(occurredAt)
		tx.CreatedAt = parseTime(createdAt)
		out = append(out, tx)
	}
	return out, rows.Err()
}

// LedgerSums returns the total IN and OUT quantities for a stock.
func (s *Store) LedgerSums(ctx context.Context, id inventory.StockID) (in, out int64, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN tx_type = 'IN' THEN quantity ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN tx_type = 'OUT' THEN quantity ELSE 0 END), 0)
		FROM stock_transactions WHERE stock_id = ?`, id,
	).Scan(&in, &out)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to sum ledger: %w", err)
	}
	return in, out, nil
}

// =============================================================================
// MENU ITEMS (menu.Store)
// =============================================================================

func (s *Store) SaveItem(ctx context.Context, item menu.Item) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO menu_items (id, name, price, description, category, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.Price.String(), item.Description, item.Category,
		formatTime(item.CreatedAt), formatTime(item.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert menu item: %w", err)
	}
	return nil
}

func (s *Store) GetItem(ctx context.Context, id menu.ItemID) (*menu.Item, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, price, description, category, created_at, updated_at
		FROM menu_items WHERE id = ?`, id)
	return scanItem(row)
}

func (s *Store) ListItems(ctx context.Context) ([]menu.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, price, description, category, created_at, updated_at
		FROM menu_items ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query menu items: %w", err)
	}
	defer rows.Close()

	var out []menu.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}

// DeleteItem removes a menu item and detaches its ingredients.
func (s *Store) DeleteItem(ctx context.Context, id menu.ItemID) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	res, err := sqlTx.ExecContext(ctx, "DELETE FROM menu_items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete menu item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return menu.ErrItemNotFound
	}

	if _, err := sqlTx.ExecContext(ctx,
		"UPDATE ingredients SET menu_item_id = NULL WHERE menu_item_id = ?", id,
	); err != nil {
		return fmt.Errorf("failed to detach ingredients: %w", err)
	}

	return sqlTx.Commit()
}

// =============================================================================
// HELPERS
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func scanIngredient(row scanner) (*inventory.Ingredient, error) {
	var ing inventory.Ingredient
	var menuItemID sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(&ing.ID, &menuItemID, &ing.Name, &ing.Unit, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan ingredient: %w", err)
	}
	ing.MenuItemID = menuItemID.String
	ing.CreatedAt = parseTime(createdAt)
	ing.UpdatedAt = parseTime(updatedAt)
	return &ing, nil
}

func scanStock(row scanner) (*inventory.Stock, error) {
	var stock inventory.Stock
	var createdAt, updatedAt string
	err := row.Scan(&stock.ID, &stock.IngredientID, &stock.Total, &stock.Baseline,
		&stock.Version, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan stock: %w", err)
	}
	stock.CreatedAt = parseTime(createdAt)
	stock.UpdatedAt = parseTime(updatedAt)
	return &stock, nil
}

func scanItem(row scanner) (*menu.Item, error) {
	var item menu.Item
	var price string
	var description sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(&item.ID, &item.Name, &price, &description, &item.Category, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan menu item: %w", err)
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("corrupted price %q: %w", price, err)
	}
	item.Price = d
	item.Description = description.String
	item.CreatedAt = parseTime(createdAt)
	item.UpdatedAt = parseTime(updatedAt)
	return &item, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
