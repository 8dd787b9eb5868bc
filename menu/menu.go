/*
Package menu provides the menu item catalog for the back office.

PURPOSE:
  Standard catalog CRUD: menu items with a name, a decimal price, an
  optional description and a category. Prices use decimal.Decimal - money
  never goes through floats.

DELETE SEMANTICS:
  Deleting a menu item detaches the ingredients that reference it instead
  of deleting them: recipes change, ingredients stay stocked. Contrast
  with the inventory package, where deletes are protected, not detached.
*/
package menu

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// TYPES
// =============================================================================

type ItemID string

type Category string

const (
	CategoryDrinks        Category = "DRINKS"
	CategoryAlcoholDrinks Category = "ALCOHOL_DRINKS"
	CategoryBreakfasts    Category = "BREAKFASTS"
	CategoryStarters      Category = "STARTERS"
	CategoryMeals         Category = "MEALS"
	CategoryDesserts      Category = "DESSERTS"
	CategoryExtras        Category = "EXTRAS"
)

// Valid reports whether c is one of the known menu categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryDrinks, CategoryAlcoholDrinks, CategoryBreakfasts,
		CategoryStarters, CategoryMeals, CategoryDesserts, CategoryExtras:
		return true
	}
	return false
}

// Item is one entry of the menu.
type Item struct {
	ID          ItemID
	Name        string
	Price       decimal.Decimal
	Description string
	Category    Category
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrItemNotFound is returned when a referenced menu item doesn't exist.
	ErrItemNotFound = errors.New("menu item not found")

	// ErrInvalidItem is returned for an item with an empty name, a
	// negative price, or an unknown category.
	ErrInvalidItem = errors.New("invalid menu item")
)

// =============================================================================
// STORE
// =============================================================================

// Store handles menu item persistence.
type Store interface {
	SaveItem(ctx context.Context, item Item) error

	// GetItem returns the item or (nil, nil) if absent.
	GetItem(ctx context.Context, id ItemID) (*Item, error)

	ListItems(ctx context.Context) ([]Item, error)

	// DeleteItem removes the item and detaches any ingredients that
	// reference it. Returns ErrItemNotFound if absent.
	DeleteItem(ctx context.Context, id ItemID) error
}

// =============================================================================
// SERVICE
// =============================================================================

// Service is the menu catalog service.
type Service struct {
	store Store
	now   func() time.Time
	newID func() string
}

// NewService creates a menu service on top of the given store.
func NewService(store Store) *Service {
	return &Service{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.NewString() },
	}
}

// CreateItem adds a menu item after validation.
func (s *Service) CreateItem(ctx context.Context, name string, price decimal.Decimal, description string, category Category) (*Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidItem)
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("%w: price %s is negative", ErrInvalidItem, price)
	}
	if !category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidItem, category)
	}

	now := s.now()
	item := Item{
		ID:          ItemID(s.newID()),
		Name:        name,
		Price:       price,
		Description: description,
		Category:    category,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.SaveItem(ctx, item); err != nil {
		return nil, fmt.Errorf("save menu item: %w", err)
	}
	return &item, nil
}

// GetItem returns a menu item by ID.
func (s *Service) GetItem(ctx context.Context, id ItemID) (*Item, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get menu item: %w", err)
	}
	if item == nil {
		return nil, ErrItemNotFound
	}
	return item, nil
}

// ListItems returns the full menu.
func (s *Service) ListItems(ctx context.Context) ([]Item, error) {
	return s.store.ListItems(ctx)
}

// DeleteItem removes a menu item, detaching its ingredients.
func (s *Service) DeleteItem(ctx context.Context, id ItemID) error {
	return s.store.DeleteItem(ctx, id)
}
