package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lacocina/backoffice/inventory"
	"github.com/lacocina/backoffice/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestService(t *testing.T) *inventory.Service {
	t.Helper()
	return inventory.NewService(memory.New())
}

func seedIngredient(t *testing.T, svc *inventory.Service, name string) *inventory.Ingredient {
	t.Helper()
	ing, err := svc.CreateIngredient(context.Background(), name, "kg", "")
	require.NoError(t, err)
	return ing
}

func seedStock(t *testing.T, svc *inventory.Service, name string, initial int64) *inventory.Stock {
	t.Helper()
	ing := seedIngredient(t, svc, name)
	stock, err := svc.InitStock(context.Background(), ing.ID, initial)
	require.NoError(t, err)
	return stock
}

func in(qty int64) inventory.TransactionInput {
	return inventory.TransactionInput{Type: inventory.TxIn, Quantity: qty}
}

func out(qty int64) inventory.TransactionInput {
	return inventory.TransactionInput{Type: inventory.TxOut, Quantity: qty}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func TestInitStock_ThenMove_ThenOverdraw(t *testing.T) {
	// GIVEN: Flour initialized at 10
	// WHEN: IN 5, then OUT 20
	// THEN: total goes 10 -> 15, the overdraw is rejected, total stays 15

	svc := newTestService(t)
	ctx := context.Background()

	stock := seedStock(t, svc, "Flour", 10)
	assert.Equal(t, int64(10), stock.Total)

	updated, err := svc.AddTransaction(ctx, stock.ID, in(5))
	require.NoError(t, err)
	assert.Equal(t, int64(15), updated.Total)

	_, err = svc.AddTransaction(ctx, stock.ID, out(20))
	require.Error(t, err)

	var insufficient *inventory.InsufficientStockError
	assert.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(15), insufficient.Available)
	assert.Equal(t, int64(20), insufficient.Requested)

	current, err := svc.GetStock(ctx, stock.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(15), current.Total, "rejected transaction must not touch the projection")
}

func TestInitStock_NegativeInitial_Rejected(t *testing.T) {
	// GIVEN: An ingredient with no stock
	// WHEN: Initializing with -1
	// THEN: Rejected with ErrInvalidQuantity, no stock record created

	svc := newTestService(t)
	ctx := context.Background()

	ing := seedIngredient(t, svc, "Salt")
	_, err := svc.InitStock(ctx, ing.ID, -1)
	assert.ErrorIs(t, err, inventory.ErrInvalidQuantity)

	exists, err := svc.StockExists(ctx, ing.ID)
	require.NoError(t, err)
	assert.False(t, exists, "no stock record may exist after a rejected init")
}

func TestInitStock_Twice_SecondRejected(t *testing.T) {
	// GIVEN: Sugar initialized at 0
	// WHEN: Initializing Sugar again with 5
	// THEN: Second init fails with DuplicateStockError, original unchanged

	svc := newTestService(t)
	ctx := context.Background()

	ing := seedIngredient(t, svc, "Sugar")
	first, err := svc.InitStock(ctx, ing.ID, 0)
	require.NoError(t, err)

	_, err = svc.InitStock(ctx, ing.ID, 5)
	require.Error(t, err)

	var dup *inventory.DuplicateStockError
	assert.ErrorAs(t, err, &dup)
	assert.Equal(t, ing.ID, dup.IngredientID)
	assert.Equal(t, first.ID, dup.ExistingID)

	current, err := svc.GetStockByIngredient(ctx, ing.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, current.ID)
	assert.Equal(t, int64(0), current.Total, "failed re-init must not overwrite the original")
}

func TestInitStock_UnknownIngredient_Rejected(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.InitStock(context.Background(), "nope", 5)
	assert.ErrorIs(t, err, inventory.ErrIngredientNotFound)
}

func TestInitStock_WritesNoBaselineTransaction(t *testing.T) {
	// The starting quantity is a baseline, not a movement: the ledger
	// stays empty after init and reconciliation still balances.

	svc := newTestService(t)
	ctx := context.Background()

	stock := seedStock(t, svc, "Butter", 12)

	txs, err := svc.Transactions(ctx, stock.ID)
	require.NoError(t, err)
	assert.Empty(t, txs)

	rec, err := svc.Reconcile(ctx, stock.ID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent)
	assert.Equal(t, int64(12), rec.Baseline)
	assert.Equal(t, int64(12), rec.ProjectedTotal)
}

// =============================================================================
// TRANSACTION VALIDATION
// =============================================================================

func TestAddTransaction_InvalidInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	stock := seedStock(t, svc, "Milk", 10)

	tests := []struct {
		name    string
		input   inventory.TransactionInput
		wantErr error
	}{
		{"zero quantity", inventory.TransactionInput{Type: inventory.TxIn, Quantity: 0}, inventory.ErrInvalidQuantity},
		{"negative quantity", inventory.TransactionInput{Type: inventory.TxOut, Quantity: -3}, inventory.ErrInvalidQuantity},
		{"unknown type", inventory.TransactionInput{Type: "SIDEWAYS", Quantity: 1}, inventory.ErrInvalidTransactionType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddTransaction(ctx, stock.ID, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	// Nothing above may have moved the projection.
	current, err := svc.GetStock(ctx, stock.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), current.Total)
}

func TestAddTransaction_UnknownStock(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.AddTransaction(context.Background(), "nope", in(1))
	assert.ErrorIs(t, err, inventory.ErrStockNotFound)
}

func TestAddTransaction_BackdatedTimestampPreserved(t *testing.T) {
	// A delivery booked late keeps its real timestamp.

	svc := newTestService(t)
	ctx := context.Background()
	stock := seedStock(t, svc, "Rice", 0)

	delivered := time.Date(2024, time.March, 4, 9, 30, 0, 0, time.UTC)
	_, err := svc.AddTransaction(ctx, stock.ID, inventory.TransactionInput{
		Type:       inventory.TxIn,
		Quantity:   40,
		OccurredAt: &delivered,
	})
	require.NoError(t, err)

	txs, err := svc.Transactions(ctx, stock.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].OccurredAt.Equal(delivered))
	assert.True(t, txs[0].CreatedAt.After(delivered), "append time is independent of the movement time")
}

// =============================================================================
// INVARIANTS
// =============================================================================

func TestLedger_NonNegativeAndReconciled_AfterEveryStep(t *testing.T) {
	// For a mixed sequence of valid movements the projection never goes
	// negative and always equals baseline + sum(IN) - sum(OUT).

	svc := newTestService(t)
	ctx := context.Background()
	stock := seedStock(t, svc, "Tomatoes", 3)

	steps := []inventory.TransactionInput{
		in(7), out(4), out(6), in(1), out(1),
	}

	for i, step := range steps {
		updated, err := svc.AddTransaction(ctx, stock.ID, step)
		require.NoError(t, err, "step %d", i)
		assert.GreaterOrEqual(t, updated.Total, int64(0), "step %d", i)

		rec, err := svc.Reconcile(ctx, stock.ID)
		require.NoError(t, err)
		assert.True(t, rec.Consistent, "step %d: projection %d vs ledger %d",
			i, rec.ProjectedTotal, rec.LedgerTotal)
	}

	final, err := svc.GetStock(ctx, stock.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), final.Total)
}

func TestLedger_AppendOnly(t *testing.T) {
	// Once appended, entries never change: the history read back after
	// further operations contains the earlier entries verbatim.

	svc := newTestService(t)
	ctx := context.Background()
	stock := seedStock(t, svc, "Onions", 5)

	_, err := svc.AddTransaction(ctx, stock.ID, in(2))
	require.NoError(t, err)

	before, err := svc.Transactions(ctx, stock.ID)
	require.NoError(t, err)
	require.Len(t, before, 1)

	_, err = svc.AddTransaction(ctx, stock.ID, out(3))
	require.NoError(t, err)

	after, err := svc.Transactions(ctx, stock.ID)
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.Equal(t, before[0], after[0], "existing ledger entries must be untouched")
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestAddTransaction_ConcurrentOverdraw_ExactlyOneSucceeds(t *testing.T) {
	// GIVEN: A stock at quantity 5
	// WHEN: Two concurrent OUT(4) requests race
	// THEN: Exactly one succeeds; the other fails with insufficient
	//       stock; final quantity is 1 - never negative, never 5

	svc := newTestService(t)
	ctx := context.Background()
	stock := seedStock(t, svc, "Eggs", 5)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.AddTransaction(ctx, stock.ID, out(4))
		}(i)
	}
	wg.Wait()

	var succeeded, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		default:
			assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
			insufficient++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, insufficient)

	final, err := svc.GetStock(ctx, stock.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), final.Total)

	rec, err := svc.Reconcile(ctx, stock.ID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent)
}

func TestAddTransaction_ManyConcurrentWriters_NothingLost(t *testing.T) {
	// 20 goroutines each IN(1) against the same stock: every append must
	// land and the projection must reconcile.

	svc := newTestService(t)
	ctx := context.Background()
	stock := seedStock(t, svc, "Beans", 0)

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddTransaction(ctx, stock.ID, in(1))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	final, err := svc.GetStock(ctx, stock.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(writers), final.Total)

	txs, err := svc.Transactions(ctx, stock.ID)
	require.NoError(t, err)
	assert.Len(t, txs, writers)
}

// =============================================================================
// LISTING
// =============================================================================

func TestListStocks_OrderedByMostRecentMovement(t *testing.T) {
	// Stocks with recent movements first; untouched stocks last,
	// newest-created first.

	svc := newTestService(t)
	ctx := context.Background()

	flour := seedStock(t, svc, "Flour", 10)
	salt := seedStock(t, svc, "Salt", 10)
	pepper := seedStock(t, svc, "Pepper", 10)

	monday := time.Date(2026, time.August, 24, 8, 0, 0, 0, time.UTC)
	friday := time.Date(2026, time.August, 28, 8, 0, 0, 0, time.UTC)

	_, err := svc.AddTransaction(ctx, flour.ID, inventory.TransactionInput{
		Type: inventory.TxOut, Quantity: 1, OccurredAt: &monday,
	})
	require.NoError(t, err)
	_, err = svc.AddTransaction(ctx, salt.ID, inventory.TransactionInput{
		Type: inventory.TxOut, Quantity: 1, OccurredAt: &friday,
	})
	require.NoError(t, err)

	stocks, err := svc.ListStocks(ctx)
	require.NoError(t, err)
	require.Len(t, stocks, 3)
	assert.Equal(t, salt.ID, stocks[0].ID, "most recent movement first")
	assert.Equal(t, flour.ID, stocks[1].ID)
	assert.Equal(t, pepper.ID, stocks[2].ID, "untouched stock sorts last")
}

// =============================================================================
// PROTECTED DELETES
// =============================================================================

func TestDeleteStock_ProtectedByLedger(t *testing.T) {
	// GIVEN: One stock with a transaction, one without
	// WHEN: Deleting both
	// THEN: The referenced one is protected, the clean one goes away

	svc := newTestService(t)
	ctx := context.Background()

	active := seedStock(t, svc, "Flour", 5)
	_, err := svc.AddTransaction(ctx, active.ID, in(1))
	require.NoError(t, err)

	idle := seedStock(t, svc, "Salt", 5)

	err = svc.DeleteStock(ctx, active.ID)
	assert.ErrorIs(t, err, inventory.ErrStockInUse)

	// History must survive the attempt.
	txs, err := svc.Transactions(ctx, active.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 1)

	require.NoError(t, svc.DeleteStock(ctx, idle.ID))
	_, err = svc.GetStock(ctx, idle.ID)
	assert.ErrorIs(t, err, inventory.ErrStockNotFound)
}

func TestDeleteStock_Unknown(t *testing.T) {
	svc := newTestService(t)
	err := svc.DeleteStock(context.Background(), "nope")
	assert.ErrorIs(t, err, inventory.ErrStockNotFound)
}

func TestDeleteIngredient_ProtectedByStock(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	ing := seedIngredient(t, svc, "Basil")
	stock, err := svc.InitStock(ctx, ing.ID, 0)
	require.NoError(t, err)

	err = svc.DeleteIngredient(ctx, ing.ID)
	assert.ErrorIs(t, err, inventory.ErrIngredientInUse)

	// Remove the stock first, then the ingredient may go.
	require.NoError(t, svc.DeleteStock(ctx, stock.ID))
	require.NoError(t, svc.DeleteIngredient(ctx, ing.ID))
}

// =============================================================================
// LOOKUPS
// =============================================================================

func TestGetStockByIngredient_NoneYet(t *testing.T) {
	svc := newTestService(t)
	ing := seedIngredient(t, svc, "Saffron")

	_, err := svc.GetStockByIngredient(context.Background(), ing.ID)
	assert.ErrorIs(t, err, inventory.ErrStockNotFound)
}

func TestStockExists_Predicate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	ing := seedIngredient(t, svc, "Thyme")

	exists, err := svc.StockExists(ctx, ing.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = svc.InitStock(ctx, ing.ID, 1)
	require.NoError(t, err)

	exists, err = svc.StockExists(ctx, ing.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCreateIngredient_Validation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateIngredient(ctx, "", "kg", "")
	assert.ErrorIs(t, err, inventory.ErrInvalidIngredient)

	_, err = svc.CreateIngredient(ctx, "Flour", "  ", "")
	assert.ErrorIs(t, err, inventory.ErrInvalidIngredient)
}
