package order

import (
	"context"
	"testing"

	appshared "github.com/erp/stockcore/internal/application/shared"
	appstock "github.com/erp/stockcore/internal/application/stock"
	"github.com/erp/stockcore/internal/domain/order"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/erp/stockcore/internal/infrastructure/persistence"
	"github.com/erp/stockcore/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderFixture struct {
	repos    appshared.Repositories
	scope    appshared.TransactionScope
	stock    *appstock.Service
	orders   *OrderService
	location uuid.UUID
}

func newOrderFixture(t *testing.T) *orderFixture {
	db := testutil.NewSQLiteDB(t)
	repos := persistence.NewRepositories(db)
	scope := persistence.NewGormTransactionScope(db)
	return &orderFixture{
		repos:    repos,
		scope:    scope,
		stock:    appstock.NewService(scope, repos, nil),
		orders:   NewOrderService(scope, repos, nil, nil),
		location: uuid.New(),
	}
}

// stocked creates an item holding qty units at the fixture location
func (f *orderFixture) stocked(t *testing.T, sku string, qty int64) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	item, err := stock.NewItem("Item "+sku, sku, decimal.NewFromInt(2), decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, f.repos.Items().Create(ctx, item))
	if qty > 0 {
		_, err = f.stock.Adjust(ctx, f.location, item.ID, appstock.AdjustRequest{
			Quantity: decimal.NewFromInt(qty), Operation: stock.OperationAdd,
		})
		require.NoError(t, err)
	}
	return item.ID
}

func (f *orderFixture) available(t *testing.T, itemID uuid.UUID) decimal.Decimal {
	t.Helper()
	row, err := f.repos.LocationStocks().FindByLocationAndItem(context.Background(), f.location, itemID)
	require.NoError(t, err)
	return row.AvailableQuantity
}

func line(itemID uuid.UUID, qty int64) ItemRequest {
	return ItemRequest{ItemID: itemID, Quantity: decimal.NewFromInt(qty)}
}

func TestOrderService_Create(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	a := f.stocked(t, "A", 10)
	b := f.stocked(t, "B", 2)

	t.Run("pending order checks but does not deduct", func(t *testing.T) {
		resp, err := f.orders.Create(ctx, CreateOrderRequest{LocationID: f.location, Items: []ItemRequest{line(a, 4)}})
		require.NoError(t, err)
		assert.Equal(t, string(order.StatusPending), resp.Status)
		assert.Nil(t, resp.StockDeductedAt)
		assert.True(t, decimal.NewFromInt(10).Equal(f.available(t, a)))
	})

	t.Run("pending order is rejected on shortage", func(t *testing.T) {
		_, err := f.orders.Create(ctx, CreateOrderRequest{LocationID: f.location, Items: []ItemRequest{line(b, 3)}})
		assert.ErrorIs(t, err, shared.ErrStockShortage)

		page, err := f.orders.List(ctx, ListFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), page.Total, "rejected order is not stored")
	})

	t.Run("approved order deducts immediately", func(t *testing.T) {
		resp, err := f.orders.Create(ctx, CreateOrderRequest{
			LocationID: f.location,
			Status:     "Approved",
			Items:      []ItemRequest{line(a, 3), line(b, 2)},
		})
		require.NoError(t, err)
		assert.NotNil(t, resp.StockDeductedAt)
		assert.True(t, decimal.NewFromInt(7).Equal(f.available(t, a)))
		assert.True(t, f.available(t, b).IsZero())

		moves, err := f.repos.Movements().FindByReference(ctx, stock.ReferenceTypeOrder, resp.ID)
		require.NoError(t, err)
		assert.Len(t, moves, 2)
		for _, m := range moves {
			assert.Equal(t, stock.MovementTypeSale, m.MovementType)
			assert.True(t, m.Quantity.IsNegative())
		}
	})

	t.Run("approved shortage deducts nothing", func(t *testing.T) {
		_, err := f.orders.Create(ctx, CreateOrderRequest{
			LocationID: f.location,
			Status:     "approved",
			Items:      []ItemRequest{line(a, 1), line(b, 1)},
		})
		var shortage *stock.ShortageError
		require.ErrorAs(t, err, &shortage)
		assert.Equal(t, b, shortage.Shortages[0].ItemID)
		assert.True(t, decimal.NewFromInt(7).Equal(f.available(t, a)))
	})

	t.Run("validation", func(t *testing.T) {
		_, err := f.orders.Create(ctx, CreateOrderRequest{LocationID: f.location})
		assert.Equal(t, shared.CodeValidationFailed, shared.CodeOf(err))
	})
}

func TestOrderService_UpdateStatus_DeductsExactlyOnce(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	a := f.stocked(t, "A", 10)

	created, err := f.orders.Create(ctx, CreateOrderRequest{LocationID: f.location, Items: []ItemRequest{line(a, 4), line(a, 1)}})
	require.NoError(t, err)

	approved, err := f.orders.UpdateStatus(ctx, created.ID, UpdateStatusRequest{Status: "approved"})
	require.NoError(t, err)
	require.NotNil(t, approved.StockDeductedAt)
	assert.True(t, decimal.NewFromInt(5).Equal(f.available(t, a)))

	for _, status := range []string{"approved", "preparing", "approved", "completed"} {
		_, err := f.orders.UpdateStatus(ctx, created.ID, UpdateStatusRequest{Status: status})
		require.NoError(t, err, status)
	}
	assert.True(t, decimal.NewFromInt(5).Equal(f.available(t, a)))

	moves, err := f.repos.Movements().FindByReference(ctx, stock.ReferenceTypeOrder, created.ID)
	require.NoError(t, err)
	require.Len(t, moves, 1, "duplicate lines are deducted as one aggregated movement")
	assert.True(t, decimal.NewFromInt(-5).Equal(moves[0].Quantity))

	t.Run("unknown order", func(t *testing.T) {
		_, err := f.orders.UpdateStatus(ctx, uuid.New(), UpdateStatusRequest{Status: "approved"})
		assert.True(t, shared.IsNotFound(err))
	})
}

func TestOrderService_UpdateStatus_ShortageKeepsStatus(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	a := f.stocked(t, "A", 5)

	created, err := f.orders.Create(ctx, CreateOrderRequest{LocationID: f.location, Items: []ItemRequest{line(a, 5)}})
	require.NoError(t, err)

	_, err = f.stock.Adjust(ctx, f.location, a, appstock.AdjustRequest{Quantity: decimal.NewFromInt(2), Operation: stock.OperationSubtract})
	require.NoError(t, err)

	_, err = f.orders.UpdateStatus(ctx, created.ID, UpdateStatusRequest{Status: "approved"})
	assert.ErrorIs(t, err, shared.ErrStockShortage)

	got, err := f.orders.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, string(order.StatusPending), got.Status)
	assert.Nil(t, got.StockDeductedAt)
}

func TestOrderService_UpdateStatus_LedgerFailureRollsBack(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	a, b := f.stocked(t, "A", 8), f.stocked(t, "B", 3)

	created, err := f.orders.Create(ctx, CreateOrderRequest{LocationID: f.location, Items: []ItemRequest{line(a, 5), line(b, 2)}})
	require.NoError(t, err)

	failing := NewOrderService(testutil.FailingLedger(f.scope), f.repos, nil, nil)
	_, err = failing.UpdateStatus(ctx, created.ID, UpdateStatusRequest{Status: "approved"})
	require.ErrorIs(t, err, testutil.ErrLedgerUnavailable)

	assert.True(t, decimal.NewFromInt(8).Equal(f.available(t, a)), "available = %s", f.available(t, a))
	assert.True(t, decimal.NewFromInt(3).Equal(f.available(t, b)), "available = %s", f.available(t, b))

	got, err := f.orders.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, string(order.StatusPending), got.Status)
	assert.Nil(t, got.StockDeductedAt)

	moves, err := f.repos.Movements().FindByReference(ctx, stock.ReferenceTypeOrder, created.ID)
	require.NoError(t, err)
	assert.Empty(t, moves)

	t.Run("retry on a healthy ledger deducts once", func(t *testing.T) {
		_, err := f.orders.UpdateStatus(ctx, created.ID, UpdateStatusRequest{Status: "approved"})
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(3).Equal(f.available(t, a)))
		assert.True(t, decimal.NewFromInt(1).Equal(f.available(t, b)))
	})
}

func TestOrderService_ItemsAndDelete(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	a := f.stocked(t, "A", 10)
	b := f.stocked(t, "B", 10)

	created, err := f.orders.Create(ctx, CreateOrderRequest{LocationID: f.location, Items: []ItemRequest{line(a, 1)}})
	require.NoError(t, err)

	replaced, err := f.orders.ReplaceItems(ctx, created.ID, ReplaceItemsRequest{Items: []ItemRequest{line(b, 2), line(a, 3)}})
	require.NoError(t, err)
	assert.Len(t, replaced.Items, 2)

	approved, err := f.orders.UpdateStatus(ctx, created.ID, UpdateStatusRequest{Status: "approved"})
	require.NoError(t, err)
	assert.Len(t, approved.Items, 2)
	assert.True(t, decimal.NewFromInt(7).Equal(f.available(t, a)))
	assert.True(t, decimal.NewFromInt(8).Equal(f.available(t, b)))

	t.Run("approved orders are frozen", func(t *testing.T) {
		_, err := f.orders.ReplaceItems(ctx, created.ID, ReplaceItemsRequest{Items: []ItemRequest{line(a, 1)}})
		assert.ErrorIs(t, err, shared.ErrInvalidState)
		assert.ErrorIs(t, f.orders.Delete(ctx, created.ID), shared.ErrInvalidState)
	})

	t.Run("cancel does not restore stock", func(t *testing.T) {
		_, err := f.orders.UpdateStatus(ctx, created.ID, UpdateStatusRequest{Status: "cancelled"})
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(7).Equal(f.available(t, a)))
	})

	t.Run("deducted orders stay frozen after leaving approved", func(t *testing.T) {
		_, err := f.orders.ReplaceItems(ctx, created.ID, ReplaceItemsRequest{Items: []ItemRequest{line(b, 1)}})
		assert.ErrorIs(t, err, shared.ErrInvalidState)
		assert.ErrorIs(t, f.orders.Delete(ctx, created.ID), shared.ErrInvalidState)
	})

	t.Run("never deducted order can be deleted", func(t *testing.T) {
		pending, err := f.orders.Create(ctx, CreateOrderRequest{LocationID: f.location, Items: []ItemRequest{line(a, 1)}})
		require.NoError(t, err)

		require.NoError(t, f.orders.Delete(ctx, pending.ID))
		_, err = f.orders.Get(ctx, pending.ID)
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("list filters by status", func(t *testing.T) {
		_, err := f.orders.Create(ctx, CreateOrderRequest{LocationID: f.location, Status: "approved", Items: []ItemRequest{line(a, 1)}})
		require.NoError(t, err)

		page, err := f.orders.List(ctx, ListFilter{Status: "APPROVED", LocationID: &f.location})
		require.NoError(t, err)
		assert.Equal(t, int64(1), page.Total)
		assert.Equal(t, 20, page.PageSize)
	})
}

func TestOrderService_ReapprovalCannotSwapItems(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	a := f.stocked(t, "A", 10)
	b := f.stocked(t, "B", 10)

	created, err := f.orders.Create(ctx, CreateOrderRequest{LocationID: f.location, Items: []ItemRequest{line(a, 5)}})
	require.NoError(t, err)
	_, err = f.orders.UpdateStatus(ctx, created.ID, UpdateStatusRequest{Status: "approved"})
	require.NoError(t, err)
	_, err = f.orders.UpdateStatus(ctx, created.ID, UpdateStatusRequest{Status: "pending"})
	require.NoError(t, err)

	_, err = f.orders.ReplaceItems(ctx, created.ID, ReplaceItemsRequest{Items: []ItemRequest{line(b, 8)}})
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	got, err := f.orders.UpdateStatus(ctx, created.ID, UpdateStatusRequest{Status: "approved"})
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, a, got.Items[0].ItemID)
	assert.True(t, decimal.NewFromInt(5).Equal(f.available(t, a)))
	assert.True(t, decimal.NewFromInt(10).Equal(f.available(t, b)))
}
