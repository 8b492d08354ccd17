package persistence

import (
	"context"
	"errors"
	"testing"

	appshared "github.com/erp/stockcore/internal/application/shared"
	"github.com/erp/stockcore/internal/domain/alert"
	"github.com/erp/stockcore/internal/domain/order"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/erp/stockcore/internal/domain/supply"
	"github.com/erp/stockcore/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func seedItem(t *testing.T, db *gorm.DB, sku string, minStock string) *stock.Item {
	t.Helper()
	item, err := stock.NewItem("Item "+sku, sku, dec("9.99"), dec(minStock), decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, NewGormItemRepository(db).Create(context.Background(), item))
	return item
}

func TestLocationStockRepository_GetOrCreateForUpdate(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormLocationStockRepository(db)
	ctx := context.Background()
	locationID, itemID := uuid.New(), uuid.New()

	first, err := repo.GetOrCreateForUpdate(ctx, locationID, itemID)
	require.NoError(t, err)
	assert.True(t, first.AvailableQuantity.IsZero())

	_, err = first.Adjust(stock.QuantityTypeAvailable, stock.OperationAdd, dec("7.5"))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, first))

	t.Run("second call returns the existing row", func(t *testing.T) {
		second, err := repo.GetOrCreateForUpdate(ctx, locationID, itemID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.True(t, dec("7.5").Equal(second.AvailableQuantity))
	})

	t.Run("only one row exists for the pair", func(t *testing.T) {
		var count int64
		require.NoError(t, db.Model(&stock.LocationStock{}).
			Where("location_id = ? AND item_id = ?", locationID, itemID).
			Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("create of an existing pair is a conflict", func(t *testing.T) {
		dup, err := stock.NewLocationStock(locationID, itemID)
		require.NoError(t, err)
		err = repo.Create(ctx, dup)
		require.Error(t, err)
		assert.Equal(t, shared.CodeConflict, shared.CodeOf(err))
	})

	t.Run("missing pair is not found", func(t *testing.T) {
		_, err := repo.FindByLocationAndItem(ctx, locationID, uuid.New())
		assert.True(t, shared.IsNotFound(err))
	})
}

func TestLocationStockRepository_FindByLocation(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormLocationStockRepository(db)
	ctx := context.Background()
	locationID := uuid.New()

	for i := 0; i < 3; i++ {
		_, err := repo.GetOrCreateForUpdate(ctx, locationID, uuid.New())
		require.NoError(t, err)
	}
	_, err := repo.GetOrCreateForUpdate(ctx, uuid.New(), uuid.New())
	require.NoError(t, err)

	rows, total, err := repo.FindByLocation(ctx, locationID, shared.Filter{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, rows, 2)

	t.Run("unknown sort field falls back to created_at", func(t *testing.T) {
		rows, total, err := repo.FindByLocation(ctx, locationID, shared.Filter{OrderBy: "id; DROP TABLE items"})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, rows, 3)
	})
}

func TestItemRepository_RefreshStockQuantity(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	items := NewGormItemRepository(db)
	stocks := NewGormLocationStockRepository(db)
	ctx := context.Background()

	item := seedItem(t, db, "SKU-1", "0")
	for _, qty := range []string{"4", "6.25"} {
		row, err := stocks.GetOrCreateForUpdate(ctx, uuid.New(), item.ID)
		require.NoError(t, err)
		_, err = row.Adjust(stock.QuantityTypeAvailable, stock.OperationSet, dec(qty))
		require.NoError(t, err)
		_, err = row.Adjust(stock.QuantityTypeReserved, stock.OperationSet, dec("100"))
		require.NoError(t, err)
		require.NoError(t, stocks.Save(ctx, row))
	}

	require.NoError(t, items.RefreshStockQuantity(ctx, item.ID))

	found, err := items.FindByID(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, dec("10.25").Equal(found.StockQuantity), "got %s", found.StockQuantity)

	t.Run("unknown item", func(t *testing.T) {
		err := items.RefreshStockQuantity(ctx, uuid.New())
		assert.True(t, shared.IsNotFound(err))
	})
}

func TestItemRepository_FindActive(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormItemRepository(db)
	ctx := context.Background()

	active := seedItem(t, db, "A", "1")
	inactive := seedItem(t, db, "B", "1")
	require.NoError(t, db.Model(inactive).Update("status", stock.ItemStatusInactive).Error)

	found, err := repo.FindActive(ctx)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, active.ID, found[0].ID)
}

func TestStockMovementRepository_Summarize(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormStockMovementRepository(db)
	ctx := context.Background()

	row, err := stock.NewLocationStock(uuid.New(), uuid.New())
	require.NoError(t, err)
	record := func(qt stock.QuantityType, mt stock.MovementType, prev, next string) {
		change := stock.Change{QuantityType: qt, Previous: dec(prev), New: dec(next)}
		require.NoError(t, repo.Create(ctx, stock.NewStockMovement(row, change, mt, stock.Reference{Type: stock.ReferenceTypeManual})))
	}
	record(stock.QuantityTypeAvailable, stock.MovementTypePurchase, "0", "10")
	record(stock.QuantityTypeAvailable, stock.MovementTypePurchase, "10", "15")
	record(stock.QuantityTypeAvailable, stock.MovementTypeSale, "15", "12")
	record(stock.QuantityTypeReserved, stock.MovementTypeAdjustment, "0", "50")

	rows, err := repo.Summarize(ctx, stock.MovementFilter{ItemID: &row.ItemID})
	require.NoError(t, err)

	summary := stock.NewMovementSummary(rows)
	assert.Equal(t, int64(3), summary.Count)
	assert.True(t, dec("15").Equal(summary.TotalIn))
	assert.True(t, dec("3").Equal(summary.TotalOut))
	assert.True(t, dec("12").Equal(summary.Net))
	assert.Equal(t, int64(2), summary.ByType[stock.MovementTypePurchase].Count)
	_, hasAdjustment := summary.ByType[stock.MovementTypeAdjustment]
	assert.False(t, hasAdjustment, "reserved movements are excluded")

	t.Run("history is returned oldest first", func(t *testing.T) {
		history, err := repo.FindByLocationAndItem(ctx, row.LocationID, row.ItemID)
		require.NoError(t, err)
		require.Len(t, history, 4)
		assert.True(t, dec("10").Equal(history[0].Quantity))
	})
}

func TestAlertRepository_ConditionalWrites(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormAlertRepository(db)
	ctx := context.Background()

	item := seedItem(t, db, "LOW", "10")
	a := alert.NewFromItem(item)
	require.False(t, a.Resolved)

	inserted, err := repo.InsertIfAbsent(ctx, a)
	require.NoError(t, err)
	assert.True(t, inserted)

	t.Run("second insert is absorbed", func(t *testing.T) {
		again, err := repo.InsertIfAbsent(ctx, alert.NewFromItem(item))
		require.NoError(t, err)
		assert.False(t, again)
	})

	t.Run("resolve happens once", func(t *testing.T) {
		changed, err := repo.SetResolved(ctx, item.ID, true, dec("12"), dec("10"))
		require.NoError(t, err)
		assert.True(t, changed)

		changed, err = repo.SetResolved(ctx, item.ID, true, dec("12"), dec("10"))
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("refresh only writes when figures differ", func(t *testing.T) {
		changed, err := repo.RefreshSnapshot(ctx, item.ID, dec("12"), dec("10"))
		require.NoError(t, err)
		assert.False(t, changed)

		changed, err = repo.RefreshSnapshot(ctx, item.ID, dec("13"), dec("10"))
		require.NoError(t, err)
		assert.True(t, changed)

		found, err := repo.FindByItemID(ctx, item.ID)
		require.NoError(t, err)
		assert.True(t, found.Resolved)
		assert.True(t, dec("13").Equal(found.CurrentStock))
	})

	t.Run("filter by resolved state", func(t *testing.T) {
		open := false
		alerts, err := repo.FindAll(ctx, &open)
		require.NoError(t, err)
		assert.Empty(t, alerts)

		all, err := repo.FindAll(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

func TestOrderRepository_Lifecycle(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()
	locationID := uuid.New()
	a, b := uuid.New(), uuid.New()

	o, err := order.NewOrder(locationID, "", "first", []order.ItemInput{
		{ItemID: a, Quantity: dec("2")},
		{ItemID: b, Quantity: dec("1")},
	})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, o))

	found, err := repo.FindByIDForUpdate(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, found.Items, 2)

	t.Run("list filters by status and location", func(t *testing.T) {
		orders, total, err := repo.FindAll(ctx, order.Filter{Status: order.StatusPending, LocationID: &locationID})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, orders, 1)
		assert.Len(t, orders[0].Items, 2)

		_, total, err = repo.FindAll(ctx, order.Filter{Status: order.StatusApproved})
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("replace items swaps the lines", func(t *testing.T) {
		found.Items = []order.OrderItem{{ID: uuid.New(), OrderID: o.ID, ItemID: b, Quantity: dec("5"), CreatedAt: o.CreatedAt}}
		require.NoError(t, repo.ReplaceItems(ctx, found))

		reloaded, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)
		require.Len(t, reloaded.Items, 1)
		assert.True(t, dec("5").Equal(reloaded.Items[0].Quantity))
	})

	t.Run("delete removes header and items", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, o.ID))
		_, err := repo.FindByID(ctx, o.ID)
		assert.True(t, shared.IsNotFound(err))

		var lines int64
		require.NoError(t, db.Model(&order.OrderItem{}).Where("order_id = ?", o.ID).Count(&lines).Error)
		assert.Zero(t, lines)

		assert.True(t, shared.IsNotFound(repo.Delete(ctx, o.ID)))
	})
}

func TestDocumentFilter_MatchesAnyLocationColumn(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormStockTransferRepository(db)
	ctx := context.Background()
	src, dst, other := uuid.New(), uuid.New(), uuid.New()

	transfer, err := supply.NewStockTransfer(supply.TransferTypeManual, &src, dst, "", []supply.LineInput{{ItemID: uuid.New(), Quantity: dec("3")}})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, transfer))

	for _, tc := range []struct {
		name     string
		location uuid.UUID
		want     int64
	}{
		{"source", src, 1},
		{"destination", dst, 1},
		{"unrelated", other, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			loc := tc.location
			_, total, err := repo.FindAll(ctx, supply.Filter{LocationID: &loc})
			require.NoError(t, err)
			assert.Equal(t, tc.want, total)
		})
	}

	t.Run("status narrows together with location", func(t *testing.T) {
		_, total, err := repo.FindAll(ctx, supply.Filter{Status: string(supply.TransferStatusReceived), LocationID: &src})
		require.NoError(t, err)
		assert.Zero(t, total)
	})
}

func TestGormTransactionScope_AfterCommit(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	scope := NewGormTransactionScope(db)
	ctx := context.Background()

	t.Run("callbacks wait for commit", func(t *testing.T) {
		var calls []string
		err := scope.Execute(ctx, func(repos appshared.Repositories) error {
			repos.AfterCommit(func() { calls = append(calls, "first") })
			repos.AfterCommit(func() { calls = append(calls, "second") })
			assert.Empty(t, calls)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second"}, calls)
	})

	t.Run("rollback drops callbacks", func(t *testing.T) {
		ran := false
		boom := errors.New("boom")
		err := scope.Execute(ctx, func(repos appshared.Repositories) error {
			repos.AfterCommit(func() { ran = true })
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.False(t, ran)
	})

	t.Run("outside a transaction runs at once", func(t *testing.T) {
		ran := false
		NewRepositories(db).AfterCommit(func() { ran = true })
		assert.True(t, ran)
	})
}
