package stock

import (
	"context"
	"sync/atomic"
	"testing"

	appshared "github.com/erp/stockcore/internal/application/shared"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/erp/stockcore/internal/infrastructure/persistence"
	"github.com/erp/stockcore/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type countingTrigger struct{ n atomic.Int32 }

func (c *countingTrigger) Trigger() { c.n.Add(1) }

type fixture struct {
	db      *gorm.DB
	repos   appshared.Repositories
	scope   appshared.TransactionScope
	svc     *Service
	ledger  *LedgerService
	trigger *countingTrigger
}

func newFixture(t *testing.T) *fixture {
	db := testutil.NewSQLiteDB(t)
	repos := persistence.NewRepositories(db)
	scope := persistence.NewGormTransactionScope(db)
	trigger := &countingTrigger{}
	svc := NewService(scope, repos, nil)
	svc.SetSweepTrigger(trigger)
	return &fixture{db: db, repos: repos, scope: scope, svc: svc, ledger: NewLedgerService(repos), trigger: trigger}
}

func (f *fixture) item(t *testing.T, sku string) *stock.Item {
	t.Helper()
	item, err := stock.NewItem("Item "+sku, sku, decimal.NewFromInt(5), decimal.NewFromInt(3), decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, f.repos.Items().Create(context.Background(), item))
	return item
}

func qty(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestService_Adjust(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loc := uuid.New()
	item := f.item(t, "ADJ")

	t.Run("add creates the row and ledgers the delta", func(t *testing.T) {
		resp, err := f.svc.Adjust(ctx, loc, item.ID, AdjustRequest{Quantity: qty("10"), Operation: stock.OperationAdd})
		require.NoError(t, err)
		assert.True(t, qty("10").Equal(resp.AvailableQuantity))

		moves, err := f.repos.Movements().FindByLocationAndItem(ctx, loc, item.ID)
		require.NoError(t, err)
		require.Len(t, moves, 1)
		assert.Equal(t, stock.MovementTypeAdjustment, moves[0].MovementType)
		assert.Equal(t, stock.ReferenceTypeManual, moves[0].ReferenceType)
		assert.True(t, qty("10").Equal(moves[0].Quantity))

		cached, err := f.repos.Items().FindByID(ctx, item.ID)
		require.NoError(t, err)
		assert.True(t, qty("10").Equal(cached.StockQuantity))
		assert.Equal(t, int32(1), f.trigger.n.Load())
	})

	t.Run("subtract floors at zero and ledgers what was applied", func(t *testing.T) {
		resp, err := f.svc.Adjust(ctx, loc, item.ID, AdjustRequest{Quantity: qty("25"), Operation: stock.OperationSubtract})
		require.NoError(t, err)
		assert.True(t, resp.AvailableQuantity.IsZero())

		moves, err := f.repos.Movements().FindByLocationAndItem(ctx, loc, item.ID)
		require.NoError(t, err)
		require.Len(t, moves, 2)
		assert.True(t, qty("-10").Equal(moves[1].Quantity))
		assert.True(t, moves[1].NewQuantity.IsZero())
	})

	t.Run("no-op change writes no movement", func(t *testing.T) {
		_, err := f.svc.Adjust(ctx, loc, item.ID, AdjustRequest{Quantity: qty("0"), Operation: stock.OperationSet})
		require.NoError(t, err)

		moves, err := f.repos.Movements().FindByLocationAndItem(ctx, loc, item.ID)
		require.NoError(t, err)
		assert.Len(t, moves, 2)
	})

	t.Run("reserved quantity does not touch the cached total", func(t *testing.T) {
		_, err := f.svc.Adjust(ctx, loc, item.ID, AdjustRequest{
			Quantity: qty("4"), Operation: stock.OperationAdd, QuantityType: stock.QuantityTypeReserved,
		})
		require.NoError(t, err)

		cached, err := f.repos.Items().FindByID(ctx, item.ID)
		require.NoError(t, err)
		assert.True(t, cached.StockQuantity.IsZero())
	})

	t.Run("unknown item", func(t *testing.T) {
		_, err := f.svc.Adjust(ctx, loc, uuid.New(), AdjustRequest{Quantity: qty("1"), Operation: stock.OperationAdd})
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("invalid movement type is rejected", func(t *testing.T) {
		_, err := f.svc.Adjust(ctx, loc, item.ID, AdjustRequest{Quantity: qty("1"), Operation: stock.OperationAdd, MovementType: "gift"})
		assert.Equal(t, shared.CodeValidationFailed, shared.CodeOf(err))
	})

	t.Run("ledger replay matches the balance", func(t *testing.T) {
		result, err := f.ledger.Reconcile(ctx, loc, item.ID)
		require.NoError(t, err)
		assert.True(t, result.Consistent)
		assert.Equal(t, 3, result.Movements, "reserved movements are listed but not replayed")
	})
}

func TestDeductLines_AllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loc := uuid.New()
	a, b := f.item(t, "A"), f.item(t, "B")

	_, err := f.svc.Adjust(ctx, loc, a.ID, AdjustRequest{Quantity: qty("5"), Operation: stock.OperationAdd})
	require.NoError(t, err)
	_, err = f.svc.Adjust(ctx, loc, b.ID, AdjustRequest{Quantity: qty("1"), Operation: stock.OperationAdd})
	require.NoError(t, err)

	lines := []stock.Line{{ItemID: a.ID, Quantity: qty("3")}, {ItemID: b.ID, Quantity: qty("2")}}
	err = f.scope.Execute(ctx, func(repos appshared.Repositories) error {
		return DeductLines(ctx, repos, loc, lines, stock.MovementTypeSale, stock.ManualReference())
	})
	require.ErrorIs(t, err, shared.ErrStockShortage)

	var shortage *stock.ShortageError
	require.ErrorAs(t, err, &shortage)
	require.Len(t, shortage.Shortages, 1)
	assert.Equal(t, b.ID, shortage.Shortages[0].ItemID)

	row, err := f.repos.LocationStocks().FindByLocationAndItem(ctx, loc, a.ID)
	require.NoError(t, err)
	assert.True(t, qty("5").Equal(row.AvailableQuantity), "nothing is deducted on shortage")

	t.Run("deducts every line when all are available", func(t *testing.T) {
		lines[1].Quantity = qty("1")
		err := f.scope.Execute(ctx, func(repos appshared.Repositories) error {
			return DeductLines(ctx, repos, loc, lines, stock.MovementTypeSale, stock.ManualReference())
		})
		require.NoError(t, err)

		rowA, err := f.repos.LocationStocks().FindByLocationAndItem(ctx, loc, a.ID)
		require.NoError(t, err)
		rowB, err := f.repos.LocationStocks().FindByLocationAndItem(ctx, loc, b.ID)
		require.NoError(t, err)
		assert.True(t, qty("2").Equal(rowA.AvailableQuantity))
		assert.True(t, rowB.AvailableQuantity.IsZero())
	})

	t.Run("missing row counts as zero available", func(t *testing.T) {
		err := f.scope.Execute(ctx, func(repos appshared.Repositories) error {
			return DeductLines(ctx, repos, uuid.New(), []stock.Line{{ItemID: a.ID, Quantity: qty("1")}}, stock.MovementTypeSale, stock.ManualReference())
		})
		assert.ErrorIs(t, err, shared.ErrStockShortage)
	})
}

func TestService_Adjust_LedgerFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loc := uuid.New()
	item := f.item(t, "LGR")

	_, err := f.svc.Adjust(ctx, loc, item.ID, AdjustRequest{Quantity: qty("6"), Operation: stock.OperationAdd})
	require.NoError(t, err)

	failing := NewService(testutil.FailingLedger(f.scope), f.repos, nil)
	failing.SetSweepTrigger(f.trigger)
	triggered := f.trigger.n.Load()

	t.Run("existing row keeps its balance", func(t *testing.T) {
		_, err := failing.Adjust(ctx, loc, item.ID, AdjustRequest{Quantity: qty("4"), Operation: stock.OperationSubtract})
		require.ErrorIs(t, err, testutil.ErrLedgerUnavailable)

		row, err := f.repos.LocationStocks().FindByLocationAndItem(ctx, loc, item.ID)
		require.NoError(t, err)
		assert.True(t, qty("6").Equal(row.AvailableQuantity), "available = %s", row.AvailableQuantity)

		cached, err := f.repos.Items().FindByID(ctx, item.ID)
		require.NoError(t, err)
		assert.True(t, qty("6").Equal(cached.StockQuantity))

		moves, err := f.repos.Movements().FindByLocationAndItem(ctx, loc, item.ID)
		require.NoError(t, err)
		assert.Len(t, moves, 1)
		assert.Equal(t, triggered, f.trigger.n.Load(), "no sweep after a failed write")
	})

	t.Run("new row is not left behind", func(t *testing.T) {
		other := uuid.New()
		_, err := failing.Adjust(ctx, other, item.ID, AdjustRequest{Quantity: qty("2"), Operation: stock.OperationAdd})
		require.ErrorIs(t, err, testutil.ErrLedgerUnavailable)

		_, err = f.repos.LocationStocks().FindByLocationAndItem(ctx, other, item.ID)
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("deduction rolls back every line", func(t *testing.T) {
		lines := []stock.Line{{ItemID: item.ID, Quantity: qty("1")}}
		err := testutil.FailingLedger(f.scope).Execute(ctx, func(repos appshared.Repositories) error {
			return DeductLines(ctx, repos, loc, lines, stock.MovementTypeSale, stock.ManualReference())
		})
		require.ErrorIs(t, err, testutil.ErrLedgerUnavailable)

		row, err := f.repos.LocationStocks().FindByLocationAndItem(ctx, loc, item.ID)
		require.NoError(t, err)
		assert.True(t, qty("6").Equal(row.AvailableQuantity))
	})
}

func TestService_CheckAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loc := uuid.New()
	item := f.item(t, "CHK")

	_, err := f.svc.Adjust(ctx, loc, item.ID, AdjustRequest{Quantity: qty("4"), Operation: stock.OperationAdd})
	require.NoError(t, err)

	t.Run("duplicate lines are summed", func(t *testing.T) {
		result, err := f.svc.CheckAvailability(ctx, AvailabilityRequest{
			LocationID: loc,
			Items:      []stock.Line{{ItemID: item.ID, Quantity: qty("3")}, {ItemID: item.ID, Quantity: qty("2")}},
		})
		require.NoError(t, err)
		assert.False(t, result.Available)
		require.Len(t, result.Shortages, 1)
		assert.True(t, qty("5").Equal(result.Shortages[0].Requested))
	})

	t.Run("sufficient stock", func(t *testing.T) {
		result, err := f.svc.CheckAvailability(ctx, AvailabilityRequest{
			LocationID: loc,
			Items:      []stock.Line{{ItemID: item.ID, Quantity: qty("4")}},
		})
		require.NoError(t, err)
		assert.True(t, result.Available)
		assert.Empty(t, result.Shortages)
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		_, err := f.svc.CheckAvailability(ctx, AvailabilityRequest{
			LocationID: loc,
			Items:      []stock.Line{{ItemID: item.ID, Quantity: qty("0")}},
		})
		assert.Equal(t, shared.CodeValidationFailed, shared.CodeOf(err))
	})
}

func TestService_BulkOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loc := uuid.New()
	a, b := f.item(t, "BA"), f.item(t, "BB")

	created, err := f.svc.BulkCreate(ctx, loc, BulkCreateRequest{Rows: []BulkCreateRow{
		{ItemID: a.ID, AvailableQuantity: qty("8"), MinQuantity: qty("2")},
		{ItemID: uuid.New(), AvailableQuantity: qty("1")},
	}})
	require.NoError(t, err)
	require.Len(t, created.Success, 1)
	require.Len(t, created.Errors, 1)
	assert.Equal(t, shared.CodeNotFound, created.Errors[0].Code)

	moves, err := f.repos.Movements().FindByLocationAndItem(ctx, loc, a.ID)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, stock.ReferenceTypeInitialStock, moves[0].ReferenceType)

	t.Run("create of an existing pair is reported", func(t *testing.T) {
		again, err := f.svc.BulkCreate(ctx, loc, BulkCreateRequest{Rows: []BulkCreateRow{{ItemID: a.ID}}})
		require.NoError(t, err)
		require.Len(t, again.Errors, 1)
		assert.Equal(t, shared.CodeConflict, again.Errors[0].Code)
	})

	t.Run("update applies good patches and reports bad ones", func(t *testing.T) {
		five := qty("5")
		result, err := f.svc.BulkUpdate(ctx, loc, BulkUpdateRequest{Updates: []stock.Patch{
			{ItemID: a.ID, AvailableQuantity: &five},
			{ItemID: b.ID, AvailableQuantity: &five},
		}})
		require.NoError(t, err)
		require.Len(t, result.Success, 1)
		assert.True(t, five.Equal(result.Success[0].AvailableQuantity))
		require.Len(t, result.Errors, 1)
		assert.Equal(t, b.ID, result.Errors[0].ItemID)
		assert.Equal(t, shared.CodeNotFound, result.Errors[0].Code)

		reconciled, err := f.ledger.Reconcile(ctx, loc, a.ID)
		require.NoError(t, err)
		assert.True(t, reconciled.Consistent)
	})

	t.Run("thresholds", func(t *testing.T) {
		_, err := f.svc.SetThresholds(ctx, loc, a.ID, ThresholdsRequest{})
		assert.ErrorIs(t, err, shared.ErrNoFieldsToUpdate)

		minQty, maxQty := qty("6"), qty("4")
		_, err = f.svc.SetThresholds(ctx, loc, a.ID, ThresholdsRequest{MinQuantity: &minQty, MaxQuantity: &maxQty})
		assert.Equal(t, shared.CodeValidationFailed, shared.CodeOf(err))

		maxQty = qty("20")
		resp, err := f.svc.SetThresholds(ctx, loc, a.ID, ThresholdsRequest{MinQuantity: &minQty, MaxQuantity: &maxQty})
		require.NoError(t, err)
		assert.True(t, resp.IsBelowMinimum)
	})

	t.Run("list by location", func(t *testing.T) {
		page, err := f.svc.ListByLocation(ctx, loc, shared.Filter{Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(1), page.Total)
		assert.Equal(t, 1, page.TotalPages)
	})
}

func TestLedgerService_Summary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loc := uuid.New()
	item := f.item(t, "SUM")

	_, err := f.svc.Adjust(ctx, loc, item.ID, AdjustRequest{Quantity: qty("9"), Operation: stock.OperationAdd, MovementType: stock.MovementTypePurchase})
	require.NoError(t, err)
	_, err = f.svc.Adjust(ctx, loc, item.ID, AdjustRequest{Quantity: qty("4"), Operation: stock.OperationSubtract, MovementType: stock.MovementTypeSale})
	require.NoError(t, err)

	summary, err := f.ledger.Summary(ctx, stock.MovementFilter{LocationID: &loc})
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Count)
	assert.True(t, qty("5").Equal(summary.Net))

	t.Run("inverted range", func(t *testing.T) {
		later := item.CreatedAt.Add(1)
		_, err := f.ledger.Summary(ctx, stock.MovementFilter{From: &later, To: &item.CreatedAt})
		assert.Equal(t, shared.CodeValidationFailed, shared.CodeOf(err))
	})

	t.Run("reference type must be known", func(t *testing.T) {
		_, err := f.ledger.ListByReference(ctx, "invoice", uuid.New())
		assert.Equal(t, shared.CodeValidationFailed, shared.CodeOf(err))
	})
}
