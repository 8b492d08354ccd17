//go:build integration

package persistence_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	orderapp "github.com/erp/stockcore/internal/application/order"
	stockapp "github.com/erp/stockcore/internal/application/stock"
	supplyapp "github.com/erp/stockcore/internal/application/supply"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/erp/stockcore/internal/infrastructure/persistence"
	"github.com/erp/stockcore/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStock(t *testing.T, svc *stockapp.Service, items stock.ItemRepository, location uuid.UUID, qty int64) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	item, err := stock.NewItem("Flour 25kg", "FLR-"+uuid.NewString()[:8], decimal.NewFromInt(30), decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, items.Create(ctx, item))

	_, err = svc.Adjust(ctx, location, item.ID, stockapp.AdjustRequest{
		Quantity:  decimal.NewFromInt(qty),
		Operation: stock.OperationSet,
	})
	require.NoError(t, err)
	return item.ID
}

func TestConcurrentApprovedOrdersNeverOversell(t *testing.T) {
	db := testutil.NewPostgresDB(t)
	repos := persistence.NewRepositories(db)
	scope := persistence.NewGormTransactionScope(db)
	stockSvc := stockapp.NewService(scope, repos, nil)
	orderSvc := orderapp.NewOrderService(scope, repos, nil, nil)
	ctx := context.Background()

	location := uuid.New()
	itemID := seedStock(t, stockSvc, repos.Items(), location, 10)

	const workers = 25
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		shortages int
		others    []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := orderSvc.Create(ctx, orderapp.CreateOrderRequest{
				LocationID: location,
				Status:     "approved",
				Items:      []orderapp.ItemRequest{{ItemID: itemID, Quantity: decimal.NewFromInt(1)}},
			})
			mu.Lock()
			defer mu.Unlock()
			var shortage *stock.ShortageError
			switch {
			case err == nil:
				succeeded++
			case errors.As(err, &shortage):
				shortages++
			default:
				others = append(others, err)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, others)
	assert.Equal(t, 10, succeeded)
	assert.Equal(t, workers-10, shortages)

	row, err := repos.LocationStocks().FindByLocationAndItem(ctx, location, itemID)
	require.NoError(t, err)
	assert.True(t, row.AvailableQuantity.IsZero(), "available = %s", row.AvailableQuantity)

	item, err := repos.Items().FindByID(ctx, itemID)
	require.NoError(t, err)
	assert.True(t, item.StockQuantity.IsZero())

	// One seed entry plus one deduction per successful order
	moves, _, err := repos.Movements().FindByItem(ctx, itemID, shared.DefaultFilter())
	require.NoError(t, err)
	assert.Len(t, moves, 11)
}

func TestConcurrentTransfersBalanceAcrossLocations(t *testing.T) {
	db := testutil.NewPostgresDB(t)
	repos := persistence.NewRepositories(db)
	scope := persistence.NewGormTransactionScope(db)
	stockSvc := stockapp.NewService(scope, repos, nil)
	workflow := supplyapp.NewWorkflowService(scope, repos, nil, nil)
	ctx := context.Background()

	source, dest := uuid.New(), uuid.New()
	itemID := seedStock(t, stockSvc, repos.Items(), source, 6)

	const transfers = 10
	ids := make([]uuid.UUID, 0, transfers)
	for i := 0; i < transfers; i++ {
		tr, err := workflow.CreateTransfer(ctx, supplyapp.CreateTransferRequest{
			SourceLocationID:      &source,
			DestinationLocationID: dest,
			Items:                 []supplyapp.LineRequest{{ItemID: itemID, Quantity: decimal.NewFromInt(1)}},
		})
		require.NoError(t, err)
		_, err = workflow.ApproveTransfer(ctx, tr.ID, supplyapp.ApproveRequest{})
		require.NoError(t, err)
		ids = append(ids, tr.ID)
	}

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		dispatched []uuid.UUID
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			if _, err := workflow.DispatchTransfer(ctx, id, supplyapp.QuantitiesRequest{}); err == nil {
				mu.Lock()
				dispatched = append(dispatched, id)
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()
	require.Len(t, dispatched, 6)

	for _, id := range dispatched {
		_, err := workflow.ReceiveTransfer(ctx, id, supplyapp.QuantitiesRequest{})
		require.NoError(t, err)
	}

	src, err := repos.LocationStocks().FindByLocationAndItem(ctx, source, itemID)
	require.NoError(t, err)
	dst, err := repos.LocationStocks().FindByLocationAndItem(ctx, dest, itemID)
	require.NoError(t, err)
	assert.True(t, src.AvailableQuantity.IsZero())
	assert.True(t, dst.AvailableQuantity.Equal(decimal.NewFromInt(6)))

	item, err := repos.Items().FindByID(ctx, itemID)
	require.NoError(t, err)
	assert.True(t, item.StockQuantity.Equal(decimal.NewFromInt(6)))
}

func TestConcurrentAdjustmentsKeepItemTotal(t *testing.T) {
	db := testutil.NewPostgresDB(t)
	repos := persistence.NewRepositories(db)
	scope := persistence.NewGormTransactionScope(db)
	stockSvc := stockapp.NewService(scope, repos, nil)
	ctx := context.Background()

	item, err := stock.NewItem("Sugar 1kg", "SGR-"+uuid.NewString()[:8], decimal.NewFromInt(10), decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, repos.Items().Create(ctx, item))

	const locations = 20
	var wg sync.WaitGroup
	errs := make(chan error, locations)
	for i := 0; i < locations; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := stockSvc.Adjust(ctx, uuid.New(), item.ID, stockapp.AdjustRequest{
				Quantity:  decimal.NewFromInt(3),
				Operation: stock.OperationAdd,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	found, err := repos.Items().FindByID(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, found.StockQuantity.Equal(decimal.NewFromInt(3*locations)), "stock_quantity = %s", found.StockQuantity)
}
