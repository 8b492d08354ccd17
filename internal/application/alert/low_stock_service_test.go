package alert

import (
	"context"
	"errors"
	"testing"

	appshared "github.com/erp/stockcore/internal/application/shared"
	appstock "github.com/erp/stockcore/internal/application/stock"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/erp/stockcore/internal/infrastructure/persistence"
	"github.com/erp/stockcore/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLocker struct {
	err      error
	obtained int
	released int
}

func (l *stubLocker) Obtain(context.Context) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.obtained++
	return func() { l.released++ }, nil
}

type sweepFixture struct {
	repos    appshared.Repositories
	stock    *appstock.Service
	svc      *LowStockService
	location uuid.UUID
}

func newSweepFixture(t *testing.T) *sweepFixture {
	db := testutil.NewSQLiteDB(t)
	repos := persistence.NewRepositories(db)
	scope := persistence.NewGormTransactionScope(db)
	return &sweepFixture{
		repos:    repos,
		stock:    appstock.NewService(scope, repos, nil),
		svc:      NewLowStockService(repos, nil),
		location: uuid.New(),
	}
}

// item creates an item with a minimum of 5 holding qty units
func (f *sweepFixture) item(t *testing.T, sku string, qty int64) uuid.UUID {
	t.Helper()
	item, err := stock.NewItem("Item "+sku, sku, decimal.NewFromInt(1), decimal.NewFromInt(5), decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, f.repos.Items().Create(context.Background(), item))
	if qty > 0 {
		f.adjust(t, item.ID, stock.OperationSet, qty)
	}
	return item.ID
}

func (f *sweepFixture) adjust(t *testing.T, itemID uuid.UUID, op stock.AdjustOperation, qty int64) {
	t.Helper()
	_, err := f.stock.Adjust(context.Background(), f.location, itemID, appstock.AdjustRequest{
		Quantity: decimal.NewFromInt(qty), Operation: op,
	})
	require.NoError(t, err)
}

func (f *sweepFixture) sweep(t *testing.T) SweepResult {
	t.Helper()
	res, err := f.svc.Sweep(context.Background())
	require.NoError(t, err)
	return res
}

func TestLowStockService_Sweep(t *testing.T) {
	f := newSweepFixture(t)
	ctx := context.Background()
	low := f.item(t, "LOW", 3)
	ok := f.item(t, "OK", 10)

	res := f.sweep(t)
	assert.Equal(t, SweepResult{Checked: 2, Inserted: 2}, res)

	lowAlert, err := f.svc.GetAlert(ctx, low)
	require.NoError(t, err)
	assert.False(t, lowAlert.Resolved)
	assert.True(t, decimal.NewFromInt(3).Equal(lowAlert.CurrentStock))
	assert.True(t, decimal.NewFromInt(5).Equal(lowAlert.MinStockThreshold))

	okAlert, err := f.svc.GetAlert(ctx, ok)
	require.NoError(t, err)
	assert.True(t, okAlert.Resolved, "items above the minimum get a resolved row")

	t.Run("repeat sweep writes nothing", func(t *testing.T) {
		res := f.sweep(t)
		assert.Equal(t, 2, res.Checked)
		assert.Zero(t, res.Writes())
	})

	t.Run("restock resolves", func(t *testing.T) {
		f.adjust(t, low, stock.OperationAdd, 4)
		res := f.sweep(t)
		assert.Equal(t, 1, res.Resolved)
		assert.Equal(t, 1, res.Writes())

		a, err := f.svc.GetAlert(ctx, low)
		require.NoError(t, err)
		assert.True(t, a.Resolved)
		assert.True(t, decimal.NewFromInt(7).Equal(a.CurrentStock))
		assert.Equal(t, lowAlert.ID, a.ID, "the row is reused")
	})

	t.Run("falling below reopens", func(t *testing.T) {
		f.adjust(t, ok, stock.OperationSubtract, 6)
		res := f.sweep(t)
		assert.Equal(t, 1, res.Reopened)
	})

	t.Run("stock moving inside the band refreshes the snapshot", func(t *testing.T) {
		f.adjust(t, ok, stock.OperationSubtract, 1)
		res := f.sweep(t)
		assert.Equal(t, SweepResult{Checked: 2, Refreshed: 1}, res)

		a, err := f.svc.GetAlert(ctx, ok)
		require.NoError(t, err)
		assert.False(t, a.Resolved)
		assert.True(t, decimal.NewFromInt(3).Equal(a.CurrentStock))
	})

	t.Run("list by resolved", func(t *testing.T) {
		open := false
		alerts, err := f.svc.ListAlerts(ctx, &open)
		require.NoError(t, err)
		require.Len(t, alerts, 1)
		assert.Equal(t, ok, alerts[0].ItemID)

		all, err := f.svc.ListAlerts(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("unknown item", func(t *testing.T) {
		_, err := f.svc.GetAlert(ctx, uuid.New())
		assert.True(t, shared.IsNotFound(err))
	})
}

func TestLowStockService_SweepLock(t *testing.T) {
	t.Run("held elsewhere skips", func(t *testing.T) {
		f := newSweepFixture(t)
		f.item(t, "LOW", 1)
		f.svc.SetLocker(&stubLocker{err: ErrSweepInProgress})

		res := f.sweep(t)
		assert.True(t, res.Skipped)
		assert.Zero(t, res.Checked)

		alerts, err := f.svc.ListAlerts(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, alerts)
	})

	t.Run("lock backend failure still sweeps", func(t *testing.T) {
		f := newSweepFixture(t)
		f.item(t, "LOW", 1)
		f.svc.SetLocker(&stubLocker{err: errors.New("connection refused")})

		res := f.sweep(t)
		assert.False(t, res.Skipped)
		assert.Equal(t, 1, res.Inserted)
	})

	t.Run("lock is released", func(t *testing.T) {
		f := newSweepFixture(t)
		f.item(t, "LOW", 1)
		locker := &stubLocker{}
		f.svc.SetLocker(locker)

		f.sweep(t)
		f.sweep(t)
		assert.Equal(t, 2, locker.obtained)
		assert.Equal(t, 2, locker.released)
	})
}
