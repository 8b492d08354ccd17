package persistence

import (
	"context"

	appshared "github.com/erp/stockcore/internal/application/shared"
	"github.com/erp/stockcore/internal/domain/alert"
	"github.com/erp/stockcore/internal/domain/order"
	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/erp/stockcore/internal/domain/supply"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed and the
// callbacks registered through AfterCommit run in order.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appshared.Repositories) error) error {
	var committed []func()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepositories{db: tx, afterCommit: &committed})
	})
	if err != nil {
		return err
	}
	for _, f := range committed {
		f()
	}
	return nil
}

// gormRepositories hands out repositories bound to one *gorm.DB, which is
// either the pool or an open transaction.
type gormRepositories struct {
	db          *gorm.DB
	afterCommit *[]func()
}

func (r *gormRepositories) AfterCommit(fn func()) {
	if r.afterCommit == nil {
		fn()
		return
	}
	*r.afterCommit = append(*r.afterCommit, fn)
}

// NewRepositories returns every repository bound to db
func NewRepositories(db *gorm.DB) appshared.Repositories {
	return &gormRepositories{db: db}
}

func (r *gormRepositories) Items() stock.ItemRepository {
	return NewGormItemRepository(r.db)
}

func (r *gormRepositories) LocationStocks() stock.LocationStockRepository {
	return NewGormLocationStockRepository(r.db)
}

func (r *gormRepositories) Movements() stock.StockMovementRepository {
	return NewGormStockMovementRepository(r.db)
}

func (r *gormRepositories) Orders() order.Repository {
	return NewGormOrderRepository(r.db)
}

func (r *gormRepositories) Alerts() alert.Repository {
	return NewGormAlertRepository(r.db)
}

func (r *gormRepositories) Requisitions() supply.RequisitionRepository {
	return NewGormRequisitionRepository(r.db)
}

func (r *gormRepositories) PurchaseOrders() supply.PurchaseOrderRepository {
	return NewGormPurchaseOrderRepository(r.db)
}

func (r *gormRepositories) GRNs() supply.GRNRepository {
	return NewGormGRNRepository(r.db)
}

func (r *gormRepositories) PurchaseEntries() supply.PurchaseEntryRepository {
	return NewGormPurchaseEntryRepository(r.db)
}

func (r *gormRepositories) StockTransfers() supply.StockTransferRepository {
	return NewGormStockTransferRepository(r.db)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appshared.TransactionScope = (*GormTransactionScope)(nil)
