package shared

import (
	"context"

	"github.com/erp/stockcore/internal/domain/alert"
	"github.com/erp/stockcore/internal/domain/order"
	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/erp/stockcore/internal/domain/supply"
)

// TransactionScope runs a unit of work atomically.
// If fn returns an error every write made through repos is rolled back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// Repositories gives access to every repository. Inside Execute all of them
// share the same database transaction; outside they read committed state.
type Repositories interface {
	Items() stock.ItemRepository
	LocationStocks() stock.LocationStockRepository
	Movements() stock.StockMovementRepository
	Orders() order.Repository
	Alerts() alert.Repository
	Requisitions() supply.RequisitionRepository
	PurchaseOrders() supply.PurchaseOrderRepository
	GRNs() supply.GRNRepository
	PurchaseEntries() supply.PurchaseEntryRepository
	StockTransfers() supply.StockTransferRepository

	// AfterCommit defers fn until the enclosing transaction commits. It is
	// dropped on rollback and runs immediately outside a transaction.
	AfterCommit(fn func())
}

// SweepTrigger requests an asynchronous low-stock sweep. Implementations
// must not block and must not report failures to the caller.
type SweepTrigger interface {
	Trigger()
}

// NoopSweepTrigger ignores every request
type NoopSweepTrigger struct{}

// Trigger does nothing
func (NoopSweepTrigger) Trigger() {}
