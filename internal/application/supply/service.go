package supply

import (
	"context"

	appshared "github.com/erp/stockcore/internal/application/shared"
	appstock "github.com/erp/stockcore/internal/application/stock"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/erp/stockcore/internal/domain/supply"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// WorkflowService drives requisitions, purchase orders, receipts, purchase
// entries and transfers. Every operation that moves stock runs the document
// change and the balance mutation in a single transaction.
type WorkflowService struct {
	scope   appshared.TransactionScope
	repos   appshared.Repositories
	trigger appshared.SweepTrigger
	logger  *zap.Logger
}

// NewWorkflowService creates a new WorkflowService
func NewWorkflowService(scope appshared.TransactionScope, repos appshared.Repositories, trigger appshared.SweepTrigger, logger *zap.Logger) *WorkflowService {
	if trigger == nil {
		trigger = appshared.NoopSweepTrigger{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkflowService{scope: scope, repos: repos, trigger: trigger, logger: logger}
}

func toFilter(f ListFilter) supply.Filter {
	filter := supply.Filter{
		Filter:     shared.DefaultFilter(),
		Status:     f.Status,
		LocationID: f.LocationID,
	}
	if f.Page > 0 {
		filter.Page = f.Page
	}
	if f.PageSize > 0 {
		filter.PageSize = f.PageSize
	}
	return filter
}

func paginate[D any, R any](rows []D, total int64, filter supply.Filter, conv func(*D) R) shared.Paginated[R] {
	out := make([]R, len(rows))
	for i := range rows {
		out[i] = conv(&rows[i])
	}
	return shared.NewPaginated(out, total, filter.Page, filter.PageSize)
}

// catalogPrices returns the unit price of every item in the requisitions
func catalogPrices(ctx context.Context, repos appshared.Repositories, reqs ...*supply.Requisition) (map[uuid.UUID]decimal.Decimal, error) {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, r := range reqs {
		for _, it := range r.Items {
			if !seen[it.ItemID] {
				seen[it.ItemID] = true
				ids = append(ids, it.ItemID)
			}
		}
	}
	items, err := repos.Items().FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	prices := make(map[uuid.UUID]decimal.Decimal, len(items))
	for _, it := range items {
		prices[it.ID] = it.UnitPrice
	}
	return prices, nil
}

func grnReceipts(g *supply.GRN) []appstock.ReceiptLine {
	out := make([]appstock.ReceiptLine, 0, len(g.Items))
	for _, it := range g.Items {
		cost := it.UnitCost
		out = append(out, appstock.ReceiptLine{ItemID: it.ItemID, Quantity: it.ReceivedQuantity, UnitCost: &cost})
	}
	return out
}

func entryReceipts(pe *supply.PurchaseEntry) []appstock.ReceiptLine {
	out := make([]appstock.ReceiptLine, 0, len(pe.Items))
	for _, it := range pe.Items {
		cost := it.UnitCost
		out = append(out, appstock.ReceiptLine{ItemID: it.ItemID, Quantity: it.Quantity, UnitCost: &cost})
	}
	return out
}

func transferReceipts(t *supply.StockTransfer, lines []stock.Line) []appstock.ReceiptLine {
	costs := make(map[uuid.UUID]*decimal.Decimal, len(t.Items))
	for _, it := range t.Items {
		if it.UnitCost != nil {
			costs[it.ItemID] = it.UnitCost
		}
	}
	out := make([]appstock.ReceiptLine, len(lines))
	for i, l := range lines {
		out[i] = appstock.ReceiptLine{ItemID: l.ItemID, Quantity: l.Quantity, UnitCost: costs[l.ItemID]}
	}
	return out
}
