package order

import (
	"context"

	appshared "github.com/erp/stockcore/internal/application/shared"
	appstock "github.com/erp/stockcore/internal/application/stock"
	"github.com/erp/stockcore/internal/domain/order"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/erp/stockcore/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService handles order fulfilment. Stock is deducted at most once per
// order, when it first becomes approved.
type OrderService struct {
	scope   appshared.TransactionScope
	repos   appshared.Repositories
	trigger appshared.SweepTrigger
	logger  *zap.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(scope appshared.TransactionScope, repos appshared.Repositories, trigger appshared.SweepTrigger, logger *zap.Logger) *OrderService {
	if trigger == nil {
		trigger = appshared.NoopSweepTrigger{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{scope: scope, repos: repos, trigger: trigger, logger: logger}
}

// Create validates availability for every line under row locks and stores the
// order. An order created as approved deducts its stock immediately; any
// shortage aborts the whole order with a *stock.ShortageError.
func (s *OrderService) Create(ctx context.Context, req CreateOrderRequest) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "create",
		telemetry.WithAttribute("location_id", req.LocationID.String()),
		telemetry.WithAttribute("items_count", len(req.Items)),
	)
	defer span.End()

	o, err := order.NewOrder(req.LocationID, req.Status, req.Notes, toItemInputs(req.Items))
	if err != nil {
		return nil, err
	}

	err = s.scope.Execute(ctx, func(repos appshared.Repositories) error {
		if o.NeedsDeduction() {
			if err := s.deduct(ctx, repos, o); err != nil {
				return err
			}
		} else if _, _, err := appstock.LockLines(ctx, repos, o.LocationID, o.Lines()); err != nil {
			return err
		}
		return repos.Orders().Create(ctx, o)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("order created",
		zap.String("order_id", o.ID.String()),
		zap.String("status", string(o.Status)),
		zap.Bool("stock_deducted", o.StockDeductedAt != nil),
	)
	s.trigger.Trigger()
	resp := ToOrderResponse(o)
	return &resp, nil
}

// UpdateStatus changes the order status. Entering approved re-validates the
// current lines under row locks and deducts all or nothing; approving an
// already approved order is a no-op for stock.
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, req UpdateStatusRequest) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "update_status",
		telemetry.WithAttribute("order_id", id.String()),
		telemetry.WithAttribute("status", req.Status),
	)
	defer span.End()

	var o *order.Order
	err := s.scope.Execute(ctx, func(repos appshared.Repositories) error {
		var err error
		o, err = repos.Orders().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		deduct, err := o.ChangeStatus(req.Status)
		if err != nil {
			return err
		}
		if deduct {
			if err := s.deduct(ctx, repos, o); err != nil {
				return err
			}
		}
		return repos.Orders().SaveStatus(ctx, o)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.trigger.Trigger()
	resp := ToOrderResponse(o)
	return &resp, nil
}

// ReplaceItems swaps the lines of an order whose stock was never deducted
func (s *OrderService) ReplaceItems(ctx context.Context, id uuid.UUID, req ReplaceItemsRequest) (*OrderResponse, error) {
	var o *order.Order
	err := s.scope.Execute(ctx, func(repos appshared.Repositories) error {
		var err error
		o, err = repos.Orders().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := o.ReplaceItems(toItemInputs(req.Items)); err != nil {
			return err
		}
		return repos.Orders().ReplaceItems(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	s.trigger.Trigger()
	resp := ToOrderResponse(o)
	return &resp, nil
}

// Delete removes an order that is not approved
func (s *OrderService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.scope.Execute(ctx, func(repos appshared.Repositories) error {
		o, err := repos.Orders().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := o.CanDelete(); err != nil {
			return err
		}
		return repos.Orders().Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.trigger.Trigger()
	return nil
}

// Get returns one order with its items
func (s *OrderService) Get(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	o, err := s.repos.Orders().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// List returns orders matching the filter
func (s *OrderService) List(ctx context.Context, f ListFilter) (shared.Paginated[OrderResponse], error) {
	filter := order.Filter{
		Filter:     shared.DefaultFilter(),
		Status:     order.NormalizeStatus(f.Status),
		LocationID: f.LocationID,
	}
	if f.Page > 0 {
		filter.Page = f.Page
	}
	if f.PageSize > 0 {
		filter.PageSize = f.PageSize
	}

	orders, total, err := s.repos.Orders().FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[OrderResponse]{}, err
	}
	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = ToOrderResponse(&orders[i])
	}
	return shared.NewPaginated(out, total, filter.Page, filter.PageSize), nil
}

func (s *OrderService) deduct(ctx context.Context, repos appshared.Repositories, o *order.Order) error {
	ref := stock.NewReference(stock.ReferenceTypeOrder, o.ID)
	if err := appstock.DeductLines(ctx, repos, o.LocationID, o.Lines(), stock.MovementTypeSale, ref); err != nil {
		return err
	}
	o.MarkDeducted()
	return nil
}
