package supply

import (
	"context"

	appshared "github.com/erp/stockcore/internal/application/shared"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/supply"
	"github.com/erp/stockcore/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreatePurchaseOrder stores a direct purchase order
func (s *WorkflowService) CreatePurchaseOrder(ctx context.Context, req CreatePurchaseOrderRequest) (*PurchaseOrderResponse, error) {
	po, err := supply.NewPurchaseOrder(req.SupplierID, req.DeliveryLocationID, req.ExpectedDeliveryDate, req.Notes, toLineInputs(req.Items))
	if err != nil {
		return nil, err
	}
	if err := s.repos.PurchaseOrders().Create(ctx, po); err != nil {
		return nil, err
	}
	s.logPurchaseOrder(po)
	resp := ToPurchaseOrderResponse(po)
	return &resp, nil
}

// CreatePurchaseOrderFromRequisition raises an order for a pending or
// approved requisition, priced from the catalog
func (s *WorkflowService) CreatePurchaseOrderFromRequisition(ctx context.Context, req PurchaseOrderFromRequisitionRequest) (*PurchaseOrderResponse, error) {
	var po *supply.PurchaseOrder
	err := s.scope.Execute(ctx, func(repos appshared.Repositories) error {
		r, err := repos.Requisitions().FindByID(ctx, req.RequisitionID)
		if err != nil {
			return err
		}
		prices, err := catalogPrices(ctx, repos, r)
		if err != nil {
			return err
		}
		po, err = supply.NewPurchaseOrderFromRequisition(r, req.SupplierID, prices, req.Notes)
		if err != nil {
			return err
		}
		return repos.PurchaseOrders().Create(ctx, po)
	})
	if err != nil {
		return nil, err
	}
	s.logPurchaseOrder(po)
	resp := ToPurchaseOrderResponse(po)
	return &resp, nil
}

// CreateConsolidatedPurchaseOrder merges several requisitions into one order
// with a delivery split per location
func (s *WorkflowService) CreateConsolidatedPurchaseOrder(ctx context.Context, req ConsolidatedPurchaseOrderRequest) (*PurchaseOrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "supply", "create_consolidated_po",
		telemetry.WithAttribute("requisitions_count", len(req.RequisitionIDs)),
	)
	defer span.End()

	var po *supply.PurchaseOrder
	err := s.scope.Execute(ctx, func(repos appshared.Repositories) error {
		reqs := make([]*supply.Requisition, 0, len(req.RequisitionIDs))
		for _, id := range req.RequisitionIDs {
			r, err := repos.Requisitions().FindByID(ctx, id)
			if err != nil {
				return err
			}
			reqs = append(reqs, r)
		}
		prices, err := catalogPrices(ctx, repos, reqs...)
		if err != nil {
			return err
		}
		po, err = supply.NewConsolidatedPurchaseOrder(reqs, req.SupplierID, prices, req.Notes)
		if err != nil {
			return err
		}
		return repos.PurchaseOrders().Create(ctx, po)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.logPurchaseOrder(po)
	resp := ToPurchaseOrderResponse(po)
	return &resp, nil
}

// GetPurchaseOrder returns one order with items and delivery locations
func (s *WorkflowService) GetPurchaseOrder(ctx context.Context, id uuid.UUID) (*PurchaseOrderResponse, error) {
	po, err := s.repos.PurchaseOrders().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToPurchaseOrderResponse(po)
	return &resp, nil
}

// ListPurchaseOrders returns orders matching the filter
func (s *WorkflowService) ListPurchaseOrders(ctx context.Context, f ListFilter) (shared.Paginated[PurchaseOrderResponse], error) {
	filter := toFilter(f)
	rows, total, err := s.repos.PurchaseOrders().FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[PurchaseOrderResponse]{}, err
	}
	return paginate(rows, total, filter, ToPurchaseOrderResponse), nil
}

// UpdatePurchaseOrder patches the header of a pending or approved order
func (s *WorkflowService) UpdatePurchaseOrder(ctx context.Context, id uuid.UUID, req UpdatePurchaseOrderRequest) (*PurchaseOrderResponse, error) {
	return s.mutatePurchaseOrder(ctx, id, func(po *supply.PurchaseOrder) error {
		return po.ApplyPatch(supply.PurchaseOrderPatch{
			SupplierID:           req.SupplierID,
			DeliveryLocationID:   req.DeliveryLocationID,
			ExpectedDeliveryDate: req.ExpectedDeliveryDate,
			Notes:                req.Notes,
		})
	})
}

// ApprovePurchaseOrder approves a pending order
func (s *WorkflowService) ApprovePurchaseOrder(ctx context.Context, id uuid.UUID, req ApproveRequest) (*PurchaseOrderResponse, error) {
	return s.mutatePurchaseOrder(ctx, id, func(po *supply.PurchaseOrder) error {
		return po.Approve(req.ApprovedBy)
	})
}

// MarkPurchaseOrderOrdered records that an approved order was sent
func (s *WorkflowService) MarkPurchaseOrderOrdered(ctx context.Context, id uuid.UUID) (*PurchaseOrderResponse, error) {
	return s.mutatePurchaseOrder(ctx, id, func(po *supply.PurchaseOrder) error {
		return po.MarkOrdered()
	})
}

// CancelPurchaseOrder cancels an order that has not been received
func (s *WorkflowService) CancelPurchaseOrder(ctx context.Context, id uuid.UUID) (*PurchaseOrderResponse, error) {
	return s.mutatePurchaseOrder(ctx, id, func(po *supply.PurchaseOrder) error {
		return po.Cancel()
	})
}

func (s *WorkflowService) mutatePurchaseOrder(ctx context.Context, id uuid.UUID, fn func(po *supply.PurchaseOrder) error) (*PurchaseOrderResponse, error) {
	var po *supply.PurchaseOrder
	err := s.scope.Execute(ctx, func(repos appshared.Repositories) error {
		var err error
		po, err = repos.PurchaseOrders().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(po); err != nil {
			return err
		}
		return repos.PurchaseOrders().Save(ctx, po)
	})
	if err != nil {
		return nil, err
	}
	resp := ToPurchaseOrderResponse(po)
	return &resp, nil
}

func (s *WorkflowService) logPurchaseOrder(po *supply.PurchaseOrder) {
	s.logger.Info("purchase order created",
		zap.String("purchase_order_id", po.ID.String()),
		zap.String("number", po.PONumber),
		zap.String("order_type", string(po.OrderType)),
		zap.Int("items", len(po.Items)),
	)
}
