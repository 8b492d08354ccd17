package supply

import (
	"context"
	"fmt"

	appshared "github.com/erp/stockcore/internal/application/shared"
	appstock "github.com/erp/stockcore/internal/application/stock"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/erp/stockcore/internal/domain/supply"
	"github.com/erp/stockcore/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateGRN records a direct receipt. Unless rejected, the received
// quantities are added at the receiving location in the same transaction.
func (s *WorkflowService) CreateGRN(ctx context.Context, req CreateGRNRequest) (*GRNResponse, error) {
	inputs := make([]supply.GRNItemInput, len(req.Items))
	for i, it := range req.Items {
		inputs[i] = supply.GRNItemInput{
			ItemID:              it.ItemID,
			PurchaseOrderItemID: it.PurchaseOrderItemID,
			ExpectedQuantity:    it.ExpectedQuantity,
			ReceivedQuantity:    it.ReceivedQuantity,
			UnitCost:            it.UnitCost,
			ExpectedCost:        it.ExpectedCost,
			BatchNumber:         it.BatchNumber,
			ExpiryDate:          it.ExpiryDate,
			Notes:               it.Notes,
		}
	}
	g, err := supply.NewGRN(req.PurchaseOrderID, req.SupplierID, req.LocationID, req.Status, req.Notes, inputs)
	if err != nil {
		return nil, err
	}

	err = s.scope.Execute(ctx, func(repos appshared.Repositories) error {
		return s.storeGRN(ctx, repos, g)
	})
	if err != nil {
		return nil, err
	}
	s.afterGRN(g)
	resp := ToGRNResponse(g)
	return &resp, nil
}

// CreateGRNFromPO receives goods against a purchase order. The order's
// received quantities grow by what the GRN received and it moves to
// partially_received.
func (s *WorkflowService) CreateGRNFromPO(ctx context.Context, req GRNFromPORequest) (*GRNResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "supply", "create_grn_from_po",
		telemetry.WithAttribute("purchase_order_id", req.PurchaseOrderID.String()),
	)
	defer span.End()

	var g *supply.GRN
	err := s.scope.Execute(ctx, func(repos appshared.Repositories) error {
		po, err := repos.PurchaseOrders().FindByIDForUpdate(ctx, req.PurchaseOrderID)
		if err != nil {
			return err
		}
		var locationID uuid.UUID
		if req.LocationID != nil {
			locationID = *req.LocationID
		}
		g, err = supply.NewGRNFromPO(po, locationID, req.Status, req.Notes, toOverrides(req.Items))
		if err != nil {
			return err
		}
		if err := po.RecordReceipt(g.ReceivedQuantities()); err != nil {
			return err
		}
		if err := repos.PurchaseOrders().Save(ctx, po); err != nil {
			return err
		}
		return s.storeGRN(ctx, repos, g)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.afterGRN(g)
	resp := ToGRNResponse(g)
	return &resp, nil
}

func (s *WorkflowService) storeGRN(ctx context.Context, repos appshared.Repositories, g *supply.GRN) error {
	if err := repos.GRNs().Create(ctx, g); err != nil {
		return err
	}
	if !g.AddsStock() {
		return nil
	}
	ref := stock.NewReference(stock.ReferenceTypeGRN, g.ID)
	return appstock.ReceiveLines(ctx, repos, g.LocationID, grnReceipts(g), stock.MovementTypePurchase, ref)
}

func (s *WorkflowService) afterGRN(g *supply.GRN) {
	s.logger.Info("goods received",
		zap.String("grn_id", g.ID.String()),
		zap.String("number", g.GRNNumber),
		zap.String("status", string(g.Status)),
		zap.String("location_id", g.LocationID.String()),
	)
	if g.AddsStock() {
		s.trigger.Trigger()
	}
}

// GetGRN returns one GRN with its items
func (s *WorkflowService) GetGRN(ctx context.Context, id uuid.UUID) (*GRNResponse, error) {
	g, err := s.repos.GRNs().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToGRNResponse(g)
	return &resp, nil
}

// ListGRNs returns GRNs matching the filter
func (s *WorkflowService) ListGRNs(ctx context.Context, f ListFilter) (shared.Paginated[GRNResponse], error) {
	filter := toFilter(f)
	rows, total, err := s.repos.GRNs().FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[GRNResponse]{}, err
	}
	return paginate(rows, total, filter, ToGRNResponse), nil
}

// CreatePurchaseEntry records a direct purchase entry. With a location it
// is the only receipt of the goods and adds stock there.
func (s *WorkflowService) CreatePurchaseEntry(ctx context.Context, req CreatePurchaseEntryRequest) (*PurchaseEntryResponse, error) {
	pe, err := supply.NewPurchaseEntry(req.toHeader(), toLineInputs(req.Items))
	if err != nil {
		return nil, err
	}
	err = s.scope.Execute(ctx, func(repos appshared.Repositories) error {
		return s.storePurchaseEntry(ctx, repos, pe)
	})
	if err != nil {
		return nil, err
	}
	s.afterPurchaseEntry(pe)
	resp := ToPurchaseEntryResponse(pe)
	return &resp, nil
}

// CreatePurchaseEntryFromGRN records the accounting entry of a receipt. A GRN
// takes at most one entry. The GRN becomes received and its purchase order,
// if any, completed. Stock was already added by the GRN.
func (s *WorkflowService) CreatePurchaseEntryFromGRN(ctx context.Context, req PurchaseEntryFromGRNRequest) (*PurchaseEntryResponse, error) {
	var pe *supply.PurchaseEntry
	err := s.scope.Execute(ctx, func(repos appshared.Repositories) error {
		g, err := repos.GRNs().FindByIDForUpdate(ctx, req.GRNID)
		if err != nil {
			return err
		}
		exists, err := repos.PurchaseEntries().ExistsForGRN(ctx, g.ID)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewConflictError(fmt.Sprintf("GRN %s already has a purchase entry", g.GRNNumber))
		}
		pe, err = supply.NewPurchaseEntryFromGRN(g, req.toHeader(), toOverrides(req.Items))
		if err != nil {
			return err
		}
		if err := g.MarkReceived(); err != nil {
			return err
		}
		if err := repos.GRNs().SaveStatus(ctx, g); err != nil {
			return err
		}
		if g.PurchaseOrderID != nil {
			po, err := repos.PurchaseOrders().FindByIDForUpdate(ctx, *g.PurchaseOrderID)
			if err != nil {
				return err
			}
			if err := po.Complete(); err != nil {
				return err
			}
			if err := repos.PurchaseOrders().Save(ctx, po); err != nil {
				return err
			}
		}
		return s.storePurchaseEntry(ctx, repos, pe)
	})
	if err != nil {
		return nil, err
	}
	s.afterPurchaseEntry(pe)
	resp := ToPurchaseEntryResponse(pe)
	return &resp, nil
}

// CreatePurchaseEntryFromPO records an entry straight against an order
// without a GRN. The remaining quantities are booked as received, the order
// is completed and, with a location, the goods are added there.
func (s *WorkflowService) CreatePurchaseEntryFromPO(ctx context.Context, req PurchaseEntryFromPORequest) (*PurchaseEntryResponse, error) {
	var pe *supply.PurchaseEntry
	err := s.scope.Execute(ctx, func(repos appshared.Repositories) error {
		po, err := repos.PurchaseOrders().FindByIDForUpdate(ctx, req.PurchaseOrderID)
		if err != nil {
			return err
		}
		pe, err = supply.NewPurchaseEntryFromPO(po, req.toHeader(), toOverrides(req.Items))
		if err != nil {
			return err
		}
		received := make(map[uuid.UUID]decimal.Decimal, len(pe.Items))
		for _, it := range pe.Items {
			received[it.ItemID] = received[it.ItemID].Add(it.Quantity)
		}
		if err := po.RecordReceipt(received); err != nil {
			return err
		}
		if err := po.Complete(); err != nil {
			return err
		}
		if err := repos.PurchaseOrders().Save(ctx, po); err != nil {
			return err
		}
		return s.storePurchaseEntry(ctx, repos, pe)
	})
	if err != nil {
		return nil, err
	}
	s.afterPurchaseEntry(pe)
	resp := ToPurchaseEntryResponse(pe)
	return &resp, nil
}

func (s *WorkflowService) storePurchaseEntry(ctx context.Context, repos appshared.Repositories, pe *supply.PurchaseEntry) error {
	if err := repos.PurchaseEntries().Create(ctx, pe); err != nil {
		return err
	}
	if !pe.ReceivesStock() {
		return nil
	}
	ref := stock.NewReference(stock.ReferenceTypePurchaseEntry, pe.ID)
	return appstock.ReceiveLines(ctx, repos, *pe.LocationID, entryReceipts(pe), stock.MovementTypePurchase, ref)
}

func (s *WorkflowService) afterPurchaseEntry(pe *supply.PurchaseEntry) {
	s.logger.Info("purchase entry recorded",
		zap.String("purchase_entry_id", pe.ID.String()),
		zap.String("number", pe.EntryNumber),
		zap.String("payment_status", string(pe.PaymentStatus)),
		zap.Bool("receives_stock", pe.ReceivesStock()),
	)
	if pe.ReceivesStock() {
		s.trigger.Trigger()
	}
}

// RecordPayment adds a payment to a purchase entry
func (s *WorkflowService) RecordPayment(ctx context.Context, id uuid.UUID, req PaymentRequest) (*PurchaseEntryResponse, error) {
	var pe *supply.PurchaseEntry
	err := s.scope.Execute(ctx, func(repos appshared.Repositories) error {
		var err error
		pe, err = repos.PurchaseEntries().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := pe.RecordPayment(req.Amount); err != nil {
			return err
		}
		return repos.PurchaseEntries().SavePayment(ctx, pe)
	})
	if err != nil {
		return nil, err
	}
	resp := ToPurchaseEntryResponse(pe)
	return &resp, nil
}

// GetPurchaseEntry returns one purchase entry with its items
func (s *WorkflowService) GetPurchaseEntry(ctx context.Context, id uuid.UUID) (*PurchaseEntryResponse, error) {
	pe, err := s.repos.PurchaseEntries().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToPurchaseEntryResponse(pe)
	return &resp, nil
}

// ListPurchaseEntries returns entries matching the filter. Status filters on
// payment status.
func (s *WorkflowService) ListPurchaseEntries(ctx context.Context, f ListFilter) (shared.Paginated[PurchaseEntryResponse], error) {
	filter := toFilter(f)
	rows, total, err := s.repos.PurchaseEntries().FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[PurchaseEntryResponse]{}, err
	}
	return paginate(rows, total, filter, ToPurchaseEntryResponse), nil
}
