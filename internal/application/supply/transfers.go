package supply

import (
	"context"

	appshared "github.com/erp/stockcore/internal/application/shared"
	appstock "github.com/erp/stockcore/internal/application/stock"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/erp/stockcore/internal/domain/supply"
	"github.com/erp/stockcore/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateTransfer stores a pending manual transfer
func (s *WorkflowService) CreateTransfer(ctx context.Context, req CreateTransferRequest) (*TransferResponse, error) {
	t, err := supply.NewStockTransfer(supply.TransferType(req.TransferType), req.SourceLocationID, req.DestinationLocationID, req.Notes, toLineInputs(req.Items))
	if err != nil {
		return nil, err
	}
	if err := s.repos.StockTransfers().Create(ctx, t); err != nil {
		return nil, err
	}
	s.logTransfer(t)
	resp := ToTransferResponse(t)
	return &resp, nil
}

// CreateTransferFromGRN distributes goods received by a GRN
func (s *WorkflowService) CreateTransferFromGRN(ctx context.Context, req TransferFromDocumentRequest) (*TransferResponse, error) {
	return s.deriveTransfer(ctx, func(repos appshared.Repositories) (*supply.StockTransfer, error) {
		g, err := repos.GRNs().FindByID(ctx, req.SourceID)
		if err != nil {
			return nil, err
		}
		return supply.NewTransferFromGRN(g, req.DestinationLocationID, req.Notes, toOverrides(req.Items))
	})
}

// CreateTransferFromPurchaseEntry distributes goods recorded by a purchase entry
func (s *WorkflowService) CreateTransferFromPurchaseEntry(ctx context.Context, req TransferFromDocumentRequest) (*TransferResponse, error) {
	return s.deriveTransfer(ctx, func(repos appshared.Repositories) (*supply.StockTransfer, error) {
		pe, err := repos.PurchaseEntries().FindByID(ctx, req.SourceID)
		if err != nil {
			return nil, err
		}
		return supply.NewTransferFromPurchaseEntry(pe, req.DestinationLocationID, req.Notes, toOverrides(req.Items))
	})
}

// CreateTransferFromRequisition fulfils a requisition to its delivery location
func (s *WorkflowService) CreateTransferFromRequisition(ctx context.Context, req TransferFromDocumentRequest) (*TransferResponse, error) {
	return s.deriveTransfer(ctx, func(repos appshared.Repositories) (*supply.StockTransfer, error) {
		r, err := repos.Requisitions().FindByID(ctx, req.SourceID)
		if err != nil {
			return nil, err
		}
		return supply.NewTransferFromRequisition(r, req.SourceLocationID, req.Notes, toOverrides(req.Items))
	})
}

// CreateTransfersFromPO creates one transfer per delivery location of the
// order, all in one transaction
func (s *WorkflowService) CreateTransfersFromPO(ctx context.Context, req TransfersFromPORequest) ([]TransferResponse, error) {
	var transfers []*supply.StockTransfer
	err := s.scope.Execute(ctx, func(repos appshared.Repositories) error {
		po, err := repos.PurchaseOrders().FindByID(ctx, req.PurchaseOrderID)
		if err != nil {
			return err
		}
		transfers, err = supply.NewTransfersFromPO(po, req.SourceLocationID, req.Notes)
		if err != nil {
			return err
		}
		for _, t := range transfers {
			if err := repos.StockTransfers().Create(ctx, t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]TransferResponse, len(transfers))
	for i, t := range transfers {
		s.logTransfer(t)
		out[i] = ToTransferResponse(t)
	}
	return out, nil
}

func (s *WorkflowService) deriveTransfer(ctx context.Context, build func(repos appshared.Repositories) (*supply.StockTransfer, error)) (*TransferResponse, error) {
	var t *supply.StockTransfer
	err := s.scope.Execute(ctx, func(repos appshared.Repositories) error {
		var err error
		t, err = build(repos)
		if err != nil {
			return err
		}
		return repos.StockTransfers().Create(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	s.logTransfer(t)
	resp := ToTransferResponse(t)
	return &resp, nil
}

// ApproveTransfer approves a pending transfer
func (s *WorkflowService) ApproveTransfer(ctx context.Context, id uuid.UUID, req ApproveRequest) (*TransferResponse, error) {
	return s.mutateTransfer(ctx, id, func(_ appshared.Repositories, t *supply.StockTransfer) error {
		return t.Approve(req.ApprovedBy)
	})
}

// DispatchTransfer records dispatched quantities and deducts them from the
// source location, all or nothing
func (s *WorkflowService) DispatchTransfer(ctx context.Context, id uuid.UUID, req QuantitiesRequest) (*TransferResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "supply", "dispatch_transfer",
		telemetry.WithAttribute("transfer_id", id.String()),
	)
	defer span.End()

	resp, err := s.mutateTransfer(ctx, id, func(repos appshared.Repositories, t *supply.StockTransfer) error {
		lines, err := t.Dispatch(toQuantities(req.Items))
		if err != nil {
			return err
		}
		if t.SourceLocationID == nil || len(lines) == 0 {
			return nil
		}
		ref := stock.NewReference(stock.ReferenceTypeStockTransfer, t.ID)
		return appstock.DeductLines(ctx, repos, *t.SourceLocationID, lines, stock.MovementTypeTransferOut, ref)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.trigger.Trigger()
	return resp, nil
}

// MarkTransferInTransit records that dispatched goods are on the way
func (s *WorkflowService) MarkTransferInTransit(ctx context.Context, id uuid.UUID) (*TransferResponse, error) {
	return s.mutateTransfer(ctx, id, func(_ appshared.Repositories, t *supply.StockTransfer) error {
		return t.MarkInTransit()
	})
}

// ReceiveTransfer records received quantities and adds them at the destination
func (s *WorkflowService) ReceiveTransfer(ctx context.Context, id uuid.UUID, req QuantitiesRequest) (*TransferResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "supply", "receive_transfer",
		telemetry.WithAttribute("transfer_id", id.String()),
	)
	defer span.End()

	resp, err := s.mutateTransfer(ctx, id, func(repos appshared.Repositories, t *supply.StockTransfer) error {
		lines, err := t.Receive(toQuantities(req.Items))
		if err != nil {
			return err
		}
		ref := stock.NewReference(stock.ReferenceTypeStockTransfer, t.ID)
		return appstock.ReceiveLines(ctx, repos, t.DestinationLocationID, transferReceipts(t, lines), stock.MovementTypeTransferIn, ref)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.trigger.Trigger()
	return resp, nil
}

// CancelTransfer cancels a transfer that has not been dispatched
func (s *WorkflowService) CancelTransfer(ctx context.Context, id uuid.UUID) (*TransferResponse, error) {
	return s.mutateTransfer(ctx, id, func(_ appshared.Repositories, t *supply.StockTransfer) error {
		return t.Cancel()
	})
}

// GetTransfer returns one transfer with its items
func (s *WorkflowService) GetTransfer(ctx context.Context, id uuid.UUID) (*TransferResponse, error) {
	t, err := s.repos.StockTransfers().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToTransferResponse(t)
	return &resp, nil
}

// ListTransfers returns transfers matching the filter. LocationID matches
// either end of the transfer.
func (s *WorkflowService) ListTransfers(ctx context.Context, f ListFilter) (shared.Paginated[TransferResponse], error) {
	filter := toFilter(f)
	rows, total, err := s.repos.StockTransfers().FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[TransferResponse]{}, err
	}
	return paginate(rows, total, filter, ToTransferResponse), nil
}

func (s *WorkflowService) mutateTransfer(ctx context.Context, id uuid.UUID, fn func(repos appshared.Repositories, t *supply.StockTransfer) error) (*TransferResponse, error) {
	var t *supply.StockTransfer
	err := s.scope.Execute(ctx, func(repos appshared.Repositories) error {
		var err error
		t, err = repos.StockTransfers().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(repos, t); err != nil {
			return err
		}
		return repos.StockTransfers().Save(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("stock transfer updated",
		zap.String("transfer_id", t.ID.String()),
		zap.String("status", string(t.Status)),
	)
	resp := ToTransferResponse(t)
	return &resp, nil
}

func (s *WorkflowService) logTransfer(t *supply.StockTransfer) {
	s.logger.Info("stock transfer created",
		zap.String("transfer_id", t.ID.String()),
		zap.String("number", t.TransferNumber),
		zap.String("transfer_type", string(t.TransferType)),
		zap.String("destination_location_id", t.DestinationLocationID.String()),
	)
}
