package supply

import (
	"context"

	appshared "github.com/erp/stockcore/internal/application/shared"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/supply"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateRequisition stores a pending requisition
func (s *WorkflowService) CreateRequisition(ctx context.Context, req CreateRequisitionRequest) (*RequisitionResponse, error) {
	r, err := supply.NewRequisition(req.SourceLocationID, req.DeliveryLocationID, req.RequiredBy, req.Notes, toLineInputs(req.Items))
	if err != nil {
		return nil, err
	}
	if err := s.repos.Requisitions().Create(ctx, r); err != nil {
		return nil, err
	}
	s.logger.Info("requisition created",
		zap.String("requisition_id", r.ID.String()),
		zap.String("number", r.RequisitionNumber),
	)
	resp := ToRequisitionResponse(r)
	return &resp, nil
}

// GetRequisition returns one requisition with its items
func (s *WorkflowService) GetRequisition(ctx context.Context, id uuid.UUID) (*RequisitionResponse, error) {
	r, err := s.repos.Requisitions().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToRequisitionResponse(r)
	return &resp, nil
}

// ListRequisitions returns requisitions matching the filter
func (s *WorkflowService) ListRequisitions(ctx context.Context, f ListFilter) (shared.Paginated[RequisitionResponse], error) {
	filter := toFilter(f)
	rows, total, err := s.repos.Requisitions().FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[RequisitionResponse]{}, err
	}
	return paginate(rows, total, filter, ToRequisitionResponse), nil
}

// UpdateRequisition patches the header of a pending requisition
func (s *WorkflowService) UpdateRequisition(ctx context.Context, id uuid.UUID, req UpdateRequisitionRequest) (*RequisitionResponse, error) {
	return s.mutateRequisition(ctx, id, func(r *supply.Requisition) error {
		return r.ApplyPatch(supply.RequisitionPatch{
			SourceLocationID:   req.SourceLocationID,
			DeliveryLocationID: req.DeliveryLocationID,
			RequiredBy:         req.RequiredBy,
			Notes:              req.Notes,
		})
	})
}

// ApproveRequisition approves a pending requisition, optionally with
// per-item approved quantities
func (s *WorkflowService) ApproveRequisition(ctx context.Context, id uuid.UUID, req ApproveRequest) (*RequisitionResponse, error) {
	return s.mutateRequisition(ctx, id, func(r *supply.Requisition) error {
		return r.Approve(req.ApprovedBy, toQuantities(req.Items))
	})
}

// ReceiveRequisition records received quantities on an approved requisition.
// Stock moves through the fulfilling transfer, not here.
func (s *WorkflowService) ReceiveRequisition(ctx context.Context, id uuid.UUID, req QuantitiesRequest) (*RequisitionResponse, error) {
	return s.mutateRequisition(ctx, id, func(r *supply.Requisition) error {
		return r.Receive(toQuantities(req.Items))
	})
}

// CancelRequisition cancels a pending requisition
func (s *WorkflowService) CancelRequisition(ctx context.Context, id uuid.UUID) (*RequisitionResponse, error) {
	return s.mutateRequisition(ctx, id, func(r *supply.Requisition) error {
		return r.Cancel()
	})
}

// DeleteRequisition removes a pending requisition
func (s *WorkflowService) DeleteRequisition(ctx context.Context, id uuid.UUID) error {
	return s.scope.Execute(ctx, func(repos appshared.Repositories) error {
		r, err := repos.Requisitions().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := r.CanDelete(); err != nil {
			return err
		}
		return repos.Requisitions().Delete(ctx, id)
	})
}

func (s *WorkflowService) mutateRequisition(ctx context.Context, id uuid.UUID, fn func(r *supply.Requisition) error) (*RequisitionResponse, error) {
	var r *supply.Requisition
	err := s.scope.Execute(ctx, func(repos appshared.Repositories) error {
		var err error
		r, err = repos.Requisitions().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
		return repos.Requisitions().Save(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	resp := ToRequisitionResponse(r)
	return &resp, nil
}
