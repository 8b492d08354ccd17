package supply

import (
	"context"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
)

// Filter narrows supply document listings. LocationID matches the
// document's receiving or delivery location.
type Filter struct {
	shared.Filter
	Status     string
	LocationID *uuid.UUID
}

// RequisitionRepository persists requisitions and their items
type RequisitionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Requisition, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Requisition, error)
	FindAll(ctx context.Context, filter Filter) ([]Requisition, int64, error)
	Create(ctx context.Context, r *Requisition) error
	// Save writes header fields and per-item quantities
	Save(ctx context.Context, r *Requisition) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PurchaseOrderRepository persists purchase orders with items and delivery locations
type PurchaseOrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)
	FindAll(ctx context.Context, filter Filter) ([]PurchaseOrder, int64, error)
	Create(ctx context.Context, po *PurchaseOrder) error
	// Save writes header fields and item received quantities
	Save(ctx context.Context, po *PurchaseOrder) error
}

// GRNRepository persists goods received notes
type GRNRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*GRN, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*GRN, error)
	FindAll(ctx context.Context, filter Filter) ([]GRN, int64, error)
	Create(ctx context.Context, g *GRN) error
	SaveStatus(ctx context.Context, g *GRN) error
}

// PurchaseEntryRepository persists purchase entries
type PurchaseEntryRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*PurchaseEntry, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*PurchaseEntry, error)
	FindAll(ctx context.Context, filter Filter) ([]PurchaseEntry, int64, error)
	Create(ctx context.Context, pe *PurchaseEntry) error
	SavePayment(ctx context.Context, pe *PurchaseEntry) error
	ExistsForGRN(ctx context.Context, grnID uuid.UUID) (bool, error)
}

// StockTransferRepository persists stock transfers
type StockTransferRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*StockTransfer, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*StockTransfer, error)
	FindAll(ctx context.Context, filter Filter) ([]StockTransfer, int64, error)
	Create(ctx context.Context, t *StockTransfer) error
	// Save writes status timestamps and per-item dispatched/received quantities
	Save(ctx context.Context, t *StockTransfer) error
}
