package persistence

import (
	"context"

	"github.com/erp/stockcore/internal/domain/supply"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormRequisitionRepository implements supply.RequisitionRepository using GORM
type GormRequisitionRepository struct {
	db *gorm.DB
}

// NewGormRequisitionRepository creates a new GormRequisitionRepository
func NewGormRequisitionRepository(db *gorm.DB) *GormRequisitionRepository {
	return &GormRequisitionRepository{db: db}
}

var requisitionItems = preloadItems("Items")

// FindByID finds a requisition with its items
func (r *GormRequisitionRepository) FindByID(ctx context.Context, id uuid.UUID) (*supply.Requisition, error) {
	var req supply.Requisition
	if err := r.db.WithContext(ctx).Scopes(requisitionItems).First(&req, "id = ?", id).Error; err != nil {
		return nil, translate(err, "requisition", id)
	}
	return &req, nil
}

// FindByIDForUpdate locks the requisition row for a transition
func (r *GormRequisitionRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*supply.Requisition, error) {
	var req supply.Requisition
	if err := r.db.WithContext(ctx).Scopes(forUpdate, requisitionItems).First(&req, "id = ?", id).Error; err != nil {
		return nil, translate(err, "requisition", id)
	}
	return &req, nil
}

// FindAll lists requisitions by status and delivery or source location
func (r *GormRequisitionRepository) FindAll(ctx context.Context, filter supply.Filter) ([]supply.Requisition, int64, error) {
	query := documentFilter(r.db.WithContext(ctx).Model(&supply.Requisition{}), filter,
		"status", "delivery_location_id", "source_location_id")

	var reqs []supply.Requisition
	total, err := findPage(query, filter.Filter, DocumentSortFields, &reqs, requisitionItems)
	if err != nil {
		return nil, 0, wrap(err, "list requisitions")
	}
	return reqs, total, nil
}

// Create inserts the requisition and its items
func (r *GormRequisitionRepository) Create(ctx context.Context, req *supply.Requisition) error {
	return translate(r.db.WithContext(ctx).Create(req).Error, "requisition", req.RequisitionNumber)
}

// Save writes header fields and per-item quantities
func (r *GormRequisitionRepository) Save(ctx context.Context, req *supply.Requisition) error {
	db := r.db.WithContext(ctx)
	if err := saveHeader(db, req,
		"source_location_id", "delivery_location_id", "status", "required_by",
		"approved_by", "approved_at", "received_at", "notes", "updated_at",
	); err != nil {
		return translate(err, "requisition", req.ID)
	}
	return wrap(saveLines(db, req.Items, "approved_quantity", "received_quantity"), "save requisition items")
}

// Delete removes a requisition and its items
func (r *GormRequisitionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("requisition_id = ?", id).Delete(&supply.RequisitionItem{}).Error; err != nil {
		return wrap(err, "delete requisition items")
	}
	result := db.Delete(&supply.Requisition{}, "id = ?", id)
	if result.Error != nil {
		return wrap(result.Error, "delete requisition")
	}
	if result.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "requisition", id)
	}
	return nil
}

// Ensure GormRequisitionRepository implements RequisitionRepository
var _ supply.RequisitionRepository = (*GormRequisitionRepository)(nil)
