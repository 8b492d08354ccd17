package persistence

import (
	"context"

	"github.com/erp/stockcore/internal/domain/supply"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPurchaseOrderRepository implements supply.PurchaseOrderRepository using GORM
type GormPurchaseOrderRepository struct {
	db *gorm.DB
}

// NewGormPurchaseOrderRepository creates a new GormPurchaseOrderRepository
func NewGormPurchaseOrderRepository(db *gorm.DB) *GormPurchaseOrderRepository {
	return &GormPurchaseOrderRepository{db: db}
}

var purchaseOrderChildren = preloadItems("Items", "DeliveryLocations")

// FindByID finds a purchase order by its ID
func (r *GormPurchaseOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*supply.PurchaseOrder, error) {
	var po supply.PurchaseOrder
	if err := r.db.WithContext(ctx).Scopes(purchaseOrderChildren).First(&po, "id = ?", id).Error; err != nil {
		return nil, translate(err, "purchase order", id)
	}
	return &po, nil
}

// FindByIDForUpdate locks the purchase order row
func (r *GormPurchaseOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*supply.PurchaseOrder, error) {
	var po supply.PurchaseOrder
	if err := r.db.WithContext(ctx).Scopes(forUpdate, purchaseOrderChildren).First(&po, "id = ?", id).Error; err != nil {
		return nil, translate(err, "purchase order", id)
	}
	return &po, nil
}

// FindAll lists purchase orders by status and delivery location
func (r *GormPurchaseOrderRepository) FindAll(ctx context.Context, filter supply.Filter) ([]supply.PurchaseOrder, int64, error) {
	query := r.db.WithContext(ctx).Model(&supply.PurchaseOrder{})
	if filter.LocationID != nil {
		query = query.Where("delivery_location_id = ? OR id IN (?)", *filter.LocationID,
			r.db.Model(&supply.PODeliveryLocation{}).Select("purchase_order_id").Where("location_id = ?", *filter.LocationID))
		filter.LocationID = nil
	}
	query = documentFilter(query, filter, "status")

	var pos []supply.PurchaseOrder
	total, err := findPage(query, filter.Filter, DocumentSortFields, &pos, purchaseOrderChildren)
	if err != nil {
		return nil, 0, wrap(err, "list purchase orders")
	}
	return pos, total, nil
}

// Create inserts the purchase order with its items and delivery locations
func (r *GormPurchaseOrderRepository) Create(ctx context.Context, po *supply.PurchaseOrder) error {
	return translate(r.db.WithContext(ctx).Create(po).Error, "purchase order", po.PONumber)
}

// Save writes header fields and item received quantities
func (r *GormPurchaseOrderRepository) Save(ctx context.Context, po *supply.PurchaseOrder) error {
	db := r.db.WithContext(ctx)
	if err := saveHeader(db, po,
		"supplier_id", "delivery_location_id", "status", "total_amount", "expected_delivery_date",
		"approved_by", "approved_at", "ordered_at", "completed_at", "notes", "updated_at",
	); err != nil {
		return translate(err, "purchase order", po.ID)
	}
	return wrap(saveLines(db, po.Items, "received_quantity"), "save purchase order items")
}

// Ensure GormPurchaseOrderRepository implements PurchaseOrderRepository
var _ supply.PurchaseOrderRepository = (*GormPurchaseOrderRepository)(nil)
