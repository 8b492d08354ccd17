package persistence

import (
	"context"

	"github.com/erp/stockcore/internal/domain/order"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func preloadOrderItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("item_id ASC")
	})
}

func (r *GormOrderRepository) withItems(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Scopes(preloadOrderItems)
}

// FindByID finds an order with its items
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var o order.Order
	if err := r.withItems(ctx).First(&o, "id = ?", id).Error; err != nil {
		return nil, translate(err, "order", id)
	}
	return &o, nil
}

// FindByIDForUpdate locks the order row, then loads its items
func (r *GormOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var o order.Order
	if err := r.withItems(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&o, "id = ?", id).Error; err != nil {
		return nil, translate(err, "order", id)
	}
	return &o, nil
}

// FindAll lists orders matching the filter
func (r *GormOrderRepository) FindAll(ctx context.Context, filter order.Filter) ([]order.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&order.Order{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.LocationID != nil {
		query = query.Where("location_id = ?", *filter.LocationID)
	}

	var orders []order.Order
	total, err := findPage(query, filter.Filter, DocumentSortFields, &orders, preloadOrderItems)
	if err != nil {
		return nil, 0, wrap(err, "list orders")
	}
	return orders, total, nil
}

// Create inserts the order and its items
func (r *GormOrderRepository) Create(ctx context.Context, o *order.Order) error {
	return translate(r.db.WithContext(ctx).Create(o).Error, "order", o.OrderNumber)
}

// SaveStatus writes the status columns of the header
func (r *GormOrderRepository) SaveStatus(ctx context.Context, o *order.Order) error {
	result := r.db.WithContext(ctx).
		Model(o).
		Select("status", "approved_at", "stock_deducted_at", "updated_at").
		Updates(o)
	if result.Error != nil {
		return wrap(result.Error, "save order status")
	}
	if result.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "order", o.ID)
	}
	return nil
}

// ReplaceItems deletes the stored lines and inserts the current ones
func (r *GormOrderRepository) ReplaceItems(ctx context.Context, o *order.Order) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("order_id = ?", o.ID).Delete(&order.OrderItem{}).Error; err != nil {
		return wrap(err, "delete order items")
	}
	if len(o.Items) > 0 {
		if err := db.Create(&o.Items).Error; err != nil {
			return wrap(err, "create order items")
		}
	}
	return wrap(db.Model(o).Select("notes", "updated_at").Updates(o).Error, "touch order")
}

// Delete removes an order and its items
func (r *GormOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("order_id = ?", id).Delete(&order.OrderItem{}).Error; err != nil {
		return wrap(err, "delete order items")
	}
	result := db.Delete(&order.Order{}, "id = ?", id)
	if result.Error != nil {
		return wrap(result.Error, "delete order")
	}
	if result.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "order", id)
	}
	return nil
}

// Ensure GormOrderRepository implements Repository
var _ order.Repository = (*GormOrderRepository)(nil)
