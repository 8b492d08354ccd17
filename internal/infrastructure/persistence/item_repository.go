package persistence

import (
	"context"
	"time"

	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormItemRepository implements stock.ItemRepository using GORM
type GormItemRepository struct {
	db *gorm.DB
}

// NewGormItemRepository creates a new GormItemRepository
func NewGormItemRepository(db *gorm.DB) *GormItemRepository {
	return &GormItemRepository{db: db}
}

// FindByID finds an item by its ID
func (r *GormItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*stock.Item, error) {
	var item stock.Item
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, translate(err, "item", id)
	}
	return &item, nil
}

// FindByIDs finds multiple items by their IDs
func (r *GormItemRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]stock.Item, error) {
	if len(ids) == 0 {
		return []stock.Item{}, nil
	}
	var items []stock.Item
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, wrap(err, "find items")
	}
	return items, nil
}

// FindActive returns every active item ordered by id
func (r *GormItemRepository) FindActive(ctx context.Context) ([]stock.Item, error) {
	var items []stock.Item
	if err := r.db.WithContext(ctx).
		Where("status = ?", stock.ItemStatusActive).
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, wrap(err, "find active items")
	}
	return items, nil
}

// Create inserts a catalog item
func (r *GormItemRepository) Create(ctx context.Context, item *stock.Item) error {
	return translate(r.db.WithContext(ctx).Create(item).Error, "item", item.SKU)
}

// RefreshStockQuantity sets the cached total to the sum of available
// quantities across every location. The item row is locked before the sum
// is read so concurrent refreshes for the same item apply in commit order.
func (r *GormItemRepository) RefreshStockQuantity(ctx context.Context, itemID uuid.UUID) error {
	db := r.db.WithContext(ctx)

	var locked stock.Item
	if err := forUpdate(db).Select("id").Where("id = ?", itemID).Take(&locked).Error; err != nil {
		return translate(err, "item", itemID)
	}

	sum := r.db.Model(&stock.LocationStock{}).
		Select("COALESCE(SUM(available_quantity), 0)").
		Where("item_id = ?", itemID)

	result := db.Model(&stock.Item{}).
		Where("id = ?", itemID).
		UpdateColumns(map[string]any{
			"stock_quantity": sum,
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return wrap(result.Error, "refresh stock quantity")
	}
	if result.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "item", itemID)
	}
	return nil
}

// Ensure GormItemRepository implements ItemRepository
var _ stock.ItemRepository = (*GormItemRepository)(nil)
