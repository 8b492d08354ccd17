package persistence

import (
	"context"
	"fmt"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormLocationStockRepository implements stock.LocationStockRepository using GORM
type GormLocationStockRepository struct {
	db *gorm.DB
}

// NewGormLocationStockRepository creates a new GormLocationStockRepository
func NewGormLocationStockRepository(db *gorm.DB) *GormLocationStockRepository {
	return &GormLocationStockRepository{db: db}
}

var locationStockColumns = []string{
	"available_quantity", "reserved_quantity", "allocated_quantity",
	"min_quantity", "max_quantity", "last_updated",
}

func pairKey(locationID, itemID uuid.UUID) string {
	return fmt.Sprintf("%s/%s", locationID, itemID)
}

// FindByLocationAndItem finds the balance row of a pair
func (r *GormLocationStockRepository) FindByLocationAndItem(ctx context.Context, locationID, itemID uuid.UUID) (*stock.LocationStock, error) {
	var row stock.LocationStock
	if err := r.db.WithContext(ctx).
		Where("location_id = ? AND item_id = ?", locationID, itemID).
		First(&row).Error; err != nil {
		return nil, translate(err, "location stock", pairKey(locationID, itemID))
	}
	return &row, nil
}

// FindByLocation lists the balances held at a location
func (r *GormLocationStockRepository) FindByLocation(ctx context.Context, locationID uuid.UUID, filter shared.Filter) ([]stock.LocationStock, int64, error) {
	query := r.db.WithContext(ctx).Model(&stock.LocationStock{}).Where("location_id = ?", locationID)

	var rows []stock.LocationStock
	total, err := findPage(query, filter, LocationStockSortFields, &rows)
	if err != nil {
		return nil, 0, wrap(err, "list location stock")
	}
	return rows, total, nil
}

// FindByLocationAndItems loads the rows present for the given items
func (r *GormLocationStockRepository) FindByLocationAndItems(ctx context.Context, locationID uuid.UUID, itemIDs []uuid.UUID) ([]stock.LocationStock, error) {
	if len(itemIDs) == 0 {
		return []stock.LocationStock{}, nil
	}
	var rows []stock.LocationStock
	if err := r.db.WithContext(ctx).
		Where("location_id = ? AND item_id IN ?", locationID, itemIDs).
		Order("item_id ASC").
		Find(&rows).Error; err != nil {
		return nil, wrap(err, "find location stock")
	}
	return rows, nil
}

// FindForUpdate loads the row under SELECT ... FOR UPDATE
func (r *GormLocationStockRepository) FindForUpdate(ctx context.Context, locationID, itemID uuid.UUID) (*stock.LocationStock, error) {
	var row stock.LocationStock
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("location_id = ? AND item_id = ?", locationID, itemID).
		First(&row).Error; err != nil {
		return nil, translate(err, "location stock", pairKey(locationID, itemID))
	}
	return &row, nil
}

// GetOrCreateForUpdate inserts an empty row if the pair is absent, then
// locks whichever row won. A concurrent insert of the same pair is absorbed
// by ON CONFLICT DO NOTHING.
func (r *GormLocationStockRepository) GetOrCreateForUpdate(ctx context.Context, locationID, itemID uuid.UUID) (*stock.LocationStock, error) {
	fresh, err := stock.NewLocationStock(locationID, itemID)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "location_id"}, {Name: "item_id"}},
			DoNothing: true,
		}).
		Create(fresh).Error; err != nil {
		return nil, wrap(err, "create location stock")
	}
	return r.FindForUpdate(ctx, locationID, itemID)
}

// Create inserts a new row; an existing pair is a conflict
func (r *GormLocationStockRepository) Create(ctx context.Context, row *stock.LocationStock) error {
	return translate(r.db.WithContext(ctx).Create(row).Error, "location stock", pairKey(row.LocationID, row.ItemID))
}

// Save writes the quantity and threshold columns of an existing row
func (r *GormLocationStockRepository) Save(ctx context.Context, row *stock.LocationStock) error {
	result := r.db.WithContext(ctx).
		Model(row).
		Select(locationStockColumns).
		Updates(row)
	if result.Error != nil {
		return wrap(result.Error, "save location stock")
	}
	if result.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "location stock", pairKey(row.LocationID, row.ItemID))
	}
	return nil
}

// Ensure GormLocationStockRepository implements LocationStockRepository
var _ stock.LocationStockRepository = (*GormLocationStockRepository)(nil)
