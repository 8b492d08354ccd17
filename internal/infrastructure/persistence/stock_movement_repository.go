package persistence

import (
	"context"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStockMovementRepository implements stock.StockMovementRepository using GORM.
// It only ever inserts.
type GormStockMovementRepository struct {
	db *gorm.DB
}

// NewGormStockMovementRepository creates a new GormStockMovementRepository
func NewGormStockMovementRepository(db *gorm.DB) *GormStockMovementRepository {
	return &GormStockMovementRepository{db: db}
}

// Create appends a movement
func (r *GormStockMovementRepository) Create(ctx context.Context, movement *stock.StockMovement) error {
	return wrap(r.db.WithContext(ctx).Create(movement).Error, "create stock movement")
}

// FindByItem lists the movements of an item across locations
func (r *GormStockMovementRepository) FindByItem(ctx context.Context, itemID uuid.UUID, filter shared.Filter) ([]stock.StockMovement, int64, error) {
	return r.findPage(r.db.WithContext(ctx).Model(&stock.StockMovement{}).Where("item_id = ?", itemID), filter)
}

// FindByLocation lists the movements recorded at a location
func (r *GormStockMovementRepository) FindByLocation(ctx context.Context, locationID uuid.UUID, filter shared.Filter) ([]stock.StockMovement, int64, error) {
	return r.findPage(r.db.WithContext(ctx).Model(&stock.StockMovement{}).Where("location_id = ?", locationID), filter)
}

func (r *GormStockMovementRepository) findPage(query *gorm.DB, filter shared.Filter) ([]stock.StockMovement, int64, error) {
	var movements []stock.StockMovement
	total, err := findPage(query, filter, MovementSortFields, &movements)
	if err != nil {
		return nil, 0, wrap(err, "list stock movements")
	}
	return movements, total, nil
}

// FindByReference returns every movement caused by one document, oldest first
func (r *GormStockMovementRepository) FindByReference(ctx context.Context, refType stock.ReferenceType, refID uuid.UUID) ([]stock.StockMovement, error) {
	var movements []stock.StockMovement
	if err := r.db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", refType, refID).
		Order("created_at ASC").
		Find(&movements).Error; err != nil {
		return nil, wrap(err, "find stock movements by reference")
	}
	return movements, nil
}

// FindByLocationAndItem returns the full history of a pair in created order
func (r *GormStockMovementRepository) FindByLocationAndItem(ctx context.Context, locationID, itemID uuid.UUID) ([]stock.StockMovement, error) {
	var movements []stock.StockMovement
	if err := r.db.WithContext(ctx).
		Where("location_id = ? AND item_id = ?", locationID, itemID).
		Order("created_at ASC").
		Find(&movements).Error; err != nil {
		return nil, wrap(err, "find stock movements")
	}
	return movements, nil
}

// Summarize groups available-quantity movements by type
func (r *GormStockMovementRepository) Summarize(ctx context.Context, filter stock.MovementFilter) ([]stock.MovementTypeTotals, error) {
	query := r.db.WithContext(ctx).
		Model(&stock.StockMovement{}).
		Select(`movement_type,
			COUNT(*) AS count,
			COALESCE(SUM(CASE WHEN quantity > 0 THEN quantity ELSE 0 END), 0) AS total_in,
			COALESCE(SUM(CASE WHEN quantity < 0 THEN -quantity ELSE 0 END), 0) AS total_out`).
		Where("quantity_type = ?", stock.QuantityTypeAvailable)

	if filter.LocationID != nil {
		query = query.Where("location_id = ?", *filter.LocationID)
	}
	if filter.ItemID != nil {
		query = query.Where("item_id = ?", *filter.ItemID)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}

	var rows []stock.MovementTypeTotals
	if err := query.Group("movement_type").Order("movement_type").Scan(&rows).Error; err != nil {
		return nil, wrap(err, "summarize stock movements")
	}
	return rows, nil
}

// Ensure GormStockMovementRepository implements StockMovementRepository
var _ stock.StockMovementRepository = (*GormStockMovementRepository)(nil)
