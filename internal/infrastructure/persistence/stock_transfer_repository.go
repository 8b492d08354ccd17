package persistence

import (
	"context"

	"github.com/erp/stockcore/internal/domain/supply"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStockTransferRepository implements supply.StockTransferRepository using GORM
type GormStockTransferRepository struct {
	db *gorm.DB
}

// NewGormStockTransferRepository creates a new GormStockTransferRepository
func NewGormStockTransferRepository(db *gorm.DB) *GormStockTransferRepository {
	return &GormStockTransferRepository{db: db}
}

var transferItems = preloadItems("Items")

// FindByID finds a transfer with its items
func (r *GormStockTransferRepository) FindByID(ctx context.Context, id uuid.UUID) (*supply.StockTransfer, error) {
	var t supply.StockTransfer
	if err := r.db.WithContext(ctx).Scopes(transferItems).First(&t, "id = ?", id).Error; err != nil {
		return nil, translate(err, "stock transfer", id)
	}
	return &t, nil
}

// FindByIDForUpdate locks the transfer row
func (r *GormStockTransferRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*supply.StockTransfer, error) {
	var t supply.StockTransfer
	if err := r.db.WithContext(ctx).Scopes(forUpdate, transferItems).First(&t, "id = ?", id).Error; err != nil {
		return nil, translate(err, "stock transfer", id)
	}
	return &t, nil
}

// FindAll lists transfers by status and either end of the transfer
func (r *GormStockTransferRepository) FindAll(ctx context.Context, filter supply.Filter) ([]supply.StockTransfer, int64, error) {
	query := documentFilter(r.db.WithContext(ctx).Model(&supply.StockTransfer{}), filter,
		"status", "destination_location_id", "source_location_id")

	var transfers []supply.StockTransfer
	total, err := findPage(query, filter.Filter, DocumentSortFields, &transfers, transferItems)
	if err != nil {
		return nil, 0, wrap(err, "list stock transfers")
	}
	return transfers, total, nil
}

// Create inserts the transfer and its items
func (r *GormStockTransferRepository) Create(ctx context.Context, t *supply.StockTransfer) error {
	return translate(r.db.WithContext(ctx).Create(t).Error, "stock transfer", t.TransferNumber)
}

// Save writes status timestamps and per-item dispatched/received quantities
func (r *GormStockTransferRepository) Save(ctx context.Context, t *supply.StockTransfer) error {
	db := r.db.WithContext(ctx)
	if err := saveHeader(db, t,
		"status", "approved_by", "approved_at", "dispatched_at", "in_transit_at", "received_at", "updated_at",
	); err != nil {
		return translate(err, "stock transfer", t.ID)
	}
	return wrap(saveLines(db, t.Items, "dispatched_quantity", "received_quantity"), "save stock transfer items")
}

// Ensure GormStockTransferRepository implements StockTransferRepository
var _ supply.StockTransferRepository = (*GormStockTransferRepository)(nil)
