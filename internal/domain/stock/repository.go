package stock

import (
	"context"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
)

// ItemRepository reads the item catalog and maintains the cached stock total
type ItemRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Item, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Item, error)
	FindActive(ctx context.Context) ([]Item, error)
	Create(ctx context.Context, item *Item) error
	// RefreshStockQuantity recomputes items.stock_quantity from location_stocks
	RefreshStockQuantity(ctx context.Context, itemID uuid.UUID) error
}

// LocationStockRepository persists per-location balances
type LocationStockRepository interface {
	FindByLocationAndItem(ctx context.Context, locationID, itemID uuid.UUID) (*LocationStock, error)
	FindByLocation(ctx context.Context, locationID uuid.UUID, filter shared.Filter) ([]LocationStock, int64, error)
	FindByLocationAndItems(ctx context.Context, locationID uuid.UUID, itemIDs []uuid.UUID) ([]LocationStock, error)
	// FindForUpdate loads the row under SELECT ... FOR UPDATE
	FindForUpdate(ctx context.Context, locationID, itemID uuid.UUID) (*LocationStock, error)
	// GetOrCreateForUpdate inserts the pair if absent, then locks it
	GetOrCreateForUpdate(ctx context.Context, locationID, itemID uuid.UUID) (*LocationStock, error)
	Create(ctx context.Context, stock *LocationStock) error
	Save(ctx context.Context, stock *LocationStock) error
}

// StockMovementRepository is append-only
type StockMovementRepository interface {
	Create(ctx context.Context, movement *StockMovement) error
	FindByItem(ctx context.Context, itemID uuid.UUID, filter shared.Filter) ([]StockMovement, int64, error)
	FindByLocation(ctx context.Context, locationID uuid.UUID, filter shared.Filter) ([]StockMovement, int64, error)
	FindByReference(ctx context.Context, refType ReferenceType, refID uuid.UUID) ([]StockMovement, error)
	FindByLocationAndItem(ctx context.Context, locationID, itemID uuid.UUID) ([]StockMovement, error)
	Summarize(ctx context.Context, filter MovementFilter) ([]MovementTypeTotals, error)
}
