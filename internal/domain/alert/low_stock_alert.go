package alert

import (
	"context"
	"time"

	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LowStockAlert is the single alert row kept per item
type LowStockAlert struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ItemID            uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	CurrentStock      decimal.Decimal `gorm:"type:numeric(10,3);not null;default:0"`
	MinStockThreshold decimal.Decimal `gorm:"type:numeric(10,3);not null;default:0"`
	Resolved          bool            `gorm:"not null;default:false;index"`
	Notes             string          `gorm:"type:text"`
	AlertCreatedAt    time.Time       `gorm:"not null"`
	UpdatedAt         time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LowStockAlert) TableName() string {
	return "low_stock_alerts"
}

// NewFromItem builds the alert row that reflects the item's current state
func NewFromItem(item *stock.Item) *LowStockAlert {
	now := time.Now()
	return &LowStockAlert{
		ID:                uuid.New(),
		ItemID:            item.ID,
		CurrentStock:      item.StockQuantity,
		MinStockThreshold: item.MinStock,
		Resolved:          !item.IsBelowMinimum(),
		AlertCreatedAt:    now,
		UpdatedAt:         now,
	}
}

// Action is the write a sweep decides for one item
type Action int

const (
	ActionNone Action = iota
	ActionInsert
	ActionReopen
	ActionResolve
	ActionRefresh
)

// Decide compares an item against its existing alert (nil when absent)
func Decide(item *stock.Item, existing *LowStockAlert) Action {
	below := item.IsBelowMinimum()
	if existing == nil {
		return ActionInsert
	}
	switch {
	case below && existing.Resolved:
		return ActionReopen
	case !below && !existing.Resolved:
		return ActionResolve
	case !existing.CurrentStock.Equal(item.StockQuantity) || !existing.MinStockThreshold.Equal(item.MinStock):
		return ActionRefresh
	}
	return ActionNone
}

// Repository persists alerts. Writes are conditional so concurrent sweeps
// cannot duplicate rows or undo each other's flips.
type Repository interface {
	FindAll(ctx context.Context, resolved *bool) ([]LowStockAlert, error)
	FindByItemID(ctx context.Context, itemID uuid.UUID) (*LowStockAlert, error)
	// InsertIfAbsent returns false when another writer created the row first
	InsertIfAbsent(ctx context.Context, a *LowStockAlert) (bool, error)
	// SetResolved flips resolved only if the row still has the opposite value
	SetResolved(ctx context.Context, itemID uuid.UUID, resolved bool, currentStock, threshold decimal.Decimal) (bool, error)
	// RefreshSnapshot updates stock figures without touching resolved
	RefreshSnapshot(ctx context.Context, itemID uuid.UUID, currentStock, threshold decimal.Decimal) (bool, error)
}
