package stock

import (
	"strings"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ItemStatus represents the catalog status of an item
type ItemStatus string

const (
	ItemStatusActive   ItemStatus = "active"
	ItemStatusInactive ItemStatus = "inactive"
)

// Item is the catalog view this core needs. StockQuantity is a cache of the
// sum of available quantity over all locations and is only written by the
// stock store.
type Item struct {
	shared.BaseEntity
	Name          string          `gorm:"type:varchar(200);not null"`
	SKU           string          `gorm:"column:sku;type:varchar(100);uniqueIndex"`
	Unit          string          `gorm:"type:varchar(20)"`
	UnitPrice     decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	StockQuantity decimal.Decimal `gorm:"type:numeric(10,3);not null;default:0"`
	MinStock      decimal.Decimal `gorm:"type:numeric(10,3);not null;default:0"`
	MaxStock      decimal.Decimal `gorm:"type:numeric(10,3);not null;default:0"`
	Status        ItemStatus      `gorm:"type:varchar(20);not null;default:'active'"`
}

// TableName returns the table name for GORM
func (Item) TableName() string {
	return "items"
}

// NewItem creates an active catalog item with zero stock
func NewItem(name, sku string, unitPrice, minStock, maxStock decimal.Decimal) (*Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("name", "Item name cannot be empty")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewValidationError("unit_price", "Unit price cannot be negative")
	}
	if minStock.IsNegative() || maxStock.IsNegative() {
		return nil, shared.NewValidationError("min_stock", "Stock thresholds cannot be negative")
	}
	return &Item{
		BaseEntity:    shared.NewBaseEntity(),
		Name:          name,
		SKU:           strings.TrimSpace(sku),
		UnitPrice:     unitPrice,
		StockQuantity: decimal.Zero,
		MinStock:      minStock,
		MaxStock:      maxStock,
		Status:        ItemStatusActive,
	}, nil
}

// IsActive returns true if the item participates in stock sweeps
func (i *Item) IsActive() bool {
	return i.Status == ItemStatusActive
}

// IsBelowMinimum compares the cached stock against the minimum threshold
func (i *Item) IsBelowMinimum() bool {
	return i.StockQuantity.LessThan(i.MinStock)
}
