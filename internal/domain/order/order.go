package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is a free-form lowercase order status. Only the transition into
// StatusApproved has stock side effects.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusPreparing Status = "preparing"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// NormalizeStatus lowercases and trims a caller supplied status
func NormalizeStatus(s string) Status {
	return Status(strings.ToLower(strings.TrimSpace(s)))
}

// OrderItem is one requested line of an order
type OrderItem struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey"`
	OrderID   uuid.UUID        `gorm:"type:uuid;not null;index"`
	ItemID    uuid.UUID        `gorm:"type:uuid;not null"`
	Quantity  decimal.Decimal  `gorm:"type:numeric(10,3);not null"`
	UnitPrice *decimal.Decimal `gorm:"type:numeric(12,2)"`
	Notes     string           `gorm:"type:text"`
	CreatedAt time.Time        `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderItem) TableName() string {
	return "order_items"
}

// ItemInput is the caller payload for one order line
type ItemInput struct {
	ItemID    uuid.UUID
	Quantity  decimal.Decimal
	UnitPrice *decimal.Decimal
	Notes     string
}

// Order is demand for items from one location
type Order struct {
	shared.BaseEntity
	OrderNumber     string      `gorm:"type:varchar(50);not null;uniqueIndex"`
	LocationID      uuid.UUID   `gorm:"type:uuid;not null;index"`
	Status          Status      `gorm:"type:varchar(30);not null;index"`
	Notes           string      `gorm:"type:text"`
	ApprovedAt      *time.Time
	StockDeductedAt *time.Time
	Items           []OrderItem `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// NewOrder creates an order. An empty status defaults to pending.
func NewOrder(locationID uuid.UUID, status, notes string, items []ItemInput) (*Order, error) {
	if locationID == uuid.Nil {
		return nil, shared.NewValidationError("location_id", "Location ID cannot be empty")
	}
	st := NormalizeStatus(status)
	if st == "" {
		st = StatusPending
	}

	o := &Order{
		BaseEntity: shared.NewBaseEntity(),
		LocationID: locationID,
		Status:     st,
		Notes:      notes,
	}
	o.OrderNumber = shared.GenerateDocumentNumber("ORD", o.CreatedAt)
	if err := o.setItems(items); err != nil {
		return nil, err
	}
	if st == StatusApproved {
		now := o.CreatedAt
		o.ApprovedAt = &now
	}
	return o, nil
}

func (o *Order) setItems(items []ItemInput) error {
	if len(items) == 0 {
		return shared.NewValidationError("items", "Order must have at least one item")
	}
	now := time.Now()
	lines := make([]OrderItem, 0, len(items))
	for i, in := range items {
		if in.ItemID == uuid.Nil {
			return shared.NewValidationError(fmt.Sprintf("items[%d].item_id", i), "Item ID cannot be empty")
		}
		if !in.Quantity.IsPositive() {
			return shared.NewValidationError(fmt.Sprintf("items[%d].quantity", i), "Quantity must be positive")
		}
		if err := stock.CheckScale(fmt.Sprintf("items[%d].quantity", i), in.Quantity); err != nil {
			return err
		}
		if in.UnitPrice != nil && in.UnitPrice.IsNegative() {
			return shared.NewValidationError(fmt.Sprintf("items[%d].unit_price", i), "Unit price cannot be negative")
		}
		lines = append(lines, OrderItem{
			ID:        uuid.New(),
			OrderID:   o.ID,
			ItemID:    in.ItemID,
			Quantity:  in.Quantity,
			UnitPrice: in.UnitPrice,
			Notes:     in.Notes,
			CreatedAt: now,
		})
	}
	o.Items = lines
	return nil
}

// Lines returns the order items aggregated per item in lock order
func (o *Order) Lines() []stock.Line {
	lines := make([]stock.Line, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, stock.Line{ItemID: it.ItemID, Quantity: it.Quantity})
	}
	return stock.AggregateLines(lines)
}

// IsApproved returns true if the order is approved
func (o *Order) IsApproved() bool {
	return o.Status == StatusApproved
}

// NeedsDeduction reports whether stock must be taken for this order now
func (o *Order) NeedsDeduction() bool {
	return o.IsApproved() && o.StockDeductedAt == nil
}

// MarkDeducted records that stock has been taken for the order
func (o *Order) MarkDeducted() {
	now := time.Now()
	o.StockDeductedAt = &now
}

// ChangeStatus moves the order to a new status and reports whether the caller
// must deduct stock. Deduction is required only when entering approved from a
// different status and stock was never taken before.
func (o *Order) ChangeStatus(status string) (bool, error) {
	next := NormalizeStatus(status)
	if next == "" {
		return false, shared.NewValidationError("status", "Status cannot be empty")
	}
	previous := o.Status
	o.Status = next
	o.Touch()
	if next == StatusApproved && previous != StatusApproved {
		now := time.Now()
		o.ApprovedAt = &now
		return o.StockDeductedAt == nil, nil
	}
	return false, nil
}

// IsFrozen reports whether the order lines can no longer change. An order
// stays frozen once stock was taken, even after leaving approved.
func (o *Order) IsFrozen() bool {
	return o.IsApproved() || o.StockDeductedAt != nil
}

// ReplaceItems swaps the order lines of an order that is not frozen
func (o *Order) ReplaceItems(items []ItemInput) error {
	if o.IsFrozen() {
		return shared.NewDomainError(shared.CodeInvalidState, "Cannot change items of an order whose stock was deducted")
	}
	if err := o.setItems(items); err != nil {
		return err
	}
	o.Touch()
	return nil
}

// CanDelete rejects deletion of frozen orders
func (o *Order) CanDelete() error {
	if o.IsFrozen() {
		return shared.NewDomainError(shared.CodeInvalidState, "Cannot delete an order whose stock was deducted")
	}
	return nil
}
