package stock

import (
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuantityType selects which balance column an adjustment targets
type QuantityType string

const (
	QuantityTypeAvailable QuantityType = "available"
	QuantityTypeReserved  QuantityType = "reserved"
	QuantityTypeAllocated QuantityType = "allocated"
)

// IsValid returns true if the quantity type is valid
func (t QuantityType) IsValid() bool {
	switch t {
	case QuantityTypeAvailable, QuantityTypeReserved, QuantityTypeAllocated:
		return true
	}
	return false
}

// AdjustOperation is how an amount is combined with the current balance
type AdjustOperation string

const (
	OperationAdd      AdjustOperation = "add"
	OperationSubtract AdjustOperation = "subtract"
	OperationSet      AdjustOperation = "set"
)

// IsValid returns true if the operation is valid
func (o AdjustOperation) IsValid() bool {
	switch o {
	case OperationAdd, OperationSubtract, OperationSet:
		return true
	}
	return false
}

// LocationStock is the balance of one item at one location.
// The (LocationID, ItemID) pair is unique; rows are created lazily.
type LocationStock struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	LocationID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_location_stock_location_item,priority:1"`
	ItemID            uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_location_stock_location_item,priority:2;index"`
	AvailableQuantity decimal.Decimal `gorm:"type:numeric(10,3);not null;default:0"`
	ReservedQuantity  decimal.Decimal `gorm:"type:numeric(10,3);not null;default:0"`
	AllocatedQuantity decimal.Decimal `gorm:"type:numeric(10,3);not null;default:0"`
	MinQuantity       decimal.Decimal `gorm:"type:numeric(10,3);not null;default:0"`
	MaxQuantity       decimal.Decimal `gorm:"type:numeric(10,3);not null;default:0"`
	LastUpdated       time.Time       `gorm:"not null"`
	CreatedAt         time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LocationStock) TableName() string {
	return "location_stocks"
}

// NewLocationStock creates an empty balance row for a location-item pair
func NewLocationStock(locationID, itemID uuid.UUID) (*LocationStock, error) {
	if locationID == uuid.Nil {
		return nil, shared.NewValidationError("location_id", "Location ID cannot be empty")
	}
	if itemID == uuid.Nil {
		return nil, shared.NewValidationError("item_id", "Item ID cannot be empty")
	}
	now := time.Now()
	return &LocationStock{
		ID:                uuid.New(),
		LocationID:        locationID,
		ItemID:            itemID,
		AvailableQuantity: decimal.Zero,
		ReservedQuantity:  decimal.Zero,
		AllocatedQuantity: decimal.Zero,
		MinQuantity:       decimal.Zero,
		MaxQuantity:       decimal.Zero,
		LastUpdated:       now,
		CreatedAt:         now,
	}, nil
}

// Change is one applied balance mutation.
type Change struct {
	QuantityType QuantityType
	Previous     decimal.Decimal
	New          decimal.Decimal
}

// Delta returns the signed quantity actually applied
func (c Change) Delta() decimal.Decimal {
	return c.New.Sub(c.Previous)
}

// IsZero reports whether the balance did not move
func (c Change) IsZero() bool {
	return c.New.Equal(c.Previous)
}

// Quantity returns the balance for a quantity type
func (s *LocationStock) Quantity(t QuantityType) decimal.Decimal {
	switch t {
	case QuantityTypeReserved:
		return s.ReservedQuantity
	case QuantityTypeAllocated:
		return s.AllocatedQuantity
	default:
		return s.AvailableQuantity
	}
}

func (s *LocationStock) setQuantity(t QuantityType, v decimal.Decimal) {
	switch t {
	case QuantityTypeReserved:
		s.ReservedQuantity = v
	case QuantityTypeAllocated:
		s.AllocatedQuantity = v
	default:
		s.AvailableQuantity = v
	}
}

// Adjust applies op to the selected balance. Subtract floors at zero and set
// overwrites unconditionally.
func (s *LocationStock) Adjust(t QuantityType, op AdjustOperation, amount decimal.Decimal) (Change, error) {
	if !t.IsValid() {
		return Change{}, shared.NewValidationError("quantity_type", "Invalid quantity type: "+string(t))
	}
	if !op.IsValid() {
		return Change{}, shared.NewValidationError("operation", "Invalid operation: "+string(op))
	}
	if amount.IsNegative() {
		return Change{}, shared.NewValidationError("quantity", "Quantity cannot be negative")
	}
	if err := CheckScale("quantity", amount); err != nil {
		return Change{}, err
	}

	prev := s.Quantity(t)
	var next decimal.Decimal
	switch op {
	case OperationAdd:
		next = prev.Add(amount)
	case OperationSubtract:
		next = prev.Sub(amount)
		if next.IsNegative() {
			next = decimal.Zero
		}
	case OperationSet:
		next = amount
	}

	s.setQuantity(t, next)
	s.LastUpdated = time.Now()
	return Change{QuantityType: t, Previous: prev, New: next}, nil
}

// Deduct removes amount from available stock, refusing to go below zero.
// It is used where a shortage must abort rather than floor.
func (s *LocationStock) Deduct(amount decimal.Decimal) (Change, error) {
	if amount.GreaterThan(s.AvailableQuantity) {
		return Change{}, &ShortageError{
			LocationID: s.LocationID,
			Shortages: []Shortage{{
				ItemID:    s.ItemID,
				Requested: amount,
				Available: s.AvailableQuantity,
			}},
		}
	}
	return s.Adjust(QuantityTypeAvailable, OperationSubtract, amount)
}

// Patch is an explicit partial update of a balance row. Nil fields are left alone.
type Patch struct {
	ItemID            uuid.UUID        `json:"item_id"`
	AvailableQuantity *decimal.Decimal `json:"available_quantity,omitempty"`
	ReservedQuantity  *decimal.Decimal `json:"reserved_quantity,omitempty"`
	AllocatedQuantity *decimal.Decimal `json:"allocated_quantity,omitempty"`
	MinQuantity       *decimal.Decimal `json:"min_quantity,omitempty"`
	MaxQuantity       *decimal.Decimal `json:"max_quantity,omitempty"`
}

// IsEmpty reports whether the patch touches no column
func (p Patch) IsEmpty() bool {
	return p.AvailableQuantity == nil &&
		p.ReservedQuantity == nil &&
		p.AllocatedQuantity == nil &&
		p.MinQuantity == nil &&
		p.MaxQuantity == nil
}

// Validate checks the patch fields in isolation
func (p Patch) Validate() error {
	if p.ItemID == uuid.Nil {
		return shared.NewValidationError("item_id", "Item ID cannot be empty")
	}
	if p.IsEmpty() {
		return shared.NewValidationError("", "No fields to update")
	}
	fields := []struct {
		name  string
		value *decimal.Decimal
	}{
		{"available_quantity", p.AvailableQuantity},
		{"reserved_quantity", p.ReservedQuantity},
		{"allocated_quantity", p.AllocatedQuantity},
		{"min_quantity", p.MinQuantity},
		{"max_quantity", p.MaxQuantity},
	}
	for _, f := range fields {
		if f.value != nil && f.value.IsNegative() {
			return shared.NewValidationError(f.name, f.name+" cannot be negative")
		}
		if f.value != nil {
			if err := CheckScale(f.name, *f.value); err != nil {
				return err
			}
		}
	}
	return nil
}

// ApplyPatch writes the patch and returns the quantity changes that need a
// ledger entry. Threshold changes are not ledgered.
func (s *LocationStock) ApplyPatch(p Patch) ([]Change, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	minQty, maxQty := s.MinQuantity, s.MaxQuantity
	if p.MinQuantity != nil {
		minQty = *p.MinQuantity
	}
	if p.MaxQuantity != nil {
		maxQty = *p.MaxQuantity
	}
	if maxQty.IsPositive() && minQty.GreaterThan(maxQty) {
		return nil, shared.NewValidationError("min_quantity", "min_quantity cannot exceed max_quantity")
	}

	changes := make([]Change, 0, 3)
	quantities := []struct {
		t     QuantityType
		value *decimal.Decimal
	}{
		{QuantityTypeAvailable, p.AvailableQuantity},
		{QuantityTypeReserved, p.ReservedQuantity},
		{QuantityTypeAllocated, p.AllocatedQuantity},
	}
	for _, q := range quantities {
		if q.value == nil {
			continue
		}
		change, err := s.Adjust(q.t, OperationSet, *q.value)
		if err != nil {
			return nil, err
		}
		if !change.IsZero() {
			changes = append(changes, change)
		}
	}

	s.MinQuantity = minQty
	s.MaxQuantity = maxQty
	s.LastUpdated = time.Now()
	return changes, nil
}

// SetThresholds updates min and max levels for the row
func (s *LocationStock) SetThresholds(minQty, maxQty *decimal.Decimal) error {
	_, err := s.ApplyPatch(Patch{ItemID: s.ItemID, MinQuantity: minQty, MaxQuantity: maxQty})
	return err
}

// IsBelowMinimum returns true when a minimum is configured and available is under it
func (s *LocationStock) IsBelowMinimum() bool {
	return s.MinQuantity.IsPositive() && s.AvailableQuantity.LessThan(s.MinQuantity)
}
