package supply

import (
	"fmt"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GRNStatus represents the outcome of a physical receipt
type GRNStatus string

const (
	GRNStatusReceived GRNStatus = "received"
	GRNStatusPartial  GRNStatus = "partial"
	GRNStatusRejected GRNStatus = "rejected"
)

// IsValid checks if the status is a valid GRNStatus
func (s GRNStatus) IsValid() bool {
	switch s {
	case GRNStatusReceived, GRNStatusPartial, GRNStatusRejected:
		return true
	}
	return false
}

// GRNItem is one received line
type GRNItem struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primaryKey"`
	GRNID               uuid.UUID       `gorm:"column:grn_id;type:uuid;not null;index"`
	ItemID              uuid.UUID       `gorm:"type:uuid;not null"`
	PurchaseOrderItemID *uuid.UUID      `gorm:"type:uuid"`
	ExpectedQuantity    decimal.Decimal `gorm:"type:numeric(10,3);not null;default:0"`
	ReceivedQuantity    decimal.Decimal `gorm:"type:numeric(10,3);not null;default:0"`
	UnitCost            decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	ExpectedCost        decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	BatchNumber         string          `gorm:"type:varchar(100)"`
	ExpiryDate          *time.Time
	Notes               string    `gorm:"type:text"`
	CreatedAt           time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (GRNItem) TableName() string {
	return "grn_items"
}

// GRN is a goods received note
type GRN struct {
	shared.BaseEntity
	GRNNumber       string          `gorm:"column:grn_number;type:varchar(50);not null;uniqueIndex"`
	PurchaseOrderID *uuid.UUID      `gorm:"type:uuid;index"`
	SupplierID      *uuid.UUID      `gorm:"type:uuid"`
	LocationID      uuid.UUID       `gorm:"type:uuid;not null"`
	Status          GRNStatus       `gorm:"type:varchar(20);not null;index"`
	ReceivedAt      time.Time       `gorm:"not null"`
	TotalCost       decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	Notes           string          `gorm:"type:text"`
	Items           []GRNItem       `gorm:"foreignKey:GRNID;references:ID"`
}

// TableName returns the table name for GORM
func (GRN) TableName() string {
	return "grns"
}

// GRNItemInput is a caller supplied receipt line
type GRNItemInput struct {
	ItemID              uuid.UUID
	PurchaseOrderItemID *uuid.UUID
	ExpectedQuantity    decimal.Decimal
	ReceivedQuantity    decimal.Decimal
	UnitCost            decimal.Decimal
	ExpectedCost        *decimal.Decimal
	BatchNumber         string
	ExpiryDate          *time.Time
	Notes               string
}

// DeriveGRNStatus classifies a receipt by comparing received with expected
func DeriveGRNStatus(items []GRNItem) GRNStatus {
	full, none := true, true
	for _, it := range items {
		if it.ReceivedQuantity.IsPositive() {
			none = false
		}
		if it.ReceivedQuantity.LessThan(it.ExpectedQuantity) {
			full = false
		}
	}
	switch {
	case none:
		return GRNStatusRejected
	case full:
		return GRNStatusReceived
	}
	return GRNStatusPartial
}

// NewGRN creates a receipt. An empty status is derived from the quantities.
func NewGRN(poID, supplierID *uuid.UUID, locationID uuid.UUID, status string, notes string, items []GRNItemInput) (*GRN, error) {
	if locationID == uuid.Nil {
		return nil, shared.NewValidationError("location_id", "Receiving location cannot be empty")
	}
	if len(items) == 0 {
		return nil, shared.NewValidationError("items", "At least one item is required")
	}

	g := &GRN{
		BaseEntity:      shared.NewBaseEntity(),
		PurchaseOrderID: poID,
		SupplierID:      supplierID,
		LocationID:      locationID,
		Notes:           notes,
	}
	g.GRNNumber = shared.GenerateDocumentNumber("GRN", g.CreatedAt)
	g.ReceivedAt = g.CreatedAt

	total := decimal.Zero
	seen := make(map[uuid.UUID]struct{}, len(items))
	for i, in := range items {
		if in.ItemID == uuid.Nil {
			return nil, shared.NewValidationError(fmt.Sprintf("items[%d].item_id", i), "Item ID cannot be empty")
		}
		if _, dup := seen[in.ItemID]; dup {
			return nil, shared.NewValidationError(fmt.Sprintf("items[%d].item_id", i), "Item "+in.ItemID.String()+" is listed more than once")
		}
		seen[in.ItemID] = struct{}{}
		if in.ReceivedQuantity.IsNegative() || in.ExpectedQuantity.IsNegative() {
			return nil, shared.NewValidationError(fmt.Sprintf("items[%d].received_quantity", i), "Quantities cannot be negative")
		}
		if err := stock.CheckScale(fmt.Sprintf("items[%d].received_quantity", i), in.ReceivedQuantity); err != nil {
			return nil, err
		}
		if err := stock.CheckScale(fmt.Sprintf("items[%d].expected_quantity", i), in.ExpectedQuantity); err != nil {
			return nil, err
		}
		if in.UnitCost.IsNegative() {
			return nil, shared.NewValidationError(fmt.Sprintf("items[%d].unit_cost", i), "Unit cost cannot be negative")
		}
		expected := in.ExpectedQuantity
		if expected.IsZero() {
			expected = in.ReceivedQuantity
		}
		g.Items = append(g.Items, GRNItem{
			ID:                  uuid.New(),
			GRNID:               g.ID,
			ItemID:              in.ItemID,
			PurchaseOrderItemID: in.PurchaseOrderItemID,
			ExpectedQuantity:    expected,
			ReceivedQuantity:    in.ReceivedQuantity,
			UnitCost:            in.UnitCost,
			ExpectedCost:        costOr(in.ExpectedCost, in.UnitCost),
			BatchNumber:         in.BatchNumber,
			ExpiryDate:          in.ExpiryDate,
			Notes:               in.Notes,
			CreatedAt:           g.CreatedAt,
		})
		total = total.Add(in.ReceivedQuantity.Mul(in.UnitCost))
	}
	g.TotalCost = total.Round(2)

	if status == "" {
		g.Status = DeriveGRNStatus(g.Items)
	} else {
		g.Status = GRNStatus(status)
		if !g.Status.IsValid() {
			return nil, shared.NewValidationError("status", "Invalid GRN status: "+status)
		}
	}
	return g, nil
}

// NewGRNFromPO creates a receipt against a purchase order. Expected quantities
// are the PO's remaining quantities pooled per item, since a consolidated order
// carries one line per delivery location; overrides replace received quantity,
// cost and batch data per item.
func NewGRNFromPO(po *PurchaseOrder, locationID uuid.UUID, status, notes string, overrides map[uuid.UUID]ItemOverride) (*GRN, error) {
	if !po.Status.CanReceive() {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Cannot receive goods for purchase order in status "+string(po.Status))
	}
	if locationID == uuid.Nil && po.DeliveryLocationID != nil {
		locationID = *po.DeliveryLocationID
	}

	index := make(map[uuid.UUID]int, len(po.Items))
	inputs := make([]GRNItemInput, 0, len(po.Items))
	for _, it := range po.Items {
		expected := it.RemainingQuantity()
		if i, ok := index[it.ItemID]; ok {
			inputs[i].ExpectedQuantity = inputs[i].ExpectedQuantity.Add(expected)
			inputs[i].ReceivedQuantity = inputs[i].ExpectedQuantity
			inputs[i].PurchaseOrderItemID = nil
			continue
		}
		poItemID := it.ID
		price := it.UnitPrice
		index[it.ItemID] = len(inputs)
		inputs = append(inputs, GRNItemInput{
			ItemID:              it.ItemID,
			PurchaseOrderItemID: &poItemID,
			ExpectedQuantity:    expected,
			ReceivedQuantity:    expected,
			UnitCost:            price,
			ExpectedCost:        &price,
		})
	}
	for i := range inputs {
		ov, ok := overrides[inputs[i].ItemID]
		if !ok {
			continue
		}
		if ov.Quantity != nil {
			inputs[i].ReceivedQuantity = *ov.Quantity
		}
		inputs[i].UnitCost = costOr(ov.UnitCost, inputs[i].UnitCost)
		inputs[i].BatchNumber = ov.BatchNumber
		inputs[i].ExpiryDate = ov.ExpiryDate
	}
	poID := po.ID
	return NewGRN(&poID, po.SupplierID, locationID, status, notes, inputs)
}

// AddsStock reports whether the receipt puts goods on the shelf
func (g *GRN) AddsStock() bool {
	return g.Status != GRNStatusRejected
}

// ReceivedQuantities sums received quantity per item
func (g *GRN) ReceivedQuantities() map[uuid.UUID]decimal.Decimal {
	out := make(map[uuid.UUID]decimal.Decimal, len(g.Items))
	for _, it := range g.Items {
		out[it.ItemID] = out[it.ItemID].Add(it.ReceivedQuantity)
	}
	return out
}

// MarkReceived closes the receipt once a purchase entry is recorded
func (g *GRN) MarkReceived() error {
	if g.Status == GRNStatusRejected {
		return shared.NewInvalidStateError("GRN", string(g.Status), string(GRNStatusReceived))
	}
	g.Status = GRNStatusReceived
	g.Touch()
	return nil
}
