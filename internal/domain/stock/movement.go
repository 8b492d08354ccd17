package stock

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType classifies why a balance changed
type MovementType string

const (
	MovementTypePurchase      MovementType = "purchase"
	MovementTypeSale          MovementType = "sale"
	MovementTypeTransferIn    MovementType = "transfer_in"
	MovementTypeTransferOut   MovementType = "transfer_out"
	MovementTypeAdjustment    MovementType = "adjustment"
	MovementTypePhysicalCount MovementType = "physical_count"
)

// IsValid returns true if the movement type is valid
func (t MovementType) IsValid() bool {
	switch t {
	case MovementTypePurchase,
		MovementTypeSale,
		MovementTypeTransferIn,
		MovementTypeTransferOut,
		MovementTypeAdjustment,
		MovementTypePhysicalCount:
		return true
	}
	return false
}

// AllMovementTypes lists every movement type in display order.
func AllMovementTypes() []MovementType {
	return []MovementType{
		MovementTypePurchase,
		MovementTypeSale,
		MovementTypeTransferIn,
		MovementTypeTransferOut,
		MovementTypeAdjustment,
		MovementTypePhysicalCount,
	}
}

// ReferenceType names the document that caused a movement
type ReferenceType string

const (
	ReferenceTypeOrder         ReferenceType = "order"
	ReferenceTypeRequisition   ReferenceType = "requisition"
	ReferenceTypePurchaseOrder ReferenceType = "purchase_order"
	ReferenceTypeGRN           ReferenceType = "grn"
	ReferenceTypePurchaseEntry ReferenceType = "purchase_entry"
	ReferenceTypeStockTransfer ReferenceType = "stock_transfer"
	ReferenceTypeManual        ReferenceType = "manual"
	ReferenceTypeBulkUpdate    ReferenceType = "bulk_update"
	ReferenceTypeInitialStock  ReferenceType = "initial_stock"
)

// IsValid returns true if the reference type is valid
func (r ReferenceType) IsValid() bool {
	switch r {
	case ReferenceTypeOrder,
		ReferenceTypeRequisition,
		ReferenceTypePurchaseOrder,
		ReferenceTypeGRN,
		ReferenceTypePurchaseEntry,
		ReferenceTypeStockTransfer,
		ReferenceTypeManual,
		ReferenceTypeBulkUpdate,
		ReferenceTypeInitialStock:
		return true
	}
	return false
}

// Reference identifies the cause of a movement.
type Reference struct {
	Type ReferenceType
	ID   *uuid.UUID
}

// ManualReference is used when a caller adjusts stock without a source document.
func ManualReference() Reference {
	return Reference{Type: ReferenceTypeManual}
}

// NewReference builds a reference to a concrete document.
func NewReference(t ReferenceType, id uuid.UUID) Reference {
	return Reference{Type: t, ID: &id}
}

// StockMovement is an immutable ledger row. It is never updated or deleted.
type StockMovement struct {
	ID               uuid.UUID        `gorm:"type:uuid;primaryKey"`
	ItemID           uuid.UUID        `gorm:"type:uuid;not null;index:idx_stock_movement_item_location,priority:1"`
	LocationID       uuid.UUID        `gorm:"type:uuid;not null;index:idx_stock_movement_item_location,priority:2;index"`
	MovementType     MovementType     `gorm:"type:varchar(20);not null;index"`
	QuantityType     QuantityType     `gorm:"type:varchar(20);not null;default:'available'"`
	Quantity         decimal.Decimal  `gorm:"type:numeric(10,3);not null"`
	ReferenceType    ReferenceType    `gorm:"type:varchar(30);not null;index:idx_stock_movement_reference,priority:1"`
	ReferenceID      *uuid.UUID       `gorm:"type:uuid;index:idx_stock_movement_reference,priority:2"`
	PreviousQuantity decimal.Decimal  `gorm:"type:numeric(10,3);not null"`
	NewQuantity      decimal.Decimal  `gorm:"type:numeric(10,3);not null"`
	UnitCost         *decimal.Decimal `gorm:"type:numeric(12,2)"`
	Notes            string           `gorm:"type:text"`
	CreatedAt        time.Time        `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (StockMovement) TableName() string {
	return "stock_movements"
}

// NewStockMovement documents one applied change. The signed quantity is derived
// from the change so the row always agrees with the balance it describes.
func NewStockMovement(stock *LocationStock, change Change, movementType MovementType, ref Reference) *StockMovement {
	return &StockMovement{
		ID:               uuid.New(),
		ItemID:           stock.ItemID,
		LocationID:       stock.LocationID,
		MovementType:     movementType,
		QuantityType:     change.QuantityType,
		Quantity:         change.Delta(),
		ReferenceType:    ref.Type,
		ReferenceID:      ref.ID,
		PreviousQuantity: change.Previous,
		NewQuantity:      change.New,
		CreatedAt:        time.Now(),
	}
}

// WithUnitCost attaches the unit cost of the goods moved
func (m *StockMovement) WithUnitCost(cost decimal.Decimal) *StockMovement {
	m.UnitCost = &cost
	return m
}

// WithNotes attaches free-form notes
func (m *StockMovement) WithNotes(notes string) *StockMovement {
	m.Notes = notes
	return m
}

// IsInbound returns true if the movement increased the balance
func (m *StockMovement) IsInbound() bool {
	return m.Quantity.IsPositive()
}

// MovementFilter narrows ledger reads and summaries.
type MovementFilter struct {
	LocationID *uuid.UUID
	ItemID     *uuid.UUID
	From       *time.Time
	To         *time.Time
}

// MovementTypeTotals is one GROUP BY row of the ledger summary query.
type MovementTypeTotals struct {
	MovementType MovementType
	Count        int64
	TotalIn      decimal.Decimal
	TotalOut     decimal.Decimal
}

// MovementTypeSummary is the per-type breakdown of a summary.
type MovementTypeSummary struct {
	Count    int64           `json:"count"`
	TotalIn  decimal.Decimal `json:"total_in"`
	TotalOut decimal.Decimal `json:"total_out"`
	Net      decimal.Decimal `json:"net"`
}

// MovementSummary aggregates available-quantity movements.
type MovementSummary struct {
	Count    int64                                `json:"count"`
	TotalIn  decimal.Decimal                      `json:"total_in"`
	TotalOut decimal.Decimal                      `json:"total_out"`
	Net      decimal.Decimal                      `json:"net"`
	ByType   map[MovementType]MovementTypeSummary `json:"by_type"`
}

// NewMovementSummary folds grouped totals into a summary. TotalOut is reported
// as a positive magnitude.
func NewMovementSummary(rows []MovementTypeTotals) MovementSummary {
	summary := MovementSummary{
		TotalIn:  decimal.Zero,
		TotalOut: decimal.Zero,
		Net:      decimal.Zero,
		ByType:   make(map[MovementType]MovementTypeSummary, len(rows)),
	}
	for _, row := range rows {
		net := row.TotalIn.Sub(row.TotalOut)
		summary.ByType[row.MovementType] = MovementTypeSummary{
			Count:    row.Count,
			TotalIn:  row.TotalIn,
			TotalOut: row.TotalOut,
			Net:      net,
		}
		summary.Count += row.Count
		summary.TotalIn = summary.TotalIn.Add(row.TotalIn)
		summary.TotalOut = summary.TotalOut.Add(row.TotalOut)
	}
	summary.Net = summary.TotalIn.Sub(summary.TotalOut)
	return summary
}
