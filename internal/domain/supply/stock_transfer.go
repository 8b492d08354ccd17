package supply

import (
	"fmt"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferStatus represents the status of a stock transfer
type TransferStatus string

const (
	TransferStatusPending    TransferStatus = "pending"
	TransferStatusApproved   TransferStatus = "approved"
	TransferStatusDispatched TransferStatus = "dispatched"
	TransferStatusInTransit  TransferStatus = "in_transit"
	TransferStatusReceived   TransferStatus = "received"
	TransferStatusCancelled  TransferStatus = "cancelled"
)

// IsValid checks if the status is a valid TransferStatus
func (s TransferStatus) IsValid() bool {
	switch s {
	case TransferStatusPending, TransferStatusApproved, TransferStatusDispatched,
		TransferStatusInTransit, TransferStatusReceived, TransferStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo enforces approve -> dispatch -> (in_transit) -> receive.
// Cancellation is possible only before goods leave the source.
func (s TransferStatus) CanTransitionTo(target TransferStatus) bool {
	switch s {
	case TransferStatusPending:
		return target == TransferStatusApproved || target == TransferStatusCancelled
	case TransferStatusApproved:
		return target == TransferStatusDispatched || target == TransferStatusCancelled
	case TransferStatusDispatched:
		return target == TransferStatusInTransit || target == TransferStatusReceived
	case TransferStatusInTransit:
		return target == TransferStatusReceived
	}
	return false
}

// TransferType classifies why goods move between locations
type TransferType string

const (
	TransferTypeManual                 TransferType = "manual"
	TransferTypeRequisitionFulfillment TransferType = "requisition_fulfillment"
	TransferTypeProductionOutput       TransferType = "production_output"
	TransferTypeReplenishment          TransferType = "replenishment"
	TransferTypePODistribution         TransferType = "po_distribution"
)

// IsValid checks if the type is a valid TransferType
func (t TransferType) IsValid() bool {
	switch t {
	case TransferTypeManual, TransferTypeRequisitionFulfillment, TransferTypeProductionOutput,
		TransferTypeReplenishment, TransferTypePODistribution:
		return true
	}
	return false
}

// StockTransferItem is one line of a transfer
type StockTransferItem struct {
	ID                 uuid.UUID        `gorm:"type:uuid;primaryKey"`
	StockTransferID    uuid.UUID        `gorm:"type:uuid;not null;index"`
	ItemID             uuid.UUID        `gorm:"type:uuid;not null"`
	RequestedQuantity  decimal.Decimal  `gorm:"type:numeric(10,3);not null"`
	DispatchedQuantity decimal.Decimal  `gorm:"type:numeric(10,3);not null;default:0"`
	ReceivedQuantity   decimal.Decimal  `gorm:"type:numeric(10,3);not null;default:0"`
	UnitCost           *decimal.Decimal `gorm:"type:numeric(12,2)"`
	Notes              string           `gorm:"type:text"`
	CreatedAt          time.Time        `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockTransferItem) TableName() string {
	return "stock_transfer_items"
}

// StockTransfer moves stock from a source location to a destination
type StockTransfer struct {
	shared.BaseEntity
	TransferNumber        string              `gorm:"type:varchar(50);not null;uniqueIndex"`
	TransferType          TransferType        `gorm:"type:varchar(30);not null"`
	SourceLocationID      *uuid.UUID          `gorm:"type:uuid"`
	DestinationLocationID uuid.UUID           `gorm:"type:uuid;not null"`
	Status                TransferStatus      `gorm:"type:varchar(20);not null;index"`
	ReferenceType         stock.ReferenceType `gorm:"type:varchar(30)"`
	ReferenceID           *uuid.UUID          `gorm:"type:uuid;index"`
	ApprovedBy            *uuid.UUID          `gorm:"type:uuid"`
	ApprovedAt            *time.Time
	DispatchedAt          *time.Time
	InTransitAt           *time.Time
	ReceivedAt            *time.Time
	Notes                 string              `gorm:"type:text"`
	Items                 []StockTransferItem `gorm:"foreignKey:StockTransferID;references:ID"`
}

// TableName returns the table name for GORM
func (StockTransfer) TableName() string {
	return "stock_transfers"
}

// NewStockTransfer creates a pending transfer. A nil source means the goods
// originate outside tracked stock and dispatch deducts nothing.
func NewStockTransfer(transferType TransferType, source *uuid.UUID, destination uuid.UUID, notes string, items []LineInput) (*StockTransfer, error) {
	if transferType == "" {
		transferType = TransferTypeManual
	}
	if !transferType.IsValid() {
		return nil, shared.NewValidationError("transfer_type", "Invalid transfer type: "+string(transferType))
	}
	if destination == uuid.Nil {
		return nil, shared.NewValidationError("destination_location_id", "Destination location cannot be empty")
	}
	if source != nil && *source == destination {
		return nil, shared.NewValidationError("source_location_id", "Source and destination must differ")
	}
	if err := validateLineInputs(items); err != nil {
		return nil, err
	}

	t := &StockTransfer{
		BaseEntity:            shared.NewBaseEntity(),
		TransferType:          transferType,
		SourceLocationID:      source,
		DestinationLocationID: destination,
		Status:                TransferStatusPending,
		Notes:                 notes,
	}
	t.TransferNumber = shared.GenerateDocumentNumber("TRF", t.CreatedAt)
	for _, in := range items {
		t.Items = append(t.Items, StockTransferItem{
			ID:                 uuid.New(),
			StockTransferID:    t.ID,
			ItemID:             in.ItemID,
			RequestedQuantity:  in.Quantity,
			DispatchedQuantity: decimal.Zero,
			ReceivedQuantity:   decimal.Zero,
			UnitCost:           in.UnitCost,
			Notes:              in.Notes,
			CreatedAt:          t.CreatedAt,
		})
	}
	return t, nil
}

func (t *StockTransfer) withReference(refType stock.ReferenceType, id uuid.UUID) *StockTransfer {
	t.ReferenceType = refType
	t.ReferenceID = &id
	return t
}

// NewTransferFromGRN distributes received goods from the GRN location
func NewTransferFromGRN(g *GRN, destination uuid.UUID, notes string, overrides map[uuid.UUID]ItemOverride) (*StockTransfer, error) {
	if !g.AddsStock() {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Cannot transfer goods from a rejected GRN")
	}
	items := make([]LineInput, 0, len(g.Items))
	for _, it := range g.Items {
		cost := it.UnitCost
		items = append(items, LineInput{ItemID: it.ItemID, Quantity: it.ReceivedQuantity, UnitCost: &cost})
	}
	items = applyOverrides(items, overrides)
	source := g.LocationID
	t, err := NewStockTransfer(TransferTypePODistribution, &source, destination, notes, items)
	if err != nil {
		return nil, err
	}
	return t.withReference(stock.ReferenceTypeGRN, g.ID), nil
}

// NewTransferFromPurchaseEntry distributes goods recorded by a purchase entry
func NewTransferFromPurchaseEntry(pe *PurchaseEntry, destination uuid.UUID, notes string, overrides map[uuid.UUID]ItemOverride) (*StockTransfer, error) {
	if pe.LocationID == nil {
		return nil, shared.NewValidationError("location_id", "Purchase entry has no receiving location to transfer from")
	}
	items := make([]LineInput, 0, len(pe.Items))
	for _, it := range pe.Items {
		cost := it.UnitCost
		items = append(items, LineInput{ItemID: it.ItemID, Quantity: it.Quantity, UnitCost: &cost})
	}
	items = applyOverrides(items, overrides)
	source := *pe.LocationID
	t, err := NewStockTransfer(TransferTypePODistribution, &source, destination, notes, items)
	if err != nil {
		return nil, err
	}
	return t.withReference(stock.ReferenceTypePurchaseEntry, pe.ID), nil
}

// NewTransferFromRequisition fulfils a requisition from its source location
func NewTransferFromRequisition(req *Requisition, source *uuid.UUID, notes string, overrides map[uuid.UUID]ItemOverride) (*StockTransfer, error) {
	if !req.CanSource() {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Requisition cannot be fulfilled in status "+string(req.Status))
	}
	if source == nil {
		source = req.SourceLocationID
	}
	items := make([]LineInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, LineInput{ItemID: it.ItemID, Quantity: it.EffectiveQuantity()})
	}
	items = applyOverrides(items, overrides)
	t, err := NewStockTransfer(TransferTypeRequisitionFulfillment, source, req.DeliveryLocationID, notes, items)
	if err != nil {
		return nil, err
	}
	return t.withReference(stock.ReferenceTypeRequisition, req.ID), nil
}

// NewTransfersFromPO creates one transfer per distinct delivery location of
// the order, sourcing goods from the location where they were received
func NewTransfersFromPO(po *PurchaseOrder, source uuid.UUID, notes string) ([]*StockTransfer, error) {
	if len(po.DeliveryLocations) == 0 {
		return nil, shared.NewValidationError("delivery_locations", "Purchase order has no delivery locations")
	}
	prices := make(map[uuid.UUID]decimal.Decimal, len(po.Items))
	for _, it := range po.Items {
		prices[it.ItemID] = it.UnitPrice
	}

	ids, groups := po.DeliveryGroups()
	transfers := make([]*StockTransfer, 0, len(ids))
	for _, locationID := range ids {
		if locationID == source {
			continue
		}
		items := make([]LineInput, 0, len(groups[locationID]))
		for _, dl := range groups[locationID] {
			cost := prices[dl.ItemID]
			items = append(items, LineInput{ItemID: dl.ItemID, Quantity: dl.Quantity, UnitCost: &cost})
		}
		src := source
		t, err := NewStockTransfer(TransferTypePODistribution, &src, locationID, notes, mergeLineInputs(items))
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, t.withReference(stock.ReferenceTypePurchaseOrder, po.ID))
	}
	if len(transfers) == 0 {
		return nil, shared.NewValidationError("source_location_id", "All delivery locations equal the source location")
	}
	return transfers, nil
}

func (t *StockTransfer) transitionTo(target TransferStatus) error {
	if !t.Status.CanTransitionTo(target) {
		return shared.NewInvalidStateError("stock transfer", string(t.Status), string(target))
	}
	t.Status = target
	t.Touch()
	return nil
}

// Approve sets the approver and timestamp
func (t *StockTransfer) Approve(approvedBy *uuid.UUID) error {
	if err := t.transitionTo(TransferStatusApproved); err != nil {
		return err
	}
	now := time.Now()
	t.ApprovedBy = approvedBy
	t.ApprovedAt = &now
	return nil
}

// Dispatch records dispatched quantities, defaulting to the requested ones,
// and returns the lines to deduct from the source
func (t *StockTransfer) Dispatch(quantities map[uuid.UUID]decimal.Decimal) ([]stock.Line, error) {
	if err := checkQuantities(quantities); err != nil {
		return nil, err
	}
	if err := t.transitionTo(TransferStatusDispatched); err != nil {
		return nil, err
	}
	lines := make([]stock.Line, 0, len(t.Items))
	for i := range t.Items {
		qty, ok := quantities[t.Items[i].ItemID]
		if !ok {
			qty = t.Items[i].RequestedQuantity
		}
		t.Items[i].DispatchedQuantity = qty
		if qty.IsPositive() {
			lines = append(lines, stock.Line{ItemID: t.Items[i].ItemID, Quantity: qty})
		}
	}
	now := time.Now()
	t.DispatchedAt = &now
	return stock.AggregateLines(lines), nil
}

// MarkInTransit records that dispatched goods are on the way
func (t *StockTransfer) MarkInTransit() error {
	if err := t.transitionTo(TransferStatusInTransit); err != nil {
		return err
	}
	now := time.Now()
	t.InTransitAt = &now
	return nil
}

// Receive records received quantities, defaulting to the dispatched ones,
// and returns the lines to add at the destination. A sourced transfer cannot
// receive more than left the source.
func (t *StockTransfer) Receive(quantities map[uuid.UUID]decimal.Decimal) ([]stock.Line, error) {
	if err := checkQuantities(quantities); err != nil {
		return nil, err
	}
	if !t.Status.CanTransitionTo(TransferStatusReceived) {
		return nil, shared.NewInvalidStateError("stock transfer", string(t.Status), string(TransferStatusReceived))
	}
	received := make([]decimal.Decimal, len(t.Items))
	for i, it := range t.Items {
		qty, ok := quantities[it.ItemID]
		if !ok {
			qty = it.DispatchedQuantity
		}
		if t.SourceLocationID != nil && qty.GreaterThan(it.DispatchedQuantity) {
			return nil, shared.NewValidationError("received_quantity",
				fmt.Sprintf("Received quantity %s of item %s exceeds dispatched quantity %s", qty, it.ItemID, it.DispatchedQuantity))
		}
		received[i] = qty
	}
	if err := t.transitionTo(TransferStatusReceived); err != nil {
		return nil, err
	}
	lines := make([]stock.Line, 0, len(t.Items))
	for i := range t.Items {
		t.Items[i].ReceivedQuantity = received[i]
		if received[i].IsPositive() {
			lines = append(lines, stock.Line{ItemID: t.Items[i].ItemID, Quantity: received[i]})
		}
	}
	now := time.Now()
	t.ReceivedAt = &now
	return stock.AggregateLines(lines), nil
}

// Cancel cancels a transfer that has not been dispatched
func (t *StockTransfer) Cancel() error {
	return t.transitionTo(TransferStatusCancelled)
}

func checkQuantities(quantities map[uuid.UUID]decimal.Decimal) error {
	for _, qty := range quantities {
		if qty.IsNegative() {
			return shared.NewValidationError("quantity", "Quantity cannot be negative")
		}
		if err := stock.CheckScale("quantity", qty); err != nil {
			return err
		}
	}
	return nil
}
