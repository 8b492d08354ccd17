package supply

import (
	"bytes"
	"sort"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrderStatus represents the status of a purchase order
type PurchaseOrderStatus string

const (
	PurchaseOrderStatusPending           PurchaseOrderStatus = "pending"
	PurchaseOrderStatusApproved          PurchaseOrderStatus = "approved"
	PurchaseOrderStatusOrdered           PurchaseOrderStatus = "ordered"
	PurchaseOrderStatusPartiallyReceived PurchaseOrderStatus = "partially_received"
	PurchaseOrderStatusCompleted         PurchaseOrderStatus = "completed"
	PurchaseOrderStatusCancelled         PurchaseOrderStatus = "cancelled"
)

// IsValid checks if the status is a valid PurchaseOrderStatus
func (s PurchaseOrderStatus) IsValid() bool {
	switch s {
	case PurchaseOrderStatusPending, PurchaseOrderStatusApproved, PurchaseOrderStatusOrdered,
		PurchaseOrderStatusPartiallyReceived, PurchaseOrderStatusCompleted, PurchaseOrderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo checks if the status can transition to the target status.
// completed -> completed is allowed so a purchase entry can be recorded
// against a GRN whose PO was already closed by an earlier entry.
func (s PurchaseOrderStatus) CanTransitionTo(target PurchaseOrderStatus) bool {
	switch s {
	case PurchaseOrderStatusPending:
		return target == PurchaseOrderStatusApproved || target == PurchaseOrderStatusCancelled
	case PurchaseOrderStatusApproved:
		return target == PurchaseOrderStatusOrdered || target == PurchaseOrderStatusPartiallyReceived ||
			target == PurchaseOrderStatusCompleted || target == PurchaseOrderStatusCancelled
	case PurchaseOrderStatusOrdered:
		return target == PurchaseOrderStatusPartiallyReceived || target == PurchaseOrderStatusCompleted ||
			target == PurchaseOrderStatusCancelled
	case PurchaseOrderStatusPartiallyReceived:
		return target == PurchaseOrderStatusPartiallyReceived || target == PurchaseOrderStatusCompleted
	case PurchaseOrderStatusCompleted:
		return target == PurchaseOrderStatusCompleted
	}
	return false
}

// CanReceive returns true if goods may be received against the order
func (s PurchaseOrderStatus) CanReceive() bool {
	return s == PurchaseOrderStatusApproved || s == PurchaseOrderStatusOrdered ||
		s == PurchaseOrderStatusPartiallyReceived
}

// PurchaseOrderType distinguishes how a purchase order was raised
type PurchaseOrderType string

const (
	PurchaseOrderTypeDirect           PurchaseOrderType = "direct"
	PurchaseOrderTypeConsolidated     PurchaseOrderType = "consolidated"
	PurchaseOrderTypeRequisitionBased PurchaseOrderType = "requisition_based"
)

// PurchaseOrderItem represents a line item in a purchase order
type PurchaseOrderItem struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PurchaseOrderID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	ItemID           uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity         decimal.Decimal `gorm:"type:numeric(10,3);not null"`
	UnitPrice        decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	TotalPrice       decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	ReceivedQuantity decimal.Decimal `gorm:"type:numeric(10,3);not null;default:0"`
	Notes            string          `gorm:"type:text"`
	CreatedAt        time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PurchaseOrderItem) TableName() string {
	return "purchase_order_items"
}

// RemainingQuantity is the quantity not yet received, never negative
func (i *PurchaseOrderItem) RemainingQuantity() decimal.Decimal {
	rem := i.Quantity.Sub(i.ReceivedQuantity)
	if rem.IsNegative() {
		return decimal.Zero
	}
	return rem
}

// PODeliveryLocation records how much of an item goes to which location
type PODeliveryLocation struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PurchaseOrderID uuid.UUID       `gorm:"type:uuid;not null;index"`
	LocationID      uuid.UUID       `gorm:"type:uuid;not null"`
	ItemID          uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity        decimal.Decimal `gorm:"type:numeric(10,3);not null"`
	RequisitionID   *uuid.UUID      `gorm:"type:uuid"`
	CreatedAt       time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PODeliveryLocation) TableName() string {
	return "po_delivery_locations"
}

// PurchaseOrder is an order placed with a supplier
type PurchaseOrder struct {
	shared.BaseEntity
	PONumber             string              `gorm:"column:po_number;type:varchar(50);not null;uniqueIndex"`
	SupplierID           *uuid.UUID          `gorm:"type:uuid"`
	OrderType            PurchaseOrderType   `gorm:"type:varchar(30);not null"`
	Status               PurchaseOrderStatus `gorm:"type:varchar(30);not null;index"`
	DeliveryLocationID   *uuid.UUID          `gorm:"type:uuid"`
	TotalAmount          decimal.Decimal     `gorm:"type:numeric(14,2);not null;default:0"`
	ExpectedDeliveryDate *time.Time
	ApprovedBy           *uuid.UUID `gorm:"type:uuid"`
	ApprovedAt           *time.Time
	OrderedAt            *time.Time
	CompletedAt          *time.Time
	Notes                string               `gorm:"type:text"`
	Items                []PurchaseOrderItem  `gorm:"foreignKey:PurchaseOrderID;references:ID"`
	DeliveryLocations    []PODeliveryLocation `gorm:"foreignKey:PurchaseOrderID;references:ID"`
}

// TableName returns the table name for GORM
func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

func newPurchaseOrder(orderType PurchaseOrderType, supplierID, deliveryLocationID *uuid.UUID, notes string) *PurchaseOrder {
	po := &PurchaseOrder{
		BaseEntity:         shared.NewBaseEntity(),
		SupplierID:         supplierID,
		OrderType:          orderType,
		Status:             PurchaseOrderStatusPending,
		DeliveryLocationID: deliveryLocationID,
		TotalAmount:        decimal.Zero,
		Notes:              notes,
	}
	po.PONumber = shared.GenerateDocumentNumber("PO", po.CreatedAt)
	return po
}

// NewPurchaseOrder creates a direct purchase order. Items without a unit cost
// are priced at zero until edited.
func NewPurchaseOrder(supplierID, deliveryLocationID *uuid.UUID, expected *time.Time, notes string, items []LineInput) (*PurchaseOrder, error) {
	if err := validateLineInputs(items); err != nil {
		return nil, err
	}
	po := newPurchaseOrder(PurchaseOrderTypeDirect, supplierID, deliveryLocationID, notes)
	po.ExpectedDeliveryDate = expected
	for _, in := range items {
		po.addItem(in.ItemID, in.Quantity, costOr(in.UnitCost, decimal.Zero), in.Notes)
		if deliveryLocationID != nil {
			po.addDeliveryLocation(*deliveryLocationID, in.ItemID, in.Quantity, nil)
		}
	}
	po.recalculateTotal()
	return po, nil
}

// NewPurchaseOrderFromRequisition raises a requisition based order priced
// from the catalog. The requisition status is left unchanged.
func NewPurchaseOrderFromRequisition(req *Requisition, supplierID *uuid.UUID, prices map[uuid.UUID]decimal.Decimal, notes string) (*PurchaseOrder, error) {
	if !req.CanSource() {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Requisition cannot be used to raise a purchase order in status "+string(req.Status))
	}
	po := newPurchaseOrder(PurchaseOrderTypeRequisitionBased, supplierID, &req.DeliveryLocationID, notes)
	reqID := req.ID
	for _, it := range req.Items {
		qty := it.EffectiveQuantity()
		if !qty.IsPositive() {
			continue
		}
		po.addItem(it.ItemID, qty, prices[it.ItemID], it.Notes)
		po.addDeliveryLocation(req.DeliveryLocationID, it.ItemID, qty, &reqID)
	}
	if len(po.Items) == 0 {
		return nil, shared.NewValidationError("items", "Requisition has no quantities to order")
	}
	po.recalculateTotal()
	return po, nil
}

type consolidationKey struct {
	locationID uuid.UUID
	itemID     uuid.UUID
}

// NewConsolidatedPurchaseOrder merges several requisitions into one order with
// one item and one delivery location per distinct (delivery location, item).
func NewConsolidatedPurchaseOrder(reqs []*Requisition, supplierID *uuid.UUID, prices map[uuid.UUID]decimal.Decimal, notes string) (*PurchaseOrder, error) {
	if len(reqs) == 0 {
		return nil, shared.NewValidationError("requisition_ids", "At least one requisition is required")
	}

	totals := make(map[consolidationKey]decimal.Decimal)
	sources := make(map[consolidationKey][]uuid.UUID)
	for _, req := range reqs {
		if !req.CanSource() {
			return nil, shared.NewDomainError(shared.CodeInvalidState, "Requisition "+req.RequisitionNumber+" cannot be consolidated in status "+string(req.Status))
		}
		for _, it := range req.Items {
			qty := it.EffectiveQuantity()
			if !qty.IsPositive() {
				continue
			}
			key := consolidationKey{locationID: req.DeliveryLocationID, itemID: it.ItemID}
			totals[key] = totals[key].Add(qty)
			sources[key] = append(sources[key], req.ID)
		}
	}
	if len(totals) == 0 {
		return nil, shared.NewValidationError("items", "Requisitions have no quantities to order")
	}

	keys := make([]consolidationKey, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if c := bytes.Compare(keys[i].locationID[:], keys[j].locationID[:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(keys[i].itemID[:], keys[j].itemID[:]) < 0
	})

	po := newPurchaseOrder(PurchaseOrderTypeConsolidated, supplierID, nil, notes)
	for _, k := range keys {
		var reqID *uuid.UUID
		if ids := sources[k]; len(ids) == 1 {
			id := ids[0]
			reqID = &id
		}
		po.addItem(k.itemID, totals[k], prices[k.itemID], "")
		po.addDeliveryLocation(k.locationID, k.itemID, totals[k], reqID)
	}
	po.recalculateTotal()
	return po, nil
}

func (po *PurchaseOrder) addItem(itemID uuid.UUID, qty, unitPrice decimal.Decimal, notes string) {
	po.Items = append(po.Items, PurchaseOrderItem{
		ID:               uuid.New(),
		PurchaseOrderID:  po.ID,
		ItemID:           itemID,
		Quantity:         qty,
		UnitPrice:        unitPrice,
		TotalPrice:       qty.Mul(unitPrice).Round(2),
		ReceivedQuantity: decimal.Zero,
		Notes:            notes,
		CreatedAt:        po.CreatedAt,
	})
}

func (po *PurchaseOrder) addDeliveryLocation(locationID, itemID uuid.UUID, qty decimal.Decimal, reqID *uuid.UUID) {
	po.DeliveryLocations = append(po.DeliveryLocations, PODeliveryLocation{
		ID:              uuid.New(),
		PurchaseOrderID: po.ID,
		LocationID:      locationID,
		ItemID:          itemID,
		Quantity:        qty,
		RequisitionID:   reqID,
		CreatedAt:       po.CreatedAt,
	})
}

func (po *PurchaseOrder) recalculateTotal() {
	total := decimal.Zero
	for _, it := range po.Items {
		total = total.Add(it.TotalPrice)
	}
	po.TotalAmount = total
}

func (po *PurchaseOrder) transitionTo(target PurchaseOrderStatus) error {
	if !po.Status.CanTransitionTo(target) {
		return shared.NewInvalidStateError("purchase order", string(po.Status), string(target))
	}
	po.Status = target
	po.Touch()
	return nil
}

// Approve approves a pending order
func (po *PurchaseOrder) Approve(approvedBy *uuid.UUID) error {
	if err := po.transitionTo(PurchaseOrderStatusApproved); err != nil {
		return err
	}
	now := time.Now()
	po.ApprovedBy = approvedBy
	po.ApprovedAt = &now
	return nil
}

// MarkOrdered records that the order was sent to the supplier
func (po *PurchaseOrder) MarkOrdered() error {
	if err := po.transitionTo(PurchaseOrderStatusOrdered); err != nil {
		return err
	}
	now := time.Now()
	po.OrderedAt = &now
	return nil
}

// Cancel cancels the order
func (po *PurchaseOrder) Cancel() error {
	return po.transitionTo(PurchaseOrderStatusCancelled)
}

// RecordReceipt accumulates received quantities from a GRN and moves the
// order to partially_received. A quantity for an item ordered on several
// lines fills each line up to its remaining quantity in order; the last line
// takes any excess.
func (po *PurchaseOrder) RecordReceipt(received map[uuid.UUID]decimal.Decimal) error {
	if !po.Status.CanReceive() {
		return shared.NewDomainError(shared.CodeInvalidState, "Cannot receive goods for purchase order in status "+string(po.Status))
	}
	lines := make(map[uuid.UUID][]int, len(po.Items))
	for i := range po.Items {
		lines[po.Items[i].ItemID] = append(lines[po.Items[i].ItemID], i)
	}
	for itemID, qty := range received {
		idx := lines[itemID]
		left := qty
		for n, i := range idx {
			take := left
			if n < len(idx)-1 {
				take = decimal.Min(left, po.Items[i].RemainingQuantity())
			}
			po.Items[i].ReceivedQuantity = po.Items[i].ReceivedQuantity.Add(take)
			left = left.Sub(take)
		}
	}
	return po.transitionTo(PurchaseOrderStatusPartiallyReceived)
}

// Complete closes the order once a purchase entry is recorded
func (po *PurchaseOrder) Complete() error {
	if err := po.transitionTo(PurchaseOrderStatusCompleted); err != nil {
		return err
	}
	if po.CompletedAt == nil {
		now := time.Now()
		po.CompletedAt = &now
	}
	return nil
}

// DeliveryGroups returns delivery quantities grouped by location, sorted by location id
func (po *PurchaseOrder) DeliveryGroups() ([]uuid.UUID, map[uuid.UUID][]PODeliveryLocation) {
	groups := make(map[uuid.UUID][]PODeliveryLocation)
	for _, dl := range po.DeliveryLocations {
		groups[dl.LocationID] = append(groups[dl.LocationID], dl)
	}
	ids := make([]uuid.UUID, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
	return ids, groups
}

// PurchaseOrderPatch is an explicit partial update of an unreceived order
type PurchaseOrderPatch struct {
	SupplierID           *uuid.UUID
	DeliveryLocationID   *uuid.UUID
	ExpectedDeliveryDate *time.Time
	Notes                *string
}

// ApplyPatch updates header fields while the order is pending or approved
func (po *PurchaseOrder) ApplyPatch(p PurchaseOrderPatch) error {
	if p.SupplierID == nil && p.DeliveryLocationID == nil && p.ExpectedDeliveryDate == nil && p.Notes == nil {
		return shared.ErrNoFieldsToUpdate
	}
	if po.Status != PurchaseOrderStatusPending && po.Status != PurchaseOrderStatusApproved {
		return shared.NewDomainError(shared.CodeInvalidState, "Purchase order can no longer be edited")
	}
	if p.SupplierID != nil {
		po.SupplierID = p.SupplierID
	}
	if p.DeliveryLocationID != nil {
		po.DeliveryLocationID = p.DeliveryLocationID
	}
	if p.ExpectedDeliveryDate != nil {
		po.ExpectedDeliveryDate = p.ExpectedDeliveryDate
	}
	if p.Notes != nil {
		po.Notes = *p.Notes
	}
	po.Touch()
	return nil
}
