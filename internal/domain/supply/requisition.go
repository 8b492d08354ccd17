package supply

import (
	"fmt"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RequisitionStatus represents the status of a requisition
type RequisitionStatus string

const (
	RequisitionStatusPending   RequisitionStatus = "pending"
	RequisitionStatusApproved  RequisitionStatus = "approved"
	RequisitionStatusReceived  RequisitionStatus = "received"
	RequisitionStatusCancelled RequisitionStatus = "cancelled"
)

// IsValid checks if the status is a valid RequisitionStatus
func (s RequisitionStatus) IsValid() bool {
	switch s {
	case RequisitionStatusPending, RequisitionStatusApproved,
		RequisitionStatusReceived, RequisitionStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo checks if the status can transition to the target status
func (s RequisitionStatus) CanTransitionTo(target RequisitionStatus) bool {
	switch s {
	case RequisitionStatusPending:
		return target == RequisitionStatusApproved || target == RequisitionStatusCancelled
	case RequisitionStatusApproved:
		return target == RequisitionStatusReceived
	}
	return false
}

// RequisitionItem is one requested item of a requisition
type RequisitionItem struct {
	ID                uuid.UUID        `gorm:"type:uuid;primaryKey"`
	RequisitionID     uuid.UUID        `gorm:"type:uuid;not null;index"`
	ItemID            uuid.UUID        `gorm:"type:uuid;not null"`
	RequestedQuantity decimal.Decimal  `gorm:"type:numeric(10,3);not null"`
	ApprovedQuantity  *decimal.Decimal `gorm:"type:numeric(10,3)"`
	ReceivedQuantity  decimal.Decimal  `gorm:"type:numeric(10,3);not null;default:0"`
	Notes             string           `gorm:"type:text"`
	CreatedAt         time.Time        `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RequisitionItem) TableName() string {
	return "requisition_items"
}

// EffectiveQuantity is the approved quantity when set, else the requested one
func (i *RequisitionItem) EffectiveQuantity() decimal.Decimal {
	if i.ApprovedQuantity != nil {
		return *i.ApprovedQuantity
	}
	return i.RequestedQuantity
}

// Requisition is an internal request to move stock to a delivery location
type Requisition struct {
	shared.BaseEntity
	RequisitionNumber  string            `gorm:"type:varchar(50);not null;uniqueIndex"`
	SourceLocationID   *uuid.UUID        `gorm:"type:uuid"`
	DeliveryLocationID uuid.UUID         `gorm:"type:uuid;not null;index"`
	Status             RequisitionStatus `gorm:"type:varchar(20);not null;index"`
	RequiredBy         *time.Time
	ApprovedBy         *uuid.UUID `gorm:"type:uuid"`
	ApprovedAt         *time.Time
	ReceivedAt         *time.Time
	Notes              string            `gorm:"type:text"`
	Items              []RequisitionItem `gorm:"foreignKey:RequisitionID;references:ID"`
}

// TableName returns the table name for GORM
func (Requisition) TableName() string {
	return "requisitions"
}

// NewRequisition creates a pending requisition
func NewRequisition(sourceLocationID *uuid.UUID, deliveryLocationID uuid.UUID, requiredBy *time.Time, notes string, items []LineInput) (*Requisition, error) {
	if deliveryLocationID == uuid.Nil {
		return nil, shared.NewValidationError("delivery_location_id", "Delivery location cannot be empty")
	}
	if sourceLocationID != nil && *sourceLocationID == deliveryLocationID {
		return nil, shared.NewValidationError("source_location_id", "Source and delivery location must differ")
	}
	if err := validateLineInputs(items); err != nil {
		return nil, err
	}

	r := &Requisition{
		BaseEntity:         shared.NewBaseEntity(),
		SourceLocationID:   sourceLocationID,
		DeliveryLocationID: deliveryLocationID,
		Status:             RequisitionStatusPending,
		RequiredBy:         requiredBy,
		Notes:              notes,
	}
	r.RequisitionNumber = shared.GenerateDocumentNumber("REQ", r.CreatedAt)
	for _, in := range items {
		r.Items = append(r.Items, RequisitionItem{
			ID:                uuid.New(),
			RequisitionID:     r.ID,
			ItemID:            in.ItemID,
			RequestedQuantity: in.Quantity,
			ReceivedQuantity:  decimal.Zero,
			Notes:             in.Notes,
			CreatedAt:         r.CreatedAt,
		})
	}
	return r, nil
}

func (r *Requisition) transitionTo(target RequisitionStatus) error {
	if !r.Status.CanTransitionTo(target) {
		return shared.NewInvalidStateError("requisition", string(r.Status), string(target))
	}
	r.Status = target
	r.Touch()
	return nil
}

// Approve approves the requisition, optionally overriding quantities per item
func (r *Requisition) Approve(approvedBy *uuid.UUID, quantities map[uuid.UUID]decimal.Decimal) error {
	for itemID, qty := range quantities {
		if qty.IsNegative() {
			return shared.NewValidationError("approved_quantity", "Approved quantity cannot be negative")
		}
		if err := stock.CheckScale("approved_quantity", qty); err != nil {
			return err
		}
		if r.findItem(itemID) == nil {
			return shared.NewNotFoundError("requisition item", itemID)
		}
	}
	if err := r.transitionTo(RequisitionStatusApproved); err != nil {
		return err
	}
	for i := range r.Items {
		qty, ok := quantities[r.Items[i].ItemID]
		if !ok {
			qty = r.Items[i].RequestedQuantity
		}
		r.Items[i].ApprovedQuantity = &qty
	}
	now := time.Now()
	r.ApprovedBy = approvedBy
	r.ApprovedAt = &now
	return nil
}

// Receive records actual received quantities. Items not listed are taken as
// fully received at their effective quantity. Stock is not touched here; a
// transfer moves the goods.
func (r *Requisition) Receive(received map[uuid.UUID]decimal.Decimal) error {
	for itemID, qty := range received {
		if qty.IsNegative() {
			return shared.NewValidationError("received_quantity", "Received quantity cannot be negative")
		}
		if err := stock.CheckScale("received_quantity", qty); err != nil {
			return err
		}
		if r.findItem(itemID) == nil {
			return shared.NewNotFoundError("requisition item", itemID)
		}
	}
	if err := r.transitionTo(RequisitionStatusReceived); err != nil {
		return err
	}
	for i := range r.Items {
		qty, ok := received[r.Items[i].ItemID]
		if !ok {
			qty = r.Items[i].EffectiveQuantity()
		}
		r.Items[i].ReceivedQuantity = qty
	}
	now := time.Now()
	r.ReceivedAt = &now
	return nil
}

// Cancel cancels a pending requisition
func (r *Requisition) Cancel() error {
	return r.transitionTo(RequisitionStatusCancelled)
}

// CanDelete allows deletion only while pending
func (r *Requisition) CanDelete() error {
	if r.Status != RequisitionStatusPending {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Cannot delete a %s requisition", r.Status))
	}
	return nil
}

// CanSource reports whether the requisition can feed a purchase order or transfer
func (r *Requisition) CanSource() bool {
	return r.Status == RequisitionStatusPending || r.Status == RequisitionStatusApproved
}

// RequisitionPatch is an explicit partial update of a pending requisition
type RequisitionPatch struct {
	SourceLocationID   *uuid.UUID
	DeliveryLocationID *uuid.UUID
	RequiredBy         *time.Time
	Notes              *string
}

// ApplyPatch updates header fields of a pending requisition
func (r *Requisition) ApplyPatch(p RequisitionPatch) error {
	if p.SourceLocationID == nil && p.DeliveryLocationID == nil && p.RequiredBy == nil && p.Notes == nil {
		return shared.ErrNoFieldsToUpdate
	}
	if r.Status != RequisitionStatusPending {
		return shared.NewDomainError(shared.CodeInvalidState, "Only pending requisitions can be edited")
	}
	if p.DeliveryLocationID != nil {
		if *p.DeliveryLocationID == uuid.Nil {
			return shared.NewValidationError("delivery_location_id", "Delivery location cannot be empty")
		}
		r.DeliveryLocationID = *p.DeliveryLocationID
	}
	if p.SourceLocationID != nil {
		r.SourceLocationID = p.SourceLocationID
	}
	if r.SourceLocationID != nil && *r.SourceLocationID == r.DeliveryLocationID {
		return shared.NewValidationError("source_location_id", "Source and delivery location must differ")
	}
	if p.RequiredBy != nil {
		r.RequiredBy = p.RequiredBy
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
	r.Touch()
	return nil
}

func (r *Requisition) findItem(itemID uuid.UUID) *RequisitionItem {
	for i := range r.Items {
		if r.Items[i].ItemID == itemID {
			return &r.Items[i]
		}
	}
	return nil
}
