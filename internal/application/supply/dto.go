package supply

import (
	"time"

	"github.com/erp/stockcore/internal/domain/supply"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineRequest is one item line in a create request
type LineRequest struct {
	ItemID   uuid.UUID        `json:"item_id" binding:"required"`
	Quantity decimal.Decimal  `json:"quantity" binding:"dgt0"`
	UnitCost *decimal.Decimal `json:"unit_cost"`
	Notes    string           `json:"notes"`
}

// QuantityRequest sets a per-item quantity on a transition
type QuantityRequest struct {
	ItemID   uuid.UUID       `json:"item_id" binding:"required"`
	Quantity decimal.Decimal `json:"quantity" binding:"dgte0"`
}

// OverrideRequest replaces derived values of one item in a from-X derivation
type OverrideRequest struct {
	ItemID      uuid.UUID        `json:"item_id" binding:"required"`
	Quantity    *decimal.Decimal `json:"quantity"`
	UnitCost    *decimal.Decimal `json:"unit_cost"`
	BatchNumber string           `json:"batch_number"`
	ExpiryDate  *time.Time       `json:"expiry_date"`
}

// ListFilter narrows supply document listings
type ListFilter struct {
	Status     string     `form:"status"`
	LocationID *uuid.UUID `form:"-"`
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ApproveRequest records who approved a document
type ApproveRequest struct {
	ApprovedBy *uuid.UUID        `json:"approved_by"`
	Items      []QuantityRequest `json:"items" binding:"omitempty,dive"`
}

// QuantitiesRequest carries per-item quantities for dispatch or receipt
type QuantitiesRequest struct {
	Items []QuantityRequest `json:"items" binding:"omitempty,dive"`
}

// CreateRequisitionRequest is the body of requisition creation
type CreateRequisitionRequest struct {
	SourceLocationID   *uuid.UUID    `json:"source_location_id"`
	DeliveryLocationID uuid.UUID     `json:"delivery_location_id" binding:"required"`
	RequiredBy         *time.Time    `json:"required_by"`
	Notes              string        `json:"notes"`
	Items              []LineRequest `json:"items" binding:"required,min=1,dive"`
}

// UpdateRequisitionRequest patches header fields
type UpdateRequisitionRequest struct {
	SourceLocationID   *uuid.UUID `json:"source_location_id"`
	DeliveryLocationID *uuid.UUID `json:"delivery_location_id"`
	RequiredBy         *time.Time `json:"required_by"`
	Notes              *string    `json:"notes"`
}

// CreatePurchaseOrderRequest is the body of direct purchase order creation
type CreatePurchaseOrderRequest struct {
	SupplierID           *uuid.UUID    `json:"supplier_id"`
	DeliveryLocationID   *uuid.UUID    `json:"delivery_location_id"`
	ExpectedDeliveryDate *time.Time    `json:"expected_delivery_date"`
	Notes                string        `json:"notes"`
	Items                []LineRequest `json:"items" binding:"required,min=1,dive"`
}

// PurchaseOrderFromRequisitionRequest raises an order from one requisition
type PurchaseOrderFromRequisitionRequest struct {
	RequisitionID uuid.UUID  `json:"requisition_id" binding:"required"`
	SupplierID    *uuid.UUID `json:"supplier_id"`
	Notes         string     `json:"notes"`
}

// ConsolidatedPurchaseOrderRequest merges several requisitions into one order
type ConsolidatedPurchaseOrderRequest struct {
	RequisitionIDs []uuid.UUID `json:"requisition_ids" binding:"required,min=1"`
	SupplierID     *uuid.UUID  `json:"supplier_id"`
	Notes          string      `json:"notes"`
}

// UpdatePurchaseOrderRequest patches header fields
type UpdatePurchaseOrderRequest struct {
	SupplierID           *uuid.UUID `json:"supplier_id"`
	DeliveryLocationID   *uuid.UUID `json:"delivery_location_id"`
	ExpectedDeliveryDate *time.Time `json:"expected_delivery_date"`
	Notes                *string    `json:"notes"`
}

// GRNItemRequest is one line of a direct GRN
type GRNItemRequest struct {
	ItemID              uuid.UUID        `json:"item_id" binding:"required"`
	PurchaseOrderItemID *uuid.UUID       `json:"purchase_order_item_id"`
	ExpectedQuantity    decimal.Decimal  `json:"expected_quantity" binding:"dgte0"`
	ReceivedQuantity    decimal.Decimal  `json:"received_quantity" binding:"dgte0"`
	UnitCost            decimal.Decimal  `json:"unit_cost" binding:"dgte0"`
	ExpectedCost        *decimal.Decimal `json:"expected_cost"`
	BatchNumber         string           `json:"batch_number"`
	ExpiryDate          *time.Time       `json:"expiry_date"`
	Notes               string           `json:"notes"`
}

// CreateGRNRequest is the body of direct GRN creation
type CreateGRNRequest struct {
	PurchaseOrderID *uuid.UUID       `json:"purchase_order_id"`
	SupplierID      *uuid.UUID       `json:"supplier_id"`
	LocationID      uuid.UUID        `json:"location_id" binding:"required"`
	Status          string           `json:"status" binding:"omitempty,oneof=received partial rejected"`
	Notes           string           `json:"notes"`
	Items           []GRNItemRequest `json:"items" binding:"required,min=1,dive"`
}

// GRNFromPORequest receives goods against a purchase order
type GRNFromPORequest struct {
	PurchaseOrderID uuid.UUID         `json:"purchase_order_id" binding:"required"`
	LocationID      *uuid.UUID        `json:"location_id"`
	Status          string            `json:"status" binding:"omitempty,oneof=received partial rejected"`
	Notes           string            `json:"notes"`
	Items           []OverrideRequest `json:"items" binding:"omitempty,dive"`
}

// PurchaseEntryHeaderRequest holds the common purchase entry fields
type PurchaseEntryHeaderRequest struct {
	SupplierID    *uuid.UUID      `json:"supplier_id"`
	LocationID    *uuid.UUID      `json:"location_id"`
	InvoiceNumber string          `json:"invoice_number"`
	PaidAmount    decimal.Decimal `json:"paid_amount" binding:"dgte0"`
	Notes         string          `json:"notes"`
}

func (h PurchaseEntryHeaderRequest) toHeader() supply.PurchaseEntryHeader {
	return supply.PurchaseEntryHeader{
		SupplierID:    h.SupplierID,
		LocationID:    h.LocationID,
		InvoiceNumber: h.InvoiceNumber,
		PaidAmount:    h.PaidAmount,
		Notes:         h.Notes,
	}
}

// CreatePurchaseEntryRequest is the body of a direct purchase entry
type CreatePurchaseEntryRequest struct {
	PurchaseEntryHeaderRequest
	Items []LineRequest `json:"items" binding:"required,min=1,dive"`
}

// PurchaseEntryFromGRNRequest records the accounting entry of a receipt
type PurchaseEntryFromGRNRequest struct {
	PurchaseEntryHeaderRequest
	GRNID uuid.UUID         `json:"grn_id" binding:"required"`
	Items []OverrideRequest `json:"items" binding:"omitempty,dive"`
}

// PurchaseEntryFromPORequest records an entry directly against an order
type PurchaseEntryFromPORequest struct {
	PurchaseEntryHeaderRequest
	PurchaseOrderID uuid.UUID         `json:"purchase_order_id" binding:"required"`
	Items           []OverrideRequest `json:"items" binding:"omitempty,dive"`
}

// PaymentRequest records a payment against a purchase entry
type PaymentRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"dgt0"`
}

// CreateTransferRequest is the body of a manual transfer
type CreateTransferRequest struct {
	TransferType          string        `json:"transfer_type"`
	SourceLocationID      *uuid.UUID    `json:"source_location_id"`
	DestinationLocationID uuid.UUID     `json:"destination_location_id" binding:"required"`
	Notes                 string        `json:"notes"`
	Items                 []LineRequest `json:"items" binding:"required,min=1,dive"`
}

// TransferFromDocumentRequest derives a transfer from a GRN, purchase entry or requisition
type TransferFromDocumentRequest struct {
	SourceID              uuid.UUID         `json:"source_id" binding:"required"`
	SourceLocationID      *uuid.UUID        `json:"source_location_id"`
	DestinationLocationID uuid.UUID         `json:"destination_location_id"`
	Notes                 string            `json:"notes"`
	Items                 []OverrideRequest `json:"items" binding:"omitempty,dive"`
}

// TransfersFromPORequest fans a purchase order out to its delivery locations
type TransfersFromPORequest struct {
	PurchaseOrderID  uuid.UUID `json:"purchase_order_id" binding:"required"`
	SourceLocationID uuid.UUID `json:"source_location_id" binding:"required"`
	Notes            string    `json:"notes"`
}

func toLineInputs(items []LineRequest) []supply.LineInput {
	out := make([]supply.LineInput, len(items))
	for i, it := range items {
		out[i] = supply.LineInput{ItemID: it.ItemID, Quantity: it.Quantity, UnitCost: it.UnitCost, Notes: it.Notes}
	}
	return out
}

func toQuantities(items []QuantityRequest) map[uuid.UUID]decimal.Decimal {
	if len(items) == 0 {
		return nil
	}
	out := make(map[uuid.UUID]decimal.Decimal, len(items))
	for _, it := range items {
		out[it.ItemID] = it.Quantity
	}
	return out
}

func toOverrides(items []OverrideRequest) map[uuid.UUID]supply.ItemOverride {
	if len(items) == 0 {
		return nil
	}
	out := make(map[uuid.UUID]supply.ItemOverride, len(items))
	for _, it := range items {
		out[it.ItemID] = supply.ItemOverride{
			Quantity:    it.Quantity,
			UnitCost:    it.UnitCost,
			BatchNumber: it.BatchNumber,
			ExpiryDate:  it.ExpiryDate,
		}
	}
	return out
}
