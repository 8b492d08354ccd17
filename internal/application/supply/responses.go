package supply

import (
	"time"

	"github.com/erp/stockcore/internal/domain/supply"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RequisitionItemResponse is one requisition line in API responses
type RequisitionItemResponse struct {
	ID                uuid.UUID        `json:"id"`
	ItemID            uuid.UUID        `json:"item_id"`
	RequestedQuantity decimal.Decimal  `json:"requested_quantity"`
	ApprovedQuantity  *decimal.Decimal `json:"approved_quantity,omitempty"`
	ReceivedQuantity  decimal.Decimal  `json:"received_quantity"`
	Notes             string           `json:"notes,omitempty"`
}

// RequisitionResponse represents a requisition in API responses
type RequisitionResponse struct {
	ID                 uuid.UUID                 `json:"id"`
	RequisitionNumber  string                    `json:"requisition_number"`
	SourceLocationID   *uuid.UUID                `json:"source_location_id,omitempty"`
	DeliveryLocationID uuid.UUID                 `json:"delivery_location_id"`
	Status             string                    `json:"status"`
	RequiredBy         *time.Time                `json:"required_by,omitempty"`
	ApprovedBy         *uuid.UUID                `json:"approved_by,omitempty"`
	ApprovedAt         *time.Time                `json:"approved_at,omitempty"`
	ReceivedAt         *time.Time                `json:"received_at,omitempty"`
	Notes              string                    `json:"notes,omitempty"`
	Items              []RequisitionItemResponse `json:"items"`
	CreatedAt          time.Time                 `json:"created_at"`
	UpdatedAt          time.Time                 `json:"updated_at"`
}

// ToRequisitionResponse converts a domain requisition to a response
func ToRequisitionResponse(r *supply.Requisition) RequisitionResponse {
	items := make([]RequisitionItemResponse, len(r.Items))
	for i, it := range r.Items {
		items[i] = RequisitionItemResponse{
			ID:                it.ID,
			ItemID:            it.ItemID,
			RequestedQuantity: it.RequestedQuantity,
			ApprovedQuantity:  it.ApprovedQuantity,
			ReceivedQuantity:  it.ReceivedQuantity,
			Notes:             it.Notes,
		}
	}
	return RequisitionResponse{
		ID:                 r.ID,
		RequisitionNumber:  r.RequisitionNumber,
		SourceLocationID:   r.SourceLocationID,
		DeliveryLocationID: r.DeliveryLocationID,
		Status:             string(r.Status),
		RequiredBy:         r.RequiredBy,
		ApprovedBy:         r.ApprovedBy,
		ApprovedAt:         r.ApprovedAt,
		ReceivedAt:         r.ReceivedAt,
		Notes:              r.Notes,
		Items:              items,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

// PurchaseOrderItemResponse is one purchase order line in API responses
type PurchaseOrderItemResponse struct {
	ID                uuid.UUID       `json:"id"`
	ItemID            uuid.UUID       `json:"item_id"`
	Quantity          decimal.Decimal `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	TotalPrice        decimal.Decimal `json:"total_price"`
	ReceivedQuantity  decimal.Decimal `json:"received_quantity"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	Notes             string          `json:"notes,omitempty"`
}

// DeliveryLocationResponse is one delivery split of a purchase order
type DeliveryLocationResponse struct {
	LocationID    uuid.UUID       `json:"location_id"`
	ItemID        uuid.UUID       `json:"item_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	RequisitionID *uuid.UUID      `json:"requisition_id,omitempty"`
}

// PurchaseOrderResponse represents a purchase order in API responses
type PurchaseOrderResponse struct {
	ID                   uuid.UUID                   `json:"id"`
	PONumber             string                      `json:"po_number"`
	SupplierID           *uuid.UUID                  `json:"supplier_id,omitempty"`
	OrderType            string                      `json:"order_type"`
	Status               string                      `json:"status"`
	DeliveryLocationID   *uuid.UUID                  `json:"delivery_location_id,omitempty"`
	TotalAmount          decimal.Decimal             `json:"total_amount"`
	ExpectedDeliveryDate *time.Time                  `json:"expected_delivery_date,omitempty"`
	ApprovedBy           *uuid.UUID                  `json:"approved_by,omitempty"`
	ApprovedAt           *time.Time                  `json:"approved_at,omitempty"`
	OrderedAt            *time.Time                  `json:"ordered_at,omitempty"`
	CompletedAt          *time.Time                  `json:"completed_at,omitempty"`
	Notes                string                      `json:"notes,omitempty"`
	Items                []PurchaseOrderItemResponse `json:"items"`
	DeliveryLocations    []DeliveryLocationResponse  `json:"delivery_locations,omitempty"`
	CreatedAt            time.Time                   `json:"created_at"`
	UpdatedAt            time.Time                   `json:"updated_at"`
}

// ToPurchaseOrderResponse converts a domain purchase order to a response
func ToPurchaseOrderResponse(po *supply.PurchaseOrder) PurchaseOrderResponse {
	items := make([]PurchaseOrderItemResponse, len(po.Items))
	for i := range po.Items {
		it := &po.Items[i]
		items[i] = PurchaseOrderItemResponse{
			ID:                it.ID,
			ItemID:            it.ItemID,
			Quantity:          it.Quantity,
			UnitPrice:         it.UnitPrice,
			TotalPrice:        it.TotalPrice,
			ReceivedQuantity:  it.ReceivedQuantity,
			RemainingQuantity: it.RemainingQuantity(),
			Notes:             it.Notes,
		}
	}
	var deliveries []DeliveryLocationResponse
	for _, d := range po.DeliveryLocations {
		deliveries = append(deliveries, DeliveryLocationResponse{
			LocationID:    d.LocationID,
			ItemID:        d.ItemID,
			Quantity:      d.Quantity,
			RequisitionID: d.RequisitionID,
		})
	}
	return PurchaseOrderResponse{
		ID:                   po.ID,
		PONumber:             po.PONumber,
		SupplierID:           po.SupplierID,
		OrderType:            string(po.OrderType),
		Status:               string(po.Status),
		DeliveryLocationID:   po.DeliveryLocationID,
		TotalAmount:          po.TotalAmount,
		ExpectedDeliveryDate: po.ExpectedDeliveryDate,
		ApprovedBy:           po.ApprovedBy,
		ApprovedAt:           po.ApprovedAt,
		OrderedAt:            po.OrderedAt,
		CompletedAt:          po.CompletedAt,
		Notes:                po.Notes,
		Items:                items,
		DeliveryLocations:    deliveries,
		CreatedAt:            po.CreatedAt,
		UpdatedAt:            po.UpdatedAt,
	}
}

// GRNItemResponse is one received line in API responses
type GRNItemResponse struct {
	ID                  uuid.UUID       `json:"id"`
	ItemID              uuid.UUID       `json:"item_id"`
	PurchaseOrderItemID *uuid.UUID      `json:"purchase_order_item_id,omitempty"`
	ExpectedQuantity    decimal.Decimal `json:"expected_quantity"`
	ReceivedQuantity    decimal.Decimal `json:"received_quantity"`
	UnitCost            decimal.Decimal `json:"unit_cost"`
	ExpectedCost        decimal.Decimal `json:"expected_cost"`
	BatchNumber         string          `json:"batch_number,omitempty"`
	ExpiryDate          *time.Time      `json:"expiry_date,omitempty"`
	Notes               string          `json:"notes,omitempty"`
}

// GRNResponse represents a goods received note in API responses
type GRNResponse struct {
	ID              uuid.UUID         `json:"id"`
	GRNNumber       string            `json:"grn_number"`
	PurchaseOrderID *uuid.UUID        `json:"purchase_order_id,omitempty"`
	SupplierID      *uuid.UUID        `json:"supplier_id,omitempty"`
	LocationID      uuid.UUID         `json:"location_id"`
	Status          string            `json:"status"`
	ReceivedAt      time.Time         `json:"received_at"`
	TotalCost       decimal.Decimal   `json:"total_cost"`
	Notes           string            `json:"notes,omitempty"`
	Items           []GRNItemResponse `json:"items"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// ToGRNResponse converts a domain GRN to a response
func ToGRNResponse(g *supply.GRN) GRNResponse {
	items := make([]GRNItemResponse, len(g.Items))
	for i, it := range g.Items {
		items[i] = GRNItemResponse{
			ID:                  it.ID,
			ItemID:              it.ItemID,
			PurchaseOrderItemID: it.PurchaseOrderItemID,
			ExpectedQuantity:    it.ExpectedQuantity,
			ReceivedQuantity:    it.ReceivedQuantity,
			UnitCost:            it.UnitCost,
			ExpectedCost:        it.ExpectedCost,
			BatchNumber:         it.BatchNumber,
			ExpiryDate:          it.ExpiryDate,
			Notes:               it.Notes,
		}
	}
	return GRNResponse{
		ID:              g.ID,
		GRNNumber:       g.GRNNumber,
		PurchaseOrderID: g.PurchaseOrderID,
		SupplierID:      g.SupplierID,
		LocationID:      g.LocationID,
		Status:          string(g.Status),
		ReceivedAt:      g.ReceivedAt,
		TotalCost:       g.TotalCost,
		Notes:           g.Notes,
		Items:           items,
		CreatedAt:       g.CreatedAt,
		UpdatedAt:       g.UpdatedAt,
	}
}

// PurchaseEntryItemResponse is one costed line in API responses
type PurchaseEntryItemResponse struct {
	ID        uuid.UUID       `json:"id"`
	ItemID    uuid.UUID       `json:"item_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	TotalCost decimal.Decimal `json:"total_cost"`
	Notes     string          `json:"notes,omitempty"`
}

// PurchaseEntryResponse represents a purchase entry in API responses
type PurchaseEntryResponse struct {
	ID                uuid.UUID                   `json:"id"`
	EntryNumber       string                      `json:"entry_number"`
	PurchaseOrderID   *uuid.UUID                  `json:"purchase_order_id,omitempty"`
	GRNID             *uuid.UUID                  `json:"grn_id,omitempty"`
	SupplierID        *uuid.UUID                  `json:"supplier_id,omitempty"`
	LocationID        *uuid.UUID                  `json:"location_id,omitempty"`
	IsDirectPE        bool                        `json:"is_direct_pe"`
	InvoiceNumber     string                      `json:"invoice_number,omitempty"`
	PaymentStatus     string                      `json:"payment_status"`
	TotalAmount       decimal.Decimal             `json:"total_amount"`
	PaidAmount        decimal.Decimal             `json:"paid_amount"`
	OutstandingAmount decimal.Decimal             `json:"outstanding_amount"`
	Notes             string                      `json:"notes,omitempty"`
	Items             []PurchaseEntryItemResponse `json:"items"`
	CreatedAt         time.Time                   `json:"created_at"`
	UpdatedAt         time.Time                   `json:"updated_at"`
}

// ToPurchaseEntryResponse converts a domain purchase entry to a response
func ToPurchaseEntryResponse(pe *supply.PurchaseEntry) PurchaseEntryResponse {
	items := make([]PurchaseEntryItemResponse, len(pe.Items))
	for i, it := range pe.Items {
		items[i] = PurchaseEntryItemResponse{
			ID:        it.ID,
			ItemID:    it.ItemID,
			Quantity:  it.Quantity,
			UnitCost:  it.UnitCost,
			TotalCost: it.TotalCost,
			Notes:     it.Notes,
		}
	}
	return PurchaseEntryResponse{
		ID:                pe.ID,
		EntryNumber:       pe.EntryNumber,
		PurchaseOrderID:   pe.PurchaseOrderID,
		GRNID:             pe.GRNID,
		SupplierID:        pe.SupplierID,
		LocationID:        pe.LocationID,
		IsDirectPE:        pe.IsDirectPE,
		InvoiceNumber:     pe.InvoiceNumber,
		PaymentStatus:     string(pe.PaymentStatus),
		TotalAmount:       pe.TotalAmount,
		PaidAmount:        pe.PaidAmount,
		OutstandingAmount: pe.OutstandingAmount(),
		Notes:             pe.Notes,
		Items:             items,
		CreatedAt:         pe.CreatedAt,
		UpdatedAt:         pe.UpdatedAt,
	}
}

// TransferItemResponse is one transfer line in API responses
type TransferItemResponse struct {
	ID                 uuid.UUID        `json:"id"`
	ItemID             uuid.UUID        `json:"item_id"`
	RequestedQuantity  decimal.Decimal  `json:"requested_quantity"`
	DispatchedQuantity decimal.Decimal  `json:"dispatched_quantity"`
	ReceivedQuantity   decimal.Decimal  `json:"received_quantity"`
	UnitCost           *decimal.Decimal `json:"unit_cost,omitempty"`
	Notes              string           `json:"notes,omitempty"`
}

// TransferResponse represents a stock transfer in API responses
type TransferResponse struct {
	ID                    uuid.UUID              `json:"id"`
	TransferNumber        string                 `json:"transfer_number"`
	TransferType          string                 `json:"transfer_type"`
	SourceLocationID      *uuid.UUID             `json:"source_location_id,omitempty"`
	DestinationLocationID uuid.UUID              `json:"destination_location_id"`
	Status                string                 `json:"status"`
	ReferenceType         string                 `json:"reference_type,omitempty"`
	ReferenceID           *uuid.UUID             `json:"reference_id,omitempty"`
	ApprovedBy            *uuid.UUID             `json:"approved_by,omitempty"`
	ApprovedAt            *time.Time             `json:"approved_at,omitempty"`
	DispatchedAt          *time.Time             `json:"dispatched_at,omitempty"`
	InTransitAt           *time.Time             `json:"in_transit_at,omitempty"`
	ReceivedAt            *time.Time             `json:"received_at,omitempty"`
	Notes                 string                 `json:"notes,omitempty"`
	Items                 []TransferItemResponse `json:"items"`
	CreatedAt             time.Time              `json:"created_at"`
	UpdatedAt             time.Time              `json:"updated_at"`
}

// ToTransferResponse converts a domain transfer to a response
func ToTransferResponse(t *supply.StockTransfer) TransferResponse {
	items := make([]TransferItemResponse, len(t.Items))
	for i, it := range t.Items {
		items[i] = TransferItemResponse{
			ID:                 it.ID,
			ItemID:             it.ItemID,
			RequestedQuantity:  it.RequestedQuantity,
			DispatchedQuantity: it.DispatchedQuantity,
			ReceivedQuantity:   it.ReceivedQuantity,
			UnitCost:           it.UnitCost,
			Notes:              it.Notes,
		}
	}
	return TransferResponse{
		ID:                    t.ID,
		TransferNumber:        t.TransferNumber,
		TransferType:          string(t.TransferType),
		SourceLocationID:      t.SourceLocationID,
		DestinationLocationID: t.DestinationLocationID,
		Status:                string(t.Status),
		ReferenceType:         string(t.ReferenceType),
		ReferenceID:           t.ReferenceID,
		ApprovedBy:            t.ApprovedBy,
		ApprovedAt:            t.ApprovedAt,
		DispatchedAt:          t.DispatchedAt,
		InTransitAt:           t.InTransitAt,
		ReceivedAt:            t.ReceivedAt,
		Notes:                 t.Notes,
		Items:                 items,
		CreatedAt:             t.CreatedAt,
		UpdatedAt:             t.UpdatedAt,
	}
}
