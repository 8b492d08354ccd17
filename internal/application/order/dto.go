package order

import (
	"time"

	"github.com/erp/stockcore/internal/domain/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemRequest is one order line in a request body
type ItemRequest struct {
	ItemID    uuid.UUID        `json:"item_id" binding:"required"`
	Quantity  decimal.Decimal  `json:"quantity" binding:"dgt0"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	Notes     string           `json:"notes"`
}

// CreateOrderRequest is the body of order creation
type CreateOrderRequest struct {
	LocationID uuid.UUID     `json:"location_id" binding:"required"`
	Status     string        `json:"status"`
	Notes      string        `json:"notes"`
	Items      []ItemRequest `json:"items" binding:"required,min=1,dive"`
}

// UpdateStatusRequest changes the order status
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ReplaceItemsRequest swaps every line of an order
type ReplaceItemsRequest struct {
	Items []ItemRequest `json:"items" binding:"required,min=1,dive"`
}

// ListFilter narrows order listings
type ListFilter struct {
	Status     string     `form:"status"`
	LocationID *uuid.UUID `form:"-"`
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ItemResponse is one order line in API responses
type ItemResponse struct {
	ID        uuid.UUID        `json:"id"`
	ItemID    uuid.UUID        `json:"item_id"`
	Quantity  decimal.Decimal  `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	Notes     string           `json:"notes,omitempty"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID              uuid.UUID      `json:"id"`
	OrderNumber     string         `json:"order_number"`
	LocationID      uuid.UUID      `json:"location_id"`
	Status          string         `json:"status"`
	Notes           string         `json:"notes,omitempty"`
	ApprovedAt      *time.Time     `json:"approved_at,omitempty"`
	StockDeductedAt *time.Time     `json:"stock_deducted_at,omitempty"`
	Items           []ItemResponse `json:"items"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// ToOrderResponse converts a domain order to a response
func ToOrderResponse(o *order.Order) OrderResponse {
	items := make([]ItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = ItemResponse{
			ID:        it.ID,
			ItemID:    it.ItemID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Notes:     it.Notes,
		}
	}
	return OrderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		LocationID:      o.LocationID,
		Status:          string(o.Status),
		Notes:           o.Notes,
		ApprovedAt:      o.ApprovedAt,
		StockDeductedAt: o.StockDeductedAt,
		Items:           items,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func toItemInputs(items []ItemRequest) []order.ItemInput {
	out := make([]order.ItemInput, len(items))
	for i, it := range items {
		out[i] = order.ItemInput{
			ItemID:    it.ItemID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Notes:     it.Notes,
		}
	}
	return out
}
