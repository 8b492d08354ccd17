package stock

import (
	"time"

	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LocationStockResponse represents a balance row in API responses
type LocationStockResponse struct {
	ID                uuid.UUID       `json:"id"`
	LocationID        uuid.UUID       `json:"location_id"`
	ItemID            uuid.UUID       `json:"item_id"`
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
	ReservedQuantity  decimal.Decimal `json:"reserved_quantity"`
	AllocatedQuantity decimal.Decimal `json:"allocated_quantity"`
	MinQuantity       decimal.Decimal `json:"min_quantity"`
	MaxQuantity       decimal.Decimal `json:"max_quantity"`
	IsBelowMinimum    bool            `json:"is_below_minimum"`
	LastUpdated       time.Time       `json:"last_updated"`
}

// ToLocationStockResponse converts a domain row to a response
func ToLocationStockResponse(s *stock.LocationStock) LocationStockResponse {
	return LocationStockResponse{
		ID:                s.ID,
		LocationID:        s.LocationID,
		ItemID:            s.ItemID,
		AvailableQuantity: s.AvailableQuantity,
		ReservedQuantity:  s.ReservedQuantity,
		AllocatedQuantity: s.AllocatedQuantity,
		MinQuantity:       s.MinQuantity,
		MaxQuantity:       s.MaxQuantity,
		IsBelowMinimum:    s.IsBelowMinimum(),
		LastUpdated:       s.LastUpdated,
	}
}

// AdjustRequest is the body of a single quantity adjustment
type AdjustRequest struct {
	Quantity     decimal.Decimal       `json:"quantity" binding:"dgte0"`
	Operation    stock.AdjustOperation `json:"operation" binding:"required,oneof=add subtract set"`
	QuantityType stock.QuantityType    `json:"quantity_type" binding:"omitempty,oneof=available reserved allocated"`
	MovementType stock.MovementType    `json:"movement_type" binding:"omitempty"`
	UnitCost     *decimal.Decimal      `json:"unit_cost"`
	Notes        string                `json:"notes"`
}

// AvailabilityRequest asks whether a location can serve the listed lines
type AvailabilityRequest struct {
	LocationID uuid.UUID    `json:"location_id" binding:"required"`
	Items      []stock.Line `json:"items" binding:"required,min=1"`
}

// BulkUpdateRequest carries independent patches for one location
type BulkUpdateRequest struct {
	Updates []stock.Patch `json:"updates" binding:"required,min=1"`
}

// BulkCreateRow is one initial balance row
type BulkCreateRow struct {
	ItemID            uuid.UUID       `json:"item_id" binding:"required"`
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
	ReservedQuantity  decimal.Decimal `json:"reserved_quantity"`
	AllocatedQuantity decimal.Decimal `json:"allocated_quantity"`
	MinQuantity       decimal.Decimal `json:"min_quantity"`
	MaxQuantity       decimal.Decimal `json:"max_quantity"`
}

// BulkCreateRequest carries initial rows for one location
type BulkCreateRequest struct {
	Rows []BulkCreateRow `json:"rows" binding:"required,min=1"`
}

// BulkError reports why one entry of a bulk request failed
type BulkError struct {
	ItemID  uuid.UUID `json:"item_id"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// BulkResult is the best-effort outcome of a bulk request
type BulkResult struct {
	Success []LocationStockResponse `json:"success"`
	Errors  []BulkError             `json:"errors"`
}

// ThresholdsRequest sets min and max levels
type ThresholdsRequest struct {
	MinQuantity *decimal.Decimal `json:"min_quantity"`
	MaxQuantity *decimal.Decimal `json:"max_quantity"`
}

// ReconcileResult compares the ledger replay with the stored balance
type ReconcileResult struct {
	LocationID        uuid.UUID       `json:"location_id"`
	ItemID            uuid.UUID       `json:"item_id"`
	LedgerQuantity    decimal.Decimal `json:"ledger_quantity"`
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
	Movements         int             `json:"movements"`
	Consistent        bool            `json:"consistent"`
}
