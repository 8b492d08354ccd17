package stock

import (
	"context"
	"time"

	appshared "github.com/erp/stockcore/internal/application/shared"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementResponse represents a ledger entry in API responses
type MovementResponse struct {
	ID               uuid.UUID           `json:"id"`
	ItemID           uuid.UUID           `json:"item_id"`
	LocationID       uuid.UUID           `json:"location_id"`
	MovementType     stock.MovementType  `json:"movement_type"`
	QuantityType     stock.QuantityType  `json:"quantity_type"`
	Quantity         decimal.Decimal     `json:"quantity"`
	ReferenceType    stock.ReferenceType `json:"reference_type"`
	ReferenceID      *uuid.UUID          `json:"reference_id,omitempty"`
	PreviousQuantity decimal.Decimal     `json:"previous_quantity"`
	NewQuantity      decimal.Decimal     `json:"new_quantity"`
	UnitCost         *decimal.Decimal    `json:"unit_cost,omitempty"`
	Notes            string              `json:"notes,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
}

// ToMovementResponse converts a ledger entry to a response
func ToMovementResponse(m *stock.StockMovement) MovementResponse {
	return MovementResponse{
		ID:               m.ID,
		ItemID:           m.ItemID,
		LocationID:       m.LocationID,
		MovementType:     m.MovementType,
		QuantityType:     m.QuantityType,
		Quantity:         m.Quantity,
		ReferenceType:    m.ReferenceType,
		ReferenceID:      m.ReferenceID,
		PreviousQuantity: m.PreviousQuantity,
		NewQuantity:      m.NewQuantity,
		UnitCost:         m.UnitCost,
		Notes:            m.Notes,
		CreatedAt:        m.CreatedAt,
	}
}

func toMovementResponses(ms []stock.StockMovement) []MovementResponse {
	out := make([]MovementResponse, len(ms))
	for i := range ms {
		out[i] = ToMovementResponse(&ms[i])
	}
	return out
}

// LedgerService exposes read paths over the append-only movement ledger
type LedgerService struct {
	repos appshared.Repositories
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(repos appshared.Repositories) *LedgerService {
	return &LedgerService{repos: repos}
}

// ListByItem lists movements of an item across locations
func (s *LedgerService) ListByItem(ctx context.Context, itemID uuid.UUID, filter shared.Filter) (shared.Paginated[MovementResponse], error) {
	ms, total, err := s.repos.Movements().FindByItem(ctx, itemID, filter)
	if err != nil {
		return shared.Paginated[MovementResponse]{}, err
	}
	return shared.NewPaginated(toMovementResponses(ms), total, filter.Page, filter.PageSize), nil
}

// ListByLocation lists movements at a location
func (s *LedgerService) ListByLocation(ctx context.Context, locationID uuid.UUID, filter shared.Filter) (shared.Paginated[MovementResponse], error) {
	ms, total, err := s.repos.Movements().FindByLocation(ctx, locationID, filter)
	if err != nil {
		return shared.Paginated[MovementResponse]{}, err
	}
	return shared.NewPaginated(toMovementResponses(ms), total, filter.Page, filter.PageSize), nil
}

// ListByReference lists movements caused by one document
func (s *LedgerService) ListByReference(ctx context.Context, refType stock.ReferenceType, refID uuid.UUID) ([]MovementResponse, error) {
	if !refType.IsValid() {
		return nil, shared.NewValidationError("reference_type", "Invalid reference type: "+string(refType))
	}
	ms, err := s.repos.Movements().FindByReference(ctx, refType, refID)
	if err != nil {
		return nil, err
	}
	return toMovementResponses(ms), nil
}

// Summary aggregates available-quantity movements matching the filter
func (s *LedgerService) Summary(ctx context.Context, filter stock.MovementFilter) (stock.MovementSummary, error) {
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return stock.MovementSummary{}, shared.NewValidationError("from", "from must not be after to")
	}
	rows, err := s.repos.Movements().Summarize(ctx, filter)
	if err != nil {
		return stock.MovementSummary{}, err
	}
	return stock.NewMovementSummary(rows), nil
}

// Reconcile replays the ledger of one pair and compares it with the stored
// available quantity. A pair without a balance row reconciles against zero.
func (s *LedgerService) Reconcile(ctx context.Context, locationID, itemID uuid.UUID) (*ReconcileResult, error) {
	ms, err := s.repos.Movements().FindByLocationAndItem(ctx, locationID, itemID)
	if err != nil {
		return nil, err
	}
	replayed := decimal.Zero
	for _, m := range ms {
		if m.QuantityType == stock.QuantityTypeAvailable {
			replayed = replayed.Add(m.Quantity)
		}
	}

	available := decimal.Zero
	row, err := s.repos.LocationStocks().FindByLocationAndItem(ctx, locationID, itemID)
	switch {
	case err == nil:
		available = row.AvailableQuantity
	case !shared.IsNotFound(err):
		return nil, err
	}

	return &ReconcileResult{
		LocationID:        locationID,
		ItemID:            itemID,
		LedgerQuantity:    replayed,
		AvailableQuantity: available,
		Movements:         len(ms),
		Consistent:        replayed.Equal(available),
	}, nil
}
