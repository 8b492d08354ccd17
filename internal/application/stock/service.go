package stock

import (
	"context"
	"errors"

	appshared "github.com/erp/stockcore/internal/application/shared"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/erp/stockcore/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service owns per-location balances. Every mutation runs in its own
// transaction under a row lock and is ledgered in the same transaction.
type Service struct {
	scope   appshared.TransactionScope
	repos   appshared.Repositories
	trigger appshared.SweepTrigger
	logger  *zap.Logger
}

// NewService creates a new stock Service
func NewService(scope appshared.TransactionScope, repos appshared.Repositories, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		scope:   scope,
		repos:   repos,
		trigger: appshared.NoopSweepTrigger{},
		logger:  logger,
	}
}

// SetSweepTrigger sets the low-stock sweep trigger fired after mutations
func (s *Service) SetSweepTrigger(trigger appshared.SweepTrigger) {
	if trigger != nil {
		s.trigger = trigger
	}
}

// Adjust applies one add/subtract/set to a balance and returns the new row
func (s *Service) Adjust(ctx context.Context, locationID, itemID uuid.UUID, req AdjustRequest) (*LocationStockResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock", "adjust",
		telemetry.WithAttribute("location_id", locationID.String()),
		telemetry.WithAttribute("item_id", itemID.String()),
	)
	defer span.End()

	if req.QuantityType == "" {
		req.QuantityType = stock.QuantityTypeAvailable
	}
	if _, err := s.repos.Items().FindByID(ctx, itemID); err != nil {
		return nil, err
	}

	var row *stock.LocationStock
	err := s.scope.Execute(ctx, func(repos appshared.Repositories) error {
		var err error
		row, err = ApplyAdjustment(ctx, repos, AdjustCommand{
			LocationID:   locationID,
			ItemID:       itemID,
			QuantityType: req.QuantityType,
			Operation:    req.Operation,
			Amount:       req.Quantity,
			MovementType: req.MovementType,
			Reference:    stock.ManualReference(),
			UnitCost:     req.UnitCost,
			Notes:        req.Notes,
		})
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.trigger.Trigger()
	resp := ToLocationStockResponse(row)
	return &resp, nil
}

// CheckAvailability reports shortages for the requested lines without locking
func (s *Service) CheckAvailability(ctx context.Context, req AvailabilityRequest) (*stock.Availability, error) {
	if err := stock.ValidateLines(req.Items); err != nil {
		return nil, err
	}
	lines := stock.AggregateLines(req.Items)
	ids := make([]uuid.UUID, len(lines))
	for i, l := range lines {
		ids[i] = l.ItemID
	}

	rows, err := s.repos.LocationStocks().FindByLocationAndItems(ctx, req.LocationID, ids)
	if err != nil {
		return nil, err
	}
	balances := make(map[uuid.UUID]decimal.Decimal, len(rows))
	for _, r := range rows {
		balances[r.ItemID] = r.AvailableQuantity
	}

	result := stock.CheckLines(lines, balances)
	return &result, nil
}

// BulkUpdate applies each patch in its own transaction. A failing patch is
// reported in Errors and does not affect the others.
func (s *Service) BulkUpdate(ctx context.Context, locationID uuid.UUID, req BulkUpdateRequest) (*BulkResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock", "bulk_update",
		telemetry.WithAttribute("location_id", locationID.String()),
		telemetry.WithAttribute("updates", len(req.Updates)),
	)
	defer span.End()

	result := &BulkResult{Success: make([]LocationStockResponse, 0), Errors: make([]BulkError, 0)}
	for _, p := range req.Updates {
		var row *stock.LocationStock
		err := s.scope.Execute(ctx, func(repos appshared.Repositories) error {
			var err error
			row, err = repos.LocationStocks().FindForUpdate(ctx, locationID, p.ItemID)
			if err != nil {
				return err
			}
			changes, err := row.ApplyPatch(p)
			if err != nil {
				return err
			}
			ref := stock.Reference{Type: stock.ReferenceTypeBulkUpdate}
			return persist(ctx, repos, row, changes, stock.MovementTypeAdjustment, ref, nil, "")
		})
		if err != nil {
			result.Errors = append(result.Errors, s.bulkError(p.ItemID, err))
			continue
		}
		result.Success = append(result.Success, ToLocationStockResponse(row))
	}

	if len(result.Success) > 0 {
		s.trigger.Trigger()
	}
	return result, nil
}

// BulkCreate inserts initial balance rows, each in its own transaction.
// Initial quantities are ledgered as adjustments against initial_stock.
func (s *Service) BulkCreate(ctx context.Context, locationID uuid.UUID, req BulkCreateRequest) (*BulkResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock", "bulk_create",
		telemetry.WithAttribute("location_id", locationID.String()),
		telemetry.WithAttribute("rows", len(req.Rows)),
	)
	defer span.End()

	result := &BulkResult{Success: make([]LocationStockResponse, 0), Errors: make([]BulkError, 0)}
	for _, in := range req.Rows {
		var row *stock.LocationStock
		err := s.scope.Execute(ctx, func(repos appshared.Repositories) error {
			if _, err := repos.Items().FindByID(ctx, in.ItemID); err != nil {
				return err
			}
			var err error
			row, err = stock.NewLocationStock(locationID, in.ItemID)
			if err != nil {
				return err
			}
			if err := repos.LocationStocks().Create(ctx, row); err != nil {
				return err
			}
			changes, err := row.ApplyPatch(stock.Patch{
				ItemID:            in.ItemID,
				AvailableQuantity: &in.AvailableQuantity,
				ReservedQuantity:  &in.ReservedQuantity,
				AllocatedQuantity: &in.AllocatedQuantity,
				MinQuantity:       &in.MinQuantity,
				MaxQuantity:       &in.MaxQuantity,
			})
			if err != nil {
				return err
			}
			ref := stock.Reference{Type: stock.ReferenceTypeInitialStock}
			return persist(ctx, repos, row, changes, stock.MovementTypeAdjustment, ref, nil, "")
		})
		if err != nil {
			result.Errors = append(result.Errors, s.bulkError(in.ItemID, err))
			continue
		}
		result.Success = append(result.Success, ToLocationStockResponse(row))
	}

	if len(result.Success) > 0 {
		s.trigger.Trigger()
	}
	return result, nil
}

// SetThresholds updates min/max levels of an existing row
func (s *Service) SetThresholds(ctx context.Context, locationID, itemID uuid.UUID, req ThresholdsRequest) (*LocationStockResponse, error) {
	if req.MinQuantity == nil && req.MaxQuantity == nil {
		return nil, shared.ErrNoFieldsToUpdate
	}
	var row *stock.LocationStock
	err := s.scope.Execute(ctx, func(repos appshared.Repositories) error {
		var err error
		row, err = repos.LocationStocks().FindForUpdate(ctx, locationID, itemID)
		if err != nil {
			return err
		}
		if err := row.SetThresholds(req.MinQuantity, req.MaxQuantity); err != nil {
			return err
		}
		return repos.LocationStocks().Save(ctx, row)
	})
	if err != nil {
		return nil, err
	}
	resp := ToLocationStockResponse(row)
	return &resp, nil
}

// Get returns the balance of one location-item pair
func (s *Service) Get(ctx context.Context, locationID, itemID uuid.UUID) (*LocationStockResponse, error) {
	row, err := s.repos.LocationStocks().FindByLocationAndItem(ctx, locationID, itemID)
	if err != nil {
		return nil, err
	}
	resp := ToLocationStockResponse(row)
	return &resp, nil
}

// ListByLocation returns the balances held at a location
func (s *Service) ListByLocation(ctx context.Context, locationID uuid.UUID, filter shared.Filter) (shared.Paginated[LocationStockResponse], error) {
	rows, total, err := s.repos.LocationStocks().FindByLocation(ctx, locationID, filter)
	if err != nil {
		return shared.Paginated[LocationStockResponse]{}, err
	}
	out := make([]LocationStockResponse, len(rows))
	for i := range rows {
		out[i] = ToLocationStockResponse(&rows[i])
	}
	return shared.NewPaginated(out, total, filter.Page, filter.PageSize), nil
}

func (s *Service) bulkError(itemID uuid.UUID, err error) BulkError {
	code := shared.CodeOf(err)
	msg := err.Error()
	if code == shared.CodeInternal {
		s.logger.Error("bulk stock entry failed", zap.String("item_id", itemID.String()), zap.Error(err))
		msg = "internal error"
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		msg = de.Message
	}
	return BulkError{ItemID: itemID, Code: code, Message: msg}
}
