package stock

import (
	"context"
	"fmt"

	appshared "github.com/erp/stockcore/internal/application/shared"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/erp/stockcore/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// The helpers in this file run inside a TransactionScope and must be given
// the transaction's repositories. Rows are always locked in ascending item
// id order so concurrent multi-item mutations cannot deadlock.

// AdjustCommand is a single balance mutation
type AdjustCommand struct {
	LocationID   uuid.UUID
	ItemID       uuid.UUID
	QuantityType stock.QuantityType
	Operation    stock.AdjustOperation
	Amount       decimal.Decimal
	MovementType stock.MovementType
	Reference    stock.Reference
	UnitCost     *decimal.Decimal
	Notes        string
}

// ApplyAdjustment locks (creating if absent) the balance row, applies the
// command and ledgers the delta actually applied.
func ApplyAdjustment(ctx context.Context, repos appshared.Repositories, cmd AdjustCommand) (*stock.LocationStock, error) {
	if cmd.MovementType == "" {
		cmd.MovementType = stock.MovementTypeAdjustment
	}
	if !cmd.MovementType.IsValid() {
		return nil, shared.NewValidationError("movement_type", "Invalid movement type: "+string(cmd.MovementType))
	}
	if cmd.Reference.Type == "" {
		cmd.Reference = stock.ManualReference()
	}

	row, err := repos.LocationStocks().GetOrCreateForUpdate(ctx, cmd.LocationID, cmd.ItemID)
	if err != nil {
		return nil, err
	}
	change, err := row.Adjust(cmd.QuantityType, cmd.Operation, cmd.Amount)
	if err != nil {
		return nil, err
	}
	if err := persist(ctx, repos, row, []stock.Change{change}, cmd.MovementType, cmd.Reference, cmd.UnitCost, cmd.Notes); err != nil {
		return nil, err
	}
	return row, nil
}

// LockLines locks the balance rows for every line and verifies that each
// can be served. All shortages are collected into one ShortageError. Rows
// that do not exist yet are returned as nil and count as zero available.
func LockLines(ctx context.Context, repos appshared.Repositories, locationID uuid.UUID, lines []stock.Line) ([]stock.Line, []*stock.LocationStock, error) {
	lines = stock.AggregateLines(lines)
	if err := stock.ValidateLines(lines); err != nil {
		return nil, nil, err
	}

	rows := make([]*stock.LocationStock, len(lines))
	var shortages []stock.Shortage
	for i, l := range lines {
		row, err := repos.LocationStocks().FindForUpdate(ctx, locationID, l.ItemID)
		if err != nil && !shared.IsNotFound(err) {
			return nil, nil, err
		}
		available := decimal.Zero
		if row != nil {
			available = row.AvailableQuantity
		}
		if l.Quantity.GreaterThan(available) {
			shortages = append(shortages, stock.Shortage{ItemID: l.ItemID, Requested: l.Quantity, Available: available})
		}
		rows[i] = row
	}
	if len(shortages) > 0 {
		if m := telemetry.Stock(); m != nil {
			m.RecordShortage(ctx, len(shortages))
		}
		return nil, nil, &stock.ShortageError{LocationID: locationID, Shortages: shortages}
	}
	return lines, rows, nil
}

// DeductLines removes every line from available stock at a location, or
// nothing at all.
func DeductLines(ctx context.Context, repos appshared.Repositories, locationID uuid.UUID, lines []stock.Line, movementType stock.MovementType, ref stock.Reference) error {
	lines, rows, err := LockLines(ctx, repos, locationID, lines)
	if err != nil {
		return err
	}
	for i, l := range lines {
		change, err := rows[i].Deduct(l.Quantity)
		if err != nil {
			return err
		}
		if err := persist(ctx, repos, rows[i], []stock.Change{change}, movementType, ref, nil, ""); err != nil {
			return err
		}
	}
	return nil
}

// ReceiptLine is an inbound quantity with an optional unit cost
type ReceiptLine struct {
	ItemID   uuid.UUID
	Quantity decimal.Decimal
	UnitCost *decimal.Decimal
}

// ReceiveLines adds every line to available stock at a location, creating
// balance rows on first receipt. Non-positive lines are skipped.
func ReceiveLines(ctx context.Context, repos appshared.Repositories, locationID uuid.UUID, lines []ReceiptLine, movementType stock.MovementType, ref stock.Reference) error {
	costs := make(map[uuid.UUID]*decimal.Decimal, len(lines))
	plain := make([]stock.Line, 0, len(lines))
	for _, l := range lines {
		if !l.Quantity.IsPositive() {
			continue
		}
		plain = append(plain, stock.Line{ItemID: l.ItemID, Quantity: l.Quantity})
		if l.UnitCost != nil {
			costs[l.ItemID] = l.UnitCost
		}
	}

	for _, l := range stock.AggregateLines(plain) {
		row, err := repos.LocationStocks().GetOrCreateForUpdate(ctx, locationID, l.ItemID)
		if err != nil {
			return err
		}
		change, err := row.Adjust(stock.QuantityTypeAvailable, stock.OperationAdd, l.Quantity)
		if err != nil {
			return err
		}
		if err := persist(ctx, repos, row, []stock.Change{change}, movementType, ref, costs[l.ItemID], ""); err != nil {
			return err
		}
	}
	return nil
}

// persist saves the row, appends one ledger entry per non-zero change and
// refreshes the item's cached stock total.
func persist(ctx context.Context, repos appshared.Repositories, row *stock.LocationStock, changes []stock.Change,
	movementType stock.MovementType, ref stock.Reference, unitCost *decimal.Decimal, notes string) error {
	if err := repos.LocationStocks().Save(ctx, row); err != nil {
		return fmt.Errorf("save location stock: %w", err)
	}

	refresh := false
	for _, c := range changes {
		if c.IsZero() {
			continue
		}
		m := stock.NewStockMovement(row, c, movementType, ref).WithNotes(notes)
		if unitCost != nil {
			m.WithUnitCost(*unitCost)
		}
		if err := repos.Movements().Create(ctx, m); err != nil {
			return fmt.Errorf("record stock movement: %w", err)
		}
		quantityType := string(c.QuantityType)
		repos.AfterCommit(func() {
			if m := telemetry.Stock(); m != nil {
				m.RecordMovement(ctx, string(movementType), quantityType)
			}
		})
		if c.QuantityType == stock.QuantityTypeAvailable {
			refresh = true
		}
	}

	if refresh {
		if err := repos.Items().RefreshStockQuantity(ctx, row.ItemID); err != nil {
			return fmt.Errorf("refresh item stock: %w", err)
		}
	}
	return nil
}
