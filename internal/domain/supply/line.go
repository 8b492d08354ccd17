package supply

import (
	"fmt"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineInput is a caller supplied item quantity with optional cost
type LineInput struct {
	ItemID   uuid.UUID
	Quantity decimal.Decimal
	UnitCost *decimal.Decimal
	Notes    string
}

// validateLineInputs checks caller supplied lines. Each item may appear once
// so per-item quantity maps address exactly one line.
func validateLineInputs(items []LineInput) error {
	if len(items) == 0 {
		return shared.NewValidationError("items", "At least one item is required")
	}
	seen := make(map[uuid.UUID]struct{}, len(items))
	for i, in := range items {
		if in.ItemID == uuid.Nil {
			return shared.NewValidationError(fmt.Sprintf("items[%d].item_id", i), "Item ID cannot be empty")
		}
		if _, dup := seen[in.ItemID]; dup {
			return shared.NewValidationError(fmt.Sprintf("items[%d].item_id", i), "Item "+in.ItemID.String()+" is listed more than once")
		}
		seen[in.ItemID] = struct{}{}
		if !in.Quantity.IsPositive() {
			return shared.NewValidationError(fmt.Sprintf("items[%d].quantity", i), "Quantity must be positive")
		}
		if err := stock.CheckScale(fmt.Sprintf("items[%d].quantity", i), in.Quantity); err != nil {
			return err
		}
		if in.UnitCost != nil && in.UnitCost.IsNegative() {
			return shared.NewValidationError(fmt.Sprintf("items[%d].unit_cost", i), "Unit cost cannot be negative")
		}
	}
	return nil
}

// mergeLineInputs sums lines of the same item, keeping first-seen order and
// the first line's cost and notes. Source documents such as consolidated
// purchase orders carry one line per delivery location for the same item.
func mergeLineInputs(items []LineInput) []LineInput {
	index := make(map[uuid.UUID]int, len(items))
	out := make([]LineInput, 0, len(items))
	for _, in := range items {
		if i, ok := index[in.ItemID]; ok {
			out[i].Quantity = out[i].Quantity.Add(in.Quantity)
			continue
		}
		index[in.ItemID] = len(out)
		out = append(out, in)
	}
	return out
}

// applyOverrides replaces merged quantities and costs per item and drops
// lines left without a positive quantity
func applyOverrides(items []LineInput, overrides map[uuid.UUID]ItemOverride) []LineInput {
	out := make([]LineInput, 0, len(items))
	for _, in := range mergeLineInputs(items) {
		if ov, ok := overrides[in.ItemID]; ok {
			if ov.Quantity != nil {
				in.Quantity = *ov.Quantity
			}
			if ov.UnitCost != nil {
				in.UnitCost = ov.UnitCost
			}
		}
		if in.Quantity.IsPositive() {
			out = append(out, in)
		}
	}
	return out
}

// ItemOverride replaces derived per-item values in a from-X derivation
type ItemOverride struct {
	Quantity    *decimal.Decimal
	UnitCost    *decimal.Decimal
	BatchNumber string
	ExpiryDate  *time.Time
}

func costOr(v *decimal.Decimal, fallback decimal.Decimal) decimal.Decimal {
	if v != nil {
		return *v
	}
	return fallback
}
