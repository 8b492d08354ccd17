package stock

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Shortage describes one line that cannot be served from available stock
type Shortage struct {
	ItemID    uuid.UUID       `json:"item_id"`
	Requested decimal.Decimal `json:"requested"`
	Available decimal.Decimal `json:"available"`
}

// ShortageError is the business rejection returned when requested quantities
// exceed available stock. It matches shared.ErrStockShortage under errors.Is.
type ShortageError struct {
	LocationID uuid.UUID
	Shortages  []Shortage
}

// Error implements the error interface
func (e *ShortageError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("%s (requested %s, available %s)", s.ItemID, s.Requested, s.Available))
	}
	return "Insufficient stock: " + strings.Join(parts, "; ")
}

// Is matches the STOCK_SHORTAGE domain code
func (e *ShortageError) Is(target error) bool {
	de, ok := target.(*shared.DomainError)
	return ok && de.Code == shared.CodeStockShortage
}

// Line is a requested quantity of one item
type Line struct {
	ItemID   uuid.UUID       `json:"item_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// AggregateLines merges duplicate items and returns lines sorted by item id.
// The order is the lock acquisition order for multi-row deductions.
func AggregateLines(lines []Line) []Line {
	totals := make(map[uuid.UUID]decimal.Decimal, len(lines))
	for _, l := range lines {
		totals[l.ItemID] = totals[l.ItemID].Add(l.Quantity)
	}
	out := make([]Line, 0, len(totals))
	for id, qty := range totals {
		out = append(out, Line{ItemID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].ItemID[:], out[j].ItemID[:]) < 0
	})
	return out
}

// ValidateLines rejects empty requests and non-positive quantities
func ValidateLines(lines []Line) error {
	if len(lines) == 0 {
		return shared.NewValidationError("items", "At least one item is required")
	}
	for i, l := range lines {
		if l.ItemID == uuid.Nil {
			return shared.NewValidationError(fmt.Sprintf("items[%d].item_id", i), "Item ID cannot be empty")
		}
		if !l.Quantity.IsPositive() {
			return shared.NewValidationError(fmt.Sprintf("items[%d].quantity", i), "Quantity must be positive")
		}
		if err := CheckScale(fmt.Sprintf("items[%d].quantity", i), l.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// Availability is the result of a read-only availability check
type Availability struct {
	Available bool       `json:"available"`
	Shortages []Shortage `json:"shortages"`
}

// CheckLines compares aggregated lines against known balances. Items without
// a balance row count as zero available.
func CheckLines(lines []Line, balances map[uuid.UUID]decimal.Decimal) Availability {
	result := Availability{Available: true, Shortages: make([]Shortage, 0)}
	for _, l := range AggregateLines(lines) {
		available := balances[l.ItemID]
		if l.Quantity.GreaterThan(available) {
			result.Available = false
			result.Shortages = append(result.Shortages, Shortage{
				ItemID:    l.ItemID,
				Requested: l.Quantity,
				Available: available,
			})
		}
	}
	return result
}
