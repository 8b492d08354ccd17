package stock

import (
	"fmt"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// QuantityScale is the number of decimal places stored for every quantity
// column. Finer inputs are rejected so balances and ledger rows round the same.
const QuantityScale int32 = 3

// CheckScale rejects a quantity with more decimal places than QuantityScale
func CheckScale(field string, q decimal.Decimal) error {
	if !q.Equal(q.Truncate(QuantityScale)) {
		return shared.NewValidationError(field, fmt.Sprintf("%s cannot have more than %d decimal places", field, QuantityScale))
	}
	return nil
}
