package persistence

import (
	"strings"

	"github.com/erp/stockcore/internal/domain/shared"
	"gorm.io/gorm"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// DocumentSortFields is shared by orders and every supply document
var DocumentSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"status":     true,
}

// LocationStockSortFields contains allowed sort fields for location stock listings
var LocationStockSortFields = map[string]bool{
	"created_at":         true,
	"last_updated":       true,
	"item_id":            true,
	"available_quantity": true,
	"reserved_quantity":  true,
	"allocated_quantity": true,
	"min_quantity":       true,
}

// MovementSortFields contains allowed sort fields for the ledger
var MovementSortFields = map[string]bool{
	"created_at":    true,
	"movement_type": true,
	"quantity":      true,
}

// paginate orders and pages a query. Unknown sort fields fall back to
// created_at so caller input never reaches the ORDER BY clause unchecked.
func paginate(query *gorm.DB, filter shared.Filter, allowed map[string]bool) *gorm.DB {
	field := ValidateSortField(filter.OrderBy, allowed, "created_at")
	query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	return query
}

// findPage counts every row the query matches, then loads one page of them
// into dest. Both statements start from their own copy of query; scopes such
// as preloads only apply to the page load.
func findPage(query *gorm.DB, filter shared.Filter, allowed map[string]bool, dest any, scopes ...func(*gorm.DB) *gorm.DB) (int64, error) {
	base := query.Session(&gorm.Session{})
	var total int64
	if err := base.Count(&total).Error; err != nil {
		return 0, err
	}
	if err := paginate(base, filter, allowed).Scopes(scopes...).Find(dest).Error; err != nil {
		return 0, err
	}
	return total, nil
}
