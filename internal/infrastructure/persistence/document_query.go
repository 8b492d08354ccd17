package persistence

import (
	"github.com/erp/stockcore/internal/domain/supply"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// documentFilter narrows a supply document listing. A location matches if
// any of locationColumns equals it.
func documentFilter(query *gorm.DB, filter supply.Filter, statusColumn string, locationColumns ...string) *gorm.DB {
	if filter.Status != "" {
		query = query.Where(statusColumn+" = ?", filter.Status)
	}
	if filter.LocationID != nil && len(locationColumns) > 0 {
		cond := query.Session(&gorm.Session{NewDB: true})
		for i, col := range locationColumns {
			if i == 0 {
				cond = cond.Where(col+" = ?", *filter.LocationID)
			} else {
				cond = cond.Or(col+" = ?", *filter.LocationID)
			}
		}
		query = query.Where(cond)
	}
	return query
}

// preloadItems orders child lines by item id so callers see a stable order
func preloadItems(associations ...string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for _, a := range associations {
			db = db.Preload(a, func(db *gorm.DB) *gorm.DB {
				return db.Order("item_id ASC")
			})
		}
		return db
	}
}

func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// saveLines writes the named columns of every child row by primary key
func saveLines[T any](db *gorm.DB, lines []T, columns ...string) error {
	for i := range lines {
		if err := db.Model(&lines[i]).Select(columns).Updates(&lines[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// saveHeader writes the named header columns and reports a missing row as
// gorm.ErrRecordNotFound
func saveHeader(db *gorm.DB, model any, columns ...string) error {
	result := db.Model(model).Select(columns).Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
