package persistence

import (
	"context"
	"time"

	"github.com/erp/stockcore/internal/domain/alert"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAlertRepository implements alert.Repository using GORM. Every write
// is a single conditional statement; the returned bool reports whether a
// row actually changed.
type GormAlertRepository struct {
	db *gorm.DB
}

// NewGormAlertRepository creates a new GormAlertRepository
func NewGormAlertRepository(db *gorm.DB) *GormAlertRepository {
	return &GormAlertRepository{db: db}
}

// FindAll lists alerts, optionally narrowed to one resolved state
func (r *GormAlertRepository) FindAll(ctx context.Context, resolved *bool) ([]alert.LowStockAlert, error) {
	query := r.db.WithContext(ctx).Order("alert_created_at DESC")
	if resolved != nil {
		query = query.Where("resolved = ?", *resolved)
	}
	var alerts []alert.LowStockAlert
	if err := query.Find(&alerts).Error; err != nil {
		return nil, wrap(err, "list low stock alerts")
	}
	return alerts, nil
}

// FindByItemID finds the alert of an item
func (r *GormAlertRepository) FindByItemID(ctx context.Context, itemID uuid.UUID) (*alert.LowStockAlert, error) {
	var a alert.LowStockAlert
	if err := r.db.WithContext(ctx).First(&a, "item_id = ?", itemID).Error; err != nil {
		return nil, translate(err, "low stock alert", itemID)
	}
	return &a, nil
}

// InsertIfAbsent inserts the alert unless the item already has one
func (r *GormAlertRepository) InsertIfAbsent(ctx context.Context, a *alert.LowStockAlert) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "item_id"}},
			DoNothing: true,
		}).
		Create(a)
	if result.Error != nil {
		return false, wrap(result.Error, "insert low stock alert")
	}
	return result.RowsAffected > 0, nil
}

// SetResolved flips resolved only if the row still holds the opposite value
func (r *GormAlertRepository) SetResolved(ctx context.Context, itemID uuid.UUID, resolved bool, currentStock, threshold decimal.Decimal) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&alert.LowStockAlert{}).
		Where("item_id = ? AND resolved = ?", itemID, !resolved).
		UpdateColumns(map[string]any{
			"resolved":            resolved,
			"current_stock":       currentStock,
			"min_stock_threshold": threshold,
			"updated_at":          time.Now(),
		})
	if result.Error != nil {
		return false, wrap(result.Error, "set low stock alert resolved")
	}
	return result.RowsAffected > 0, nil
}

// RefreshSnapshot updates the stock figures when they differ from the stored ones
func (r *GormAlertRepository) RefreshSnapshot(ctx context.Context, itemID uuid.UUID, currentStock, threshold decimal.Decimal) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&alert.LowStockAlert{}).
		Where("item_id = ? AND (current_stock <> ? OR min_stock_threshold <> ?)", itemID, currentStock, threshold).
		UpdateColumns(map[string]any{
			"current_stock":       currentStock,
			"min_stock_threshold": threshold,
			"updated_at":          time.Now(),
		})
	if result.Error != nil {
		return false, wrap(result.Error, "refresh low stock alert")
	}
	return result.RowsAffected > 0, nil
}

// Ensure GormAlertRepository implements Repository
var _ alert.Repository = (*GormAlertRepository)(nil)
