package persistence

import (
	"context"

	"github.com/erp/stockcore/internal/domain/supply"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPurchaseEntryRepository implements supply.PurchaseEntryRepository using GORM
type GormPurchaseEntryRepository struct {
	db *gorm.DB
}

// NewGormPurchaseEntryRepository creates a new GormPurchaseEntryRepository
func NewGormPurchaseEntryRepository(db *gorm.DB) *GormPurchaseEntryRepository {
	return &GormPurchaseEntryRepository{db: db}
}

var purchaseEntryItems = preloadItems("Items")

// FindByID finds a purchase entry with its items
func (r *GormPurchaseEntryRepository) FindByID(ctx context.Context, id uuid.UUID) (*supply.PurchaseEntry, error) {
	var pe supply.PurchaseEntry
	if err := r.db.WithContext(ctx).Scopes(purchaseEntryItems).First(&pe, "id = ?", id).Error; err != nil {
		return nil, translate(err, "purchase entry", id)
	}
	return &pe, nil
}

// FindByIDForUpdate locks the purchase entry row
func (r *GormPurchaseEntryRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*supply.PurchaseEntry, error) {
	var pe supply.PurchaseEntry
	if err := r.db.WithContext(ctx).Scopes(forUpdate, purchaseEntryItems).First(&pe, "id = ?", id).Error; err != nil {
		return nil, translate(err, "purchase entry", id)
	}
	return &pe, nil
}

// FindAll lists purchase entries by payment status and location
func (r *GormPurchaseEntryRepository) FindAll(ctx context.Context, filter supply.Filter) ([]supply.PurchaseEntry, int64, error) {
	query := documentFilter(r.db.WithContext(ctx).Model(&supply.PurchaseEntry{}), filter, "payment_status", "location_id")

	var entries []supply.PurchaseEntry
	total, err := findPage(query, filter.Filter, DocumentSortFields, &entries, purchaseEntryItems)
	if err != nil {
		return nil, 0, wrap(err, "list purchase entries")
	}
	return entries, total, nil
}

// Create inserts the purchase entry and its items
func (r *GormPurchaseEntryRepository) Create(ctx context.Context, pe *supply.PurchaseEntry) error {
	return translate(r.db.WithContext(ctx).Create(pe).Error, "purchase entry", pe.EntryNumber)
}

// SavePayment writes the paid amount and derived payment status
func (r *GormPurchaseEntryRepository) SavePayment(ctx context.Context, pe *supply.PurchaseEntry) error {
	return translate(saveHeader(r.db.WithContext(ctx), pe, "paid_amount", "payment_status", "updated_at"), "purchase entry", pe.ID)
}

// ExistsForGRN reports whether an entry was already recorded against the GRN
func (r *GormPurchaseEntryRepository) ExistsForGRN(ctx context.Context, grnID uuid.UUID) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&supply.PurchaseEntry{}).Where("grn_id = ?", grnID).Count(&n).Error; err != nil {
		return false, wrap(err, "count purchase entries for grn")
	}
	return n > 0, nil
}

// Ensure GormPurchaseEntryRepository implements PurchaseEntryRepository
var _ supply.PurchaseEntryRepository = (*GormPurchaseEntryRepository)(nil)
