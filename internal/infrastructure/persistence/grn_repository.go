package persistence

import (
	"context"

	"github.com/erp/stockcore/internal/domain/supply"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormGRNRepository implements supply.GRNRepository using GORM
type GormGRNRepository struct {
	db *gorm.DB
}

// NewGormGRNRepository creates a new GormGRNRepository
func NewGormGRNRepository(db *gorm.DB) *GormGRNRepository {
	return &GormGRNRepository{db: db}
}

var grnItems = preloadItems("Items")

// FindByID finds a GRN with its items
func (r *GormGRNRepository) FindByID(ctx context.Context, id uuid.UUID) (*supply.GRN, error) {
	var g supply.GRN
	if err := r.db.WithContext(ctx).Scopes(grnItems).First(&g, "id = ?", id).Error; err != nil {
		return nil, translate(err, "grn", id)
	}
	return &g, nil
}

// FindByIDForUpdate locks the GRN row
func (r *GormGRNRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*supply.GRN, error) {
	var g supply.GRN
	if err := r.db.WithContext(ctx).Scopes(forUpdate, grnItems).First(&g, "id = ?", id).Error; err != nil {
		return nil, translate(err, "grn", id)
	}
	return &g, nil
}

// FindAll lists GRNs by status and receiving location
func (r *GormGRNRepository) FindAll(ctx context.Context, filter supply.Filter) ([]supply.GRN, int64, error) {
	query := documentFilter(r.db.WithContext(ctx).Model(&supply.GRN{}), filter, "status", "location_id")

	var grns []supply.GRN
	total, err := findPage(query, filter.Filter, DocumentSortFields, &grns, grnItems)
	if err != nil {
		return nil, 0, wrap(err, "list grns")
	}
	return grns, total, nil
}

// Create inserts the GRN and its items
func (r *GormGRNRepository) Create(ctx context.Context, g *supply.GRN) error {
	return translate(r.db.WithContext(ctx).Create(g).Error, "grn", g.GRNNumber)
}

// SaveStatus writes the status of the header
func (r *GormGRNRepository) SaveStatus(ctx context.Context, g *supply.GRN) error {
	return translate(saveHeader(r.db.WithContext(ctx), g, "status", "updated_at"), "grn", g.ID)
}

// Ensure GormGRNRepository implements GRNRepository
var _ supply.GRNRepository = (*GormGRNRepository)(nil)
