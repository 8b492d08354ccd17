package order

import (
	"context"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
)

// Filter narrows order listings
type Filter struct {
	shared.Filter
	Status     Status
	LocationID *uuid.UUID
}

// Repository persists orders and their items
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// FindByIDForUpdate locks the order row for a status transition
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Order, error)
	FindAll(ctx context.Context, filter Filter) ([]Order, int64, error)
	Create(ctx context.Context, o *Order) error
	SaveStatus(ctx context.Context, o *Order) error
	ReplaceItems(ctx context.Context, o *Order) error
	Delete(ctx context.Context, id uuid.UUID) error
}
