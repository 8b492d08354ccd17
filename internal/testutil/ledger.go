package testutil

import (
	"context"
	"errors"

	appshared "github.com/erp/stockcore/internal/application/shared"
	"github.com/erp/stockcore/internal/domain/stock"
)

// ErrLedgerUnavailable is returned by every movement write made through
// a scope wrapped with FailingLedger.
var ErrLedgerUnavailable = errors.New("stock ledger unavailable")

// FailingLedger wraps scope so that movement inserts inside Execute fail
// after the balance rows were already written.
func FailingLedger(scope appshared.TransactionScope) appshared.TransactionScope {
	return failingLedgerScope{inner: scope}
}

type failingLedgerScope struct {
	inner appshared.TransactionScope
}

func (s failingLedgerScope) Execute(ctx context.Context, fn func(repos appshared.Repositories) error) error {
	return s.inner.Execute(ctx, func(repos appshared.Repositories) error {
		return fn(failingLedgerRepos{Repositories: repos})
	})
}

type failingLedgerRepos struct {
	appshared.Repositories
}

func (r failingLedgerRepos) Movements() stock.StockMovementRepository {
	return failingMovements{StockMovementRepository: r.Repositories.Movements()}
}

type failingMovements struct {
	stock.StockMovementRepository
}

func (failingMovements) Create(context.Context, *stock.StockMovement) error {
	return ErrLedgerUnavailable
}
