package persistence

import (
	"errors"
	"fmt"

	"github.com/erp/stockcore/internal/domain/shared"
	"gorm.io/gorm"
)

// translate maps GORM sentinel errors onto domain errors. The database must
// be opened with TranslateError so unique violations surface as
// gorm.ErrDuplicatedKey regardless of driver.
func translate(err error, entity string, id any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.NewNotFoundError(entity, id)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.NewConflictError(fmt.Sprintf("%s already exists", entity))
	}
	return err
}

// wrap annotates infrastructure failures that are not domain errors
func wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
