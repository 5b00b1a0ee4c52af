package workflow

import (
	"errors"
	"fmt"

	"office-hub/internal/database"

	"gorm.io/gorm"
)

var (
	ErrInvalidStatus = errors.New("invalid status")
	ErrNotFound      = errors.New("record not found")
	ErrForbidden     = errors.New("transition forbidden")
	ErrInvalidInput  = errors.New("invalid input")
	ErrConflict      = errors.New("record already exists")
)

// translate приводит ошибки gorm/драйвера к ошибкам пакета.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case database.IsUniqueViolation(err):
		return fmt.Errorf("%s: %w", what, ErrConflict)
	}
	return fmt.Errorf("%s: %w", what, err)
}
