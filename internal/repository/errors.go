package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/lshigami/codescreen/internal/apperrors"
	"gorm.io/gorm"
)

// translate maps driver errors onto the application's error taxonomy.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.ErrNotFound
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %w", apperrors.ErrStoreUnavailable, err)
	}
}
