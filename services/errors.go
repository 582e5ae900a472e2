package services

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/camden-git/attendancebackend/apperrors"
	"github.com/camden-git/attendancebackend/repository"
	"gorm.io/gorm"
)

// translateStoreError maps repository sentinels onto the shared error
// taxonomy. Anything unrecognised is returned unchanged.
func translateStoreError(err error, entity string, id any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, sql.ErrNoRows):
		return apperrors.NotFound(entity, id)
	case repository.IsDuplicate(err):
		return &apperrors.DuplicateKeyError{Key: fmt.Sprint(id)}
	default:
		return err
	}
}
