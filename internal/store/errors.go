package store

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrNotFound indicates the requested record does not exist
	ErrNotFound = errors.New("store: record not found")

	// ErrDuplicate indicates an insert violated a uniqueness constraint
	ErrDuplicate = errors.New("store: duplicate record")
)

// wrapError maps gorm errors onto the store's sentinel errors so callers
// never import gorm directly.
func wrapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
