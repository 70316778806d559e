package database

import (
	"context"

	"gorm.io/gorm"
)

// WithinTransaction runs fn inside a single database transaction: commit if
// fn returns nil, rollback otherwise (including panics). Every multi-record
// financial mutation in this codebase goes through here so no code path can
// commit half a write or forget the rollback.
func WithinTransaction(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	})
}
