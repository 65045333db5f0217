package postgresadapter

import (
	"context"

	platformdb "atelier/internal/platform/db"
	"atelier/internal/shared/policy"

	"gorm.io/gorm"
)

// UnitOfWork mirrors the submission queue's lane locking: one transaction,
// one advisory lock keyed on the lane name. Both modules hash the same key
// string, so a vote and a queue mutation on the free lane serialize against
// each other.
type UnitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return UnitOfWork{db: db}
}

func (u UnitOfWork) InLane(ctx context.Context, lane policy.Lane, fn func(ctx context.Context) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Exec(
			"SELECT pg_advisory_xact_lock(hashtext(?))",
			"queue_lane:"+string(lane),
		).Error
		if err != nil {
			return err
		}
		return fn(platformdb.WithTx(ctx, tx))
	})
}
