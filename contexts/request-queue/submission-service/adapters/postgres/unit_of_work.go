package postgresadapter

import (
	"context"

	platformdb "atelier/internal/platform/db"
	"atelier/internal/shared/policy"

	"gorm.io/gorm"
)

// UnitOfWork runs a lane mutation in one database transaction guarded by a
// lane-scoped advisory lock. The lock key hashes the lane name, so paid and
// free operations serialize independently; the transaction handle rides the
// context so every repository joins the same commit.
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
