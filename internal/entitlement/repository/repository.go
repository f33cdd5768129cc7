package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/paperifyhq/paperify/internal/entitlement/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	db    *gorm.DB
	genID *snowflake.Node
}

func Provide(db *gorm.DB, genID *snowflake.Node) domain.CounterRepository {
	return &repo{db: db, genID: genID}
}

func (r *repo) conn(db *gorm.DB) *gorm.DB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *repo) Get(ctx context.Context, db *gorm.DB, key string) (int64, error) {
	var counter domain.UsageCounter
	err := r.conn(db).WithContext(ctx).
		Where("counter_key = ?", key).
		First(&counter).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return counter.Count, nil
}

func (r *repo) IncrementBelow(ctx context.Context, db *gorm.DB, key string, limit int64, at time.Time) (int64, bool, error) {
	conn := r.conn(db).WithContext(ctx)

	// Ensure the row exists, then increment with the limit guard in the
	// same statement. Two concurrent calls at limit-1 cannot both pass:
	// the second sees the first's committed count.
	if err := conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "counter_key"}},
		DoNothing: true,
	}).Create(&domain.UsageCounter{
		ID:         r.genID.Generate(),
		CounterKey: key,
		Count:      0,
		UpdatedAt:  at,
	}).Error; err != nil {
		return 0, false, err
	}

	res := conn.Model(&domain.UsageCounter{}).
		Where("counter_key = ? AND count < ?", key, limit).
		Updates(map[string]any{
			"count":      gorm.Expr("count + 1"),
			"updated_at": at,
		})
	if res.Error != nil {
		return 0, false, res.Error
	}

	count, err := r.Get(ctx, db, key)
	if err != nil {
		return 0, false, err
	}
	return count, res.RowsAffected == 1, nil
}
