package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type CounterRepository interface {
	Get(ctx context.Context, db *gorm.DB, key string) (int64, error)

	// IncrementBelow adds one to the counter while it is below limit.
	// The returned count is the stored value after the attempt, so a
	// failed increment reports the count that blocked it.
	IncrementBelow(ctx context.Context, db *gorm.DB, key string, limit int64, at time.Time) (count int64, incremented bool, err error)
}
