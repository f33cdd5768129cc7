package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	// Upsert inserts or overwrites the row keyed by email.
	Upsert(ctx context.Context, db *gorm.DB, sub *Subscription) error
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*Subscription, error)
	UpdateBooks(ctx context.Context, db *gorm.DB, email string, books []byte, at time.Time) error
	DeleteExpired(ctx context.Context, db *gorm.DB, before time.Time) (int64, error)
}
