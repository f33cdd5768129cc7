package repository

import (
	"context"
	"errors"
	"time"

	"github.com/paperifyhq/paperify/internal/subscription/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) conn(db *gorm.DB) *gorm.DB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, sub *domain.Subscription) error {
	return r.conn(db).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"plan", "books", "expires_at", "updated_at",
			}),
		}).
		Create(sub).Error
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := r.conn(db).WithContext(ctx).
		Where("email = ?", email).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repo) UpdateBooks(ctx context.Context, db *gorm.DB, email string, books []byte, at time.Time) error {
	return r.conn(db).WithContext(ctx).
		Model(&domain.Subscription{}).
		Where("email = ?", email).
		Updates(map[string]any{
			"books":      books,
			"updated_at": at,
		}).Error
}

func (r *repo) DeleteExpired(ctx context.Context, db *gorm.DB, before time.Time) (int64, error) {
	res := r.conn(db).WithContext(ctx).
		Where("expires_at <= ?", before).
		Delete(&domain.Subscription{})
	return res.RowsAffected, res.Error
}
