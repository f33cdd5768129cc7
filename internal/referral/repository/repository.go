package repository

import (
	"context"
	"errors"
	"time"

	"github.com/paperifyhq/paperify/internal/referral/domain"
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

func (r *repo) Insert(ctx context.Context, db *gorm.DB, profile *domain.Profile) error {
	return r.conn(db).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoNothing: true,
		}).
		Create(profile).Error
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Profile, error) {
	return r.findOne(ctx, db, "email = ?", email)
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Profile, error) {
	return r.findOne(ctx, db, "referral_code = ?", code)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, arg any) (*domain.Profile, error) {
	var profile domain.Profile
	err := r.conn(db).WithContext(ctx).
		Where(query, arg).
		First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

func (r *repo) SetReferredBy(ctx context.Context, db *gorm.DB, email, code string, at time.Time) (bool, error) {
	res := r.conn(db).WithContext(ctx).
		Model(&domain.Profile{}).
		Where("email = ? AND referred_by IS NULL", email).
		Updates(map[string]any{
			"referred_by": code,
			"updated_at":  at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) ReplacePaidReferrals(ctx context.Context, db *gorm.DB, email string, old, replacement []byte, unlockedAt *time.Time, at time.Time) (bool, error) {
	updates := map[string]any{
		"paid_referral_users": string(replacement),
		"updated_at":          at,
	}
	if unlockedAt != nil {
		updates["unlocked_at"] = *unlockedAt
	}

	// Compare-and-swap on the previously read set so concurrent credits
	// for the same referrer cannot drop each other's appends. The bind
	// is a string: the column stores JSON as text.
	q := r.conn(db).WithContext(ctx).
		Model(&domain.Profile{}).
		Where("email = ?", email)
	if len(old) == 0 {
		q = q.Where("paid_referral_users IS NULL OR paid_referral_users = ?", "[]")
	} else {
		q = q.Where("paid_referral_users = ?", string(old))
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) IncrementFreePapersBelow(ctx context.Context, db *gorm.DB, email string, limit int64, at time.Time) (bool, error) {
	res := r.conn(db).WithContext(ctx).
		Model(&domain.Profile{}).
		Where("email = ? AND free_paper_count < ?", email, limit).
		Updates(map[string]any{
			"free_paper_count": gorm.Expr("free_paper_count + 1"),
			"updated_at":       at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) StampUnlocked(ctx context.Context, db *gorm.DB, email string, at time.Time) error {
	return r.conn(db).WithContext(ctx).
		Model(&domain.Profile{}).
		Where("email = ? AND unlocked_at IS NULL", email).
		Updates(map[string]any{
			"unlocked_at": at,
			"updated_at":  at,
		}).Error
}
