package repository

import (
	"context"
	"errors"
	"time"

	"github.com/paperifyhq/paperify/internal/paymentlink/domain"
	"gorm.io/gorm"
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

func (r *repo) Insert(ctx context.Context, db *gorm.DB, link *domain.PaymentLink) error {
	return r.conn(db).WithContext(ctx).Create(link).Error
}

func (r *repo) FindByLinkID(ctx context.Context, db *gorm.DB, linkID string) (*domain.PaymentLink, error) {
	var link domain.PaymentLink
	err := r.conn(db).WithContext(ctx).
		Where("link_id = ?", linkID).
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

func (r *repo) RecordProof(ctx context.Context, db *gorm.DB, linkID, transactionID, screenshotRef string, at time.Time) (bool, error) {
	res := r.conn(db).WithContext(ctx).
		Model(&domain.PaymentLink{}).
		Where("link_id = ? AND status <> ?", linkID, domain.StatusCompleted).
		Updates(map[string]any{
			"status":         domain.StatusPendingVerification,
			"transaction_id": transactionID,
			"screenshot_ref": screenshotRef,
			"paid_at":        at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) Complete(ctx context.Context, db *gorm.DB, linkID string, at time.Time) (bool, error) {
	res := r.conn(db).WithContext(ctx).
		Model(&domain.PaymentLink{}).
		Where("link_id = ? AND status = ?", linkID, domain.StatusPendingVerification).
		Updates(map[string]any{
			"status":  domain.StatusCompleted,
			"paid_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) ListByStatus(ctx context.Context, db *gorm.DB, status domain.Status) ([]domain.PaymentLink, error) {
	var links []domain.PaymentLink
	err := r.conn(db).WithContext(ctx).
		Where("status = ?", status).
		Order("created_at DESC").
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	return links, nil
}

func (r *repo) TransactionIDExists(ctx context.Context, db *gorm.DB, transactionID string) (bool, error) {
	conn := r.conn(db).WithContext(ctx)

	var count int64
	if err := conn.Model(&domain.PaymentLink{}).
		Where("transaction_id = ?", transactionID).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	if err := conn.Model(&domain.Payment{}).
		Where("transaction_id = ?", transactionID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
