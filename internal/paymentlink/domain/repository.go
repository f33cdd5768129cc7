package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, link *PaymentLink) error
	FindByLinkID(ctx context.Context, db *gorm.DB, linkID string) (*PaymentLink, error)

	// RecordProof moves a link to pending_verification with its proof
	// fields. The update is guarded so a completed link never leaves
	// its terminal state; the bool reports whether a row changed.
	RecordProof(ctx context.Context, db *gorm.DB, linkID, transactionID, screenshotRef string, at time.Time) (bool, error)

	// Complete moves pending_verification to completed. Guarded the
	// same way; calling it on any other state changes nothing.
	Complete(ctx context.Context, db *gorm.DB, linkID string, at time.Time) (bool, error)

	ListByStatus(ctx context.Context, db *gorm.DB, status Status) ([]PaymentLink, error)

	// TransactionIDExists checks payment links and legacy payment
	// records. Receipts are single-use across the whole system.
	TransactionIDExists(ctx context.Context, db *gorm.DB, transactionID string) (bool, error)
}
