package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrLinkNotFound         = errors.New("payment link not found")
	ErrLinkExpired          = errors.New("payment link expired")
	ErrAlreadyProcessed     = errors.New("payment already processed")
	ErrSignatureMismatch    = errors.New("payment link signature mismatch")
	ErrInvalidPlan          = errors.New("invalid plan")
	ErrInvalidBookCount     = errors.New("plan requires a different number of books")
	ErrInvalidTransactionID = errors.New("transaction id must be at least 6 characters")
	ErrTransactionUsed      = errors.New("transaction id already used")
	ErrInvalidTransition    = errors.New("payment link is not in a state that allows this transition")
)

type CreateRequest struct {
	UserEmail     string
	Plan          string
	Books         []string
	ApplyDiscount bool
}

type CreateResponse struct {
	LinkID          string    `json:"link_id"`
	Plan            string    `json:"plan"`
	Amount          int64     `json:"amount"`
	OriginalAmount  int64     `json:"original_amount"`
	DiscountApplied bool      `json:"discount_applied"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// LinkDetails is the public view of a link returned by Verify.
type LinkDetails struct {
	LinkID    string    `json:"link_id"`
	UserEmail string    `json:"user_email"`
	Plan      string    `json:"plan"`
	Amount    int64     `json:"amount"`
	Books     []string  `json:"books"`
	Status    Status    `json:"status"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (CreateResponse, error)
	Verify(ctx context.Context, linkID string) (LinkDetails, error)
	SubmitProof(ctx context.Context, linkID, transactionID, screenshotRef string) error
	MarkComplete(ctx context.Context, linkID string) error
	ListPendingVerification(ctx context.Context) ([]PaymentLink, error)
}
