package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrLinkNotCompleted = errors.New("payment link is not completed")
	ErrNoSubscription   = errors.New("no subscription")
	ErrBookRequired     = errors.New("book is required")
)

type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
)

// Grant is the result of converting a completed payment link into a
// time-bounded subscription.
type Grant struct {
	UserEmail string    `json:"user_email"`
	Plan      string    `json:"plan"`
	Books     []string  `json:"books"`
	ExpiresAt time.Time `json:"expires_at"`
}

// View is a pure read of subscription state. Expired rows are reported as
// expired rather than deleted; cleanup belongs to PurgeExpired.
type View struct {
	Plan          string    `json:"plan"`
	Books         []string  `json:"books"`
	ExpiresAt     time.Time `json:"expires_at"`
	Status        Status    `json:"status"`
	DaysRemaining int       `json:"days_remaining"`
}

func (v View) Active() bool { return v.Status == StatusActive }

type Service interface {
	// Activate requires the link's stored status to be completed; it
	// performs no status mutation itself.
	Activate(ctx context.Context, linkID string) (Grant, error)

	Get(ctx context.Context, email string) (View, error)

	// LockBook pins a monthly_specific subscription to a single book,
	// preserving the current expiry. Other plans are returned as-is.
	LockBook(ctx context.Context, email, book string) (View, error)

	// PurgeExpired is the idempotent maintenance pass that deletes
	// expired rows. Read paths never delete.
	PurgeExpired(ctx context.Context) (int64, error)
}
