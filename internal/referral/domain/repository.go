package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Repository exposes one typed method per updatable field combination.
// There is deliberately no generic partial-update entry point.
type Repository interface {
	// Insert is a no-op when a profile for the email already exists.
	Insert(ctx context.Context, db *gorm.DB, profile *Profile) error
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*Profile, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Profile, error)

	// SetReferredBy writes the referred-by code only when none is set.
	SetReferredBy(ctx context.Context, db *gorm.DB, email, code string, at time.Time) (bool, error)

	// ReplacePaidReferrals swaps the paid set from its previously read
	// value, optionally stamping the unlock time, as one atomic update.
	// A false result means the row changed underneath the caller.
	ReplacePaidReferrals(ctx context.Context, db *gorm.DB, email string, old, replacement []byte, unlockedAt *time.Time, at time.Time) (bool, error)

	// IncrementFreePapersBelow adds one to the free-paper counter while
	// it is below limit, reporting whether the increment happened.
	IncrementFreePapersBelow(ctx context.Context, db *gorm.DB, email string, limit int64, at time.Time) (bool, error)

	// StampUnlocked sets the unlock time only if it is still unset.
	StampUnlocked(ctx context.Context, db *gorm.DB, email string, at time.Time) error
}
