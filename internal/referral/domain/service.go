package domain

import (
	"context"
	"errors"
)

var (
	ErrCodeRequired    = errors.New("referral code is required")
	ErrProfileNotFound = errors.New("referral profile not found")
	ErrAlreadyReferred = errors.New("referral code already applied")
	ErrSelfReferral    = errors.New("cannot use own referral code")
)

type Status struct {
	ReferralCode          string  `json:"referral_code"`
	ReferredBy            *string `json:"referred_by"`
	PaidReferrals         int     `json:"paid_referrals"`
	RequiredPaidReferrals int     `json:"required_paid_referrals"`
	Unlocked              bool    `json:"unlocked"`
	FreePaperCount        int64   `json:"free_paper_count"`
	FreePaperLimit        int64   `json:"free_paper_limit"`
}

type CreditResult struct {
	Credited        bool `json:"credited"`
	AlreadyCredited bool `json:"already_credited,omitempty"`
	PaidReferrals   int  `json:"paid_referrals,omitempty"`
}

type Service interface {
	// EnsureProfile is an idempotent get-or-create.
	EnsureProfile(ctx context.Context, email string) (*Profile, error)

	// ApplyCode records the referred-by relationship. First write wins;
	// self-referral is rejected.
	ApplyCode(ctx context.Context, email, code string) error

	// CreditReferrer credits the referrer of a paid user exactly once
	// per paid email, stamping the unlock timestamp when the paid set
	// first reaches the threshold. Call only after a successful
	// subscription activation.
	CreditReferrer(ctx context.Context, paidEmail string) (CreditResult, error)

	Status(ctx context.Context, email string) (Status, error)

	// ConsumeFreePaper increments the free-tier counter if it is still
	// below the limit. The count returned is the post-increment value
	// when ok, the current value otherwise.
	ConsumeFreePaper(ctx context.Context, email string) (count int64, ok bool, err error)
}
