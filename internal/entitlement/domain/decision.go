package domain

import (
	"context"
	"time"
)

type Mode string

const (
	ModeUnlimited Mode = "unlimited"
	ModeMetered   Mode = "metered"
	ModeDenied    Mode = "denied"
)

// Decision reasons. Plan-backed decisions carry the plan key instead.
const (
	ReasonGuestDemo        = "guest_demo"
	ReasonTempUnlimited    = "temp_unlimited"
	ReasonReferralUnlocked = "referral_unlocked"
	ReasonReferralFree     = "referral_free"
)

type Decision struct {
	Mode   Mode   `json:"mode"`
	Reason string `json:"reason"`
	Count  int64  `json:"count"`
	Limit  int64  `json:"limit,omitempty"`
}

func (d Decision) Allowed() bool { return d.Mode != ModeDenied }

// Identity is the subject of an entitlement decision. TempUnlimitedUntil
// is the session-held override expiry; it is never set for guests.
type Identity struct {
	Key                string
	Guest              bool
	TempUnlimitedUntil *time.Time
}

type Service interface {
	// Check answers "would this be allowed" without mutating state.
	Check(ctx context.Context, id Identity) (Decision, error)

	// Track consumes one generation: the increment happens atomically
	// with the read that determines the current count. Call exactly
	// once per content-generation action.
	Track(ctx context.Context, id Identity) (Decision, error)
}
