package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Profile is one per email. PaidReferralUsers is a dedup set of emails of
// referred users who completed a paid transaction.
type Profile struct {
	ID                snowflake.ID   `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Email             string         `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	ReferralCode      string         `json:"referral_code" gorm:"type:varchar(32);uniqueIndex;not null"`
	ReferredBy        *string        `json:"referred_by" gorm:"type:varchar(32)"`
	PaidReferralUsers datatypes.JSON `json:"paid_referral_users" gorm:"type:jsonb"`
	FreePaperCount    int64          `json:"free_paper_count" gorm:"not null;default:0"`
	UnlockedAt        *time.Time     `json:"unlocked_at"`
	CreatedAt         time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt         time.Time      `json:"updated_at" gorm:"not null"`
}

func (Profile) TableName() string { return "referral_profiles" }
