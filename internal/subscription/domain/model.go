package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Subscription is one per user, keyed by email. Activation overwrites the
// existing row rather than stacking grants.
type Subscription struct {
	ID        snowflake.ID   `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Email     string         `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Plan      string         `json:"plan" gorm:"type:varchar(50);not null"`
	Books     datatypes.JSON `json:"books" gorm:"type:jsonb"`
	ExpiresAt time.Time      `json:"expires_at" gorm:"not null;index"`
	CreatedAt time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"not null"`
}

func (Subscription) TableName() string { return "subscriptions" }
