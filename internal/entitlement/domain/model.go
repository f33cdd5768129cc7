package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// UsageCounter meters one identity's consumption. The key is either a
// guest device id or a plan-scoped key derived from an email (for example
// "user@example.com_monthly"), so plan quotas never collide with demo
// quotas or with other users.
type UsageCounter struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey;autoIncrement:false"`
	CounterKey string       `json:"counter_key" gorm:"type:varchar(255);uniqueIndex;not null"`
	Count      int64        `json:"count" gorm:"not null;default:0"`
	UpdatedAt  time.Time    `json:"updated_at" gorm:"not null"`
}

func (UsageCounter) TableName() string { return "usage_counters" }
