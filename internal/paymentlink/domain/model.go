package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPendingPayment      Status = "pending_payment"
	StatusPendingVerification Status = "pending_verification"
	StatusCompleted           Status = "completed"
)

// PaymentLink is one plan-purchase attempt. Rows are never deleted; the
// table doubles as the payment audit trail.
type PaymentLink struct {
	ID            snowflake.ID   `json:"id" gorm:"primaryKey;autoIncrement:false"`
	LinkID        string         `json:"link_id" gorm:"type:varchar(32);uniqueIndex;not null"`
	UserEmail     string         `json:"user_email" gorm:"type:varchar(255);not null;index"`
	Plan          string         `json:"plan" gorm:"type:varchar(50);not null"`
	Amount        int64          `json:"amount" gorm:"not null"`
	Books         datatypes.JSON `json:"books" gorm:"type:jsonb"`
	Signature     string         `json:"signature" gorm:"type:varchar(64);not null"`
	Status        Status         `json:"status" gorm:"type:varchar(32);not null;index"`
	TransactionID string         `json:"transaction_id" gorm:"type:varchar(64);index"`
	ScreenshotRef string         `json:"screenshot_ref" gorm:"type:varchar(255)"`
	CreatedAt     time.Time      `json:"created_at" gorm:"not null"`
	ExpiresAt     time.Time      `json:"expires_at" gorm:"not null"`
	PaidAt        *time.Time     `json:"paid_at"`
}

func (PaymentLink) TableName() string { return "payment_links" }

// Payment is the legacy manual-payment record. It only participates in the
// global transaction-id uniqueness check against replayed receipts.
type Payment struct {
	ID            snowflake.ID   `json:"id" gorm:"primaryKey;autoIncrement:false"`
	UserEmail     string         `json:"user_email" gorm:"type:varchar(255);index"`
	Plan          string         `json:"plan" gorm:"type:varchar(50);not null"`
	Amount        int64          `json:"amount" gorm:"not null"`
	TransactionID string         `json:"transaction_id" gorm:"type:varchar(64);uniqueIndex"`
	ScreenshotRef string         `json:"screenshot_ref" gorm:"type:varchar(255)"`
	Books         datatypes.JSON `json:"books" gorm:"type:jsonb"`
	Phone         string         `json:"phone" gorm:"type:varchar(32)"`
	Status        string         `json:"status" gorm:"type:varchar(32);default:pending"`
	CreatedAt     time.Time      `json:"created_at" gorm:"not null"`
	VerifiedAt    *time.Time     `json:"verified_at"`
}

func (Payment) TableName() string { return "payments" }
