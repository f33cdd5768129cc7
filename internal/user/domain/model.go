package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// User identity is the email; it is the stable key every other entity
// hangs off and never changes after registration.
type User struct {
	ID             snowflake.ID   `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Email          string         `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash   string         `json:"-" gorm:"type:varchar(100)"`
	Name           string         `json:"name" gorm:"type:varchar(255);not null"`
	Subject        string         `json:"subject" gorm:"type:varchar(100)"`
	Age            int            `json:"age"`
	Institution    string         `json:"institution" gorm:"type:varchar(255)"`
	Country        string         `json:"country" gorm:"type:varchar(100)"`
	PreferredBooks datatypes.JSON `json:"preferred_books" gorm:"type:jsonb"`
	CreatedAt      time.Time      `json:"created_at" gorm:"not null"`
}

func (User) TableName() string { return "users" }
