package models

import (
	"time"

	"github.com/google/uuid"
)

// User owns projects and carries the spendable credit balance.
type User struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email         string    `gorm:"column:email;not null;uniqueIndex"`
	DisplayName   string    `gorm:"column:display_name"`
	CreditBalance int       `gorm:"column:credit_balance;not null;default:0"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
