package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/reelbrand-ai/reelbrand-backend/pkg/enums"
)

// CreditTransaction is an immutable record of a credit balance movement.
type CreditTransaction struct {
	ID           uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID                   `gorm:"column:user_id;type:uuid;not null"`
	ProjectID    *uuid.UUID                  `gorm:"column:project_id;type:uuid"`
	Type         enums.CreditTransactionType `gorm:"column:type;type:text;not null"`
	Amount       int                         `gorm:"column:amount;not null"`
	BalanceAfter int                         `gorm:"column:balance_after;not null"`
	Description  string                      `gorm:"column:description"`
	CreatedAt    time.Time                   `gorm:"column:created_at;autoCreateTime"`
}
