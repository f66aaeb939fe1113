package credits

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reelbrand-ai/reelbrand-backend/internal/repo"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/db/models"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/enums"
)

// Repository persists credit balances and the immutable transaction log.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Balance reads the user's current credit balance.
func (r *Repository) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	var user models.User
	err := r.DB(ctx).Select("credit_balance").First(&user, "id = ?", userID).Error
	if err != nil {
		return 0, err
	}
	return user.CreditBalance, nil
}

// DeductTx atomically decrements the balance inside the caller's transaction.
// The guarded WHERE clause makes overdrafts impossible; zero rows affected
// means the balance was insufficient.
func (r *Repository) DeductTx(tx *gorm.DB, userID uuid.UUID, amount int) (balanceAfter int, err error) {
	if tx == nil {
		return 0, errors.New("transaction required")
	}

	result := tx.Model(&models.User{}).
		Where("id = ? AND credit_balance >= ?", userID, amount).
		Update("credit_balance", gorm.Expr("credit_balance - ?", amount))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}

	var user models.User
	if err := tx.Select("credit_balance").First(&user, "id = ?", userID).Error; err != nil {
		return 0, err
	}
	return user.CreditBalance, nil
}

// CreditTx atomically increments the balance inside the caller's transaction.
func (r *Repository) CreditTx(tx *gorm.DB, userID uuid.UUID, amount int) (balanceAfter int, err error) {
	if tx == nil {
		return 0, errors.New("transaction required")
	}

	result := tx.Model(&models.User{}).
		Where("id = ?", userID).
		Update("credit_balance", gorm.Expr("credit_balance + ?", amount))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}

	var user models.User
	if err := tx.Select("credit_balance").First(&user, "id = ?", userID).Error; err != nil {
		return 0, err
	}
	return user.CreditBalance, nil
}

// RecordTx appends a transaction record inside the caller's transaction.
func (r *Repository) RecordTx(tx *gorm.DB, record models.CreditTransaction) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Create(&record).Error
}

// HasRefund reports whether a refund was already recorded for the project.
func (r *Repository) HasRefund(ctx context.Context, projectID uuid.UUID) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.CreditTransaction{}).
		Where("project_id = ? AND type = ?", projectID, enums.CreditTransactionRefund).
		Count(&count).Error
	return count > 0, err
}
