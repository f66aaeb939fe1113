package credits

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/reelbrand-ai/reelbrand-backend/pkg/config"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/db/models"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/enums"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/errors"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/logger"
)

// Service is the credit ledger gateway: pricing, the admission-time deduct
// and the single compensating refund.
type Service struct {
	repo          *Repository
	logg          *logger.Logger
	segmentedRate decimal.Decimal
	singleRate    decimal.Decimal
}

type Params struct {
	Repo   *Repository
	Logger *logger.Logger
	Config config.CreditsConfig
}

func NewService(params Params) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	segmented, err := decimal.NewFromString(params.Config.SegmentedRatePerSecond)
	if err != nil {
		return nil, fmt.Errorf("parsing segmented rate: %w", err)
	}
	single, err := decimal.NewFromString(params.Config.SingleRatePerSecond)
	if err != nil {
		return nil, fmt.Errorf("parsing single rate: %w", err)
	}
	return &Service{
		repo:          params.Repo,
		logg:          params.Logger,
		segmentedRate: segmented,
		singleRate:    single,
	}, nil
}

// Price computes the credit cost for a project: per-second rate times total
// duration, rounded up to whole credits.
func (s *Service) Price(isSegmented bool, totalDurationSeconds int) (int, error) {
	if totalDurationSeconds <= 0 {
		return 0, errors.New(errors.CodeValidation, "total duration must be positive")
	}
	rate := s.singleRate
	if isSegmented {
		rate = s.segmentedRate
	}
	cost := rate.Mul(decimal.NewFromInt(int64(totalDurationSeconds))).Ceil()
	return int(cost.IntPart()), nil
}

// Deduct removes amount from the user's balance and records the transaction
// inside the caller's transaction. Returns an InsufficientCredits error when
// the balance cannot cover it.
func (s *Service) Deduct(ctx context.Context, tx *gorm.DB, userID, projectID uuid.UUID, amount int) error {
	balanceAfter, err := s.repo.DeductTx(tx, userID, amount)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.New(errors.CodeInsufficientCredits, "credit balance too low for this project")
		}
		return errors.Wrap(errors.CodeInternal, err, "deducting credits")
	}

	record := models.CreditTransaction{
		ID:           uuid.New(),
		UserID:       userID,
		ProjectID:    &projectID,
		Type:         enums.CreditTransactionDeduction,
		Amount:       -amount,
		BalanceAfter: balanceAfter,
		Description:  "video project admission",
	}
	if err := s.repo.RecordTx(tx, record); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "recording credit deduction")
	}
	return nil
}

// RefundOnce compensates the admission deduction exactly once per project.
// Calling it again after a recorded refund is a no-op, which lets the
// orchestrator invoke it from any failure path without double-paying.
func (s *Service) RefundOnce(ctx context.Context, tx *gorm.DB, userID, projectID uuid.UUID, amount int) error {
	refunded, err := s.repo.HasRefund(ctx, projectID)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "checking refund state")
	}
	if refunded {
		return nil
	}

	balanceAfter, err := s.repo.CreditTx(tx, userID, amount)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "refunding credits")
	}

	record := models.CreditTransaction{
		ID:           uuid.New(),
		UserID:       userID,
		ProjectID:    &projectID,
		Type:         enums.CreditTransactionRefund,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		Description:  "video project failure refund",
	}
	if err := s.repo.RecordTx(tx, record); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "recording credit refund")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"user_id":    userID.String(),
			"project_id": projectID.String(),
			"amount":     amount,
		})
		s.logg.Info(logCtx, "credits refunded")
	}
	return nil
}

// Balance reads the user's current credit balance.
func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.Balance(ctx, userID)
}
