package competitor

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reelbrand-ai/reelbrand-backend/internal/repo"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/db/models"
)

// Repository reads analyzed competitor ads. Analysis runs upstream; rows
// arrive with the shot timeline already populated.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.CompetitorAd, error) {
	var ad models.CompetitorAd
	if err := r.DB(ctx).First(&ad, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ad, nil
}
