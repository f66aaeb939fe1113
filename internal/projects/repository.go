package projects

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reelbrand-ai/reelbrand-backend/internal/repo"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/db/models"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/enums"
)

// MaxRecoveryCount caps how many times a failed project may be returned to
// processing. At the cap the failure is final and the row leaves the
// monitor's working set.
const MaxRecoveryCount = 5

// activeStatuses are the project states the monitor still acts on.
var activeStatuses = []enums.ProjectStatus{
	enums.ProjectStatusProcessing,
	enums.ProjectStatusSegmentFramesReady,
	enums.ProjectStatusAwaitingMerge,
	enums.ProjectStatusMergingSegments,
}

// Repository persists video projects.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// CreateTx inserts the project inside the caller's transaction.
func (r *Repository) CreateTx(tx *gorm.DB, project *models.VideoProject) error {
	if tx == nil {
		return fmt.Errorf("transaction required")
	}
	return tx.Create(project).Error
}

// GetByID fetches one project.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.VideoProject, error) {
	var project models.VideoProject
	if err := r.DB(ctx).First(&project, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// GetForUser fetches one project scoped to its owner.
func (r *Repository) GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.VideoProject, error) {
	var project models.VideoProject
	err := r.DB(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&project).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// ListByUser returns the user's projects, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.VideoProject, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var list []models.VideoProject
	err := r.DB(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&list).Error
	return list, err
}

// ListActive returns every project the monitor should reconcile, oldest
// update first so starved projects get attention. Failed projects stay in
// the set while they have recovery budget left, so the monitor can return
// them to processing.
func (r *Repository) ListActive(ctx context.Context) ([]models.VideoProject, error) {
	var list []models.VideoProject
	err := r.DB(ctx).
		Where("status IN ? OR (status = ? AND recovery_count < ?)",
			activeStatuses, enums.ProjectStatusFailed, MaxRecoveryCount).
		Order("updated_at ASC").
		Find(&list).Error
	return list, err
}

// Save writes the project's current field values.
func (r *Repository) Save(ctx context.Context, project *models.VideoProject) error {
	return r.DB(ctx).Save(project).Error
}

// UpdateFields patches a subset of columns.
func (r *Repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	result := r.DB(ctx).Model(&models.VideoProject{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
