package segments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reelbrand-ai/reelbrand-backend/internal/repo"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/db/models"
)

// Repository persists video segments.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// CreateBatch inserts all segment rows inside the caller's transaction.
func (r *Repository) CreateBatch(tx *gorm.DB, segs []models.VideoSegment) error {
	if tx == nil {
		return fmt.Errorf("transaction required")
	}
	if len(segs) == 0 {
		return fmt.Errorf("no segments to create")
	}
	return tx.Create(&segs).Error
}

// ListByProject returns all segments of a project in ascending index order.
func (r *Repository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.VideoSegment, error) {
	var segs []models.VideoSegment
	err := r.DB(ctx).
		Where("project_id = ?", projectID).
		Order("segment_index ASC").
		Find(&segs).Error
	return segs, err
}

// GetByProjectAndIndex fetches one segment.
func (r *Repository) GetByProjectAndIndex(ctx context.Context, projectID uuid.UUID, index int) (*models.VideoSegment, error) {
	var seg models.VideoSegment
	err := r.DB(ctx).
		Where("project_id = ? AND segment_index = ?", projectID, index).
		First(&seg).Error
	if err != nil {
		return nil, err
	}
	return &seg, nil
}

// Save writes the segment's current field values.
func (r *Repository) Save(ctx context.Context, seg *models.VideoSegment) error {
	return r.DB(ctx).Save(seg).Error
}

// SetApproved flips the human approval gate for one segment.
func (r *Repository) SetApproved(ctx context.Context, projectID uuid.UUID, index int, approved bool) error {
	result := r.DB(ctx).Model(&models.VideoSegment{}).
		Where("project_id = ? AND segment_index = ?", projectID, index).
		Update("video_generation_approved", approved)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
