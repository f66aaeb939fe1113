package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/reelbrand-ai/reelbrand-backend/pkg/enums"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/types"
)

// VideoSegment is one ordered beat of the final video. Indexes are zero-based
// and contiguous per project. Only the last segment ever owns a closing frame
// job; every other closing frame URL is mirrored from the next segment's
// opening frame.
type VideoSegment struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProjectID uuid.UUID `gorm:"column:project_id;type:uuid;not null;uniqueIndex:idx_segments_project_index,priority:1"`
	Index     int       `gorm:"column:segment_index;not null;uniqueIndex:idx_segments_project_index,priority:2"`

	Status enums.SegmentStatus `gorm:"column:status;type:text;not null;default:'pending_first_frame'"`
	Prompt types.SegmentPrompt `gorm:"column:prompt;type:jsonb;serializer:json"`

	FirstFrameTaskHandle   *string `gorm:"column:first_frame_task_handle"`
	FirstFrameURL          *string `gorm:"column:first_frame_url"`
	ClosingFrameTaskHandle *string `gorm:"column:closing_frame_task_handle"`
	ClosingFrameURL        *string `gorm:"column:closing_frame_url"`

	VideoTaskHandle *string `gorm:"column:video_task_handle"`
	VideoURL        *string `gorm:"column:video_url"`

	ContainsBrand   bool `gorm:"column:contains_brand;not null;default:false"`
	ContainsProduct bool `gorm:"column:contains_product;not null;default:false"`

	VideoGenerationApproved bool `gorm:"column:video_generation_approved;not null;default:false"`

	RetryCount   int     `gorm:"column:retry_count;not null;default:0"`
	ErrorMessage *string `gorm:"column:error_message"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
