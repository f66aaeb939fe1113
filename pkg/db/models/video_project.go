package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/reelbrand-ai/reelbrand-backend/pkg/enums"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/types"
)

// VideoProject is one branded ad generation request. The monitor tick is the
// only writer after admission; fields with task handles represent in-flight
// external jobs.
type VideoProject struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID  `gorm:"column:user_id;type:uuid;not null"`
	BrandID        *uuid.UUID `gorm:"column:brand_id;type:uuid"`
	ProductID      *uuid.UUID `gorm:"column:product_id;type:uuid"`
	CompetitorAdID *uuid.UUID `gorm:"column:competitor_ad_id;type:uuid"`

	VideoModel  enums.VideoModel  `gorm:"column:video_model;type:text;not null"`
	AspectRatio enums.AspectRatio `gorm:"column:aspect_ratio;type:text;not null;default:'16:9'"`
	Language    string            `gorm:"column:language;not null;default:'en'"`
	CreditCost  int               `gorm:"column:credit_cost;not null"`

	Status      enums.ProjectStatus `gorm:"column:status;type:text;not null;default:'processing'"`
	CurrentStep enums.ProjectStep   `gorm:"column:current_step;type:text;not null;default:'pending'"`
	Progress    int                 `gorm:"column:progress;not null;default:0"`

	// No column default here: gorm skips zero-valued fields that carry a
	// default tag, which would turn a single-video insert segmented.
	IsSegmented            bool `gorm:"column:is_segmented;not null"`
	SegmentCount           int  `gorm:"column:segment_count;not null;default:0"`
	SegmentDurationSeconds int  `gorm:"column:segment_duration_seconds;not null;default:5"`

	// SegmentPlan is the serialized creative script, persisted so segment
	// rows can be rebuilt without re-calling the text service.
	SegmentPlan           json.RawMessage              `gorm:"column:segment_plan;type:jsonb"`
	SegmentStatusSnapshot *types.SegmentStatusSnapshot `gorm:"column:segment_status_snapshot;type:jsonb;serializer:json"`

	// Non-segmented mode drives a single video job on the project itself.
	VideoTaskHandle *string `gorm:"column:video_task_handle"`

	MergeTaskHandle *string `gorm:"column:merge_task_handle"`
	MergedVideoURL  *string `gorm:"column:merged_video_url"`

	RetryCount      int        `gorm:"column:retry_count;not null;default:0"`
	RecoveryCount   int        `gorm:"column:recovery_count;not null;default:0"`
	ErrorMessage    *string    `gorm:"column:error_message"`
	LastProcessedAt *time.Time `gorm:"column:last_processed_at"`
	MergeStartedAt  *time.Time `gorm:"column:merge_started_at"`

	Segments []VideoSegment `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
