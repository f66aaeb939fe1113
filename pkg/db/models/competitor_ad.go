package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/reelbrand-ai/reelbrand-backend/pkg/types"
)

// CompetitorAd is a previously analyzed competitor advertisement: the shot
// timeline the creative planner derives segment prompts from. Analysis itself
// happens upstream; this service only reads the result.
type CompetitorAd struct {
	ID                uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerUserID       uuid.UUID             `gorm:"column:owner_user_id;type:uuid;not null"`
	Title             string                `gorm:"column:title;not null"`
	SourceVideoURL    string                `gorm:"column:source_video_url;not null"`
	ReferenceImageURL *string               `gorm:"column:reference_image_url"`
	CloneMode         bool                  `gorm:"column:clone_mode;not null;default:false"`
	Shots             types.CompetitorShots `gorm:"column:shots;type:jsonb;serializer:json"`
	DurationSeconds   float64               `gorm:"column:duration_seconds;not null;default:0"`
	AnalyzedAt        *time.Time            `gorm:"column:analyzed_at"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
