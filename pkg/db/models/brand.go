package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Brand holds the reference imagery the frame director uses for
// brand image-to-image routing.
type Brand struct {
	ID                 uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerUserID        uuid.UUID      `gorm:"column:owner_user_id;type:uuid;not null"`
	Name               string         `gorm:"column:name;not null"`
	LogoURL            *string        `gorm:"column:logo_url"`
	ReferenceImageURLs pq.StringArray `gorm:"column:reference_image_urls;type:text[]"`
	Tone               *string        `gorm:"column:tone"`
	CreatedAt          time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
