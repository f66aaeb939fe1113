package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Product holds the product reference imagery for product image-to-image
// keyframe routing.
type Product struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BrandID     uuid.UUID      `gorm:"column:brand_id;type:uuid;not null"`
	Name        string         `gorm:"column:name;not null"`
	Description *string        `gorm:"column:description"`
	ImageURLs   pq.StringArray `gorm:"column:image_urls;type:text[]"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
