package monitor

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/reelbrand-ai/reelbrand-backend/pkg/db/models"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/types"
)

// projectRefs is the reference material the frame routing rules draw on,
// loaded once per project per pass.
type projectRefs struct {
	brandURLs         []string
	productURLs       []string
	productName       string
	cloneMode         bool
	cloneReferenceURL string
	shots             types.CompetitorShots
}

// loadProjectRefs resolves the catalog rows a project points at. Rows that
// were deleted since admission degrade the routing instead of blocking the
// pipeline.
func (s *Service) loadProjectRefs(ctx context.Context, project *models.VideoProject) (*projectRefs, error) {
	refs := &projectRefs{}

	if project.BrandID != nil && s.brands != nil {
		brand, err := s.brands.GetBrand(ctx, *project.BrandID)
		switch {
		case err == nil:
			refs.brandURLs = brand.ReferenceImageURLs
			if len(refs.brandURLs) == 0 && brand.LogoURL != nil {
				refs.brandURLs = []string{*brand.LogoURL}
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if s.logg != nil {
				s.logg.Warn(ctx, "brand row gone, frames fall back to text-to-image")
			}
		default:
			return nil, err
		}
	}

	if project.ProductID != nil && s.brands != nil {
		product, err := s.brands.GetProduct(ctx, *project.ProductID)
		switch {
		case err == nil:
			refs.productURLs = product.ImageURLs
			refs.productName = product.Name
		case errors.Is(err, gorm.ErrRecordNotFound):
			if s.logg != nil {
				s.logg.Warn(ctx, "product row gone, frames fall back to text-to-image")
			}
		default:
			return nil, err
		}
	}

	if project.CompetitorAdID != nil && s.competitor != nil {
		ad, err := s.competitor.GetByID(ctx, *project.CompetitorAdID)
		switch {
		case err == nil:
			refs.cloneMode = ad.CloneMode
			refs.shots = ad.Shots
			if ad.ReferenceImageURL != nil {
				refs.cloneReferenceURL = *ad.ReferenceImageURL
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if s.logg != nil {
				s.logg.Warn(ctx, "competitor ad row gone, recovery will use defaults")
			}
		default:
			return nil, err
		}
	}

	return refs, nil
}
