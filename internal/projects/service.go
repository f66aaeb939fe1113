package projects

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reelbrand-ai/reelbrand-backend/internal/brands"
	"github.com/reelbrand-ai/reelbrand-backend/internal/competitor"
	"github.com/reelbrand-ai/reelbrand-backend/internal/credits"
	"github.com/reelbrand-ai/reelbrand-backend/internal/planner"
	"github.com/reelbrand-ai/reelbrand-backend/internal/segments"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/db"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/db/models"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/enums"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/errors"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/logger"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/outbox"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/types"
)

const (
	minSegmentCount    = 2
	maxSegmentCount    = 12
	minSegmentDuration = 3
	maxSegmentDuration = 15
	minSingleDuration  = 3
	maxSingleDuration  = 60
)

// MergeService is the slice of the merge client this service needs.
type MergeService interface {
	SubmitMerge(ctx context.Context, videoURLs []string) (string, error)
}

// Service owns the project lifecycle surface: admission, reads, the segment
// approval gate and the manual merge trigger. Everything after admission is
// advanced by the monitor.
type Service struct {
	dbc        *db.Client
	repo       *Repository
	segs       *segments.Repository
	brands     *brands.Repository
	competitor *competitor.Repository
	credits    *credits.Service
	planner    *planner.Planner
	outbox     *outbox.Service
	merge      MergeService
	logg       *logger.Logger
	now        func() time.Time
}

type Params struct {
	DB         *db.Client
	Repo       *Repository
	Segments   *segments.Repository
	Brands     *brands.Repository
	Competitor *competitor.Repository
	Credits    *credits.Service
	Planner    *planner.Planner
	Outbox     *outbox.Service
	Merge      MergeService
	Logger     *logger.Logger
}

func NewService(params Params) (*Service, error) {
	if params.DB == nil || params.Repo == nil || params.Segments == nil {
		return nil, fmt.Errorf("db, project and segment repositories are required")
	}
	if params.Credits == nil || params.Planner == nil {
		return nil, fmt.Errorf("credits service and planner are required")
	}
	return &Service{
		dbc:        params.DB,
		repo:       params.Repo,
		segs:       params.Segments,
		brands:     params.Brands,
		competitor: params.Competitor,
		credits:    params.Credits,
		planner:    params.Planner,
		outbox:     params.Outbox,
		merge:      params.Merge,
		logg:       params.Logger,
		now:        time.Now,
	}, nil
}

// AdmitRequest is the validated input for creating a project.
type AdmitRequest struct {
	UserID         uuid.UUID
	BrandID        *uuid.UUID
	ProductID      *uuid.UUID
	CompetitorAdID *uuid.UUID

	VideoModel  enums.VideoModel
	AspectRatio enums.AspectRatio
	Language    string

	IsSegmented            bool
	SegmentCount           int
	SegmentDurationSeconds int

	// Single-video mode only.
	DurationSeconds int
}

// AdmitResult is returned to the caller after a successful admission.
type AdmitResult struct {
	Project     *models.VideoProject
	CreditsUsed int
}

// Admit validates the request, prices it, derives the creative plan, then
// deducts credits and creates the project with its segment rows in one
// transaction. Planning happens before the transaction so a storyboard
// failure rejects the request without touching the balance.
func (s *Service) Admit(ctx context.Context, req AdmitRequest) (*AdmitResult, error) {
	if err := s.validateAdmit(req); err != nil {
		return nil, err
	}

	planInput, err := s.loadPlanInputs(ctx, req)
	if err != nil {
		return nil, err
	}

	totalDuration := req.DurationSeconds
	if req.IsSegmented {
		totalDuration = req.SegmentCount * req.SegmentDurationSeconds
	}
	cost, err := s.credits.Price(req.IsSegmented, totalDuration)
	if err != nil {
		return nil, err
	}

	// Single-video projects run as a one-segment plan with the approval
	// gate pre-opened, so one machine drives both modes.
	planSegments := req.SegmentCount
	planDuration := req.SegmentDurationSeconds
	if !req.IsSegmented {
		planSegments = 1
		planDuration = req.DurationSeconds
	}

	plan, err := s.planner.BuildPlan(ctx, planner.PlanRequest{
		SegmentCount:           planSegments,
		SegmentDurationSeconds: planDuration,
		Language:               req.Language,
		AspectRatio:            req.AspectRatio.String(),
		BrandName:              planInput.brandName,
		BrandTone:              planInput.brandTone,
		ProductName:            planInput.productName,
		ProductDescription:     planInput.productDescription,
		CompetitorShots:        planInput.shots,
	})
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "deriving creative plan")
	}
	encodedPlan, err := planner.EncodePlan(plan)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "encoding creative plan")
	}

	project := &models.VideoProject{
		ID:             uuid.New(),
		UserID:         req.UserID,
		BrandID:        req.BrandID,
		ProductID:      req.ProductID,
		CompetitorAdID: req.CompetitorAdID,
		VideoModel:     req.VideoModel,
		AspectRatio:    req.AspectRatio,
		Language:       req.Language,
		CreditCost:     cost,
		Status:         enums.ProjectStatusProcessing,
		CurrentStep:    enums.ProjectStepPending,
		IsSegmented:    req.IsSegmented,
		SegmentCount:   planSegments,
		SegmentPlan:    encodedPlan,
	}
	project.SegmentDurationSeconds = planDuration

	err = s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.credits.Deduct(ctx, tx, req.UserID, project.ID, cost); err != nil {
			return err
		}
		if err := s.repo.CreateTx(tx, project); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "creating project")
		}
		rows := segmentRowsFromPlan(project.ID, plan, !req.IsSegmented)
		if err := s.segs.CreateBatch(tx, rows); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "creating segments")
		}
		if s.outbox != nil {
			event := outbox.DomainEvent{
				EventType:     enums.EventProjectAdmitted,
				AggregateType: enums.AggregateVideoProject,
				AggregateID:   project.ID,
				Actor:         &outbox.ActorRef{UserID: req.UserID},
				Data: map[string]any{
					"project_id":   project.ID.String(),
					"credit_cost":  cost,
					"is_segmented": req.IsSegmented,
				},
				Version: 1,
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return errors.Wrap(errors.CodeInternal, err, "staging admission event")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"project_id":  project.ID.String(),
			"user_id":     req.UserID.String(),
			"credit_cost": cost,
		})
		s.logg.Info(logCtx, "project admitted")
	}
	return &AdmitResult{Project: project, CreditsUsed: cost}, nil
}

func (s *Service) validateAdmit(req AdmitRequest) error {
	if req.UserID == uuid.Nil {
		return errors.New(errors.CodeValidation, "user id is required")
	}
	if !req.VideoModel.IsValid() {
		return errors.New(errors.CodeValidation, "unknown video model")
	}
	if !req.AspectRatio.IsValid() {
		return errors.New(errors.CodeValidation, "unknown aspect ratio")
	}
	if req.IsSegmented {
		if req.SegmentCount < minSegmentCount || req.SegmentCount > maxSegmentCount {
			return errors.New(errors.CodeValidation,
				fmt.Sprintf("segment count must be between %d and %d", minSegmentCount, maxSegmentCount))
		}
		if req.SegmentDurationSeconds < minSegmentDuration || req.SegmentDurationSeconds > maxSegmentDuration {
			return errors.New(errors.CodeValidation,
				fmt.Sprintf("segment duration must be between %ds and %ds", minSegmentDuration, maxSegmentDuration))
		}
		return nil
	}
	if req.DurationSeconds < minSingleDuration || req.DurationSeconds > maxSingleDuration {
		return errors.New(errors.CodeValidation,
			fmt.Sprintf("duration must be between %ds and %ds", minSingleDuration, maxSingleDuration))
	}
	return nil
}

type planInputs struct {
	brandName          string
	brandTone          string
	productName        string
	productDescription string
	shots              types.CompetitorShots
}

// loadPlanInputs resolves referenced catalog entities and enforces ownership
// of the competitor ad. Missing references fail admission; a missing timeline
// does not, the planner falls back to the storyboard service.
func (s *Service) loadPlanInputs(ctx context.Context, req AdmitRequest) (*planInputs, error) {
	inputs := &planInputs{}

	if req.CompetitorAdID != nil {
		if s.competitor == nil {
			return nil, errors.New(errors.CodeInternal, "competitor repository not configured")
		}
		ad, err := s.competitor.GetByID(ctx, *req.CompetitorAdID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, errors.New(errors.CodeNotFound, "competitor ad not found")
			}
			return nil, errors.Wrap(errors.CodeInternal, err, "loading competitor ad")
		}
		if ad.OwnerUserID != req.UserID {
			return nil, errors.New(errors.CodeNotFound, "competitor ad not found")
		}
		inputs.shots = ad.Shots
	}

	if req.BrandID != nil && s.brands != nil {
		brand, err := s.brands.GetBrand(ctx, *req.BrandID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, errors.New(errors.CodeNotFound, "brand not found")
			}
			return nil, errors.Wrap(errors.CodeInternal, err, "loading brand")
		}
		inputs.brandName = brand.Name
		if brand.Tone != nil {
			inputs.brandTone = *brand.Tone
		}
	}

	if req.ProductID != nil && s.brands != nil {
		product, err := s.brands.GetProduct(ctx, *req.ProductID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, errors.New(errors.CodeNotFound, "product not found")
			}
			return nil, errors.Wrap(errors.CodeInternal, err, "loading product")
		}
		inputs.productName = product.Name
		if product.Description != nil {
			inputs.productDescription = *product.Description
		}
	}

	return inputs, nil
}

func segmentRowsFromPlan(projectID uuid.UUID, plan []types.SegmentPrompt, autoApprove bool) []models.VideoSegment {
	rows := make([]models.VideoSegment, 0, len(plan))
	for _, prompt := range plan {
		rows = append(rows, models.VideoSegment{
			ID:                      uuid.New(),
			ProjectID:               projectID,
			Index:                   prompt.Index,
			Status:                  enums.SegmentStatusPendingFirstFrame,
			Prompt:                  prompt,
			ContainsBrand:           prompt.ContainsBrand,
			ContainsProduct:         prompt.ContainsProduct,
			VideoGenerationApproved: autoApprove,
		})
	}
	return rows
}

// ProjectView is a project plus its live segment snapshot.
type ProjectView struct {
	Project  *models.VideoProject
	Segments []models.VideoSegment
	Snapshot types.SegmentStatusSnapshot
}

// Get returns the project with a freshly computed segment snapshot. Reads
// never mutate state; the persisted snapshot is the monitor's concern.
func (s *Service) Get(ctx context.Context, userID, projectID uuid.UUID) (*ProjectView, error) {
	project, err := s.repo.GetForUser(ctx, projectID, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New(errors.CodeNotFound, "project not found")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "loading project")
	}

	view := &ProjectView{Project: project}
	segs, err := s.segs.ListByProject(ctx, projectID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "loading segments")
	}
	view.Segments = segs
	view.Snapshot = segments.BuildSnapshot(segs, s.now())
	return view, nil
}

// List returns the user's projects, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.VideoProject, error) {
	list, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "listing projects")
	}
	return list, nil
}

// ApproveSegmentVideo flips the human approval gate on one segment. Only
// segments sitting at first_frame_ready accept an approval; the monitor picks
// approved segments up on its next pass.
func (s *Service) ApproveSegmentVideo(ctx context.Context, userID, projectID uuid.UUID, index int, approved bool) error {
	project, err := s.repo.GetForUser(ctx, projectID, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.New(errors.CodeNotFound, "project not found")
		}
		return errors.Wrap(errors.CodeInternal, err, "loading project")
	}
	if !project.IsSegmented {
		return errors.New(errors.CodeStateConflict, "single-video projects have no approval gate")
	}
	if project.Status.IsTerminal() {
		return errors.New(errors.CodeStateConflict, "project already finished")
	}

	seg, err := s.segs.GetByProjectAndIndex(ctx, projectID, index)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.New(errors.CodeNotFound, "segment not found")
		}
		return errors.Wrap(errors.CodeInternal, err, "loading segment")
	}
	if approved && seg.Status != enums.SegmentStatusFirstFrameReady {
		return errors.New(errors.CodeStateConflict, "segment frame is not ready for review")
	}

	if err := s.segs.SetApproved(ctx, projectID, index, approved); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "updating approval")
	}
	return nil
}

// RequestMerge starts the final merge for a project whose segments are all
// rendered. The project must be sitting at awaiting_merge; the monitor polls
// the submitted job to completion.
func (s *Service) RequestMerge(ctx context.Context, userID, projectID uuid.UUID) (*models.VideoProject, error) {
	project, err := s.repo.GetForUser(ctx, projectID, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New(errors.CodeNotFound, "project not found")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "loading project")
	}
	if project.Status != enums.ProjectStatusAwaitingMerge {
		return nil, errors.New(errors.CodeStateConflict, "project is not awaiting merge")
	}
	if s.merge == nil {
		return nil, errors.New(errors.CodeInternal, "merge service not configured")
	}

	segs, err := s.segs.ListByProject(ctx, projectID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "loading segments")
	}
	urls := make([]string, 0, len(segs))
	for _, seg := range segs {
		if seg.Status != enums.SegmentStatusVideoReady || seg.VideoURL == nil {
			return nil, errors.New(errors.CodeStateConflict,
				fmt.Sprintf("segment %d has no rendered video", seg.Index))
		}
		urls = append(urls, *seg.VideoURL)
	}

	handle, err := s.merge.SubmitMerge(ctx, urls)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "submitting merge job")
	}

	startedAt := s.now()
	project.Status = enums.ProjectStatusMergingSegments
	project.CurrentStep = enums.ProjectStepMergingSegments
	project.MergeTaskHandle = &handle
	project.MergeStartedAt = &startedAt
	if err := s.repo.Save(ctx, project); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "saving project")
	}

	if s.logg != nil {
		logCtx := s.logg.WithProjectID(ctx, project.ID.String())
		s.logg.Info(logCtx, "merge job submitted")
	}
	return project, nil
}
