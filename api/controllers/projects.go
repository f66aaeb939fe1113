package controllers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/reelbrand-ai/reelbrand-backend/api/middleware"
	"github.com/reelbrand-ai/reelbrand-backend/api/responses"
	"github.com/reelbrand-ai/reelbrand-backend/api/validators"
	projectsvc "github.com/reelbrand-ai/reelbrand-backend/internal/projects"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/db/models"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/enums"
	pkgerrors "github.com/reelbrand-ai/reelbrand-backend/pkg/errors"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/logger"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/types"
)

// CreateProject admits a new generation project, deducting credits up front.
func CreateProject(svc *projectsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createProjectRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		req, err := payload.toAdmitRequest(userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Admit(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, createProjectResponse{
			Project:     projectFromModel(result.Project),
			CreditsUsed: result.CreditsUsed,
		})
	}
}

// GetProject returns one project with its segments and status snapshot.
func GetProject(svc *projectsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		projectID, err := pathUUID(r, "projectID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Get(r.Context(), userID, projectID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, projectDetailResponse{
			Project:  projectFromModel(view.Project),
			Segments: segmentsFromModels(view.Segments),
			Snapshot: view.Snapshot,
		})
	}
}

// ListProjects pages through the caller's projects, newest first.
func ListProjects(svc *projectsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit := queryInt(r, "limit", 0)
		offset := queryInt(r, "offset", 0)

		rows, err := svc.List(r.Context(), userID, limit, offset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]projectView, 0, len(rows))
		for i := range rows {
			out = append(out, projectFromModel(&rows[i]))
		}
		responses.WriteSuccess(w, map[string]any{"projects": out})
	}
}

// ApproveSegmentVideo flips the per-segment approval gate.
func ApproveSegmentVideo(svc *projectsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		projectID, err := pathUUID(r, "projectID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		index, err := strconv.Atoi(chi.URLParam(r, "segmentIndex"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid segment index"))
			return
		}

		var payload approveSegmentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ApproveSegmentVideo(r.Context(), userID, projectID, index, *payload.Approved); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"segment_index": index,
			"approved":      *payload.Approved,
		})
	}
}

// ProjectTicker runs one on-demand reconciliation pass for a project.
type ProjectTicker interface {
	TickProject(ctx context.Context, projectID uuid.UUID) error
}

// TickProject forces a reconciliation pass instead of waiting for the next
// worker interval, then returns the refreshed project.
func TickProject(svc *projectsvc.Service, ticker ProjectTicker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ticker == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tick service unavailable"))
			return
		}

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		projectID, err := pathUUID(r, "projectID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// Ownership check before touching the project.
		if _, err := svc.Get(r.Context(), userID, projectID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := ticker.TickProject(r.Context(), projectID); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reconciliation failed"))
			return
		}

		view, err := svc.Get(r.Context(), userID, projectID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, projectDetailResponse{
			Project:  projectFromModel(view.Project),
			Segments: segmentsFromModels(view.Segments),
			Snapshot: view.Snapshot,
		})
	}
}

// RequestMerge starts the final merge once every clip is rendered.
func RequestMerge(svc *projectsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		projectID, err := pathUUID(r, "projectID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		project, err := svc.RequestMerge(r.Context(), userID, projectID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, projectFromModel(project))
	}
}

func callerID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

type createProjectRequest struct {
	BrandID        *string `json:"brand_id,omitempty"`
	ProductID      *string `json:"product_id,omitempty"`
	CompetitorAdID *string `json:"competitor_ad_id,omitempty"`

	VideoModel  string `json:"video_model" validate:"required"`
	AspectRatio string `json:"aspect_ratio" validate:"required"`
	Language    string `json:"language,omitempty"`

	IsSegmented            bool `json:"is_segmented"`
	SegmentCount           int  `json:"segment_count,omitempty" validate:"omitempty,min=2,max=12"`
	SegmentDurationSeconds int  `json:"segment_duration_seconds,omitempty" validate:"omitempty,min=3,max=15"`
	DurationSeconds        int  `json:"duration_seconds,omitempty" validate:"omitempty,min=3,max=60"`
}

func (p createProjectRequest) toAdmitRequest(userID uuid.UUID) (projectsvc.AdmitRequest, error) {
	model, err := enums.ParseVideoModel(p.VideoModel)
	if err != nil {
		return projectsvc.AdmitRequest{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid video model")
	}
	ratio, err := enums.ParseAspectRatio(p.AspectRatio)
	if err != nil {
		return projectsvc.AdmitRequest{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid aspect ratio")
	}

	req := projectsvc.AdmitRequest{
		UserID:                 userID,
		VideoModel:             model,
		AspectRatio:            ratio,
		Language:               p.Language,
		IsSegmented:            p.IsSegmented,
		SegmentCount:           p.SegmentCount,
		SegmentDurationSeconds: p.SegmentDurationSeconds,
		DurationSeconds:        p.DurationSeconds,
	}

	if req.BrandID, err = optionalUUID(p.BrandID, "brand_id"); err != nil {
		return projectsvc.AdmitRequest{}, err
	}
	if req.ProductID, err = optionalUUID(p.ProductID, "product_id"); err != nil {
		return projectsvc.AdmitRequest{}, err
	}
	if req.CompetitorAdID, err = optionalUUID(p.CompetitorAdID, "competitor_ad_id"); err != nil {
		return projectsvc.AdmitRequest{}, err
	}
	return req, nil
}

func optionalUUID(raw *string, field string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field)
	}
	return &id, nil
}

type approveSegmentRequest struct {
	Approved *bool `json:"approved" validate:"required"`
}

type createProjectResponse struct {
	Project     projectView `json:"project"`
	CreditsUsed int         `json:"credits_used"`
}

type projectDetailResponse struct {
	Project  projectView                 `json:"project"`
	Segments []segmentView               `json:"segments"`
	Snapshot types.SegmentStatusSnapshot `json:"snapshot"`
}

type projectView struct {
	ID             uuid.UUID  `json:"id"`
	BrandID        *uuid.UUID `json:"brand_id,omitempty"`
	ProductID      *uuid.UUID `json:"product_id,omitempty"`
	CompetitorAdID *uuid.UUID `json:"competitor_ad_id,omitempty"`

	VideoModel  enums.VideoModel  `json:"video_model"`
	AspectRatio enums.AspectRatio `json:"aspect_ratio"`
	Language    string            `json:"language"`
	CreditCost  int               `json:"credit_cost"`

	Status      enums.ProjectStatus `json:"status"`
	CurrentStep enums.ProjectStep   `json:"current_step"`
	Progress    int                 `json:"progress"`

	IsSegmented            bool `json:"is_segmented"`
	SegmentCount           int  `json:"segment_count"`
	SegmentDurationSeconds int  `json:"segment_duration_seconds"`

	MergedVideoURL *string   `json:"merged_video_url,omitempty"`
	ErrorMessage   *string   `json:"error_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func projectFromModel(m *models.VideoProject) projectView {
	return projectView{
		ID:                     m.ID,
		BrandID:                m.BrandID,
		ProductID:              m.ProductID,
		CompetitorAdID:         m.CompetitorAdID,
		VideoModel:             m.VideoModel,
		AspectRatio:            m.AspectRatio,
		Language:               m.Language,
		CreditCost:             m.CreditCost,
		Status:                 m.Status,
		CurrentStep:            m.CurrentStep,
		Progress:               m.Progress,
		IsSegmented:            m.IsSegmented,
		SegmentCount:           m.SegmentCount,
		SegmentDurationSeconds: m.SegmentDurationSeconds,
		MergedVideoURL:         m.MergedVideoURL,
		ErrorMessage:           m.ErrorMessage,
		CreatedAt:              m.CreatedAt,
		UpdatedAt:              m.UpdatedAt,
	}
}

type segmentView struct {
	Index                   int                 `json:"index"`
	Status                  enums.SegmentStatus `json:"status"`
	Prompt                  types.SegmentPrompt `json:"prompt"`
	FirstFrameURL           *string             `json:"first_frame_url,omitempty"`
	ClosingFrameURL         *string             `json:"closing_frame_url,omitempty"`
	VideoURL                *string             `json:"video_url,omitempty"`
	VideoGenerationApproved bool                `json:"video_generation_approved"`
	RetryCount              int                 `json:"retry_count"`
	ErrorMessage            *string             `json:"error_message,omitempty"`
}

func segmentsFromModels(rows []models.VideoSegment) []segmentView {
	out := make([]segmentView, 0, len(rows))
	for i := range rows {
		seg := &rows[i]
		out = append(out, segmentView{
			Index:                   seg.Index,
			Status:                  seg.Status,
			Prompt:                  seg.Prompt,
			FirstFrameURL:           seg.FirstFrameURL,
			ClosingFrameURL:         seg.ClosingFrameURL,
			VideoURL:                seg.VideoURL,
			VideoGenerationApproved: seg.VideoGenerationApproved,
			RetryCount:              seg.RetryCount,
			ErrorMessage:            seg.ErrorMessage,
		})
	}
	return out
}
