package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/reelbrand-ai/reelbrand-backend/internal/brands"
	"github.com/reelbrand-ai/reelbrand-backend/internal/competitor"
	"github.com/reelbrand-ai/reelbrand-backend/internal/credits"
	"github.com/reelbrand-ai/reelbrand-backend/internal/projects"
	"github.com/reelbrand-ai/reelbrand-backend/internal/segments"
	"github.com/reelbrand-ai/reelbrand-backend/internal/videos"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/config"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/db"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/enums"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/genai"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/logger"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/metrics"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/outbox"

	framespkg "github.com/reelbrand-ai/reelbrand-backend/internal/frames"
)

const (
	// Absolute wall-clock ceilings, measured from project creation. A run
	// that has not produced its final video inside the window fails no
	// matter how recently it made progress.
	staleSegmentedAfter = 30 * time.Minute
	staleSingleAfter    = 40 * time.Minute

	// mergeTimeout bounds a merge job before the project is failed.
	mergeTimeout = 15 * time.Minute

	lockScope = "monitor-tick"
	tickJob   = "monitor"
)

// FrameDirector is the slice of the frame director the monitor needs.
type FrameDirector interface {
	Submit(ctx context.Context, req framespkg.Request) (string, error)
	Poll(ctx context.Context, handle string) (*genai.JobStatus, error)
}

// ClipDirector is the slice of the clip director the monitor needs.
type ClipDirector interface {
	Submit(ctx context.Context, req videos.Request) (string, error)
	Poll(ctx context.Context, model enums.VideoModel, handle string) (*genai.JobStatus, error)
}

// MergeService is the slice of the merge client the monitor needs.
type MergeService interface {
	SubmitMerge(ctx context.Context, videoURLs []string) (string, error)
	PollMerge(ctx context.Context, handle string) (*genai.JobStatus, error)
}

// Locker guards the tick so only one worker replica reconciles at a time.
type Locker interface {
	LockKey(scope string) string
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// Service is the reconciliation loop. Every tick is stateless and
// re-entrant: it reads persisted state, advances whatever it can without
// blocking, and writes the result back. Crashing mid-tick loses nothing.
type Service struct {
	dbc        *db.Client
	projects   *projects.Repository
	segs       *segments.Repository
	brands     *brands.Repository
	competitor *competitor.Repository
	credits    *credits.Service
	outbox     *outbox.Service
	frames     FrameDirector
	clips      ClipDirector
	merge      MergeService
	lock       Locker
	metrics    *metrics.MonitorMetrics
	logg       *logger.Logger
	cfg        config.MonitorConfig
	now        func() time.Time
}

type Params struct {
	DB         *db.Client
	Projects   *projects.Repository
	Segments   *segments.Repository
	Brands     *brands.Repository
	Competitor *competitor.Repository
	Credits    *credits.Service
	Outbox     *outbox.Service
	Frames     FrameDirector
	Clips      ClipDirector
	Merge      MergeService
	Lock       Locker
	Metrics    *metrics.MonitorMetrics
	Logger     *logger.Logger
	Config     config.MonitorConfig
}

func NewService(params Params) (*Service, error) {
	if params.DB == nil || params.Projects == nil || params.Segments == nil {
		return nil, fmt.Errorf("db, project and segment repositories are required")
	}
	if params.Credits == nil || params.Frames == nil || params.Clips == nil {
		return nil, fmt.Errorf("credits service and job directors are required")
	}
	return &Service{
		dbc:        params.DB,
		projects:   params.Projects,
		segs:       params.Segments,
		brands:     params.Brands,
		competitor: params.Competitor,
		credits:    params.Credits,
		outbox:     params.Outbox,
		frames:     params.Frames,
		clips:      params.Clips,
		merge:      params.Merge,
		lock:       params.Lock,
		metrics:    params.Metrics,
		logg:       params.Logger,
		cfg:        params.Config,
		now:        time.Now,
	}, nil
}

// Run drives ticks on the configured interval until the context ends.
func (s *Service) Run(ctx context.Context) error {
	interval := s.cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce executes one guarded tick. When another replica holds the lock the
// pass is skipped; the projects will still be there next interval.
func (s *Service) RunOnce(ctx context.Context) {
	if s.lock != nil {
		key := s.lock.LockKey(lockScope)
		ttl := s.cfg.LockTTL
		if ttl <= 0 {
			ttl = 2 * time.Minute
		}
		acquired, err := s.lock.SetNX(ctx, key, s.now().UnixNano(), ttl)
		if err != nil {
			if s.logg != nil {
				s.logg.Warn(ctx, "tick lock unavailable: "+err.Error())
			}
			return
		}
		if !acquired {
			return
		}
		defer func() {
			_ = s.lock.Del(ctx, key)
		}()
	}

	start := s.now()
	err := s.Tick(ctx)
	if s.metrics != nil {
		s.metrics.ObserveTickDuration(tickJob, s.now().Sub(start))
		if err != nil {
			s.metrics.IncTickFailure(tickJob)
		} else {
			s.metrics.IncTickSuccess(tickJob)
		}
	}
	if err != nil && s.logg != nil {
		s.logg.Error(ctx, "monitor tick finished with errors", err)
	}
}

// TickProject reconciles one project on demand, outside the interval loop.
// Completed projects are left untouched; failed ones go through the same
// recovery check as the interval pass.
func (s *Service) TickProject(ctx context.Context, projectID uuid.UUID) error {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return fmt.Errorf("loading project: %w", err)
	}
	if project.Status == enums.ProjectStatusCompleted {
		return nil
	}
	if s.logg != nil {
		ctx = s.logg.WithProjectID(ctx, project.ID.String())
	}
	return s.reconcileProject(ctx, project)
}

// Tick reconciles every active project once. Per-project errors are
// collected, never fatal to the pass.
func (s *Service) Tick(ctx context.Context) error {
	active, err := s.projects.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("listing active projects: %w", err)
	}
	if s.metrics != nil {
		s.metrics.SetActiveProjects(len(active))
	}

	var errs error
	for i := range active {
		project := &active[i]
		projectCtx := ctx
		if s.logg != nil {
			projectCtx = s.logg.WithProjectID(ctx, project.ID.String())
		}
		if err := s.reconcileProject(projectCtx, project); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("project %s: %w", project.ID, err))
		}
	}
	return errs
}
