package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/reelbrand-ai/reelbrand-backend/api/controllers"
	"github.com/reelbrand-ai/reelbrand-backend/api/middleware"
	projectsvc "github.com/reelbrand-ai/reelbrand-backend/internal/projects"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/config"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/db"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/logger"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	projectService *projectsvc.Service,
	projectTicker controllers.ProjectTicker,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	var redisP controllers.Pinger
	if redisClient != nil {
		redisP = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/projects", func(r chi.Router) {
			r.Post("/", controllers.CreateProject(projectService, logg))
			r.Get("/", controllers.ListProjects(projectService, logg))
			r.Get("/{projectID}", controllers.GetProject(projectService, logg))
			r.Post("/{projectID}/merge", controllers.RequestMerge(projectService, logg))
			r.Post("/{projectID}/tick", controllers.TickProject(projectService, projectTicker, logg))
			r.Post("/{projectID}/segments/{segmentIndex}/approval", controllers.ApproveSegmentVideo(projectService, logg))
		})
	})

	return r
}
