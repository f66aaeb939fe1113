package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/reelbrand-ai/reelbrand-backend/internal/brands"
	"github.com/reelbrand-ai/reelbrand-backend/internal/competitor"
	"github.com/reelbrand-ai/reelbrand-backend/internal/credits"
	"github.com/reelbrand-ai/reelbrand-backend/internal/frames"
	"github.com/reelbrand-ai/reelbrand-backend/internal/monitor"
	"github.com/reelbrand-ai/reelbrand-backend/internal/projects"
	"github.com/reelbrand-ai/reelbrand-backend/internal/segments"
	"github.com/reelbrand-ai/reelbrand-backend/internal/videos"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/config"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/db"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/genai"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/logger"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/metrics"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/migrate"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/outbox"
	"github.com/reelbrand-ai/reelbrand-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "monitor-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "monitor-worker"

	logg = logger.New(logger.Options{
		ServiceName: "monitor-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	imageClient, err := genai.NewImageClient(cfg.GenAI, nil)
	if err != nil {
		logg.Error(context.Background(), "failed to create image client", err)
		os.Exit(1)
	}
	videoClient, err := genai.NewVideoClient(cfg.GenAI, nil)
	if err != nil {
		logg.Error(context.Background(), "failed to create video client", err)
		os.Exit(1)
	}
	mergeClient, err := genai.NewMergeClient(cfg.GenAI, nil)
	if err != nil {
		logg.Error(context.Background(), "failed to create merge client", err)
		os.Exit(1)
	}

	frameDirector, err := frames.New(frames.Params{Images: imageClient, Logger: logg})
	if err != nil {
		logg.Error(context.Background(), "failed to create frame director", err)
		os.Exit(1)
	}
	clipDirector, err := videos.New(videos.Params{Videos: videoClient, Logger: logg})
	if err != nil {
		logg.Error(context.Background(), "failed to create clip director", err)
		os.Exit(1)
	}

	creditService, err := credits.NewService(credits.Params{
		Repo:   credits.NewRepository(dbClient.DB()),
		Logger: logg,
		Config: cfg.Credits,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create credit service", err)
		os.Exit(1)
	}

	service, err := monitor.NewService(monitor.Params{
		DB:         dbClient,
		Projects:   projects.NewRepository(dbClient.DB()),
		Segments:   segments.NewRepository(dbClient.DB()),
		Brands:     brands.NewRepository(dbClient.DB()),
		Competitor: competitor.NewRepository(dbClient.DB()),
		Credits:    creditService,
		Outbox:     outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Frames:     frameDirector,
		Clips:      clipDirector,
		Merge:      mergeClient,
		Lock:       redisClient,
		Metrics:    metrics.NewMonitorMetrics(prometheus.DefaultRegisterer),
		Logger:     logg,
		Config:     cfg.Monitor,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create monitor service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting monitor worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "monitor worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "monitor worker shutting down gracefully")
}
