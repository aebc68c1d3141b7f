package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/subeero/mangapipe/internal/config"
	"github.com/subeero/mangapipe/internal/coverstore"
	"github.com/subeero/mangapipe/internal/handler"
	"github.com/subeero/mangapipe/internal/ingest"
	"github.com/subeero/mangapipe/internal/job"
	"github.com/subeero/mangapipe/internal/middleware"
	"github.com/subeero/mangapipe/internal/repo"
	"github.com/subeero/mangapipe/internal/schedule"
	"github.com/subeero/mangapipe/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "mangapipe",
		Short: "mangapipe ingestion server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run mangapipe server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			db, err := repo.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := repo.ApplyMigrations(db); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, db)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, db *sqlx.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("db_path", cfg.DBPath),
		zap.String("cover_store", cfg.CoverStore.Type),
	)

	sourceRepo := repo.NewSourceRepo(db)
	mangaRepo := repo.NewMangaRepo(db)
	chapterRepo := repo.NewChapterRepo(db)
	reviewRepo := repo.NewReviewQueueRepo(db)
	syncJobRepo := repo.NewSyncJobRepo(db)
	scheduleRepo := repo.NewScheduleRepo(db)
	notificationRepo := repo.NewNotificationRepo(db)
	userRepo := repo.NewUserRepo(db)

	var coverStore coverstore.Store
	var coverMirror ingest.CoverMirror
	if cfg.CoverStore.Type != "none" {
		store, err := coverstore.New(cfg.CoverStore)
		if err != nil {
			return fmt.Errorf("init cover store: %w", err)
		}
		coverStore = store
		coverMirror = coverstore.NewMirror(store)
	}

	fetcher := ingest.NewFetcher(time.Duration(cfg.Ingest.FetchTimeoutSeconds) * time.Second)
	detector := ingest.NewDetector(mangaRepo, chapterRepo, ingest.DetectorOptions{
		TitleThreshold:   cfg.Ingest.TitleSimilarityThreshold,
		ChapterTolerance: cfg.Ingest.ChapterNumberTolerance,
		CandidateLimit:   cfg.Ingest.CandidateLimit,
	})
	notifyService := service.NewNotifyService(notificationRepo, userRepo)
	orchestrator := ingest.NewOrchestrator(
		sourceRepo,
		mangaRepo,
		chapterRepo,
		reviewRepo,
		fetcher,
		detector,
		coverMirror,
		notifyService,
		ingest.OrchestratorOptions{
			DefaultSourceDelay: time.Duration(cfg.Ingest.DefaultSourceDelayMS) * time.Millisecond,
		},
	)

	scheduler := schedule.NewCronScheduler()
	syncService := service.NewSyncService(
		syncJobRepo,
		scheduleRepo,
		orchestrator,
		scheduler,
		time.Duration(cfg.Ingest.JobTimeoutMinutes)*time.Minute,
	)
	sourceService := service.NewSourceService(sourceRepo, fetcher)
	reviewService := service.NewReviewService(reviewRepo, mangaRepo, chapterRepo, coverStore)

	sweepSpec := fmt.Sprintf("@every %ds", cfg.Ingest.SweepIntervalSeconds)
	if err := scheduler.AddJob(job.NewStaleSyncSweepJob(syncService), sweepSpec); err != nil {
		return fmt.Errorf("register sweep job: %w", err)
	}
	retention := time.Duration(cfg.Ingest.JobRetentionDays) * 24 * time.Hour
	if err := scheduler.AddJob(job.NewSyncHistoryCleanupJob(syncJobRepo, retention), "30 4 * * *"); err != nil {
		return fmt.Errorf("register cleanup job: %w", err)
	}

	deps := handler.RouterDeps{
		Sources:       handler.NewSourceHandler(sourceService),
		Syncs:         handler.NewSyncHandler(syncService),
		Reviews:       handler.NewReviewHandler(reviewService),
		Covers:        handler.NewCoverHandler(coverStore),
		Notifications: handler.NewNotificationHandler(notifyService),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORS),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := syncService.Start(ctx); err != nil {
		return fmt.Errorf("start sync service: %w", err)
	}
	scheduler.Start(ctx)

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	scheduler.Stop()
	syncService.Stop()
	return nil
}
