package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/subeero/mangapipe/internal/ingest"
	"github.com/subeero/mangapipe/internal/model"
	appErr "github.com/subeero/mangapipe/internal/pkg/errors"
	"github.com/subeero/mangapipe/internal/repo"
	"github.com/subeero/mangapipe/internal/schedule"
)

const scheduledSyncJobName = "scheduled_sync"

// SyncService owns the sync job lifecycle: it accepts trigger requests,
// promotes pending jobs one at a time through a single worker, re-arms the
// cron entry when the schedule changes, and sweeps stuck jobs.
type SyncService struct {
	jobs         *repo.SyncJobRepo
	schedules    *repo.ScheduleRepo
	orchestrator *ingest.Orchestrator
	scheduler    schedule.Scheduler

	jobTimeout time.Duration

	wake   chan struct{}
	cancel context.CancelFunc
	done   chan struct{}

	// scheduleMu serializes schedule re-arming against concurrent updates.
	scheduleMu sync.Mutex
}

func NewSyncService(
	jobs *repo.SyncJobRepo,
	schedules *repo.ScheduleRepo,
	orchestrator *ingest.Orchestrator,
	scheduler schedule.Scheduler,
	jobTimeout time.Duration,
) *SyncService {
	if jobTimeout <= 0 {
		jobTimeout = 30 * time.Minute
	}
	return &SyncService{
		jobs:         jobs,
		schedules:    schedules,
		orchestrator: orchestrator,
		scheduler:    scheduler,
		jobTimeout:   jobTimeout,
		wake:         make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
}

// Start launches the worker loop and arms the persisted schedule. The passed
// context bounds every run; cancelling it interrupts an in-flight pass.
func (s *SyncService) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	cfg, err := s.schedules.Get(runCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("load schedule config: %w", err)
	}
	if err := s.armSchedule(cfg); err != nil {
		logutil.GetLogger(runCtx).Warn("stored schedule could not be armed", zap.Error(err))
	}

	go s.workerLoop(runCtx)
	return nil
}

func (s *SyncService) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

// RequestManualSync enqueues a pending job and returns its id immediately;
// the caller never blocks on execution. Requests submitted while a job runs
// are serialized through the pending state rather than rejected.
func (s *SyncService) RequestManualSync(ctx context.Context, sourceIDs []string) (string, error) {
	return s.enqueue(ctx, model.SyncTriggerManual, sourceIDs)
}

func (s *SyncService) enqueue(ctx context.Context, trigger string, sourceIDs []string) (string, error) {
	now := time.Now().Unix()
	job := &model.SyncJob{
		ID:        uuid.NewString(),
		Status:    model.SyncJobStatusPending,
		Trigger:   trigger,
		SourceIDs: sourceIDs,
		Ctime:     now,
		Mtime:     now,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return "", fmt.Errorf("create sync job: %w", err)
	}
	logutil.GetLogger(ctx).Info("sync job enqueued",
		zap.String("job_id", job.ID),
		zap.String("trigger", trigger),
		zap.Strings("source_ids", sourceIDs),
	)
	s.poke()
	return job.ID, nil
}

func (s *SyncService) GetJob(ctx context.Context, id string) (*model.SyncJob, error) {
	return s.jobs.GetByID(ctx, id)
}

func (s *SyncService) ListRecentJobs(ctx context.Context, limit int) ([]*model.SyncJob, error) {
	return s.jobs.ListRecent(ctx, limit)
}

// CancelPendingJob fails a job that has not started. Running jobs are out of
// reach; the staleness sweep is their only recovery path.
func (s *SyncService) CancelPendingJob(ctx context.Context, id string) error {
	cancelled, err := s.jobs.CancelPending(ctx, id, "cancelled before start", time.Now())
	if err != nil {
		return err
	}
	if !cancelled {
		if _, err := s.jobs.GetByID(ctx, id); err != nil {
			return err
		}
		return appErr.ErrJobNotCancellable
	}
	return nil
}

func (s *SyncService) GetSchedule(ctx context.Context) (*model.ScheduleConfig, error) {
	return s.schedules.Get(ctx)
}

// UpdateSchedule persists the new config and re-arms the cron entry in the
// same call, so the change takes effect without a restart.
func (s *SyncService) UpdateSchedule(ctx context.Context, cfg *model.ScheduleConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", appErr.ErrInvalid, err)
	}
	cfg.Mtime = time.Now().Unix()
	if err := s.schedules.Save(ctx, cfg); err != nil {
		return fmt.Errorf("save schedule config: %w", err)
	}
	return s.armSchedule(cfg)
}

func (s *SyncService) armSchedule(cfg *model.ScheduleConfig) error {
	s.scheduleMu.Lock()
	defer s.scheduleMu.Unlock()
	s.scheduler.RemoveJob(scheduledSyncJobName)
	if !cfg.Enabled {
		return nil
	}
	spec, err := schedule.BuildCronSpec(cfg)
	if err != nil {
		return err
	}
	return s.scheduler.AddJob(&scheduledSyncJob{svc: s, sourceIDs: cfg.SourceIDs}, spec)
}

// SweepStale force-fails running jobs older than the timeout. Exposed so the
// maintenance job can drive it on a fixed cadence.
func (s *SyncService) SweepStale(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.jobTimeout)
	reason := fmt.Sprintf("timed out after %s without completing", s.jobTimeout)
	swept, err := s.jobs.FailStale(ctx, cutoff, reason, time.Now())
	if err != nil {
		return 0, err
	}
	if swept > 0 {
		logutil.GetLogger(ctx).Warn("force-failed stale sync jobs", zap.Int64("count", swept))
		// The stale job blocked the single-flight slot; give waiting jobs a turn.
		s.poke()
	}
	return swept, nil
}

func (s *SyncService) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// workerLoop is the single job executor. It drains pending jobs one at a
// time; only this loop ever promotes pending to running.
func (s *SyncService) workerLoop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		case <-ticker.C:
		}
		for s.runNext(ctx) {
		}
	}
}

// runNext claims and executes the oldest pending job. Returns true when a job
// ran, so the caller can immediately look for the next one.
func (s *SyncService) runNext(ctx context.Context) bool {
	job, err := s.jobs.OldestPending(ctx)
	if err != nil {
		if !appErr.IsNotFound(err) {
			logutil.GetLogger(ctx).Error("poll pending jobs failed", zap.Error(err))
		}
		return false
	}
	claimed, err := s.jobs.Claim(ctx, job.ID, time.Now())
	if err != nil {
		logutil.GetLogger(ctx).Error("claim job failed", zap.String("job_id", job.ID), zap.Error(err))
		return false
	}
	if !claimed {
		// Another job still holds the running slot; the sweep or its own
		// completion will wake us again.
		return false
	}

	logger := logutil.GetLogger(ctx).With(zap.String("job_id", job.ID), zap.String("trigger", job.Trigger))
	logger.Info("sync job started")

	result, runErr := s.orchestrator.SyncAll(ctx, job.SourceIDs, func(progress model.SyncProgress) {
		if err := s.jobs.UpdateProgress(ctx, job.ID, &progress, time.Now().Unix()); err != nil {
			logger.Warn("progress update failed", zap.Error(err))
		}
	})
	now := time.Now()
	if runErr != nil {
		if err := s.jobs.Finish(ctx, job.ID, model.SyncJobStatusFailed, runErr.Error(), result, now); err != nil {
			logger.Error("mark job failed", zap.Error(err))
		}
		logger.Error("sync job failed", zap.Error(runErr))
		return true
	}
	if err := s.jobs.Finish(ctx, job.ID, model.SyncJobStatusCompleted, "", result, now); err != nil {
		logger.Error("mark job completed", zap.Error(err))
	}
	logger.Info("sync job completed",
		zap.Int("new_manga", result.NewManga),
		zap.Int("new_chapters", result.NewChapters),
		zap.Int("duplicates_skipped", result.DuplicatesSkipped),
	)
	return true
}

// scheduledSyncJob adapts the service to the cron scheduler; each matching
// tick enqueues exactly one pending job.
type scheduledSyncJob struct {
	svc       *SyncService
	sourceIDs []string
}

func (j *scheduledSyncJob) Name() string {
	return scheduledSyncJobName
}

func (j *scheduledSyncJob) Run(ctx context.Context) error {
	_, err := j.svc.enqueue(ctx, model.SyncTriggerScheduled, j.sourceIDs)
	return err
}
