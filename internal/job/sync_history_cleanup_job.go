package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/subeero/mangapipe/internal/repo"
)

// SyncHistoryCleanupJob prunes terminal sync jobs older than the retention
// window. Pending and running rows are never touched.
type SyncHistoryCleanupJob struct {
	jobs      *repo.SyncJobRepo
	retention time.Duration
}

func NewSyncHistoryCleanupJob(jobs *repo.SyncJobRepo, retention time.Duration) *SyncHistoryCleanupJob {
	return &SyncHistoryCleanupJob{jobs: jobs, retention: retention}
}

func (j *SyncHistoryCleanupJob) Name() string {
	return "sync_history_cleanup"
}

func (j *SyncHistoryCleanupJob) Run(ctx context.Context) error {
	if j.jobs == nil {
		return nil
	}
	retention := j.retention
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	cutoff := time.Now().Add(-retention).Unix()
	deleted, err := j.jobs.DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		logutil.GetLogger(ctx).Info("pruned sync job history", zap.Int64("deleted", deleted))
	}
	return nil
}
