package job

import (
	"context"

	"github.com/subeero/mangapipe/internal/service"
)

// StaleSyncSweepJob force-fails sync jobs that have sat in the running state
// past the timeout, typically after a crash mid-run.
type StaleSyncSweepJob struct {
	syncs *service.SyncService
}

func NewStaleSyncSweepJob(syncs *service.SyncService) *StaleSyncSweepJob {
	return &StaleSyncSweepJob{syncs: syncs}
}

func (j *StaleSyncSweepJob) Name() string {
	return "stale_sync_sweep"
}

func (j *StaleSyncSweepJob) Run(ctx context.Context) error {
	if j.syncs == nil {
		return nil
	}
	_, err := j.syncs.SweepStale(ctx)
	return err
}
