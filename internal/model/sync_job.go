package model

const (
	SyncJobStatusPending   = "pending"
	SyncJobStatusRunning   = "running"
	SyncJobStatusCompleted = "completed"
	SyncJobStatusFailed    = "failed"

	SyncTriggerManual    = "manual"
	SyncTriggerScheduled = "scheduled"
)

// SyncProgress is the live view of a running job, updated as the orchestrator
// advances through sources.
type SyncProgress struct {
	Step              string `json:"step"`
	ProcessedManga    int    `json:"processed_manga"`
	ProcessedChapters int    `json:"processed_chapters"`
	ErrorCount        int    `json:"error_count"`
}

// SyncResult is the terminal summary of one run across all sources.
type SyncResult struct {
	NewManga          int      `json:"new_manga"`
	NewChapters       int      `json:"new_chapters"`
	DuplicatesSkipped int      `json:"duplicates_skipped"`
	SourcesProcessed  int      `json:"sources_processed"`
	Errors            []string `json:"errors"`
}

// SyncJob is one execution instance of the ingestion pipeline. Status moves
// pending -> running -> completed|failed and never leaves a terminal state.
type SyncJob struct {
	ID          string        `json:"id" db:"id"`
	Status      string        `json:"status" db:"status"`
	Trigger     string        `json:"trigger" db:"trigger_kind"`
	SourceIDs   []string      `json:"source_ids" db:"-"`
	Progress    *SyncProgress `json:"progress" db:"-"`
	Result      *SyncResult   `json:"result" db:"-"`
	Reason      string        `json:"reason" db:"reason"`
	StartedAt   *int64        `json:"started_at" db:"started_at"`
	CompletedAt *int64        `json:"completed_at" db:"completed_at"`
	Ctime       int64         `json:"ctime" db:"ctime"`
	Mtime       int64         `json:"mtime" db:"mtime"`
}

func (j *SyncJob) Terminal() bool {
	return j.Status == SyncJobStatusCompleted || j.Status == SyncJobStatusFailed
}
