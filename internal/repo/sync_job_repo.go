package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/subeero/mangapipe/internal/model"
	appErr "github.com/subeero/mangapipe/internal/pkg/errors"
)

type SyncJobRepo struct {
	db *sqlx.DB
}

func NewSyncJobRepo(db *sqlx.DB) *SyncJobRepo {
	return &SyncJobRepo{db: db}
}

type syncJobRow struct {
	model.SyncJob
	SourceIDsJSON string `db:"source_ids_json"`
	ProgressJSON  string `db:"progress_json"`
	ResultJSON    string `db:"result_json"`
}

var syncJobFields = []string{
	"id", "status", "trigger_kind", "source_ids_json", "progress_json",
	"result_json", "reason", "started_at", "completed_at", "ctime", "mtime",
}

func (r *syncJobRow) toModel() *model.SyncJob {
	job := r.SyncJob
	if r.SourceIDsJSON != "" {
		_ = json.Unmarshal([]byte(r.SourceIDsJSON), &job.SourceIDs)
	}
	if r.ProgressJSON != "" && r.ProgressJSON != "{}" {
		var progress model.SyncProgress
		if err := json.Unmarshal([]byte(r.ProgressJSON), &progress); err == nil {
			job.Progress = &progress
		}
	}
	if r.ResultJSON != "" && r.ResultJSON != "{}" {
		var result model.SyncResult
		if err := json.Unmarshal([]byte(r.ResultJSON), &result); err == nil {
			job.Result = &result
		}
	}
	return &job
}

func (r *SyncJobRepo) Create(ctx context.Context, job *model.SyncJob) error {
	sourceIDsJSON, err := json.Marshal(job.SourceIDs)
	if err != nil {
		return err
	}
	data := map[string]interface{}{
		"id":              job.ID,
		"status":          job.Status,
		"trigger_kind":    job.Trigger,
		"source_ids_json": string(sourceIDsJSON),
		"progress_json":   "{}",
		"result_json":     "{}",
		"reason":          job.Reason,
		"started_at":      job.StartedAt,
		"completed_at":    job.CompletedAt,
		"ctime":           job.Ctime,
		"mtime":           job.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("sync_jobs", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *SyncJobRepo) GetByID(ctx context.Context, id string) (*model.SyncJob, error) {
	sqlStr, args, err := builder.BuildSelect("sync_jobs", map[string]interface{}{"id": id}, syncJobFields)
	if err != nil {
		return nil, err
	}
	var row syncJobRow
	if err := r.db.GetContext(ctx, &row, sqlStr, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return row.toModel(), nil
}

func (r *SyncJobRepo) ListRecent(ctx context.Context, limit int) ([]*model.SyncJob, error) {
	if limit <= 0 {
		limit = 20
	}
	where := map[string]interface{}{
		"_orderby": "ctime desc",
		"_limit":   []uint{0, uint(limit)},
	}
	sqlStr, args, err := builder.BuildSelect("sync_jobs", where, syncJobFields)
	if err != nil {
		return nil, err
	}
	var rows []syncJobRow
	if err := r.db.SelectContext(ctx, &rows, sqlStr, args...); err != nil {
		return nil, err
	}
	jobs := make([]*model.SyncJob, 0, len(rows))
	for i := range rows {
		jobs = append(jobs, rows[i].toModel())
	}
	return jobs, nil
}

func (r *SyncJobRepo) CountRunning(ctx context.Context) (int64, error) {
	var count int64
	const query = `SELECT COUNT(*) FROM sync_jobs WHERE status = 'running'`
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, err
	}
	return count, nil
}

// OldestPending returns the next job in line, or ErrNotFound.
func (r *SyncJobRepo) OldestPending(ctx context.Context) (*model.SyncJob, error) {
	where := map[string]interface{}{
		"status":   model.SyncJobStatusPending,
		"_orderby": "ctime asc",
		"_limit":   []uint{0, 1},
	}
	sqlStr, args, err := builder.BuildSelect("sync_jobs", where, syncJobFields)
	if err != nil {
		return nil, err
	}
	var row syncJobRow
	if err := r.db.GetContext(ctx, &row, sqlStr, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return row.toModel(), nil
}

// Claim promotes a pending job to running, guarded so that at most one job
// holds the running status at any instant. Returns false when another job is
// already running or the row left pending in the meantime.
func (r *SyncJobRepo) Claim(ctx context.Context, id string, now time.Time) (bool, error) {
	const query = `
		UPDATE sync_jobs
		SET status = 'running', started_at = ?, mtime = ?
		WHERE id = ? AND status = 'pending'
		  AND NOT EXISTS (SELECT 1 FROM sync_jobs WHERE status = 'running')
	`
	result, err := r.db.ExecContext(ctx, query, now.Unix(), now.Unix(), id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *SyncJobRepo) UpdateProgress(ctx context.Context, id string, progress *model.SyncProgress, mtime int64) error {
	progressJSON, err := json.Marshal(progress)
	if err != nil {
		return err
	}
	sqlStr, args, err := builder.BuildUpdate("sync_jobs",
		map[string]interface{}{"id": id, "status": model.SyncJobStatusRunning},
		map[string]interface{}{"progress_json": string(progressJSON), "mtime": mtime})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// Finish moves a running job to a terminal state with its result attached.
func (r *SyncJobRepo) Finish(ctx context.Context, id, status, reason string, result *model.SyncResult, now time.Time) error {
	resultJSON := []byte("{}")
	if result != nil {
		var err error
		resultJSON, err = json.Marshal(result)
		if err != nil {
			return err
		}
	}
	where := map[string]interface{}{"id": id, "status": model.SyncJobStatusRunning}
	update := map[string]interface{}{
		"status":       status,
		"reason":       reason,
		"result_json":  string(resultJSON),
		"completed_at": now.Unix(),
		"mtime":        now.Unix(),
	}
	sqlStr, args, err := builder.BuildUpdate("sync_jobs", where, update)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

// CancelPending fails a job that has not started yet. Running jobs cannot be
// cancelled; the staleness sweep is their only recovery path.
func (r *SyncJobRepo) CancelPending(ctx context.Context, id, reason string, now time.Time) (bool, error) {
	where := map[string]interface{}{"id": id, "status": model.SyncJobStatusPending}
	update := map[string]interface{}{
		"status":       model.SyncJobStatusFailed,
		"reason":       reason,
		"completed_at": now.Unix(),
		"mtime":        now.Unix(),
	}
	sqlStr, args, err := builder.BuildUpdate("sync_jobs", where, update)
	if err != nil {
		return false, err
	}
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// FailStale force-fails running jobs whose start predates the cutoff and
// returns how many rows were affected.
func (r *SyncJobRepo) FailStale(ctx context.Context, cutoff time.Time, reason string, now time.Time) (int64, error) {
	const query = `
		UPDATE sync_jobs
		SET status = 'failed', reason = ?, completed_at = ?, mtime = ?
		WHERE status = 'running' AND started_at IS NOT NULL AND started_at < ?
	`
	result, err := r.db.ExecContext(ctx, query, reason, now.Unix(), now.Unix(), cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteTerminalBefore trims old completed/failed jobs from history.
func (r *SyncJobRepo) DeleteTerminalBefore(ctx context.Context, cutoff int64) (int64, error) {
	const query = `DELETE FROM sync_jobs WHERE status IN ('completed', 'failed') AND ctime < ?`
	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
