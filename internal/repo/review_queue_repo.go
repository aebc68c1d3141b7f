package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/subeero/mangapipe/internal/model"
	appErr "github.com/subeero/mangapipe/internal/pkg/errors"
)

type ReviewQueueRepo struct {
	db *sqlx.DB
}

func NewReviewQueueRepo(db *sqlx.DB) *ReviewQueueRepo {
	return &ReviewQueueRepo{db: db}
}

var reviewQueueFields = []string{
	"id", "content_kind", "content_id", "priority", "submitted_by", "status",
	"reviewer_id", "notes", "ctime", "mtime",
}

func (r *ReviewQueueRepo) Create(ctx context.Context, item *model.ReviewQueueItem) error {
	data := map[string]interface{}{
		"id":           item.ID,
		"content_kind": item.ContentKind,
		"content_id":   item.ContentID,
		"priority":     item.Priority,
		"submitted_by": item.SubmittedBy,
		"status":       item.Status,
		"reviewer_id":  item.ReviewerID,
		"notes":        item.Notes,
		"ctime":        item.Ctime,
		"mtime":        item.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("review_queue", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *ReviewQueueRepo) GetByID(ctx context.Context, id string) (*model.ReviewQueueItem, error) {
	sqlStr, args, err := builder.BuildSelect("review_queue", map[string]interface{}{"id": id}, reviewQueueFields)
	if err != nil {
		return nil, err
	}
	var item model.ReviewQueueItem
	if err := r.db.GetContext(ctx, &item, sqlStr, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *ReviewQueueRepo) ListByStatus(ctx context.Context, status string, offset, limit int) ([]*model.ReviewQueueItem, error) {
	if limit <= 0 {
		limit = 50
	}
	where := map[string]interface{}{
		"status":   status,
		"_orderby": "priority desc, ctime asc",
		"_limit":   []uint{uint(offset), uint(limit)},
	}
	sqlStr, args, err := builder.BuildSelect("review_queue", where, reviewQueueFields)
	if err != nil {
		return nil, err
	}
	var items []*model.ReviewQueueItem
	if err := r.db.SelectContext(ctx, &items, sqlStr, args...); err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateStatusIf flips a queue row between statuses only when it still holds
// fromStatus, so two reviewers cannot both claim the same item.
func (r *ReviewQueueRepo) UpdateStatusIf(ctx context.Context, id, fromStatus, toStatus, reviewerID, notes string, mtime int64) (bool, error) {
	where := map[string]interface{}{
		"id":     id,
		"status": fromStatus,
	}
	update := map[string]interface{}{
		"status":      toStatus,
		"reviewer_id": reviewerID,
		"notes":       notes,
		"mtime":       mtime,
	}
	sqlStr, args, err := builder.BuildUpdate("review_queue", where, update)
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

func (r *ReviewQueueRepo) Stats(ctx context.Context) (*model.ReviewStats, error) {
	var stats model.ReviewStats
	const query = `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0) AS pending,
			COALESCE(SUM(CASE WHEN status = 'approved' THEN 1 ELSE 0 END), 0) AS approved,
			COALESCE(SUM(CASE WHEN status = 'rejected' THEN 1 ELSE 0 END), 0) AS rejected,
			COALESCE(SUM(CASE WHEN status = 'pending' AND content_kind = 'manga' THEN 1 ELSE 0 END), 0) AS pending_manga,
			COALESCE(SUM(CASE WHEN status = 'pending' AND content_kind = 'chapter' THEN 1 ELSE 0 END), 0) AS pending_chapters
		FROM review_queue
	`
	row := r.db.QueryRowContext(ctx, query)
	if err := row.Scan(&stats.Pending, &stats.Approved, &stats.Rejected, &stats.PendingManga, &stats.PendingChapts); err != nil {
		return nil, err
	}
	return &stats, nil
}

// CountCreatedSince reports queue rows inserted at or after the given unix
// timestamp.
func (r *ReviewQueueRepo) CountCreatedSince(ctx context.Context, since int64) (int64, error) {
	var count int64
	const query = `SELECT COUNT(*) FROM review_queue WHERE ctime >= ?`
	if err := r.db.GetContext(ctx, &count, query, since); err != nil {
		return 0, err
	}
	return count, nil
}
