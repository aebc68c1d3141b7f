package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/subeero/mangapipe/internal/model"
	appErr "github.com/subeero/mangapipe/internal/pkg/errors"
)

type ChapterRepo struct {
	db *sqlx.DB
}

func NewChapterRepo(db *sqlx.DB) *ChapterRepo {
	return &ChapterRepo{db: db}
}

type chapterRow struct {
	model.Chapter
	PagesJSON string `db:"pages_json"`
}

var chapterFields = []string{
	"id", "manga_id", "number", "title", "description", "pages_json",
	"source_chapter_id", "approval_status", "ctime", "mtime",
}

func (r *chapterRow) toModel() *model.Chapter {
	ch := r.Chapter
	if r.PagesJSON != "" {
		_ = json.Unmarshal([]byte(r.PagesJSON), &ch.Pages)
	}
	return &ch
}

func (r *ChapterRepo) Create(ctx context.Context, ch *model.Chapter) error {
	pagesJSON, err := json.Marshal(ch.Pages)
	if err != nil {
		return err
	}
	data := map[string]interface{}{
		"id":                ch.ID,
		"manga_id":          ch.MangaID,
		"number":            ch.Number,
		"title":             ch.Title,
		"description":       ch.Description,
		"pages_json":        string(pagesJSON),
		"source_chapter_id": ch.SourceChapterID,
		"approval_status":   ch.ApprovalStatus,
		"ctime":             ch.Ctime,
		"mtime":             ch.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("chapters", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *ChapterRepo) GetByID(ctx context.Context, id string) (*model.Chapter, error) {
	sqlStr, args, err := builder.BuildSelect("chapters", map[string]interface{}{"id": id}, chapterFields)
	if err != nil {
		return nil, err
	}
	var row chapterRow
	if err := r.db.GetContext(ctx, &row, sqlStr, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return row.toModel(), nil
}

// ListByNumberRange returns the chapters of a work whose number lies within
// [number-tolerance, number+tolerance], the candidate set for chapter-level
// duplicate checks.
func (r *ChapterRepo) ListByNumberRange(ctx context.Context, mangaID string, number, tolerance float64) ([]*model.Chapter, error) {
	where := map[string]interface{}{
		"manga_id":  mangaID,
		"number >=": number - tolerance,
		"number <=": number + tolerance,
		"_orderby":  "number asc",
	}
	return r.selectChapters(ctx, where)
}

func (r *ChapterRepo) ListByManga(ctx context.Context, mangaID string) ([]*model.Chapter, error) {
	where := map[string]interface{}{
		"manga_id": mangaID,
		"_orderby": "number asc",
	}
	return r.selectChapters(ctx, where)
}

func (r *ChapterRepo) selectChapters(ctx context.Context, where map[string]interface{}) ([]*model.Chapter, error) {
	sqlStr, args, err := builder.BuildSelect("chapters", where, chapterFields)
	if err != nil {
		return nil, err
	}
	var rows []chapterRow
	if err := r.db.SelectContext(ctx, &rows, sqlStr, args...); err != nil {
		return nil, err
	}
	chapters := make([]*model.Chapter, 0, len(rows))
	for i := range rows {
		chapters = append(chapters, rows[i].toModel())
	}
	return chapters, nil
}

func (r *ChapterRepo) SetApprovalStatus(ctx context.Context, id, status string, mtime int64) error {
	sqlStr, args, err := builder.BuildUpdate("chapters",
		map[string]interface{}{"id": id},
		map[string]interface{}{"approval_status": status, "mtime": mtime})
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}
