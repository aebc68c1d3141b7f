package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/subeero/mangapipe/internal/model"
	appErr "github.com/subeero/mangapipe/internal/pkg/errors"
)

type MangaRepo struct {
	db *sqlx.DB
}

func NewMangaRepo(db *sqlx.DB) *MangaRepo {
	return &MangaRepo{db: db}
}

type mangaRow struct {
	model.Manga
	GenresJSON string `db:"genres_json"`
}

var mangaFields = []string{
	"id", "title", "description", "author", "artist", "genres_json", "status",
	"kind", "cover_url", "cover_key", "source_id", "source_manga_id",
	"approval_status", "ctime", "mtime",
}

func (r *mangaRow) toModel() *model.Manga {
	m := r.Manga
	if r.GenresJSON != "" {
		_ = json.Unmarshal([]byte(r.GenresJSON), &m.Genres)
	}
	return &m
}

func (r *MangaRepo) Create(ctx context.Context, m *model.Manga) error {
	genresJSON, err := json.Marshal(m.Genres)
	if err != nil {
		return err
	}
	data := map[string]interface{}{
		"id":              m.ID,
		"title":           m.Title,
		"description":     m.Description,
		"author":          m.Author,
		"artist":          m.Artist,
		"genres_json":     string(genresJSON),
		"status":          string(m.Status),
		"kind":            string(m.Kind),
		"cover_url":       m.CoverURL,
		"cover_key":       m.CoverKey,
		"source_id":       m.SourceID,
		"source_manga_id": m.SourceMangaID,
		"approval_status": m.ApprovalStatus,
		"ctime":           m.Ctime,
		"mtime":           m.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("manga", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *MangaRepo) GetByID(ctx context.Context, id string) (*model.Manga, error) {
	sqlStr, args, err := builder.BuildSelect("manga", map[string]interface{}{"id": id}, mangaFields)
	if err != nil {
		return nil, err
	}
	var row mangaRow
	if err := r.db.GetContext(ctx, &row, sqlStr, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return row.toModel(), nil
}

// GetBySourcePair is the exact-identity lookup used by duplicate detection.
func (r *MangaRepo) GetBySourcePair(ctx context.Context, sourceID, sourceMangaID string) (*model.Manga, error) {
	where := map[string]interface{}{
		"source_id":       sourceID,
		"source_manga_id": sourceMangaID,
	}
	sqlStr, args, err := builder.BuildSelect("manga", where, mangaFields)
	if err != nil {
		return nil, err
	}
	var row mangaRow
	if err := r.db.GetContext(ctx, &row, sqlStr, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return row.toModel(), nil
}

// SearchByKeywords returns a bounded candidate set of works whose title
// contains any of the given keywords, optionally narrowed by author.
func (r *MangaRepo) SearchByKeywords(ctx context.Context, keywords []string, author string, limit int) ([]*model.Manga, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	conds := make([]string, 0, len(keywords))
	args := make([]interface{}, 0, len(keywords)+2)
	for _, kw := range keywords {
		conds = append(conds, "title LIKE ? COLLATE NOCASE")
		args = append(args, "%"+escapeLike(kw)+"%")
	}
	query := fmt.Sprintf("SELECT %s FROM manga WHERE (%s)", strings.Join(mangaFields, ", "), strings.Join(conds, " OR "))
	if author != "" {
		query += " AND author LIKE ? COLLATE NOCASE"
		args = append(args, "%"+escapeLike(author)+"%")
	}
	query += " ORDER BY ctime ASC LIMIT ?"
	args = append(args, limit)

	var rows []mangaRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	result := make([]*model.Manga, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].toModel())
	}
	return result, nil
}

func (r *MangaRepo) UpdateCoverKey(ctx context.Context, id, coverKey string, mtime int64) error {
	sqlStr, args, err := builder.BuildUpdate("manga",
		map[string]interface{}{"id": id},
		map[string]interface{}{"cover_key": coverKey, "mtime": mtime})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *MangaRepo) SetApprovalStatus(ctx context.Context, id, status string, mtime int64) error {
	sqlStr, args, err := builder.BuildUpdate("manga",
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

// escapeLike keeps user-controlled titles from acting as LIKE wildcards.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "%", "")
	s = strings.ReplaceAll(s, "_", " ")
	return s
}
