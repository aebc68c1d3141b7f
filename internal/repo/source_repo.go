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

type SourceRepo struct {
	db *sqlx.DB
}

func NewSourceRepo(db *sqlx.DB) *SourceRepo {
	return &SourceRepo{db: db}
}

type sourceRow struct {
	model.Source
	Active     int    `db:"active"`
	ConfigJSON string `db:"config_json"`
}

var sourceFields = []string{"id", "name", "base_url", "kind", "active", "last_sync_at", "config_json", "ctime", "mtime"}

func (r *sourceRow) toModel() (*model.Source, error) {
	src := r.Source
	src.Active = r.Active == 1
	if r.ConfigJSON != "" {
		if err := json.Unmarshal([]byte(r.ConfigJSON), &src.Config); err != nil {
			return nil, err
		}
	}
	return &src, nil
}

func (r *SourceRepo) Create(ctx context.Context, src *model.Source) error {
	configJSON, err := json.Marshal(src.Config)
	if err != nil {
		return err
	}
	data := map[string]interface{}{
		"id":           src.ID,
		"name":         src.Name,
		"base_url":     src.BaseURL,
		"kind":         src.Kind,
		"active":       boolToInt(src.Active),
		"last_sync_at": src.LastSyncAt,
		"config_json":  string(configJSON),
		"ctime":        src.Ctime,
		"mtime":        src.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("sources", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *SourceRepo) Update(ctx context.Context, src *model.Source) error {
	configJSON, err := json.Marshal(src.Config)
	if err != nil {
		return err
	}
	where := map[string]interface{}{"id": src.ID}
	update := map[string]interface{}{
		"name":        src.Name,
		"base_url":    src.BaseURL,
		"kind":        src.Kind,
		"active":      boolToInt(src.Active),
		"config_json": string(configJSON),
		"mtime":       src.Mtime,
	}
	sqlStr, args, err := builder.BuildUpdate("sources", where, update)
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

func (r *SourceRepo) Delete(ctx context.Context, id string) error {
	sqlStr, args, err := builder.BuildDelete("sources", map[string]interface{}{"id": id})
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

func (r *SourceRepo) GetByID(ctx context.Context, id string) (*model.Source, error) {
	sqlStr, args, err := builder.BuildSelect("sources", map[string]interface{}{"id": id}, sourceFields)
	if err != nil {
		return nil, err
	}
	var row sourceRow
	if err := r.db.GetContext(ctx, &row, sqlStr, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return row.toModel()
}

// List returns all sources in stable registry order so sync runs always
// process them in the same sequence.
func (r *SourceRepo) List(ctx context.Context) ([]*model.Source, error) {
	where := map[string]interface{}{"_orderby": "ctime asc, id asc"}
	return r.selectSources(ctx, where)
}

func (r *SourceRepo) ListActive(ctx context.Context) ([]*model.Source, error) {
	where := map[string]interface{}{"active": 1, "_orderby": "ctime asc, id asc"}
	return r.selectSources(ctx, where)
}

func (r *SourceRepo) selectSources(ctx context.Context, where map[string]interface{}) ([]*model.Source, error) {
	sqlStr, args, err := builder.BuildSelect("sources", where, sourceFields)
	if err != nil {
		return nil, err
	}
	var rows []sourceRow
	if err := r.db.SelectContext(ctx, &rows, sqlStr, args...); err != nil {
		return nil, err
	}
	sources := make([]*model.Source, 0, len(rows))
	for i := range rows {
		src, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

func (r *SourceRepo) UpdateLastSyncAt(ctx context.Context, id string, at time.Time) error {
	where := map[string]interface{}{"id": id}
	update := map[string]interface{}{
		"last_sync_at": at.Unix(),
		"mtime":        at.Unix(),
	}
	sqlStr, args, err := builder.BuildUpdate("sources", where, update)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
