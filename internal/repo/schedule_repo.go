package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/subeero/mangapipe/internal/model"
)

// ScheduleRepo persists the single process-wide schedule row (id fixed at 1).
type ScheduleRepo struct {
	db *sqlx.DB
}

func NewScheduleRepo(db *sqlx.DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

type scheduleRow struct {
	model.ScheduleConfig
	Enabled       int    `db:"enabled"`
	SourceIDsJSON string `db:"source_ids_json"`
}

// Get returns the stored schedule, or the disabled default when none has been
// saved yet.
func (r *ScheduleRepo) Get(ctx context.Context) (*model.ScheduleConfig, error) {
	const query = `
		SELECT enabled, interval, hour, minute, day_of_week, custom_minutes, source_ids_json, mtime
		FROM schedule_config WHERE id = 1
	`
	var row scheduleRow
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.DefaultScheduleConfig(), nil
		}
		return nil, err
	}
	cfg := row.ScheduleConfig
	cfg.Enabled = row.Enabled == 1
	if row.SourceIDsJSON != "" {
		_ = json.Unmarshal([]byte(row.SourceIDsJSON), &cfg.SourceIDs)
	}
	return &cfg, nil
}

func (r *ScheduleRepo) Save(ctx context.Context, cfg *model.ScheduleConfig) error {
	sourceIDsJSON, err := json.Marshal(cfg.SourceIDs)
	if err != nil {
		return err
	}
	enabled := 0
	if cfg.Enabled {
		enabled = 1
	}
	const query = `
		INSERT INTO schedule_config (id, enabled, interval, hour, minute, day_of_week, custom_minutes, source_ids_json, mtime)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			enabled = excluded.enabled,
			interval = excluded.interval,
			hour = excluded.hour,
			minute = excluded.minute,
			day_of_week = excluded.day_of_week,
			custom_minutes = excluded.custom_minutes,
			source_ids_json = excluded.source_ids_json,
			mtime = excluded.mtime
	`
	_, err = r.db.ExecContext(ctx, query,
		enabled, cfg.Interval, cfg.Hour, cfg.Minute, cfg.DayOfWeek,
		cfg.CustomMinutes, string(sourceIDsJSON), cfg.Mtime)
	return err
}
