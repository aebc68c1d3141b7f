package model

import "fmt"

const (
	ScheduleIntervalHourly = "hourly"
	ScheduleIntervalDaily  = "daily"
	ScheduleIntervalWeekly = "weekly"
	ScheduleIntervalCustom = "custom"
)

// ScheduleConfig is the single process-wide sync schedule. Updating it re-arms
// the scheduler immediately.
type ScheduleConfig struct {
	Enabled       bool     `json:"enabled" db:"-"`
	Interval      string   `json:"interval" db:"interval"`
	Hour          int      `json:"hour" db:"hour"`
	Minute        int      `json:"minute" db:"minute"`
	DayOfWeek     int      `json:"day_of_week" db:"day_of_week"` // 0 = Sunday
	CustomMinutes int      `json:"custom_minutes" db:"custom_minutes"`
	SourceIDs     []string `json:"source_ids" db:"-"`
	Mtime         int64    `json:"mtime" db:"mtime"`
}

func (c *ScheduleConfig) Validate() error {
	switch c.Interval {
	case ScheduleIntervalHourly:
	case ScheduleIntervalDaily, ScheduleIntervalWeekly:
		if c.Hour < 0 || c.Hour > 23 {
			return fmt.Errorf("hour out of range: %d", c.Hour)
		}
	case ScheduleIntervalCustom:
		if c.CustomMinutes < 1 {
			return fmt.Errorf("custom_minutes must be >= 1, got %d", c.CustomMinutes)
		}
	default:
		return fmt.Errorf("unknown interval: %q", c.Interval)
	}
	if c.Minute < 0 || c.Minute > 59 {
		return fmt.Errorf("minute out of range: %d", c.Minute)
	}
	if c.Interval == ScheduleIntervalWeekly && (c.DayOfWeek < 0 || c.DayOfWeek > 6) {
		return fmt.Errorf("day_of_week out of range: %d", c.DayOfWeek)
	}
	return nil
}

func DefaultScheduleConfig() *ScheduleConfig {
	return &ScheduleConfig{
		Enabled:       false,
		Interval:      ScheduleIntervalDaily,
		Hour:          3,
		Minute:        0,
		DayOfWeek:     1,
		CustomMinutes: 60,
	}
}
