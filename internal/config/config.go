package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	DBPath     string           `json:"db_path"`
	Port       int              `json:"port"`
	LogConfig  logger.LogConfig `json:"log_config"`
	CORS       []string         `json:"cors_allowed_origins"`
	Ingest     IngestConfig     `json:"ingest"`
	CoverStore CoverStoreConfig `json:"cover_store"`
}

type IngestConfig struct {
	FetchTimeoutSeconds      int     `json:"fetch_timeout_seconds"`
	TitleSimilarityThreshold float64 `json:"title_similarity_threshold"`
	ChapterNumberTolerance   float64 `json:"chapter_number_tolerance"`
	DefaultSourceDelayMS     int     `json:"default_source_delay_ms"`
	CandidateLimit           int     `json:"candidate_limit"`
	JobTimeoutMinutes        int     `json:"job_timeout_minutes"`
	SweepIntervalSeconds     int     `json:"sweep_interval_seconds"`
	JobRetentionDays         int     `json:"job_retention_days"`
}

type CoverStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db_path is required")
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.CoverStore.Type == "" {
		cfg.CoverStore.Type = "none"
	}
	applyIngestDefaults(&cfg.Ingest)
	return &cfg, nil
}

func applyIngestDefaults(cfg *IngestConfig) {
	if cfg.FetchTimeoutSeconds <= 0 {
		cfg.FetchTimeoutSeconds = 30
	}
	if cfg.TitleSimilarityThreshold <= 0 || cfg.TitleSimilarityThreshold > 1 {
		cfg.TitleSimilarityThreshold = 0.85
	}
	if cfg.ChapterNumberTolerance <= 0 {
		cfg.ChapterNumberTolerance = 0.1
	}
	if cfg.DefaultSourceDelayMS <= 0 {
		cfg.DefaultSourceDelayMS = 1000
	}
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = 20
	}
	if cfg.JobTimeoutMinutes <= 0 {
		cfg.JobTimeoutMinutes = 30
	}
	if cfg.SweepIntervalSeconds <= 0 {
		cfg.SweepIntervalSeconds = 60
	}
	if cfg.JobRetentionDays <= 0 {
		cfg.JobRetentionDays = 30
	}
}
