package model

const (
	SourceKindAPI      = "api"
	SourceKindScraping = "scraping"
)

// SourceConfig is the per-source fetch configuration, stored as JSON.
type SourceConfig struct {
	APIKey    string            `json:"api_key,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	RateLimit int               `json:"rate_limit,omitempty"` // requests per minute
	Selectors map[string]string `json:"selectors,omitempty"`  // reserved for scraping sources
}

type Source struct {
	ID         string       `json:"id" db:"id"`
	Name       string       `json:"name" db:"name"`
	BaseURL    string       `json:"base_url" db:"base_url"`
	Kind       string       `json:"kind" db:"kind"`
	Active     bool         `json:"active" db:"-"`
	LastSyncAt *int64       `json:"last_sync_at" db:"last_sync_at"`
	Config     SourceConfig `json:"config" db:"-"`
	Ctime      int64        `json:"ctime" db:"ctime"`
	Mtime      int64        `json:"mtime" db:"mtime"`
}
