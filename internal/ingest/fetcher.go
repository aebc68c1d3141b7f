package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/subeero/mangapipe/internal/model"
)

const maxCatalogBytes = 16 * 1024 * 1024

// Fetcher retrieves and normalizes a source's catalog. Fetch never propagates
// an error across the pipeline boundary: a broken source contributes zero
// entries and the run moves on.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		timeout:  timeout,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (f *Fetcher) Fetch(ctx context.Context, src *model.Source) []model.CatalogEntry {
	entries, err := f.fetch(ctx, src)
	if err != nil {
		logutil.GetLogger(ctx).Error("catalog fetch failed",
			zap.String("source_id", src.ID),
			zap.String("source", src.Name),
			zap.Error(err),
		)
		return nil
	}
	return entries
}

func (f *Fetcher) fetch(ctx context.Context, src *model.Source) ([]model.CatalogEntry, error) {
	if src.Kind != model.SourceKindAPI {
		return nil, fmt.Errorf("source kind %q is not fetchable in-process", src.Kind)
	}
	if err := f.limiter(src).Wait(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.BaseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if src.Config.APIKey != "" {
		req.Header.Set("X-API-Key", src.Config.APIKey)
	}
	for key, value := range src.Config.Headers {
		req.Header.Set(key, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request catalog: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, src.BaseURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBytes))
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	rawEntries, err := decodeCatalog(body)
	if err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	entries := make([]model.CatalogEntry, 0, len(rawEntries))
	dropped := 0
	for _, raw := range rawEntries {
		entry, ok := normalizeEntry(src, raw)
		if !ok {
			dropped++
			continue
		}
		entries = append(entries, *entry)
	}
	if dropped > 0 {
		logutil.GetLogger(ctx).Warn("dropped unusable catalog entries",
			zap.String("source_id", src.ID),
			zap.Int("dropped", dropped),
		)
	}
	return entries, nil
}

// limiter returns the per-source token bucket derived from the source's
// configured requests-per-minute limit.
func (f *Fetcher) limiter(src *model.Source) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limiter, ok := f.limiters[src.ID]; ok {
		return limiter
	}
	limit := rate.Inf
	if src.Config.RateLimit > 0 {
		limit = rate.Limit(float64(src.Config.RateLimit) / 60.0)
	}
	limiter := rate.NewLimiter(limit, 1)
	f.limiters[src.ID] = limiter
	return limiter
}

// ProbeResult is the dry-run output of a source connectivity test.
type ProbeResult struct {
	Reachable  bool                 `json:"reachable"`
	EntryCount int                  `json:"entry_count"`
	ElapsedMS  int64                `json:"elapsed_ms"`
	Samples    []model.CatalogEntry `json:"samples"`
	Error      string               `json:"error,omitempty"`
}

// Probe fetches and normalizes a source's catalog without persisting
// anything, returning up to three sample entries.
func (f *Fetcher) Probe(ctx context.Context, src *model.Source) *ProbeResult {
	start := time.Now()
	entries, err := f.fetch(ctx, src)
	result := &ProbeResult{
		Reachable:  err == nil,
		EntryCount: len(entries),
		ElapsedMS:  time.Since(start).Milliseconds(),
	}
	if err != nil {
		result.Error = err.Error()
		return result
	}
	samples := len(entries)
	if samples > 3 {
		samples = 3
	}
	result.Samples = entries[:samples]
	return result
}
