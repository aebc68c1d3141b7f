package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/subeero/mangapipe/internal/model"
)

func TestFetcher_FetchNormalizesCatalog(t *testing.T) {
	var gotKey atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey.Store(r.Header.Get("X-API-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"title":"Solo Leveling","id":"sl-1","chapters":[{"number":1}]},
			{"title":"broken entry"}
		]}`))
	}))
	defer server.Close()

	f := NewFetcher(5 * time.Second)
	src := &model.Source{
		ID: "src-1", Name: "asura", BaseURL: server.URL, Kind: model.SourceKindAPI,
		Config: model.SourceConfig{APIKey: "secret"},
	}

	entries := f.Fetch(context.Background(), src)
	require.Len(t, entries, 1)
	require.Equal(t, "Solo Leveling", entries[0].Title)
	require.Len(t, entries[0].Chapters, 1)
	require.Equal(t, "secret", gotKey.Load())
}

func TestFetcher_ErrorsYieldEmptySlice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	f := NewFetcher(5 * time.Second)
	src := &model.Source{ID: "src-1", Name: "asura", BaseURL: server.URL, Kind: model.SourceKindAPI}
	require.Nil(t, f.Fetch(context.Background(), src))
}

func TestFetcher_UnrecognizedCatalogShapeIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"payload":[{"title":"A","id":"1"}]}`))
	}))
	defer server.Close()

	f := NewFetcher(5 * time.Second)
	src := &model.Source{ID: "src-1", Name: "asura", BaseURL: server.URL, Kind: model.SourceKindAPI}
	_, err := f.fetch(context.Background(), src)
	require.ErrorContains(t, err, "parse catalog")
	require.Nil(t, f.Fetch(context.Background(), src))
}

func TestFetcher_RejectsScrapingSources(t *testing.T) {
	f := NewFetcher(time.Second)
	src := &model.Source{ID: "src-1", Kind: model.SourceKindScraping, BaseURL: "https://x.example"}
	_, err := f.fetch(context.Background(), src)
	require.Error(t, err)
}

func TestFetcher_RateLimiterIsPerSource(t *testing.T) {
	f := NewFetcher(time.Second)
	limited := &model.Source{ID: "limited", Config: model.SourceConfig{RateLimit: 60}}
	unlimited := &model.Source{ID: "unlimited"}

	require.NotSame(t, f.limiter(limited), f.limiter(unlimited))
	require.Same(t, f.limiter(limited), f.limiter(limited))
	// 60 req/min is one token per second.
	require.InDelta(t, 1.0, float64(f.limiter(limited).Limit()), 0.001)
}

func TestFetcher_ProbeReportsSamples(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"title":"A","id":"1"},{"title":"B","id":"2"},
			{"title":"C","id":"3"},{"title":"D","id":"4"}
		]`))
	}))
	defer server.Close()

	f := NewFetcher(5 * time.Second)
	src := &model.Source{ID: "src-1", BaseURL: server.URL, Kind: model.SourceKindAPI}

	result := f.Probe(context.Background(), src)
	require.True(t, result.Reachable)
	require.Equal(t, 4, result.EntryCount)
	require.Len(t, result.Samples, 3)
	require.Empty(t, result.Error)
}

func TestFetcher_ProbeReportsFailure(t *testing.T) {
	f := NewFetcher(time.Second)
	src := &model.Source{ID: "src-1", BaseURL: "http://127.0.0.1:1", Kind: model.SourceKindAPI}

	result := f.Probe(context.Background(), src)
	require.False(t, result.Reachable)
	require.NotEmpty(t, result.Error)
}
