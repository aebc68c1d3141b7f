package coverstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

const maxCoverBytes = 8 << 20

// Mirror downloads remote cover images into a Store. Keys are derived from
// the manga id so a re-sync overwrites instead of accumulating copies.
type Mirror struct {
	store  Store
	client *http.Client
}

func NewMirror(store Store) *Mirror {
	return &Mirror{
		store:  store,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (m *Mirror) Mirror(ctx context.Context, mangaID, coverURL string) (string, error) {
	if m.store == nil {
		return "", fmt.Errorf("no cover store configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, coverURL, nil)
	if err != nil {
		return "", fmt.Errorf("build cover request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch cover: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch cover: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCoverBytes+1))
	if err != nil {
		return "", fmt.Errorf("read cover body: %w", err)
	}
	if len(data) > maxCoverBytes {
		return "", fmt.Errorf("cover exceeds %d bytes", maxCoverBytes)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("cover body is empty")
	}
	key := mangaID + coverExt(coverURL, resp.Header.Get("Content-Type"))
	body := &memFile{Reader: bytes.NewReader(data)}
	if err := m.store.Save(ctx, key, body, int64(len(data))); err != nil {
		return "", fmt.Errorf("save cover: %w", err)
	}
	return key, nil
}

func coverExt(coverURL, contentType string) string {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mediaType {
		case "image/jpeg":
			return ".jpg"
		case "image/png":
			return ".png"
		case "image/webp":
			return ".webp"
		case "image/gif":
			return ".gif"
		}
	}
	if u, err := url.Parse(coverURL); err == nil {
		switch ext := strings.ToLower(path.Ext(u.Path)); ext {
		case ".jpg", ".jpeg", ".png", ".webp", ".gif":
			return ext
		}
	}
	return ".jpg"
}

type memFile struct {
	*bytes.Reader
}

func (f *memFile) Close() error {
	return nil
}
