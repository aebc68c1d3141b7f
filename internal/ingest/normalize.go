package ingest

import (
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/subeero/mangapipe/internal/model"
)

// Sources disagree wildly about field names and value shapes; everything below
// exists to fold those variants into one canonical CatalogEntry.

var stripHTML = bluemonday.StrictPolicy()

// decodeCatalog accepts a bare JSON array of entries or an object wrapping the
// array under a known key.
func decodeCatalog(data []byte) ([]map[string]interface{}, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var entries []map[string]interface{}
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, err
		}
		return entries, nil
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, err
	}
	for _, key := range []string{"data", "mangas", "manga", "results", "items"} {
		raw, ok := wrapper[key]
		if !ok {
			continue
		}
		var entries []map[string]interface{}
		if err := json.Unmarshal(raw, &entries); err != nil {
			continue
		}
		return entries, nil
	}
	return nil, fmt.Errorf("no recognized catalog array key")
}

// normalizeEntry converts one raw catalog object into canonical form. The
// second return is false when the entry is unusable (no title or no
// source-native id); such entries cannot be deduplicated or tracked and are
// dropped before they reach the pipeline.
func normalizeEntry(src *model.Source, raw map[string]interface{}) (*model.CatalogEntry, bool) {
	title := strings.TrimSpace(stringField(raw, "title", "name"))
	nativeID := strings.TrimSpace(stringField(raw, "id", "manga_id", "mangaId", "source_id", "slug"))
	if title == "" || nativeID == "" {
		return nil, false
	}
	entry := &model.CatalogEntry{
		Title:         title,
		Description:   cleanDescription(stringField(raw, "description", "summary", "synopsis")),
		Author:        strings.TrimSpace(stringField(raw, "author", "writer")),
		Artist:        strings.TrimSpace(stringField(raw, "artist", "illustrator")),
		Genres:        normalizeGenres(firstField(raw, "genres", "genre", "tags")),
		Status:        normalizeStatus(stringField(raw, "status", "state")),
		Kind:          inferKind(stringField(raw, "type", "kind"), src.Name),
		CoverURL:      strings.TrimSpace(stringField(raw, "cover", "cover_url", "coverImage", "image")),
		SourceID:      src.ID,
		SourceMangaID: nativeID,
	}
	if chapters, ok := firstField(raw, "chapters", "chapterList", "chapter_list").([]interface{}); ok {
		for _, rawChapter := range chapters {
			obj, ok := rawChapter.(map[string]interface{})
			if !ok {
				continue
			}
			if chapter, ok := normalizeChapter(obj); ok {
				entry.Chapters = append(entry.Chapters, chapter)
			}
		}
	}
	return entry, true
}

func normalizeChapter(raw map[string]interface{}) (model.ChapterEntry, bool) {
	number, ok := numberField(raw, "number", "chapter", "chapter_number", "chapterNumber")
	if !ok {
		return model.ChapterEntry{}, false
	}
	chapter := model.ChapterEntry{
		Number:          number,
		Title:           strings.TrimSpace(stringField(raw, "title", "name")),
		Description:     cleanDescription(stringField(raw, "description")),
		SourceChapterID: strings.TrimSpace(stringField(raw, "id", "chapter_id", "chapterId")),
	}
	if pages, ok := firstField(raw, "pages", "images", "page_urls").([]interface{}); ok {
		for _, page := range pages {
			if url, ok := page.(string); ok && url != "" {
				chapter.Pages = append(chapter.Pages, url)
			}
		}
	}
	return chapter, true
}

// normalizeGenres accepts a JSON list or a comma-separated string and returns
// a deduplicated, lowercased set.
func normalizeGenres(value interface{}) []string {
	var parts []string
	switch v := value.(type) {
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
	case string:
		parts = strings.Split(v, ",")
	default:
		return nil
	}
	seen := make(map[string]bool, len(parts))
	var genres []string
	for _, part := range parts {
		genre := strings.ToLower(strings.TrimSpace(part))
		if genre == "" || seen[genre] {
			continue
		}
		seen[genre] = true
		genres = append(genres, genre)
	}
	return genres
}

// normalizeStatus matches status strings case-insensitively by substring.
// Anything unrecognized defaults to ongoing, the safest assumption for a
// catalog that keeps updating.
func normalizeStatus(value string) model.WorkStatus {
	status := strings.ToLower(strings.TrimSpace(value))
	switch {
	case strings.Contains(status, "ongoing"), strings.Contains(status, "continuing"):
		return model.WorkStatusOngoing
	case strings.Contains(status, "completed"), strings.Contains(status, "finished"):
		return model.WorkStatusCompleted
	case strings.Contains(status, "hiatus"), strings.Contains(status, "pause"):
		return model.WorkStatusHiatus
	case strings.Contains(status, "cancelled"), strings.Contains(status, "dropped"):
		return model.WorkStatusCancelled
	default:
		return model.WorkStatusOngoing
	}
}

// inferKind guesses the work kind from an explicit type field, falling back to
// hints in the source's own name.
func inferKind(typeField, sourceName string) model.WorkKind {
	for _, hint := range []string{strings.ToLower(typeField), strings.ToLower(sourceName)} {
		switch {
		case strings.Contains(hint, "manhwa"), strings.Contains(hint, "korean"):
			return model.WorkKindManhwa
		case strings.Contains(hint, "manhua"), strings.Contains(hint, "chinese"):
			return model.WorkKindManhua
		}
	}
	return model.WorkKindManga
}

func cleanDescription(value string) string {
	stripped := stripHTML.Sanitize(value)
	return strings.TrimSpace(html.UnescapeString(stripped))
}

func stringField(raw map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case string:
			return v
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func firstField(raw map[string]interface{}, keys ...string) interface{} {
	for _, key := range keys {
		if v, ok := raw[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func numberField(raw map[string]interface{}, keys ...string) (float64, bool) {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case float64:
			return v, true
		case string:
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return parsed, true
			}
		}
	}
	return 0, false
}
