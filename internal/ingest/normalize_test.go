package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/subeero/mangapipe/internal/model"
)

func TestDecodeCatalog_BareArray(t *testing.T) {
	entries, err := decodeCatalog([]byte(`[{"title":"Solo Leveling","id":"sl-1"}]`))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "Solo Leveling", entries[0]["title"])
}

func TestDecodeCatalog_WrappedArray(t *testing.T) {
	for _, key := range []string{"data", "mangas", "results", "items"} {
		entries, err := decodeCatalog([]byte(`{"` + key + `":[{"title":"x","id":"1"}]}`))
		require.NoError(t, err, key)
		require.Len(t, entries, 1, key)
	}
}

func TestDecodeCatalog_UnknownShape(t *testing.T) {
	entries, err := decodeCatalog([]byte(`{"payload":[{"title":"x"}]}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "no recognized catalog array key")
	require.Empty(t, entries)
}

func TestNormalizeEntry_FieldAliases(t *testing.T) {
	src := &model.Source{ID: "src-1", Name: "asura"}
	entry, ok := normalizeEntry(src, map[string]interface{}{
		"name":     "Tower of God",
		"manga_id": "tog-77",
		"summary":  "<p>Bam climbs the &amp; tower.</p>",
		"writer":   "SIU",
		"genre":    "Action, Fantasy, action",
		"state":    "Ongoing",
		"cover":    "https://cdn.example.com/tog.jpg",
	})
	require.True(t, ok)
	require.Equal(t, "Tower of God", entry.Title)
	require.Equal(t, "tog-77", entry.SourceMangaID)
	require.Equal(t, "src-1", entry.SourceID)
	require.Equal(t, "Bam climbs the & tower.", entry.Description)
	require.Equal(t, "SIU", entry.Author)
	require.Equal(t, []string{"action", "fantasy"}, entry.Genres)
	require.Equal(t, model.WorkStatusOngoing, entry.Status)
}

func TestNormalizeEntry_DropsUnusable(t *testing.T) {
	src := &model.Source{ID: "src-1"}
	_, ok := normalizeEntry(src, map[string]interface{}{"title": "No ID"})
	require.False(t, ok)
	_, ok = normalizeEntry(src, map[string]interface{}{"id": "no-title"})
	require.False(t, ok)
}

func TestNormalizeEntry_Chapters(t *testing.T) {
	src := &model.Source{ID: "src-1", Name: "api"}
	entry, ok := normalizeEntry(src, map[string]interface{}{
		"title": "Solo Leveling",
		"id":    "sl-1",
		"chapters": []interface{}{
			map[string]interface{}{"number": 110.0, "title": "Arise", "pages": []interface{}{"p1", "p2"}},
			map[string]interface{}{"chapter": "110.5"},
			map[string]interface{}{"title": "no number"},
		},
	})
	require.True(t, ok)
	require.Len(t, entry.Chapters, 2)
	require.Equal(t, 110.0, entry.Chapters[0].Number)
	require.Equal(t, []string{"p1", "p2"}, entry.Chapters[0].Pages)
	require.Equal(t, 110.5, entry.Chapters[1].Number)
}

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]model.WorkStatus{
		"Ongoing":     model.WorkStatusOngoing,
		"FINISHED":    model.WorkStatusCompleted,
		"on hiatus":   model.WorkStatusHiatus,
		"Dropped":     model.WorkStatusCancelled,
		"???":         model.WorkStatusOngoing,
		"":            model.WorkStatusOngoing,
		"publicación": model.WorkStatusOngoing,
	}
	for input, want := range cases {
		require.Equal(t, want, normalizeStatus(input), input)
	}
}

func TestInferKind(t *testing.T) {
	require.Equal(t, model.WorkKindManhwa, inferKind("manhwa", ""))
	require.Equal(t, model.WorkKindManhwa, inferKind("", "Korean Scans"))
	require.Equal(t, model.WorkKindManhua, inferKind("manhua", ""))
	require.Equal(t, model.WorkKindManga, inferKind("", "mangadex"))
}

func TestCleanDescription_StripsMarkup(t *testing.T) {
	require.Equal(t, "Hello & welcome", cleanDescription("  <b>Hello</b> &amp; <script>x()</script>welcome "))
}
