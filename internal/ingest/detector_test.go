package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/subeero/mangapipe/internal/model"
	appErr "github.com/subeero/mangapipe/internal/pkg/errors"
)

type fakeWorkStore struct {
	byPair map[string]*model.Manga
	search []*model.Manga
}

func pairKey(sourceID, sourceMangaID string) string {
	return sourceID + "|" + sourceMangaID
}

func (s *fakeWorkStore) GetBySourcePair(ctx context.Context, sourceID, sourceMangaID string) (*model.Manga, error) {
	if m, ok := s.byPair[pairKey(sourceID, sourceMangaID)]; ok {
		return m, nil
	}
	return nil, appErr.ErrNotFound
}

func (s *fakeWorkStore) SearchByKeywords(ctx context.Context, keywords []string, author string, limit int) ([]*model.Manga, error) {
	return s.search, nil
}

type fakeChapterStore struct {
	chapters []*model.Chapter
}

func (s *fakeChapterStore) ListByNumberRange(ctx context.Context, mangaID string, number, tolerance float64) ([]*model.Chapter, error) {
	var out []*model.Chapter
	for _, ch := range s.chapters {
		if ch.MangaID != mangaID {
			continue
		}
		if ch.Number >= number-tolerance && ch.Number <= number+tolerance {
			out = append(out, ch)
		}
	}
	return out, nil
}

func newTestDetector(works *fakeWorkStore, chapters *fakeChapterStore) *Detector {
	return NewDetector(works, chapters, DetectorOptions{})
}

func TestCheckWork_ExactSourceMatch(t *testing.T) {
	works := &fakeWorkStore{byPair: map[string]*model.Manga{
		pairKey("src-1", "sl-1"): {ID: "m1", Title: "Solo Leveling"},
	}}
	d := newTestDetector(works, &fakeChapterStore{})

	result, err := d.CheckWork(context.Background(), WorkQuery{
		Title: "completely different title", SourceID: "src-1", SourceMangaID: "sl-1",
	})
	require.NoError(t, err)
	require.True(t, result.IsDuplicate)
	require.Equal(t, 1.0, result.Confidence)
	require.Equal(t, "m1", result.Match.ID)
	require.Equal(t, []string{"exact source match"}, result.Reasons)
}

func TestCheckWork_FuzzyTitleMatch(t *testing.T) {
	works := &fakeWorkStore{search: []*model.Manga{
		{ID: "m1", Title: "Solo Leveling", Author: "Chugong"},
	}}
	d := newTestDetector(works, &fakeChapterStore{})

	// Punctuation and case differences clean away entirely.
	result, err := d.CheckWork(context.Background(), WorkQuery{
		Title: "SOLO LEVELING!!", Author: "Chugong", SourceID: "src-2", SourceMangaID: "other-9",
	})
	require.NoError(t, err)
	require.True(t, result.IsDuplicate)
	require.InDelta(t, 1.0, result.Confidence, 0.001)
	require.Equal(t, "m1", result.Match.ID)
}

func TestCheckWork_DistinctTitleIsNew(t *testing.T) {
	works := &fakeWorkStore{search: []*model.Manga{
		{ID: "m1", Title: "Solo Leveling"},
	}}
	d := newTestDetector(works, &fakeChapterStore{})

	result, err := d.CheckWork(context.Background(), WorkQuery{Title: "Tower of God"})
	require.NoError(t, err)
	require.False(t, result.IsDuplicate)
	require.Less(t, result.Confidence, defaultTitleThreshold)
}

func TestCheckWork_NoKeywords(t *testing.T) {
	d := newTestDetector(&fakeWorkStore{}, &fakeChapterStore{})
	result, err := d.CheckWork(context.Background(), WorkQuery{Title: "no"})
	require.NoError(t, err)
	require.False(t, result.IsDuplicate)
	require.Equal(t, []string{"title yields no searchable keywords"}, result.Reasons)
}

func TestScoreWork_SkipsAbsentFields(t *testing.T) {
	d := newTestDetector(&fakeWorkStore{}, &fakeChapterStore{})
	// Identical titles, no author/description on either side: score must be
	// a clean 1.0, not diluted by the unused weights.
	score := d.scoreWork(WorkQuery{Title: "Omniscient Reader"}, &model.Manga{Title: "Omniscient Reader"})
	require.InDelta(t, 1.0, score, 0.001)

	// A mismatched author must pull an otherwise perfect title down.
	score = d.scoreWork(
		WorkQuery{Title: "Omniscient Reader", Author: "Sing Shong"},
		&model.Manga{Title: "Omniscient Reader", Author: "someone else entirely"},
	)
	require.Less(t, score, 1.0)
}

func TestCheckChapter_ExactNumberIsDuplicate(t *testing.T) {
	chapters := &fakeChapterStore{chapters: []*model.Chapter{
		{ID: "c1", MangaID: "m1", Number: 110, Title: "Arise"},
	}}
	d := newTestDetector(&fakeWorkStore{}, chapters)

	result, err := d.CheckChapter(context.Background(), "m1", 110, "totally different title")
	require.NoError(t, err)
	require.True(t, result.IsDuplicate)
	require.Equal(t, "c1", result.Existing.ID)
}

func TestCheckChapter_NearNumberDifferentTitleIsNew(t *testing.T) {
	chapters := &fakeChapterStore{chapters: []*model.Chapter{
		{ID: "c1", MangaID: "m1", Number: 110, Title: "Arise"},
	}}
	d := newTestDetector(&fakeWorkStore{}, chapters)

	result, err := d.CheckChapter(context.Background(), "m1", 110.05, "Side Story")
	require.NoError(t, err)
	require.False(t, result.IsDuplicate)
}

func TestCheckChapter_NearNumberSameTitleIsDuplicate(t *testing.T) {
	chapters := &fakeChapterStore{chapters: []*model.Chapter{
		{ID: "c1", MangaID: "m1", Number: 110, Title: "Arise"},
	}}
	d := newTestDetector(&fakeWorkStore{}, chapters)

	result, err := d.CheckChapter(context.Background(), "m1", 110.05, "ARISE")
	require.NoError(t, err)
	require.True(t, result.IsDuplicate)
}

func TestSimilarity(t *testing.T) {
	d := newTestDetector(&fakeWorkStore{}, &fakeChapterStore{})
	require.Equal(t, 1.0, d.similarity("", ""))
	require.Equal(t, 0.0, d.similarity("something", ""))
	require.Equal(t, 1.0, d.similarity("Solo Leveling", "solo-leveling"))
	require.Greater(t, d.similarity("Solo Leveling", "Solo Levelling"), 0.9)
	require.Less(t, d.similarity("Solo Leveling", "Tower of God"), 0.5)
}

func TestClean(t *testing.T) {
	d := newTestDetector(&fakeWorkStore{}, &fakeChapterStore{})
	require.Equal(t, "solo leveling", d.clean("  Solo---Leveling!! "))
	require.Equal(t, "俺だけレベルアップな件", d.clean("俺だけレベルアップな件"))
	// Second call comes from the cache and must agree.
	require.Equal(t, "solo leveling", d.clean("  Solo---Leveling!! "))
}

func TestTitleKeywords(t *testing.T) {
	require.Equal(t, []string{"omniscient", "reader", "viewpoint"}, titleKeywords("the omniscient reader s viewpoint"))
	require.Empty(t, titleKeywords("no of an"))
	require.Len(t, titleKeywords("alpha beta gamma delta epsilon zeta eta"), 5)
}
