package ingest

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/subeero/mangapipe/internal/model"
	appErr "github.com/subeero/mangapipe/internal/pkg/errors"
)

const (
	defaultTitleThreshold = 0.85
	defaultChapterTol     = 0.1
	chapterTitleThreshold = 0.9
	maxTitleKeywords      = 5
	cleanCacheSize        = 4096
	chapterNumberEpsilon  = 1e-6
	defaultCandidateLimit = 20
	weightTitle           = 0.6
	weightAuthor          = 0.3
	weightDescription     = 0.1
)

// stopWords are excluded from title keyword extraction; they carry no
// discriminating power in either English or romanized Japanese titles.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "was": true,
	"his": true, "her": true, "its": true, "with": true, "from": true,
	"that": true, "this": true, "not": true, "you": true, "all": true,
	"one": true, "out": true, "who": true, "has": true, "had": true,
	"but": true, "can": true,
	"no": true, "wa": true, "ga": true, "wo": true, "ni": true,
	"de": true, "to": true, "na": true, "mo": true,
}

// WorkStore is the read surface the detector needs from the catalog.
type WorkStore interface {
	GetBySourcePair(ctx context.Context, sourceID, sourceMangaID string) (*model.Manga, error)
	SearchByKeywords(ctx context.Context, keywords []string, author string, limit int) ([]*model.Manga, error)
}

// ChapterStore is the read surface for chapter-level checks.
type ChapterStore interface {
	ListByNumberRange(ctx context.Context, mangaID string, number, tolerance float64) ([]*model.Chapter, error)
}

type WorkQuery struct {
	Title         string
	Author        string
	Description   string
	SourceID      string
	SourceMangaID string
}

type MatchedWork struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Similarity float64 `json:"similarity"`
}

type DuplicateResult struct {
	IsDuplicate bool         `json:"is_duplicate"`
	Confidence  float64      `json:"confidence"`
	Match       *MatchedWork `json:"match,omitempty"`
	Reasons     []string     `json:"reasons"`
}

type ChapterDuplicateResult struct {
	IsDuplicate bool           `json:"is_duplicate"`
	Existing    *model.Chapter `json:"existing,omitempty"`
}

type DetectorOptions struct {
	TitleThreshold   float64
	ChapterTolerance float64
	CandidateLimit   int
}

// Detector scores incoming entries against the stored catalog. It is safe for
// use from a single sync worker; the clean-string cache is internally locked.
type Detector struct {
	works      WorkStore
	chapters   ChapterStore
	threshold  float64
	tolerance  float64
	candidates int
	cleanCache *lru.Cache[string, string]
}

func NewDetector(works WorkStore, chapters ChapterStore, opts DetectorOptions) *Detector {
	if opts.TitleThreshold <= 0 || opts.TitleThreshold > 1 {
		opts.TitleThreshold = defaultTitleThreshold
	}
	if opts.ChapterTolerance <= 0 {
		opts.ChapterTolerance = defaultChapterTol
	}
	if opts.CandidateLimit <= 0 {
		opts.CandidateLimit = defaultCandidateLimit
	}
	cache, _ := lru.New[string, string](cleanCacheSize)
	return &Detector{
		works:      works,
		chapters:   chapters,
		threshold:  opts.TitleThreshold,
		tolerance:  opts.ChapterTolerance,
		candidates: opts.CandidateLimit,
		cleanCache: cache,
	}
}

// CheckWork classifies an incoming work as duplicate or new. An exact
// (source, native id) match short-circuits with confidence 1.0; otherwise the
// best weighted similarity over a keyword candidate set decides.
func (d *Detector) CheckWork(ctx context.Context, q WorkQuery) (*DuplicateResult, error) {
	if q.SourceID != "" && q.SourceMangaID != "" {
		existing, err := d.works.GetBySourcePair(ctx, q.SourceID, q.SourceMangaID)
		if err != nil && !appErr.IsNotFound(err) {
			return nil, err
		}
		if existing != nil {
			return &DuplicateResult{
				IsDuplicate: true,
				Confidence:  1.0,
				Match:       &MatchedWork{ID: existing.ID, Title: existing.Title, Similarity: 1.0},
				Reasons:     []string{"exact source match"},
			}, nil
		}
	}

	keywords := titleKeywords(d.clean(q.Title))
	if len(keywords) == 0 {
		return &DuplicateResult{Reasons: []string{"title yields no searchable keywords"}}, nil
	}
	candidates, err := d.works.SearchByKeywords(ctx, keywords, q.Author, d.candidates)
	if err != nil {
		return nil, err
	}

	result := &DuplicateResult{}
	for _, candidate := range candidates {
		score := d.scoreWork(q, candidate)
		if score > result.Confidence {
			result.Confidence = score
			result.Match = &MatchedWork{ID: candidate.ID, Title: candidate.Title, Similarity: score}
		}
	}
	if result.Match == nil {
		result.Reasons = []string{"no similar titles found"}
		return result, nil
	}
	result.IsDuplicate = result.Confidence >= d.threshold
	if result.IsDuplicate {
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("title similarity %.2f to %q exceeds threshold %.2f", result.Confidence, result.Match.Title, d.threshold))
	} else {
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("best similarity %.2f to %q below threshold %.2f", result.Confidence, result.Match.Title, d.threshold))
	}
	return result, nil
}

// scoreWork computes the weighted similarity between the query and one stored
// candidate. Weights for absent fields are left out of the denominator so a
// missing author or description never drags the score down.
func (d *Detector) scoreWork(q WorkQuery, candidate *model.Manga) float64 {
	total := weightTitle * d.similarity(q.Title, candidate.Title)
	applied := weightTitle
	if q.Author != "" && candidate.Author != "" {
		total += weightAuthor * d.similarity(q.Author, candidate.Author)
		applied += weightAuthor
	}
	if q.Description != "" && candidate.Description != "" {
		total += weightDescription * d.similarity(q.Description, candidate.Description)
		applied += weightDescription
	}
	return total / applied
}

// CheckChapter decides whether a chapter is already stored for a work. The
// check runs independently per chapter so partially-new chapter lists diff
// correctly.
func (d *Detector) CheckChapter(ctx context.Context, mangaID string, number float64, title string) (*ChapterDuplicateResult, error) {
	existing, err := d.chapters.ListByNumberRange(ctx, mangaID, number, d.tolerance)
	if err != nil {
		return nil, err
	}
	for _, chapter := range existing {
		if math.Abs(chapter.Number-number) < chapterNumberEpsilon {
			return &ChapterDuplicateResult{IsDuplicate: true, Existing: chapter}, nil
		}
	}
	if title != "" {
		for _, chapter := range existing {
			if chapter.Title == "" {
				continue
			}
			if d.similarity(title, chapter.Title) > chapterTitleThreshold {
				return &ChapterDuplicateResult{IsDuplicate: true, Existing: chapter}, nil
			}
		}
	}
	return &ChapterDuplicateResult{}, nil
}

// similarity is 1 - normalized Levenshtein distance over cleaned strings.
func (d *Detector) similarity(a, b string) float64 {
	ca, cb := d.clean(a), d.clean(b)
	if ca == "" && cb == "" {
		return 1.0
	}
	if ca == "" || cb == "" {
		return 0.0
	}
	if ca == cb {
		return 1.0
	}
	distance := levenshtein.ComputeDistance(ca, cb)
	longest := len([]rune(ca))
	if l := len([]rune(cb)); l > longest {
		longest = l
	}
	return 1.0 - float64(distance)/float64(longest)
}

// clean lowercases, strips everything that is not a letter or digit in any
// script, and collapses runs of whitespace. Results are cached since the same
// stored titles are compared against every incoming entry of a run.
func (d *Detector) clean(s string) string {
	if cached, ok := d.cleanCache.Get(s); ok {
		return cached
	}
	lowered := strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(lowered))
	prevSpace := false
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			prevSpace = false
			continue
		}
		if !prevSpace {
			b.WriteRune(' ')
			prevSpace = true
		}
	}
	cleaned := strings.TrimSpace(b.String())
	d.cleanCache.Add(s, cleaned)
	return cleaned
}

// titleKeywords extracts up to five significant words from a cleaned title.
func titleKeywords(cleanedTitle string) []string {
	var keywords []string
	for _, word := range strings.Fields(cleanedTitle) {
		if len(word) <= 2 || stopWords[word] {
			continue
		}
		keywords = append(keywords, word)
		if len(keywords) == maxTitleKeywords {
			break
		}
	}
	return keywords
}
