package ingest

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/subeero/mangapipe/internal/model"
	appErr "github.com/subeero/mangapipe/internal/pkg/errors"
)

// SourceStore is the registry surface the orchestrator iterates over.
type SourceStore interface {
	ListActive(ctx context.Context) ([]*model.Source, error)
	UpdateLastSyncAt(ctx context.Context, id string, at time.Time) error
}

// WorkWriter persists newly accepted works.
type WorkWriter interface {
	Create(ctx context.Context, m *model.Manga) error
	UpdateCoverKey(ctx context.Context, id, coverKey string, mtime int64) error
}

// ChapterWriter persists newly accepted chapters.
type ChapterWriter interface {
	Create(ctx context.Context, ch *model.Chapter) error
}

// QueueWriter inserts review queue rows for pending content.
type QueueWriter interface {
	Create(ctx context.Context, item *model.ReviewQueueItem) error
}

// CatalogFetcher yields normalized entries for one source; implementations
// must not propagate fetch errors.
type CatalogFetcher interface {
	Fetch(ctx context.Context, src *model.Source) []model.CatalogEntry
}

// CoverMirror copies a remote cover image into local storage and returns the
// stored key. Optional; a nil mirror disables cover copying.
type CoverMirror interface {
	Mirror(ctx context.Context, mangaID, coverURL string) (string, error)
}

// Notifier delivers the single aggregate end-of-run notification.
type Notifier interface {
	NotifyPendingReview(ctx context.Context, result *model.SyncResult) error
}

// ProgressFunc receives a progress snapshot after every processed entry.
type ProgressFunc func(progress model.SyncProgress)

type OrchestratorOptions struct {
	// DefaultSourceDelay paces source-to-source transitions when a source has
	// no rate limit configured.
	DefaultSourceDelay time.Duration
}

// Orchestrator drives one full ingestion pass: fetch, classify, queue.
// It does not own job lifecycle; that is the sync service's concern.
type Orchestrator struct {
	sources  SourceStore
	works    WorkWriter
	chapters ChapterWriter
	queue    QueueWriter
	fetcher  CatalogFetcher
	detector *Detector
	covers   CoverMirror
	notifier Notifier

	defaultDelay time.Duration
	busy         atomic.Bool
}

func NewOrchestrator(
	sources SourceStore,
	works WorkWriter,
	chapters ChapterWriter,
	queue QueueWriter,
	fetcher CatalogFetcher,
	detector *Detector,
	covers CoverMirror,
	notifier Notifier,
	opts OrchestratorOptions,
) *Orchestrator {
	if opts.DefaultSourceDelay <= 0 {
		opts.DefaultSourceDelay = time.Second
	}
	return &Orchestrator{
		sources:      sources,
		works:        works,
		chapters:     chapters,
		queue:        queue,
		fetcher:      fetcher,
		detector:     detector,
		covers:       covers,
		notifier:     notifier,
		defaultDelay: opts.DefaultSourceDelay,
	}
}

// SyncAll runs the pipeline over all active sources, optionally restricted to
// the given source ids. A second concurrent call fails with ErrBusy instead
// of queueing; serializing requests is the scheduler's job.
func (o *Orchestrator) SyncAll(ctx context.Context, sourceIDs []string, onProgress ProgressFunc) (*model.SyncResult, error) {
	if !o.busy.CompareAndSwap(false, true) {
		return nil, appErr.ErrBusy
	}
	defer o.busy.Store(false)

	sources, err := o.sources.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active sources: %w", err)
	}
	sources = filterSources(sources, sourceIDs)
	if len(sources) == 0 {
		return nil, appErr.ErrNoActiveSources
	}

	logger := logutil.GetLogger(ctx)
	logger.Info("sync run started", zap.Int("sources", len(sources)))

	result := &model.SyncResult{}
	progress := model.SyncProgress{}
	for i, src := range sources {
		progress.Step = fmt.Sprintf("syncing source %s (%d/%d)", src.Name, i+1, len(sources))
		report(onProgress, progress)

		o.syncSource(ctx, src, result, &progress, onProgress)
		result.SourcesProcessed++

		if err := o.sources.UpdateLastSyncAt(ctx, src.ID, time.Now()); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("source %s: record last sync: %v", src.Name, err))
		}
		if i < len(sources)-1 {
			if err := o.pause(ctx, src); err != nil {
				return result, err
			}
		}
	}
	progress.Step = "finished"
	progress.ErrorCount = len(result.Errors)
	report(onProgress, progress)

	logger.Info("sync run finished",
		zap.Int("new_manga", result.NewManga),
		zap.Int("new_chapters", result.NewChapters),
		zap.Int("duplicates_skipped", result.DuplicatesSkipped),
		zap.Int("errors", len(result.Errors)),
	)

	if result.NewManga+result.NewChapters > 0 && o.notifier != nil {
		if err := o.notifier.NotifyPendingReview(ctx, result); err != nil {
			logger.Warn("review notification failed", zap.Error(err))
		}
	}
	return result, nil
}

func (o *Orchestrator) syncSource(ctx context.Context, src *model.Source, result *model.SyncResult, progress *model.SyncProgress, onProgress ProgressFunc) {
	logger := logutil.GetLogger(ctx).With(zap.String("source_id", src.ID), zap.String("source", src.Name))

	var entries []model.CatalogEntry
	_ = Timed(ctx, "fetch:"+src.Name, func() error {
		entries = o.fetcher.Fetch(ctx, src)
		return nil
	})
	logger.Info("source fetched", zap.Int("entries", len(entries)))

	for i := range entries {
		if err := o.processEntry(ctx, &entries[i], result, progress); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("source %s, entry %q: %v", src.Name, entries[i].Title, err))
			progress.ErrorCount = len(result.Errors)
		}
		progress.ProcessedManga++
		report(onProgress, *progress)
	}
}

func (o *Orchestrator) processEntry(ctx context.Context, entry *model.CatalogEntry, result *model.SyncResult, progress *model.SyncProgress) error {
	check, err := o.detector.CheckWork(ctx, WorkQuery{
		Title:         entry.Title,
		Author:        entry.Author,
		Description:   entry.Description,
		SourceID:      entry.SourceID,
		SourceMangaID: entry.SourceMangaID,
	})
	if err != nil {
		return fmt.Errorf("duplicate check: %w", err)
	}

	if check.IsDuplicate {
		result.DuplicatesSkipped++
		if check.Match == nil {
			return nil
		}
		// Known work: only genuinely new chapters get queued.
		return o.diffChapters(ctx, check.Match.ID, entry, result, progress)
	}

	now := time.Now().Unix()
	manga := &model.Manga{
		ID:             uuid.NewString(),
		Title:          entry.Title,
		Description:    entry.Description,
		Author:         entry.Author,
		Artist:         entry.Artist,
		Genres:         entry.Genres,
		Status:         entry.Status,
		Kind:           entry.Kind,
		CoverURL:       entry.CoverURL,
		SourceID:       entry.SourceID,
		SourceMangaID:  entry.SourceMangaID,
		ApprovalStatus: model.ApprovalStatusPending,
		Ctime:          now,
		Mtime:          now,
	}
	if err := o.works.Create(ctx, manga); err != nil {
		return fmt.Errorf("persist work: %w", err)
	}
	if err := o.enqueue(ctx, model.ReviewContentManga, manga.ID); err != nil {
		return fmt.Errorf("queue work for review: %w", err)
	}
	result.NewManga++
	o.mirrorCover(ctx, manga)

	for i := range entry.Chapters {
		if err := o.persistChapter(ctx, manga.ID, &entry.Chapters[i]); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("work %q chapter %g: %v", entry.Title, entry.Chapters[i].Number, err))
			continue
		}
		result.NewChapters++
		progress.ProcessedChapters++
	}
	return nil
}

// diffChapters compares the fetched chapter list of an already-known work
// against what is stored and queues only the new ones. Each chapter is
// checked independently so partial overlaps diff correctly.
func (o *Orchestrator) diffChapters(ctx context.Context, mangaID string, entry *model.CatalogEntry, result *model.SyncResult, progress *model.SyncProgress) error {
	for i := range entry.Chapters {
		chapter := &entry.Chapters[i]
		check, err := o.detector.CheckChapter(ctx, mangaID, chapter.Number, chapter.Title)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("work %q chapter %g: duplicate check: %v", entry.Title, chapter.Number, err))
			continue
		}
		progress.ProcessedChapters++
		if check.IsDuplicate {
			continue
		}
		if err := o.persistChapter(ctx, mangaID, chapter); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("work %q chapter %g: %v", entry.Title, chapter.Number, err))
			continue
		}
		result.NewChapters++
	}
	return nil
}

func (o *Orchestrator) persistChapter(ctx context.Context, mangaID string, entry *model.ChapterEntry) error {
	now := time.Now().Unix()
	chapter := &model.Chapter{
		ID:              uuid.NewString(),
		MangaID:         mangaID,
		Number:          entry.Number,
		Title:           entry.Title,
		Description:     entry.Description,
		Pages:           entry.Pages,
		SourceChapterID: entry.SourceChapterID,
		ApprovalStatus:  model.ApprovalStatusPending,
		Ctime:           now,
		Mtime:           now,
	}
	if err := o.chapters.Create(ctx, chapter); err != nil {
		return fmt.Errorf("persist chapter: %w", err)
	}
	if err := o.enqueue(ctx, model.ReviewContentChapter, chapter.ID); err != nil {
		return fmt.Errorf("queue chapter for review: %w", err)
	}
	return nil
}

func (o *Orchestrator) enqueue(ctx context.Context, contentKind, contentID string) error {
	now := time.Now().Unix()
	return o.queue.Create(ctx, &model.ReviewQueueItem{
		ID:          uuid.NewString(),
		ContentKind: contentKind,
		ContentID:   contentID,
		SubmittedBy: model.ReviewSubmitterSystem,
		Status:      model.ApprovalStatusPending,
		Ctime:       now,
		Mtime:       now,
	})
}

// mirrorCover is best effort; a missing cover never fails an entry.
func (o *Orchestrator) mirrorCover(ctx context.Context, manga *model.Manga) {
	if o.covers == nil || manga.CoverURL == "" {
		return
	}
	key, err := o.covers.Mirror(ctx, manga.ID, manga.CoverURL)
	if err != nil {
		logutil.GetLogger(ctx).Warn("cover mirror failed",
			zap.String("manga_id", manga.ID),
			zap.String("cover_url", manga.CoverURL),
			zap.Error(err),
		)
		return
	}
	if err := o.works.UpdateCoverKey(ctx, manga.ID, key, time.Now().Unix()); err != nil {
		logutil.GetLogger(ctx).Warn("cover key update failed", zap.String("manga_id", manga.ID), zap.Error(err))
	}
}

// pause waits out the source's rate-limit-derived delay before the next
// source is touched. The wait aborts as soon as the run context is cancelled.
func (o *Orchestrator) pause(ctx context.Context, src *model.Source) error {
	delay := o.defaultDelay
	if src.Config.RateLimit > 0 {
		delay = time.Minute / time.Duration(src.Config.RateLimit)
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func filterSources(sources []*model.Source, ids []string) []*model.Source {
	if len(ids) == 0 {
		return sources
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	filtered := make([]*model.Source, 0, len(sources))
	for _, src := range sources {
		if wanted[src.ID] {
			filtered = append(filtered, src)
		}
	}
	return filtered
}

func report(onProgress ProgressFunc, progress model.SyncProgress) {
	if onProgress != nil {
		onProgress(progress)
	}
}
