package service

import (
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/subeero/mangapipe/internal/model"
	appErr "github.com/subeero/mangapipe/internal/pkg/errors"
	"github.com/subeero/mangapipe/internal/repo"
)

// CoverLinker resolves a mirrored cover key to a client-facing URL.
type CoverLinker interface {
	URL(key, baseURL string) string
}

// ReviewService drives the moderation queue. A decision flips the queue item
// and cascades the resulting approval status onto the content row, so the two
// never disagree.
type ReviewService struct {
	queue    *repo.ReviewQueueRepo
	manga    *repo.MangaRepo
	chapters *repo.ChapterRepo
	covers   CoverLinker
}

func NewReviewService(queue *repo.ReviewQueueRepo, manga *repo.MangaRepo, chapters *repo.ChapterRepo, covers CoverLinker) *ReviewService {
	return &ReviewService{queue: queue, manga: manga, chapters: chapters, covers: covers}
}

func (s *ReviewService) ListPending(ctx context.Context, offset, limit int) ([]*model.ReviewQueueItem, error) {
	return s.queue.ListByStatus(ctx, model.ApprovalStatusPending, offset, limit)
}

func (s *ReviewService) ListByStatus(ctx context.Context, status string, offset, limit int) ([]*model.ReviewQueueItem, error) {
	switch status {
	case model.ApprovalStatusPending, model.ApprovalStatusApproved, model.ApprovalStatusRejected:
	default:
		return nil, fmt.Errorf("%w: unknown review status %q", appErr.ErrInvalid, status)
	}
	return s.queue.ListByStatus(ctx, status, offset, limit)
}

// Get loads a queue item together with the content it refers to.
func (s *ReviewService) Get(ctx context.Context, id string) (*model.ReviewItemDetail, error) {
	item, err := s.queue.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &model.ReviewItemDetail{Item: item}
	switch item.ContentKind {
	case model.ReviewContentManga:
		m, err := s.manga.GetByID(ctx, item.ContentID)
		if err != nil {
			return nil, err
		}
		detail.Manga = m
		if s.covers != nil && m.CoverKey != "" {
			detail.CoverLink = s.covers.URL(m.CoverKey, "")
		}
	case model.ReviewContentChapter:
		ch, err := s.chapters.GetByID(ctx, item.ContentID)
		if err != nil {
			return nil, err
		}
		detail.Chapter = ch
	}
	return detail, nil
}

func (s *ReviewService) Stats(ctx context.Context) (*model.ReviewStats, error) {
	return s.queue.Stats(ctx)
}

func (s *ReviewService) Approve(ctx context.Context, id, reviewerID, notes string) error {
	return s.decide(ctx, id, reviewerID, notes, model.ApprovalStatusApproved)
}

func (s *ReviewService) Reject(ctx context.Context, id, reviewerID, notes string) error {
	return s.decide(ctx, id, reviewerID, notes, model.ApprovalStatusRejected)
}

// decide flips a pending item to its terminal status. The guarded update
// keeps two reviewers from deciding the same item; the loser gets ErrConflict.
func (s *ReviewService) decide(ctx context.Context, id, reviewerID, notes, status string) error {
	item, err := s.queue.GetByID(ctx, id)
	if err != nil {
		return err
	}
	now := time.Now().Unix()
	flipped, err := s.queue.UpdateStatusIf(ctx, id, model.ApprovalStatusPending, status, reviewerID, notes, now)
	if err != nil {
		return err
	}
	if !flipped {
		return fmt.Errorf("%w: review item already decided", appErr.ErrConflict)
	}
	if err := s.cascade(ctx, item, status, now); err != nil {
		// The queue row already flipped; the content row stays pending until
		// an operator retries. Surface it loudly rather than silently.
		logutil.GetLogger(ctx).Error("approval cascade failed",
			zap.String("item_id", id),
			zap.String("content_kind", item.ContentKind),
			zap.String("content_id", item.ContentID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *ReviewService) cascade(ctx context.Context, item *model.ReviewQueueItem, status string, now int64) error {
	switch item.ContentKind {
	case model.ReviewContentManga:
		return s.manga.SetApprovalStatus(ctx, item.ContentID, status, now)
	case model.ReviewContentChapter:
		return s.chapters.SetApprovalStatus(ctx, item.ContentID, status, now)
	default:
		return fmt.Errorf("%w: unknown content kind %q", appErr.ErrInternal, item.ContentKind)
	}
}
