package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/subeero/mangapipe/internal/model"
	"github.com/subeero/mangapipe/internal/repo"
)

// NotifyService writes one aggregate notification per sync run to every
// reviewer. It never fans out per item.
type NotifyService struct {
	notifications *repo.NotificationRepo
	users         *repo.UserRepo
}

func NewNotifyService(notifications *repo.NotificationRepo, users *repo.UserRepo) *NotifyService {
	return &NotifyService{notifications: notifications, users: users}
}

func (s *NotifyService) NotifyPendingReview(ctx context.Context, result *model.SyncResult) error {
	reviewers, err := s.users.ListReviewers(ctx)
	if err != nil {
		return err
	}
	if len(reviewers) == 0 {
		logutil.GetLogger(ctx).Warn("sync produced new content but no reviewers exist")
		return nil
	}
	now := time.Now().Unix()
	message := fmt.Sprintf("sync added %d manga and %d chapters awaiting review",
		result.NewManga, result.NewChapters)
	payload := map[string]interface{}{
		"new_manga":          result.NewManga,
		"new_chapters":       result.NewChapters,
		"duplicates_skipped": result.DuplicatesSkipped,
		"sources_processed":  result.SourcesProcessed,
	}
	rows := make([]*model.Notification, 0, len(reviewers))
	for _, reviewer := range reviewers {
		rows = append(rows, &model.Notification{
			ID:          uuid.NewString(),
			RecipientID: reviewer.ID,
			Title:       "new content pending review",
			Message:     message,
			Payload:     payload,
			Ctime:       now,
		})
	}
	if err := s.notifications.InsertBatch(ctx, rows); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("review notification delivered", zap.Int("recipients", len(rows)))
	return nil
}

func (s *NotifyService) ListForUser(ctx context.Context, userID string, limit int) ([]*model.Notification, error) {
	return s.notifications.ListByRecipient(ctx, userID, limit)
}
