package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/subeero/mangapipe/internal/config"
	"github.com/subeero/mangapipe/internal/coverstore"
	"github.com/subeero/mangapipe/internal/model"
	appErr "github.com/subeero/mangapipe/internal/pkg/errors"
	"github.com/subeero/mangapipe/internal/repo"
	"github.com/subeero/mangapipe/internal/service"
	"github.com/subeero/mangapipe/test/testutil"
)

func seedPendingManga(t *testing.T, manga *repo.MangaRepo, queue *repo.ReviewQueueRepo, mangaID, itemID string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().Unix()
	require.NoError(t, manga.Create(ctx, &model.Manga{
		ID: mangaID, Title: "Solo Leveling", Status: model.WorkStatusOngoing, Kind: model.WorkKindManhwa,
		ApprovalStatus: model.ApprovalStatusPending, Ctime: now, Mtime: now,
	}))
	require.NoError(t, queue.Create(ctx, &model.ReviewQueueItem{
		ID: itemID, ContentKind: model.ReviewContentManga, ContentID: mangaID,
		SubmittedBy: model.ReviewSubmitterSystem, Status: model.ApprovalStatusPending,
		Ctime: now, Mtime: now,
	}))
}

func TestReviewService_ApproveCascades(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	mangaRepo := repo.NewMangaRepo(db)
	chapterRepo := repo.NewChapterRepo(db)
	queueRepo := repo.NewReviewQueueRepo(db)
	reviews := service.NewReviewService(queueRepo, mangaRepo, chapterRepo, nil)
	ctx := context.Background()

	seedPendingManga(t, mangaRepo, queueRepo, "m1", "item-1")

	require.NoError(t, reviews.Approve(ctx, "item-1", "mod-1", "looks good"))

	item, err := queueRepo.GetByID(ctx, "item-1")
	require.NoError(t, err)
	require.Equal(t, model.ApprovalStatusApproved, item.Status)
	require.Equal(t, "mod-1", item.ReviewerID)
	require.Equal(t, "looks good", item.Notes)

	manga, err := mangaRepo.GetByID(ctx, "m1")
	require.NoError(t, err)
	require.Equal(t, model.ApprovalStatusApproved, manga.ApprovalStatus)
}

func TestReviewService_RejectCascadesToChapter(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	mangaRepo := repo.NewMangaRepo(db)
	chapterRepo := repo.NewChapterRepo(db)
	queueRepo := repo.NewReviewQueueRepo(db)
	reviews := service.NewReviewService(queueRepo, mangaRepo, chapterRepo, nil)
	ctx := context.Background()
	now := time.Now().Unix()

	require.NoError(t, chapterRepo.Create(ctx, &model.Chapter{
		ID: "c1", MangaID: "m1", Number: 1, ApprovalStatus: model.ApprovalStatusPending, Ctime: now, Mtime: now,
	}))
	require.NoError(t, queueRepo.Create(ctx, &model.ReviewQueueItem{
		ID: "item-c1", ContentKind: model.ReviewContentChapter, ContentID: "c1",
		SubmittedBy: model.ReviewSubmitterSystem, Status: model.ApprovalStatusPending,
		Ctime: now, Mtime: now,
	}))

	require.NoError(t, reviews.Reject(ctx, "item-c1", "mod-1", "broken pages"))

	chapters, err := chapterRepo.ListByManga(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, chapters, 1)
	require.Equal(t, model.ApprovalStatusRejected, chapters[0].ApprovalStatus)
}

func TestReviewService_DoubleDecisionConflicts(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	mangaRepo := repo.NewMangaRepo(db)
	chapterRepo := repo.NewChapterRepo(db)
	queueRepo := repo.NewReviewQueueRepo(db)
	reviews := service.NewReviewService(queueRepo, mangaRepo, chapterRepo, nil)
	ctx := context.Background()

	seedPendingManga(t, mangaRepo, queueRepo, "m1", "item-1")

	require.NoError(t, reviews.Approve(ctx, "item-1", "mod-1", ""))
	err := reviews.Reject(ctx, "item-1", "mod-2", "")
	require.ErrorIs(t, err, appErr.ErrConflict)

	// The first decision stands.
	manga, err := mangaRepo.GetByID(ctx, "m1")
	require.NoError(t, err)
	require.Equal(t, model.ApprovalStatusApproved, manga.ApprovalStatus)
}

func TestReviewService_GetReturnsContentDetail(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	mangaRepo := repo.NewMangaRepo(db)
	chapterRepo := repo.NewChapterRepo(db)
	queueRepo := repo.NewReviewQueueRepo(db)
	store, err := coverstore.New(config.CoverStoreConfig{
		Type: "local",
		Data: map[string]interface{}{"dir": t.TempDir()},
	})
	require.NoError(t, err)
	reviews := service.NewReviewService(queueRepo, mangaRepo, chapterRepo, store)
	ctx := context.Background()
	now := time.Now().Unix()

	seedPendingManga(t, mangaRepo, queueRepo, "m1", "item-1")
	require.NoError(t, mangaRepo.UpdateCoverKey(ctx, "m1", "m1.jpg", now))
	require.NoError(t, chapterRepo.Create(ctx, &model.Chapter{
		ID: "c1", MangaID: "m1", Number: 1, Title: "Headon's Floor",
		ApprovalStatus: model.ApprovalStatusPending, Ctime: now, Mtime: now,
	}))
	require.NoError(t, queueRepo.Create(ctx, &model.ReviewQueueItem{
		ID: "item-c1", ContentKind: model.ReviewContentChapter, ContentID: "c1",
		SubmittedBy: model.ReviewSubmitterSystem, Status: model.ApprovalStatusPending,
		Ctime: now, Mtime: now,
	}))

	detail, err := reviews.Get(ctx, "item-1")
	require.NoError(t, err)
	require.Equal(t, "item-1", detail.Item.ID)
	require.NotNil(t, detail.Manga)
	require.Equal(t, "Solo Leveling", detail.Manga.Title)
	require.Equal(t, "/api/v1/covers/m1.jpg", detail.CoverLink)
	require.Nil(t, detail.Chapter)

	chDetail, err := reviews.Get(ctx, "item-c1")
	require.NoError(t, err)
	require.NotNil(t, chDetail.Chapter)
	require.Equal(t, "Headon's Floor", chDetail.Chapter.Title)
	require.Empty(t, chDetail.CoverLink)

	_, err = reviews.Get(ctx, "nope")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestReviewService_Stats(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	mangaRepo := repo.NewMangaRepo(db)
	chapterRepo := repo.NewChapterRepo(db)
	queueRepo := repo.NewReviewQueueRepo(db)
	reviews := service.NewReviewService(queueRepo, mangaRepo, chapterRepo, nil)
	ctx := context.Background()

	seedPendingManga(t, mangaRepo, queueRepo, "m1", "item-1")
	seedPendingManga(t, mangaRepo, queueRepo, "m2", "item-2")
	require.NoError(t, reviews.Approve(ctx, "item-2", "mod-1", ""))

	stats, err := reviews.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.Pending)
	require.Equal(t, int64(1), stats.Approved)
	require.Equal(t, int64(0), stats.Rejected)
	require.Equal(t, int64(1), stats.PendingManga)
}
