package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/subeero/mangapipe/internal/model"
	appErr "github.com/subeero/mangapipe/internal/pkg/errors"
	"github.com/subeero/mangapipe/internal/repo"
	"github.com/subeero/mangapipe/test/testutil"
)

func TestSourceRepoCRUD(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	sources := repo.NewSourceRepo(db)
	ctx := context.Background()
	now := time.Now().Unix()

	src := &model.Source{
		ID:      "src-1",
		Name:    "asura",
		BaseURL: "https://api.asura.example/catalog",
		Kind:    model.SourceKindAPI,
		Active:  true,
		Config:  model.SourceConfig{APIKey: "k", RateLimit: 60},
		Ctime:   now,
		Mtime:   now,
	}
	require.NoError(t, sources.Create(ctx, src))

	got, err := sources.GetByID(ctx, "src-1")
	require.NoError(t, err)
	require.Equal(t, "asura", got.Name)
	require.True(t, got.Active)
	require.Equal(t, 60, got.Config.RateLimit)

	got.Active = false
	got.Config.RateLimit = 30
	require.NoError(t, sources.Update(ctx, got))

	updated, err := sources.GetByID(ctx, "src-1")
	require.NoError(t, err)
	require.False(t, updated.Active)
	require.Equal(t, 30, updated.Config.RateLimit)

	require.NoError(t, sources.Delete(ctx, "src-1"))
	_, err = sources.GetByID(ctx, "src-1")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestSourceRepo_ListActiveSkipsInactive(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	sources := repo.NewSourceRepo(db)
	ctx := context.Background()
	now := time.Now().Unix()

	require.NoError(t, sources.Create(ctx, &model.Source{
		ID: "on", Name: "on", BaseURL: "https://a", Kind: model.SourceKindAPI, Active: true, Ctime: now, Mtime: now,
	}))
	require.NoError(t, sources.Create(ctx, &model.Source{
		ID: "off", Name: "off", BaseURL: "https://b", Kind: model.SourceKindAPI, Active: false, Ctime: now + 1, Mtime: now + 1,
	}))

	active, err := sources.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "on", active[0].ID)

	all, err := sources.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestSourceRepo_UpdateLastSyncAt(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	sources := repo.NewSourceRepo(db)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, sources.Create(ctx, &model.Source{
		ID: "src-1", Name: "n", BaseURL: "https://a", Kind: model.SourceKindAPI, Active: true,
		Ctime: now.Unix(), Mtime: now.Unix(),
	}))
	require.NoError(t, sources.UpdateLastSyncAt(ctx, "src-1", now))

	got, err := sources.GetByID(ctx, "src-1")
	require.NoError(t, err)
	require.NotNil(t, got.LastSyncAt)
	require.Equal(t, now.Unix(), *got.LastSyncAt)
}
