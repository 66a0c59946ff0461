package repository_test

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/UnknownOlympus/sightspotter/internal/placement"
	"github.com/UnknownOlympus/sightspotter/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAnchor(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	repo := repository.NewRepository(slog.Default())

	first, err := repo.AddAnchor(ctx, repository.NewAnchor{
		Title:     "Golden Gate",
		Transform: placement.Identity(),
		Distance:  420,
		Azimuth:   12.5,
		Cycle:     1,
	})
	require.NoError(t, err)
	second, err := repo.AddAnchor(ctx, repository.NewAnchor{Title: "Golden Gate", Cycle: 1})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, first.ID)
	assert.NotEqual(t, first.ID, second.ID, "every anchor gets a fresh identifier")
	assert.False(t, first.CreatedAt.IsZero())
	assert.Equal(t, placement.Identity(), first.Transform)

	anchors, err := repo.ListAnchors(ctx)
	require.NoError(t, err)
	require.Len(t, anchors, 2)
	assert.Equal(t, first.ID, anchors[0].ID)
	assert.Equal(t, second.ID, anchors[1].ID)
}

func TestLabel(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	repo := repository.NewRepository(slog.Default())

	anchor, err := repo.AddAnchor(ctx, repository.NewAnchor{Title: "Saint Sophia Cathedral"})
	require.NoError(t, err)

	t.Run("known anchor", func(t *testing.T) {
		t.Parallel()
		label, err := repo.Label(ctx, anchor.ID)

		require.NoError(t, err)
		assert.Equal(t, "Saint Sophia Cathedral", label)
	})

	t.Run("unknown anchor", func(t *testing.T) {
		t.Parallel()
		label, err := repo.Label(ctx, uuid.New())

		require.ErrorIs(t, err, repository.ErrAnchorNotFound)
		assert.Empty(t, label)
	})
}

func TestListAnchors_Empty(t *testing.T) {
	t.Parallel()
	repo := repository.NewRepository(slog.Default())

	anchors, err := repo.ListAnchors(t.Context())

	require.NoError(t, err)
	assert.Empty(t, anchors)
	assert.NotNil(t, anchors)
}

func TestAddAnchor_Concurrent(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	repo := repository.NewRepository(slog.Default())

	const writers = 16
	var wgr sync.WaitGroup
	for range writers {
		wgr.Add(1)
		go func() {
			defer wgr.Done()
			_, err := repo.AddAnchor(ctx, repository.NewAnchor{Title: "sight"})
			assert.NoError(t, err)
		}()
	}
	wgr.Wait()

	anchors, err := repo.ListAnchors(ctx)
	require.NoError(t, err)
	assert.Len(t, anchors, writers)
}
