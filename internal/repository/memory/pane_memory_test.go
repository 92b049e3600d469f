package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"panes/internal/model"
	"panes/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPane(id, owner string, created time.Time, ttl time.Duration) *model.Pane {
	return &model.Pane{
		ID:          id,
		OwnerID:     owner,
		ContentType: model.DocumentContentType,
		BlobPath:    model.BlobPath(id),
		CreatedAt:   created,
		ExpiresAt:   created.Add(ttl),
		IsPublic:    true,
	}
}

func TestPaneMemory_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewPaneMemory()
	now := time.Now()

	require.NoError(t, repo.Create(ctx, newPane("a", "u1", now, time.Hour)))
	assert.ErrorIs(t, repo.Create(ctx, newPane("a", "u2", now, time.Hour)), repository.ErrConflict)

	got, err := repo.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.OwnerID)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPaneMemory_TombstoneKeepsID(t *testing.T) {
	ctx := context.Background()
	repo := NewPaneMemory()
	now := time.Now()

	require.NoError(t, repo.Create(ctx, newPane("a", "u1", now, time.Hour)))
	require.NoError(t, repo.Delete(ctx, "a", model.RemovalDeleted, now))
	require.NoError(t, repo.Delete(ctx, "a", model.RemovalExpired, now.Add(time.Hour)))
	require.NoError(t, repo.Delete(ctx, "never", model.RemovalExpired, now))

	exists, err := repo.Exists(ctx, "a")
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := repo.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.True(t, got.Removed())
	assert.Equal(t, model.RemovalDeleted, got.RemovedReason, "first removal wins")

	assert.ErrorIs(t, repo.Create(ctx, newPane("a", "u1", now, time.Hour)), repository.ErrConflict)
	assert.ErrorIs(t, repo.IncrementViewCount(ctx, "a"), repository.ErrNotFound)
}

func TestPaneMemory_ListByOwner(t *testing.T) {
	ctx := context.Background()
	repo := NewPaneMemory()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, newPane("late", "u1", now, 3*time.Hour)))
	require.NoError(t, repo.Create(ctx, newPane("early-old", "u1", now, time.Hour)))
	require.NoError(t, repo.Create(ctx, newPane("early-new", "u1", now.Add(time.Minute), time.Hour-time.Minute)))
	require.NoError(t, repo.Create(ctx, newPane("expired", "u1", now.Add(-2*time.Hour), time.Hour)))
	require.NoError(t, repo.Create(ctx, newPane("other", "u2", now, time.Hour)))
	require.NoError(t, repo.Create(ctx, newPane("removed", "u1", now, time.Hour)))
	require.NoError(t, repo.Delete(ctx, "removed", model.RemovalDeleted, now))

	items, err := repo.ListByOwner(ctx, "u1", now, 100)
	require.NoError(t, err)

	ids := make([]string, 0, len(items))
	for _, p := range items {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"early-new", "early-old", "late"}, ids)

	items, err = repo.ListByOwner(ctx, "u1", now, 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestPaneMemory_ListExpired(t *testing.T) {
	ctx := context.Background()
	repo := NewPaneMemory()
	now := time.Now()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, newPane(fmt.Sprintf("old-%d", i), "u1", now.Add(-2*time.Hour), time.Hour)))
	}
	require.NoError(t, repo.Create(ctx, newPane("edge", "u1", now.Add(-time.Hour), time.Hour)))
	require.NoError(t, repo.Create(ctx, newPane("live", "u1", now, time.Hour)))
	require.NoError(t, repo.Delete(ctx, "old-0", model.RemovalExpired, now))

	items, err := repo.ListExpired(ctx, now, 100)
	require.NoError(t, err)
	assert.Len(t, items, 5)

	items, err = repo.ListExpired(ctx, now, 3)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestPaneMemory_ConcurrentIncrement(t *testing.T) {
	ctx := context.Background()
	repo := NewPaneMemory()
	require.NoError(t, repo.Create(ctx, newPane("a", "u1", time.Now(), time.Hour)))

	const k = 64
	var wg sync.WaitGroup
	wg.Add(k)
	for i := 0; i < k; i++ {
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.IncrementViewCount(ctx, "a"))
		}()
	}
	wg.Wait()

	got, err := repo.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(k), got.ViewCount)
}

func TestPaneMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewPaneMemory()
	p := newPane("a", "u1", time.Now(), time.Hour)
	require.NoError(t, repo.Create(ctx, p))

	p.OwnerID = "mutated"
	got, err := repo.FindByID(ctx, "a")
	require.NoError(t, err)
	got.ViewCount = 99

	again, err := repo.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "u1", again.OwnerID)
	assert.Equal(t, int64(0), again.ViewCount)
}
