package database

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/ds124wfegd/memecaption/internal/entity"
	"github.com/ds124wfegd/memecaption/internal/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) ImageRepository {
	t.Helper()
	return NewImageRepository(storage.NewFileStorage(t.TempDir()))
}

func TestImageRecordRoundTrip(t *testing.T) {
	repo := newRepo(t)
	record := &entity.ImageRecord{ID: "img-1", SessionID: "s-1", Status: entity.StatusUploaded, Format: "png", Width: 640, Height: 480}

	require.NoError(t, repo.Save(record))

	got, err := repo.FindByID("img-1")
	require.NoError(t, err)
	assert.Equal(t, record, got)

	record.Status = entity.StatusCompleted
	record.Outputs = map[string]string{"small": "processed/img-1/meme_small.png"}
	require.NoError(t, repo.Save(record))

	got, err = repo.FindByID("img-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCompleted, got.Status)
	assert.Equal(t, record.Outputs, got.Outputs)
}

func TestFindMissingImage(t *testing.T) {
	_, err := newRepo(t).FindByID("missing")
	assert.ErrorIs(t, err, entity.ErrImageNotFound)
}

func TestFilesAndDelete(t *testing.T) {
	repo := newRepo(t)
	require.NoError(t, repo.Save(&entity.ImageRecord{ID: "img-2", Status: entity.StatusUploaded}))
	require.NoError(t, repo.SaveFile("img-2", OriginalFile, strings.NewReader("raw bytes")))
	require.NoError(t, repo.SaveFile("img-2", "meme_small.png", strings.NewReader("png")))

	assert.Equal(t, "original/img-2", repo.GetFilePath("img-2", OriginalFile))
	assert.Equal(t, "processed/img-2/meme_small.png", repo.GetFilePath("img-2", "meme_small.png"))

	rc, err := repo.OpenFile("img-2", OriginalFile)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "raw bytes", string(data))

	require.NoError(t, repo.Delete("img-2"))

	_, err = repo.FindByID("img-2")
	assert.ErrorIs(t, err, entity.ErrImageNotFound)
	_, err = repo.OpenFile("img-2", "meme_small.png")
	assert.ErrorIs(t, err, entity.ErrImageNotFound)
	assert.ErrorIs(t, repo.Delete("img-2"), entity.ErrImageNotFound)
}

func TestMemoryHistory(t *testing.T) {
	ctx := context.Background()
	h := NewMemoryHistory()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, name := range []string{"a", "b", "c"} {
		require.NoError(t, h.Record(ctx, &entity.ExportRecord{
			ID: name, ImageID: "img", CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, h.Record(ctx, &entity.ExportRecord{ID: "other", ImageID: "img-x", CreatedAt: base}))

	all, err := h.ListByImage(ctx, "img", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID)
	assert.Equal(t, "a", all[2].ID)

	limited, err := h.ListByImage(ctx, "img", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	none, err := h.ListByImage(ctx, "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestNoopCacheAlwaysMisses(t *testing.T) {
	c := NewNoopCache()
	require.NoError(t, c.Set(context.Background(), "k", []byte("v")))

	_, err := c.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
