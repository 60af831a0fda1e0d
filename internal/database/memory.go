package database

import (
	"context"
	"sort"
	"sync"

	"github.com/ds124wfegd/memecaption/internal/entity"
)

type noopCache struct{}

// NewNoopCache is used when redis is disabled. Every lookup misses.
func NewNoopCache() ExportCache {
	return noopCache{}
}

func (noopCache) Get(context.Context, string) ([]byte, error) { return nil, ErrCacheMiss }

func (noopCache) Set(context.Context, string, []byte) error { return nil }

type memoryHistory struct {
	mu      sync.RWMutex
	records map[string][]entity.ExportRecord
}

// NewMemoryHistory keeps export history in process memory, for running without postgres.
func NewMemoryHistory() ExportHistoryRepository {
	return &memoryHistory{records: make(map[string][]entity.ExportRecord)}
}

func (h *memoryHistory) Record(_ context.Context, record *entity.ExportRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records[record.ImageID] = append(h.records[record.ImageID], *record)
	return nil
}

// ListByImage returns the newest records first.
func (h *memoryHistory) ListByImage(_ context.Context, imageID string, limit int) ([]entity.ExportRecord, error) {
	h.mu.RLock()
	out := append([]entity.ExportRecord(nil), h.records[imageID]...)
	h.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
