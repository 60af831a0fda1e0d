package database

import (
	"context"
	"errors"
	"io"

	"github.com/ds124wfegd/memecaption/internal/entity"
	"github.com/ds124wfegd/memecaption/internal/pkg/storage"
)

// OriginalFile is the file name under which an uploaded original is stored.
const OriginalFile = "original"

var ErrCacheMiss = errors.New("cache miss")

type ImageRepository interface {
	Save(image *entity.ImageRecord) error
	FindByID(id string) (*entity.ImageRecord, error)
	Delete(id string) error
	SaveFile(id string, name string, file io.Reader) error
	OpenFile(id string, name string) (io.ReadCloser, error)
	GetFilePath(id string, name string) string
}

// ExportCache stores encoded exports keyed by a hash of everything that went into them.
type ExportCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
}

type ExportHistoryRepository interface {
	Record(ctx context.Context, record *entity.ExportRecord) error
	ListByImage(ctx context.Context, imageID string, limit int) ([]entity.ExportRecord, error)
}

type fileImageRepository struct {
	storage storage.FileStorage
}
