package service

import (
	"context"
	"mime/multipart"
	"time"

	"github.com/ds124wfegd/memecaption/internal/database"
	"github.com/ds124wfegd/memecaption/internal/entity"
	"github.com/ds124wfegd/memecaption/internal/pkg/kafka"
	"github.com/ds124wfegd/memecaption/internal/pkg/processor"
	"github.com/ds124wfegd/memecaption/internal/session"
)

type CaptionService interface {
	CreateSession() (string, error)
	DeleteSession(id string) error
	UploadImage(ctx context.Context, sessionID string, file *multipart.FileHeader) (*entity.UploadResponse, error)
	RemoveImage(sessionID string) error
	Thumbnail(sessionID string) ([]byte, error)
	SetStyle(sessionID string, style entity.TextStyle) error
	AddFilter(sessionID string, kind string) (bool, error)
	ClearFilters(sessionID string) error
	SetFrame(sessionID string, frame entity.Frame) error
	Preview(ctx context.Context, sessionID string) ([]byte, error)
	GetImage(id string) (*entity.ImageRecord, error)
	CleanupIdleSessions(cutoff time.Time) int
}

type ExportService interface {
	Export(ctx context.Context, sessionID string, format string, quality *float64, size *entity.Size) (*entity.ExportResult, error)
	ExportSizes(ctx context.Context, sessionID string, req entity.ExportSizesRequest) ([]entity.ExportResult, error)
	ExportFormats(ctx context.Context, sessionID string, req entity.ExportFormatsRequest) ([]entity.ExportResult, error)
	EnqueueExport(ctx context.Context, sessionID string, req entity.ExportSizesRequest) (*entity.ExportTaskResponse, error)
	History(ctx context.Context, imageID string, limit int) ([]entity.ExportRecord, error)
}

type Service struct {
	CaptionService
	ExportService
}

// Config carries the limits and defaults the services enforce.
type Config struct {
	MaxUploadSize  int64
	MaxImageWidth  int
	MaxImageHeight int
	CanvasWidth    int
	CanvasHeight   int
	DefaultFormat  string
	DefaultQuality float64
	FilenamePrefix string
	Sizes          []entity.Size
}

type Deps struct {
	Sessions *session.Store
	Renderer processor.Renderer
	Images   database.ImageRepository
	Cache    database.ExportCache
	History  database.ExportHistoryRepository
	Producer kafka.Producer
}

type captionService struct {
	cfg  Config
	deps Deps
}

type exportService struct {
	cfg  Config
	deps Deps
	now  func() time.Time
}

func NewService(cfg Config, deps Deps) *Service {
	return &Service{
		CaptionService: &captionService{cfg: cfg, deps: deps},
		ExportService:  &exportService{cfg: cfg, deps: deps, now: time.Now},
	}
}
