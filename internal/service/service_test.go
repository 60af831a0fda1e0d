package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/ds124wfegd/memecaption/internal/database"
	"github.com/ds124wfegd/memecaption/internal/entity"
	"github.com/ds124wfegd/memecaption/internal/pkg/processor"
	"github.com/ds124wfegd/memecaption/internal/pkg/storage"
	"github.com/ds124wfegd/memecaption/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProducer struct {
	mu       sync.Mutex
	messages []interface{}
	err      error
}

func (p *fakeProducer) SendMessage(_ context.Context, _ string, message interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, message)
	return nil
}

func (p *fakeProducer) Close() error { return nil }

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
	hits int
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.data[key]; ok {
		c.hits++
		return v, nil
	}
	return nil, database.ErrCacheMiss
}

func (c *mapCache) Set(_ context.Context, key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	return nil
}

type fixture struct {
	svc      *Service
	images   database.ImageRepository
	history  database.ExportHistoryRepository
	cache    *mapCache
	producer *fakeProducer
}

func testConfig() Config {
	return Config{
		MaxUploadSize:  1 << 20,
		MaxImageWidth:  2000,
		MaxImageHeight: 2000,
		CanvasWidth:    120,
		CanvasHeight:   120,
		DefaultFormat:  "png",
		DefaultQuality: 0.9,
		FilenamePrefix: "meme_",
		Sizes:          []entity.Size{{Width: 60, Height: 60, Name: "small"}, {Width: 90, Height: 90, Name: "standard"}},
	}
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	renderer := processor.NewRenderer(processor.Options{FilenamePrefix: cfg.FilenamePrefix, MaxDimension: 1000})
	f := &fixture{
		images:   database.NewImageRepository(storage.NewFileStorage(t.TempDir())),
		history:  database.NewMemoryHistory(),
		cache:    &mapCache{data: make(map[string][]byte)},
		producer: &fakeProducer{},
	}
	f.svc = NewService(cfg, Deps{
		Sessions: session.NewStore(session.Options{
			Width:      cfg.CanvasWidth,
			Height:     cfg.CanvasHeight,
			Background: color.White,
			Renderer:   renderer,
		}),
		Renderer: renderer,
		Images:   f.images,
		Cache:    f.cache,
		History:  f.history,
		Producer: f.producer,
	})
	return f
}

func pngData(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xc0
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func fileHeader(t *testing.T, contentType string, data []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="upload.png"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(10 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["image"][0]
}

func (f *fixture) sessionWithImage(t *testing.T) (string, *entity.UploadResponse) {
	t.Helper()
	id, err := f.svc.CreateSession()
	require.NoError(t, err)
	resp, err := f.svc.UploadImage(context.Background(), id, fileHeader(t, "image/png", pngData(t, 160, 80)))
	require.NoError(t, err)
	return id, resp
}

func TestUploadImage(t *testing.T) {
	f := newFixture(t, testConfig())
	id, resp := f.sessionWithImage(t)

	assert.Equal(t, id, resp.SessionID)
	assert.Equal(t, "png", resp.Format)
	assert.Equal(t, 160, resp.Width)
	assert.Equal(t, 80, resp.Height)

	record, err := f.svc.GetImage(resp.ImageID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusUploaded, record.Status)
	assert.Equal(t, id, record.SessionID)

	rc, err := f.images.OpenFile(resp.ImageID, database.OriginalFile)
	require.NoError(t, err)
	rc.Close()
}

func TestUploadValidation(t *testing.T) {
	cfg := testConfig()
	cfg.MaxImageWidth = 100
	cfg.MaxUploadSize = 4096

	tests := []struct {
		name        string
		contentType string
		data        func(t *testing.T) []byte
		check       func(t *testing.T, err error)
	}{
		{
			name:        "content type",
			contentType: "image/webp",
			data:        func(t *testing.T) []byte { return pngData(t, 10, 10) },
			check:       func(t *testing.T, err error) { assert.ErrorIs(t, err, entity.ErrUnsupportedUpload) },
		},
		{
			name:        "too many bytes",
			contentType: "image/png",
			data:        func(t *testing.T) []byte { return make([]byte, 5000) },
			check:       func(t *testing.T, err error) { assert.ErrorIs(t, err, entity.ErrFileTooLarge) },
		},
		{
			name:        "too wide",
			contentType: "image/png",
			data:        func(t *testing.T) []byte { return pngData(t, 150, 10) },
			check:       func(t *testing.T, err error) { assert.ErrorIs(t, err, entity.ErrImageTooLarge) },
		},
		{
			name:        "corrupt",
			contentType: "image/png",
			data:        func(t *testing.T) []byte { return []byte("garbage") },
			check: func(t *testing.T, err error) {
				var decodeErr *entity.DecodeError
				assert.True(t, errors.As(err, &decodeErr))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, cfg)
			id, err := f.svc.CreateSession()
			require.NoError(t, err)

			_, err = f.svc.UploadImage(context.Background(), id, fileHeader(t, tt.contentType, tt.data(t)))
			tt.check(t, err)

			_, err = f.svc.Thumbnail(id)
			assert.ErrorIs(t, err, entity.ErrNoImage)
		})
	}
}

func TestUnknownSession(t *testing.T) {
	f := newFixture(t, testConfig())

	assert.ErrorIs(t, f.svc.SetStyle("nope", entity.DefaultTextStyle()), entity.ErrSessionNotFound)
	_, err := f.svc.Preview(context.Background(), "nope")
	assert.ErrorIs(t, err, entity.ErrSessionNotFound)
	_, err = f.svc.ExportSizes(context.Background(), "nope", entity.ExportSizesRequest{})
	assert.ErrorIs(t, err, entity.ErrSessionNotFound)
	assert.ErrorIs(t, f.svc.DeleteSession("nope"), entity.ErrSessionNotFound)
}

func TestThumbnail(t *testing.T) {
	f := newFixture(t, testConfig())
	id, _ := f.sessionWithImage(t)

	data, err := f.svc.Thumbnail(id)
	require.NoError(t, err)
	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 200, 100), img.Bounds())
}

func TestPreviewReflectsEdits(t *testing.T) {
	f := newFixture(t, testConfig())
	id, _ := f.sessionWithImage(t)

	before, err := f.svc.Preview(context.Background(), id)
	require.NoError(t, err)

	known, err := f.svc.AddFilter(id, "Invert")
	require.NoError(t, err)
	assert.True(t, known)

	after, err := f.svc.Preview(context.Background(), id)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)

	require.NoError(t, f.svc.ClearFilters(id))
	cleared, err := f.svc.Preview(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, before, cleared)

	known, err = f.svc.AddFilter(id, "posterize")
	require.NoError(t, err)
	assert.False(t, known)
}

func TestExportUsesCache(t *testing.T) {
	f := newFixture(t, testConfig())
	id, upload := f.sessionWithImage(t)

	first, err := f.svc.Export(context.Background(), id, "", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.FormatPNG, first.Format)
	assert.Equal(t, entity.Size{Width: 120, Height: 120}, first.Size)
	assert.Equal(t, 0, f.cache.hits)

	second, err := f.svc.Export(context.Background(), id, "png", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.hits)
	assert.Equal(t, first.Data, second.Data)

	style := entity.DefaultTextStyle()
	style.Text = "NEW"
	require.NoError(t, f.svc.SetStyle(id, style))
	_, err = f.svc.Export(context.Background(), id, "png", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.hits, "style change misses the cache")

	history, err := f.svc.History(context.Background(), upload.ImageID, 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestExportRejectsBadInput(t *testing.T) {
	f := newFixture(t, testConfig())
	id, _ := f.sessionWithImage(t)

	_, err := f.svc.Export(context.Background(), id, "tiff", nil, nil)
	var unsupported *entity.UnsupportedFormatError
	assert.True(t, errors.As(err, &unsupported))

	q := 3.0
	_, err = f.svc.Export(context.Background(), id, "jpeg", &q, nil)
	assert.ErrorIs(t, err, entity.ErrInvalidQuality)

	_, err = f.svc.Export(context.Background(), id, "png", nil, &entity.Size{Width: -1, Height: 10})
	assert.ErrorIs(t, err, entity.ErrInvalidSize)
}

func TestExportSizesDefaults(t *testing.T) {
	f := newFixture(t, testConfig())
	id, _ := f.sessionWithImage(t)

	results, err := f.svc.ExportSizes(context.Background(), id, entity.ExportSizesRequest{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "small", results[0].Size.Name)
	assert.Equal(t, "standard", results[1].Size.Name)

	q := 0.5
	results, err = f.svc.ExportSizes(context.Background(), id, entity.ExportSizesRequest{
		Format:  "jpg",
		Quality: &q,
		Sizes:   []entity.Size{{Width: 30, Height: 20}},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, entity.FormatJPEG, results[0].Format)
}

func TestExportFormats(t *testing.T) {
	f := newFixture(t, testConfig())
	id, _ := f.sessionWithImage(t)

	results, err := f.svc.ExportFormats(context.Background(), id, entity.ExportFormatsRequest{Formats: []string{"png", "jpg"}})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, entity.FormatPNG, results[0].Format)
	assert.Equal(t, entity.FormatJPEG, results[1].Format)
}

func TestEnqueueExport(t *testing.T) {
	f := newFixture(t, testConfig())

	emptyID, err := f.svc.CreateSession()
	require.NoError(t, err)
	_, err = f.svc.EnqueueExport(context.Background(), emptyID, entity.ExportSizesRequest{})
	assert.ErrorIs(t, err, entity.ErrNoImage)

	id, upload := f.sessionWithImage(t)
	require.NoError(t, f.svc.SetFrame(id, entity.Frame{BorderWidth: 4}))

	resp, err := f.svc.EnqueueExport(context.Background(), id, entity.ExportSizesRequest{
		Sizes: []entity.Size{{Width: 100, Height: 100}},
	})
	require.NoError(t, err)
	assert.Equal(t, upload.ImageID, resp.ImageID)
	assert.Equal(t, entity.StatusProcessing, resp.Status)

	require.Len(t, f.producer.messages, 1)
	task := f.producer.messages[0].(entity.ExportTask)
	assert.Equal(t, upload.ImageID, task.ImageID)
	assert.Equal(t, 4, task.Frame.BorderWidth)
	assert.Equal(t, entity.FormatPNG, task.Format)

	record, err := f.svc.GetImage(upload.ImageID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusProcessing, record.Status)
}

func TestEnqueueExportProducerFailure(t *testing.T) {
	f := newFixture(t, testConfig())
	f.producer.err = fmt.Errorf("broker unavailable")
	id, uploaded := f.sessionWithImage(t)

	_, err := f.svc.EnqueueExport(context.Background(), id, entity.ExportSizesRequest{})
	assert.EqualError(t, err, "broker unavailable")

	record, err := f.svc.GetImage(uploaded.ImageID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusUploaded, record.Status, "an unsent task leaves the status alone")
}

type failingFiles struct {
	database.ImageRepository
	err error
}

func (r failingFiles) SaveFile(string, string, io.Reader) error { return r.err }

func TestUploadImageStorageFailureLeavesSessionEmpty(t *testing.T) {
	cfg := testConfig()
	renderer := processor.NewRenderer(processor.Options{MaxDimension: 1000})
	svc := NewService(cfg, Deps{
		Sessions: session.NewStore(session.Options{
			Width:      cfg.CanvasWidth,
			Height:     cfg.CanvasHeight,
			Background: color.White,
			Renderer:   renderer,
		}),
		Renderer: renderer,
		Images: failingFiles{
			ImageRepository: database.NewImageRepository(storage.NewFileStorage(t.TempDir())),
			err:             errors.New("disk full"),
		},
		Cache:    database.NewNoopCache(),
		History:  database.NewMemoryHistory(),
		Producer: &fakeProducer{},
	})

	id, err := svc.CreateSession()
	require.NoError(t, err)

	_, err = svc.UploadImage(context.Background(), id, fileHeader(t, "image/png", pngData(t, 40, 40)))
	assert.ErrorContains(t, err, "disk full")

	_, err = svc.Thumbnail(id)
	assert.ErrorIs(t, err, entity.ErrNoImage)
	_, err = svc.EnqueueExport(context.Background(), id, entity.ExportSizesRequest{})
	assert.ErrorIs(t, err, entity.ErrNoImage)
}

func TestCleanupIdleSessions(t *testing.T) {
	f := newFixture(t, testConfig())
	_, err := f.svc.CreateSession()
	require.NoError(t, err)

	assert.Equal(t, 0, f.svc.CleanupIdleSessions(time.Now().Add(-time.Hour)))
	assert.Equal(t, 1, f.svc.CleanupIdleSessions(time.Now().Add(time.Hour)))
}
