package processor

import (
	"context"
	"fmt"
	"image/color"
	"math"
	"time"

	"github.com/ds124wfegd/memecaption/internal/entity"
	"github.com/ds124wfegd/memecaption/internal/pkg/canvas"
	"github.com/ds124wfegd/memecaption/internal/pkg/codec"
	"github.com/ds124wfegd/memecaption/internal/pkg/filter"
	"github.com/ds124wfegd/memecaption/internal/pkg/geometry"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const timestampLayout = "20060102_150405"

// Scene is an immutable snapshot of everything that goes into one render.
type Scene struct {
	Source  *entity.ImageSource
	Style   entity.TextStyle
	Filters []filter.Kind
	Frame   entity.Frame
}

func (s Scene) Validate() error {
	if err := s.Style.Validate(); err != nil {
		return err
	}
	return s.Frame.Validate()
}

// ParseFilters converts filter names, keeping unknown ones: applying them is a no-op.
func ParseFilters(names []string) []filter.Kind {
	kinds := make([]filter.Kind, 0, len(names))
	for _, name := range names {
		kinds = append(kinds, filter.ParseKind(name))
	}
	return kinds
}

type Options struct {
	MaxFileSize    int
	MaxDimension   int
	FilenamePrefix string
	Now            func() time.Time
}

type Renderer interface {
	Draw(s *canvas.Surface, scene Scene, background color.Color) error
	Export(ctx context.Context, scene Scene, req entity.ExportRequest) (*entity.ExportResult, error)
	ExportSizes(ctx context.Context, scene Scene, format entity.Format, quality float64, sizes []entity.Size) ([]entity.ExportResult, error)
	ExportFormats(ctx context.Context, scene Scene, formats []entity.Format, quality float64, size entity.Size) ([]entity.ExportResult, error)
}

type renderer struct {
	opts       Options
	compositor *canvas.Compositor
}

func NewRenderer(opts Options) Renderer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &renderer{opts: opts, compositor: canvas.NewCompositor()}
}

// Draw renders the scene onto s: background, fitted image, filters, caption, frame.
// A nil background leaves the surface transparent where nothing is drawn.
func (r *renderer) Draw(s *canvas.Surface, scene Scene, background color.Color) error {
	if err := scene.Validate(); err != nil {
		return err
	}

	s.Clear(background)

	if src := scene.Source; src != nil {
		s.DrawImage(src.Image, geometry.Fit(
			float64(src.Width), float64(src.Height),
			float64(s.Width()), float64(s.Height()),
		))
	}

	if len(scene.Filters) > 0 {
		data := s.ImageData()
		for _, kind := range scene.Filters {
			filter.ApplyImage(data, kind)
		}
		s.PutImageData(data)
	}

	scale := canvas.Scale(s.Width())
	if err := r.compositor.Composite(s, scene.Style, canvas.DefaultAnchor(s.Width(), s.Height()), scale); err != nil {
		return err
	}

	return drawFrame(s, scene.Frame, scale)
}

func drawFrame(s *canvas.Surface, frame entity.Frame, scale float64) error {
	if frame.BorderWidth > 0 {
		hex := frame.BorderColor
		if hex == "" {
			hex = entity.DefaultBorderColor
		}
		c, err := entity.ParseHexColor(hex)
		if err != nil {
			return fmt.Errorf("%w: %v", entity.ErrInvalidStyle, err)
		}
		s.StrokeBorder(scaled(frame.BorderWidth, scale), c)
	}
	if frame.CornerRadius > 0 {
		s.RoundCorners(scaled(frame.CornerRadius, scale))
	}
	return nil
}

func scaled(v int, scale float64) int {
	return max(1, int(math.Round(float64(v)*scale)))
}

// Export renders the scene once at the requested size.
func (r *renderer) Export(ctx context.Context, scene Scene, req entity.ExportRequest) (*entity.ExportResult, error) {
	size := entity.Size{Width: req.TargetWidth, Height: req.TargetHeight}
	format, err := r.validate(scene, req.Format, req.Quality, []entity.Size{size})
	if err != nil {
		return nil, err
	}

	res, err := r.render(ctx, scene, format, req.Quality, size)
	if err != nil {
		return nil, err
	}
	res.Filename = r.filename("", format, r.opts.Now())
	return res, nil
}

// ExportSizes renders the scene once per size, concurrently, each on its own surface.
// Results come back in the order of sizes, each tagged with its size and filename.
// The first failure cancels the remaining renders and no partial results are returned.
func (r *renderer) ExportSizes(ctx context.Context, scene Scene, format entity.Format, quality float64, sizes []entity.Size) ([]entity.ExportResult, error) {
	format, err := r.validate(scene, format, quality, sizes)
	if err != nil {
		return nil, err
	}

	stamp := r.opts.Now()
	results := make([]entity.ExportResult, len(sizes))
	g, ctx := errgroup.WithContext(ctx)

	for i, size := range sizes {
		g.Go(func() error {
			res, err := r.render(ctx, scene, format, quality, size)
			if err != nil {
				return fmt.Errorf("export %s: %w", sizeName(size), err)
			}
			res.Filename = r.filename(sizeName(size), format, stamp)
			results[i] = *res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ExportFormats renders the scene at one size and encodes it once per format.
func (r *renderer) ExportFormats(ctx context.Context, scene Scene, formats []entity.Format, quality float64, size entity.Size) ([]entity.ExportResult, error) {
	if len(formats) == 0 {
		return nil, &entity.UnsupportedFormatError{Format: ""}
	}
	parsed := make([]entity.Format, len(formats))
	for i, f := range formats {
		p, err := r.validate(scene, f, quality, []entity.Size{size})
		if err != nil {
			return nil, err
		}
		parsed[i] = p
	}

	s := canvas.NewSurface(size.Width, size.Height)
	if err := r.Draw(s, scene, nil); err != nil {
		return nil, err
	}

	stamp := r.opts.Now()
	results := make([]entity.ExportResult, len(parsed))
	g, ctx := errgroup.WithContext(ctx)

	for i, format := range parsed {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := r.encode(s, format, quality)
			if err != nil {
				return err
			}
			results[i] = entity.ExportResult{
				Size:     size,
				Format:   format,
				Filename: r.filename(size.Name, format, stamp),
				Data:     data,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// validate runs every check that does not need pixels, before anything is drawn.
func (r *renderer) validate(scene Scene, format entity.Format, quality float64, sizes []entity.Size) (entity.Format, error) {
	f, err := entity.ParseFormat(string(format))
	if err != nil {
		return "", err
	}
	if f == entity.FormatJPEG {
		if _, err := codec.JPEGQuality(quality); err != nil {
			return "", err
		}
	}

	if len(sizes) == 0 {
		return "", fmt.Errorf("%w: no sizes requested", entity.ErrInvalidSize)
	}
	for _, size := range sizes {
		if size.Width <= 0 || size.Height <= 0 {
			return "", fmt.Errorf("%w: %dx%d", entity.ErrInvalidSize, size.Width, size.Height)
		}
		if limit := r.opts.MaxDimension; limit > 0 && (size.Width > limit || size.Height > limit) {
			return "", fmt.Errorf("%w: %dx%d exceeds %d", entity.ErrInvalidSize, size.Width, size.Height, limit)
		}
	}

	if err := scene.Validate(); err != nil {
		return "", err
	}
	return f, nil
}

func (r *renderer) render(ctx context.Context, scene Scene, format entity.Format, quality float64, size entity.Size) (*entity.ExportResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := canvas.NewSurface(size.Width, size.Height)
	if err := r.Draw(s, scene, nil); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := r.encode(s, format, quality)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"format": format,
		"width":  size.Width,
		"height": size.Height,
		"bytes":  len(data),
	}).Debug("Rendered export")

	return &entity.ExportResult{Size: size, Format: format, Data: data}, nil
}

func (r *renderer) encode(s *canvas.Surface, format entity.Format, quality float64) ([]byte, error) {
	data, err := codec.Export(s, format, quality)
	if err != nil {
		return nil, err
	}
	if limit := r.opts.MaxFileSize; limit > 0 && len(data) > limit {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", entity.ErrFileTooLarge, len(data), limit)
	}
	return data, nil
}

func (r *renderer) filename(name string, format entity.Format, at time.Time) string {
	return Filename(r.opts.FilenamePrefix, name, format, at)
}

// Filename builds <prefix>[<name>_]<timestamp>.<ext>.
func Filename(prefix, name string, format entity.Format, at time.Time) string {
	base := prefix
	if name != "" {
		base += name + "_"
	}
	return base + at.Format(timestampLayout) + "." + format.Extension()
}

func sizeName(size entity.Size) string {
	if size.Name != "" {
		return size.Name
	}
	return fmt.Sprintf("%dx%d", size.Width, size.Height)
}
