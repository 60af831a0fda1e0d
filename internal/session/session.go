// Package session holds the per-user editing state: one image, one caption style,
// a filter list and a frame, rendered onto a single preview surface.
package session

import (
	"context"
	"fmt"
	"image/color"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ds124wfegd/memecaption/internal/entity"
	"github.com/ds124wfegd/memecaption/internal/pkg/canvas"
	"github.com/ds124wfegd/memecaption/internal/pkg/codec"
	"github.com/ds124wfegd/memecaption/internal/pkg/filter"
	"github.com/ds124wfegd/memecaption/internal/pkg/processor"
	"github.com/sirupsen/logrus"
)

// Decoder turns uploaded bytes into an image. It runs off the session lock.
type Decoder func(data []byte) (*entity.ImageSource, error)

type Options struct {
	Width      int
	Height     int
	Background color.Color
	Decode     Decoder
	Renderer   processor.Renderer
}

// Session serialises every change to its state and surface with one mutex.
// Image loads carry the generation they started in and are dropped if a newer
// load or a removal happened meanwhile.
type Session struct {
	ID string

	mu         sync.Mutex
	opts       Options
	surface    *canvas.Surface
	source     *entity.ImageSource
	style      entity.TextStyle
	filters    []filter.Kind
	frame      entity.Frame
	generation uint64
	lastUsed   atomic.Int64
}

func New(id string, opts Options) (*Session, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("%w: surface %dx%d", entity.ErrInvalidSize, opts.Width, opts.Height)
	}
	if opts.Decode == nil {
		opts.Decode = codec.Decode
	}
	if opts.Renderer == nil {
		opts.Renderer = processor.NewRenderer(processor.Options{})
	}

	s := &Session{
		ID:      id,
		opts:    opts,
		surface: canvas.NewSurface(opts.Width, opts.Height),
		style:   entity.DefaultTextStyle(),
	}
	if err := s.redrawLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadImage decodes data in the background and installs it as the session image.
// The task resolves with ErrSuperseded if another load or a removal started after
// this one, or if ctx was cancelled before the result could be applied. In both
// cases the session is left untouched.
func (s *Session) LoadImage(ctx context.Context, data []byte) *Task[*entity.ImageSource] {
	task := newTask[*entity.ImageSource]()

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.mu.Unlock()
	s.Touch()

	go func() {
		src, err := s.opts.Decode(data)
		if err != nil {
			task.resolve(nil, err)
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		if gen != s.generation || ctx.Err() != nil {
			logrus.WithFields(logrus.Fields{"session_id": s.ID, "image_id": src.ID}).Debug("Discarding stale image load")
			task.resolve(nil, entity.ErrSuperseded)
			return
		}

		s.source = src
		if err := s.redrawLocked(); err != nil {
			task.resolve(nil, err)
			return
		}
		task.resolve(src, nil)
	}()

	return task
}

// RemoveImage drops the image and invalidates any load still in flight.
func (s *Session) RemoveImage() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.source = nil
	return s.redrawLocked()
}

// DiscardImage removes the image only while it is still the one with the given id.
func (s *Session) DiscardImage(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.source == nil || s.source.ID != id {
		return nil
	}
	s.generation++
	s.source = nil
	return s.redrawLocked()
}

func (s *Session) SetStyle(style entity.TextStyle) error {
	if err := style.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.style = style
	return s.redrawLocked()
}

// AddFilter appends a filter to the chain. Unknown kinds are ignored and reported as false.
func (s *Session) AddFilter(kind filter.Kind) (bool, error) {
	if !kind.Known() {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.filters = append(s.filters, kind)
	return true, s.redrawLocked()
}

func (s *Session) ClearFilters() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.filters = nil
	return s.redrawLocked()
}

func (s *Session) SetFrame(frame entity.Frame) error {
	if err := frame.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.frame = frame
	return s.redrawLocked()
}

// Source returns the current image, or ErrNoImage.
func (s *Session) Source() (*entity.ImageSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.source == nil {
		return nil, entity.ErrNoImage
	}
	return s.source, nil
}

// Scene snapshots the render inputs. The snapshot shares the immutable image only.
func (s *Session) Scene() processor.Scene {
	s.mu.Lock()
	defer s.mu.Unlock()

	return processor.Scene{
		Source:  s.source,
		Style:   s.style,
		Filters: append([]filter.Kind(nil), s.filters...),
		Frame:   s.frame,
	}
}

// Surface returns a copy of the preview surface.
func (s *Session) Surface() *canvas.Surface {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.surface.Clone()
}

// Export snapshots the preview surface and encodes the copy in the background.
func (s *Session) Export(format entity.Format, quality float64) *Task[[]byte] {
	task := newTask[[]byte]()
	snapshot := s.Surface()

	go func() {
		task.resolve(codec.Export(snapshot, format, quality))
	}()
	return task
}

// Touch and LastUsed never wait on the session lock, so a long redraw does not
// block lookups or idle checks.
func (s *Session) Touch() {
	s.lastUsed.Store(time.Now().UnixNano())
}

func (s *Session) LastUsed() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

func (s *Session) redrawLocked() error {
	s.Touch()
	return s.opts.Renderer.Draw(s.surface, processor.Scene{
		Source:  s.source,
		Style:   s.style,
		Filters: s.filters,
		Frame:   s.frame,
	}, s.opts.Background)
}
