// Package codec decodes uploaded images and serializes surfaces to PNG or JPEG.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"

	"github.com/disintegration/imaging"
	"github.com/ds124wfegd/memecaption/internal/entity"
	"github.com/ds124wfegd/memecaption/internal/pkg/canvas"
	"github.com/ds124wfegd/memecaption/internal/pkg/geometry"
	"github.com/google/uuid"
)

const (
	ThumbnailSize    = 200
	ThumbnailQuality = 0.7
)

// decodable are the upload formats accepted by Decode.
var decodable = map[string]bool{
	"jpeg": true,
	"png":  true,
	"gif":  true,
}

var errEmptyImage = errors.New("image has zero width or height")

// Config reads only the header of data. It is cheap enough to run before a full decode
// to reject oversized uploads.
func Config(data []byte) (image.Config, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, "", &entity.DecodeError{Err: err}
	}
	if !decodable[format] {
		return image.Config{}, "", &entity.DecodeError{Err: fmt.Errorf("%w: %s", entity.ErrUnsupportedUpload, format)}
	}
	return cfg, format, nil
}

// Decode turns raw jpeg/png/gif bytes into an ImageSource with a fresh id.
// Corrupt data and zero-dimension bitmaps are DecodeErrors.
func Decode(data []byte) (*entity.ImageSource, error) {
	_, format, err := Config(data)
	if err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &entity.DecodeError{Err: err}
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, &entity.DecodeError{Err: errEmptyImage}
	}

	return &entity.ImageSource{
		ID:     uuid.New().String(),
		Image:  img,
		Format: format,
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

// JPEGQuality maps a 0..1 quality to the encoder's 1..100 scale.
func JPEGQuality(quality float64) (int, error) {
	if math.IsNaN(quality) || quality < 0 || quality > 1 {
		return 0, fmt.Errorf("%w: got %v", entity.ErrInvalidQuality, quality)
	}
	return max(1, int(math.Round(quality*100))), nil
}

// Encode writes img in the given format. PNG ignores quality. JPEG has no alpha
// channel, so transparent pixels are flattened onto black.
func Encode(w io.Writer, img image.Image, format entity.Format, quality float64) error {
	switch format {
	case entity.FormatPNG:
		if err := imaging.Encode(w, img, imaging.PNG); err != nil {
			return &entity.EncodeError{Format: format, Err: err}
		}
		return nil
	case entity.FormatJPEG:
		q, err := JPEGQuality(quality)
		if err != nil {
			return err
		}
		b := img.Bounds()
		flat := imaging.Overlay(imaging.New(b.Dx(), b.Dy(), color.Black), img, image.Point{}, 1)
		if err := imaging.Encode(w, flat, imaging.JPEG, imaging.JPEGQuality(q)); err != nil {
			return &entity.EncodeError{Format: format, Err: err}
		}
		return nil
	default:
		return &entity.UnsupportedFormatError{Format: string(format)}
	}
}

// Export serializes the current pixels of the surface.
func Export(s *canvas.Surface, format entity.Format, quality float64) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, s.Image(), format, quality); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Thumbnail scales img to fit a ThumbnailSize square and encodes it as JPEG.
func Thumbnail(img image.Image) ([]byte, error) {
	b := img.Bounds()
	w, h := geometry.Thumbnail(b.Dx(), b.Dy(), ThumbnailSize, ThumbnailSize)
	if w == 0 || h == 0 {
		return nil, &entity.DecodeError{Err: errEmptyImage}
	}

	var buf bytes.Buffer
	if err := Encode(&buf, imaging.Resize(img, w, h, imaging.Lanczos), entity.FormatJPEG, ThumbnailQuality); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
