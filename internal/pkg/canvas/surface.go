// Package canvas is a small RGBA drawing surface with canvas-style drawing state
// and the caption text compositor built on top of it.
//
// Every method on Surface mutates the surface it is called on. A Surface is not safe
// for concurrent use; callers own it and serialise access.
package canvas

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"github.com/ds124wfegd/memecaption/internal/pkg/geometry"
)

// Shadow is the drop shadow applied to every draw while it is active.
type Shadow struct {
	Color   color.NRGBA
	Blur    float64
	OffsetX float64
	OffsetY float64
}

func (s Shadow) Active() bool {
	return s.Color.A != 0 && (s.Blur > 0 || s.OffsetX != 0 || s.OffsetY != 0)
}

type Surface struct {
	img    *image.RGBA
	shadow Shadow
}

func NewSurface(width, height int) *Surface {
	return &Surface{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

func (s *Surface) Width() int { return s.img.Rect.Dx() }

func (s *Surface) Height() int { return s.img.Rect.Dy() }

func (s *Surface) Bounds() image.Rectangle { return s.img.Rect }

// Image exposes the backing image. Writes through it bypass the drawing state.
func (s *Surface) Image() *image.RGBA { return s.img }

func (s *Surface) Shadow() Shadow { return s.shadow }

func (s *Surface) SetShadow(sh Shadow) { s.shadow = sh }

// ResetShadow clears the shadow so later draws cast none.
func (s *Surface) ResetShadow() { s.shadow = Shadow{} }

// Clone returns an independent copy, drawing state included.
func (s *Surface) Clone() *Surface {
	img := image.NewRGBA(s.img.Rect)
	copy(img.Pix, s.img.Pix)
	return &Surface{img: img, shadow: s.shadow}
}

// Clear replaces every pixel with bg. A nil bg clears to transparent.
func (s *Surface) Clear(bg color.Color) {
	if bg == nil {
		bg = color.Transparent
	}
	draw.Draw(s.img, s.img.Rect, image.NewUniform(bg), image.Point{}, draw.Src)
}

// DrawImage scales src into the placement rectangle and draws it over the surface.
func (s *Surface) DrawImage(src image.Image, p geometry.Placement) {
	r := p.Rect()
	if r.Empty() {
		return
	}

	var scaled image.Image = src
	if src.Bounds().Dx() != r.Dx() || src.Bounds().Dy() != r.Dy() {
		scaled = imaging.Resize(src, r.Dx(), r.Dy(), imaging.Lanczos)
	}
	sp := scaled.Bounds().Min

	if s.shadow.Active() {
		mask := image.NewAlpha(r)
		draw.Draw(mask, r, scaled, sp, draw.Src)
		s.drawShadow(mask)
	}
	draw.Draw(s.img, r, scaled, sp, draw.Over)
}

// FillRect paints r with c.
func (s *Surface) FillRect(r image.Rectangle, c color.Color) {
	r = r.Intersect(s.img.Rect)
	if r.Empty() {
		return
	}
	if s.shadow.Active() {
		mask := image.NewAlpha(r)
		draw.Draw(mask, r, image.Opaque, image.Point{}, draw.Src)
		s.drawShadow(mask)
	}
	draw.Draw(s.img, r, image.NewUniform(c), image.Point{}, draw.Over)
}

// FillMask paints src through mask. Both are addressed in surface coordinates.
func (s *Surface) FillMask(mask *image.Alpha, src image.Image) {
	if s.shadow.Active() {
		s.drawShadow(mask)
	}
	r := mask.Rect.Intersect(s.img.Rect)
	if r.Empty() {
		return
	}
	draw.DrawMask(s.img, r, src, r.Min, mask, r.Min, draw.Over)
}

// ImageData returns an unpremultiplied copy of the pixels.
func (s *Surface) ImageData() *image.NRGBA {
	return imaging.Clone(s.img)
}

// PutImageData replaces the pixels under data with data, ignoring the drawing state.
func (s *Surface) PutImageData(data *image.NRGBA) {
	r := data.Rect.Sub(data.Rect.Min).Intersect(s.img.Rect)
	draw.Draw(s.img, r, data, data.Rect.Min, draw.Src)
}

// StrokeBorder paints a band of the given width along the surface edges.
func (s *Surface) StrokeBorder(width int, c color.Color) {
	if width <= 0 {
		return
	}
	b := s.img.Rect
	s.FillRect(image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+width), c)
	s.FillRect(image.Rect(b.Min.X, b.Max.Y-width, b.Max.X, b.Max.Y), c)
	s.FillRect(image.Rect(b.Min.X, b.Min.Y+width, b.Min.X+width, b.Max.Y-width), c)
	s.FillRect(image.Rect(b.Max.X-width, b.Min.Y+width, b.Max.X, b.Max.Y-width), c)
}

// RoundCorners makes everything outside a rounded rectangle of the given radius transparent.
func (s *Surface) RoundCorners(radius int) {
	b := s.img.Rect
	if radius <= 0 {
		return
	}
	if limit := min(b.Dx(), b.Dy()) / 2; radius > limit {
		radius = limit
	}
	r := float64(radius)

	for y := 0; y < radius; y++ {
		for x := 0; x < radius; x++ {
			dx := r - (float64(x) + 0.5)
			dy := r - (float64(y) + 0.5)
			cov := r - math.Hypot(dx, dy) + 0.5
			if cov >= 1 {
				continue
			}
			if cov < 0 {
				cov = 0
			}
			s.scalePixel(b.Min.X+x, b.Min.Y+y, cov)
			s.scalePixel(b.Max.X-1-x, b.Min.Y+y, cov)
			s.scalePixel(b.Min.X+x, b.Max.Y-1-y, cov)
			s.scalePixel(b.Max.X-1-x, b.Max.Y-1-y, cov)
		}
	}
}

// scalePixel multiplies a premultiplied pixel, fading it towards transparent.
func (s *Surface) scalePixel(x, y int, k float64) {
	i := s.img.PixOffset(x, y)
	p := s.img.Pix[i : i+4 : i+4]
	for c := range p {
		p[c] = uint8(math.Round(float64(p[c]) * k))
	}
}

// drawShadow paints the shadow cast by mask using the active shadow state.
// The blur is a gaussian with sigma = blur/2, like the HTML canvas.
func (s *Surface) drawShadow(mask *image.Alpha) {
	sh := s.shadow
	sigma := sh.Blur / 2
	pad := int(math.Ceil(3 * sigma))
	off := image.Pt(int(math.Round(sh.OffsetX)), int(math.Round(sh.OffsetY)))

	dst := mask.Rect.Add(off).Inset(-pad)
	if dst.Intersect(s.img.Rect).Empty() {
		return
	}

	layer := image.NewNRGBA(image.Rect(0, 0, dst.Dx(), dst.Dy()))
	for y := mask.Rect.Min.Y; y < mask.Rect.Max.Y; y++ {
		for x := mask.Rect.Min.X; x < mask.Rect.Max.X; x++ {
			a := mask.Pix[mask.PixOffset(x, y)]
			if a == 0 {
				continue
			}
			i := layer.PixOffset(x+off.X-dst.Min.X, y+off.Y-dst.Min.Y)
			layer.Pix[i+3] = a
		}
	}

	var blurred image.Image = layer
	if sigma > 0 {
		blurred = imaging.Blur(layer, sigma)
	}
	draw.DrawMask(s.img, dst, image.NewUniform(sh.Color), image.Point{}, blurred, image.Point{}, draw.Over)
}
