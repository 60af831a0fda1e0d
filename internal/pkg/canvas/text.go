package canvas

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/ds124wfegd/memecaption/internal/entity"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

const (
	// ReferenceWidth is the surface width the effect constants are tuned for.
	ReferenceWidth = 400
	// AnchorRatioY places the caption baseline middle at 85% of the surface height.
	AnchorRatioY = 0.85

	StrokeWidth  = 3
	ShadowBlur   = 10
	ShadowOffset = 2
)

var (
	StrokeColor = color.NRGBA{A: 0xff}
	ShadowColor = color.NRGBA{A: 0x80}
)

type Anchor struct {
	X, Y float64
}

// DefaultAnchor is the horizontal center at 85% of the height.
func DefaultAnchor(width, height int) Anchor {
	return Anchor{X: float64(width) / 2, Y: float64(height) * AnchorRatioY}
}

// Scale is the effect scale factor for a surface of the given width.
func Scale(width int) float64 {
	return float64(width) / ReferenceWidth
}

// EffectParams are the effect scalars of one render, all scaled by the same factor.
type EffectParams struct {
	FontSize     float64
	StrokeWidth  float64
	ShadowBlur   float64
	ShadowOffset float64
}

func Params(style entity.TextStyle, scale float64) EffectParams {
	size := math.Round(style.SizePx * scale)
	if size < 1 {
		size = 1
	}
	return EffectParams{
		FontSize:     size,
		StrokeWidth:  StrokeWidth * scale,
		ShadowBlur:   ShadowBlur * scale,
		ShadowOffset: ShadowOffset * scale,
	}
}

type Compositor struct {
	fonts *FontSet
}

func NewCompositor() *Compositor {
	return &Compositor{fonts: defaultFonts}
}

// Composite draws the caption onto the surface at the anchor. Layers go down in a
// fixed order: stroke, shadow setup, fill. The shadow state is always cleared on return.
// Empty text draws nothing.
func (c *Compositor) Composite(s *Surface, style entity.TextStyle, anchor Anchor, scale float64) error {
	if style.Text == "" {
		return nil
	}
	defer s.ResetShadow()

	fill, err := entity.ParseHexColor(style.Color)
	if err != nil {
		return fmt.Errorf("%w: %v", entity.ErrInvalidStyle, err)
	}

	p := Params(style, scale)
	face, err := c.fonts.Face(style.FontFamily, p.FontSize)
	if err != nil {
		return fmt.Errorf("open font face: %w", err)
	}
	defer face.Close()

	mask := textMask(face, style.Text, anchor, p.StrokeWidth/2, s.Bounds().Inset(-clipMargin(p)))

	if style.Effects.Stroke {
		s.FillMask(dilate(mask, p.StrokeWidth/2), image.NewUniform(StrokeColor))
	}

	if style.Effects.Shadow {
		s.SetShadow(Shadow{
			Color:   ShadowColor,
			Blur:    p.ShadowBlur,
			OffsetX: p.ShadowOffset,
			OffsetY: p.ShadowOffset,
		})
	}

	var src image.Image = image.NewUniform(fill)
	if style.Effects.Gradient {
		src = Rainbow(anchor.Y, p.FontSize)
	}

	s.FillMask(mask, src)
	return nil
}

// clipMargin is how far outside the surface glyph coverage can still reach it
// through the outline or the shadow.
func clipMargin(p EffectParams) int {
	return int(math.Ceil(p.StrokeWidth/2)) + int(math.Ceil(3*p.ShadowBlur/2)) + int(math.Ceil(p.ShadowOffset)) + 1
}

// textMask rasterises text centered on the anchor, middle baseline, with room
// around the glyphs for an outline of the given radius. The mask never extends past clip.
func textMask(face font.Face, text string, anchor Anchor, pad float64, clip image.Rectangle) *image.Alpha {
	m := face.Metrics()
	advance := font.MeasureString(face, text)

	x := anchor.X - float64(advance)/64/2
	y := anchor.Y + float64(m.Ascent-m.Descent)/64/2
	dot := fixed.Point26_6{X: fixed.Int26_6(math.Round(x * 64)), Y: fixed.Int26_6(math.Round(y * 64))}

	bounds, _ := font.BoundString(face, text)
	r := image.Rect(
		(dot.X+bounds.Min.X).Floor(), (dot.Y+bounds.Min.Y).Floor(),
		(dot.X+bounds.Max.X).Ceil(), (dot.Y+bounds.Max.Y).Ceil(),
	).Inset(-int(math.Ceil(pad)) - 1).Intersect(clip)

	mask := image.NewAlpha(r)
	d := font.Drawer{Dst: mask, Src: image.Opaque, Face: face, Dot: dot}
	d.DrawString(text)
	return mask
}

type tap struct {
	dx, dy int
	weight uint32
}

// dilate grows the mask by radius pixels with an anti-aliased round brush.
// Composite passes half the stroke width: the fill pass covers the inner half of the line.
func dilate(mask *image.Alpha, radius float64) *image.Alpha {
	out := image.NewAlpha(mask.Rect)
	if radius <= 0 {
		copy(out.Pix, mask.Pix)
		return out
	}

	reach := int(math.Ceil(radius))
	var taps []tap
	for dy := -reach; dy <= reach; dy++ {
		for dx := -reach; dx <= reach; dx++ {
			w := radius - math.Hypot(float64(dx), float64(dy)) + 0.5
			if w <= 0 {
				continue
			}
			if w > 1 {
				w = 1
			}
			taps = append(taps, tap{dx: dx, dy: dy, weight: uint32(w * 255)})
		}
	}

	r := mask.Rect
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			var best uint32
			for _, t := range taps {
				sx, sy := x-t.dx, y-t.dy
				if sx < r.Min.X || sx >= r.Max.X || sy < r.Min.Y || sy >= r.Max.Y {
					continue
				}
				v := uint32(mask.Pix[mask.PixOffset(sx, sy)]) * t.weight / 255
				if v > best {
					best = v
				}
			}
			out.Pix[out.PixOffset(x, y)] = uint8(best)
		}
	}
	return out
}
