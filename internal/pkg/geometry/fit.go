// Package geometry places a source bitmap inside a fixed target rectangle.
package geometry

import (
	"image"
	"math"
)

// Placement is where a scaled source lands inside the target, in target units.
type Placement struct {
	DrawW   float64
	DrawH   float64
	OffsetX float64
	OffsetY float64
}

// Fit scales the source to fit inside the target without cropping or distortion and
// centers it. The wider side relative to the target aspect is pinned to the target.
// Zero heights are not valid input; the zero Placement is returned for them.
func Fit(sourceW, sourceH, targetW, targetH float64) Placement {
	if sourceH == 0 || targetH == 0 {
		return Placement{}
	}

	sourceAspect := sourceW / sourceH
	targetAspect := targetW / targetH

	if sourceAspect > targetAspect {
		drawH := targetW / sourceAspect
		return Placement{
			DrawW:   targetW,
			DrawH:   drawH,
			OffsetY: (targetH - drawH) / 2,
		}
	}

	drawW := targetH * sourceAspect
	return Placement{
		DrawW:   drawW,
		DrawH:   targetH,
		OffsetX: (targetW - drawW) / 2,
	}
}

// Rect rounds the placement to whole pixels.
func (p Placement) Rect() image.Rectangle {
	x0 := int(math.Round(p.OffsetX))
	y0 := int(math.Round(p.OffsetY))
	return image.Rect(x0, y0, x0+int(math.Round(p.DrawW)), y0+int(math.Round(p.DrawH)))
}

func (p Placement) Empty() bool {
	return p.Rect().Empty()
}

// Thumbnail bounds w x h by maxW x maxH keeping the aspect ratio. Sources already
// inside the bounds are scaled up to touch them, as the upload thumbnail did.
func Thumbnail(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	ratio := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	tw := int(math.Round(float64(w) * ratio))
	th := int(math.Round(float64(h) * ratio))
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}
	return tw, th
}
