package canvas

import (
	"image"
	"image/color"
)

type Stop struct {
	Offset float64
	Color  color.NRGBA
}

// VerticalGradient is an unbounded image whose color depends only on y,
// interpolated between stops from Y0 (offset 0) to Y1 (offset 1).
type VerticalGradient struct {
	Y0, Y1 float64
	Stops  []Stop
}

var rainbowStops = []Stop{
	{Offset: 0, Color: color.NRGBA{R: 0xff, G: 0x6b, B: 0x6b, A: 0xff}},
	{Offset: 0.2, Color: color.NRGBA{R: 0xff, G: 0xa7, B: 0x26, A: 0xff}},
	{Offset: 0.4, Color: color.NRGBA{R: 0xff, G: 0xeb, B: 0x3b, A: 0xff}},
	{Offset: 0.6, Color: color.NRGBA{R: 0x4c, G: 0xaf, B: 0x50, A: 0xff}},
	{Offset: 0.8, Color: color.NRGBA{R: 0x21, G: 0x96, B: 0xf3, A: 0xff}},
	{Offset: 1, Color: color.NRGBA{R: 0x9c, G: 0x27, B: 0xb0, A: 0xff}},
}

// Rainbow spans the six rainbow stops over one text height centered on centerY.
func Rainbow(centerY, height float64) *VerticalGradient {
	return &VerticalGradient{
		Y0:    centerY - height/2,
		Y1:    centerY + height/2,
		Stops: rainbowStops,
	}
}

func (g *VerticalGradient) ColorModel() color.Model { return color.NRGBAModel }

func (g *VerticalGradient) Bounds() image.Rectangle {
	return image.Rect(-1e9, -1e9, 1e9, 1e9)
}

func (g *VerticalGradient) At(_, y int) color.Color {
	return g.ColorAt(float64(y) + 0.5)
}

// ColorAt samples the gradient at a continuous y.
func (g *VerticalGradient) ColorAt(y float64) color.NRGBA {
	n := len(g.Stops)
	if n == 0 {
		return color.NRGBA{}
	}
	if g.Y1 == g.Y0 {
		return g.Stops[0].Color
	}

	t := (y - g.Y0) / (g.Y1 - g.Y0)
	if t <= g.Stops[0].Offset {
		return g.Stops[0].Color
	}
	for i := 1; i < n; i++ {
		a, b := g.Stops[i-1], g.Stops[i]
		if t > b.Offset {
			continue
		}
		span := b.Offset - a.Offset
		if span <= 0 {
			return b.Color
		}
		return lerp(a.Color, b.Color, (t-a.Offset)/span)
	}
	return g.Stops[n-1].Color
}

func lerp(a, b color.NRGBA, t float64) color.NRGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t + 0.5)
	}
	return color.NRGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}
