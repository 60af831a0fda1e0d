package geometry

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFit(t *testing.T) {
	tests := []struct {
		name             string
		sourceW, sourceH float64
		targetW, targetH float64
		expected         Placement
	}{
		{
			name:    "wide source into square canvas",
			sourceW: 800, sourceH: 400,
			targetW: 400, targetH: 400,
			expected: Placement{DrawW: 400, DrawH: 200, OffsetX: 0, OffsetY: 100},
		},
		{
			name:    "tall source into square canvas",
			sourceW: 300, sourceH: 600,
			targetW: 400, targetH: 400,
			expected: Placement{DrawW: 200, DrawH: 400, OffsetX: 100, OffsetY: 0},
		},
		{
			name:    "same aspect",
			sourceW: 1000, sourceH: 500,
			targetW: 200, targetH: 100,
			expected: Placement{DrawW: 200, DrawH: 100},
		},
		{
			name:    "small source is scaled up",
			sourceW: 50, sourceH: 25,
			targetW: 800, targetH: 800,
			expected: Placement{DrawW: 800, DrawH: 400, OffsetY: 200},
		},
		{
			name:    "zero source height",
			sourceW: 100, sourceH: 0,
			targetW: 400, targetH: 400,
			expected: Placement{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fit(tt.sourceW, tt.sourceH, tt.targetW, tt.targetH)
			assert.InDelta(t, tt.expected.DrawW, got.DrawW, 1e-9)
			assert.InDelta(t, tt.expected.DrawH, got.DrawH, 1e-9)
			assert.InDelta(t, tt.expected.OffsetX, got.OffsetX, 1e-9)
			assert.InDelta(t, tt.expected.OffsetY, got.OffsetY, 1e-9)
		})
	}
}

func TestFitEqualAspectFillsTarget(t *testing.T) {
	targets := [][2]float64{{400, 400}, {200, 100}, {1200, 900}, {3, 7}}
	for _, tg := range targets {
		for _, k := range []float64{0.25, 1, 2.5, 13} {
			got := Fit(tg[0]*k, tg[1]*k, tg[0], tg[1])
			assert.InDelta(t, tg[0], got.DrawW, 1e-9)
			assert.InDelta(t, tg[1], got.DrawH, 1e-9)
			assert.InDelta(t, 0, got.OffsetX, 1e-9)
			assert.InDelta(t, 0, got.OffsetY, 1e-9)
		}
	}
}

func TestFitPinsWiderSide(t *testing.T) {
	for w := 1.0; w <= 40; w += 3 {
		for h := 1.0; h <= 40; h += 3 {
			got := Fit(w*10, h*10, 300, 200)
			if w*10/(h*10) > 300.0/200.0 {
				assert.Equal(t, 300.0, got.DrawW)
				assert.GreaterOrEqual(t, got.OffsetY, 0.0)
				assert.LessOrEqual(t, got.DrawH, 200.0)
			} else {
				assert.Equal(t, 200.0, got.DrawH)
				assert.GreaterOrEqual(t, got.OffsetX, 0.0)
				assert.LessOrEqual(t, got.DrawW, 300.0+1e-9)
			}
		}
	}
}

func TestPlacementRect(t *testing.T) {
	p := Fit(800, 400, 400, 400)
	assert.Equal(t, image.Rect(0, 100, 400, 300), p.Rect())
	assert.False(t, p.Empty())
	assert.True(t, Placement{}.Empty())
}

func TestThumbnail(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{name: "landscape", w: 800, h: 600, wantW: 200, wantH: 150},
		{name: "portrait", w: 600, h: 800, wantW: 150, wantH: 200},
		{name: "small square", w: 50, h: 50, wantW: 200, wantH: 200},
		{name: "degenerate", w: 0, h: 10, wantW: 0, wantH: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := Thumbnail(tt.w, tt.h, 200, 200)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}
