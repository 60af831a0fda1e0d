package filter

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPixel(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		in       []uint8
		expected []uint8
	}{
		{
			// 0.299*200 + 0.587*100 + 0.114*50 = 124.2
			name:     "grayscale reference pixel",
			kind:     Grayscale,
			in:       []uint8{200, 100, 50, 255},
			expected: []uint8{124, 124, 124, 255},
		},
		{
			// 0.299*0 + 0.587*0 + 0.114*5 = 0.57 rounds up
			name:     "grayscale rounds half up",
			kind:     Grayscale,
			in:       []uint8{0, 0, 5, 10},
			expected: []uint8{1, 1, 1, 10},
		},
		{
			name:     "sepia clamps",
			kind:     Sepia,
			in:       []uint8{255, 255, 255, 128},
			expected: []uint8{255, 255, 239, 128},
		},
		{
			// r: 39.3+76.9+18.9 = 135.1, g: 34.9+68.6+16.8 = 120.3, b: 27.2+53.4+13.1 = 93.7
			name:     "sepia mid gray",
			kind:     Sepia,
			in:       []uint8{100, 100, 100, 255},
			expected: []uint8{135, 120, 94, 255},
		},
		{
			name:     "invert boundaries",
			kind:     Invert,
			in:       []uint8{0, 255, 128, 7},
			expected: []uint8{255, 0, 127, 7},
		},
		{
			// 100*1.2 = 120, 250*1.2 = 300 -> 255, 3*1.2 = 3.6 -> 4
			name:     "brightness",
			kind:     Brightness,
			in:       []uint8{100, 250, 3, 0},
			expected: []uint8{120, 255, 4, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pix := append([]uint8(nil), tt.in...)
			require.True(t, Apply(pix, tt.kind))
			assert.Equal(t, tt.expected, pix)
		})
	}
}

func TestUnknownKindIsNoop(t *testing.T) {
	pix := []uint8{1, 2, 3, 4, 5, 6, 7, 8}
	assert.NotPanics(t, func() {
		assert.False(t, Apply(pix, Kind("blur")))
	})
	assert.Equal(t, []uint8{1, 2, 3, 4, 5, 6, 7, 8}, pix)
	assert.False(t, Kind("").Known())
}

func TestParseKind(t *testing.T) {
	assert.Equal(t, Sepia, ParseKind("  SePia "))
	assert.True(t, ParseKind("INVERT").Known())
}

func TestGrayscaleIdempotent(t *testing.T) {
	pix := allPixels()
	Apply(pix, Grayscale)
	once := append([]uint8(nil), pix...)
	Apply(pix, Grayscale)
	assert.Equal(t, once, pix)
}

func TestInvertSelfInverse(t *testing.T) {
	pix := allPixels()
	orig := append([]uint8(nil), pix...)
	Apply(pix, Invert)
	Apply(pix, Invert)
	assert.Equal(t, orig, pix)
}

func TestFiltersKeepRangeAndAlpha(t *testing.T) {
	for _, kind := range Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			pix := allPixels()
			orig := append([]uint8(nil), pix...)
			Apply(pix, kind)
			for i := 3; i < len(pix); i += 4 {
				if pix[i] != orig[i] {
					t.Fatalf("alpha changed at %d: %d -> %d", i, orig[i], pix[i])
				}
			}
		})
	}
}

func TestSepiaAndBrightnessMonotoneClamp(t *testing.T) {
	// every channel value fits in uint8 by construction; check the clamp is hit exactly
	pix := []uint8{255, 255, 255, 255}
	Apply(pix, Brightness)
	assert.Equal(t, []uint8{255, 255, 255, 255}, pix)

	pix = []uint8{0, 0, 0, 255}
	Apply(pix, Sepia)
	assert.Equal(t, []uint8{0, 0, 0, 255}, pix)
}

func TestApplyLargeBufferMatchesSequential(t *testing.T) {
	const w, h = 300, 300
	pix := make([]uint8, w*h*4)
	for i := range pix {
		pix[i] = uint8(i * 31)
	}
	expected := append([]uint8(nil), pix...)
	apply(expected, sepia)

	require.True(t, Apply(pix, Sepia))
	assert.Equal(t, expected, pix)
}

func TestApplyImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}

	sub := img.SubImage(image.Rect(1, 1, 3, 2)).(*image.NRGBA)
	require.True(t, ApplyImage(sub, Invert))

	assert.Equal(t, color.NRGBA{R: 55, G: 155, B: 205, A: 255}, img.NRGBAAt(1, 1))
	assert.Equal(t, color.NRGBA{R: 55, G: 155, B: 205, A: 255}, img.NRGBAAt(2, 1))
	assert.Equal(t, color.NRGBA{R: 200, G: 100, B: 50, A: 255}, img.NRGBAAt(0, 1))
	assert.Equal(t, color.NRGBA{R: 200, G: 100, B: 50, A: 255}, img.NRGBAAt(1, 0))

	assert.False(t, ApplyImage(img, Kind("vintage")))
}

// allPixels returns a buffer covering every channel value, including 0 and 255.
func allPixels() []uint8 {
	pix := make([]uint8, 0, 256*4*3)
	for v := 0; v < 256; v++ {
		pix = append(pix,
			uint8(v), uint8(255-v), uint8(v/2), uint8(v),
			255, uint8(v), 0, 255,
			uint8(v), uint8(v), uint8(v), 0,
		)
	}
	return pix
}
