// Package filter implements per-pixel color transforms over unpremultiplied RGBA buffers.
//
// All filters mutate the buffer they are given. Weights are evaluated exactly in integer
// thousandths (tenths for brightness) and rounded half-up, so results are reproducible
// across platforms. Alpha is never touched.
package filter

import (
	"image"
	"runtime"
	"strings"
	"sync"
)

type Kind string

const (
	Grayscale  Kind = "grayscale"
	Sepia      Kind = "sepia"
	Invert     Kind = "invert"
	Brightness Kind = "brightness"
)

// parallelThreshold is the buffer length (in bytes) above which rows are split across goroutines.
const parallelThreshold = 256 * 256 * 4

type pixelFunc func(p []uint8)

var filters = map[Kind]pixelFunc{
	Grayscale:  grayscale,
	Sepia:      sepia,
	Invert:     invert,
	Brightness: brightness,
}

func ParseKind(s string) Kind {
	return Kind(strings.ToLower(strings.TrimSpace(s)))
}

func (k Kind) Known() bool {
	_, ok := filters[k]
	return ok
}

func Kinds() []Kind {
	return []Kind{Grayscale, Sepia, Invert, Brightness}
}

// Apply runs the filter over pix in place. pix is laid out as R,G,B,A quadruples.
// An unknown kind leaves the buffer untouched and reports false.
func Apply(pix []uint8, kind Kind) bool {
	fn, ok := filters[kind]
	if !ok {
		return false
	}

	n := len(pix) - len(pix)%4
	if n < parallelThreshold {
		apply(pix[:n], fn)
		return true
	}

	workers := runtime.GOMAXPROCS(0)
	chunk := (n/4/workers + 1) * 4

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		band := pix[start:end]
		wg.Add(1)
		go func() {
			defer wg.Done()
			apply(band, fn)
		}()
	}
	wg.Wait()
	return true
}

// ApplyImage runs the filter over the whole image in place.
func ApplyImage(img *image.NRGBA, kind Kind) bool {
	if !kind.Known() {
		return false
	}
	b := img.Bounds()
	if img.Stride == b.Dx()*4 {
		start := img.PixOffset(b.Min.X, b.Min.Y)
		return Apply(img.Pix[start:start+b.Dx()*b.Dy()*4], kind)
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		start := img.PixOffset(b.Min.X, y)
		Apply(img.Pix[start:start+b.Dx()*4], kind)
	}
	return true
}

func apply(pix []uint8, fn pixelFunc) {
	for i := 0; i+3 < len(pix); i += 4 {
		fn(pix[i : i+4 : i+4])
	}
}

func grayscale(p []uint8) {
	r, g, b := int(p[0]), int(p[1]), int(p[2])
	gray := round(299*r+587*g+114*b, 1000)
	p[0], p[1], p[2] = gray, gray, gray
}

func sepia(p []uint8) {
	r, g, b := int(p[0]), int(p[1]), int(p[2])
	p[0] = round(393*r+769*g+189*b, 1000)
	p[1] = round(349*r+686*g+168*b, 1000)
	p[2] = round(272*r+534*g+131*b, 1000)
}

func invert(p []uint8) {
	p[0] = 255 - p[0]
	p[1] = 255 - p[1]
	p[2] = 255 - p[2]
}

func brightness(p []uint8) {
	p[0] = round(12*int(p[0]), 10)
	p[1] = round(12*int(p[1]), 10)
	p[2] = round(12*int(p[2]), 10)
}

// round divides v by den rounding half-up and clamps to [0, 255].
func round(v, den int) uint8 {
	q := (v + den/2) / den
	if q > 255 {
		return 255
	}
	if q < 0 {
		return 0
	}
	return uint8(q)
}
