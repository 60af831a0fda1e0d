package entity

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

const (
	DefaultFontFamily = "Arial, sans-serif"
	DefaultFontSize   = 40
	DefaultTextColor  = "#ffffff"
	// MaxFontSize is the largest caption size at the 400px reference width.
	MaxFontSize = 400

	DefaultBorderWidth  = 10
	DefaultBorderColor  = "#ffffff"
	DefaultCornerRadius = 20
)

type Effects struct {
	Stroke   bool `json:"stroke"`
	Shadow   bool `json:"shadow"`
	Gradient bool `json:"gradient"`
}

type TextStyle struct {
	Text       string  `json:"text"`
	FontFamily string  `json:"font_family"`
	SizePx     float64 `json:"size_px"`
	Color      string  `json:"color"`
	Effects    Effects `json:"effects"`
}

func DefaultTextStyle() TextStyle {
	return TextStyle{
		FontFamily: DefaultFontFamily,
		SizePx:     DefaultFontSize,
		Color:      DefaultTextColor,
	}
}

func (s TextStyle) Validate() error {
	if s.SizePx <= 0 {
		return fmt.Errorf("%w: size_px must be positive, got %v", ErrInvalidStyle, s.SizePx)
	}
	if s.SizePx > MaxFontSize {
		return fmt.Errorf("%w: size_px must not exceed %d, got %v", ErrInvalidStyle, MaxFontSize, s.SizePx)
	}
	if _, err := ParseHexColor(s.Color); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidStyle, err)
	}
	return nil
}

// Frame decorates the finished composite with a border and rounded corners.
// Zero values disable the respective decoration.
type Frame struct {
	BorderWidth  int    `json:"border_width"`
	BorderColor  string `json:"border_color,omitempty"`
	CornerRadius int    `json:"corner_radius"`
}

func (f Frame) Validate() error {
	if f.BorderWidth < 0 || f.CornerRadius < 0 {
		return fmt.Errorf("%w: frame sizes must not be negative", ErrInvalidStyle)
	}
	if f.BorderColor != "" {
		if _, err := ParseHexColor(f.BorderColor); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidStyle, err)
		}
	}
	return nil
}

// ParseHexColor parses "#rgb" and "#rrggbb" colors.
func ParseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
