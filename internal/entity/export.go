package entity

import (
	"strings"
	"time"
)

type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"

	DefaultQuality = 0.9
)

// ParseFormat accepts png, jpeg and its jpg alias. Anything else is an UnsupportedFormatError.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	default:
		return "", &UnsupportedFormatError{Format: s}
	}
}

func (f Format) Extension() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return string(f)
}

func (f Format) ContentType() string {
	if f == FormatJPEG {
		return "image/jpeg"
	}
	return "image/png"
}

type Size struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Name   string `json:"name,omitempty"`
}

// DefaultSizes is the multi-size export set used when a request names no sizes.
func DefaultSizes() []Size {
	return []Size{
		{Width: 200, Height: 200, Name: "small"},
		{Width: 400, Height: 400, Name: "standard"},
		{Width: 800, Height: 800, Name: "large"},
	}
}

type ExportRequest struct {
	Format       Format
	Quality      float64
	TargetWidth  int
	TargetHeight int
}

type ExportResult struct {
	Size     Size   `json:"size"`
	Format   Format `json:"format"`
	Filename string `json:"filename"`
	Data     []byte `json:"data"`
}

// ExportTask is the async export job published to kafka.
type ExportTask struct {
	ImageID string    `json:"image_id"`
	Style   TextStyle `json:"style"`
	Filters []string  `json:"filters,omitempty"`
	Frame   Frame     `json:"frame"`
	Sizes   []Size    `json:"sizes"`
	Format  Format    `json:"format"`
	Quality float64   `json:"quality"`
}

type ExportRecord struct {
	ID        string    `json:"id"`
	ImageID   string    `json:"image_id"`
	Format    Format    `json:"format"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Bytes     int       `json:"bytes"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
}

// ExportEvent is published once an export has been produced.
type ExportEvent struct {
	ImageID   string    `json:"image_id"`
	Filename  string    `json:"filename"`
	Format    Format    `json:"format"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Bytes     int       `json:"bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// ExportSizesRequest asks for one render per size. Empty fields fall back to the
// configured defaults.
type ExportSizesRequest struct {
	Format  string   `json:"format"`
	Quality *float64 `json:"quality"`
	Sizes   []Size   `json:"sizes"`
}

type ExportFormatsRequest struct {
	Formats []string `json:"formats" binding:"required"`
	Quality *float64 `json:"quality"`
}

type ExportTaskResponse struct {
	ImageID string `json:"image_id"`
	Status  string `json:"status"`
}

type FilterRequest struct {
	Kind string `json:"kind" binding:"required"`
}
