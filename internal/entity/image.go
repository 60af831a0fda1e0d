package entity

import "image"

const (
	StatusUploaded   = "uploaded"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ImageSource is a decoded bitmap owned by a session. It is never mutated after decode.
type ImageSource struct {
	ID     string
	Image  image.Image
	Format string
	Width  int
	Height int
}

// ImageRecord is the persisted metadata of an uploaded original.
type ImageRecord struct {
	ID        string            `json:"id"`
	SessionID string            `json:"session_id,omitempty"`
	Status    string            `json:"status"`
	Format    string            `json:"format"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Outputs   map[string]string `json:"outputs,omitempty"`
}

type SessionResponse struct {
	SessionID string `json:"session_id"`
}

type UploadResponse struct {
	SessionID string `json:"session_id"`
	ImageID   string `json:"image_id"`
	Format    string `json:"format"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

type ImageResponse struct {
	ID      string            `json:"id"`
	Status  string            `json:"status"`
	Width   int               `json:"width"`
	Height  int               `json:"height"`
	Outputs map[string]string `json:"outputs,omitempty"`
}
