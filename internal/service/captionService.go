package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"time"

	"github.com/ds124wfegd/memecaption/internal/database"
	"github.com/ds124wfegd/memecaption/internal/entity"
	"github.com/ds124wfegd/memecaption/internal/pkg/codec"
	"github.com/ds124wfegd/memecaption/internal/pkg/filter"
	"github.com/sirupsen/logrus"
)

var allowedUploadTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

func (s *captionService) CreateSession() (string, error) {
	sess, err := s.deps.Sessions.Create()
	if err != nil {
		return "", err
	}
	logrus.WithField("session_id", sess.ID).Info("Session created")
	return sess.ID, nil
}

func (s *captionService) DeleteSession(id string) error {
	return s.deps.Sessions.Delete(id)
}

// UploadImage validates the upload, decodes it into the session and stores the original
// so queued exports can re-render it later.
func (s *captionService) UploadImage(ctx context.Context, sessionID string, file *multipart.FileHeader) (*entity.UploadResponse, error) {
	sess, err := s.deps.Sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	if contentType := file.Header.Get("Content-Type"); !allowedUploadTypes[contentType] {
		return nil, fmt.Errorf("%w: %q", entity.ErrUnsupportedUpload, contentType)
	}
	if s.cfg.MaxUploadSize > 0 && file.Size > s.cfg.MaxUploadSize {
		return nil, fmt.Errorf("%w: upload of %d bytes, limit %d", entity.ErrFileTooLarge, file.Size, s.cfg.MaxUploadSize)
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	cfg, _, err := codec.Config(data)
	if err != nil {
		return nil, err
	}
	if cfg.Width > s.cfg.MaxImageWidth || cfg.Height > s.cfg.MaxImageHeight {
		return nil, fmt.Errorf("%w: %dx%d, limit %dx%d", entity.ErrImageTooLarge,
			cfg.Width, cfg.Height, s.cfg.MaxImageWidth, s.cfg.MaxImageHeight)
	}

	img, err := sess.LoadImage(ctx, data).Wait(ctx)
	if err != nil {
		return nil, err
	}

	record := &entity.ImageRecord{
		ID:        img.ID,
		SessionID: sessionID,
		Status:    entity.StatusUploaded,
		Format:    img.Format,
		Width:     img.Width,
		Height:    img.Height,
	}
	if err := s.storeOriginal(record, data); err != nil {
		if discardErr := sess.DiscardImage(img.ID); discardErr != nil {
			logrus.WithError(discardErr).WithField("session_id", sessionID).Error("Failed to discard unsaved image")
		}
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"session_id": sessionID,
		"image_id":   img.ID,
		"format":     img.Format,
		"width":      img.Width,
		"height":     img.Height,
	}).Info("Image uploaded")

	return &entity.UploadResponse{
		SessionID: sessionID,
		ImageID:   img.ID,
		Format:    img.Format,
		Width:     img.Width,
		Height:    img.Height,
	}, nil
}

func (s *captionService) storeOriginal(record *entity.ImageRecord, data []byte) error {
	if err := s.deps.Images.SaveFile(record.ID, database.OriginalFile, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("store original: %w", err)
	}
	if err := s.deps.Images.Save(record); err != nil {
		return fmt.Errorf("store image record: %w", err)
	}
	return nil
}

func (s *captionService) RemoveImage(sessionID string) error {
	sess, err := s.deps.Sessions.Get(sessionID)
	if err != nil {
		return err
	}
	return sess.RemoveImage()
}

func (s *captionService) Thumbnail(sessionID string) ([]byte, error) {
	sess, err := s.deps.Sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	src, err := sess.Source()
	if err != nil {
		return nil, err
	}
	return codec.Thumbnail(src.Image)
}

func (s *captionService) SetStyle(sessionID string, style entity.TextStyle) error {
	sess, err := s.deps.Sessions.Get(sessionID)
	if err != nil {
		return err
	}
	return sess.SetStyle(style)
}

func (s *captionService) AddFilter(sessionID string, kind string) (bool, error) {
	sess, err := s.deps.Sessions.Get(sessionID)
	if err != nil {
		return false, err
	}
	return sess.AddFilter(filter.ParseKind(kind))
}

func (s *captionService) ClearFilters(sessionID string) error {
	sess, err := s.deps.Sessions.Get(sessionID)
	if err != nil {
		return err
	}
	return sess.ClearFilters()
}

func (s *captionService) SetFrame(sessionID string, frame entity.Frame) error {
	sess, err := s.deps.Sessions.Get(sessionID)
	if err != nil {
		return err
	}
	return sess.SetFrame(frame)
}

// Preview encodes the session surface as PNG.
func (s *captionService) Preview(ctx context.Context, sessionID string) ([]byte, error) {
	sess, err := s.deps.Sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Export(entity.FormatPNG, 1).Wait(ctx)
}

func (s *captionService) GetImage(id string) (*entity.ImageRecord, error) {
	return s.deps.Images.FindByID(id)
}

func (s *captionService) CleanupIdleSessions(cutoff time.Time) int {
	removed := s.deps.Sessions.RemoveIdle(cutoff)
	for _, id := range removed {
		logrus.WithField("session_id", id).Debug("Session expired")
	}
	return len(removed)
}
