package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/ds124wfegd/memecaption/internal/database"
	"github.com/ds124wfegd/memecaption/internal/entity"
	"github.com/ds124wfegd/memecaption/internal/pkg/codec"
	"github.com/ds124wfegd/memecaption/internal/pkg/processor"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Export renders the session scene once. Identical requests for the same image are
// served from the export cache.
func (s *exportService) Export(ctx context.Context, sessionID string, format string, quality *float64, size *entity.Size) (*entity.ExportResult, error) {
	sess, err := s.deps.Sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	f, err := s.format(format)
	if err != nil {
		return nil, err
	}
	q := s.quality(quality)
	target := entity.Size{Width: s.cfg.CanvasWidth, Height: s.cfg.CanvasHeight}
	if size != nil {
		target = *size
	}

	scene := sess.Scene()
	log := logrus.WithFields(logrus.Fields{"session_id": sessionID, "format": f, "width": target.Width, "height": target.Height})

	key, err := cacheKey(scene, f, q, target)
	if err != nil {
		return nil, err
	}
	if data, err := s.deps.Cache.Get(ctx, key); err == nil {
		log.Debug("Export served from cache")
		return &entity.ExportResult{
			Size:     target,
			Format:   f,
			Filename: processor.Filename(s.cfg.FilenamePrefix, "", f, s.now()),
			Data:     data,
		}, nil
	} else if !errors.Is(err, database.ErrCacheMiss) {
		log.WithError(err).Warn("Export cache lookup failed")
	}

	res, err := s.deps.Renderer.Export(ctx, scene, entity.ExportRequest{
		Format:       f,
		Quality:      q,
		TargetWidth:  target.Width,
		TargetHeight: target.Height,
	})
	if err != nil {
		return nil, err
	}

	if err := s.deps.Cache.Set(ctx, key, res.Data); err != nil {
		log.WithError(err).Warn("Failed to cache export")
	}
	s.record(ctx, scene, *res)

	log.WithField("bytes", len(res.Data)).Info("Export rendered")
	return res, nil
}

func (s *exportService) ExportSizes(ctx context.Context, sessionID string, req entity.ExportSizesRequest) ([]entity.ExportResult, error) {
	sess, err := s.deps.Sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	f, err := s.format(req.Format)
	if err != nil {
		return nil, err
	}
	sizes := req.Sizes
	if len(sizes) == 0 {
		sizes = s.cfg.Sizes
	}

	scene := sess.Scene()
	results, err := s.deps.Renderer.ExportSizes(ctx, scene, f, s.quality(req.Quality), sizes)
	if err != nil {
		return nil, err
	}

	for _, res := range results {
		s.record(ctx, scene, res)
	}
	logrus.WithFields(logrus.Fields{"session_id": sessionID, "format": f, "sizes": len(results)}).Info("Multi-size export rendered")
	return results, nil
}

func (s *exportService) ExportFormats(ctx context.Context, sessionID string, req entity.ExportFormatsRequest) ([]entity.ExportResult, error) {
	sess, err := s.deps.Sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	formats := make([]entity.Format, len(req.Formats))
	for i, name := range req.Formats {
		formats[i] = entity.Format(name)
	}

	scene := sess.Scene()
	size := entity.Size{Width: s.cfg.CanvasWidth, Height: s.cfg.CanvasHeight}
	results, err := s.deps.Renderer.ExportFormats(ctx, scene, formats, s.quality(req.Quality), size)
	if err != nil {
		return nil, err
	}

	for _, res := range results {
		s.record(ctx, scene, res)
	}
	return results, nil
}

// EnqueueExport hands a multi-size export of the stored original to the export processor.
func (s *exportService) EnqueueExport(ctx context.Context, sessionID string, req entity.ExportSizesRequest) (*entity.ExportTaskResponse, error) {
	sess, err := s.deps.Sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := sess.Source(); err != nil {
		return nil, err
	}

	f, err := s.format(req.Format)
	if err != nil {
		return nil, err
	}
	q := s.quality(req.Quality)
	if f == entity.FormatJPEG {
		if _, err := codec.JPEGQuality(q); err != nil {
			return nil, err
		}
	}
	for _, size := range req.Sizes {
		if size.Width <= 0 || size.Height <= 0 {
			return nil, fmt.Errorf("%w: %dx%d", entity.ErrInvalidSize, size.Width, size.Height)
		}
	}

	scene := sess.Scene()
	record, err := s.deps.Images.FindByID(scene.Source.ID)
	if err != nil {
		return nil, err
	}

	task := entity.ExportTask{
		ImageID: record.ID,
		Style:   scene.Style,
		Filters: kindNames(scene),
		Frame:   scene.Frame,
		Sizes:   req.Sizes,
		Format:  f,
		Quality: q,
	}

	previous := record.Status
	record.Status = entity.StatusProcessing
	if err := s.deps.Images.Save(record); err != nil {
		return nil, fmt.Errorf("update image status: %w", err)
	}
	if err := s.deps.Producer.SendMessage(ctx, record.ID, task); err != nil {
		record.Status = previous
		if restoreErr := s.deps.Images.Save(record); restoreErr != nil {
			logrus.WithError(restoreErr).WithField("image_id", record.ID).Error("Failed to restore image status")
		}
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"session_id": sessionID, "image_id": record.ID}).Info("Export task queued")
	return &entity.ExportTaskResponse{ImageID: record.ID, Status: record.Status}, nil
}

func (s *exportService) History(ctx context.Context, imageID string, limit int) ([]entity.ExportRecord, error) {
	return s.deps.History.ListByImage(ctx, imageID, limit)
}

func (s *exportService) format(name string) (entity.Format, error) {
	if name == "" {
		name = s.cfg.DefaultFormat
	}
	return entity.ParseFormat(name)
}

func (s *exportService) quality(q *float64) float64 {
	if q == nil {
		return s.cfg.DefaultQuality
	}
	return *q
}

func (s *exportService) record(ctx context.Context, scene processor.Scene, res entity.ExportResult) {
	if scene.Source == nil {
		return
	}
	err := s.deps.History.Record(ctx, &entity.ExportRecord{
		ID:        uuid.New().String(),
		ImageID:   scene.Source.ID,
		Format:    res.Format,
		Width:     res.Size.Width,
		Height:    res.Size.Height,
		Bytes:     len(res.Data),
		Filename:  res.Filename,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		logrus.WithError(err).WithField("image_id", scene.Source.ID).Error("Failed to record export history")
	}
}

// cacheKey hashes every input of a render. The image is identified by its id, which
// changes whenever a new image is decoded.
func cacheKey(scene processor.Scene, format entity.Format, quality float64, size entity.Size) (string, error) {
	imageID := ""
	if scene.Source != nil {
		imageID = scene.Source.ID
	}
	payload, err := json.Marshal(struct {
		ImageID string           `json:"image_id"`
		Style   entity.TextStyle `json:"style"`
		Filters []string         `json:"filters"`
		Frame   entity.Frame     `json:"frame"`
		Format  entity.Format    `json:"format"`
		Quality float64          `json:"quality"`
		Size    entity.Size      `json:"size"`
	}{
		ImageID: imageID,
		Style:   scene.Style,
		Filters: kindNames(scene),
		Frame:   scene.Frame,
		Format:  format,
		Quality: quality,
		Size:    size,
	})
	if err != nil {
		return "", fmt.Errorf("build cache key: %w", err)
	}
	return strconv.FormatUint(xxhash.Sum64(payload), 16), nil
}

func kindNames(scene processor.Scene) []string {
	names := make([]string, len(scene.Filters))
	for i, k := range scene.Filters {
		names[i] = string(k)
	}
	return names
}
