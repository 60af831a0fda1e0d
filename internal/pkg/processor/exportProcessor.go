package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ds124wfegd/memecaption/internal/database"
	"github.com/ds124wfegd/memecaption/internal/entity"
	"github.com/ds124wfegd/memecaption/internal/pkg/codec"
	"github.com/ds124wfegd/memecaption/internal/pkg/rabbitMQ"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// ExportProcessor runs queued multi-size exports against stored originals.
type ExportProcessor interface {
	Process(ctx context.Context, task entity.ExportTask) error
}

type exportProcessor struct {
	images   database.ImageRepository
	history  database.ExportHistoryRepository
	notifier rabbitMQ.Notifier
	renderer Renderer
}

func NewExportProcessor(images database.ImageRepository, history database.ExportHistoryRepository,
	notifier rabbitMQ.Notifier, renderer Renderer) ExportProcessor {
	return &exportProcessor{
		images:   images,
		history:  history,
		notifier: notifier,
		renderer: renderer,
	}
}

func (p *exportProcessor) Process(ctx context.Context, task entity.ExportTask) error {
	log := logrus.WithField("image_id", task.ImageID)
	log.Info("Processing export task")

	record, err := p.images.FindByID(task.ImageID)
	if err != nil {
		return fmt.Errorf("failed to load image record: %w", err)
	}

	results, err := p.export(ctx, task)
	if err != nil {
		record.Status = entity.StatusFailed
		if saveErr := p.images.Save(record); saveErr != nil {
			log.WithError(saveErr).Error("Failed to mark image as failed")
		}
		return err
	}

	if record.Outputs == nil {
		record.Outputs = make(map[string]string, len(results))
	}
	for _, res := range results {
		if err := p.images.SaveFile(task.ImageID, res.Filename, bytes.NewReader(res.Data)); err != nil {
			return fmt.Errorf("failed to save %s: %w", res.Filename, err)
		}
		record.Outputs[sizeName(res.Size)] = p.images.GetFilePath(task.ImageID, res.Filename)
		p.recordExport(ctx, task.ImageID, res)
	}

	record.Status = entity.StatusCompleted
	if err := p.images.Save(record); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	log.WithField("outputs", len(results)).Info("Completed export task")
	return nil
}

func (p *exportProcessor) export(ctx context.Context, task entity.ExportTask) ([]entity.ExportResult, error) {
	rc, err := p.images.OpenFile(task.ImageID, database.OriginalFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open original: %w", err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read original: %w", err)
	}

	src, err := codec.Decode(data)
	if err != nil {
		return nil, err
	}
	src.ID = task.ImageID

	sizes := task.Sizes
	if len(sizes) == 0 {
		sizes = entity.DefaultSizes()
	}
	format := task.Format
	if format == "" {
		format = entity.FormatPNG
	}

	scene := Scene{
		Source:  src,
		Style:   task.Style,
		Filters: ParseFilters(task.Filters),
		Frame:   task.Frame,
	}
	return p.renderer.ExportSizes(ctx, scene, format, task.Quality, sizes)
}

// recordExport writes history and notifies. Neither is allowed to fail the export.
func (p *exportProcessor) recordExport(ctx context.Context, imageID string, res entity.ExportResult) {
	now := time.Now().UTC()
	log := logrus.WithFields(logrus.Fields{"image_id": imageID, "filename": res.Filename})

	err := p.history.Record(ctx, &entity.ExportRecord{
		ID:        uuid.New().String(),
		ImageID:   imageID,
		Format:    res.Format,
		Width:     res.Size.Width,
		Height:    res.Size.Height,
		Bytes:     len(res.Data),
		Filename:  res.Filename,
		CreatedAt: now,
	})
	if err != nil {
		log.WithError(err).Error("Failed to record export history")
	}

	err = p.notifier.Publish(ctx, entity.ExportEvent{
		ImageID:   imageID,
		Filename:  res.Filename,
		Format:    res.Format,
		Width:     res.Size.Width,
		Height:    res.Size.Height,
		Bytes:     len(res.Data),
		CreatedAt: now,
	})
	if err != nil {
		log.WithError(err).Error("Failed to publish export event")
	}
}

type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// StartExportConsumer reads export tasks from kafka until ctx is cancelled.
func StartExportConsumer(ctx context.Context, cfg ConsumerConfig, processor ExportProcessor) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
		StartOffset:    kafka.FirstOffset,
	})
	defer reader.Close()

	logrus.WithFields(logrus.Fields{"brokers": cfg.Brokers, "topic": cfg.Topic}).Info("Export consumer started")
	consume(ctx, reader, processor)
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// consume processes each task in its own goroutine. Tasks in flight when ctx is
// cancelled run to completion before consume returns.
func consume(ctx context.Context, reader messageReader, processor ExportProcessor) {
	var wg sync.WaitGroup
	defer wg.Wait()

	taskCtx := context.WithoutCancel(ctx)
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				logrus.Info("Export consumer stopped, waiting for running tasks")
				return
			}
			logrus.WithError(err).Error("Error reading message from Kafka")
			continue
		}

		logrus.WithFields(logrus.Fields{
			"partition": msg.Partition,
			"offset":    msg.Offset,
		}).Debug("Received export task")

		var task entity.ExportTask
		if err := json.Unmarshal(msg.Value, &task); err != nil {
			logrus.WithError(err).Error("Failed to parse export task")
			continue
		}

		wg.Add(1)
		go func(t entity.ExportTask) {
			defer wg.Done()
			if err := processor.Process(taskCtx, t); err != nil {
				logrus.WithError(err).WithField("image_id", t.ImageID).Error("Export task failed")
			}
		}(task)
	}
}
