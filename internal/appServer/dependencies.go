package appServer

import (
	"context"

	"github.com/ds124wfegd/memecaption/config"
	"github.com/ds124wfegd/memecaption/internal/database"
	"github.com/ds124wfegd/memecaption/internal/database/postgres"
	"github.com/ds124wfegd/memecaption/internal/database/redis"
	"github.com/ds124wfegd/memecaption/internal/pkg/processor"
	"github.com/ds124wfegd/memecaption/internal/pkg/rabbitMQ"
	"github.com/sirupsen/logrus"
)

// closer releases a backing connection; the no-op one is used for in-process fallbacks.
type closer func()

func noop() {}

// openCache connects to redis when enabled. Without it every export is rendered fresh.
func openCache(ctx context.Context, cfg *config.Config) (database.ExportCache, closer) {
	if !cfg.Redis.Enabled {
		logrus.Info("Redis disabled, export cache off")
		return database.NewNoopCache(), noop
	}

	client, err := redis.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		logrus.WithError(err).Warn("Redis unavailable, export cache off")
		return database.NewNoopCache(), noop
	}
	return redis.NewCacheRepository(client, cfg.Export.CacheTTL), func() {
		if err := client.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close redis client")
		}
	}
}

// openHistory stores export history in postgres when enabled, in memory otherwise.
func openHistory(ctx context.Context, cfg *config.Config) (database.ExportHistoryRepository, closer) {
	if !cfg.Database.Enabled {
		logrus.Info("Database disabled, keeping export history in memory")
		return database.NewMemoryHistory(), noop
	}

	db, err := postgres.NewPostgresDB(ctx, &cfg.Database)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}
	if err := postgres.RunMigrations(ctx, db); err != nil {
		logrus.Fatalf("Failed to run migrations: %v", err)
	}
	return postgres.NewExportRepository(db), func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close database")
		}
	}
}

func openNotifier(cfg *config.Config) (rabbitMQ.Notifier, closer) {
	if !cfg.Rabbit.Enabled {
		logrus.Info("RabbitMQ disabled, export events are only logged")
		return rabbitMQ.NewNoopNotifier(), noop
	}

	mq, err := rabbitMQ.NewRabbitMQ(rabbitMQ.RabbitMQConfig{
		URL:       cfg.Rabbit.URL,
		QueueName: cfg.Rabbit.QueueName,
	})
	if err != nil {
		logrus.WithError(err).Warn("RabbitMQ unavailable, export events are only logged")
		return rabbitMQ.NewNoopNotifier(), noop
	}
	return mq, func() {
		if err := mq.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close RabbitMQ")
		}
	}
}

func newRenderer(cfg *config.Config) processor.Renderer {
	return processor.NewRenderer(processor.Options{
		MaxFileSize:    cfg.Export.MaxFileSize,
		MaxDimension:   cfg.Export.MaxDimension,
		FilenamePrefix: cfg.Export.FilenamePrefix,
	})
}
