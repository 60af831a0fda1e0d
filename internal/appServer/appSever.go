// launching the server, caches, history store and the export processor
package appServer

import (
	"context"
	"crypto/tls"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ds124wfegd/memecaption/config"
	"github.com/ds124wfegd/memecaption/internal/database"
	"github.com/ds124wfegd/memecaption/internal/entity"
	"github.com/ds124wfegd/memecaption/internal/pkg/kafka"
	"github.com/ds124wfegd/memecaption/internal/pkg/processor"
	"github.com/ds124wfegd/memecaption/internal/pkg/storage"
	"github.com/ds124wfegd/memecaption/internal/service"
	"github.com/ds124wfegd/memecaption/internal/session"
	"github.com/ds124wfegd/memecaption/internal/transport"
	"github.com/ds124wfegd/memecaption/internal/worker"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.Idle_timeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
		ErrorLog:          log.New(os.Stderr, "SERVER ERROR: ", log.LstdFlags),
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func NewServer(cfg *config.Config) {
	logrus.SetFormatter(new(logrus.JSONFormatter))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	background, err := entity.ParseHexColor(cfg.Canvas.Background)
	if err != nil {
		logrus.Fatalf("Invalid canvas background: %v", err)
	}

	cache, closeCache := openCache(ctx, cfg)
	defer closeCache()
	history, closeHistory := openHistory(ctx, cfg)
	defer closeHistory()

	kafkaProducer := kafka.NewProducer(cfg.Kafka)
	defer kafkaProducer.Close()

	renderer := newRenderer(cfg)
	sessions := session.NewStore(session.Options{
		Width:      cfg.Canvas.Width,
		Height:     cfg.Canvas.Height,
		Background: background,
		Renderer:   renderer,
	})

	imgRepo := database.NewImageRepository(storage.NewFileStorage(cfg.App.StoragePath))
	svc := service.NewService(service.Config{
		MaxUploadSize:  cfg.App.MaxUploadSize,
		MaxImageWidth:  cfg.App.MaxImageWidth,
		MaxImageHeight: cfg.App.MaxImageHeight,
		CanvasWidth:    cfg.Canvas.Width,
		CanvasHeight:   cfg.Canvas.Height,
		DefaultFormat:  cfg.Export.DefaultFormat,
		DefaultQuality: cfg.Export.DefaultQuality,
		FilenamePrefix: cfg.Export.FilenamePrefix,
		Sizes:          cfg.Export.Sizes,
	}, service.Deps{
		Sessions: sessions,
		Renderer: renderer,
		Images:   imgRepo,
		Cache:    cache,
		History:  history,
		Producer: kafkaProducer,
	})

	cleanup := worker.NewSessionCleanupWorker(svc, cfg.App.CleanupInterval, cfg.App.SessionTTL)
	go cleanup.Start(ctx)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := transport.InitRoutes(transport.NewCaptionHandler(svc), transport.NewExportHandler(svc), cfg.App.RequestTimeout)

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, router); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.WithField("port", cfg.Server.Port).Print("App Started")

	<-ctx.Done()

	logrus.Print("App Shutting Down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}
}

// RunProcessor consumes queued export tasks until SIGINT or SIGTERM.
func RunProcessor(cfg *config.Config) {
	logrus.SetFormatter(new(logrus.JSONFormatter))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	history, closeHistory := openHistory(ctx, cfg)
	defer closeHistory()
	notifier, closeNotifier := openNotifier(cfg)
	defer closeNotifier()

	exportProcessor := processor.NewExportProcessor(
		database.NewImageRepository(storage.NewFileStorage(cfg.App.StoragePath)),
		history,
		notifier,
		newRenderer(cfg),
	)

	processor.StartExportConsumer(ctx, processor.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	}, exportProcessor)
}
