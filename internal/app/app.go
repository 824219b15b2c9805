package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jarupong555/Detec-V1.0/internal/config"
	"github.com/jarupong555/Detec-V1.0/internal/logger"
	"github.com/jarupong555/Detec-V1.0/internal/model"
	"github.com/jarupong555/Detec-V1.0/internal/repository/sqlite"
	"github.com/jarupong555/Detec-V1.0/internal/route"
	"github.com/jarupong555/Detec-V1.0/internal/service/ai"
	"github.com/jarupong555/Detec-V1.0/internal/service/capture"
	"github.com/jarupong555/Detec-V1.0/internal/service/capture/opencv"
	"github.com/jarupong555/Detec-V1.0/internal/service/catalog"
	"github.com/jarupong555/Detec-V1.0/internal/service/detection"
	"github.com/jarupong555/Detec-V1.0/internal/service/notify"
	"github.com/jarupong555/Detec-V1.0/internal/service/storage"
	"github.com/jarupong555/Detec-V1.0/internal/service/stream"
	"github.com/jarupong555/Detec-V1.0/internal/service/websocket"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// App owns every long-lived service of the process.
type App struct {
	config *config.Config
	logger *logger.Logger

	db            *sqlite.DB
	imageRepo     *sqlite.ImageRepository
	detectionRepo *sqlite.DetectionRepository

	catalog   *catalog.Service
	detector  detection.Detector
	store     *storage.Store
	persister *storage.Persister
	hub       *websocket.HubService
	registry  *stream.Registry
	pipeline  *detection.Pipeline
	generator *stream.Generator
}

// New opens the database and wires the services. Close releases them.
func New(cfg *config.Config, log *logger.Logger) (*App, error) {
	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	a := &App{
		config:        cfg,
		logger:        log,
		db:            db,
		imageRepo:     sqlite.NewImageRepository(db),
		detectionRepo: sqlite.NewDetectionRepository(db),
	}

	a.catalog = catalog.NewService(sqlite.NewCameraRepository(db), sqlite.NewSettingsRepository(db),
		cfg.DetectClasses, log.Component("catalog"))
	if cfg.CameraList != "" {
		added, err := a.catalog.Seed(cfg.CameraList)
		if err != nil {
			log.Error("Failed to seed cameras from CAMERA_LIST: %v", err)
		}
		for _, cam := range added {
			log.Info("Seeded camera %s (%s)", cam.ID, cam.DisplayName())
		}
	}

	a.detector = newDetector(cfg, log.Component("detector"))
	a.store = storage.NewStore(storage.StoreOptions{
		Root:              cfg.SavedDirectory,
		MaxSaved:          cfg.MaxSaved,
		MaxSavedPerFolder: cfg.MaxSavedPerFolder,
		FolderLimits:      cfg.FolderLimits,
		Location:          cfg.Location(),
	}, log.Component("storage"))

	a.hub = websocket.NewHubService(log.Component("websocket"))
	notifier := notify.NewClient(cfg.NotifyURL, cfg.NotifyTimeout)
	a.persister = storage.NewPersister(a.store, a.imageRepo, a.detectionRepo, notifier, a.hub,
		storage.PersisterOptions{
			Workers:       cfg.PersistWorkers,
			QueueSize:     cfg.PersistQueue,
			NotifyTimeout: cfg.NotifyTimeout,
			Location:      cfg.Location(),
		}, log.Component("persister"))

	captureOpts := capture.DefaultOptions()
	captureOpts.BufferSeconds = cfg.BufferSeconds
	captureOpts.TargetFPS = cfg.TargetFPS
	captureOpts.Warmup = cfg.Warmup
	captureOpts.USBWidth = cfg.USBWidth
	captureOpts.USBHeight = cfg.USBHeight
	adapter := capture.NewAdapter(opencv.NewBackend(), captureOpts, log.Component("capture"))

	a.registry = stream.NewRegistry(adapter, stream.WorkerOptions{
		ReadRetry:   cfg.ReadRetry,
		Pacing:      10 * time.Millisecond,
		StopTimeout: cfg.StopTimeout,
	}, log.Component("stream"))

	a.pipeline = detection.NewPipeline(a.detector, opencv.NewJPEGEncoder(cfg.JPEGQuality), a.registry, a.catalog, a.persister,
		detection.Options{
			EveryN:           cfg.DetectEveryN,
			Cooldown:         cfg.SaveCooldown,
			FailureThreshold: cfg.FailureThreshold,
			FailureBackoff:   cfg.FailureBackoff,
			DefaultClasses:   cfg.DetectClasses,
		}, log.Component("pipeline"))

	a.generator = stream.NewGenerator(a.registry, a.pipeline, cfg.PollInterval, log.Component("stream"))

	a.catalog.OnDelete(a.registry.StopWorker)
	a.catalog.OnDelete(a.pipeline.Forget)

	return a, nil
}

func newDetector(cfg *config.Config, log *logger.Logger) detection.Detector {
	labels, err := ai.ResolveLabels(cfg.LabelsPath)
	if err != nil {
		log.Warning("Could not load labels, using COCO: %v", err)
		labels = ai.COCOLabels()
	}

	if cfg.Detector == "remote" {
		return ai.NewRemoteDetector(ai.RemoteOptions{
			URL:           cfg.DetectorURL,
			Labels:        labels,
			ConfThreshold: cfg.ConfThreshold,
			IOUThreshold:  cfg.IOUThreshold,
		}, log)
	}

	d, err := ai.NewDNNDetector(ai.DNNOptions{
		ModelPath:     cfg.ModelPath,
		ConfigPath:    cfg.ConfigPath,
		Labels:        labels,
		ConfThreshold: cfg.ConfThreshold,
		IOUThreshold:  cfg.IOUThreshold,
		Device:        cfg.Device,
	}, log)
	if err != nil {
		log.Warning("Could not initialize detection network, streaming without detection: %v", err)
		return ai.NewUnavailableDetector(labels, fmt.Errorf("detector unavailable: %w", err))
	}
	return d
}

// Handler builds the HTTP API.
func (a *App) Handler() http.Handler {
	return route.SetupRoutes(route.Dependencies{
		AppName:       a.config.AppName,
		Cameras:       a.catalog,
		Workers:       a.registry,
		Streams:       a.generator,
		Store:         a.store,
		ImageRepo:     a.imageRepo,
		DetectionRepo: a.detectionRepo,
		Hub:           a.hub,
		Logger:        a.logger,
	})
}

// Run serves the HTTP API until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.Port),
		Handler: a.Handler(),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		a.logger.Info("%s listening on http://localhost:%d", a.config.AppName, a.config.Port)
		a.logger.Info("Saved images: %s", a.config.SavedDirectory)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info("Shutting down HTTP server")
		// Stop workers first so open streams finish instead of blocking Shutdown.
		a.registry.StopAll()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// RunHeadless runs detection and persistence for every catalog camera without
// serving HTTP. Cameras that fail to open are retried until ctx ends.
func (a *App) RunHeadless(ctx context.Context) error {
	cameras, err := a.catalog.List()
	if err != nil {
		return fmt.Errorf("failed to list cameras: %w", err)
	}
	if len(cameras) == 0 {
		return errors.New("no cameras configured; set CAMERA_LIST or add cameras through the API")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.hub.Run(ctx)
		return nil
	})
	for _, cam := range cameras {
		cam := cam
		g.Go(func() error {
			a.consume(ctx, cam)
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		a.registry.StopAll()
		return nil
	})
	return g.Wait()
}

// consume drives the pipeline for one camera, reopening it whenever the
// worker stops.
func (a *App) consume(ctx context.Context, cam model.Camera) {
	retry := 5 * a.config.ReadRetry
	for ctx.Err() == nil {
		s, err := a.generator.Open(ctx, cam)
		if err != nil {
			a.logger.Warning("Camera %s unavailable, retrying in %s: %v", cam.ID, retry, err)
		} else {
			a.logger.Info("Headless processing started for camera %s", cam.ID)
			if err := s.Copy(ctx, io.Discard); err != nil && ctx.Err() == nil {
				a.logger.Warning("Camera %s stream ended: %v", cam.ID, err)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(retry):
		}
	}
}

// Close stops workers and persistence and releases the detector and database.
func (a *App) Close() error {
	a.registry.StopAll()
	a.persister.Stop()

	if closer, ok := a.detector.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			a.logger.Warning("Failed to release detector: %v", err)
		}
	}
	return a.db.Close()
}
