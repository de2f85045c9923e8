package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aussiebroadwan/voxgate/internal/voxgate/audio"
	"github.com/aussiebroadwan/voxgate/internal/voxgate/embedding"
	httpapi "github.com/aussiebroadwan/voxgate/internal/voxgate/http"
	"github.com/aussiebroadwan/voxgate/internal/voxgate/service"
	"github.com/aussiebroadwan/voxgate/internal/voxgate/store"
	"github.com/aussiebroadwan/voxgate/internal/voxgate/store/drivers/badger"
	"github.com/aussiebroadwan/voxgate/internal/voxgate/store/drivers/sqlite"
	"github.com/aussiebroadwan/voxgate/pkg/cryptox"
	"github.com/aussiebroadwan/voxgate/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags.
var BuildVersion = "v0.1.0"

// Options tweak how the application is assembled. The zero value is what
// the server uses.
type Options struct {
	// LogOutput receives log lines. Defaults to stdout.
	LogOutput io.Writer

	// HashParams overrides the Argon2id cost. Zero uses cryptox.DefaultParams.
	HashParams cryptox.Params
}

// Application is the process state: built once, injected everywhere.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db        store.Store
	extractor *embedding.Extractor
	registry  *prometheus.Registry

	enrollmentService   *service.EnrollmentService
	verificationService *service.VerificationService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config, opts Options) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "voxgate",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
			Output:  opts.LogOutput,
		}),
		registry: prometheus.NewRegistry(),
	}
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if err := app.initStore(); err != nil {
		return nil, err
	}

	if err := app.initModel(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	if err := app.initServices(opts); err != nil {
		_ = app.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("voxgate starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"store", app.cfg.StoreDriver,
		"model", app.cfg.Model,
		"dimension", app.extractor.Dimension(),
		"device", app.extractor.Device(),
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			_ = app.Close()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains HTTP, stops housekeeping and releases the model and store.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down voxgate...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.Close(); err != nil {
		return err
	}

	app.logger.Info("voxgate stopped")
	return nil
}

// Close releases the model and the store. Commands that never serve HTTP
// call it directly.
func (app *Application) Close() error {
	var errs []error
	if app.extractor != nil {
		if err := app.extractor.Close(); err != nil {
			app.logger.Error("error closing model", "error", err)
			errs = append(errs, err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing store", "error", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (app *Application) Logger() *slog.Logger { return app.logger }
func (app *Application) Handler() http.Handler { return app.router }
func (app *Application) Enrollment() *service.EnrollmentService { return app.enrollmentService }
func (app *Application) Verification() *service.VerificationService { return app.verificationService }
func (app *Application) Housekeeping() *service.HousekeepingService { return app.housekeepingService }

func (app *Application) initStore() error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.StoreDriver {
	case DriverBadger:
		db, err = badger.NewStore(badger.Options{
			Dir:    app.cfg.BadgerDir,
			Logger: app.logger.With("component", "badger"),
		})
	default:
		db, err = sqlite.NewStore(sqlite.DSN(app.cfg.DatabaseFile))
	}
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("store ready", "driver", app.cfg.StoreDriver)
	return nil
}

func (app *Application) initModel() error {
	ctx := slogx.WithContext(context.Background(), app.logger)
	ext, err := embedding.Load(ctx, app.cfg.ModelConfig())
	if err != nil {
		return fmt.Errorf("failed to load embedding model: %w", err)
	}
	app.extractor = ext
	return nil
}

func (app *Application) initServices(opts Options) error {
	pepper, err := cryptox.LoadOrCreatePepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}
	hasher := cryptox.NewArgon2id(pepper, opts.HashParams)

	metrics := service.NewMetrics(app.registry)
	pipeline := &service.Pipeline{
		Decoder:          &audio.Decoder{MaxDuration: app.cfg.MaxAudioDuration},
		Extractor:        app.extractor,
		Metrics:          metrics,
		MinAudioDuration: app.cfg.MinAudioDuration,
	}

	app.enrollmentService = &service.EnrollmentService{
		Store:     app.db,
		Hasher:    hasher,
		Pipeline:  pipeline,
		Metrics:   metrics,
		RecordTTL: app.cfg.RecordTTL,
	}
	app.verificationService = &service.VerificationService{
		Store:     app.db,
		Hasher:    hasher,
		Pipeline:  pipeline,
		Metrics:   metrics,
		Threshold: app.cfg.Threshold,
	}
	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.registry, app.logger)

	router.Model = app.extractor
	router.EnrollmentService = app.enrollmentService
	router.VerificationService = app.verificationService
	router.MaxAudioBytes = app.cfg.MaxAudioBytes
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
