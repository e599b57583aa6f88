package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"tvcms/config"
	"tvcms/database"
	"tvcms/middleware"
	"tvcms/routes"
	"tvcms/services"
	"tvcms/storage"
	"tvcms/utils"
)

const shutdownTimeout = 30 * time.Second

// Application represents the main application structure
type Application struct {
	config    *config.Config
	log       *logrus.Logger
	dbManager *database.Manager
	storage   storage.Storage
	services  *services.Services
	scheduler *services.Scheduler
	router    *gin.Engine
	server    *http.Server
}

// NewApplication loads configuration and prepares the logger. Connections
// are opened by Start or RunMigrations.
func NewApplication() (*Application, error) {
	cfg := config.LoadConfig()
	if err := cfg.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Set Gin mode based on environment
	if cfg.Debug && !cfg.IsProduction() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	return &Application{
		config: cfg,
		log:    newLogger(cfg),
	}, nil
}

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	if cfg.IsProduction() {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	if cfg.Debug {
		level = logrus.DebugLevel
	}
	log.SetLevel(level)
	return log
}

// RunMigrations opens the database, applies the schema and optionally seeds defaults
func (app *Application) RunMigrations(ctx context.Context, seed bool) error {
	if err := app.initializeDatabase(ctx, seed); err != nil {
		return err
	}
	return app.dbManager.Close(ctx)
}

// Start initializes all components, serves HTTP and blocks until a
// shutdown signal arrives.
func (app *Application) Start(ctx context.Context, seed bool) error {
	app.logStartupInfo()

	if err := app.initializeDatabase(ctx, seed); err != nil {
		return fmt.Errorf("database initialization failed: %w", err)
	}

	if err := app.initializeStorage(); err != nil {
		_ = app.dbManager.Close(ctx)
		return fmt.Errorf("storage initialization failed: %w", err)
	}

	app.initializeServices()

	if err := app.startBackgroundJobs(); err != nil {
		_ = app.dbManager.Close(ctx)
		return err
	}

	app.setupRoutes()

	serverErr := make(chan error, 1)
	go func() {
		app.log.WithField("addr", app.server.Addr).Info("Server starting")
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case sig := <-quit:
		app.log.WithField("signal", sig.String()).Info("Shutdown signal received")
	case err := <-serverErr:
		runErr = fmt.Errorf("server failed: %w", err)
	}

	app.shutdown()
	return runErr
}

func (app *Application) initializeDatabase(ctx context.Context, seed bool) error {
	app.dbManager = database.NewManager(app.config, app.log)
	if err := app.dbManager.Initialize(ctx); err != nil {
		return err
	}
	if err := app.dbManager.Migrate(ctx); err != nil {
		return err
	}
	if seed {
		if err := app.dbManager.Seed(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (app *Application) initializeStorage() error {
	store, err := storage.NewStorage(app.config)
	if err != nil {
		return err
	}
	app.storage = store
	app.log.WithField("provider", store.Name()).Info("Storage initialized")

	if err := os.MkdirAll(app.config.TempPath, 0o755); err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	return nil
}

func (app *Application) initializeServices() {
	cfg := app.config

	var activityStore services.ActivityStore
	if mongoDB := app.dbManager.MongoDatabase(); mongoDB != nil {
		activityStore = services.NewMongoActivityStore(mongoDB.Collection(database.ActivitiesCollection))
	}

	media := services.NewMediaService(services.MediaConfig{
		FFprobePath:     cfg.FFprobePath,
		FFmpegPath:      cfg.FFmpegPath,
		ThumbnailWidth:  cfg.ThumbnailWidth,
		ThumbnailHeight: cfg.ThumbnailHeight,
		ThumbnailOffset: cfg.ThumbnailOffset,
		Timeout:         cfg.EnrichmentTimeout,
		Workers:         cfg.EnrichmentWorkers,
		MaxImagePixels:  cfg.ImageMaxPixels,
	}, app.log)

	app.services = services.New(services.Dependencies{
		DB:            app.dbManager.DB(),
		Storage:       app.storage,
		Media:         media,
		JWT:           utils.NewJWTManager(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
		ActivityStore: activityStore,
		Files: services.FileServiceConfig{
			TempPath:  cfg.TempPath,
			AllowType: cfg.IsAllowedFileType,
		},
		Log: app.log,
	})
}

func (app *Application) startBackgroundJobs() error {
	sweeper := services.NewTempSweeper(app.config.TempPath, app.config.TempFileMaxAge, app.log)
	scheduler, err := services.NewScheduler(app.log, sweeper, app.services.Permissions)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	app.scheduler = scheduler
	app.scheduler.Start()
	return nil
}

func (app *Application) setupRoutes() {
	app.router = routes.NewRouter(routes.Dependencies{
		Config:     app.config,
		Services:   app.services,
		Databases:  app.dbManager,
		Storage:    app.storage,
		RateLimits: middleware.DefaultRateLimits(app.config.RateLimitEnabled),
		Log:        app.log,
	})

	// Uploads stream large bodies, so only the header read is bounded
	app.server = &http.Server{
		Addr:              app.config.GetServerAddress(),
		Handler:           app.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func (app *Application) shutdown() {
	app.log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.log.WithError(err).Error("Server forced to shutdown")
	}

	if app.scheduler != nil {
		if err := app.scheduler.Stop(ctx); err != nil {
			app.log.WithError(err).Warn("Scheduler did not stop cleanly")
		}
	}

	if err := app.dbManager.Close(ctx); err != nil {
		app.log.WithError(err).Error("Error closing database")
	}

	app.log.Info("Server shutdown complete")
}

func (app *Application) logStartupInfo() {
	app.log.WithFields(logrus.Fields{
		"version":          app.config.AppVersion,
		"environment":      app.config.Environment,
		"database":         app.config.DatabaseTarget(),
		"storage_provider": app.config.StorageProvider,
		"max_file_size":    app.config.MaxFileSize,
		"rate_limiting":    app.config.RateLimitEnabled,
		"activity_store":   app.config.ActivityStore,
	}).Infof("Starting %s", app.config.AppName)
}
