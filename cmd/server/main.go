package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/leasecheck/backend/internal/api"
	"github.com/leasecheck/backend/internal/catalog"
	"github.com/leasecheck/backend/internal/config"
	"github.com/leasecheck/backend/internal/metrics"
	"github.com/leasecheck/backend/internal/storage"
	"github.com/leasecheck/backend/internal/upload"
	"github.com/leasecheck/backend/internal/web"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "leasecheck.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, *configPath, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.AppConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if strings.EqualFold(cfg.Advanced.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func newStore(ctx context.Context, cfg *config.AppConfig) (storage.Store, error) {
	if cfg.Storage.Backend == "s3" {
		s3cfg := cfg.Storage.S3
		client, err := storage.NewS3Client(ctx, storage.S3Options{
			Region:          s3cfg.Region,
			Endpoint:        s3cfg.Endpoint,
			AccessKeyID:     s3cfg.AccessKeyID,
			SecretAccessKey: s3cfg.SecretAccessKey,
			UsePathStyle:    s3cfg.UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return storage.NewS3Store(client, s3cfg.Bucket, s3cfg.Prefix), nil
	}
	return storage.NewLocalStore(cfg.GetUploadDir())
}

func newCatalog(cfg *config.AppConfig, logger *slog.Logger) (catalog.Catalog, error) {
	if cfg.Intake.Catalog == "memory" {
		return catalog.NewMemory(), nil
	}
	return catalog.OpenDuckDB(cfg.Intake.CatalogPath, logger)
}

func run(cfg *config.AppConfig, configPath string, logger *slog.Logger) error {
	// Ensure all data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fileStore, err := newStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	intakeCatalog, err := newCatalog(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open intake catalog: %w", err)
	}
	defer intakeCatalog.Close()

	var mt *metrics.Metrics
	if cfg.Advanced.EnableMetrics {
		mt = metrics.New()
	}

	policy := cfg.Policy()
	intakeMgr := upload.NewManager(fileStore, policy, intakeCatalog,
		upload.WithLogger(logger), upload.WithMetrics(mt))

	// Start background job cleanup
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.Intake.CleanupIntervalMinutes) * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := intakeMgr.CleanupOldJobs(time.Duration(cfg.Intake.JobRetentionMinutes) * time.Minute); n > 0 {
					logger.Debug("removed finished intake jobs", "count", n)
				}
			}
		}
	}()

	e := echo.New()
	e.HideBanner = true
	api.SetupMiddleware(e, logger, strings.EqualFold(cfg.Advanced.LogLevel, "debug"))

	// Configure middleware
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Skip logging if disabled in config
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return path == "/health" ||
				path == "/api/health" ||
				path == "/metrics" ||
				strings.HasPrefix(path, "/static/")
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().Method == http.MethodPost
		},
	}))

	// Body limit middleware
	e.Use(middleware.BodyLimit(cfg.GetBodyLimit()))

	// CORS configuration
	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, "X-CSRFToken"},
		}))
	}

	deps := &api.Dependencies{
		Store:         fileStore,
		Intake:        intakeMgr,
		Catalog:       intakeCatalog,
		Metrics:       mt,
		Policy:        &policy,
		RedirectPath:  cfg.Upload.RedirectPath,
		AllowDeletion: cfg.Security.AllowFileDeletion,
		CSRF: api.CSRFSettings{
			CookieName:   cfg.Security.CSRFCookieName,
			CookieSecure: cfg.Security.CSRFCookieSecure,
		},
		Version: Version,
		Logger:  logger,
	}
	api.RegisterRoutes(e, api.NewHandlers(deps), deps)

	if err := web.RegisterStaticRoutes(e); err != nil {
		logger.Warn("failed to register static routes", "error", err)
	}

	// Configure server with settings from config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	logger.Info("lease upload server starting",
		"version", Version,
		"buildTime", BuildTime,
		"config", configPath,
		"listen", cfg.GetServerAddr(),
		"storage", cfg.Storage.Backend,
		"catalog", cfg.Intake.Catalog,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.StartServer(s)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	intakeMgr.Wait()
	return nil
}
