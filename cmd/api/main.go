package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"deckstamp/docs"
	"deckstamp/internal/archival"
	"deckstamp/internal/config"
	"deckstamp/internal/database"
	"deckstamp/internal/database/migration"
	"deckstamp/internal/deck"
	handlers "deckstamp/internal/http/handler"
	"deckstamp/internal/http/middleware"
	"deckstamp/internal/logging"
	"deckstamp/internal/notify"
	dsotel "deckstamp/internal/otel"
	"deckstamp/internal/pipeline"
	"deckstamp/internal/render"
	"deckstamp/internal/repository"
	"deckstamp/internal/repository/postgres"
	"deckstamp/internal/service"
	"deckstamp/internal/storage"
)

// Headroom above the upload ceiling for multipart framing and form fields.
const bodyLimitSlack = 1 << 20

// @title deckstamp API
// @version 1.0
// @description Stamps a name onto every slide of a PowerPoint deck and returns it as PDF.
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		loc = time.UTC
	}
	logger := logging.New(cfg.LogLevel, loc)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := dsotel.Init(ctx, logger)
	if err != nil {
		logger.Fatal("tracing_init_failed", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var checks []handlers.Check

	// Optional conversions ledger
	var (
		db   *sql.DB
		repo repository.ConversionRepository
	)
	if cfg.LedgerEnabled() {
		db, err = database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("database_connect_failed", zap.Error(err))
		}
		defer db.Close()
		if err := migration.EnsureMigrated(ctx, db, logger, cfg.Database.Host); err != nil {
			logger.Fatal("migration_failed", zap.Error(err))
		}
		repo = postgres.NewConversionPostgres(db)
		checks = append(checks, handlers.DatabaseCheck(db))
	}

	// Optional archival of originals plus operator email
	var archive archival.Archive
	if cfg.ArchivalEnabled() {
		store, err := storage.NewMinIO(ctx, cfg.MinIO)
		if err != nil {
			logger.Fatal("object_storage_init_failed", zap.Error(err))
		}
		archive = archival.NewObjectArchive(store)
		checks = append(checks, handlers.Check{Name: "storage", Fn: store.Ping})
	}
	notifier, err := notify.New(cfg.SMTP, logger.Named("notify"))
	if err != nil {
		logger.Fatal("notifier_init_failed", zap.Error(err))
	}

	var svc service.ConversionService
	dispatcher := archival.NewDispatcher(archive, notifier,
		archival.WithTimeout(cfg.ArchiveTimeout),
		archival.WithLogger(logger.Named("archival")),
		archival.WithArchivedHook(func(ctx context.Context, ref, objectID string) {
			svc.RecordArchive(ctx, ref, objectID)
		}),
	)

	annotator, err := deck.NewAnnotator(deck.ConfigFrom(cfg.Annotation))
	if err != nil {
		logger.Fatal("annotator_config_invalid", zap.Error(err))
	}
	renderer, err := render.New(render.Config{
		Binary:        cfg.Render.Binary,
		Timeout:       cfg.Render.Timeout,
		MaxConcurrent: cfg.Render.MaxConcurrent,
	}, render.WithLogger(logger.Named("render")))
	if err != nil {
		logger.Fatal("renderer_config_invalid", zap.Error(err))
	}
	prober := render.NewProber(cfg.Render.Binary, cfg.Render.ProbeTTL)
	checks = append([]handlers.Check{handlers.RenderCheck(prober)}, checks...)

	metrics, err := pipeline.NewMetrics(reg)
	if err != nil {
		logger.Fatal("metrics_register_failed", zap.Error(err))
	}
	orchestrator, err := pipeline.New(pipeline.Config{
		MaxUploadBytes: cfg.MaxUploadBytes,
		TempDir:        cfg.Render.TempDir,
	}, annotator, renderer, prober,
		pipeline.WithSideEffects(dispatcher),
		pipeline.WithLogger(logger.Named("pipeline")),
		pipeline.WithMetrics(metrics),
	)
	if err != nil {
		logger.Fatal("pipeline_init_failed", zap.Error(err))
	}
	svc = service.NewConversionService(orchestrator, repo, logger.Named("service"))

	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(orchestrator.MaxUploadBytes()),
		BodyLimit:             int(orchestrator.MaxUploadBytes()) + bodyLimitSlack,
		DisableStartupMessage: true,
	})

	// Register global middleware
	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(logger.Named("http")))
	prom, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		logger.Fatal("metrics_register_failed", zap.Error(err))
	}
	app.Use(prom.Handler())

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	handlers.RegisterRoutes(app, handlers.Deps{
		Conversions:    svc,
		MaxUploadBytes: orchestrator.MaxUploadBytes(),
		Checks:         checks,
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	logger.Info("server_starting",
		zap.String("addr", ":"+cfg.Port),
		zap.Bool("ledger", repo != nil),
		zap.Bool("archival", dispatcher.Enabled()),
		zap.Bool("render_available", prober.Available(ctx)),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- app.Listen(":" + cfg.Port) }()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server_failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutdown_requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("server_shutdown_failed", zap.Error(err))
	}
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		logger.Warn("side_effects_not_drained", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracing_shutdown_failed", zap.Error(err))
	}
	logger.Info("server_stopped")
}
