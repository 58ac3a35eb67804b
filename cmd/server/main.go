package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"

	"product-service/internal/config"
	"product-service/internal/domain/catalog"
	"product-service/internal/observability"
	"product-service/internal/platform/database"
	"product-service/internal/platform/server"
	"product-service/internal/platform/storage"
	"product-service/internal/services"
	"product-service/internal/web/handlers"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Failed to read .env file: %v", err)
	}

	if err := run(); err != nil {
		log.Fatalf("product-service: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	obsCfg := observability.LoadConfig()
	obsCfg.Environment = cfg.Environment
	obsCfg.LogLevel = cfg.Logging.Level
	obsCfg.LogFormat = cfg.Logging.Format
	logger := observability.NewLogger(obsCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := observability.NewProvider(ctx, obsCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	otel.SetErrorHandler(otel.ErrorHandlerFunc(logger.OTELErrorHandler()))
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error(shutdownCtx).Err(err).Msg("failed to shut down telemetry")
		}
	}()

	db, err := database.NewConnection(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		_ = db.Close() //nolint:errcheck // Shutdown path
	}()

	applied, err := database.RunMigrations(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info(ctx).Strs("versions", applied).Msg("migrations applied")

	blobs, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize file storage: %w", err)
	}
	logger.Info(ctx).Str("backend", cfg.Storage.Backend).Msg("file storage ready")

	container, err := services.NewContainer(cfg, database.NewRepositories(db), blobs, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services container: %w", err)
	}

	opts, err := handlerOptions(provider, db, blobs)
	if err != nil {
		return err
	}
	handler := handlers.New(container, logger, opts...)

	srv := server.New(cfg, handler.Routes())
	return server.Run(ctx, srv, cfg.Server.ShutdownTimeout, logger)
}

func handlerOptions(provider *observability.Provider, db *sql.DB, blobs catalog.BlobStore) ([]handlers.Option, error) {
	opts := []handlers.Option{
		handlers.WithReadinessCheck("database", db.PingContext),
	}
	if pinger, ok := blobs.(storage.Pinger); ok {
		opts = append(opts, handlers.WithReadinessCheck("storage", pinger.Ping))
	}

	if provider.Enabled() {
		metrics, err := observability.NewHTTPMetrics(provider.Meter("product-service/http"))
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
		}
		opts = append(opts,
			handlers.WithTracing(provider.Tracer("product-service/http")),
			handlers.WithMetrics(metrics),
		)
	}
	return opts, nil
}
