package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/minio"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"product-service/internal/config"
	"product-service/internal/platform/database"
)

// PostgresContainer is a migrated PostgreSQL instance for integration tests
type PostgresContainer struct {
	Container   *postgres.PostgresContainer
	DB          *sql.DB
	DatabaseURL string
}

// StartPostgres starts PostgreSQL, connects through the instrumented pool and
// applies the embedded migrations.
func StartPostgres(ctx context.Context) (*PostgresContainer, error) {
	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("catalog"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	pc := &PostgresContainer{Container: container}

	pc.DatabaseURL, err = container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pc.Cleanup(ctx) //nolint:errcheck // Cleanup in error path
		return nil, fmt.Errorf("failed to get postgres connection string: %w", err)
	}

	pc.DB, err = database.NewConnection(pc.DatabaseURL)
	if err != nil {
		_ = pc.Cleanup(ctx) //nolint:errcheck // Cleanup in error path
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if _, err := database.RunMigrations(ctx, pc.DB); err != nil {
		_ = pc.Cleanup(ctx) //nolint:errcheck // Cleanup in error path
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return pc, nil
}

// ResetDatabase removes all catalog rows and restarts identity sequences
func (pc *PostgresContainer) ResetDatabase(ctx context.Context) error {
	_, err := pc.DB.ExecContext(ctx,
		`TRUNCATE product_images, product_tags, products, tags, categories RESTART IDENTITY CASCADE`)
	if err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}
	return nil
}

// Cleanup closes the pool and terminates the container
func (pc *PostgresContainer) Cleanup(ctx context.Context) error {
	if pc.DB != nil {
		_ = pc.DB.Close() //nolint:errcheck // Best-effort close before termination
	}
	if pc.Container != nil {
		if err := pc.Container.Terminate(ctx); err != nil {
			return fmt.Errorf("failed to terminate postgres container: %w", err)
		}
	}
	return nil
}

// MinIOContainer is an S3 compatible object store for storage integration tests
type MinIOContainer struct {
	Container *minio.MinioContainer
	Endpoint  string
	Username  string
	Password  string
}

// StartMinIO starts a MinIO server with static credentials
func StartMinIO(ctx context.Context) (*MinIOContainer, error) {
	mc := &MinIOContainer{Username: "minioadmin", Password: "minioadmin"}

	container, err := minio.Run(ctx,
		"minio/minio:latest",
		minio.WithUsername(mc.Username),
		minio.WithPassword(mc.Password),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start minio container: %w", err)
	}
	mc.Container = container

	mc.Endpoint, err = container.ConnectionString(ctx)
	if err != nil {
		_ = mc.Cleanup(ctx) //nolint:errcheck // Cleanup in error path
		return nil, fmt.Errorf("failed to get minio endpoint: %w", err)
	}

	return mc, nil
}

// StorageConfig returns a minio backend configuration pointing at the container
func (mc *MinIOContainer) StorageConfig(bucket string) config.StorageConfig {
	return config.StorageConfig{
		Backend:         config.StorageBackendMinIO,
		Endpoint:        mc.Endpoint,
		AccessKeyID:     mc.Username,
		SecretAccessKey: mc.Password,
		BucketName:      bucket,
		Region:          "us-east-1",
		MaxFileSize:     10 << 20,
		MaxRequestSize:  15 << 20,
		AllowedTypes:    config.DefaultAllowedTypes,
	}
}

// Cleanup terminates the container
func (mc *MinIOContainer) Cleanup(ctx context.Context) error {
	if mc.Container == nil {
		return nil
	}
	if err := mc.Container.Terminate(ctx); err != nil {
		return fmt.Errorf("failed to terminate minio container: %w", err)
	}
	return nil
}
