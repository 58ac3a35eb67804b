// Package storage keeps uploaded product files. The local backend writes
// under a directory on disk; the minio backend writes to an S3 compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"product-service/internal/config"
	"product-service/internal/domain/catalog"
)

var (
	ErrInvalidKey     = errors.New("invalid storage key")
	ErrUnknownBackend = errors.New("unknown storage backend")
)

// New creates the blob store selected by cfg.Backend
func New(ctx context.Context, cfg config.StorageConfig) (catalog.BlobStore, error) {
	switch cfg.Backend {
	case "", config.StorageBackendLocal:
		store, err := NewLocalStore(cfg.UploadDir)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StorageBackendMinIO:
		store, err := NewMinIOStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Backend)
	}
}

// validateKey accepts only flat file names
func validateKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) || key != filepath.Base(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// Pinger is implemented by stores that can report whether they are reachable
type Pinger interface {
	Ping(ctx context.Context) error
}
