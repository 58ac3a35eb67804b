package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"product-service/internal/domain/catalog"
)

// LocalStore keeps blobs as files in one directory
type LocalStore struct {
	root string
}

// NewLocalStore creates the root directory if needed
func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		return nil, errors.New("upload directory cannot be empty")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve upload directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	return &LocalStore{root: abs}, nil
}

// Root returns the absolute storage directory
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) Put(_ context.Context, key, _ string, r io.Reader, _ int64) error {
	if err := validateKey(key); err != nil {
		return err
	}

	path := filepath.Join(s.root, key)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()       //nolint:errcheck // Already failing
		_ = os.Remove(path) //nolint:errcheck // Best-effort cleanup of the partial file
		return fmt.Errorf("failed to write file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(path) //nolint:errcheck // Best-effort cleanup of the partial file
		return fmt.Errorf("failed to close file: %w", err)
	}

	return nil
}

func (s *LocalStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.root, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("file %w: %s", catalog.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return f, nil
}

func (s *LocalStore) Remove(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	err := os.Remove(filepath.Join(s.root, key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove file: %w", err)
	}

	return nil
}

// Ping checks that the root directory is still present
func (s *LocalStore) Ping(_ context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("upload path is not a directory: %s", s.root)
	}
	return nil
}
