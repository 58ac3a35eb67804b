package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"product-service/internal/config"
	"product-service/internal/domain/catalog"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key   string
		valid bool
	}{
		{"3f2b0c1e.png", true},
		{"report.pdf", true},
		{"", false},
		{".", false},
		{"..", false},
		{"../escape.png", false},
		{"nested/file.png", false},
		{`nested\file.png`, false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := validateKey(tt.key)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidKey)
			}
		})
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("local backend", func(t *testing.T) {
		store, err := New(ctx, config.StorageConfig{Backend: config.StorageBackendLocal, UploadDir: t.TempDir()})
		require.NoError(t, err)
		assert.IsType(t, &LocalStore{}, store)
	})

	t.Run("empty backend defaults to local", func(t *testing.T) {
		store, err := New(ctx, config.StorageConfig{UploadDir: t.TempDir()})
		require.NoError(t, err)
		assert.IsType(t, &LocalStore{}, store)
	})

	t.Run("unknown backend", func(t *testing.T) {
		store, err := New(ctx, config.StorageConfig{Backend: "ftp"})
		assert.ErrorIs(t, err, ErrUnknownBackend)
		assert.Nil(t, store)
	})
}

func TestNewLocalStore(t *testing.T) {
	root := filepath.Join(t.TempDir(), "a", "b")

	store, err := NewLocalStore(root)
	require.NoError(t, err)

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.True(t, filepath.IsAbs(store.Root()))
	assert.NoError(t, store.Ping(context.Background()))

	_, err = NewLocalStore("")
	assert.Error(t, err)
}

func TestLocalStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	content := "fake image bytes"
	require.NoError(t, store.Put(ctx, "photo.png", "image/png", strings.NewReader(content), int64(len(content))))

	rc, err := store.Open(ctx, "photo.png")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, content, string(data))

	require.NoError(t, store.Remove(ctx, "photo.png"))

	_, err = store.Open(ctx, "photo.png")
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	// Removing twice is not an error
	assert.NoError(t, store.Remove(ctx, "photo.png"))
}

func TestLocalStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "a.pdf", "application/pdf", strings.NewReader("first version"), 13))
	require.NoError(t, store.Put(ctx, "a.pdf", "application/pdf", strings.NewReader("second"), 6))

	data, err := os.ReadFile(filepath.Join(store.Root(), "a.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	ctx := context.Background()
	parent := t.TempDir()
	store, err := NewLocalStore(filepath.Join(parent, "uploads"))
	require.NoError(t, err)

	err = store.Put(ctx, "../outside.png", "image/png", strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, statErr := os.Stat(filepath.Join(parent, "outside.png"))
	assert.True(t, os.IsNotExist(statErr))

	_, err = store.Open(ctx, "../uploads")
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.ErrorIs(t, store.Remove(ctx, "a/b"), ErrInvalidKey)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestLocalStore_PutFailureLeavesNoFile(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	err = store.Put(ctx, "broken.png", "image/png", failingReader{}, 10)
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(store.Root(), "broken.png"))
	assert.True(t, os.IsNotExist(statErr))
}
