package memstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"product-service/internal/domain/catalog"
)

// Blobs is an in-memory catalog.BlobStore
type Blobs struct {
	mu      sync.Mutex
	data    map[string][]byte
	types   map[string]string
	PutErr  error
	Removed []string
}

// NewBlobs creates an empty blob store
func NewBlobs() *Blobs {
	return &Blobs{data: map[string][]byte{}, types: map[string]string{}}
}

func (b *Blobs) Put(_ context.Context, key, contentType string, r io.Reader, _ int64) error {
	if b.PutErr != nil {
		return b.PutErr
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = data
	b.types[key] = contentType
	return nil
}

func (b *Blobs) Open(_ context.Context, key string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, ok := b.data[key]
	if !ok {
		return nil, fmt.Errorf("blob %w: %s", catalog.ErrNotFound, key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *Blobs) Remove(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.data, key)
	delete(b.types, key)
	b.Removed = append(b.Removed, key)
	return nil
}

// Len returns the number of stored blobs
func (b *Blobs) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// ContentType returns the content type a blob was stored with
func (b *Blobs) ContentType(key string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.types[key]
}
