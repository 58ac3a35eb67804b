package implementations

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"product-service/internal/domain/catalog"
	"product-service/internal/observability"
)

// FileStorageServiceImpl implements the catalog.FileStorageService interface.
// Contents go to the blob store under a generated name; metadata goes to the
// image repository.
type FileStorageServiceImpl struct {
	images       catalog.ImageRepository
	products     catalog.ProductRepository
	blobs        catalog.BlobStore
	allowedTypes []string
	maxFileSize  int64
	logger       *observability.Logger
}

// NewFileStorageService creates a new file storage service implementation.
// A maxFileSize of zero disables the size check.
func NewFileStorageService(
	images catalog.ImageRepository,
	products catalog.ProductRepository,
	blobs catalog.BlobStore,
	allowedTypes []string,
	maxFileSize int64,
	logger *observability.Logger,
) catalog.FileStorageService {
	return &FileStorageServiceImpl{
		images:       images,
		products:     products,
		blobs:        blobs,
		allowedTypes: allowedTypes,
		maxFileSize:  maxFileSize,
		logger:       logger,
	}
}

// Store validates the upload, writes the blob and records its metadata.
// Nothing is written when validation fails.
func (s *FileStorageServiceImpl) Store(ctx context.Context, productID int64, upload *catalog.Upload) (*catalog.ProductImage, error) {
	if upload == nil || upload.Content == nil {
		return nil, fmt.Errorf("%w: no file content", catalog.ErrInvalidFile)
	}

	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	if err := upload.Validate(s.allowedTypes); err != nil {
		return nil, err
	}
	if s.maxFileSize > 0 && upload.Size > s.maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds the %d byte limit", catalog.ErrFileTooLarge, upload.Size, s.maxFileSize)
	}

	img := &catalog.ProductImage{
		ProductID:      productID,
		FileName:       upload.FileName,
		StoredFileName: uuid.NewString() + upload.Extension(),
		ContentType:    catalog.MediaType(upload.ContentType),
		Size:           upload.Size,
	}

	if err := s.blobs.Put(ctx, img.StoredFileName, img.ContentType, upload.Content, upload.Size); err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	if err := s.images.Create(ctx, img); err != nil {
		if rmErr := s.blobs.Remove(ctx, img.StoredFileName); rmErr != nil {
			s.logger.Error(ctx).Err(rmErr).Str("stored_file_name", img.StoredFileName).Msg("failed to remove orphaned file")
		}
		return nil, err
	}

	s.logger.Info(ctx).
		Int64("product_id", productID).
		Int64("image_id", img.ID).
		Str("file_name", img.FileName).
		Str("content_type", img.ContentType).
		Int64("size", img.Size).
		Msg("product file stored")
	return img, nil
}

// Load opens the newest file uploaded for the product under fileName
func (s *FileStorageServiceImpl) Load(ctx context.Context, productID int64, fileName string) (*catalog.ProductImage, io.ReadCloser, error) {
	if err := catalog.ValidateFileName(fileName); err != nil {
		return nil, nil, err
	}

	img, err := s.images.GetByFileName(ctx, productID, fileName)
	if err != nil {
		return nil, nil, err
	}

	content, err := s.blobs.Open(ctx, img.StoredFileName)
	if err != nil {
		return nil, nil, err
	}

	return img, content, nil
}

func (s *FileStorageServiceImpl) List(ctx context.Context, productID int64) ([]*catalog.ProductImage, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.images.ListByProduct(ctx, productID)
}

// Delete removes the stored file and then its metadata row
func (s *FileStorageServiceImpl) Delete(ctx context.Context, productID, imageID int64) error {
	img, err := s.images.GetByID(ctx, imageID)
	if err != nil {
		return err
	}
	if img.ProductID != productID {
		return fmt.Errorf("%w: image %d, product %d", catalog.ErrImageOwnership, imageID, productID)
	}

	if err := s.blobs.Remove(ctx, img.StoredFileName); err != nil {
		s.logger.Warn(ctx).Err(err).Str("stored_file_name", img.StoredFileName).Msg("failed to remove product file")
	}

	if err := s.images.Delete(ctx, imageID); err != nil {
		return err
	}

	s.logger.Info(ctx).Int64("product_id", productID).Int64("image_id", imageID).Msg("product file deleted")
	return nil
}
