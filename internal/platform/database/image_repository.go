package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"product-service/internal/domain/catalog"
)

const imageSelect = `
		SELECT id, product_id, file_name, stored_file_name, content_type, size, created_at
		FROM product_images`

type imageRepository struct {
	db *sql.DB
}

// NewImageRepository creates a repository for product image metadata
func NewImageRepository(db *sql.DB) catalog.ImageRepository {
	return &imageRepository{db: db}
}

func (r *imageRepository) Create(ctx context.Context, image *catalog.ProductImage) error {
	query := `
		INSERT INTO product_images (product_id, file_name, stored_file_name, content_type, size)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := conn(ctx, r.db).QueryRowContext(ctx, query,
		image.ProductID,
		image.FileName,
		image.StoredFileName,
		image.ContentType,
		image.Size,
	).Scan(&image.ID, &image.CreatedAt)

	if pgCode(err) == codeForeignKeyViolation {
		return fmt.Errorf("%w: id %d", catalog.ErrProductNotFound, image.ProductID)
	}
	if err != nil {
		return fmt.Errorf("failed to save image metadata: %w", err)
	}

	return nil
}

func (r *imageRepository) GetByID(ctx context.Context, id int64) (*catalog.ProductImage, error) {
	image, err := scanImage(conn(ctx, r.db).QueryRowContext(ctx, imageSelect+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", catalog.ErrImageNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	return image, nil
}

func (r *imageRepository) GetByFileName(ctx context.Context, productID int64, fileName string) (*catalog.ProductImage, error) {
	query := imageSelect + `
		WHERE product_id = $1 AND file_name = $2
		ORDER BY id DESC
		LIMIT 1`

	image, err := scanImage(conn(ctx, r.db).QueryRowContext(ctx, query, productID, fileName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", catalog.ErrImageNotFound, fileName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image by file name: %w", err)
	}
	return image, nil
}

func (r *imageRepository) ListByProduct(ctx context.Context, productID int64) ([]*catalog.ProductImage, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, imageSelect+` WHERE product_id = $1 ORDER BY id`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	return scanAll(rows, func(rows *sql.Rows) (*catalog.ProductImage, error) {
		return scanImage(rows)
	})
}

func (r *imageRepository) Delete(ctx context.Context, id int64) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM product_images WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete image metadata: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: id %d", catalog.ErrImageNotFound, id)
	}

	return nil
}

func scanImage(row rowScanner) (*catalog.ProductImage, error) {
	image := &catalog.ProductImage{}
	err := row.Scan(
		&image.ID,
		&image.ProductID,
		&image.FileName,
		&image.StoredFileName,
		&image.ContentType,
		&image.Size,
		&image.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return image, nil
}
