package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"product-service/internal/domain/catalog"
)

type productTagRepository struct {
	db *sql.DB
}

// NewProductTagRepository creates a repository for product_tags join rows
func NewProductTagRepository(db *sql.DB) catalog.ProductTagRepository {
	return &productTagRepository{db: db}
}

func (r *productTagRepository) Add(ctx context.Context, productID, tagID int64) (bool, error) {
	query := `
		INSERT INTO product_tags (product_id, tag_id)
		VALUES ($1, $2)
		ON CONFLICT (product_id, tag_id) DO NOTHING`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, productID, tagID)
	if pgCode(err) == codeForeignKeyViolation {
		return false, fmt.Errorf("%w: product %d or tag %d", catalog.ErrNotFound, productID, tagID)
	}
	if err != nil {
		return false, fmt.Errorf("failed to link tag: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

func (r *productTagRepository) Remove(ctx context.Context, productID, tagID int64) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM product_tags WHERE product_id = $1 AND tag_id = $2`, productID, tagID)
	if err != nil {
		return fmt.Errorf("failed to unlink tag: %w", err)
	}
	return nil
}

func (r *productTagRepository) RemoveAllForProduct(ctx context.Context, productID int64) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM product_tags WHERE product_id = $1`, productID)
	if err != nil {
		return fmt.Errorf("failed to unlink product tags: %w", err)
	}
	return nil
}

func (r *productTagRepository) TagNames(ctx context.Context, productIDs []int64) (map[int64][]string, error) {
	result := make(map[int64][]string, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT pt.product_id, t.name
		FROM product_tags pt
		INNER JOIN tags t ON t.id = pt.tag_id
		WHERE pt.product_id = ANY($1::bigint[])
		ORDER BY pt.product_id, t.name`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, pq.Array(productIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to load product tags: %w", err)
	}
	defer func() { _ = rows.Close() }() //nolint:errcheck // Resource cleanup

	for rows.Next() {
		var (
			productID int64
			name      string
		)
		if err := rows.Scan(&productID, &name); err != nil {
			return nil, err
		}
		result[productID] = append(result[productID], name)
	}

	return result, rows.Err()
}
