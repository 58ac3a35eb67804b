package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"product-service/internal/domain/catalog"
)

const productColumns = `p.id, p.name, p.price, p.stock_quantity, p.category_id, c.name, p.created_at, p.updated_at`

const productSelect = `SELECT ` + productColumns + `
		FROM products p
		INNER JOIN categories c ON c.id = p.category_id`

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new PostgreSQL product repository
func NewProductRepository(db *sql.DB) catalog.ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *catalog.Product) error {
	query := `
		INSERT INTO products (name, price, stock_quantity, category_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := conn(ctx, r.db).QueryRowContext(ctx, query,
		product.Name,
		product.Price,
		product.StockQuantity,
		product.CategoryID,
	).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)

	if err := mapProductWriteError(err, product); err != nil {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

func (r *productRepository) GetByID(ctx context.Context, id int64) (*catalog.Product, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, productSelect+` WHERE p.id = $1`, id)

	product, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", catalog.ErrProductNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return product, nil
}

func (r *productRepository) GetByName(ctx context.Context, name string) (*catalog.Product, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, productSelect+` WHERE p.name = $1`, name)

	product, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", catalog.ErrProductNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product by name: %w", err)
	}

	return product, nil
}

func (r *productRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	found, err := exists(ctx, conn(ctx, r.db), `SELECT EXISTS(SELECT 1 FROM products WHERE name = $1)`, name)
	if err != nil {
		return false, fmt.Errorf("failed to check product: %w", err)
	}
	return found, nil
}

func (r *productRepository) List(ctx context.Context) ([]*catalog.Product, error) {
	return r.query(ctx, productSelect+` ORDER BY p.id`)
}

func (r *productRepository) ListByCategory(ctx context.Context, categoryName string) ([]*catalog.Product, error) {
	return r.query(ctx, productSelect+` WHERE c.name = $1 ORDER BY p.id`, categoryName)
}

func (r *productRepository) CountByCategory(ctx context.Context, categoryID int64) (int, error) {
	var count int
	err := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products WHERE category_id = $1`, categoryID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

func (r *productRepository) Update(ctx context.Context, product *catalog.Product) error {
	query := `
		UPDATE products
		SET name = $2, price = $3, stock_quantity = $4, category_id = $5
		WHERE id = $1
		RETURNING updated_at`

	err := conn(ctx, r.db).QueryRowContext(ctx, query,
		product.ID,
		product.Name,
		product.Price,
		product.StockQuantity,
		product.CategoryID,
	).Scan(&product.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: id %d", catalog.ErrProductNotFound, product.ID)
	}
	if err := mapProductWriteError(err, product); err != nil {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	return nil
}

func (r *productRepository) Delete(ctx context.Context, id int64) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: id %d", catalog.ErrProductNotFound, id)
	}

	return nil
}

func (r *productRepository) AdjustStock(ctx context.Context, id int64, delta int) (*catalog.Product, error) {
	q := conn(ctx, r.db)

	// The guard keeps the row untouched when the result would go negative
	query := `
		WITH updated AS (
			UPDATE products
			SET stock_quantity = stock_quantity + $2
			WHERE id = $1 AND stock_quantity + $2 >= 0
			RETURNING *
		)
		SELECT ` + strings.ReplaceAll(productColumns, "p.", "u.") + `
		FROM updated u
		INNER JOIN categories c ON c.id = u.category_id`

	product, err := scanProduct(q.QueryRowContext(ctx, query, id, delta))
	if err == nil {
		return product, nil
	}
	if pgCode(err) == codeNumericOutOfRange {
		return nil, fmt.Errorf("%w: stock of product %d cannot change by %d", catalog.ErrInvalidProduct, id, delta)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to adjust stock: %w", err)
	}

	found, err := exists(ctx, q, `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to check product: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("%w: id %d", catalog.ErrProductNotFound, id)
	}

	return nil, fmt.Errorf("%w: product %d cannot change by %d", catalog.ErrInsufficientStock, id, delta)
}

func (r *productRepository) SearchByTags(ctx context.Context, filter catalog.TagFilter) ([]*catalog.Product, error) {
	if len(filter.Names) == 0 {
		return []*catalog.Product{}, nil
	}

	var (
		query strings.Builder
		args  = []any{pq.Array(filter.Names)}
	)

	query.WriteString(productSelect)
	if filter.MatchAll {
		// A product qualifies when it matches as many distinct names as were requested
		query.WriteString(`
		WHERE p.id IN (
			SELECT pt.product_id
			FROM product_tags pt
			INNER JOIN tags t ON t.id = pt.tag_id
			WHERE t.name = ANY($1::text[])
			GROUP BY pt.product_id
			HAVING COUNT(DISTINCT t.name) = $2
		)`)
		args = append(args, len(filter.Names))
	} else {
		query.WriteString(`
		WHERE EXISTS (
			SELECT 1
			FROM product_tags pt
			INNER JOIN tags t ON t.id = pt.tag_id
			WHERE pt.product_id = p.id AND t.name = ANY($1::text[])
		)`)
	}

	if filter.CategoryName != "" {
		args = append(args, filter.CategoryName)
		fmt.Fprintf(&query, " AND c.name = $%d", len(args))
	}
	query.WriteString(` ORDER BY p.id`)

	return r.query(ctx, query.String(), args...)
}

func (r *productRepository) SearchByTagPattern(ctx context.Context, pattern string) ([]*catalog.Product, error) {
	query := productSelect + `
		WHERE EXISTS (
			SELECT 1
			FROM product_tags pt
			INNER JOIN tags t ON t.id = pt.tag_id
			WHERE pt.product_id = p.id AND t.name ILIKE '%' || $1 || '%'
		)
		ORDER BY p.id`

	return r.query(ctx, query, escapeLike(pattern))
}

func (r *productRepository) query(ctx context.Context, query string, args ...any) ([]*catalog.Product, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}

	return scanAll(rows, func(rows *sql.Rows) (*catalog.Product, error) {
		return scanProduct(rows)
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*catalog.Product, error) {
	p := &catalog.Product{}
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Price,
		&p.StockQuantity,
		&p.CategoryID,
		&p.CategoryName,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// mapProductWriteError translates constraint violations into domain errors.
// It returns nil for errors it does not recognise.
func mapProductWriteError(err error, product *catalog.Product) error {
	switch pgCode(err) {
	case codeUniqueViolation:
		return fmt.Errorf("%w: %s", catalog.ErrProductExists, product.Name)
	case codeForeignKeyViolation:
		return fmt.Errorf("%w: id %d", catalog.ErrCategoryNotFound, product.CategoryID)
	case codeCheckViolation:
		return fmt.Errorf("%w: %s", catalog.ErrInvalidProduct, err.Error())
	}
	return nil
}

// escapeLike makes LIKE metacharacters in s match literally
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
