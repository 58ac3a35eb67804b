package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"product-service/internal/domain/catalog"
)

type categoryRepository struct {
	db *sql.DB
}

// NewCategoryRepository creates a new PostgreSQL category repository
func NewCategoryRepository(db *sql.DB) catalog.CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, category *catalog.Category) error {
	query := `
		INSERT INTO categories (name)
		VALUES ($1)
		RETURNING id, created_at`

	err := conn(ctx, r.db).QueryRowContext(ctx, query, category.Name).
		Scan(&category.ID, &category.CreatedAt)
	if pgCode(err) == codeUniqueViolation {
		return fmt.Errorf("%w: %s", catalog.ErrCategoryExists, category.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}

	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id int64) (*catalog.Category, error) {
	query := `SELECT id, name, created_at FROM categories WHERE id = $1`

	category := &catalog.Category{}
	err := conn(ctx, r.db).QueryRowContext(ctx, query, id).
		Scan(&category.ID, &category.Name, &category.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", catalog.ErrCategoryNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	return category, nil
}

func (r *categoryRepository) GetByName(ctx context.Context, name string) (*catalog.Category, error) {
	query := `SELECT id, name, created_at FROM categories WHERE name = $1`

	category := &catalog.Category{}
	err := conn(ctx, r.db).QueryRowContext(ctx, query, name).
		Scan(&category.ID, &category.Name, &category.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", catalog.ErrCategoryNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category by name: %w", err)
	}

	return category, nil
}

func (r *categoryRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	found, err := exists(ctx, conn(ctx, r.db), `SELECT EXISTS(SELECT 1 FROM categories WHERE name = $1)`, name)
	if err != nil {
		return false, fmt.Errorf("failed to check category: %w", err)
	}
	return found, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]*catalog.Category, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `SELECT id, name, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	return scanAll(rows, func(rows *sql.Rows) (*catalog.Category, error) {
		c := &catalog.Category{}
		return c, rows.Scan(&c.ID, &c.Name, &c.CreatedAt)
	})
}

func (r *categoryRepository) Delete(ctx context.Context, id int64) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if pgCode(err) == codeForeignKeyViolation {
		return fmt.Errorf("%w: id %d", catalog.ErrCategoryNotEmpty, id)
	}
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: id %d", catalog.ErrCategoryNotFound, id)
	}

	return nil
}
