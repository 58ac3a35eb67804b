package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"product-service/internal/domain/catalog"
)

const tagSelect = `
		SELECT t.id, t.name, COALESCE(t.description, ''), t.created_at,
			(SELECT COUNT(*) FROM product_tags pt WHERE pt.tag_id = t.id)
		FROM tags t`

// tagRepository implements catalog.TagRepository
type tagRepository struct {
	db *sql.DB
}

// NewTagRepository creates a new TagRepository
func NewTagRepository(db *sql.DB) catalog.TagRepository {
	return &tagRepository{db: db}
}

// Create inserts a new tag record
func (r *tagRepository) Create(ctx context.Context, tag *catalog.Tag) error {
	query := `
		INSERT INTO tags (name, description)
		VALUES ($1, $2)
		RETURNING id, created_at`

	err := conn(ctx, r.db).QueryRowContext(ctx, query, tag.Name, tag.Description).
		Scan(&tag.ID, &tag.CreatedAt)
	if pgCode(err) == codeUniqueViolation {
		return fmt.Errorf("%w: %s", catalog.ErrTagExists, tag.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to create tag: %w", err)
	}

	return nil
}

func (r *tagRepository) CreateIfAbsent(ctx context.Context, tag *catalog.Tag) (bool, error) {
	query := `
		INSERT INTO tags (name, description)
		VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING
		RETURNING id, created_at`

	err := conn(ctx, r.db).QueryRowContext(ctx, query, tag.Name, tag.Description).
		Scan(&tag.ID, &tag.CreatedAt)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("failed to create tag: %w", err)
	}

	// A concurrent insert won; the conflict waited for it to commit
	existing, err := r.GetByName(ctx, tag.Name)
	if err != nil {
		return false, err
	}
	*tag = *existing
	return false, nil
}

// GetByID retrieves a tag by its ID
func (r *tagRepository) GetByID(ctx context.Context, id int64) (*catalog.Tag, error) {
	tag, err := scanTag(conn(ctx, r.db).QueryRowContext(ctx, tagSelect+` WHERE t.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", catalog.ErrTagNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return tag, nil
}

// GetByName retrieves a tag by its exact name
func (r *tagRepository) GetByName(ctx context.Context, name string) (*catalog.Tag, error) {
	tag, err := scanTag(conn(ctx, r.db).QueryRowContext(ctx, tagSelect+` WHERE t.name = $1`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", catalog.ErrTagNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tag by name: %w", err)
	}
	return tag, nil
}

func (r *tagRepository) GetByNames(ctx context.Context, names []string) (map[string]*catalog.Tag, error) {
	result := make(map[string]*catalog.Tag, len(names))
	if len(names) == 0 {
		return result, nil
	}

	tags, err := r.query(ctx, tagSelect+` WHERE t.name = ANY($1::text[])`, pq.Array(names))
	if err != nil {
		return nil, err
	}
	for _, tag := range tags {
		result[tag.Name] = tag
	}
	return result, nil
}

func (r *tagRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	found, err := exists(ctx, conn(ctx, r.db), `SELECT EXISTS(SELECT 1 FROM tags WHERE name = $1)`, name)
	if err != nil {
		return false, fmt.Errorf("failed to check tag: %w", err)
	}
	return found, nil
}

// List returns every tag ordered by name
func (r *tagRepository) List(ctx context.Context) ([]*catalog.Tag, error) {
	return r.query(ctx, tagSelect+` ORDER BY t.name`)
}

// Search matches tag names case-insensitively by substring
func (r *tagRepository) Search(ctx context.Context, term string) ([]*catalog.Tag, error) {
	return r.query(ctx, tagSelect+` WHERE t.name ILIKE '%' || $1 || '%' ORDER BY t.name`, escapeLike(term))
}

// Delete removes a tag record by ID; its product links cascade
func (r *tagRepository) Delete(ctx context.Context, id int64) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: id %d", catalog.ErrTagNotFound, id)
	}

	return nil
}

func (r *tagRepository) query(ctx context.Context, query string, args ...any) ([]*catalog.Tag, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}

	return scanAll(rows, func(rows *sql.Rows) (*catalog.Tag, error) {
		return scanTag(rows)
	})
}

func scanTag(row rowScanner) (*catalog.Tag, error) {
	tag := &catalog.Tag{}
	if err := row.Scan(&tag.ID, &tag.Name, &tag.Description, &tag.CreatedAt, &tag.ProductCount); err != nil {
		return nil, err
	}
	return tag, nil
}
