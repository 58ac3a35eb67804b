package database

import (
	"context"
	"database/sql"

	"product-service/internal/domain/catalog"
)

// NewRepositories builds the PostgreSQL-backed repository set over db
func NewRepositories(db *sql.DB) *catalog.Repositories {
	return &catalog.Repositories{
		Categories:  NewCategoryRepository(db),
		Products:    NewProductRepository(db),
		Tags:        NewTagRepository(db),
		ProductTags: NewProductTagRepository(db),
		Images:      NewImageRepository(db),
		Tx:          NewTxManager(db),
	}
}

// scanAll drains rows through scan, closing them when done
func scanAll[T any](rows *sql.Rows, scan func(*sql.Rows) (T, error)) ([]T, error) {
	defer func() { _ = rows.Close() }() //nolint:errcheck // Resource cleanup

	items := make([]T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func exists(ctx context.Context, q querier, query string, args ...any) (bool, error) {
	var found bool
	if err := q.QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}
