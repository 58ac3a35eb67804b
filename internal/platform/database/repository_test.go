package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"product-service/internal/domain/catalog"
)

var productRowColumns = []string{"id", "name", "price", "stock_quantity", "category_id", "category_name", "created_at", "updated_at"}

func newMock(t *testing.T) (sqlmock.Sqlmock, *catalog.Repositories) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return mock, NewRepositories(db)
}

func TestCategoryRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("returns generated id", func(t *testing.T) {
		mock, repos := newMock(t)
		now := time.Now()

		mock.ExpectQuery(`INSERT INTO categories`).
			WithArgs("Electronics").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(7, now))

		category := &catalog.Category{Name: "Electronics"}
		require.NoError(t, repos.Categories.Create(ctx, category))
		assert.Equal(t, int64(7), category.ID)
		assert.Equal(t, now, category.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation maps to already exists", func(t *testing.T) {
		mock, repos := newMock(t)

		mock.ExpectQuery(`INSERT INTO categories`).
			WithArgs("Electronics").
			WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value"})

		err := repos.Categories.Create(ctx, &catalog.Category{Name: "Electronics"})
		assert.ErrorIs(t, err, catalog.ErrCategoryExists)
		assert.ErrorIs(t, err, catalog.ErrAlreadyExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCategoryRepository_GetByName_NotFound(t *testing.T) {
	mock, repos := newMock(t)

	mock.ExpectQuery(`SELECT id, name, created_at FROM categories WHERE name = \$1`).
		WithArgs("Garden").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at"}))

	_, err := repos.Categories.GetByName(context.Background(), "Garden")
	assert.ErrorIs(t, err, catalog.ErrCategoryNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepository_Delete(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		setup    func(mock sqlmock.Sqlmock)
		expected error
	}{
		{
			name: "deleted",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`DELETE FROM categories WHERE id = \$1`).
					WithArgs(int64(3)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "missing row",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`DELETE FROM categories`).
					WithArgs(int64(3)).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			expected: catalog.ErrCategoryNotFound,
		},
		{
			name: "referenced by products",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`DELETE FROM categories`).
					WithArgs(int64(3)).
					WillReturnError(&pq.Error{Code: "23503"})
			},
			expected: catalog.ErrCategoryNotEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, repos := newMock(t)
			tt.setup(mock)

			err := repos.Categories.Delete(ctx, 3)
			if tt.expected == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.expected)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestProductRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts product", func(t *testing.T) {
		mock, repos := newMock(t)
		now := time.Now()

		mock.ExpectQuery(`INSERT INTO products \(name, price, stock_quantity, category_id\)`).
			WithArgs("Laptop", "999.99", 5, int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(10, now, now))

		product := &catalog.Product{
			Name:          "Laptop",
			Price:         decimal.RequireFromString("999.99"),
			StockQuantity: 5,
			CategoryID:    1,
		}
		require.NoError(t, repos.Products.Create(ctx, product))
		assert.Equal(t, int64(10), product.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate name", func(t *testing.T) {
		mock, repos := newMock(t)

		mock.ExpectQuery(`INSERT INTO products`).
			WillReturnError(&pq.Error{Code: "23505"})

		err := repos.Products.Create(ctx, &catalog.Product{Name: "Laptop", CategoryID: 1})
		assert.ErrorIs(t, err, catalog.ErrProductExists)
	})

	t.Run("unknown category", func(t *testing.T) {
		mock, repos := newMock(t)

		mock.ExpectQuery(`INSERT INTO products`).
			WillReturnError(&pq.Error{Code: "23503"})

		err := repos.Products.Create(ctx, &catalog.Product{Name: "Laptop", CategoryID: 99})
		assert.ErrorIs(t, err, catalog.ErrCategoryNotFound)
	})
}

func TestProductRepository_GetByID(t *testing.T) {
	mock, repos := newMock(t)
	now := time.Now()

	mock.ExpectQuery(`FROM products p\s+INNER JOIN categories c ON c.id = p.category_id WHERE p.id = \$1`).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows(productRowColumns).
			AddRow(10, "Laptop", "999.99", 5, 1, "Electronics", now, now))

	product, err := repos.Products.GetByID(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, "Laptop", product.Name)
	assert.Equal(t, "Electronics", product.CategoryName)
	assert.True(t, decimal.RequireFromString("999.99").Equal(product.Price))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_SearchByTags(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("all tags uses cardinality match", func(t *testing.T) {
		mock, repos := newMock(t)

		mock.ExpectQuery(`GROUP BY pt.product_id\s+HAVING COUNT\(DISTINCT t.name\) = \$2\s+\) ORDER BY p.id`).
			WithArgs(sqlmock.AnyArg(), 2).
			WillReturnRows(sqlmock.NewRows(productRowColumns).
				AddRow(10, "Laptop", "999.99", 5, 1, "Electronics", now, now))

		products, err := repos.Products.SearchByTags(ctx, catalog.TagFilter{
			Names:    []string{"Tech", "Gaming"},
			MatchAll: true,
		})
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, "Laptop", products[0].Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("any tag within category", func(t *testing.T) {
		mock, repos := newMock(t)

		mock.ExpectQuery(`WHERE pt.product_id = p.id AND t.name = ANY\(\$1::text\[\]\)\s+\) AND c.name = \$2 ORDER BY p.id`).
			WithArgs(sqlmock.AnyArg(), "Electronics").
			WillReturnRows(sqlmock.NewRows(productRowColumns))

		products, err := repos.Products.SearchByTags(ctx, catalog.TagFilter{
			Names:        []string{"Tech"},
			CategoryName: "Electronics",
		})
		require.NoError(t, err)
		assert.Empty(t, products)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("all tags within category numbers the category argument third", func(t *testing.T) {
		mock, repos := newMock(t)

		mock.ExpectQuery(`HAVING COUNT\(DISTINCT t.name\) = \$2\s+\) AND c.name = \$3`).
			WithArgs(sqlmock.AnyArg(), 1, "Electronics").
			WillReturnRows(sqlmock.NewRows(productRowColumns))

		_, err := repos.Products.SearchByTags(ctx, catalog.TagFilter{
			Names:        []string{"Tech"},
			MatchAll:     true,
			CategoryName: "Electronics",
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty names skip the query", func(t *testing.T) {
		mock, repos := newMock(t)

		products, err := repos.Products.SearchByTags(ctx, catalog.TagFilter{})
		require.NoError(t, err)
		assert.Empty(t, products)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProductRepository_SearchByTagPattern_EscapesWildcards(t *testing.T) {
	mock, repos := newMock(t)

	mock.ExpectQuery(`t.name ILIKE '%' \|\| \$1 \|\| '%'`).
		WithArgs(`50\%\_off`).
		WillReturnRows(sqlmock.NewRows(productRowColumns))

	_, err := repos.Products.SearchByTagPattern(context.Background(), "50%_off")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_AdjustStock(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("applies delta", func(t *testing.T) {
		mock, repos := newMock(t)

		mock.ExpectQuery(`WITH updated AS \(\s+UPDATE products\s+SET stock_quantity = stock_quantity \+ \$2`).
			WithArgs(int64(10), -2).
			WillReturnRows(sqlmock.NewRows(productRowColumns).
				AddRow(10, "Laptop", "999.99", 3, 1, "Electronics", now, now))

		product, err := repos.Products.AdjustStock(ctx, 10, -2)
		require.NoError(t, err)
		assert.Equal(t, 3, product.StockQuantity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient stock", func(t *testing.T) {
		mock, repos := newMock(t)

		mock.ExpectQuery(`WITH updated AS`).
			WithArgs(int64(10), -50).
			WillReturnRows(sqlmock.NewRows(productRowColumns))
		mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM products WHERE id = \$1\)`).
			WithArgs(int64(10)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := repos.Products.AdjustStock(ctx, 10, -50)
		assert.ErrorIs(t, err, catalog.ErrInsufficientStock)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown product", func(t *testing.T) {
		mock, repos := newMock(t)

		mock.ExpectQuery(`WITH updated AS`).
			WithArgs(int64(404), 1).
			WillReturnRows(sqlmock.NewRows(productRowColumns))
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(int64(404)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		_, err := repos.Products.AdjustStock(ctx, 404, 1)
		assert.ErrorIs(t, err, catalog.ErrProductNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("overflow is a bad request", func(t *testing.T) {
		mock, repos := newMock(t)

		mock.ExpectQuery(`WITH updated AS`).
			WithArgs(int64(10), 2147483647).
			WillReturnError(&pq.Error{Code: "22003", Message: "integer out of range"})

		_, err := repos.Products.AdjustStock(ctx, 10, 2147483647)
		assert.ErrorIs(t, err, catalog.ErrBadRequest)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTagRepository_List(t *testing.T) {
	mock, repos := newMock(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM product_tags pt WHERE pt.tag_id = t.id\)\s+FROM tags t ORDER BY t.name`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "created_at", "count"}).
			AddRow(1, "Gaming", "", now, 0).
			AddRow(2, "Tech", "Technology", now, 3))

	tags, err := repos.Tags.List(context.Background())
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "Tech", tags[1].Name)
	assert.Equal(t, 3, tags[1].ProductCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTagRepository_GetByNames(t *testing.T) {
	mock, repos := newMock(t)
	now := time.Now()

	mock.ExpectQuery(`WHERE t.name = ANY\(\$1::text\[\]\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "created_at", "count"}).
			AddRow(2, "Tech", "Technology", now, 1))

	found, err := repos.Tags.GetByNames(context.Background(), []string{"Tech", "Audio"})
	require.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Equal(t, int64(2), found["Tech"].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTagRepository_CreateIfAbsent(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("inserts", func(t *testing.T) {
		mock, repos := newMock(t)

		mock.ExpectQuery(`INSERT INTO tags \(name, description\)\s+VALUES \(\$1, \$2\)\s+ON CONFLICT \(name\) DO NOTHING`).
			WithArgs("Tech", catalog.AutoTagDescription).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(4, now))

		tag := &catalog.Tag{Name: "Tech", Description: catalog.AutoTagDescription}
		created, err := repos.Tags.CreateIfAbsent(ctx, tag)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, int64(4), tag.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("conflict reads the existing row", func(t *testing.T) {
		mock, repos := newMock(t)

		mock.ExpectQuery(`ON CONFLICT \(name\) DO NOTHING`).
			WithArgs("Tech", catalog.AutoTagDescription).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}))
		mock.ExpectQuery(`FROM tags t WHERE t.name = \$1`).
			WithArgs("Tech").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "created_at", "count"}).
				AddRow(2, "Tech", "Technology", now, 3))

		tag := &catalog.Tag{Name: "Tech", Description: catalog.AutoTagDescription}
		created, err := repos.Tags.CreateIfAbsent(ctx, tag)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, int64(2), tag.ID)
		assert.Equal(t, "Technology", tag.Description)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTagRepository_Delete_NotFound(t *testing.T) {
	mock, repos := newMock(t)

	mock.ExpectExec(`DELETE FROM tags WHERE id = \$1`).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repos.Tags.Delete(context.Background(), 5)
	assert.ErrorIs(t, err, catalog.ErrTagNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductTagRepository_Add(t *testing.T) {
	ctx := context.Background()

	t.Run("new link", func(t *testing.T) {
		mock, repos := newMock(t)
		mock.ExpectExec(`INSERT INTO product_tags \(product_id, tag_id\)\s+VALUES \(\$1, \$2\)\s+ON CONFLICT \(product_id, tag_id\) DO NOTHING`).
			WithArgs(int64(1), int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		created, err := repos.ProductTags.Add(ctx, 1, 2)
		require.NoError(t, err)
		assert.True(t, created)
	})

	t.Run("existing link is skipped", func(t *testing.T) {
		mock, repos := newMock(t)
		mock.ExpectExec(`INSERT INTO product_tags`).
			WithArgs(int64(1), int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		created, err := repos.ProductTags.Add(ctx, 1, 2)
		require.NoError(t, err)
		assert.False(t, created)
	})
}

func TestProductTagRepository_TagNames(t *testing.T) {
	mock, repos := newMock(t)

	mock.ExpectQuery(`WHERE pt.product_id = ANY\(\$1::bigint\[\]\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "name"}).
			AddRow(1, "Gaming").
			AddRow(1, "Tech").
			AddRow(2, "Audio"))

	names, err := repos.ProductTags.TagNames(context.Background(), []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"Gaming", "Tech"}, names[1])
	assert.Equal(t, []string{"Audio"}, names[2])
	assert.Empty(t, names[3])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImageRepository_GetByFileName(t *testing.T) {
	mock, repos := newMock(t)
	now := time.Now()

	mock.ExpectQuery(`WHERE product_id = \$1 AND file_name = \$2\s+ORDER BY id DESC\s+LIMIT 1`).
		WithArgs(int64(1), "photo.png").
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "file_name", "stored_file_name", "content_type", "size", "created_at"}).
			AddRow(4, 1, "photo.png", "9b2c.png", "image/png", 1024, now))

	image, err := repos.Images.GetByFileName(context.Background(), 1, "photo.png")
	require.NoError(t, err)
	assert.Equal(t, "9b2c.png", image.StoredFileName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManager_WithinTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commits and routes queries through the transaction", func(t *testing.T) {
		mock, repos := newMock(t)

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM product_tags WHERE product_id = \$1`).
			WithArgs(int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(`DELETE FROM products WHERE id = \$1`).
			WithArgs(int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
			if err := repos.ProductTags.RemoveAllForProduct(ctx, 1); err != nil {
				return err
			}
			return repos.Products.Delete(ctx, 1)
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		mock, repos := newMock(t)
		boom := errors.New("boom")

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := repos.Tx.WithinTx(ctx, func(ctx context.Context) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nested calls join the outer transaction", func(t *testing.T) {
		mock, repos := newMock(t)

		mock.ExpectBegin()
		mock.ExpectCommit()

		err := repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
			return repos.Tx.WithinTx(ctx, func(ctx context.Context) error { return nil })
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
