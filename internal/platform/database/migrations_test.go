package database

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	migrations, err := LoadMigrationsFromFS(embeddedMigrations, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	initial := migrations[0]
	assert.Equal(t, "001", initial.Version)
	assert.Equal(t, "initial schema", initial.Description)

	for _, table := range []string{"categories", "products", "tags", "product_tags", "product_images"} {
		assert.Contains(t, initial.SQL, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
	assert.Contains(t, initial.SQL, "CHECK (stock_quantity >= 0)")
	assert.Contains(t, initial.SQL, "UNIQUE (product_id, tag_id)")
}

func TestLoadMigrationsFromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/002_add_sku.sql":        {Data: []byte("ALTER TABLE products ADD COLUMN sku TEXT;")},
		"sql/001_initial_schema.sql": {Data: []byte("CREATE TABLE IF NOT EXISTS t (id INT);")},
		"sql/README.md":              {Data: []byte("ignored")},
	}

	migrations, err := LoadMigrationsFromFS(fsys, "sql")
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, "001", migrations[0].Version)
	assert.Equal(t, "002", migrations[1].Version)
	assert.Equal(t, "add sku", migrations[1].Description)

	_, err = LoadMigrationsFromFS(fstest.MapFS{"sql/bad.sql": {Data: []byte("x")}}, "sql")
	assert.Error(t, err)
}

func TestRunMigrations(t *testing.T) {
	ctx := context.Background()

	t.Run("applies pending migrations", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT version FROM schema_migrations`).
			WillReturnRows(sqlmock.NewRows([]string{"version"}))
		mock.ExpectBegin()
		mock.ExpectExec(`CREATE TABLE IF NOT EXISTS categories`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`INSERT INTO schema_migrations`).
			WithArgs("001", "initial schema").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		applied, err := RunMigrations(ctx, db)
		require.NoError(t, err)
		assert.Equal(t, []string{"001"}, applied)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("skips applied migrations", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT version FROM schema_migrations`).
			WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("001"))

		applied, err := RunMigrations(ctx, db)
		require.NoError(t, err)
		assert.Empty(t, applied)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed migration rolls back", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT version FROM schema_migrations`).
			WillReturnRows(sqlmock.NewRows([]string{"version"}))
		mock.ExpectBegin()
		mock.ExpectExec(`CREATE TABLE IF NOT EXISTS categories`).
			WillReturnError(errors.New("syntax error"))
		mock.ExpectRollback()

		_, err = RunMigrations(ctx, db)
		assert.ErrorIs(t, err, ErrMigrationFailed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
