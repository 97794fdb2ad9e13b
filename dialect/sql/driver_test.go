package sql

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/syssam/hierarchy/dialect"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriverDialect(t *testing.T) {
	tests := []struct {
		driver string
		want   string
	}{
		{dialect.Postgres, dialect.Postgres},
		{"pgx", dialect.Postgres},
		{dialect.MySQL, dialect.MySQL},
		{"sqlite3", dialect.SQLite},
		{"mssql", dialect.SQLServer},
		{"godror", dialect.Oracle},
		{"duckdb", "duckdb"},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			db, _, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			assert.Equal(t, tt.want, OpenDB(tt.driver, db).Dialect())
		})
	}
}

func TestDriverServerVersion(t *testing.T) {
	tests := []struct {
		dialect string
		query   string
		reply   string
		want    dialect.Version
	}{
		{dialect.Postgres, "SHOW server_version_num", "160002", dialect.V(16, 2)},
		{dialect.Postgres, "SHOW server_version_num", "90624", dialect.V(9, 6, 24)},
		{dialect.Postgres, "SHOW server_version_num", "80300", dialect.V(8, 3)},
		{dialect.MySQL, "SELECT VERSION()", "8.0.36-0ubuntu0.22.04.1", dialect.V(8, 0, 36)},
		{dialect.SQLite, "SELECT sqlite_version()", "3.45.1", dialect.V(3, 45, 1)},
		{dialect.SQLServer, "SELECT CAST(SERVERPROPERTY('ProductVersion') AS NVARCHAR(128))", "16.0.1000.6", dialect.V(16, 0, 1000)},
		{dialect.Oracle, "SELECT version FROM product_component_version WHERE product LIKE 'Oracle%'", "19.0.0.0.0", dialect.V(19)},
	}
	for _, tt := range tests {
		t.Run(tt.dialect+"/"+tt.reply, func(t *testing.T) {
			db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
			require.NoError(t, err)
			defer db.Close()
			mock.ExpectQuery(tt.query).WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(tt.reply))

			drv := OpenDB(tt.dialect, db)
			v, err := drv.ServerVersion(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)

			// The answer is cached.
			v, err = drv.ServerVersion(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDriverServerVersionConcurrent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery("SELECT sqlite_version()").WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow("3.46.0"))

	drv := OpenDB(dialect.SQLite, db)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := drv.ServerVersion(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, dialect.V(3, 46), v)
		}()
	}
	wg.Wait()
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDriverServerVersionError(t *testing.T) {
	t.Run("QueryFails", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		errDown := errors.New("connection refused")
		mock.ExpectQuery("SELECT VERSION()").WillReturnError(errDown)
		mock.ExpectQuery("SELECT VERSION()").WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow("8.4.0"))

		drv := OpenDB(dialect.MySQL, db)
		_, err = drv.ServerVersion(context.Background())
		require.ErrorIs(t, err, errDown)

		// Failures are not cached.
		v, err := drv.ServerVersion(context.Background())
		require.NoError(t, err)
		assert.Equal(t, dialect.V(8, 4), v)
		require.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("NoRows", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectQuery("SELECT VERSION()").WillReturnRows(sqlmock.NewRows([]string{"v"}))
		_, err = OpenDB(dialect.MySQL, db).ServerVersion(context.Background())
		require.Error(t, err)
	})
	t.Run("UnknownDialect", func(t *testing.T) {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		_, err = OpenDB("duckdb", db).ServerVersion(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duckdb")
	})
}

func TestDriverQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.Postgres, db)

	t.Run("WithArgs", func(t *testing.T) {
		mock.ExpectQuery(`SELECT "name" FROM "category" WHERE "id" = \$1`).
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("root"))
		rows := &Rows{}
		query, args := Select("name").From(Table("category")).Where(EQ("id", 1)).SetDialect(dialect.Postgres).Query()
		require.NoError(t, drv.Query(context.Background(), query, args, rows))
		require.True(t, rows.Next())
		var name string
		require.NoError(t, rows.Scan(&name))
		assert.Equal(t, "root", name)
		require.NoError(t, rows.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error", func(t *testing.T) {
		errDB := errors.New("database error")
		mock.ExpectQuery("SELECT").WillReturnError(errDB)
		err := drv.Query(context.Background(), "SELECT 1", []any{}, &Rows{})
		require.ErrorIs(t, err, errDB)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("InvalidDestination", func(t *testing.T) {
		var n int
		err := drv.Query(context.Background(), "SELECT 1", []any{}, &n)
		require.EqualError(t, err, "dialect/sql: query: destination is *int, not *sql.Rows")
		err = drv.Query(context.Background(), "SELECT 1", []int{1}, &Rows{})
		require.EqualError(t, err, "dialect/sql: query: arguments are []int, not []any")
	})
}

func TestDriverExec(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.SQLite, db)
	ctx := context.Background()

	mock.ExpectExec("DELETE FROM category").WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 2))
	var res Result
	require.NoError(t, drv.Exec(ctx, "DELETE FROM category WHERE id = ?", []any{7}, &res))
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	mock.ExpectExec("DROP TABLE category").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, drv.Exec(ctx, "DROP TABLE category", nil, nil))

	err = drv.Exec(ctx, "DROP TABLE category", nil, &Rows{})
	require.EqualError(t, err, "dialect/sql: exec: destination is *sql.Rows, not *sql.Result")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDriverTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.Postgres, db)

	t.Run("Commit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectCommit()
		tx, err := drv.BeginTx(context.Background(), &TxOptions{ReadOnly: true})
		require.NoError(t, err)
		rows := &Rows{}
		require.NoError(t, tx.Query(context.Background(), "SELECT id FROM category", []any{}, rows))
		require.NoError(t, rows.Close())
		require.NoError(t, tx.Commit())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rollback", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT").WillReturnError(errors.New("boom"))
		mock.ExpectRollback()
		tx, err := drv.Tx(context.Background())
		require.NoError(t, err)
		require.Error(t, tx.Query(context.Background(), "SELECT id FROM category", []any{}, &Rows{}))
		require.NoError(t, tx.Rollback())
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDriverCacheNamespace(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	a, b := OpenDB(dialect.Postgres, db), OpenDB("pgx", db)
	assert.Equal(t, a.CacheNamespace(), b.CacheNamespace())
	assert.Contains(t, a.CacheNamespace(), "postgres@")

	other, _, err := sqlmock.New()
	require.NoError(t, err)
	defer other.Close()
	assert.NotEqual(t, a.CacheNamespace(), OpenDB(dialect.Postgres, other).CacheNamespace())
	assert.Equal(t, "billing", a.SetNamespace("billing").CacheNamespace())
	assert.Equal(t, "billing", NewStatsDriver(a).CacheNamespace())
}
