package dialect

import (
	"context"
	"strings"
)

// Dialect names for external usage.
const (
	MySQL     = "mysql"
	SQLite    = "sqlite"
	Postgres  = "postgres"
	SQLServer = "sqlserver"
	Oracle    = "oracle"
)

// ExecQuerier wraps the 2 database operations.
type ExecQuerier interface {
	// Exec executes a query that does not return records. For example, in SQL, INSERT or UPDATE.
	// It scans the result into the pointer v. For SQL drivers, it is dialect/sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows, typically a SELECT in SQL.
	// It scans the result into the pointer v. For SQL drivers, it is *dialect/sql.Rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all necessary operations for hierarchy queries.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	// The provided context is used until the transaction is committed or rolled back.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps the Exec and Query operations in transaction.
type Tx interface {
	ExecQuerier
	Commit() error
	Rollback() error
}

// Known returns all dialects with native support.
func Known() []string {
	return []string{Postgres, MySQL, SQLite, SQLServer, Oracle}
}

// Normalize maps a driver name to its dialect name. Driver names that only
// extend a dialect name, such as "sqlite3" or "postgres+otel", resolve to the
// dialect. Unknown names are returned lower-cased.
func Normalize(name string) string {
	name = strings.ToLower(name)
	switch {
	case name == "pgx", name == "postgresql":
		return Postgres
	case name == "mssql":
		return SQLServer
	case name == "godror", name == "oci8":
		return Oracle
	}
	for _, d := range Known() {
		if strings.HasPrefix(name, d) {
			return d
		}
	}
	return name
}
