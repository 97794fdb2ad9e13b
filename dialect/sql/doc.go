// Package sql provides the statement builder, predicates and database/sql
// driver used by hierarchy queries.
//
// # Builder Types
//
//   - Builder: low-level SQL string builder with identifier quoting,
//     literals and dialect placeholders
//   - Selector: SELECT builder describing the base query of a hierarchy
//   - Predicate: WHERE condition, rendered with fresh placeholders every
//     time it is written
//
// # Dialect Support
//
// Identifiers and placeholders follow the dialect of the builder:
//
//	sql.Select("id", "name").
//	    From(sql.Table("category")).
//	    Where(sql.EQ("active", true)).
//	    SetDialect(dialect.Postgres).
//	    Query()
//	// SELECT "id", "name" FROM "category" WHERE "active" = $1
//
// MySQL quotes with backticks and binds "?", SQL Server quotes with
// brackets and binds "@p1", Oracle binds ":1".
//
// # Predicates
//
//	sql.EQ("name", "john")           // name = ?
//	sql.NEQ("status", "deleted")     // status <> ?
//	sql.GT("age", 18)                // age > ?
//	sql.HasPrefix("email", "admin")  // email LIKE ? ESCAPE '\'
//	sql.IsNull("deleted_at")         // deleted_at IS NULL
//	sql.In("status", "a", "b")       // status IN (?, ?)
//
// # Drivers
//
// Driver wraps a *sql.DB and reports the server version of the dialect
// once per driver:
//
//	drv, err := sql.Open(dialect.Postgres, dsn)
//	v, err := drv.ServerVersion(ctx)
//
// StatsDriver and DebugDriver wrap a Driver to count or log every
// statement, transactions included.
package sql
