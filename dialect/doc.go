// Package dialect names the database backends a hierarchy query can target
// and the minimal driver surface it runs on.
//
// The five native dialects are Postgres, MySQL, SQLite, SQLServer and
// Oracle. Driver names are folded onto them by Normalize ("pgx" and
// "postgresql" are Postgres, "mssql" is SQLServer, "sqlite3" is SQLite).
// Any other name is kept, lower-cased: such backends are driven with the
// level-by-level traversal and never asked for their version.
//
// A Driver runs statements through Exec and Query and begins transactions
// with Tx. Both Driver and Tx satisfy ExecQuerier, so the traversal code
// does not care whether it runs inside a transaction.
//
// A backend is identified by its dialect name and a Version, parsed from
// whatever the server reports:
//
//	v, err := dialect.ParseVersion("8.0.35-0ubuntu0.22.04.1")
//	v.String() // "8.0.35"
//
// The database/sql implementation lives in dialect/sql.
package dialect
