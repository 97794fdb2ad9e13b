package sql

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"

	"github.com/syssam/hierarchy/dialect"

	"golang.org/x/sync/singleflight"
)

type (
	// Rows is the destination of Conn.Query.
	Rows struct{ ColumnScanner }
	// Result is the destination of Conn.Exec.
	Result = sql.Result
	// TxOptions configures Driver.BeginTx.
	TxOptions = sql.TxOptions
)

// ColumnScanner is the part of *sql.Rows that hierarchy queries read.
type ColumnScanner interface {
	Close() error
	Columns() ([]string, error)
	Err() error
	Next() bool
	Scan(dest ...any) error
}

// ExecQuerier is implemented by *sql.DB, *sql.Conn and *sql.Tx.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Conn adapts an ExecQuerier to dialect.ExecQuerier.
type Conn struct {
	ExecQuerier
	dialect string
}

// Exec runs a statement. v is either nil or a *Result.
func (c Conn) Exec(ctx context.Context, query string, args, v any) error {
	argv, err := argList("exec", args)
	if err != nil {
		return err
	}
	res, ok := v.(*Result)
	if v != nil && !ok {
		return fmt.Errorf("dialect/sql: exec: destination is %T, not *sql.Result", v)
	}
	r, err := c.ExecContext(ctx, query, argv...)
	if err != nil {
		return fmt.Errorf("dialect/sql: exec: %w", err)
	}
	if res != nil {
		*res = r
	}
	return nil
}

// Query runs a statement and stores its cursor in v, which must be a *Rows.
// The caller closes it.
func (c Conn) Query(ctx context.Context, query string, args, v any) error {
	dst, ok := v.(*Rows)
	if !ok {
		return fmt.Errorf("dialect/sql: query: destination is %T, not *sql.Rows", v)
	}
	argv, err := argList("query", args)
	if err != nil {
		return err
	}
	rows, err := c.QueryContext(ctx, query, argv...)
	if err != nil {
		return fmt.Errorf("dialect/sql: query: %w", err)
	}
	dst.ColumnScanner = rows
	return nil
}

func argList(op string, args any) ([]any, error) {
	switch args := args.(type) {
	case nil:
		return nil, nil
	case []any:
		return args, nil
	default:
		return nil, fmt.Errorf("dialect/sql: %s: arguments are %T, not []any", op, args)
	}
}

// Driver is a dialect.Driver backed by a *sql.DB pool.
type Driver struct {
	Conn
	db        *sql.DB
	namespace string
	version   atomic.Pointer[dialect.Version]
	probe     singleflight.Group
}

// Open opens a pool with database/sql and wraps it. The driver name is
// also the dialect name, after normalization.
func Open(name, source string) (*Driver, error) {
	db, err := sql.Open(name, source)
	if err != nil {
		return nil, err
	}
	return OpenDB(name, db), nil
}

// OpenDB wraps an existing pool.
func OpenDB(name string, db *sql.DB) *Driver {
	return &Driver{Conn: Conn{ExecQuerier: db, dialect: name}, db: db}
}

// DB returns the wrapped pool.
func (d *Driver) DB() *sql.DB { return d.db }

// Dialect returns the normalized dialect name, so a "pgx" driver
// reports postgres.
func (d *Driver) Dialect() string {
	return dialect.Normalize(d.dialect)
}

// SetNamespace names the database the driver is connected to, such as
// "billing-primary". Drivers of the same namespace share cached hierarchy
// results, including drivers living in other processes. Call it before
// the driver is used.
func (d *Driver) SetNamespace(ns string) *Driver {
	d.namespace = ns
	return d
}

// CacheNamespace returns the namespace set with SetNamespace. Without one,
// the namespace identifies the pool of this process.
func (d *Driver) CacheNamespace() string {
	if d.namespace != "" {
		return d.namespace
	}
	return fmt.Sprintf("%s@%p", d.Dialect(), d.db)
}

// Tx begins a transaction with the default options.
func (d *Driver) Tx(ctx context.Context) (dialect.Tx, error) {
	return d.BeginTx(ctx, nil)
}

// BeginTx begins a transaction. A nil opts uses the driver defaults.
func (d *Driver) BeginTx(ctx context.Context, opts *TxOptions) (dialect.Tx, error) {
	tx, err := d.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: begin: %w", err)
	}
	return &Tx{Conn: Conn{ExecQuerier: tx, dialect: d.dialect}, tx: tx}, nil
}

// Close closes the pool.
func (d *Driver) Close() error { return d.db.Close() }

// Tx is a dialect.Tx over a *sql.Tx.
type Tx struct {
	Conn
	tx *sql.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit() error { return t.tx.Commit() }

// Rollback aborts the transaction.
func (t *Tx) Rollback() error { return t.tx.Rollback() }

var (
	_ dialect.Driver = (*Driver)(nil)
	_ dialect.Tx     = (*Tx)(nil)
)
