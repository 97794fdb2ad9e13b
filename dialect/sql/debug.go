package sql

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/syssam/hierarchy/dialect"
)

// DebugDriver logs every statement before running it through a Driver.
type DebugDriver struct {
	*Driver
	log func(context.Context, ...any)
}

// DebugOption configures a DebugDriver.
type DebugOption func(*DebugDriver)

// DebugWithLog sends log lines to fn.
func DebugWithLog(fn func(context.Context, ...any)) DebugOption {
	return func(d *DebugDriver) { d.log = fn }
}

// DebugWithLogger sends log lines to l at debug level.
func DebugWithLogger(l *slog.Logger) DebugOption {
	return DebugWithLog(func(ctx context.Context, v ...any) {
		l.DebugContext(ctx, fmt.Sprint(v...), "dialect", "sql")
	})
}

// NewDebugDriver wraps drv. Without options lines go to the default
// logger at info level.
func NewDebugDriver(drv *Driver, opts ...DebugOption) *DebugDriver {
	d := &DebugDriver{Driver: drv}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = func(ctx context.Context, v ...any) { slog.InfoContext(ctx, fmt.Sprint(v...)) }
	}
	return d
}

func (d *DebugDriver) logf(ctx context.Context, format string, v ...any) {
	d.log(ctx, fmt.Sprintf(format, v...))
}

// Query logs and runs a query.
func (d *DebugDriver) Query(ctx context.Context, query string, args, v any) error {
	d.logf(ctx, "query: %s args: %v", query, args)
	return d.Driver.Query(ctx, query, args, v)
}

// Exec logs and runs a statement.
func (d *DebugDriver) Exec(ctx context.Context, query string, args, v any) error {
	d.logf(ctx, "exec: %s args: %v", query, args)
	return d.Driver.Exec(ctx, query, args, v)
}

// ServerVersion logs the version reported by the server.
func (d *DebugDriver) ServerVersion(ctx context.Context) (dialect.Version, error) {
	v, err := d.Driver.ServerVersion(ctx)
	if err != nil {
		d.logf(ctx, "server version: %v", err)
		return v, err
	}
	d.logf(ctx, "server version: %s %s", d.Dialect(), v)
	return v, nil
}

// Tx begins a logged transaction.
func (d *DebugDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	return d.BeginTx(ctx, nil)
}

// BeginTx begins a logged transaction with options.
func (d *DebugDriver) BeginTx(ctx context.Context, opts *TxOptions) (dialect.Tx, error) {
	if opts == nil {
		d.log(ctx, "begin transaction")
	} else {
		d.logf(ctx, "begin transaction: isolation=%s read_only=%t", opts.Isolation, opts.ReadOnly)
	}
	tx, err := d.Driver.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &DebugTx{Tx: tx, drv: d}, nil
}

// DebugTx is a transaction begun by a DebugDriver.
type DebugTx struct {
	dialect.Tx
	drv *DebugDriver
}

// Query logs and runs a query in the transaction.
func (tx *DebugTx) Query(ctx context.Context, query string, args, v any) error {
	tx.drv.logf(ctx, "tx query: %s args: %v", query, args)
	return tx.Tx.Query(ctx, query, args, v)
}

// Exec logs and runs a statement in the transaction.
func (tx *DebugTx) Exec(ctx context.Context, query string, args, v any) error {
	tx.drv.logf(ctx, "tx exec: %s args: %v", query, args)
	return tx.Tx.Exec(ctx, query, args, v)
}

// Commit logs and commits.
func (tx *DebugTx) Commit() error {
	tx.drv.log(context.Background(), "commit transaction")
	return tx.Tx.Commit()
}

// Rollback logs and rolls back.
func (tx *DebugTx) Rollback() error {
	tx.drv.log(context.Background(), "rollback transaction")
	return tx.Tx.Rollback()
}

var (
	_ dialect.Driver = (*DebugDriver)(nil)
	_ dialect.Tx     = (*DebugTx)(nil)
)
