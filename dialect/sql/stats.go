package sql

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/syssam/hierarchy/dialect"
)

// QueryStats counts the statements and transactions seen by a StatsDriver.
// A level-by-level traversal shows up as one transaction and one query
// per level.
type QueryStats struct {
	queries, execs     atomic.Int64
	txs                atomic.Int64
	commits, rollbacks atomic.Int64
	slow, errors       atomic.Int64
	elapsed            atomic.Int64
}

// Snapshot is a copy of QueryStats taken at one point in time.
type Snapshot struct {
	TotalQueries int64
	TotalExecs   int64
	TotalTxs     int64
	Commits      int64
	Rollbacks    int64
	SlowQueries  int64
	Errors       int64
	Elapsed      time.Duration
}

// Stats returns the current counters.
func (s *QueryStats) Stats() Snapshot {
	return Snapshot{
		TotalQueries: s.queries.Load(),
		TotalExecs:   s.execs.Load(),
		TotalTxs:     s.txs.Load(),
		Commits:      s.commits.Load(),
		Rollbacks:    s.rollbacks.Load(),
		SlowQueries:  s.slow.Load(),
		Errors:       s.errors.Load(),
		Elapsed:      time.Duration(s.elapsed.Load()),
	}
}

// Reset zeroes every counter.
func (s *QueryStats) Reset() {
	for _, c := range [...]*atomic.Int64{&s.queries, &s.execs, &s.txs, &s.commits, &s.rollbacks, &s.slow, &s.errors, &s.elapsed} {
		c.Store(0)
	}
}

func (s Snapshot) String() string {
	return fmt.Sprintf("queries=%d execs=%d txs=%d (commit=%d rollback=%d) slow=%d errors=%d elapsed=%s",
		s.TotalQueries, s.TotalExecs, s.TotalTxs, s.Commits, s.Rollbacks, s.SlowQueries, s.Errors, s.Elapsed)
}

// SlowQueryHook is called for every statement slower than the threshold.
type SlowQueryHook func(ctx context.Context, query string, args []any, took time.Duration)

// StatsOption configures a StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the duration above which a statement is slow.
// The default is 100ms. A negative value marks every statement as slow.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) { s.threshold.Store(int64(d)) }
}

// WithSlowQueryHook registers a callback for slow statements.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsDriver) { s.onSlow = hook }
}

// WithSlowQueryLog reports slow statements as warnings on l, or on the
// default logger when l is nil.
func WithSlowQueryLog(l *slog.Logger) StatsOption {
	return WithSlowQueryHook(func(ctx context.Context, query string, args []any, took time.Duration) {
		logger := l
		if logger == nil {
			logger = slog.Default()
		}
		logger.WarnContext(ctx, "slow query detected", "duration", took, "query", query, "args", args)
	})
}

// StatsDriver counts the statements run through a Driver, including
// those inside transactions it begins.
//
//	drv := sql.NewStatsDriver(base, sql.WithSlowQueryLog(nil))
//	rows, err := q.All(ctx, drv)
//	fmt.Println(drv.QueryStats().Stats())
type StatsDriver struct {
	*Driver
	stats     QueryStats
	threshold atomic.Int64
	onSlow    SlowQueryHook
}

// NewStatsDriver wraps drv.
func NewStatsDriver(drv *Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{Driver: drv}
	s.threshold.Store(int64(100 * time.Millisecond))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueryStats returns the live counters.
func (d *StatsDriver) QueryStats() *QueryStats { return &d.stats }

// SlowThreshold returns the slow statement threshold.
func (d *StatsDriver) SlowThreshold() time.Duration {
	return time.Duration(d.threshold.Load())
}

// SetSlowThreshold changes the slow statement threshold. It is safe to
// call while statements run.
func (d *StatsDriver) SetSlowThreshold(t time.Duration) {
	d.threshold.Store(int64(t))
}

// Query runs a query and counts it.
func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	return d.observe(ctx, &d.stats.queries, query, args, func() error {
		return d.Driver.Query(ctx, query, args, v)
	})
}

// Exec runs a statement and counts it.
func (d *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	return d.observe(ctx, &d.stats.execs, query, args, func() error {
		return d.Driver.Exec(ctx, query, args, v)
	})
}

func (d *StatsDriver) observe(ctx context.Context, counter *atomic.Int64, query string, args any, run func() error) error {
	start := time.Now()
	err := run()
	took := time.Since(start)
	counter.Add(1)
	d.stats.elapsed.Add(int64(took))
	if err != nil {
		d.stats.errors.Add(1)
	}
	if took > d.SlowThreshold() {
		d.stats.slow.Add(1)
		if d.onSlow != nil {
			argv, _ := args.([]any)
			d.onSlow(ctx, query, argv, took)
		}
	}
	return err
}

// Tx begins a counted transaction.
func (d *StatsDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	return d.BeginTx(ctx, nil)
}

// BeginTx begins a counted transaction with options.
func (d *StatsDriver) BeginTx(ctx context.Context, opts *TxOptions) (dialect.Tx, error) {
	tx, err := d.Driver.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	d.stats.txs.Add(1)
	return &StatsTx{Tx: tx, drv: d}, nil
}

// StatsTx is a transaction begun by a StatsDriver.
type StatsTx struct {
	dialect.Tx
	drv *StatsDriver
}

// Query runs a query in the transaction and counts it.
func (tx *StatsTx) Query(ctx context.Context, query string, args, v any) error {
	return tx.drv.observe(ctx, &tx.drv.stats.queries, query, args, func() error {
		return tx.Tx.Query(ctx, query, args, v)
	})
}

// Exec runs a statement in the transaction and counts it.
func (tx *StatsTx) Exec(ctx context.Context, query string, args, v any) error {
	return tx.drv.observe(ctx, &tx.drv.stats.execs, query, args, func() error {
		return tx.Tx.Exec(ctx, query, args, v)
	})
}

// Commit commits and counts the commit.
func (tx *StatsTx) Commit() error {
	tx.drv.stats.commits.Add(1)
	return tx.Tx.Commit()
}

// Rollback rolls back and counts the rollback.
func (tx *StatsTx) Rollback() error {
	tx.drv.stats.rollbacks.Add(1)
	return tx.Tx.Rollback()
}

var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Tx     = (*StatsTx)(nil)
)
