package hierarchy

import (
	"context"
	"fmt"
	"time"

	"github.com/syssam/hierarchy/dialect"
	"github.com/syssam/hierarchy/dialect/sql"
)

// Backend is a database a hierarchy query runs on.
type Backend interface {
	dialect.Driver
	// ServerVersion reports the version of the server. It is only called
	// for dialects with a minimum version.
	ServerVersion(context.Context) (dialect.Version, error)
}

var _ Backend = (*sql.Driver)(nil)

// All executes the query on b and returns every row of the hierarchy.
//
// The server version is checked first: a backend below the minimum version
// of the dialect fails with a *HierarchyLesserError before the query is
// sent. Backend errors are returned unchanged. With a cache, rows are
// stored per backend namespace (see CacheNamespacer).
func (q *Query) All(ctx context.Context, b Backend) ([]*Row, error) {
	if name := dialect.Normalize(b.Dialect()); name != q.dialect {
		return nil, fmt.Errorf("%w: query built for %q, backend is %q", ErrDialectMismatch, q.dialect, name)
	}
	var key string
	if q.cache != nil {
		key = q.cacheKey(backendNamespace(b))
		if rows, ok := q.cached(ctx, key); ok {
			q.logger.DebugContext(ctx, "hierarchy: cache hit", "query_id", q.id, "relation", q.relation, "rows", len(rows))
			return rows, nil
		}
	}
	if err := q.checkVersion(ctx, b); err != nil {
		return nil, err
	}
	var (
		rows  []*Row
		err   error
		start = time.Now()
	)
	switch q.strategy {
	case RecursiveCTE, HierarchicalPath:
		rows, err = q.single(ctx, b)
	case IterativeUnion:
		rows, err = q.iterate(ctx, b)
	default:
		err = fmt.Errorf("hierarchy: unknown strategy %s", q.strategy)
	}
	if err != nil {
		q.logger.DebugContext(ctx, "hierarchy: query failed", "query_id", q.id, "strategy", q.strategy, "error", err)
		return nil, err
	}
	q.logger.DebugContext(ctx, "hierarchy: query executed",
		"query_id", q.id,
		"dialect", q.dialect,
		"strategy", q.strategy,
		"relation", q.relation,
		"rows", len(rows),
		"duration", time.Since(start),
	)
	if q.cache != nil {
		q.store(ctx, key, rows)
	}
	return rows, nil
}

// checkVersion asks the backend for its version only when the dialect has
// a minimum version.
func (q *Query) checkVersion(ctx context.Context, b Backend) error {
	if q.capability.MinVersion.IsZero() {
		return nil
	}
	v, err := b.ServerVersion(ctx)
	if err != nil {
		return err
	}
	if err := q.capability.Check(v); err != nil {
		q.logger.WarnContext(ctx, "hierarchy: backend version rejected",
			"query_id", q.id,
			"dialect", q.dialect,
			"version", v.String(),
			"required", q.capability.MinVersion.String(),
		)
		return err
	}
	return nil
}

// single runs the statement of a single-statement strategy.
func (q *Query) single(ctx context.Context, drv dialect.Driver) ([]*Row, error) {
	query, args, err := q.Query()
	if err != nil {
		return nil, err
	}
	rs := &sql.Rows{}
	if err := drv.Query(ctx, query, args, rs); err != nil {
		return nil, err
	}
	records, err := scanRecords(rs, len(q.projection)+3)
	if err != nil {
		return nil, err
	}
	rows := make([]*Row, 0, len(records))
	for _, rec := range records {
		row, err := q.decode(rec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}
