package hierarchy

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/syssam/hierarchy/dialect"
	"github.com/syssam/hierarchy/dialect/sql"
)

// frontierChunk bounds the number of keys bound to a single IN list.
const frontierChunk = 500

// txBeginner is implemented by drivers that accept transaction options.
type txBeginner interface {
	BeginTx(context.Context, *sql.TxOptions) (dialect.Tx, error)
}

// txOptions returns the isolation used by the level-by-level traversal, so
// that every level reads the same snapshot. Nil means the driver default.
func (q *Query) txOptions() *sql.TxOptions {
	switch q.dialect {
	case dialect.Postgres, dialect.MySQL:
		return &sql.TxOptions{Isolation: stdsql.LevelRepeatableRead, ReadOnly: true}
	case dialect.Oracle, dialect.SQLServer:
		return &sql.TxOptions{Isolation: stdsql.LevelSerializable}
	default:
		return nil
	}
}

func beginTx(ctx context.Context, drv dialect.Driver, opts *sql.TxOptions) (dialect.Tx, error) {
	if b, ok := drv.(txBeginner); ok && opts != nil {
		return b.BeginTx(ctx, opts)
	}
	return drv.Tx(ctx)
}

// rootQuery returns the statement selecting the root rows.
func (q *Query) rootQuery() (string, []any) {
	b := sql.NewBuilder(q.dialect)
	q.selectFiltered(b)
	b.WriteString(" WHERE ")
	q.rootCondition(b, func(b *sql.Builder) { b.Wrap(q.filtered) })
	return b.Query()
}

// childrenQuery returns the statement selecting the children of keys.
func (q *Query) childrenQuery(keys []any) (string, []any) {
	b := sql.NewBuilder(q.dialect)
	q.selectFiltered(b)
	b.WriteString(" WHERE ")
	qualified(b, rowAlias, q.fk)
	b.WriteString(" IN (").Args(keys...).WriteByte(')')
	return b.Query()
}

func (q *Query) selectFiltered(b *sql.Builder) {
	b.WriteString("SELECT ")
	qualifiedList(b, rowAlias, q.carried)
	b.WriteString(" FROM ").Wrap(q.filtered).Pad().Ident(rowAlias)
}

// iterate walks the hierarchy one level at a time inside one transaction.
// Level and path are derived from the parent of each row and a row is a
// leaf when no row of the next level points to it. A row reached twice is
// not expanded again.
func (q *Query) iterate(ctx context.Context, drv dialect.Driver) (_ []*Row, rerr error) {
	tx, err := beginTx(ctx, drv, q.txOptions())
	if err != nil {
		return nil, fmt.Errorf("hierarchy: begin transaction: %w", err)
	}
	defer func() {
		if rerr != nil {
			if err := tx.Rollback(); err != nil && !errors.Is(err, stdsql.ErrTxDone) {
				q.logger.WarnContext(ctx, "hierarchy: rollback failed", "query_id", q.id, "error", err)
			}
		}
	}()
	var (
		out     []*Row
		visited = make(map[string]*Row)
		pkIdx   = slices.Index(q.carried, q.pk)
		fkIdx   = slices.Index(q.carried, q.fk)
	)
	query, args := q.rootQuery()
	records, err := q.fetch(ctx, tx, query, args)
	if err != nil {
		return nil, err
	}
	for depth := 1; len(records) > 0; depth++ {
		frontier := make([]any, 0, len(records))
		for _, rec := range records {
			key := keyString(rec[pkIdx])
			if _, ok := visited[key]; ok {
				continue
			}
			row := q.newRow()
			for i, c := range q.carried {
				if slices.Contains(q.projection, c) {
					row.Values[c] = rec[i]
				}
			}
			row.Level, row.IsLeaf, row.ConnectPath = depth, true, key
			if depth > 1 {
				if parent, ok := visited[keyString(rec[fkIdx])]; ok {
					parent.IsLeaf = false
					row.ConnectPath = parent.ConnectPath + q.sep + key
				}
			}
			visited[key] = row
			out = append(out, row)
			frontier = append(frontier, rec[pkIdx])
		}
		records = records[:0]
		for chunk := range slices.Chunk(frontier, frontierChunk) {
			query, args := q.childrenQuery(chunk)
			next, err := q.fetch(ctx, tx, query, args)
			if err != nil {
				return nil, err
			}
			records = append(records, next...)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("hierarchy: commit transaction: %w", err)
	}
	return out, nil
}

// fetch runs a query of the traversal and returns its records, aligned
// with the carried columns.
func (q *Query) fetch(ctx context.Context, tx dialect.Tx, query string, args []any) ([][]any, error) {
	rows := &sql.Rows{}
	if err := tx.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	return scanRecords(rows, len(q.carried))
}
