package hierarchy

import (
	"github.com/syssam/hierarchy/dialect"
	"github.com/syssam/hierarchy/dialect/sql"
)

// filtered writes the base query: the carried columns of the rows that
// satisfy the base predicate. Every traversal step reads from it, so the
// predicate applies at every level.
func (q *Query) filtered(b *sql.Builder) {
	sql.Select(q.carried...).From(q.from).Where(q.where).Render(b)
}

// rootCondition writes the predicate selecting the root rows of the
// traversal, with rowAlias as the candidate row. source writes the relation
// holding the filtered rows, used to detect orphans.
func (q *Query) rootCondition(b *sql.Builder, source func(*sql.Builder)) {
	switch {
	case q.start != nil && q.start.inclusive:
		qualified(b, rowAlias, q.pk)
		b.WriteString(" = ").Arg(q.start.key)
	case q.start != nil:
		qualified(b, rowAlias, q.fk)
		b.WriteString(" = ").Arg(q.start.key)
	case q.orphans == PruneOrphans:
		qualified(b, rowAlias, q.fk)
		b.WriteString(" IS NULL")
	default:
		qualified(b, rowAlias, q.fk)
		b.WriteString(" IS NULL OR NOT EXISTS (SELECT 1 FROM ")
		source(b)
		b.Pad().Ident(parentAlias).WriteString(" WHERE ")
		qualified(b, parentAlias, q.pk)
		b.WriteString(" = ")
		qualified(b, rowAlias, q.fk)
		b.WriteByte(')')
	}
}

// recursive writes the RecursiveCTE statement:
//
//	WITH RECURSIVE filtered AS (base query),
//	tree (columns, level, path) AS (
//		SELECT root rows FROM filtered t WHERE root condition
//		UNION ALL
//		SELECT children FROM filtered t JOIN tree h ON t.fk = h.pk
//	)
//	SELECT projection, level, is_leaf, path FROM tree h
func (q *Query) recursive(b *sql.Builder) {
	var (
		cols     = q.computed()
		filtered = q.cte(filteredCTE)
		tree     = q.cte(treeCTE)
	)
	// SQL Server infers recursion from the self reference.
	if q.dialect == dialect.SQLServer {
		b.WriteString("WITH ")
	} else {
		b.WriteString("WITH RECURSIVE ")
	}
	b.Ident(filtered).WriteString(" AS ").Wrap(q.filtered)
	b.Comma().Ident(tree).WriteString(" (")
	b.IdentComma(q.carried...).Comma().IdentComma(q.level, q.path)
	b.WriteString(") AS (SELECT ")
	qualifiedList(b, rowAlias, q.carried)
	b.Comma()
	cols.level(b)
	b.Comma()
	cols.anchorPath(b)
	b.WriteString(" FROM ").Ident(filtered).Pad().Ident(rowAlias).WriteString(" WHERE ")
	q.rootCondition(b, func(b *sql.Builder) { b.Ident(filtered) })
	b.WriteString(" UNION ALL SELECT ")
	qualifiedList(b, rowAlias, q.carried)
	b.Comma()
	cols.stepLevel(b)
	b.Comma()
	cols.stepPath(b)
	b.WriteString(" FROM ").Ident(filtered).Pad().Ident(rowAlias)
	b.WriteString(" JOIN ").Ident(tree).Pad().Ident(treeAlias).WriteString(" ON ")
	qualified(b, rowAlias, q.fk)
	b.WriteString(" = ")
	qualified(b, treeAlias, q.pk)
	b.WriteString(") SELECT ")
	if len(q.projection) > 0 {
		qualifiedList(b, treeAlias, q.projection)
		b.Comma()
	}
	qualified(b, treeAlias, q.level)
	b.Comma()
	cols.isLeaf(b)
	b.WriteString(" AS ").Ident(q.isLeaf).Comma()
	qualified(b, treeAlias, q.path)
	b.WriteString(" FROM ").Ident(tree).Pad().Ident(treeAlias)
	if q.dialect == dialect.SQLServer {
		b.WriteString(" OPTION (MAXRECURSION 0)")
	}
}

// connectBy writes the HierarchicalPath statement:
//
//	WITH filtered AS (base query)
//	SELECT projection, LEVEL, CONNECT_BY_ISLEAF, SYS_CONNECT_BY_PATH(pk)
//	FROM filtered t START WITH root condition CONNECT BY PRIOR t.pk = t.fk
func (q *Query) connectBy(b *sql.Builder) {
	var (
		cols     = q.computed()
		filtered = q.cte(filteredCTE)
	)
	b.WriteString("WITH ").Ident(filtered).WriteString(" AS ").Wrap(q.filtered)
	b.WriteString(" SELECT ")
	if len(q.projection) > 0 {
		qualifiedList(b, rowAlias, q.projection)
		b.Comma()
	}
	cols.level(b)
	b.WriteString(" AS ").Ident(q.level).Comma()
	cols.isLeaf(b)
	b.WriteString(" AS ").Ident(q.isLeaf).Comma()
	cols.path(b)
	b.WriteString(" AS ").Ident(q.path)
	b.WriteString(" FROM ").Ident(filtered).Pad().Ident(rowAlias).WriteString(" START WITH ")
	q.rootCondition(b, func(b *sql.Builder) { b.Ident(filtered) })
	b.WriteString(" CONNECT BY PRIOR ")
	qualified(b, rowAlias, q.pk)
	b.WriteString(" = ")
	qualified(b, rowAlias, q.fk)
}
