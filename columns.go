package hierarchy

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/syssam/hierarchy/dialect"
	"github.com/syssam/hierarchy/dialect/sql"
)

// Aliases of the relations inside a hierarchy statement.
const (
	rowAlias    = "t" // row being visited
	parentAlias = "p" // candidate parent in the orphan check
	treeAlias   = "h" // rows accumulated by the recursion
	childAlias  = "c" // candidate child in the leaf check
)

// Names of the common table expressions.
const (
	filteredCTE = "filtered"
	treeCTE     = "tree"
)

// columnSet renders the computed columns of one strategy. The anchor and
// step expressions are only set for RecursiveCTE, where level and path are
// computed once for the root rows and once per recursion step.
type columnSet struct {
	level      func(*sql.Builder)
	isLeaf     func(*sql.Builder)
	path       func(*sql.Builder)
	stepLevel  func(*sql.Builder)
	stepPath   func(*sql.Builder)
	anchorPath func(*sql.Builder)
}

// computed returns the expressions of the level, is_leaf and connect_path
// columns for the strategy of q. IterativeUnion computes them in Go and
// has no expressions.
func (q *Query) computed() columnSet {
	switch q.strategy {
	case RecursiveCTE:
		return columnSet{
			level: func(b *sql.Builder) {
				b.WriteString("1")
			},
			anchorPath: func(b *sql.Builder) {
				q.castText(b, func(b *sql.Builder) { qualified(b, rowAlias, q.pk) })
			},
			stepLevel: func(b *sql.Builder) {
				qualified(b, treeAlias, q.level)
				b.WriteString(" + 1")
			},
			stepPath: func(b *sql.Builder) {
				q.concat(b,
					func(b *sql.Builder) { qualified(b, treeAlias, q.path) },
					func(b *sql.Builder) { b.Literal(q.sep) },
					func(b *sql.Builder) {
						q.castText(b, func(b *sql.Builder) { qualified(b, rowAlias, q.pk) })
					},
				)
			},
			isLeaf: func(b *sql.Builder) {
				b.WriteString("CASE WHEN EXISTS (SELECT 1 FROM ").Ident(q.cte(treeCTE)).Pad().Ident(childAlias)
				b.WriteString(" WHERE ")
				qualified(b, childAlias, q.fk)
				b.WriteString(" = ")
				qualified(b, treeAlias, q.pk)
				b.WriteString(") THEN 0 ELSE 1 END")
			},
		}
	case HierarchicalPath:
		return columnSet{
			level: func(b *sql.Builder) {
				b.WriteString("LEVEL")
			},
			isLeaf: func(b *sql.Builder) {
				b.WriteString("CONNECT_BY_ISLEAF")
			},
			// SYS_CONNECT_BY_PATH prefixes every key with the separator,
			// including the first one.
			path: func(b *sql.Builder) {
				b.WriteString("SUBSTR(SYS_CONNECT_BY_PATH(")
				qualified(b, rowAlias, q.pk)
				b.Comma().Literal(q.sep).WriteString("), ")
				b.WriteString(strconv.Itoa(utf8.RuneCountInString(q.sep) + 1))
				b.WriteByte(')')
			},
		}
	default:
		return columnSet{}
	}
}

// castText writes expr converted to the text type of the dialect.
func (q *Query) castText(b *sql.Builder, expr func(*sql.Builder)) {
	b.WriteString("CAST(")
	expr(b)
	b.WriteString(" AS ").WriteString(textType(q.dialect)).WriteByte(')')
}

// concat writes the string concatenation of parts.
func (q *Query) concat(b *sql.Builder, parts ...func(*sql.Builder)) {
	switch q.dialect {
	case dialect.MySQL:
		b.WriteString("CONCAT(")
		for i, p := range parts {
			if i > 0 {
				b.Comma()
			}
			p(b)
		}
		b.WriteByte(')')
	case dialect.SQLServer:
		// The anchor and the step of a recursive CTE must agree on the
		// exact type of every column.
		q.castText(b, func(b *sql.Builder) {
			for i, p := range parts {
				if i > 0 {
					b.WriteString(" + ")
				}
				p(b)
			}
		})
	default:
		for i, p := range parts {
			if i > 0 {
				b.WriteString(" || ")
			}
			p(b)
		}
	}
}

func textType(name string) string {
	switch name {
	case dialect.MySQL:
		return "CHAR(4000)"
	case dialect.SQLServer:
		return "NVARCHAR(4000)"
	case dialect.Oracle:
		return "VARCHAR2(4000)"
	default:
		return "TEXT"
	}
}

// cte returns the name of a common table expression, renamed if it would
// shadow the relation.
func (q *Query) cte(name string) string {
	if strings.EqualFold(name, q.relation) {
		return name + "_cte"
	}
	return name
}

// qualified writes alias.column with both parts quoted.
func qualified(b *sql.Builder, alias, column string) {
	b.Ident(alias).WriteByte('.').Ident(column)
}

// qualifiedList writes the given columns of alias separated by commas.
func qualifiedList(b *sql.Builder, alias string, columns []string) {
	for i, c := range columns {
		if i > 0 {
			b.Comma()
		}
		qualified(b, alias, c)
	}
}
