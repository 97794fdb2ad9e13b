package sql

import (
	"strconv"
	"strings"

	"github.com/syssam/hierarchy/dialect"
)

// Querier wraps the basic Query method that is implemented
// by the different builders in this file.
type Querier interface {
	// Query returns the query representation of the element
	// and its arguments (if any).
	Query() (string, []any)
}

// Builder is the base query builder for the sql dsl. All fragments of one
// statement are written into a single Builder so that positional
// placeholders ($1, :1, @p1) are numbered consistently.
type Builder struct {
	sb      strings.Builder
	args    []any
	dialect string
}

// NewBuilder returns a Builder for the given dialect.
func NewBuilder(dialect string) *Builder {
	return &Builder{dialect: dialect}
}

// Dialect returns the dialect of the builder.
func (b *Builder) Dialect() string { return b.dialect }

// SetDialect sets the builder dialect. It's used for garnering dialect specific queries.
func (b *Builder) SetDialect(dialect string) *Builder {
	b.dialect = dialect
	return b
}

// Quote quotes the given identifier with the characters based
// on the configured dialect. Qualified identifiers ("t.c") are quoted
// part by part, and "*" is left as is.
func (b *Builder) Quote(ident string) string {
	if ident == "*" || ident == "" {
		return ident
	}
	if strings.Contains(ident, ".") && !b.isQuoted(ident) {
		parts := strings.Split(ident, ".")
		for i := range parts {
			parts[i] = b.Quote(parts[i])
		}
		return strings.Join(parts, ".")
	}
	if b.isQuoted(ident) {
		return ident
	}
	switch dialect.Normalize(b.dialect) {
	case dialect.Oracle:
		if oracleUnquoted(ident) {
			return ident
		}
		return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
	case dialect.MySQL:
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	case dialect.SQLServer:
		return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
	default:
		return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
	}
}

// oracleUnquoted reports whether ident can be written bare on Oracle.
// Oracle folds bare names to upper case, so only lower-case names are
// left bare: they match tables created without quotes. Reserved words and
// names holding upper-case or special characters keep their quotes.
func oracleUnquoted(ident string) bool {
	if len(ident) > 128 || ident[0] < 'a' || ident[0] > 'z' {
		return false
	}
	for _, r := range ident {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' && r != '$' && r != '#' {
			return false
		}
	}
	_, reserved := oracleReserved[strings.ToUpper(ident)]
	return !reserved
}

// oracleReserved holds the reserved words of Oracle SQL, as listed by
// V$RESERVED_WORDS with RESERVED = 'Y'.
var oracleReserved = func() map[string]struct{} {
	words := strings.Fields(`ACCESS ADD ALL ALTER AND ANY AS ASC AUDIT BETWEEN BY CHAR
		CHECK CLUSTER COLUMN COMMENT COMPRESS CONNECT CREATE CURRENT DATE DECIMAL
		DEFAULT DELETE DESC DISTINCT DROP ELSE EXCLUSIVE EXISTS FILE FLOAT FOR FROM
		GRANT GROUP HAVING IDENTIFIED IMMEDIATE IN INCREMENT INDEX INITIAL INSERT
		INTEGER INTERSECT INTO IS LEVEL LIKE LOCK LONG MAXEXTENTS MINUS MLSLABEL MODE
		MODIFY NOAUDIT NOCOMPRESS NOT NOWAIT NULL NUMBER OF OFFLINE ON ONLINE OPTION
		OR ORDER PCTFREE PRIOR PUBLIC RAW RENAME RESOURCE REVOKE ROW ROWID ROWNUM
		ROWS SELECT SESSION SET SHARE SIZE SMALLINT START SUCCESSFUL SYNONYM SYSDATE
		TABLE THEN TO TRIGGER UID UNION UNIQUE UPDATE USER VALIDATE VALUES VARCHAR
		VARCHAR2 VIEW WHENEVER WHERE WITH`)
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

func (b *Builder) isQuoted(ident string) bool {
	if len(ident) < 2 {
		return false
	}
	first, last := ident[0], ident[len(ident)-1]
	return first == '"' && last == '"' || first == '`' && last == '`' || first == '[' && last == ']'
}

// Ident appends the given string as a quoted identifier.
func (b *Builder) Ident(s string) *Builder {
	b.sb.WriteString(b.Quote(s))
	return b
}

// IdentComma calls Ident on all arguments and adds a comma between them.
func (b *Builder) IdentComma(s ...string) *Builder {
	for i := range s {
		if i > 0 {
			b.Comma()
		}
		b.Ident(s[i])
	}
	return b
}

// WriteString writes the given string as is.
func (b *Builder) WriteString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// WriteByte writes the given byte as is.
func (b *Builder) WriteByte(c byte) *Builder {
	b.sb.WriteByte(c)
	return b
}

// Pad adds a space to the query.
func (b *Builder) Pad() *Builder {
	return b.WriteByte(' ')
}

// Comma adds a comma to the query.
func (b *Builder) Comma() *Builder {
	return b.WriteString(", ")
}

// Wrap gets a callback, and wraps its result with parentheses.
func (b *Builder) Wrap(f func(*Builder)) *Builder {
	b.WriteByte('(')
	f(b)
	return b.WriteByte(')')
}

// Arg appends an input argument to the builder and writes its dialect
// placeholder.
func (b *Builder) Arg(a any) *Builder {
	b.args = append(b.args, a)
	return b.WriteString(b.placeholder(len(b.args)))
}

// Args appends a list of arguments to the builder, separated by commas.
func (b *Builder) Args(a ...any) *Builder {
	for i := range a {
		if i > 0 {
			b.Comma()
		}
		b.Arg(a[i])
	}
	return b
}

func (b *Builder) placeholder(n int) string {
	switch dialect.Normalize(b.dialect) {
	case dialect.Postgres:
		return "$" + strconv.Itoa(n)
	case dialect.Oracle:
		return ":" + strconv.Itoa(n)
	case dialect.SQLServer:
		return "@p" + strconv.Itoa(n)
	default:
		return "?"
	}
}

// Literal writes s as an escaped string literal.
func (b *Builder) Literal(s string) *Builder {
	switch dialect.Normalize(b.dialect) {
	case dialect.MySQL:
		return b.WriteString("'" + escapeStringValue(s) + "'")
	case dialect.SQLServer:
		return b.WriteString("N'" + strings.ReplaceAll(s, "'", "''") + "'")
	default:
		return b.WriteString("'" + strings.ReplaceAll(s, "'", "''") + "'")
	}
}

// escapeStringValue doubles quotes and backslashes, as MySQL reads a
// backslash inside a literal as an escape.
func escapeStringValue(s string) string {
	if !strings.ContainsAny(s, `'\`) {
		return s
	}
	return strings.NewReplacer(`\`, `\\`, "'", "''").Replace(s)
}

// Len returns the length of the written query.
func (b *Builder) Len() int { return b.sb.Len() }

// String returns the accumulated string.
func (b *Builder) String() string { return b.sb.String() }

// Query implements the Querier interface.
func (b *Builder) Query() (string, []any) {
	return b.sb.String(), b.args
}

// SelectTable is a table reference of a Selector.
type SelectTable struct {
	name string
	as   string
}

// Table returns a new table selector.
//
//	t1 := Table("users").As("u")
//	return Select(t1.C("name"))
func Table(name string) *SelectTable {
	return &SelectTable{name: name}
}

// As adds the AS clause to the table selector.
func (t *SelectTable) As(alias string) *SelectTable {
	t.as = alias
	return t
}

// Name returns the table name.
func (t *SelectTable) Name() string { return t.name }

// Alias returns the table alias, or its name if it has none.
func (t *SelectTable) Alias() string {
	if t.as != "" {
		return t.as
	}
	return t.name
}

// C returns a formatted string for the table column.
func (t *SelectTable) C(column string) string {
	if t.as == "" {
		return column
	}
	return t.as + "." + column
}

// Selector is a builder for the `SELECT` statement over a single table.
// In hierarchy queries it carries the caller's projection and filter.
type Selector struct {
	dialect string
	columns []string
	from    *SelectTable
	where   *Predicate
}

// Select returns a new selector for the `SELECT` statement. An empty
// column list selects every column.
//
//	t1 := Table("users")
//	s := Select("id", "name").From(t1).Where(EQ("active", true))
func Select(columns ...string) *Selector {
	return (&Selector{}).Select(columns...)
}

// Select changes the columns selection of the SELECT statement.
func (s *Selector) Select(columns ...string) *Selector {
	s.columns = append([]string(nil), columns...)
	return s
}

// SetDialect sets the selector dialect.
func (s *Selector) SetDialect(dialect string) *Selector {
	s.dialect = dialect
	return s
}

// From sets the source of `FROM` clause.
func (s *Selector) From(t *SelectTable) *Selector {
	s.from = t
	return s
}

// Where sets or appends the given predicate to the statement.
func (s *Selector) Where(p *Predicate) *Selector {
	if p == nil {
		return s
	}
	if s.where != nil {
		s.where = And(s.where, p)
	} else {
		s.where = p
	}
	return s
}

// P returns the predicate of a selector, or nil if it has none.
func (s *Selector) P() *Predicate {
	return s.where
}

// C returns a formatted string for a selected column from this statement.
func (s *Selector) C(column string) string {
	if s.from == nil {
		return column
	}
	return s.from.C(column)
}

// SelectedColumns returns the selected columns in the Selector.
func (s *Selector) SelectedColumns() []string {
	return append([]string(nil), s.columns...)
}

// Table returns the selected table.
func (s *Selector) Table() *SelectTable {
	return s.from
}

// TableName returns the name of the selected table, or "" if none is set.
func (s *Selector) TableName() string {
	if s.from == nil {
		return ""
	}
	return s.from.name
}

// Clone returns a duplicate of the selector. The predicate is shared as
// predicates are never mutated once built.
func (s *Selector) Clone() *Selector {
	c := *s
	c.columns = s.SelectedColumns()
	if s.from != nil {
		t := *s.from
		c.from = &t
	}
	return &c
}

// Render writes the statement into b. Placeholders continue the numbering
// of b.
func (s *Selector) Render(b *Builder) {
	b.WriteString("SELECT ")
	if len(s.columns) == 0 {
		b.WriteByte('*')
	} else {
		b.IdentComma(s.columns...)
	}
	if s.from != nil {
		b.WriteString(" FROM ").Ident(s.from.name)
		if s.from.as != "" {
			b.Pad().Ident(s.from.as)
		}
	}
	if s.where != nil {
		b.WriteString(" WHERE ")
		s.where.Render(b)
	}
}

// Query returns query representation of a `SELECT` statement.
func (s *Selector) Query() (string, []any) {
	b := NewBuilder(s.dialect)
	s.Render(b)
	return b.Query()
}
