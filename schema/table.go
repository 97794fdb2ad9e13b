package schema

// Table describes a relation: its ordered columns, its primary key and its
// foreign keys. A Table is built once and treated as immutable afterwards.
type Table struct {
	Name        string
	Columns     []*Column
	PrimaryKey  []*Column
	ForeignKeys []*ForeignKey
}

// Column describes one column of a relation.
type Column struct {
	Name     string
	Type     string
	Nullable bool
}

// ForeignKey describes a foreign-key constraint. Only single-column keys
// take part in self-reference detection.
type ForeignKey struct {
	Symbol     string
	Columns    []*Column
	RefTable   string
	RefColumns []string
}

// NewTable returns a new Table with the given name.
func NewTable(name string) *Table {
	return &Table{Name: name}
}

// AddColumns appends the given columns to the table.
func (t *Table) AddColumns(columns ...*Column) *Table {
	t.Columns = append(t.Columns, columns...)
	return t
}

// SetPrimaryKey sets the primary key from the named columns. Names that
// are not columns of the table are ignored.
func (t *Table) SetPrimaryKey(names ...string) *Table {
	t.PrimaryKey = t.PrimaryKey[:0]
	for _, n := range names {
		if c, ok := t.Column(n); ok {
			t.PrimaryKey = append(t.PrimaryKey, c)
		}
	}
	return t
}

// AddForeignKey adds a single-column foreign key from column to
// refTable.refColumn. A missing column is ignored.
func (t *Table) AddForeignKey(symbol, column, refTable, refColumn string) *Table {
	c, ok := t.Column(column)
	if !ok {
		return t
	}
	t.ForeignKeys = append(t.ForeignKeys, &ForeignKey{
		Symbol:     symbol,
		Columns:    []*Column{c},
		RefTable:   refTable,
		RefColumns: []string{refColumn},
	})
	return t
}

// Column returns the column with the given name, if it exists.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// ColumnNames returns the names of the columns in declaration order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}
