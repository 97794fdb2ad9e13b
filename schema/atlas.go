package schema

import (
	"context"
	"fmt"

	"ariga.io/atlas/sql/migrate"
	"ariga.io/atlas/sql/mysql"
	"ariga.io/atlas/sql/postgres"
	atlas "ariga.io/atlas/sql/schema"
	"ariga.io/atlas/sql/sqlite"

	"github.com/syssam/hierarchy/dialect"
)

// FromAtlas converts an Atlas table description into a Table.
func FromAtlas(t *atlas.Table) (*Table, error) {
	if t == nil {
		return nil, fmt.Errorf("hierarchy: nil atlas table")
	}
	out := NewTable(t.Name)
	for _, c := range t.Columns {
		col := &Column{Name: c.Name}
		if c.Type != nil {
			col.Type, col.Nullable = typeName(c.Type), c.Type.Null
		}
		out.AddColumns(col)
	}
	if pk := t.PrimaryKey; pk != nil {
		names := make([]string, 0, len(pk.Parts))
		for _, p := range pk.Parts {
			// Expression parts cannot be referenced by a foreign key.
			if p.C == nil {
				return nil, fmt.Errorf("%w: %s", ErrNoPrimaryKey, t.Name)
			}
			names = append(names, p.C.Name)
		}
		out.SetPrimaryKey(names...)
	}
	for _, fk := range t.ForeignKeys {
		f := &ForeignKey{Symbol: fk.Symbol}
		for _, c := range fk.Columns {
			if col, ok := out.Column(c.Name); ok {
				f.Columns = append(f.Columns, col)
			}
		}
		if fk.RefTable != nil {
			f.RefTable = fk.RefTable.Name
		}
		for _, c := range fk.RefColumns {
			f.RefColumns = append(f.RefColumns, c.Name)
		}
		out.ForeignKeys = append(out.ForeignKeys, f)
	}
	return out, nil
}

// typeName returns the raw type of an inspected column, or the type name
// of a column built with the Atlas DSL.
func typeName(ct *atlas.ColumnType) string {
	if ct.Raw != "" {
		return ct.Raw
	}
	switch t := ct.Type.(type) {
	case *atlas.IntegerType:
		return t.T
	case *atlas.StringType:
		return t.T
	case *atlas.BoolType:
		return t.T
	case *atlas.FloatType:
		return t.T
	case *atlas.DecimalType:
		return t.T
	case *atlas.TimeType:
		return t.T
	}
	return ""
}

// Inspect reads the description of the named relation from a live database
// using the Atlas inspector of the given dialect.
func Inspect(ctx context.Context, db atlas.ExecQuerier, name, table string) (*Table, error) {
	var open func(atlas.ExecQuerier) (migrate.Driver, error)
	switch dialect.Normalize(name) {
	case dialect.Postgres:
		open = postgres.Open
	case dialect.MySQL:
		open = mysql.Open
	case dialect.SQLite:
		open = sqlite.Open
	default:
		return nil, fmt.Errorf("hierarchy: schema inspection is not supported for dialect %q", name)
	}
	drv, err := open(db)
	if err != nil {
		return nil, fmt.Errorf("hierarchy: open atlas driver: %w", err)
	}
	s, err := drv.InspectSchema(ctx, "", &atlas.InspectOptions{Tables: []string{table}})
	if err != nil {
		return nil, fmt.Errorf("hierarchy: inspect relation %s: %w", table, err)
	}
	t, ok := s.Table(table)
	if !ok {
		return nil, fmt.Errorf("hierarchy: relation %s does not exist", table)
	}
	return FromAtlas(t)
}
