package hierarchy

import (
	"fmt"
	"strconv"

	"github.com/syssam/hierarchy/dialect/sql"
)

// Row is a row of a hierarchy query result.
type Row struct {
	// Values holds the projected columns by name.
	Values map[string]any
	// Level is the depth of the row. Roots have level 1.
	Level int
	// IsLeaf reports whether no row of the result is a child of this one.
	IsLeaf bool
	// ConnectPath holds the keys from the root down to this row.
	ConnectPath string

	level, isLeaf, path string
}

func (q *Query) newRow() *Row {
	return &Row{
		Values: make(map[string]any, len(q.projection)),
		level:  q.level,
		isLeaf: q.isLeaf,
		path:   q.path,
	}
}

// Get returns the value of a projected or computed column.
func (r *Row) Get(name string) (any, bool) {
	switch name {
	case r.level:
		return r.Level, true
	case r.isLeaf:
		return r.IsLeaf, true
	case r.path:
		return r.ConnectPath, true
	}
	v, ok := r.Values[name]
	return v, ok
}

// String implements the fmt.Stringer interface.
func (r *Row) String() string {
	return fmt.Sprintf("Row(level=%d, is_leaf=%t, connect_path=%q, values=%v)", r.Level, r.IsLeaf, r.ConnectPath, r.Values)
}

// scanRecords reads every record of rows. Byte slices are copied into
// strings, as drivers reuse their buffers.
func scanRecords(rows *sql.Rows, n int) ([][]any, error) {
	defer rows.Close()
	var records [][]any
	for rows.Next() {
		rec := make([]any, n)
		dest := make([]any, n)
		for i := range rec {
			dest[i] = &rec[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("hierarchy: scan row: %w", err)
		}
		for i, v := range rec {
			if b, ok := v.([]byte); ok {
				rec[i] = string(b)
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// decode converts a record of a single-statement strategy: the projection
// followed by level, is_leaf and connect_path.
func (q *Query) decode(rec []any) (*Row, error) {
	n := len(q.projection)
	row := q.newRow()
	for i, c := range q.projection {
		row.Values[c] = rec[i]
	}
	level, err := toInt(rec[n])
	if err != nil {
		return nil, fmt.Errorf("hierarchy: decode %s: %w", q.level, err)
	}
	isLeaf, err := toInt(rec[n+1])
	if err != nil {
		return nil, fmt.Errorf("hierarchy: decode %s: %w", q.isLeaf, err)
	}
	row.Level, row.IsLeaf, row.ConnectPath = level, isLeaf != 0, keyString(rec[n+2])
	return row, nil
}

func toInt(v any) (int, error) {
	switch v := v.(type) {
	case int64:
		return int(v), nil
	case int32:
		return int(v), nil
	case int:
		return v, nil
	case float64:
		return int(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case nil:
		return 0, fmt.Errorf("unexpected NULL")
	default:
		// Numbers of some drivers arrive as strings or decimal types.
		return strconv.Atoi(fmt.Sprint(v))
	}
}

// keyString formats a key the way it appears in a connect path.
func keyString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
