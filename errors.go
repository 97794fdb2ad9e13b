package hierarchy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/hierarchy/dialect"
	"github.com/syssam/hierarchy/schema"
)

// Standard sentinel errors for common operations.
var (
	// ErrMissingForeignKey is matched by every MissingForeignKeyError.
	ErrMissingForeignKey = schema.ErrMissingForeignKey

	// ErrNoPrimaryKey is returned for relations without a single-column primary key.
	ErrNoPrimaryKey = schema.ErrNoPrimaryKey

	// ErrHierarchyLesser is matched by every HierarchyLesserError.
	ErrHierarchyLesser = errors.New("hierarchy: backend version is not supported")

	// ErrRelationMismatch is returned when the base query selects from
	// another relation than the one being walked.
	ErrRelationMismatch = errors.New("hierarchy: base query does not select from the relation")

	// ErrDialectMismatch is returned when a query is executed on a backend
	// of another dialect than the one it was built for.
	ErrDialectMismatch = errors.New("hierarchy: backend dialect does not match the query")

	// ErrIterative is returned by Query.Query for the level-by-level
	// strategy, which has no single statement.
	ErrIterative = errors.New("hierarchy: iterative traversal has no single statement")

	// ErrNilArgument is returned by Build for a nil dialect or relation.
	ErrNilArgument = errors.New("hierarchy: nil argument")

	// ErrEmptySeparator is returned for an empty connect path separator.
	ErrEmptySeparator = errors.New("hierarchy: connect path separator must not be empty")
)

// MissingForeignKeyError is returned by Build when the relation does not
// have exactly one foreign key referencing its own primary key.
type MissingForeignKeyError = schema.MissingForeignKeyError

// NewMissingForeignKeyError returns a new MissingForeignKeyError for the given relation.
func NewMissingForeignKeyError(relation string) *MissingForeignKeyError {
	return schema.NewMissingForeignKeyError(relation, 0)
}

// IsMissingForeignKey returns true if the error is a MissingForeignKeyError.
func IsMissingForeignKey(err error) bool {
	return schema.IsMissingForeignKey(err)
}

// HierarchyLesserError is returned at execution time when the backend
// reports a version below the minimum its strategy requires.
type HierarchyLesserError struct {
	dialect  string
	version  dialect.Version
	required dialect.Version
}

// Error returns the error string.
func (e *HierarchyLesserError) Error() string {
	return fmt.Sprintf("hierarchy: %s %s is not supported, version %s or later is required", e.dialect, e.version, e.required)
}

// Is reports whether the target error matches HierarchyLesserError.
func (e *HierarchyLesserError) Is(err error) bool {
	return err == ErrHierarchyLesser
}

// Dialect returns the name of the rejected backend.
func (e *HierarchyLesserError) Dialect() string {
	return e.dialect
}

// Version returns the version reported by the backend.
func (e *HierarchyLesserError) Version() dialect.Version {
	return e.version
}

// Required returns the minimum supported version.
func (e *HierarchyLesserError) Required() dialect.Version {
	return e.required
}

// NewHierarchyLesserError returns a new HierarchyLesserError.
func NewHierarchyLesserError(name string, version, required dialect.Version) *HierarchyLesserError {
	return &HierarchyLesserError{dialect: name, version: version, required: required}
}

// IsHierarchyLesser returns true if the error is a HierarchyLesserError.
func IsHierarchyLesser(err error) bool {
	if err == nil {
		return false
	}
	var e *HierarchyLesserError
	return errors.As(err, &e) || errors.Is(err, ErrHierarchyLesser)
}

// ColumnConflictError is returned when a projected column has the name of
// a computed column.
type ColumnConflictError struct {
	Columns []string
}

// Error returns the error string.
func (e *ColumnConflictError) Error() string {
	return fmt.Sprintf("hierarchy: projected columns conflict with computed columns: %s", strings.Join(e.Columns, ", "))
}

// IsColumnConflict returns true if the error is a ColumnConflictError.
func IsColumnConflict(err error) bool {
	if err == nil {
		return false
	}
	var e *ColumnConflictError
	return errors.As(err, &e)
}
