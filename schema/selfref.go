package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingForeignKey is the sentinel matched by every *MissingForeignKeyError.
	ErrMissingForeignKey = errors.New("hierarchy: missing self-referencing foreign key")

	// ErrNoPrimaryKey is returned for relations without a single-column primary key.
	ErrNoPrimaryKey = errors.New("hierarchy: relation has no single-column primary key")
)

// MissingForeignKeyError is returned when a relation does not have exactly
// one foreign key referencing its own primary key.
type MissingForeignKeyError struct {
	relation   string
	candidates int
	cause      error
}

// Error returns the error string.
func (e *MissingForeignKeyError) Error() string {
	msg := fmt.Sprintf("hierarchy: a proper foreign key couldn't be found in relation %s", e.relation)
	switch {
	case e.cause != nil:
		msg += ": " + strings.TrimPrefix(e.cause.Error(), "hierarchy: ")
	case e.candidates > 1:
		msg += fmt.Sprintf(" (%d self-referencing foreign keys are ambiguous)", e.candidates)
	}
	return msg
}

// Unwrap returns the reason no candidate could be looked for, such as
// ErrNoPrimaryKey.
func (e *MissingForeignKeyError) Unwrap() error {
	return e.cause
}

// Is reports whether the target error matches MissingForeignKeyError.
// This allows errors.Is(err, ErrMissingForeignKey) to return true.
func (e *MissingForeignKeyError) Is(err error) bool {
	return err == ErrMissingForeignKey
}

// Relation returns the name of the offending relation.
func (e *MissingForeignKeyError) Relation() string {
	return e.relation
}

// Candidates returns the number of self-referencing foreign keys found,
// zero or more than one.
func (e *MissingForeignKeyError) Candidates() int {
	return e.candidates
}

// NewMissingForeignKeyError returns a new MissingForeignKeyError for the given relation.
func NewMissingForeignKeyError(relation string, candidates int) *MissingForeignKeyError {
	return &MissingForeignKeyError{relation: relation, candidates: candidates}
}

// IsMissingForeignKey returns true if the error is a MissingForeignKeyError.
func IsMissingForeignKey(err error) bool {
	if err == nil {
		return false
	}
	var e *MissingForeignKeyError
	return errors.As(err, &e) || errors.Is(err, ErrMissingForeignKey)
}

// FindSelfReference returns the primary key of t and the single foreign-key
// column referencing it.
func FindSelfReference(t *Table) (pk, parent *Column, err error) {
	if len(t.PrimaryKey) != 1 {
		return nil, nil, &MissingForeignKeyError{relation: t.Name, cause: ErrNoPrimaryKey}
	}
	pk = t.PrimaryKey[0]
	var found []*Column
	for _, fk := range t.ForeignKeys {
		if len(fk.Columns) != 1 || len(fk.RefColumns) != 1 {
			continue
		}
		if fk.RefTable == t.Name && fk.RefColumns[0] == pk.Name {
			found = append(found, fk.Columns[0])
		}
	}
	if len(found) != 1 {
		return nil, nil, NewMissingForeignKeyError(t.Name, len(found))
	}
	return pk, found[0], nil
}
