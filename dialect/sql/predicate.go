package sql

import (
	"slices"
	"strings"
)

// Predicate is a where predicate. Its fragments are rendered lazily into
// the Builder of the enclosing statement, so the same predicate can be
// embedded several times in one statement with correct placeholders.
type Predicate struct {
	fns []func(*Builder)
}

// P creates a new predicate.
//
//	P(func(b *Builder) {
//		b.Ident("name").WriteString(" = ").Arg("a8m")
//	})
func P(fns ...func(*Builder)) *Predicate {
	return &Predicate{fns: fns}
}

// Append appends a new function to the predicate callbacks.
func (p *Predicate) Append(f func(*Builder)) *Predicate {
	p.fns = append(p.fns, f)
	return p
}

// Clone returns a copy of p that Append on either side leaves untouched.
func (p *Predicate) Clone() *Predicate {
	if p == nil {
		return nil
	}
	return &Predicate{fns: slices.Clone(p.fns)}
}

// Render writes the predicate into b.
func (p *Predicate) Render(b *Builder) {
	for _, f := range p.fns {
		f(b)
	}
}

// Query returns the predicate rendered on its own for the given dialect.
func (p *Predicate) Query(dialect string) (string, []any) {
	b := NewBuilder(dialect)
	p.Render(b)
	return b.Query()
}

// ExprP creates a new predicate from the given expression. Every "?" in
// expr is replaced by the dialect placeholder of the matching argument.
//
//	ExprP("age > ? AND age < ?", 10, 20)
func ExprP(expr string, args ...any) *Predicate {
	return P(func(b *Builder) {
		i, rest := 0, args
		for {
			j := strings.IndexByte(expr[i:], '?')
			if j == -1 || len(rest) == 0 {
				b.WriteString(expr[i:])
				return
			}
			b.WriteString(expr[i : i+j])
			b.Arg(rest[0])
			rest = rest[1:]
			i += j + 1
		}
	})
}

func binary(col, op string, v any) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col).WriteString(" " + op + " ").Arg(v)
	})
}

// EQ returns a "=" predicate.
func EQ(col string, value any) *Predicate { return binary(col, "=", value) }

// NEQ returns a "<>" predicate.
func NEQ(col string, value any) *Predicate { return binary(col, "<>", value) }

// LT returns a "<" predicate.
func LT(col string, value any) *Predicate { return binary(col, "<", value) }

// LTE returns a "<=" predicate.
func LTE(col string, value any) *Predicate { return binary(col, "<=", value) }

// GT returns a ">" predicate.
func GT(col string, value any) *Predicate { return binary(col, ">", value) }

// GTE returns a ">=" predicate.
func GTE(col string, value any) *Predicate { return binary(col, ">=", value) }

// IsNull returns the `IS NULL` predicate.
func IsNull(col string) *Predicate {
	return P(func(b *Builder) { b.Ident(col).WriteString(" IS NULL") })
}

// NotNull returns the `IS NOT NULL` predicate.
func NotNull(col string) *Predicate {
	return P(func(b *Builder) { b.Ident(col).WriteString(" IS NOT NULL") })
}

// In returns the `IN` predicate. An empty list matches nothing.
func In(col string, args ...any) *Predicate {
	return P(func(b *Builder) {
		if len(args) == 0 {
			b.WriteString("1 = 0")
			return
		}
		b.Ident(col).WriteString(" IN ").Wrap(func(b *Builder) { b.Args(args...) })
	})
}

// NotIn returns the `NOT IN` predicate. An empty list matches everything.
func NotIn(col string, args ...any) *Predicate {
	return P(func(b *Builder) {
		if len(args) == 0 {
			b.WriteString("1 = 1")
			return
		}
		b.Ident(col).WriteString(" NOT IN ").Wrap(func(b *Builder) { b.Args(args...) })
	})
}

// Like returns the `LIKE` predicate.
func Like(col, pattern string) *Predicate {
	return binary(col, "LIKE", pattern)
}

func likeEscaped(col, prefix, v, suffix string, fold bool) *Predicate {
	escaped := strings.ContainsAny(v, `%_\`)
	if escaped {
		v = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(v)
	}
	return P(func(b *Builder) {
		if fold {
			b.WriteString("LOWER(").Ident(col).WriteString(") LIKE ").Arg(prefix + strings.ToLower(v) + suffix)
		} else {
			b.Ident(col).WriteString(" LIKE ").Arg(prefix + v + suffix)
		}
		if escaped {
			b.WriteString(" ESCAPE ").Literal(`\`)
		}
	})
}

// HasPrefix is a helper predicate that checks prefix using the LIKE predicate.
func HasPrefix(col, prefix string) *Predicate { return likeEscaped(col, "", prefix, "%", false) }

// HasSuffix is a helper predicate that checks suffix using the LIKE predicate.
func HasSuffix(col, suffix string) *Predicate { return likeEscaped(col, "%", suffix, "", false) }

// Contains is a helper predicate that checks substring using the LIKE predicate.
func Contains(col, sub string) *Predicate { return likeEscaped(col, "%", sub, "%", false) }

// ContainsFold is a helper predicate that checks substring using the LIKE predicate
// with case folding.
func ContainsFold(col, sub string) *Predicate { return likeEscaped(col, "%", sub, "%", true) }

// EqualFold is a helper predicate that applies the "=" predicate with case-folding.
func EqualFold(col, sub string) *Predicate {
	return P(func(b *Builder) {
		b.WriteString("LOWER(").Ident(col).WriteString(") = ").Arg(strings.ToLower(sub))
	})
}

// And combines all given predicates with AND between them.
func And(preds ...*Predicate) *Predicate {
	return join("AND", preds)
}

// Or combines all given predicates with OR between them.
func Or(preds ...*Predicate) *Predicate {
	return join("OR", preds)
}

func join(op string, preds []*Predicate) *Predicate {
	return P(func(b *Builder) {
		for i, p := range preds {
			if i > 0 {
				b.WriteString(" " + op + " ")
			}
			if len(preds) > 1 {
				b.Wrap(p.Render)
			} else {
				p.Render(b)
			}
		}
	})
}

// Not wraps the given predicate with the not predicate.
//
//	Not(Or(EQ("name", "foo"), EQ("name", "bar")))
func Not(pred *Predicate) *Predicate {
	return P(func(b *Builder) {
		b.WriteString("NOT ").Wrap(pred.Render)
	})
}

// PredicateFunc is a constraint type for predicate functions.
// It allows generic field types to work with any predicate type that is
// based on func(*Selector).
type PredicateFunc interface {
	~func(*Selector)
}

// FieldEQ returns a raw predicate to check if the given field equals to the given value.
func FieldEQ(name string, v any) func(*Selector) {
	return func(s *Selector) { s.Where(EQ(s.C(name), v)) }
}

// FieldNEQ returns a raw predicate to check if the given field does not equal to the given value.
func FieldNEQ(name string, v any) func(*Selector) {
	return func(s *Selector) { s.Where(NEQ(s.C(name), v)) }
}

// FieldGT returns a raw predicate to check if the given field is greater than the given value.
func FieldGT(name string, v any) func(*Selector) {
	return func(s *Selector) { s.Where(GT(s.C(name), v)) }
}

// FieldGTE returns a raw predicate to check if the given field is greater than or equal the given value.
func FieldGTE(name string, v any) func(*Selector) {
	return func(s *Selector) { s.Where(GTE(s.C(name), v)) }
}

// FieldLT returns a raw predicate to check if the value of the field is less than the given value.
func FieldLT(name string, v any) func(*Selector) {
	return func(s *Selector) { s.Where(LT(s.C(name), v)) }
}

// FieldLTE returns a raw predicate to check if the value of the field is less than or equal the given value.
func FieldLTE(name string, v any) func(*Selector) {
	return func(s *Selector) { s.Where(LTE(s.C(name), v)) }
}

// FieldIsNull returns a raw predicate to check if the given field is null.
func FieldIsNull(name string) func(*Selector) {
	return func(s *Selector) { s.Where(IsNull(s.C(name))) }
}

// FieldNotNull returns a raw predicate to check if the given field is not null.
func FieldNotNull(name string) func(*Selector) {
	return func(s *Selector) { s.Where(NotNull(s.C(name))) }
}

// FieldHasPrefix returns a raw predicate to check if the given field starts with the given prefix.
func FieldHasPrefix(name, prefix string) func(*Selector) {
	return func(s *Selector) { s.Where(HasPrefix(s.C(name), prefix)) }
}

// FieldContains returns a raw predicate to check if the given field contains the given substring.
func FieldContains(name, sub string) func(*Selector) {
	return func(s *Selector) { s.Where(Contains(s.C(name), sub)) }
}

// FieldInGeneric is a generic version of FieldIn for use with generic types.
func FieldInGeneric[T any](name string, vs ...T) func(*Selector) {
	return func(s *Selector) {
		v := make([]any, len(vs))
		for i := range vs {
			v[i] = vs[i]
		}
		s.Where(In(s.C(name), v...))
	}
}

// FieldNotInGeneric is a generic version of FieldNotIn for use with generic types.
func FieldNotInGeneric[T any](name string, vs ...T) func(*Selector) {
	return func(s *Selector) {
		v := make([]any, len(vs))
		for i := range vs {
			v[i] = vs[i]
		}
		s.Where(NotIn(s.C(name), v...))
	}
}

// StringField is a generic string field that provides type-safe predicate methods.
//
// Usage:
//
//	var Name = sql.StringField[func(*sql.Selector)]("name")
//	Name.HasPrefix("eng")(selector)
type StringField[P PredicateFunc] string

// Name returns the field name.
func (f StringField[P]) Name() string { return string(f) }

// EQ returns a predicate that checks if the field equals the given value.
func (f StringField[P]) EQ(v string) P { return P(FieldEQ(string(f), v)) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f StringField[P]) NEQ(v string) P { return P(FieldNEQ(string(f), v)) }

// In returns a predicate that checks if the field value is in the given list.
func (f StringField[P]) In(vs ...string) P { return P(FieldInGeneric(string(f), vs...)) }

// NotIn returns a predicate that checks if the field value is not in the given list.
func (f StringField[P]) NotIn(vs ...string) P { return P(FieldNotInGeneric(string(f), vs...)) }

// HasPrefix returns a predicate that checks if the field has the given prefix.
func (f StringField[P]) HasPrefix(v string) P { return P(FieldHasPrefix(string(f), v)) }

// Contains returns a predicate that checks if the field contains the given substring.
func (f StringField[P]) Contains(v string) P { return P(FieldContains(string(f), v)) }

// IsNull returns a predicate that checks if the field is NULL.
func (f StringField[P]) IsNull() P { return P(FieldIsNull(string(f))) }

// NotNull returns a predicate that checks if the field is not NULL.
func (f StringField[P]) NotNull() P { return P(FieldNotNull(string(f))) }

// IntField is a generic integer field that provides type-safe predicate methods.
type IntField[P PredicateFunc] string

// Name returns the field name.
func (f IntField[P]) Name() string { return string(f) }

// EQ returns a predicate that checks if the field equals the given value.
func (f IntField[P]) EQ(v int) P { return P(FieldEQ(string(f), v)) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f IntField[P]) NEQ(v int) P { return P(FieldNEQ(string(f), v)) }

// In returns a predicate that checks if the field value is in the given list.
func (f IntField[P]) In(vs ...int) P { return P(FieldInGeneric(string(f), vs...)) }

// NotIn returns a predicate that checks if the field value is not in the given list.
func (f IntField[P]) NotIn(vs ...int) P { return P(FieldNotInGeneric(string(f), vs...)) }

// GT returns a predicate that checks if the field is greater than the given value.
func (f IntField[P]) GT(v int) P { return P(FieldGT(string(f), v)) }

// GTE returns a predicate that checks if the field is greater than or equal to the given value.
func (f IntField[P]) GTE(v int) P { return P(FieldGTE(string(f), v)) }

// LT returns a predicate that checks if the field is less than the given value.
func (f IntField[P]) LT(v int) P { return P(FieldLT(string(f), v)) }

// LTE returns a predicate that checks if the field is less than or equal to the given value.
func (f IntField[P]) LTE(v int) P { return P(FieldLTE(string(f), v)) }

// IsNull returns a predicate that checks if the field is NULL.
func (f IntField[P]) IsNull() P { return P(FieldIsNull(string(f))) }

// NotNull returns a predicate that checks if the field is not NULL.
func (f IntField[P]) NotNull() P { return P(FieldNotNull(string(f))) }

// BoolField is a generic boolean field that provides type-safe predicate methods.
type BoolField[P PredicateFunc] string

// Name returns the field name.
func (f BoolField[P]) Name() string { return string(f) }

// EQ returns a predicate that checks if the field equals the given value.
func (f BoolField[P]) EQ(v bool) P { return P(FieldEQ(string(f), v)) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f BoolField[P]) NEQ(v bool) P { return P(FieldNEQ(string(f), v)) }
