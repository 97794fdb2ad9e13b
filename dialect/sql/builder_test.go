package sql

import (
	"strconv"
	"testing"

	"github.com/syssam/hierarchy/dialect"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderQuote(t *testing.T) {
	tests := []struct {
		dialect string
		ident   string
		want    string
	}{
		{dialect.Postgres, "name", `"name"`},
		{dialect.Postgres, "t.name", `"t"."name"`},
		{dialect.Postgres, `"quoted"`, `"quoted"`},
		{dialect.Postgres, `we"ird`, `"we""ird"`},
		{dialect.Postgres, "*", "*"},
		{dialect.SQLite, "name", `"name"`},
		{dialect.Oracle, "name", "name"},
		{dialect.Oracle, "t.parent_id", "t.parent_id"},
		{dialect.Oracle, "level", `"level"`},
		{dialect.Oracle, "Depth", `"Depth"`},
		{dialect.Oracle, "NAME", `"NAME"`},
		{dialect.Oracle, "2nd", `"2nd"`},
		{dialect.Oracle, "is leaf", `"is leaf"`},
		{"godror", "dummy_hierarchy", "dummy_hierarchy"},
		{dialect.MySQL, "name", "`name`"},
		{dialect.MySQL, "t.name", "`t`.`name`"},
		{dialect.SQLServer, "name", "[name]"},
		{dialect.SQLServer, "t.name", "[t].[name]"},
		{"", "name", `"name"`},
	}
	for i, tt := range tests {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			assert.Equal(t, tt.want, NewBuilder(tt.dialect).Quote(tt.ident))
		})
	}
}

func TestBuilderLiteral(t *testing.T) {
	tests := []struct {
		dialect string
		value   string
		want    string
	}{
		{dialect.Postgres, ",", "','"},
		{dialect.Postgres, "it's", "'it''s'"},
		{dialect.Postgres, `a\b`, `'a\b'`},
		{dialect.MySQL, `a\b`, `'a\\b'`},
		{dialect.MySQL, "it's", "'it''s'"},
		{dialect.MySQL, `\'; --`, `'\\''; --'`},
		{dialect.SQLServer, "/", "N'/'"},
		{dialect.Oracle, " > ", "' > '"},
	}
	for _, tt := range tests {
		t.Run(tt.dialect+tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, NewBuilder(tt.dialect).Literal(tt.value).String())
		})
	}
}

func TestSelectorQuery(t *testing.T) {
	tests := []struct {
		name      string
		input     Querier
		wantQuery string
		wantArgs  []any
	}{
		{
			name:      "AllColumns",
			input:     Select().From(Table("category")),
			wantQuery: `SELECT * FROM "category"`,
		},
		{
			name:      "Postgres",
			input:     Select("id", "name").From(Table("category")).Where(EQ("active", true)).SetDialect(dialect.Postgres),
			wantQuery: `SELECT "id", "name" FROM "category" WHERE "active" = $1`,
			wantArgs:  []any{true},
		},
		{
			name:      "MySQL",
			input:     Select("id", "name").From(Table("category")).Where(EQ("active", true)).SetDialect(dialect.MySQL),
			wantQuery: "SELECT `id`, `name` FROM `category` WHERE `active` = ?",
			wantArgs:  []any{true},
		},
		{
			name:      "SQLServer",
			input:     Select("id").From(Table("category")).Where(NEQ("id", 9)).SetDialect(dialect.SQLServer),
			wantQuery: "SELECT [id] FROM [category] WHERE [id] <> @p1",
			wantArgs:  []any{9},
		},
		{
			name:      "Oracle",
			input:     Select("id").From(Table("category")).Where(NotIn("id", 9, 11)).SetDialect(dialect.Oracle),
			wantQuery: `SELECT id FROM category WHERE id NOT IN (:1, :2)`,
			wantArgs:  []any{9, 11},
		},
		{
			name:      "WhereTwice",
			input:     Select("id").From(Table("category")).Where(GT("id", 1)).Where(IsNull("deleted_at")).SetDialect(dialect.Postgres),
			wantQuery: `SELECT "id" FROM "category" WHERE ("id" > $1) AND ("deleted_at" IS NULL)`,
			wantArgs:  []any{1},
		},
		{
			name:      "Alias",
			input:     Select("c.id").From(Table("category").As("c")).Where(LTE("c.id", 5)),
			wantQuery: `SELECT "c"."id" FROM "category" "c" WHERE "c"."id" <= ?`,
			wantArgs:  []any{5},
		},
		{
			name:      "EmptyIn",
			input:     Select("id").From(Table("category")).Where(In("id")),
			wantQuery: `SELECT "id" FROM "category" WHERE 1 = 0`,
		},
		{
			name:      "EmptyNotIn",
			input:     Select("id").From(Table("category")).Where(NotIn("id")),
			wantQuery: `SELECT "id" FROM "category" WHERE 1 = 1`,
		},
		{
			name: "Not",
			input: Select("id").From(Table("category")).
				Where(Not(Or(EQ("id", 1), EQ("id", 2)))).
				SetDialect(dialect.Postgres),
			wantQuery: `SELECT "id" FROM "category" WHERE NOT (("id" = $1) OR ("id" = $2))`,
			wantArgs:  []any{1, 2},
		},
		{
			name:      "HasPrefixEscaped",
			input:     Select("id").From(Table("category")).Where(HasPrefix("name", "a_b")).SetDialect(dialect.Postgres),
			wantQuery: `SELECT "id" FROM "category" WHERE "name" LIKE $1 ESCAPE '\'`,
			wantArgs:  []any{`a\_b%`},
		},
		{
			name:      "HasPrefixEscapedMySQL",
			input:     Select("id").From(Table("category")).Where(HasPrefix("name", "a%")).SetDialect(dialect.MySQL),
			wantQuery: "SELECT `id` FROM `category` WHERE `name` LIKE ? ESCAPE '\\\\'",
			wantArgs:  []any{`a\%%`},
		},
		{
			name:      "HasSuffix",
			input:     Select("id").From(Table("category")).Where(HasSuffix("name", "_x")).SetDialect(dialect.SQLite),
			wantQuery: `SELECT "id" FROM "category" WHERE "name" LIKE ? ESCAPE '\'`,
			wantArgs:  []any{`%\_x`},
		},
		{
			name:      "Contains",
			input:     Select("id").From(Table("category")).Where(Contains("name", "oo")),
			wantQuery: `SELECT "id" FROM "category" WHERE "name" LIKE ?`,
			wantArgs:  []any{"%oo%"},
		},
		{
			name:      "ContainsFold",
			input:     Select("id").From(Table("category")).Where(ContainsFold("name", "OO")),
			wantQuery: `SELECT "id" FROM "category" WHERE LOWER("name") LIKE ?`,
			wantArgs:  []any{"%oo%"},
		},
		{
			name:      "ExprP",
			input:     Select("id").From(Table("category")).Where(ExprP("depth BETWEEN ? AND ?", 1, 3)).SetDialect(dialect.Postgres),
			wantQuery: `SELECT "id" FROM "category" WHERE depth BETWEEN $1 AND $2`,
			wantArgs:  []any{1, 3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := tt.input.Query()
			assert.Equal(t, tt.wantQuery, query)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestPredicateRenderedTwice(t *testing.T) {
	for _, p := range []*Predicate{
		EQ("active", true),
		ExprP("active = ?", true),
		HasPrefix("name", "a_"),
	} {
		b := NewBuilder(dialect.Postgres)
		p.Render(b)
		b.WriteString(" AND ")
		p.Render(b)
		query, args := b.Query()
		require.Len(t, args, 2, query)
		assert.Equal(t, args[0], args[1])
		assert.Contains(t, query, "$1")
		assert.Contains(t, query, "$2")
	}
}

func TestSelectorClone(t *testing.T) {
	s := Select("id").From(Table("category").As("c"))
	c := s.Clone().Select("id", "name")
	c.Table().As("x")
	assert.Equal(t, []string{"id"}, s.SelectedColumns())
	assert.Equal(t, "c", s.Table().Alias())
	assert.Equal(t, []string{"id", "name"}, c.SelectedColumns())
	assert.Equal(t, "category", c.TableName())
	assert.Nil(t, Select().P())
	assert.Empty(t, Select().TableName())
}

type categoryPredicate func(*Selector)

func TestGenericFields(t *testing.T) {
	var (
		name   = StringField[categoryPredicate]("name")
		depth  = IntField[categoryPredicate]("depth")
		active = BoolField[categoryPredicate]("active")
	)
	s := Select("id").From(Table("category").As("c")).SetDialect(dialect.Postgres)
	for _, p := range []categoryPredicate{name.HasPrefix("a"), depth.In(1, 2), active.EQ(true)} {
		p(s)
	}
	query, args := s.Query()
	assert.Equal(t, `SELECT "id" FROM "category" "c" WHERE (("c"."name" LIKE $1) AND ("c"."depth" IN ($2, $3))) AND ("c"."active" = $4)`, query)
	assert.Equal(t, []any{"a%", 1, 2, true}, args)
	assert.Equal(t, "name", name.Name())

	s = Select("id").From(Table("category").As("c")).SetDialect(dialect.Postgres)
	name.NotNull()(s)
	query, args = s.Query()
	assert.Equal(t, `SELECT "id" FROM "category" "c" WHERE "c"."name" IS NOT NULL`, query)
	assert.Empty(t, args)
}
