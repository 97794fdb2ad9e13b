package hierarchy_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/syssam/hierarchy"
	"github.com/syssam/hierarchy/dialect"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrategyText(t *testing.T) {
	for _, s := range []hierarchy.Strategy{hierarchy.RecursiveCTE, hierarchy.HierarchicalPath, hierarchy.IterativeUnion} {
		text, err := s.MarshalText()
		require.NoError(t, err)
		var got hierarchy.Strategy
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, s, got)
	}
	assert.Equal(t, "recursive_cte", hierarchy.RecursiveCTE.String())
	assert.Equal(t, "Strategy(9)", hierarchy.Strategy(9).String())
	_, err := hierarchy.Strategy(0).MarshalText()
	require.Error(t, err)
	var s hierarchy.Strategy
	require.EqualError(t, s.UnmarshalText([]byte("bfs")), `hierarchy: unknown strategy "bfs"`)
}

func TestResolveStrategy(t *testing.T) {
	tests := []struct {
		dialect string
		version dialect.Version
		want    hierarchy.Strategy
		lesser  bool
	}{
		{dialect.Postgres, dialect.V(16, 2), hierarchy.RecursiveCTE, false},
		{dialect.Postgres, dialect.V(8, 4), hierarchy.RecursiveCTE, false},
		{dialect.Postgres, dialect.V(8, 3, 23), 0, true},
		{"pgx", dialect.V(12), hierarchy.RecursiveCTE, false},
		{dialect.MySQL, dialect.V(8, 0, 36), hierarchy.RecursiveCTE, false},
		{dialect.MySQL, dialect.V(5, 7, 44), 0, true},
		{"sqlite3", dialect.V(3, 8, 3), hierarchy.RecursiveCTE, false},
		{dialect.SQLite, dialect.V(3, 8, 2), 0, true},
		{dialect.SQLServer, dialect.V(16), hierarchy.RecursiveCTE, false},
		{"mssql", dialect.V(8), 0, true},
		{dialect.Oracle, dialect.V(19), hierarchy.HierarchicalPath, false},
		{"godror", dialect.V(9, 2), 0, true},
		{"firebird", dialect.Version{}, hierarchy.IterativeUnion, false},
		{"DuckDB", dialect.V(1), hierarchy.IterativeUnion, false},
	}
	for _, tt := range tests {
		t.Run(tt.dialect+"/"+tt.version.String(), func(t *testing.T) {
			got, err := hierarchy.ResolveStrategy(tt.dialect, tt.version)
			if tt.lesser {
				require.True(t, hierarchy.IsHierarchyLesser(err), "err: %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCapabilityTableLookup(t *testing.T) {
	table := hierarchy.DefaultCapabilities()
	c := table.Lookup("postgresql")
	assert.Equal(t, dialect.Postgres, c.Dialect)
	assert.Equal(t, dialect.V(8, 4), c.MinVersion)

	c = table.Lookup("Firebird")
	assert.Equal(t, hierarchy.Capability{Dialect: "firebird", Strategy: hierarchy.IterativeUnion}, c)
	require.NoError(t, c.Check(dialect.V(1)))

	merged := table.Merge(hierarchy.CapabilityTable{
		"MySQL": {Dialect: dialect.MySQL, MinVersion: dialect.V(5, 7), Strategy: hierarchy.IterativeUnion},
	})
	assert.Equal(t, hierarchy.IterativeUnion, merged.Lookup(dialect.MySQL).Strategy)
	assert.Equal(t, hierarchy.RecursiveCTE, table.Lookup(dialect.MySQL).Strategy)
}

func TestLoadCapabilities(t *testing.T) {
	t.Run("Overrides", func(t *testing.T) {
		table, err := hierarchy.LoadCapabilities(strings.NewReader(`
capabilities:
  - dialect: CockroachDB
    min_version: "20.1"
    strategy: recursive_cte
  - dialect: mysql
    min_version: 5.7.8
    strategy: iterative_union
`))
		require.NoError(t, err)
		assert.Equal(t, hierarchy.Capability{
			Dialect:    "cockroachdb",
			MinVersion: dialect.V(20, 1),
			Strategy:   hierarchy.RecursiveCTE,
		}, table.Lookup("cockroachdb"))
		assert.Equal(t, hierarchy.IterativeUnion, table.Lookup(dialect.MySQL).Strategy)
		assert.Equal(t, dialect.V(5, 7, 8), table.Lookup(dialect.MySQL).MinVersion)
		assert.Equal(t, hierarchy.HierarchicalPath, table.Lookup(dialect.Oracle).Strategy)

		q, err := hierarchy.Build(dialecter("cockroachdb"), dummyRelation(), activeNodes(), hierarchy.WithCapabilities(table))
		require.NoError(t, err)
		assert.Equal(t, hierarchy.RecursiveCTE, q.Strategy())
	})

	t.Run("Empty", func(t *testing.T) {
		table, err := hierarchy.LoadCapabilities(strings.NewReader(""))
		require.NoError(t, err)
		assert.Equal(t, hierarchy.DefaultCapabilities(), table)
	})

	errs := []struct {
		name  string
		input string
		want  string
	}{
		{"UnknownField", "capabilities:\n  - dialect: pg\n    strategie: recursive_cte\n", "field strategie not found"},
		{"MissingDialect", "capabilities:\n  - strategy: recursive_cte\n", "capability 0: missing dialect"},
		{"MissingStrategy", "capabilities:\n  - dialect: h2\n", `capability "h2": missing strategy`},
		{"UnknownStrategy", "capabilities:\n  - dialect: h2\n    strategy: bfs\n", `unknown strategy "bfs"`},
		{"BadVersion", "capabilities:\n  - dialect: h2\n    min_version: latest\n    strategy: iterative_union\n", `invalid version "latest"`},
	}
	for _, tt := range errs {
		t.Run(tt.name, func(t *testing.T) {
			_, err := hierarchy.LoadCapabilities(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadCapabilitiesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capabilities.yaml")
	require.NoError(t, os.WriteFile(path, []byte("capabilities:\n  - dialect: h2\n    strategy: iterative_union\n"), 0o600))
	table, err := hierarchy.LoadCapabilitiesFile(path)
	require.NoError(t, err)
	assert.Equal(t, hierarchy.IterativeUnion, table.Lookup("h2").Strategy)

	_, err = hierarchy.LoadCapabilitiesFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
