package hierarchy

import (
	"fmt"

	"github.com/syssam/hierarchy/dialect"
)

// Strategy is the pattern used to express "all descendants of the root
// rows" on a backend.
type Strategy uint8

// Traversal strategies.
const (
	// RecursiveCTE accumulates level and path in a WITH RECURSIVE query.
	RecursiveCTE Strategy = iota + 1
	// HierarchicalPath uses CONNECT BY with LEVEL, CONNECT_BY_ISLEAF and
	// SYS_CONNECT_BY_PATH.
	HierarchicalPath
	// IterativeUnion issues one query per level inside a single
	// transaction and accumulates the computed columns in Go.
	IterativeUnion
)

var strategyNames = map[Strategy]string{
	RecursiveCTE:     "recursive_cte",
	HierarchicalPath: "hierarchical_path",
	IterativeUnion:   "iterative_union",
}

// String implements the fmt.Stringer interface.
func (s Strategy) String() string {
	if n, ok := strategyNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Strategy(%d)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	if _, ok := strategyNames[s]; !ok {
		return nil, fmt.Errorf("hierarchy: invalid strategy %d", s)
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(text []byte) error {
	for k, n := range strategyNames {
		if n == string(text) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("hierarchy: unknown strategy %q", text)
}

// Capability describes how a dialect walks a hierarchy.
type Capability struct {
	Dialect string `yaml:"dialect"`
	// MinVersion is the oldest supported server version. The zero
	// version disables the check and the server is never asked for it.
	MinVersion dialect.Version `yaml:"min_version"`
	Strategy   Strategy        `yaml:"strategy"`
}

// Check returns a *HierarchyLesserError if v is below the minimum version.
func (c Capability) Check(v dialect.Version) error {
	if !c.MinVersion.IsZero() && v.Less(c.MinVersion) {
		return NewHierarchyLesserError(c.Dialect, v, c.MinVersion)
	}
	return nil
}

// CapabilityTable maps dialect names to their capabilities.
type CapabilityTable map[string]Capability

// DefaultCapabilities returns the capabilities of the dialects with native
// recursion support.
func DefaultCapabilities() CapabilityTable {
	return CapabilityTable{
		dialect.Postgres:  {Dialect: dialect.Postgres, MinVersion: dialect.V(8, 4), Strategy: RecursiveCTE},
		dialect.MySQL:     {Dialect: dialect.MySQL, MinVersion: dialect.V(8), Strategy: RecursiveCTE},
		dialect.SQLite:    {Dialect: dialect.SQLite, MinVersion: dialect.V(3, 8, 3), Strategy: RecursiveCTE},
		dialect.SQLServer: {Dialect: dialect.SQLServer, MinVersion: dialect.V(9), Strategy: RecursiveCTE},
		dialect.Oracle:    {Dialect: dialect.Oracle, MinVersion: dialect.V(10), Strategy: HierarchicalPath},
	}
}

// Lookup returns the capability of the named dialect. Unknown dialects
// fall back to IterativeUnion without a version requirement.
func (t CapabilityTable) Lookup(name string) Capability {
	name = dialect.Normalize(name)
	if c, ok := t[name]; ok {
		c.Dialect = name
		return c
	}
	return Capability{Dialect: name, Strategy: IterativeUnion}
}

// ResolveStrategy returns the strategy of the named dialect at version v.
func (t CapabilityTable) ResolveStrategy(name string, v dialect.Version) (Strategy, error) {
	c := t.Lookup(name)
	if err := c.Check(v); err != nil {
		return 0, err
	}
	return c.Strategy, nil
}

// Merge returns a copy of t with the entries of o added or replaced.
func (t CapabilityTable) Merge(o CapabilityTable) CapabilityTable {
	m := make(CapabilityTable, len(t)+len(o))
	for k, c := range t {
		m[k] = c
	}
	for k, c := range o {
		m[dialect.Normalize(k)] = c
	}
	return m
}

// ResolveStrategy resolves the strategy of a dialect using the default
// capability table.
func ResolveStrategy(name string, v dialect.Version) (Strategy, error) {
	return DefaultCapabilities().ResolveStrategy(name, v)
}
