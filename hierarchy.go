// Package hierarchy builds and runs queries over relations that store a
// tree as an adjacency list.
//
// A hierarchy query returns the rows selected by a base query together with
// three computed columns: the depth of each row (level, roots are 1),
// whether it is a leaf (is_leaf), and the keys from its root down to itself
// (connect_path, joined by a separator):
//
//	rel, _ := schema.Inspect(ctx, db, dialect.Postgres, "category")
//	drv := sql.OpenDB(dialect.Postgres, db)
//	q, err := hierarchy.Build(drv, rel,
//	    sql.Select("id", "name").From(sql.Table("category")).Where(sql.EQ("active", true)),
//	    hierarchy.WithStartingNode(3),
//	)
//	if err != nil {
//	    return err
//	}
//	rows, err := q.All(ctx, drv)
//
// The traversal strategy is picked from the dialect: WITH RECURSIVE on
// PostgreSQL, MySQL, SQLite and SQL Server, CONNECT BY on Oracle, and one
// query per level in a single transaction everywhere else. The server
// version is checked when the query runs, not when it is built.
package hierarchy

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/syssam/hierarchy/dialect"
	"github.com/syssam/hierarchy/dialect/sql"
	"github.com/syssam/hierarchy/schema"

	"github.com/google/uuid"
)

// Default names of the computed columns.
const (
	DefaultLevelColumn  = "level"
	DefaultIsLeafColumn = "is_leaf"
	DefaultPathColumn   = "connect_path"
	DefaultSeparator    = ","
)

// OrphanPolicy decides what happens to a row whose parent is excluded by
// the base query's predicate while the row itself is not.
type OrphanPolicy uint8

const (
	// PromoteOrphans makes such a row the root of its own subtree: its
	// level restarts at 1 and its path starts at itself.
	PromoteOrphans OrphanPolicy = iota
	// PruneOrphans drops such a row together with its whole subtree, as
	// the traversal never reaches it.
	PruneOrphans
)

// Dialecter reports the dialect of a backend without a round trip.
type Dialecter interface {
	Dialect() string
}

type (
	// Option configures a hierarchy query.
	Option func(*config)

	config struct {
		start        *startNode
		sep          string
		level        string
		isLeaf       string
		path         string
		orphans      OrphanPolicy
		strategy     Strategy
		capabilities CapabilityTable
		logger       *slog.Logger
		cache        Cache
		cacheTTL     time.Duration
	}

	startNode struct {
		key       any
		inclusive bool
	}
)

// WithStartingNode restricts the traversal to the descendants of the row
// with the given key. The row itself is not returned and its children are
// the roots of the result, unless WithInclusiveStart is also given.
func WithStartingNode(key any) Option {
	return func(c *config) {
		if c.start == nil {
			c.start = &startNode{}
		}
		c.start.key = key
	}
}

// WithInclusiveStart makes the starting node the single root of the result.
func WithInclusiveStart() Option {
	return func(c *config) {
		if c.start == nil {
			c.start = &startNode{}
		}
		c.start.inclusive = true
	}
}

// WithSeparator sets the separator of the connect path. Default is ",".
func WithSeparator(sep string) Option {
	return func(c *config) {
		c.sep = sep
	}
}

// WithColumnNames binds the names of the level, is_leaf and connect_path
// columns. Empty names keep the defaults.
func WithColumnNames(level, isLeaf, path string) Option {
	return func(c *config) {
		if level != "" {
			c.level = level
		}
		if isLeaf != "" {
			c.isLeaf = isLeaf
		}
		if path != "" {
			c.path = path
		}
	}
}

// WithOrphanPolicy sets the handling of rows whose parent is filtered out.
// Default is PromoteOrphans.
func WithOrphanPolicy(p OrphanPolicy) Option {
	return func(c *config) {
		c.orphans = p
	}
}

// WithStrategy forces a traversal strategy instead of the one of the
// dialect. The minimum version of the dialect still applies.
func WithStrategy(s Strategy) Option {
	return func(c *config) {
		c.strategy = s
	}
}

// WithCapabilities replaces the default capability table.
func WithCapabilities(t CapabilityTable) Option {
	return func(c *config) {
		c.capabilities = t
	}
}

// WithLogger sets the logger used while executing the query.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithCache caches the rows of executed queries for ttl. A zero ttl never
// expires.
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(c *config) {
		c.cache, c.cacheTTL = cache, ttl
	}
}

// Query is a hierarchy query built for one dialect. It is immutable and
// safe for concurrent use.
type Query struct {
	id         string
	dialect    string
	capability Capability
	strategy   Strategy
	relation   string
	from       *sql.SelectTable
	pk, fk     string
	projection []string // output columns of the base query
	carried    []string // projection plus the key columns
	where      *sql.Predicate
	start      *startNode
	sep        string
	level      string
	isLeaf     string
	path       string
	orphans    OrphanPolicy
	logger     *slog.Logger
	cache      Cache
	cacheTTL   time.Duration
}

// Build validates rel and composes a hierarchy query from the base query.
// Building never talks to the backend: d only reports its dialect.
func Build(d Dialecter, rel *schema.Table, base *sql.Selector, opts ...Option) (*Query, error) {
	switch {
	case d == nil:
		return nil, fmt.Errorf("%w: dialect", ErrNilArgument)
	case rel == nil:
		return nil, fmt.Errorf("%w: relation", ErrNilArgument)
	}
	pk, fk, err := schema.FindSelfReference(rel)
	if err != nil {
		return nil, err
	}
	cfg := config{
		sep:    DefaultSeparator,
		level:  DefaultLevelColumn,
		isLeaf: DefaultIsLeafColumn,
		path:   DefaultPathColumn,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.sep == "" {
		return nil, ErrEmptySeparator
	}
	if cfg.start != nil && cfg.start.key == nil {
		return nil, fmt.Errorf("hierarchy: starting node key must not be nil")
	}
	if base == nil {
		base = sql.Select()
	}
	if name := base.TableName(); name != "" && name != rel.Name {
		return nil, fmt.Errorf("%w: %s is not %s", ErrRelationMismatch, name, rel.Name)
	}
	from := sql.Table(rel.Name)
	if t := base.Table(); t != nil && t.Alias() != t.Name() {
		from.As(t.Alias())
	}
	var projection []string
	for _, c := range base.SelectedColumns() {
		projection = append(projection, strings.TrimPrefix(c, from.Alias()+"."))
	}
	if len(projection) == 0 || len(projection) == 1 && projection[0] == "*" {
		projection = rel.ColumnNames()
	}
	carried := slices.Clone(projection)
	for _, c := range []string{pk.Name, fk.Name} {
		if !slices.Contains(carried, c) {
			carried = append(carried, c)
		}
	}
	if err := checkConflicts(carried, cfg.level, cfg.isLeaf, cfg.path); err != nil {
		return nil, err
	}
	for _, c := range projection {
		if _, ok := rel.Column(c); !ok {
			return nil, fmt.Errorf("hierarchy: column %q does not exist in relation %s", c, rel.Name)
		}
	}
	table := cfg.capabilities
	if table == nil {
		table = DefaultCapabilities()
	}
	name := dialect.Normalize(d.Dialect())
	capability := table.Lookup(name)
	strategy := capability.Strategy
	if cfg.strategy != 0 {
		strategy = cfg.strategy
	}
	if _, ok := strategyNames[strategy]; !ok {
		return nil, fmt.Errorf("hierarchy: unknown strategy %s for dialect %q", strategy, name)
	}
	return &Query{
		id:         uuid.NewString(),
		dialect:    name,
		capability: capability,
		strategy:   strategy,
		relation:   rel.Name,
		from:       from,
		pk:         pk.Name,
		fk:         fk.Name,
		projection: projection,
		carried:    carried,
		where:      base.P().Clone(),
		start:      cfg.start,
		sep:        cfg.sep,
		level:      cfg.level,
		isLeaf:     cfg.isLeaf,
		path:       cfg.path,
		orphans:    cfg.orphans,
		logger:     cfg.logger,
		cache:      cfg.cache,
		cacheTTL:   cfg.cacheTTL,
	}, nil
}

func checkConflicts(carried []string, computed ...string) error {
	var conflicts []string
	for _, c := range carried {
		if slices.Contains(computed, c) {
			conflicts = append(conflicts, c)
		}
	}
	for i, c := range computed {
		if slices.Contains(computed[i+1:], c) && !slices.Contains(conflicts, c) {
			conflicts = append(conflicts, c)
		}
	}
	if len(conflicts) > 0 {
		return &ColumnConflictError{Columns: conflicts}
	}
	return nil
}

// ID returns the unique identifier of the query, used in logs and cache keys.
func (q *Query) ID() string { return q.id }

// Dialect returns the dialect the query was built for.
func (q *Query) Dialect() string { return q.dialect }

// Strategy returns the traversal strategy of the query.
func (q *Query) Strategy() Strategy { return q.strategy }

// Columns returns the names of the output columns: the projection of the
// base query followed by the level, is_leaf and connect_path columns.
func (q *Query) Columns() []string {
	return append(slices.Clone(q.projection), q.level, q.isLeaf, q.path)
}

// Query returns the statement and its arguments. The IterativeUnion
// strategy has no single statement and returns ErrIterative.
func (q *Query) Query() (string, []any, error) {
	b := sql.NewBuilder(q.dialect)
	switch q.strategy {
	case RecursiveCTE:
		q.recursive(b)
	case HierarchicalPath:
		q.connectBy(b)
	default:
		return "", nil, ErrIterative
	}
	query, args := b.Query()
	return query, args, nil
}
