package hierarchy

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/vmihailenco/msgpack/v5"
)

// Cache is the interface for caching hierarchy query results.
// Users should implement this interface with their preferred caching solution
// (e.g., Redis, Memcached, in-memory).
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with an optional TTL.
	// If ttl is 0, the value should not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes all values with the given prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// Clear removes all values from the cache.
	Clear(ctx context.Context) error
}

// CacheKey identifies the result of a hierarchy query.
type CacheKey struct {
	Relation  string
	Namespace string
	Dialect   string
	Strategy  Strategy
	Query     string
	Args      []any
	Columns   []string
	Separator string
}

// String returns the string representation of the cache key. Keys of the
// same relation share the prefix returned by CachePrefix.
func (k CacheKey) String() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\x00%#v\x00%s\x00%s", k.Namespace, k.Dialect, k.Strategy, k.Query, k.Args, strings.Join(k.Columns, ","), k.Separator)
	return CachePrefix(k.Relation) + hex.EncodeToString(h.Sum(nil))
}

// CachePrefix returns the prefix of the cache keys of a relation.
func CachePrefix(relation string) string {
	return "hierarchy:" + relation + ":"
}

// InvalidateRelation removes the cached results of every query on relation.
// Call it after the relation is modified.
func InvalidateRelation(ctx context.Context, c Cache, relation string) error {
	return c.DeletePrefix(ctx, CachePrefix(relation))
}

// CacheNamespacer is implemented by backends that name the database they
// are connected to. Cached rows are only served to backends of the same
// namespace. *sql.Driver implements it.
type CacheNamespacer interface {
	CacheNamespace() string
}

// backendNamespace identifies the database behind b. Backends without a
// namespace are told apart by identity.
func backendNamespace(b Backend) string {
	if n, ok := b.(CacheNamespacer); ok {
		if ns := n.CacheNamespace(); ns != "" {
			return ns
		}
	}
	return fmt.Sprintf("%T@%p", b, b)
}

// cacheKey returns the key of the query results on the database named ns.
func (q *Query) cacheKey(ns string) string {
	k := CacheKey{
		Relation:  q.relation,
		Namespace: ns,
		Dialect:   q.dialect,
		Strategy:  q.strategy,
		Columns:   q.Columns(),
		Separator: q.sep,
	}
	if q.strategy == IterativeUnion {
		k.Query, k.Args = q.rootQuery()
	} else {
		k.Query, k.Args, _ = q.Query()
	}
	return k.String()
}

type cachedRow struct {
	Values      map[string]any `msgpack:"v"`
	Level       int            `msgpack:"l"`
	IsLeaf      bool           `msgpack:"f"`
	ConnectPath string         `msgpack:"p"`
}

func encodeRows(rows []*Row) ([]byte, error) {
	cached := make([]cachedRow, len(rows))
	for i, r := range rows {
		cached[i] = cachedRow{Values: r.Values, Level: r.Level, IsLeaf: r.IsLeaf, ConnectPath: r.ConnectPath}
	}
	return msgpack.Marshal(cached)
}

func (q *Query) decodeRows(b []byte) ([]*Row, error) {
	var cached []cachedRow
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	// Integers decode as int64 and floats as float64, like database/sql.
	dec.UseLooseInterfaceDecoding(true)
	if err := dec.Decode(&cached); err != nil {
		return nil, err
	}
	rows := make([]*Row, len(cached))
	for i, c := range cached {
		r := q.newRow()
		for k, v := range c.Values {
			r.Values[k] = v
		}
		r.Level, r.IsLeaf, r.ConnectPath = c.Level, c.IsLeaf, c.ConnectPath
		rows[i] = r
	}
	return rows, nil
}

// cached returns the rows stored for q, if any. Cache failures are logged
// and reported as misses.
func (q *Query) cached(ctx context.Context, key string) ([]*Row, bool) {
	b, err := q.cache.Get(ctx, key)
	if err != nil {
		q.logger.WarnContext(ctx, "hierarchy: cache get failed", "query_id", q.id, "error", err)
		return nil, false
	}
	if b == nil {
		return nil, false
	}
	rows, err := q.decodeRows(b)
	if err != nil {
		q.logger.WarnContext(ctx, "hierarchy: cache decode failed", "query_id", q.id, "error", err)
		return nil, false
	}
	return rows, true
}

func (q *Query) store(ctx context.Context, key string, rows []*Row) {
	b, err := encodeRows(rows)
	if err == nil {
		err = q.cache.Set(ctx, key, b, q.cacheTTL)
	}
	if err != nil {
		q.logger.WarnContext(ctx, "hierarchy: cache set failed", "query_id", q.id, "error", err)
	}
}

// MemoryCache is an in-process Cache bounded in size. The least recently
// used values are evicted first.
type MemoryCache struct {
	lru *expirable.LRU[string, memoryItem]
	now func() time.Time
}

type memoryItem struct {
	value   []byte
	expires time.Time
}

// DefaultMemoryCacheSize is the number of values a MemoryCache holds
// unless WithMaxEntries is given.
const DefaultMemoryCacheSize = 1024

// MemoryCacheOption configures a MemoryCache.
type MemoryCacheOption func(*memoryCacheConfig)

type memoryCacheConfig struct {
	size   int
	maxAge time.Duration
}

// WithMaxEntries bounds the number of stored values. Zero means unbounded.
func WithMaxEntries(n int) MemoryCacheOption {
	return func(c *memoryCacheConfig) { c.size = n }
}

// WithMaxAge expires every value after d, whatever TTL it was stored with.
func WithMaxAge(d time.Duration) MemoryCacheOption {
	return func(c *memoryCacheConfig) { c.maxAge = d }
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache(opts ...MemoryCacheOption) *MemoryCache {
	cfg := memoryCacheConfig{size: DefaultMemoryCacheSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &MemoryCache{
		lru: expirable.NewLRU[string, memoryItem](cfg.size, nil, cfg.maxAge),
		now: time.Now,
	}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	it, ok := c.lru.Get(key)
	if !ok {
		return nil, nil
	}
	if !it.expires.IsZero() && !c.now().Before(it.expires) {
		c.lru.Remove(key)
		return nil, nil
	}
	return bytes.Clone(it.value), nil
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	it := memoryItem{value: bytes.Clone(value)}
	if ttl > 0 {
		it.expires = c.now().Add(ttl)
	}
	c.lru.Add(key, it)
	return nil
}

// Delete implements Cache.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.lru.Remove(key)
	return nil
}

// DeletePrefix implements Cache.
func (c *MemoryCache) DeletePrefix(_ context.Context, prefix string) error {
	for _, k := range c.lru.Keys() {
		if strings.HasPrefix(k, prefix) {
			c.lru.Remove(k)
		}
	}
	return nil
}

// Clear implements Cache.
func (c *MemoryCache) Clear(context.Context) error {
	c.lru.Purge()
	return nil
}

// Len returns the number of stored values. Values past their TTL count
// until they are read or evicted.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}

var _ Cache = (*MemoryCache)(nil)
