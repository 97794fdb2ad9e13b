package sql

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/hierarchy/dialect"
)

// versionQueries reports the server version, one statement per dialect.
var versionQueries = map[string]string{
	dialect.Postgres:  "SHOW server_version_num",
	dialect.MySQL:     "SELECT VERSION()",
	dialect.SQLite:    "SELECT sqlite_version()",
	dialect.SQLServer: "SELECT CAST(SERVERPROPERTY('ProductVersion') AS NVARCHAR(128))",
	dialect.Oracle:    "SELECT version FROM product_component_version WHERE product LIKE 'Oracle%'",
}

// ServerVersion reports the version of the connected server. The first
// successful answer is kept for the life of the driver; concurrent
// callers wait on a single probe. Failures are not kept.
func (d *Driver) ServerVersion(ctx context.Context) (dialect.Version, error) {
	if v := d.version.Load(); v != nil {
		return *v, nil
	}
	res, err, _ := d.probe.Do("version", func() (any, error) {
		if v := d.version.Load(); v != nil {
			return *v, nil
		}
		v, err := d.probeVersion(ctx)
		if err != nil {
			return nil, err
		}
		d.version.Store(&v)
		return v, nil
	})
	if err != nil {
		return dialect.Version{}, err
	}
	return res.(dialect.Version), nil
}

func (d *Driver) probeVersion(ctx context.Context) (v dialect.Version, err error) {
	name := d.Dialect()
	query, ok := versionQueries[name]
	if !ok {
		return v, fmt.Errorf("dialect/sql: no server version query for dialect %q", name)
	}
	rows := &Rows{}
	if err := d.Conn.Query(ctx, query, nil, rows); err != nil {
		return v, err
	}
	defer func() { err = errors.Join(err, rows.Close()) }()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return v, err
		}
		return v, fmt.Errorf("dialect/sql: %q returned no rows", query)
	}
	var s string
	if err := rows.Scan(&s); err != nil {
		return v, fmt.Errorf("dialect/sql: scan server version: %w", err)
	}
	if name == dialect.Postgres {
		return postgresVersion(s)
	}
	return dialect.ParseVersion(s)
}

// postgresVersion decodes server_version_num: major*10000+minor since 10,
// major*10000+minor*100+patch before.
func postgresVersion(s string) (dialect.Version, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return dialect.ParseVersion(s)
	}
	if n >= 100000 {
		return dialect.V(n/10000, n%10000), nil
	}
	return dialect.V(n/10000, n/100%100, n%100), nil
}
