// Package mysql reads the schema of MySQL, MariaDB and TiDB servers from
// information_schema. The three share a wire protocol; the flavor is
// detected from the server's version comment.
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"migplan/internal/introspect"
)

type introspecter struct{}

type introspectCtx struct {
	ctx context.Context
	db  *sql.DB
}

// New returns the information_schema introspecter.
func New() introspect.Introspecter {
	return &introspecter{}
}

func (i *introspecter) Introspect(ctx context.Context, db *sql.DB) (*introspect.Database, error) {
	d := new(introspect.Database)
	var name sql.NullString
	if err := db.QueryRowContext(ctx, "SELECT DATABASE()").Scan(&name); err != nil {
		return nil, fmt.Errorf("read database name: %w", err)
	}
	if !name.Valid {
		return nil, fmt.Errorf("no database selected")
	}
	d.Name = name.String

	flavor, version, err := detectFlavor(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("detect server flavor: %w", err)
	}
	d.Flavor, d.Version = flavor, version

	if err := introspectTables(&introspectCtx{ctx: ctx, db: db}, d); err != nil {
		return nil, err
	}
	return d, nil
}
