// Package introspect describes a database schema as it exists on a server.
// Introspecters read it from a live connection so it can be checked against
// the schema the migrations are expected to produce.
package introspect

import (
	"context"
	"database/sql"
)

// Introspecter reads the schema of the database db is connected to.
type Introspecter interface {
	Introspect(ctx context.Context, db *sql.DB) (*Database, error)
}

// Database is the schema of one database.
type Database struct {
	Name    string
	Flavor  string
	Version string
	Tables  []*Table
}

// Table returns the named table, or nil.
func (d *Database) Table(name string) *Table {
	if d == nil {
		return nil
	}
	for _, t := range d.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Table is a base table with its columns in ordinal order.
type Table struct {
	Name    string
	Comment string
	Engine  string
	Charset string
	Collate string
	Columns []*Column
	Indexes []*Index
}

// Column returns the named column, or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Column is a table column. RawType is the server's type text,
// e.g. "varchar(100)".
type Column struct {
	Name          string
	RawType       string
	Nullable      bool
	PrimaryKey    bool
	AutoIncrement bool
	Default       *string
	Comment       string
}

// Index is a table index. Columns are in index order, without prefix
// lengths.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
	Type    string
}
