// Package core contains the canonical schema snapshot that the planner works on.
// A snapshot is produced by the normalizer from live model definitions, compared
// by the differ, and persisted between runs so the next revision can be diffed
// against it.
package core

import (
	"slices"
	"sort"
)

// DefaultKind tags the variant held by a DefaultValue.
type DefaultKind string

const (
	// DefaultLiteral is a plain value emitted as-is.
	DefaultLiteral DefaultKind = "literal"
	// DefaultCode is a code expression emitted unquoted, e.g. DataTypes.NOW.
	DefaultCode DefaultKind = "code"
	// DefaultUnsupported marks a default that cannot be represented. It never
	// reaches a snapshot.
	DefaultUnsupported DefaultKind = "unsupported"
)

// DefaultValue is the default of a column.
type DefaultValue struct {
	Kind  DefaultKind `json:"kind"`
	Value any         `json:"value,omitempty"`
	Code  string      `json:"code,omitempty"`
}

// Literal returns a literal default.
func Literal(v any) *DefaultValue {
	return &DefaultValue{Kind: DefaultLiteral, Value: v}
}

// Code returns a code-expression default.
func Code(expr string) *DefaultValue {
	return &DefaultValue{Kind: DefaultCode, Code: expr}
}

// Reference is a foreign key target.
type Reference struct {
	Model string `json:"model"`
	Key   string `json:"key,omitempty"`
}

// Column is a normalized column definition.
type Column struct {
	Name          string         `json:"name"`
	Field         string         `json:"field,omitempty"`
	Type          ColumnType     `json:"type"`
	TypeExpr      string         `json:"typeExpr"`
	AllowNull     bool           `json:"allowNull"`
	PrimaryKey    bool           `json:"primaryKey,omitempty"`
	AutoIncrement bool           `json:"autoIncrement,omitempty"`
	Unique        bool           `json:"unique,omitempty"`
	Comment       string         `json:"comment,omitempty"`
	Default       *DefaultValue  `json:"default,omitempty"`
	References    *Reference     `json:"references,omitempty"`
	OnUpdate      string         `json:"onUpdate,omitempty"`
	OnDelete      string         `json:"onDelete,omitempty"`
	Extra         map[string]any `json:"extra,omitempty"`
}

// FieldName returns the physical column name.
func (c *Column) FieldName() string {
	if c.Field != "" {
		return c.Field
	}
	return c.Name
}

// Index is a normalized index definition. Its identity inside a table is the
// content hash returned by IndexKey.
type Index struct {
	Fields []string `json:"fields"`
	Unique bool     `json:"unique,omitempty"`
	Name   string   `json:"name,omitempty"`
	Type   string   `json:"type,omitempty"`
	Using  string   `json:"using,omitempty"`
	Parser string   `json:"parser,omitempty"`
}

// Table is a normalized table.
type Table struct {
	Name    string            `json:"tableName"`
	Columns []*Column         `json:"columns"`
	Indexes map[string]*Index `json:"indexes,omitempty"`
	Charset string            `json:"charset,omitempty"`
}

// Column returns the column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// IndexKeys returns the index hashes in sorted order.
func (t *Table) IndexKeys() []string {
	keys := make([]string, 0, len(t.Indexes))
	for k := range t.Indexes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// References returns the distinct models referenced by the table's columns,
// in column order.
func (t *Table) References() []string {
	var refs []string
	for _, c := range t.Columns {
		if c.References == nil || c.References.Model == "" {
			continue
		}
		if !slices.Contains(refs, c.References.Model) {
			refs = append(refs, c.References.Model)
		}
	}
	return refs
}

// Snapshot is the normalized schema of a whole model set, keyed by table name.
type Snapshot struct {
	Tables map[string]*Table `json:"tables"`
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{Tables: map[string]*Table{}}
}

// Table returns the named table, or nil. A nil snapshot has no tables.
func (s *Snapshot) Table(name string) *Table {
	if s == nil {
		return nil
	}
	return s.Tables[name]
}

// TableNames returns the table names in sorted order.
func (s *Snapshot) TableNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Tables))
	for n := range s.Tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
