// Package drift compares the schema the migrations should have produced with
// the schema found on a database server.
package drift

import (
	"fmt"
	"slices"
	"strings"

	"migplan/internal/core"
	"migplan/internal/introspect"
)

// Kind classifies a finding.
type Kind string

const (
	MissingTable   Kind = "missingTable"
	ExtraTable     Kind = "extraTable"
	MissingColumn  Kind = "missingColumn"
	ExtraColumn    Kind = "extraColumn"
	NullMismatch   Kind = "nullability"
	MissingIndex   Kind = "missingIndex"
	UniqueMismatch Kind = "uniqueness"
)

// Finding is one difference between expected and live schema.
type Finding struct {
	Kind   Kind
	Table  string
	Column string
	Index  []string
}

func (f Finding) String() string {
	switch f.Kind {
	case MissingTable:
		return fmt.Sprintf("table %s is missing", f.Table)
	case ExtraTable:
		return fmt.Sprintf("table %s is not in the models", f.Table)
	case MissingColumn:
		return fmt.Sprintf("column %s.%s is missing", f.Table, f.Column)
	case ExtraColumn:
		return fmt.Sprintf("column %s.%s is not in the models", f.Table, f.Column)
	case NullMismatch:
		return fmt.Sprintf("column %s.%s differs in nullability", f.Table, f.Column)
	case MissingIndex:
		return fmt.Sprintf("index on %s (%s) is missing", f.Table, strings.Join(f.Index, ", "))
	case UniqueMismatch:
		return fmt.Sprintf("index on %s (%s) differs in uniqueness", f.Table, strings.Join(f.Index, ", "))
	default:
		return string(f.Kind)
	}
}

// Compare lists the differences between expected and live. Tables named in
// ignore are skipped on both sides. Live indexes that no model declares are
// not reported; MySQL creates them for keys and foreign keys.
func Compare(expected *core.Snapshot, live *introspect.Database, ignore ...string) []Finding {
	var out []Finding
	for _, name := range expected.TableNames() {
		if slices.Contains(ignore, name) {
			continue
		}
		want := expected.Table(name)
		got := live.Table(name)
		if got == nil {
			out = append(out, Finding{Kind: MissingTable, Table: name})
			continue
		}
		out = append(out, compareTable(want, got)...)
	}

	if live != nil {
		for _, t := range live.Tables {
			if slices.Contains(ignore, t.Name) || expected.Table(t.Name) != nil {
				continue
			}
			out = append(out, Finding{Kind: ExtraTable, Table: t.Name})
		}
	}
	return out
}

func compareTable(want *core.Table, got *introspect.Table) []Finding {
	var out []Finding
	declared := map[string]bool{}
	for _, c := range want.Columns {
		field := c.FieldName()
		declared[field] = true
		lc := got.Column(field)
		if lc == nil {
			out = append(out, Finding{Kind: MissingColumn, Table: want.Name, Column: field})
			continue
		}
		if nullable := c.AllowNull && !c.PrimaryKey; nullable != lc.Nullable {
			out = append(out, Finding{Kind: NullMismatch, Table: want.Name, Column: field})
		}
	}
	for _, lc := range got.Columns {
		if !declared[lc.Name] {
			out = append(out, Finding{Kind: ExtraColumn, Table: want.Name, Column: lc.Name})
		}
	}

	for _, key := range want.IndexKeys() {
		idx := want.Indexes[key]
		fields := physicalFields(want, idx.Fields)
		li := findIndex(got, fields)
		switch {
		case li == nil:
			out = append(out, Finding{Kind: MissingIndex, Table: want.Name, Index: fields})
		case li.Unique != idx.Unique:
			out = append(out, Finding{Kind: UniqueMismatch, Table: want.Name, Index: fields})
		}
	}
	return out
}

// physicalFields maps attribute names to column names.
func physicalFields(t *core.Table, fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f
		if c := t.Column(f); c != nil {
			out[i] = c.FieldName()
		}
	}
	return out
}

func findIndex(t *introspect.Table, columns []string) *introspect.Index {
	var match *introspect.Index
	for _, idx := range t.Indexes {
		if !slices.Equal(idx.Columns, columns) {
			continue
		}
		if match == nil || (idx.Unique && !match.Unique) {
			match = idx
		}
	}
	return match
}
