// Package diff computes the structural difference between two schema
// snapshots. Snapshots are projected onto nested trees and compared with a
// JSON patch differ; every patch operation becomes one typed Change record.
package diff

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/wI2L/jsondiff"

	"migplan/internal/core"
)

// Kind is the kind of a change record.
type Kind string

const (
	New          Kind = "N"
	Deleted      Kind = "D"
	Edited       Kind = "E"
	ArrayChanged Kind = "A"
)

// Scope is the schema element a change applies to.
type Scope string

const (
	ScopeTable           Scope = "table"
	ScopeTableOption     Scope = "tableOption"
	ScopeColumn          Scope = "column"
	ScopeColumnAttribute Scope = "columnAttribute"
	ScopeIndexes         Scope = "indexes"
	ScopeIndex           Scope = "index"
)

// Change is one difference between two snapshots.
//
// Lhs and Rhs hold the previous and current value: *core.Table for table
// scope, *core.Column for column scope, *core.Index for index scope,
// map[string]*core.Index for the index collection, and plain tree values
// for attributes and table options. The missing side is nil.
type Change struct {
	Kind      Kind
	Scope     Scope
	Path      []string
	Table     string
	Column    string
	Attribute []string
	Index     string
	Lhs       any
	Rhs       any
}

func (c Change) String() string {
	return fmt.Sprintf("%s %s", c.Kind, strings.Join(c.Path, "."))
}

const (
	opAdd     = "add"
	opRemove  = "remove"
	opReplace = "replace"
)

// Diff returns the changes turning previous into current, ordered by path.
// A nil snapshot is treated as empty.
func Diff(previous, current *core.Snapshot) ([]Change, error) {
	lhs := snapshotTree(previous)
	rhs := snapshotTree(current)

	patch, err := jsondiff.Compare(lhs, rhs)
	if err != nil {
		return nil, fmt.Errorf("compare snapshots: %w", err)
	}

	changes := make([]Change, 0, len(patch))
	for _, op := range patch {
		ch, ok := classify(op.Type, splitPointer(string(op.Path)), lhs, rhs, previous, current)
		if !ok {
			continue
		}
		changes = append(changes, ch)
	}

	slices.SortStableFunc(changes, func(a, b Change) int {
		return slices.Compare(a.Path, b.Path)
	})
	return changes, nil
}

func classify(opType string, path []string, lhsTree, rhsTree map[string]any, previous, current *core.Snapshot) (Change, bool) {
	if len(path) == 0 {
		return Change{}, false
	}

	ch := Change{Path: path, Table: path[0]}
	switch opType {
	case opAdd:
		ch.Kind = New
	case opRemove:
		ch.Kind = Deleted
	case opReplace:
		ch.Kind = Edited
	default:
		return Change{}, false
	}
	if crossesArray(lhsTree, path) || crossesArray(rhsTree, path) {
		ch.Kind = ArrayChanged
	}

	prevTable, curTable := previous.Table(ch.Table), current.Table(ch.Table)

	switch {
	case len(path) == 1:
		ch.Scope = ScopeTable
		ch.Lhs, ch.Rhs = tableOrNil(prevTable), tableOrNil(curTable)

	case path[1] == "schema" && len(path) == 3:
		ch.Scope = ScopeColumn
		ch.Column = path[2]
		ch.Lhs, ch.Rhs = columnOrNil(prevTable, ch.Column), columnOrNil(curTable, ch.Column)

	case path[1] == "schema" && len(path) > 3:
		ch.Scope = ScopeColumnAttribute
		ch.Column = path[2]
		ch.Attribute = path[3:]
		ch.Lhs, ch.Rhs = lookup(lhsTree, path), lookup(rhsTree, path)

	case path[1] == "indexes" && len(path) == 2:
		ch.Scope = ScopeIndexes
		ch.Lhs, ch.Rhs = indexesOf(prevTable), indexesOf(curTable)

	case path[1] == "indexes":
		ch.Scope = ScopeIndex
		ch.Index = path[2]
		ch.Lhs, ch.Rhs = indexOrNil(prevTable, ch.Index), indexOrNil(curTable, ch.Index)

	default:
		ch.Scope = ScopeTableOption
		ch.Lhs, ch.Rhs = lookup(lhsTree, path), lookup(rhsTree, path)
	}
	return ch, true
}

// splitPointer splits a JSON pointer into unescaped reference tokens.
func splitPointer(p string) []string {
	if p == "" || p == "/" {
		return nil
	}
	parts := strings.Split(strings.TrimPrefix(p, "/"), "/")
	for i, s := range parts {
		parts[i] = strings.ReplaceAll(strings.ReplaceAll(s, "~1", "/"), "~0", "~")
	}
	return parts
}

// crossesArray reports whether any container above the last path segment
// is an ordered sequence.
func crossesArray(tree map[string]any, path []string) bool {
	var node any = tree
	for _, seg := range path[:len(path)-1] {
		switch n := node.(type) {
		case map[string]any:
			node = n[seg]
		default:
			return isSequence(node)
		}
	}
	return isSequence(node)
}

// isSequence reports whether v is a slice or array of any element type.
// Values set through the model API keep their Go types, e.g. []string.
func isSequence(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return true
	}
	return false
}

func lookup(tree map[string]any, path []string) any {
	var node any = tree
	for _, seg := range path {
		m, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node = m[seg]
	}
	return node
}

func tableOrNil(t *core.Table) any {
	if t == nil {
		return nil
	}
	return t
}

func columnOrNil(t *core.Table, name string) any {
	if t == nil {
		return nil
	}
	if c := t.Column(name); c != nil {
		return c
	}
	return nil
}

func indexOrNil(t *core.Table, key string) any {
	if t == nil {
		return nil
	}
	if idx, ok := t.Indexes[key]; ok {
		return idx
	}
	return nil
}

func indexesOf(t *core.Table) map[string]*core.Index {
	if t == nil {
		return nil
	}
	return t.Indexes
}
