// Package plan turns change records into an ordered list of schema-change
// actions. Every action names the tables that must reach their target state
// before it runs; Sort orders the list so those dependencies hold.
package plan

import (
	"fmt"
	"slices"

	"migplan/internal/core"
)

// Kind is the kind of an action. The numeric order is the execution
// precedence: destructive kinds run before constructive ones.
type Kind int

const (
	RemoveIndex Kind = iota
	RemoveColumn
	DropTable
	CreateTable
	AddColumn
	ChangeColumn
	AddIndex
)

var kindNames = [...]string{
	RemoveIndex:  "removeIndex",
	RemoveColumn: "removeColumn",
	DropTable:    "dropTable",
	CreateTable:  "createTable",
	AddColumn:    "addColumn",
	ChangeColumn: "changeColumn",
	AddIndex:     "addIndex",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind returns the kind with the given action name.
func ParseKind(name string) (Kind, bool) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), true
		}
	}
	return 0, false
}

// Action is one schema change. Actions are values: two actions are equal
// when all fields are structurally equal.
type Action struct {
	Kind  Kind
	Table string
	// DependsOn lists the tables that must exist first, without duplicates,
	// in first-seen order.
	DependsOn []string

	// Column is the attribute name for addColumn, changeColumn and
	// removeColumn. Definition is the full column: the current one for add
	// and change, the removed one for removeColumn.
	Column     string
	Definition *core.Column

	// Columns and Charset describe a table for createTable.
	Columns []*core.Column
	Charset string

	// Index is set for addIndex and removeIndex.
	Index *core.Index
}

func (a Action) String() string {
	switch a.Kind {
	case CreateTable, DropTable:
		return fmt.Sprintf("%s %s", a.Kind, a.Table)
	case AddIndex, RemoveIndex:
		return fmt.Sprintf("%s %s%v", a.Kind, a.Table, a.Index.Fields)
	default:
		return fmt.Sprintf("%s %s.%s", a.Kind, a.Table, a.Column)
	}
}

// dependsOn builds a dependency set from names, skipping empty ones.
func dependsOn(names ...string) []string {
	deps := make([]string, 0, len(names))
	for _, n := range names {
		if n != "" && !slices.Contains(deps, n) {
			deps = append(deps, n)
		}
	}
	return deps
}

func referencedModel(c *core.Column) string {
	if c == nil || c.References == nil {
		return ""
	}
	return c.References.Model
}
