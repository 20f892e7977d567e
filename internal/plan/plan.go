package plan

import (
	"fmt"
	"slices"

	"migplan/internal/core"
	"migplan/internal/diff"
)

// Plan maps changes to actions and sorts them.
func Plan(changes []diff.Change, previous, current *core.Snapshot, w *core.Warnings) []Action {
	return Sort(Build(changes, previous, current, w))
}

// Generate diffs previous against current in both directions and returns the
// forward and reverse plans.
func Generate(previous, current *core.Snapshot, w *core.Warnings) (up, down []Action, err error) {
	forward, err := diff.Diff(previous, current)
	if err != nil {
		return nil, nil, fmt.Errorf("diff up: %w", err)
	}
	backward, err := diff.Diff(current, previous)
	if err != nil {
		return nil, nil, fmt.Errorf("diff down: %w", err)
	}
	return Plan(forward, previous, current, w), Plan(backward, current, previous, nil), nil
}

// Build maps each change to its actions in planning order, without sorting.
// Changes that cannot be planned are reported to w and skipped.
func Build(changes []diff.Change, previous, current *core.Snapshot, w *core.Warnings) []Action {
	b := builder{previous: previous, current: current, w: w}
	for _, ch := range changes {
		b.add(ch)
	}
	return b.actions
}

type builder struct {
	previous *core.Snapshot
	current  *core.Snapshot
	w        *core.Warnings
	actions  []Action
}

func (b *builder) add(ch diff.Change) {
	if ch.Kind == diff.ArrayChanged {
		b.w.Addf("%s: changes inside ordered sequences are not supported; check the migration by hand", ch)
		return
	}

	switch ch.Scope {
	case diff.ScopeTable:
		b.table(ch)
	case diff.ScopeColumn:
		b.column(ch)
	case diff.ScopeColumnAttribute:
		b.changeColumn(ch.Table, ch.Column)
	case diff.ScopeIndex:
		b.index(ch)
	case diff.ScopeIndexes:
		b.indexes(ch)
	case diff.ScopeTableOption:
		b.w.Addf("%s: table option changes are not supported", ch)
	}
}

func (b *builder) table(ch diff.Change) {
	switch ch.Kind {
	case diff.New:
		t, ok := ch.Rhs.(*core.Table)
		if !ok {
			return
		}
		b.push(Action{
			Kind:      CreateTable,
			Table:     t.Name,
			DependsOn: dependsOn(t.References()...),
			Columns:   t.Columns,
			Charset:   t.Charset,
		})
		for _, key := range t.IndexKeys() {
			b.push(indexAction(AddIndex, t.Name, t.Indexes[key]))
		}

	case diff.Deleted:
		t, ok := ch.Lhs.(*core.Table)
		if !ok {
			return
		}
		for _, key := range t.IndexKeys() {
			b.push(indexAction(RemoveIndex, t.Name, t.Indexes[key]))
		}
		deps := append([]string{t.Name}, b.referencing(t.Name)...)
		b.push(Action{Kind: DropTable, Table: t.Name, DependsOn: dependsOn(deps...)})

	default:
		b.w.Addf("%s: whole-table edits are not supported", ch)
	}
}

// referencing returns the tables of the previous snapshot holding a foreign
// key to table. A table is dropped only after the tables referencing it.
func (b *builder) referencing(table string) []string {
	var names []string
	for _, name := range b.previous.TableNames() {
		if name != table && slices.Contains(b.previous.Table(name).References(), table) {
			names = append(names, name)
		}
	}
	return names
}

func (b *builder) column(ch diff.Change) {
	switch ch.Kind {
	case diff.New:
		c, ok := ch.Rhs.(*core.Column)
		if !ok {
			return
		}
		b.push(Action{
			Kind:       AddColumn,
			Table:      ch.Table,
			DependsOn:  dependsOn(ch.Table, referencedModel(c)),
			Column:     ch.Column,
			Definition: c,
		})

	case diff.Deleted:
		c, ok := ch.Lhs.(*core.Column)
		if !ok {
			return
		}
		b.push(Action{
			Kind:       RemoveColumn,
			Table:      ch.Table,
			DependsOn:  dependsOn(ch.Table),
			Column:     ch.Column,
			Definition: c,
		})

	default:
		b.changeColumn(ch.Table, ch.Column)
	}
}

// changeColumn re-describes the current column in full; attribute changes are
// never applied incrementally.
func (b *builder) changeColumn(table, column string) {
	t := b.current.Table(table)
	if t == nil {
		return
	}
	c := t.Column(column)
	if c == nil {
		b.w.Addf("%s.%s: changed column is missing from the current schema", table, column)
		return
	}
	b.push(Action{
		Kind:       ChangeColumn,
		Table:      table,
		DependsOn:  dependsOn(table, referencedModel(c)),
		Column:     column,
		Definition: c,
	})
}

func (b *builder) index(ch diff.Change) {
	lhs, _ := ch.Lhs.(*core.Index)
	rhs, _ := ch.Rhs.(*core.Index)
	if rhs != nil && ch.Kind != diff.Deleted {
		b.push(indexAction(AddIndex, ch.Table, rhs))
	}
	if lhs != nil && ch.Kind != diff.New {
		b.push(indexAction(RemoveIndex, ch.Table, lhs))
	}
}

// indexes handles a replaced index collection. Only the first added and the
// first removed entry are planned; anything beyond that is reported.
func (b *builder) indexes(ch diff.Change) {
	lhs, _ := ch.Lhs.(map[string]*core.Index)
	rhs, _ := ch.Rhs.(map[string]*core.Index)

	if keys := sortedKeys(rhs); len(keys) > 0 {
		b.push(indexAction(AddIndex, ch.Table, rhs[keys[0]]))
		if len(keys) > 1 {
			b.w.Addf("%s: %d more added indexes are not planned; add them by hand", ch.Table, len(keys)-1)
		}
	}
	if keys := sortedKeys(lhs); len(keys) > 0 {
		b.push(indexAction(RemoveIndex, ch.Table, lhs[keys[0]]))
		if len(keys) > 1 {
			b.w.Addf("%s: %d more removed indexes are not planned; remove them by hand", ch.Table, len(keys)-1)
		}
	}
}

func (b *builder) push(a Action) {
	b.actions = append(b.actions, a)
}

func indexAction(kind Kind, table string, idx *core.Index) Action {
	return Action{Kind: kind, Table: table, DependsOn: dependsOn(table), Index: idx}
}

func sortedKeys(m map[string]*core.Index) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
