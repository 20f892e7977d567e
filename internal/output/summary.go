package output

import (
	"fmt"
	"strings"

	"migplan/internal/diff"
	"migplan/internal/migration"
)

type summaryFormatter struct{}

type counts struct{ added, edited, removed int }

func (c *counts) add(k diff.Kind) {
	switch k {
	case diff.New:
		c.added++
	case diff.Deleted:
		c.removed++
	default:
		c.edited++
	}
}

// FormatChanges formats changes as a compact summary.
// Example output:
//
//	Tables:    +3, ~2, -0
//	Columns:   +5, ~2, -0
//	Indexes:   +1, ~0, -2
func (summaryFormatter) FormatChanges(changes []diff.Change) (string, error) {
	if len(changes) == 0 {
		return "No changes detected.\n", nil
	}

	var tables, columns, indexes, options counts
	edited := map[string]bool{}
	perTable := map[string]int{}
	var tableOrder []string
	unplanned := 0

	for _, ch := range changes {
		if perTable[ch.Table] == 0 {
			tableOrder = append(tableOrder, ch.Table)
		}
		perTable[ch.Table]++
		if ch.Kind == diff.ArrayChanged {
			unplanned++
			continue
		}
		switch ch.Scope {
		case diff.ScopeTable:
			tables.add(ch.Kind)
		case diff.ScopeColumn:
			columns.add(ch.Kind)
		case diff.ScopeColumnAttribute:
			key := ch.Table + "." + ch.Column
			if !edited[key] {
				edited[key] = true
				columns.edited++
			}
		case diff.ScopeIndex, diff.ScopeIndexes:
			indexes.add(ch.Kind)
		case diff.ScopeTableOption:
			options.add(ch.Kind)
		}
	}

	var sb strings.Builder
	sb.WriteString("Schema Diff Summary\n")
	sb.WriteString("===================\n\n")
	fmt.Fprintf(&sb, "Tables:      +%d, ~%d, -%d\n", tables.added, tables.edited, tables.removed)
	fmt.Fprintf(&sb, "Columns:     +%d, ~%d, -%d\n", columns.added, columns.edited, columns.removed)
	fmt.Fprintf(&sb, "Indexes:     +%d, ~%d, -%d\n", indexes.added, indexes.edited, indexes.removed)
	fmt.Fprintf(&sb, "Options:     +%d, ~%d, -%d\n", options.added, options.edited, options.removed)
	if unplanned > 0 {
		fmt.Fprintf(&sb, "\nUnplanned:   %d\n", unplanned)
	}

	sb.WriteString("\nDetails:\n")
	for _, t := range tableOrder {
		fmt.Fprintf(&sb, "  %s: %d change(s)\n", t, perTable[t])
	}
	return sb.String(), nil
}

// FormatArtifact formats a migration artifact as a compact summary.
func (summaryFormatter) FormatArtifact(a *migration.Artifact) (string, error) {
	if a == nil || len(a.Up)+len(a.Down) == 0 {
		return "No migration commands.\n", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Migration %d", a.Info.Revision)
	if a.Info.Name != "" {
		sb.WriteString(": " + a.Info.Name)
	}
	sb.WriteString("\n=================\n\n")

	fmt.Fprintf(&sb, "Up commands:   %d\n", len(a.Up))
	fmt.Fprintf(&sb, "Down commands: %d\n", len(a.Down))

	if byAction := countActions(a.Up); byAction != "" {
		fmt.Fprintf(&sb, "\nUp by action:  %s\n", byAction)
	}
	if len(a.Summary) > 0 {
		fmt.Fprintf(&sb, "\nActions: %d\n", len(a.Summary))
		for _, line := range a.Summary {
			fmt.Fprintf(&sb, "   - %s\n", line)
		}
	}
	return sb.String(), nil
}

func countActions(cmds []migration.Command) string {
	var order []string
	n := map[string]int{}
	for _, c := range cmds {
		if n[c.ActionName] == 0 {
			order = append(order, c.ActionName)
		}
		n[c.ActionName]++
	}
	parts := make([]string, len(order))
	for i, name := range order {
		parts[i] = fmt.Sprintf("%s=%d", name, n[name])
	}
	return strings.Join(parts, ", ")
}
