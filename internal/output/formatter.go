// Package output renders change lists and migration artifacts. Formats are
// swappable: the script form that is persisted, JSON, SQL for a dialect and
// a compact summary.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"migplan/internal/diff"
	"migplan/internal/migration"
)

// Format is an enum type representing the available output formats.
type Format string

const (
	FormatScript  Format = "script"
	FormatJSON    Format = "json"
	FormatSQL     Format = "sql"
	FormatSummary Format = "summary"
)

// Formatter renders the changes between two snapshots and migration
// artifacts.
type Formatter interface {
	FormatChanges(changes []diff.Change) (string, error)
	FormatArtifact(a *migration.Artifact) (string, error)
}

// StatementRenderer turns a command into SQL statements.
type StatementRenderer interface {
	Statements(cmd migration.Command) ([]string, error)
}

// Annotator is optionally implemented by a StatementRenderer. Its notes are
// written as comments above each statement.
type Annotator interface {
	Annotate(stmt string) []string
}

// NewFormatter returns the formatter called name. An empty name selects the
// script format. The SQL format needs a statement renderer.
func NewFormatter(name string, renderer StatementRenderer) (Formatter, error) {
	format := Format(strings.ToLower(strings.TrimSpace(name)))
	switch format {
	case "", FormatScript:
		return scriptFormatter{}, nil
	case FormatJSON:
		return jsonFormatter{}, nil
	case FormatSQL:
		if renderer == nil {
			return nil, fmt.Errorf("format %s needs a dialect", format)
		}
		return sqlFormatter{renderer: renderer}, nil
	case FormatSummary:
		return summaryFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s; use 'script', 'json', 'sql', or 'summary'", name)
	}
}

// Write formats a and writes it to w.
func Write(w io.Writer, f Formatter, a *migration.Artifact) error {
	content, err := f.FormatArtifact(a)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, content)
	return err
}

type scriptFormatter struct{}

func (scriptFormatter) FormatChanges(changes []diff.Change) (string, error) {
	return formatChangesText(changes), nil
}

func (scriptFormatter) FormatArtifact(a *migration.Artifact) (string, error) {
	if a == nil {
		return "", nil
	}
	b, err := migration.RenderScript(a)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// formatChangesText lists one change per line.
func formatChangesText(changes []diff.Change) string {
	if len(changes) == 0 {
		return "No differences detected.\n"
	}

	var sb strings.Builder
	sb.WriteString("Schema differences:\n\n")
	for _, ch := range changes {
		fmt.Fprintf(&sb, "  %s %s (%s)", kindSymbol(ch.Kind), changeLabel(ch), ch.Scope)
		if hasValues(ch) {
			fmt.Fprintf(&sb, ": %s -> %s", compact(ch.Lhs), compact(ch.Rhs))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func kindSymbol(k diff.Kind) string {
	switch k {
	case diff.New:
		return "+"
	case diff.Deleted:
		return "-"
	case diff.Edited:
		return "~"
	default:
		return "!"
	}
}

func changeLabel(ch diff.Change) string {
	switch ch.Scope {
	case diff.ScopeTable:
		return ch.Table
	case diff.ScopeColumn:
		return ch.Table + "." + ch.Column
	case diff.ScopeColumnAttribute:
		return ch.Table + "." + ch.Column + "." + strings.Join(ch.Attribute, ".")
	case diff.ScopeIndex:
		return ch.Table + " index " + ch.Index
	case diff.ScopeIndexes:
		return ch.Table + " indexes"
	default:
		return strings.Join(ch.Path, ".")
	}
}

// hasValues reports whether the change carries plain values worth printing.
func hasValues(ch diff.Change) bool {
	return ch.Scope == diff.ScopeColumnAttribute || ch.Scope == diff.ScopeTableOption
}

func compact(v any) string {
	if v == nil {
		return "none"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
