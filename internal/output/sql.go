package output

import (
	"fmt"
	"strings"

	"migplan/internal/diff"
	"migplan/internal/migration"
)

type sqlFormatter struct {
	renderer StatementRenderer
}

// FormatChanges lists the changes as text; changes have no SQL of their own.
func (f sqlFormatter) FormatChanges(changes []diff.Change) (string, error) {
	return formatChangesText(changes), nil
}

// FormatArtifact renders the up commands as SQL followed by the down
// commands as comments.
func (f sqlFormatter) FormatArtifact(a *migration.Artifact) (string, error) {
	if a == nil {
		return "", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "-- migplan migration %d", a.Info.Revision)
	if a.Info.Name != "" {
		sb.WriteString(": " + a.Info.Name)
	}
	sb.WriteString("\n-- Review before running in production.\n")
	writeCommentSection(&sb, "ACTIONS", a.Summary)

	up, err := f.statements(a.Up)
	if err != nil {
		return "", fmt.Errorf("up: %w", err)
	}
	down, err := f.statements(a.Down)
	if err != nil {
		return "", fmt.Errorf("down: %w", err)
	}

	if len(up) == 0 {
		sb.WriteString("\n-- No SQL statements generated.\n")
	} else {
		sb.WriteString("\n-- SQL\n")
		for _, stmt := range up {
			f.writeNotes(&sb, stmt)
			sb.WriteString(terminate(stmt) + "\n")
		}
	}

	if len(down) > 0 {
		sb.WriteString("\n-- ROLLBACK SQL (run separately)\n")
		for _, stmt := range down {
			for _, line := range splitCommentLines(stmt) {
				if line != "" {
					sb.WriteString("-- " + line + "\n")
				}
			}
		}
	}
	return sb.String(), nil
}

func (f sqlFormatter) statements(cmds []migration.Command) ([]string, error) {
	var out []string
	for i, cmd := range cmds {
		stmts, err := f.renderer.Statements(cmd)
		if err != nil {
			return nil, fmt.Errorf("command %d (%s): %w", i, cmd.ActionName, err)
		}
		for _, s := range stmts {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func (f sqlFormatter) writeNotes(sb *strings.Builder, stmt string) {
	a, ok := f.renderer.(Annotator)
	if !ok {
		return
	}
	for _, note := range a.Annotate(stmt) {
		sb.WriteString("-- " + note + "\n")
	}
}

func terminate(stmt string) string {
	if strings.HasSuffix(stmt, ";") {
		return stmt
	}
	return stmt + ";"
}

func writeCommentSection(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString("\n-- " + title + "\n")
	for _, item := range items {
		for _, line := range splitCommentLines(item) {
			if line == "" {
				continue
			}
			sb.WriteString("-- - " + line + "\n")
		}
	}
}

func splitCommentLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return lines
}
