package mysql

import (
	"database/sql"
	"fmt"
	"strings"

	"migplan/internal/introspect"
)

func introspectTables(ic *introspectCtx, d *introspect.Database) error {
	rows, err := ic.db.QueryContext(ic.ctx, `
		SELECT table_name, table_comment, engine, table_collation
		FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}

	for rows.Next() {
		var name, comment, engine, collation sql.NullString
		if err := rows.Scan(&name, &comment, &engine, &collation); err != nil {
			rows.Close()
			return err
		}
		charset, collate := splitCollation(collation.String)
		d.Tables = append(d.Tables, &introspect.Table{
			Name:    name.String,
			Comment: comment.String,
			Engine:  engine.String,
			Charset: charset,
			Collate: collate,
		})
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, t := range d.Tables {
		if err := introspectColumns(ic, t); err != nil {
			return fmt.Errorf("table %s: %w", t.Name, err)
		}
		if err := introspectIndexes(ic, t); err != nil {
			return fmt.Errorf("table %s: %w", t.Name, err)
		}
	}
	return nil
}

// splitCollation derives the character set from a collation name,
// "utf8mb4_0900_ai_ci" is charset utf8mb4.
func splitCollation(collation string) (charset, collate string) {
	if idx := strings.Index(collation, "_"); idx > 0 {
		return collation[:idx], collation
	}
	return "", collation
}
