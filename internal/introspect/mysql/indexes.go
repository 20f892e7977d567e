package mysql

import (
	"database/sql"
	"strings"

	"migplan/internal/introspect"
)

func introspectIndexes(ic *introspectCtx, t *introspect.Table) error {
	rows, err := ic.db.QueryContext(ic.ctx, `
		SELECT index_name, non_unique, index_type, column_name
		FROM information_schema.statistics
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY index_name, seq_in_index
	`, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	byName := map[string]*introspect.Index{}
	for rows.Next() {
		var indexName, indexType, column sql.NullString
		var nonUnique int
		if err := rows.Scan(&indexName, &nonUnique, &indexType, &column); err != nil {
			return err
		}

		idx, ok := byName[indexName.String]
		if !ok {
			idx = &introspect.Index{
				Name:   indexName.String,
				Unique: nonUnique == 0,
				Type:   normalizeIndexType(indexType.String),
			}
			byName[idx.Name] = idx
			t.Indexes = append(t.Indexes, idx)
		}
		// functional index parts have no column
		if column.Valid {
			idx.Columns = append(idx.Columns, column.String)
		}
	}
	return rows.Err()
}

func normalizeIndexType(t string) string {
	switch strings.ToUpper(t) {
	case "HASH":
		return "HASH"
	case "FULLTEXT":
		return "FULLTEXT"
	case "SPATIAL", "RTREE":
		return "SPATIAL"
	default:
		return "BTREE"
	}
}
