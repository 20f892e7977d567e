package diff

import "migplan/internal/core"

// snapshotTree projects a snapshot onto nested maps:
//
//	table -> {tableName, charset, schema: {column -> attributes}, indexes: {hash -> index}}
//
// A table without indexes carries an empty sequence instead of a map, the
// way persisted states have always stored it.
func snapshotTree(s *core.Snapshot) map[string]any {
	out := make(map[string]any)
	if s == nil {
		return out
	}
	for name, t := range s.Tables {
		out[name] = tableTree(t)
	}
	return out
}

func tableTree(t *core.Table) map[string]any {
	schema := make(map[string]any, len(t.Columns))
	for _, c := range t.Columns {
		schema[c.Name] = ColumnAttributes(c)
	}

	var indexes any = []any{}
	if len(t.Indexes) > 0 {
		m := make(map[string]any, len(t.Indexes))
		for key, idx := range t.Indexes {
			m[key] = indexTree(idx)
		}
		indexes = m
	}

	node := map[string]any{
		"tableName": t.Name,
		"schema":    schema,
		"indexes":   indexes,
	}
	if t.Charset != "" {
		node["charset"] = t.Charset
	}
	return node
}

// ColumnAttributes returns the attribute map of a column as the differ sees
// it. Unset optional attributes are absent.
func ColumnAttributes(c *core.Column) map[string]any {
	attrs := make(map[string]any, 8+len(c.Extra))
	for k, v := range c.Extra {
		attrs[k] = v
	}

	attrs["type"] = c.TypeExpr
	attrs["allowNull"] = c.AllowNull
	if c.Field != "" {
		attrs["field"] = c.Field
	}
	if c.PrimaryKey {
		attrs["primaryKey"] = true
	}
	if c.AutoIncrement {
		attrs["autoIncrement"] = true
	}
	if c.Unique {
		attrs["unique"] = true
	}
	if c.Comment != "" {
		attrs["comment"] = c.Comment
	}
	if c.Default != nil {
		attrs["defaultValue"] = defaultTree(c.Default)
	}
	if c.References != nil {
		ref := map[string]any{"model": c.References.Model}
		if c.References.Key != "" {
			ref["key"] = c.References.Key
		}
		attrs["references"] = ref
	}
	if c.OnUpdate != "" {
		attrs["onUpdate"] = c.OnUpdate
	}
	if c.OnDelete != "" {
		attrs["onDelete"] = c.OnDelete
	}
	return attrs
}

func defaultTree(d *core.DefaultValue) map[string]any {
	if d.Kind == core.DefaultCode {
		return map[string]any{"internal": true, "value": d.Code}
	}
	return map[string]any{"internal": false, "value": d.Value}
}

func indexTree(idx *core.Index) map[string]any {
	fields := make([]any, len(idx.Fields))
	for i, f := range idx.Fields {
		fields[i] = f
	}
	node := map[string]any{"fields": fields}
	if idx.Unique {
		node["unique"] = true
	}
	if idx.Name != "" {
		node["name"] = idx.Name
	}
	if idx.Type != "" {
		node["type"] = idx.Type
	}
	if idx.Using != "" {
		node["using"] = idx.Using
	}
	if idx.Parser != "" {
		node["parser"] = idx.Parser
	}
	return node
}
