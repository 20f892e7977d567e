// Package normalize turns live model definitions into a canonical snapshot.
// It never fails: anything that cannot be represented is dropped and reported
// through the warning sink.
package normalize

import (
	"maps"
	"reflect"
	"slices"
	"strings"
	"time"

	"migplan/internal/core"
	"migplan/internal/model"
)

// Options configures normalization.
type Options struct {
	// TypePrefix is prepended to type and constructor expressions.
	// Empty means core.DefaultTypePrefix.
	TypePrefix string
}

func (o Options) prefix() string {
	if o.TypePrefix == "" {
		return core.DefaultTypePrefix
	}
	return o.TypePrefix
}

// Normalize builds a snapshot from models. The input is not modified.
func Normalize(models map[string]*model.Model, opts Options, w *core.Warnings) *core.Snapshot {
	snap := core.NewSnapshot()
	for _, name := range slices.Sorted(maps.Keys(models)) {
		m := models[name]
		if m == nil {
			continue
		}
		tbl := normalizeModel(m, opts.prefix(), w)
		if _, dup := snap.Tables[tbl.Name]; dup {
			w.Addf("model %s maps to table %s which is already defined; skipped", name, tbl.Name)
			continue
		}
		snap.Tables[tbl.Name] = tbl
	}
	return snap
}

func normalizeModel(m *model.Model, prefix string, w *core.Warnings) *core.Table {
	tbl := &core.Table{
		Name:    m.Table(),
		Charset: m.Charset,
		Indexes: map[string]*core.Index{},
	}

	for _, a := range m.Attributes {
		if a == nil {
			continue
		}
		if col := normalizeAttribute(tbl.Name, a, prefix, w); col != nil {
			tbl.Columns = append(tbl.Columns, col)
		}
	}

	for i := range m.Indexes {
		idx := normalizeIndex(&m.Indexes[i])
		if len(idx.Fields) == 0 {
			w.Addf("table %s: index #%d has no fields; skipped", tbl.Name, i)
			continue
		}
		tbl.Indexes[core.IndexKey(idx)] = idx
	}
	return tbl
}

func normalizeAttribute(table string, a *model.Attribute, prefix string, w *core.Warnings) *core.Column {
	typ, ok := resolveType(table, a, w)
	if !ok {
		return nil
	}
	if typ.Kind == core.KindVirtual {
		w.Debugf("%s.%s: virtual column skipped", table, a.Name)
		return nil
	}

	expr, approximate := core.FormatType(typ, prefix)
	if approximate {
		w.Addf("%s.%s: RANGE type is approximated as %s", table, a.Name, expr)
	}
	if expr == "" {
		expr = typ.Raw
	}
	if expr == "" {
		w.Addf("%s.%s: cannot format type %q; column skipped", table, a.Name, typ.Kind)
		return nil
	}

	col := &core.Column{
		Name:          a.Name,
		Field:         a.Field,
		Type:          typ,
		TypeExpr:      expr,
		AllowNull:     a.AllowNull == nil || *a.AllowNull,
		PrimaryKey:    a.PrimaryKey,
		AutoIncrement: a.AutoIncrement,
		Unique:        a.Unique,
		Comment:       a.Comment,
		OnUpdate:      a.OnUpdate,
		OnDelete:      a.OnDelete,
		Extra:         staticProperties(a.Properties),
	}
	if col.Field == a.Name {
		col.Field = ""
	}
	if a.References != nil {
		ref := *a.References
		col.References = &ref
	}

	def := normalizeDefault(a.DefaultValue, prefix)
	if def != nil && def.Kind == core.DefaultUnsupported {
		w.Addf("%s.%s: default value of type %T cannot be serialized; dropped", table, a.Name, a.DefaultValue)
		def = nil
	}
	col.Default = def
	return col
}

// resolveType returns a copy of the attribute's type. Attributes without a
// type object are kept only when their hint names an integer or string array.
func resolveType(table string, a *model.Attribute, w *core.Warnings) (core.ColumnType, bool) {
	if a.Type == nil {
		if el, ok := core.ArrayHintElement(a.TypeHint); ok {
			return core.ColumnType{Kind: core.KindArray, Options: core.TypeOptions{Element: el}}, true
		}
		w.Addf("%s.%s: attribute has no resolvable type; column skipped", table, a.Name)
		return core.ColumnType{}, false
	}

	typ := *a.Type
	typ.Options.Values = slices.Clone(typ.Options.Values)
	if typ.Raw == "" {
		typ.Raw = a.TypeHint
	}
	return typ, true
}

func normalizeDefault(v any, prefix string) *core.DefaultValue {
	switch d := v.(type) {
	case nil:
		return nil
	case model.Constructor:
		return core.Code(prefix + d.ConstructorName())
	case *core.DefaultValue:
		cp := *d
		return &cp
	case time.Time:
		return core.Literal(d.UTC().Format(time.RFC3339Nano))
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Func, reflect.Chan, reflect.Struct, reflect.Pointer, reflect.UnsafePointer:
		return &core.DefaultValue{Kind: core.DefaultUnsupported}
	default:
		return core.Literal(v)
	}
}

// staticProperties copies the properties a snapshot can hold: no bookkeeping
// keys (leading underscore), no validators, accessors or other functions.
func staticProperties(props map[string]any) map[string]any {
	var out map[string]any
	for k, v := range props {
		if strings.HasPrefix(k, "_") {
			continue
		}
		switch k {
		case "validate", "get", "set":
			continue
		}
		if v != nil && reflect.ValueOf(v).Kind() == reflect.Func {
			continue
		}
		if out == nil {
			out = make(map[string]any)
		}
		out[k] = v
	}
	return out
}

func normalizeIndex(idx *model.Index) *core.Index {
	out := &core.Index{
		Unique: idx.Unique,
		Name:   strings.TrimSpace(idx.Name),
		Type:   strings.ToUpper(strings.TrimSpace(idx.Type)),
		Using:  strings.ToUpper(strings.TrimSpace(idx.Using)),
		Parser: strings.TrimSpace(idx.Parser),
	}
	if out.Type == "UNIQUE" {
		out.Unique = true
		out.Type = ""
	}
	for _, f := range idx.Fields {
		if f = strings.TrimSpace(f); f != "" {
			out.Fields = append(out.Fields, f)
		}
	}
	return out
}
