// Package migration turns ordered plan actions into a migration artifact and
// persists artifacts as re-readable scripts.
package migration

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"migplan/internal/core"
	"migplan/internal/diff"
	"migplan/internal/plan"
)

// ErrInvalidRevision is returned for a blank or negative revision.
var ErrInvalidRevision = errors.New("invalid revision")

// Info describes a migration.
type Info struct {
	Revision int       `json:"revision"`
	Name     string    `json:"name"`
	Comment  string    `json:"comment"`
	Created  time.Time `json:"created"`
}

// Artifact is a serialized migration. Up and Down hold the commands of both
// directions, Summary one line per up action.
type Artifact struct {
	Info    Info      `json:"info"`
	Up      []Command `json:"up"`
	Down    []Command `json:"down"`
	Summary []string  `json:"summary,omitempty"`
}

// Command is one query-interface call.
//
// Params hold strings, []string, Object, Expr and JSON scalars (bool,
// json.Number, nil). Nested sequences are []any.
type Command struct {
	ActionName string `json:"fn"`
	Params     []any  `json:"params"`
}

// Table returns the table the command works on.
func (c Command) Table() string {
	if len(c.Params) == 0 {
		return ""
	}
	s, _ := c.Params[0].(string)
	return s
}

// Expr is a code expression. It is written to scripts unquoted.
type Expr string

// MarshalJSON writes the expression as a plain string.
func (e Expr) MarshalJSON() ([]byte, error) {
	return marshal(string(e))
}

// Property is one key of an Object.
type Property struct {
	Key   string
	Value any
}

// Object is a JSON object that keeps its key order.
type Object []Property

// Get returns the value stored under key.
func (o Object) Get(key string) (any, bool) {
	for _, p := range o {
		if p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

// GetString returns the string stored under key, or "".
func (o Object) GetString(key string) string {
	v, _ := o.Get(key)
	s, _ := v.(string)
	return s
}

// GetBool returns the bool stored under key, or false.
func (o Object) GetBool(key string) bool {
	v, _ := o.Get(key)
	b, _ := v.(bool)
	return b
}

// Without returns a copy of o without the given keys.
func (o Object) Without(keys ...string) Object {
	out := make(Object, 0, len(o))
	for _, p := range o {
		if !slices.Contains(keys, p.Key) {
			out = append(out, p)
		}
	}
	return out
}

// MarshalJSON writes the properties in order.
func (o Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := marshal(p.Key)
		if err != nil {
			return nil, err
		}
		v, err := marshal(p.Value)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", p.Key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// TransactionKey is the options key bound to the running transaction.
const TransactionKey = "transaction"

// Serialize converts the up and down plans into an artifact.
func Serialize(up, down []plan.Action, info Info) (*Artifact, error) {
	if info.Revision < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRevision, info.Revision)
	}

	a := &Artifact{Info: info}
	for i, act := range up {
		cmd, err := command(act)
		if err != nil {
			return nil, fmt.Errorf("up action %d (%s): %w", i, act.Kind, err)
		}
		a.Up = append(a.Up, cmd)
		a.Summary = append(a.Summary, summaryLine(act))
	}
	for i, act := range down {
		cmd, err := command(act)
		if err != nil {
			return nil, fmt.Errorf("down action %d (%s): %w", i, act.Kind, err)
		}
		a.Down = append(a.Down, cmd)
	}
	return a, nil
}

func command(act plan.Action) (Command, error) {
	cmd := Command{ActionName: act.Kind.String()}

	switch act.Kind {
	case plan.CreateTable:
		cols := make(Object, 0, len(act.Columns))
		for _, c := range act.Columns {
			attrs, err := Attributes(c)
			if err != nil {
				return Command{}, fmt.Errorf("column %s: %w", c.Name, err)
			}
			cols = append(cols, Property{Key: c.Name, Value: attrs})
		}
		var opts Object
		if act.Charset != "" {
			opts = append(opts, Property{Key: "charset", Value: act.Charset})
		}
		cmd.Params = []any{act.Table, cols, withTransaction(opts)}

	case plan.DropTable:
		cmd.Params = []any{act.Table, withTransaction(nil)}

	case plan.AddColumn, plan.ChangeColumn:
		if act.Definition == nil {
			return Command{}, errors.New("missing column definition")
		}
		attrs, err := Attributes(act.Definition)
		if err != nil {
			return Command{}, fmt.Errorf("column %s: %w", act.Column, err)
		}
		cmd.Params = []any{act.Table, act.Definition.FieldName(), attrs, withTransaction(nil)}

	case plan.RemoveColumn:
		field := act.Column
		if act.Definition != nil {
			field = act.Definition.FieldName()
		}
		cmd.Params = []any{act.Table, field, withTransaction(nil)}

	case plan.AddIndex:
		if act.Index == nil {
			return Command{}, errors.New("missing index definition")
		}
		cmd.Params = []any{act.Table, slices.Clone(act.Index.Fields), withTransaction(indexOptions(act.Index))}

	case plan.RemoveIndex:
		if act.Index == nil {
			return Command{}, errors.New("missing index definition")
		}
		var ref any = slices.Clone(act.Index.Fields)
		if act.Index.Name != "" {
			ref = act.Index.Name
		}
		cmd.Params = []any{act.Table, ref, withTransaction(indexOptions(act.Index))}

	default:
		return Command{}, fmt.Errorf("unknown action kind %d", int(act.Kind))
	}
	return cmd, nil
}

func withTransaction(opts Object) Object {
	return append(slices.Clone(opts), Property{Key: TransactionKey, Value: Expr(TransactionKey)})
}

func indexOptions(idx *core.Index) Object {
	var opts Object
	if idx.Name != "" {
		opts = append(opts, Property{Key: "name", Value: idx.Name})
	}
	if idx.Unique {
		opts = append(opts, Property{Key: "unique", Value: true})
	}
	if idx.Type != "" {
		opts = append(opts, Property{Key: "type", Value: idx.Type})
	}
	if idx.Using != "" {
		opts = append(opts, Property{Key: "using", Value: idx.Using})
	}
	if idx.Parser != "" {
		opts = append(opts, Property{Key: "parser", Value: idx.Parser})
	}
	return opts
}

// Attributes returns the attribute object of a column with keys in
// reverse-lexicographic order. The type and code-valued defaults are Exprs.
func Attributes(c *core.Column) (Object, error) {
	m := diff.ColumnAttributes(c)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	slices.Reverse(keys)

	out := make(Object, 0, len(keys))
	for _, k := range keys {
		var (
			v   any
			err error
		)
		switch k {
		case "type":
			v = Expr(c.TypeExpr)
		case "defaultValue":
			v, err = defaultParam(c.Default)
		default:
			v, err = literal(m[k])
		}
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", k, err)
		}
		out = append(out, Property{Key: k, Value: v})
	}
	return out, nil
}

func defaultParam(d *core.DefaultValue) (any, error) {
	if d.Kind == core.DefaultCode {
		return Expr(d.Code), nil
	}
	return literal(d.Value)
}

// literal converts a plain value into the form ParseScript yields for it:
// numbers become json.Number, maps become Objects in reverse key order.
func literal(v any) (any, error) {
	switch v.(type) {
	case nil, string, bool:
		return v, nil
	}
	raw, err := marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode literal: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	out, err := decodeValue(dec)
	if err != nil {
		return nil, fmt.Errorf("decode literal: %w", err)
	}
	return reverseKeys(out), nil
}

func reverseKeys(v any) any {
	switch v := v.(type) {
	case Object:
		out := make(Object, len(v))
		for i, p := range v {
			out[i] = Property{Key: p.Key, Value: reverseKeys(p.Value)}
		}
		slices.SortStableFunc(out, func(a, b Property) int { return strings.Compare(b.Key, a.Key) })
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = reverseKeys(e)
		}
		return out
	default:
		return v
	}
}

func summaryLine(act plan.Action) string {
	switch act.Kind {
	case plan.CreateTable:
		return fmt.Sprintf("createTable %q, deps: [%s]", act.Table, strings.Join(act.DependsOn, ", "))
	case plan.DropTable:
		return fmt.Sprintf("dropTable %q", act.Table)
	case plan.AddColumn:
		return fmt.Sprintf("addColumn %q to table %q", act.Column, act.Table)
	case plan.RemoveColumn:
		return fmt.Sprintf("removeColumn %q from table %q", act.Column, act.Table)
	case plan.ChangeColumn:
		return fmt.Sprintf("changeColumn %q on table %q", act.Column, act.Table)
	case plan.AddIndex:
		return fmt.Sprintf("addIndex %s to table %q", indexLabel(act.Index), act.Table)
	case plan.RemoveIndex:
		return fmt.Sprintf("removeIndex %s from table %q", indexLabel(act.Index), act.Table)
	default:
		return act.Kind.String()
	}
}

func indexLabel(idx *core.Index) string {
	if idx == nil {
		return "[]"
	}
	if idx.Name != "" {
		return fmt.Sprintf("%q", idx.Name)
	}
	b, _ := marshal(idx.Fields)
	return string(b)
}

// marshal encodes v as compact JSON without HTML escaping.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
