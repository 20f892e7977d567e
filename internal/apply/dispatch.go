package apply

import (
	"context"
	"fmt"

	"migplan/internal/migration"
)

// Args are the decoded parameters of a command.
type Args struct {
	Table   string
	Column  string
	Attrs   migration.Object
	Fields  []string
	Ref     IndexRef
	Options migration.Object
}

// DecodeArgs checks the parameter shape of cmd and decodes it.
func DecodeArgs(cmd migration.Command) (Args, error) {
	p := &paramReader{list: cmd.Params}
	var a Args
	a.Table = p.text(0)

	switch cmd.ActionName {
	case "createTable":
		a.Attrs = p.object(1)
		a.Options = p.object(2)
	case "dropTable":
		a.Options = p.object(1)
	case "addColumn", "changeColumn":
		a.Column = p.text(1)
		a.Attrs = p.object(2)
		a.Options = p.object(3)
	case "removeColumn":
		a.Column = p.text(1)
		a.Options = p.object(2)
	case "addIndex":
		a.Fields = p.textList(1)
		a.Options = p.object(2)
	case "removeIndex":
		if name, ok := p.at(1).(string); ok {
			a.Ref.Name = name
		} else {
			a.Ref.Fields = p.textList(1)
		}
		a.Options = p.object(2)
	default:
		return Args{}, fmt.Errorf("unknown action %q", cmd.ActionName)
	}
	if p.err != nil {
		return Args{}, fmt.Errorf("%s: %w", cmd.ActionName, p.err)
	}
	if a.Table == "" {
		return Args{}, fmt.Errorf("%s: missing table name", cmd.ActionName)
	}
	return a, nil
}

func dispatch(ctx context.Context, qi QueryInterface, cmd migration.Command, tx Tx) error {
	a, err := DecodeArgs(cmd)
	if err != nil {
		return err
	}
	opts := callOptions(a.Options, tx)

	switch cmd.ActionName {
	case "createTable":
		return qi.CreateTable(ctx, a.Table, a.Attrs, opts)
	case "dropTable":
		return qi.DropTable(ctx, a.Table, opts)
	case "addColumn":
		return qi.AddColumn(ctx, a.Table, a.Column, a.Attrs, opts)
	case "changeColumn":
		return qi.ChangeColumn(ctx, a.Table, a.Column, a.Attrs, opts)
	case "removeColumn":
		return qi.RemoveColumn(ctx, a.Table, a.Column, opts)
	case "addIndex":
		return qi.AddIndex(ctx, a.Table, a.Fields, opts)
	default:
		return qi.RemoveIndex(ctx, a.Table, a.Ref, opts)
	}
}

// callOptions binds the transaction placeholder of opts to tx.
func callOptions(opts migration.Object, tx Tx) CallOptions {
	out := CallOptions{Options: opts.Without(migration.TransactionKey)}
	if _, ok := opts.Get(migration.TransactionKey); ok {
		out.Tx = tx
	}
	return out
}

// paramReader reads positional parameters, keeping the first shape error.
type paramReader struct {
	list []any
	err  error
}

func (r *paramReader) at(i int) any {
	if i < len(r.list) {
		return r.list[i]
	}
	return nil
}

func (r *paramReader) fail(i int, want string) {
	if r.err == nil {
		r.err = fmt.Errorf("parameter %d: want %s, got %T", i, want, r.at(i))
	}
}

func (r *paramReader) text(i int) string {
	s, ok := r.at(i).(string)
	if !ok {
		r.fail(i, "string")
	}
	return s
}

func (r *paramReader) object(i int) migration.Object {
	v := r.at(i)
	if v == nil {
		return nil
	}
	o, ok := v.(migration.Object)
	if !ok {
		r.fail(i, "object")
	}
	return o
}

func (r *paramReader) textList(i int) []string {
	switch v := r.at(i).(type) {
	case []string:
		return v
	case []any:
		out := make([]string, len(v))
		for j, e := range v {
			s, ok := e.(string)
			if !ok {
				r.fail(i, "string list")
				return nil
			}
			out[j] = s
		}
		return out
	default:
		r.fail(i, "string list")
		return nil
	}
}
