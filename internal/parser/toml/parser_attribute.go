package toml

import (
	"errors"
	"fmt"
	"strings"

	"migplan/internal/core"
	"migplan/internal/model"
)

// constructorPrefix marks a default that names a runtime constructor,
// e.g. default = "fn:NOW".
const constructorPrefix = "fn:"

// tomlAttribute maps [[models.attributes]].
type tomlAttribute struct {
	Name  string `toml:"name"`
	Field string `toml:"field"`

	// Type uses the code-expression notation, e.g. "STRING(64).BINARY".
	// Unknown names are kept as a raw expression.
	Type string `toml:"type"`
	// RawType overrides the raw expression used when Type cannot be formatted.
	RawType string `toml:"raw_type"`
	// Hint is the textual type, used for untyped array attributes.
	Hint string `toml:"hint"`

	PrimaryKey    bool   `toml:"primary_key"`
	AutoIncrement bool   `toml:"auto_increment"`
	AllowNull     *bool  `toml:"allow_null"`
	Unique        bool   `toml:"unique"`
	Comment       string `toml:"comment"`

	// Default accepts string, bool, number or array. A string starting with
	// "fn:" is a constructor default.
	Default any `toml:"default"`

	References string `toml:"references"`
	OnUpdate   string `toml:"on_update"`
	OnDelete   string `toml:"on_delete"`

	// Options carries any further static attribute properties.
	Options map[string]any `toml:"options"`
}

func convertAttribute(ta *tomlAttribute) (*model.Attribute, error) {
	name := strings.TrimSpace(ta.Name)
	if name == "" {
		return nil, errors.New("attribute name is empty")
	}

	a := &model.Attribute{
		Name:          name,
		Field:         strings.TrimSpace(ta.Field),
		TypeHint:      strings.TrimSpace(ta.Hint),
		AllowNull:     ta.AllowNull,
		PrimaryKey:    ta.PrimaryKey,
		AutoIncrement: ta.AutoIncrement,
		Unique:        ta.Unique,
		Comment:       ta.Comment,
		DefaultValue:  convertDefault(ta.Default),
		OnUpdate:      strings.ToUpper(strings.TrimSpace(ta.OnUpdate)),
		OnDelete:      strings.ToUpper(strings.TrimSpace(ta.OnDelete)),
		Properties:    ta.Options,
	}

	if typ := strings.TrimSpace(ta.Type); typ != "" {
		ct := core.ParseTypeExpr(typ, "")
		if raw := strings.TrimSpace(ta.RawType); raw != "" {
			ct.Raw = raw
		}
		a.Type = &ct
	}

	if ta.References != "" {
		ref, err := parseReference(ta.References)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		a.References = ref
	}
	return a, nil
}

func convertDefault(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if rest, found := strings.CutPrefix(s, constructorPrefix); found {
		return model.Func(strings.ToUpper(strings.TrimSpace(rest)))
	}
	return s
}

// parseReference reads "table" or "table.key".
func parseReference(s string) (*core.Reference, error) {
	table, key, _ := strings.Cut(strings.TrimSpace(s), ".")
	table = strings.TrimSpace(table)
	key = strings.TrimSpace(key)
	if table == "" || strings.Contains(key, ".") {
		return nil, fmt.Errorf("invalid references %q: expected format \"table\" or \"table.key\"", s)
	}
	return &core.Reference{Model: table, Key: key}, nil
}
