package toml

import (
	"fmt"
	"strings"

	"migplan/internal/model"
)

// tomlIndex maps [[models.indexes]].
type tomlIndex struct {
	Name   string   `toml:"name"`
	Fields []string `toml:"fields"`
	Unique bool     `toml:"unique"`
	Type   string   `toml:"type"`
	Using  string   `toml:"using"`
	Parser string   `toml:"parser"`
}

func convertIndex(ti *tomlIndex, attributes map[string]bool) (model.Index, error) {
	name := ti.Name
	if name == "" {
		name = "(unnamed)"
	}
	if len(ti.Fields) == 0 {
		return model.Index{}, fmt.Errorf("index %s has no fields", name)
	}
	for _, f := range ti.Fields {
		if !attributes[strings.TrimSpace(f)] {
			return model.Index{}, fmt.Errorf("index %s references unknown attribute %q", name, f)
		}
	}

	return model.Index{
		Name:   ti.Name,
		Fields: append([]string(nil), ti.Fields...),
		Unique: ti.Unique,
		Type:   ti.Type,
		Using:  ti.Using,
		Parser: ti.Parser,
	}, nil
}
