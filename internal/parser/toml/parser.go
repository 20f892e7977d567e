// Package toml provides a parser for TOML model files.
// A model file declares the application's models the way they exist at
// runtime and converts them into model.Model values the normalizer consumes.
package toml

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"migplan/internal/model"
)

// modelFile is the top-level TOML document.
type modelFile struct {
	Models []tomlModel `toml:"models"`
}

// tomlModel maps [[models]].
type tomlModel struct {
	Name       string          `toml:"name"`
	Table      string          `toml:"table"`
	Charset    string          `toml:"charset"`
	Attributes []tomlAttribute `toml:"attributes"`
	Indexes    []tomlIndex     `toml:"indexes"`
}

// Parser reads TOML model files.
type Parser struct{}

// NewParser creates a new TOML model parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile opens the file at the given path and parses it as a model file.
func (p *Parser) ParseFile(path string) (map[string]*model.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("toml: open file %q: %w", path, err)
	}
	defer f.Close()

	return p.Parse(f)
}

// Parse reads TOML content from r and returns the models keyed by name.
func (p *Parser) Parse(r io.Reader) (map[string]*model.Model, error) {
	var mf modelFile
	if _, err := toml.NewDecoder(r).Decode(&mf); err != nil {
		return nil, fmt.Errorf("toml: decode error: %w", err)
	}

	models := make(map[string]*model.Model, len(mf.Models))
	for i := range mf.Models {
		m, err := convertModel(&mf.Models[i])
		if err != nil {
			return nil, fmt.Errorf("toml: model %q: %w", mf.Models[i].Name, err)
		}
		if _, dup := models[m.Name]; dup {
			return nil, fmt.Errorf("toml: duplicate model %q", m.Name)
		}
		models[m.Name] = m
	}
	return models, nil
}

func convertModel(tm *tomlModel) (*model.Model, error) {
	name := strings.TrimSpace(tm.Name)
	if name == "" {
		return nil, errors.New("model name is empty")
	}

	m := &model.Model{
		Name:      name,
		TableName: strings.TrimSpace(tm.Table),
		Charset:   strings.TrimSpace(tm.Charset),
	}

	seen := make(map[string]bool, len(tm.Attributes))
	known := make(map[string]bool, 2*len(tm.Attributes))
	for i := range tm.Attributes {
		a, err := convertAttribute(&tm.Attributes[i])
		if err != nil {
			return nil, err
		}
		if seen[a.Name] {
			return nil, fmt.Errorf("duplicate attribute %q", a.Name)
		}
		seen[a.Name] = true
		known[a.Name] = true
		if a.Field != "" {
			known[a.Field] = true
		}
		m.Attributes = append(m.Attributes, a)
	}

	for i := range tm.Indexes {
		idx, err := convertIndex(&tm.Indexes[i], known)
		if err != nil {
			return nil, err
		}
		m.Indexes = append(m.Indexes, idx)
	}
	return m, nil
}
