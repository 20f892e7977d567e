// Package schema provides the Parser interface for reading model files in
// various formats and converting them to model definitions.
package schema

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"migplan/internal/model"
	"migplan/internal/parser/mysql"
	"migplan/internal/parser/toml"
)

// Parser reads model definitions.
type Parser interface {
	Parse(r io.Reader) (map[string]*model.Model, error)
	ParseFile(path string) (map[string]*model.Model, error)
}

// ForPath picks a parser by file extension: .toml model files or .sql
// MySQL DDL.
func ForPath(path string) (Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.NewParser(), nil
	case ".sql":
		return mysql.NewParser(), nil
	default:
		return nil, &UnsupportedFormatError{Path: path}
	}
}

// ParseFile picks a parser by file extension and parses path.
func ParseFile(path string) (map[string]*model.Model, error) {
	p, err := ForPath(path)
	if err != nil {
		return nil, err
	}
	return p.ParseFile(path)
}

// ParseFS is ParseFile reading from fsys.
func ParseFS(fsys afero.Fs, path string) (map[string]*model.Model, error) {
	p, err := ForPath(path)
	if err != nil {
		return nil, err
	}

	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model file %q: %w", path, err)
	}
	defer f.Close()
	return p.Parse(f)
}

// UnsupportedFormatError is returned for model files of unknown format.
type UnsupportedFormatError struct {
	Path string
}

func (e *UnsupportedFormatError) Error() string {
	return "unsupported file format: " + e.Path
}
