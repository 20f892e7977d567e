// Package mysql reads models from MySQL DDL. Every CREATE TABLE statement of
// the input becomes one model named after its table; other statements are
// ignored. This lets an existing schema dump serve as the model file.
package mysql

import (
	"fmt"
	"io"
	"os"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"

	"migplan/internal/model"
)

type Parser struct {
	p *parser.Parser
}

func NewParser() *Parser {
	return &Parser{
		p: parser.New(),
	}
}

// ParseFile parses the DDL file at path.
func (p *Parser) ParseFile(path string) (map[string]*model.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sql: open file %q: %w", path, err)
	}
	defer f.Close()

	return p.Parse(f)
}

// Parse reads DDL from r and returns the models keyed by table name.
func (p *Parser) Parse(r io.Reader) (map[string]*model.Model, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("sql: read: %w", err)
	}
	stmtNodes, _, err := p.p.Parse(string(src), "", "")
	if err != nil {
		return nil, fmt.Errorf("sql: failed to parse MySQL DDL: %w", err)
	}

	models := map[string]*model.Model{}
	for _, stmtNode := range stmtNodes {
		createStmt, ok := stmtNode.(*ast.CreateTableStmt)
		if !ok {
			continue
		}
		m, err := p.convertCreateTable(createStmt)
		if err != nil {
			return nil, fmt.Errorf("sql: table %q: %w", createStmt.Table.Name.O, err)
		}
		if _, dup := models[m.Name]; dup {
			return nil, fmt.Errorf("sql: duplicate table %q", m.Name)
		}
		models[m.Name] = m
	}
	return models, nil
}

func (p *Parser) convertCreateTable(stmt *ast.CreateTableStmt) (*model.Model, error) {
	if stmt.ReferTable != nil {
		return nil, fmt.Errorf("CREATE TABLE ... LIKE is not supported")
	}
	if stmt.Select != nil {
		return nil, fmt.Errorf("CREATE TABLE ... SELECT is not supported")
	}

	m := &model.Model{
		Name:      stmt.Table.Name.O,
		TableName: stmt.Table.Name.O,
	}
	for _, opt := range stmt.Options {
		if opt.Tp == ast.TableOptionCharset {
			m.Charset = opt.StrValue
		}
	}

	p.parseColumns(stmt.Cols, m)
	if err := p.parseConstraints(stmt.Constraints, m); err != nil {
		return nil, err
	}
	if len(m.Attributes) == 0 {
		return nil, fmt.Errorf("table has no columns")
	}
	return m, nil
}
