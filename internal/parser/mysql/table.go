package mysql

import (
	"fmt"
	"strings"

	"github.com/pingcap/tidb/pkg/parser/ast"

	"migplan/internal/model"
)

func (p *Parser) parseConstraints(constraints []*ast.Constraint, m *model.Model) error {
	for _, constraint := range constraints {
		if constraint == nil {
			continue
		}
		columns, err := constraintColumns(constraint)
		if err != nil {
			return err
		}
		if err := p.applyConstraint(m, constraint, columns); err != nil {
			return err
		}
	}
	return nil
}

func constraintColumns(constraint *ast.Constraint) ([]string, error) {
	columns := make([]string, 0, len(constraint.Keys))
	for _, key := range constraint.Keys {
		if key.Column == nil {
			return nil, fmt.Errorf("expression index %s is not supported", constraintLabel(constraint))
		}
		columns = append(columns, key.Column.Name.O)
	}
	return columns, nil
}

func constraintLabel(c *ast.Constraint) string {
	if c.Name != "" {
		return c.Name
	}
	return "(unnamed)"
}

func (p *Parser) applyConstraint(m *model.Model, constraint *ast.Constraint, columns []string) error {
	switch constraint.Tp {
	case ast.ConstraintPrimaryKey:
		for _, name := range columns {
			a, err := attribute(m, name)
			if err != nil {
				return err
			}
			a.PrimaryKey = true
			a.AllowNull = model.Bool(false)
		}
	case ast.ConstraintUniq, ast.ConstraintUniqKey, ast.ConstraintUniqIndex:
		return addIndex(m, model.Index{Name: constraint.Name, Fields: columns, Unique: true})
	case ast.ConstraintIndex, ast.ConstraintKey:
		return addIndex(m, model.Index{Name: constraint.Name, Fields: columns})
	case ast.ConstraintFulltext:
		return addIndex(m, model.Index{Name: constraint.Name, Fields: columns, Type: "FULLTEXT"})
	case ast.ConstraintForeignKey:
		if len(columns) != 1 {
			return fmt.Errorf("foreign key %s: composite foreign keys are not supported", constraintLabel(constraint))
		}
		a, err := attribute(m, columns[0])
		if err != nil {
			return err
		}
		applyReference(a, constraint.Refer)
	}
	return nil
}

func attribute(m *model.Model, name string) (*model.Attribute, error) {
	for _, a := range m.Attributes {
		if strings.EqualFold(a.Name, name) {
			return a, nil
		}
	}
	return nil, fmt.Errorf("unknown column %q", name)
}

func addIndex(m *model.Model, idx model.Index) error {
	for i, f := range idx.Fields {
		a, err := attribute(m, f)
		if err != nil {
			return err
		}
		idx.Fields[i] = a.Name
	}
	m.Indexes = append(m.Indexes, idx)
	return nil
}
