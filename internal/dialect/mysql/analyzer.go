package mysql

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver" // registers the TiDB parser value drivers
)

// Level ranks a finding.
type Level string

const (
	LevelCaution Level = "CAUTION"
	LevelDanger  Level = "DANGER"
)

// Finding is one remark about a DDL statement.
type Finding struct {
	Level   Level
	Message string
	SQL     string
}

func (f Finding) String() string {
	return fmt.Sprintf("[%s] %s", f.Level, f.Message)
}

// Analysis describes the effects of one statement.
type Analysis struct {
	StatementType string
	Parsed        bool
	// ImplicitCommit is set for statements MySQL commits on its own, so a
	// surrounding transaction cannot roll them back.
	ImplicitCommit bool
	Findings       []Finding
}

type specEffect struct {
	level  Level
	reason string
}

var alterSpecEffects = map[ast.AlterTableType]specEffect{
	ast.AlterTableAddColumns:     {LevelCaution, "ADD COLUMN may rebuild the table depending on MySQL version and column position"},
	ast.AlterTableDropColumn:     {LevelDanger, "DROP COLUMN permanently deletes the column and its data"},
	ast.AlterTableModifyColumn:   {LevelCaution, "MODIFY COLUMN may rebuild the table when the type or size changes"},
	ast.AlterTableChangeColumn:   {LevelCaution, "CHANGE COLUMN may rebuild the table"},
	ast.AlterTableDropIndex:      {LevelCaution, "DROP INDEX may briefly lock the table"},
	ast.AlterTableDropForeignKey: {LevelCaution, "DROP FOREIGN KEY may briefly lock the table"},
	ast.AlterTableDropPrimaryKey: {LevelDanger, "DROP PRIMARY KEY rebuilds and locks the table"},
}

// Analyzer inspects DDL with the TiDB parser. The parser is not safe for
// concurrent use, so calls are serialized.
type Analyzer struct {
	mu     sync.Mutex
	parser *parser.Parser
}

// NewAnalyzer returns a ready analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{parser: parser.New()}
}

// Validate reports whether sql parses as exactly one statement.
func (a *Analyzer) Validate(sql string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	nodes, _, err := a.parser.Parse(sql, "", "")
	if err != nil {
		return fmt.Errorf("parse %q: %w", sql, err)
	}
	if len(nodes) != 1 {
		return fmt.Errorf("expected one statement, got %d", len(nodes))
	}
	return nil
}

// Analyze parses sql and returns its effects. Statements the parser does not
// understand are classified by their leading keywords.
func (a *Analyzer) Analyze(sql string) Analysis {
	a.mu.Lock()
	nodes, _, err := a.parser.Parse(sql, "", "")
	a.mu.Unlock()

	if err != nil || len(nodes) == 0 {
		return analyzeText(sql)
	}

	an := Analysis{Parsed: true}
	finding := func(level Level, msg string) {
		an.Findings = append(an.Findings, Finding{Level: level, Message: msg, SQL: sql})
	}

	switch stmt := nodes[0].(type) {
	case *ast.CreateTableStmt:
		an.StatementType = "CREATE TABLE"
		an.ImplicitCommit = true
	case *ast.DropTableStmt:
		an.StatementType = "DROP TABLE"
		an.ImplicitCommit = true
		finding(LevelDanger, "DROP TABLE permanently deletes the table and all its data")
	case *ast.CreateIndexStmt:
		an.StatementType = "CREATE INDEX"
		an.ImplicitCommit = true
		finding(LevelCaution, "CREATE INDEX may lock the table while the index is built")
	case *ast.DropIndexStmt:
		an.StatementType = "DROP INDEX"
		an.ImplicitCommit = true
		finding(LevelCaution, "DROP INDEX may briefly lock the table")
	case *ast.AlterTableStmt:
		an.StatementType = "ALTER TABLE"
		an.ImplicitCommit = true
		for _, spec := range stmt.Specs {
			if spec.Tp == ast.AlterTableAddConstraint {
				finding(LevelCaution, constraintReason(spec.Constraint))
				continue
			}
			if effect, ok := alterSpecEffects[spec.Tp]; ok {
				finding(effect.level, effect.reason)
			}
		}
	case *ast.RenameTableStmt:
		an.StatementType = "RENAME TABLE"
		an.ImplicitCommit = true
	case *ast.TruncateTableStmt:
		an.StatementType = "TRUNCATE TABLE"
		an.ImplicitCommit = true
		finding(LevelDanger, "TRUNCATE TABLE deletes all rows")
	default:
		text := analyzeText(sql)
		text.Parsed = true
		return text
	}
	return an
}

func constraintReason(c *ast.Constraint) string {
	if c == nil {
		return "ADD CONSTRAINT may lock the table while existing rows are checked"
	}
	switch c.Tp {
	case ast.ConstraintForeignKey:
		return "ADD FOREIGN KEY may lock the table while existing rows are checked"
	case ast.ConstraintIndex, ast.ConstraintKey, ast.ConstraintUniq, ast.ConstraintUniqKey, ast.ConstraintUniqIndex:
		return "ADD INDEX may lock large tables while the index is built"
	default:
		return "ADD CONSTRAINT may lock the table while existing rows are checked"
	}
}

func analyzeText(sql string) Analysis {
	an := Analysis{StatementType: "OTHER"}
	fields := strings.Fields(strings.ToUpper(sql))
	if len(fields) == 0 {
		return an
	}
	switch fields[0] {
	case "CREATE", "DROP", "ALTER", "RENAME", "TRUNCATE":
		an.ImplicitCommit = true
		an.StatementType = fields[0]
		if len(fields) > 1 {
			an.StatementType += " " + fields[1]
		}
	}
	return an
}
