package mysql

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"migplan/internal/migration"
)

func levels(findings []Finding) []Level {
	out := make([]Level, len(findings))
	for i, f := range findings {
		out[i] = f.Level
	}
	return out
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name           string
		sql            string
		wantType       string
		wantParsed     bool
		wantImplicit   bool
		wantLevels     []Level
		wantMessageSub string
	}{
		{
			name: "create table", sql: "CREATE TABLE users (id INT PRIMARY KEY);",
			wantType: "CREATE TABLE", wantParsed: true, wantImplicit: true, wantLevels: []Level{},
		},
		{
			name: "drop table", sql: "DROP TABLE users;",
			wantType: "DROP TABLE", wantParsed: true, wantImplicit: true,
			wantLevels: []Level{LevelDanger}, wantMessageSub: "permanently deletes the table",
		},
		{
			name: "create index", sql: "CREATE INDEX idx_name ON users(name);",
			wantType: "CREATE INDEX", wantParsed: true, wantImplicit: true,
			wantLevels: []Level{LevelCaution}, wantMessageSub: "CREATE INDEX may lock",
		},
		{
			name: "drop index", sql: "DROP INDEX idx_name ON users;",
			wantType: "DROP INDEX", wantParsed: true, wantImplicit: true, wantLevels: []Level{LevelCaution},
		},
		{
			name: "add and drop column", sql: "ALTER TABLE users ADD COLUMN age INT, DROP COLUMN legacy;",
			wantType: "ALTER TABLE", wantParsed: true, wantImplicit: true,
			wantLevels: []Level{LevelCaution, LevelDanger}, wantMessageSub: "ADD COLUMN",
		},
		{
			name: "add foreign key", sql: "ALTER TABLE posts ADD FOREIGN KEY (author_id) REFERENCES authors (id);",
			wantType: "ALTER TABLE", wantParsed: true, wantImplicit: true,
			wantLevels: []Level{LevelCaution}, wantMessageSub: "ADD FOREIGN KEY",
		},
		{
			name: "add unique index", sql: "ALTER TABLE users ADD UNIQUE INDEX u_email (email);",
			wantType: "ALTER TABLE", wantParsed: true, wantImplicit: true,
			wantLevels: []Level{LevelCaution}, wantMessageSub: "ADD INDEX",
		},
		{
			name: "truncate", sql: "TRUNCATE TABLE users;",
			wantType: "TRUNCATE TABLE", wantParsed: true, wantImplicit: true, wantLevels: []Level{LevelDanger},
		},
		{
			name: "dml commits with the transaction", sql: "DELETE FROM users WHERE id = 1;",
			wantType: "OTHER", wantParsed: true, wantImplicit: false, wantLevels: []Level{},
		},
		{
			name: "create view falls back to keywords", sql: "CREATE VIEW v AS SELECT 1;",
			wantType: "CREATE VIEW", wantParsed: true, wantImplicit: true, wantLevels: []Level{},
		},
		{
			name: "unparseable ddl", sql: "CREATE FOOBAR thing;",
			wantType: "CREATE FOOBAR", wantParsed: false, wantImplicit: true, wantLevels: []Level{},
		},
		{
			name: "blank", sql: "   ",
			wantType: "OTHER", wantParsed: false, wantImplicit: false, wantLevels: []Level{},
		},
	}

	a := NewAnalyzer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Analyze(tt.sql)
			assert.Equal(t, tt.wantType, got.StatementType)
			assert.Equal(t, tt.wantParsed, got.Parsed)
			assert.Equal(t, tt.wantImplicit, got.ImplicitCommit)
			assert.Equal(t, tt.wantLevels, levels(got.Findings))
			if tt.wantMessageSub != "" {
				require.NotEmpty(t, got.Findings)
				assert.Contains(t, got.Findings[0].Message, tt.wantMessageSub)
				assert.Equal(t, tt.sql, got.Findings[0].SQL)
			}
		})
	}
}

func TestGeneratedStatementsParse(t *testing.T) {
	gen := NewGenerator("")
	a := NewAnalyzer()
	intType := migration.Expr("DataTypes.INTEGER")

	cmds := []migration.Command{
		{ActionName: "createTable", Params: []any{
			"users",
			obj(
				"id", obj("type", intType, "primaryKey", true, "autoIncrement", true, "allowNull", false),
				"uid", obj("type", migration.Expr("DataTypes.UUID")),
				"role", obj("type", migration.Expr("DataTypes.ENUM('admin', 'it''s')"), "defaultValue", "admin"),
				"active", obj("type", migration.Expr("DataTypes.BOOLEAN"), "defaultValue", true),
				"team_id", obj("type", intType, "references", obj("model", "teams"), "onUpdate", "set null"),
				"created_at", obj("type", migration.Expr("DataTypes.DATE"), "defaultValue", migration.Expr("DataTypes.NOW")),
			),
			obj("engine", "InnoDB", "charset", "utf8mb4", "comment", "people"),
		}},
		{ActionName: "addColumn", Params: []any{"posts", "author_id", obj("type", intType, "references", obj("model", "authors")), nil}},
		{ActionName: "changeColumn", Params: []any{"posts", "price", obj("type", migration.Expr("DataTypes.DECIMAL(10, 2).UNSIGNED")), nil}},
		{ActionName: "removeColumn", Params: []any{"posts", "price", nil}},
		{ActionName: "addIndex", Params: []any{"posts", []string{"title", "body"}, obj("type", "FULLTEXT", "parser", "ngram")}},
		{ActionName: "addIndex", Params: []any{"users", []string{"uid"}, obj("unique", true, "using", "HASH")}},
		{ActionName: "removeIndex", Params: []any{"users", []string{"uid"}, nil}},
		{ActionName: "dropTable", Params: []any{"users", nil}},
	}
	for _, cmd := range cmds {
		stmts, err := gen.Statements(cmd)
		require.NoError(t, err, cmd.ActionName)
		for _, s := range stmts {
			assert.NoError(t, a.Validate(s))
		}
	}
}

func TestValidateRejects(t *testing.T) {
	a := NewAnalyzer()
	assert.Error(t, a.Validate("CREATE TABLE"))
	assert.ErrorContains(t, a.Validate("DROP TABLE a; DROP TABLE b;"), "expected one statement")
}

func TestAnalyzerConcurrentUse(t *testing.T) {
	a := NewAnalyzer()
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				assert.Equal(t, "DROP TABLE", a.Analyze("DROP TABLE t;").StatementType)
			}
		}()
	}
	wg.Wait()
}
