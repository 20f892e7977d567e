package mysql

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"migplan/internal/apply"
	"migplan/internal/migration"
)

func obj(kv ...any) migration.Object {
	o := make(migration.Object, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		o = append(o, migration.Property{Key: kv[i].(string), Value: kv[i+1]})
	}
	return o
}

func TestColumnType(t *testing.T) {
	gen := NewGenerator("")
	tests := []struct {
		expr string
		want string
	}{
		{"DataTypes.STRING", "VARCHAR(255)"},
		{"DataTypes.STRING(64).BINARY", "VARCHAR(64) BINARY"},
		{"DataTypes.CHAR(2)", "CHAR(2)"},
		{"DataTypes.TEXT('long')", "LONGTEXT"},
		{"DataTypes.TEXT", "TEXT"},
		{"DataTypes.BLOB('tiny')", "TINYBLOB"},
		{"DataTypes.BOOLEAN", "TINYINT(1)"},
		{"DataTypes.INTEGER", "INT"},
		{"DataTypes.INTEGER(11).ZEROFILL.UNSIGNED", "INT(11) UNSIGNED ZEROFILL"},
		{"DataTypes.BIGINT.UNSIGNED", "BIGINT UNSIGNED"},
		{"DataTypes.DECIMAL(10, 2)", "DECIMAL(10, 2)"},
		{"DataTypes.DOUBLE(10, 4)", "DOUBLE(10, 4)"},
		{"DataTypes.NUMBER", "DECIMAL"},
		{"DataTypes.TIME", "TIME"},
		{"DataTypes.DATE", "DATETIME"},
		{"DataTypes.DATEONLY", "DATE"},
		{"DataTypes.JSONB", "JSON"},
		{"DataTypes.UUIDV4", "CHAR(36) BINARY"},
		{"DataTypes.ENUM('draft', 'it''s')", "ENUM('draft', 'it''s')"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := gen.columnType(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("custom prefix", func(t *testing.T) {
		got, err := NewGenerator("Sequelize.").columnType("Sequelize.STRING(10)")
		require.NoError(t, err)
		assert.Equal(t, "VARCHAR(10)", got)
	})

	for _, expr := range []string{"DataTypes.ARRAY(DataTypes.INTEGER)", "DataTypes.HSTORE", "DataTypes.GEOMETRY('POINT')", "DataTypes.VIRTUAL", "VARCHAR(10)"} {
		t.Run("unsupported "+expr, func(t *testing.T) {
			_, err := gen.columnType(expr)
			var unsupported *UnsupportedTypeError
			require.ErrorAs(t, err, &unsupported)
			assert.Equal(t, expr, unsupported.Expr)
		})
	}

	t.Run("enum without values", func(t *testing.T) {
		_, err := gen.columnType("DataTypes.ENUM")
		assert.ErrorContains(t, err, "has no values")
	})
}

func TestStatements(t *testing.T) {
	gen := NewGenerator("")
	intType := migration.Expr("DataTypes.INTEGER")

	tests := []struct {
		name string
		cmd  migration.Command
		want string
	}{
		{
			name: "create table",
			cmd: migration.Command{ActionName: "createTable", Params: []any{
				"users",
				obj(
					"id", obj("type", intType, "primaryKey", true, "autoIncrement", true, "allowNull", false),
					"email", obj("type", migration.Expr("DataTypes.STRING(100)"), "unique", true, "allowNull", false),
					"team_id", obj("type", intType, "references", obj("model", "teams", "key", "id"), "onDelete", "cascade"),
					"created_at", obj("type", migration.Expr("DataTypes.DATE"), "defaultValue", migration.Expr("DataTypes.NOW")),
				),
				obj("charset", "utf8mb4", migration.TransactionKey, migration.Expr(migration.TransactionKey)),
			}},
			want: "CREATE TABLE `users` (\n" +
				"  `id` INT NOT NULL AUTO_INCREMENT,\n" +
				"  `email` VARCHAR(100) NOT NULL UNIQUE,\n" +
				"  `team_id` INT NULL,\n" +
				"  `created_at` DATETIME NULL DEFAULT CURRENT_TIMESTAMP,\n" +
				"  PRIMARY KEY (`id`),\n" +
				"  FOREIGN KEY (`team_id`) REFERENCES `teams` (`id`) ON DELETE CASCADE\n" +
				") DEFAULT CHARSET=utf8mb4;",
		},
		{
			name: "create table with field name",
			cmd: migration.Command{ActionName: "createTable", Params: []any{
				"tags",
				obj("label", obj("type", migration.Expr("DataTypes.STRING"), "field", "tag_label", "defaultValue", "none", "comment", "shown name")),
				nil,
			}},
			want: "CREATE TABLE `tags` (\n  `tag_label` VARCHAR(255) NULL DEFAULT 'none' COMMENT 'shown name'\n);",
		},
		{
			name: "drop table",
			cmd:  migration.Command{ActionName: "dropTable", Params: []any{"users", obj()}},
			want: "DROP TABLE `users`;",
		},
		{
			name: "add column with reference",
			cmd: migration.Command{ActionName: "addColumn", Params: []any{
				"posts", "author_id",
				obj("type", intType, "allowNull", false, "references", obj("model", "authors")),
				obj(),
			}},
			want: "ALTER TABLE `posts` ADD COLUMN `author_id` INT NOT NULL, ADD FOREIGN KEY (`author_id`) REFERENCES `authors` (`id`);",
		},
		{
			name: "add primary key column",
			cmd: migration.Command{ActionName: "addColumn", Params: []any{
				"posts", "id", obj("type", intType, "primaryKey", true, "autoIncrement", true), obj(),
			}},
			want: "ALTER TABLE `posts` ADD COLUMN `id` INT NOT NULL AUTO_INCREMENT PRIMARY KEY;",
		},
		{
			name: "change column drops key attributes",
			cmd: migration.Command{ActionName: "changeColumn", Params: []any{
				"posts", "status",
				obj("type", migration.Expr("DataTypes.STRING(20)"), "allowNull", true, "defaultValue", "draft", "unique", true),
				obj(),
			}},
			want: "ALTER TABLE `posts` MODIFY COLUMN `status` VARCHAR(20) NULL DEFAULT 'draft';",
		},
		{
			name: "change column with numeric and boolean defaults",
			cmd: migration.Command{ActionName: "changeColumn", Params: []any{
				"posts", "views", obj("type", intType, "allowNull", false, "defaultValue", json.Number("0")), obj(),
			}},
			want: "ALTER TABLE `posts` MODIFY COLUMN `views` INT NOT NULL DEFAULT 0;",
		},
		{
			name: "remove column",
			cmd:  migration.Command{ActionName: "removeColumn", Params: []any{"posts", "status", obj()}},
			want: "ALTER TABLE `posts` DROP COLUMN `status`;",
		},
		{
			name: "add unique index",
			cmd:  migration.Command{ActionName: "addIndex", Params: []any{"users", []string{"email"}, obj("unique", true)}},
			want: "CREATE UNIQUE INDEX `users_email` ON `users` (`email`);",
		},
		{
			name: "add fulltext index with parser",
			cmd: migration.Command{ActionName: "addIndex", Params: []any{
				"posts", []any{"title", "body"}, obj("name", "ft_posts", "type", "fulltext", "parser", "ngram"),
			}},
			want: "CREATE FULLTEXT INDEX `ft_posts` ON `posts` (`title`, `body`) WITH PARSER ngram;",
		},
		{
			name: "add index using btree",
			cmd:  migration.Command{ActionName: "addIndex", Params: []any{"t", []string{"a"}, obj("using", "btree")}},
			want: "CREATE INDEX `t_a` ON `t` (`a`) USING BTREE;",
		},
		{
			name: "remove index by name",
			cmd:  migration.Command{ActionName: "removeIndex", Params: []any{"users", "users_email", obj()}},
			want: "DROP INDEX `users_email` ON `users`;",
		},
		{
			name: "remove index by fields",
			cmd:  migration.Command{ActionName: "removeIndex", Params: []any{"t", []string{"a", "b"}, obj()}},
			want: "DROP INDEX `t_a_b` ON `t`;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := gen.Statements(tt.cmd)
			require.NoError(t, err)
			assert.Equal(t, []string{tt.want}, got)
		})
	}
}

func TestStatementsErrors(t *testing.T) {
	gen := NewGenerator("")
	tests := []struct {
		name    string
		cmd     migration.Command
		wantErr string
	}{
		{"unknown action", migration.Command{ActionName: "renameTable", Params: []any{"t"}}, "unknown action"},
		{"no columns", migration.Command{ActionName: "createTable", Params: []any{"t", obj(), nil}}, "has no columns"},
		{"column without type", migration.Command{ActionName: "addColumn", Params: []any{"t", "c", obj("allowNull", false), nil}}, "has no type"},
		{"column attributes not an object", migration.Command{ActionName: "createTable", Params: []any{"t", obj("c", "x"), nil}}, "not an object"},
		{"unsupported type", migration.Command{ActionName: "addColumn", Params: []any{"t", "c", obj("type", migration.Expr("DataTypes.HSTORE")), nil}}, "not supported by MySQL"},
		{"unknown index type", migration.Command{ActionName: "addIndex", Params: []any{"t", []string{"a"}, obj("type", "bitmap")}}, "unknown index type"},
		{"unknown index method", migration.Command{ActionName: "addIndex", Params: []any{"t", []string{"a"}, obj("using", "rtree")}}, "unknown index method"},
		{"bad index parser", migration.Command{ActionName: "addIndex", Params: []any{"t", []string{"a"}, obj("parser", "x; DROP")}}, "invalid index parser"},
		{"index without fields", migration.Command{ActionName: "addIndex", Params: []any{"t", []string{}, nil}}, "has no fields"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gen.Statements(tt.cmd)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCodeDefaultsAreOmitted(t *testing.T) {
	gen := NewGenerator("")
	stmt, err := gen.AddColumn("t", "uid", obj("type", migration.Expr("DataTypes.UUID"), "defaultValue", migration.Expr("DataTypes.UUIDV4")))
	require.NoError(t, err)
	assert.Equal(t, "ALTER TABLE `t` ADD COLUMN `uid` CHAR(36) BINARY NULL;", stmt)
}

func TestTableOptions(t *testing.T) {
	gen := NewGenerator("")
	got := gen.tableOptions(obj("engine", "InnoDB", "charset", "utf8mb4", "collate", "utf8mb4_bin", "comment", "it's"))
	assert.Equal(t, " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin COMMENT='it''s'", got)

	assert.Empty(t, gen.tableOptions(obj("charset", "utf8; DROP TABLE x")))
	assert.Empty(t, gen.tableOptions(nil))
}

func TestIndexName(t *testing.T) {
	assert.Equal(t, "users_email", IndexName("users", []string{"email"}))
	assert.Equal(t, "user_roles_user_id_role_id", IndexName("User-Roles", []string{"user_id", "role_id"}))

	long := IndexName(strings.Repeat("t", 40), []string{strings.Repeat("f", 40)})
	assert.Len(t, long, mysqlMaxIdentLen)
	assert.Equal(t, long, IndexName(strings.Repeat("t", 40), []string{strings.Repeat("f", 40)}))
	assert.NotEqual(t, long, IndexName(strings.Repeat("t", 40), []string{strings.Repeat("f", 41)}))
}

func TestRemoveIndexPrefersName(t *testing.T) {
	gen := NewGenerator("")
	got := gen.RemoveIndex("users", apply.IndexRef{Name: " named ", Fields: []string{"a"}})
	assert.Equal(t, "DROP INDEX `named` ON `users`;", got)
}

func TestQuoteIdentifier(t *testing.T) {
	gen := NewGenerator("")
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "users", "`users`"},
		{"spaces kept", "user table", "`user table`"},
		{"backtick doubled", "user`table", "`user``table`"},
		{"many backticks", "a`b`c", "`a``b``c`"},
		{"only backtick", "`", "````"},
		{"surrounding whitespace trimmed", "  users\t", "`users`"},
		{"empty", "", "``"},
		{"unicode", "użytkownicy", "`użytkownicy`"},
		{"reserved word", "select", "`select`"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gen.QuoteIdentifier(tt.input))
		})
	}
}

func TestQuoteString(t *testing.T) {
	gen := NewGenerator("")
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hello", "'hello'"},
		{"single quote doubled", "it's", "'it''s'"},
		{"backslash", `a\b`, `'a\\b'`},
		{"nul", "a\x00b", `'a\0b'`},
		{"newline", "a\nb", `'a\nb'`},
		{"carriage return", "a\rb", `'a\rb'`},
		{"ctrl z", "a\x1Ab", `'a\Zb'`},
		{"empty", "", "''"},
		{"only special", "'\\\n\r\x00\x1A", `'''\\\n\r\0\Z'`},
		{"double quote untouched", `say "hi"`, `'say "hi"'`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gen.QuoteString(tt.input))
		})
	}
}
