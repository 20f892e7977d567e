package mysql

import (
	"bytes"
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"

	"migplan/internal/apply"
	"migplan/internal/dialect"
	"migplan/internal/migration"
)

type testMySQLContainer struct {
	dsn string
	db  *sql.DB
}

func setupMySQL(t *testing.T) *testMySQLContainer {
	t.Helper()
	ctx := context.Background()

	mysqlContainer, err := mysql.Run(ctx, "mysql:8.0",
		mysql.WithDatabase("testdb"),
		mysql.WithUsername("root"),
		mysql.WithPassword("testpass"),
	)
	require.NoError(t, err, "failed to start MySQL container")

	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(mysqlContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := mysqlContainer.ConnectionString(ctx, "parseTime=true")
	require.NoError(t, err, "failed to get connection string")

	db, err := Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close DB connection: %v", err)
		}
	})
	return &testMySQLContainer{dsn: dsn, db: db}
}

func columnNames(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query(`SELECT column_name FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ? ORDER BY ordinal_position`, table)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		names = append(names, n)
	}
	require.NoError(t, rows.Err())
	return names
}

func tableExists(t *testing.T, db *sql.DB, table string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_name = ?`, table).Scan(&n)
	require.NoError(t, err)
	return n > 0
}

func integrationArtifact() *migration.Artifact {
	tx := migration.Property{Key: migration.TransactionKey, Value: migration.Expr(migration.TransactionKey)}
	intType := migration.Expr("DataTypes.INTEGER")
	return &migration.Artifact{
		Up: []migration.Command{
			{ActionName: "createTable", Params: []any{"authors", obj(
				"id", obj("type", intType, "primaryKey", true, "autoIncrement", true, "allowNull", false),
				"name", obj("type", migration.Expr("DataTypes.STRING(80)"), "allowNull", false),
			), migration.Object{tx}}},
			{ActionName: "createTable", Params: []any{"posts", obj(
				"id", obj("type", intType, "primaryKey", true, "autoIncrement", true, "allowNull", false),
				"title", obj("type", migration.Expr("DataTypes.STRING"), "defaultValue", "untitled"),
			), migration.Object{tx}}},
			{ActionName: "addColumn", Params: []any{"posts", "author_id", obj("type", intType, "references", obj("model", "authors")), migration.Object{tx}}},
			{ActionName: "changeColumn", Params: []any{"posts", "title", obj("type", migration.Expr("DataTypes.STRING(120)"), "allowNull", false), migration.Object{tx}}},
			{ActionName: "addIndex", Params: []any{"posts", []string{"title"}, migration.Object{{Key: "unique", Value: true}, tx}}},
		},
		Down: []migration.Command{
			{ActionName: "removeIndex", Params: []any{"posts", []string{"title"}, migration.Object{tx}}},
			{ActionName: "dropTable", Params: []any{"posts", migration.Object{tx}}},
			{ActionName: "dropTable", Params: []any{"authors", migration.Object{tx}}},
		},
	}
}

func TestDBIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	tc := setupMySQL(t)
	ctx := context.Background()
	db := NewDB(tc.db, NewGenerator(""), nil)
	a := integrationArtifact()

	t.Run("up", func(t *testing.T) {
		var out bytes.Buffer
		err := apply.NewExecutor(db, apply.Options{Out: &out}).Up(ctx, a, false, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "title", "author_id"}, columnNames(t, tc.db, "posts"))
		assert.Contains(t, out.String(), "Successfully applied 5 commands")

		var unique int
		require.NoError(t, tc.db.QueryRow(`SELECT COUNT(*) FROM information_schema.statistics
			WHERE table_schema = DATABASE() AND table_name = 'posts' AND index_name = 'posts_title' AND non_unique = 0`).Scan(&unique))
		assert.Equal(t, 1, unique)
	})

	t.Run("failure reports position", func(t *testing.T) {
		err := apply.NewExecutor(db, apply.Options{}).Up(ctx, a, false, 0)
		var execErr *apply.ExecutionError
		require.ErrorAs(t, err, &execErr)
		assert.Equal(t, 0, execErr.Position)
	})

	t.Run("down in transaction", func(t *testing.T) {
		require.NoError(t, apply.NewExecutor(db, apply.Options{}).Down(ctx, a, true, 0))
		assert.False(t, tableExists(t, tc.db, "posts"))
		assert.False(t, tableExists(t, tc.db, "authors"))
	})
}

func TestDialectOpen(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	tc := setupMySQL(t)
	ctx := context.Background()

	d, err := dialect.GetDialect("MySQL", dialect.Options{})
	require.NoError(t, err)
	conn, err := d.Open(ctx, tc.dsn)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, conn.Close()) })

	lines, err := conn.Preview(migration.Command{ActionName: "dropTable", Params: []any{"x", nil}})
	require.NoError(t, err)
	assert.Equal(t, "DROP TABLE `x`;", lines[0])

	require.NoError(t, conn.CreateTable(ctx, "things", obj("id", obj("type", migration.Expr("DataTypes.INTEGER"))), apply.CallOptions{}))
	assert.True(t, tableExists(t, tc.db, "things"))
}

func TestConnectErrors(t *testing.T) {
	_, err := Connect(context.Background(), "")
	assert.ErrorContains(t, err, "DSN is required")

	if testing.Short() {
		return
	}
	_, err = Connect(context.Background(), "root:wrong@tcp(127.0.0.1:1)/none?timeout=1s")
	assert.ErrorContains(t, err, "failed to ping database")
}

func TestDialectRegistered(t *testing.T) {
	assert.Contains(t, dialect.Names(), "mysql")
	d, err := dialect.GetDialect("mysql", dialect.Options{TypePrefix: "Sequelize."})
	require.NoError(t, err)
	assert.Equal(t, dialect.MySQL, d.Name())

	stmts, err := d.Statements(migration.Command{ActionName: "addColumn", Params: []any{"t", "c", obj("type", migration.Expr("Sequelize.BOOLEAN")), nil}})
	require.NoError(t, err)
	assert.Equal(t, []string{"ALTER TABLE `t` ADD COLUMN `c` TINYINT(1) NULL;"}, stmts)
}

func TestPreviewIncludesFindings(t *testing.T) {
	db := NewDB(nil, nil, nil)
	lines, err := db.Preview(migration.Command{ActionName: "removeColumn", Params: []any{"posts", "legacy", nil}})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"ALTER TABLE `posts` DROP COLUMN `legacy`;",
		"-- [DANGER] DROP COLUMN permanently deletes the column and its data",
	}, lines)
}

func TestDialectAnnotate(t *testing.T) {
	d := NewDialect(dialect.Options{})
	assert.Equal(t, []string{"[DANGER] DROP TABLE permanently deletes the table and all its data"}, d.Annotate("DROP TABLE `x`;"))
	assert.Empty(t, d.Annotate("CREATE TABLE `x` (`id` INT NULL);"))
}

func TestDetachedConn(t *testing.T) {
	conn := NewDialect(dialect.Options{}).Detached()
	ctx := context.Background()

	_, err := conn.Begin(ctx)
	assert.ErrorIs(t, err, ErrNotConnected)
	err = conn.DropTable(ctx, "posts", apply.CallOptions{})
	assert.ErrorIs(t, err, ErrNotConnected)

	lines, err := conn.Preview(migration.Command{ActionName: "dropTable", Params: []any{"posts", nil}})
	require.NoError(t, err)
	assert.Equal(t, "DROP TABLE `posts`;", lines[0])
	assert.NoError(t, conn.Close())
}

func TestDialectInspect(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	tc := setupMySQL(t)
	ctx := context.Background()
	db := NewDB(tc.db, NewGenerator(""), nil)
	require.NoError(t, apply.NewExecutor(db, apply.Options{}).Up(ctx, integrationArtifact(), false, 0))

	live, err := NewDialect(dialect.Options{}).Inspect(ctx, tc.dsn)
	require.NoError(t, err)
	assert.Equal(t, "testdb", live.Name)
	assert.Equal(t, "mysql", live.Flavor)

	posts := live.Table("posts")
	require.NotNil(t, posts)
	require.Len(t, posts.Columns, 3)
	assert.True(t, posts.Column("id").PrimaryKey)
	assert.True(t, posts.Column("id").AutoIncrement)
	assert.False(t, posts.Column("title").Nullable)
	assert.True(t, posts.Column("author_id").Nullable)

	var unique []string
	for _, idx := range posts.Indexes {
		if idx.Name == "posts_title" {
			unique = idx.Columns
			assert.True(t, idx.Unique)
		}
	}
	assert.Equal(t, []string{"title"}, unique)
	assert.NotNil(t, live.Table("authors"))
}
