package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
)

const usersModel = `
[[models]]
name = "User"
table = "users"

  [[models.attributes]]
  name = "id"
  type = "INTEGER"
  primary_key = true
  auto_increment = true
  allow_null = false

  [[models.attributes]]
  name = "email"
  type = "STRING(100)"
  allow_null = false

  [[models.indexes]]
  fields = ["email"]
  unique = true
`

const bioAttribute = `
  [[models.attributes]]
  name = "bio"
  type = "TEXT"
`

func newTestApp(t *testing.T, models string) *app {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/work/models.toml", []byte(models), 0o644))
	return &app{
		fs:  fs,
		now: func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func run(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	a.out = &buf
	root := newRootCmd(a)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{
		"--models", "/work/models.toml",
		"--migrations-dir", "/work/migrations",
		"--log-level", "error",
	}, args...))
	err := root.Execute()
	return buf.String(), err
}

func TestGenerateLifecycle(t *testing.T) {
	a := newTestApp(t, usersModel)

	out, err := run(t, a, "generate", "--name", "init")
	require.NoError(t, err)
	assert.Contains(t, out, `[Actions] createTable "users"`)
	assert.Contains(t, out, "New migration to revision 1 has been saved to file '/work/migrations/1-init.mig'")
	ok, err := afero.Exists(a.fs, "/work/migrations/1-init.mig")
	require.NoError(t, err)
	assert.True(t, ok)

	out, err = run(t, a, "generate")
	require.NoError(t, err)
	assert.Equal(t, "No changes found\n", out)

	require.NoError(t, afero.WriteFile(a.fs, "/work/models.toml", []byte(usersModel+bioAttribute), 0o644))
	out, err = run(t, a, "generate", "-n", "add bio")
	require.NoError(t, err)
	assert.Contains(t, out, `[Actions] addColumn "bio" to table "users"`)
	assert.Contains(t, out, "/work/migrations/2-add_bio.mig")

	out, err = run(t, a, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Current revision: 2 (1 table(s))\n")
	assert.Regexp(t, `\s1\s+\S\s+init\s`, out)
	assert.Regexp(t, `\*\s+\S\s+2\s+\S\s+add_bio\s`, out)
}

func TestGenerateDryRun(t *testing.T) {
	a := newTestApp(t, usersModel)

	out, err := run(t, a, "generate", "--dry-run", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"fn": "createTable"`)

	ok, err := afero.Exists(a.fs, "/work/migrations/_current.json")
	require.NoError(t, err)
	assert.False(t, ok, "a dry run does not record state")
}

func TestPlan(t *testing.T) {
	a := newTestApp(t, usersModel)
	_, err := run(t, a, "generate")
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(a.fs, "/work/models.toml", []byte(usersModel+bioAttribute), 0o644))

	out, err := run(t, a, "plan", "--format", "sql")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema differences:")
	assert.Contains(t, out, "users.bio (column)")
	assert.Contains(t, out, "-- migplan migration 2\n")
	assert.Contains(t, out, "ADD COLUMN `bio`")

	out, err = run(t, a, "plan", "--format", "summary")
	require.NoError(t, err)
	assert.Contains(t, out, "Columns:     +1, ~0, -0\n")

	_, err = run(t, a, "plan", "--format", "yaml")
	assert.ErrorContains(t, err, "unsupported format: yaml")
}

func TestUpDownDryRun(t *testing.T) {
	a := newTestApp(t, usersModel)
	_, err := run(t, a, "generate", "-n", "init")
	require.NoError(t, err)

	out, err := run(t, a, "up", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "=== DRY RUN MODE ===")
	assert.Contains(t, out, "CREATE TABLE `users`")
	assert.Contains(t, out, "=== DRY RUN COMPLETE ===")

	out, err = run(t, a, "down", "1", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "DROP TABLE `users`;")
	assert.Contains(t, out, "[DANGER]")
}

func TestRunErrors(t *testing.T) {
	a := newTestApp(t, usersModel)

	_, err := run(t, a, "up")
	assert.ErrorContains(t, err, "no migrations found")

	_, err = run(t, a, "generate")
	require.NoError(t, err)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"missing dsn", []string{"up", "1"}, "DSN is required"},
		{"unknown revision", []string{"down", "7", "--dry-run"}, "migration revision 7 not found"},
		{"bad revision", []string{"down", "x"}, "invalid revision"},
		{"bad position", []string{"up", "1", "--dry-run", "--position", "9"}, "invalid start position"},
		{"unknown dialect", []string{"up", "1", "--dry-run", "--dialect", "oracle"}, `unknown dialect "oracle"`},
		{"bad log level", []string{"status", "--log-level", "loud"}, "invalid log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, a, tt.args...)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestModelsFileErrors(t *testing.T) {
	a := newTestApp(t, usersModel)
	require.NoError(t, a.fs.Remove("/work/models.toml"))

	_, err := run(t, a, "generate")
	assert.ErrorContains(t, err, "failed to read models")
}

func TestVerifyNeedsDSN(t *testing.T) {
	a := newTestApp(t, usersModel)
	_, err := run(t, a, "verify")
	assert.ErrorContains(t, err, "DSN is required")
}

func startMySQL(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := mysql.Run(ctx, "mysql:8.0",
		mysql.WithDatabase("testdb"),
		mysql.WithUsername("root"),
		mysql.WithPassword("testpass"),
	)
	require.NoError(t, err, "failed to start MySQL container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx)
	require.NoError(t, err, "failed to get connection string")
	return dsn
}

func TestUpVerifyDown(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	dsn := startMySQL(t)
	a := newTestApp(t, usersModel)

	_, err := run(t, a, "generate", "-n", "init")
	require.NoError(t, err)

	out, err := run(t, a, "up", "--dsn", dsn, "--transaction")
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully applied 2 commands")

	out, err = run(t, a, "verify", "--dsn", dsn)
	require.NoError(t, err)
	assert.Contains(t, out, "Database testdb (mysql 8.0")
	assert.Contains(t, out, "matches revision 1")

	_, err = run(t, a, "down", "1", "--dsn", dsn)
	require.NoError(t, err)

	out, err = run(t, a, "verify", "--dsn", dsn)
	assert.ErrorContains(t, err, "schema drift: 1 difference(s)")
	assert.Contains(t, out, "  - table users is missing\n")
}
