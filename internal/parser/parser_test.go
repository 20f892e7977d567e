package schema

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFileDispatch(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "models.TOML")
	require.NoError(t, os.WriteFile(path, []byte("[[models]]\nname = \"User\"\n"), 0o644))
	models, err := ParseFile(path)
	require.NoError(t, err)
	assert.Contains(t, models, "User")

	_, err = ParseFile(filepath.Join(dir, "models.yaml"))
	var unsupported *UnsupportedFormatError
	require.True(t, errors.As(err, &unsupported))
	assert.Contains(t, unsupported.Error(), "models.yaml")
}

func TestParseFS(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/app/models.toml", []byte("[[models]]\nname = \"Post\"\ntable = \"posts\"\n"), 0o644))

	models, err := ParseFS(fsys, "/app/models.toml")
	require.NoError(t, err)
	require.Contains(t, models, "Post")

	_, err = ParseFS(fsys, "/app/absent.toml")
	assert.ErrorContains(t, err, "open model file")

	_, err = ParseFS(fsys, "/app/models.json")
	var unsupported *UnsupportedFormatError
	assert.ErrorAs(t, err, &unsupported)
}

func TestParseFSDDL(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/app/schema.sql", []byte("CREATE TABLE posts (id INT PRIMARY KEY, title VARCHAR(200));"), 0o644))

	models, err := ParseFS(fsys, "/app/schema.sql")
	require.NoError(t, err)
	require.Contains(t, models, "posts")
	assert.Len(t, models["posts"].Attributes, 2)
}
