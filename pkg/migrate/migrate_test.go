package migrate

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validBody = "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose StatementEnd\n-- +goose Down\n"

func TestValidateAcceptsEmbeddedMigrations(t *testing.T) {
	require.NoError(t, Validate(Embedded()))
}

func TestValidateAcceptsSourceDir(t *testing.T) {
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, onDisk)
	require.NoError(t, Validate(os.DirFS("migrations")))
}

func TestValidateReportsEveryProblem(t *testing.T) {
	fsys := fstest.MapFS{
		"bad-name.sql":               {Data: []byte(validBody)},
		"20250101000000_one.sql":     {Data: []byte(validBody)},
		"20250101000000_again.sql":   {Data: []byte(validBody)},
		"20250102000000_no_down.sql": {Data: []byte("-- +goose Up\n-- +goose StatementBegin\n")},
		"README.md":                  {Data: []byte("ignored")},
	}
	err := Validate(fsys)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "bad-name.sql")
	assert.Contains(t, msg, "already used")
	assert.Contains(t, msg, `missing "-- +goose Down"`)
	assert.Contains(t, msg, "StatementBegin vs")
}

func TestValidateRejectsEmpty(t *testing.T) {
	assert.Error(t, Validate(fstest.MapFS{}))
}

func TestScaffoldWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 7, 4, 9, 30, 15, 0, time.UTC)

	path, err := Scaffold(dir, "  Add Asset--Tags! ", now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20250704093015_add_asset_tags.sql"), path)
	require.NoError(t, Validate(os.DirFS(dir)))

	_, err = Scaffold(dir, "add asset tags", now)
	assert.Error(t, err, "scaffold must not overwrite an existing version")

	_, err = Scaffold(dir, "!!!", now)
	assert.Error(t, err)
}

func TestSlugify(t *testing.T) {
	for in, want := range map[string]string{
		"Add Asset Tags":      "add_asset_tags",
		"__seats___counter__": "seats_counter",
		"v2 outbox":           "v2_outbox",
		"ñ":                   "",
	} {
		assert.Equal(t, want, slugify(in), in)
	}
}

func TestParseCommand(t *testing.T) {
	cmd, ok := ParseCommand("status")
	assert.True(t, ok)
	assert.Equal(t, Status, cmd)
	for _, fileOnly := range []string{"create", "validate", ""} {
		_, ok := ParseCommand(fileOnly)
		assert.False(t, ok, fileOnly)
	}
}

func TestApplyRequiresDB(t *testing.T) {
	assert.Error(t, Apply(context.Background(), nil, Embedded(), Up))
	assert.Error(t, ApplyTo(context.Background(), nil, Embedded(), 1))
}
