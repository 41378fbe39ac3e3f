package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return dir
}

func TestDefault(t *testing.T) {
	d := Default()
	assert.Equal(t, "bots", d.Comments.DefaultAuthors)
	assert.Equal(t, "text", d.Format)
	assert.True(t, d.Cache.Enabled)
	assert.Equal(t, 120, d.Cache.TTLSeconds)
	assert.Empty(t, d.GitHub.APIURL)
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	isolate(t)
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileValues(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "triage", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("format: markdown\nsonar:\n  hostUrl: https://sonar.example.com\n  project: my-project\n"), 0o644))

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "markdown", cfg.Format)
	assert.Equal(t, "https://sonar.example.com", cfg.Sonar.HostURL)
	assert.Equal(t, "my-project", cfg.Sonar.Project)
	assert.Equal(t, "bots", cfg.Comments.DefaultAuthors, "untouched keys keep defaults")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "triage", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("format: markdown\n"), 0o644))
	t.Setenv("TRIAGE_FORMAT", "json")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Format)
}

func TestLoad_OverridesWin(t *testing.T) {
	isolate(t)
	t.Setenv("TRIAGE_FORMAT", "json")

	cfg, err := Load(map[string]string{"format": "count"})
	require.NoError(t, err)
	assert.Equal(t, "count", cfg.Format)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	isolate(t)

	_, err := Load(map[string]string{"comments.defaultAuthors": "robots"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "defaultAuthors")

	_, err = Load(map[string]string{"format": "yaml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestInit(t *testing.T) {
	isolate(t)

	path, err := Init()
	require.NoError(t, err)
	assert.FileExists(t, path)

	_, err = Init()
	require.Error(t, err, "second init must not clobber an existing file")
}

func TestSet(t *testing.T) {
	isolate(t)

	require.NoError(t, Set("sonar.project", "my-project"))
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "my-project", cfg.Sonar.Project)

	err = Set("nonsense.key", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")

	err = Set("format", "yaml")
	require.Error(t, err, "set must validate before writing")
}
