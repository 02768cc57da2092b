package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateDirOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TIDYMAC_HOME", dir)

	assert.Equal(t, dir, StateDir())
	assert.Equal(t, filepath.Join(dir, "staging"), StagingDir())
	assert.Equal(t, filepath.Join(dir, "sessions"), SessionsDir())
	assert.Equal(t, filepath.Join(dir, "profiles"), ProfilesDir())
	assert.Equal(t, filepath.Join(dir, "tidymac.lock"), LockPath())
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TIDYMAC_HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultProfile, cfg.DefaultProfile)
	assert.Equal(t, DefaultRetentionDays, cfg.RetentionDays)
	assert.Equal(t, DefaultStaleDays, cfg.StaleDays)
	assert.Equal(t, int64(DefaultLargeFileMB), cfg.LargeFileThresholdMB)
	assert.False(t, cfg.Verify)
	assert.Empty(t, cfg.Warnings)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TIDYMAC_HOME", dir)

	content := `
default_profile = "developer"
retention_days = 14
verify = true
exclude = ["/proc"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "developer", cfg.DefaultProfile)
	assert.Equal(t, 14, cfg.RetentionDays)
	assert.True(t, cfg.Verify)
	assert.Equal(t, []string{"/proc"}, cfg.Exclude)
}

func TestLoadWarnsOnUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TIDYMAC_HOME", dir)

	content := `
retention_days = 7
turbo_mode = true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	require.Len(t, cfg.Warnings, 1)
	assert.Contains(t, cfg.Warnings[0], "turbo_mode")
}

func TestWriteDefault(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TIDYMAC_HOME", dir)

	require.NoError(t, WriteDefault())
	data, err := os.ReadFile(ConfigPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "default_profile")

	// Existing file is left alone.
	require.NoError(t, os.WriteFile(ConfigPath(), []byte("retention_days = 3\n"), 0o644))
	require.NoError(t, WriteDefault())
	data, err = os.ReadFile(ConfigPath())
	require.NoError(t, err)
	assert.Equal(t, "retention_days = 3\n", string(data))
}

func TestEnsureDirs(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TIDYMAC_HOME", dir)

	require.NoError(t, EnsureDirs())
	for _, d := range []string{StagingDir(), SessionsDir(), ProfilesDir()} {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := ExpandPath("~/Library/Caches")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "Library/Caches"), got)

	got, err = ExpandPath("/tmp/x")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x", got)
}
