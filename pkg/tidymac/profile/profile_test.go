package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jamesainslie/tidymac/pkg/tidymac/config"
	"github.com/jamesainslie/tidymac/pkg/tidymac/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProfile(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(config.ProfilesDir(), 0o755))
	path := filepath.Join(config.ProfilesDir(), name+".toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestBuiltinProfiles(t *testing.T) {
	t.Setenv("TIDYMAC_HOME", t.TempDir())

	for _, name := range []string{"quick", "developer", "creative", "deep"} {
		p, warnings, err := Load(name)
		require.NoError(t, err, name)
		assert.Empty(t, warnings)
		assert.Equal(t, name, p.Name)
		assert.NotEmpty(t, p.Targets)
	}

	quick, _, err := Load("quick")
	require.NoError(t, err)
	assert.Equal(t, AggressionLow, quick.Aggression)
	assert.False(t, quick.IncludeDangerous)

	deep, _, err := Load("deep")
	require.NoError(t, err)
	assert.Equal(t, AggressionHigh, deep.Aggression)
	assert.True(t, deep.IncludeDangerous)
	assert.Equal(t, 14, deep.StaleDays)
	assert.Equal(t, int64(100), deep.LargeFileThresholdMB)
}

func TestUnknownProfile(t *testing.T) {
	t.Setenv("TIDYMAC_HOME", t.TempDir())

	_, _, err := Load("nonexistent")
	assert.ErrorIs(t, err, ErrUnknownProfile)
}

func TestCustomProfileOverridesBuiltin(t *testing.T) {
	t.Setenv("TIDYMAC_HOME", t.TempDir())
	writeProfile(t, "quick", `
stale_days = 5
targets = ["User Trash"]
`)

	p, warnings, err := Load("quick")
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, 5, p.StaleDays)
	// Lists replace, not union.
	assert.Equal(t, []string{"User Trash"}, p.Targets)
	// Untouched fields keep the built-in values.
	assert.Equal(t, AggressionLow, p.Aggression)
}

func TestCustomProfileStandalone(t *testing.T) {
	t.Setenv("TIDYMAC_HOME", t.TempDir())
	writeProfile(t, "mine", `
name = "mine"
description = "just trash"
aggression = "high"
targets = ["User Trash", "Temporary Files"]
include_dangerous = true
`)

	p, warnings, err := Load("mine")
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "mine", p.Name)
	assert.Equal(t, AggressionHigh, p.Aggression)
	assert.True(t, p.IncludeDangerous)
	assert.Len(t, p.Targets, 2)
}

func TestUnknownKeysWarned(t *testing.T) {
	t.Setenv("TIDYMAC_HOME", t.TempDir())
	writeProfile(t, "odd", `
targets = ["User Trash"]
turbo = true
`)

	_, warnings, err := Load("odd")
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "turbo")
}

func TestInvalidAggressionRejected(t *testing.T) {
	t.Setenv("TIDYMAC_HOME", t.TempDir())
	writeProfile(t, "bad", `aggression = "maximum"`)

	_, _, err := Load("bad")
	assert.ErrorIs(t, err, ErrInvalidProfile)
}

func TestResolveFiltersDangerous(t *testing.T) {
	t.Setenv("TIDYMAC_HOME", t.TempDir())

	p := &Profile{
		Name:    "test",
		Targets: []string{"User Trash", "iOS Device Backups", "No Such Target"},
	}
	active, _, warnings := Resolve(p)
	require.Len(t, active, 1)
	assert.Equal(t, "User Trash", active[0].Name)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "No Such Target")

	p.IncludeDangerous = true
	active, _, _ = Resolve(p)
	require.Len(t, active, 2)
	assert.Equal(t, types.Dangerous, active[1].Safety)
}

func TestResolvePolicy(t *testing.T) {
	p := &Profile{Name: "x", StaleDays: 10, LargeFileThresholdMB: 2, Aggression: AggressionMedium}
	_, policy, _ := Resolve(p)
	assert.Equal(t, 10, policy.StaleDays)
	assert.Equal(t, 2*types.MiB, policy.LargeFileThreshold)
	assert.Equal(t, AggressionMedium, policy.Aggression)
}

func TestListIncludesUserProfiles(t *testing.T) {
	t.Setenv("TIDYMAC_HOME", t.TempDir())
	writeProfile(t, "mine", `targets = ["User Trash"]`)

	profiles, err := List()
	require.NoError(t, err)
	require.Len(t, profiles, 5)
	assert.Equal(t, "creative", profiles[0].Name)
	assert.Equal(t, "mine", profiles[4].Name)
}
