package devscan

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jamesainslie/tidymac/pkg/tidymac/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDetectNodeModules(t *testing.T) {
	project := t.TempDir()
	writeFile(t, filepath.Join(project, "package.json"), "{}")
	writeFile(t, filepath.Join(project, "node_modules", "lodash", "index.js"), "module.exports = {}")

	p, ok := Detect(project)
	require.True(t, ok)
	assert.Equal(t, KindNodeModules, p.Kind)
	assert.Equal(t, []string{filepath.Join(project, "node_modules")}, p.Artifacts)
	assert.Equal(t, 1, p.FileCount)
	assert.Positive(t, p.Bytes)
}

func TestDetectNodeBuildArtifacts(t *testing.T) {
	project := t.TempDir()
	writeFile(t, filepath.Join(project, "package.json"), "{}")
	writeFile(t, filepath.Join(project, "dist", "bundle.js"), "x")
	writeFile(t, filepath.Join(project, "build", "out.js"), "y")

	p, ok := Detect(project)
	require.True(t, ok)
	assert.Equal(t, KindNodeBuild, p.Kind)
	assert.Len(t, p.Artifacts, 2)
	assert.Equal(t, 2, p.FileCount)
}

func TestDetectRustTarget(t *testing.T) {
	project := t.TempDir()
	writeFile(t, filepath.Join(project, "Cargo.toml"), "[package]")
	writeFile(t, filepath.Join(project, "target", "debug", "app"), "binary")

	p, ok := Detect(project)
	require.True(t, ok)
	assert.Equal(t, KindRustTarget, p.Kind)
}

func TestDetectPythonVenv(t *testing.T) {
	venv := t.TempDir()
	writeFile(t, filepath.Join(venv, "pyvenv.cfg"), "home = /usr/bin")
	writeFile(t, filepath.Join(venv, "lib", "python3.12", "site.py"), "")

	p, ok := Detect(venv)
	require.True(t, ok)
	assert.Equal(t, KindPythonVenv, p.Kind)
	assert.Equal(t, []string{venv}, p.Artifacts)
}

func TestDetectVenvByActivate(t *testing.T) {
	venv := t.TempDir()
	writeFile(t, filepath.Join(venv, "bin", "activate"), "#!/bin/sh")
	writeFile(t, filepath.Join(venv, "lib", "python3.11", "os.py"), "")

	_, ok := Detect(venv)
	assert.True(t, ok)
}

func TestDetectCocoaPods(t *testing.T) {
	project := t.TempDir()
	writeFile(t, filepath.Join(project, "Podfile"), "platform :ios")
	writeFile(t, filepath.Join(project, "Pods", "Manifest.lock"), "x")

	p, ok := Detect(project)
	require.True(t, ok)
	assert.Equal(t, KindCocoaPods, p.Kind)
}

func TestDetectXcodeDerivedData(t *testing.T) {
	project := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(project, "App.xcodeproj"), 0o755))
	writeFile(t, filepath.Join(project, "DerivedData", "App", "Build", "out.o"), "x")

	p, ok := Detect(project)
	require.True(t, ok)
	assert.Equal(t, KindXcodeData, p.Kind)

	// DerivedData without a workspace is not matched.
	bare := t.TempDir()
	writeFile(t, filepath.Join(bare, "DerivedData", "x.o"), "x")
	_, ok = Detect(bare)
	assert.False(t, ok)
}

func TestDetectNoMatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "README.md"), "hi")
	_, ok := Detect(dir)
	assert.False(t, ok)
}

func TestRuleOrderNodeModulesFirst(t *testing.T) {
	// A project with both node_modules and a Cargo target matches the
	// node_modules rule because rules are tested in order.
	project := t.TempDir()
	writeFile(t, filepath.Join(project, "node_modules", "x", "i.js"), "x")
	writeFile(t, filepath.Join(project, "Cargo.toml"), "[package]")
	writeFile(t, filepath.Join(project, "target", "a"), "x")

	p, ok := Detect(project)
	require.True(t, ok)
	assert.Equal(t, KindNodeModules, p.Kind)
}

func TestScanOutermostWins(t *testing.T) {
	root := t.TempDir()
	outer := filepath.Join(root, "webapp")
	writeFile(t, filepath.Join(outer, "package.json"), "{}")
	// A Cargo project nested inside node_modules must not produce a
	// second project.
	writeFile(t, filepath.Join(outer, "node_modules", "native", "Cargo.toml"), "[package]")
	writeFile(t, filepath.Join(outer, "node_modules", "native", "target", "lib.a"), "x")

	projects := Scan(context.Background(), []string{root})
	require.Len(t, projects, 1)
	assert.Equal(t, KindNodeModules, projects[0].Kind)
	assert.Equal(t, outer, projects[0].Root)
}

func TestScanFindsNestedProjects(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "package.json"), "{}")
	writeFile(t, filepath.Join(root, "a", "node_modules", "m", "i.js"), "x")
	writeFile(t, filepath.Join(root, "group", "b", "Cargo.toml"), "[package]")
	writeFile(t, filepath.Join(root, "group", "b", "target", "out"), "x")

	projects := Scan(context.Background(), []string{root})
	require.Len(t, projects, 2)
}

func TestStaleness(t *testing.T) {
	project := t.TempDir()
	src := filepath.Join(project, "index.js")
	writeFile(t, src, "fresh")
	writeFile(t, filepath.Join(project, "node_modules", "m", "i.js"), "x")

	p, ok := Detect(project)
	require.True(t, ok)

	// Fresh source: Caution.
	assert.False(t, p.Stale(30))
	assert.Equal(t, types.Caution, p.Safety(30))

	// Backdate every source file; artifact mtimes do not count.
	old := time.Now().AddDate(0, 0, -60)
	require.NoError(t, os.Chtimes(src, old, old))

	p, ok = Detect(project)
	require.True(t, ok)
	assert.True(t, p.Stale(30))
	assert.Equal(t, types.Safe, p.Safety(30))
}
