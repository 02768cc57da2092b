package staging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jamesainslie/tidymac/pkg/tidymac/duplicates"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, verify bool) *Store {
	t.Helper()
	t.Setenv("TIDYMAC_HOME", t.TempDir())
	store, err := NewStore("2026-01-02T03-04-05", verify)
	require.NoError(t, err)
	return store
}

func TestStoreCreatesPrivateRoot(t *testing.T) {
	store := newTestStore(t, false)

	info, err := os.Stat(store.Root())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
}

func TestStagePreservesFullPath(t *testing.T) {
	store := newTestStore(t, false)

	src := filepath.Join(t.TempDir(), "cache", "data.bin")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0o755))
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	staged, sha, err := store.Stage(src)
	require.NoError(t, err)
	assert.Empty(t, sha, "no verification requested")

	// The original path structure survives beneath the staging root.
	assert.Equal(t, filepath.Join(store.Root(), src), staged)

	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))

	content, err := os.ReadFile(staged)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(content))
}

func TestStageWithVerifyRecordsSHA(t *testing.T) {
	store := newTestStore(t, true)

	src := filepath.Join(t.TempDir(), "f.bin")
	require.NoError(t, os.WriteFile(src, []byte("content"), 0o644))
	want, err := duplicates.HashFile(src)
	require.NoError(t, err)

	staged, sha, err := store.Stage(src)
	require.NoError(t, err)
	assert.Equal(t, want, sha)

	got, err := duplicates.HashFile(staged)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStageDirectoryAsSingleMove(t *testing.T) {
	store := newTestStore(t, false)

	dir := filepath.Join(t.TempDir(), "node_modules")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg", "index.js"), []byte("x"), 0o644))

	staged, _, err := store.Stage(dir)
	require.NoError(t, err)

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(staged, "pkg", "index.js"))
	assert.NoError(t, err)
}

func TestStageMissingPath(t *testing.T) {
	store := newTestStore(t, false)
	_, _, err := store.Stage("/no/such/file")
	assert.Error(t, err)
}

func TestStagePreservesMtime(t *testing.T) {
	store := newTestStore(t, false)

	src := filepath.Join(t.TempDir(), "old.bin")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))
	mtime := time.Now().Add(-48 * time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(src, mtime, mtime))

	staged, _, err := store.Stage(src)
	require.NoError(t, err)

	info, err := os.Stat(staged)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(mtime), "rename preserves mtime")
}

func TestRestorePathRoundTrip(t *testing.T) {
	store := newTestStore(t, false)

	src := filepath.Join(t.TempDir(), "deep", "nested", "f.bin")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0o755))
	require.NoError(t, os.WriteFile(src, []byte("round trip"), 0o640))
	mtime := time.Now().Add(-24 * time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(src, mtime, mtime))
	wantSHA, err := duplicates.HashFile(src)
	require.NoError(t, err)

	staged, _, err := store.Stage(src)
	require.NoError(t, err)

	// Simulate the parent disappearing before undo.
	require.NoError(t, os.RemoveAll(filepath.Dir(src)))

	require.NoError(t, RestorePath(staged, src))

	info, err := os.Stat(src)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(mtime))
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())

	gotSHA, err := duplicates.HashFile(src)
	require.NoError(t, err)
	assert.Equal(t, wantSHA, gotSHA)
}

func TestRestorePathRefusesOverwrite(t *testing.T) {
	store := newTestStore(t, false)

	src := filepath.Join(t.TempDir(), "f.bin")
	require.NoError(t, os.WriteFile(src, []byte("v1"), 0o644))

	staged, _, err := store.Stage(src)
	require.NoError(t, err)

	// Something reappears at the original path.
	require.NoError(t, os.WriteFile(src, []byte("v2"), 0o644))

	err = RestorePath(staged, src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	content, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(content))
}

func TestRestorePathMissingStaged(t *testing.T) {
	err := RestorePath("/no/such/staged", filepath.Join(t.TempDir(), "out.bin"))
	assert.Error(t, err)
}

func TestStoreRemove(t *testing.T) {
	store := newTestStore(t, false)

	src := filepath.Join(t.TempDir(), "f.bin")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))
	_, _, err := store.Stage(src)
	require.NoError(t, err)

	require.NoError(t, store.Remove())
	_, err = os.Stat(store.Root())
	assert.True(t, os.IsNotExist(err))
}

func TestPruneEmptyDirs(t *testing.T) {
	root := t.TempDir()
	keep := filepath.Join(root, "keep")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b", "c"), 0o755))
	require.NoError(t, os.MkdirAll(keep, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(keep, "f.txt"), []byte("x"), 0o644))

	require.NoError(t, PruneEmptyDirs(root))

	_, err := os.Stat(filepath.Join(root, "a"))
	assert.True(t, os.IsNotExist(err), "empty tree removed")
	_, err = os.Stat(keep)
	assert.NoError(t, err, "non-empty tree kept")
}

func TestCopyThenUnlinkVerificationPath(t *testing.T) {
	// Exercise the copy fallback directly; rename normally succeeds
	// inside one filesystem.
	srcDir := t.TempDir()
	dstDir := t.TempDir()

	src := filepath.Join(srcDir, "f.bin")
	require.NoError(t, os.WriteFile(src, []byte("copy me"), 0o600))
	mtime := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(src, mtime, mtime))

	sha, err := duplicates.HashFile(src)
	require.NoError(t, err)
	info, err := os.Lstat(src)
	require.NoError(t, err)

	dst := filepath.Join(dstDir, "f.bin")
	require.NoError(t, copyThenUnlink(src, dst, info, sha))

	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))

	copied, err := os.Stat(dst)
	require.NoError(t, err)
	assert.True(t, copied.ModTime().Equal(mtime))
	assert.Equal(t, os.FileMode(0o600), copied.Mode().Perm())
}

func TestCopyThenUnlinkMismatchAborts(t *testing.T) {
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "f.bin")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))
	info, err := os.Lstat(src)
	require.NoError(t, err)

	dst := filepath.Join(t.TempDir(), "f.bin")
	err = copyThenUnlink(src, dst, info, "deadbeef")
	require.ErrorIs(t, err, ErrVerificationFailed)

	// Original stays; bad copy is cleaned up.
	_, err = os.Stat(src)
	assert.NoError(t, err)
	_, err = os.Stat(dst)
	assert.True(t, os.IsNotExist(err))
}
