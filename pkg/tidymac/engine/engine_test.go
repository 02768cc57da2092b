package engine

import (
	"context"
	"crypto/rand"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/jamesainslie/tidymac/pkg/tidymac/catalog"
	"github.com/jamesainslie/tidymac/pkg/tidymac/config"
	"github.com/jamesainslie/tidymac/pkg/tidymac/duplicates"
	"github.com/jamesainslie/tidymac/pkg/tidymac/session"
	"github.com/jamesainslie/tidymac/pkg/tidymac/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestEngine builds an engine against a fake home directory and an
// isolated state directory. The built-in profiles are overlaid with
// user profiles restricted to home-relative targets so tests never
// walk real system directories like /tmp.
func newTestEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	t.Setenv("TIDYMAC_HOME", t.TempDir())
	require.NoError(t, config.EnsureDirs())

	overlays := map[string]string{
		"quick": `targets = ["User Cache Files", "User Log Files", "User Trash"]
`,
		"developer": `targets = ["pip Cache", "npm Cache", "User Trash", "Dev Project Artifacts"]
`,
	}
	for name, content := range overlays {
		path := filepath.Join(config.ProfilesDir(), name+".toml")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	home := t.TempDir()
	cfg := &config.Config{
		DefaultProfile:       "quick",
		RetentionDays:        7,
		StaleDays:            30,
		LargeFileThresholdMB: 500,
		WalkBudgetSecs:       30,
		HashBudgetSecs:       60,
	}

	e, err := New(Options{Config: cfg, Env: &catalog.Env{Home: home}})
	require.NoError(t, err)
	e.Guard().AllowPrefix(home)
	return e, home
}

// seedPipCache fills the fake home's pip cache with n files of size
// bytes each and returns the cache directory.
func seedPipCache(t *testing.T, home string, n int, size int) string {
	t.Helper()
	dir := filepath.Join(home, "Library", "Caches", "pip", "http")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	buf := make([]byte, size)
	for i := 0; i < n; i++ {
		_, err := rand.Read(buf)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, filename(i)), buf, 0o644))
	}
	return dir
}

func filename(i int) string {
	return "blob-" + string(rune('a'+i/26%26)) + string(rune('a'+i%26)) + "-" + string(rune('0'+i%10)) + ".bin"
}

func TestScanFindsPipCache(t *testing.T) {
	e, home := newTestEngine(t)
	seedPipCache(t, home, 100, 100*1024)

	inv, err := e.Scan(context.Background(), "developer")
	require.NoError(t, err)

	item := inv.Item("pip Cache")
	require.NotNil(t, item, "inventory must include the pip cache item")
	assert.Equal(t, 100, item.FileCount)
	assert.Equal(t, int64(10_240_000), item.Bytes)
	assert.Equal(t, "9.77 MiB", item.BytesFormatted())
	assert.Equal(t, types.Safe, item.Safety)

	// Invariant: totals match the item sums.
	var bytes int64
	var files int
	for _, it := range inv.Items {
		bytes += it.Bytes
		files += it.FileCount
	}
	assert.Equal(t, bytes, inv.TotalBytes)
	assert.Equal(t, files, inv.TotalFiles)
}

func TestScanEveryItemPathPassesGuard(t *testing.T) {
	e, home := newTestEngine(t)
	seedPipCache(t, home, 20, 100*1024)

	inv, err := e.Scan(context.Background(), "developer")
	require.NoError(t, err)

	for _, item := range inv.Items {
		for _, path := range item.Paths {
			decision := e.Guard().IsDeletable(path)
			assert.True(t, decision.Allow, "%s: %s", path, decision.Reason)
		}
	}
}

func TestScanUnknownProfile(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.Scan(context.Background(), "warp-speed")
	require.Error(t, err)
	assert.Equal(t, KindInvalidProfile, ErrorKind(err))
}

func TestCleanPreviewMutatesNothing(t *testing.T) {
	e, home := newTestEngine(t)
	dir := seedPipCache(t, home, 10, 200*1024)

	report, err := e.Clean(context.Background(), CleanRequest{Profile: "developer", Mode: types.ModePreview})
	require.NoError(t, err)
	assert.Equal(t, 10, report.FilesRemoved)
	assert.Equal(t, int64(10*200*1024), report.BytesFreed)
	assert.Empty(t, report.SessionID)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 10)
}

func TestCleanSoftRoundTrip(t *testing.T) {
	e, home := newTestEngine(t)
	dir := seedPipCache(t, home, 100, 100*1024)

	originals := make(map[string]string)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		sha, err := duplicates.HashFile(path)
		require.NoError(t, err)
		originals[path] = sha
	}

	report, err := e.Clean(context.Background(), CleanRequest{Profile: "developer", Mode: types.ModeSoft})
	require.NoError(t, err)
	assert.Equal(t, 100, report.FilesRemoved)
	assert.Equal(t, int64(10_240_000), report.BytesFreed)
	assert.Regexp(t, regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2}$`), report.SessionID)

	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "cache directory is empty after soft clean")

	restore, err := e.Restore(report.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 100, restore.RestoredCount)
	assert.Empty(t, restore.Errors)

	for path, wantSHA := range originals {
		gotSHA, err := duplicates.HashFile(path)
		require.NoError(t, err, path)
		assert.Equal(t, wantSHA, gotSHA, path)
	}
}

func TestCleanHardLeavesAuditManifest(t *testing.T) {
	e, home := newTestEngine(t)
	seedPipCache(t, home, 5, 300*1024)

	report, err := e.Clean(context.Background(), CleanRequest{Profile: "developer", Mode: types.ModeHard})
	require.NoError(t, err)
	assert.Equal(t, 5, report.FilesRemoved)

	summaries, err := e.ListSessions()
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, types.ModeHard, summaries[0].Mode)

	// Hard sessions cannot be restored.
	_, err = e.Restore(summaries[0].ID)
	assert.ErrorIs(t, err, session.ErrNothingStaged)
}

func TestCleanRefusesProtectedPathAtDeleteTime(t *testing.T) {
	e, _ := newTestEngine(t)
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	item := types.InventoryItem{
		Name:  "Suspicious",
		Paths: []string{filepath.Join(home, "Documents")},
	}

	sess := session.New("quick", types.ModeHard, 7)
	report := &CleanReport{Mode: types.ModeHard}
	var processed int64
	e.cleanItem(context.Background(), item, map[string]types.FileRecord{},
		CleanRequest{Mode: types.ModeHard}, sess, nil, report, &processed)

	assert.Equal(t, 0, sess.TotalFiles)
	require.NotEmpty(t, report.Errors)
	assert.Contains(t, report.Errors[0], "safety_refused")
}

func TestCleanSkipsFilesChangedSinceScan(t *testing.T) {
	e, _ := newTestEngine(t)

	dir := t.TempDir()
	e.Guard().AllowPrefix(dir)
	path := filepath.Join(dir, "f.bin")
	require.NoError(t, os.WriteFile(path, []byte("scan-time content"), 0o644))

	info, err := os.Stat(path)
	require.NoError(t, err)
	records := map[string]types.FileRecord{
		path: {Path: path, Size: info.Size() - 5, ModTime: info.ModTime(), Kind: types.KindRegular},
	}

	item := types.InventoryItem{Name: "X", Paths: []string{path}}
	sess := session.New("quick", types.ModeHard, 7)
	report := &CleanReport{Mode: types.ModeHard}
	var processed int64

	e.cleanItem(context.Background(), item, records, CleanRequest{Mode: types.ModeHard}, sess, nil, report, &processed)
	assert.Equal(t, 0, sess.TotalFiles)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "changed since scan")
	_, err = os.Stat(path)
	assert.NoError(t, err, "changed file is left in place")

	// Force overrides the drift check.
	report = &CleanReport{Mode: types.ModeHard}
	e.cleanItem(context.Background(), item, records, CleanRequest{Mode: types.ModeHard, Force: true}, sess, nil, report, &processed)
	assert.Empty(t, report.Errors)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestCleanSelectsNamedItems(t *testing.T) {
	e, home := newTestEngine(t)
	pipDir := seedPipCache(t, home, 4, 400*1024)

	trashDir := filepath.Join(home, ".Trash")
	require.NoError(t, os.MkdirAll(trashDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(trashDir, "junk.bin"), make([]byte, 2*1024*1024), 0o644))

	report, err := e.Clean(context.Background(), CleanRequest{
		Profile: "developer",
		Mode:    types.ModeSoft,
		Items:   []string{"User Trash"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesRemoved)

	// The pip cache stays untouched.
	entries, err := os.ReadDir(pipDir)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestCleanUnknownItemReported(t *testing.T) {
	e, home := newTestEngine(t)
	seedPipCache(t, home, 2, 1024*1024)

	report, err := e.Clean(context.Background(), CleanRequest{
		Profile: "developer",
		Mode:    types.ModePreview,
		Items:   []string{"No Such Item"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, report.FilesRemoved)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "No Such Item")
}

func TestDangerousNeverAutoSelected(t *testing.T) {
	inv := &types.Inventory{Items: []types.InventoryItem{
		{Name: "safe", Safety: types.Safe, Bytes: 10, FileCount: 1},
		{Name: "risky", Safety: types.Dangerous, Bytes: 99, FileCount: 1},
	}}

	selected, _ := selectItems(inv, nil)
	require.Len(t, selected, 1)
	assert.Equal(t, "safe", selected[0].Name)

	// Explicit naming selects it.
	selected, errs := selectItems(inv, []string{"risky"})
	assert.Empty(t, errs)
	require.Len(t, selected, 1)
	assert.Equal(t, "risky", selected[0].Name)
}

func TestFindDuplicatesOperation(t *testing.T) {
	e, _ := newTestEngine(t)

	root := t.TempDir()
	content := make([]byte, 4096)
	_, err := rand.Read(content)
	require.NoError(t, err)
	for _, name := range []string{"a.bin", "b/copy.bin", "c/deep/copy2.bin"} {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, content, 0o644))
	}

	result, err := e.FindDuplicates(context.Background(), root, false)
	require.NoError(t, err)
	require.Len(t, result.Exact, 1)
	assert.Len(t, result.Exact[0].Paths, 3)
	assert.Equal(t, int64(4096), result.Exact[0].SizeBytes)
}

func TestPurgeOperation(t *testing.T) {
	e, home := newTestEngine(t)
	seedPipCache(t, home, 3, 1024*1024)

	report, err := e.Clean(context.Background(), CleanRequest{Profile: "developer", Mode: types.ModeSoft})
	require.NoError(t, err)

	// Not expired: nothing purged.
	purge, err := e.Purge(PurgeRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, purge.SessionsPurged)

	// All: the session goes.
	purge, err = e.Purge(PurgeRequest{All: true})
	require.NoError(t, err)
	assert.Equal(t, 1, purge.SessionsPurged)
	assert.Positive(t, purge.BytesFreed)

	_, err = e.Restore(report.SessionID)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestListProfilesOperation(t *testing.T) {
	e, _ := newTestEngine(t)
	profiles, err := e.ListProfiles()
	require.NoError(t, err)
	require.Len(t, profiles, 4)
	names := make([]string, len(profiles))
	for i, p := range profiles {
		names[i] = p.Name
	}
	assert.ElementsMatch(t, []string{"quick", "developer", "creative", "deep"}, names)
}

func TestErrorKinds(t *testing.T) {
	assert.Equal(t, "", ErrorKind(nil))
	assert.Equal(t, KindSessionExpired, ErrorKind(session.ErrExpired))
	assert.Equal(t, KindSessionLocked, ErrorKind(session.ErrLocked))
	assert.Equal(t, KindInvalidManifest, ErrorKind(session.ErrInvalidManifest))
	assert.Equal(t, KindCancelled, ErrorKind(context.Canceled))
	assert.Equal(t, KindBudgetExceeded, ErrorKind(context.DeadlineExceeded))
	assert.Equal(t, KindPathNotFound, ErrorKind(os.ErrNotExist))
}

func TestExitCodes(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitNoOp, ExitCode(session.ErrNothingStaged))
	assert.Equal(t, ExitPartialFailure, ExitCode(session.ErrExpired))
	assert.Equal(t, ExitIOError, ExitCode(os.ErrNotExist))
}

func TestProgressThrottle(t *testing.T) {
	var calls int
	pt := newProgressThrottle(func(int64, string) { calls++ })
	for i := 0; i < 100; i++ {
		pt.report(int64(i), "x")
	}
	assert.Equal(t, 1, calls, "burst collapses to one report")

	var none *progressThrottle = newProgressThrottle(nil)
	none.report(1, "x")
}
