// Package devscan recognizes developer working directories by their
// signature files and aggregates each matched subtree as a single
// candidate for cleanup. Rules are tested in order and the outermost
// signature wins, so nested signatures are never double-counted.
package devscan

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jamesainslie/tidymac/pkg/tidymac/logging"
	"github.com/jamesainslie/tidymac/pkg/tidymac/types"
)

// Kind classifies a detected developer artifact.
type Kind string

// Artifact kinds, named for display.
const (
	KindNodeModules Kind = "Node dependencies"
	KindNodeBuild   Kind = "Node build artifacts"
	KindRustTarget  Kind = "Rust build artifacts"
	KindPythonVenv  Kind = "Python virtual environment"
	KindGradle      Kind = "Gradle caches"
	KindCocoaPods   Kind = "CocoaPods"
	KindXcodeData   Kind = "Xcode derived data"
)

// Project is one detected artifact subtree.
type Project struct {
	// Root is the enclosing project directory.
	Root string `json:"root"`

	// Artifacts are the removable subtrees below Root.
	Artifacts []string `json:"artifacts"`

	// Kind is the matched classification.
	Kind Kind `json:"kind"`

	// Bytes is the total size of the artifact subtrees.
	Bytes int64 `json:"bytes"`

	// FileCount is the number of files in the artifact subtrees.
	FileCount int `json:"file_count"`

	// LastActivity is the most recent source-file mtime in the
	// project, excluding the artifacts themselves.
	LastActivity time.Time `json:"last_activity"`
}

// Stale reports whether the project has seen no source changes within
// the staleness window.
func (p *Project) Stale(staleDays int) bool {
	if staleDays <= 0 {
		return false
	}
	return time.Since(p.LastActivity) > time.Duration(staleDays)*24*time.Hour
}

// Safety returns the label for this project: Caution by default,
// upgraded to Safe when the project is stale.
func (p *Project) Safety(staleDays int) types.SafetyLabel {
	if p.Stale(staleDays) {
		return types.Safe
	}
	return types.Caution
}

// maxDepth bounds how deep project discovery descends below a search
// root. Artifact size accounting below a match is unbounded.
const maxDepth = 6

// Scan searches the given roots for developer artifact subtrees.
func Scan(ctx context.Context, roots []string) []Project {
	log := logging.Get("devscan")
	var projects []Project

	for _, root := range roots {
		if ctx.Err() != nil {
			break
		}
		found, err := scanRoot(ctx, root)
		if err != nil {
			log.Warn("project scan failed", "root", root, "error", err)
			continue
		}
		projects = append(projects, found...)
	}
	return projects
}

// scanRoot walks one search root looking for signature matches.
func scanRoot(ctx context.Context, root string) ([]Project, error) {
	var projects []Project

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !d.IsDir() {
			return nil
		}

		name := d.Name()
		if path != root && name == "Library" {
			return filepath.SkipDir
		}
		// Hidden directories are skipped except hidden venv homes.
		if path != root && strings.HasPrefix(name, ".") && name != ".venv" && name != ".env" {
			return filepath.SkipDir
		}
		if depth(root, path) > maxDepth {
			return filepath.SkipDir
		}

		project, ok := Detect(path)
		if !ok {
			return nil
		}
		projects = append(projects, project)
		// Outermost signature wins: nothing below a matched project
		// is examined again.
		return filepath.SkipDir
	})
	if err != nil && ctx.Err() == nil {
		return projects, err
	}
	return projects, nil
}

// Detect applies the signature rules to a single directory, first
// match wins. On a match it aggregates the artifact subtrees.
func Detect(dir string) (Project, bool) {
	for _, rule := range rules {
		artifacts, kind, ok := rule(dir)
		if !ok {
			continue
		}

		project := Project{Root: dir, Kind: kind, Artifacts: artifacts}
		for _, artifact := range artifacts {
			bytes, count := subtreeSize(artifact)
			project.Bytes += bytes
			project.FileCount += count
		}
		project.LastActivity = newestSourceMod(dir, artifacts)
		return project, true
	}
	return Project{}, false
}

// signatureRule inspects a directory and returns removable artifact
// paths when the directory matches.
type signatureRule func(dir string) (artifacts []string, kind Kind, ok bool)

// rules are tested in order; first match wins.
var rules = []signatureRule{
	ruleNodeModules,
	ruleNodeBuild,
	ruleRustTarget,
	rulePythonVenv,
	ruleGradle,
	ruleCocoaPods,
	ruleXcodeData,
}

func ruleNodeModules(dir string) ([]string, Kind, bool) {
	nm := filepath.Join(dir, "node_modules")
	if isDir(nm) {
		return []string{nm}, KindNodeModules, true
	}
	return nil, "", false
}

func ruleNodeBuild(dir string) ([]string, Kind, bool) {
	if !isFile(filepath.Join(dir, "package.json")) {
		return nil, "", false
	}
	var artifacts []string
	for _, out := range []string{".next", "dist", "build"} {
		if p := filepath.Join(dir, out); isDir(p) {
			artifacts = append(artifacts, p)
		}
	}
	if len(artifacts) == 0 {
		return nil, "", false
	}
	return artifacts, KindNodeBuild, true
}

func ruleRustTarget(dir string) ([]string, Kind, bool) {
	if isFile(filepath.Join(dir, "Cargo.toml")) && isDir(filepath.Join(dir, "target")) {
		return []string{filepath.Join(dir, "target")}, KindRustTarget, true
	}
	return nil, "", false
}

func rulePythonVenv(dir string) ([]string, Kind, bool) {
	if isFile(filepath.Join(dir, "pyvenv.cfg")) {
		return []string{dir}, KindPythonVenv, true
	}
	if isFile(filepath.Join(dir, "bin", "activate")) && hasPythonLib(dir) {
		return []string{dir}, KindPythonVenv, true
	}
	return nil, "", false
}

func ruleGradle(dir string) ([]string, Kind, bool) {
	if p := filepath.Join(dir, ".gradle"); isDir(p) {
		return []string{p}, KindGradle, true
	}
	return nil, "", false
}

func ruleCocoaPods(dir string) ([]string, Kind, bool) {
	if isDir(filepath.Join(dir, "Pods")) && isFile(filepath.Join(dir, "Podfile")) {
		return []string{filepath.Join(dir, "Pods")}, KindCocoaPods, true
	}
	return nil, "", false
}

func ruleXcodeData(dir string) ([]string, Kind, bool) {
	dd := filepath.Join(dir, "DerivedData")
	if !isDir(dd) || !isXcodeWorkspace(dir) {
		return nil, "", false
	}
	return []string{dd}, KindXcodeData, true
}

// isXcodeWorkspace reports whether dir contains a project or workspace
// bundle.
func isXcodeWorkspace(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".xcodeproj") || strings.HasSuffix(e.Name(), ".xcworkspace") {
			return true
		}
	}
	return false
}

// hasPythonLib reports a lib/pythonX.Y directory below dir.
func hasPythonLib(dir string) bool {
	matches, err := filepath.Glob(filepath.Join(dir, "lib", "python*"))
	if err != nil {
		return false
	}
	for _, m := range matches {
		if isDir(m) {
			return true
		}
	}
	return false
}

// subtreeSize sums bytes and file count below an artifact path.
func subtreeSize(root string) (int64, int) {
	var bytes int64
	var count int
	_ = filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil && info.Mode().IsRegular() {
			bytes += info.Size()
			count++
		}
		return nil
	})
	return bytes, count
}

// newestSourceMod finds the most recent mtime in the project tree,
// skipping the artifact subtrees and hidden directories.
func newestSourceMod(root string, artifacts []string) time.Time {
	skip := make(map[string]struct{}, len(artifacts))
	for _, a := range artifacts {
		skip[a] = struct{}{}
	}

	var newest time.Time
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if _, ok := skip[path]; ok {
				return filepath.SkipDir
			}
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if info, err := d.Info(); err == nil && info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		return nil
	})
	return newest
}

// depth counts path components between root and path.
func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
